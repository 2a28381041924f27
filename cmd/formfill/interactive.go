package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/a-h/formfill/client"
	"github.com/a-h/formfill/models"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

type InteractiveCommand struct {
	ServerURL string `help:"The URL of the form fill server." env:"FORMFILL_URL" default:"http://localhost:8000"`
	APIKey    string `help:"The API key for the form fill server." env:"FORMFILL_API_KEY" default:""`
	PDF       string `help:"Path of the blank PDF form." default:"form.pdf"`
	Output    string `help:"Path to write the filled PDF to." default:"filled_form.pdf"`
	LogLevel  string `help:"The log level to use." env:"LOG_LEVEL" default:"info"`
}

type sessionMessageRole string

const (
	sessionMessageRoleServer sessionMessageRole = "server"
	sessionMessageRoleUser   sessionMessageRole = "user"
)

type sessionMessage struct {
	Role    sessionMessageRole
	Content string
}

func (c InteractiveCommand) Run(ctx context.Context) (err error) {
	rsc := client.New(c.ServerURL, c.APIKey)

	pdfFile, err := os.Open(c.PDF)
	if err != nil {
		return fmt.Errorf("failed to open PDF: %w", err)
	}
	created, err := rsc.ContextPost(ctx, c.PDF, pdfFile)
	pdfFile.Close()
	if err != nil {
		return fmt.Errorf("failed to create context: %w", err)
	}

	messages := []sessionMessage{
		{
			Role:    sessionMessageRoleServer,
			Content: fmt.Sprintf("I've read %s. Tell me about yourself and I'll fill in: %s", c.PDF, strings.Join(created.Missing, ", ")),
		},
	}

	toServer := make(chan string)
	fromServer := make(chan []sessionMessage)
	errors := make(chan error)
	defer close(toServer)
	defer close(fromServer)
	defer close(errors)

	go func() {
		for input := range toServer {
			messages = append(messages, sessionMessage{
				Role:    sessionMessageRoleUser,
				Content: input,
			})
			fromServer <- messages

			accepted, err := rsc.MessagesPost(ctx, created.ID, models.MessagesPostRequest{
				Text: input,
			})
			if err != nil {
				errors <- err
				return
			}
			if len(accepted.Missing) > 0 {
				messages = append(messages, sessionMessage{
					Role:    sessionMessageRoleServer,
					Content: fmt.Sprintf("Thanks. I still need: %s", strings.Join(accepted.Missing, ", ")),
				})
				fromServer <- messages
				continue
			}

			out, err := os.Create(c.Output)
			if err != nil {
				errors <- err
				return
			}
			err = rsc.StepPost(ctx, created.ID, out)
			out.Close()
			if err != nil {
				errors <- err
				return
			}
			messages = append(messages, sessionMessage{
				Role:    sessionMessageRoleServer,
				Content: fmt.Sprintf("All done, I've written %s. Press esc to quit.", c.Output),
			})
			fromServer <- messages
		}
	}()

	p := tea.NewProgram(newSessionModel(ctx, messages, toServer, fromServer, errors))
	if _, err = p.Run(); err != nil {
		return err
	}
	return nil
}

// Dracula color scheme.
var (
	Background = lipgloss.Color("#282a36")
	Foreground = lipgloss.Color("#f8f8f2")
	Cyan       = lipgloss.Color("#8be9fd")
	Green      = lipgloss.Color("#50fa7b")
	Pink       = lipgloss.Color("#ff79c6")
	Purple     = lipgloss.Color("#bd93f9")
	Red        = lipgloss.Color("#ff5555")
)

var headerStyle = lipgloss.NewStyle().Foreground(Purple).Bold(true).Padding(1)

const header = `
  ___                   __ _  _  _
 / _| ___  _ _ _ __    / _(_)| || |
|  _|/ _ \| '_| '  \  |  _| || || |
|_|  \___/|_| |_|_|_| |_| |_||_||_|
`

type sessionModel struct {
	viewport viewport.Model
	textarea textarea.Model
	err      error
	ctx      context.Context

	toServer   chan string
	fromServer chan []sessionMessage
	errors     chan error
}

func newSessionModel(ctx context.Context, messages []sessionMessage, toServer chan string, fromServer chan []sessionMessage, errors chan error) sessionModel {
	ta := textarea.New()
	ta.Placeholder = "Tell me about yourself..."
	ta.Focus()

	ta.Prompt = "┃ "
	ta.CharLimit = 280

	ta.SetHeight(3)

	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()

	ta.ShowLineNumbers = false

	vp := viewport.New(80, 20)
	var sb strings.Builder
	sb.WriteString(headerStyle.Render(header))
	sb.WriteString("\n")
	for _, m := range messages {
		sb.WriteString(formatSessionMessage(m))
		sb.WriteString("\n")
	}
	vp.SetContent(sb.String())

	ta.KeyMap.InsertNewline.SetEnabled(false)

	return sessionModel{
		ctx:        ctx,
		textarea:   ta,
		viewport:   vp,
		err:        nil,
		toServer:   toServer,
		fromServer: fromServer,
		errors:     errors,
	}
}

func (m sessionModel) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.subscribeToFromServer(),
		m.subscribeToErrors(),
	)
}

func (m sessionModel) subscribeToFromServer() tea.Cmd {
	return func() tea.Msg {
		select {
		case x := <-m.fromServer:
			return x
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m sessionModel) subscribeToErrors() tea.Cmd {
	return func() tea.Msg {
		select {
		case x := <-m.errors:
			return x
		case <-m.ctx.Done():
			return nil
		}
	}
}

var roleToStyle = map[sessionMessageRole]lipgloss.Style{
	sessionMessageRoleServer: lipgloss.NewStyle().Padding(1).Margin(1).MarginBottom(0).MaxWidth(90).Background(Background).Foreground(Cyan),
	sessionMessageRoleUser:   lipgloss.NewStyle().Padding(1).Margin(1).MarginBottom(0).Background(Background).Foreground(Pink),
}

var roleToIcon = map[sessionMessageRole]string{
	sessionMessageRoleServer: "📄",
	sessionMessageRoleUser:   "🥷",
}

var errorStyle = lipgloss.NewStyle().Padding(1).Margin(1).MarginBottom(0).Background(Background).Foreground(Red)

func formatSessionMessage(msg sessionMessage) string {
	style, ok := roleToStyle[msg.Role]
	if !ok {
		return msg.Content
	}
	icon, ok := roleToIcon[msg.Role]
	if !ok {
		icon = "🤷"
	}
	wrapped := wordwrap.String(strings.TrimSpace(icon+" "+msg.Content), 80)
	return style.Render(wrapped)
}

func (m sessionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case error:
		m.err = msg
		m.viewport.SetContent(errorStyle.Render(wordwrap.String(msg.Error(), 80)))
		return m, m.subscribeToErrors()
	case []sessionMessage:
		var sb strings.Builder
		for _, sm := range msg {
			sb.WriteString(formatSessionMessage(sm))
			sb.WriteString("\n")
		}
		m.viewport.SetContent(sb.String())
		m.viewport.GotoBottom()
		return m, m.subscribeToFromServer()
	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - m.textarea.Height() - 3
		m.textarea.SetWidth(msg.Width)
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "ctrl+c":
			return m, tea.Quit
		case "enter":
			v := m.textarea.Value()

			if v == "" {
				// Don't send empty messages.
				return m, nil
			}

			m.textarea.Reset()
			m.toServer <- v
			return m, nil
		default:
			// Send all other keypresses to the textarea.
			var cmd tea.Cmd
			m.textarea, cmd = m.textarea.Update(msg)
			return m, cmd
		}

	case cursor.BlinkMsg:
		// Textarea should also process cursor blinks.
		var cmd tea.Cmd
		m.textarea, cmd = m.textarea.Update(msg)
		return m, cmd

	default:
		return m, nil
	}
}

func (m sessionModel) View() string {
	return fmt.Sprintf("%s\n\n%s",
		m.viewport.View(),
		m.textarea.View(),
	) + "\n\n"
}
