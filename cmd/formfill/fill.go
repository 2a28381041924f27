package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/a-h/formfill/client"
	"github.com/a-h/formfill/models"
	"gopkg.in/yaml.v3"
)

type FillCommand struct {
	ServerURL   string            `help:"The URL of the form fill server." env:"FORMFILL_URL" default:"http://localhost:8000"`
	APIKey      string            `help:"The API key for the form fill server." env:"FORMFILL_API_KEY" default:""`
	PDF         string            `help:"Path of the blank PDF form." default:"form.pdf"`
	Answer      map[string]string `help:"Field answers, e.g. --answer Name=Aidan. Repeatable."`
	AnswersFile string            `help:"YAML file of field name to value pairs." default:""`
	Output      string            `help:"Path to write the filled PDF to." default:"filled_form.pdf"`
	LogFile     string            `help:"Path of the transcript log. Defaults to a timestamped file in the working directory." default:""`
	LogLevel    string            `help:"The log level to use." env:"LOG_LEVEL" default:"info"`
}

func (c FillCommand) Run(ctx context.Context) (err error) {
	answers, err := c.collectAnswers()
	if err != nil {
		return err
	}
	if len(answers) == 0 {
		return fmt.Errorf("no answers provided, use --answer or --answers-file")
	}

	logName := c.LogFile
	if logName == "" {
		logName = fmt.Sprintf("formfill_%s.log", time.Now().Format("20060102_150405"))
	}
	logFile, err := os.Create(logName)
	if err != nil {
		return fmt.Errorf("failed to create transcript log: %w", err)
	}
	defer logFile.Close()
	tr := newTranscript(io.MultiWriter(os.Stdout, logFile))

	rsc := client.New(c.ServerURL, c.APIKey)
	return runFill(ctx, rsc, tr, fillArgs{
		pdfPath:    c.PDF,
		answers:    answers,
		outputPath: c.Output,
	})
}

func (c FillCommand) collectAnswers() (answers map[string]string, err error) {
	answers = make(map[string]string)
	if c.AnswersFile != "" {
		f, err := os.Open(c.AnswersFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open answers file: %w", err)
		}
		defer f.Close()
		if err = yaml.NewDecoder(f).Decode(&answers); err != nil {
			return nil, fmt.Errorf("failed to decode answers file: %w", err)
		}
	}
	// Flags override file values.
	for label, value := range c.Answer {
		answers[label] = value
	}
	return answers, nil
}

type fillArgs struct {
	pdfPath    string
	answers    map[string]string
	outputPath string
}

// runFill drives the three step session: create a context from the
// PDF, post the answers, then request the filled PDF. Any failure
// aborts the remainder of the sequence.
func runFill(ctx context.Context, rsc client.Client, tr *transcript, args fillArgs) (err error) {
	tr.Printf("POST /contexts (pdf=%s)", args.pdfPath)
	pdfFile, err := os.Open(args.pdfPath)
	if err != nil {
		return fmt.Errorf("failed to open PDF: %w", err)
	}
	created, err := rsc.ContextPost(ctx, args.pdfPath, pdfFile)
	pdfFile.Close()
	if err != nil {
		return fmt.Errorf("failed to create context: %w", err)
	}
	tr.JSON(created)

	tr.Printf("POST /contexts/%s/messages", created.ID)
	accepted, err := rsc.MessagesPost(ctx, created.ID, models.MessagesPostRequest{
		Answers: args.answers,
	})
	if err != nil {
		return fmt.Errorf("failed to post answers: %w", err)
	}
	tr.JSON(accepted)

	tr.Printf("POST /contexts/%s/steps", created.ID)
	out, err := os.Create(args.outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()
	if err = rsc.StepPost(ctx, created.ID, out); err != nil {
		return fmt.Errorf("failed to retrieve filled PDF: %w", err)
	}
	tr.Printf("wrote %s", args.outputPath)
	return nil
}

// transcript duplicates the session's request and response summaries
// to its writer, typically stdout plus a timestamped log file.
type transcript struct {
	w io.Writer
}

func newTranscript(w io.Writer) *transcript {
	return &transcript{w: w}
}

func (t *transcript) Printf(format string, args ...any) {
	fmt.Fprintf(t.w, format+"\n", args...)
}

func (t *transcript) JSON(v any) {
	enc := json.NewEncoder(t.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(t.w, "failed to encode transcript entry: %v\n", err)
	}
}
