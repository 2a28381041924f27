package plan

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

// Field is a fillable form field found by the vision model. X and Y are
// PDF points, origin bottom-left, on the first page of the form.
type Field struct {
	Label string  `json:"label"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// Missing returns the labels in fields that have no answer, in order.
func Missing(fields []Field, answers map[string]string) (labels []string) {
	for _, f := range fields {
		if _, ok := answers[f.Label]; !ok {
			labels = append(labels, f.Label)
		}
	}
	return labels
}

func NewExtractor(log *slog.Logger, llm llms.Model) Extractor {
	return Extractor{
		log: log,
		llm: llm,
	}
}

// Extractor uses a multimodal model to build a field plan from a
// rendered form page, and to map free text onto missing fields.
type Extractor struct {
	log *slog.Logger
	llm llms.Model
}

const extractPrompt = `Look at this PDF form page (8.5x11 inches, origin bottom-left). List every field a user should fill. Return ONLY a JSON array; each item must have label, x and y keys, where x and y are the PDF point coordinates where the value should be written.`

func (e Extractor) Extract(ctx context.Context, pageImage []byte) (fields []Field, err error) {
	resp, err := e.llm.GenerateContent(ctx, []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.BinaryPart("image/png", pageImage),
				llms.TextPart(extractPrompt),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("plan: failed to generate field plan: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("plan: model returned no choices")
	}
	fields, err = ParseFields(resp.Choices[0].Content)
	if err != nil {
		return nil, err
	}
	e.log.Info("extracted field plan", slog.Int("fields", len(fields)))
	return fields, nil
}

const mapAnswersPrompt = `You are an assistant that fills out forms. Analyze the CONTEXT and provide answers for the FIELDS TO FILL.

CONTEXT:
---
%s
---

FIELDS TO FILL:
[%s]

For factual fields (names, emails, dates) extract the information exactly as it appears in the context. Your response MUST be a single valid JSON object whose keys are the exact field names from the list. If you cannot find the information for a field, use the string "N/A" as its value. Output ONLY the JSON.`

// MapAnswers asks the model to pull values for the missing fields out
// of free text. Fields the model could not answer are omitted from the
// result.
func (e Extractor) MapAnswers(ctx context.Context, text string, missing []string) (answers map[string]string, err error) {
	quoted := make([]string, len(missing))
	for i, label := range missing {
		quoted[i] = fmt.Sprintf("%q", label)
	}
	prompt := fmt.Sprintf(mapAnswersPrompt, text, strings.Join(quoted, ", "))
	resp, err := e.llm.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	})
	if err != nil {
		return nil, fmt.Errorf("plan: failed to map answers: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("plan: model returned no choices")
	}
	return ParseAnswers(resp.Choices[0].Content, missing)
}

// StripFences removes a surrounding markdown code fence, since models
// often wrap JSON output in one despite being told not to.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// ParseFields decodes the model's field plan output. Fields with empty
// labels are dropped, and only the first occurrence of a label is kept.
func ParseFields(s string) (fields []Field, err error) {
	var decoded []Field
	if err = json.Unmarshal([]byte(StripFences(s)), &decoded); err != nil {
		return nil, fmt.Errorf("plan: failed to decode field plan: %w", err)
	}
	seen := make(map[string]struct{}, len(decoded))
	for _, f := range decoded {
		f.Label = strings.TrimSpace(f.Label)
		if f.Label == "" {
			continue
		}
		if _, ok := seen[f.Label]; ok {
			continue
		}
		seen[f.Label] = struct{}{}
		fields = append(fields, f)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("plan: no fields found")
	}
	return fields, nil
}

// ParseAnswers decodes the model's answer mapping output, keeping only
// the allowed labels and dropping unanswered ("N/A" or empty) values.
func ParseAnswers(s string, allowed []string) (answers map[string]string, err error) {
	var decoded map[string]string
	if err = json.Unmarshal([]byte(StripFences(s)), &decoded); err != nil {
		return nil, fmt.Errorf("plan: failed to decode answers: %w", err)
	}
	answers = make(map[string]string)
	for _, label := range allowed {
		value := strings.TrimSpace(decoded[label])
		if value == "" || value == "N/A" {
			continue
		}
		answers[label] = value
	}
	return answers, nil
}
