package models

// ContextPostResponse is returned when a PDF is uploaded and a new
// context is created. Missing lists the form fields that still need
// an answer, in the order they appear in the field plan.
type ContextPostResponse struct {
	ID      string   `json:"id"`
	Missing []string `json:"missing"`
}

type ContextGetResponse struct {
	Plan    []PlanField       `json:"plan"`
	Answers map[string]string `json:"answers"`
	Missing []string          `json:"missing"`
}

// PlanField is a single fillable field identified on the form. X and Y
// are PDF points, origin bottom-left, on the first page.
type PlanField struct {
	Label string  `json:"label"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}
