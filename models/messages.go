package models

// MessagesPostRequest supplies answers for a context. Either Answers
// (explicit label to value pairs) or Text (free text for the server to
// map onto the missing fields) must be set.
type MessagesPostRequest struct {
	Answers map[string]string `json:"answers,omitempty"`
	Text    string            `json:"text,omitempty"`
}

type MessagesPostResponse struct {
	Accepted []string `json:"accepted"`
	Missing  []string `json:"missing"`
}
