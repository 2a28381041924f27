package models

const StepStatusNeedInfo = "need_info"

// StepNeedInfoResponse is returned with HTTP 206 when a step cannot
// complete because answers are still missing. A successful step streams
// the filled PDF instead.
type StepNeedInfoResponse struct {
	Status  string   `json:"status"`
	Missing []string `json:"missing"`
	Message string   `json:"message"`
}
