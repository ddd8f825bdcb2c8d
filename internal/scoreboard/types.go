package scoreboard

// BestResponse is returned by GET /api/v1/best. Time is nil when no result
// exists for the condition yet.
type BestResponse struct {
	Time *int64 `json:"time"`
}

// SubmitRequest is the body of POST /api/v1/ghosts.
type SubmitRequest struct {
	Ghost       string `json:"ghost"`
	Competitive bool   `json:"competitive"`
}

// SubmitResponse is returned by POST /api/v1/ghosts.
type SubmitResponse struct {
	ID int64 `json:"id"`
}

// ApplyResponse is returned by POST /api/v1/ghosts/{id}/apply.
type ApplyResponse struct {
	Applied bool `json:"applied"`
}

// GhostResponse is returned by GET /api/v1/ghosts/best.
type GhostResponse struct {
	Ghost string `json:"ghost"`
}

// ErrorResponse is the body of non-2xx responses, when the service sends one.
type ErrorResponse struct {
	Error string `json:"error"`
}
