package handlers

// StatusResponse is the body for operations that only report an outcome,
// such as health probes and toggles.
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}
