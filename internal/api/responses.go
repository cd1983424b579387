package api

type ErrorResponse struct {
	Error string `json:"error" example:"session is full"`
	Kind  string `json:"kind,omitempty" example:"slot_full"`
}

type MessageResponse struct {
	Message string `json:"message" example:"ok"`
}

type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}
