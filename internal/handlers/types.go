package handlers

import "time"

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Database  string            `json:"database"`
	Metrics   map[string]string `json:"metrics,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// JobStatusResponse represents one scheduled job in the status endpoint
type JobStatusResponse struct {
	NextRun time.Time `json:"next_run"`
	LastRun time.Time `json:"last_run"`
}
