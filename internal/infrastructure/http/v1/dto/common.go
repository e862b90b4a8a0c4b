// Package dto defines request/response shapes for the HTTP API.
package dto

// SuccessResponse is a simple success acknowledgement.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
