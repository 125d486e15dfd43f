package server

import (
	"time"

	"crudforge/src/apperrors"
	"crudforge/src/repository"
)

// SuccessEnvelope is the response shape for every successful request.
type SuccessEnvelope struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	Data       interface{}     `json:"data"`
	Pagination *PaginationMeta `json:"pagination,omitempty"`
	Timestamp  string          `json:"timestamp"`
}

// ErrorEnvelope is the response shape for every failed request.
type ErrorEnvelope struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}

type ErrorBody struct {
	Type      apperrors.Kind         `json:"type"`
	Message   string                 `json:"message"`
	Timestamp string                 `json:"timestamp"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

type PaginationMeta struct {
	Skip        int64 `json:"skip"`
	Limit       int64 `json:"limit"`
	Total       int64 `json:"total"`
	HasNext     bool  `json:"hasNext"`
	HasPrevious bool  `json:"hasPrevious"`
}

func successEnvelope(message string, data interface{}) SuccessEnvelope {
	return SuccessEnvelope{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

func pageEnvelope(message string, result *repository.PaginatedResult) SuccessEnvelope {
	envelope := successEnvelope(message, result.Items)
	envelope.Pagination = &PaginationMeta{
		Skip:        result.Skip,
		Limit:       result.Limit,
		Total:       result.Total,
		HasNext:     result.HasNext,
		HasPrevious: result.HasPrevious,
	}
	return envelope
}

// errorEnvelope shapes a typed error for the wire. The wrapped cause is
// deliberately not serialized; it stays server-side for logging.
func errorEnvelope(appErr *apperrors.AppError) ErrorEnvelope {
	return ErrorEnvelope{
		Success: false,
		Error: ErrorBody{
			Type:      appErr.Kind,
			Message:   appErr.Message,
			Timestamp: appErr.Timestamp.UTC().Format(time.RFC3339),
			Details:   appErr.Details,
		},
	}
}
