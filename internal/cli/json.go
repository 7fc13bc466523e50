package cli

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"strings"

	"github.com/ElPandos/interface-check-sub005/internal/errors"
)

// JSONEnvelope wraps command output in a consistent structure for machine parsing.
// All --output json output uses this envelope.
type JSONEnvelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *JSONError  `json:"error,omitempty"`
}

// JSONError provides structured error information for machine parsing.
type JSONError struct {
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Suggestion string      `json:"suggestion,omitempty"`
	Details    interface{} `json:"details,omitempty"`
}

// Error codes for machine-readable output.
const (
	ErrCodeConfigNotFound    = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid     = "CONFIG_INVALID"
	ErrCodeSSHConnectionFail = "SSH_CONNECTION_FAILED"
	ErrCodePoolExhausted     = "POOL_EXHAUSTED"
	ErrCodePoolClosed        = "POOL_CLOSED"
	ErrCodeCommandFailed     = "COMMAND_FAILED"
	ErrCodeBatchFailed       = "BATCH_FAILED"
	ErrCodeForcedStop        = "FORCED_STOP"
	ErrCodeUnknown           = "UNKNOWN"
)

// WriteJSONSuccess writes a successful response with data to the writer.
func WriteJSONSuccess(w io.Writer, data interface{}) error {
	return writeJSONEnvelope(w, JSONEnvelope{
		Success: true,
		Data:    data,
	})
}

// WriteJSONError writes an error response to the writer.
func WriteJSONError(w io.Writer, code, message, suggestion string, details interface{}) error {
	return writeJSONEnvelope(w, JSONEnvelope{
		Success: false,
		Error: &JSONError{
			Code:       code,
			Message:    message,
			Suggestion: suggestion,
			Details:    details,
		},
	})
}

// WriteJSONFromError converts a Go error to a JSON error response.
func WriteJSONFromError(w io.Writer, err error) error {
	return writeJSONEnvelope(w, JSONEnvelope{
		Success: false,
		Error:   ErrorToJSON(err),
	})
}

// writeJSONEnvelope writes the envelope with consistent formatting.
func writeJSONEnvelope(w io.Writer, env JSONEnvelope) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(env)
}

// ErrorToJSON converts a Go error to a JSONError with appropriate code mapping.
func ErrorToJSON(err error) *JSONError {
	if err == nil {
		return nil
	}

	var ifcErr *errors.Error
	if stderrors.As(err, &ifcErr) {
		return &JSONError{
			Code:       mapErrorCode(ifcErr.Code, ifcErr.Message),
			Message:    ifcErr.Message,
			Suggestion: ifcErr.Suggestion,
		}
	}

	return &JSONError{
		Code:    ErrCodeUnknown,
		Message: err.Error(),
	}
}

// mapErrorCode maps internal error codes to machine-readable codes.
func mapErrorCode(internalCode, message string) string {
	switch internalCode {
	case errors.ErrConfig:
		msgLower := strings.ToLower(message)
		if strings.Contains(msgLower, "not found") || strings.Contains(msgLower, "couldn't find") {
			return ErrCodeConfigNotFound
		}
		return ErrCodeConfigInvalid
	case errors.ErrSSH, errors.ErrConnect:
		return ErrCodeSSHConnectionFail
	case errors.ErrPoolExhausted:
		return ErrCodePoolExhausted
	case errors.ErrPoolClosed:
		return ErrCodePoolClosed
	case errors.ErrExec:
		return ErrCodeCommandFailed
	case errors.ErrBatch:
		return ErrCodeBatchFailed
	case errors.ErrForcedStop:
		return ErrCodeForcedStop
	}

	return ErrCodeUnknown
}
