package errors

import "fmt"

// Code represents a business error code with its default message
type Code struct {
	Code    int    // Business error code
	Message string // Error message
}

// Error codes for the knowledge pipeline
const (
	// Success
	Success = 0

	// Common errors (1000-1999)
	ErrInternal      = 1000
	ErrInvalidParams = 1001
	ErrNotFound      = 1002

	// Chunking configuration errors (4000-4099)
	// All of these are raised at configuration-resolution time,
	// never in the middle of a split.
	ErrKBInvalidChunkConfig = 4000
	ErrKBInvalidSeparator   = 4001
	ErrKBUnknownPreset      = 4002
	ErrKBInvalidLengthUnit  = 4003

	// Chunking processing errors (4100-4199)
	ErrKBProcessingFailed = 4100
	ErrKBScoringFailed    = 4101
)

// codeMap maps error codes to their details
var codeMap = map[int]Code{
	Success: {Success, "Success"},

	ErrInternal:      {ErrInternal, "Internal error"},
	ErrInvalidParams: {ErrInvalidParams, "Invalid parameters"},
	ErrNotFound:      {ErrNotFound, "Resource not found"},

	ErrKBInvalidChunkConfig: {ErrKBInvalidChunkConfig, "Invalid chunking configuration"},
	ErrKBInvalidSeparator:   {ErrKBInvalidSeparator, "Invalid separator pattern"},
	ErrKBUnknownPreset:      {ErrKBUnknownPreset, "Unknown chunking preset"},
	ErrKBInvalidLengthUnit:  {ErrKBInvalidLengthUnit, "Invalid length unit"},

	ErrKBProcessingFailed: {ErrKBProcessingFailed, "Document chunking failed"},
	ErrKBScoringFailed:    {ErrKBScoringFailed, "Chunk quality scoring failed"},
}

// GetCode returns the Code for a given error code
func GetCode(code int) Code {
	if c, ok := codeMap[code]; ok {
		return c
	}
	return codeMap[ErrInternal]
}

// GetMessage returns the message for a given error code
func GetMessage(code int) string {
	return GetCode(code).Message
}

// IsConfigurationError reports whether the code belongs to the
// configuration error block (raised before any splitting work begins)
func IsConfigurationError(code int) bool {
	return code >= 4000 && code < 4100
}

// FormatError formats an error message with code
func FormatError(code int, details ...string) string {
	msg := GetMessage(code)
	if len(details) > 0 && details[0] != "" {
		return fmt.Sprintf("%s: %s", msg, details[0])
	}
	return msg
}
