package models

// ErrorDetail is the structured form of the "error" field for failures that
// clients branch on, such as FIELD_NAME_MISMATCH or DUPLICATE_KEY.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Value   string `json:"value,omitempty"`
}

// Error codes returned inside ErrorDetail
const (
	ErrCodeFieldNameMismatch = "FIELD_NAME_MISMATCH"
	ErrCodeDuplicateKey      = "DUPLICATE_KEY"
	ErrCodeFileTooLarge      = "FILE_TOO_LARGE"
	ErrCodeUnsupportedType   = "UNSUPPORTED_FILE_TYPE"
	ErrCodeNotConfigured     = "NOT_CONFIGURED"
)
