package classifier

import "fmt"

// ValidationError marks a failure carrying field-level validation problems.
type ValidationError struct {
	Message string
	Fields  map[string][]string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("validation failed for %d field(s)", len(e.Fields))
}

// UploadError marks a failure of a file upload.
type UploadError struct {
	Filename string
	Code     string
	Err      error
}

func (e *UploadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upload %s: %v", e.Filename, e.Err)
	}
	return fmt.Sprintf("upload %s failed", e.Filename)
}

func (e *UploadError) Unwrap() error { return e.Err }

// BusinessError marks a rule violation reported by the API.
type BusinessError struct {
	Code    string
	Message string
}

func (e *BusinessError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}
