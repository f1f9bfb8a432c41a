package normalize

import "fmt"

// DecodeError reports that the input bytes are not a valid or supported image.
type DecodeError struct {
	Filename string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode image: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ProcessingError reports a failure after decoding, such as resize or encode.
type ProcessingError struct {
	Filename string

	// Stage names the pipeline step that failed: "resize", "encode", ...
	Stage string

	Err error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}
