package protocol

import "fmt"

// DecodeError reports a frame that is not well-formed JSON, or whose fields
// cannot be represented by the message type named in its tag.
type DecodeError struct {
	Type string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("decode message: %v", e.Err)
	}
	return fmt.Sprintf("decode %s: %v", e.Type, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
