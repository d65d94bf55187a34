package transform

import "fmt"

// Record kinds reported in TransformError.
const (
	KindExchange   = "exchange"
	KindToken      = "token"
	KindQuickPrice = "quick_price"
)

// TransformError reports one record that could not be mapped.
type TransformError struct {
	Kind     string
	SourceID string // may be empty when the payload carried no id
	Err      error
}

func (e *TransformError) Error() string {
	if e.SourceID == "" {
		return fmt.Sprintf("transform %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("transform %s %q: %v", e.Kind, e.SourceID, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }
