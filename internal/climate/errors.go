package climate

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSettings is returned when Settings fail validation.
	ErrInvalidSettings = errors.New("climate: invalid settings")

	ErrInvalidMode       = errors.New("climate: invalid mode")
	ErrInvalidSystemMode = errors.New("climate: invalid system mode")
	ErrInvalidOverride   = errors.New("climate: invalid override")

	// ErrEvaluationPanic wraps a panic recovered during an evaluation pass.
	ErrEvaluationPanic = errors.New("climate: evaluation panicked")
)

// NodeError attributes an evaluation failure to the graph node or chart
// state that raised it.
type NodeError struct {
	Node string
	Err  error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("climate: %s: %v", e.Node, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

// SourceNode returns the node named by the first NodeError in err's chain,
// or fallback if there is none.
func SourceNode(err error, fallback string) string {
	var ne *NodeError
	if errors.As(err, &ne) {
		return ne.Node
	}
	return fallback
}
