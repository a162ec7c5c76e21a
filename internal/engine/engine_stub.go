//go:build !onnx

package engine

import "fmt"

// Built reports whether this binary carries a real inference runtime.
const Built = false

type stubEngine struct{}

// New returns the runtime adapter. Without the onnx build tag every Load fails.
func New(Options) Engine { return stubEngine{} }

func (stubEngine) Name() string      { return "stub" }
func (stubEngine) Accelerated() bool { return false }

func (stubEngine) Load([]byte, Provider) (Session, error) {
	return nil, fmt.Errorf("%w: onnx support not built (missing 'onnx' build tag)", ErrDependencyUnavailable)
}
