// Package engine abstracts the inference runtime that backs a model session.
//
// The ONNX Runtime adapter is compiled with `-tags=onnx` (engine_onnx.go).
// Default builds get a stub whose Load fails with ErrDependencyUnavailable,
// keeping CI and tests CGO-free.
package engine

import "errors"

// Provider selects the compute backend for a session.
type Provider string

const (
	ProviderCPU  Provider = "cpu"
	ProviderCUDA Provider = "cuda"
)

// ErrDependencyUnavailable is returned when the runtime was not built in or
// its shared library could not be initialised.
var ErrDependencyUnavailable = errors.New("inference runtime not available")

// Tensor is a dense float32 tensor.
type Tensor struct {
	Name  string
	Shape []int64
	Data  []float32
}

// Session is one loaded model.
type Session interface {
	// Run executes the model. Inputs are matched to model inputs by position.
	Run(inputs ...Tensor) ([]Tensor, error)
	InputShapes() [][]int64
	OutputNames() []string
	Close() error
}

// Engine constructs sessions from raw model bytes.
type Engine interface {
	Name() string
	// Accelerated reports whether an accelerator provider is usable.
	Accelerated() bool
	Load(model []byte, p Provider) (Session, error)
}

// Options configures the runtime adapter.
type Options struct {
	// LibraryPath points at the onnxruntime shared library. Empty uses the
	// platform default search.
	LibraryPath string
	// DeviceID selects the CUDA device.
	DeviceID int
}
