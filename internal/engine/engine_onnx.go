//go:build onnx

package engine

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

const Built = true

type onnxEngine struct {
	opts    Options
	once    sync.Once
	initErr error
}

// New returns the ONNX Runtime adapter. The shared library is initialised
// lazily on first use.
func New(opts Options) Engine { return &onnxEngine{opts: opts} }

func (e *onnxEngine) Name() string { return "onnxruntime" }

func (e *onnxEngine) init() error {
	e.once.Do(func() {
		if e.opts.LibraryPath != "" {
			ort.SetSharedLibraryPath(e.opts.LibraryPath)
		}
		if ort.IsInitialized() {
			return
		}
		if err := ort.InitializeEnvironment(); err != nil {
			e.initErr = fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
		}
	})
	return e.initErr
}

func (e *onnxEngine) cudaOptions() (*ort.CUDAProviderOptions, error) {
	co, err := ort.NewCUDAProviderOptions()
	if err != nil {
		return nil, err
	}
	if err := co.Update(map[string]string{"device_id": strconv.Itoa(e.opts.DeviceID)}); err != nil {
		co.Destroy()
		return nil, err
	}
	return co, nil
}

func (e *onnxEngine) Accelerated() bool {
	if e.init() != nil {
		return false
	}
	so, err := ort.NewSessionOptions()
	if err != nil {
		return false
	}
	defer so.Destroy()
	co, err := e.cudaOptions()
	if err != nil {
		return false
	}
	defer co.Destroy()
	return so.AppendExecutionProviderCUDA(co) == nil
}

func (e *onnxEngine) Load(model []byte, p Provider) (Session, error) {
	if err := e.init(); err != nil {
		return nil, err
	}
	ins, outs, err := ort.GetInputOutputInfoWithONNXData(model)
	if err != nil {
		return nil, fmt.Errorf("inspect model: %w", err)
	}
	so, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("session options: %w", err)
	}
	defer so.Destroy()
	if p == ProviderCUDA {
		co, err := e.cudaOptions()
		if err != nil {
			return nil, fmt.Errorf("cuda options: %w", err)
		}
		defer co.Destroy()
		if err := so.AppendExecutionProviderCUDA(co); err != nil {
			return nil, fmt.Errorf("cuda provider: %w", err)
		}
	}
	s := &onnxSession{}
	inNames := make([]string, 0, len(ins))
	for _, in := range ins {
		inNames = append(inNames, in.Name)
		s.inputShapes = append(s.inputShapes, []int64(in.Dimensions))
	}
	for _, out := range outs {
		s.outputNames = append(s.outputNames, out.Name)
	}
	s.sess, err = ort.NewDynamicAdvancedSessionWithONNXData(model, inNames, s.outputNames, so)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return s, nil
}

type onnxSession struct {
	mu          sync.Mutex
	sess        *ort.DynamicAdvancedSession
	inputShapes [][]int64
	outputNames []string
}

func (s *onnxSession) InputShapes() [][]int64 { return s.inputShapes }
func (s *onnxSession) OutputNames() []string  { return s.outputNames }

func (s *onnxSession) Run(inputs ...Tensor) ([]Tensor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil {
		return nil, errors.New("session closed")
	}
	if len(inputs) != len(s.inputShapes) {
		return nil, fmt.Errorf("expected %d inputs, got %d", len(s.inputShapes), len(inputs))
	}
	in := make([]ort.Value, 0, len(inputs))
	defer func() {
		for _, v := range in {
			v.Destroy()
		}
	}()
	for _, t := range inputs {
		v, err := ort.NewTensor(ort.NewShape(t.Shape...), t.Data)
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", t.Name, err)
		}
		in = append(in, v)
	}
	out := make([]ort.Value, len(s.outputNames))
	defer func() {
		for _, v := range out {
			if v != nil {
				v.Destroy()
			}
		}
	}()
	if err := s.sess.Run(in, out); err != nil {
		return nil, err
	}
	res := make([]Tensor, 0, len(out))
	for i, v := range out {
		if v == nil {
			continue
		}
		ft, ok := v.(*ort.Tensor[float32])
		if !ok {
			return nil, fmt.Errorf("output %s: unsupported element type", s.outputNames[i])
		}
		data := append([]float32(nil), ft.GetData()...)
		res = append(res, Tensor{Name: s.outputNames[i], Shape: []int64(ft.GetShape()), Data: data})
	}
	return res, nil
}

func (s *onnxSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil {
		return nil
	}
	err := s.sess.Destroy()
	s.sess = nil
	return err
}
