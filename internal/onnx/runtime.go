// Package onnx wraps ONNX Runtime environment setup and single-input model sessions.
package onnx

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/yalue/onnxruntime_go"
)

// EnvLibraryPath overrides the ONNX Runtime shared library location.
const EnvLibraryPath = "BUBBLETRANS_ONNXRUNTIME_LIB"

var envMu sync.Mutex

func libraryName() (string, error) {
	switch runtime.GOOS {
	case "linux":
		return "libonnxruntime.so", nil
	case "darwin":
		return "libonnxruntime.dylib", nil
	case "windows":
		return "onnxruntime.dll", nil
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}
}

// libraryCandidates lists where the shared library is looked up, in order.
func libraryCandidates() []string {
	var out []string
	if p := os.Getenv(EnvLibraryPath); p != "" {
		out = append(out, p)
	}
	name, err := libraryName()
	if err != nil {
		return out
	}
	out = append(out,
		filepath.Join("/usr/local/lib", name),
		filepath.Join("/usr/lib", name),
		filepath.Join("/opt/onnxruntime/lib", name),
	)
	if wd, err := os.Getwd(); err == nil {
		out = append(out, filepath.Join(wd, "onnxruntime", "lib", name))
	}
	return out
}

// EnsureEnvironment locates the runtime library and initializes the process-wide
// ONNX Runtime environment once. It is safe to call repeatedly.
func EnsureEnvironment() error {
	envMu.Lock()
	defer envMu.Unlock()

	if onnxruntime_go.IsInitialized() {
		return nil
	}

	found := false
	for _, p := range libraryCandidates() {
		if _, err := os.Stat(p); err == nil {
			onnxruntime_go.SetSharedLibraryPath(p)
			found = true
			break
		}
	}
	if !found {
		return errors.New("ONNX Runtime shared library not found")
	}
	if err := onnxruntime_go.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX Runtime: %w", err)
	}
	return nil
}

// Session is a single-input single-output model session. Run calls are serialized.
type Session struct {
	mu         sync.Mutex
	session    *onnxruntime_go.DynamicAdvancedSession
	InputName  string
	OutputName string
	InputShape []int64
}

// NewSession opens modelPath and binds its first input and output.
func NewSession(modelPath string, numThreads int) (*Session, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file not found: %w", err)
	}
	if err := EnsureEnvironment(); err != nil {
		return nil, err
	}

	inputs, outputs, err := onnxruntime_go.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read model info: %w", err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, errors.New("model has no inputs or outputs")
	}

	opts, err := onnxruntime_go.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer func() { _ = opts.Destroy() }()

	if numThreads > 0 {
		if err := opts.SetIntraOpNumThreads(numThreads); err != nil {
			return nil, fmt.Errorf("failed to set thread count: %w", err)
		}
	}

	s, err := onnxruntime_go.NewDynamicAdvancedSession(modelPath,
		[]string{inputs[0].Name}, []string{outputs[0].Name}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &Session{
		session:    s,
		InputName:  inputs[0].Name,
		OutputName: outputs[0].Name,
		InputShape: inputs[0].Dimensions,
	}, nil
}

// Run executes the model on t and returns the float32 output tensor.
func (s *Session) Run(t Tensor) (Tensor, error) {
	if err := VerifyImageTensor(t); err != nil {
		return Tensor{}, fmt.Errorf("invalid input tensor: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return Tensor{}, errors.New("session is closed")
	}

	in, err := onnxruntime_go.NewTensor(onnxruntime_go.NewShape(t.Shape...), t.Data)
	if err != nil {
		return Tensor{}, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer func() { _ = in.Destroy() }()

	outputs := []onnxruntime_go.Value{nil}
	if err := s.session.Run([]onnxruntime_go.Value{in}, outputs); err != nil {
		return Tensor{}, fmt.Errorf("inference failed: %w", err)
	}
	defer func() {
		if outputs[0] != nil {
			_ = outputs[0].Destroy()
		}
	}()

	out, ok := outputs[0].(*onnxruntime_go.Tensor[float32])
	if !ok {
		return Tensor{}, errors.New("unexpected output tensor type")
	}
	data := make([]float32, len(out.GetData()))
	copy(data, out.GetData())
	shape := append([]int64(nil), out.GetShape()...)
	return Tensor{Data: data, Shape: shape}, nil
}

// Close releases the underlying session.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	err := s.session.Destroy()
	s.session = nil
	return err
}
