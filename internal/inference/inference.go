// Package inference runs the component detection models.
package inference

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	tflite "github.com/tphakala/go-tflite"
)

var log = logrus.New()

// Engine runs a detection model on a prepared input tensor and returns
// the flat output tensor.
type Engine interface {
	Invoke(input []float32) ([]float32, error)
	Close() error
}

// TFLiteEngine wraps a TensorFlow Lite interpreter. An interpreter is
// not safe for concurrent invocation, so calls are serialised.
type TFLiteEngine struct {
	mu          sync.Mutex
	model       *tflite.Model
	interpreter *tflite.Interpreter
	options     *tflite.InterpreterOptions
}

// NewTFLiteEngine loads a model from its serialised bytes and prepares
// an interpreter with the given thread count.
func NewTFLiteEngine(modelData []byte, threads int) (*TFLiteEngine, error) {
	model := tflite.NewModel(modelData)
	if model == nil {
		return nil, fmt.Errorf("cannot load model")
	}

	options := tflite.NewInterpreterOptions()
	if threads > 0 {
		options.SetNumThread(threads)
	}
	options.SetErrorReporter(func(msg string, userData any) {
		log.WithField("message", msg).Error("TFLite error")
	}, nil)

	interpreter := tflite.NewInterpreter(model, options)
	if interpreter == nil {
		options.Delete()
		model.Delete()
		return nil, fmt.Errorf("cannot create interpreter")
	}
	if status := interpreter.AllocateTensors(); status != tflite.OK {
		interpreter.Delete()
		options.Delete()
		model.Delete()
		return nil, fmt.Errorf("tensor allocation failed: %v", status)
	}

	log.WithField("threads", threads).Debug("Loaded detection model")

	return &TFLiteEngine{
		model:       model,
		interpreter: interpreter,
		options:     options,
	}, nil
}

// Invoke copies the input into the model's input tensor, runs inference
// and returns a copy of the output tensor.
func (e *TFLiteEngine) Invoke(input []float32) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	in := e.interpreter.GetInputTensor(0)
	if in == nil {
		return nil, fmt.Errorf("model has no input tensor")
	}
	dst := in.Float32s()
	if len(dst) != len(input) {
		return nil, fmt.Errorf("input size mismatch: model wants %d values, got %d", len(dst), len(input))
	}
	copy(dst, input)

	if status := e.interpreter.Invoke(); status != tflite.OK {
		return nil, fmt.Errorf("inference failed: %v", status)
	}

	out := e.interpreter.GetOutputTensor(0)
	if out == nil {
		return nil, fmt.Errorf("model has no output tensor")
	}
	src := out.Float32s()
	result := make([]float32, len(src))
	copy(result, src)
	return result, nil
}

// Close releases the interpreter and model.
func (e *TFLiteEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.interpreter != nil {
		e.interpreter.Delete()
		e.interpreter = nil
	}
	if e.options != nil {
		e.options.Delete()
		e.options = nil
	}
	if e.model != nil {
		e.model.Delete()
		e.model = nil
	}
	return nil
}
