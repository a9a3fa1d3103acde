package classifier

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// Engine maps a preprocessed image tensor to a probability vector.
// Implementations are written once by the loader and read-only afterward.
type Engine interface {
	Infer(input []float32) ([]float32, error)
	Close() error
}

var runtimeInit sync.Once

func initRuntime() error {
	var err error
	runtimeInit.Do(func() {
		err = ort.InitializeEnvironment()
	})
	return err
}

// fullEngine is the full-fidelity strategy: tensor names and shapes are
// known up front, so input and output tensors are bound once and reused
// across calls.
type fullEngine struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

func newFullEngine(modelFile string, meta *Metadata) (*fullEngine, error) {
	if err := initRuntime(); err != nil {
		return nil, fmt.Errorf("initialize inference runtime: %w", err)
	}

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(meta.InputShape...))
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(meta.OutputShape...))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelFile,
		[]string{meta.InputName}, []string{meta.OutputName},
		[]ort.ArbitraryTensor{input}, []ort.ArbitraryTensor{output},
		nil)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &fullEngine{session: session, input: input, output: output}, nil
}

func (e *fullEngine) Infer(input []float32) ([]float32, error) {
	data := e.input.GetData()
	if len(input) != len(data) {
		return nil, fmt.Errorf("classifier: input has %d values, model expects %d", len(input), len(data))
	}
	copy(data, input)

	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	out := e.output.GetData()
	result := make([]float32, len(out))
	copy(result, out)
	return result, nil
}

func (e *fullEngine) Close() error {
	if e.input != nil {
		e.input.Destroy()
	}
	if e.output != nil {
		e.output.Destroy()
	}
	if e.session != nil {
		e.session.Destroy()
	}
	return nil
}

// layerEngine is the reduced-capability fallback: it skips the pinned
// metadata contract, discovers tensor names and shapes from the graph
// itself, and exposes forward-pass computation only.
type layerEngine struct {
	session    *ort.DynamicAdvancedSession
	inputShape ort.Shape
}

func newLayerEngine(modelFile string) (*layerEngine, error) {
	if err := initRuntime(); err != nil {
		return nil, fmt.Errorf("initialize inference runtime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelFile)
	if err != nil {
		return nil, fmt.Errorf("inspect graph: %w", err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, fmt.Errorf("graph declares %d inputs and %d outputs", len(inputs), len(outputs))
	}

	shape := make(ort.Shape, len(inputs[0].Dimensions))
	copy(shape, inputs[0].Dimensions)
	for i, dim := range shape {
		// Dynamic batch dimensions come back as -1; we always feed one image.
		if dim < 0 {
			shape[i] = 1
		}
	}

	session, err := ort.NewDynamicAdvancedSession(modelFile,
		[]string{inputs[0].Name}, []string{outputs[0].Name}, nil)
	if err != nil {
		return nil, fmt.Errorf("create dynamic session: %w", err)
	}

	return &layerEngine{session: session, inputShape: shape}, nil
}

func (e *layerEngine) Infer(input []float32) ([]float32, error) {
	tensor, err := ort.NewTensor(e.inputShape, input)
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	defer tensor.Destroy()

	outputs := []ort.Value{nil}
	if err := e.session.Run([]ort.Value{tensor}, outputs); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	defer outputs[0].Destroy()

	out, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output tensor type %T", outputs[0])
	}
	data := out.GetData()
	result := make([]float32, len(data))
	copy(result, data)
	return result, nil
}

func (e *layerEngine) Close() error {
	if e.session != nil {
		e.session.Destroy()
	}
	return nil
}
