// Package classifier loads the pre-trained leaf classifier artifact and
// runs inference against it.
package classifier

import (
	"fmt"
)

// Diagnosis is one inference outcome: the arg-max class and its
// probability.
type Diagnosis struct {
	Label      string  `json:"label"`
	Index      int     `json:"index"`
	Confidence float32 `json:"confidence"`
}

// Classifier pairs a loaded engine with the ordered class label list.
type Classifier struct {
	engine  Engine
	classes []string
}

// NewClassifier wraps an engine selected by the loader.
func NewClassifier(engine Engine, classes []string) *Classifier {
	return &Classifier{engine: engine, classes: classes}
}

// Classify decodes and preprocesses a scan image, invokes the engine,
// and picks the arg-max class.
func (c *Classifier) Classify(imageData []byte) (*Diagnosis, error) {
	input, err := Preprocess(imageData)
	if err != nil {
		return nil, err
	}

	probs, err := c.engine.Infer(input)
	if err != nil {
		return nil, err
	}
	if len(probs) == 0 {
		return nil, fmt.Errorf("classifier: model returned an empty probability vector")
	}

	maxIdx := 0
	maxVal := probs[0]
	for i, p := range probs {
		if p > maxVal {
			maxVal = p
			maxIdx = i
		}
	}

	label := fmt.Sprintf("Class %d", maxIdx)
	if maxIdx < len(c.classes) {
		label = c.classes[maxIdx]
	}

	return &Diagnosis{
		Label:      label,
		Index:      maxIdx,
		Confidence: clamp01(maxVal),
	}, nil
}

// Close releases the underlying engine.
func (c *Classifier) Close() error {
	return c.engine.Close()
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
