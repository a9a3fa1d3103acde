package classifier

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
)

// Fixed input contract of the classifier artifact.
const (
	inputSize     = 224
	inputChannels = 3
)

// Preprocess decodes a scan image and converts it into the flattened
// HWC float tensor the model expects, with channel values scaled to [0,1].
func Preprocess(imageData []byte) ([]float32, error) {
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}

	resized := resize.Resize(inputSize, inputSize, img, resize.Lanczos3)

	input := make([]float32, inputSize*inputSize*inputChannels)
	for y := 0; y < inputSize; y++ {
		for x := 0; x < inputSize; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()
			base := (y*inputSize + x) * inputChannels
			input[base] = float32(r>>8) / 255.0
			input[base+1] = float32(g>>8) / 255.0
			input[base+2] = float32(b>>8) / 255.0
		}
	}
	return input, nil
}
