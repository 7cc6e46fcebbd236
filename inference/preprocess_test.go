package inference

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreprocessShapeAndRange(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 317, 211))
	for y := 0; y < 211; y++ {
		for x := 0; x < 317; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: uint8(x + y), A: 255})
		}
	}

	tensor := Preprocess(img)
	require.Len(t, tensor.Data, InputSize*InputSize*3)
	for _, v := range tensor.Data {
		assert.GreaterOrEqual(t, v, float32(-1))
		assert.LessOrEqual(t, v, float32(1))
	}

	nested := tensor.Nested()
	require.Len(t, nested, InputSize)
	require.Len(t, nested[0], InputSize)
	require.Len(t, nested[0][0], 3)
	assert.Equal(t, tensor.At(5, 7, 2), nested[5][7][2])
}

func TestPreprocessScaling(t *testing.T) {
	black := image.NewGray(image.Rect(0, 0, 10, 10))
	tensor := Preprocess(black)
	assert.InDelta(t, -1.0, tensor.At(0, 0, 0), 1e-6)

	img := image.NewGray(image.Rect(0, 0, 10, 10))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	tensor = Preprocess(img)
	assert.InDelta(t, 1.0, tensor.At(InputSize-1, InputSize-1, 1), 1e-6)
}
