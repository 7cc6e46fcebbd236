package inference

import (
	"image"

	"golang.org/x/image/draw"
)

// Tensor is a single HWC float image of InputSize x InputSize x 3, row-major.
type Tensor struct {
	Data []float32
}

// At returns the value at row y, column x, channel ch.
func (t Tensor) At(y, x, ch int) float32 {
	return t.Data[(y*InputSize+x)*3+ch]
}

// Nested reshapes the tensor to [height][width][channel].
func (t Tensor) Nested() [][][]float32 {
	out := make([][][]float32, InputSize)
	for y := range out {
		out[y] = make([][]float32, InputSize)
		for x := range out[y] {
			i := (y*InputSize + x) * 3
			out[y][x] = t.Data[i : i+3 : i+3]
		}
	}
	return out
}

// Preprocess resizes img to InputSize x InputSize with nearest-neighbour sampling,
// drops alpha and scales each RGB channel from [0, 255] to [-1, 1].
func Preprocess(img image.Image) Tensor {
	dst := image.NewRGBA(image.Rect(0, 0, InputSize, InputSize))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	data := make([]float32, InputSize*InputSize*3)
	for y := 0; y < InputSize; y++ {
		for x := 0; x < InputSize; x++ {
			p := dst.PixOffset(x, y)
			i := (y*InputSize + x) * 3
			data[i] = scale(dst.Pix[p])
			data[i+1] = scale(dst.Pix[p+1])
			data[i+2] = scale(dst.Pix[p+2])
		}
	}
	return Tensor{Data: data}
}

func scale(v uint8) float32 {
	return float32(v)/127.5 - 1
}
