package cpu

import (
	"fmt"

	"github.com/gradviz-ml/gradviz/internal/tensor"
)

// Upsample2D resizes NCHW maps to (outH, outW) with bilinear interpolation.
// Sample positions follow the half-pixel convention, matching what image
// libraries do when scaling without corner alignment.
func (b *CPUBackend) Upsample2D(x *tensor.RawTensor, outH, outW int) *tensor.RawTensor {
	checkFloat32("upsample2d", x)

	shape := x.Shape()
	if len(shape) != 4 {
		panic(fmt.Sprintf("cpu: upsample2d: expected 4D input, got %v", shape))
	}
	if outH <= 0 || outW <= 0 {
		panic(fmt.Sprintf("cpu: upsample2d: invalid target size %dx%d", outH, outW))
	}

	n, c, h, w := shape[0], shape[1], shape[2], shape[3]
	out := newFloat32(tensor.Shape{n, c, outH, outW})
	xd, od := x.AsFloat32(), out.AsFloat32()

	scaleY := float64(h) / float64(outH)
	scaleX := float64(w) / float64(outW)

	for ni := 0; ni < n; ni++ {
		for ci := 0; ci < c; ci++ {
			plane := xd[(ni*c+ci)*h*w : (ni*c+ci+1)*h*w]
			oPlane := od[(ni*c+ci)*outH*outW : (ni*c+ci+1)*outH*outW]
			for oy := 0; oy < outH; oy++ {
				srcY := (float64(oy)+0.5)*scaleY - 0.5
				y0, fy := splitCoord(srcY, h)
				y1 := min(y0+1, h-1)
				for ox := 0; ox < outW; ox++ {
					srcX := (float64(ox)+0.5)*scaleX - 0.5
					x0, fx := splitCoord(srcX, w)
					x1 := min(x0+1, w-1)

					top := float64(plane[y0*w+x0])*(1-fx) + float64(plane[y0*w+x1])*fx
					bot := float64(plane[y1*w+x0])*(1-fx) + float64(plane[y1*w+x1])*fx
					oPlane[oy*outW+ox] = float32(top*(1-fy) + bot*fy)
				}
			}
		}
	}
	return out
}

// splitCoord clamps a source coordinate into [0, size-1] and returns the
// integer cell and the fractional weight toward the next cell.
func splitCoord(v float64, size int) (int, float64) {
	if v <= 0 {
		return 0, 0
	}
	if v >= float64(size-1) {
		return size - 1, 0
	}
	i := int(v)
	return i, v - float64(i)
}
