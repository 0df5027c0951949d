package bitmap

import "math"

// Equalize returns a histogram-equalized copy of the raster.  Values are
// remapped through the cumulative distribution so that the darkest
// occupied level maps to 0 and the brightest to 255.  A raster with a
// single luminance level is returned unchanged (as a copy).
func (r *Raster) Equalize() *Raster {
	out := r.Clone()
	if len(r.Pix) == 0 {
		return out
	}
	hist := r.histogram()

	var cdf [math.MaxUint8 + 1]int
	sum := 0
	for i, n := range hist {
		sum += n
		cdf[i] = sum
	}
	total := len(r.Pix)

	cdfMin := 0
	for _, c := range cdf {
		if c != 0 {
			cdfMin = c
			break
		}
	}
	denom := total - cdfMin
	if denom == 0 {
		return out
	}

	var lut [math.MaxUint8 + 1]uint8
	for v := range lut {
		n := math.Round(float64(cdf[v]-cdfMin) / float64(denom) * 255)
		lut[v] = uint8(max(0, min(255, n)))
	}
	for i, v := range r.Pix {
		out.Pix[i] = lut[v]
	}
	return out
}
