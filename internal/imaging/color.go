package imaging

// HSV converts an 8-bit RGB triple to hue in degrees [0,360) and saturation and
// value on a 0..255 scale.
func HSV(r, g, b uint8) (h, s, v float64) {
	rf, gf, bf := float64(r), float64(g), float64(b)
	maxc := max(rf, gf, bf)
	minc := min(rf, gf, bf)
	delta := maxc - minc

	v = maxc
	if maxc == 0 {
		return 0, 0, v
	}
	s = delta / maxc * 255
	if delta == 0 {
		return 0, s, v
	}

	switch maxc {
	case rf:
		h = 60 * (gf - bf) / delta
	case gf:
		h = 60*(bf-rf)/delta + 120
	default:
		h = 60*(rf-gf)/delta + 240
	}
	if h < 0 {
		h += 360
	}
	return h, s, v
}

// Luma is the Rec.601 luminance on a 0..255 scale.
func Luma(r, g, b uint8) float64 {
	return 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
}

// LumaPlane returns the luminance of every pixel in buf.
func LumaPlane(buf *PixelBuffer) []float64 {
	out := make([]float64, buf.Area())
	for i := range out {
		out[i] = Luma(buf.RGB(i))
	}
	return out
}
