package segment

// dilate grows mask by a square structuring element of the given radius.
// Rows and columns are processed separately with running counts, so the cost
// does not depend on the radius.
func dilate(mask []bool, w, h, radius int) []bool {
	out := make([]bool, len(mask))
	if radius <= 0 {
		copy(out, mask)
		return out
	}

	prefix := make([]int, max(w, h)+1)
	horiz := make([]bool, len(mask))
	for y := 0; y < h; y++ {
		row := y * w
		for x := 0; x < w; x++ {
			prefix[x+1] = prefix[x] + btoi(mask[row+x])
		}
		for x := 0; x < w; x++ {
			lo, hi := max(0, x-radius), min(w, x+radius+1)
			horiz[row+x] = prefix[hi]-prefix[lo] > 0
		}
	}

	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			prefix[y+1] = prefix[y] + btoi(horiz[y*w+x])
		}
		for y := 0; y < h; y++ {
			lo, hi := max(0, y-radius), min(h, y+radius+1)
			out[y*w+x] = prefix[hi]-prefix[lo] > 0
		}
	}
	return out
}

// erode shrinks mask by a square structuring element. Pixels outside the
// grid count as set, so the border does not eat into the mask.
func erode(mask []bool, w, h, radius int) []bool {
	return invert(dilate(invert(mask), w, h, radius))
}

// closeMask fills gaps narrower than the radius.
func closeMask(mask []bool, w, h, radius int) []bool {
	if radius <= 0 {
		return mask
	}
	return erode(dilate(mask, w, h, radius), w, h, radius)
}

func invert(mask []bool) []bool {
	out := make([]bool, len(mask))
	for i, v := range mask {
		out[i] = !v
	}
	return out
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}
