// Package segment splits a pixel buffer into wound, periwound ring and
// background regions.
//
// Every pixel carries exactly one region label, so the three masks partition
// the grid by construction. When no clear foreground is found the wound falls
// back to the centred rectangle spanning the middle half of each axis.
package segment

import (
	"github.com/example/woundrisk/internal/apperr"
	"github.com/example/woundrisk/internal/imaging"
)

// Region labels a pixel.
type Region uint8

const (
	Background Region = iota
	Wound
	Periwound
)

func (r Region) String() string {
	switch r {
	case Wound:
		return "wound"
	case Periwound:
		return "periwound"
	default:
		return "background"
	}
}

// Options tunes the segmenter.
type Options struct {
	// RingWidth is the dilation radius, in pixels, of the periwound band.
	RingWidth int
	// CloseRadius is the radius of the morphological closing applied to the wound candidates.
	CloseRadius int
	// MinSaturation and MinValue are absolute floors applied on top of the Otsu split.
	MinSaturation float64
	MinValue      float64
	// MinWoundFraction and MaxWoundFraction bound a plausible foreground; outside
	// them the centred fallback is used.
	MinWoundFraction float64
	MaxWoundFraction float64
}

// DefaultOptions returns the production segmentation parameters.
func DefaultOptions() Options {
	return Options{
		RingWidth:        12,
		CloseRadius:      1,
		MinSaturation:    50,
		MinValue:         40,
		MinWoundFraction: 0.002,
		MaxWoundFraction: 0.95,
	}
}

// Masks holds the region label of every pixel of one buffer.
type Masks struct {
	Width    int
	Height   int
	labels   []Region
	counts   [3]int
	fallback bool
}

// At returns the region of pixel (x, y).
func (m *Masks) At(x, y int) Region {
	return m.labels[y*m.Width+x]
}

// Label returns the region of pixel index i.
func (m *Masks) Label(i int) Region {
	return m.labels[i]
}

// Count returns the number of pixels in region r.
func (m *Masks) Count(r Region) int {
	if int(r) >= len(m.counts) {
		return 0
	}
	return m.counts[r]
}

// Fallback reports whether the wound region is the centred default rectangle.
func (m *Masks) Fallback() bool { return m.fallback }

// ForEach calls fn with the index of every pixel in region r, in row-major order.
func (m *Masks) ForEach(r Region, fn func(i int)) {
	for i, l := range m.labels {
		if l == r {
			fn(i)
		}
	}
}

// Mask returns a read-only membership view of region r.
func (m *Masks) Mask(r Region) RegionMask {
	return RegionMask{masks: m, region: r}
}

// RegionMask is a membership function over pixel coordinates.
type RegionMask struct {
	masks  *Masks
	region Region
}

// Contains reports whether (x, y) belongs to the region.
func (rm RegionMask) Contains(x, y int) bool {
	if x < 0 || y < 0 || x >= rm.masks.Width || y >= rm.masks.Height {
		return false
	}
	return rm.masks.At(x, y) == rm.region
}

// Count returns the number of pixels in the region.
func (rm RegionMask) Count() int {
	return rm.masks.Count(rm.region)
}

// FromLabels builds masks from an explicit per-pixel labelling.
func FromLabels(w, h int, labels []Region) (*Masks, error) {
	if w <= 0 || h <= 0 {
		return nil, apperr.New(apperr.KindSegmentation, "label grid has zero area")
	}
	if len(labels) != w*h {
		return nil, apperr.Newf(apperr.KindSegmentation, "got %d labels for a %dx%d grid", len(labels), w, h)
	}
	m := &Masks{Width: w, Height: h, labels: make([]Region, len(labels))}
	for i, l := range labels {
		if l > Periwound {
			return nil, apperr.Newf(apperr.KindSegmentation, "unknown region label %d", l)
		}
		m.labels[i] = l
		m.counts[l]++
	}
	return m, nil
}

// Segment labels every pixel of buf.
func Segment(buf *imaging.PixelBuffer, opts Options) (*Masks, error) {
	if buf.Area() == 0 || len(buf.Pix) < 4*buf.Area() {
		return nil, apperr.New(apperr.KindSegmentation, "pixel buffer has zero area")
	}
	w, h := buf.Width, buf.Height
	area := w * h

	wound := woundCandidates(buf, opts)
	wound = closeMask(wound, w, h, opts.CloseRadius)

	n := countTrue(wound)
	fallback := false
	if frac := float64(n) / float64(area); n == 0 || frac < opts.MinWoundFraction || frac > opts.MaxWoundFraction {
		wound = centredRect(w, h)
		fallback = true
	}

	ring := dilate(wound, w, h, opts.RingWidth)

	m := &Masks{Width: w, Height: h, labels: make([]Region, area), fallback: fallback}
	for i := range m.labels {
		switch {
		case wound[i]:
			m.labels[i] = Wound
		case ring[i]:
			m.labels[i] = Periwound
		default:
			m.labels[i] = Background
		}
		m.counts[m.labels[i]]++
	}
	return m, nil
}

// woundCandidates marks warm-hued pixels whose saturation clears the Otsu
// threshold of the saturation histogram.
func woundCandidates(buf *imaging.PixelBuffer, opts Options) []bool {
	area := buf.Area()
	sat := make([]uint8, area)
	warm := make([]bool, area)
	var hist [256]int
	for i := 0; i < area; i++ {
		h, s, v := imaging.HSV(buf.RGB(i))
		sat[i] = uint8(s + 0.5)
		hist[sat[i]]++
		warm[i] = (h <= 70 || h >= 300) && v >= opts.MinValue
	}

	threshold := otsu(hist, area)
	out := make([]bool, area)
	for i := range out {
		s := sat[i]
		out[i] = warm[i] && int(s) > threshold && float64(s) >= opts.MinSaturation
	}
	return out
}

// otsu returns the histogram bin that maximises between-class variance.
// A single-valued histogram yields its only populated bin.
func otsu(hist [256]int, total int) int {
	var sum float64
	for i, c := range hist {
		sum += float64(i * c)
	}

	var sumB, best float64
	weightB, threshold := 0, 0
	for i, c := range hist {
		weightB += c
		if weightB == 0 {
			continue
		}
		weightF := total - weightB
		if weightF == 0 {
			if best == 0 {
				threshold = i
			}
			break
		}
		sumB += float64(i * c)
		meanB := sumB / float64(weightB)
		meanF := (sum - sumB) / float64(weightF)
		between := float64(weightB) * float64(weightF) * (meanB - meanF) * (meanB - meanF)
		if between > best {
			best = between
			threshold = i
		}
	}
	return threshold
}

func centredRect(w, h int) []bool {
	out := make([]bool, w*h)
	x0, x1 := w/4, w-w/4
	y0, y1 := h/4, h-h/4
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			out[y*w+x] = true
		}
	}
	return out
}

func countTrue(mask []bool) int {
	n := 0
	for _, v := range mask {
		if v {
			n++
		}
	}
	return n
}
