// Package signals computes the normalized image signals and the symptom
// contributions that feed the score. Every extractor is a pure function of the
// pixel buffer and the region masks.
package signals

import (
	"fmt"
	"math"

	"github.com/example/woundrisk/internal/imaging"
	"github.com/example/woundrisk/internal/risk"
	"github.com/example/woundrisk/internal/segment"
)

// InsufficientRegionNote marks a signal computed over an empty region.
const InsufficientRegionNote = "insufficient region data"

// Colour and edge thresholds. Hue is in degrees, saturation, value and luma on 0..255.
const (
	redHueLow       = 20
	redHueHigh      = 320
	redSatMin       = 80
	exudateHueLow   = 40
	exudateHueHigh  = 180
	exudateSatMin   = 60
	exudateValMin   = 80
	darkLumaMax     = 40
	darkContrastMin = 30
	edgeMagnitude   = 120
)

// Saturating ceilings: ratios at or above the ceiling map to 1.
const (
	rednessCeiling  = 0.6
	exudateCeiling  = 1.0
	darkCeiling     = 1.0
	swellingCeiling = 0.5
)

// Extractor is a named pure function producing one image signal.
type Extractor struct {
	Name    string
	Extract func(buf *imaging.PixelBuffer, masks *segment.Masks) risk.Signal
}

// Extractors returns the image extractors in declaration order.
func Extractors() []Extractor {
	return []Extractor{
		{Name: risk.PeriwoundRedness, Extract: PeriwoundRedness},
		{Name: risk.ExudateProxy, Extract: ExudateProxy},
		{Name: risk.DarkTissueProxy, Extract: DarkTissueProxy},
		{Name: risk.SwellingProxy, Extract: SwellingProxy},
	}
}

// IsRedHue reports whether the pixel falls in the inflamed-skin red band.
func IsRedHue(r, g, b uint8) bool {
	h, s, _ := imaging.HSV(r, g, b)
	return (h < redHueLow || h > redHueHigh) && s > redSatMin
}

// PeriwoundRedness is the share of ring pixels in the red band.
func PeriwoundRedness(buf *imaging.PixelBuffer, masks *segment.Masks) risk.Signal {
	return ratioSignal(risk.PeriwoundRedness, buf, masks, segment.Periwound, rednessCeiling,
		func(i int) bool { return IsRedHue(buf.RGB(i)) })
}

// ExudateProxy is the share of bright yellow/green wound pixels.
func ExudateProxy(buf *imaging.PixelBuffer, masks *segment.Masks) risk.Signal {
	return ratioSignal(risk.ExudateProxy, buf, masks, segment.Wound, exudateCeiling, func(i int) bool {
		h, s, v := imaging.HSV(buf.RGB(i))
		return h > exudateHueLow && h < exudateHueHigh && s > exudateSatMin && v > exudateValMin
	})
}

// DarkTissueProxy is the share of wound pixels below the luminance threshold
// that are also clearly darker than the surrounding non-wound pixels. Without
// any non-wound pixels only the absolute threshold applies.
func DarkTissueProxy(buf *imaging.PixelBuffer, masks *segment.Masks) risk.Signal {
	reference, ok := meanLuma(buf, masks, segment.Periwound, segment.Background)
	return ratioSignal(risk.DarkTissueProxy, buf, masks, segment.Wound, darkCeiling, func(i int) bool {
		y := imaging.Luma(buf.RGB(i))
		if y >= darkLumaMax {
			return false
		}
		return !ok || reference-y >= darkContrastMin
	})
}

// SwellingProxy is the share of ring pixels lying on a luminance edge.
func SwellingProxy(buf *imaging.PixelBuffer, masks *segment.Masks) risk.Signal {
	if masks.Count(segment.Periwound) == 0 {
		return insufficient(risk.SwellingProxy)
	}
	luma := imaging.LumaPlane(buf)
	return ratioSignal(risk.SwellingProxy, buf, masks, segment.Periwound, swellingCeiling, func(i int) bool {
		return sobelL1(luma, buf.Width, buf.Height, i%buf.Width, i/buf.Width) >= edgeMagnitude
	})
}

func ratioSignal(name string, buf *imaging.PixelBuffer, masks *segment.Masks, region segment.Region,
	ceiling float64, match func(i int) bool) risk.Signal {
	total := masks.Count(region)
	if total == 0 || buf.Area() == 0 {
		return insufficient(name)
	}
	hits := 0
	masks.ForEach(region, func(i int) {
		if match(i) {
			hits++
		}
	})
	value := risk.Clamp01(float64(hits) / float64(total) / ceiling)
	return risk.Signal{Name: name, Value: value, Note: Note(name, value)}
}

func insufficient(name string) risk.Signal {
	return risk.Signal{Name: name, Value: 0, Note: InsufficientRegionNote}
}

func meanLuma(buf *imaging.PixelBuffer, masks *segment.Masks, regions ...segment.Region) (float64, bool) {
	var sum float64
	n := 0
	for _, r := range regions {
		masks.ForEach(r, func(i int) {
			sum += imaging.Luma(buf.RGB(i))
			n++
		})
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// sobelL1 is |Gx|+|Gy| of the 3x3 Sobel operator with replicated borders.
func sobelL1(luma []float64, w, h, x, y int) float64 {
	at := func(dx, dy int) float64 {
		cx := min(max(x+dx, 0), w-1)
		cy := min(max(y+dy, 0), h-1)
		return luma[cy*w+cx]
	}
	gx := at(1, -1) + 2*at(1, 0) + at(1, 1) - at(-1, -1) - 2*at(-1, 0) - at(-1, 1)
	gy := at(-1, 1) + 2*at(0, 1) + at(1, 1) - at(-1, -1) - 2*at(0, -1) - at(1, -1)
	return math.Abs(gx) + math.Abs(gy)
}

var notes = map[string]string{
	risk.PeriwoundRedness:         "Higher redness near the wound boundary may be associated with irritation.",
	risk.ExudateProxy:             "Yellow/green coloration can be a proxy for exudate-like appearance.",
	risk.DarkTissueProxy:          "Darker regions may indicate non-viable tissue presence.",
	risk.SwellingProxy:            "Edge sharpness can be a proxy for localized swelling cues.",
	risk.ReportedPain:             "Pain or tenderness near the wound can be a reported symptom of irritation.",
	risk.ReportedWarmth:           "A warm or hot sensation around the wound can indicate inflammation.",
	risk.ReportedSwelling:         "Swelling around the wound can be a sign of irritation or inflammation.",
	risk.ReportedDrainage:         "Drainage or pus-like fluid can be a reported sign of infection.",
	risk.ReportedSpreadingRedness: "Redness spreading beyond the wound may indicate inflammation.",
}

// Note renders the rationale attached to a signal.
func Note(name string, value float64) string {
	base, ok := notes[name]
	if !ok {
		base = "Signal observed in the image."
	}
	return fmt.Sprintf("%s Signal intensity: %.2f.", base, value)
}
