package signals

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/example/woundrisk/internal/imaging"
	"github.com/example/woundrisk/internal/risk"
	"github.com/example/woundrisk/internal/segment"
)

const eps = 1e-9

// grid builds a 10x10 buffer and masks from per-pixel colour and label functions.
func grid(t *testing.T, paint func(x, y int) color.RGBA, label func(x, y int) segment.Region) (*imaging.PixelBuffer, *segment.Masks) {
	t.Helper()
	const size = 10
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	labels := make([]segment.Region, 0, size*size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.SetRGBA(x, y, paint(x, y))
			labels = append(labels, label(x, y))
		}
	}
	masks, err := segment.FromLabels(size, size, labels)
	if err != nil {
		t.Fatalf("failed to build masks: %v", err)
	}
	return imaging.FromImage(img, 0), masks
}

func fill(c color.RGBA) func(x, y int) color.RGBA {
	return func(int, int) color.RGBA { return c }
}

func topRing(x, y int) segment.Region {
	if y < 5 {
		return segment.Periwound
	}
	return segment.Wound
}

var (
	black  = color.RGBA{A: 255}
	white  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	red    = color.RGBA{R: 200, G: 30, B: 30, A: 255}
	yellow = color.RGBA{R: 240, G: 200, B: 20, A: 255}
	skin   = color.RGBA{R: 225, G: 200, B: 185, A: 255}
)

func assertValue(t *testing.T, s risk.Signal, name string, want float64) {
	t.Helper()
	if s.Name != name {
		t.Fatalf("expected signal %s, got %s", name, s.Name)
	}
	if math.Abs(s.Value-want) > eps {
		t.Fatalf("%s: expected value %v, got %v", name, want, s.Value)
	}
	if s.Weight != 0 {
		t.Fatalf("%s: extractors must not assign weights", name)
	}
}

func TestPeriwoundRedness(t *testing.T) {
	buf, masks := grid(t, func(x, y int) color.RGBA {
		if y < 2 {
			return red
		}
		return skin
	}, topRing)
	assertValue(t, PeriwoundRedness(buf, masks), risk.PeriwoundRedness, 0.4/rednessCeiling)

	buf, masks = grid(t, fill(red), topRing)
	assertValue(t, PeriwoundRedness(buf, masks), risk.PeriwoundRedness, 1)
}

func TestExudateProxy(t *testing.T) {
	buf, masks := grid(t, func(x, y int) color.RGBA {
		if x < 5 {
			return yellow
		}
		return red
	}, topRing)
	assertValue(t, ExudateProxy(buf, masks), risk.ExudateProxy, 0.5)
}

func TestDarkTissueProxyNeedsContrast(t *testing.T) {
	buf, masks := grid(t, func(x, y int) color.RGBA {
		if y >= 5 {
			return black
		}
		return white
	}, topRing)
	assertValue(t, DarkTissueProxy(buf, masks), risk.DarkTissueProxy, 1)

	buf, masks = grid(t, fill(black), topRing)
	assertValue(t, DarkTissueProxy(buf, masks), risk.DarkTissueProxy, 0)

	allWound := func(int, int) segment.Region { return segment.Wound }
	buf, masks = grid(t, fill(black), allWound)
	assertValue(t, DarkTissueProxy(buf, masks), risk.DarkTissueProxy, 1)
}

func TestSwellingProxyCountsEdges(t *testing.T) {
	buf, masks := grid(t, func(x, y int) color.RGBA {
		if x < 5 {
			return black
		}
		return white
	}, func(int, int) segment.Region { return segment.Periwound })
	assertValue(t, SwellingProxy(buf, masks), risk.SwellingProxy, 0.2/swellingCeiling)

	buf, masks = grid(t, fill(skin), func(int, int) segment.Region { return segment.Periwound })
	assertValue(t, SwellingProxy(buf, masks), risk.SwellingProxy, 0)
}

func TestEmptyRegionsDegradeToZero(t *testing.T) {
	buf, masks := grid(t, fill(red), func(int, int) segment.Region { return segment.Background })
	for _, ex := range Extractors() {
		s := ex.Extract(buf, masks)
		if s.Name != ex.Name {
			t.Fatalf("extractor %s produced signal %s", ex.Name, s.Name)
		}
		if s.Value != 0 || s.Note != InsufficientRegionNote {
			t.Fatalf("%s: expected insufficient region signal, got %+v", ex.Name, s)
		}
	}
}

func TestBlackImageYieldsZeroSignals(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	buf := imaging.FromImage(img, 0)
	masks, err := segment.Segment(buf, segment.DefaultOptions())
	if err != nil {
		t.Fatalf("segment: %v", err)
	}
	for _, ex := range Extractors() {
		if s := ex.Extract(buf, masks); s.Value != 0 {
			t.Fatalf("%s: expected 0 on a black frame, got %v", ex.Name, s.Value)
		}
	}
}

func TestExtractorsDeclarationOrder(t *testing.T) {
	want := risk.ImageSignalNames()
	got := Extractors()
	if len(got) != len(want) {
		t.Fatalf("expected %d extractors, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].Name != want[i] {
			t.Fatalf("extractor %d is %s, want %s", i, got[i].Name, want[i])
		}
	}
}

func TestSymptomsAlwaysPresent(t *testing.T) {
	out := Symptoms(risk.Symptoms{Warmth: true, SpreadingRedness: true})
	names := risk.SymptomSignalNames()
	if len(out) != len(names) {
		t.Fatalf("expected %d symptom signals, got %d", len(names), len(out))
	}
	want := map[string]float64{risk.ReportedWarmth: 1, risk.ReportedSpreadingRedness: 1}
	for i, s := range out {
		if s.Name != names[i] {
			t.Fatalf("signal %d is %s, want %s", i, s.Name, names[i])
		}
		if s.Value != want[s.Name] {
			t.Fatalf("%s: expected value %v, got %v", s.Name, want[s.Name], s.Value)
		}
	}
}

func TestNoteIncludesIntensity(t *testing.T) {
	if got := Note(risk.ExudateProxy, 0.256); got != "Yellow/green coloration can be a proxy for exudate-like appearance. Signal intensity: 0.26." {
		t.Fatalf("unexpected note %q", got)
	}
	if got := Note("unknown_signal", 1); got != "Signal observed in the image. Signal intensity: 1.00." {
		t.Fatalf("unexpected note %q", got)
	}
}
