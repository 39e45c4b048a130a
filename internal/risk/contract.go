// Package risk holds the response contract shared by the server pipeline and
// every client-side fallback: field names, level thresholds, signal names and
// the disclaimer. Implementations must import these values rather than copy them.
package risk

import (
	"math"
	"strings"
)

// ContractVersion is bumped whenever a value in this file changes.
const ContractVersion = "1.0.0"

// Level cut points. A score equal to a cut point belongs to the higher bucket.
const (
	HighThreshold   = 0.66
	MediumThreshold = 0.33
)

// Disclaimer is attached to every assessment verbatim.
const Disclaimer = "This output is a non-diagnostic risk estimation for triage support only. " +
	"It cannot diagnose infection and should not replace clinical evaluation."

// Level is the categorical bucket of a risk score.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// LevelFor maps a score onto its bucket using the shared thresholds.
func LevelFor(score float64) Level {
	switch {
	case score >= HighThreshold:
		return LevelHigh
	case score >= MediumThreshold:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Image signal names, in declaration order.
const (
	PeriwoundRedness = "periwound_redness"
	ExudateProxy     = "exudate_proxy"
	DarkTissueProxy  = "dark_tissue_proxy"
	SwellingProxy    = "swelling_proxy"
)

// Symptom signal names, in declaration order. They double as the request field names.
const (
	ReportedPain             = "reported_pain"
	ReportedWarmth           = "reported_warmth"
	ReportedSwelling         = "reported_swelling"
	ReportedDrainage         = "reported_drainage"
	ReportedSpreadingRedness = "reported_spreading_redness"
)

// ImageSignalNames lists the extractor outputs in declaration order.
func ImageSignalNames() []string {
	return []string{PeriwoundRedness, ExudateProxy, DarkTissueProxy, SwellingProxy}
}

// SymptomSignalNames lists the symptom flags in declaration order.
func SymptomSignalNames() []string {
	return []string{ReportedPain, ReportedWarmth, ReportedSwelling, ReportedDrainage, ReportedSpreadingRedness}
}

// Label turns a snake_case signal name into space separated words.
func Label(name string) string {
	return strings.Join(strings.FieldsFunc(name, func(r rune) bool { return r == '_' }), " ")
}

// Clamp01 bounds v to [0,1]. NaN maps to 0.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 1 {
		return 1
	}
	return v
}

// Document is the language-neutral rendering of this contract.
type Document struct {
	Version        string             `json:"version"`
	Thresholds     map[string]float64 `json:"thresholds"`
	Levels         []Level            `json:"levels"`
	Fields         []string           `json:"fields"`
	SignalFields   []string           `json:"signal_fields"`
	ImageSignals   []string           `json:"image_signals"`
	SymptomSignals []string           `json:"symptom_signals"`
	Disclaimer     string             `json:"disclaimer"`
}

// Contract returns the current contract document.
func Contract() Document {
	return Document{
		Version: ContractVersion,
		Thresholds: map[string]float64{
			string(LevelHigh):   HighThreshold,
			string(LevelMedium): MediumThreshold,
		},
		Levels:         []Level{LevelLow, LevelMedium, LevelHigh},
		Fields:         []string{"risk_score", "risk_level", "signals", "explanation", "disclaimer", "recommended_next_steps"},
		SignalFields:   []string{"name", "value", "weight", "note"},
		ImageSignals:   ImageSignalNames(),
		SymptomSignals: SymptomSignalNames(),
		Disclaimer:     Disclaimer,
	}
}
