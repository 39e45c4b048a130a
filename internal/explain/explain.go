// Package explain renders the explanation text and next-step guidance for an
// assessment. Guidance is looked up from a fixed table, never computed.
package explain

import (
	"fmt"
	"strings"

	"github.com/example/woundrisk/internal/risk"
)

// MaxNamed bounds how many top contributors the explanation names.
const MaxNamed = 2

const closing = "This is a triage support estimate, not a diagnosis."

var nextSteps = map[risk.Level][]string{
	risk.LevelHigh: {
		"Consider scheduling a clinical check if symptoms persist or worsen.",
		"Monitor for changes such as increasing redness, swelling, or drainage.",
	},
	risk.LevelMedium: {
		"Continue monitoring and recheck if the appearance changes.",
		"Seek clinical advice if you are concerned about progression.",
	},
	risk.LevelLow: {
		"Keep monitoring for noticeable changes over time.",
		"If you have concerns, seek clinical guidance.",
	},
}

// Visual cue thresholds on raw signal values.
var visualCues = []struct {
	name      string
	threshold float64
	phrase    string
}{
	{risk.PeriwoundRedness, 0.35, "notable redness around the wound edges"},
	{risk.ExudateProxy, 0.25, "yellow/green drainage or pus-like coloration"},
	{risk.DarkTissueProxy, 0.2, "darkened tissue inside the wound"},
	{risk.SwellingProxy, 0.2, "edge texture changes consistent with swelling"},
}

var symptomPhrases = map[string]string{
	risk.ReportedPain:             "pain or tenderness",
	risk.ReportedWarmth:           "warmth around the wound",
	risk.ReportedSwelling:         "swelling",
	risk.ReportedDrainage:         "drainage/pus",
	risk.ReportedSpreadingRedness: "spreading redness",
}

// NextSteps returns the guidance for level. Unknown levels get the low-risk guidance.
func NextSteps(level risk.Level) []string {
	steps, ok := nextSteps[level]
	if !ok {
		steps = nextSteps[risk.LevelLow]
	}
	out := make([]string, len(steps))
	copy(out, steps)
	return out
}

// Generate builds the explanation for signals already ranked by contribution.
func Generate(level risk.Level, ranked []risk.Signal) (string, []string) {
	parts := []string{
		fmt.Sprintf("Estimated risk level: %s.", level),
		topContributors(ranked),
		visualSummary(ranked),
		symptomSummary(ranked),
		closing,
	}
	return strings.Join(parts, " "), NextSteps(level)
}

func topContributors(ranked []risk.Signal) string {
	var labels []string
	for _, s := range ranked {
		if len(labels) == MaxNamed {
			break
		}
		if s.Contribution() <= 0 {
			break
		}
		labels = append(labels, risk.Label(s.Name))
	}
	switch len(labels) {
	case 0:
		return "No signal contributed to the score."
	case 1:
		return fmt.Sprintf("The top contributing signal is %s.", labels[0])
	default:
		return fmt.Sprintf("The top contributing signals are %s.", strings.Join(labels, ", followed by "))
	}
}

func visualSummary(signals []risk.Signal) string {
	values := make(map[string]float64, len(signals))
	for _, s := range signals {
		values[s.Name] = s.Value
	}
	var cues []string
	for _, cue := range visualCues {
		if values[cue.name] >= cue.threshold {
			cues = append(cues, cue.phrase)
		}
	}
	if len(cues) == 0 {
		return "No strong visual cues like redness, drainage, or swelling were detected."
	}
	return fmt.Sprintf("Visual cues suggest %s.", strings.Join(cues, ", "))
}

func symptomSummary(signals []risk.Signal) string {
	reported := map[string]bool{}
	for _, s := range signals {
		if _, ok := symptomPhrases[s.Name]; ok && s.Value > 0.5 {
			reported[s.Name] = true
		}
	}
	var cues []string
	for _, name := range risk.SymptomSignalNames() {
		if reported[name] {
			cues = append(cues, symptomPhrases[name])
		}
	}
	if len(cues) == 0 {
		return "No concerning symptoms were reported in the questionnaire."
	}
	return fmt.Sprintf("Reported symptoms include %s.", strings.Join(cues, ", "))
}
