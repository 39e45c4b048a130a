package risk

// Signal is one named, weighted, normalized contribution to the score.
type Signal struct {
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	Weight float64 `json:"weight"`
	Note   string  `json:"note"`
}

// Contribution is the amount the signal adds to the raw score.
func (s Signal) Contribution() float64 {
	return s.Value * s.Weight
}

// WithWeight returns a copy of s carrying weight w.
func (s Signal) WithWeight(w float64) Signal {
	s.Weight = w
	return s
}

// Assessment is the externally visible result of one request.
type Assessment struct {
	RiskScore            float64  `json:"risk_score"`
	RiskLevel            Level    `json:"risk_level"`
	Signals              []Signal `json:"signals"`
	Explanation          string   `json:"explanation"`
	Disclaimer           string   `json:"disclaimer"`
	RecommendedNextSteps []string `json:"recommended_next_steps"`
}

// Symptoms are the self-reported flags accepted with an image.
type Symptoms struct {
	Pain             bool
	Warmth           bool
	Swelling         bool
	Drainage         bool
	SpreadingRedness bool
}

// SymptomsFromFlags builds Symptoms from named fields. Unknown names are ignored.
func SymptomsFromFlags(flags map[string]bool) Symptoms {
	return Symptoms{
		Pain:             flags[ReportedPain],
		Warmth:           flags[ReportedWarmth],
		Swelling:         flags[ReportedSwelling],
		Drainage:         flags[ReportedDrainage],
		SpreadingRedness: flags[ReportedSpreadingRedness],
	}
}

// Flags returns the symptom values keyed by field name.
func (s Symptoms) Flags() map[string]bool {
	return map[string]bool{
		ReportedPain:             s.Pain,
		ReportedWarmth:           s.Warmth,
		ReportedSwelling:         s.Swelling,
		ReportedDrainage:         s.Drainage,
		ReportedSpreadingRedness: s.SpreadingRedness,
	}
}

// AllSymptoms has every flag set.
func AllSymptoms() Symptoms {
	return Symptoms{Pain: true, Warmth: true, Swelling: true, Drainage: true, SpreadingRedness: true}
}
