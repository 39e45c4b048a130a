package signals

import "github.com/example/woundrisk/internal/risk"

// Symptoms maps the reported flags onto signals. Every flag is always present,
// with value 1 when reported and 0 otherwise, in declaration order.
func Symptoms(s risk.Symptoms) []risk.Signal {
	flags := s.Flags()
	names := risk.SymptomSignalNames()
	out := make([]risk.Signal, 0, len(names))
	for _, name := range names {
		value := 0.0
		if flags[name] {
			value = 1
		}
		out = append(out, risk.Signal{Name: name, Value: value, Note: Note(name, value)})
	}
	return out
}
