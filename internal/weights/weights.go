// Package weights loads the signal weight table and serves immutable snapshots
// of it to concurrent scoring passes.
package weights

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/example/woundrisk/internal/apperr"
	"github.com/example/woundrisk/internal/risk"
)

// Config is an immutable signal name to weight table. Missing names weigh 0.
type Config struct {
	values map[string]float64
	source string
}

type schema struct {
	Weights map[string]float64 `validate:"dive,keys,required,endkeys,gte=0"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// New validates values and returns a Config holding a private copy of them.
func New(values map[string]float64, source string) (*Config, error) {
	for name, w := range values {
		if math.IsInf(w, 0) || math.IsNaN(w) {
			return nil, apperr.Newf(apperr.KindConfig, "weight %q in %s is not a finite number", name, source)
		}
	}
	if err := validatorInstance().Struct(schema{Weights: values}); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, apperr.Newf(apperr.KindConfig, "invalid weight %s in %s: %s", verrs[0].Namespace(), source, verrs[0].Tag())
		}
		return nil, apperr.Wrap(err, apperr.KindConfig, "validate weights")
	}

	cp := make(map[string]float64, len(values))
	for k, v := range values {
		cp[k] = v
	}
	return &Config{values: cp, source: source}, nil
}

// Parse reads a flat YAML mapping of signal names to non-negative numbers.
// Only names the engine produces are checked; any other key is ignored
// whatever its value.
func Parse(data []byte, source string) (*Config, error) {
	var doc map[string]yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, apperr.Wrap(err, apperr.KindConfig, fmt.Sprintf("parse weights %s", source))
	}

	values := make(map[string]float64, len(doc))
	for _, name := range signalNames() {
		node, ok := doc[name]
		if !ok {
			continue
		}
		var w float64
		if node.Kind != yaml.ScalarNode {
			return nil, apperr.Newf(apperr.KindConfig, "weight %q in %s is not a number", name, source)
		}
		if err := node.Decode(&w); err != nil {
			return nil, apperr.Wrap(err, apperr.KindConfig, fmt.Sprintf("weight %q in %s", name, source))
		}
		values[name] = w
	}
	return New(values, source)
}

func signalNames() []string {
	return append(risk.ImageSignalNames(), risk.SymptomSignalNames()...)
}

// Load reads and parses the weight file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindConfig, "read weights file")
	}
	return Parse(data, path)
}

// Defaults is the built-in table used when no file is configured.
func Defaults() *Config {
	return &Config{
		source: "builtin",
		values: map[string]float64{
			risk.PeriwoundRedness:         0.35,
			risk.ExudateProxy:             0.25,
			risk.DarkTissueProxy:          0.25,
			risk.SwellingProxy:            0.15,
			risk.ReportedPain:             0.05,
			risk.ReportedWarmth:           0.05,
			risk.ReportedSwelling:         0.05,
			risk.ReportedDrainage:         0.1,
			risk.ReportedSpreadingRedness: 0.1,
		},
	}
}

// Weight returns the weight for name, or 0 when the table has no entry.
func (c *Config) Weight(name string) float64 {
	if c == nil {
		return 0
	}
	return c.values[name]
}

// Has reports whether name has an explicit entry.
func (c *Config) Has(name string) bool {
	if c == nil {
		return false
	}
	_, ok := c.values[name]
	return ok
}

// Names returns the configured names in sorted order.
func (c *Config) Names() []string {
	if c == nil {
		return nil
	}
	out := make([]string, 0, len(c.values))
	for k := range c.values {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Source describes where the table was loaded from.
func (c *Config) Source() string {
	if c == nil {
		return ""
	}
	return c.source
}

// Missing returns the signal names the engine produces that have no entry.
func (c *Config) Missing() []string {
	var out []string
	for _, name := range signalNames() {
		if !c.Has(name) {
			out = append(out, name)
		}
	}
	return out
}
