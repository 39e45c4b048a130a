package weights

import (
	"sync/atomic"

	"github.com/example/woundrisk/internal/apperr"
)

// Store holds the active Config. Readers take one Snapshot per scoring pass;
// Reload replaces it atomically so no pass sees a mix of old and new weights.
type Store struct {
	path    string
	current atomic.Pointer[Config]
}

// NewStore loads path and returns a Store serving it. When the load fails the
// returned Store is still usable but not Ready until a Reload succeeds.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path}
	cfg, err := Load(path)
	if err != nil {
		return s, err
	}
	s.current.Store(cfg)
	return s, nil
}

// NewStaticStore serves cfg without a backing file.
func NewStaticStore(cfg *Config) *Store {
	s := &Store{}
	s.current.Store(cfg)
	return s
}

// Snapshot returns the active Config.
func (s *Store) Snapshot() *Config {
	if s == nil {
		return nil
	}
	return s.current.Load()
}

// Ready reports whether a Config is loaded.
func (s *Store) Ready() bool {
	return s.Snapshot() != nil
}

// Path returns the backing file, empty for static stores.
func (s *Store) Path() string {
	return s.path
}

// Reload re-reads the backing file. On failure the active Config is kept.
func (s *Store) Reload() (*Config, error) {
	if s.path == "" {
		return nil, apperr.New(apperr.KindConfig, "weights store has no backing file")
	}
	cfg, err := Load(s.path)
	if err != nil {
		return nil, err
	}
	s.current.Store(cfg)
	return cfg, nil
}

// Swap installs cfg directly.
func (s *Store) Swap(cfg *Config) {
	s.current.Store(cfg)
}
