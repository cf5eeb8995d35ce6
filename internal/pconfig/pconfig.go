// Package pconfig loads the prediction core's runtime tuning knobs from a
// TOML file: the default prediction mode, a DFA-cache size hint, and trace
// verbosity. The size hint is loaded but no cache in this module is sized
// from it.
package pconfig

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/dekarrin/allstar/internal/predictmode"
)

// Config holds the prediction core's tunable defaults.
type Config struct {
	// PredictionMode is the mode name the predictor starts in: "sll", "ll",
	// or "ll_exact_ambig_detection".
	PredictionMode string `toml:"prediction_mode"`

	// DFACacheSizeHint is an advisory initial capacity hint for a decision's
	// interned-state map; zero means "let the map grow naturally." Nothing
	// in this module reads it.
	DFACacheSizeHint int `toml:"dfa_cache_size_hint"`

	// TraceVerbose enables the freeform step tracer by default when true.
	TraceVerbose bool `toml:"trace_verbose"`
}

// Default returns the out-of-the-box configuration: SLL-first with LL
// failover, no cache presizing, tracing off.
func Default() Config {
	return Config{
		PredictionMode:   "ll",
		DFACacheSizeHint: 0,
		TraceVerbose:     false,
	}
}

// Load reads and parses a TOML config file at path, starting from Default()
// so an omitted field keeps its default rather than zeroing out.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Mode parses cfg's PredictionMode string into a predictmode.Mode, falling
// back to predictmode.LL for an unrecognized or empty value.
func (cfg Config) Mode() predictmode.Mode {
	switch cfg.PredictionMode {
	case "sll":
		return predictmode.SLL
	case "ll_exact_ambig_detection":
		return predictmode.LLExactAmbigDetection
	default:
		return predictmode.LL
	}
}
