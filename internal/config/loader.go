package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const envPrefix = "CLUSTERLAB_"

// maxUpwardSearchLevels limits how far up the directory tree the config
// file search climbs.
const maxUpwardSearchLevels = 10

var configNames = []string{"clusterlab.yaml", "clusterlab.yml"}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"out":       "runs",
		"log_level": "info",

		"cluster.name":          "cluster",
		"cluster.n":             1024,
		"cluster.imf.kind":      "kroupa",
		"cluster.profile":       "plummer",
		"cluster.virial_radius": "10 pc",
		"cluster.opening_angle": 0.6,
		"cluster.workers":       8,

		"run.code":           "bhtree",
		"run.evolution":      true,
		"run.timestep":       "0.25 Myr",
		"run.t_end":          "10 Myr",
		"run.snapshot_every": "1 Myr",
	}
}

// flagKeys maps CLI flag names to config keys where the plain
// kebab-to-snake rewrite is not enough.
var flagKeys = map[string]string{
	"n":              "cluster.n",
	"name":           "cluster.name",
	"total-mass":     "cluster.total_mass",
	"imf":            "cluster.imf.kind",
	"profile":        "cluster.profile",
	"virial-radius":  "cluster.virial_radius",
	"position":       "cluster.position",
	"velocity":       "cluster.velocity",
	"softening":      "cluster.softening",
	"opening-angle":  "cluster.opening_angle",
	"workers":        "cluster.workers",
	"code":           "run.code",
	"evolution":      "run.evolution",
	"timestep":       "run.timestep",
	"t-end":          "run.t_end",
	"snapshot-every": "run.snapshot_every",
	"diag-every":     "run.diag_every",
	"seed":           "run.seed",
}

// findConfigFile picks the config file to use. An explicit path always
// wins; otherwise clusterlab.yaml/.yml is searched from the working
// directory upward.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for i := 0; i < maxUpwardSearchLevels; i++ {
		for _, name := range configNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// Load builds the effective configuration.
// Precedence (highest to lowest): flags > env vars > config file >
// preset > defaults.
func Load(cfgFile, preset string, flags *pflag.FlagSet) (*Config, error) {
	return load(cfgFile, preset, flags, nil)
}

// load is Load plus an override layer sitting between the environment
// and the flags. Scenario steps use it to pin their keys while still
// letting explicit flags win.
func load(cfgFile, preset string, flags *pflag.FlagSet, overrides map[string]interface{}) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if preset != "" {
		p, ok := Presets[preset]
		if !ok {
			return nil, fmt.Errorf("unknown preset %q (known: %s)",
				preset, strings.Join(PresetNames(), ", "))
		}
		if err := k.Load(confmap.Provider(p.Values, "."), nil); err != nil {
			return nil, fmt.Errorf("loading preset %s: %w", preset, err)
		}
	}

	if path := findConfigFile(cfgFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	// CLUSTERLAB_RUN__T_END=20Myr -> run.t_end. A double underscore
	// separates nesting levels so single underscores survive inside
	// key names.
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	if len(overrides) > 0 {
		if err := k.Load(confmap.Provider(overrides, "."), nil); err != nil {
			return nil, fmt.Errorf("loading overrides: %w", err)
		}
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only flags that were explicitly set participate.
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			if mapped, ok := flagKeys[f.Name]; ok {
				key = mapped
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("loading flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}
