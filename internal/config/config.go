// Package config holds the layered run configuration: built-in defaults,
// an optional clusterlab.yaml, CLUSTERLAB_* environment variables and
// command-line flags, merged in that order. Quantities are plain strings
// ("10 pc", "0.25 Myr") parsed through the units catalog, so every layer
// can express them the same way.
package config

import (
	"fmt"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/clusterlab/clusterlab/internal/bridge"
	"github.com/clusterlab/clusterlab/internal/gravity"
	"github.com/clusterlab/clusterlab/internal/ic"
	"github.com/clusterlab/clusterlab/internal/simulation"
	"github.com/clusterlab/clusterlab/internal/units"
)

// Config is the effective configuration of one invocation.
type Config struct {
	Out      string `koanf:"out" yaml:"out"`
	LogLevel string `koanf:"log_level" yaml:"log_level"`

	Cluster ClusterSection `koanf:"cluster" yaml:"cluster"`
	// Companion, when present, is a second cluster coupled to the first
	// through the bridge.
	Companion *ClusterSection `koanf:"companion" yaml:"companion,omitempty"`
	Run       RunSection      `koanf:"run" yaml:"run"`
}

// ClusterSection describes one sampled cluster. Empty strings and zero
// values fall through to the sampler defaults.
type ClusterSection struct {
	Name         string     `koanf:"name" yaml:"name,omitempty"`
	N            int        `koanf:"n" yaml:"n"`
	TotalMass    string     `koanf:"total_mass" yaml:"total_mass,omitempty"`
	IMF          IMFSection `koanf:"imf" yaml:"imf"`
	Profile      string     `koanf:"profile" yaml:"profile"`
	VirialRadius string     `koanf:"virial_radius" yaml:"virial_radius"`
	Position     string     `koanf:"position" yaml:"position,omitempty"`
	Velocity     string     `koanf:"velocity" yaml:"velocity,omitempty"`
	BodyRadius   string     `koanf:"body_radius" yaml:"body_radius,omitempty"`
	Softening    string     `koanf:"softening" yaml:"softening,omitempty"`
	OpeningAngle float64    `koanf:"opening_angle" yaml:"opening_angle"`
	Workers      int        `koanf:"workers" yaml:"workers"`
}

// IMFSection selects the initial mass function. Min and Max are mass
// quantities bounding the sampled range; empty means the function's
// native range.
type IMFSection struct {
	Kind string `koanf:"kind" yaml:"kind"`
	Min  string `koanf:"min" yaml:"min,omitempty"`
	Max  string `koanf:"max" yaml:"max,omitempty"`
}

// RunSection drives the macro evolution loop.
type RunSection struct {
	Code          string        `koanf:"code" yaml:"code"`
	Evolution     bool          `koanf:"evolution" yaml:"evolution"`
	Timestep      string        `koanf:"timestep" yaml:"timestep"`
	TEnd          string        `koanf:"t_end" yaml:"t_end"`
	SnapshotEvery string        `koanf:"snapshot_every" yaml:"snapshot_every,omitempty"`
	DiagEvery     string        `koanf:"diag_every" yaml:"diag_every,omitempty"`
	Seed          int64         `koanf:"seed" yaml:"seed"`
	Bridge        BridgeSection `koanf:"bridge" yaml:"bridge,omitempty"`
}

// BridgeSection configures the kick-drift-kick coupling. Partners are
// analytic background fields acting on every bridged system.
type BridgeSection struct {
	Timestep string         `koanf:"timestep" yaml:"timestep,omitempty"`
	Threaded bool           `koanf:"threaded" yaml:"threaded,omitempty"`
	Partners []FieldSection `koanf:"partners" yaml:"partners,omitempty"`
}

// FieldSection describes one analytic field partner.
type FieldSection struct {
	Kind        string `koanf:"kind" yaml:"kind"`
	Mass        string `koanf:"mass" yaml:"mass"`
	ScaleRadius string `koanf:"scale_radius" yaml:"scale_radius,omitempty"`
	Softening   string `koanf:"softening" yaml:"softening,omitempty"`
	Position    string `koanf:"position" yaml:"position,omitempty"`
}

// Validate checks the whole configuration by running every translation
// once. Errors name the offending key in dotted config notation.
func (c *Config) Validate() error {
	if c.Out == "" {
		return fmt.Errorf("out: output directory is required")
	}
	if c.LogLevel != "" {
		if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
			return fmt.Errorf("log_level: %w", err)
		}
	}
	if _, err := c.ClusterOptions(); err != nil {
		return err
	}
	if c.Companion != nil {
		if _, err := c.CompanionOptions(); err != nil {
			return err
		}
	}
	if _, err := c.RunConfig(); err != nil {
		return err
	}
	if _, err := c.Fields(); err != nil {
		return err
	}
	_, err := c.BridgeStep()
	return err
}

// ClusterOptions translates the cluster section into sampler options.
func (c *Config) ClusterOptions() (ic.ClusterOptions, error) {
	return c.Cluster.options("cluster", c.Run, c.Run.Seed)
}

// CompanionOptions translates the companion section. The seed is offset
// from the primary's so the pair is not a star-by-star copy.
func (c *Config) CompanionOptions() (ic.ClusterOptions, error) {
	if c.Companion == nil {
		return ic.ClusterOptions{}, fmt.Errorf("companion: section not present")
	}
	sec := *c.Companion
	if sec.Name == "" {
		sec.Name = "companion"
	}
	return sec.options("companion", c.Run, c.Run.Seed+1)
}

func (s ClusterSection) options(key string, run RunSection, seed int64) (ic.ClusterOptions, error) {
	if s.N < 0 {
		return ic.ClusterOptions{}, fmt.Errorf("%s.n: star count cannot be negative", key)
	}
	if s.N == 0 && s.TotalMass == "" {
		return ic.ClusterOptions{}, fmt.Errorf("%s: set n or total_mass", key)
	}

	opts := ic.ClusterOptions{
		Name:          s.Name,
		N:             s.N,
		OpeningAngle:  s.OpeningAngle,
		Workers:       s.Workers,
		GravityCode:   run.Code,
		WithEvolution: run.Evolution,
		Seed:          seed,
	}

	var err error
	if opts.TotalMass, err = parseQuantity(s.TotalMass, units.Dim{M: 1}, key+".total_mass"); err != nil {
		return opts, err
	}
	if s.TotalMass != "" && opts.TotalMass.Value <= 0 {
		return opts, fmt.Errorf("%s.total_mass: must be positive, got %s", key, s.TotalMass)
	}
	if opts.VirialRadius, err = parseQuantity(s.VirialRadius, units.Dim{L: 1}, key+".virial_radius"); err != nil {
		return opts, err
	}
	if s.VirialRadius != "" && opts.VirialRadius.Value <= 0 {
		return opts, fmt.Errorf("%s.virial_radius: must be positive, got %s", key, s.VirialRadius)
	}
	if opts.BodyRadius, err = parseQuantity(s.BodyRadius, units.Dim{L: 1}, key+".body_radius"); err != nil {
		return opts, err
	}
	if opts.Softening, err = parseQuantity(s.Softening, units.Dim{L: 1}, key+".softening"); err != nil {
		return opts, err
	}
	if opts.Position, err = ParseVector(s.Position, units.Dim{L: 1}, key+".position"); err != nil {
		return opts, err
	}
	if opts.Velocity, err = ParseVector(s.Velocity, units.Dim{L: 1, T: -1}, key+".velocity"); err != nil {
		return opts, err
	}
	if opts.Timestep, err = parseQuantity(run.Timestep, units.Dim{T: 1}, "run.timestep"); err != nil {
		return opts, err
	}

	// Only non-empty selections are constructed here; zero values keep
	// the sampler defaults (Kroupa, Plummer).
	if s.IMF.Kind != "" {
		lo, err := parseQuantity(s.IMF.Min, units.Dim{M: 1}, key+".imf.min")
		if err != nil {
			return opts, err
		}
		hi, err := parseQuantity(s.IMF.Max, units.Dim{M: 1}, key+".imf.max")
		if err != nil {
			return opts, err
		}
		if opts.IMF, err = ic.NewIMF(s.IMF.Kind, lo, hi); err != nil {
			return opts, fmt.Errorf("%s.imf.kind: %w", key, err)
		}
	}
	if s.Profile != "" {
		if opts.Profile, err = ic.NewProfile(s.Profile); err != nil {
			return opts, fmt.Errorf("%s.profile: %w", key, err)
		}
	}
	if run.Code != "" && run.Code != "direct" && run.Code != "bhtree" {
		return opts, fmt.Errorf("run.code: unknown gravity code %q (known: direct, bhtree)", run.Code)
	}
	return opts, nil
}

// RunConfig translates the run section into the macro-loop settings.
func (c *Config) RunConfig() (simulation.RunConfig, error) {
	var (
		rc  simulation.RunConfig
		err error
	)
	if rc.Timestep, err = parseQuantity(c.Run.Timestep, units.Dim{T: 1}, "run.timestep"); err != nil {
		return rc, err
	}
	if c.Run.Timestep == "" || rc.Timestep.Value <= 0 {
		return rc, fmt.Errorf("run.timestep: must be a positive time, got %q", c.Run.Timestep)
	}
	if rc.EndTime, err = parseQuantity(c.Run.TEnd, units.Dim{T: 1}, "run.t_end"); err != nil {
		return rc, err
	}
	if c.Run.TEnd == "" || rc.EndTime.Value <= 0 {
		return rc, fmt.Errorf("run.t_end: must be a positive time, got %q", c.Run.TEnd)
	}
	if rc.SnapshotEvery, err = parseQuantity(c.Run.SnapshotEvery, units.Dim{T: 1}, "run.snapshot_every"); err != nil {
		return rc, err
	}
	if rc.DiagEvery, err = parseQuantity(c.Run.DiagEvery, units.Dim{T: 1}, "run.diag_every"); err != nil {
		return rc, err
	}
	rc.Softening, err = parseQuantity(c.Cluster.Softening, units.Dim{L: 1}, "cluster.softening")
	return rc, err
}

// BridgeStep returns the bridge kick interval, defaulting to the macro
// timestep when the bridge section leaves it unset.
func (c *Config) BridgeStep() (units.Quantity, error) {
	if c.Run.Bridge.Timestep == "" {
		return parseQuantity(c.Run.Timestep, units.Dim{T: 1}, "run.timestep")
	}
	q, err := parseQuantity(c.Run.Bridge.Timestep, units.Dim{T: 1}, "run.bridge.timestep")
	if err != nil {
		return q, err
	}
	if q.Value <= 0 {
		return q, fmt.Errorf("run.bridge.timestep: must be positive, got %s", c.Run.Bridge.Timestep)
	}
	return q, nil
}

// NeedsBridge reports whether the run couples systems through the
// bridge: either a companion cluster or at least one field partner.
func (c *Config) NeedsBridge() bool {
	return c.Companion != nil || len(c.Run.Bridge.Partners) > 0
}

// Fields builds the analytic partner fields of the bridge section.
func (c *Config) Fields() ([]bridge.Field, error) {
	if len(c.Run.Bridge.Partners) == 0 {
		return nil, nil
	}
	out := make([]bridge.Field, 0, len(c.Run.Bridge.Partners))
	for i, p := range c.Run.Bridge.Partners {
		f, err := p.field(fmt.Sprintf("run.bridge.partners[%d]", i))
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func (p FieldSection) field(key string) (bridge.Field, error) {
	mass, err := parseQuantity(p.Mass, units.Dim{M: 1}, key+".mass")
	if err != nil {
		return nil, err
	}
	if mass.Value <= 0 {
		return nil, fmt.Errorf("%s.mass: must be a positive mass, got %q", key, p.Mass)
	}
	pos, err := ParseVector(p.Position, units.Dim{L: 1}, key+".position")
	if err != nil {
		return nil, err
	}
	si := pos.SI()
	center := datamodelVec(si)

	switch p.Kind {
	case "pointmass":
		eps, err := parseQuantity(p.Softening, units.Dim{L: 1}, key+".softening")
		if err != nil {
			return nil, err
		}
		return &gravity.PointMassField{
			G:      units.G.Value,
			Mass:   mass.SI(),
			Eps2:   eps.SI() * eps.SI(),
			Center: center,
		}, nil
	case "nfw":
		rs, err := parseQuantity(p.ScaleRadius, units.Dim{L: 1}, key+".scale_radius")
		if err != nil {
			return nil, err
		}
		if rs.Value <= 0 {
			return nil, fmt.Errorf("%s.scale_radius: must be a positive length, got %q", key, p.ScaleRadius)
		}
		return &gravity.NFWField{
			G:      units.G.Value,
			Ms:     mass.SI(),
			Rs:     rs.SI(),
			Center: center,
		}, nil
	default:
		return nil, fmt.Errorf("%s.kind: unknown field %q (known: pointmass, nfw)", key, p.Kind)
	}
}

// Map renders the config as nested plain maps, the shape the run
// manifest embeds.
func (c *Config) Map() (map[string]any, error) {
	b, err := yaml.Marshal(c)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// parseQuantity reads an optional quantity string. Empty input is the
// zero quantity; a set value must carry the wanted dimension.
func parseQuantity(s string, d units.Dim, key string) (units.Quantity, error) {
	if s == "" {
		return units.Quantity{}, nil
	}
	q, err := units.Parse(s)
	if err != nil {
		return units.Quantity{}, fmt.Errorf("%s: %w", key, err)
	}
	if q.Unit.Dim != d {
		return units.Quantity{}, fmt.Errorf("%s: %q has dimension %s, want %s", key, s, q.Unit.Dim, d)
	}
	return q, nil
}
