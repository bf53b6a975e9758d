// Package simulation drives coupled systems through macro steps and
// owns the on-disk shape of a run: directory, manifest, snapshots,
// diagnostic series and the sqlite catalog over many runs.
package simulation

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/clusterlab/clusterlab/internal/analysis"
	"github.com/clusterlab/clusterlab/internal/bridge"
	"github.com/clusterlab/clusterlab/internal/datamodel"
	"github.com/clusterlab/clusterlab/internal/units"
	"github.com/clusterlab/clusterlab/internal/xlog"
)

type evolver interface {
	EvolveTo(ctx context.Context, t float64) error
}

// RunConfig sets the macro loop. Cadences of zero mean: diagnostics
// every macro step, snapshots only at start and end.
type RunConfig struct {
	Timestep      units.Quantity
	EndTime       units.Quantity
	DiagEvery     units.Quantity
	SnapshotEvery units.Quantity
	Softening     units.Quantity // used for diagnostic energies only
}

func (c RunConfig) validate() error {
	for _, q := range []struct {
		name string
		q    units.Quantity
	}{
		{"timestep", c.Timestep},
		{"t_end", c.EndTime},
		{"diag_every", c.DiagEvery},
		{"snapshot_every", c.SnapshotEvery},
	} {
		if !q.q.IsZero() && q.q.Unit.Dim != (units.Dim{T: 1}) {
			return fmt.Errorf("run config: %s has dimension %s, want time", q.name, q.q.Unit.Dim)
		}
	}
	if c.Timestep.SI() <= 0 {
		return fmt.Errorf("run config: timestep must be positive")
	}
	if c.EndTime.SI() <= 0 {
		return fmt.Errorf("run config: t_end must be positive")
	}
	if !c.Softening.IsZero() && c.Softening.Unit.Dim != (units.Dim{L: 1}) {
		return fmt.Errorf("run config: softening has dimension %s, want length", c.Softening.Unit.Dim)
	}
	return nil
}

// DiagRow is one diagnostics sample over the merged bodies of all
// systems. Times and lengths are SI internally; the CSV layer converts.
type DiagRow struct {
	Time        float64 // s
	N           int
	Kinetic     float64 // J
	Potential   float64 // J
	Total       float64 // J
	VirialRatio float64
	R10         float64 // m
	R50         float64 // m
	R90         float64 // m
	BoundFrac   float64
}

// Summary is what a finished run reports.
type Summary struct {
	Steps     int
	Time      float64 // s
	Rows      []DiagRow
	Snapshots int
	DriftMax  float64 // max |E-E0|/|E0| over the diagnostic samples
}

// Metrics flattens the final state into catalog metrics.
func (s *Summary) Metrics() map[string]float64 {
	m := map[string]float64{
		"t_end_myr":   s.Time / units.Megayear.Scale,
		"steps":       float64(s.Steps),
		"e_drift_max": s.DriftMax,
	}
	if len(s.Rows) > 0 {
		last := s.Rows[len(s.Rows)-1]
		m["n"] = float64(last.N)
		m["total_j"] = last.Total
		m["virial_ratio"] = last.VirialRatio
		m["r50_pc"] = last.R50 / units.Parsec.Scale
		m["bound_frac"] = last.BoundFrac
	}
	return m
}

// Runner advances systems with the stellar-evolution-first ordering:
// evolve stars to t, pull masses and radii, push masses into the
// integrators, advance dynamics, pull positions back.
type Runner struct {
	systems *datamodel.Systems
	bridge  *bridge.Bridge // nil: gravity codes evolve uncoupled
	cfg     RunConfig
	dir     *RunDir
	log     zerolog.Logger

	time     float64
	rows     []DiagRow
	snaps    int
	steps    int
	drift    analysis.EnergyDrift
	began    bool
	nextDiag float64
	nextSnap float64
}

// NewRunner wires a runner over the registry. A nil bridge is fine as
// long as every moving system carries its own gravity code.
func NewRunner(systems *datamodel.Systems, br *bridge.Bridge, cfg RunConfig) (*Runner, error) {
	if systems == nil || systems.Len() == 0 {
		return nil, fmt.Errorf("runner needs at least one system")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Runner{
		systems: systems,
		bridge:  br,
		cfg:     cfg,
		log:     xlog.WithComponent("runner"),
	}, nil
}

// SetDir attaches a run directory; diagnostics and snapshots are then
// persisted as they are produced and logging tees into run.log.
func (r *Runner) SetDir(d *RunDir) {
	r.dir = d
	if d != nil {
		r.log = d.Logger().With().Str("component", "runner").Logger()
	}
}

func (r *Runner) Time() float64   { return r.time }
func (r *Runner) End() float64    { return r.cfg.EndTime.SI() }
func (r *Runner) Rows() []DiagRow { return r.rows }
func (r *Runner) Drift() float64  { return r.drift.Value() }

// Merged concatenates the master bodies of every system into a fresh
// set. Keys are globally unique, so the union is well defined.
func (r *Runner) Merged() (*datamodel.Particles, error) {
	out := datamodel.NewParticles(0)
	var err error
	r.systems.Each(func(s *datamodel.System) {
		if err != nil {
			return
		}
		err = out.AddFrom(s.Bodies)
	})
	if err != nil {
		return nil, fmt.Errorf("merge bodies: %w", err)
	}
	return out, nil
}

// Run executes the whole macro loop. The initial state is always
// sampled; the final state always gets a diagnostics row and snapshot.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	for {
		done, err := r.StepOnce(ctx)
		if err != nil {
			return nil, err
		}
		if done {
			break
		}
	}
	sum := r.Summary()
	r.log.Info().
		Int("steps", sum.Steps).
		Float64("t_myr", sum.Time/units.Megayear.Scale).
		Float64("e_drift_max", sum.DriftMax).
		Msg("run finished")
	return sum, nil
}

// StepOnce advances the loop by one macro step, running any due
// observations, and reports whether the end time has been reached. The
// first call samples the initial state before stepping. Callers that
// want the whole run use Run; the live viewer steps the loop itself.
func (r *Runner) StepOnce(ctx context.Context) (bool, error) {
	end := r.cfg.EndTime.SI()
	dt := r.cfg.Timestep.SI()
	tiny := 1e-9 * dt

	if !r.began {
		r.began = true
		r.nextDiag = r.cfg.DiagEvery.SI()
		r.nextSnap = r.cfg.SnapshotEvery.SI()
		if err := r.observe(true); err != nil {
			return false, err
		}
	}
	if r.time >= end-tiny {
		return true, nil
	}

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	t := math.Min(r.time+dt, end)
	if err := r.step(ctx, t); err != nil {
		return false, err
	}
	r.time = t
	r.steps++

	diagEvery := r.cfg.DiagEvery.SI()
	snapEvery := r.cfg.SnapshotEvery.SI()
	atEnd := r.time >= end-tiny
	if diagEvery == 0 || atEnd || r.time+tiny >= r.nextDiag {
		snap := atEnd || (snapEvery > 0 && r.time+tiny >= r.nextSnap)
		if err := r.observe(snap); err != nil {
			return false, err
		}
		for diagEvery > 0 && r.nextDiag <= r.time+tiny {
			r.nextDiag += diagEvery
		}
		for snapEvery > 0 && r.nextSnap <= r.time+tiny {
			r.nextSnap += snapEvery
		}
	}
	return atEnd, nil
}

// Summary reports the state of the loop so far.
func (r *Runner) Summary() *Summary {
	return &Summary{
		Steps:     r.steps,
		Time:      r.time,
		Rows:      r.rows,
		Snapshots: r.snaps,
		DriftMax:  r.drift.Value(),
	}
}

// step advances every system to absolute time t (seconds).
func (r *Runner) step(ctx context.Context, t float64) error {
	// Stellar evolution first so this step's dynamics sees the new
	// masses.
	var massChanged bool
	var stepErr error
	r.systems.Each(func(s *datamodel.System) {
		if stepErr != nil {
			return
		}
		ev := s.Evolution()
		if ev == nil {
			return
		}
		code, ok := ev.(evolver)
		if !ok {
			stepErr = fmt.Errorf("evolution code %s of %s cannot evolve", ev.Name(), s.Name)
			return
		}
		if err := code.EvolveTo(ctx, t); err != nil {
			stepErr = fmt.Errorf("evolve %s/%s: %w", s.Name, ev.Name(), err)
			return
		}
		if c, ok := s.Channel("evolution", "particles"); ok {
			c.CopyAttrs(datamodel.AttrMass, datamodel.AttrRadius)
		}
		massChanged = true
	})
	if stepErr != nil {
		return stepErr
	}

	if massChanged {
		r.systems.Each(func(s *datamodel.System) {
			if stepErr != nil {
				return
			}
			s.SyncToCodes()
			// New masses invalidate the integrator's force state.
			if g := s.Gravity(); g != nil {
				if c, ok := g.(datamodel.Committer); ok {
					if err := c.CommitParticles(); err != nil {
						stepErr = fmt.Errorf("recommit %s/%s: %w", s.Name, g.Name(), err)
					}
				}
			}
		})
		if stepErr != nil {
			return stepErr
		}
	}

	if r.bridge != nil {
		if err := r.bridge.EvolveTo(ctx, t); err != nil {
			return err
		}
	} else {
		r.systems.Each(func(s *datamodel.System) {
			if stepErr != nil {
				return
			}
			g := s.Gravity()
			if g == nil {
				return
			}
			code, ok := g.(evolver)
			if !ok {
				stepErr = fmt.Errorf("gravity code %s of %s cannot evolve", g.Name(), s.Name)
				return
			}
			if err := code.EvolveTo(ctx, t); err != nil {
				stepErr = fmt.Errorf("evolve %s/%s: %w", s.Name, g.Name(), err)
			}
		})
		if stepErr != nil {
			return stepErr
		}
	}

	r.systems.Each(func(s *datamodel.System) { s.SyncFromCodes() })
	return nil
}

// observe appends a diagnostics row over the merged bodies, and a
// snapshot when asked for.
func (r *Runner) observe(snapshot bool) error {
	merged, err := r.Merged()
	if err != nil {
		return err
	}
	row, err := Diagnose(merged, r.time, r.cfg.Softening.SI())
	if err != nil {
		return err
	}
	r.drift.Observe(row.Total)
	r.rows = append(r.rows, row)
	r.log.Debug().
		Float64("t_myr", row.Time/units.Megayear.Scale).
		Int("n", row.N).
		Float64("total_j", row.Total).
		Float64("q", row.VirialRatio).
		Msg("diagnostics")

	if r.dir != nil {
		if err := r.dir.WriteSeries(r.rows); err != nil {
			return err
		}
	}
	if snapshot {
		r.snaps++
		if r.dir != nil {
			if _, err := r.dir.WriteSnapshot(merged); err != nil {
				return err
			}
		}
	}
	return nil
}

// Diagnose computes one row for a particle set at time t (seconds).
func Diagnose(p *datamodel.Particles, t, eps float64) (DiagRow, error) {
	row := DiagRow{Time: t, N: p.Len()}
	if p.Len() == 0 {
		return row, nil
	}
	rep := analysis.Energies(p, units.G.Value, eps)
	row.Kinetic = rep.Kinetic
	row.Potential = rep.Potential
	row.Total = rep.Total
	row.VirialRatio = rep.Virial
	row.BoundFrac = analysis.BoundMassFraction(p, units.G.Value, eps)

	center, _ := analysis.DensityCenter(p, analysis.DefaultNeighbors)
	radii, err := analysis.LagrangianRadii(p, center, []float64{0.1, 0.5, 0.9})
	if err != nil {
		return row, fmt.Errorf("diagnostics radii: %w", err)
	}
	row.R10, row.R50, row.R90 = radii[0], radii[1], radii[2]
	return row, nil
}
