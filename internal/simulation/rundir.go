package simulation

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/clusterlab/clusterlab/internal/datamodel"
	"github.com/clusterlab/clusterlab/internal/units"
	"github.com/clusterlab/clusterlab/internal/xlog"
)

const (
	ManifestName  = "manifest.yaml"
	SeriesName    = "series.csv"
	SnapshotsDir  = "snapshots"
	dirTimeFormat = "2006-01-02_150405"
)

// seriesHeader matches DiagRow; times in Myr, radii in pc, energies in J.
var seriesHeader = []string{
	"time_myr", "n", "kinetic_j", "potential_j", "total_j",
	"virial_ratio", "r10_pc", "r50_pc", "r90_pc", "bound_frac",
}

var snapshotHeader = []string{
	"key", "mass_kg", "radius_m", "x_m", "y_m", "z_m", "vx_ms", "vy_ms", "vz_ms",
}

// Manifest records what a run was. Quantities are kept as the strings
// they were configured with so the file reads back verbatim.
type Manifest struct {
	ID        string            `yaml:"id"`
	Name      string            `yaml:"name"`
	CreatedAt time.Time         `yaml:"created_at"`
	Seed      int64             `yaml:"seed"`
	N         int               `yaml:"n"`
	Codes     map[string]string `yaml:"codes,omitempty"` // system -> gravity code
	Timestep  string            `yaml:"timestep"`
	EndTime   string            `yaml:"t_end"`
	Units     string            `yaml:"units"`
	Config    map[string]any    `yaml:"config,omitempty"`
}

// RunDir is one run's directory. The manifest is written before
// anything else so a partially written run is still identifiable.
type RunDir struct {
	Path string

	log      zerolog.Logger
	logClose io.Closer
	snaps    int
}

// NewRunDir creates <root>/<YYYY-MM-DD_HHMMSS>_<name>/ with the
// manifest inside and run.log opened for teeing.
func NewRunDir(root string, m Manifest) (*RunDir, error) {
	if m.Name == "" {
		m.Name = "run"
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	if m.Units == "" {
		m.Units = "SI"
	}
	path := filepath.Join(root, m.CreatedAt.Format(dirTimeFormat)+"_"+m.Name)
	if err := os.MkdirAll(filepath.Join(path, SnapshotsDir), 0o755); err != nil {
		return nil, fmt.Errorf("create run dir: %w", err)
	}

	data, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	if err := writeAtomic(filepath.Join(path, ManifestName), func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	}); err != nil {
		return nil, err
	}

	log, closer, err := xlog.ToFile(path)
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}
	return &RunDir{Path: path, log: log, logClose: closer}, nil
}

// Logger writes to the configured output and the run's own run.log.
func (d *RunDir) Logger() zerolog.Logger { return d.log }

func (d *RunDir) Close() error {
	if d.logClose == nil {
		return nil
	}
	return d.logClose.Close()
}

// WriteSnapshot persists the set as snapshots/NNNN.csv and returns the
// file path. Numbering is dense from 0000.
func (d *RunDir) WriteSnapshot(p *datamodel.Particles) (string, error) {
	path := filepath.Join(d.Path, SnapshotsDir, fmt.Sprintf("%04d.csv", d.snaps))
	if err := WriteSnapshotFile(path, p); err != nil {
		return "", fmt.Errorf("write snapshot %04d: %w", d.snaps, err)
	}
	d.snaps++
	return path, nil
}

// WriteSnapshotFile writes one particle set in the snapshot CSV format
// to an arbitrary path, outside any run directory.
func WriteSnapshotFile(path string, p *datamodel.Particles) error {
	return writeAtomic(path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(snapshotHeader); err != nil {
			return err
		}
		for i := 0; i < p.Len(); i++ {
			pt := p.At(i)
			row := []string{
				strconv.FormatUint(pt.Key, 10),
				fmtF(pt.Mass), fmtF(pt.Radius),
				fmtF(pt.Pos.X), fmtF(pt.Pos.Y), fmtF(pt.Pos.Z),
				fmtF(pt.Vel.X), fmtF(pt.Vel.Y), fmtF(pt.Vel.Z),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

// WriteSeries rewrites series.csv with all rows so far. Rewriting keeps
// the file complete and consistent for concurrent readers.
func (d *RunDir) WriteSeries(rows []DiagRow) error {
	err := writeAtomic(filepath.Join(d.Path, SeriesName), func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(seriesHeader); err != nil {
			return err
		}
		for _, r := range rows {
			row := []string{
				fmtF(r.Time / units.Megayear.Scale),
				strconv.Itoa(r.N),
				fmtF(r.Kinetic), fmtF(r.Potential), fmtF(r.Total),
				fmtF(r.VirialRatio),
				fmtF(r.R10 / units.Parsec.Scale),
				fmtF(r.R50 / units.Parsec.Scale),
				fmtF(r.R90 / units.Parsec.Scale),
				fmtF(r.BoundFrac),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
	if err != nil {
		return fmt.Errorf("write series: %w", err)
	}
	return nil
}

// fmtF uses the shortest representation that round-trips exactly.
func fmtF(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

// writeAtomic funnels every run-directory write through a renameio
// pending file: fsync then rename, never a torn file.
func writeAtomic(path string, fill func(io.Writer) error) error {
	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending %s: %w", filepath.Base(path), err)
	}
	defer func() { _ = pending.Cleanup() }()

	if err := fill(pending); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
