package simulation

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/clusterlab/clusterlab/internal/datamodel"
	"github.com/clusterlab/clusterlab/internal/units"
)

// ReadManifest loads manifest.yaml from a run directory.
func ReadManifest(dir string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return m, err
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("parse manifest: %w", err)
	}
	return m, nil
}

// ReadSeries loads series.csv back into diagnostic rows.
func ReadSeries(dir string) ([]DiagRow, error) {
	f, err := os.Open(filepath.Join(dir, SeriesName))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse series: %w", err)
	}
	if len(records) < 1 {
		return nil, nil
	}
	rows := make([]DiagRow, 0, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) != len(seriesHeader) {
			return nil, fmt.Errorf("series row has %d fields, want %d", len(rec), len(seriesHeader))
		}
		vals := make([]float64, len(rec))
		for i, field := range rec {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("series field %q: %w", field, err)
			}
			vals[i] = v
		}
		rows = append(rows, DiagRow{
			Time:        vals[0] * units.Megayear.Scale,
			N:           int(vals[1]),
			Kinetic:     vals[2],
			Potential:   vals[3],
			Total:       vals[4],
			VirialRatio: vals[5],
			R10:         vals[6] * units.Parsec.Scale,
			R50:         vals[7] * units.Parsec.Scale,
			R90:         vals[8] * units.Parsec.Scale,
			BoundFrac:   vals[9],
		})
	}
	return rows, nil
}

// ReadSnapshot loads one snapshot CSV into a particle set, keys intact.
func ReadSnapshot(path string) (*datamodel.Particles, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	out := datamodel.NewParticles(0)
	if len(records) < 2 {
		return out, nil
	}
	for _, rec := range records[1:] {
		if len(rec) != len(snapshotHeader) {
			return nil, fmt.Errorf("snapshot row has %d fields, want %d", len(rec), len(snapshotHeader))
		}
		key, err := strconv.ParseUint(rec[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("snapshot key %q: %w", rec[0], err)
		}
		vals := make([]float64, len(rec)-1)
		for i, field := range rec[1:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("snapshot field %q: %w", field, err)
			}
			vals[i] = v
		}
		_, err = out.Add(datamodel.Particle{
			Key:    key,
			Mass:   vals[0],
			Radius: vals[1],
			Pos:    datamodel.Vec3{X: vals[2], Y: vals[3], Z: vals[4]},
			Vel:    datamodel.Vec3{X: vals[5], Y: vals[6], Z: vals[7]},
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ListSnapshots returns the snapshot files of a run in order.
func ListSnapshots(dir string) ([]string, error) {
	pattern := filepath.Join(dir, SnapshotsDir, "*.csv")
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// LatestSnapshot returns the newest snapshot path, or "" when none.
func LatestSnapshot(dir string) (string, error) {
	paths, err := ListSnapshots(dir)
	if err != nil || len(paths) == 0 {
		return "", err
	}
	return paths[len(paths)-1], nil
}
