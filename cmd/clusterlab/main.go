package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/clusterlab/clusterlab/internal/analysis"
	"github.com/clusterlab/clusterlab/internal/bridge"
	"github.com/clusterlab/clusterlab/internal/config"
	"github.com/clusterlab/clusterlab/internal/datamodel"
	"github.com/clusterlab/clusterlab/internal/gravity"
	"github.com/clusterlab/clusterlab/internal/ic"
	"github.com/clusterlab/clusterlab/internal/plot"
	"github.com/clusterlab/clusterlab/internal/simulation"
	"github.com/clusterlab/clusterlab/internal/tui"
	"github.com/clusterlab/clusterlab/internal/units"
	"github.com/clusterlab/clusterlab/internal/xlog"
)

var (
	cfgFile string
	preset  string

	histBins    int
	snapshotOut string
	ensemble    int
	parallel    int
	seriesName  string
	snapshotIdx int
	benchSteps  int
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := &cobra.Command{
		Use:          "clusterlab",
		Short:        "star cluster experiments: sampling, evolution, diagnostics",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: clusterlab.yaml, searched upward)")
	rootCmd.PersistentFlags().String("out", "runs", "output root for run directories and the catalog")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (trace, debug, info, warn, error)")

	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "sample initial conditions and report their statistics",
		RunE:  runBuild,
	}
	addClusterFlags(buildCmd)
	buildCmd.Flags().IntVar(&histBins, "bins", 12, "mass histogram bins")
	buildCmd.Flags().StringVar(&snapshotOut, "snapshot", "", "also write the sampled bodies to this CSV file")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a simulation and record it",
		RunE:  runRun,
	}
	addClusterFlags(runCmd)
	runCmd.Flags().IntVar(&ensemble, "ensemble", 1, "run this many members with consecutive seeds")
	runCmd.Flags().IntVar(&parallel, "parallel", 4, "ensemble members evolving at once")

	scriptCmd := &cobra.Command{
		Use:   "script [scenario.yaml]",
		Short: "run a scripted sequence of simulations",
		Args:  cobra.ExactArgs(1),
		RunE:  runScript,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list recorded runs",
		RunE:  runList,
	}

	showCmd := &cobra.Command{
		Use:   "show [run]",
		Short: "show one run's manifest and metrics",
		Args:  cobra.ExactArgs(1),
		RunE:  runShow,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run]",
		Short: "plot a run's diagnostics or a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE:  runPlot,
	}
	plotCmd.Flags().StringVar(&seriesName, "series", "total",
		fmt.Sprintf("diagnostics column %v", plot.SeriesColumns()))
	plotCmd.Flags().IntVar(&snapshotIdx, "snapshot", -1, "render snapshot by index instead")

	exportCmd := &cobra.Command{
		Use:   "export [run]",
		Short: "export a run as JSON to stdout",
		Args:  cobra.ExactArgs(1),
		RunE:  runExport,
	}

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run with the interactive viewer",
		RunE:  runLive,
	}
	addClusterFlags(liveCmd)

	watchCmd := &cobra.Command{
		Use:   "watch [run-dir]",
		Short: "attach the viewer to a run owned by another process",
		Args:  cobra.ExactArgs(1),
		RunE:  runWatch,
	}

	latestCmd := &cobra.Command{
		Use:   "latest [dir]",
		Short: "point the latest symlink at the newest run",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLatest,
	}

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "benchmark the gravity solvers over an N x theta grid",
		RunE:  runBench,
	}
	benchCmd.Flags().IntVar(&benchSteps, "steps", 4, "solver steps per cell")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in configurations",
		RunE:  runPresets,
	}

	rootCmd.AddCommand(buildCmd, runCmd, scriptCmd, listCmd, showCmd, plotCmd,
		exportCmd, liveCmd, watchCmd, latestCmd, benchCmd, presetsCmd)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// addClusterFlags registers the flags shared by the commands that build
// a cluster. Names line up with config keys; only flags that were
// actually set override the file and environment.
func addClusterFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&preset, "preset", "", "start from a named preset (see clusterlab presets)")
	f.Int("n", 0, "number of stars")
	f.String("name", "", "cluster name")
	f.String("total-mass", "", `target total mass, e.g. "6000 MSun"`)
	f.String("imf", "", "initial mass function (kroupa, salpeter, equal)")
	f.String("profile", "", "density profile (plummer, hernquist)")
	f.String("virial-radius", "", `virial radius, e.g. "10 pc"`)
	f.String("position", "", `cluster position, e.g. "[8, 0, 0] kpc"`)
	f.String("velocity", "", `cluster velocity, e.g. "[0, 200, 0] kms"`)
	f.String("softening", "", `gravitational softening, e.g. "0.05 pc"`)
	f.Float64("opening-angle", 0, "barnes-hut acceptance angle")
	f.Int("workers", 0, "force-loop worker goroutines")
	f.String("code", "", "gravity code (direct, bhtree)")
	f.Bool("evolution", false, "couple stellar evolution")
	f.String("timestep", "", `macro timestep, e.g. "0.25 Myr"`)
	f.String("t-end", "", `end time, e.g. "100 Myr"`)
	f.String("snapshot-every", "", "snapshot cadence")
	f.String("diag-every", "", "diagnostics cadence")
	f.Int64("seed", 0, "random seed")
}

// loadConfig resolves the effective configuration for a command and
// initialises logging from it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile, preset, cmd.Flags())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	xlog.Configure(xlog.Config{Level: cfg.LogLevel, Console: true})
	return cfg, nil
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	optsList := make([]ic.ClusterOptions, 0, 2)
	opts, err := cfg.ClusterOptions()
	if err != nil {
		return err
	}
	optsList = append(optsList, opts)
	if cfg.Companion != nil {
		copts, err := cfg.CompanionOptions()
		if err != nil {
			return err
		}
		optsList = append(optsList, copts)
	}

	sampled := datamodel.NewParticles(0)
	for _, opts := range optsList {
		// Sampling only, no live codes behind the stats.
		opts.GravityCode = ""
		opts.WithEvolution = false

		start := time.Now()
		sys, err := ic.BuildCluster(opts)
		if err != nil {
			return err
		}
		elapsed := time.Since(start)

		if err := printClusterStats(sys, opts.Softening.SI(), elapsed); err != nil {
			return err
		}
		if snapshotOut != "" {
			if err := sampled.AddFrom(sys.Bodies); err != nil {
				return err
			}
		}
	}

	if snapshotOut != "" {
		if err := simulation.WriteSnapshotFile(snapshotOut, sampled); err != nil {
			return err
		}
		fmt.Printf("wrote %s (%d bodies)\n", snapshotOut, sampled.Len())
	}
	return nil
}

func printClusterStats(sys *datamodel.System, eps float64, elapsed time.Duration) error {
	bodies := sys.Bodies
	fmt.Printf("sampled %s: %d bodies in %v\n", sys.Name, bodies.Len(), elapsed.Round(time.Millisecond))

	lo, hi := bodies.At(0).Mass, bodies.At(0).Mass
	for i := 1; i < bodies.Len(); i++ {
		m := bodies.At(i).Mass
		if m < lo {
			lo = m
		}
		if m > hi {
			hi = m
		}
	}
	total := bodies.TotalMass()
	rep := analysis.Energies(bodies, units.G.Value, eps)
	center, dens := analysis.DensityCenter(bodies, analysis.DefaultNeighbors)
	rhalf := analysis.HalfMassRadius(bodies, center)
	rcore := analysis.CoreRadius(bodies, center, dens)

	fmt.Printf("  total mass     %.4g MSun\n", total/units.MSun.Scale)
	fmt.Printf("  mean mass      %.3g MSun (min %.3g, max %.3g)\n",
		total/float64(bodies.Len())/units.MSun.Scale, lo/units.MSun.Scale, hi/units.MSun.Scale)
	fmt.Printf("  r_half         %.3g pc, r_core %.3g pc\n",
		rhalf/units.Parsec.Scale, rcore/units.Parsec.Scale)
	fmt.Printf("  virial ratio   %.3f\n", rep.Virial)
	fmt.Printf("  dynamical time %.3g Myr\n", sys.Converter.TimeSI()/units.Megayear.Scale)

	hist, err := analysis.MassFunction(bodies, histBins)
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Print(plot.Histogram(hist, 40))
	fmt.Println()
	return nil
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if ensemble > 1 {
		return runEnsembleSweep(cmd.Context(), cfg)
	}
	return executeRun(cmd.Context(), cfg)
}

// executeRun evolves one configuration and records it: a run directory
// with manifest, series and snapshots, plus a catalog row.
func executeRun(ctx context.Context, cfg *config.Config) error {
	rc, err := cfg.RunConfig()
	if err != nil {
		return err
	}
	systems, br, err := buildSystems(cfg)
	if err != nil {
		return err
	}
	runner, err := simulation.NewRunner(systems, br, rc)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.Out, 0o755); err != nil {
		return fmt.Errorf("create output root: %w", err)
	}
	cat, err := simulation.OpenCatalog(cfg.Out)
	if err != nil {
		return err
	}
	defer cat.Close()

	cmap, err := cfg.Map()
	if err != nil {
		return err
	}
	id := uuid.NewString()
	n, codes := describeSystems(systems)
	dir, err := simulation.NewRunDir(cfg.Out, simulation.Manifest{
		ID:       id,
		Name:     cfg.Cluster.Name,
		Seed:     cfg.Run.Seed,
		N:        n,
		Codes:    codes,
		Timestep: cfg.Run.Timestep,
		EndTime:  cfg.Run.TEnd,
		Config:   cmap,
	})
	if err != nil {
		return err
	}
	defer dir.Close()
	runner.SetDir(dir)

	rec, err := cat.Insert(ctx, simulation.RunRecord{
		ID:      id,
		Name:    cfg.Cluster.Name,
		Dir:     dir.Path,
		N:       n,
		TEndMyr: rc.EndTime.SI() / units.Megayear.Scale,
		Seed:    cfg.Run.Seed,
	})
	if err != nil {
		return err
	}

	fmt.Printf("running %s: %d bodies to %s\n", rec.Name, n, cfg.Run.TEnd)
	start := time.Now()
	sum, err := runner.Run(ctx)
	if err != nil {
		// The command context may already be gone; the failure mark
		// should land regardless.
		_ = cat.Complete(context.Background(), rec.ID, simulation.StatusFailed, nil)
		return err
	}
	elapsed := time.Since(start)

	if err := cat.Complete(ctx, rec.ID, simulation.StatusDone, sum.Metrics()); err != nil {
		return err
	}
	if _, err := simulation.SymlinkLatest(cfg.Out); err != nil {
		log := xlog.WithComponent("cli")
		log.Warn().Err(err).Msg("latest symlink not updated")
	}

	fmt.Printf("completed in %v\n", elapsed.Round(time.Millisecond))
	fmt.Printf("run id: %s\n", rec.ID)
	fmt.Printf("dir: %s\n", dir.Path)
	fmt.Println("\nmetrics:")
	printMetrics(sum.Metrics())
	return nil
}

// runScript executes a scenario file step by step. Each step is a full
// recorded run; a failing step stops the sequence.
func runScript(cmd *cobra.Command, args []string) error {
	s, err := config.LoadScenario(args[0])
	if err != nil {
		return err
	}

	first, err := s.StepConfig(0, cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	xlog.Configure(xlog.Config{Level: first.LogLevel, Console: true})

	if s.Name != "" {
		fmt.Printf("scenario %s: %d steps\n", s.Name, len(s.Steps))
	}
	for i := range s.Steps {
		cfg, err := s.StepConfig(i, cfgFile, cmd.Flags())
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("step %s: %w", s.Steps[i].Name, err)
		}
		fmt.Printf("\nstep %d/%d: %s\n", i+1, len(s.Steps), s.Steps[i].Name)
		if err := executeRun(cmd.Context(), cfg); err != nil {
			return fmt.Errorf("step %s: %w", s.Steps[i].Name, err)
		}
	}
	return nil
}

// runEnsembleSweep evolves the same configuration under consecutive
// seeds and reports aggregate statistics. Members are exploratory and
// are not recorded in the catalog.
func runEnsembleSweep(ctx context.Context, cfg *config.Config) error {
	rc, err := cfg.RunConfig()
	if err != nil {
		return err
	}
	baseSeed := cfg.Run.Seed

	fmt.Printf("ensemble: %d members, %d at a time\n", ensemble, parallel)
	start := time.Now()
	summaries, stats, err := simulation.RunEnsemble(ctx, ensemble, parallel, func(i int) (*simulation.Runner, error) {
		member := *cfg
		// Companion seeds are offset by one, so members are spaced by two.
		member.Run.Seed = baseSeed + int64(i)*2
		systems, br, err := buildSystems(&member)
		if err != nil {
			return nil, err
		}
		return simulation.NewRunner(systems, br, rc)
	})
	if err != nil {
		return err
	}
	fmt.Printf("completed in %v\n\n", time.Since(start).Round(time.Millisecond))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MEMBER\tSEED\tSTEPS\tE_DRIFT\tR50_PC\tBOUND")
	for i, s := range summaries {
		m := s.Metrics()
		fmt.Fprintf(w, "%d\t%d\t%d\t%.2e\t%.3g\t%.3f\n",
			i, baseSeed+int64(i)*2, s.Steps, m["e_drift_max"], m["r50_pc"], m["bound_frac"])
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println("\naggregate:")
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		st := stats[name]
		fmt.Printf("  %s: %.6g ± %.3g\n", name, st.Mean, st.Stddev)
	}
	return nil
}

// buildSystems samples every configured cluster and couples them
// through the bridge when the run needs one. Cluster pairs kick each
// other through their gravity codes; analytic partners kick everyone.
func buildSystems(cfg *config.Config) (*datamodel.Systems, *bridge.Bridge, error) {
	opts, err := cfg.ClusterOptions()
	if err != nil {
		return nil, nil, err
	}
	primary, err := ic.BuildCluster(opts)
	if err != nil {
		return nil, nil, err
	}
	members := []*datamodel.System{primary}

	if cfg.Companion != nil {
		copts, err := cfg.CompanionOptions()
		if err != nil {
			return nil, nil, err
		}
		companion, err := ic.BuildCluster(copts)
		if err != nil {
			return nil, nil, err
		}
		members = append(members, companion)
	}

	systems := datamodel.NewSystems()
	for _, sys := range members {
		if err := systems.Add(sys); err != nil {
			return nil, nil, err
		}
	}
	if !cfg.NeedsBridge() {
		return systems, nil, nil
	}

	step, err := cfg.BridgeStep()
	if err != nil {
		return nil, nil, err
	}
	fields, err := cfg.Fields()
	if err != nil {
		return nil, nil, err
	}
	names := systems.Names()
	deps := make(map[string][]string, len(names))
	for _, n := range names {
		for _, o := range names {
			if o != n {
				deps[n] = append(deps[n], o)
			}
		}
	}
	br, err := bridge.Couple(systems, deps, step, cfg.Run.Bridge.Threaded, fields...)
	if err != nil {
		return nil, nil, err
	}
	return systems, br, nil
}

func describeSystems(systems *datamodel.Systems) (int, map[string]string) {
	n := 0
	codes := make(map[string]string)
	systems.Each(func(s *datamodel.System) {
		n += s.Bodies.Len()
		if g := s.Gravity(); g != nil {
			codes[s.Name] = g.Name()
		}
	})
	return n, codes
}

func printMetrics(m map[string]float64) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %s: %.6g\n", name, m[name])
	}
}

// openCatalog fails early with a readable message when nothing has run
// at this output root yet.
func openCatalog(out string) (*simulation.Catalog, error) {
	if _, err := os.Stat(filepath.Join(out, simulation.CatalogName)); err != nil {
		return nil, fmt.Errorf("no catalog at %s, run something first", out)
	}
	return simulation.OpenCatalog(out)
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if _, err := os.Stat(filepath.Join(cfg.Out, simulation.CatalogName)); err != nil {
		fmt.Println("no runs recorded")
		return nil
	}
	cat, err := simulation.OpenCatalog(cfg.Out)
	if err != nil {
		return err
	}
	defer cat.Close()

	recs, err := cat.List(cmd.Context())
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Println("no runs recorded")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "NAME", "CREATED", "N", "T_END [Myr]", "SEED", "STATUS"})
	for _, r := range recs {
		t.AppendRow(table.Row{
			shortID(r.ID), r.Name,
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			r.N, fmt.Sprintf("%g", r.TEndMyr), r.Seed, r.Status,
		})
	}
	t.Render()
	fmt.Printf("(%d runs)\n", len(recs))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func runShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cat, err := openCatalog(cfg.Out)
	if err != nil {
		return err
	}
	defer cat.Close()

	rec, err := cat.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run %s (%s)\n", rec.ID, rec.Status)
	fmt.Printf("  name     %s\n", rec.Name)
	fmt.Printf("  created  %s\n", rec.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Printf("  dir      %s\n", rec.Dir)
	fmt.Printf("  bodies   %d\n", rec.N)
	fmt.Printf("  t_end    %g Myr\n", rec.TEndMyr)
	fmt.Printf("  seed     %d\n", rec.Seed)

	if man, err := simulation.ReadManifest(rec.Dir); err == nil && len(man.Codes) > 0 {
		names := make([]string, 0, len(man.Codes))
		for name := range man.Codes {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("  code     %s: %s\n", name, man.Codes[name])
		}
	}

	metrics, err := cat.Metrics(cmd.Context(), rec.ID)
	if err != nil {
		return err
	}
	if len(metrics) > 0 {
		fmt.Println("\nmetrics:")
		printMetrics(metrics)
	}
	return nil
}

func runPlot(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cat, err := openCatalog(cfg.Out)
	if err != nil {
		return err
	}
	defer cat.Close()

	rec, err := cat.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if snapshotIdx >= 0 {
		path := filepath.Join(rec.Dir, simulation.SnapshotsDir, fmt.Sprintf("%04d.csv", snapshotIdx))
		parts, err := simulation.ReadSnapshot(path)
		if err != nil {
			return err
		}
		grid, caption := plot.Scatter(parts, plot.ScatterOptions{Recenter: true})
		fmt.Println(grid)
		fmt.Println(caption)
		return nil
	}

	rows, err := simulation.ReadSeries(rec.Dir)
	if err != nil {
		return err
	}
	out, err := plot.DiagSeries(rows, plot.SeriesColumn(seriesName))
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

type exportTable struct {
	Columns []string    `json:"columns"`
	Rows    [][]float64 `json:"rows"`
}

type exportData struct {
	ID      string             `json:"id"`
	Name    string             `json:"name"`
	Status  string             `json:"status"`
	Dir     string             `json:"dir"`
	Seed    int64              `json:"seed"`
	N       int                `json:"n"`
	Codes   map[string]string  `json:"codes,omitempty"`
	Config  map[string]any     `json:"config,omitempty"`
	Metrics map[string]float64 `json:"metrics,omitempty"`
	Series  exportTable        `json:"series"`
	Bodies  exportTable        `json:"bodies"`
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cat, err := openCatalog(cfg.Out)
	if err != nil {
		return err
	}
	defer cat.Close()

	rec, err := cat.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	metrics, err := cat.Metrics(cmd.Context(), rec.ID)
	if err != nil {
		return err
	}

	data := exportData{
		ID:      rec.ID,
		Name:    rec.Name,
		Status:  rec.Status,
		Dir:     rec.Dir,
		Seed:    rec.Seed,
		N:       rec.N,
		Metrics: metrics,
	}
	if man, err := simulation.ReadManifest(rec.Dir); err == nil {
		data.Codes = man.Codes
		data.Config = man.Config
	}
	// A failed run may not have written a series or snapshot yet; export
	// what is there.
	if rows, err := simulation.ReadSeries(rec.Dir); err == nil {
		data.Series = seriesTable(rows)
	}
	if latest, err := simulation.LatestSnapshot(rec.Dir); err == nil {
		if parts, err := simulation.ReadSnapshot(latest); err == nil {
			data.Bodies = bodiesTable(parts)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func seriesTable(rows []simulation.DiagRow) exportTable {
	t := exportTable{Columns: []string{
		"time_myr", "n", "kinetic_j", "potential_j", "total_j",
		"virial_ratio", "r10_pc", "r50_pc", "r90_pc", "bound_frac",
	}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []float64{
			r.Time / units.Megayear.Scale, float64(r.N),
			r.Kinetic, r.Potential, r.Total, r.VirialRatio,
			r.R10 / units.Parsec.Scale, r.R50 / units.Parsec.Scale, r.R90 / units.Parsec.Scale,
			r.BoundFrac,
		})
	}
	return t
}

func bodiesTable(p *datamodel.Particles) exportTable {
	t := exportTable{Columns: []string{
		"key", "mass_kg", "radius_m", "x_m", "y_m", "z_m", "vx_ms", "vy_ms", "vz_ms",
	}}
	for i := 0; i < p.Len(); i++ {
		pt := p.At(i)
		t.Rows = append(t.Rows, []float64{
			float64(pt.Key), pt.Mass, pt.Radius,
			pt.Pos.X, pt.Pos.Y, pt.Pos.Z,
			pt.Vel.X, pt.Vel.Y, pt.Vel.Z,
		})
	}
	return t
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	rc, err := cfg.RunConfig()
	if err != nil {
		return err
	}
	systems, br, err := buildSystems(cfg)
	if err != nil {
		return err
	}
	runner, err := simulation.NewRunner(systems, br, rc)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	return tui.Run(tui.NewLive(ctx, cfg.Cluster.Name, runner))
}

func runWatch(cmd *cobra.Command, args []string) error {
	// Logs would draw over the alternate screen.
	xlog.Configure(xlog.Config{Level: "warn", Console: true})

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	m, err := tui.NewWatch(ctx, args[0])
	if err != nil {
		return err
	}
	return tui.Run(m)
}

func runLatest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	dir := cfg.Out
	if len(args) == 1 {
		dir = args[0]
	}
	target, err := simulation.SymlinkLatest(dir)
	if err != nil {
		return err
	}
	if target == "" {
		fmt.Println("no run directories found")
		return nil
	}
	fmt.Printf("latest -> %s\n", target)
	return nil
}

func runBench(cmd *cobra.Command, args []string) error {
	xlog.Configure(xlog.Config{Level: "warn", Console: true})
	ctx := cmd.Context()

	ns := []int{256, 1024, 4096}
	thetas := []float64{0.3, 0.6, 1.0}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tTHETA\tN\tSTEPS\tTIME\tBODY-STEPS/S")
	for _, n := range ns {
		elapsed, err := benchOne(ctx, "direct", 0, n)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "direct\t-\t%d\t%d\t%v\t%.0f\n",
			n, benchSteps, elapsed.Round(time.Millisecond), float64(n*benchSteps)/elapsed.Seconds())
		for _, theta := range thetas {
			elapsed, err := benchOne(ctx, "bhtree", theta, n)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "bhtree\t%.1f\t%d\t%d\t%v\t%.0f\n",
				theta, n, benchSteps, elapsed.Round(time.Millisecond), float64(n*benchSteps)/elapsed.Seconds())
		}
	}
	return w.Flush()
}

func benchOne(ctx context.Context, code string, theta float64, n int) (time.Duration, error) {
	opts := ic.ClusterOptions{
		Name:         "bench",
		N:            n,
		GravityCode:  code,
		OpeningAngle: theta,
		Timestep:     units.New(0.01, units.Megayear),
		Seed:         42,
	}
	sys, err := ic.BuildCluster(opts)
	if err != nil {
		return 0, err
	}
	g, ok := sys.Gravity().(gravity.Code)
	if !ok {
		return 0, fmt.Errorf("bench: no gravity code attached")
	}
	defer g.Stop()

	start := time.Now()
	if err := g.EvolveTo(ctx, float64(benchSteps)*opts.Timestep.SI()); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}

func runPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, name := range config.PresetNames() {
		fmt.Fprintf(w, "%s\t%s\n", name, config.Presets[name].Summary)
	}
	return w.Flush()
}
