// Command crowns delineates individual tree crowns in buffered LiDAR tiles.
//
// Each tile is a CSV file with X, Y, Z (height above ground) and Buffer
// columns. The labelled points are written as one CSV with a global cluster
// ID per point; crown summaries, plots and a sqlite run record are optional.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/banshee-data/canopy.report/internal/config"
	"github.com/banshee-data/canopy.report/internal/lidar/export"
	"github.com/banshee-data/canopy.report/internal/lidar/l1points"
	"github.com/banshee-data/canopy.report/internal/lidar/l3modes"
	"github.com/banshee-data/canopy.report/internal/lidar/l5identity"
	"github.com/banshee-data/canopy.report/internal/lidar/pipeline"
	"github.com/banshee-data/canopy.report/internal/lidar/report"
	"github.com/banshee-data/canopy.report/internal/lidar/storage/sqlite"
	"github.com/banshee-data/canopy.report/internal/monitoring"
	"github.com/banshee-data/canopy.report/internal/version"
)

// Config holds command-line options.
type Config struct {
	TilesDir   string
	ConfigPath string
	Output     string
	CrownsOut  string
	DBPath     string
	PlotPath   string
	HistPath   string
	HTMLPath   string
	Workers    int
	Variant    string
	Strategy   string
	Notes      string
	CompareTo  string
	MatchDist  float64
	List       bool
	DeleteRun  string
	Verbose    bool
	ShowBuild  bool
}

func main() {
	log.SetPrefix("[crowns] ")
	cfg := parseFlags()
	if cfg.ShowBuild {
		fmt.Println(version.String())
		return
	}
	log.Printf("crowns %s", version.String())

	if cfg.List || cfg.DeleteRun != "" {
		if cfg.DBPath == "" {
			log.Fatal("-list and -delete require -db")
		}
		if err := manageRuns(cfg); err != nil {
			log.Fatalf("Run management failed: %v", err)
		}
		return
	}

	paths := flag.Args()
	if cfg.TilesDir != "" {
		dirPaths, err := l1points.TilePaths(cfg.TilesDir)
		if err != nil {
			log.Fatalf("Failed to list tiles: %v", err)
		}
		paths = append(paths, dirPaths...)
	}
	if len(paths) == 0 {
		log.Fatal("no tiles given: pass -tiles <dir> or tile files as arguments")
	}
	if cfg.CompareTo != "" && cfg.DBPath == "" {
		log.Fatal("-compare requires -db")
	}

	monitoring.SetVerbose(cfg.Verbose)

	runCfg, err := loadRunConfig(cfg)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	tiles, err := l1points.LoadTiles(paths)
	if err != nil {
		log.Fatalf("Failed to load tiles: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := pipeline.Run(ctx, tiles, runCfg)
	if err != nil {
		log.Fatalf("Run failed: %v", err)
	}

	if err := export.WriteDetectionsFile(cfg.Output, res.Detections); err != nil {
		log.Fatalf("Failed to write output: %v", err)
	}
	log.Printf("Wrote %d labelled points to %s", len(res.Detections), cfg.Output)

	if cfg.CrownsOut != "" {
		if err := export.WriteCrownsFile(cfg.CrownsOut, res.Crowns); err != nil {
			log.Fatalf("Failed to write crowns: %v", err)
		}
		log.Printf("Wrote %d crowns to %s", len(res.Crowns), cfg.CrownsOut)
	}

	if cfg.PlotPath != "" {
		o := report.DefaultPlotOptions()
		o.Title = fmt.Sprintf("%d crowns from %d tiles", len(res.Crowns), len(tiles))
		if err := report.WriteCrownPlot(cfg.PlotPath, res.Detections, res.Crowns, o); err != nil {
			log.Printf("Warning: failed to write plot: %v", err)
		}
	}

	if cfg.HistPath != "" {
		o := report.DefaultPlotOptions()
		o.Title = "Crown P95 height"
		if err := report.WriteHeightHistogram(cfg.HistPath, res.Crowns, 20, o); err != nil {
			log.Printf("Warning: failed to write histogram: %v", err)
		}
	}

	if cfg.HTMLPath != "" {
		if err := writeChart(cfg.HTMLPath, res); err != nil {
			log.Printf("Warning: failed to write chart: %v", err)
		}
	}

	if cfg.DBPath != "" {
		runID, err := saveRun(cfg, runCfg, res)
		if err != nil {
			log.Fatalf("Failed to save run: %v", err)
		}
		log.Printf("Saved run %s to %s", runID, cfg.DBPath)
		if cfg.CompareTo != "" {
			if err := compareRuns(cfg, runID); err != nil {
				log.Fatalf("Compare failed: %v", err)
			}
		}
	}

	printStats(res.Stats)
}

func parseFlags() Config {
	cfg := Config{}

	flag.StringVar(&cfg.TilesDir, "tiles", "", "Directory of tile CSV files (*.csv, *.csv.zst)")
	flag.StringVar(&cfg.ConfigPath, "config", "", "Tuning config JSON (default: built-in defaults)")
	flag.StringVar(&cfg.Output, "output", "crowns_labelled.csv", "Labelled point output (.csv or .csv.zst)")
	flag.StringVar(&cfg.CrownsOut, "crowns", "", "Crown summary output (.csv or .json, optional .zst)")
	flag.StringVar(&cfg.DBPath, "db", "", "SQLite database to record the run in")
	flag.StringVar(&cfg.PlotPath, "plot", "", "Plan-view plot output (.png, .svg, .pdf)")
	flag.StringVar(&cfg.HistPath, "histogram", "", "Crown height histogram output (.png, .svg, .pdf)")
	flag.StringVar(&cfg.HTMLPath, "html", "", "Interactive HTML chart output")
	flag.IntVar(&cfg.Workers, "workers", 0, "Worker count (overrides frac_cores when > 0)")
	flag.StringVar(&cfg.Variant, "version", "", "Mode-seeking variant override: classic, voxel")
	flag.StringVar(&cfg.Strategy, "id-strategy", "", "Identity strategy override: exact, distance, distance_kdtree")
	flag.StringVar(&cfg.Notes, "notes", "", "Free-text notes stored with the run")
	flag.StringVar(&cfg.CompareTo, "compare", "", "Run ID in -db to compare the new run against")
	flag.Float64Var(&cfg.MatchDist, "match-dist", 1.5, "Crown centre distance (m) for -compare matching")
	flag.BoolVar(&cfg.List, "list", false, "List recent runs in -db and exit")
	flag.StringVar(&cfg.DeleteRun, "delete", "", "Delete a run from -db and exit")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "Enable verbose logging")
	flag.BoolVar(&cfg.ShowBuild, "build-info", false, "Print build information and exit")

	flag.Parse()

	return cfg
}

// loadRunConfig reads the tuning file (or defaults) and applies flag overrides.
func loadRunConfig(cfg Config) (pipeline.Config, error) {
	tc := config.DefaultTuningConfig()
	if cfg.ConfigPath != "" {
		loaded, err := config.LoadTuningConfig(cfg.ConfigPath)
		if err != nil {
			return pipeline.Config{}, err
		}
		tc = loaded
	}

	runCfg, err := pipeline.ConfigFromTuning(tc)
	if err != nil {
		return pipeline.Config{}, err
	}
	if cfg.Variant != "" {
		if runCfg.Tile.Variant, err = l3modes.ParseVariant(cfg.Variant); err != nil {
			return pipeline.Config{}, err
		}
	}
	if cfg.Strategy != "" {
		if runCfg.Strategy, err = l5identity.ParseStrategy(cfg.Strategy); err != nil {
			return pipeline.Config{}, err
		}
	}
	if cfg.Workers > 0 {
		runCfg.Workers = cfg.Workers
	}
	return runCfg, nil
}

func writeChart(path string, res *pipeline.Result) (err error) {
	wc, err := export.CreateFile(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := wc.Close(); err == nil {
			err = cerr
		}
	}()
	return report.WriteCrownChart(wc, res.Detections, res.Crowns, report.ChartOptions{
		Title:     "Tree crowns",
		MaxPoints: 100_000,
	})
}

func saveRun(cfg Config, runCfg pipeline.Config, res *pipeline.Result) (string, error) {
	db, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return "", err
	}
	defer db.Close()

	s := res.Stats
	run := &sqlite.Run{
		Params:       sqlite.NewRunParams(runCfg.Tile, runCfg.Strategy, runCfg.Eps),
		Tiles:        s.Tiles,
		Workers:      s.Workers,
		InputPoints:  s.Input,
		GroundPoints: s.Ground,
		Detections:   s.Kept,
		NonConverged: s.NonConverged,
		Clusters:     s.Clusters,
		ElapsedNanos: s.Elapsed.Nanoseconds(),
		Notes:        cfg.Notes,
	}
	if err := sqlite.NewRunStore(db.DB).Insert(run, res.Detections, res.Crowns); err != nil {
		return "", err
	}
	return run.RunID, nil
}

func compareRuns(cfg Config, runID string) error {
	db, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	cmp, err := sqlite.NewRunStore(db.DB).Compare(cfg.CompareTo, runID, cfg.MatchDist)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(cmp)
}

// manageRuns handles -delete and -list against an existing database.
func manageRuns(cfg Config) error {
	db, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	store := sqlite.NewRunStore(db.DB)

	if cfg.DeleteRun != "" {
		if err := store.Delete(cfg.DeleteRun); err != nil {
			return err
		}
		log.Printf("Deleted run %s", cfg.DeleteRun)
	}
	if !cfg.List {
		return nil
	}

	runs, err := store.List(50)
	if err != nil {
		return err
	}
	fmt.Printf("%-36s  %-20s  %-7s  %6s  %10s  %8s  %s\n", "RUN", "CREATED", "VARIANT", "H2CW", "DETECTIONS", "CLUSTERS", "NOTES")
	for _, r := range runs {
		created := time.Unix(0, r.CreatedAt).Format("2006-01-02 15:04:05")
		fmt.Printf("%-36s  %-20s  %-7s  %6.3f  %10d  %8d  %s\n",
			r.RunID, created, r.Params.Seek.Variant, r.Params.Kernel.H2CW, r.Detections, r.Clusters, r.Notes)
	}
	return nil
}

func printStats(s pipeline.Stats) {
	fmt.Println(strings.Repeat("=", 48))
	fmt.Printf("Tiles:          %d (workers=%d)\n", s.Tiles, s.Workers)
	fmt.Printf("Input points:   %d\n", s.Input)
	fmt.Printf("Ground removed: %d\n", s.Ground)
	fmt.Printf("Detections:     %d\n", s.Kept)
	fmt.Printf("Non-converged:  %d\n", s.NonConverged)
	fmt.Printf("Clusters:       %d\n", s.Clusters)
	fmt.Printf("Elapsed:        %s\n", s.Elapsed)
	fmt.Println(strings.Repeat("=", 48))
}
