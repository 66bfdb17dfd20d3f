// Command sweep runs crown delineation over a grid of allometry settings
// and writes one summary row per setting.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/banshee-data/canopy.report/internal/config"
	"github.com/banshee-data/canopy.report/internal/lidar/export"
	"github.com/banshee-data/canopy.report/internal/lidar/l1points"
	"github.com/banshee-data/canopy.report/internal/lidar/l3modes"
	"github.com/banshee-data/canopy.report/internal/lidar/pipeline"
	"github.com/banshee-data/canopy.report/internal/lidar/storage/sqlite"
	"github.com/banshee-data/canopy.report/internal/lidar/sweep"
	"github.com/banshee-data/canopy.report/internal/monitoring"
)

func main() {
	log.SetPrefix("[sweep] ")

	tilesDir := flag.String("tiles", "", "Directory of tile CSV files (*.csv, *.csv.zst)")
	configPath := flag.String("config", "", "Base tuning config JSON (default: built-in defaults)")
	h2cwSpec := flag.String("h2cw", "0.2:0.4:0.05", "h2cw values: comma list or min:max:step")
	h2clSpec := flag.String("h2cl", "", "h2cl values: comma list or min:max:step (default: base value)")
	variantsSpec := flag.String("versions", "classic", "Comma-separated mode-seeking variants")
	output := flag.String("output", "sweep_results.csv", "Summary CSV output (.csv or .csv.zst)")
	dbPath := flag.String("db", "", "SQLite database to record every sweep run in")
	verbose := flag.Bool("verbose", false, "Enable verbose logging")
	flag.Parse()

	if *tilesDir == "" {
		log.Fatal("-tiles is required")
	}
	monitoring.SetVerbose(*verbose)

	tc := config.DefaultTuningConfig()
	if *configPath != "" {
		loaded, err := config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		tc = loaded
	}
	base, err := pipeline.ConfigFromTuning(tc)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	h2cw, err := sweep.ParseParamList(*h2cwSpec)
	if err != nil {
		log.Fatalf("Invalid -h2cw: %v", err)
	}
	h2cl, err := sweep.ParseParamList(*h2clSpec)
	if err != nil {
		log.Fatalf("Invalid -h2cl: %v", err)
	}
	var variants []l3modes.Variant
	for _, s := range strings.Split(*variantsSpec, ",") {
		v, err := l3modes.ParseVariant(s)
		if err != nil {
			log.Fatalf("Invalid -versions: %v", err)
		}
		variants = append(variants, v)
	}

	paths, err := l1points.TilePaths(*tilesDir)
	if err != nil {
		log.Fatalf("Failed to list tiles: %v", err)
	}
	tiles, err := l1points.LoadTiles(paths)
	if err != nil {
		log.Fatalf("Failed to load tiles: %v", err)
	}

	out, err := export.CreateFile(*output)
	if err != nil {
		log.Fatalf("Failed to create output: %v", err)
	}
	defer out.Close()
	w, err := sweep.NewCSVWriter(out)
	if err != nil {
		log.Fatalf("Failed to write header: %v", err)
	}

	var store *sqlite.RunStore
	if *dbPath != "" {
		db, err := sqlite.Open(*dbPath)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer db.Close()
		store = sqlite.NewRunStore(db.DB)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	combos := sweep.Grid(base.Tile.Seek.Kernel, h2cw, h2cl, variants)
	log.Printf("Sweeping %d combinations over %d tiles", len(combos), len(tiles))

	runner := &sweep.Runner{
		Base:  base,
		Tiles: tiles,
		OnResult: func(r sweep.Result) {
			if err := w.WriteResult(r); err != nil {
				log.Printf("Warning: failed to write result: %v", err)
			}
			if store == nil || r.Skipped {
				return
			}
			p := base.Tile
			p.Seek.Kernel.H2CW, p.Seek.Kernel.H2CL, p.Variant = r.H2CW, r.H2CL, r.Variant
			run := &sqlite.Run{
				Params:       sqlite.NewRunParams(p, base.Strategy, base.Eps),
				Tiles:        len(tiles),
				Workers:      base.Workers,
				Detections:   r.Detections,
				NonConverged: r.NonConverged,
				Clusters:     r.Clusters,
				ElapsedNanos: r.Elapsed.Nanoseconds(),
				Notes:        "sweep",
			}
			if err := store.Insert(run, nil, nil); err != nil {
				log.Printf("Warning: failed to record run: %v", err)
			}
		},
	}
	if _, err := runner.Run(ctx, combos); err != nil {
		log.Printf("Sweep stopped: %v", err)
		return
	}
	log.Printf("Results written to %s", *output)
}
