package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/banshee-data/highway.planner/internal/config"
	"github.com/banshee-data/highway.planner/internal/db"
	"github.com/banshee-data/highway.planner/internal/highway"
	"github.com/banshee-data/highway.planner/internal/monitoring"
	"github.com/banshee-data/highway.planner/internal/report"
	"github.com/banshee-data/highway.planner/internal/scenario"
	"github.com/banshee-data/highway.planner/internal/units"
)

var (
	configFile = flag.String("config", config.DefaultConfigPath, "Path to the JSON tuning config")
	mapFile    = flag.String("map", "", "Waypoint file; empty uses a synthetic road (see -road)")
	road       = flag.String("road", "straight", "Synthetic road when -map is empty: 'straight' or 'loop'")
	name       = flag.String("name", "plan-sim", "Run name used for titles and the database notes")
	cycles     = flag.Int("cycles", 600, "Planning cycles to run")
	consume    = flag.Int("consume", 5, "Path points the ego drives between cycles")
	startS     = flag.Float64("start-s", 100, "Ego start position along the road (m)")
	startLane  = flag.Int("start-lane", 1, "Ego start lane")
	startSpeed = flag.Float64("start-speed", 0, "Ego start speed (m/s)")
	traffic    = flag.String("traffic", "", "Scripted traffic as lane:s:speed,... (speed in m/s)")
	outDir     = flag.String("out", "", "Directory for path.png, speed.png and speed.html (empty skips plots)")
	dbFile     = flag.String("db", "", "SQLite database to record the run into (empty disables)")
	speedUnits = flag.String("units", units.MPH, "Units for the speed line of the summary (mps, mph, kmph, kph)")
	debug      = flag.Bool("debug", false, "Log per-tick planner traces")
)

func main() {
	flag.Parse()

	if !units.IsValid(*speedUnits) {
		log.Fatalf("Invalid -units %q, expected one of %v", *speedUnits, units.ValidUnits)
	}
	monitoring.SetLogger(log.Printf)
	monitoring.SetDebug(*debug)

	tuning, err := config.LoadTuningConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load tuning config: %v", err)
	}
	m, err := loadRoad(*mapFile, *road, tuning.GetGoalS())
	if err != nil {
		log.Fatalf("Failed to load road: %v", err)
	}
	vehicles, err := scenario.ParseTraffic(*traffic, tuning.GetLaneWidth())
	if err != nil {
		log.Fatalf("Invalid -traffic: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := scenario.Config{
		Name:            *name,
		Tuning:          tuning,
		Map:             m,
		Cycles:          *cycles,
		ConsumePerCycle: *consume,
		StartS:          *startS,
		StartLane:       *startLane,
		StartSpeed:      *startSpeed,
		Traffic:         vehicles,
	}

	if *dbFile != "" {
		database, err := db.NewDB(*dbFile)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.Close()
		rec, err := database.StartRun(ctx, *name)
		if err != nil {
			log.Fatalf("Failed to start run: %v", err)
		}
		log.Printf("recording run %s", rec.RunID())
		cfg.Recorder = rec
	}

	res, err := scenario.Run(ctx, cfg)
	if err != nil {
		log.Fatalf("Scenario failed: %v", err)
	}
	fmt.Println(res.Summary)
	fmt.Printf("speed mean=%.1f max=%.1f %s\n",
		units.ConvertSpeed(res.Summary.MeanSpeed, *speedUnits),
		units.ConvertSpeed(res.Summary.MaxSpeed, *speedUnits), *speedUnits)

	if *outDir != "" {
		if err := writeReports(*outDir, res.Trace); err != nil {
			log.Fatalf("Failed to write reports: %v", err)
		}
		log.Printf("reports written to %s", *outDir)
	}
}

func loadRoad(path, kind string, goalS float64) (*highway.Map, error) {
	if path != "" {
		return highway.LoadMap(path, goalS)
	}
	switch kind {
	case "straight":
		return highway.StraightMap(goalS+1000, 30), nil
	case "loop":
		return highway.CircleMap(goalS/(2*math.Pi), 360), nil
	default:
		return nil, fmt.Errorf("unknown road %q", kind)
	}
}

func writeReports(dir string, tr report.Trace) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := report.PlotPath(tr, filepath.Join(dir, "path.png")); err != nil {
		return err
	}
	if err := report.PlotSpeed(tr, filepath.Join(dir, "speed.png")); err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(dir, "speed.html"))
	if err != nil {
		return err
	}
	if err := report.SpeedChart(tr, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
