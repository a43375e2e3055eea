package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/highway.planner/internal/config"
	"github.com/banshee-data/highway.planner/internal/db"
	"github.com/banshee-data/highway.planner/internal/highway"
	"github.com/banshee-data/highway.planner/internal/monitoring"
	"github.com/banshee-data/highway.planner/internal/planner"
	"github.com/banshee-data/highway.planner/internal/report"
	"github.com/banshee-data/highway.planner/internal/simbridge"
	"github.com/banshee-data/highway.planner/internal/trajectory"
	"github.com/banshee-data/highway.planner/internal/version"
)

var (
	configFile  = flag.String("config", config.DefaultConfigPath, "Path to the JSON tuning config")
	mapFile     = flag.String("map", "data/highway_map.csv", "Waypoint file (x y s dx dy per line)")
	listen      = flag.String("listen", ":4567", "Simulator websocket listen address")
	debugListen = flag.String("debug-listen", ":8080", "Debug HTTP listen address (empty disables)")
	dbFile      = flag.String("db", "", "SQLite database for cycle records (empty disables recording)")
	debug       = flag.Bool("debug", false, "Log per-tick planner traces")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println("planner", version.String())
		return
	}
	if flag.Arg(0) == "migrate" {
		if *dbFile == "" {
			log.Fatal("migrate requires -db")
		}
		if err := db.RunMigrateCommand(flag.Args()[1:], *dbFile, os.Stdout); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		return
	}
	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	monitoring.SetLogger(log.Printf)
	monitoring.SetDebug(*debug)

	tuning, err := config.LoadTuningConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load tuning config: %v", err)
	}
	road, err := highway.LoadMap(*mapFile, tuning.GetGoalS())
	if err != nil {
		log.Fatalf("Failed to load map: %v", err)
	}
	log.Printf("loaded %d waypoints from %s (track length %.1fm)", road.Len(), *mapFile, road.MaxS())

	var database *db.DB
	if *dbFile != "" {
		database, err = db.NewDB(*dbFile)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.Close()
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bridge := simbridge.NewServer(func() (*planner.Planner, error) {
		cfg := planner.Config{Tuning: tuning, Lookup: road}
		if database != nil {
			rec, err := database.StartRun(ctx, "simulator session")
			if err != nil {
				return nil, err
			}
			log.Printf("recording run %s", rec.RunID())
			cfg.Recorder = rec
		}
		return planner.New(cfg)
	})

	wg.Add(1)
	go func() {
		defer wg.Done()
		serve(ctx, "simulator", *listen, bridge)
	}()

	if *debugListen != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"status": "ok", "service": "planner", "connections": %d, "cycles": %d}`,
				bridge.ActiveConnections(), bridge.Cycles())
		})
		if database != nil {
			if err := database.AttachAdminRoutes(mux); err != nil {
				log.Fatalf("failed to attach admin routes: %v", err)
			}
			mux.HandleFunc("/debug/speed", speedChartHandler(database))
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			serve(ctx, "debug", *debugListen, mux)
		}()
	}

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}

// serve runs an HTTP server on addr until ctx is cancelled.
func serve(ctx context.Context, name, addr string, h http.Handler) {
	server := &http.Server{
		Addr:    addr,
		Handler: h,
	}

	go func() {
		log.Printf("Starting %s server on %s", name, addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start %s server: %v", name, err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down %s server...", name)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("%s server shutdown error: %v", name, err)
		if err := server.Close(); err != nil {
			log.Printf("%s server force close error: %v", name, err)
		}
	}
	log.Printf("%s server stopped", name)
}

// speedChartHandler renders the most recent cycles of a run (?run=ID, the
// latest run by default) as an interactive chart.
func speedChartHandler(database *db.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runID := r.URL.Query().Get("run")
		if runID == "" {
			runs, err := database.ListRuns(r.Context(), 1)
			if err != nil {
				http.Error(w, fmt.Sprintf("Failed to list runs: %v", err), http.StatusInternalServerError)
				return
			}
			if len(runs) == 0 {
				http.Error(w, "no runs recorded", http.StatusNotFound)
				return
			}
			runID = runs[0].RunID
		}
		recs, err := database.RecentCycles(r.Context(), runID, 2000)
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to load cycles: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := report.SpeedChart(cycleTrace("run "+runID, recs), w); err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
		}
	}
}

// cycleTrace converts persisted cycle records into a chartable trace. T is
// the cycle number.
func cycleTrace(title string, recs []planner.CycleRecord) report.Trace {
	tr := report.Trace{Title: title}
	for _, rec := range recs {
		tr.Samples = append(tr.Samples, report.Sample{
			T:       float64(rec.Cycle),
			Speed:   rec.Speed,
			Target:  rec.TargetSpeed,
			Lane:    rec.Lane,
			Braking: rec.Braking != trajectory.BrakeNone.String(),
		})
	}
	return tr
}
