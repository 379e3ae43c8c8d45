package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/hotspot.report/internal/api"
	"github.com/banshee-data/hotspot.report/internal/config"
	"github.com/banshee-data/hotspot.report/internal/db"
	"github.com/banshee-data/hotspot.report/internal/fsutil"
	"github.com/banshee-data/hotspot.report/internal/hotspot"
	"github.com/banshee-data/hotspot.report/internal/ingest"
	"github.com/banshee-data/hotspot.report/internal/render"
	"github.com/banshee-data/hotspot.report/internal/security"
	"github.com/banshee-data/hotspot.report/internal/timeutil"
	"github.com/banshee-data/hotspot.report/internal/version"
)

// Exit codes.
const (
	exitOK    = 0
	exitInput = 1
	exitUsage = 2
)

type options struct {
	params     string
	saveParams string
	dbPath     string
	chart      string
	plot       string
	workers    int
	serve      string
	source     string
	ttl        time.Duration
	assetsHost string
	logDiag    bool
	version    bool
}

func parseFlags(args []string, stderr io.Writer) (*options, []string, error) {
	o := &options{}
	fs := flag.NewFlagSet("hotspot", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.params, "params", "", "Path to a JSON engine parameter file")
	fs.StringVar(&o.saveParams, "save-params", "", "Write the effective engine parameters to this JSON file")
	fs.StringVar(&o.dbPath, "db", "", "SQLite database for hotspot snapshots")
	fs.StringVar(&o.chart, "chart", "", "Write an HTML cluster overlay to this file")
	fs.StringVar(&o.plot, "plot", "", "Write a PNG cluster overlay to this file")
	fs.IntVar(&o.workers, "workers", 0, "Incident types clustered concurrently (0 = GOMAXPROCS)")
	fs.StringVar(&o.serve, "serve", "", "Serve hotspots over HTTP on this address instead of running once")
	fs.StringVar(&o.source, "source", "", "Report file or http(s) URL (JSON or .csv) re-read by -serve")
	fs.DurationVar(&o.ttl, "ttl", api.DefaultCacheTTL, "How long -serve reuses a computed snapshot")
	fs.StringVar(&o.assetsHost, "assets-host", "", "Override the echarts asset host for chart pages")
	fs.BoolVar(&o.logDiag, "log-diag", false, "Write diagnostic logs to stderr")
	fs.BoolVar(&o.version, "version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return o, fs.Args(), nil
}

func setupLogging(stderr io.Writer, logDiag bool) {
	var diag io.Writer
	if logDiag {
		diag = stderr
	}
	hotspot.SetLogWriters(stderr, diag, nil)
	ingest.SetLogWriters(stderr, diag, nil)
	db.SetLogWriters(stderr, diag, nil)
	api.SetLogWriters(stderr, diag, nil)
}

func run(args []string, stdout, stderr io.Writer) int {
	o, rest, err := parseFlags(args, stderr)
	if err != nil {
		return exitUsage
	}
	if o.version {
		fmt.Fprintln(stdout, version.String())
		return exitOK
	}
	setupLogging(stderr, o.logDiag)

	for _, out := range []string{o.saveParams, o.chart, o.plot} {
		if out == "" {
			continue
		}
		if err := security.ValidateOutputPath(out); err != nil {
			fmt.Fprintf(stderr, "invalid output path: %v\n", err)
			return exitUsage
		}
	}

	fsys := fsutil.OSFileSystem{}
	cfg := hotspot.DefaultConfig()
	if o.params != "" {
		p, err := config.LoadParams(fsys, o.params)
		if err != nil {
			fmt.Fprintf(stderr, "failed to load params: %v\n", err)
			return exitUsage
		}
		cfg = p.EngineConfig()
	}
	if o.saveParams != "" {
		if err := config.SaveParams(fsys, o.saveParams, cfg); err != nil {
			fmt.Fprintf(stderr, "failed to save params: %v\n", err)
			return exitUsage
		}
	}

	var engineOpts []hotspot.Option
	if o.workers > 0 {
		engineOpts = append(engineOpts, hotspot.WithWorkers(o.workers))
	}
	engine := hotspot.NewEngine(cfg, engineOpts...)

	if o.serve != "" {
		if err := serve(o, engine, stderr); err != nil {
			fmt.Fprintf(stderr, "%v\n", err)
			return exitUsage
		}
		return exitOK
	}
	return runOnce(o, engine, rest, fsys, stdout, stderr)
}

// runOnce clusters the report data found in args and prints the result.
func runOnce(o *options, engine *hotspot.Engine, args []string, fsys fsutil.FileSystem, stdout, stderr io.Writer) int {
	now := timeutil.RealClock{}.Now()

	in, err := ingest.ResolveInput(args, fsys)
	if err != nil {
		return fail(stdout, stderr, err)
	}
	reports, err := in.Reports(now)
	var shape *ingest.DataShapeError
	switch {
	case errors.As(err, &shape):
		fmt.Fprintf(stderr, "malformed report data in %s: %v\n", in.Source, err)
		fmt.Fprintln(stdout, "[]")
		return exitOK
	case err != nil:
		return fail(stdout, stderr, err)
	}

	clusters, stats := engine.RunWithStats(reports)
	if clusters == nil {
		clusters = []hotspot.Cluster{}
	}
	out, err := json.Marshal(clusters)
	if err != nil {
		return fail(stdout, stderr, fmt.Errorf("failed to encode clusters: %w", err))
	}
	fmt.Fprintln(stdout, string(out))

	// Side outputs never change the printed result or the exit code.
	if o.dbPath != "" {
		storeSnapshot(o.dbPath, &db.Snapshot{
			CreatedAt:   stats.Now,
			ReportCount: len(reports),
			Params:      engine.Config(),
			Clusters:    clusters,
			Stats:       stats,
		}, stderr)
	}
	if o.chart != "" {
		if err := writeChart(fsys, o.chart, clusters, reports, o.assetsHost); err != nil {
			fmt.Fprintf(stderr, "failed to write chart: %v\n", err)
		}
	}
	if o.plot != "" {
		if err := render.SavePlot(o.plot, clusters, reports, "Incident Hotspots"); err != nil {
			fmt.Fprintf(stderr, "failed to write plot: %v\n", err)
		}
	}
	return exitOK
}

// fail applies the failed-invocation contract: a JSON error object on
// stderr and an empty array on stdout.
func fail(stdout, stderr io.Writer, err error) int {
	msg, _ := json.Marshal(map[string]string{"error": err.Error()})
	fmt.Fprintln(stderr, string(msg))
	fmt.Fprintln(stdout, "[]")
	return exitInput
}

func storeSnapshot(path string, snap *db.Snapshot, stderr io.Writer) {
	store, err := db.NewDB(path)
	if err != nil {
		fmt.Fprintf(stderr, "failed to open snapshot database: %v\n", err)
		return
	}
	defer store.Close()
	if err := store.SaveSnapshot(context.Background(), snap); err != nil {
		fmt.Fprintf(stderr, "failed to store snapshot: %v\n", err)
	}
}

func writeChart(fsys fsutil.FileSystem, path string, clusters []hotspot.Cluster, reports []hotspot.Report, assetsHost string) error {
	var buf bytes.Buffer
	opts := render.ChartOptions{Title: "Incident Hotspots", AssetsHost: assetsHost}
	if err := render.Chart(&buf, clusters, reports, opts); err != nil {
		return err
	}
	return fsys.WriteFile(path, buf.Bytes(), 0o644)
}

// serve runs the hotspot HTTP service until SIGINT or SIGTERM.
func serve(o *options, engine *hotspot.Engine, stderr io.Writer) error {
	if o.source == "" {
		return errors.New("-serve requires -source")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svcOpts := []api.ServiceOption{api.WithTTL(o.ttl)}
	var store *db.DB
	if o.dbPath != "" {
		var err error
		store, err = db.NewDB(o.dbPath)
		if err != nil {
			return fmt.Errorf("failed to open snapshot database: %w", err)
		}
		defer store.Close()
		svcOpts = append(svcOpts, api.WithStore(store))
	}

	var source api.ReportSource = ingest.NewFileSource(o.source)
	if ingest.IsURL(o.source) {
		source = ingest.NewHTTPSource(o.source, &http.Client{Timeout: time.Minute})
	}
	svc := api.NewHotspotService(engine, source, svcOpts...)

	var srv *api.Server
	if store != nil {
		srv = api.NewServer(svc, store)
	} else {
		srv = api.NewServer(svc, nil)
	}
	srv.SetAssetsHost(o.assetsHost)

	mux := srv.ServeMux()
	if store != nil {
		if err := store.AttachAdminRoutes(mux); err != nil {
			return fmt.Errorf("failed to attach admin routes: %w", err)
		}
	}

	server := &http.Server{
		Addr:              o.serve,
		Handler:           api.LoggingMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()
	fmt.Fprintf(stderr, "serving hotspots from %s on %s\n", o.source, o.serve)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		// Force close the server if graceful shutdown fails
		if cerr := server.Close(); cerr != nil {
			return fmt.Errorf("HTTP server force close error: %w", cerr)
		}
		return fmt.Errorf("HTTP server shutdown error: %w", err)
	}
	return nil
}
