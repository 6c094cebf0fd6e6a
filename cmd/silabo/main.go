// Package main is the silabo CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/hyperjump/silabo/internal/calendar"
	"github.com/hyperjump/silabo/internal/cli"
	"github.com/hyperjump/silabo/internal/config"
	"github.com/hyperjump/silabo/internal/extract"
	"github.com/hyperjump/silabo/internal/keyword"
	"github.com/hyperjump/silabo/internal/models"
	"github.com/hyperjump/silabo/internal/pipeline"
	"github.com/hyperjump/silabo/internal/server"
	"github.com/hyperjump/silabo/internal/storage"
	"github.com/hyperjump/silabo/internal/watcher"
	"github.com/hyperjump/silabo/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/silabo/config.yaml"

// loadConfig loads config from path. When path is the default, a config.yaml in
// the current directory takes precedence so the CLI can be run from a project dir.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, err := os.Stat(fallback); err == nil {
				path = fallback
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	args := os.Args[2:]
	switch command {
	case "process":
		runProcess(args)
	case "watch":
		runWatch(args)
	case "server":
		runServer(args)
	case "search":
		runSearch(args)
	case "calendar":
		runCalendar(args)
	case "status":
		runStatus(args)
	case "version", "--version", "-v":
		fmt.Printf("silabo version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func fatalf(format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}

// setup loads the config and builds the logger shared by every command.
func setup(configPath string, debug bool) (*config.Config, *zap.Logger) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	debugMode := cfg.Debug || debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fatalf("Failed to create logger: %v", err)
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debugMode))
	return cfg, logger
}

func parseFormat(s string) cli.OutputFormat {
	format, err := cli.ParseOutputFormat(s)
	if err != nil {
		fatalf("%v", err)
	}
	return format
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runProcess(args []string) {
	fs := pflag.NewFlagSet("process", pflag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	workers := fs.Int("workers", 0, "number of documents processed in parallel (default from config)")
	skipUnchanged := fs.Bool("skip-unchanged", false, "skip syllabi unchanged since the last run (default from config)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(args)
	format := parseFormat(*outputFormat)

	cfg, logger := setup(*configPath, *debug)
	defer logger.Sync()
	if *workers > 0 {
		cfg.Pipeline.Workers = *workers
	}
	if fs.Changed("skip-unchanged") {
		cfg.Pipeline.SkipUnchanged = *skipUnchanged
	}

	roots := fs.Args()
	if len(roots) == 0 {
		roots = cfg.Input.Directories
	}
	if len(roots) == 0 {
		fatalf("No input: pass files or directories, or set input.directories in the config")
	}

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	paths, err := collectPaths(roots, cfg.Input.RecursiveOrDefault(), cfg.Input.Extensions)
	if err != nil {
		fatalf("%v", err)
	}

	ctx, cancel := signalContext()
	defer cancel()
	summary, err := components.Pipeline.ProcessBatch(ctx, paths)
	if summary != nil {
		if werr := cli.WriteSummary(os.Stdout, summary, format); werr != nil {
			fatalf("Output failed: %v", werr)
		}
	}
	if err != nil {
		fatalf("Processing failed: %v", err)
	}
}

// collectPaths expands directories into the syllabi they contain and keeps
// file arguments as given.
func collectPaths(roots []string, recursive bool, exts []string) ([]string, error) {
	var paths []string
	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, root)
			continue
		}
		found, err := pipeline.Discover(root, recursive, exts)
		if err != nil {
			return nil, err
		}
		paths = append(paths, found...)
	}
	return paths, nil
}

// startWatcher runs an initial batch over the input directories and then
// follows them for changes.
func startWatcher(ctx context.Context, cfg *config.Config, components *Components, logger *zap.Logger) (*watcher.Watcher, error) {
	dirs := cfg.Input.Directories
	if len(dirs) == 0 {
		return nil, errors.New("input.directories is empty")
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	summary, err := components.Pipeline.ProcessDirectory(ctx, dirs...)
	if err != nil {
		return nil, err
	}
	logger.Info("initial sync finished",
		zap.Int("processed", summary.Processed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed))

	w := watcher.New(dirs, watcher.NewPipelineHandler(components.Pipeline, logger),
		watcher.WithLogger(logger),
		watcher.WithExtensions(cfg.Input.Extensions),
		watcher.WithRecursive(cfg.Input.RecursiveOrDefault()),
	)
	if err := w.Start(ctx); err != nil {
		return nil, err
	}
	return w, nil
}

func runWatch(args []string) {
	fs := pflag.NewFlagSet("watch", pflag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(args)

	cfg, logger := setup(*configPath, *debug)
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx, cancel := signalContext()
	defer cancel()
	w, err := startWatcher(ctx, cfg, components, logger)
	if err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	<-ctx.Done()
	logger.Info("Shutting down...")
	w.Stop()
}

func runServer(args []string) {
	fs := pflag.NewFlagSet("server", pflag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	watch := fs.Bool("watch", true, "watch input.directories while serving")
	_ = fs.Parse(args)

	cfg, logger := setup(*configPath, *debug)
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx, cancel := signalContext()
	defer cancel()

	var w *watcher.Watcher
	if *watch && len(cfg.Input.Directories) > 0 {
		w, err = startWatcher(ctx, cfg, components, logger)
		if err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
	}

	srv := server.NewServer(components.Repo, components.Index, components.Pipeline, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")
	if w != nil {
		w.Stop()
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

// buildSearchQuery joins positional arguments into one query string.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func runSearch(args []string) {
	fs := pflag.NewFlagSet("search", pflag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct index mode)")
	serverURL := fs.String("server", "", "server URL; empty searches the local index directly")
	limit := fs.Int("limit", 10, "number of results")
	period := fs.String("period", "", "restrict results to one academic period (YYYY-T)")
	fuzzy := fs.Bool("fuzzy", false, "enable fuzzy matching for typo tolerance")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: silabo search [flags] <query>\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(args)
	format := parseFormat(*outputFormat)

	query := &models.SearchQuery{
		Query:        buildSearchQuery(fs.Args()),
		Limit:        *limit,
		Period:       *period,
		FuzzyEnabled: *fuzzy,
	}
	if query.Query == "" {
		fs.Usage()
		os.Exit(1)
	}

	var (
		response *models.SearchResponse
		err      error
	)
	if *serverURL != "" {
		// The server holds the index lock; go through its API.
		response, err = searchViaHTTP(*serverURL, query)
	} else {
		cfg, logger := setup(*configPath, false)
		defer logger.Sync()
		var idx *keyword.BleveIndex
		idx, err = keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
		if err != nil {
			fatalf("Failed to open index: %v", err)
		}
		defer idx.Close()
		response, err = idx.Search(context.Background(), query)
	}
	if err != nil {
		fatalf("Search failed: %v", err)
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func searchViaHTTP(serverURL string, query *models.SearchQuery) (*models.SearchResponse, error) {
	params := url.Values{}
	params.Set("q", query.Query)
	if query.Limit > 0 {
		params.Set("limit", strconv.Itoa(query.Limit))
	}
	if query.Period != "" {
		params.Set("period", query.Period)
	}
	if query.FuzzyEnabled {
		params.Set("fuzzy", "true")
	}
	var response models.SearchResponse
	if err := getJSON(strings.TrimRight(serverURL, "/")+"/api/v1/search?"+params.Encode(), &response); err != nil {
		return nil, err
	}
	return &response, nil
}

func getJSON(target string, v interface{}) error {
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Get(target)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func runCalendar(args []string) {
	fs := pflag.NewFlagSet("calendar", pflag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	out := fs.StringP("out", "o", "", "workbook path (default output.calendar_path)")
	period := fs.String("period", "", "only include courses of this period")
	_ = fs.Parse(args)

	cfg, logger := setup(*configPath, false)
	defer logger.Sync()
	path := *out
	if path == "" {
		path = cfg.Output.CalendarPath
	}
	if path == "" {
		fatalf("No output path: pass --out or set output.calendar_path")
	}

	repo, err := storage.NewJSONRepository(cfg.Output.JSONDir)
	if err != nil {
		fatalf("Failed to open course directory: %v", err)
	}
	resolver, err := calendar.FromConfig(cfg.Periods)
	if err != nil {
		fatalf("Invalid period table: %v", err)
	}

	ctx := context.Background()
	var records []*models.CourseRecord
	if *period != "" {
		records, err = repo.FindByPeriod(ctx, *period)
	} else {
		records, err = repo.List(ctx)
	}
	if err != nil {
		fatalf("Failed to read courses: %v", err)
	}
	if err := calendar.WriteWorkbook(path, records, resolver); err != nil {
		fatalf("Failed to write calendar: %v", err)
	}
	fmt.Printf("Calendar with %d courses written to %s\n", len(records), path)
}

// statusResponse is the shape of GET /api/v1/status, also filled locally.
type statusResponse struct {
	Courses        int      `json:"courses"`
	Indexed        uint64   `json:"indexed"`
	Sources        *int     `json:"sources,omitempty"`
	Periods        []string `json:"periods"`
	DiskUsageBytes int64    `json:"disk_usage_bytes"`
	UptimeSeconds  *int64   `json:"uptime_seconds,omitempty"`
}

func runStatus(args []string) {
	fs := pflag.NewFlagSet("status", pflag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct storage mode)")
	serverURL := fs.String("server", "", "server URL; empty reads local storage directly")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(args)
	format := parseFormat(*outputFormat)

	var status statusResponse
	if *serverURL != "" {
		if err := getJSON(strings.TrimRight(*serverURL, "/")+"/api/v1/status", &status); err != nil {
			fatalf("Status failed: %v", err)
		}
	} else {
		cfg, logger := setup(*configPath, false)
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger)
		if err != nil {
			fatalf("Failed to initialize: %v", err)
		}
		defer components.Close()
		s, err := localStatus(context.Background(), cfg, components)
		if err != nil {
			fatalf("Status failed: %v", err)
		}
		status = *s
	}

	if format == cli.OutputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(status)
		return
	}
	writeStatusText(os.Stdout, &status)
}

func localStatus(ctx context.Context, cfg *config.Config, c *Components) (*statusResponse, error) {
	courses, err := c.Repo.Count(ctx)
	if err != nil {
		return nil, err
	}
	indexed, err := c.Index.DocCount()
	if err != nil {
		return nil, err
	}
	sources, err := c.DB.CountSources(ctx)
	if err != nil {
		return nil, err
	}
	usage, err := storage.DiskUsage(cfg.Output.JSONDir, cfg.Storage.DatabasePath, cfg.Storage.BleveIndexPath)
	if err != nil {
		return nil, err
	}
	periods := make([]string, 0, len(cfg.Periods))
	for k := range cfg.Periods {
		periods = append(periods, k)
	}
	sort.Strings(periods)
	return &statusResponse{
		Courses:        courses,
		Indexed:        indexed,
		Sources:        &sources,
		Periods:        periods,
		DiskUsageBytes: storage.TotalBytes(usage),
	}, nil
}

func writeStatusText(w io.Writer, s *statusResponse) {
	fmt.Fprintf(w, "Courses:     %d\n", s.Courses)
	fmt.Fprintf(w, "Indexed:     %d\n", s.Indexed)
	if s.Sources != nil {
		fmt.Fprintf(w, "Sources:     %d\n", *s.Sources)
	}
	fmt.Fprintf(w, "Periods:     %s\n", strings.Join(s.Periods, ", "))
	fmt.Fprintf(w, "Disk usage:  %s\n", formatBytes(s.DiskUsageBytes))
	if s.UptimeSeconds != nil {
		fmt.Fprintf(w, "Uptime:      %s\n", time.Duration(*s.UptimeSeconds)*time.Second)
	}
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// Components holds the storage, index and pipeline shared by the commands.
type Components struct {
	DB       *storage.SQLiteRepository
	Repo     storage.Repository
	Index    *keyword.BleveIndex
	Pipeline *pipeline.Pipeline
}

func (c *Components) Close() {
	if c.Repo != nil {
		_ = c.Repo.Close()
	}
	if c.Index != nil {
		_ = c.Index.Close()
	}
}

// initializeComponents opens the course stores and the index and wires the pipeline.
// SQLite is the primary store and source tracker; the JSON directory mirrors every write.
func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	jsonRepo, err := storage.NewJSONRepository(cfg.Output.JSONDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize course directory: %w", err)
	}
	db, err := storage.NewSQLiteRepository(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	repo := storage.NewFanout(db, jsonRepo)

	idx, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}

	resolver, err := calendar.FromConfig(cfg.Periods)
	if err != nil {
		_ = repo.Close()
		_ = idx.Close()
		return nil, fmt.Errorf("invalid period table: %w", err)
	}

	extractor := extract.NewPDFExtractor(
		extract.WithMaxFileSize(cfg.Pipeline.MaxFileSize),
		extract.WithLogger(logger),
	)
	p := pipeline.New(extractor, resolver,
		pipeline.WithLogger(logger),
		pipeline.WithRepository(repo),
		pipeline.WithSourceTracker(repo.Tracker()),
		pipeline.WithIndex(idx),
		pipeline.WithWorkers(cfg.Pipeline.Workers),
		pipeline.WithSkipUnchanged(cfg.Pipeline.SkipUnchanged),
		pipeline.WithRecursive(cfg.Input.RecursiveOrDefault()),
		pipeline.WithExtensions(cfg.Input.Extensions),
		pipeline.WithAggregatePath(cfg.Output.AggregatePath),
		pipeline.WithCalendarPath(cfg.Output.CalendarPath),
	)

	return &Components{DB: db, Repo: repo, Index: idx, Pipeline: p}, nil
}

func printUsage() {
	fmt.Println(`silabo - Course syllabus processor

Usage:
  silabo process [flags] [path...]   Process syllabi (default: input.directories)
  silabo watch [flags]               Process, then follow input.directories for changes
  silabo server [flags]              Start the HTTP API (watches input.directories)
  silabo search [flags] <query>      Search processed courses
  silabo calendar [flags]            Write the weekly calendar workbook
  silabo status [flags]              Show storage and index status
  silabo version                     Show version
  silabo help                        Show this help

Common Flags:
  --config string    Config file path (default: ./config.yaml, else /usr/local/etc/silabo/config.yaml)
  --debug            Enable debug logging (process, watch, server)

Process Flags:
  --workers int      Documents processed in parallel (default from config)
  --skip-unchanged   Skip syllabi unchanged since the last run
  --output string    Output format: text or json (default: text)

Server Flags:
  --watch            Watch input.directories while serving (default: true)

Search Flags:
  --server string    Server URL; empty searches the local index directly
  --limit int        Number of results (default: 10)
  --period string    Restrict results to one period, e.g. 2025-2
  --fuzzy            Enable fuzzy matching for typo tolerance
  --output string    Output format: text or json (default: text)

Calendar Flags:
  -o, --out string   Workbook path (default: output.calendar_path)
  --period string    Only include courses of this period

Status Flags:
  --server string    Server URL; empty reads local storage directly
  --output string    Output format: text or json (default: text)

Examples:
  silabo process ./syllabi
  silabo process --output json UG-202520_1AEL0244-8281.pdf
  silabo search "circuitos electricos"
  silabo search --period 2025-2 --fuzzy mecanica
  silabo calendar -o calendario.xlsx --period 2025-2
  silabo server --debug`)
}
