package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/lotas/matdash/internal/api"
	"github.com/lotas/matdash/internal/applog"
	"github.com/lotas/matdash/internal/export"
	"github.com/lotas/matdash/internal/reshape"
	"github.com/lotas/matdash/internal/server"
	"github.com/lotas/matdash/internal/storage"
	"github.com/lotas/matdash/internal/tui"
	"github.com/lotas/matdash/internal/types"
)

const defaultCacheTTL = time.Hour

func main() {
	initLog()
	defer applog.Close()

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "fetch":
			runFetch(os.Args[2:])
			return
		case "cache":
			runCache(os.Args[2:])
			return
		case "history":
			runHistory(os.Args[2:])
			return
		case "help", "--help", "-h":
			printHelp()
			return
		}
	}

	fs := flag.NewFlagSet("matdash", flag.ExitOnError)
	query := queryFlags(fs)
	liveMode := fs.Bool("live", false, "Serve the chart bridge for a browser chart widget")
	port := fs.Int("port", resolvePort(), "WebSocket port of the chart bridge")
	noCache := fs.Bool("no-cache", false, "Always fetch from the API")
	outDir := fs.String("out-dir", ".", "Directory for exported files")
	fs.Parse(os.Args[1:])

	q := query()
	if err := tui.ValidateQuery(q); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// The cache is optional: without it the TUI still works, minus history.
	db, err := openDB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: cache disabled: %v\n", err)
		applog.Error("db.open", err)
	} else {
		defer db.Close()
	}

	var srv *server.Server
	if *liveMode {
		srv = server.New(*port)
	}

	cfg := tui.Config{
		Client:   api.New(os.Getenv("MATDASH_API_URL")),
		DB:       db,
		Server:   srv,
		Query:    q,
		NoCache:  *noCache,
		CacheTTL: resolveCacheTTL(),
		OutDir:   *outDir,
	}
	applog.Info("startup", "api", cfg.Client.BaseURL, "live", *liveMode, "port", *port, "query", q.CacheKey())

	p := tea.NewProgram(tui.NewModel(cfg), tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Print(`matdash — measurement aggregation dashboard

Usage:
  matdash                                  Start the TUI (default)
    --test-name <name>     Test name (default: web_connectivity)
    --since <date>         Start day, YYYY-MM-DD (default: 30 days ago)
    --until <date>         End day, YYYY-MM-DD (default: tomorrow)
    --axis-x <field>       X axis grouping (default: measurement_start_day)
    --axis-y <field>       Y axis grouping (default: none)
    --probe-cc <cc>        Country code filter
    --probe-asn <asn>      ASN filter, e.g. AS3269
    --category <code>      Category code filter
    --input <url>          Input filter
    --live                 Serve the chart bridge for a browser chart widget
    --port <n>             Chart bridge port (default: 19292)
    --no-cache             Always fetch from the API
    --out-dir <path>       Directory for exported files (default: .)

  matdash fetch [query flags]              Fetch and print one aggregation table
    --md | --json | --csv  Output format (default: markdown)
    --out <file>           Output file path (default: stdout)
    --no-cache             Always fetch from the API

  matdash cache list                       List cached responses
  matdash cache clear [--older-than 24h]   Delete cached responses

  matdash history [--limit n]              List recent queries
  matdash history clear                    Delete the query history

Axes: measurement_start_day, probe_cc, probe_asn, category_code, input, or "" for none.

Environment:
  MATDASH_API_URL        API base URL (default: https://api.ooni.io)
  MATDASH_DB             Cache database path (default: ~/.local/share/matdash/matdash.db)
  MATDASH_PORT           Chart bridge port (overridden by --port flag)
  MATDASH_CACHE_TTL      Cache lifetime, e.g. 30m (default: 1h, 0 keeps forever)
  MATDASH_LOG_DIR        Log directory (default: ~/.local/share/matdash)
  MATDASH_DEBUG          Set to 1 to log debug lines
`)
}

// queryFlags registers the query flags on fs and returns a function that
// builds the query after fs.Parse.
func queryFlags(fs *flag.FlagSet) func() types.Query {
	def := api.DefaultQuery(time.Now())
	testName := fs.String("test-name", def.TestName, "Test name")
	since := fs.String("since", def.Since, "Start day (YYYY-MM-DD)")
	until := fs.String("until", def.Until, "End day (YYYY-MM-DD)")
	axisX := fs.String("axis-x", string(def.AxisX), "X axis grouping")
	axisY := fs.String("axis-y", string(def.AxisY), "Y axis grouping")
	probeCC := fs.String("probe-cc", "", "Country code filter")
	probeASN := fs.String("probe-asn", "", "ASN filter")
	category := fs.String("category", "", "Category code filter")
	input := fs.String("input", "", "Input filter")

	return func() types.Query {
		return types.Query{
			TestName:     *testName,
			Since:        *since,
			Until:        *until,
			AxisX:        types.Axis(*axisX),
			AxisY:        types.Axis(*axisY),
			ProbeCC:      strings.ToUpper(*probeCC),
			ProbeASN:     *probeASN,
			CategoryCode: strings.ToUpper(*category),
			Input:        *input,
		}
	}
}

func runFetch(args []string) {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	query := queryFlags(fs)
	jsonFlag := fs.Bool("json", false, "Output JSON")
	csvFlag := fs.Bool("csv", false, "Output CSV")
	fs.Bool("md", true, "Output markdown")
	outFile := fs.String("out", "", "Output file path (default: stdout)")
	noCache := fs.Bool("no-cache", false, "Always fetch from the API")
	fs.Parse(args)

	q := query()
	if err := tui.ValidateQuery(q); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	rows, err := loadRows(q, *noCache)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	table := reshape.Project(reshape.Reshape(rows, q))
	reshape.SortRows(table, q.AxisY)

	var output string
	switch {
	case *jsonFlag:
		output, err = export.JSON(q, table)
	case *csvFlag:
		output, err = export.CSV(q, table)
	default:
		output = export.Markdown(q, table)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}

	if *outFile != "" {
		if err := os.WriteFile(*outFile, []byte(output), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Wrote %d rows to %s\n", len(table), *outFile)
	} else {
		fmt.Print(output)
	}
}

// loadRows returns rows for q from the cache when fresh, otherwise from the
// API. A broken cache only costs the cache.
func loadRows(q types.Query, noCache bool) ([]types.RawRow, error) {
	db, err := openDB()
	if err != nil {
		applog.Error("db.open", err)
	} else {
		defer db.Close()
	}

	if db != nil {
		if err := storage.RecordQuery(db, q); err != nil {
			applog.Error("history.record", err)
		}
		if !noCache {
			rows, fetchedAt, ok, err := storage.GetRows(db, q, resolveCacheTTL())
			if err != nil {
				applog.Error("cache.get", err, "key", q.CacheKey())
			} else if ok {
				fmt.Fprintf(os.Stderr, "Using cached response from %s\n", fetchedAt.Local().Format("2006-01-02 15:04"))
				return rows, nil
			}
		}
	}

	client := api.New(os.Getenv("MATDASH_API_URL"))
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()
	rows, err := client.Fetch(ctx, q)
	if err != nil {
		return nil, err
	}
	if db != nil {
		if err := storage.PutRows(db, q, rows); err != nil {
			applog.Error("cache.put", err, "key", q.CacheKey())
		}
	}
	return rows, nil
}

func runCache(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: matdash cache list|clear [--older-than 24h]")
		os.Exit(1)
	}
	subcmd := args[0]
	fs := flag.NewFlagSet("cache "+subcmd, flag.ExitOnError)
	olderThan := fs.Duration("older-than", 0, "Only delete responses older than this")
	fs.Parse(reorderArgs(args[1:]))

	db, err := openDB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	switch subcmd {
	case "list":
		list, err := storage.ListResponses(db)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if len(list) == 0 {
			fmt.Println("Cache is empty.")
			return
		}
		for _, c := range list {
			fmt.Printf("%s  %6d rows  %8s (%s raw)  %s\n",
				c.FetchedAt.Local().Format("2006-01-02 15:04"), c.RowCount,
				formatBytes(c.Size), formatBytes(c.RawSize), c.QueryKey)
		}
	case "clear":
		n, err := storage.ClearResponses(db, *olderThan)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Deleted %d cached responses.\n", n)
	default:
		fmt.Fprintf(os.Stderr, "Unknown cache command %q. Use list or clear.\n", subcmd)
		os.Exit(1)
	}
}

func runHistory(args []string) {
	if len(args) > 0 && args[0] == "clear" {
		db, err := openDB()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := storage.ClearHistory(db); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("History cleared.")
		return
	}

	fs := flag.NewFlagSet("history", flag.ExitOnError)
	limit := fs.Int("limit", 20, "Number of entries to list")
	fs.Parse(args)

	db, err := openDB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	entries, err := storage.RecentQueries(db, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(entries) == 0 {
		fmt.Println("No queries yet.")
		return
	}
	for _, e := range entries {
		fmt.Printf("%s  %3dx  %s\n", e.UsedAt.Local().Format("2006-01-02 15:04"), e.UseCount, e.Query.CacheKey())
	}
}

func openDB() (*sql.DB, error) {
	dbPath := os.Getenv("MATDASH_DB")
	if dbPath == "" {
		var err error
		dbPath, err = storage.DefaultDBPath()
		if err != nil {
			return nil, err
		}
	}
	return storage.OpenDB(dbPath)
}

// initLog opens the log file. Logging is best effort; a failure leaves the
// log calls as no-ops.
func initLog() {
	dir := os.Getenv("MATDASH_LOG_DIR")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return
		}
		dir = filepath.Join(home, ".local", "share", "matdash")
	}
	if err := applog.Init(dir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
		return
	}
	applog.SetDebug(os.Getenv("MATDASH_DEBUG") == "1")
}

// resolvePort returns MATDASH_PORT if set and valid, otherwise the default
// chart bridge port.
func resolvePort() int {
	if v := os.Getenv("MATDASH_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return server.DefaultPort
}

func resolveCacheTTL() time.Duration {
	if v := os.Getenv("MATDASH_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultCacheTTL
}

// reorderArgs moves flag arguments before positional arguments so that
// flag.Parse handles them correctly (it stops at the first non-flag arg).
func reorderArgs(args []string) []string {
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		if strings.HasPrefix(args[i], "-") {
			flags = append(flags, args[i])
			if !strings.Contains(args[i], "=") && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				flags = append(flags, args[i+1])
				i++
			}
		} else {
			positional = append(positional, args[i])
		}
	}
	return append(flags, positional...)
}

func formatBytes(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
