// Command birthdayverse maps a birthday to a Bible verse.
// It can answer a single lookup, serve the HTTP API, import texts into a
// local SQLite store and list the book catalog.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	json "github.com/goccy/go-json"

	"github.com/FocuswithJustin/BirthdayVerse/core/birthday"
	"github.com/FocuswithJustin/BirthdayVerse/core/catalog"
	"github.com/FocuswithJustin/BirthdayVerse/core/errors"
	"github.com/FocuswithJustin/BirthdayVerse/core/lookup"
	"github.com/FocuswithJustin/BirthdayVerse/core/verse"
	"github.com/FocuswithJustin/BirthdayVerse/internal/api"
	"github.com/FocuswithJustin/BirthdayVerse/internal/bibleapi"
	"github.com/FocuswithJustin/BirthdayVerse/internal/config"
	"github.com/FocuswithJustin/BirthdayVerse/internal/importer"
	"github.com/FocuswithJustin/BirthdayVerse/internal/logging"
	"github.com/FocuswithJustin/BirthdayVerse/internal/metrics"
	"github.com/FocuswithJustin/BirthdayVerse/internal/store"
)

const version = "1.0.0"

// Globals are flags shared by every command. Set flags override the
// configuration file.
type Globals struct {
	Config      string        `name:"config" short:"c" help:"YAML configuration file" type:"path"`
	LogLevel    string        `name:"log-level" help:"Log level (debug, info, warn, error)"`
	LogFormat   string        `name:"log-format" help:"Log format (json, text)"`
	Source      string        `name:"source" help:"Verse source (http, sqlite)"`
	DB          string        `name:"db" help:"SQLite verse store path" type:"path"`
	APIBase     string        `name:"api-base" help:"Base URL of the chapter API"`
	Translation string        `name:"translation" help:"Translation requested from the chapter API"`
	Timeout     time.Duration `name:"timeout" help:"Per-lookup timeout"`
}

// CLI defines the command-line interface for birthdayverse.
type CLI struct {
	Globals Globals `embed:""`

	Verse   VerseCmd   `cmd:"" help:"Look up the verse for a birthday"`
	Serve   ServeCmd   `cmd:"" help:"Start the HTTP API server"`
	Import  ImportCmd  `cmd:"" help:"Import an OSIS or chapter JSON file into a SQLite store"`
	Books   BooksCmd   `cmd:"" help:"List the book catalog in index order"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

// runtime carries what commands need after flags and config are merged.
type runtime struct {
	ctx context.Context
	cfg *config.Config
	out io.Writer
}

// loadConfig reads the config file and applies flag overrides.
func (g *Globals) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, err
	}

	if g.LogLevel != "" {
		cfg.Logging.Level = g.LogLevel
	}
	if g.LogFormat != "" {
		cfg.Logging.Format = g.LogFormat
	}
	if g.Source != "" {
		cfg.Source.Kind = g.Source
	}
	if g.DB != "" {
		cfg.Source.DBPath = g.DB
	}
	if g.APIBase != "" {
		cfg.Source.APIBase = g.APIBase
	}
	if g.Translation != "" {
		cfg.Source.Translation = g.Translation
	}
	if g.Timeout > 0 {
		cfg.Source.Timeout = g.Timeout.String()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openSource builds the configured verse source. If m is non-nil every
// fetch is recorded. The returned close function is never nil.
func (rt *runtime) openSource(m *metrics.Metrics) (verse.Lookup, func() error, error) {
	var (
		src     verse.Lookup
		closeFn = func() error { return nil }
	)

	switch rt.cfg.Source.Kind {
	case config.SourceSQLite:
		s, err := store.Open(rt.ctx, rt.cfg.Source.DBPath)
		if err != nil {
			return nil, nil, err
		}
		src, closeFn = s, s.Close
	default:
		src = bibleapi.New(bibleapi.Options{
			BaseURL:     rt.cfg.Source.APIBase,
			Translation: rt.cfg.Source.Translation,
			UserAgent:   "birthdayverse/" + version,
		})
	}

	if m != nil {
		src = m.InstrumentLookup(rt.cfg.Source.Kind, src)
	}
	return src, closeFn, nil
}

func (rt *runtime) service(src verse.Lookup) *lookup.Service {
	resolver := verse.NewResolver(catalog.Default(), src, verse.Options{Timeout: rt.cfg.LookupTimeout()})
	return lookup.NewService(resolver)
}

// VerseCmd performs one lookup.
type VerseCmd struct {
	Date  string `arg:"" optional:"" help:"Birthday as YYYY-MM-DD"`
	Day   int    `help:"Day of month (used when DATE is omitted)"`
	Month int    `help:"Month (used when DATE is omitted)"`
	Year  int    `help:"Year (used when DATE is omitted)"`
	JSON  bool   `name:"json" help:"Print the full result as JSON"`
}

func (c *VerseCmd) date() (birthday.Date, error) {
	if c.Date == "" {
		return birthday.Date{Day: c.Day, Month: c.Month, Year: c.Year}, nil
	}
	d, err := birthday.ParseDate(c.Date)
	if err != nil && !errors.Is(err, errors.ErrIncompleteInput) {
		return birthday.Date{}, errors.NewValidation("date", birthday.InvalidDateMessage)
	}
	return d, nil
}

func (c *VerseCmd) Run(rt *runtime) error {
	d, err := c.date()
	if err != nil {
		return err
	}
	if !d.Complete() {
		return errors.NewValidation("birthday", lookup.IncompleteMessage)
	}

	src, closeSource, err := rt.openSource(nil)
	if err != nil {
		return err
	}
	defer closeSource()

	start := time.Now()
	out, err := rt.service(src).Resolve(rt.ctx, d)
	if err != nil {
		logging.SourceError(rt.ctx, rt.cfg.Source.Kind, "resolve", err, "date", d.String())
		return errors.Wrap(err, lookup.FailedMessage)
	}
	logging.LookupEvent(rt.ctx, rt.cfg.Source.Kind, out.Result.Reference, lookupOutcome(out.Result), time.Since(start))

	if c.JSON {
		enc := json.NewEncoder(rt.out)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Fprintln(rt.out, out.Result.Text)
	fmt.Fprintln(rt.out, out.Result.Reference)
	return nil
}

func lookupOutcome(r verse.Result) string {
	if r.Fallback {
		return metrics.OutcomeFallback
	}
	return metrics.OutcomeSuccess
}

// ServeCmd starts the HTTP API.
type ServeCmd struct {
	Port           int      `help:"HTTP server port (overrides config)"`
	AllowedOrigins []string `name:"allowed-origin" help:"Allowed CORS/WebSocket origin (repeatable)"`
	RateLimit      int      `name:"rate-limit" help:"Requests per minute per client (0 = config value)"`
}

func (c *ServeCmd) Run(rt *runtime) error {
	cfg := rt.cfg
	if c.Port > 0 {
		cfg.Server.Port = c.Port
	}
	if len(c.AllowedOrigins) > 0 {
		cfg.Server.AllowedOrigins = c.AllowedOrigins
	}
	if c.RateLimit > 0 {
		cfg.Server.RateLimitRequests = c.RateLimit
	}

	m := metrics.New()
	src, closeSource, err := rt.openSource(m)
	if err != nil {
		return err
	}
	defer closeSource()

	srv := api.NewServer(api.Config{
		Port:              cfg.Server.Port,
		Version:           version,
		SourceKind:        cfg.Source.Kind,
		RateLimitRequests: cfg.Server.RateLimitRequests,
		RateLimitBurst:    cfg.Server.RateLimitBurst,
		AllowedOrigins:    cfg.Server.AllowedOrigins,
		WebSocket: api.WebSocketConfig{
			MaxMessageRate: cfg.Server.WebSocket.MaxMessageRate,
			MaxMessageSize: cfg.Server.WebSocket.MaxMessageSize,
		},
		ShutdownTimeout: cfg.ShutdownTimeout(),
	}, rt.service(src), m)

	return srv.Start(rt.ctx)
}

// ImportCmd fills a SQLite store from a Bible text.
type ImportCmd struct {
	File      string `arg:"" help:"OSIS XML or chapter JSON file (.gz, .zst and .xz accepted)" type:"existingfile"`
	BatchSize int    `name:"batch-size" help:"Rows per transaction" default:"5000"`
}

func (c *ImportCmd) Run(rt *runtime) error {
	s, err := store.Create(rt.ctx, rt.cfg.Source.DBPath)
	if err != nil {
		return err
	}
	defer s.Close()

	report, err := importer.Import(rt.ctx, c.File, s, catalog.Default(), importer.Options{BatchSize: c.BatchSize})
	if err != nil {
		return err
	}

	fmt.Fprintf(rt.out, "Imported %d verses in %d chapters from %s into %s\n",
		report.Verses, report.Chapters, report.Path, s.Path())
	if report.Title != "" {
		fmt.Fprintf(rt.out, "Title: %s\n", report.Title)
	}
	if report.Skipped > 0 {
		fmt.Fprintf(rt.out, "Skipped %d verses from books outside the catalog: %v\n", report.Skipped, report.SkippedBooks)
	}
	return nil
}

// BooksCmd prints the catalog.
type BooksCmd struct {
	JSON bool `name:"json" help:"Print the catalog as JSON"`
}

func (c *BooksCmd) Run(rt *runtime) error {
	books := catalog.Default().Books()
	if c.JSON {
		return json.NewEncoder(rt.out).Encode(books)
	}

	for i, b := range books {
		fmt.Fprintf(rt.out, "%2d  %-16s %3d  %s\n", i, b.Name, b.Chapters, b.Title)
	}
	return nil
}

// VersionCmd prints the version.
type VersionCmd struct{}

func (c *VersionCmd) Run(rt *runtime) error {
	fmt.Fprintf(rt.out, "birthdayverse version %s\n", version)
	return nil
}

// run parses args and executes the selected command.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("birthdayverse"),
		kong.Description("Birthday Verse - find the Bible verse for a date"),
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	if err != nil {
		return err
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	cfg, err := cli.Globals.loadConfig()
	if err != nil {
		return err
	}

	level, _ := logging.ParseLevel(cfg.Logging.Level)
	format, _ := logging.ParseFormat(cfg.Logging.Format)
	logging.InitLoggerWriter(stderr, level, format)

	return kctx.Run(&runtime{ctx: ctx, cfg: cfg, out: stdout})
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "birthdayverse: %v\n", userMessage(err))
		stop()
		os.Exit(1)
	}
}

// userMessage prefers the plain message of birthday input errors.
func userMessage(err error) string {
	var verr *errors.ValidationError
	if errors.As(err, &verr) && (verr.Field == "date" || verr.Field == "birthday") {
		return verr.Message
	}
	return err.Error()
}
