// Command order-report runs one report: it queries the order API for a date
// range and writes the PDF, printing its path on stdout. It is started by an
// external scheduler and exits 1 on any failure.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/order-report/pkg/config"
	"github.com/Sternrassler/order-report/pkg/logging"
	"github.com/Sternrassler/order-report/pkg/metrics"
	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

type options struct {
	reportID    string
	from        time.Time
	to          time.Time
	title       string
	definitions string
	envFiles    []string
	verify      bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr, time.Now())
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "order-report: %v\n", err)
		return 1
	}

	settings, err := config.Load(opts.envFiles...)
	if err != nil {
		fmt.Fprintf(stderr, "order-report: %v\n", err)
		return 1
	}

	logging.Setup(logging.Config{
		Level:  settings.LogLevel,
		Pretty: settings.LogPretty,
		Output: stderr,
	})
	runID := uuid.NewString()
	logger := logging.WithRun(logging.NewLogger(logging.ComponentRunner), runID)

	defer func() {
		if err := metrics.WriteTextfile(settings.MetricsTextfile); err != nil {
			logger.Warn().Err(err).Str("path", settings.MetricsTextfile).Msg("Failed to write metrics")
		}
	}()

	doc, err := execute(ctx, settings, opts, logger)
	if err != nil {
		logger.Error().Err(err).Str("report_id", opts.reportID).Msg("Report run failed")
		return 1
	}

	fmt.Fprintln(stdout, doc.Path)
	return 0
}

// parseFlags reads the command line. -from and -to default to the day before now.
func parseFlags(args []string, stderr io.Writer, now time.Time) (*options, error) {
	fs := flag.NewFlagSet("order-report", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		opts    options
		from    string
		to      string
		envFile string
	)
	yesterday := now.AddDate(0, 0, -1).Format(dateLayout)

	fs.StringVar(&opts.reportID, "report", "", "report id from the definitions file")
	fs.StringVar(&from, "from", yesterday, "first order date, YYYY-MM-DD")
	fs.StringVar(&to, "to", "", "last order date, YYYY-MM-DD (default: -from)")
	fs.StringVar(&opts.title, "title", "", "document title (default: report title or id)")
	fs.StringVar(&opts.definitions, "definitions", "", "report definitions file, TOML or JSON (default: $REPORT_DEFINITIONS)")
	fs.StringVar(&envFile, "env", "", "env file to load before the environment (default: .env if present)")
	fs.BoolVar(&opts.verify, "verify", false, "validate the written PDF")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	var err error
	if opts.from, err = time.Parse(dateLayout, from); err != nil {
		return nil, fmt.Errorf("invalid -from: %w", err)
	}
	if to == "" {
		opts.to = opts.from
	} else if opts.to, err = time.Parse(dateLayout, to); err != nil {
		return nil, fmt.Errorf("invalid -to: %w", err)
	}
	if opts.to.Before(opts.from) {
		return nil, fmt.Errorf("-to %s is before -from %s", opts.to.Format(dateLayout), opts.from.Format(dateLayout))
	}
	if envFile != "" {
		opts.envFiles = []string{envFile}
	}

	return &opts, nil
}
