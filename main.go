package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"page-notifier/config"
	"page-notifier/db"
	"page-notifier/fetcher"
	"page-notifier/filter"
	"page-notifier/notifier"
	"page-notifier/sheets"
	"page-notifier/sink"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	urls := flag.String("url", "", "Comma-separated pages to monitor in addition to those in the config file")
	once := flag.Bool("once", false, "Check the pages once, send news and a status report, then exit")
	history := flag.Int("history", 0, "Print the last N archived notifications and exit (needs archive.database_url)")
	flag.Parse()

	extra := append(splitURLs(*urls), flag.Args()...)
	cfg, err := loadConfig(*configPath, extra)
	if err != nil {
		log.Fatalf("Invalid configuration: %v\n", err)
	}

	if *history > 0 {
		if err := printHistory(cfg, *history); err != nil {
			log.Fatalf("Failed to read history: %v\n", err)
		}
		return
	}

	if len(cfg.Pages) == 0 {
		log.Fatalln("No pages to monitor. Add them to the config file or pass -url.")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *once); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Notifier failed: %v\n", err)
	}
}

// run wires the notifier from the configuration and drives it until it stops
func run(ctx context.Context, cfg *config.Config, once bool) error {
	flt, err := filter.NewFilter(cfg.Ignore)
	if err != nil {
		return err
	}

	f, err := fetcher.New(cfg.Fetcher, flt)
	if err != nil {
		return fmt.Errorf("failed to create %s fetcher: %w", cfg.Fetcher.Engine, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Printf("Warning: Failed to close fetcher: %v\n", err)
		}
	}()

	s, err := sink.New(cfg.Notification)
	if err != nil {
		return fmt.Errorf("failed to create %s sink: %w", cfg.Notification.Method, err)
	}

	opts := []notifier.Option{notifier.WithAbortOnSendError(cfg.Monitor.AbortOnSendError)}

	if cfg.Archive.DatabaseURL != "" {
		archive, err := db.NewDB(cfg.Archive.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to open archive: %w", err)
		}
		defer archive.Close()

		runID, err := archive.StartRun(ctx, cfg.Pages, time.Now())
		if err != nil {
			return err
		}
		defer func() {
			if err := archive.FinishRun(context.Background(), time.Now()); err != nil {
				log.Printf("Warning: Failed to finish run %s: %v\n", runID, err)
			}
		}()
		log.Printf("Archiving notifications as run %s\n", runID)
		opts = append(opts, notifier.WithRecorder(archive))
	}

	if cfg.Sheets.SpreadsheetURL != "" {
		writer, err := newSheetsWriter(ctx, cfg.Sheets)
		if err != nil {
			log.Printf("Warning: Google Sheets log disabled: %v\n", err)
		} else {
			opts = append(opts, notifier.WithRecorder(writer))
		}
	}

	settings := notifier.Settings{
		RunDuration:    cfg.Monitor.RunDuration,
		PollInterval:   cfg.Monitor.PollInterval,
		ReportInterval: cfg.Monitor.ReportInterval,
	}
	n, err := notifier.New(settings, f, s, opts...)
	if err != nil {
		return err
	}

	if err := n.AddPages(cfg.Pages...); err != nil {
		return err
	}

	if once {
		if err := n.News(ctx); err != nil {
			return err
		}
		return n.ReportNow(ctx)
	}

	return n.Run(ctx)
}

// loadConfig reads the config file, falling back to defaults when it does not
// exist, and adds the pages given on the command line
func loadConfig(configPath string, extraPages []string) (*config.Config, error) {
	var cfg *config.Config
	if _, err := os.Stat(configPath); err == nil {
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
	} else {
		log.Println("Config file not found. Using default configuration.")
		cfg = config.GetDefaultConfig()
		if err := cfg.ApplyEnv(os.Getenv); err != nil {
			return nil, err
		}
	}

	cfg.Pages = append(cfg.Pages, extraPages...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newSheetsWriter(ctx context.Context, cfg config.SheetsConfig) (*sheets.Writer, error) {
	spreadsheetID := sheets.ExtractSpreadsheetID(cfg.SpreadsheetURL)
	if spreadsheetID == "" {
		return nil, fmt.Errorf("could not extract spreadsheet ID from URL: %s", cfg.SpreadsheetURL)
	}

	writer, err := sheets.NewWriter(ctx, spreadsheetID, cfg.CredentialsPath, cfg.CredentialsJSON)
	if err != nil {
		return nil, err
	}
	if err := writer.EnsureSheet(ctx); err != nil {
		return nil, err
	}
	return writer, nil
}

func printHistory(cfg *config.Config, limit int) error {
	if cfg.Archive.DatabaseURL == "" {
		return fmt.Errorf("archive.database_url is not configured")
	}

	archive, err := db.NewDB(cfg.Archive.DatabaseURL)
	if err != nil {
		return err
	}
	defer archive.Close()

	messages, err := archive.RecentNotifications(context.Background(), limit)
	if err != nil {
		return err
	}

	if len(messages) == 0 {
		fmt.Println("No notifications archived yet.")
		return nil
	}
	for _, msg := range messages {
		fmt.Println(msg.String())
		fmt.Println()
	}
	return nil
}

// splitURLs splits a comma-separated flag value, dropping empty entries
func splitURLs(value string) []string {
	var urls []string
	for _, u := range strings.Split(value, ",") {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}
