package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/dshills/mailsearch/internal/app"
	"github.com/dshills/mailsearch/internal/config"
	"github.com/dshills/mailsearch/internal/logger"
	"github.com/dshills/mailsearch/internal/mcp"
	"github.com/dshills/mailsearch/internal/storage"
	"github.com/dshills/mailsearch/pkg/types"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, types.ErrCorpusUnavailable) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "mailsearch",
		Usage:   "Hybrid lexical and semantic search over an email store",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML config file",
				EnvVars: []string{config.EnvConfigPath},
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to the SQLite email store (overrides config)",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "embedding-provider",
				Usage: "Embedding provider (local, jina, openai, compat)",
			},
			&cli.StringFlag{
				Name:  "classifier",
				Usage: "Classifier provider (embedding, huggingface)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the MCP server on stdio",
				Action: serveCommand,
			},
			{
				Name:      "search",
				Usage:     "Run one search and print the JSON result",
				ArgsUsage: "<query>",
				Action:    searchCommand,
			},
			{
				Name:   "status",
				Usage:  "Print email store statistics",
				Action: statusCommand,
			},
			{
				Name:   "init",
				Usage:  "Create an empty email store with the current schema",
				Action: initCommand,
			},
			{
				Name:   "version",
				Usage:  "Print build information",
				Action: versionCommand,
			},
		},
	}
}

// loadConfig reads the config file and environment, then applies global flags
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}

	if c.IsSet("db") {
		cfg.DBPath = c.String("db")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("embedding-provider") {
		cfg.Embedding.Provider = c.String("embedding-provider")
	}
	if c.IsSet("classifier") {
		cfg.Classifier.Provider = c.String("classifier")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setup loads config and logger and builds the search pipeline
func setup(c *cli.Context) (*app.App, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	a, err := app.New(cfg, log)
	if err != nil {
		_ = log.Sync()
		return nil, err
	}
	return a, nil
}

func serveCommand(c *cli.Context) error {
	a, err := setup(c)
	if err != nil {
		return err
	}
	defer func() {
		_ = a.Close()
		_ = a.Logger.Sync()
	}()

	server, err := mcp.NewServer(a.Storage, a.Searcher, a.Logger.Named("mcp"))
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Serve(ctx)
	}()

	select {
	case sig := <-sigChan:
		a.Logger.Info("shutting down", zap.String("signal", sig.String()))
		cancel()
		return nil
	case err := <-errChan:
		return err
	}
}

func searchCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("search requires a query: %w", types.ErrMalformedQuery)
	}

	a, err := setup(c)
	if err != nil {
		return err
	}
	defer func() {
		_ = a.Close()
		_ = a.Logger.Sync()
	}()

	results, err := a.Searcher.Search(c.Context, query)
	if err != nil {
		return err
	}
	return writeJSON(c, results)
}

func statusCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	store, err := storage.NewSQLiteStorage(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	status, err := store.GetStatus(c.Context)
	if err != nil {
		return err
	}
	return writeJSON(c, status)
}

func initCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	store, err := storage.InitSQLiteStorage(cfg.DBPath)
	if err != nil {
		return err
	}
	if err := store.Close(); err != nil {
		return err
	}

	_, err = fmt.Fprintf(c.App.Writer, "Initialized email store at %s\n", cfg.DBPath)
	return err
}

func versionCommand(c *cli.Context) error {
	w := c.App.Writer
	fmt.Fprintf(w, "mailsearch\n")
	fmt.Fprintf(w, "Version: %s\n", version)
	fmt.Fprintf(w, "Build Time: %s\n", buildTime)
	fmt.Fprintf(w, "Build Mode: %s\n", storage.BuildMode)
	fmt.Fprintf(w, "SQLite Driver: %s\n", storage.DriverName)
	return nil
}

func writeJSON(c *cli.Context, v interface{}) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
