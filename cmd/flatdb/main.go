// Command flatdb is an interactive shell over a flatdb database.
//
// Statements are read one per line, from a line editor when stdin is a
// terminal and verbatim when it is piped.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/mattn/go-isatty"
	"github.com/zakazai/flatdb"
	"github.com/zakazai/flatdb/internal/catalog"
	"github.com/zakazai/flatdb/internal/executor"
	"github.com/zakazai/flatdb/internal/types"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "flatdb: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	defaults := flatdb.DefaultConfig()
	dataDir := flag.String("data-dir", defaults.DataDir, "Data directory")
	dbName := flag.String("db", "default", "Database name")
	storageType := flag.String("storage", defaults.Storage, "Storage backend (memory, json, parquet, hybrid)")
	versioned := flag.Bool("versioned", false, "Commit every table write to a git repository in the data directory (json only)")
	logLevel := flag.String("log-level", defaults.LogLevel, "Log level (debug, info, warn, error, none)")
	configPath := flag.String("config", "", "YAML config file; flags set explicitly override it")
	autocommit := flag.Bool("autocommit", false, "Commit a table after every statement that changes it")
	watchCatalog := flag.Bool("watch-catalog", false, "Reload catalog.yaml when it changes on disk")
	catalogSchema := flag.Bool("catalog-schema", false, "Print the JSON Schema of catalog.yaml and exit")
	flag.Parse()
	if len(flag.Args()) > 0 {
		return fmt.Errorf("unknown arguments: %v", flag.Args())
	}

	if *catalogSchema {
		data, err := catalog.FileSchema()
		if err != nil {
			return err
		}
		_, err = fmt.Printf("%s\n", data)
		return err
	}

	config := defaults
	if *configPath != "" {
		var err error
		if config, err = flatdb.LoadConfig(*configPath); err != nil {
			return err
		}
	}
	// Without a config file every flag applies; with one, only flags set
	// explicitly.
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	apply := func(name string) bool { return *configPath == "" || set[name] }
	if apply("data-dir") {
		config.DataDir = *dataDir
	}
	if apply("storage") {
		config.Storage = *storageType
	}
	if apply("versioned") {
		config.Versioned = *versioned
	}
	if apply("log-level") {
		config.LogLevel = *logLevel
	}
	if err := config.Validate(); err != nil {
		return err
	}

	level, err := types.ParseLogLevel(config.LogLevel)
	if err != nil {
		return err
	}
	slog.SetDefault(types.InitLogger(level, nil))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	db, err := flatdb.Open(*dbName, config)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("Failed to close storage", "err", err)
		}
	}()
	slog.Debug("Opened database", "db", *dbName, "storage", config.Storage, "dir", config.DataDir)

	exec := executor.New(db, executor.Options{Autocommit: *autocommit})

	changed := make(chan string, 1)
	if *watchCatalog {
		fc, ok := db.Catalog().(*catalog.FileCatalog)
		if !ok {
			return fmt.Errorf("-watch-catalog needs a file catalog, %s storage keeps it in memory", config.Storage)
		}
		fc.OnChange = func(database string) {
			select {
			case changed <- database:
			default:
			}
		}
		if err := fc.Watch(ctx); err != nil {
			return fmt.Errorf("failed to watch catalog: %w", err)
		}
	}

	interactive := isatty.IsTerminal(os.Stdin.Fd())
	next, closeInput, err := newLineReader(interactive, config)
	if err != nil {
		return err
	}
	defer closeInput()
	if interactive {
		fmt.Println("flatdb shell. End statements with Enter, 'exit' to quit.")
	}

	for ctx.Err() == nil {
		line, err := next()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				break
			}
			continue
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		if l := strings.ToLower(strings.TrimSuffix(line, ";")); l == "exit" || l == "quit" {
			break
		}

		select {
		case database := <-changed:
			slog.Info("Catalog changed, reloading schemas", "db", database)
			exec.InvalidateSchemas()
		default:
		}

		res, err := exec.Run(line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			if !interactive {
				return err
			}
			continue
		}
		fmt.Print(res)
	}
	if !*autocommit {
		slog.Debug("Leaving; uncommitted changes are dropped")
	}
	return ctx.Err()
}

// newLineReader returns a line source for stdin and a function releasing it.
func newLineReader(interactive bool, config flatdb.Config) (func() (string, error), func(), error) {
	if !interactive {
		s := bufio.NewScanner(os.Stdin)
		return func() (string, error) {
			if s.Scan() {
				return s.Text(), nil
			}
			if err := s.Err(); err != nil {
				return "", err
			}
			return "", io.EOF
		}, func() {}, nil
	}
	history := ""
	if config.DataDir != "" && config.Storage != "memory" {
		history = filepath.Join(config.DataDir, ".flatdb_history")
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "flatdb> ",
		HistoryFile:     history,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start line editor: %w", err)
	}
	return rl.Readline, func() { _ = rl.Close() }, nil
}
