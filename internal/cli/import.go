package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"

	"github.com/mrlokans/notestation-importer/internal/archive"
	"github.com/mrlokans/notestation-importer/internal/config"
	"github.com/mrlokans/notestation-importer/internal/entities"
	"github.com/mrlokans/notestation-importer/internal/importer"
	"github.com/mrlokans/notestation-importer/internal/journal"
	"github.com/mrlokans/notestation-importer/internal/logging"
	"github.com/mrlokans/notestation-importer/internal/notestore"
)

// ImportCommand imports a Notes Station archive into the note store.
type ImportCommand struct {
	output

	ConfigPath     string
	ArchivePath    string
	Token          string
	InsertionPoint string
	URL            string
	JournalPath    string
	NoteLocation   string
	ParentID       string
	LogLevel       string
	LogFormat      string
	Verbose        bool

	cfg *config.Config
}

func NewImportCommand() *ImportCommand {
	return &ImportCommand{}
}

func (cmd *ImportCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)

	fs.StringVar(&cmd.ConfigPath, "config", "", "Path to a JSON config file (the legacy Config.json is accepted)")
	fs.StringVar(&cmd.ArchivePath, "archive", "", "Path to the Notes Station archive (.ns3)")
	fs.StringVar(&cmd.Token, "token", "", "Note store API token")
	fs.StringVar(&cmd.InsertionPoint, "insertion", "", "Title of the existing folder to import under")
	fs.StringVar(&cmd.URL, "url", "", "Note store base URL (default "+config.DefaultNoteStoreURL+")")
	fs.StringVar(&cmd.JournalPath, "journal", "", "Path to the sqlite import journal (disabled when empty)")
	fs.StringVar(&cmd.NoteLocation, "note", "", "Import only the note at this archive location")
	fs.StringVar(&cmd.ParentID, "parent", "", "Folder id receiving the note given with -note")
	fs.StringVar(&cmd.LogLevel, "log-level", "", "Log level: trace, debug, info, warn, error")
	fs.StringVar(&cmd.LogFormat, "log-format", "", "Log format: console, json, pretty")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "Enable verbose output and debug logging")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s import -archive <path> -token <token> -insertion <folder> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Import every notebook, section, note, tag and attachment of a Notes Station\n")
		fmt.Fprintf(os.Stderr, "archive under an existing folder of the note store.\n\n")
		fmt.Fprintf(os.Stderr, "The note store must be running with its data API enabled.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Import using the legacy config file:\n")
		fmt.Fprintf(os.Stderr, "  %s import -config Config.json\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  # Import one note into a known folder:\n")
		fmt.Fprintf(os.Stderr, "  %s import -archive export.ns3 -token abc -note 1/2/3 -parent 0f2a...\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(cmd.ConfigPath)
	if err != nil {
		return err
	}
	setIfNotEmpty(&cfg.ArchivePath, cmd.ArchivePath)
	setIfNotEmpty(&cfg.Token, cmd.Token)
	setIfNotEmpty(&cfg.InsertionPoint, cmd.InsertionPoint)
	setIfNotEmpty(&cfg.NoteStore.URL, cmd.URL)
	setIfNotEmpty(&cfg.Journal.Path, cmd.JournalPath)
	setIfNotEmpty(&cfg.Logging.Level, cmd.LogLevel)
	setIfNotEmpty(&cfg.Logging.Format, cmd.LogFormat)

	if cmd.NoteLocation != "" || cmd.ParentID != "" {
		if cmd.NoteLocation == "" || cmd.ParentID == "" {
			return fmt.Errorf("flags -note and -parent must be given together")
		}
		if err := cfg.ValidateForArchive(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		if err := cfg.ValidateStore(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
	} else if err := cfg.ValidateForImport(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	cmd.cfg = cfg
	return nil
}

func (cmd *ImportCommand) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return cmd.RunContext(ctx)
}

// RunContext performs the import. It is the one place where failures of any kind,
// panics included, are caught, logged and recorded.
func (cmd *ImportCommand) RunContext(ctx context.Context) (err error) {
	if cmd.cfg == nil {
		return errors.New("import command not configured: call ParseFlags first")
	}
	cfg := cmd.cfg

	logs, err := newLogging(cfg, cmd.Verbose)
	if err != nil {
		return err
	}
	defer logs.Close()
	log := logs.Logger("cli")

	var (
		jr     *journal.Journal
		runID  string
		result *importer.Result
	)
	defer func() {
		if r := recover(); r != nil {
			log.Error("import panicked", "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
			err = fmt.Errorf("import aborted: %v", r)
		}
		if err != nil {
			log.Error("import failed", "error", err)
		}
		if jr != nil {
			cmd.finishRun(jr, runID, result, err, log)
			if cerr := jr.Close(); cerr != nil {
				log.Warn("failed to close journal", "error", cerr)
			}
		}
	}()

	cmd.println("Notes Station Import")
	cmd.println("====================")
	cmd.printf("Archive: %s\n", cfg.ArchivePath)
	cmd.printf("Note store: %s\n", cfg.NoteStore.URL)

	reader, err := archive.Open(cfg.ArchivePath, logs.Logger("archive"))
	if err != nil {
		return err
	}
	defer reader.Close()

	client := notestore.NewClient(cfg.NoteStore.URL, cfg.Token,
		notestore.WithTimeout(cfg.RequestTimeout),
		notestore.WithLogger(logs.Logger("notestore")),
	)
	if err := client.Ping(ctx); err != nil {
		return fmt.Errorf("note store is not reachable at %s (is it running with the data API enabled?): %w", cfg.NoteStore.URL, err)
	}

	written := 0
	opts := []importer.Option{
		importer.WithLogger(logs.Logger("importer")),
		importer.WithConverterLogger(logs.Logger("converter")),
		importer.WithProgressTimeout(cfg.ProgressTimeout),
		importer.WithProgress(func() {
			written++
			if cmd.Verbose {
				cmd.printf("  ... %d items written\n", written)
			}
		}),
	}

	if cfg.Journal.Path != "" {
		jr, err = journal.Open(cfg.Journal.Path)
		if err != nil {
			return err
		}
		target := cfg.InsertionPoint
		if cmd.NoteLocation != "" {
			target = cmd.ParentID
		}
		run, err := jr.StartRun(cfg.ArchivePath, target)
		if err != nil {
			return err
		}
		runID = run.ID
		opts = append(opts, importer.WithJournal(jr, runID))
		cmd.printf("Journal: %s (run %s)\n", cfg.Journal.Path, runID)
	}

	imp := importer.New(reader, client, opts...)

	if cmd.NoteLocation != "" {
		cmd.printf("\nImporting note %s into folder %s...\n", cmd.NoteLocation, cmd.ParentID)
		result, err = imp.ImportNote(ctx, cmd.ParentID, cmd.NoteLocation)
	} else {
		cmd.printf("\nImporting under %q...\n", cfg.InsertionPoint)
		result, err = imp.Import(ctx, cfg.InsertionPoint)
	}

	cmd.printSummary(result)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	cmd.println("\nSuccessfully imported QNAP Notes Archive")
	return nil
}

func (cmd *ImportCommand) finishRun(jr *journal.Journal, runID string, result *importer.Result, runErr error, log logging.Logger) {
	var counters entities.RunCounters
	if result != nil {
		counters = result.Counters()
	}
	status := entities.RunStatusCompleted
	if runErr != nil {
		status = entities.RunStatusFailed
	}
	if err := jr.CompleteRun(runID, status, counters, runErr); err != nil {
		log.Warn("failed to complete journal run", "run", runID, "error", err)
	}
}

func (cmd *ImportCommand) printSummary(result *importer.Result) {
	if result == nil {
		return
	}
	cmd.println("\n=== Import Summary ===")
	cmd.printf("Notebooks: %d\n", result.Notebooks)
	cmd.printf("Sections: %d\n", result.Sections)
	cmd.printf("Notes: %d\n", result.Notes)
	cmd.printf("Tags linked: %d (skipped %d)\n", result.TagsLinked, result.TagsSkipped)
	cmd.printf("Resources: %d uploaded, %d reused\n", result.ResourcesUploaded, result.ResourcesReused)

	if len(result.Warnings) > 0 {
		cmd.printf("\n%d warnings:\n", len(result.Warnings))
		for _, w := range result.Warnings {
			if w.Location != "" {
				cmd.printf("  [WARN] %s: %s\n", w.Location, w.Message)
			} else {
				cmd.printf("  [WARN] %s\n", w.Message)
			}
		}
	}
}
