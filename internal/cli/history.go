package cli

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mrlokans/notestation-importer/internal/config"
	"github.com/mrlokans/notestation-importer/internal/entities"
	"github.com/mrlokans/notestation-importer/internal/journal"
)

// HistoryCommand lists the import runs recorded in the journal.
type HistoryCommand struct {
	output

	JournalPath string
	Limit       int
	RunID       string
}

func NewHistoryCommand() *HistoryCommand {
	return &HistoryCommand{}
}

func (cmd *HistoryCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)

	fs.StringVar(&cmd.JournalPath, "journal", "", "Path to the sqlite import journal (default $JOURNAL_PATH)")
	fs.IntVar(&cmd.Limit, "limit", 10, "Maximum number of runs to list")
	fs.StringVar(&cmd.RunID, "run", "", "Show the events of a single run")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s history -journal <path> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "List recent import runs, or every item written by one run.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.JournalPath == "" {
		cmd.JournalPath = config.NewConfig().Journal.Path
	}
	if cmd.JournalPath == "" {
		return fmt.Errorf("required flag -journal not provided")
	}
	if _, err := os.Stat(cmd.JournalPath); os.IsNotExist(err) {
		return fmt.Errorf("journal not found: %s", cmd.JournalPath)
	}
	return nil
}

func (cmd *HistoryCommand) Run() error {
	jr, err := journal.Open(cmd.JournalPath)
	if err != nil {
		return err
	}
	defer jr.Close()

	if cmd.RunID != "" {
		return cmd.showRun(jr)
	}

	runs, err := jr.RecentRuns(cmd.Limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		cmd.println("No import runs recorded")
		return nil
	}

	for _, run := range runs {
		c := run.Counters
		cmd.printf("%s  %s  %-9s  %s -> %q\n",
			run.StartedAt.Local().Format(time.DateTime), run.ID, run.Status, run.Archive, run.InsertionPoint)
		cmd.printf("    notebooks=%d sections=%d notes=%d tags=%d/%d resources=%d+%d warnings=%d\n",
			c.Notebooks, c.Sections, c.Notes, c.TagsLinked, c.TagsSkipped,
			c.ResourcesUploaded, c.ResourcesReused, c.Warnings)
		if run.Error != "" {
			cmd.printf("    [ERROR] %s\n", run.Error)
		}
	}
	return nil
}

func (cmd *HistoryCommand) showRun(jr *journal.Journal) error {
	run, err := jr.Run(cmd.RunID)
	if err != nil {
		return err
	}
	events, err := jr.Events(run.ID)
	if err != nil {
		return err
	}
	counts, err := jr.EventCounts(run.ID)
	if err != nil {
		return err
	}

	cmd.printf("Run %s (%s)\n", run.ID, run.Status)
	cmd.printf("Archive: %s\n", run.Archive)
	if run.Error != "" {
		cmd.printf("Error: %s\n", run.Error)
	}
	cmd.println()

	for _, ev := range events {
		switch ev.Kind {
		case entities.EventWarning, entities.EventTagSkipped:
			cmd.printf("  [%s] %s %s %s\n", ev.Kind, ev.Location, ev.Title, ev.Message)
		default:
			cmd.printf("  [%s] %s -> %s\n", ev.Kind, ev.Title, ev.RemoteID)
		}
	}

	cmd.printf("\nfolders=%d notes=%d tag links=%d resources=%d+%d warnings=%d\n",
		counts[entities.EventFolder], counts[entities.EventNote], counts[entities.EventTagLink],
		counts[entities.EventResourceUploaded], counts[entities.EventResourceReused],
		counts[entities.EventWarning])
	return nil
}
