package cli

import (
	"flag"
	"fmt"
	"os"

	"github.com/mrlokans/notestation-importer/internal/archive"
	"github.com/mrlokans/notestation-importer/internal/config"
)

// InspectCommand prints the notebook tree of an archive without touching the note store.
type InspectCommand struct {
	output

	ArchivePath string
	Verbose     bool

	cfg *config.Config
}

func NewInspectCommand() *InspectCommand {
	return &InspectCommand{}
}

func (cmd *InspectCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)

	fs.StringVar(&cmd.ArchivePath, "archive", "", "Path to the Notes Station archive (.ns3)")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "Also print tags of every note")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s inspect -archive <path>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Print the notebooks, sections and notes of an archive.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.NewConfig()
	setIfNotEmpty(&cfg.ArchivePath, cmd.ArchivePath)
	if err := cfg.ValidateForArchive(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	cmd.cfg = cfg
	return nil
}

func (cmd *InspectCommand) Run() error {
	logs, err := newLogging(cmd.cfg, false)
	if err != nil {
		return err
	}
	defer logs.Close()

	reader, err := archive.Open(cmd.cfg.ArchivePath, logs.Logger("archive"))
	if err != nil {
		return err
	}
	defer reader.Close()

	structure, err := reader.Structure()
	if err != nil {
		return err
	}

	var sections, notes int
	for _, nb := range structure.Notebooks {
		cmd.printf("%s\n", nb.Name)
		for _, sec := range nb.Sections {
			sections++
			cmd.printf("  %s\n", sec.Name)
			for _, ref := range sec.Notes {
				notes++
				note, err := reader.Note(ref.Location)
				if err != nil {
					cmd.printf("    [ERROR] %s: %v\n", ref.Location, err)
					continue
				}
				cmd.printf("    %s (%s)\n", note.Name, ref.Location)
				if cmd.Verbose {
					for _, tag := range note.Tags {
						cmd.printf("      #%s\n", tag.Name)
					}
				}
			}
		}
	}

	cmd.printf("\n%d notebooks, %d sections, %d notes\n", len(structure.Notebooks), sections, notes)
	return nil
}
