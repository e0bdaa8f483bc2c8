package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/mrlokans/notestation-importer/internal/archive"
	"github.com/mrlokans/notestation-importer/internal/config"
	"github.com/mrlokans/notestation-importer/internal/document"
)

// ConvertCommand prints the markdown of one note. Attachments are read from the
// archive but never uploaded; their references get placeholder ids.
type ConvertCommand struct {
	output

	ArchivePath  string
	NoteLocation string
	Verbose      bool

	cfg *config.Config
}

func NewConvertCommand() *ConvertCommand {
	return &ConvertCommand{}
}

func (cmd *ConvertCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)

	fs.StringVar(&cmd.ArchivePath, "archive", "", "Path to the Notes Station archive (.ns3)")
	fs.StringVar(&cmd.NoteLocation, "note", "", "Archive location of the note (required, see inspect)")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "Enable debug logging")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s convert -archive <path> -note <location>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Print the markdown a note converts to, without contacting the note store.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.NoteLocation == "" {
		return fmt.Errorf("required flag -note not provided")
	}

	cfg := config.NewConfig()
	setIfNotEmpty(&cfg.ArchivePath, cmd.ArchivePath)
	if err := cfg.ValidateForArchive(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	cmd.cfg = cfg
	return nil
}

func (cmd *ConvertCommand) Run() error {
	logs, err := newLogging(cmd.cfg, cmd.Verbose)
	if err != nil {
		return err
	}
	defer logs.Close()

	reader, err := archive.Open(cmd.cfg.ArchivePath, logs.Logger("archive"))
	if err != nil {
		return err
	}
	defer reader.Close()

	note, err := reader.Note(cmd.NoteLocation)
	if err != nil {
		return err
	}

	converter := document.NewConverter(reader, placeholderInserter{}, logs.Logger("converter"))
	result, err := converter.Convert(context.Background(), cmd.NoteLocation, note.Content)
	if err != nil {
		return fmt.Errorf("convert note %q: %w", note.Name, err)
	}

	cmd.printf("# %s\n\n", note.Name)
	cmd.printf("%s", result.Markdown)

	if len(result.Warnings) > 0 {
		fmt.Fprintf(os.Stderr, "\n%d warnings:\n", len(result.Warnings))
		for _, w := range result.Warnings {
			fmt.Fprintf(os.Stderr, "  [WARN] %s: %s\n", w.Type, w.Message)
		}
	}
	return nil
}

// placeholderInserter derives a stable resource id from the attachment bytes so
// repeated conversions print the same references.
type placeholderInserter struct{}

func (placeholderInserter) InsertResource(_ context.Context, _ string, data []byte) (string, error) {
	id := uuid.NewSHA1(uuid.NameSpaceURL, data)
	return strings.ReplaceAll(id.String(), "-", ""), nil
}
