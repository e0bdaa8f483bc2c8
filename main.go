package main

import (
	"fmt"
	"os"

	"github.com/mrlokans/notestation-importer/internal/cli"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

type command interface {
	ParseFlags(args []string) error
	Run() error
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	name := os.Args[1]
	args := os.Args[2:]

	var cmd command
	switch name {
	case "import":
		cmd = cli.NewImportCommand()
	case "inspect":
		cmd = cli.NewInspectCommand()
	case "convert":
		cmd = cli.NewConvertCommand()
	case "history":
		cmd = cli.NewHistoryCommand()

	case "version":
		fmt.Printf("notestation-importer %s (%s)\n", Version, Commit)
		return

	case "-h", "--help", "help":
		printUsage()
		return

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", name)
		printUsage()
		os.Exit(1)
	}

	if err := cmd.ParseFlags(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  import    Import a Notes Station archive into the note store\n")
	fmt.Fprintf(os.Stderr, "  inspect   Print the notebooks, sections and notes of an archive\n")
	fmt.Fprintf(os.Stderr, "  convert   Print the markdown of a single note\n")
	fmt.Fprintf(os.Stderr, "  history   List import runs recorded in the journal\n")
	fmt.Fprintf(os.Stderr, "  version   Print the version\n")
	fmt.Fprintf(os.Stderr, "\nUse '%s <command> -h' for help on a specific command.\n", os.Args[0])
}
