// Command custombradley runs the Custom Bradley plugin against the in-process
// engine, with an optional WebRCON console for admin commands.
package main

import (
	"fmt"
	"os"
	"strings"
)

// BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.0.1"
	BuildDate      string = "unknown"

	ExtensionName string = "custombradley"
)

const usage = `usage: custombradley <command> [arguments]

commands:
  serve    [-config dir]    run the server (default)
  validate <file.json>      check a CustomBradley.json document
  journal  <file.json[.gz]> summarize an exported journal
  version                   print the version
`

func main() {
	args := os.Args[1:]
	command := "serve"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		command = strings.ToLower(args[0])
		args = args[1:]
	}

	var err error
	switch command {
	case "serve":
		err = serve(args)
	case "validate":
		err = validate(os.Stdout, args)
	case "journal":
		err = summarizeJournal(os.Stdout, args)
	case "version":
		fmt.Printf("%s %s (built %s)\n", ExtensionName, CurrentVersion, BuildDate)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
