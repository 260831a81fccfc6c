package main

import (
	"fmt"
	"os"
	"strings"

	"cscript/internal/cli"
)

const usage = `Usage: cscript <command> [arguments]

Commands:
  run [--set name=value]... [--get name]... [--json] <file>
  check [--json] [--known name]... <file>
  test [file-or-dir]
  repl
  version

A path ending in .csc is run directly.`

func main() {
	if len(os.Args) < 2 {
		cli.HandleRepl(nil)
		return
	}

	cmd := os.Args[1]
	switch cmd {
	case "run":
		cli.HandleRun(os.Args[2:])
	case "check":
		cli.HandleCheck(os.Args[2:])
	case "test":
		cli.HandleTest(os.Args[2:])
	case "repl":
		cli.HandleRepl(os.Args[2:])
	case "version":
		cli.HandleVersion()
	case "help", "-h", "--help":
		fmt.Println(usage)
	default:
		// Automatically run if it ends with .csc
		if strings.HasSuffix(cmd, ".csc") {
			cli.HandleRun(os.Args[1:])
			return
		}
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s\n", cmd, usage)
		os.Exit(2)
	}
}
