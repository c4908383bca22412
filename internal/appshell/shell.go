package appshell

import (
	"io"
	"os"
)

// Main runs the tool with the process arguments and exits with its code.
// With no arguments the tool prints its help.
func Main(run func([]string, io.Writer, io.Writer) int) {
	argv := os.Args[1:]
	if len(argv) == 0 {
		argv = []string{"--help"}
	}
	os.Exit(run(argv, os.Stdout, os.Stderr))
}
