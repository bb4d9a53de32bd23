package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra/doc"

	"github.com/liquidmods/modlink/cmd/modlink"
	"github.com/liquidmods/modlink/internal/version"
)

// Writes modlink.1 to stdout, or one page per command into the directory
// given as the only argument.
func main() {
	rootCmd := modlink.NewRootCmd()

	header := &doc.GenManHeader{
		Title:   "MODLINK",
		Section: "1",
		Source:  "modlink " + version.Version,
		Manual:  "modlink manual",
	}

	var err error
	if len(os.Args) > 1 {
		err = doc.GenManTree(rootCmd, header, os.Args[1])
	} else {
		err = doc.GenMan(rootCmd, header, os.Stdout)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating man page: %v\n", err)
		os.Exit(1)
	}
}
