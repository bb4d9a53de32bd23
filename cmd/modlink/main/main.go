package main

import (
	"fmt"
	"os"

	"github.com/liquidmods/modlink/cmd/modlink"
	"github.com/liquidmods/modlink/pkg/errors"
	"github.com/liquidmods/modlink/pkg/logging"
	"github.com/liquidmods/modlink/pkg/style"
)

func main() {
	rootCmd := modlink.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		logger := logging.WithFields(errors.GetErrorDetails(err))
		logger.Debug().
			Str("code", string(errors.GetErrorCode(err))).
			Err(err).
			Msg("Command failed")

		errorStyle := style.DefaultRegistry().Get("Error")
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("Error: %v", err)))
		os.Exit(1)
	}
}
