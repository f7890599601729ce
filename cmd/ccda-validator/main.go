// Package main implements the ccda-validator CLI tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Set via ldflags at build time.
var version = "dev"

// Exit codes.
const (
	exitValidation = 1
	exitUsage      = 2
)

// ExitError carries a process exit code back to main.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

func exitError(code int, format string, args ...any) *ExitError {
	return &ExitError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ccda-validator",
		Short: "C-CDA document validator",
		Long: `ccda-validator runs C-CDA documents through structural, vocabulary and
content validation engines and reports the combined findings.`,
		SilenceUsage: true,
		Version:      version,
	}
	root.SetVersionTemplate(fmt.Sprintf("ccda-validator version %s\n", version))

	root.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error, none")
	root.PersistentFlags().String("log-format", "", "Log format: text, json")

	root.AddCommand(newValidateCmd())
	root.AddCommand(newObjectivesCmd())
	return root
}
