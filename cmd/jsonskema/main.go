package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Exit codes.
const (
	exitOK      = 0
	exitInvalid = 1 // at least one instance failed validation
	exitUsage   = 2 // bad flags, unreadable files, schemas that do not compile
)

type cliError struct {
	code int
	err  error
}

func (e cliError) Error() string { return e.err.Error() }

func (e cliError) Unwrap() error { return e.err }

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.Execute(); err != nil {
		var ce cliError
		if errors.As(err, &ce) {
			if ce.err != nil {
				fmt.Fprintln(stderr, ce.err)
			}
			return ce.code
		}
		fmt.Fprintln(stderr, err)
		return exitUsage
	}
	return exitOK
}

// app holds state shared by subcommands.
type app struct {
	verbose bool
	log     *slog.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{log: slog.New(slog.NewTextHandler(io.Discard, nil))}
	root := &cobra.Command{
		Use:           "jsonskema",
		Short:         "Compile JSON Schemas and validate documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelWarn
			if a.verbose {
				level = slog.LevelDebug
			}
			a.log = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
		},
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logs on stderr")
	root.AddCommand(newValidateCommand(a))
	root.AddCommand(newCRDCommand(a))
	root.AddCommand(newMetaCommand(a))
	root.AddCommand(newDraftsCommand())
	return root
}
