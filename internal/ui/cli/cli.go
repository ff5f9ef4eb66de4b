// Package cli is the symbolicator command line: the language server itself
// plus a few offline commands sharing its configuration.
package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

const versionString = "0.1.0"

type options struct {
	configPath string
	verbose    bool
}

// exitError carries a process exit code for failures that were already
// reported to the user.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// Run executes the command line and returns the process exit code.
func Run(args []string) int {
	return run(context.Background(), args, os.Stdin, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := newRootCmd(stdin, stdout, stderr)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		var exit *exitError
		if stderrors.As(err, &exit) {
			return exit.code
		}
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	return 0
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "symbolicator",
		Short: "Incremental symbol tables for editors over LSP",
		Long: `symbolicator keeps a symbol table per open project and answers completion,
go-to-definition and find-references over the Language Server Protocol on
stdin/stdout. Run without a subcommand it behaves like "symbolicator serve".`,
		Version:       versionString,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts, stdin, stdout, stderr)
		},
	}
	root.SetVersionTemplate("symbolicator v{{.Version}}\n")
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to config file (defaults apply when empty)")
	root.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "Enable debug logging")

	root.AddCommand(
		newServeCmd(opts, stdin, stdout, stderr),
		newCheckCmd(opts, stdout, stderr),
		newHistoryCmd(opts, stdout, stderr),
		newVersionCmd(stdout),
	)
	return root
}

func newServeCmd(opts *options, stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the language server on stdin/stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts, stdin, stdout, stderr)
		},
	}
}

func newCheckCmd(opts *options, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "check <root>",
		Short: "Run one analyzer pass over a project and print its diagnostics",
		Long: `Run one analyzer pass over a project and print its diagnostics.

Exits with status 1 when any error diagnostic is reported.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), opts, args[0], stdout, stderr)
		},
	}
}

func newHistoryCmd(opts *options, stdout, stderr io.Writer) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history [root]",
		Short: "List recent passes from the pass journal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := ""
			if len(args) == 1 {
				root = args[0]
			}
			return runHistory(cmd.Context(), opts, root, limit, stdout, stderr)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of passes to list")
	return cmd
}

func newVersionCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			fmt.Fprintf(stdout, "symbolicator v%s\n", versionString)
		},
	}
}
