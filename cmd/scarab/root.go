// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the scarab CLI commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/scarabmm/scarab/internal/issue"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
)

type rootFlags struct {
	configFile string
	managed    string
	catalog    string
	registry   string
	verbose    bool
	assumeYes  bool
}

func newRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "scarab",
		Short: "A mod manager for the managed folder of a game",
		Long: TitleStyle.Render("scarab") + SubtitleStyle.Render(" - install, toggle and pin mods from a catalog") + `

scarab installs mods listed in a catalog into Mods/, moves them to
Mods/Disabled/ and back, keeps dependencies installed and enabled, and
swaps the modding API assembly in and out.

` + SubtitleStyle.Render("Examples:") + `
  scarab list                  List catalog mods and their state
  scarab install Core          Install and enable Core and its dependencies
  scarab disable Core          Move Core to Mods/Disabled
  scarab api status            Show the API state`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations[annotationNoEngine] == "true" {
				return app.loadConfig(cmd.Context())
			}
			return app.Open(cmd.Context())
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return app.Close()
		},
	}

	f := &app.flags
	pf := root.PersistentFlags()
	pf.StringVar(&f.configFile, "config", "", "config file (default is <config dir>/scarab/config.cue)")
	pf.StringVar(&f.managed, "managed", "", "managed folder of the game (overrides managed_path)")
	pf.StringVar(&f.catalog, "catalog", "", "catalog document (overrides catalog_path)")
	pf.StringVar(&f.registry, "registry", "", "installed-mods record (overrides registry_path)")
	pf.BoolVarP(&f.verbose, "verbose", "v", false, "enable debug logging")
	pf.BoolVarP(&f.assumeYes, "yes", "y", false, "answer yes to every confirmation")

	root.AddCommand(
		newListCommand(app),
		newInfoCommand(app),
		newDependentsCommand(app),
		newInstallCommand(app),
		newUpdateCommand(app),
		newUninstallCommand(app),
		newPlaceCommand(app),
		newEnableCommand(app, true),
		newEnableCommand(app, false),
		newPinCommand(app, true),
		newPinCommand(app, false),
		newDisableAllCommand(app),
		newUninstallAllCommand(app),
		newCleanupCommand(app),
		newAPICommand(app),
		newResetCommand(app),
		newWatchCommand(app),
		newConfigCommand(app),
	)
	return root
}

func versionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}

// Execute runs the CLI and exits the process with its status.
func Execute() {
	os.Exit(Run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// Run executes the CLI with explicit streams and returns the exit status.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	app := NewApp(Dependencies{Stdin: stdin, Stdout: stdout, Stderr: stderr})
	root := newRootCommand(app)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := fang.Execute(ctx, root,
		fang.WithVersion(versionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(func(w io.Writer, _ fang.Styles, err error) {
			renderError(w, err, app.verbose())
		}),
	)
	if closeErr := app.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}

// renderError prints err, its suggestions and, when there is one, the
// matching help page.
func renderError(w io.Writer, err error, verbose bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err == nil {
		return
	}

	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		fmt.Fprintln(w, ErrorStyle.Render("Error: ")+ae.Format(verbose))
	} else {
		fmt.Fprintln(w, ErrorStyle.Render("Error: ")+err.Error())
	}

	if page := issue.Classify(err); page != nil {
		if rendered, rerr := page.Render("notty"); rerr == nil {
			fmt.Fprint(w, rendered)
		}
	}
}
