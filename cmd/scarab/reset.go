// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"github.com/scarabmm/scarab/internal/issue"

	"github.com/spf13/cobra"
)

func newResetCommand(app *App) *cobra.Command {
	var cache bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Forget the installed-mods record",
		Long: `Delete the installed-mods record. Mod folders stay on disk and are
rediscovered on the next run.

With --cache the download cache is cleared as well.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ok, err := app.prompter().Confirm(cmd.Context(),
				"Reset the installed-mods record?", app.Registry.Path()+" will be deleted.")
			if err != nil {
				return err
			}
			if !ok {
				app.printf("%s\n", WarningStyle.Render("Cancelled."))
				return &ExitError{Code: 1}
			}

			if err := app.Registry.Reset(); err != nil {
				return issue.WrapWithContext(err, "reset installed mods", app.Registry.Path())
			}
			app.printf("%s %s\n", SuccessStyle.Render("reset"), app.Registry.Path())

			if cache && app.Cache.Enabled() {
				size, _ := app.Cache.Size()
				if err := app.Cache.Clear(); err != nil {
					return issue.WrapWithContext(err, "clear download cache", app.Cache.Root())
				}
				app.printf("%s %s (%d bytes)\n", SuccessStyle.Render("cleared"), app.Cache.Root(), size)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&cache, "cache", false, "also clear the download cache")
	return cmd
}
