// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"github.com/scarabmm/scarab/internal/layout"
	"github.com/scarabmm/scarab/pkg/catalog"
	"github.com/scarabmm/scarab/pkg/modstate"

	"github.com/spf13/cobra"
)

func newAPICommand(app *App) *cobra.Command {
	apiCmd := &cobra.Command{
		Use:   "api",
		Short: "Manage the modding API assembly",
		Long: `Manage the modding API assembly in the managed folder.

Installing keeps the vanilla assembly as a backup so that disabling the API
swaps the game back to its unmodded state.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	apiCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the recorded API state and what is on disk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, variant, err := app.Installer.APIStatus()
			if err != nil {
				return err
			}
			app.printf("%s %s\n", TitleStyle.Render("API:"), st.String())
			app.printf("%s %s\n", SubtitleStyle.Render("On disk:"), variant.String())
			if api := app.Catalog.API(); api != nil {
				app.printf("%s %s\n", SubtitleStyle.Render("Catalog:"), api.Version)
				if inst, ok := st.(modstate.Installed); ok && catalog.IsNewer(api.Version, inst.Version) {
					app.printf("%s\n", WarningStyle.Render("An API update is available."))
				}
			}
			if _, ok := st.(modstate.Installed); ok && variant == layout.APINotInstalled {
				app.Logger.Warn("API is recorded as installed but no backup was found")
			}
			return nil
		},
	})

	apiCmd.AddCommand(&cobra.Command{
		Use:   "install",
		Short: "Install or update the API and enable it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.Installer.InstallAPI(cmd.Context()); err != nil {
				return err
			}
			app.printf("%s\n", SuccessStyle.Render("API installed"))
			return nil
		},
	})

	for _, enable := range []bool{true, false} {
		use, short, verb := "enable", "Swap the modded assembly in", "API enabled"
		if !enable {
			use, short, verb = "disable", "Swap the vanilla assembly back in", "API disabled"
		}
		apiCmd.AddCommand(&cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if err := app.Installer.SetAPIEnabled(cmd.Context(), enable); err != nil {
					return err
				}
				app.printf("%s\n", SuccessStyle.Render(verb))
				return nil
			},
		})
	}

	return apiCmd
}
