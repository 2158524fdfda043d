// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/scarabmm/scarab/internal/installer"
	"github.com/scarabmm/scarab/pkg/catalog"
	"github.com/scarabmm/scarab/pkg/modstate"

	"github.com/spf13/cobra"
)

func newInstallCommand(app *App) *cobra.Command {
	var disabled, clearExisting bool
	cmd := &cobra.Command{
		Use:   "install <mod>...",
		Short: "Install mods and their dependencies from the catalog",
		Long: `Install mods from the catalog.

Dependencies are installed first. Unless --disabled is given, the mods and
their dependencies end up enabled. The modding API is installed too when the
catalog declares one and it is missing.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := app.items(args)
			if err != nil {
				return err
			}
			for _, item := range items {
				if err := app.Installer.Install(cmd.Context(), item, !disabled, clearExisting); err != nil {
					return err
				}
				app.printf("%s %s\n", SuccessStyle.Render("installed"), NameStyle.Render(item.Name()))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&disabled, "disabled", false, "leave the mods in Mods/Disabled")
	cmd.Flags().BoolVar(&clearExisting, "clear", false, "delete loose files in the mod folder before placing")
	return cmd
}

func newUpdateCommand(app *App) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "update [mod]...",
		Short: "Replace outdated mods with the catalog build",
		RunE: func(cmd *cobra.Command, args []string) error {
			var items []*catalog.Item
			switch {
			case all && len(args) > 0:
				return fmt.Errorf("--all cannot be combined with mod names")
			case all:
				for _, item := range app.Catalog.Items() {
					if item.InCatalog() && modstate.UpdateAvailable(item.State()) {
						items = append(items, item)
					}
				}
			case len(args) == 0:
				return fmt.Errorf("name at least one mod or pass --all")
			default:
				var err error
				if items, err = app.items(args); err != nil {
					return err
				}
			}

			if len(items) == 0 {
				app.printf("%s\n", SubtitleStyle.Render("Everything is up to date."))
				return nil
			}
			for _, item := range items {
				if !modstate.UpdateAvailable(item.State()) {
					app.printf("%s %s\n", SubtitleStyle.Render("up to date"), NameStyle.Render(item.Name()))
					continue
				}
				if err := app.Installer.Update(cmd.Context(), item); err != nil {
					return err
				}
				app.printf("%s %s\n", SuccessStyle.Render("updated"), NameStyle.Render(item.Name()))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "update every mod with an update available")
	return cmd
}

func newUninstallCommand(app *App) *cobra.Command {
	var cleanup bool
	cmd := &cobra.Command{
		Use:   "uninstall <mod>",
		Short: "Delete a mod from disk",
		Long: `Delete a mod from Mods/ and Mods/Disabled/.

When enabled mods depend on it you are asked to confirm. With --cleanup the
mod's dependencies that nothing else needs are uninstalled too.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			item, err := app.item(args[0])
			if err != nil {
				return err
			}
			ok, err := app.confirmDependents(ctx, item, "Uninstall")
			if err != nil {
				return err
			}
			if !ok {
				return &ExitError{Code: 1}
			}
			if err := app.Installer.Uninstall(ctx, item); err != nil {
				return err
			}
			app.printf("%s %s\n", SuccessStyle.Render("uninstalled"), NameStyle.Render(item.Name()))

			if cleanup {
				removed, err := app.Installer.RemoveUnusedDependencies(ctx, item,
					installer.CleanupOptions{Uninstall: true, SkipPinned: true})
				if err != nil {
					return err
				}
				app.reportSweep("uninstalled", removed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&cleanup, "cleanup", false, "also uninstall dependencies nothing else needs")
	return cmd
}

func newPlaceCommand(app *App) *cobra.Command {
	var disabled bool
	cmd := &cobra.Command{
		Use:   "place <mod> <file>",
		Short: "Install a local build of a mod",
		Long: `Install a local .dll or .zip as a custom build of a mod.

The name may be a catalog mod, which is then tracked as a custom build until
it is updated, or a new name, which is added as a custom mod.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Installer.InstallFromFile(cmd.Context(), args[0], args[1], !disabled); err != nil {
				return err
			}
			app.printf("%s %s\n", SuccessStyle.Render("placed"), NameStyle.Render(args[0]))
			return nil
		},
	}
	cmd.Flags().BoolVar(&disabled, "disabled", false, "place the build in Mods/Disabled")
	return cmd
}

// confirmDependents asks before an action that breaks enabled dependents.
// Without dependents it returns true straight away.
func (a *App) confirmDependents(ctx context.Context, item *catalog.Item, action string) (bool, error) {
	dependents := a.Installer.Resolver().TransitiveDependents(item, true)
	if len(dependents) == 0 {
		return true, nil
	}
	names := make([]string, 0, len(dependents))
	for _, d := range dependents {
		names = append(names, d.Name())
	}
	list := strings.Join(names, ", ")
	a.Logger.Warn("enabled mods depend on "+item.Name(), "dependents", list)

	ok, err := a.prompter().Confirm(ctx,
		fmt.Sprintf("%s %s?", action, item.Name()),
		"These enabled mods depend on it: "+list)
	if err != nil {
		return false, err
	}
	if !ok {
		a.printf("%s\n", WarningStyle.Render("Cancelled."))
	}
	return ok, nil
}

func (a *App) reportSweep(verb string, names []string) {
	if len(names) == 0 {
		a.printf("%s\n", SubtitleStyle.Render("Nothing to do."))
		return
	}
	for _, n := range names {
		a.printf("%s %s\n", SuccessStyle.Render(verb), NameStyle.Render(n))
	}
}
