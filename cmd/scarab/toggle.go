// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"github.com/scarabmm/scarab/internal/installer"

	"github.com/spf13/cobra"
)

func newEnableCommand(app *App, enable bool) *cobra.Command {
	use, short, verb := "enable <mod>...", "Move mods into Mods/ and enable their dependencies", "enabled"
	if !enable {
		use, short, verb = "disable <mod>...", "Move mods into Mods/Disabled", "disabled"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := app.items(args)
			if err != nil {
				return err
			}
			for _, item := range items {
				if !enable {
					for _, d := range app.Installer.Resolver().TransitiveDependents(item, true) {
						app.Logger.Warn("enabled mod depends on a disabled mod", "mod", d.Name(), "dependency", item.Name())
					}
				}
				if err := app.Installer.SetEnabled(cmd.Context(), item, enable); err != nil {
					return err
				}
				app.printf("%s %s\n", SuccessStyle.Render(verb), NameStyle.Render(item.Name()))
			}
			return nil
		},
	}
}

func newPinCommand(app *App, pin bool) *cobra.Command {
	use, short, verb := "pin <mod>...", "Protect enabled mods from bulk disable and uninstall", "pinned"
	if !pin {
		use, short, verb = "unpin <mod>...", "Remove the pin from mods", "unpinned"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := app.items(args)
			if err != nil {
				return err
			}
			for _, item := range items {
				if err := app.Installer.Pin(cmd.Context(), item, pin); err != nil {
					return err
				}
				app.printf("%s %s\n", SuccessStyle.Render(verb), NameStyle.Render(item.Name()))
			}
			return nil
		},
	}
}

func newDisableAllCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "disable-all",
		Short: "Disable every enabled mod that is not pinned",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			names, err := app.Installer.DisableAll(cmd.Context())
			app.reportSweep("disabled", names)
			return err
		},
	}
}

func newUninstallAllCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall-all",
		Short: "Uninstall every mod that is not pinned",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ok, err := app.prompter().Confirm(cmd.Context(),
				"Uninstall every unpinned mod?", "Their folders are deleted from disk.")
			if err != nil {
				return err
			}
			if !ok {
				app.printf("%s\n", WarningStyle.Render("Cancelled."))
				return &ExitError{Code: 1}
			}
			names, err := app.Installer.UninstallAll(cmd.Context())
			app.reportSweep("uninstalled", names)
			return err
		},
	}
}

func newCleanupCommand(app *App) *cobra.Command {
	var opts installer.CleanupOptions
	cmd := &cobra.Command{
		Use:   "cleanup <mod>",
		Short: "Disable or uninstall dependencies that nothing else needs",
		Long: `Find the dependencies of a mod that no other installed mod still needs
and disable them, or uninstall them with --uninstall.

Pinned dependencies stop the operation unless --skip-pinned is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			item, err := app.item(args[0])
			if err != nil {
				return err
			}
			names, err := app.Installer.RemoveUnusedDependencies(cmd.Context(), item, opts)
			if err != nil {
				return err
			}
			verb := "disabled"
			if opts.Uninstall {
				verb = "uninstalled"
			}
			app.reportSweep(verb, names)
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.Uninstall, "uninstall", false, "uninstall instead of disabling")
	cmd.Flags().BoolVar(&opts.SkipPinned, "skip-pinned", false, "leave pinned dependencies alone instead of failing")
	return cmd
}
