// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"

	"github.com/scarabmm/scarab/internal/watch"

	"github.com/spf13/cobra"
)

func newWatchCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Keep the installed-mods record in sync with hand-made changes",
		Long: `Watch Mods/ and Mods/Disabled/ and reconcile the installed-mods record
whenever a mod folder is added, removed or moved by hand. Stop with Ctrl+C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w, err := watch.New(watch.Config{
				Layout:   app.Layout,
				Ignore:   app.Config.Watch.Ignore,
				Debounce: app.Config.Watch.Debounce,
				OnChange: app.reconcile,
				Logger:   app.Logger.WithPrefix("watch"),
			})
			if err != nil {
				return err
			}
			app.printf("%s %s\n", TitleStyle.Render("watching"), app.Layout.ModsDir())
			return w.Run(cmd.Context())
		},
	}
}

func (a *App) reconcile(_ context.Context, mods []string) error {
	changed, err := a.Registry.Reconcile(a.Catalog)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	if err := a.Registry.Attach(a.Catalog); err != nil {
		return err
	}
	for _, name := range mods {
		if item, ok := a.Catalog.Get(name); ok {
			a.Logger.Info("mod changed on disk", "mod", name, "state", item.State().String())
		}
	}
	return nil
}
