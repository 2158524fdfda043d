// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/scarabmm/scarab/pkg/catalog"
	"github.com/scarabmm/scarab/pkg/modstate"

	"github.com/spf13/cobra"
)

func newInfoCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "info <mod>",
		Short: "Show a mod's manifest and state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			item, err := app.item(args[0])
			if err != nil {
				return err
			}
			printInfo(cmd.OutOrStdout(), item)
			return nil
		},
	}
}

func printInfo(w io.Writer, item *catalog.Item) {
	m := item.Manifest()
	st := item.State()

	fmt.Fprintln(w, TitleStyle.Render(item.Name()))
	field := func(label, value string) {
		if value != "" {
			fmt.Fprintf(w, "  %-14s %s\n", label+":", value)
		}
	}
	field("State", st.String())
	if item.InCatalog() {
		field("Version", m.Version)
		field("Link", m.Link)
		field("SHA256", m.SHA256)
	}
	field("Description", m.Description)
	field("Authors", strings.Join(m.Authors, ", "))
	field("Repository", m.Repository)
	field("Tags", strings.Join(m.Tags, ", "))
	field("Dependencies", strings.Join(m.Dependencies, ", "))
	field("Integrations", strings.Join(m.Integrations, ", "))
	if modstate.IsPinned(st) {
		field("Pinned", "yes")
	}
	if modstate.UpdateAvailable(st) {
		fmt.Fprintln(w, WarningStyle.Render("  An update is available."))
	}
}

func newDependentsCommand(app *App) *cobra.Command {
	var integrations, enabled bool
	cmd := &cobra.Command{
		Use:   "dependents <mod>",
		Short: "List mods that depend on a mod",
		Long: `List every mod whose dependency chain reaches the given mod.

With --integrations, mods that merely integrate with it are listed too.
With --enabled, only currently enabled dependents are shown.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			item, err := app.item(args[0])
			if err != nil {
				return err
			}
			r := app.Installer.Resolver()

			var out []*catalog.Item
			if integrations {
				for _, d := range r.DependentsAndIntegrations(item) {
					if !enabled || modstate.IsEnabled(d.State()) {
						out = append(out, d)
					}
				}
			} else {
				out = r.TransitiveDependents(item, enabled)
			}

			w := cmd.OutOrStdout()
			if len(out) == 0 {
				fmt.Fprintln(w, SubtitleStyle.Render("No dependents."))
				return nil
			}
			for _, d := range out {
				fmt.Fprintf(w, "%s  %s\n", NameStyle.Render(d.Name()), SubtitleStyle.Render(d.State().String()))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&integrations, "integrations", false, "include mods that integrate with the mod")
	cmd.Flags().BoolVar(&enabled, "enabled", false, "only enabled dependents")
	return cmd
}
