// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/scarabmm/scarab/pkg/catalog"
	"github.com/scarabmm/scarab/pkg/modstate"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

const (
	outputTable = "table"
	outputJSON  = "json"
	outputTOML  = "toml"
)

type (
	// modView is the machine-readable form of one mod.
	modView struct {
		Name            string   `json:"name" toml:"name"`
		State           string   `json:"state" toml:"state"`
		Version         string   `json:"version,omitempty" toml:"version,omitempty"`
		CatalogVersion  string   `json:"catalog_version,omitempty" toml:"catalog_version,omitempty"`
		Enabled         bool     `json:"enabled" toml:"enabled"`
		Pinned          bool     `json:"pinned" toml:"pinned"`
		UpdateAvailable bool     `json:"update_available" toml:"update_available"`
		Custom          bool     `json:"custom" toml:"custom"`
		Dependencies    []string `json:"dependencies,omitempty" toml:"dependencies,omitempty"`
	}

	modList struct {
		Mods []modView `json:"mods" toml:"mods"`
	}

	listFilter struct {
		installed bool
		enabled   bool
		updates   bool
		custom    bool
	}
)

func newListCommand(app *App) *cobra.Command {
	var (
		output string
		filter listFilter
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog and custom mods with their state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var views []modView
			for _, item := range app.Catalog.Items() {
				if filter.match(item) {
					views = append(views, viewOf(item))
				}
			}
			return writeMods(cmd.OutOrStdout(), output, views)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "output format: table, json or toml")
	cmd.Flags().BoolVar(&filter.installed, "installed", false, "only mods present on disk")
	cmd.Flags().BoolVar(&filter.enabled, "enabled", false, "only enabled mods")
	cmd.Flags().BoolVar(&filter.updates, "updates", false, "only mods with an update available")
	cmd.Flags().BoolVar(&filter.custom, "custom", false, "only mods not tracked against the catalog")
	return cmd
}

func (f listFilter) match(item *catalog.Item) bool {
	st := item.State()
	switch {
	case f.installed && !modstate.IsMaterialized(st):
		return false
	case f.enabled && !modstate.IsEnabled(st):
		return false
	case f.updates && !modstate.UpdateAvailable(st):
		return false
	case f.custom && modstate.IsCatalogTracked(st):
		return false
	}
	return true
}

func viewOf(item *catalog.Item) modView {
	st := item.State()
	m := item.Manifest()
	v := modView{
		Name:            item.Name(),
		State:           st.String(),
		Enabled:         modstate.IsEnabled(st),
		Pinned:          modstate.IsPinned(st),
		UpdateAvailable: modstate.UpdateAvailable(st),
		Custom:          !modstate.IsCatalogTracked(st),
		Dependencies:    m.Dependencies,
	}
	if item.InCatalog() {
		v.CatalogVersion = m.Version
	}
	if inst, ok := st.(modstate.Installed); ok {
		v.Version = inst.Version
	}
	return v
}

func writeMods(w io.Writer, format string, views []modView) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(modList{Mods: views})
	case outputTOML:
		return toml.NewEncoder(w).Encode(modList{Mods: views})
	case outputTable, "":
		if len(views) == 0 {
			fmt.Fprintln(w, SubtitleStyle.Render("No mods match."))
			return nil
		}
		fmt.Fprintln(w, modTable(views))
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want table, json or toml)", format)
	}
}

func modTable(views []modView) string {
	rows := make([][]string, 0, len(views))
	for _, v := range views {
		flags := make([]string, 0, 3)
		if v.Pinned {
			flags = append(flags, "pinned")
		}
		if v.UpdateAvailable {
			flags = append(flags, "update")
		}
		if v.Custom {
			flags = append(flags, "custom")
		}
		rows = append(rows, []string{v.Name, v.State, v.CatalogVersion, strings.Join(flags, ",")})
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ColorMuted)).
		Headers("NAME", "STATE", "CATALOG", "FLAGS").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		}).
		Render()
}
