// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/scarabmm/scarab/internal/config"

	"github.com/spf13/cobra"
)

func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect scarab configuration",
		Long: `Inspect scarab configuration.

Configuration is read from config.cue in:
  - Linux: ~/.config/scarab/
  - macOS: ~/Library/Application Support/scarab/
  - Windows: %APPDATA%\scarab\

SCARAB_* environment variables override file values.`,
		Annotations: map[string]string{annotationNoEngine: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	var asCUE bool
	show := &cobra.Command{
		Use:         "show",
		Short:       "Show the effective configuration",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationNoEngine: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if asCUE {
				fmt.Fprint(cmd.OutOrStdout(), config.GenerateCUE(app.Config))
				return nil
			}
			showConfig(app)
			return nil
		},
	}
	show.Flags().BoolVar(&asCUE, "cue", false, "print the configuration as CUE")
	cfgCmd.AddCommand(show)

	return cfgCmd
}

func showConfig(app *App) {
	cfg := app.Config
	key := func(k string) string { return NameStyle.Render(k) }
	val := func(v any) string {
		s := fmt.Sprint(v)
		if s == "" {
			return SubtitleStyle.Render("(unset)")
		}
		return SuccessStyle.Render(s)
	}

	app.printf("%s\n\n", TitleStyle.Render("Current Configuration"))
	source := SubtitleStyle.Render("(defaults and environment)")
	if src, ok := app.deps.Config.(interface{ Source() string }); ok && src.Source() != "" {
		source = src.Source()
	}
	app.printf("%s: %s\n\n", key("config file"), source)
	app.printf("%s: %s\n", key("managed_path"), val(cfg.ManagedPath))
	app.printf("%s: %s\n", key("registry_path"), val(cfg.RegistryPath))
	app.printf("%s: %s\n", key("catalog_path"), val(cfg.CatalogPath))
	app.printf("%s: %s\n", key("cache_dir"), val(cfg.CacheDir))
	app.printf("%s: %s\n", key("low_storage"), val(cfg.LowStorage))
	app.printf("%s: %s\n", key("download_timeout"), val(cfg.DownloadTimeout))
	app.printf("\n%s:\n", key("ui"))
	app.printf("  verbose: %s\n", val(cfg.UI.Verbose))
	app.printf("  assume_yes: %s\n", val(cfg.UI.AssumeYes))
	app.printf("\n%s:\n", key("metrics"))
	app.printf("  textfile: %s\n", val(cfg.Metrics.Textfile))
	app.printf("\n%s:\n", key("watch"))
	app.printf("  debounce: %s\n", val(cfg.Watch.Debounce))
	app.printf("  ignore: %s\n", val(cfg.Watch.Ignore))
}
