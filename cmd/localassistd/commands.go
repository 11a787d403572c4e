package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"localassist/internal/registry"
)

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List catalog models and whether they are installed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			cat, err := loadCatalog(cfg.CatalogOverlay)
			if err != nil {
				return err
			}
			store, err := registry.NewStore(cfg.ModelsDir)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tCATEGORY\tSIZE\tINSTALLED")
			for _, d := range cat.All() {
				fmt.Fprintf(tw, "%s\t%s\t%.1f GB\t%t\n", d.Name, d.Category, float64(d.SizeBytes)/1e9, store.Installed(d))
			}
			return tw.Flush()
		},
	}
}

func newSanityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sanity",
		Short: "Check that the configured runtime can serve loads",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			d, err := build(cfg, newLogger(cfg.LogLevel, logJSON))
			if err != nil {
				return err
			}
			defer d.Close()
			rep := d.manager.SanityCheck()
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(rep); err != nil {
				return err
			}
			if !rep.OK() {
				return fmt.Errorf("sanity check failed: %s", rep.Error)
			}
			return nil
		},
	}
}
