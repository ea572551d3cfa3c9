package cmd

import (
	"fmt"
	"strings"

	cfgpkg "github.com/KaramelBytes/prepkit-cli/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set PrepKit configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Println("No config loaded")
			return nil
		}
		fmt.Printf("data_dir: %s\n", cfg.DataDir)
		fmt.Printf("log_level: %s\n", cfg.LogLevel)
		fmt.Printf("log_format: %s\n", cfg.LogFormat)
		if cfg.CSVDelimiter != "" {
			fmt.Printf("csv_delimiter: %q\n", cfg.CSVDelimiter)
		}
		if cfg.CSVDecimal != "" {
			fmt.Printf("csv_decimal: %q\n", cfg.CSVDecimal)
		}
		if cfg.CSVThousands != "" {
			fmt.Printf("csv_thousands: %q\n", cfg.CSVThousands)
		}
		fmt.Printf("csv_encoding: %s\n", cfg.CSVEncoding)
		if cfg.MaxRows > 0 {
			fmt.Printf("max_rows: %d\n", cfg.MaxRows)
		}
		fmt.Printf("missing_threshold: %.3f\n", cfg.MissingThreshold)
		fmt.Printf("scale_ratio_threshold: %.3f\n", cfg.ScaleRatioThreshold)
		fmt.Printf("unit_scale_max: %.3f\n", cfg.UnitScaleMax)
		fmt.Printf("category_cap: %d\n", cfg.CategoryCap)
		fmt.Printf("outlier_rate_threshold: %.3f\n", cfg.OutlierRateThreshold)
		fmt.Printf("iqr_multiplier: %.3f\n", cfg.IQRMultiplier)
		fmt.Printf("onehot_max_categories: %d\n", cfg.OneHotMaxCategories)
		fmt.Printf("variance_threshold: %.3f\n", cfg.VarianceThreshold)
		fmt.Printf("drop_column_missing_fraction: %.3f\n", cfg.DropColumnMissingFraction)
		quoted := make([]string, len(cfg.MissingMarkers))
		for i, m := range cfg.MissingMarkers {
			quoted[i] = fmt.Sprintf("%q", m)
		}
		fmt.Printf("missing_markers: [%s]\n", strings.Join(quoted, ", "))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		if err := cfg.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Println("Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
