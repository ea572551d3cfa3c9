package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/prepkit-cli/internal/analysis"
	"github.com/KaramelBytes/prepkit-cli/internal/utils"
)

var (
	profOutputPath string
	profSampleRows int
	profTopValues  int
	profCorr       bool
)

var profileCmd = &cobra.Command{
	Use:   "profile <name|file>",
	Short: "Write a Markdown profile: schema, statistics, top values, outliers, correlations",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace()
		if err != nil {
			return err
		}
		ds, err := loadDataset(ws, args[0])
		if err != nil {
			return err
		}
		opt := analysis.DefaultProfileOptions()
		opt.SampleRows = profSampleRows
		opt.TopValues = profTopValues
		opt.Correlations = profCorr
		opt.IQRMultiplier = cfg.IQRMultiplier

		md := analysis.Profile(ds, opt).Markdown()
		if profOutputPath == "" {
			fmt.Println(md)
			return nil
		}
		if err := utils.SafeWriteFile(profOutputPath, []byte(md)); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		fmt.Printf("✓ Wrote profile to %s\n", profOutputPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.Flags().StringVarP(&profOutputPath, "output", "o", "", "optional path to write the profile (Markdown)")
	profileCmd.Flags().IntVar(&profSampleRows, "sample-rows", 5, "number of sample rows to include (0 disables)")
	profileCmd.Flags().IntVar(&profTopValues, "top-values", 5, "most frequent values listed per categorical column")
	profileCmd.Flags().BoolVar(&profCorr, "correlations", false, "compute Pearson correlations among numeric columns")
}
