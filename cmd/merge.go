package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/prepkit-cli/internal/dataset"
	"github.com/KaramelBytes/prepkit-cli/internal/workspace"
)

var mergeOutput string

var mergeCmd = &cobra.Command{
	Use:   "merge <a> <b>",
	Short: "Fuse two datasets by stacking or joining on their first shared column",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace()
		if err != nil {
			return err
		}
		a, err := loadDataset(ws, args[0])
		if err != nil {
			return err
		}
		b, err := loadDataset(ws, args[1])
		if err != nil {
			return err
		}
		merged, info, err := dataset.Merge(a, b)
		if err != nil {
			return err
		}
		name := mergeOutput
		if name == "" {
			name = workspace.MergedName(time.Now())
		}
		path, err := ws.Save(merged, name)
		if err != nil {
			return err
		}
		how := "stacked rows"
		if info.Kind == dataset.MergeJoin {
			how = fmt.Sprintf("joined on %q", info.Key)
		}
		fmt.Printf("✓ Merged %s + %s (%s): %d rows, %d duplicate(s) removed\n", a.Name(), b.Name(), how, info.Rows, info.Duplicates)
		fmt.Printf("✓ Wrote %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mergeCmd)
	mergeCmd.Flags().StringVarP(&mergeOutput, "output", "o", "", "output file name in the data directory (default fused_dataset_<timestamp>_<id>.csv)")
}
