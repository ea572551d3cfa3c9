package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/prepkit-cli/internal/analysis"
	"github.com/KaramelBytes/prepkit-cli/internal/dataset"
	"github.com/KaramelBytes/prepkit-cli/internal/transform"
	"github.com/KaramelBytes/prepkit-cli/internal/workspace"
)

var (
	trColumns            []string
	trIncludeIdentifiers bool
	trThreshold          float64
)

// actions that never touch identifier columns unless asked to
var identifierSafe = map[transform.Action]bool{
	transform.ActionNormalize:    true,
	transform.ActionStandardize:  true,
	transform.ActionOneHot:       true,
	transform.ActionLabel:        true,
	transform.ActionAutoEncode:   true,
	transform.ActionDropOutliers: true,
	transform.ActionClipOutliers: true,
}

var transformCmd = &cobra.Command{
	Use:   "transform <action> <name|file>",
	Short: "Apply a single preprocessing action and write <name>_<action>.csv",
	Long: `Apply one action to a dataset. Actions: impute (missing), normalize,
standardize, variance, onehot, label, auto-encode, drop-outliers, clip-outliers,
drop-columns. Identifier columns are left out of scaling, encoding and outlier
handling unless --include-identifiers is set.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		action, err := transform.ParseAction(args[0])
		if err != nil {
			return err
		}
		if action == transform.ActionExclude || action == transform.ActionNone {
			fmt.Printf("ℹ %s never changes a dataset; nothing written\n", action)
			return nil
		}
		if action == transform.ActionDropColumns && len(trColumns) == 0 {
			return fmt.Errorf("drop-columns requires --columns")
		}
		ws, err := openWorkspace()
		if err != nil {
			return err
		}
		ds, err := loadDataset(ws, args[1])
		if err != nil {
			return err
		}

		opt := cfg.TransformOptions()
		if cmd.Flags().Changed("threshold") {
			opt.VarianceThreshold = trThreshold
		}
		tr := transform.New(opt, log)

		scope := trColumns
		if len(scope) == 0 && identifierSafe[action] && !trIncludeIdentifiers {
			var ids []string
			scope, ids = withoutIdentifiers(ds)
			if len(ids) > 0 {
				fmt.Printf("ℹ Leaving identifier column(s) unchanged: %s\n", strings.Join(ids, ", "))
			}
			if len(scope) == 0 {
				fmt.Println("ℹ Only identifier columns present; nothing written")
				return nil
			}
		}

		out, changed, err := tr.Apply(ds, action, scope)
		if err != nil {
			return err
		}
		if !changed {
			fmt.Printf("ℹ %s: %s; nothing written\n", action, transform.NoOpReason(action))
			return nil
		}
		path, err := ws.Save(out, workspace.OutputName(ds.Name(), string(action)))
		if err != nil {
			return err
		}
		fmt.Printf("✓ Wrote %s (%d rows, %d columns)\n", path, out.Rows(), out.Width())
		return nil
	},
}

// withoutIdentifiers splits the column names into non-identifiers and identifiers.
func withoutIdentifiers(ds *dataset.Dataset) (rest, ids []string) {
	for _, c := range ds.Columns() {
		if analysis.Classify(c) == analysis.Identifier {
			ids = append(ids, c.Name())
			continue
		}
		rest = append(rest, c.Name())
	}
	return rest, ids
}

func init() {
	rootCmd.AddCommand(transformCmd)
	transformCmd.Flags().StringSliceVar(&trColumns, "columns", nil, "restrict the action to these columns (comma-separated)")
	transformCmd.Flags().BoolVar(&trIncludeIdentifiers, "include-identifiers", false, "also transform identifier columns")
	transformCmd.Flags().Float64Var(&trThreshold, "threshold", 0.01, "variance threshold for the variance action")
}
