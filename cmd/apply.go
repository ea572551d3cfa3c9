package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/prepkit-cli/internal/analysis"
	"github.com/KaramelBytes/prepkit-cli/internal/dataset"
	"github.com/KaramelBytes/prepkit-cli/internal/transform"
	"github.com/KaramelBytes/prepkit-cli/internal/workspace"
)

var (
	applyOnly []string
	applySkip []string
)

var applyCmd = &cobra.Command{
	Use:   "apply <name|file>",
	Short: "Analyze a dataset and apply the accepted suggestions in order",
	Long: `Analyze a dataset, keep the suggestions selected with --only/--skip
(suggestion types such as MissingValues, Standardization, Encoding), apply them
in order and write <name>_smart.csv to the data directory.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		only, err := parseTypes(applyOnly)
		if err != nil {
			return err
		}
		skip, err := parseTypes(applySkip)
		if err != nil {
			return err
		}
		ws, err := openWorkspace()
		if err != nil {
			return err
		}
		ds, err := loadDataset(ws, args[0])
		if err != nil {
			return err
		}
		res, err := newAnalyzer().Analyze(ds)
		if err != nil {
			return err
		}
		accepted := filterSuggestions(res.Suggestions, only, skip)
		if len(accepted) == 0 {
			fmt.Println("ℹ No suggestions selected; nothing written")
			return nil
		}
		out, steps := newTransformer().ApplySuggestions(ds, accepted)
		printSteps(steps)
		_, err = saveSmart(ws, out, steps, workspace.OutputName(ds.Name(), "smart"))
		return err
	},
}

// saveSmart writes out under name when at least one step was applied and
// returns the written path, or "" when nothing changed.
func saveSmart(ws *workspace.Workspace, out *dataset.Dataset, steps []transform.StepResult, name string) (string, error) {
	if !anyApplied(steps) {
		fmt.Printf("ℹ No step changed %s; nothing written\n", out.Name())
		return "", nil
	}
	path, err := ws.Save(out, name)
	if err != nil {
		return "", err
	}
	fmt.Printf("✓ Wrote %s (%d rows, %d columns)\n", path, out.Rows(), out.Width())
	return path, nil
}

func anyApplied(steps []transform.StepResult) bool {
	for _, s := range steps {
		if s.Status == transform.StatusApplied {
			return true
		}
	}
	return false
}

func parseTypes(names []string) (map[analysis.SuggestionType]bool, error) {
	if len(names) == 0 {
		return nil, nil
	}
	out := make(map[analysis.SuggestionType]bool, len(names))
	for _, n := range names {
		t, ok := analysis.ParseSuggestionType(n)
		if !ok {
			return nil, fmt.Errorf("unknown suggestion type: %s", n)
		}
		out[t] = true
	}
	return out, nil
}

// filterSuggestions keeps suggestions in only (all when nil) minus skip.
func filterSuggestions(in []analysis.Suggestion, only, skip map[analysis.SuggestionType]bool) []analysis.Suggestion {
	var out []analysis.Suggestion
	for _, s := range in {
		if only != nil && !only[s.Type] {
			continue
		}
		if skip[s.Type] {
			continue
		}
		out = append(out, s)
	}
	return out
}

func init() {
	rootCmd.AddCommand(applyCmd)
	applyCmd.Flags().StringSliceVar(&applyOnly, "only", nil, "suggestion types to apply (comma-separated)")
	applyCmd.Flags().StringSliceVar(&applySkip, "skip", nil, "suggestion types to leave out (comma-separated)")
}
