package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/prepkit-cli/internal/analysis"
	"github.com/KaramelBytes/prepkit-cli/internal/transform"
	"github.com/KaramelBytes/prepkit-cli/internal/utils"
	"github.com/KaramelBytes/prepkit-cli/internal/workspace"
)

var (
	anaFormat     string
	anaOutputPath string
	anaApply      bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <name|file>",
	Short: "Analyze a dataset and recommend preprocessing steps",
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
		res, err := newAnalyzer().Analyze(ds)
		if err != nil {
			return err
		}
		out, err := renderResult(res, anaFormat)
		if err != nil {
			return err
		}
		if anaOutputPath != "" {
			if err := utils.SafeWriteFile(anaOutputPath, []byte(out)); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Printf("✓ Wrote analysis to %s\n", anaOutputPath)
		} else {
			fmt.Println(out)
		}

		if !anaApply {
			return nil
		}
		smart, steps := newTransformer().ApplySuggestions(ds, res.Suggestions)
		printSteps(steps)
		_, err = saveSmart(ws, smart, steps, workspace.OutputName(ds.Name(), "smart"))
		return err
	},
}

func renderResult(res *analysis.Result, format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "markdown", "md":
		return res.Markdown(), nil
	case "json":
		b, err := utils.PrettyJSON(res)
		if err != nil {
			return "", err
		}
		return string(b), nil
	case "yaml", "yml":
		b, err := yaml.Marshal(res)
		if err != nil {
			return "", fmt.Errorf("marshal yaml: %w", err)
		}
		return string(b), nil
	default:
		return "", fmt.Errorf("unsupported --format: %s (use markdown|json|yaml)", format)
	}
}

func printSteps(steps []transform.StepResult) {
	for i, s := range steps {
		mark := "✓"
		switch s.Status {
		case transform.StatusSkipped:
			mark = "ℹ"
		case transform.StatusFailed:
			mark = "✗"
		}
		fmt.Printf("%s [%d] %s (%s): %s", mark, i+1, s.Type, s.Action, s.Status)
		if s.Detail != "" {
			fmt.Printf(" - %s", s.Detail)
		}
		fmt.Println()
	}
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaFormat, "format", "f", "markdown", "output format: markdown | json | yaml")
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "optional path to write the analysis")
	analyzeCmd.Flags().BoolVar(&anaApply, "apply", false, "apply every suggestion and write <name>_smart.csv")
}
