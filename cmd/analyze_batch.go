package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/prepkit-cli/internal/utils"
	"github.com/KaramelBytes/prepkit-cli/internal/workspace"
)

var (
	abFormat string
	abJobs   int
	abOutDir string
	abQuiet  bool
	abApply  bool
)

type batchItem struct {
	path   string
	report string
	// smart is the --apply output name; written is empty when no step applied.
	smart   string
	written string
	err     error
}

var analyzeBatchCmd = &cobra.Command{
	Use:   "analyze-batch <files...>",
	Short: "Analyze several datasets concurrently, reporting in input order",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files := expandInputs(args)
		if len(files) == 0 {
			return fmt.Errorf("no input files matched")
		}
		ws, err := openWorkspace()
		if err != nil {
			return err
		}
		if abOutDir != "" {
			if err := utils.EnsureDir(abOutDir); err != nil {
				return err
			}
		}

		jobs := abJobs
		if jobs <= 0 {
			jobs = runtime.NumCPU()
		}
		items := make([]batchItem, len(files))
		names := smartNames(files)
		var g errgroup.Group
		g.SetLimit(jobs)
		for i, path := range files {
			i, path := i, path
			items[i].path, items[i].smart = path, names[i]
			g.Go(func() error {
				items[i].report, items[i].written, items[i].err = analyzeOne(ws, path, items[i].smart)
				return nil
			})
		}
		_ = g.Wait()

		failed := 0
		total := len(items)
		for i, it := range items {
			if !abQuiet {
				fmt.Printf("[%d/%d] %s\n", i+1, total, filepath.Base(it.path))
			}
			if it.err != nil {
				failed++
				fmt.Fprintf(os.Stderr, "✗ %s: %v\n", it.path, it.err)
				continue
			}
			if abApply && !abQuiet {
				if it.written != "" {
					fmt.Printf("✓ Wrote %s\n", it.written)
				} else {
					fmt.Printf("ℹ No step changed %s; nothing written\n", filepath.Base(it.path))
				}
			}
			if abOutDir != "" {
				base := filepath.Base(it.path)
				out := filepath.Join(abOutDir, fmt.Sprintf("%s__%d.%s", trimExt(base), i+1, reportExt(abFormat)))
				if err := utils.SafeWriteFile(out, []byte(it.report)); err != nil {
					return fmt.Errorf("write report: %w", err)
				}
				if !abQuiet {
					fmt.Printf("✓ Wrote %s\n", out)
				}
				continue
			}
			if !abQuiet {
				fmt.Println(it.report)
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files failed", failed, total)
		}
		return nil
	},
}

// analyzeOne loads, analyzes and (with --apply) transforms a single file,
// saving the result as smart. It returns the report and the written path.
func analyzeOne(ws *workspace.Workspace, path, smart string) (string, string, error) {
	ds, err := loadDataset(ws, path)
	if err != nil {
		return "", "", err
	}
	res, err := newAnalyzer().Analyze(ds)
	if err != nil {
		return "", "", err
	}
	report, err := renderResult(res, abFormat)
	if err != nil {
		return "", "", err
	}
	if !abApply {
		return report, "", nil
	}
	out, steps := newTransformer().ApplySuggestions(ds, res.Suggestions)
	if !anyApplied(steps) {
		log.Debug("batch apply: nothing applied", zap.String("file", path))
		return report, "", nil
	}
	written, err := ws.Save(out, smart)
	if err != nil {
		return "", "", err
	}
	log.Debug("batch apply", zap.String("file", path), zap.Int("steps", len(steps)), zap.String("output", written))
	return report, written, nil
}

// smartNames derives one --apply output name per input. Inputs sharing a base
// name get the same __<n> suffix as their reports so none overwrites another.
func smartNames(files []string) []string {
	count := make(map[string]int, len(files))
	for _, f := range files {
		count[filepath.Base(f)]++
	}
	out := make([]string, len(files))
	for i, f := range files {
		base := filepath.Base(f)
		if count[base] > 1 {
			base = fmt.Sprintf("%s__%d%s", trimExt(base), i+1, filepath.Ext(base))
		}
		out[i] = workspace.OutputName(base, "smart")
	}
	return out
}

// expandInputs resolves globs, keeps literal paths and names, and drops duplicates.
func expandInputs(args []string) []string {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			// treat as literal path or data-dir name
			matches = []string{arg}
		}
		sort.Strings(matches)
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	return files
}

func trimExt(base string) string { return base[:len(base)-len(filepath.Ext(base))] }

func reportExt(format string) string {
	switch format {
	case "json":
		return "json"
	case "yaml", "yml":
		return "yaml"
	default:
		return "md"
	}
}

func init() {
	rootCmd.AddCommand(analyzeBatchCmd)
	analyzeBatchCmd.Flags().StringVarP(&abFormat, "format", "f", "markdown", "output format: markdown | json | yaml")
	analyzeBatchCmd.Flags().IntVarP(&abJobs, "jobs", "j", 0, "files analyzed concurrently (0 = number of CPUs)")
	analyzeBatchCmd.Flags().StringVar(&abOutDir, "out-dir", "", "write one report per file into this directory")
	analyzeBatchCmd.Flags().BoolVar(&abQuiet, "quiet", false, "suppress progress and non-essential output")
	analyzeBatchCmd.Flags().BoolVar(&abApply, "apply", false, "also apply the suggestions and write <name>_smart.csv per file")
}
