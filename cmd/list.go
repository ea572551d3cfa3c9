package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/prepkit-cli/internal/analysis"
	"github.com/KaramelBytes/prepkit-cli/internal/dataset"
)

var (
	importForce bool
	deleteYes   bool
	showRows    int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List datasets in the data directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace()
		if err != nil {
			return err
		}
		entries, err := ws.List()
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Printf("(no datasets in %s)\n", ws.Dir())
			return nil
		}
		for _, e := range entries {
			fmt.Printf("- %s (%s, modified %s)\n", e.Name, e.HumanSize(), e.Age())
		}
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <files...>",
	Short: "Copy datasets into the data directory",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace()
		if err != nil {
			return err
		}
		for _, src := range args {
			e, err := ws.Import(src, importForce)
			if err != nil {
				return err
			}
			fmt.Printf("✓ Imported %s (%s)\n", e.Name, e.HumanSize())
		}
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a dataset from the data directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !deleteYes {
			return fmt.Errorf("refusing to delete %s without --yes", args[0])
		}
		ws, err := openWorkspace()
		if err != nil {
			return err
		}
		if err := ws.Delete(args[0]); err != nil {
			return err
		}
		fmt.Printf("✓ Deleted %s\n", args[0])
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <name|file>",
	Short: "Print row and column counts, column types and the first rows",
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
		fmt.Print(preview(ds, showRows))
		return nil
	},
}

func preview(ds *dataset.Dataset, n int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d rows x %d columns\n", ds.Name(), ds.Rows(), ds.Width())
	for _, c := range ds.Columns() {
		fmt.Fprintf(&b, "- %s: %s/%s", c.Name(), c.Kind(), analysis.Classify(c))
		if nc := c.NullCount(); nc > 0 {
			fmt.Fprintf(&b, " (%d missing)", nc)
		}
		b.WriteByte('\n')
	}
	head := ds.Head(n)
	if head.Rows() == 0 || head.Width() == 0 {
		return b.String()
	}
	b.WriteString("\n| " + strings.Join(head.Names(), " | ") + " |\n")
	b.WriteString("|" + strings.Repeat("---|", head.Width()) + "\n")
	for i := 0; i < head.Rows(); i++ {
		rec := head.Record(i)
		for j, v := range rec {
			rec[j] = strings.ReplaceAll(v, "|", "/")
		}
		b.WriteString("| " + strings.Join(rec, " | ") + " |\n")
	}
	return b.String()
}

func init() {
	rootCmd.AddCommand(listCmd, importCmd, deleteCmd, showCmd)
	importCmd.Flags().BoolVar(&importForce, "force", false, "overwrite a dataset with the same name")
	deleteCmd.Flags().BoolVar(&deleteYes, "yes", false, "confirm deletion")
	showCmd.Flags().IntVarP(&showRows, "rows", "n", 12, "number of rows to print")
}
