package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KaramelBytes/prepkit-cli/internal/analysis"
	cfgpkg "github.com/KaramelBytes/prepkit-cli/internal/config"
	"github.com/KaramelBytes/prepkit-cli/internal/dataset"
	"github.com/KaramelBytes/prepkit-cli/internal/logging"
	"github.com/KaramelBytes/prepkit-cli/internal/transform"
	"github.com/KaramelBytes/prepkit-cli/internal/workspace"
)

var (
	// Global flags
	cfgFile string
	debug   bool
	dataDir string
	// CSV flags (override config if set)
	flagDelimiter  string
	flagDecimal    string
	flagThousands  string
	flagEncoding   string
	flagMaxRows    int
	flagSheetName  string
	flagSheetIndex int

	// Loaded configuration
	cfg *cfgpkg.Global
	log = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "prepkit",
	Short: "PrepKit CLI: inspect small tabular datasets and apply preprocessing",
	Long: `PrepKit analyzes CSV/TSV/XLSX datasets, recommends preprocessing steps
(missing values, scaling, encoding, outlier cleanup) and applies them, writing
the result next to the imported datasets.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	defer func() { _ = log.Sync() }()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is ~/.prepkit/config.yaml)")
	pf.BoolVar(&debug, "debug", false, "enable debug logging")
	pf.StringVar(&dataDir, "data-dir", "", "data directory (overrides config)")
	pf.StringVar(&flagDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab'")
	pf.StringVar(&flagDecimal, "decimal", "", "decimal separator for numbers: '.'|'comma' (auto-detect if omitted)")
	pf.StringVar(&flagThousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space' (auto-detect if omitted)")
	pf.StringVar(&flagEncoding, "encoding", "", "source encoding: utf-8 | latin1 | windows-1252")
	pf.IntVar(&flagMaxRows, "max-rows", 0, "maximum rows to read (0 = unlimited)")
	pf.StringVar(&flagSheetName, "sheet-name", "", "XLSX: sheet name to read")
	pf.IntVar(&flagSheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: commands report a missing config when they need it
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		cfg = nil
		return
	}
	cfg = c

	f := rootCmd.PersistentFlags()
	if f.Changed("data-dir") && dataDir != "" {
		cfg.DataDir = dataDir
	}
	if f.Changed("delimiter") {
		cfg.CSVDelimiter = flagDelimiter
	}
	if f.Changed("decimal") {
		cfg.CSVDecimal = flagDecimal
	}
	if f.Changed("thousands") {
		cfg.CSVThousands = flagThousands
	}
	if f.Changed("encoding") && flagEncoding != "" {
		cfg.CSVEncoding = flagEncoding
	}
	if f.Changed("max-rows") && flagMaxRows >= 0 {
		cfg.MaxRows = flagMaxRows
	}

	level := cfg.LogLevel
	if debug {
		level = "debug"
	}
	l, err := logging.New(level, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: %v\n", err)
		l = zap.NewNop()
	}
	log = l
}

func loadedConfig() (*cfgpkg.Global, error) {
	if cfg == nil {
		return nil, errors.New("no configuration loaded")
	}
	return cfg, nil
}

func openWorkspace() (*workspace.Workspace, error) {
	c, err := loadedConfig()
	if err != nil {
		return nil, err
	}
	return workspace.Open(c.DataDir)
}

// loadDataset resolves ref against the data directory and reads it with the
// configured CSV options.
func loadDataset(ws *workspace.Workspace, ref string) (*dataset.Dataset, error) {
	c, err := loadedConfig()
	if err != nil {
		return nil, err
	}
	opt, err := c.ReadOptions()
	if err != nil {
		return nil, err
	}
	p, err := ws.Resolve(ref)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(p), ".xlsx") {
		return dataset.LoadXLSX(p, opt, flagSheetName, flagSheetIndex)
	}
	return dataset.Load(p, opt)
}

func newAnalyzer() *analysis.Analyzer {
	return analysis.NewAnalyzer(cfg.AnalyzerOptions(), log)
}

func newTransformer() *transform.Transformer {
	return transform.New(cfg.TransformOptions(), log)
}
