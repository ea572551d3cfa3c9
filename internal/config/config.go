package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/prepkit-cli/internal/analysis"
	"github.com/KaramelBytes/prepkit-cli/internal/dataset"
	"github.com/KaramelBytes/prepkit-cli/internal/transform"
)

// Global configuration structure.
type Global struct {
	DataDir   string `mapstructure:"data_dir" yaml:"data_dir"`
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`

	// CSV reading
	CSVDelimiter string `mapstructure:"csv_delimiter" yaml:"csv_delimiter"`
	CSVDecimal   string `mapstructure:"csv_decimal" yaml:"csv_decimal"`
	CSVThousands string `mapstructure:"csv_thousands" yaml:"csv_thousands"`
	CSVEncoding  string `mapstructure:"csv_encoding" yaml:"csv_encoding"`
	MaxRows      int    `mapstructure:"max_rows" yaml:"max_rows"`

	// Analyzer heuristics
	MissingThreshold     float64 `mapstructure:"missing_threshold" yaml:"missing_threshold"`
	ScaleRatioThreshold  float64 `mapstructure:"scale_ratio_threshold" yaml:"scale_ratio_threshold"`
	UnitScaleMax         float64 `mapstructure:"unit_scale_max" yaml:"unit_scale_max"`
	CategoryCap          int     `mapstructure:"category_cap" yaml:"category_cap"`
	OutlierRateThreshold float64 `mapstructure:"outlier_rate_threshold" yaml:"outlier_rate_threshold"`
	IQRMultiplier        float64 `mapstructure:"iqr_multiplier" yaml:"iqr_multiplier"`

	// Transformer
	OneHotMaxCategories       int      `mapstructure:"onehot_max_categories" yaml:"onehot_max_categories"`
	VarianceThreshold         float64  `mapstructure:"variance_threshold" yaml:"variance_threshold"`
	DropColumnMissingFraction float64  `mapstructure:"drop_column_missing_fraction" yaml:"drop_column_missing_fraction"`
	MissingMarkers            []string `mapstructure:"missing_markers" yaml:"missing_markers"`
}

// Dir returns ~/.prepkit.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".prepkit"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.prepkit/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
// A .env file in the working directory is applied to the environment first.
func Load(cfgFile string) (*Global, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("PREPKIT")
	v.AutomaticEnv()

	an := analysis.DefaultOptions()
	tr := transform.DefaultOptions()
	v.SetDefault("data_dir", "")
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_format", "console")
	v.SetDefault("csv_delimiter", "")
	v.SetDefault("csv_decimal", "")
	v.SetDefault("csv_thousands", "")
	v.SetDefault("csv_encoding", "utf-8")
	v.SetDefault("max_rows", 0)
	v.SetDefault("missing_threshold", an.MissingThreshold)
	v.SetDefault("scale_ratio_threshold", an.ScaleRatioThreshold)
	v.SetDefault("unit_scale_max", an.UnitScaleMax)
	v.SetDefault("category_cap", an.CategoryCap)
	v.SetDefault("outlier_rate_threshold", an.OutlierRateThreshold)
	v.SetDefault("iqr_multiplier", an.IQRMultiplier)
	v.SetDefault("onehot_max_categories", tr.OneHotMaxCategories)
	v.SetDefault("variance_threshold", tr.VarianceThreshold)
	v.SetDefault("drop_column_missing_fraction", tr.DropColumnMissingFraction)
	v.SetDefault("missing_markers", tr.MissingMarkers)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		_ = os.MkdirAll(dir, 0o755)
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.DataDir == "" {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		c.DataDir = filepath.Join(dir, "data")
	}
	return &c, nil
}

// AnalyzerOptions maps the configured heuristics onto analyzer options.
func (c *Global) AnalyzerOptions() analysis.Options {
	o := analysis.DefaultOptions()
	o.MissingThreshold = c.MissingThreshold
	o.ScaleRatioThreshold = c.ScaleRatioThreshold
	o.UnitScaleMax = c.UnitScaleMax
	o.CategoryCap = c.CategoryCap
	o.OutlierRateThreshold = c.OutlierRateThreshold
	o.IQRMultiplier = c.IQRMultiplier
	if len(c.MissingMarkers) > 0 {
		o.MissingMarkers = append([]string(nil), c.MissingMarkers...)
	}
	return o
}

// TransformOptions maps the configured tunables onto transformer options.
func (c *Global) TransformOptions() transform.Options {
	o := transform.DefaultOptions()
	o.DropColumnMissingFraction = c.DropColumnMissingFraction
	o.VarianceThreshold = c.VarianceThreshold
	o.OneHotMaxCategories = c.OneHotMaxCategories
	o.IQRMultiplier = c.IQRMultiplier
	if len(c.MissingMarkers) > 0 {
		o.MissingMarkers = append([]string(nil), c.MissingMarkers...)
	}
	return o
}

// ReadOptions builds CSV read options from the csv_* keys.
func (c *Global) ReadOptions() (dataset.ReadOptions, error) {
	opt := dataset.DefaultReadOptions()
	var err error
	if opt.Delimiter, err = ParseDelimiter(c.CSVDelimiter); err != nil {
		return opt, err
	}
	if opt.DecimalSeparator, err = ParseDecimal(c.CSVDecimal); err != nil {
		return opt, err
	}
	if opt.ThousandsSeparator, err = ParseThousands(c.CSVThousands); err != nil {
		return opt, err
	}
	if c.CSVEncoding != "" {
		opt.Encoding = c.CSVEncoding
	}
	if c.MaxRows > 0 {
		opt.MaxRows = c.MaxRows
	}
	return opt, nil
}

// ParseDelimiter accepts ',', ';' or tab. Empty means sniff.
func ParseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return 0, nil
	case ",":
		return ',', nil
	case "\t", "tab":
		return '\t', nil
	case ";":
		return ';', nil
	default:
		return 0, fmt.Errorf("unsupported delimiter: %s (use ','|';'|'tab')", s)
	}
}

// ParseDecimal accepts '.' or comma. Empty means auto-detect.
func ParseDecimal(s string) (rune, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return 0, nil
	case ",", "comma":
		return ',', nil
	case ".", "dot":
		return '.', nil
	default:
		return 0, fmt.Errorf("unsupported decimal separator: %s (use '.'|'comma')", s)
	}
}

// ParseThousands accepts ',', '.' or space. Empty means auto-detect.
func ParseThousands(s string) (rune, error) {
	if s == " " {
		return ' ', nil
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return 0, nil
	case ",":
		return ',', nil
	case ".":
		return '.', nil
	case "space":
		return ' ', nil
	default:
		return 0, fmt.Errorf("unsupported thousands separator: %s (use ','|'.'|'space')", s)
	}
}

// Set assigns a single key from its string form.
func (c *Global) Set(key, val string) error {
	floatKey := func(dst *float64) error {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f < 0 {
			return fmt.Errorf("invalid float for %s: %v", key, val)
		}
		*dst = f
		return nil
	}
	intKey := func(dst *int) error {
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return fmt.Errorf("invalid int for %s: %v", key, val)
		}
		*dst = i
		return nil
	}
	switch key {
	case "data_dir":
		c.DataDir = val
	case "log_level":
		c.LogLevel = strings.ToLower(val)
	case "log_format":
		switch strings.ToLower(val) {
		case "console", "json":
			c.LogFormat = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid log_format: %s (use console or json)", val)
		}
	case "csv_delimiter":
		if _, err := ParseDelimiter(val); err != nil {
			return err
		}
		c.CSVDelimiter = val
	case "csv_decimal":
		if _, err := ParseDecimal(val); err != nil {
			return err
		}
		c.CSVDecimal = val
	case "csv_thousands":
		if _, err := ParseThousands(val); err != nil {
			return err
		}
		c.CSVThousands = val
	case "csv_encoding":
		c.CSVEncoding = strings.ToLower(val)
	case "max_rows":
		return intKey(&c.MaxRows)
	case "missing_threshold":
		return floatKey(&c.MissingThreshold)
	case "scale_ratio_threshold":
		return floatKey(&c.ScaleRatioThreshold)
	case "unit_scale_max":
		return floatKey(&c.UnitScaleMax)
	case "category_cap":
		return intKey(&c.CategoryCap)
	case "outlier_rate_threshold":
		return floatKey(&c.OutlierRateThreshold)
	case "iqr_multiplier":
		return floatKey(&c.IQRMultiplier)
	case "onehot_max_categories":
		return intKey(&c.OneHotMaxCategories)
	case "variance_threshold":
		return floatKey(&c.VarianceThreshold)
	case "drop_column_missing_fraction":
		return floatKey(&c.DropColumnMissingFraction)
	case "missing_markers":
		c.MissingMarkers = strings.Split(val, ",")
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}
