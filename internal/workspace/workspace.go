// Package workspace manages the data directory holding imported datasets and
// transformation outputs.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/KaramelBytes/prepkit-cli/internal/dataset"
	"github.com/KaramelBytes/prepkit-cli/internal/utils"
)

// ErrNotFound is returned when a dataset reference resolves to nothing.
var ErrNotFound = errors.New("dataset not found")

var supported = map[string]struct{}{".csv": {}, ".tsv": {}, ".xlsx": {}}

// Entry is one dataset file in the data directory.
type Entry struct {
	Name    string    `json:"name" yaml:"name"`
	Path    string    `json:"path" yaml:"path"`
	Size    int64     `json:"size" yaml:"size"`
	ModTime time.Time `json:"mod_time" yaml:"mod_time"`
}

// HumanSize formats the size for listings, e.g. "1.2 kB".
func (e Entry) HumanSize() string { return humanize.Bytes(uint64(e.Size)) }

// Age formats the modification time relative to now, e.g. "3 minutes ago".
func (e Entry) Age() string { return humanize.Time(e.ModTime) }

// Workspace is a data directory.
type Workspace struct {
	dir string
}

// Open returns the workspace rooted at dir, creating it if needed. A leading
// "~" expands to the home directory.
func Open(dir string) (*Workspace, error) {
	if dir == "" {
		return nil, errors.New("data dir is required")
	}
	if strings.HasPrefix(dir, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		dir = filepath.Join(home, strings.TrimLeft(strings.TrimPrefix(dir, "~"), `/\`))
	}
	dir = filepath.Clean(dir)
	if err := utils.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Workspace{dir: dir}, nil
}

// Dir returns the absolute or cleaned data directory path.
func (w *Workspace) Dir() string { return w.dir }

// List returns the dataset files sorted by name.
func (w *Workspace) List() ([]Entry, error) {
	items, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("read data dir: %w", err)
	}
	var out []Entry
	for _, it := range items {
		if it.IsDir() {
			continue
		}
		if _, ok := supported[strings.ToLower(filepath.Ext(it.Name()))]; !ok {
			continue
		}
		info, err := it.Info()
		if err != nil {
			continue
		}
		out = append(out, Entry{
			Name:    it.Name(),
			Path:    filepath.Join(w.dir, it.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Import copies src into the data directory. An existing file with the same
// name is only replaced when overwrite is set.
func (w *Workspace) Import(src string, overwrite bool) (Entry, error) {
	ext := strings.ToLower(filepath.Ext(src))
	if _, ok := supported[ext]; !ok {
		return Entry{}, fmt.Errorf("unsupported file type %q (use .csv, .tsv or .xlsx)", ext)
	}
	dst := filepath.Join(w.dir, filepath.Base(src))
	if _, err := os.Stat(dst); err == nil && !overwrite {
		return Entry{}, fmt.Errorf("%s already exists in %s", filepath.Base(src), w.dir)
	}
	if err := utils.CopyFile(src, dst); err != nil {
		return Entry{}, fmt.Errorf("import %s: %w", src, err)
	}
	info, err := os.Stat(dst)
	if err != nil {
		return Entry{}, err
	}
	return Entry{Name: info.Name(), Path: dst, Size: info.Size(), ModTime: info.ModTime()}, nil
}

// Delete removes a dataset from the data directory by name.
func (w *Workspace) Delete(name string) error {
	p := filepath.Join(w.dir, filepath.Base(name))
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

// Resolve maps a reference to a file path. A reference is an existing path,
// a file name in the data directory, or such a name without its .csv suffix.
func (w *Workspace) Resolve(ref string) (string, error) {
	if ref == "" {
		return "", errors.New("dataset name is required")
	}
	candidates := []string{ref}
	if !filepath.IsAbs(ref) {
		candidates = append(candidates, filepath.Join(w.dir, ref))
		if filepath.Ext(ref) == "" {
			candidates = append(candidates, filepath.Join(w.dir, ref+".csv"))
		}
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c, nil
		}
	}
	return "", fmt.Errorf("%s: %w", ref, ErrNotFound)
}

// Load resolves ref and reads it.
func (w *Workspace) Load(ref string, opt dataset.ReadOptions) (*dataset.Dataset, error) {
	p, err := w.Resolve(ref)
	if err != nil {
		return nil, err
	}
	return dataset.Load(p, opt)
}

// Save writes ds as CSV under name in the data directory and returns the path.
func (w *Workspace) Save(ds *dataset.Dataset, name string) (string, error) {
	b, err := ds.Bytes()
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", name, err)
	}
	p := filepath.Join(w.dir, filepath.Base(name))
	if err := utils.SafeWriteFile(p, b); err != nil {
		return "", err
	}
	return p, nil
}

// OutputName derives "<stem>_<action>.csv" from a dataset file name.
func OutputName(base, action string) string {
	base = filepath.Base(base)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return fmt.Sprintf("%s_%s.csv", stem, action)
}

// MergedName returns a unique name for a fused dataset.
func MergedName(now time.Time) string {
	id := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("fused_dataset_%s_%s.csv", now.Format("20060102_150405"), id)
}
