// Package mockdata loads the property and timeline templates attached to
// every imported profile.
package mockdata

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"sort"
	"strconv"
)

//go:embed bundles/*.json
var embedded embed.FS

// Record is a free-form template. Keys follow the CMS field names.
type Record map[string]any

// Clone returns a shallow copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// String returns the value under key when it is a string.
func (r Record) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// Bundle is one numbered set of templates.
type Bundle struct {
	Number        int
	Stats         Record
	Properties    []Record
	TimelinePosts []Record
}

var propertiesFile = regexp.MustCompile(`^mockProperties(\d+)\.json$`)

// Embedded returns the bundles compiled into the binary.
func Embedded() ([]Bundle, error) {
	sub, err := fs.Sub(embedded, "bundles")
	if err != nil {
		return nil, err
	}
	return Load(sub)
}

// LoadDir reads bundles from a directory laid out like the embedded set.
func LoadDir(dir string) ([]Bundle, error) {
	return Load(os.DirFS(dir))
}

// Load reads every mockProperties{n}.json in fsys together with its
// mockTimelinePosts{n}.json and optional mockPortfolioStats{n}.json.
// Bundles are returned in ascending number order.
func Load(fsys fs.FS) ([]Bundle, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("listing mock data: %w", err)
	}

	var numbers []int
	for _, e := range entries {
		m := propertiesFile.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		numbers = append(numbers, n)
	}
	if len(numbers) == 0 {
		return nil, errors.New("no mockProperties{n}.json files found")
	}
	sort.Ints(numbers)

	bundles := make([]Bundle, 0, len(numbers))
	for _, n := range numbers {
		b := Bundle{Number: n}
		if err := decodeFile(fsys, fmt.Sprintf("mockProperties%d.json", n), &b.Properties); err != nil {
			return nil, err
		}
		if err := decodeFile(fsys, fmt.Sprintf("mockTimelinePosts%d.json", n), &b.TimelinePosts); err != nil {
			return nil, err
		}
		statsName := fmt.Sprintf("mockPortfolioStats%d.json", n)
		if err := decodeFile(fsys, statsName, &b.Stats); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		bundles = append(bundles, b)
	}
	return bundles, nil
}

func decodeFile(fsys fs.FS, name string, out any) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("reading %s: %w", name, err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decoding %s: %w", name, err)
	}
	return nil
}
