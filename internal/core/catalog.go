package core

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// CategoryOther is the bucket unknown categories fold into for reporting.
const CategoryOther = "Other"

// DefaultCategories seeds the catalog when no seed file is present.
var DefaultCategories = []string{"AI", "Video", "Software", "System", CategoryOther}

// Catalog holds the allowed category values for subscriptions.
// Billing cycles are a closed enum and are not catalog-driven.
type Catalog struct {
	categories []string
	index      map[string]struct{}
}

func NewCatalog(categories []string) *Catalog {
	cats := dedupe(categories)
	if len(cats) == 0 {
		cats = append([]string(nil), DefaultCategories...)
	}
	index := make(map[string]struct{}, len(cats))
	for _, c := range cats {
		index[c] = struct{}{}
	}
	return &Catalog{categories: cats, index: index}
}

// LoadCatalog reads the category seed file from the data directory,
// falling back to DefaultCategories when the file is missing or empty.
func LoadCatalog(dataDir string) *Catalog {
	return NewCatalog(readLines(filepath.Join(dataDir, "seed_categories.txt")))
}

// Categories returns the allowed category values in seed order.
func (c *Catalog) Categories() []string {
	return append([]string(nil), c.categories...)
}

// HasCategory reports whether the value is an allowed category.
func (c *Catalog) HasCategory(name string) bool {
	_, ok := c.index[strings.TrimSpace(name)]
	return ok
}

// NormalizeCategory maps arbitrary input onto the catalog: known values
// pass through, everything else folds into Other.
func (c *Catalog) NormalizeCategory(name string) string {
	name = strings.TrimSpace(name)
	if c.HasCategory(name) {
		return name
	}
	return CategoryOther
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
