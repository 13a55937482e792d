// Package presets holds named disk-geometry presets for mkfs, loaded
// from an embedded CSV at program startup.
package presets

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/gocarina/gocsv"
)

// Geometry is one named combination of block and inode counts suitable
// for v6fs.Mkfs.
type Geometry struct {
	Slug      string `csv:"slug"`
	Name      string `csv:"name"`
	NumBlocks uint16 `csv:"num_blocks"`
	NumInodes uint16 `csv:"num_inodes"`
	Notes     string `csv:"notes"`
}

//go:embed geometries.csv
var rawCSV string

var geometries = map[string]Geometry{}

func init() {
	reader := strings.NewReader(rawCSV)
	err := gocsv.UnmarshalToCallback(reader, func(row Geometry) error {
		if _, exists := geometries[row.Slug]; exists {
			return fmt.Errorf("duplicate preset slug %q", row.Slug)
		}
		geometries[row.Slug] = row
		return nil
	})
	if err != nil {
		panic(err)
	}
}

// Get returns the named geometry preset, or an error if no preset with
// that slug was loaded.
func Get(slug string) (Geometry, error) {
	geometry, ok := geometries[slug]
	if !ok {
		return Geometry{}, fmt.Errorf("no predefined disk geometry exists with slug %q", slug)
	}
	return geometry, nil
}

// Slugs returns every preset's slug, for use in CLI help text.
func Slugs() []string {
	slugs := make([]string, 0, len(geometries))
	for slug := range geometries {
		slugs = append(slugs, slug)
	}
	return slugs
}
