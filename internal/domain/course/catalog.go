package course

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type rectDoc struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	W float64 `yaml:"width"`
	H float64 `yaml:"height"`
}

type areaDoc struct {
	Name     string   `yaml:"name"`
	Distance string   `yaml:"distance"`
	Bounds   rectDoc  `yaml:",inline"`
	Cover    *rectDoc `yaml:"cover,omitempty"`
}

type courseDoc struct {
	Name       string    `yaml:"name"`
	Background string    `yaml:"background"`
	Areas      []areaDoc `yaml:"areas"`
}

type catalogDoc struct {
	Courses []courseDoc `yaml:"courses"`
}

// Decode reads a YAML course catalog.
func Decode(r io.Reader) ([]Course, error) {
	var doc catalogDoc
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCourse, err)
	}
	if len(doc.Courses) == 0 {
		return nil, fmt.Errorf("%w: catalog is empty", ErrInvalidCourse)
	}

	out := make([]Course, 0, len(doc.Courses))
	for _, cd := range doc.Courses {
		c := Course{Name: cd.Name, Background: cd.Background}
		for _, ad := range cd.Areas {
			d, err := ParseDistance(ad.Distance)
			if err != nil {
				return nil, fmt.Errorf("course %s area %s: %w", cd.Name, ad.Name, err)
			}
			a := area(ad.Name, d, ad.Bounds.X, ad.Bounds.Y, ad.Bounds.W, ad.Bounds.H)
			if ad.Cover != nil {
				a = covered(a, ad.Cover.X, ad.Cover.Y, ad.Cover.W, ad.Cover.H)
			}
			c.Areas = append(c.Areas, a)
		}
		if err := c.Validate(); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// LoadFile reads a YAML catalog from path. An empty path returns Builtin.
func LoadFile(path string) ([]Course, error) {
	if path == "" {
		return Builtin(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open course catalog: %w", err)
	}
	defer f.Close()
	return Decode(f)
}
