// Package catalog holds the static registry of selectable models grouped by
// capability category. Lookups have no side effects.
package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// Category groups descriptors by what the model is used for.
type Category string

const (
	CategoryCore      Category = "core"
	CategoryReasoning Category = "reasoning"
	CategoryVision    Category = "vision"
	CategoryAudio     Category = "audio"
	CategoryEmbedding Category = "embedding"
)

// Categories lists every category in display order.
var Categories = []Category{CategoryCore, CategoryReasoning, CategoryVision, CategoryAudio, CategoryEmbedding}

// ParseCategory maps a string to a Category.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c, true
		}
	}
	return "", false
}

// ErrNotFound is returned by ByName when no category holds the name.
// Callers fall back to Default.
var ErrNotFound = errors.New("model not in catalog")

// Descriptor is the immutable metadata of one selectable model.
type Descriptor struct {
	Name        string   `json:"name" yaml:"name" toml:"name"`
	DisplayName string   `json:"display_name" yaml:"display_name" toml:"display_name"`
	Provider    string   `json:"provider" yaml:"provider" toml:"provider"`
	SizeBytes   int64    `json:"size_bytes" yaml:"size_bytes" toml:"size_bytes"`
	Category    Category `json:"category" yaml:"category" toml:"category"`
	// Repo is the HuggingFace repository holding the files.
	Repo string `json:"repo" yaml:"repo" toml:"repo"`
	// Files lists the files to fetch; the first one is the weights file.
	Files []string `json:"files" yaml:"files" toml:"files"`
}

// Primary returns the weights file name.
func (d Descriptor) Primary() string {
	if len(d.Files) == 0 {
		return ""
	}
	return d.Files[0]
}

func (d Descriptor) validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return errors.New("descriptor name is empty")
	}
	if _, ok := ParseCategory(string(d.Category)); !ok {
		return fmt.Errorf("descriptor %q: unknown category %q", d.Name, d.Category)
	}
	if d.SizeBytes <= 0 {
		return fmt.Errorf("descriptor %q: size must be positive", d.Name)
	}
	if len(d.Files) == 0 {
		return fmt.Errorf("descriptor %q: no files", d.Name)
	}
	return nil
}

// Catalog is an ordered, read-only set of descriptors.
type Catalog struct {
	byCategory map[Category][]Descriptor
	byName     map[string]Descriptor
}

// New builds a catalog from descriptors, keeping their order per category.
func New(descs []Descriptor) (*Catalog, error) {
	c := &Catalog{byCategory: make(map[Category][]Descriptor), byName: make(map[string]Descriptor)}
	if err := c.add(descs); err != nil {
		return nil, err
	}
	for _, cat := range Categories {
		if len(c.byCategory[cat]) == 0 {
			return nil, fmt.Errorf("catalog has no %s models", cat)
		}
	}
	return c, nil
}

func (c *Catalog) add(descs []Descriptor) error {
	for _, d := range descs {
		if err := d.validate(); err != nil {
			return err
		}
		if _, dup := c.byName[d.Name]; dup {
			return fmt.Errorf("duplicate descriptor %q", d.Name)
		}
		d.Files = append([]string(nil), d.Files...)
		c.byName[d.Name] = d
		c.byCategory[d.Category] = append(c.byCategory[d.Category], d)
	}
	return nil
}

// Merge returns a new catalog with extra descriptors appended after the
// existing ones of each category.
func (c *Catalog) Merge(extra []Descriptor) (*Catalog, error) {
	out := &Catalog{byCategory: make(map[Category][]Descriptor), byName: make(map[string]Descriptor)}
	if err := out.add(c.All()); err != nil {
		return nil, err
	}
	if err := out.add(extra); err != nil {
		return nil, err
	}
	return out, nil
}

// DescriptorsFor returns the ordered descriptors of a category.
func (c *Catalog) DescriptorsFor(cat Category) []Descriptor {
	return append([]Descriptor(nil), c.byCategory[cat]...)
}

// Default returns the first descriptor of a category.
func (c *Catalog) Default(cat Category) Descriptor {
	list := c.byCategory[cat]
	if len(list) == 0 {
		// New guarantees every category is populated.
		panic(fmt.Sprintf("catalog: no default for category %q", cat))
	}
	return list[0]
}

// ByName looks a descriptor up across all categories.
func (c *Catalog) ByName(name string) (Descriptor, error) {
	d, ok := c.byName[name]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return d, nil
}

// Resolve returns the named descriptor, or the category default when the
// name is empty or unknown. The bool reports whether the fallback was used.
func (c *Catalog) Resolve(name string, cat Category) (Descriptor, bool) {
	if name != "" {
		if d, err := c.ByName(name); err == nil {
			return d, false
		}
	}
	return c.Default(cat), true
}

// MustByName is for call sites that only ever pass predefined names. An
// unknown name is a catalog invariant violation and panics.
func (c *Catalog) MustByName(name string) Descriptor {
	d, err := c.ByName(name)
	if err != nil {
		panic("catalog: " + err.Error())
	}
	return d
}

// All returns every descriptor in category order.
func (c *Catalog) All() []Descriptor {
	var out []Descriptor
	for _, cat := range Categories {
		out = append(out, c.byCategory[cat]...)
	}
	return out
}

// IsNotFound reports whether err is a catalog miss.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
