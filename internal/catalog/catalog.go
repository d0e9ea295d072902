package catalog

import (
	"sort"
	"strings"
)

// Unknown is the label returned for option ids that are not in the catalog.
const Unknown = "Unknown"

// Option is one selectable need on the menu.
type Option struct {
	ID    int    `yaml:"id"`
	Label string `yaml:"label"`
}

// Catalog maps option ids to human-readable labels.
// A Catalog is immutable once built and safe for concurrent use.
type Catalog struct {
	labels  map[int]string
	options []Option // sorted by ID
}

// DefaultOptions is the reference set of needs announced by the menu.
var DefaultOptions = []Option{
	{ID: 1, Label: "Food"},
	{ID: 2, Label: "Water"},
	{ID: 3, Label: "Washroom"},
	{ID: 4, Label: "Help"},
	{ID: 5, Label: "Entertainment"},
	{ID: 6, Label: "Air Control"},
}

// Default returns the reference catalog.
func Default() *Catalog {
	return New(DefaultOptions)
}

// New builds a catalog from opts. When an id appears more than once the
// last label wins. Labels are trimmed; options with an empty label are skipped.
func New(opts []Option) *Catalog {
	c := &Catalog{labels: make(map[int]string, len(opts))}
	for _, o := range opts {
		label := strings.TrimSpace(o.Label)
		if label == "" {
			continue
		}
		c.labels[o.ID] = label
	}

	c.options = make([]Option, 0, len(c.labels))
	for id, label := range c.labels {
		c.options = append(c.options, Option{ID: id, Label: label})
	}
	sort.Slice(c.options, func(i, j int) bool {
		return c.options[i].ID < c.options[j].ID
	})
	return c
}

// LabelFor returns the label for id, or Unknown if id is not in the catalog.
func (c *Catalog) LabelFor(id int) string {
	if label, ok := c.labels[id]; ok {
		return label
	}
	return Unknown
}

// Contains reports whether id has a configured label.
func (c *Catalog) Contains(id int) bool {
	_, ok := c.labels[id]
	return ok
}

// Options returns the catalog entries ordered by id.
func (c *Catalog) Options() []Option {
	out := make([]Option, len(c.options))
	copy(out, c.options)
	return out
}

// Len returns the number of options.
func (c *Catalog) Len() int {
	return len(c.options)
}
