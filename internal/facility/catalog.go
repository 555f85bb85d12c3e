package facility

import (
	_ "embed"
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/petatlas/internal/keys"
)

//go:embed categories.yaml
var defaultCatalog []byte

// Category describes one facility category and how it is drawn.
type Category struct {
	Label      string `yaml:"label" json:"label"`
	Name       string `yaml:"name" json:"name"`
	Icon       string `yaml:"icon" json:"icon"`
	MarkerSize int    `yaml:"marker_size" json:"marker_size"`
}

// Catalog is the ordered set of known categories.
type Catalog struct {
	Categories []Category `yaml:"categories"`
	Default    Category   `yaml:"default"`

	order map[string]int
}

// DefaultCatalog returns the built-in category catalog.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalog)
}

// LoadCategoryCatalog reads a catalog from a YAML file. An empty path
// returns the built-in catalog.
func LoadCategoryCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "facility: read catalog %s", path)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, eris.Wrap(err, "facility: parse catalog")
	}
	c.order = make(map[string]int, len(c.Categories))
	for i, cat := range c.Categories {
		label := keys.Canonical(cat.Label)
		if label == "" {
			return nil, eris.Errorf("facility: catalog entry %d has no label", i)
		}
		if _, dup := c.order[label]; dup {
			return nil, eris.Errorf("facility: catalog lists %q twice", label)
		}
		c.Categories[i].Label = label
		c.order[label] = i
	}
	return &c, nil
}

// Lookup returns the category for label. Unknown labels get the default
// styling under their own label.
func (c *Catalog) Lookup(label string) (Category, bool) {
	if c != nil {
		if i, ok := c.order[label]; ok {
			return c.Categories[i], true
		}
	}
	var d Category
	if c != nil {
		d = c.Default
	}
	d.Label = label
	if d.Name == "" {
		d.Name = label
	}
	return d, false
}

// Less orders labels: catalog categories in catalog order, then unknown
// labels ascending.
func (c *Catalog) Less(a, b string) bool {
	ia, oka := c.index(a)
	ib, okb := c.index(b)
	switch {
	case oka && okb:
		return ia < ib
	case oka != okb:
		return oka
	default:
		return a < b
	}
}

// Sort orders labels in place with Less.
func (c *Catalog) Sort(labels []string) {
	sort.SliceStable(labels, func(i, j int) bool { return c.Less(labels[i], labels[j]) })
}

func (c *Catalog) index(label string) (int, bool) {
	if c == nil {
		return 0, false
	}
	i, ok := c.order[label]
	return i, ok
}
