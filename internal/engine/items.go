package engine

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed items.yaml
var defaultItemsYAML []byte

// ItemDefinition describes an item type.
type ItemDefinition struct {
	ShortName string `yaml:"shortname"`
	Name      string `yaml:"name"`
	Category  string `yaml:"category"`
	Stackable int    `yaml:"stackable"`
}

// Catalog indexes item definitions by short name.
type Catalog struct {
	byShortName map[string]ItemDefinition
}

// ParseCatalog reads a YAML item catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var doc struct {
		Items []ItemDefinition `yaml:"items"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing item catalog: %w", err)
	}

	c := &Catalog{byShortName: make(map[string]ItemDefinition, len(doc.Items))}
	for _, def := range doc.Items {
		if def.ShortName == "" {
			return nil, fmt.Errorf("item %q has no shortname", def.Name)
		}
		if _, dup := c.byShortName[def.ShortName]; dup {
			return nil, fmt.Errorf("duplicate item shortname %q", def.ShortName)
		}
		c.byShortName[def.ShortName] = def
	}
	return c, nil
}

// DefaultCatalog returns the embedded item catalog.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultItemsYAML)
	if err != nil {
		panic(err)
	}
	return c
}

// Find looks up a definition by short name.
func (c *Catalog) Find(shortName string) (ItemDefinition, bool) {
	def, ok := c.byShortName[shortName]
	return def, ok
}

// Len returns the number of definitions.
func (c *Catalog) Len() int {
	return len(c.byShortName)
}

// Item is an item instance. It implements host.Item.
type Item struct {
	def    ItemDefinition
	amount int
}

func (i *Item) ShortName() string { return i.def.ShortName }
func (i *Item) Amount() int       { return i.amount }
