package category

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// catalogFile is the on-disk shape of a catalog extension:
//
//	[[categories]]
//	id = "Netflix"
//	site_rules = ["netflix"]
//	ip_rules = ["netflix"]
//
//	[labels.zh-CN]
//	Netflix = "🎬 奈飞"
//
// A category whose id already exists replaces the built-in entry in place.
type catalogFile struct {
	Categories []struct {
		ID         string `toml:"id"`
		DirectOnly bool   `toml:"direct_only"`
		Match
	} `toml:"categories"`
	Labels map[string]map[string]string `toml:"labels"`
}

// LoadCatalog returns the built-in catalog extended by the TOML file at path.
// An empty path yields the built-in catalog.
func LoadCatalog(path string) (*Catalog, error) {
	c := Builtin()
	if strings.TrimSpace(path) == "" {
		return c, nil
	}
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	if err := c.Extend(string(bs)); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// Extend merges a TOML catalog document into c.
func (c *Catalog) Extend(doc string) error {
	var f catalogFile
	if _, err := toml.Decode(doc, &f); err != nil {
		return err
	}
	for i, entry := range f.Categories {
		id := strings.TrimSpace(entry.ID)
		if id == "" {
			return invalid("catalog", "分类缺少 id", fmt.Sprintf("categories[%d]", i), "")
		}
		if !validName(id) {
			return invalid("catalog", "分类 id 不能包含逗号或换行", id, "")
		}
		if id == NodeSelect || id == AutoSelect {
			return invalid("catalog", "分类 id 与保留名称冲突", id, "")
		}
		if err := validateMatch("catalog", id, entry.Match); err != nil {
			return err
		}
		c.put(Category{ID: id, DirectOnly: entry.DirectOnly, Match: entry.Match})
	}
	for lang, table := range f.Labels {
		if c.labels == nil {
			c.labels = make(map[string]map[string]string)
		}
		if c.labels[lang] == nil {
			c.labels[lang] = make(map[string]string, len(table))
		}
		for id, name := range table {
			if !validName(name) {
				return invalid("catalog", "分类名称不能包含逗号或换行", lang+"."+id+" = "+name, "")
			}
			c.labels[lang][id] = name
		}
	}
	return nil
}
