// Package category holds the routing categories a subscriber can select, and
// the custom rules they can add on top.
package category

import (
	"slices"
	"strings"

	"github.com/samber/lo"
)

// Identifiers of the groups every build emits. They are label ids, resolved
// to display names by the active label resolver.
const (
	NodeSelect = "Node Select"
	AutoSelect = "Auto Select"
	FallBack   = "Fall Back"
)

// Match is the compiled match data of one rule source.
type Match struct {
	DomainSuffix  []string `toml:"domain_suffix" json:"domain_suffix"`
	DomainKeyword []string `toml:"domain_keyword" json:"domain_keyword"`
	Sites         []string `toml:"site_rules" json:"site_rules"` // domain rule-set names
	IPs           []string `toml:"ip_rules" json:"ip_rules"`     // ip rule-set names
	IPCIDR        []string `toml:"ip_cidr" json:"ip_cidr"`
}

func (m Match) clone() Match {
	return Match{
		DomainSuffix:  slices.Clone(m.DomainSuffix),
		DomainKeyword: slices.Clone(m.DomainKeyword),
		Sites:         slices.Clone(m.Sites),
		IPs:           slices.Clone(m.IPs),
		IPCIDR:        slices.Clone(m.IPCIDR),
	}
}

type Category struct {
	ID string
	// DirectOnly categories default to DIRECT and offer the manual-select
	// group only as an alternative.
	DirectOnly bool
	Match
}

// Source is one entry of the ordered rule-source list: a custom rule or a
// selected category. ID is the label id of its destination group.
type Source struct {
	ID string
	Match
}

// DefaultSelection is used when a request selects nothing.
var DefaultSelection = []string{"Location:CN", "Non-China", "Google", "Youtube", "AI Services", "Telegram"}

var builtin = []Category{
	{ID: "Ad Block", Match: Match{Sites: []string{"category-ads-all"}}},
	{ID: "AI Services", Match: Match{Sites: []string{"category-ai-!cn"}}},
	{ID: "Bilibili", DirectOnly: true, Match: Match{Sites: []string{"bilibili"}}},
	{ID: "Youtube", Match: Match{Sites: []string{"youtube"}}},
	{ID: "Google", Match: Match{Sites: []string{"google"}, IPs: []string{"google"}}},
	{ID: "Private", Match: Match{
		IPs:    []string{"private"},
		IPCIDR: []string{"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16", "127.0.0.0/8", "fc00::/7"},
	}},
	{ID: "Location:CN", DirectOnly: true, Match: Match{
		DomainSuffix: []string{"cn"},
		Sites:        []string{"geolocation-cn"},
		IPs:          []string{"cn"},
	}},
	{ID: "Telegram", Match: Match{
		IPs:    []string{"telegram"},
		IPCIDR: []string{"91.108.4.0/22", "91.108.8.0/22", "91.108.56.0/22", "149.154.160.0/20", "2001:b28:f23d::/48"},
	}},
	{ID: "Github", Match: Match{Sites: []string{"github", "gitlab"}}},
	{ID: "Microsoft", Match: Match{Sites: []string{"microsoft"}}},
	{ID: "Apple", Match: Match{Sites: []string{"apple"}}},
	{ID: "Social Media", Match: Match{Sites: []string{"facebook", "instagram", "twitter", "tiktok", "linkedin"}}},
	{ID: "Streaming", Match: Match{Sites: []string{"netflix", "hulu", "disney", "hbo", "amazon", "bahamut"}}},
	{ID: "Gaming", Match: Match{Sites: []string{"steam", "epicgames", "ea", "ubisoft", "blizzard"}}},
	{ID: "Education", Match: Match{Sites: []string{"coursera", "edx", "udemy", "khanacademy", "category-scholar-!cn"}}},
	{ID: "Financial", Match: Match{Sites: []string{"paypal", "visa", "mastercard", "stripe", "wise"}}},
	{ID: "Cloud Services", Match: Match{Sites: []string{"aws", "azure", "digitalocean", "heroku", "dropbox"}}},
	{ID: "Non-China", Match: Match{Sites: []string{"geolocation-!cn"}}},
	{ID: FallBack, DirectOnly: true},
}

// Catalog is an ordered, read-only set of categories plus optional extra
// labels per language.
type Catalog struct {
	order  []string
	byID   map[string]Category
	labels map[string]map[string]string
}

// Builtin returns a fresh catalog of the built-in categories.
func Builtin() *Catalog {
	c := &Catalog{byID: make(map[string]Category, len(builtin))}
	for _, cat := range builtin {
		c.put(cat)
	}
	return c
}

func (c *Catalog) put(cat Category) {
	if _, ok := c.byID[cat.ID]; !ok {
		c.order = append(c.order, cat.ID)
	}
	cat.Match = cat.Match.clone()
	c.byID[cat.ID] = cat
}

// Lookup returns a copy of the category, so callers cannot edit the catalog.
func (c *Catalog) Lookup(id string) (Category, bool) {
	cat, ok := c.byID[id]
	if !ok {
		return Category{}, false
	}
	cat.Match = cat.Match.clone()
	return cat, true
}

func (c *Catalog) IDs() []string { return slices.Clone(c.order) }

// Labels returns the catalog's extra labels for lang. Tags match
// case-insensitively.
func (c *Catalog) Labels(lang string) map[string]string {
	for k, t := range c.labels {
		if strings.EqualFold(k, lang) {
			return t
		}
	}
	return nil
}

// Select resolves ids in selection order. Unknown ids are skipped, repeats
// collapse to their first occurrence, and the manual-select and fallback ids
// are dropped since those groups are always emitted.
func (c *Catalog) Select(ids []string) []Category {
	out := make([]Category, 0, len(ids))
	for _, id := range lo.Uniq(ids) {
		if id == NodeSelect || id == FallBack {
			continue
		}
		if cat, ok := c.Lookup(id); ok {
			out = append(out, cat)
		}
	}
	return out
}

// Sources builds the ordered rule-source list: custom rules first, then the
// selected categories.
func Sources(custom []CustomRule, selected []Category) []Source {
	out := make([]Source, 0, len(custom)+len(selected))
	for _, r := range custom {
		out = append(out, Source{ID: r.Name, Match: r.Match.clone()})
	}
	for _, cat := range selected {
		out = append(out, Source{ID: cat.ID, Match: cat.Match.clone()})
	}
	return out
}
