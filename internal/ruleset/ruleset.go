// Package ruleset maps rule sources to the remotely hosted rule-set providers
// their RULE-SET clauses point at.
package ruleset

import (
	"github.com/provolone8305/sublink-worker/internal/category"
	"github.com/provolone8305/sublink-worker/internal/model"
)

type Kind int

const (
	Domain Kind = iota
	IP
)

const (
	DefaultSiteBaseURL = "https://gh-proxy.com/https://github.com/MetaCubeX/meta-rules-dat/raw/meta/geo/geosite/"
	DefaultIPBaseURL   = "https://gh-proxy.com/https://github.com/MetaCubeX/meta-rules-dat/raw/meta/geo/geoip/"
	DefaultInterval    = 86400
)

type Options struct {
	SiteBaseURL string
	IPBaseURL   string
	IntervalSec int
}

func (o Options) withDefaults() Options {
	if o.SiteBaseURL == "" {
		o.SiteBaseURL = DefaultSiteBaseURL
	}
	if o.IPBaseURL == "" {
		o.IPBaseURL = DefaultIPBaseURL
	}
	if o.IntervalSec <= 0 {
		o.IntervalSec = DefaultInterval
	}
	return o
}

// Key derives the provider key for a rule-set name. Domain and ip sets share
// names ("google"), so ip keys carry a suffix. RULE-SET clause values must be
// built with this function too.
func Key(name string, kind Kind) string {
	if kind == IP {
		return name + "-ip"
	}
	return name
}

// Resolve returns the providers referenced by sources, split by kind. A
// rule-set named by several sources is declared once.
func Resolve(sources []category.Source, opts Options) (domain, ip map[string]model.RuleProvider) {
	opts = opts.withDefaults()
	domain = make(map[string]model.RuleProvider)
	ip = make(map[string]model.RuleProvider)
	for _, src := range sources {
		for _, name := range src.Sites {
			domain[Key(name, Domain)] = entry(name, Domain, opts)
		}
		for _, name := range src.IPs {
			ip[Key(name, IP)] = entry(name, IP, opts)
		}
	}
	return domain, ip
}

func entry(name string, kind Kind, opts Options) model.RuleProvider {
	p := model.RuleProvider{
		Type:        "http",
		Format:      "mrs",
		Behavior:    "domain",
		URL:         opts.SiteBaseURL + name + ".mrs",
		Path:        "./ruleset/" + Key(name, kind) + ".mrs",
		IntervalSec: opts.IntervalSec,
	}
	if kind == IP {
		p.Behavior = "ipcidr"
		p.URL = opts.IPBaseURL + name + ".mrs"
	}
	return p
}

// Merge folds domain and ip providers into the single map the document
// carries. Keys never clash because Key keeps the kinds apart.
func Merge(domain, ip map[string]model.RuleProvider) map[string]model.RuleProvider {
	out := make(map[string]model.RuleProvider, len(domain)+len(ip))
	for k, v := range domain {
		out[k] = v
	}
	for k, v := range ip {
		out[k] = v
	}
	return out
}
