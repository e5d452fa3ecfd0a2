package model

// RuleProvider is one entry of the document's rule-providers map.
type RuleProvider struct {
	Type        string `yaml:"type"`     // "http"
	Format      string `yaml:"format"`   // "mrs"
	Behavior    string `yaml:"behavior"` // "domain" | "ipcidr"
	URL         string `yaml:"url"`
	Path        string `yaml:"path"`
	IntervalSec int    `yaml:"interval"`
}
