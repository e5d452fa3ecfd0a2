package model

const (
	GroupSelect  = "select"
	GroupURLTest = "url-test"
)

// Reserved policy names every client understands without a definition.
const (
	Direct = "DIRECT"
	Reject = "REJECT"
)

// IsReserved reports whether name is a built-in policy of the client.
func IsReserved(name string) bool {
	return name == Direct || name == Reject
}

type Group struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"` // "select" | "url-test"

	Members []string `yaml:"proxies"` // proxy names / group names / DIRECT / REJECT

	// url-test only
	TestURL     string `yaml:"url,omitempty"`
	IntervalSec int    `yaml:"interval,omitempty"`
	Lazy        *bool  `yaml:"lazy,omitempty"`

	// Raw holds a group taken verbatim from a base document. When set, it is
	// emitted as-is and the typed fields above only mirror its name.
	Raw map[string]any `yaml:"-"`
}

func (g Group) MarshalYAML() (any, error) {
	if g.Raw != nil {
		return g.Raw, nil
	}
	type plain Group
	return plain(g), nil
}
