package model

// Field is one top-level key of a base document, kept in source order.
type Field struct {
	Key   string
	Value any
}

// Document is the fully assembled client configuration, ready for textual
// serialization. Groups and Rules are in emission order.
type Document struct {
	Fields        []Field
	Proxies       []Proxy
	Groups        []Group
	RuleProviders map[string]RuleProvider
	Rules         []Rule
}
