package model

// Clause kinds, spelled the way the client expects them.
const (
	RuleDomainSuffix  = "DOMAIN-SUFFIX"
	RuleDomainKeyword = "DOMAIN-KEYWORD"
	RuleSet           = "RULE-SET"
	RuleIPCIDR        = "IP-CIDR"
	RuleIPCIDR6       = "IP-CIDR6"
	RuleMatch         = "MATCH"
)

type Rule struct {
	Type      string // e.g. "DOMAIN-SUFFIX", "RULE-SET", "IP-CIDR", "MATCH"
	Value     string // suffix/keyword/provider key/cidr; empty for MATCH
	Action    string // DIRECT/REJECT/group name
	NoResolve bool   // only meaningful for RULE-SET (ip) and IP-CIDR/IP-CIDR6
}
