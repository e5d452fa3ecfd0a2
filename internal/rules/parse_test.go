package rules

import (
	"errors"
	"testing"

	"github.com/provolone8305/sublink-worker/internal/model"
)

func TestParse_RoundTrip(t *testing.T) {
	in := []model.Rule{
		{Type: model.RuleDomainSuffix, Value: "example.com", Action: "🚀 节点选择"},
		{Type: model.RuleDomainKeyword, Value: "google", Action: "G"},
		{Type: model.RuleSet, Value: "cn", Action: "DIRECT"},
		{Type: model.RuleSet, Value: "cn-ip", Action: "DIRECT", NoResolve: true},
		{Type: model.RuleIPCIDR, Value: "1.2.3.0/24", Action: "REJECT", NoResolve: true},
		{Type: model.RuleIPCIDR6, Value: "2001:db8::/32", Action: "REJECT"},
		{Type: model.RuleMatch, Action: "Fall Back"},
	}
	for _, r := range in {
		got, err := Parse(String(r))
		if err != nil {
			t.Fatalf("Parse(%q): %v", String(r), err)
		}
		if got != r {
			t.Fatalf("Parse(%q)=%+v, want=%+v", String(r), got, r)
		}
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		line string
		code string
	}{
		{"", "RULE_PARSE_ERROR"},
		{"DOMAIN-SUFFIX,example.com", "RULE_PARSE_ERROR"},
		{"IP-CIDR,1.1.1.1/32,no-resolve", "RULE_PARSE_ERROR"},
		{"IP-CIDR,2001:db8::/32,X", "RULE_PARSE_ERROR"},
		{"IP-CIDR6,1.1.1.1/32,X", "RULE_PARSE_ERROR"},
		{"RULE-SET,cn,DIRECT,resolve", "RULE_PARSE_ERROR"},
		{"DST-PORT,443,DIRECT", "UNSUPPORTED_RULE_TYPE"},
	}
	for _, tt := range tests {
		_, err := Parse(tt.line)
		var re *RuleError
		if !errors.As(err, &re) {
			t.Fatalf("Parse(%q): expected *RuleError, got %T: %v", tt.line, err, err)
		}
		if re.Code != tt.code {
			t.Fatalf("Parse(%q): code=%q, want=%q", tt.line, re.Code, tt.code)
		}
	}
}

func FuzzParse(f *testing.F) {
	for _, s := range []string{
		"MATCH,DIRECT",
		"DOMAIN-SUFFIX,example.com,PROXY",
		"DOMAIN-KEYWORD,google,REJECT",
		"RULE-SET,google-ip,G,no-resolve",
		"IP-CIDR,1.2.3.0/24,DIRECT,no-resolve",
		"IP-CIDR6,2001:db8::/32,REJECT",
		"PROCESS-NAME,WeChat,PROXY",
	} {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, line string) {
		r, err := Parse(line)
		if err != nil {
			return
		}
		if r.Action == "" {
			t.Fatalf("empty rule action")
		}
		if r.Type != model.RuleMatch && r.Value == "" {
			t.Fatalf("empty rule value for type=%q", r.Type)
		}
		again, err := Parse(String(r))
		if err != nil || again != r {
			t.Fatalf("round trip of %q: %+v, %v", line, again, err)
		}
	})
}
