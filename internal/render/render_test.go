package render

import (
	"errors"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/provolone8305/sublink-worker/internal/document"
	"github.com/provolone8305/sublink-worker/internal/model"
)

func sampleDocument(t *testing.T) *model.Document {
	t.Helper()
	base, err := document.Load("", "mixed-port: 7890\nrules: [GEOIP,CN,DIRECT]\nmode: rule\n")
	if err != nil {
		t.Fatal(err)
	}
	tlsOn := true
	return document.Assemble(base,
		[]model.Proxy{
			{
				Type:       "ss",
				Name:       "n1",
				Server:     "example.com",
				Port:       8388,
				Cipher:     "aes-128-gcm",
				Password:   "123",
				Plugin:     "obfs",
				PluginOpts: []model.KV{{Key: "mode", Value: "tls"}, {Key: "host", Value: "example.com"}},
			},
			{Type: "vmess", Name: "n2", Server: "v.example.com", Port: 443, TLS: &tlsOn, WSOpts: &model.WSOptions{Path: "/", Headers: map[string]string{}}},
			{Name: "wg", Type: "wireguard", Raw: map[string]any{"name": "wg", "type": "wireguard", "private-key": "k"}},
		},
		[]model.Group{
			{Name: "PROXY", Type: model.GroupSelect, Members: []string{"n1", "DIRECT"}},
			{Name: "FINAL", Type: model.GroupSelect, Members: []string{"DIRECT", "REJECT", "PROXY"}},
		},
		map[string]model.RuleProvider{"google": {Type: "http", Format: "mrs", Behavior: "domain", URL: "u", Path: "./ruleset/google.mrs", IntervalSec: 86400}},
		[]model.Rule{
			{Type: model.RuleSet, Value: "google", Action: "PROXY"},
			{Type: model.RuleIPCIDR, Value: "10.0.0.0/8", Action: "FINAL", NoResolve: true},
			{Type: model.RuleMatch, Action: "FINAL"},
		},
	)
}

func TestRender_Clash_KeyOrderAndManagedBlocks(t *testing.T) {
	out, err := Render(TargetClash, sampleDocument(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := string(out)

	var keys []string
	for _, line := range strings.Split(text, "\n") {
		if line != "" && line[0] != ' ' && line[0] != '-' {
			k, _, _ := strings.Cut(line, ":")
			keys = append(keys, k)
		}
	}
	want := []string{"mixed-port", "rules", "mode", "proxies", "proxy-groups", "rule-providers"}
	if strings.Join(keys, ",") != strings.Join(want, ",") {
		t.Fatalf("keys=%v, want=%v\n%s", keys, want, text)
	}

	if !strings.Contains(text, `password: "123"`) {
		t.Fatalf("password should be quoted, got:\n%s", text)
	}
	if !strings.Contains(text, "plugin-opts:") || !strings.Contains(text, "mode: tls") {
		t.Fatalf("plugin-opts missing, got:\n%s", text)
	}
	if !strings.Contains(text, "headers: {}") {
		t.Fatalf("empty ws headers should be explicit, got:\n%s", text)
	}
	if !strings.Contains(text, "private-key: k") {
		t.Fatalf("passthrough proxy missing, got:\n%s", text)
	}
	if !strings.Contains(text, "- IP-CIDR,10.0.0.0/8,FINAL,no-resolve") || !strings.Contains(text, "- MATCH,FINAL") {
		t.Fatalf("rules missing, got:\n%s", text)
	}
	if strings.Contains(text, "GEOIP") {
		t.Fatalf("base rules should be replaced, got:\n%s", text)
	}
}

func TestRender_Clash_DecodesBack(t *testing.T) {
	out, err := Render(TargetClash, sampleDocument(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var m map[string]any
	if err := yaml.Unmarshal(out, &m); err != nil {
		t.Fatalf("output is not valid YAML: %v", err)
	}
	doc, err := document.Decode(string(out))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(doc.Proxies) != 3 || len(doc.Groups) != 2 || len(doc.Rules) != 3 {
		t.Fatalf("decoded counts: proxies=%d groups=%d rules=%d", len(doc.Proxies), len(doc.Groups), len(doc.Rules))
	}
	if doc.RuleProviders["google"].Path != "./ruleset/google.mrs" {
		t.Fatalf("providers=%+v", doc.RuleProviders)
	}
}

func TestRender_EmptyManagedBlocks(t *testing.T) {
	out, err := Render(TargetClash, &model.Document{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "proxies: []\nproxy-groups: []\nrule-providers: {}\nrules: []\n"
	if string(out) != want {
		t.Fatalf("out=%q, want=%q", out, want)
	}
}

func TestRender_Errors(t *testing.T) {
	_, err := Render(TargetClash, nil)
	var re *RenderError
	if !errors.As(err, &re) || re.AppError.Code != "INVALID_ARGUMENT" {
		t.Fatalf("nil doc: err=%v", err)
	}
	_, err = Render("surge", &model.Document{})
	if !errors.As(err, &re) || re.AppError.Code != "UNSUPPORTED_TARGET" {
		t.Fatalf("surge: err=%v", err)
	}
}
