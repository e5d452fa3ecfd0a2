package ruleset

import (
	"testing"

	"github.com/provolone8305/sublink-worker/internal/category"
)

func TestKey(t *testing.T) {
	if got := Key("google", Domain); got != "google" {
		t.Fatalf("domain key=%q, want=google", got)
	}
	if got := Key("google", IP); got != "google-ip" {
		t.Fatalf("ip key=%q, want=google-ip", got)
	}
}

func TestResolve_SplitsKindsAndDedups(t *testing.T) {
	sources := []category.Source{
		{ID: "Google", Match: category.Match{Sites: []string{"google"}, IPs: []string{"google"}}},
		{ID: "Custom", Match: category.Match{Sites: []string{"google", "openai"}}},
	}
	domain, ip := Resolve(sources, Options{})
	if len(domain) != 2 || len(ip) != 1 {
		t.Fatalf("domain=%d ip=%d, want 2/1", len(domain), len(ip))
	}

	g := domain["google"]
	if g.Behavior != "domain" || g.Format != "mrs" || g.Type != "http" {
		t.Fatalf("google=%+v", g)
	}
	if g.URL != DefaultSiteBaseURL+"google.mrs" || g.Path != "./ruleset/google.mrs" || g.IntervalSec != DefaultInterval {
		t.Fatalf("google=%+v", g)
	}

	gi, ok := ip["google-ip"]
	if !ok {
		t.Fatalf("missing google-ip provider: %v", ip)
	}
	if gi.Behavior != "ipcidr" || gi.URL != DefaultIPBaseURL+"google.mrs" || gi.Path != "./ruleset/google-ip.mrs" {
		t.Fatalf("google-ip=%+v", gi)
	}

	if merged := Merge(domain, ip); len(merged) != 3 {
		t.Fatalf("merged=%d, want=3", len(merged))
	}
}

func TestResolve_Options(t *testing.T) {
	sources := []category.Source{{ID: "x", Match: category.Match{IPs: []string{"cn"}}}}
	_, ip := Resolve(sources, Options{IPBaseURL: "https://mirror.example/ip/", IntervalSec: 3600})
	if p := ip["cn-ip"]; p.URL != "https://mirror.example/ip/cn.mrs" || p.IntervalSec != 3600 {
		t.Fatalf("cn-ip=%+v", p)
	}
}
