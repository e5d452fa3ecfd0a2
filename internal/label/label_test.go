package label

import "testing"

func TestFor_LanguageFallback(t *testing.T) {
	tests := []struct {
		lang string
		want string
	}{
		{"zh-CN", "🚀 节点选择"},
		{"zh-cn", "🚀 节点选择"},
		{"en-US", "🚀 Node Select"},
		{"en", "🚀 Node Select"},
		{"en-GB", "🚀 Node Select"},
		{"", "🚀 节点选择"},
		{"fr-FR", "🚀 节点选择"},
	}
	for _, tt := range tests {
		if got := For(tt.lang)("Node Select"); got != tt.want {
			t.Fatalf("For(%q)(Node Select)=%q, want %q", tt.lang, got, tt.want)
		}
	}
}

func TestFor_UnknownIDResolvesToItself(t *testing.T) {
	if got := For(LangEnUS)("My Rule"); got != "My Rule" {
		t.Fatalf("got=%q, want=%q", got, "My Rule")
	}
}

func TestOverlay_PrefersExtraTable(t *testing.T) {
	r := Overlay(For(LangEnUS), map[string]string{"Netflix": "🎬 Netflix", "Google": "G"})
	if got := r("Netflix"); got != "🎬 Netflix" {
		t.Fatalf("got=%q, want=%q", got, "🎬 Netflix")
	}
	if got := r("Google"); got != "G" {
		t.Fatalf("got=%q, want=%q", got, "G")
	}
	if got := r("Fall Back"); got != "🐟 Fall Back" {
		t.Fatalf("got=%q, want=%q", got, "🐟 Fall Back")
	}
}

func TestCanonical(t *testing.T) {
	if got := Canonical("EN"); got != LangEnUS {
		t.Fatalf("got=%q, want=%q", got, LangEnUS)
	}
	if got := Canonical("de"); got != DefaultLang {
		t.Fatalf("got=%q, want=%q", got, DefaultLang)
	}
}
