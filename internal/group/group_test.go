package group

import (
	"reflect"
	"sync"
	"testing"

	"github.com/provolone8305/sublink-worker/internal/category"
	"github.com/provolone8305/sublink-worker/internal/label"
	"github.com/provolone8305/sublink-worker/internal/model"
)

func TestBuild_SingleDirectCategoryExample(t *testing.T) {
	cats := category.Builtin().Select([]string{"Location:CN"})
	groups := Build([]string{"nodeA"}, cats, nil, label.Identity, AutoOptions{})

	want := []struct {
		name    string
		typ     string
		members []string
	}{
		{"Node Select", model.GroupSelect, []string{"Auto Select", "DIRECT", "REJECT", "nodeA"}},
		{"Auto Select", model.GroupURLTest, []string{"nodeA"}},
		{"Location:CN", model.GroupSelect, []string{"DIRECT", "REJECT", "Node Select"}},
		{"Fall Back", model.GroupSelect, []string{"DIRECT", "REJECT", "Node Select"}},
	}
	if len(groups) != len(want) {
		t.Fatalf("len=%d, want=%d", len(groups), len(want))
	}
	for i, w := range want {
		g := groups[i]
		if g.Name != w.name || g.Type != w.typ || !reflect.DeepEqual(g.Members, w.members) {
			t.Fatalf("groups[%d]=%s/%s %v, want %s/%s %v", i, g.Name, g.Type, g.Members, w.name, w.typ, w.members)
		}
	}

	auto := groups[1]
	if auto.TestURL != DefaultProbeURL || auto.IntervalSec != DefaultProbeInterval || auto.Lazy == nil || *auto.Lazy {
		t.Fatalf("auto=%+v", auto)
	}
}

func TestBuild_ManualFirstAndAutoListedOnce(t *testing.T) {
	labels := label.For(label.LangEnUS)
	cats := category.Builtin().Select([]string{"Google", "Bilibili", "Node Select", "Fall Back"})
	rules := []category.CustomRule{{Name: "Work"}}
	groups := Build([]string{"a", "b"}, cats, rules, labels, AutoOptions{})

	if groups[0].Name != labels(category.NodeSelect) {
		t.Fatalf("groups[0]=%q, want manual-select", groups[0].Name)
	}
	n := 0
	for _, m := range groups[0].Members {
		if m == labels(category.AutoSelect) {
			n++
		}
	}
	if n != 1 {
		t.Fatalf("auto-select listed %d times in manual group", n)
	}

	var names []string
	for _, g := range groups {
		names = append(names, g.Name)
	}
	wantNames := []string{"🚀 Node Select", "⚡ Auto Select", "🔍 Google Services", "📺 Bilibili", "Work", "🐟 Fall Back"}
	if !reflect.DeepEqual(names, wantNames) {
		t.Fatalf("names=%v, want=%v", names, wantNames)
	}
	if got := Names(cats, rules, labels); !reflect.DeepEqual(got, wantNames) {
		t.Fatalf("Names()=%v, want=%v", got, wantNames)
	}
	if got, want := groups[2].Members, []string{"🚀 Node Select", "a", "b"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("google members=%v, want=%v", got, want)
	}
	if got, want := groups[4].Members, []string{"🚀 Node Select", "a", "b"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("custom members=%v, want=%v", got, want)
	}
}

func TestBuild_NoAliasing(t *testing.T) {
	names := make([]string, 2, 8)
	names[0], names[1] = "a", "b"
	groups := Build(names, category.Builtin().Select([]string{"Google", "Youtube"}), nil, label.Identity, AutoOptions{})

	names[0] = "mutated"
	_ = append(names, "extra")
	for _, g := range groups {
		for _, m := range g.Members {
			if m == "mutated" || m == "extra" {
				t.Fatalf("group %q aliases caller slice: %v", g.Name, g.Members)
			}
		}
	}

	groups[2].Members[0] = "changed"
	if groups[3].Members[0] != "Node Select" {
		t.Fatalf("groups share member storage: %v", groups[3].Members)
	}
}

func TestBuild_ZeroProxies(t *testing.T) {
	groups := Build(nil, nil, nil, label.Identity, AutoOptions{})
	if len(groups) != 3 {
		t.Fatalf("len=%d, want=3", len(groups))
	}
	if got, want := groups[0].Members, []string{"Auto Select", "DIRECT", "REJECT"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("manual=%v, want=%v", got, want)
	}
	if groups[1].Members == nil || len(groups[1].Members) != 0 {
		t.Fatalf("auto members=%v, want empty non-nil", groups[1].Members)
	}
}

func TestBuild_Concurrent(t *testing.T) {
	cats := category.Builtin().Select(category.DefaultSelection)
	names := []string{"a", "b", "c"}
	want := Build(names, cats, nil, label.Identity, AutoOptions{})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got := Build(names, cats, nil, label.Identity, AutoOptions{})
			got[0].Members = append(got[0].Members[:1], "x")
			if !reflect.DeepEqual(Build(names, cats, nil, label.Identity, AutoOptions{}), want) {
				t.Errorf("concurrent build diverged")
			}
		}()
	}
	wg.Wait()
}
