package override

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"go.uber.org/zap"
)

type mapSource struct {
	values map[string]string
	err    error
}

func (m mapSource) Get(_ context.Context, key string) (string, bool, error) {
	if m.err != nil {
		return "", false, m.err
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func TestLoad_DocumentOrder(t *testing.T) {
	src := mapSource{values: map[string]string{
		ProxyRulesKey:  `{"z.example":"x","a.example":"y","m.example":"z"}`,
		DirectRulesKey: `{"corp.example":"office"}`,
	}}
	tables := Load(context.Background(), src, zap.NewNop())
	if got, want := Domains(tables.Proxy), []string{"z.example", "a.example", "m.example"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("proxy=%v, want=%v", got, want)
	}
	if got, want := Domains(tables.Direct), []string{"corp.example"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("direct=%v, want=%v", got, want)
	}
	if tables.Direct[0].Label != "office" {
		t.Fatalf("label=%q, want=office", tables.Direct[0].Label)
	}
}

func TestLoad_Degrades(t *testing.T) {
	tests := []struct {
		name string
		src  Source
	}{
		{"nil source", nil},
		{"read error", mapSource{err: errors.New("boom")}},
		{"missing", mapSource{values: map[string]string{}}},
		{"malformed", mapSource{values: map[string]string{ProxyRulesKey: `{"a":`, DirectRulesKey: `not json`}}},
		{"wrong shape", mapSource{values: map[string]string{ProxyRulesKey: `["a.example"]`, DirectRulesKey: `"x"`}}},
	}
	for _, tt := range tests {
		tables := Load(context.Background(), tt.src, nil)
		if len(tables.Proxy) != 0 || len(tables.Direct) != 0 {
			t.Fatalf("%s: tables=%+v, want empty", tt.name, tables)
		}
	}
}

func TestParse_DropsUnusableKeys(t *testing.T) {
	entries, ok := Parse(`{" ":"a","a,b":"b","ok.example":"c","ok.example":"d"}`)
	if !ok {
		t.Fatalf("ok=false, want true")
	}
	if got := Domains(entries); !reflect.DeepEqual(got, []string{"ok.example"}) {
		t.Fatalf("domains=%v", got)
	}
}
