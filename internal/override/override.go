// Package override loads the operator-pinned domain tables consulted at the
// start of every rule list.
package override

import (
	"context"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// Keys under which the tables are stored.
const (
	ProxyRulesKey  = "proxyRules"
	DirectRulesKey = "directRules"
)

// Source is a read-only key-value lookup. ok is false when the key is absent.
type Source interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
}

// Entry is one pinned domain and the label the operator attached to it.
type Entry struct {
	Domain string
	Label  string
}

type Tables struct {
	Proxy  []Entry
	Direct []Entry
}

// Domains returns the pinned domains of a table, in table order.
func Domains(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Domain)
	}
	return out
}

// Load reads both tables. Any failure (no source, read error, missing key,
// malformed JSON) degrades that table to empty and is only logged.
func Load(ctx context.Context, src Source, log *zap.Logger) Tables {
	if log == nil {
		log = zap.NewNop()
	}
	if src == nil {
		return Tables{}
	}
	return Tables{
		Proxy:  loadOne(ctx, src, ProxyRulesKey, log),
		Direct: loadOne(ctx, src, DirectRulesKey, log),
	}
}

func loadOne(ctx context.Context, src Source, key string, log *zap.Logger) []Entry {
	raw, ok, err := src.Get(ctx, key)
	if err != nil {
		log.Warn("override table unavailable", zap.String("key", key), zap.Error(err))
		return nil
	}
	if !ok || strings.TrimSpace(raw) == "" {
		log.Debug("override table missing", zap.String("key", key))
		return nil
	}
	entries, ok := Parse(raw)
	if !ok {
		log.Warn("override table malformed", zap.String("key", key), zap.Int("bytes", len(raw)))
		return nil
	}
	return entries
}

// Parse decodes a JSON object of domain -> label in document order. Keys that
// are blank or contain a comma cannot form a clause and are dropped.
func Parse(raw string) ([]Entry, bool) {
	if !gjson.Valid(raw) {
		return nil, false
	}
	root := gjson.Parse(raw)
	if !root.IsObject() {
		return nil, false
	}
	var out []Entry
	seen := make(map[string]struct{})
	root.ForEach(func(k, v gjson.Result) bool {
		d := strings.TrimSpace(k.String())
		if d == "" || strings.ContainsAny(d, ", \t") {
			return true
		}
		if _, dup := seen[d]; dup {
			return true
		}
		seen[d] = struct{}{}
		out = append(out, Entry{Domain: d, Label: v.String()})
		return true
	})
	return out, true
}
