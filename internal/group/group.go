// Package group builds the policy groups of one build. Every builder copies
// the name lists it receives; nothing returned shares backing arrays with an
// argument or with another group.
package group

import (
	"github.com/provolone8305/sublink-worker/internal/category"
	"github.com/provolone8305/sublink-worker/internal/label"
	"github.com/provolone8305/sublink-worker/internal/model"
)

const (
	DefaultProbeURL      = "https://www.gstatic.com/generate_204"
	DefaultProbeInterval = 300
)

type AutoOptions struct {
	ProbeURL    string
	IntervalSec int
}

func (o AutoOptions) withDefaults() AutoOptions {
	if o.ProbeURL == "" {
		o.ProbeURL = DefaultProbeURL
	}
	if o.IntervalSec <= 0 {
		o.IntervalSec = DefaultProbeInterval
	}
	return o
}

// BuildAuto returns the health-checked group over every proxy.
func BuildAuto(names []string, labels label.Resolver, opts AutoOptions) model.Group {
	opts = opts.withDefaults()
	lazy := false
	return model.Group{
		Name:        labels(category.AutoSelect),
		Type:        model.GroupURLTest,
		Members:     append(make([]string, 0, len(names)), names...),
		TestURL:     opts.ProbeURL,
		IntervalSec: opts.IntervalSec,
		Lazy:        &lazy,
	}
}

// BuildManual returns the umbrella select group: auto, DIRECT, REJECT, then
// every proxy.
func BuildManual(names []string, labels label.Resolver) model.Group {
	members := make([]string, 0, len(names)+3)
	members = append(members, labels(category.AutoSelect), model.Direct, model.Reject)
	members = append(members, names...)
	return model.Group{Name: labels(category.NodeSelect), Type: model.GroupSelect, Members: members}
}

// BuildCategoryGroups returns one select group per category in order. The
// manual-select and fallback categories are skipped since those groups are
// built separately.
func BuildCategoryGroups(cats []category.Category, names []string, labels label.Resolver) []model.Group {
	out := make([]model.Group, 0, len(cats))
	for _, c := range cats {
		if c.ID == category.NodeSelect || c.ID == category.FallBack {
			continue
		}
		if c.DirectOnly {
			out = append(out, directFirst(labels(c.ID), labels))
			continue
		}
		out = append(out, proxyFirst(labels(c.ID), names, labels))
	}
	return out
}

// BuildCustomRuleGroups returns one group per custom rule, shaped like a
// regular category group.
func BuildCustomRuleGroups(rules []category.CustomRule, names []string, labels label.Resolver) []model.Group {
	out := make([]model.Group, 0, len(rules))
	for _, r := range rules {
		out = append(out, proxyFirst(labels(r.Name), names, labels))
	}
	return out
}

// BuildFallback returns the catch-all destination group.
func BuildFallback(labels label.Resolver) model.Group {
	return directFirst(labels(category.FallBack), labels)
}

func directFirst(name string, labels label.Resolver) model.Group {
	return model.Group{
		Name:    name,
		Type:    model.GroupSelect,
		Members: []string{model.Direct, model.Reject, labels(category.NodeSelect)},
	}
}

func proxyFirst(name string, names []string, labels label.Resolver) model.Group {
	members := make([]string, 0, len(names)+1)
	members = append(members, labels(category.NodeSelect))
	members = append(members, names...)
	return model.Group{Name: name, Type: model.GroupSelect, Members: members}
}

// Build returns every group in emission order: manual-select, auto-select,
// categories, custom rules, fallback.
func Build(names []string, cats []category.Category, rules []category.CustomRule, labels label.Resolver, opts AutoOptions) []model.Group {
	out := make([]model.Group, 0, len(cats)+len(rules)+3)
	out = append(out, BuildManual(names, labels), BuildAuto(names, labels, opts))
	out = append(out, BuildCategoryGroups(cats, names, labels)...)
	out = append(out, BuildCustomRuleGroups(rules, names, labels)...)
	out = append(out, BuildFallback(labels))
	return out
}

// Names returns the display names Build would emit, in order. Proxy names
// must avoid them.
func Names(cats []category.Category, rules []category.CustomRule, labels label.Resolver) []string {
	out := []string{labels(category.NodeSelect), labels(category.AutoSelect)}
	for _, c := range cats {
		if c.ID != category.NodeSelect && c.ID != category.FallBack {
			out = append(out, labels(c.ID))
		}
	}
	for _, r := range rules {
		out = append(out, labels(r.Name))
	}
	return append(out, labels(category.FallBack))
}
