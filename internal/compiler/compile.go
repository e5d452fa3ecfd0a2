// Package compiler runs one build: proxies, groups, rules and providers,
// then reference verification and assembly into a document.
package compiler

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/provolone8305/sublink-worker/internal/category"
	"github.com/provolone8305/sublink-worker/internal/document"
	"github.com/provolone8305/sublink-worker/internal/group"
	"github.com/provolone8305/sublink-worker/internal/label"
	"github.com/provolone8305/sublink-worker/internal/model"
	"github.com/provolone8305/sublink-worker/internal/outbound"
	"github.com/provolone8305/sublink-worker/internal/override"
	"github.com/provolone8305/sublink-worker/internal/registry"
	"github.com/provolone8305/sublink-worker/internal/rules"
	"github.com/provolone8305/sublink-worker/internal/ruleset"
)

type Input struct {
	Descriptors []outbound.Descriptor
	Selection   []string
	CustomRules []category.CustomRule

	// Overrides may be nil: no pinned domains.
	Overrides override.Source

	// Base may be nil: the built-in baseline is used.
	Base *model.Document

	Lang string
}

type Options struct {
	Catalog  *category.Catalog // nil: built-in catalog
	RuleSets ruleset.Options
	Auto     group.AutoOptions
	Logger   *zap.Logger
}

type Result struct {
	Proxies       []model.Proxy
	Groups        []model.Group
	RuleProviders map[string]model.RuleProvider
	Rules         []model.Rule

	Document *model.Document
}

type CompileError struct {
	AppError model.AppError
	Cause    error
}

func (e *CompileError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *CompileError) Unwrap() error { return e.Cause }

// Build is safe for concurrent use: every intermediate is allocated per call
// and inputs are only read.
func Build(ctx context.Context, in Input, opt Options) (*Result, error) {
	log := opt.Logger
	if log == nil {
		log = zap.NewNop()
	}
	catalog := opt.Catalog
	if catalog == nil {
		catalog = category.Builtin()
	}
	if err := category.ValidateCustomRules(in.CustomRules); err != nil {
		return nil, err
	}

	labels := label.Overlay(label.For(in.Lang), catalog.Labels(label.Canonical(in.Lang)))
	cats := catalog.Select(in.Selection)

	base := in.Base
	if base == nil {
		base = document.Baseline()
	}

	// Proxy names must stay clear of every group and of the base document's
	// own proxies.
	reserved := group.Names(cats, in.CustomRules, labels)
	for _, p := range base.Proxies {
		reserved = append(reserved, p.Name)
	}
	for _, g := range base.Groups {
		reserved = append(reserved, g.Name)
	}
	reg := registry.New(in.Descriptors, reserved)

	groups := group.Build(reg.Names(), cats, in.CustomRules, labels, opt.Auto)

	tables := override.Load(ctx, in.Overrides, log)
	sources := category.Sources(in.CustomRules, cats)
	ruleList := rules.Compile(rules.Input{
		ProxyPinned:  override.Domains(tables.Proxy),
		DirectPinned: override.Domains(tables.Direct),
		Sources:      sources,
		Labels:       labels,
		Logger:       log,
	})
	providers := ruleset.Merge(ruleset.Resolve(sources, opt.RuleSets))

	proxies := reg.Proxies()
	doc := document.Assemble(base, proxies, groups, providers, ruleList)
	if err := Verify(doc, Expect{
		Manual:   labels(category.NodeSelect),
		Fallback: labels(category.FallBack),
	}); err != nil {
		log.Error("build produced inconsistent references", zap.Error(err))
		return nil, err
	}

	log.Debug("build finished",
		zap.Int("proxies", len(proxies)),
		zap.Int("groups", len(doc.Groups)),
		zap.Int("rules", len(ruleList)),
		zap.Int("providers", len(providers)),
	)
	return &Result{
		Proxies:       proxies,
		Groups:        groups,
		RuleProviders: providers,
		Rules:         ruleList,
		Document:      doc,
	}, nil
}
