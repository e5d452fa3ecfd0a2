// Package document merges the build results into a base client document.
package document

import (
	_ "embed"
	"fmt"

	"github.com/provolone8305/sublink-worker/internal/model"
)

// Top-level keys whose content the build owns.
const (
	KeyProxies       = "proxies"
	KeyProxyGroups   = "proxy-groups"
	KeyRuleProviders = "rule-providers"
	KeyRules         = "rules"
)

// ManagedKeys lists the build-owned keys in the order they are appended when
// a base document does not carry them.
var ManagedKeys = []string{KeyProxies, KeyProxyGroups, KeyRuleProviders, KeyRules}

func isManaged(key string) bool {
	switch key {
	case KeyProxies, KeyProxyGroups, KeyRuleProviders, KeyRules:
		return true
	}
	return false
}

//go:embed baseline.yaml
var baselineYAML string

type BaseError struct {
	AppError model.AppError
	Cause    error
}

func (e *BaseError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *BaseError) Unwrap() error { return e.Cause }

// Baseline returns a fresh copy of the built-in base document.
func Baseline() *model.Document {
	doc, err := Load("", baselineYAML)
	if err != nil {
		panic("document: embedded baseline is invalid: " + err.Error())
	}
	return doc
}

// Assemble combines the build results with base. Base proxies are kept and
// ours appended after them. Base groups are placed right after the first
// built group (manual-select) so it stays at the head. Base rules and rule
// providers are replaced. A nil base means the built-in baseline.
func Assemble(base *model.Document, proxies []model.Proxy, groups []model.Group, providers map[string]model.RuleProvider, rules []model.Rule) *model.Document {
	if base == nil {
		base = Baseline()
	}

	out := &model.Document{
		Fields:        append([]model.Field(nil), base.Fields...),
		Proxies:       make([]model.Proxy, 0, len(base.Proxies)+len(proxies)),
		Groups:        make([]model.Group, 0, len(base.Groups)+len(groups)),
		RuleProviders: make(map[string]model.RuleProvider, len(providers)),
		Rules:         append([]model.Rule(nil), rules...),
	}
	out.Proxies = append(out.Proxies, base.Proxies...)
	out.Proxies = append(out.Proxies, proxies...)

	if len(groups) > 0 {
		out.Groups = append(out.Groups, groups[0])
	}
	out.Groups = append(out.Groups, base.Groups...)
	if len(groups) > 1 {
		out.Groups = append(out.Groups, groups[1:]...)
	}

	for k, v := range providers {
		out.RuleProviders[k] = v
	}
	return out
}
