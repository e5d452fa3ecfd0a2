// Package rules compiles rule sources into the ordered clause list of a
// document. The client evaluates clauses first-match-wins, so emission order
// is part of the result's meaning.
package rules

import (
	"net"

	"github.com/yl2chen/cidranger"
	"go.uber.org/zap"

	"github.com/provolone8305/sublink-worker/internal/category"
	"github.com/provolone8305/sublink-worker/internal/label"
	"github.com/provolone8305/sublink-worker/internal/model"
	"github.com/provolone8305/sublink-worker/internal/ruleset"
)

type Input struct {
	// Operator-pinned domains, in table order. Proxy-pinned domains go to
	// the manual-select group, direct-pinned ones to the fallback group.
	ProxyPinned  []string
	DirectPinned []string

	// Sources in precedence order, see category.Sources.
	Sources []category.Source

	Labels label.Resolver
	Logger *zap.Logger
}

// Compile emits, in this order:
//  1. pinned overrides (proxy-pinned, then direct-pinned) as DOMAIN-SUFFIX;
//  2. per source: DOMAIN-SUFFIX, then DOMAIN-KEYWORD;
//  3. per source: RULE-SET over domain providers;
//  4. per source: RULE-SET over ip providers, no-resolve;
//  5. per source: IP-CIDR / IP-CIDR6 literals, no-resolve;
//  6. one MATCH to the fallback group.
//
// A CIDR literal fully covered by an earlier literal can never match and is
// dropped.
func Compile(in Input) []model.Rule {
	labels := in.Labels
	if labels == nil {
		labels = label.Identity
	}
	log := in.Logger
	if log == nil {
		log = zap.NewNop()
	}

	manual := labels(category.NodeSelect)
	fallback := labels(category.FallBack)

	var out []model.Rule
	for _, d := range in.ProxyPinned {
		out = append(out, model.Rule{Type: model.RuleDomainSuffix, Value: d, Action: manual})
	}
	for _, d := range in.DirectPinned {
		out = append(out, model.Rule{Type: model.RuleDomainSuffix, Value: d, Action: fallback})
	}

	for _, src := range in.Sources {
		target := labels(src.ID)
		for _, s := range src.DomainSuffix {
			out = append(out, model.Rule{Type: model.RuleDomainSuffix, Value: s, Action: target})
		}
		for _, k := range src.DomainKeyword {
			out = append(out, model.Rule{Type: model.RuleDomainKeyword, Value: k, Action: target})
		}
	}
	for _, src := range in.Sources {
		target := labels(src.ID)
		for _, name := range src.Sites {
			out = append(out, model.Rule{Type: model.RuleSet, Value: ruleset.Key(name, ruleset.Domain), Action: target})
		}
	}
	for _, src := range in.Sources {
		target := labels(src.ID)
		for _, name := range src.IPs {
			out = append(out, model.Rule{Type: model.RuleSet, Value: ruleset.Key(name, ruleset.IP), Action: target, NoResolve: true})
		}
	}

	seen := cidranger.NewPCTrieRanger()
	for _, src := range in.Sources {
		target := labels(src.ID)
		for _, c := range src.IPCIDR {
			_, n, err := net.ParseCIDR(c)
			if err != nil {
				log.Warn("skip invalid cidr", zap.String("source", src.ID), zap.String("cidr", c), zap.Error(err))
				continue
			}
			if covered(seen, n, log) {
				log.Debug("skip shadowed cidr", zap.String("source", src.ID), zap.String("cidr", n.String()))
				continue
			}
			if err := seen.Insert(cidranger.NewBasicRangerEntry(*n)); err != nil {
				log.Warn("cidr index insert failed", zap.String("cidr", n.String()), zap.Error(err))
			}
			typ := model.RuleIPCIDR
			if n.IP.To4() == nil {
				typ = model.RuleIPCIDR6
			}
			out = append(out, model.Rule{Type: typ, Value: n.String(), Action: target, NoResolve: true})
		}
	}

	return append(out, model.Rule{Type: model.RuleMatch, Action: fallback})
}

// covered reports whether an indexed network contains all of n.
// A lookup failure counts as not covered, so the literal is kept.
func covered(r cidranger.Ranger, n *net.IPNet, log *zap.Logger) bool {
	entries, err := r.ContainingNetworks(n.IP)
	if err != nil {
		log.Debug("cidr index lookup failed", zap.String("cidr", n.String()), zap.Error(err))
		return false
	}
	ones, _ := n.Mask.Size()
	for _, e := range entries {
		en := e.Network()
		eo, _ := en.Mask.Size()
		if eo <= ones {
			return true
		}
	}
	return false
}
