package compiler

import (
	"fmt"

	"github.com/provolone8305/sublink-worker/internal/model"
	"github.com/provolone8305/sublink-worker/internal/rules"
)

// Expect names the groups a document must route through. Empty fields are
// taken from the document itself (the first group, the MATCH target).
type Expect struct {
	Manual   string
	Fallback string
}

// Verify checks that every name reference in doc resolves:
//   - proxy and group names are unique across both namespaces;
//   - group members are DIRECT/REJECT, proxies or groups, without cycles;
//   - the manual-select group is first;
//   - rule targets are DIRECT/REJECT or groups, RULE-SET values are declared
//     providers;
//   - exactly one MATCH, last, targeting the fallback group.
func Verify(doc *model.Document, want Expect) error {
	proxies := make(map[string]struct{}, len(doc.Proxies))
	for _, p := range doc.Proxies {
		if model.IsReserved(p.Name) {
			return verifyErr("GROUP_NAME_CONFLICT", "节点名与保留名称冲突", p.Name)
		}
		if _, dup := proxies[p.Name]; dup {
			return verifyErr("GROUP_NAME_CONFLICT", "节点名重复", p.Name)
		}
		if p.Raw != nil && p.Raw["name"] != p.Name {
			return verifyErr("REFERENCE_NOT_FOUND", "节点记录的 name 与引用名称不一致", p.Name)
		}
		proxies[p.Name] = struct{}{}
	}

	groups := make(map[string]model.Group, len(doc.Groups))
	for _, g := range doc.Groups {
		if model.IsReserved(g.Name) {
			return verifyErr("GROUP_NAME_CONFLICT", "策略组名与保留名称冲突", g.Name)
		}
		if _, dup := groups[g.Name]; dup {
			return verifyErr("GROUP_NAME_CONFLICT", "策略组名重复", g.Name)
		}
		if _, clash := proxies[g.Name]; clash {
			return verifyErr("GROUP_NAME_CONFLICT", "策略组名与节点名冲突", g.Name)
		}
		groups[g.Name] = g
	}

	for _, g := range doc.Groups {
		for _, m := range g.Members {
			if model.IsReserved(m) {
				continue
			}
			_, isProxy := proxies[m]
			_, isGroup := groups[m]
			if !isProxy && !isGroup {
				return verifyErr("REFERENCE_NOT_FOUND", fmt.Sprintf("策略组 %s 引用了不存在的成员", g.Name), m)
			}
		}
	}
	if name, ok := findCycle(doc.Groups, groups); ok {
		return verifyErr("REFERENCE_CYCLE", "策略组之间存在循环引用", name)
	}

	if len(doc.Groups) == 0 {
		return verifyErr("RULE_ORDER_ERROR", "缺少策略组", "")
	}
	if want.Manual != "" && doc.Groups[0].Name != want.Manual {
		return verifyErr("RULE_ORDER_ERROR", "手动选择策略组必须位于第一位", doc.Groups[0].Name)
	}

	if len(doc.Rules) == 0 || doc.Rules[len(doc.Rules)-1].Type != model.RuleMatch {
		return verifyErr("RULE_ORDER_ERROR", "最后一条规则必须是 MATCH", "")
	}
	fallback := want.Fallback
	if fallback == "" {
		fallback = doc.Rules[len(doc.Rules)-1].Action
	}
	for i, r := range doc.Rules {
		if r.Type == model.RuleMatch {
			if i != len(doc.Rules)-1 {
				return verifyErr("RULE_ORDER_ERROR", "MATCH 规则只能出现一次且必须在最后", rules.String(r))
			}
			if r.Action != fallback {
				return verifyErr("RULE_ORDER_ERROR", "MATCH 规则必须指向兜底策略组", rules.String(r))
			}
		}
		if _, ok := groups[r.Action]; !ok && !model.IsReserved(r.Action) {
			return verifyErr("REFERENCE_NOT_FOUND", "规则引用了不存在的策略组", rules.String(r))
		}
		if r.Type == model.RuleSet {
			if _, ok := doc.RuleProviders[r.Value]; !ok {
				return verifyErr("REFERENCE_NOT_FOUND", "RULE-SET 引用了未声明的规则集", rules.String(r))
			}
		}
	}
	return nil
}

// findCycle walks group-to-group edges depth first.
func findCycle(order []model.Group, groups map[string]model.Group) (string, bool) {
	const (
		unvisited = iota
		active
		done
	)
	state := make(map[string]int, len(groups))
	var visit func(name string) (string, bool)
	visit = func(name string) (string, bool) {
		switch state[name] {
		case active:
			return name, true
		case done:
			return "", false
		}
		state[name] = active
		for _, m := range groups[name].Members {
			if _, isGroup := groups[m]; !isGroup {
				continue
			}
			if at, ok := visit(m); ok {
				return at, true
			}
		}
		state[name] = done
		return "", false
	}
	for _, g := range order {
		if at, ok := visit(g.Name); ok {
			return at, true
		}
	}
	return "", false
}

func verifyErr(code, msg, snippet string) *CompileError {
	return &CompileError{
		AppError: model.AppError{
			Code:    code,
			Message: msg,
			Stage:   "compile",
			Snippet: snippet,
		},
	}
}
