package document

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/provolone8305/sublink-worker/internal/model"
	"github.com/provolone8305/sublink-worker/internal/rules"
)

// Load parses a base document (YAML, or JSON as its subset). Proxies and
// groups are kept verbatim; rules and rule providers are dropped since a
// build replaces them. Other keys keep their source order and content.
func Load(sourceURL, text string) (*model.Document, error) {
	return load(sourceURL, text, false)
}

// Decode parses a complete client document, rules and rule providers
// included. Every rule must be a clause kind the compiler emits.
func Decode(text string) (*model.Document, error) {
	return load("", text, true)
}

func load(sourceURL, text string, strict bool) (*model.Document, error) {
	fail := func(line int, msg, snippet string, cause error) (*model.Document, error) {
		return nil, &BaseError{
			AppError: model.AppError{
				Code:    "BASE_PARSE_ERROR",
				Message: msg,
				Stage:   "parse_base",
				URL:     sourceURL,
				Line:    line,
				Snippet: truncateSnippet(snippet, 200),
			},
			Cause: cause,
		}
	}

	if strings.TrimSpace(text) == "" {
		return fail(0, "基础配置为空", "", nil)
	}
	var root yaml.Node
	if err := yaml.Unmarshal([]byte(text), &root); err != nil {
		return fail(0, "基础配置不是合法 YAML", text, err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 || root.Content[0].Kind != yaml.MappingNode {
		return fail(0, "基础配置顶层必须是映射", text, nil)
	}
	top := root.Content[0]

	doc := &model.Document{RuleProviders: map[string]model.RuleProvider{}}
	seen := make(map[string]struct{}, len(top.Content)/2)
	for i := 0; i+1 < len(top.Content); i += 2 {
		k, v := top.Content[i], top.Content[i+1]
		key := k.Value
		if _, dup := seen[key]; dup {
			return fail(k.Line, "基础配置存在重复的顶层键", key, nil)
		}
		seen[key] = struct{}{}

		if !isManaged(key) {
			doc.Fields = append(doc.Fields, model.Field{Key: key, Value: v})
			continue
		}
		// Managed keys only mark their position.
		doc.Fields = append(doc.Fields, model.Field{Key: key})

		if isNull(v) {
			continue
		}
		switch key {
		case KeyProxies:
			ps, line, err := decodeProxies(v)
			if err != nil {
				return fail(line, "proxies 不合法", key, err)
			}
			doc.Proxies = ps
		case KeyProxyGroups:
			gs, line, err := decodeGroups(v)
			if err != nil {
				return fail(line, "proxy-groups 不合法", key, err)
			}
			doc.Groups = gs
		case KeyRuleProviders:
			if !strict {
				continue
			}
			if err := v.Decode(&doc.RuleProviders); err != nil {
				return fail(v.Line, "rule-providers 不合法", key, err)
			}
		case KeyRules:
			if !strict {
				continue
			}
			if v.Kind != yaml.SequenceNode {
				return fail(v.Line, "rules 必须是列表", key, nil)
			}
			for _, item := range v.Content {
				r, err := rules.Parse(item.Value)
				if err != nil {
					return fail(item.Line, "规则不合法", item.Value, err)
				}
				doc.Rules = append(doc.Rules, r)
			}
		}
	}
	return doc, nil
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Tag == "!!null"
}

func decodeProxies(n *yaml.Node) ([]model.Proxy, int, error) {
	if n.Kind != yaml.SequenceNode {
		return nil, n.Line, fmt.Errorf("expected a list")
	}
	out := make([]model.Proxy, 0, len(n.Content))
	for _, item := range n.Content {
		var raw map[string]any
		if err := item.Decode(&raw); err != nil {
			return nil, item.Line, err
		}
		name, _ := raw["name"].(string)
		if name == "" {
			return nil, item.Line, fmt.Errorf("proxy without name")
		}
		p := model.Proxy{Name: name, Raw: raw}
		p.Type, _ = raw["type"].(string)
		p.Server, _ = raw["server"].(string)
		p.Port, _ = raw["port"].(int)
		out = append(out, p)
	}
	return out, 0, nil
}

func decodeGroups(n *yaml.Node) ([]model.Group, int, error) {
	if n.Kind != yaml.SequenceNode {
		return nil, n.Line, fmt.Errorf("expected a list")
	}
	out := make([]model.Group, 0, len(n.Content))
	for _, item := range n.Content {
		var raw map[string]any
		if err := item.Decode(&raw); err != nil {
			return nil, item.Line, err
		}
		name, _ := raw["name"].(string)
		if name == "" {
			return nil, item.Line, fmt.Errorf("group without name")
		}
		g := model.Group{Name: name, Raw: raw}
		g.Type, _ = raw["type"].(string)
		if members, ok := raw["proxies"].([]any); ok {
			for _, m := range members {
				s, ok := m.(string)
				if !ok {
					return nil, item.Line, fmt.Errorf("group %q: member is not a string", name)
				}
				g.Members = append(g.Members, s)
			}
		}
		out = append(out, g)
	}
	return out, 0, nil
}

func truncateSnippet(s string, max int) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	if len(s) <= max {
		return s
	}
	return s[:max]
}
