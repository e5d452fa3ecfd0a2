package render

import (
	"bytes"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/provolone8305/sublink-worker/internal/document"
	"github.com/provolone8305/sublink-worker/internal/model"
	"github.com/provolone8305/sublink-worker/internal/rules"
)

// renderClash keeps the base document's key order. Build-owned keys are
// written where the base had them, or appended in document.ManagedKeys order.
func renderClash(doc *model.Document) ([]byte, error) {
	top := &yaml.Node{Kind: yaml.MappingNode}
	emitted := make(map[string]bool, len(document.ManagedKeys))

	add := func(key string, value *yaml.Node) {
		top.Content = append(top.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}, value)
	}

	for _, f := range doc.Fields {
		if isManaged(f.Key) {
			if emitted[f.Key] {
				continue
			}
			n, err := managedNode(f.Key, doc)
			if err != nil {
				return nil, err
			}
			add(f.Key, n)
			emitted[f.Key] = true
			continue
		}
		n, err := valueNode(f.Value)
		if err != nil {
			return nil, renderErr("顶层字段无法序列化", f.Key, err)
		}
		add(f.Key, n)
	}
	for _, key := range document.ManagedKeys {
		if emitted[key] {
			continue
		}
		n, err := managedNode(key, doc)
		if err != nil {
			return nil, err
		}
		add(key, n)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{top}}); err != nil {
		return nil, renderErr("YAML 编码失败", "", err)
	}
	if err := enc.Close(); err != nil {
		return nil, renderErr("YAML 编码失败", "", err)
	}
	return buf.Bytes(), nil
}

func isManaged(key string) bool {
	for _, k := range document.ManagedKeys {
		if k == key {
			return true
		}
	}
	return false
}

func managedNode(key string, doc *model.Document) (*yaml.Node, error) {
	switch key {
	case document.KeyProxies:
		return encodeList(key, doc.Proxies)
	case document.KeyProxyGroups:
		return encodeList(key, doc.Groups)
	case document.KeyRuleProviders:
		return providersNode(doc.RuleProviders)
	default:
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, r := range doc.Rules {
			seq.Content = append(seq.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: rules.String(r)})
		}
		return seq, nil
	}
}

func encodeList[T any](key string, items []T) (*yaml.Node, error) {
	if len(items) == 0 {
		return &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}, nil
	}
	var n yaml.Node
	if err := n.Encode(items); err != nil {
		return nil, renderErr(key+" 无法序列化", key, err)
	}
	return &n, nil
}

// providersNode writes providers sorted by key so output is stable.
func providersNode(providers map[string]model.RuleProvider) (*yaml.Node, error) {
	m := &yaml.Node{Kind: yaml.MappingNode}
	if len(providers) == 0 {
		m.Style = yaml.FlowStyle
		return m, nil
	}
	keys := make([]string, 0, len(providers))
	for k := range providers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		var v yaml.Node
		if err := v.Encode(providers[k]); err != nil {
			return nil, renderErr("rule-providers 无法序列化", k, err)
		}
		m.Content = append(m.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}, &v)
	}
	return m, nil
}

func valueNode(v any) (*yaml.Node, error) {
	if n, ok := v.(*yaml.Node); ok && n != nil {
		return n, nil
	}
	var n yaml.Node
	if err := n.Encode(v); err != nil {
		return nil, err
	}
	return &n, nil
}

func renderErr(msg, snippet string, cause error) *RenderError {
	return &RenderError{
		AppError: model.AppError{
			Code:    "RENDER_ERROR",
			Message: msg,
			Stage:   "render",
			Snippet: snippet,
		},
		Cause: cause,
	}
}
