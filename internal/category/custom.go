package category

import (
	"fmt"
	"slices"
	"strings"

	"github.com/asaskevich/govalidator"
	"github.com/tidwall/gjson"

	"github.com/provolone8305/sublink-worker/internal/model"
)

// CustomRule is a user-defined rule source. It always gets its own group,
// named after Name.
type CustomRule struct {
	Name string `json:"name"`
	Match
}

type ValidationError struct {
	AppError model.AppError
	Cause    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *ValidationError) Unwrap() error { return e.Cause }

func invalid(stage, msg, snippet, hint string) *ValidationError {
	return &ValidationError{AppError: model.AppError{
		Code:    "INVALID_ARGUMENT",
		Message: msg,
		Stage:   stage,
		Snippet: snippet,
		Hint:    hint,
	}}
}

// ParseCustomRules decodes a JSON array of custom rules. List fields may be
// JSON arrays or comma separated strings.
func ParseCustomRules(text string) ([]CustomRule, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if !gjson.Valid(text) {
		return nil, invalid("custom_rules", "自定义规则不是合法 JSON", snippet(text), "expected: JSON array")
	}
	root := gjson.Parse(text)
	if root.IsObject() {
		root = gjson.Parse("[" + text + "]")
	}
	if !root.IsArray() {
		return nil, invalid("custom_rules", "自定义规则必须是数组", snippet(text), "expected: JSON array")
	}

	var out []CustomRule
	root.ForEach(func(_, v gjson.Result) bool {
		if !v.IsObject() {
			return true
		}
		out = append(out, CustomRule{
			Name: strings.TrimSpace(v.Get("name").String()),
			Match: Match{
				DomainSuffix:  listField(v.Get("domain_suffix")),
				DomainKeyword: listField(v.Get("domain_keyword")),
				Sites:         listField(v.Get("site")),
				IPs:           listField(v.Get("ip")),
				IPCIDR:        listField(v.Get("ip_cidr")),
			},
		})
		return true
	})
	if err := ValidateCustomRules(out); err != nil {
		return nil, err
	}
	return out, nil
}

func listField(v gjson.Result) []string {
	var raw []string
	switch {
	case v.IsArray():
		for _, item := range v.Array() {
			raw = append(raw, item.String())
		}
	case v.Exists():
		raw = strings.Split(v.String(), ",")
	}
	var out []string
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ValidateCustomRules rejects rules that would emit clauses the client cannot
// load. Name clashes with other groups are left to the build's reference check.
func ValidateCustomRules(rules []CustomRule) error {
	for i, r := range rules {
		where := fmt.Sprintf("custom_rules[%d]", i)
		if r.Name == "" {
			return invalid("custom_rules", "自定义规则缺少 name", where, "")
		}
		if !validName(r.Name) {
			return invalid("custom_rules", "自定义规则名称不能包含逗号或换行", r.Name, "")
		}
		if model.IsReserved(r.Name) || r.Name == NodeSelect || r.Name == AutoSelect || r.Name == FallBack {
			return invalid("custom_rules", "自定义规则名称与保留名称冲突", r.Name, "")
		}
		if err := validateMatch("custom_rules", r.Name, r.Match); err != nil {
			return err
		}
	}
	return nil
}

func validateMatch(stage, name string, m Match) error {
	for _, d := range m.DomainSuffix {
		if !govalidator.IsDNSName(strings.TrimPrefix(d, ".")) {
			return invalid(stage, "域名后缀不合法", name+": "+d, "")
		}
	}
	for _, k := range m.DomainKeyword {
		if strings.ContainsAny(k, ", \t\r\n") {
			return invalid(stage, "域名关键字不能包含逗号或空白", name+": "+k, "")
		}
	}
	for _, s := range slices.Concat(m.Sites, m.IPs) {
		if !isRuleSetName(s) {
			return invalid(stage, "规则集名称不合法", name+": "+s, "allowed: a-z 0-9 ! - _ . @")
		}
	}
	for _, c := range m.IPCIDR {
		if !govalidator.IsCIDR(c) {
			return invalid(stage, "CIDR 不合法", name+": "+c, "")
		}
	}
	return nil
}

// validName reports whether s can stand as a clause target: the client
// splits clauses on commas.
func validName(s string) bool {
	return !strings.ContainsAny(s, ",\r\n")
}

func isRuleSetName(s string) bool {
	return govalidator.Matches(s, `^[a-z0-9][a-z0-9!@._-]*$`)
}

func snippet(s string) string {
	if len(s) > 200 {
		return s[:200]
	}
	return s
}
