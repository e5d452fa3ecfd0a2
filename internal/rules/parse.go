package rules

import (
	"fmt"
	"net"
	"strings"

	"github.com/provolone8305/sublink-worker/internal/model"
)

type RuleError struct {
	Code    string
	Message string
	Hint    string
	Cause   error
}

func (e *RuleError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
}

func (e *RuleError) Unwrap() error { return e.Cause }

// String formats a clause the way the client reads it.
func String(r model.Rule) string {
	if r.Type == model.RuleMatch {
		return r.Type + "," + r.Action
	}
	s := r.Type + "," + r.Value + "," + r.Action
	if r.NoResolve {
		s += ",no-resolve"
	}
	return s
}

// Parse is the inverse of String for the clause kinds Compile emits.
func Parse(line string) (model.Rule, error) {
	line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
	if line == "" {
		return model.Rule{}, &RuleError{Code: "RULE_PARSE_ERROR", Message: "规则不能为空"}
	}
	parts := strings.Split(line, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	typ := strings.ToUpper(parts[0])
	switch typ {
	case model.RuleMatch:
		if len(parts) != 2 || parts[1] == "" {
			return model.Rule{}, &RuleError{Code: "RULE_PARSE_ERROR", Message: "MATCH 规则必须是 MATCH,<ACTION>"}
		}
		return model.Rule{Type: typ, Action: parts[1]}, nil
	case model.RuleDomainSuffix, model.RuleDomainKeyword:
		if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
			return model.Rule{}, &RuleError{
				Code:    "RULE_PARSE_ERROR",
				Message: "规则字段数量不合法",
				Hint:    "expected: TYPE,VALUE,ACTION",
			}
		}
		return model.Rule{Type: typ, Value: parts[1], Action: parts[2]}, nil
	case model.RuleSet, model.RuleIPCIDR, model.RuleIPCIDR6:
		return parseWithOption(typ, parts)
	default:
		return model.Rule{}, &RuleError{
			Code:    "UNSUPPORTED_RULE_TYPE",
			Message: fmt.Sprintf("不支持的规则类型：%s", typ),
		}
	}
}

func parseWithOption(typ string, parts []string) (model.Rule, error) {
	hint := "expected: " + typ + ",VALUE,ACTION[,no-resolve]"
	if len(parts) != 3 && len(parts) != 4 {
		return model.Rule{}, &RuleError{Code: "RULE_PARSE_ERROR", Message: "规则字段数量不合法", Hint: hint}
	}
	if parts[1] == "" || parts[2] == "" {
		return model.Rule{}, &RuleError{Code: "RULE_PARSE_ERROR", Message: "规则 VALUE/ACTION 不能为空", Hint: hint}
	}
	if strings.EqualFold(parts[2], "no-resolve") {
		// Ambiguous: missing action but has option.
		return model.Rule{}, &RuleError{
			Code:    "RULE_PARSE_ERROR",
			Message: "规则缺少 ACTION（不允许仅写 no-resolve）",
			Hint:    hint,
		}
	}
	r := model.Rule{Type: typ, Value: parts[1], Action: parts[2]}
	if len(parts) == 4 {
		if !strings.EqualFold(parts[3], "no-resolve") {
			return model.Rule{}, &RuleError{Code: "RULE_PARSE_ERROR", Message: "可选项仅支持 no-resolve", Hint: hint}
		}
		r.NoResolve = true
	}
	if typ == model.RuleSet {
		return r, nil
	}

	ip, _, err := net.ParseCIDR(r.Value)
	if err != nil {
		return model.Rule{}, &RuleError{Code: "RULE_PARSE_ERROR", Message: typ + " 的 CIDR 不合法", Hint: hint, Cause: err}
	}
	if (ip.To4() != nil) != (typ == model.RuleIPCIDR) {
		return model.Rule{}, &RuleError{Code: "RULE_PARSE_ERROR", Message: typ + " 的地址族不匹配", Hint: hint}
	}
	return r, nil
}
