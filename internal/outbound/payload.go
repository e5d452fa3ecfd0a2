package outbound

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/provolone8305/sublink-worker/internal/model"
)

type ParseError struct {
	AppError model.AppError
	Cause    error
}

func (e *ParseError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

var errInvalidJSON = errors.New("invalid sing-box outbound JSON")

// Payload is the decoded node payload of one subscriber.
type Payload struct {
	Descriptors []Descriptor

	// Skipped lists link lines that could not be used. They never fail the
	// parse; callers log them.
	Skipped []*ParseError
}

// ParsePayload auto-detects the payload format:
//  1. JSON (object or array) is decoded as sing-box outbounds;
//  2. text containing "ss://" is a raw link list;
//  3. anything else is base64 of either of the above.
func ParsePayload(sourceURL string, content string) (*Payload, error) {
	s := strings.TrimSpace(strings.TrimPrefix(content, "\uFEFF"))
	if s == "" {
		return nil, newParseError(sourceURL, 0, "", "SUB_PARSE_ERROR", "节点内容为空", "", nil)
	}

	if p, ok, err := parseDecoded(sourceURL, s); ok {
		return p, err
	}

	decoded, err := decodeB64ToBytes(removeSpaceTabCRLF(s))
	if err != nil {
		return nil, newParseError(sourceURL, 0, truncateSnippet(s, 200), "SUB_BASE64_DECODE_ERROR", "节点内容 base64 解码失败", "", err)
	}
	if !utf8.Valid(decoded) {
		return nil, newParseError(sourceURL, 0, "", "SUB_BASE64_DECODE_ERROR", "节点内容解码后不是合法 UTF-8", "", nil)
	}
	text := strings.TrimSpace(strings.TrimPrefix(string(decoded), "\uFEFF"))
	if p, ok, err := parseDecoded(sourceURL, text); ok {
		return p, err
	}
	return nil, newParseError(sourceURL, 0, truncateSnippet(text, 200), "SUB_PARSE_ERROR", "无法识别的节点内容格式", "expected: sing-box JSON or ss:// links", nil)
}

// parseDecoded handles the two plain-text formats. ok is false when s is
// neither, so the caller can try base64.
func parseDecoded(sourceURL, s string) (*Payload, bool, error) {
	switch {
	case strings.HasPrefix(s, "{") || strings.HasPrefix(s, "["):
		ds, err := DecodeJSON(s)
		if err != nil {
			return nil, true, newParseError(sourceURL, 0, truncateSnippet(s, 200), "SUB_PARSE_ERROR", "节点 JSON 解析失败", "", err)
		}
		return &Payload{Descriptors: ds}, true, nil
	case strings.Contains(s, "ss://"):
		ds, skipped := parseLinkList(sourceURL, s)
		return &Payload{Descriptors: ds, Skipped: skipped}, true, nil
	default:
		return nil, false, nil
	}
}

func newParseError(sourceURL string, lineNo int, snippet string, code string, message string, hint string, cause error) *ParseError {
	return &ParseError{
		AppError: model.AppError{
			Code:    code,
			Message: message,
			Stage:   "parse_nodes",
			URL:     sourceURL,
			Line:    lineNo,
			Snippet: snippet,
			Hint:    hint,
		},
		Cause: cause,
	}
}
