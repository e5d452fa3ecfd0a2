package outbound

import (
	"encoding/base64"
	"errors"
	"net"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"
)

// parseLinkList parses a newline separated list of share links. Only ss://
// is understood; other schemes and malformed lines are reported as skipped
// so one bad line never sinks the whole payload.
func parseLinkList(sourceURL, raw string) ([]Descriptor, []*ParseError) {
	lines := strings.Split(raw, "\n")
	out := make([]Descriptor, 0, len(lines))
	var skipped []*ParseError
	for i, line := range lines {
		orig := line
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !strings.HasPrefix(line, "ss://") {
			skipped = append(skipped, newParseError(sourceURL, i+1, truncateSnippet(orig, 200), "SUB_UNSUPPORTED_SCHEME", "仅支持 ss:// 链接", "expected: ss://...", nil))
			continue
		}

		p, err := parseSSURI(sourceURL, i+1, line)
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		out = append(out, p)
	}
	return out, skipped
}

func parseSSURI(sourceURL string, lineNo int, s string) (Shadowsocks, *ParseError) {
	fail := func(msg string, cause error) (Shadowsocks, *ParseError) {
		return Shadowsocks{}, newParseError(sourceURL, lineNo, truncateSnippet(s, 200), "SUB_PARSE_ERROR", msg, "", cause)
	}

	// Split fragment first: #name
	withoutFrag, frag, hasFrag := strings.Cut(s, "#")
	name := ""
	if hasFrag {
		decoded, err := url.PathUnescape(frag)
		if err != nil {
			return fail("节点名称 URL 解码失败", err)
		}
		name = strings.TrimSpace(decoded)
		if strings.ContainsAny(name, "\r\n\x00") {
			return fail("节点名称包含非法控制字符", nil)
		}
	}

	withoutQuery, query, _ := strings.Cut(withoutFrag, "?")
	plugin, pluginOpts, err := parseQueryPlugin(query)
	if err != nil {
		return fail("plugin 参数不合法", err)
	}

	rest := strings.TrimPrefix(withoutQuery, "ss://")
	if rest == "" {
		return fail("ss:// 后缺少内容", nil)
	}

	var method, password, hostPort string
	if userB64, hostPart, ok := strings.Cut(rest, "@"); ok {
		// SIP002: <b64(method:password)>@<host>:<port>[/]
		if userB64 == "" || hostPart == "" {
			return fail("ss uri 格式不合法", nil)
		}
		hostPort = strings.TrimSuffix(hostPart, "/")
		method, password, err = decodeMethodPassword(userB64)
		if err != nil {
			return fail("ss userinfo base64 解码失败", err)
		}
	} else {
		// Legacy: ss://<b64(method:password@host:port)>
		decoded, err := decodeB64ToString(rest)
		if err != nil {
			return fail("ss base64 解码失败", err)
		}
		if !utf8.ValidString(decoded) {
			return fail("ss base64 解码结果不是合法 UTF-8", nil)
		}
		at := strings.LastIndex(decoded, "@")
		if at < 0 {
			return fail("ss base64 解码结果缺少 @ 分隔符", nil)
		}
		method, password, err = splitMethodPassword(decoded[:at])
		if err != nil {
			return fail("cipher 或 password 不合法", err)
		}
		hostPort = decoded[at+1:]
	}

	server, port, err := parseHostPort(hostPort)
	if err != nil {
		return fail("服务器地址或端口不合法", err)
	}

	return Shadowsocks{
		Common:     Common{Name: name, Server: server, ServerPort: port},
		Method:     method,
		Password:   password,
		Plugin:     plugin,
		PluginOpts: pluginOpts,
	}, nil
}

// parseQueryPlugin extracts the SIP002 "plugin" parameter. net/url.ParseQuery
// rejects raw semicolons, which the plugin value uses, so the query is split by
// hand on '&'. Unknown parameters are ignored.
func parseQueryPlugin(query string) (string, []PluginOpt, error) {
	var pluginValue string
	for _, part := range strings.Split(query, "&") {
		kRaw, vRaw, hasEq := strings.Cut(part, "=")
		if !hasEq {
			continue
		}
		k, err := url.PathUnescape(kRaw)
		if err != nil || k != "plugin" {
			continue
		}
		v, err := url.PathUnescape(vRaw)
		if err != nil {
			return "", nil, err
		}
		pluginValue = v
	}
	if strings.TrimSpace(pluginValue) == "" {
		return "", nil, nil
	}

	segs := strings.Split(pluginValue, ";")
	name := strings.TrimSpace(segs[0])
	if name == "" {
		return "", nil, errors.New("empty plugin name")
	}
	opts := make([]PluginOpt, 0, len(segs)-1)
	for _, seg := range segs[1:] {
		if seg == "" {
			continue
		}
		k, v, ok := strings.Cut(seg, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return "", nil, errors.New("plugin option must be k=v")
		}
		opts = append(opts, PluginOpt{Key: k, Value: v})
	}
	return name, opts, nil
}

func parseHostPort(s string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return "", 0, err
	}
	host = strings.TrimSpace(host)
	if host == "" {
		return "", 0, errors.New("empty host")
	}
	portInt, err := strconv.Atoi(strings.TrimSpace(portStr))
	if err != nil {
		return "", 0, err
	}
	if portInt < 1 || portInt > 65535 {
		return "", 0, errors.New("port out of range")
	}
	return host, portInt, nil
}

func decodeMethodPassword(userB64 string) (string, string, error) {
	// Some producers percent-encode the userinfo; plain "method:password" is
	// accepted too.
	if u, err := url.PathUnescape(userB64); err == nil && strings.Contains(u, ":") {
		return splitMethodPassword(u)
	}
	decoded, err := decodeB64ToString(userB64)
	if err != nil {
		return "", "", err
	}
	if !utf8.ValidString(decoded) {
		return "", "", errors.New("decoded method:password is not valid utf-8")
	}
	return splitMethodPassword(decoded)
}

func splitMethodPassword(s string) (string, string, error) {
	colon := strings.IndexByte(s, ':')
	if colon <= 0 {
		return "", "", errors.New("missing ':'")
	}
	method := strings.TrimSpace(s[:colon])
	password := strings.TrimSpace(s[colon+1:])
	if method == "" || password == "" {
		return "", "", errors.New("empty method or password")
	}
	if strings.ContainsAny(method, "\r\n\x00") || strings.ContainsAny(password, "\r\n\x00") {
		return "", "", errors.New("control chars in method/password")
	}
	return method, password, nil
}

func decodeB64ToString(s string) (string, error) {
	b, err := decodeB64ToBytes(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeB64ToBytes(s string) ([]byte, error) {
	// Try standard alphabet (with padding) first, then URL-safe, then raw (no padding).
	encodings := []*base64.Encoding{
		base64.StdEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.RawURLEncoding,
	}
	var lastErr error
	for _, enc := range encodings {
		b, err := enc.DecodeString(s)
		if err == nil {
			return b, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func removeSpaceTabCRLF(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\r', '\n':
			continue
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func truncateSnippet(s string, max int) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	return s[:max]
}
