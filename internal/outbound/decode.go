package outbound

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Outbound types that never describe a dialable node.
var nonProxyTypes = map[string]struct{}{
	"direct":   {},
	"block":    {},
	"dns":      {},
	"selector": {},
	"urltest":  {},
}

// DecodeJSON decodes a sing-box style payload: {"outbounds":[...]}, a bare
// array of outbounds, or a single outbound object. Decoding is best-effort:
// missing or mistyped fields yield zero values, never errors.
func DecodeJSON(text string) ([]Descriptor, error) {
	if !gjson.Valid(text) {
		return nil, errInvalidJSON
	}
	root := gjson.Parse(text)

	var list gjson.Result
	switch {
	case root.IsArray():
		list = root
	case root.Get("outbounds").IsArray():
		list = root.Get("outbounds")
	case root.IsObject():
		d, ok := decodeOutbound(root)
		if !ok {
			return nil, nil
		}
		return []Descriptor{d}, nil
	default:
		return nil, errInvalidJSON
	}

	out := make([]Descriptor, 0, len(list.Array()))
	list.ForEach(func(_, v gjson.Result) bool {
		if !v.IsObject() {
			return true
		}
		if d, ok := decodeOutbound(v); ok {
			out = append(out, d)
		}
		return true
	})
	return out, nil
}

func decodeOutbound(v gjson.Result) (Descriptor, bool) {
	typ := strings.ToLower(strings.TrimSpace(v.Get("type").String()))
	if _, skip := nonProxyTypes[typ]; skip {
		return nil, false
	}

	common := Common{
		Name:       v.Get("tag").String(),
		Server:     v.Get("server").String(),
		ServerPort: int(v.Get("server_port").Int()),
	}

	switch Protocol(typ) {
	case ProtoShadowsocks:
		return Shadowsocks{
			Common:   common,
			Method:   v.Get("method").String(),
			Password: v.Get("password").String(),
		}, true
	case ProtoVMess:
		return VMess{
			Common:    common,
			UUID:      v.Get("uuid").String(),
			AlterID:   int(v.Get("alter_id").Int()),
			Security:  v.Get("security").String(),
			TLS:       decodeTLS(v.Get("tls")),
			Transport: decodeTransport(v.Get("transport")),
		}, true
	case ProtoVLESS:
		return VLESS{
			Common:      common,
			UUID:        v.Get("uuid").String(),
			Flow:        v.Get("flow").String(),
			TLS:         decodeTLS(v.Get("tls")),
			Transport:   decodeTransport(v.Get("transport")),
			TCPFastOpen: optBool(v.Get("tcp_fast_open")),
		}, true
	case ProtoHysteria2:
		h := Hysteria2{
			Common:   common,
			Password: v.Get("password").String(),
			TLS:      decodeTLS(v.Get("tls")),
		}
		if o := v.Get("obfs"); o.IsObject() {
			h.Obfs = &Obfs{
				Type:     o.Get("type").String(),
				Password: o.Get("password").String(),
			}
		}
		return h, true
	case ProtoTrojan:
		return Trojan{
			Common:      common,
			Password:    v.Get("password").String(),
			Flow:        v.Get("flow").String(),
			TLS:         decodeTLS(v.Get("tls")),
			Transport:   decodeTransport(v.Get("transport")),
			TCPFastOpen: optBool(v.Get("tcp_fast_open")),
		}, true
	case ProtoTUIC:
		congestion := v.Get("congestion_control").String()
		if congestion == "" {
			congestion = v.Get("congestion").String()
		}
		return TUIC{
			Common:     common,
			UUID:       v.Get("uuid").String(),
			Password:   v.Get("password").String(),
			Congestion: congestion,
			TLS:        decodeTLS(v.Get("tls")),
		}, true
	default:
		fields, _ := v.Value().(map[string]any)
		name := common.Name
		if name == "" {
			name = v.Get("name").String()
		}
		return Unknown{Type: v.Get("type").String(), Name: name, Fields: fields}, true
	}
}

func decodeTLS(v gjson.Result) *TLS {
	if !v.IsObject() {
		return nil
	}
	t := &TLS{
		Enabled:    v.Get("enabled").Bool(),
		ServerName: v.Get("server_name").String(),
		Insecure:   v.Get("insecure").Bool(),
		ALPN:       stringList(v.Get("alpn")),
	}
	if u := v.Get("utls"); u.IsObject() {
		t.UTLS = &UTLS{
			Enabled:     u.Get("enabled").Bool(),
			Fingerprint: u.Get("fingerprint").String(),
		}
	}
	if r := v.Get("reality"); r.IsObject() {
		t.Reality = &Reality{
			Enabled:   r.Get("enabled").Bool(),
			PublicKey: r.Get("public_key").String(),
			ShortID:   r.Get("short_id").String(),
		}
	}
	return t
}

func decodeTransport(v gjson.Result) *Transport {
	if !v.IsObject() {
		return nil
	}
	t := &Transport{
		Type:        strings.ToLower(v.Get("type").String()),
		Path:        v.Get("path").String(),
		ServiceName: v.Get("service_name").String(),
	}
	if h := v.Get("headers"); h.IsObject() {
		t.Headers = make(map[string]string)
		h.ForEach(func(k, val gjson.Result) bool {
			// sing-box allows a list of values per header; the client takes one.
			if val.IsArray() {
				if first := val.Array(); len(first) > 0 {
					t.Headers[k.String()] = first[0].String()
				}
				return true
			}
			t.Headers[k.String()] = val.String()
			return true
		})
	}
	return t
}

func stringList(v gjson.Result) []string {
	if !v.Exists() {
		return nil
	}
	if !v.IsArray() {
		if s := v.String(); s != "" {
			return []string{s}
		}
		return nil
	}
	out := make([]string, 0, len(v.Array()))
	for _, item := range v.Array() {
		out = append(out, item.String())
	}
	return out
}

func optBool(v gjson.Result) *bool {
	if !v.Exists() {
		return nil
	}
	b := v.Bool()
	return &b
}
