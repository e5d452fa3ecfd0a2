// Package normalize maps source outbound descriptors onto the client's proxy
// schema.
package normalize

import (
	"maps"
	"strconv"
	"strings"

	"github.com/provolone8305/sublink-worker/internal/model"
	"github.com/provolone8305/sublink-worker/internal/outbound"
)

// Normalize is total and pure: every descriptor yields a proxy, and the
// result never aliases the descriptor's maps or slices.
func Normalize(d outbound.Descriptor) model.Proxy {
	switch v := d.(type) {
	case outbound.Shadowsocks:
		return shadowsocks(v)
	case outbound.VMess:
		return vmess(v)
	case outbound.VLESS:
		return vless(v)
	case outbound.Hysteria2:
		return hysteria2(v)
	case outbound.Trojan:
		return trojan(v)
	case outbound.TUIC:
		return tuic(v)
	case outbound.Unknown:
		return passthrough(v)
	default:
		// Unreachable while Descriptor stays sealed.
		return model.Proxy{Name: d.Tag(), Type: string(d.Protocol())}
	}
}

func base(typ string, c outbound.Common) model.Proxy {
	return model.Proxy{Name: c.Name, Type: typ, Server: c.Server, Port: c.ServerPort}
}

func shadowsocks(v outbound.Shadowsocks) model.Proxy {
	p := base("ss", v.Common)
	p.Cipher = v.Method
	p.Password = v.Password
	p.Plugin, p.PluginOpts = ssPlugin(v.Plugin, v.PluginOpts)
	return p
}

// ssPlugin translates SIP002 simple-obfs options into the client's obfs
// plugin. Other plugins are passed through with their options unchanged.
func ssPlugin(name string, opts []outbound.PluginOpt) (string, []model.KV) {
	var out []model.KV
	if name != "simple-obfs" && name != "obfs-local" {
		for _, o := range opts {
			out = append(out, model.KV{Key: o.Key, Value: o.Value})
		}
		return name, out
	}
	for _, o := range opts {
		switch strings.TrimSpace(o.Key) {
		case "obfs":
			out = append(out, model.KV{Key: "mode", Value: strings.TrimSpace(o.Value)})
		case "obfs-host":
			out = append(out, model.KV{Key: "host", Value: strings.TrimSpace(o.Value)})
		}
	}
	return "obfs", out
}

func vmess(v outbound.VMess) model.Proxy {
	p := base("vmess", v.Common)
	p.UUID = v.UUID
	alterID := v.AlterID
	p.AlterID = &alterID
	p.Cipher = v.Security
	p.TLS = boolPtr(v.TLS.Active())
	if v.TLS.Active() {
		p.ServerName = v.TLS.ServerName
	}
	applyTransport(&p, v.Transport, false)
	return p
}

func vless(v outbound.VLESS) model.Proxy {
	p := base("vless", v.Common)
	p.UUID = v.UUID
	p.Flow = v.Flow
	p.TFO = cloneBool(v.TCPFastOpen)
	p.TLS = boolPtr(v.TLS.Active())
	if v.TLS.Active() {
		p.ServerName = v.TLS.ServerName
		applyTLSExtras(&p, v.TLS)
	}
	applyTransport(&p, v.Transport, true)
	return p
}

func hysteria2(v outbound.Hysteria2) model.Proxy {
	p := base("hysteria2", v.Common)
	p.Password = v.Password
	p.Auth = v.Password
	if v.Obfs != nil {
		p.Obfs = v.Obfs.Type
		p.ObfsPassword = v.Obfs.Password
	}
	if v.TLS.Active() {
		p.SNI = v.TLS.ServerName
		p.SkipCertVerify = boolPtr(v.TLS.Insecure)
		p.ALPN = cloneStrings(v.TLS.ALPN)
	}
	return p
}

func trojan(v outbound.Trojan) model.Proxy {
	p := base("trojan", v.Common)
	p.Password = v.Password
	p.Flow = v.Flow
	p.TFO = cloneBool(v.TCPFastOpen)
	p.TLS = boolPtr(v.TLS.Active())
	if v.TLS.Active() {
		p.SNI = v.TLS.ServerName
		applyTLSExtras(&p, v.TLS)
	}
	applyTransport(&p, v.Transport, true)
	return p
}

func tuic(v outbound.TUIC) model.Proxy {
	p := base("tuic", v.Common)
	p.UUID = v.UUID
	p.Password = v.Password
	p.CongestionController = v.Congestion
	p.DisableSNI = boolPtr(true)
	p.UDPRelayMode = "native"
	if v.TLS.Active() {
		p.SNI = v.TLS.ServerName
		p.SkipCertVerify = boolPtr(v.TLS.Insecure)
		p.ALPN = cloneStrings(v.TLS.ALPN)
	}
	return p
}

// passthrough keeps the source record as-is, deep-copied. The emitted name
// key always carries the display name groups reference.
func passthrough(v outbound.Unknown) model.Proxy {
	raw := make(map[string]any, len(v.Fields)+1)
	for k, val := range v.Fields {
		raw[k] = cloneValue(val)
	}
	if v.Name != "" {
		raw["name"] = v.Name
	}
	p := model.Proxy{Name: v.Name, Type: v.Type, Raw: raw}
	if s, ok := raw["server"].(string); ok {
		p.Server = s
	}
	switch port := raw["server_port"].(type) {
	case float64:
		p.Port = int(port)
	case string:
		p.Port, _ = strconv.Atoi(port)
	}
	return p
}

// applyTLSExtras sets the keys that only make sense over an active TLS layer.
func applyTLSExtras(p *model.Proxy, t *outbound.TLS) {
	p.SkipCertVerify = boolPtr(t.Insecure)
	if t.UTLS != nil && t.UTLS.Fingerprint != "" {
		p.Fingerprint = t.UTLS.Fingerprint
	}
	if t.Reality != nil && t.Reality.Enabled {
		p.RealityOpts = &model.RealityOptions{
			PublicKey: t.Reality.PublicKey,
			ShortID:   t.Reality.ShortID,
		}
	}
}

func applyTransport(p *model.Proxy, t *outbound.Transport, grpc bool) {
	p.Network = "tcp"
	if t == nil || t.Type == "" {
		return
	}
	p.Network = t.Type
	switch t.Type {
	case "ws":
		p.WSOpts = &model.WSOptions{Path: t.Path, Headers: maps.Clone(t.Headers)}
	case "grpc":
		if grpc {
			p.GRPCOpts = &model.GRPCOptions{ServiceName: t.ServiceName}
		}
	}
}

// cloneValue copies the nested maps and slices of a decoded JSON value.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	default:
		return v
	}
}

func boolPtr(b bool) *bool { return &b }

func cloneBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	return boolPtr(*b)
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}
