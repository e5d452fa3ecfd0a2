package outbound

import "testing"

func TestDecodeJSON_Outbounds(t *testing.T) {
	text := `{
  "outbounds": [
    {"type": "direct", "tag": "direct"},
    {"type": "vless", "tag": "v1", "server": "v.example.com", "server_port": 443,
     "uuid": "u-1", "flow": "xtls-rprx-vision", "tcp_fast_open": false,
     "tls": {"enabled": true, "server_name": "sni.example.com", "insecure": true,
             "utls": {"enabled": true, "fingerprint": "chrome"},
             "reality": {"enabled": true, "public_key": "pk", "short_id": "sid"}},
     "transport": {"type": "ws", "path": "/ws", "headers": {"Host": ["a.example.com", "b"]}}},
    {"type": "tuic", "tag": "t1", "server": "t.example.com", "server_port": 8443,
     "uuid": "u-2", "password": "p", "congestion": "bbr"},
    {"type": "hysteria2", "tag": "h1", "server": "h.example.com", "server_port": 443,
     "password": "pw", "obfs": {"type": "salamander", "password": "op"}},
    {"type": "wireguard", "tag": "wg", "private_key": "k"}
  ]
}`
	ds, err := DecodeJSON(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ds) != 4 {
		t.Fatalf("len=%d, want=4", len(ds))
	}

	v, ok := ds[0].(VLESS)
	if !ok {
		t.Fatalf("ds[0]=%T, want VLESS", ds[0])
	}
	if v.Server != "v.example.com" || v.ServerPort != 443 || v.UUID != "u-1" {
		t.Fatalf("vless=%+v", v)
	}
	if !v.TLS.Active() || v.TLS.ServerName != "sni.example.com" || !v.TLS.Insecure {
		t.Fatalf("tls=%+v", v.TLS)
	}
	if v.TLS.UTLS == nil || v.TLS.UTLS.Fingerprint != "chrome" {
		t.Fatalf("utls=%+v", v.TLS.UTLS)
	}
	if v.TLS.Reality == nil || v.TLS.Reality.PublicKey != "pk" || v.TLS.Reality.ShortID != "sid" {
		t.Fatalf("reality=%+v", v.TLS.Reality)
	}
	if v.Transport == nil || v.Transport.Type != "ws" || v.Transport.Headers["Host"] != "a.example.com" {
		t.Fatalf("transport=%+v", v.Transport)
	}
	if v.TCPFastOpen == nil || *v.TCPFastOpen {
		t.Fatalf("tcp_fast_open=%v, want explicit false", v.TCPFastOpen)
	}

	tu := ds[1].(TUIC)
	if tu.Congestion != "bbr" {
		t.Fatalf("congestion=%q, want=%q", tu.Congestion, "bbr")
	}
	if tu.TLS.Active() {
		t.Fatalf("tls should be inactive when absent")
	}

	h := ds[2].(Hysteria2)
	if h.Obfs == nil || h.Obfs.Type != "salamander" || h.Obfs.Password != "op" {
		t.Fatalf("obfs=%+v", h.Obfs)
	}

	u, ok := ds[3].(Unknown)
	if !ok {
		t.Fatalf("ds[3]=%T, want Unknown", ds[3])
	}
	if u.Protocol() != "wireguard" || u.Tag() != "wg" || u.Fields["private_key"] != "k" {
		t.Fatalf("unknown=%+v", u)
	}
}

func TestDecodeJSON_ShapeVariants(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"array", `[{"type":"trojan","tag":"a"},{"type":"vmess","tag":"b"}]`, 2},
		{"single object", `{"type":"shadowsocks","tag":"a","method":"aes-128-gcm"}`, 1},
		{"single non-proxy", `{"type":"selector","tag":"s"}`, 0},
		{"empty outbounds", `{"outbounds":[]}`, 0},
		{"non-object items", `[1,"x",null,{"type":"trojan"}]`, 1},
	}
	for _, tt := range tests {
		ds, err := DecodeJSON(tt.text)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.name, err)
		}
		if len(ds) != tt.want {
			t.Fatalf("%s: len=%d, want=%d", tt.name, len(ds), tt.want)
		}
	}
}

func TestDecodeJSON_Invalid(t *testing.T) {
	for _, text := range []string{`{"outbounds":`, `"just a string"`, `42`} {
		if _, err := DecodeJSON(text); err == nil {
			t.Fatalf("DecodeJSON(%q) err=nil, want error", text)
		}
	}
}

func TestDecodeJSON_HeadersAbsentVsEmpty(t *testing.T) {
	ds, err := DecodeJSON(`[
  {"type":"vmess","tag":"a","transport":{"type":"ws","path":"/"}},
  {"type":"vmess","tag":"b","transport":{"type":"ws","path":"/","headers":{}}}
]`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h := ds[0].(VMess).Transport.Headers; h != nil {
		t.Fatalf("headers=%v, want nil", h)
	}
	if h := ds[1].(VMess).Transport.Headers; h == nil || len(h) != 0 {
		t.Fatalf("headers=%v, want empty non-nil map", h)
	}
}
