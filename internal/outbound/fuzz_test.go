package outbound

import "testing"

func FuzzParsePayload(f *testing.F) {
	seed := []string{
		"",
		"   \n",
		"# comment\nss://YWVzLTEyOC1nY206cGFzcw==@example.com:8388#Node%201\n",
		"ss://YWVzLTEyOC1nY206cGFzcw==@example.com:8388/?plugin=simple-obfs%3Bobfs%3Dtls%3Bobfs-host%3Dexample.com#obfs\n",
		"ss://YWVzLTEyOC1nY206cGFzcw==@[::1]:8388#ipv6\n",
		`{"outbounds":[{"type":"vless","tag":"a","server":"h","server_port":443}]}`,
		`[{"type":"direct","tag":"d"},{"type":"wireguard","tag":"w"}]`,
	}
	for _, s := range seed {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, content string) {
		p, err := ParsePayload("https://example.com/sub", content)
		if err != nil {
			return
		}
		for _, d := range p.Descriptors {
			if d == nil {
				t.Fatalf("nil descriptor")
			}
			ss, ok := d.(Shadowsocks)
			if !ok {
				continue
			}
			for _, kv := range ss.PluginOpts {
				if kv.Key == "" {
					t.Fatalf("empty plugin option key")
				}
			}
		}
		for _, s := range p.Skipped {
			if s.AppError.Line < 1 {
				t.Fatalf("skipped line=%d, want >= 1", s.AppError.Line)
			}
		}
	})
}
