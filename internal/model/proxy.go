package model

// Proxy is the normalized node representation consumed by every group builder
// and by the renderer. Optional blocks are pointers: nil means the block is
// absent, a non-nil empty block is emitted as an explicit empty mapping.
type Proxy struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	Server string `yaml:"server,omitempty"`
	Port   int    `yaml:"port,omitempty"`

	Cipher   string `yaml:"cipher,omitempty"`
	Password string `yaml:"password,omitempty"`
	Auth     string `yaml:"auth,omitempty"`
	UUID     string `yaml:"uuid,omitempty"`
	AlterID  *int   `yaml:"alterId,omitempty"`
	Flow     string `yaml:"flow,omitempty"`

	// PluginOpts preserves source order, so it is a KV list rather than a map.
	Plugin     string `yaml:"plugin,omitempty"`
	PluginOpts []KV   `yaml:"-"`

	TLS            *bool    `yaml:"tls,omitempty"`
	ServerName     string   `yaml:"servername,omitempty"`
	SNI            string   `yaml:"sni,omitempty"`
	DisableSNI     *bool    `yaml:"disable-sni,omitempty"`
	Fingerprint    string   `yaml:"client-fingerprint,omitempty"`
	SkipCertVerify *bool    `yaml:"skip-cert-verify,omitempty"`
	ALPN           []string `yaml:"alpn,omitempty"`
	TFO            *bool    `yaml:"tfo,omitempty"`

	Network     string          `yaml:"network,omitempty"`
	WSOpts      *WSOptions      `yaml:"ws-opts,omitempty"`
	GRPCOpts    *GRPCOptions    `yaml:"grpc-opts,omitempty"`
	RealityOpts *RealityOptions `yaml:"reality-opts,omitempty"`

	Obfs                 string `yaml:"obfs,omitempty"`
	ObfsPassword         string `yaml:"obfs-password,omitempty"`
	CongestionController string `yaml:"congestion-controller,omitempty"`
	UDPRelayMode         string `yaml:"udp-relay-mode,omitempty"`

	// Raw is set for protocols without a dedicated mapping. The record is
	// emitted verbatim and every typed field except Name/Type is ignored.
	Raw map[string]any `yaml:"-"`
}

type KV struct {
	Key   string
	Value string
}

type WSOptions struct {
	Path    string
	Headers map[string]string // nil: no headers key; empty: "headers: {}"
}

func (o WSOptions) MarshalYAML() (any, error) {
	m := map[string]any{"path": o.Path}
	if o.Headers != nil {
		m["headers"] = o.Headers
	}
	return m, nil
}

type GRPCOptions struct {
	ServiceName string `yaml:"grpc-service-name"`
}

type RealityOptions struct {
	PublicKey string `yaml:"public-key"`
	ShortID   string `yaml:"short-id"`
}

// MarshalYAML emits passthrough records verbatim and folds ordered plugin
// options into the plugin-opts mapping.
func (p Proxy) MarshalYAML() (any, error) {
	if p.Raw != nil {
		return p.Raw, nil
	}
	type plain Proxy
	if len(p.PluginOpts) == 0 {
		return plain(p), nil
	}
	opts := make(map[string]string, len(p.PluginOpts))
	for _, kv := range p.PluginOpts {
		opts[kv.Key] = kv.Value
	}
	return struct {
		plain      `yaml:",inline"`
		PluginOpts map[string]string `yaml:"plugin-opts"`
	}{plain(p), opts}, nil
}
