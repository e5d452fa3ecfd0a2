// Package outbound holds the source-side proxy descriptors: one variant per
// supported protocol plus a passthrough variant for everything else.
package outbound

// Protocol is the source protocol tag (sing-box outbound "type").
type Protocol string

const (
	ProtoShadowsocks Protocol = "shadowsocks"
	ProtoVMess       Protocol = "vmess"
	ProtoVLESS       Protocol = "vless"
	ProtoHysteria2   Protocol = "hysteria2"
	ProtoTrojan      Protocol = "trojan"
	ProtoTUIC        Protocol = "tuic"
)

// Descriptor is a closed union: only the types in this package implement it.
type Descriptor interface {
	Protocol() Protocol
	Tag() string
	sealed()
}

// Common carries the fields every dialable descriptor has.
type Common struct {
	Name       string // sing-box "tag"
	Server     string
	ServerPort int
}

func (c Common) Tag() string { return c.Name }

type TLS struct {
	Enabled    bool
	ServerName string
	Insecure   bool
	ALPN       []string
	UTLS       *UTLS
	Reality    *Reality
}

type UTLS struct {
	Enabled     bool
	Fingerprint string
}

type Reality struct {
	Enabled   bool
	PublicKey string
	ShortID   string
}

type Transport struct {
	Type        string // "ws" | "grpc" | "http" | ...
	Path        string
	Headers     map[string]string // nil when the source had no headers key
	ServiceName string
}

type Obfs struct {
	Type     string
	Password string
}

type Shadowsocks struct {
	Common
	Method   string
	Password string

	// SIP002 plugin, only produced by ss:// links.
	Plugin     string
	PluginOpts []PluginOpt
}

type PluginOpt struct {
	Key   string
	Value string
}

type VMess struct {
	Common
	UUID      string
	AlterID   int
	Security  string
	TLS       *TLS
	Transport *Transport
}

type VLESS struct {
	Common
	UUID        string
	Flow        string
	TLS         *TLS
	Transport   *Transport
	TCPFastOpen *bool
}

type Hysteria2 struct {
	Common
	Password string
	Obfs     *Obfs
	TLS      *TLS
}

type Trojan struct {
	Common
	Password    string
	Flow        string
	TLS         *TLS
	Transport   *Transport
	TCPFastOpen *bool
}

type TUIC struct {
	Common
	UUID       string
	Password   string
	Congestion string
	TLS        *TLS
}

// Unknown is any record whose protocol has no dedicated mapping. Fields is
// the decoded source object, untouched.
type Unknown struct {
	Type   string
	Name   string
	Fields map[string]any
}

func (Shadowsocks) Protocol() Protocol { return ProtoShadowsocks }
func (VMess) Protocol() Protocol       { return ProtoVMess }
func (VLESS) Protocol() Protocol       { return ProtoVLESS }
func (Hysteria2) Protocol() Protocol   { return ProtoHysteria2 }
func (Trojan) Protocol() Protocol      { return ProtoTrojan }
func (TUIC) Protocol() Protocol        { return ProtoTUIC }
func (u Unknown) Protocol() Protocol   { return Protocol(u.Type) }

func (u Unknown) Tag() string { return u.Name }

func (Shadowsocks) sealed() {}
func (VMess) sealed()       {}
func (VLESS) sealed()       {}
func (Hysteria2) sealed()   {}
func (Trojan) sealed()      {}
func (TUIC) sealed()        {}
func (Unknown) sealed()     {}

// Active reports whether t is present and enabled.
func (t *TLS) Active() bool { return t != nil && t.Enabled }
