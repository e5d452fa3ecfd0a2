// Package label resolves outbound identifiers to the display names used as
// group names in the generated document. The active resolver is always passed
// explicitly; nothing here holds process-wide language state.
package label

import "strings"

// Resolver maps an outbound identifier to its display name. Unknown
// identifiers (e.g. custom rule names) resolve to themselves.
type Resolver func(id string) string

const (
	LangZhCN = "zh-CN"
	LangEnUS = "en-US"

	DefaultLang = LangZhCN
)

var tables = map[string]map[string]string{
	LangZhCN: {
		"Ad Block":       "🛑 广告拦截",
		"AI Services":    "💬 AI 服务",
		"Bilibili":       "📺 哔哩哔哩",
		"Youtube":        "📹 油管视频",
		"Google":         "🔍 谷歌服务",
		"Private":        "🏠 私有网络",
		"Location:CN":    "🔒 国内服务",
		"Telegram":       "📲 电报消息",
		"Github":         "🐱 Github",
		"Microsoft":      "Ⓜ️ 微软服务",
		"Apple":          "🍏 苹果服务",
		"Social Media":   "🌐 社交媒体",
		"Streaming":      "🎬 流媒体",
		"Gaming":         "🎮 游戏平台",
		"Education":      "📚 教育资源",
		"Financial":      "💰 金融服务",
		"Cloud Services": "☁️ 云服务",
		"Non-China":      "🌐 非中国",
		"Fall Back":      "🐟 漏网之鱼",
		"Node Select":    "🚀 节点选择",
		"Auto Select":    "⚡ 自动选择",
	},
	LangEnUS: {
		"Ad Block":       "🛑 Ad Blocking",
		"AI Services":    "💬 AI Services",
		"Bilibili":       "📺 Bilibili",
		"Youtube":        "📹 YouTube",
		"Google":         "🔍 Google Services",
		"Private":        "🏠 Private Network",
		"Location:CN":    "🔒 China Services",
		"Telegram":       "📲 Telegram",
		"Github":         "🐱 GitHub",
		"Microsoft":      "Ⓜ️ Microsoft Services",
		"Apple":          "🍏 Apple Services",
		"Social Media":   "🌐 Social Media",
		"Streaming":      "🎬 Streaming Media",
		"Gaming":         "🎮 Gaming Platform",
		"Education":      "📚 Education Resources",
		"Financial":      "💰 Financial Services",
		"Cloud Services": "☁️ Cloud Services",
		"Non-China":      "🌐 Non-China",
		"Fall Back":      "🐟 Fall Back",
		"Node Select":    "🚀 Node Select",
		"Auto Select":    "⚡ Auto Select",
	},
}

// For returns the resolver for lang. Matching is case-insensitive and falls
// back to the primary subtag ("en" -> en-US); unknown languages get DefaultLang.
func For(lang string) Resolver {
	_, t := lookup(lang)
	return FromTable(t)
}

// FromTable builds a resolver over an explicit table.
func FromTable(table map[string]string) Resolver {
	return func(id string) string {
		if s, ok := table[id]; ok && s != "" {
			return s
		}
		return id
	}
}

// Identity resolves every identifier to itself.
func Identity(id string) string { return id }

// Overlay resolves ids found in extra first and defers to r otherwise.
func Overlay(r Resolver, extra map[string]string) Resolver {
	if len(extra) == 0 {
		return r
	}
	return func(id string) string {
		if s, ok := extra[id]; ok && s != "" {
			return s
		}
		return r(id)
	}
}

// Canonical returns the table language lang resolves to.
func Canonical(lang string) string {
	k, _ := lookup(lang)
	return k
}

func lookup(lang string) (string, map[string]string) {
	lang = strings.TrimSpace(lang)
	for k, t := range tables {
		if strings.EqualFold(k, lang) {
			return k, t
		}
	}
	primary, _, _ := strings.Cut(lang, "-")
	for k, t := range tables {
		p, _, _ := strings.Cut(k, "-")
		if primary != "" && strings.EqualFold(p, primary) {
			return k, t
		}
	}
	return DefaultLang, tables[DefaultLang]
}
