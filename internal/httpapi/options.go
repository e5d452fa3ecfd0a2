package httpapi

import (
	"time"

	"go.uber.org/zap"

	"github.com/provolone8305/sublink-worker/internal/category"
	"github.com/provolone8305/sublink-worker/internal/group"
	"github.com/provolone8305/sublink-worker/internal/ruleset"
	"github.com/provolone8305/sublink-worker/internal/store"
)

// Options controls HTTP API runtime behavior.
type Options struct {
	// ConvertTimeout bounds one build request, remote fetches included.
	ConvertTimeout time.Duration

	// FetchTimeout is the per-URL timeout for remote node payloads and base
	// documents.
	FetchTimeout time.Duration

	// Store backs /clash and /config. Without it those routes answer 503.
	Store *store.Store

	Catalog   *category.Catalog
	RuleSets  ruleset.Options
	Auto      group.AutoOptions
	Selection []string // default category selection
	Lang      string   // default label language

	FaviconURL string

	Logger *zap.Logger
}

const defaultFaviconURL = "https://cravatar.cn/avatar/9240d78bbea4cf05fb04f2b86f22b18d?s=160&d=retro&r=g"

func (o Options) withDefaults() Options {
	if o.ConvertTimeout <= 0 {
		o.ConvertTimeout = 60 * time.Second
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = 15 * time.Second
	}
	if o.Catalog == nil {
		o.Catalog = category.Builtin()
	}
	if o.Selection == nil {
		o.Selection = category.DefaultSelection
	}
	if o.FaviconURL == "" {
		o.FaviconURL = defaultFaviconURL
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}
