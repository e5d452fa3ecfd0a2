// Package convert runs one request end to end: resolve inputs (inline or
// fetched), decode them, build, and render the client document.
package convert

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/provolone8305/sublink-worker/internal/category"
	"github.com/provolone8305/sublink-worker/internal/compiler"
	"github.com/provolone8305/sublink-worker/internal/document"
	"github.com/provolone8305/sublink-worker/internal/fetch"
	"github.com/provolone8305/sublink-worker/internal/group"
	"github.com/provolone8305/sublink-worker/internal/model"
	"github.com/provolone8305/sublink-worker/internal/outbound"
	"github.com/provolone8305/sublink-worker/internal/override"
	"github.com/provolone8305/sublink-worker/internal/render"
	"github.com/provolone8305/sublink-worker/internal/ruleset"
)

// Request carries the raw inputs of one conversion. Inline text wins over
// the matching URL.
type Request struct {
	Nodes    string
	NodesURL string

	// Selection nil means the environment's default selection.
	Selection   []string
	CustomRules string // JSON

	Base    string
	BaseURL string

	Lang string
}

// Env is everything a conversion needs besides the request.
type Env struct {
	Catalog   *category.Catalog
	RuleSets  ruleset.Options
	Auto      group.AutoOptions
	Overrides override.Source

	DefaultSelection []string
	DefaultLang      string

	FetchTimeout time.Duration
	UserAgent    string

	Logger *zap.Logger
}

type Output struct {
	Body    []byte
	Result  *compiler.Result
	Skipped []*outbound.ParseError
}

func Run(ctx context.Context, req Request, env Env) (*Output, error) {
	log := env.Logger
	if log == nil {
		log = zap.NewNop()
	}
	fopt := fetch.Options{Timeout: env.FetchTimeout, UserAgent: env.UserAgent}

	nodesText, nodesSource := req.Nodes, ""
	if strings.TrimSpace(nodesText) == "" && strings.TrimSpace(req.NodesURL) != "" {
		nodesSource = strings.TrimSpace(req.NodesURL)
		text, err := fetch.FetchTextWithOptions(ctx, fetch.KindNodes, nodesSource, fopt)
		if err != nil {
			return nil, err
		}
		nodesText = text
	}
	payload, err := outbound.ParsePayload(nodesSource, nodesText)
	if err != nil {
		return nil, err
	}
	for _, s := range payload.Skipped {
		log.Warn("node line skipped",
			zap.Int("line", s.AppError.Line),
			zap.String("code", s.AppError.Code),
			zap.String("reason", s.AppError.Message),
		)
	}

	customRules, err := category.ParseCustomRules(req.CustomRules)
	if err != nil {
		return nil, err
	}

	var base *model.Document
	baseText, baseSource := req.Base, ""
	if strings.TrimSpace(baseText) == "" && strings.TrimSpace(req.BaseURL) != "" {
		baseSource = strings.TrimSpace(req.BaseURL)
		text, err := fetch.FetchTextWithOptions(ctx, fetch.KindBaseConfig, baseSource, fopt)
		if err != nil {
			return nil, err
		}
		baseText = text
	}
	if strings.TrimSpace(baseText) != "" {
		base, err = document.Load(baseSource, baseText)
		if err != nil {
			return nil, err
		}
	}

	selection := req.Selection
	if selection == nil {
		selection = env.DefaultSelection
	}
	if selection == nil {
		selection = category.DefaultSelection
	}
	lang := req.Lang
	if lang == "" {
		lang = env.DefaultLang
	}

	res, err := compiler.Build(ctx, compiler.Input{
		Descriptors: payload.Descriptors,
		Selection:   selection,
		CustomRules: customRules,
		Overrides:   env.Overrides,
		Base:        base,
		Lang:        lang,
	}, compiler.Options{
		Catalog:  env.Catalog,
		RuleSets: env.RuleSets,
		Auto:     env.Auto,
		Logger:   log,
	})
	if err != nil {
		return nil, err
	}

	body, err := render.Render(render.TargetClash, res.Document)
	if err != nil {
		return nil, err
	}
	return &Output{Body: body, Result: res, Skipped: payload.Skipped}, nil
}

// SplitList splits a comma separated list, dropping blanks. An all-blank
// input yields nil.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
