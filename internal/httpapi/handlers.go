package httpapi

import (
	"context"
	"crypto/subtle"
	"io"
	"net/http"
	"strings"

	"github.com/asaskevich/govalidator"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/provolone8305/sublink-worker/internal/convert"
	"github.com/provolone8305/sublink-worker/internal/document"
	"github.com/provolone8305/sublink-worker/internal/model"
	"github.com/provolone8305/sublink-worker/internal/override"
	"github.com/provolone8305/sublink-worker/internal/render"
	"github.com/provolone8305/sublink-worker/internal/store"
)

const maxBodyBytes = 2 * 1024 * 1024

type server struct {
	opt Options
	log *zap.Logger
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	WriteText(w, http.StatusOK, "ok\n")
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeErrorFromErr(w, apiError(http.StatusNotFound, model.AppError{
		Code:    "NOT_FOUND",
		Message: "资源不存在",
		Stage:   "route",
	}, nil))
}

func handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeErrorFromErr(w, apiError(http.StatusMethodNotAllowed, model.AppError{
		Code:    "METHOD_NOT_ALLOWED",
		Message: "不支持的请求方法",
		Stage:   "route",
	}, nil))
}

func (s *server) handleFavicon(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, s.opt.FaviconURL, http.StatusMovedPermanently)
}

func (s *server) env() convert.Env {
	var overrides override.Source
	if s.opt.Store != nil {
		overrides = s.opt.Store.View(store.NSOverrides)
	}
	return convert.Env{
		Catalog:          s.opt.Catalog,
		RuleSets:         s.opt.RuleSets,
		Auto:             s.opt.Auto,
		Overrides:        overrides,
		DefaultSelection: s.opt.Selection,
		DefaultLang:      s.opt.Lang,
		FetchTimeout:     s.opt.FetchTimeout,
		Logger:           s.log,
	}
}

func (s *server) requireStore() error {
	if s.opt.Store != nil {
		return nil
	}
	return apiError(http.StatusServiceUnavailable, model.AppError{
		Code:    "STORE_UNAVAILABLE",
		Message: "未配置存储，接口不可用",
		Stage:   "store",
	}, nil)
}

func (s *server) run(ctx context.Context, w http.ResponseWriter, req convert.Request) {
	out, err := convert.Run(ctx, req, s.env())
	if err != nil {
		writeErrorFromErr(w, err)
		return
	}
	metricsIncBuild(len(out.Result.Proxies), len(out.Skipped))
	WriteDocument(w, render.ContentTypeClash, out.Body)
}

// handleClash serves the stored node payload of one user. The token must
// match the one stored for the user.
func (s *server) handleClash(w http.ResponseWriter, r *http.Request) {
	if err := s.requireStore(); err != nil {
		writeErrorFromErr(w, err)
		return
	}
	q := r.URL.Query()
	user := strings.TrimSpace(q.Get("username"))
	if user == "" {
		writeErrorFromErr(w, requestError("INVALID_ARGUMENT", "缺少 username 参数", "expected: username=<name>&token=<token>"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.opt.ConvertTimeout)
	defer cancel()

	want, ok, err := s.opt.Store.Get(ctx, store.NSAuth, user)
	if err != nil {
		writeErrorFromErr(w, err)
		return
	}
	if !ok || subtle.ConstantTimeCompare([]byte(want), []byte(q.Get("token"))) != 1 {
		writeErrorFromErr(w, apiError(http.StatusUnauthorized, model.AppError{
			Code:    "UNAUTHORIZED",
			Message: "用户名或 token 不正确",
			Stage:   "auth",
		}, nil))
		return
	}

	nodes, ok, err := s.opt.Store.Get(ctx, store.NSNodes, user)
	if err != nil {
		writeErrorFromErr(w, err)
		return
	}
	if !ok {
		writeErrorFromErr(w, apiError(http.StatusNotFound, model.AppError{
			Code:    "NOT_FOUND",
			Message: "没有找到对应的节点信息",
			Stage:   "store",
		}, nil))
		return
	}

	req := convert.Request{
		Nodes:       nodes,
		Selection:   convert.SplitList(q.Get("selection")),
		CustomRules: q.Get("custom_rules"),
		Lang:        strings.TrimSpace(q.Get("lang")),
	}
	if id := strings.TrimSpace(q.Get("config")); id != "" {
		base, ok, err := s.opt.Store.Get(ctx, store.NSConfigs, id)
		if err != nil {
			writeErrorFromErr(w, err)
			return
		}
		if !ok {
			writeErrorFromErr(w, apiError(http.StatusNotFound, model.AppError{
				Code:    "NOT_FOUND",
				Message: "基础配置不存在或已过期",
				Stage:   "store",
				Snippet: id,
			}, nil))
			return
		}
		req.Base = base
	}
	s.run(ctx, w, req)
}

// handleConfig stores a base config and answers with its id.
func (s *server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if err := s.requireStore(); err != nil {
		writeErrorFromErr(w, err)
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		writeErrorFromErr(w, err)
		return
	}

	typ := strings.TrimSpace(gjson.Get(body, "type").String())
	if !govalidator.Matches(typ, `^[a-z0-9-]{1,32}$`) {
		writeErrorFromErr(w, requestError("INVALID_ARGUMENT", "type 不合法", "expected: clash | singbox"))
		return
	}
	c := gjson.Get(body, "content")
	content := c.String()
	if c.IsObject() || c.IsArray() {
		content = c.Raw
	}
	if strings.TrimSpace(content) == "" {
		writeErrorFromErr(w, requestError("INVALID_ARGUMENT", "content 不能为空", ""))
		return
	}

	if typ == "clash" {
		if _, err := document.Load("", content); err != nil {
			writeErrorFromErr(w, apiError(http.StatusBadRequest, model.AppError{
				Code:    "INVALID_FORMAT",
				Message: "配置格式不合法",
				Stage:   "validate_request",
				Hint:    err.Error(),
			}, err))
			return
		}
	} else if !gjson.Valid(content) {
		writeErrorFromErr(w, requestError("INVALID_FORMAT", "配置不是合法 JSON", ""))
		return
	}

	id, err := s.opt.Store.PutConfig(r.Context(), typ, content)
	if err != nil {
		writeErrorFromErr(w, err)
		return
	}
	s.log.Info("base config stored", zap.String("id", id), zap.Int("bytes", len(content)))
	WriteText(w, http.StatusOK, id)
}

// handleConvert is the stateless build: every input comes with the request.
//
//	{"nodes": "...", "nodes_url": "...", "selection": [...], "custom_rules": [...],
//	 "lang": "en-US", "base": "...", "base_url": "..."}
func (s *server) handleConvert(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeErrorFromErr(w, err)
		return
	}

	get := func(key string) string { return strings.TrimSpace(gjson.Get(body, key).String()) }
	req := convert.Request{
		Nodes:    gjson.Get(body, "nodes").String(),
		NodesURL: get("nodes_url"),
		Base:     gjson.Get(body, "base").String(),
		BaseURL:  get("base_url"),
		Lang:     get("lang"),
	}
	if strings.TrimSpace(req.Nodes) == "" && req.NodesURL == "" {
		writeErrorFromErr(w, requestError("INVALID_ARGUMENT", "nodes 与 nodes_url 不能同时为空", ""))
		return
	}

	if sel := gjson.Get(body, "selection"); sel.IsArray() {
		req.Selection = []string{}
		for _, v := range sel.Array() {
			if id := strings.TrimSpace(v.String()); id != "" {
				req.Selection = append(req.Selection, id)
			}
		}
	} else if sel.Exists() {
		req.Selection = convert.SplitList(sel.String())
	}

	if cr := gjson.Get(body, "custom_rules"); cr.IsArray() || cr.IsObject() {
		req.CustomRules = cr.Raw
	} else {
		req.CustomRules = cr.String()
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.opt.ConvertTimeout)
	defer cancel()
	s.run(ctx, w, req)
}

func readBody(w http.ResponseWriter, r *http.Request) (string, error) {
	bs, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return "", apiError(http.StatusRequestEntityTooLarge, model.AppError{
			Code:    "TOO_LARGE",
			Message: "请求体过大或读取失败",
			Stage:   "validate_request",
		}, err)
	}
	body := string(bs)
	if !gjson.Valid(body) || !gjson.Parse(body).IsObject() {
		return "", requestError("INVALID_ARGUMENT", "JSON body 解析失败", "expected: JSON object")
	}
	return body, nil
}
