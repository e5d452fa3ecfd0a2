package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/provolone8305/sublink-worker/internal/convert"
	"github.com/provolone8305/sublink-worker/internal/override"
	"github.com/provolone8305/sublink-worker/internal/store"
)

type buildFlags struct {
	nodes     string
	selection []string
	custom    string
	base      string
	overrides string
	fromStore bool
	out       string
}

func newBuildCmd(a *app) *cobra.Command {
	var bf buildFlags
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build one Clash configuration and write it to stdout or --out",
		Example: `  sublink build --nodes nodes.json --select Google,Telegram
  sublink build --nodes https://example.com/sub --base base.yaml --lang en-US -o clash.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.build(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), bf, cmd.Flags().Changed("select"))
		},
	}
	f := cmd.Flags()
	f.StringVar(&bf.nodes, "nodes", "", "节点内容：文件路径、http(s) URL，或 - 表示标准输入（必填）")
	f.StringSliceVar(&bf.selection, "select", nil, "选择的分类，逗号分隔（默认使用配置中的分类）")
	f.StringVar(&bf.custom, "custom", "", "自定义规则 JSON 文件")
	f.StringVar(&bf.base, "base", "", "基础配置：文件路径或 http(s) URL")
	f.StringVar(&bf.overrides, "overrides", "", `覆盖规则 JSON 文件：{"proxyRules":{...},"directRules":{...}}`)
	f.BoolVar(&bf.fromStore, "store-overrides", false, "从数据库读取覆盖规则")
	f.StringVarP(&bf.out, "out", "o", "", "输出文件（默认标准输出）")
	_ = cmd.MarkFlagRequired("nodes")
	return cmd
}

func (a *app) build(ctx context.Context, stdin io.Reader, stdout io.Writer, bf buildFlags, selectionSet bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := a.cfg

	var req convert.Request
	if selectionSet {
		req.Selection = append([]string{}, bf.selection...)
	}

	var err error
	if isURL(bf.nodes) {
		req.NodesURL = bf.nodes
	} else if req.Nodes, err = readInput(stdin, bf.nodes); err != nil {
		return err
	}
	if isURL(bf.base) {
		req.BaseURL = bf.base
	} else if bf.base != "" {
		if req.Base, err = readInput(stdin, bf.base); err != nil {
			return err
		}
	}
	if bf.custom != "" {
		if req.CustomRules, err = readInput(stdin, bf.custom); err != nil {
			return err
		}
	}

	catalog, err := cfg.Catalog()
	if err != nil {
		return err
	}
	env := convert.Env{
		Catalog:          catalog,
		RuleSets:         cfg.RuleSetOptions(),
		Auto:             cfg.AutoOptions(),
		DefaultSelection: cfg.Build.Categories,
		DefaultLang:      cfg.Build.Language,
		FetchTimeout:     cfg.Server.FetchTimeout,
		Logger:           a.log,
	}

	switch {
	case bf.overrides != "" && bf.fromStore:
		return fmt.Errorf("--overrides and --store-overrides are mutually exclusive")
	case bf.overrides != "":
		text, err := readInput(stdin, bf.overrides)
		if err != nil {
			return err
		}
		env.Overrides = jsonOverrides(text)
	case bf.fromStore:
		st, err := store.Open(cfg.Database.Path, a.log)
		if err != nil {
			return err
		}
		defer st.Close()
		env.Overrides = st.View(store.NSOverrides)
	}

	out, err := convert.Run(ctx, req, env)
	if err != nil {
		return err
	}
	a.log.Info("build finished",
		zap.Int("proxies", len(out.Result.Proxies)),
		zap.Int("groups", len(out.Result.Document.Groups)),
		zap.Int("rules", len(out.Result.Rules)),
		zap.Int("skipped", len(out.Skipped)),
	)

	if bf.out == "" || bf.out == "-" {
		_, err = stdout.Write(out.Body)
		return err
	}
	return os.WriteFile(bf.out, out.Body, 0o644)
}

// jsonOverrides serves override tables from one JSON document holding both
// keys.
type jsonOverrides string

var _ override.Source = jsonOverrides("")

func (j jsonOverrides) Get(_ context.Context, key string) (string, bool, error) {
	if !gjson.Valid(string(j)) {
		return "", false, fmt.Errorf("overrides file is not valid JSON")
	}
	v := gjson.Get(string(j), key)
	if !v.Exists() {
		return "", false, nil
	}
	return v.Raw, true, nil
}

func isURL(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func readInput(stdin io.Reader, path string) (string, error) {
	if path == "-" {
		bs, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(bs), nil
	}
	bs, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(bs), nil
}
