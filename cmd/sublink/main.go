package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/provolone8305/sublink-worker/internal/config"
	"github.com/provolone8305/sublink-worker/internal/logging"
)

// app is the state shared by every subcommand, filled in by the root
// command's PersistentPreRunE.
type app struct {
	cfgFile string
	cfg     *config.Config
	log     *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "sublink",
		Short:         "Compile proxy node payloads into Clash routing configurations",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			log, _, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
			if err != nil {
				return err
			}
			a.cfg, a.log = cfg, log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "配置文件路径（默认查找 ./sublink.yaml）")
	pf.String("db", "", "SQLite 数据库路径")
	pf.String("log-level", "", "日志级别：debug | info | warn | error")
	pf.String("log-format", "", "日志格式：console | json")
	pf.String("lang", "", "分组名称语言：zh-CN | en-US")
	pf.String("catalog", "", "扩展分类目录（TOML）")

	root.AddCommand(
		newServeCmd(a),
		newBuildCmd(a),
		newCheckCmd(a),
		newKVCmd(a),
		newHealthcheckCmd(a),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
