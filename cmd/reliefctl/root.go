package main

import (
	"context"
	"strings"
	"sync"

	"go-relief-hub/internal/app"
	"go-relief-hub/pkg/config"
	"go-relief-hub/pkg/logger"

	"github.com/spf13/cobra"
)

// commandContext 延迟加载配置并组装 app, 每次执行只组装一次
type commandContext struct {
	configFlag *string

	once sync.Once
	app  *app.App
	err  error
}

func (c *commandContext) ensureApp(ctx context.Context) (*app.App, error) {
	c.once.Do(func() {
		path := ""
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		var err error
		if path == "" {
			err = config.Init()
		} else {
			err = config.InitFile(path)
		}
		if err != nil {
			c.err = err
			return
		}
		if err := logger.InitLogger(config.GlobalConfig.Log.Level, config.GlobalConfig.Log.ProductionMode); err != nil {
			c.err = err
			return
		}
		c.app, c.err = app.New(ctx, config.GlobalConfig, false)
	})
	return c.app, c.err
}

// withApp 组装 app 后执行fn, 结束时关闭
func (c *commandContext) withApp(cmd *cobra.Command, fn func(a *app.App) error) error {
	a, err := c.ensureApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func newRootCommand() *cobra.Command {
	var configFlag string
	cc := &commandContext{configFlag: &configFlag}

	rootCmd := &cobra.Command{
		Use:           "reliefctl",
		Short:         "Relief hub administration",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newMigrateCommand(cc))
	rootCmd.AddCommand(newCatalogCommand(cc))
	rootCmd.AddCommand(newSubscriptionsCommand(cc))
	rootCmd.AddCommand(newExportsCommand(cc))
	rootCmd.AddCommand(newGroupsCommand(cc))
	return rootCmd
}
