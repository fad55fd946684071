package run

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/webgather/harvester/collect"
	"github.com/webgather/harvester/config"
	"github.com/webgather/harvester/csvstorage"
	"github.com/webgather/harvester/engine"
	"github.com/webgather/harvester/extract"
	"github.com/webgather/harvester/limiter"
	"github.com/webgather/harvester/log"
	"github.com/webgather/harvester/robots"
	"github.com/webgather/harvester/spider"
	"github.com/webgather/harvester/sqlstorage"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"
)

var RunCmd = &cobra.Command{
	Use:   "run",
	Short: "run the scrape tasks from a config file.",
	Long:  "run the scrape tasks from a config file.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		Run()
	},
}

var configPath string

func init() {
	RunCmd.Flags().StringVar(
		&configPath, "config", "config.toml", "set config file path")
}

func Run() {
	// 配置错误在任何网络请求之前退出
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logLevel, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	plugin := log.NewStdoutPlugin(logLevel)
	if cfg.LogFile != "" {
		filePlugin, closer := log.NewFilePlugin(cfg.LogFile, logLevel)
		defer closer.Close()
		plugin = zapcore.NewTee(plugin, filePlugin)
	}
	logger := log.NewLogger(plugin)
	logger.Info("log init end")

	// set zap global logger
	zap.ReplaceGlobals(logger)

	// storage
	storage, flush, err := newStorage(cfg, logger)
	if err != nil {
		logger.Error("create storage failed", zap.Error(err))
		os.Exit(1)
	}

	// fetcher
	f := collect.BrowserFetch{
		Timeout: time.Duration(cfg.Fetcher.Timeout) * time.Millisecond,
	}

	tasks, err := parseTaskConfig(logger, f, storage, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	gate := robots.New(
		robots.WithUserAgent(cfg.Fetcher.UserAgent),
		robots.WithTimeout(time.Duration(cfg.Fetcher.Timeout)*time.Millisecond),
		robots.WithLogger(logger.Named("robots")),
	)

	c := engine.New(
		engine.WithLogger(logger),
		engine.WithFetcher(f),
		engine.WithStorage(storage),
		engine.WithGate(gate),
		engine.WithTasks(tasks),
	)

	sum := c.Run(context.Background())

	if err := flush(); err != nil {
		logger.Error("flush storage failed", zap.Error(err))
	}

	logger.Info("run finished",
		zap.Int("pages", sum.Pages),
		zap.Int("records", sum.Records),
		zap.Int("failed", sum.Failed),
		zap.Int("denied", sum.Denied),
	)

	if sum.Pages == 0 {
		logger.Error("no page could be fetched")
		os.Exit(1)
	}
}

func newStorage(cfg *config.Config, logger *zap.Logger) (spider.DataRepository, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Storage.Type {
	case "mysql":
		s, err := sqlstorage.New(
			sqlstorage.WithSQLURL(cfg.Storage.SQLURL),
			sqlstorage.WithBatchCount(cfg.Storage.BatchCount),
			sqlstorage.WithLogger(logger.Named("sqlDB")),
		)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("start mysql storage")
		return s, s.Flush, nil
	case "csv":
		s, err := csvstorage.New(
			csvstorage.WithPath(cfg.Storage.Path),
			csvstorage.WithLogger(logger.Named("csv")),
		)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("start csv storage", zap.String("path", cfg.Storage.Path))
		return s, s.Close, nil
	default:
		logger.Info("start empty storage")
		return &spider.EmptyDataRepository{}, noop, nil
	}
}

// parseTaskConfig turns validated raw task configs into runnable tasks
// with compiled extractors and per-task rate limits.
func parseTaskConfig(
	logger *zap.Logger,
	f spider.Fetcher,
	s spider.DataRepository,
	cfg *config.Config) ([]*spider.Task, error) {
	tasks := make([]*spider.Task, 0, len(cfg.Tasks))

	for _, tc := range cfg.Tasks {
		task := spider.NewTask(
			spider.WithName(tc.Name),
			spider.WithStartURLs(tc.StartURLs),
			spider.WithListSelector(tc.ListSelector),
			spider.WithFields(tc.Fields),
			spider.WithNextPageSelector(tc.NextPageSelector),
			spider.WithWaitTime(*tc.WaitTime),
			spider.WithMaxDepth(tc.MaxDepth),
			spider.WithReload(tc.Reload),
			spider.WithUserAgent(cfg.Fetcher.UserAgent),
			spider.WithTimeout(time.Duration(cfg.Fetcher.Timeout)*time.Millisecond),
			spider.WithFetcher(f),
			spider.WithStorage(s),
			spider.WithLogger(logger.Named(tc.Name)),
			spider.WithLimit(taskLimit(*tc.WaitTime)),
		)

		e, err := extract.Compile(task)
		if err != nil {
			return nil, err
		}
		task.Parse = e.ParseFunc()

		tasks = append(tasks, task)
	}

	return tasks, nil
}

func taskLimit(waitTime int64) limiter.RateLimiter {
	// 无间隔要求时只保留分钟级突发限制
	if waitTime <= 0 {
		return rate.NewLimiter(limiter.Per(30, 60*time.Second), 30)
	}

	// 秒级限速 + 分钟级突发限制
	return limiter.Multi(
		rate.NewLimiter(limiter.Per(1, time.Duration(waitTime)*time.Second), 1),
		rate.NewLimiter(limiter.Per(30, 60*time.Second), 30),
	)
}
