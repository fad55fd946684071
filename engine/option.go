package engine

import (
	"github.com/webgather/harvester/spider"
	"go.uber.org/zap"
)

type Option func(opts *options)

type options struct {
	Logger  *zap.Logger
	Fetcher spider.Fetcher
	Storage spider.DataRepository
	Gate    Gate
	Tasks   []*spider.Task
}

var defaultOptions = options{
	Logger: zap.NewNop(),
}

func WithLogger(logger *zap.Logger) Option {
	return func(opts *options) {
		opts.Logger = logger
	}
}

func WithFetcher(fetcher spider.Fetcher) Option {
	return func(opts *options) {
		opts.Fetcher = fetcher
	}
}

func WithStorage(s spider.DataRepository) Option {
	return func(opts *options) {
		opts.Storage = s
	}
}

func WithGate(g Gate) Option {
	return func(opts *options) {
		opts.Gate = g
	}
}

func WithTasks(tasks []*spider.Task) Option {
	return func(opts *options) {
		opts.Tasks = tasks
	}
}
