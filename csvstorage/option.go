package csvstorage

import (
	"go.uber.org/zap"
)

type options struct {
	logger *zap.Logger
	path   string // 输出目录
}

var defaultOptions = options{
	logger: zap.NewNop(),
	path:   ".",
}

type Option func(opts *options)

func WithLogger(logger *zap.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}

func WithPath(path string) Option {
	return func(opts *options) {
		opts.path = path
	}
}
