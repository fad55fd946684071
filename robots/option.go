package robots

import (
	"time"

	"go.uber.org/zap"
)

type options struct {
	logger    *zap.Logger
	userAgent string
	timeout   time.Duration
}

var defaultOptions = options{
	logger:    zap.NewNop(),
	userAgent: "*",
	timeout:   3 * time.Second,
}

type Option func(opts *options)

func WithLogger(logger *zap.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}

func WithUserAgent(ua string) Option {
	return func(opts *options) {
		opts.userAgent = ua
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(opts *options) {
		opts.timeout = timeout
	}
}
