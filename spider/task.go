package spider

import (
	"sync"
	"time"

	"github.com/webgather/harvester/limiter"
	"go.uber.org/zap"
)

// Task is one configured scrape job: where to start, how to recognize the
// repeating list items on a page, and which fields to pull out of each item.
type Task struct {
	Visited     map[string]bool
	VisitedLock sync.Mutex

	// Parse turns one fetched page into records plus follow-up requests.
	// It is compiled once from the task's selectors before the run starts.
	Parse ParseFunc

	Options
}

// TaskConfig mirrors one [[Tasks]] block of the configuration file.
// WaitTime is a pointer so an absent key and an explicit 0 stay
// distinguishable after scanning.
type TaskConfig struct {
	Name             string
	StartURLs        []string
	ListSelector     string
	Fields           []FieldSpec
	NextPageSelector string
	WaitTime         *int64
	MaxDepth         int64
	Reload           bool
}

// FieldSpec maps one named output column to a selector. A plain selector
// extracts the node's text; with Attribute set, the named HTML attribute
// is extracted instead.
type FieldSpec struct {
	Name      string
	Selector  string
	Attribute string
}

func NewTask(opts ...Option) *Task {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}

	t := &Task{}
	t.Visited = make(map[string]bool)
	t.Options = options

	return t
}

// FieldNames returns the output column names in declared order. Record
// field order and storage column order both follow it.
func (t *Task) FieldNames() []string {
	names := make([]string, 0, len(t.Fields))
	for _, f := range t.Fields {
		names = append(names, f.Name)
	}

	return names
}

func (t *Task) HasVisited(req *Request) bool {
	t.VisitedLock.Lock()
	defer t.VisitedLock.Unlock()

	return t.Visited[req.Unique()]
}

func (t *Task) AddVisited(reqs ...*Request) {
	t.VisitedLock.Lock()
	defer t.VisitedLock.Unlock()

	for _, req := range reqs {
		t.Visited[req.Unique()] = true
	}
}

type Options struct {
	Name             string // 任务名称，应保证唯一性
	StartURLs        []string
	ListSelector     string
	Fields           []FieldSpec
	NextPageSelector string
	WaitTime         int64 // 同一host两次请求间的最小间隔，秒
	Reload           bool  // 是否允许重复访问同一URL
	MaxDepth         int64
	UserAgent        string
	Timeout          time.Duration // http超时时间
	Fetcher          Fetcher
	Storage          DataRepository
	Limit            limiter.RateLimiter
	logger           *zap.Logger
}

var defaultOptions = Options{
	logger:   zap.NewNop(),
	WaitTime: 1,
	Reload:   false,
	MaxDepth: 5,
	Timeout:  3 * time.Second,
}

type Option func(opts *Options)

func WithLogger(logger *zap.Logger) Option {
	return func(opts *Options) {
		opts.logger = logger
	}
}

func WithName(name string) Option {
	return func(opts *Options) {
		opts.Name = name
	}
}

func WithStartURLs(urls []string) Option {
	return func(opts *Options) {
		opts.StartURLs = urls
	}
}

func WithListSelector(selector string) Option {
	return func(opts *Options) {
		opts.ListSelector = selector
	}
}

func WithFields(fields []FieldSpec) Option {
	return func(opts *Options) {
		opts.Fields = fields
	}
}

func WithNextPageSelector(selector string) Option {
	return func(opts *Options) {
		opts.NextPageSelector = selector
	}
}

func WithWaitTime(waitTime int64) Option {
	return func(opts *Options) {
		opts.WaitTime = waitTime
	}
}

func WithReload(reload bool) Option {
	return func(opts *Options) {
		opts.Reload = reload
	}
}

func WithMaxDepth(maxDepth int64) Option {
	return func(opts *Options) {
		opts.MaxDepth = maxDepth
	}
}

func WithUserAgent(ua string) Option {
	return func(opts *Options) {
		opts.UserAgent = ua
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(opts *Options) {
		opts.Timeout = timeout
	}
}

func WithFetcher(f Fetcher) Option {
	return func(opts *Options) {
		opts.Fetcher = f
	}
}

func WithStorage(s DataRepository) Option {
	return func(opts *Options) {
		opts.Storage = s
	}
}

func WithLimit(l limiter.RateLimiter) Option {
	return func(opts *Options) {
		opts.Limit = l
	}
}
