// Package robots is the politeness gate: per-host robots.txt
// authorization plus the fetch-time bookkeeping the engine uses to space
// requests to the same host.
package robots

import (
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
)

// Gate caches one robots.txt ruleset per host for the duration of a run.
// A host's entry is resolved exactly once, on the first Authorize call
// for that host; a failed or unparseable robots.txt is cached as a nil
// group, which authorizes everything.
type Gate struct {
	client *http.Client

	mu        sync.Mutex
	groups    map[string]*robotstxt.Group
	lastFetch map[string]time.Time

	options
}

func New(opts ...Option) *Gate {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}

	g := &Gate{}
	g.options = options
	g.client = &http.Client{Timeout: g.timeout}
	g.groups = make(map[string]*robotstxt.Group)
	g.lastFetch = make(map[string]time.Time)

	return g
}

// Authorize reports whether fetching rawurl is permitted by the host's
// robots.txt rules for the configured user agent.
func (g *Gate) Authorize(rawurl string) bool {
	u, err := url.Parse(rawurl)
	if err != nil || u.Host == "" {
		g.logger.Error("authorize: unparseable url", zap.String("url", rawurl))
		return false
	}

	g.mu.Lock()
	group, ok := g.groups[u.Host]
	if !ok {
		// first request for this host; check-then-fetch stays inside the
		// lock so concurrent callers cannot fetch robots.txt twice
		group = g.fetchRobots(u.Scheme, u.Host)
		g.groups[u.Host] = group
	}
	g.mu.Unlock()

	if group == nil {
		return true
	}

	path := u.Path
	if path == "" {
		path = "/"
	}

	return group.Test(path)
}

// NoteFetch records the time of a fetch to rawurl's host. The engine
// consults it to keep successive fetches to one host at least the task's
// wait time apart.
func (g *Gate) NoteFetch(rawurl string) {
	u, err := url.Parse(rawurl)
	if err != nil || u.Host == "" {
		return
	}

	g.mu.Lock()
	g.lastFetch[u.Host] = time.Now()
	g.mu.Unlock()
}

// LastFetch returns when host was last fetched, or the zero time.
func (g *Gate) LastFetch(host string) time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.lastFetch[host]
}

func (g *Gate) fetchRobots(scheme, host string) *robotstxt.Group {
	robotsURL := scheme + "://" + host + "/robots.txt"

	resp, err := g.client.Get(robotsURL)
	if err != nil {
		g.logger.Info("robots.txt unreachable, proceeding permissively",
			zap.String("host", host), zap.Error(err))
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		g.logger.Info("no usable robots.txt, proceeding permissively",
			zap.String("host", host), zap.Int("status", resp.StatusCode))
		return nil
	}

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		g.logger.Info("robots.txt unparseable, proceeding permissively",
			zap.String("host", host), zap.Error(err))
		return nil
	}

	return data.FindGroup(g.userAgent)
}
