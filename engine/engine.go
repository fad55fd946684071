// Package engine drives the crawl: authorize, rate-wait, fetch, parse,
// store, follow pagination. One URL at a time; each parsed document is
// owned by the request that fetched it and discarded afterwards.
package engine

import (
	"context"
	"net/url"
	"runtime/debug"
	"time"

	"github.com/webgather/harvester/spider"
	"go.uber.org/zap"
)

// Gate authorizes fetches against robots policy and keeps per-host fetch
// timestamps. Implemented by robots.Gate.
type Gate interface {
	Authorize(rawurl string) bool
	NoteFetch(rawurl string)
	LastFetch(host string) time.Time
}

// Summary is what a finished run reports.
type Summary struct {
	Pages   int // pages fetched successfully
	Records int // records extracted
	Failed  int // URLs skipped due to fetch failure
	Denied  int // URLs denied by robots policy
}

type Crawler struct {
	options
}

func New(opts ...Option) *Crawler {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}

	c := &Crawler{}
	c.options = options

	// 任务加上默认的采集器与存储器
	for _, task := range c.Tasks {
		if task.Fetcher == nil {
			task.Fetcher = c.Fetcher
		}
		if task.Storage == nil {
			task.Storage = c.Storage
		}
	}

	return c
}

// Run works through every task sequentially and reports the totals.
func (c *Crawler) Run(ctx context.Context) Summary {
	var sum Summary

	for _, task := range c.Tasks {
		c.runTask(ctx, task, &sum)

		if ctx.Err() != nil {
			break
		}
	}

	return sum
}

func (c *Crawler) runTask(ctx context.Context, t *spider.Task, sum *Summary) {
	defer func() {
		if err := recover(); err != nil {
			c.Logger.Error("task panic",
				zap.String("task", t.Name),
				zap.Any("err", err),
				zap.String("stack", string(debug.Stack())))
		}
	}()

	var reqs []*spider.Request
	for _, u := range t.StartURLs {
		reqs = append(reqs, &spider.Request{Task: t, URL: u})
	}

	for len(reqs) > 0 {
		if ctx.Err() != nil {
			return
		}

		req := reqs[0]
		reqs = reqs[1:]

		if err := req.Check(); err != nil {
			c.Logger.Debug("check failed",
				zap.Error(err),
				zap.String("url", req.URL),
			)

			continue
		}

		if !t.Reload && t.HasVisited(req) {
			c.Logger.Debug("request has visited",
				zap.String("url", req.URL),
			)

			continue
		}

		t.AddVisited(req)

		if c.Gate != nil && !c.Gate.Authorize(req.URL) {
			sum.Denied++
			c.Logger.Info("fetch denied by robots policy",
				zap.String("url", req.URL),
			)

			continue
		}

		if err := c.waitTurn(ctx, req); err != nil {
			return
		}

		body, err := t.Fetcher.Get(req)
		if c.Gate != nil {
			c.Gate.NoteFetch(req.URL)
		}

		if err != nil {
			sum.Failed++
			c.Logger.Error("can't fetch",
				zap.Error(err),
				zap.String("url", req.URL),
			)

			continue
		}

		sum.Pages++

		result, err := t.Parse(&spider.Context{
			Body: body,
			Req:  req,
		})
		if err != nil {
			c.Logger.Error("parse failed",
				zap.Error(err),
				zap.String("url", req.URL),
			)

			continue
		}

		if len(result.Items) == 0 {
			// informational only; an empty page never aborts the run
			c.Logger.Info("no list items matched",
				zap.String("task", t.Name),
				zap.String("url", req.URL),
			)
		} else {
			if err := t.Storage.Save(result.Items...); err != nil {
				c.Logger.Error("save failed",
					zap.Error(err),
					zap.String("url", req.URL),
				)
			}
			sum.Records += len(result.Items)
		}

		reqs = append(reqs, result.Requests...)
	}
}

// waitTurn blocks until the task's rate limit allows the next event and
// the previous fetch to the request's host is at least WaitTime old.
// The gate keeps the timestamps; sleeping is the engine's job.
func (c *Crawler) waitTurn(ctx context.Context, req *spider.Request) error {
	if req.Task.Limit != nil {
		if err := req.Task.Limit.Wait(ctx); err != nil {
			return err
		}
	}

	if c.Gate == nil || req.Task.WaitTime <= 0 {
		return nil
	}

	u, err := url.Parse(req.URL)
	if err != nil {
		return nil
	}

	last := c.Gate.LastFetch(u.Host)
	if last.IsZero() {
		return nil
	}

	delay := time.Duration(req.Task.WaitTime) * time.Second
	wait := time.Until(last.Add(delay))
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
