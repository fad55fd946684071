// Package extract applies a task's selectors to parsed HTML documents.
// An Extractor is compiled once per task, before any network activity,
// so that malformed selectors surface as configuration errors instead of
// failing mid-run.
package extract

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/webgather/harvester/spider"
)

type fieldMatcher struct {
	name      string
	matcher   cascadia.Selector
	attribute string
}

// Extractor holds the compiled selectors of one task. It is stateless
// after compilation and safe for concurrent use.
type Extractor struct {
	task   *spider.Task
	list   cascadia.Selector
	fields []fieldMatcher
	next   cascadia.Selector // nil when the task has no pagination
}

// Compile validates and compiles the task's selectors.
func Compile(task *spider.Task) (*Extractor, error) {
	list, err := cascadia.Compile(task.ListSelector)
	if err != nil {
		return nil, fmt.Errorf("task %q: list selector %q: %w", task.Name, task.ListSelector, err)
	}

	e := &Extractor{
		task: task,
		list: list,
	}

	for _, f := range task.Fields {
		m, err := cascadia.Compile(f.Selector)
		if err != nil {
			return nil, fmt.Errorf("task %q: field %q selector %q: %w", task.Name, f.Name, f.Selector, err)
		}

		e.fields = append(e.fields, fieldMatcher{
			name:      f.Name,
			matcher:   m,
			attribute: f.Attribute,
		})
	}

	if task.NextPageSelector != "" {
		next, err := cascadia.Compile(task.NextPageSelector)
		if err != nil {
			return nil, fmt.Errorf("task %q: next page selector %q: %w", task.Name, task.NextPageSelector, err)
		}
		e.next = next
	}

	return e, nil
}

// Extract resolves the list selector against the whole document and maps
// every matched item to a record, in document order. Missing matches
// yield empty field values, never errors.
func (e *Extractor) Extract(doc *goquery.Document) []spider.Record {
	var records []spider.Record

	doc.FindMatcher(e.list).Each(func(i int, item *goquery.Selection) {
		record := make(spider.Record, len(e.fields))
		for _, f := range e.fields {
			record[f.name] = scalar(item, f)
		}
		records = append(records, record)
	})

	return records
}

// scalar applies a field matcher within one item subtree. Fields are
// scalar, so only the first match counts.
func scalar(item *goquery.Selection, f fieldMatcher) string {
	sel := item.FindMatcher(f.matcher).First()
	if sel.Length() == 0 {
		return ""
	}

	if f.attribute != "" {
		val, _ := sel.Attr(f.attribute)
		return val
	}

	return normalizeSpace(sel.Text())
}

// NextPageURL returns the absolute URL of the page following doc, or ""
// when the task has no pagination selector, nothing matches, or the href
// cannot be resolved against the page URL.
func (e *Extractor) NextPageURL(doc *goquery.Document, pageURL string) string {
	if e.next == nil {
		return ""
	}

	href, ok := doc.FindMatcher(e.next).First().Attr("href")
	if !ok {
		return ""
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}

	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}

	return base.ResolveReference(ref).String()
}

// ParseFunc adapts the extractor to the spider parsing contract.
func (e *Extractor) ParseFunc() spider.ParseFunc {
	return func(ctx *spider.Context) (spider.ParseResult, error) {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(ctx.Body))
		if err != nil {
			return spider.ParseResult{}, fmt.Errorf("parse %s: %w", ctx.Req.URL, err)
		}

		result := spider.ParseResult{}
		for _, record := range e.Extract(doc) {
			result.Items = append(result.Items, ctx.Output(record))
		}

		if next := e.NextPageURL(doc, ctx.Req.URL); next != "" {
			result.Requests = append(result.Requests, &spider.Request{
				Task:  ctx.Req.Task,
				URL:   next,
				Depth: ctx.Req.Depth + 1,
			})
		}

		return result, nil
	}
}

// normalizeSpace trims the text and collapses internal whitespace runs
// to single spaces.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
