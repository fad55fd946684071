package extract

import (
	"bytes"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webgather/harvester/spider"
)

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader([]byte(html)))
	require.NoError(t, err)
	return doc
}

func newTask(t *testing.T, opts ...spider.Option) *spider.Task {
	t.Helper()
	return spider.NewTask(opts...)
}

func TestCompileRejectsBadSelectors(t *testing.T) {
	tests := []struct {
		name string
		task *spider.Task
	}{
		{name: "bad list selector", task: spider.NewTask(
			spider.WithName("t"),
			spider.WithListSelector("div["),
			spider.WithFields([]spider.FieldSpec{{Name: "a", Selector: "span"}}),
		)},
		{name: "bad field selector", task: spider.NewTask(
			spider.WithName("t"),
			spider.WithListSelector(".item"),
			spider.WithFields([]spider.FieldSpec{{Name: "a", Selector: ":::"}}),
		)},
		{name: "bad next page selector", task: spider.NewTask(
			spider.WithName("t"),
			spider.WithListSelector(".item"),
			spider.WithFields([]spider.FieldSpec{{Name: "a", Selector: "span"}}),
			spider.WithNextPageSelector("a..next"),
		)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.task)
			assert.Error(t, err)
		})
	}
}

func TestExtractTwoItems(t *testing.T) {
	task := newTask(t,
		spider.WithName("books"),
		spider.WithListSelector(".item"),
		spider.WithFields([]spider.FieldSpec{{Name: "name", Selector: ".name"}}),
	)
	e, err := Compile(task)
	require.NoError(t, err)

	doc := mustDoc(t, `<div class="item"><span class="name">A</span></div>`+
		`<div class="item"><span class="name">B</span></div>`)

	records := e.Extract(doc)
	require.Len(t, records, 2)
	assert.Equal(t, "A", records[0]["name"])
	assert.Equal(t, "B", records[1]["name"])
}

func TestExtractNoListMatch(t *testing.T) {
	task := newTask(t,
		spider.WithListSelector(".missing"),
		spider.WithFields([]spider.FieldSpec{{Name: "name", Selector: ".name"}}),
	)
	e, err := Compile(task)
	require.NoError(t, err)

	doc := mustDoc(t, `<div class="item"><span class="name">A</span></div>`)
	assert.Empty(t, e.Extract(doc))
}

func TestExtractMissingFieldIsEmpty(t *testing.T) {
	task := newTask(t,
		spider.WithListSelector(".item"),
		spider.WithFields([]spider.FieldSpec{
			{Name: "name", Selector: ".name"},
			{Name: "price", Selector: ".price"},
		}),
	)
	e, err := Compile(task)
	require.NoError(t, err)

	doc := mustDoc(t, `<div class="item"><span class="name">A</span></div>`)

	records := e.Extract(doc)
	require.Len(t, records, 1)
	assert.Equal(t, "A", records[0]["name"])
	assert.Equal(t, "", records[0]["price"])
}

func TestExtractAttribute(t *testing.T) {
	task := newTask(t,
		spider.WithListSelector(".item"),
		spider.WithFields([]spider.FieldSpec{
			{Name: "link", Selector: "a", Attribute: "href"},
			{Name: "rel", Selector: "a", Attribute: "rel"}, // absent attribute
		}),
	)
	e, err := Compile(task)
	require.NoError(t, err)

	doc := mustDoc(t, `<div class="item"><a href="/p/1">one</a></div>`)

	records := e.Extract(doc)
	require.Len(t, records, 1)
	assert.Equal(t, "/p/1", records[0]["link"])
	assert.Equal(t, "", records[0]["rel"])
}

func TestExtractScalarTakesFirstMatch(t *testing.T) {
	task := newTask(t,
		spider.WithListSelector(".item"),
		spider.WithFields([]spider.FieldSpec{{Name: "tag", Selector: ".tag"}}),
	)
	e, err := Compile(task)
	require.NoError(t, err)

	doc := mustDoc(t, `<div class="item"><i class="tag">first</i><i class="tag">second</i></div>`)

	records := e.Extract(doc)
	require.Len(t, records, 1)
	assert.Equal(t, "first", records[0]["tag"])
}

func TestExtractNormalizesWhitespace(t *testing.T) {
	task := newTask(t,
		spider.WithListSelector(".item"),
		spider.WithFields([]spider.FieldSpec{{Name: "name", Selector: ".name"}}),
	)
	e, err := Compile(task)
	require.NoError(t, err)

	doc := mustDoc(t, "<div class=\"item\"><span class=\"name\">  The\n\t Go   Programming\nLanguage </span></div>")

	records := e.Extract(doc)
	require.Len(t, records, 1)
	assert.Equal(t, "The Go Programming Language", records[0]["name"])
}

func TestExtractIsIdempotent(t *testing.T) {
	task := newTask(t,
		spider.WithListSelector(".item"),
		spider.WithFields([]spider.FieldSpec{{Name: "name", Selector: ".name"}}),
	)
	e, err := Compile(task)
	require.NoError(t, err)

	doc := mustDoc(t, `<div class="item"><span class="name">A</span></div>`+
		`<div class="item"><span class="name">B</span></div>`)

	assert.Equal(t, e.Extract(doc), e.Extract(doc))
}

func TestNextPageURL(t *testing.T) {
	task := newTask(t,
		spider.WithListSelector(".item"),
		spider.WithFields([]spider.FieldSpec{{Name: "name", Selector: ".name"}}),
		spider.WithNextPageSelector("li.next a"),
	)
	e, err := Compile(task)
	require.NoError(t, err)

	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "relative href",
			html: `<ul><li class="next"><a href="page-2.html">next</a></li></ul>`,
			want: "https://example.com/catalog/page-2.html",
		},
		{
			name: "absolute href",
			html: `<ul><li class="next"><a href="https://example.com/other">next</a></li></ul>`,
			want: "https://example.com/other",
		},
		{
			name: "no match",
			html: `<ul><li class="prev"><a href="page-0.html">prev</a></li></ul>`,
			want: "",
		},
		{
			name: "match without href",
			html: `<ul><li class="next"><a>next</a></li></ul>`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustDoc(t, tt.html)
			assert.Equal(t, tt.want, e.NextPageURL(doc, "https://example.com/catalog/page-1.html"))
		})
	}
}

func TestParseFuncOutputsCellsAndNextRequest(t *testing.T) {
	task := newTask(t,
		spider.WithName("books"),
		spider.WithListSelector(".item"),
		spider.WithFields([]spider.FieldSpec{{Name: "name", Selector: ".name"}}),
		spider.WithNextPageSelector("a.next"),
	)
	e, err := Compile(task)
	require.NoError(t, err)
	task.Parse = e.ParseFunc()

	body := `<div class="item"><span class="name">A</span></div>` +
		`<a class="next" href="/catalog?page=2">next</a>`
	ctx := &spider.Context{
		Body: []byte(body),
		Req:  &spider.Request{Task: task, URL: "https://example.com/catalog", Depth: 0},
	}

	result, err := task.Parse(ctx)
	require.NoError(t, err)

	require.Len(t, result.Items, 1)
	cell := result.Items[0]
	assert.Equal(t, "books", cell.GetTaskName())
	assert.Equal(t, "https://example.com/catalog", cell.Data["URL"])
	record, ok := cell.Data["Data"].(spider.Record)
	require.True(t, ok)
	assert.Equal(t, "A", record["name"])

	require.Len(t, result.Requests, 1)
	assert.Equal(t, "https://example.com/catalog?page=2", result.Requests[0].URL)
	assert.Equal(t, int64(1), result.Requests[0].Depth)
}
