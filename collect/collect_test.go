package collect

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webgather/harvester/spider"
)

func TestBrowserFetchSetsUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer srv.Close()

	task := spider.NewTask(spider.WithUserAgent("mybot/1.0"))
	f := BrowserFetch{}
	body, err := f.Get(&spider.Request{Task: task, URL: srv.URL})
	require.NoError(t, err)
	assert.Contains(t, string(body), "ok")
	assert.Equal(t, "mybot/1.0", gotUA)
}

func TestBrowserFetchDefaultUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := BrowserFetch{}
	_, err := f.Get(&spider.Request{URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, DefaultUserAgent, gotUA)
}

func TestBrowserFetchErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f := BrowserFetch{}
	body, err := f.Get(&spider.Request{URL: srv.URL})
	assert.Error(t, err)
	assert.Nil(t, body)
}

func TestBrowserFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.Write([]byte("slow"))
	}))
	defer srv.Close()

	f := BrowserFetch{Timeout: 50 * time.Millisecond}
	_, err := f.Get(&spider.Request{URL: srv.URL})
	assert.Error(t, err)
}

func TestBaseFetchDecodesGBK(t *testing.T) {
	// 你好 encoded as GBK
	gbk := []byte{0xc4, 0xe3, 0xba, 0xc3}
	page := append([]byte(`<html><head><meta charset="gbk"></head><body>`), gbk...)
	page = append(page, []byte("</body></html>")...)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write(page)
	}))
	defer srv.Close()

	f := BaseFetch{}
	body, err := f.Get(&spider.Request{URL: srv.URL})
	require.NoError(t, err)
	assert.Contains(t, string(body), "你好")
}
