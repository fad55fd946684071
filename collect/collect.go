package collect

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/webgather/harvester/spider"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultUserAgent identifies the crawler when a task does not configure
// its own user agent string.
const DefaultUserAgent = "harvester/0.9 (+https://github.com/webgather/harvester)"

type BaseFetch struct{}

func (BaseFetch) Get(req *spider.Request) ([]byte, error) {
	resp, err := http.Get(req.URL)

	if err != nil {
		return nil, err
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: error status code:%d", req.URL, resp.StatusCode)
	}

	bodyReader := bufio.NewReader(resp.Body)
	e := DetermineEncoding(bodyReader)
	utf8Reader := transform.NewReader(bodyReader, e.NewDecoder())

	return io.ReadAll(utf8Reader)
}

// BrowserFetch sends the task's User-Agent header and honors the task
// timeout.
type BrowserFetch struct {
	Timeout time.Duration
}

func (b BrowserFetch) Get(request *spider.Request) ([]byte, error) {
	timeout := b.Timeout
	if request.Task != nil && request.Task.Timeout > 0 {
		timeout = request.Task.Timeout
	}

	client := &http.Client{
		Timeout: timeout,
	}

	req, err := http.NewRequest("GET", request.URL, nil)

	if err != nil {
		return nil, fmt.Errorf("get url failed:%w", err)
	}

	ua := DefaultUserAgent
	if request.Task != nil && request.Task.UserAgent != "" {
		ua = request.Task.UserAgent
	}
	req.Header.Set("User-Agent", ua)

	resp, err := client.Do(req)

	if err != nil {
		return nil, err
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: error status code:%d", request.URL, resp.StatusCode)
	}

	bodyReader := bufio.NewReader(resp.Body)
	e := DetermineEncoding(bodyReader)
	utf8Reader := transform.NewReader(bodyReader, e.NewDecoder())

	return io.ReadAll(utf8Reader)
}

func DetermineEncoding(r *bufio.Reader) encoding.Encoding {
	bytes, err := r.Peek(1024)

	if err != nil && err != io.EOF {
		zap.L().Error("determine encoding failed", zap.Error(err))

		return unicode.UTF8
	}

	e, _, _ := charset.DetermineEncoding(bytes, "")

	return e
}
