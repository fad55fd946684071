package spider

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
)

// 单个请求
type Request struct {
	Task  *Task
	URL   string
	Depth int64 // 翻页深度，起始页为0
}

func (r *Request) Check() error {
	if r.Depth > r.Task.MaxDepth {
		return errors.New("max depth limit reached")
	}

	return nil
}

// 请求的唯一识别码
func (r *Request) Unique() string {
	block := md5.Sum([]byte(r.URL))

	return hex.EncodeToString(block[:])
}
