package spider

import "time"

// Record is one extracted list item: field name -> extracted string value.
// Field ordering is carried by the task's Fields declaration, not by the
// map itself.
type Record map[string]string

// Context carries one fetched page through parsing.
type Context struct {
	Body []byte
	Req  *Request
}

// ParseFunc turns one fetched page into records and follow-up requests.
type ParseFunc func(*Context) (ParseResult, error)

type ParseResult struct {
	Requests []*Request
	Items    []*DataCell
}

// Output wraps one extracted record with its provenance, in the shape the
// storage backends consume.
func (c *Context) Output(record Record) *DataCell {
	res := &DataCell{
		Task: c.Req.Task,
	}
	res.Data = make(map[string]interface{})
	res.Data["Task"] = c.Req.Task.Name
	res.Data["Data"] = record
	res.Data["URL"] = c.Req.URL
	res.Data["Time"] = time.Now().Format("2006-01-02 15:04:05")

	return res
}
