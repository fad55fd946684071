package spider

type Fetcher interface {
	Get(req *Request) ([]byte, error)
}
