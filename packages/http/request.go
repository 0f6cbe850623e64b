package http

import (
	"net/url"
	"time"
)

type Request struct {
	Method      string
	URL         string
	Headers     map[string]string
	Timeout     time.Duration
	QueryParams map[string]string
}

func NewRequest(method, requestURL string) *Request {
	return &Request{
		Method:      method,
		URL:         requestURL,
		Headers:     make(map[string]string),
		QueryParams: make(map[string]string),
	}
}

func (r *Request) SetHeader(key, value string) *Request {
	r.Headers[key] = value
	return r
}

func (r *Request) SetTimeout(d time.Duration) *Request {
	r.Timeout = d
	return r
}

func (r *Request) SetQueryParam(key, value string) *Request {
	r.QueryParams[key] = value
	return r
}

// BuildURL returns URL with QueryParams merged into its query string.
func (r *Request) BuildURL() string {
	if len(r.QueryParams) == 0 {
		return r.URL
	}

	u, err := url.Parse(r.URL)
	if err != nil {
		return r.URL
	}

	q := u.Query()
	for k, v := range r.QueryParams {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
