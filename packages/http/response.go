package http

import (
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

type Response struct {
	StatusCode int
	Status     string
	Headers    map[string]string
	Body       []byte
	Duration   time.Duration
}

func (r *Response) BodyString() string {
	return string(r.Body)
}

// HasJSONBody reports whether the body parses as JSON, independent of the
// declared content type.
func (r *Response) HasJSONBody() bool {
	return len(strings.TrimSpace(string(r.Body))) > 0 && gjson.ValidBytes(r.Body)
}

func (r *Response) Header(key string) string {
	for k, v := range r.Headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

func (r *Response) ContentType() string {
	return r.Header("Content-Type")
}

func (r *Response) IsJSON() bool {
	ct := r.ContentType()
	return strings.Contains(ct, "application/json")
}

func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (r *Response) DurationMs() int64 {
	return r.Duration.Milliseconds()
}
