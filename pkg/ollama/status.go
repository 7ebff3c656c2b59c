package ollama

import (
	"context"
	"net/http"
)

type statusKey struct{}

type statusHolder struct {
	code int
}

// recordStatus attaches a holder that receives the HTTP status of the
// request made with the returned context
func recordStatus(ctx context.Context) (context.Context, *statusHolder) {
	h := &statusHolder{}
	return context.WithValue(ctx, statusKey{}, h), h
}

type statusTransport struct {
	next http.RoundTripper
}

func (t *statusTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err == nil {
		if h, ok := req.Context().Value(statusKey{}).(*statusHolder); ok {
			h.code = resp.StatusCode
		}
	}
	return resp, err
}

func withStatusRecorder(hc *http.Client) *http.Client {
	next := hc.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	wrapped := *hc
	wrapped.Transport = &statusTransport{next: next}
	return &wrapped
}
