// Package transport talks to the recipe chat backend.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"github.com/soyeahso/bakebot/internal/config"
	"github.com/soyeahso/bakebot/internal/dispatch"
	"github.com/soyeahso/bakebot/internal/logging"
	"github.com/soyeahso/bakebot/internal/version"
)

// RawResponse is an undecoded 2xx reply.
type RawResponse struct {
	Status int
	Body   []byte
}

// UploadFile is one file of a multipart upload.
type UploadFile struct {
	Name   string
	Reader io.Reader
}

// Client sends requests to the backend. At most one call is in flight per
// Client; concurrent calls fail with ErrBusy.
type Client struct {
	http      *resty.Client
	endpoints map[string]string
	timeout   time.Duration
	log       *logging.Logger

	inflight atomic.Bool
}

// New creates a Client from the backend config.
func New(cfg config.BackendConfig, log *logging.Logger) *Client {
	rc := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("User-Agent", version.UserAgent()).
		SetHeader("Accept", "application/json")
	if len(cfg.Headers) > 0 {
		rc.SetHeaders(cfg.Headers)
	}
	if cfg.APIKey != "" {
		rc.SetAuthToken(cfg.APIKey)
	}

	endpoints := config.DefaultEndpoints()
	for k, v := range cfg.Endpoints {
		if v != "" {
			endpoints[k] = v
		}
	}

	return &Client{
		http:      rc,
		endpoints: endpoints,
		timeout:   cfg.Timeout(),
		log:       log.Sub("transport"),
	}
}

// Send posts a dispatched request as JSON. Modify and pairing routes are keyed
// by a session_id query parameter as well as the body.
func (c *Client) Send(ctx context.Context, req dispatch.Request) (RawResponse, error) {
	return c.do(ctx, req.Endpoint, func(r *resty.Request, path string) (*resty.Response, error) {
		r.SetBody(req.Payload)
		if req.Endpoint == config.EndpointModifyRecipe || req.Endpoint == config.EndpointPairings {
			if sid := req.SessionID(); sid != "" {
				r.SetQueryParam("session_id", sid)
			}
		}
		return r.Post(path)
	})
}

// UploadText posts raw recipe text for the backend to format.
func (c *Client) UploadText(ctx context.Context, text string) (RawResponse, error) {
	return c.do(ctx, config.EndpointFormatRecipe, func(r *resty.Request, path string) (*resty.Response, error) {
		return r.SetMultipartFormData(map[string]string{"recipe_text": text}).Post(path)
	})
}

// UploadFiles posts recipe files (photos, scans, documents) for extraction.
func (c *Client) UploadFiles(ctx context.Context, files []UploadFile) (RawResponse, error) {
	if len(files) == 0 {
		return RawResponse{}, errors.New("no files to upload")
	}
	return c.do(ctx, config.EndpointUploadFiles, func(r *resty.Request, path string) (*resty.Response, error) {
		for _, f := range files {
			r.SetFileReader("files", f.Name, f.Reader)
		}
		return r.Post(path)
	})
}

// Status asks the backend for the state of a session.
func (c *Client) Status(ctx context.Context, sessionID string) (RawResponse, error) {
	return c.do(ctx, config.EndpointStatus, func(r *resty.Request, path string) (*resty.Response, error) {
		if sessionID != "" {
			r.SetHeader("session_id", sessionID)
		}
		return r.Get(path)
	})
}

// ClearHistory drops the backend's chat history for a session.
func (c *Client) ClearHistory(ctx context.Context, sessionID string) (RawResponse, error) {
	return c.do(ctx, config.EndpointClearHistory, func(r *resty.Request, path string) (*resty.Response, error) {
		if sessionID != "" {
			r.SetHeader("session_id", sessionID)
		}
		return r.Delete(path)
	})
}

// Busy reports whether a call is in flight.
func (c *Client) Busy() bool { return c.inflight.Load() }

func (c *Client) do(ctx context.Context, endpoint string, call func(*resty.Request, string) (*resty.Response, error)) (RawResponse, error) {
	path, ok := c.endpoints[endpoint]
	if !ok {
		return RawResponse{}, fmt.Errorf("no path configured for endpoint %q", endpoint)
	}
	if !c.inflight.CompareAndSwap(false, true) {
		return RawResponse{}, &Error{Kind: KindBusy, Detail: "a request is already in progress"}
	}
	defer c.inflight.Store(false)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	res, err := call(c.http.R().SetContext(ctx), path)
	elapsed := time.Since(start)

	if err != nil {
		terr := classify(ctx, err)
		c.log.Warn().Err(err).Str("endpoint", endpoint).Str("kind", string(terr.Kind)).Dur("elapsed", elapsed).Msg("backend request failed")
		return RawResponse{}, terr
	}
	if !res.IsSuccess() {
		c.log.Warn().Str("endpoint", endpoint).Int("status", res.StatusCode()).Str("body", truncate(res.String(), 200)).Msg("backend returned error")
		return RawResponse{}, &Error{Kind: KindServer, Status: res.StatusCode(), Detail: serverDetail(res)}
	}

	c.log.Debug().Str("endpoint", endpoint).Int("status", res.StatusCode()).Dur("elapsed", elapsed).Msg("backend request completed")
	return RawResponse{Status: res.StatusCode(), Body: res.Body()}, nil
}

func classify(ctx context.Context, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Detail: "the backend did not answer in time"}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &Error{Kind: KindTimeout, Detail: "the backend did not answer in time"}
	}
	return &Error{Kind: KindNetwork, Detail: err.Error()}
}

func serverDetail(res *resty.Response) string {
	body := strings.TrimSpace(res.String())
	if body == "" {
		return res.Status()
	}
	return truncate(body, 200)
}

// truncate shortens s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
