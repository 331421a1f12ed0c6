package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/banshee-data/reps.report/internal/httputil"
	"github.com/banshee-data/reps.report/internal/pose/exercise"
	"github.com/banshee-data/reps.report/internal/pose/l1landmarks"
	"github.com/banshee-data/reps.report/internal/pose/pipeline"
)

// Client drives a session on a remote server, for devices that estimate
// pose locally and push frames over the network.
type Client struct {
	base string
	http httputil.HTTPClient
}

// NewClient talks to the server at baseURL. A nil c uses a client with a
// ten second timeout.
func NewClient(baseURL string, c httputil.HTTPClient) *Client {
	if c == nil {
		c = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{base: strings.TrimRight(baseURL, "/"), http: c}
}

func (c *Client) sessionURL(id, action string) string {
	u := c.base + "/api/sessions/" + url.PathEscape(id)
	if action != "" {
		u += "/" + action
	}
	return u
}

// CreateSession starts a session; a nil countdown uses the server default.
func (c *Client) CreateSession(ctx context.Context, typ exercise.Type, countdown *time.Duration) (pipeline.Snapshot, error) {
	req := createSessionRequest{Type: typ}
	if countdown != nil {
		ms := countdown.Milliseconds()
		req.CountdownMs = &ms
	}
	var snap pipeline.Snapshot
	err := httputil.DoJSON(ctx, c.http, http.MethodPost, c.base+"/api/sessions", req, &snap)
	return snap, err
}

// Session fetches the current snapshot.
func (c *Client) Session(ctx context.Context, id string) (pipeline.Snapshot, error) {
	var snap pipeline.Snapshot
	err := httputil.DoJSON(ctx, c.http, http.MethodGet, c.sessionURL(id, ""), nil, &snap)
	return snap, err
}

// PushFrame sends a single frame.
func (c *Client) PushFrame(ctx context.Context, id string, f *l1landmarks.Frame) (PushResult, error) {
	data, err := f.MarshalJSON()
	if err != nil {
		return PushResult{}, fmt.Errorf("failed to encode frame: %w", err)
	}
	var res PushResult
	err = httputil.DoRaw(ctx, c.http, http.MethodPost, c.sessionURL(id, "frames"), "application/x-ndjson", bytes.NewReader(data), &res)
	return res, err
}

// Finish ends the session with reason.
func (c *Client) Finish(ctx context.Context, id string, reason pipeline.FinishReason) (pipeline.Snapshot, error) {
	var snap pipeline.Snapshot
	err := httputil.DoJSON(ctx, c.http, http.MethodPost, c.sessionURL(id, "finish"), finishSessionRequest{Reason: reason}, &snap)
	return snap, err
}

// Push streams every frame from src to the session, one request per
// frame, stopping at the first failed request.
func (c *Client) Push(ctx context.Context, id string, src pipeline.FrameSource) (sent int, err error) {
	if err := src.Open(ctx); err != nil {
		return 0, fmt.Errorf("%w: %v", pipeline.ErrUnableToStart, err)
	}
	defer src.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu      sync.Mutex
		pushErr error
	)
	streamErr := src.Stream(ctx, func(f *l1landmarks.Frame) {
		mu.Lock()
		defer mu.Unlock()
		if pushErr != nil {
			return
		}
		if _, err := c.PushFrame(ctx, id, f); err != nil {
			pushErr = err
			cancel()
			return
		}
		sent++
	})

	mu.Lock()
	defer mu.Unlock()
	if pushErr != nil {
		return sent, fmt.Errorf("failed to push frame %d: %w", sent+1, pushErr)
	}
	if streamErr != nil && ctx.Err() == nil {
		return sent, streamErr
	}
	return sent, nil
}
