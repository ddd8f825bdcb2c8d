package scoreboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/five82/ghostkeeper/internal/errs"
	"github.com/five82/ghostkeeper/internal/game"
	"github.com/five82/ghostkeeper/internal/ghost"
)

// Service is the scoreboard contract used by fast-follow. It is implemented
// by *Client and can be faked in tests.
type Service interface {
	BestTime(ctx context.Context, cond game.Condition, ticket bool) (best int64, ok bool, err error)
	Submit(ctx context.Context, token string, rec *ghost.Record, competitive bool) (id int64, err error)
	ApplyBest(ctx context.Context, token string, id int64) (bool, error)
	FetchBest(ctx context.Context, cond game.Condition, ticket bool) (*ghost.Record, error)
}

// Ensure Client implements Service at compile time.
var _ Service = (*Client)(nil)

// Client talks to the scoreboard HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	limiter   *rate.Limiter
	userAgent string
}

// Options tunes a Client.
type Options struct {
	Timeout           time.Duration
	RequestsPerSecond float64
	UserAgent         string
}

const (
	defaultUserAgent  = "ghostkeeper/0.1"
	requestTimeout    = 5 * time.Second
	defaultRatePerSec = 2
	maxErrorBody      = 4 << 10
)

// NewClient builds a Client for the service at apiURL.
func NewClient(apiURL string, opts Options) (*Client, error) {
	base, err := parseBaseURL(apiURL)
	if err != nil {
		return nil, err
	}
	if opts.Timeout <= 0 {
		opts.Timeout = requestTimeout
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = defaultRatePerSec
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	return &Client{
		baseURL:   base,
		http:      &http.Client{Timeout: opts.Timeout},
		limiter:   rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		userAgent: opts.UserAgent,
	}, nil
}

func conditionQuery(cond game.Condition, ticket bool) url.Values {
	values := url.Values{}
	values.Set("mode", strconv.Itoa(int(cond.Mode)))
	values.Set("track", cond.Track)
	values.Set("weather", strconv.Itoa(int(cond.Weather)))
	if ticket {
		values.Set("ticket", "1")
	} else {
		values.Set("ticket", "0")
	}
	return values
}

// BestTime returns the best known result for cond. ok is false when the
// service has none.
func (c *Client) BestTime(ctx context.Context, cond game.Condition, ticket bool) (int64, bool, error) {
	rel := &url.URL{Path: "/api/v1/best", RawQuery: conditionQuery(cond, ticket).Encode()}
	var payload BestResponse
	if err := c.doURL(ctx, http.MethodGet, rel, "", nil, &payload); err != nil {
		return 0, false, err
	}
	if payload.Time == nil {
		return 0, false, nil
	}
	return *payload.Time, true, nil
}

// Submit uploads rec and returns its remote id.
func (c *Client) Submit(ctx context.Context, token string, rec *ghost.Record, competitive bool) (int64, error) {
	if rec == nil {
		return 0, fmt.Errorf("record is nil")
	}
	body := SubmitRequest{Ghost: rec.ToSerialized(), Competitive: competitive}
	var payload SubmitResponse
	if err := c.doURL(ctx, http.MethodPost, &url.URL{Path: "/api/v1/ghosts"}, token, body, &payload); err != nil {
		return 0, err
	}
	return payload.ID, nil
}

// ApplyBest asks the service to adopt upload id as the player's best.
func (c *Client) ApplyBest(ctx context.Context, token string, id int64) (bool, error) {
	rel := &url.URL{Path: "/api/v1/ghosts/" + strconv.FormatInt(id, 10) + "/apply"}
	var payload ApplyResponse
	if err := c.doURL(ctx, http.MethodPost, rel, token, nil, &payload); err != nil {
		return false, err
	}
	return payload.Applied, nil
}

// FetchBest downloads the best ghost for cond.
func (c *Client) FetchBest(ctx context.Context, cond game.Condition, ticket bool) (*ghost.Record, error) {
	rel := &url.URL{Path: "/api/v1/ghosts/best", RawQuery: conditionQuery(cond, ticket).Encode()}
	var payload GhostResponse
	if err := c.doURL(ctx, http.MethodGet, rel, "", nil, &payload); err != nil {
		return nil, err
	}
	if strings.TrimSpace(payload.Ghost) == "" {
		return nil, errs.Service("no ghost available for %s", cond)
	}
	rec, err := ghost.Parse(payload.Ghost)
	if err != nil {
		return nil, errs.Service("invalid ghost from scoreboard").WithCause(err)
	}
	return rec, nil
}

func (c *Client) doURL(ctx context.Context, method string, rel *url.URL, token string, body, dest any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return errs.Service("rate limit wait").WithCause(err)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	reqURL := c.baseURL.JoinPath(rel.Path)
	reqURL.RawQuery = rel.RawQuery
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errs.Service("request %s failed", rel.Path).WithCause(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return statusError(rel.Path, resp)
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return errs.Service("decode %s response", rel.Path).WithCause(err)
	}
	return nil
}

func statusError(path string, resp *http.Response) error {
	msg := ""
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var payload ErrorResponse
	if json.Unmarshal(data, &payload) == nil {
		msg = payload.Error
	}

	var base *errs.Error
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		base = errs.ErrInvalidToken
	case http.StatusConflict, http.StatusGone:
		base = errs.ErrConditionClosed
	default:
		base = errs.ErrService
	}
	err := base.WithDetails("status", resp.StatusCode, "path", path)
	if msg != "" {
		return err.WithCause(errors.New(msg))
	}
	return err.WithCause(fmt.Errorf("api %s returned status %d", path, resp.StatusCode))
}

func parseBaseURL(apiURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(apiURL)
	if trimmed == "" {
		return nil, fmt.Errorf("scoreboard api_url is empty")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api_url %q: %w", apiURL, err)
	}
	// A path prefix (a scoreboard mounted under /scoreboard) is kept and the
	// API paths are joined onto it.
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
