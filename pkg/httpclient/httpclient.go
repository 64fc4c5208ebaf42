// Package httpclient is the scraper-facing HTTP layer: a plain GET path
// and, per scraper, a pool of anti-bot bypass sessions that requests are
// promoted to once the plain path starts getting 401/403 back.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	userAgent      = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/143.0.0.0 Safari/537.36"
	defaultTimeout = 30 * time.Second
	contentTypeJSON = "application/json"
)

// Options tunes a single fetch call. Scraper is the pool key; WarmupURL
// is only consulted the first time that scraper's pool is touched.
type Options struct {
	Scraper   string
	WarmupURL string
	Timeout   time.Duration
}

// Client issues scraper requests, transparently promoting a scraper to
// the bypass pool when the plain path is blocked.
type Client struct {
	httpClient      *http.Client
	bypass          *bypassService
	logger          *zap.Logger
	sessionsPerPool int

	mu    sync.Mutex
	pools map[string]*pool
}

// Config configures the bypass service and per-pool session counts.
type Config struct {
	BypassURL       string
	SessionsPerPool int
	RefreshInterval time.Duration
}

// New builds a Client. If cfg.BypassURL is empty, the bypass path is
// disabled entirely and requests fall back to nil on any 401/403.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.SessionsPerPool <= 0 {
		cfg.SessionsPerPool = 1
	}
	c := &Client{
		httpClient:      &http.Client{},
		logger:          logger,
		pools:           make(map[string]*pool),
		sessionsPerPool: cfg.SessionsPerPool,
	}
	if cfg.BypassURL != "" {
		c.bypass = &bypassService{baseURL: cfg.BypassURL, httpClient: &http.Client{Timeout: defaultTimeout}}
	}
	if cfg.RefreshInterval > 0 && c.bypass != nil {
		go c.refreshLoop(cfg.RefreshInterval)
	}
	return c
}

// poolState is the bypass pool's forward-only state.
type poolState int32

const (
	statePlain poolState = iota
	stateProbing
	stateForceBypass
)

type session struct {
	id string
}

type pool struct {
	mu           sync.Mutex
	state        poolState
	sessions     []*session
	cursor       uint64
	warmupURL    string
	refreshing   bool
}

func (c *Client) poolFor(scraper, warmupURL string) *pool {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pools[scraper]
	if !ok {
		p = &pool{state: statePlain, warmupURL: warmupURL}
		c.pools[scraper] = p
	}
	return p
}

// FetchText issues a GET for url under opts, returning the response body
// or "" if the request ultimately failed (including after a bypass
// retry).
func (c *Client) FetchText(ctx context.Context, url string, opts Options) string {
	p := c.poolFor(opts.Scraper, opts.WarmupURL)

	p.mu.Lock()
	forceBypass := p.state == stateForceBypass
	p.mu.Unlock()

	if forceBypass && c.bypass != nil {
		body, ok := c.viaBypass(ctx, p, url, opts)
		if ok {
			return body
		}
		return ""
	}

	body, status, err := c.plainGet(ctx, url, opts)
	if err == nil && status >= 200 && status < 300 {
		return body
	}

	if (status == http.StatusUnauthorized || status == http.StatusForbidden) && c.bypass != nil {
		c.promote(p)
		body, ok := c.viaBypass(ctx, p, url, opts)
		if ok {
			return body
		}
	}
	return ""
}

// FetchJSON issues a GET and unmarshals the body into v, tolerating
// bodies the bypass service wraps in a `<pre>` tag. It reports whether a
// JSON value was found and successfully decoded.
func (c *Client) FetchJSON(ctx context.Context, url string, opts Options, v interface{}) bool {
	body := c.FetchText(ctx, url, opts)
	if body == "" {
		return false
	}
	payload := extractJSON(body)
	if payload == "" {
		return false
	}
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return false
	}
	return true
}

// extractJSON returns the JSON payload within body, or "" if none is
// recognizable. body qualifies either because it (after trimming) starts
// with '{' or '[', or because its first <pre>...</pre> contents do.
func extractJSON(body string) string {
	trimmed := strings.TrimSpace(body)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return trimmed
	}
	start := strings.Index(body, "<pre>")
	if start == -1 {
		return ""
	}
	start += len("<pre>")
	end := strings.Index(body[start:], "</pre>")
	if end == -1 {
		return ""
	}
	inner := strings.TrimSpace(body[start : start+end])
	if strings.HasPrefix(inner, "{") || strings.HasPrefix(inner, "[") {
		return inner
	}
	return ""
}

func (c *Client) plainGet(ctx context.Context, url string, opts Options) (string, int, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", resp.StatusCode, err
	}
	return string(body), resp.StatusCode, nil
}

// Probe runs a scraper's front-page check once, typically at startup:
// a plain GET against frontPageURL decides whether the pool should
// start in force-bypass mode instead of waiting for a live request to
// hit 401/403 first. It's a no-op once the pool has left statePlain,
// so calling it more than once, or after the pool has already been
// promoted by a real request, costs nothing.
func (c *Client) Probe(ctx context.Context, scraper, frontPageURL, warmupURL string) {
	if c.bypass == nil || frontPageURL == "" {
		return
	}
	p := c.poolFor(scraper, warmupURL)

	p.mu.Lock()
	if p.state != statePlain {
		p.mu.Unlock()
		return
	}
	p.state = stateProbing
	p.mu.Unlock()

	_, status, err := c.plainGet(ctx, frontPageURL, Options{Scraper: scraper})
	if err == nil && (status == http.StatusUnauthorized || status == http.StatusForbidden) {
		c.promote(p)
		return
	}

	p.mu.Lock()
	if p.state == stateProbing {
		p.state = statePlain
	}
	p.mu.Unlock()
}

// promote flips a pool to force-bypass, lazily creating and warming
// sessions if none exist yet.
func (c *Client) promote(p *pool) {
	p.mu.Lock()
	already := p.state == stateForceBypass
	p.state = stateForceBypass
	needsSessions := len(p.sessions) == 0
	p.mu.Unlock()
	if already {
		return
	}

	if needsSessions {
		c.createAndWarm(p)
	}
}

func (c *Client) createAndWarm(p *pool) {
	n := c.sessionsPerPool
	if n <= 0 {
		n = 1
	}
	var created []*session
	for i := 0; i < n; i++ {
		s, err := c.bypass.createSession()
		if err != nil {
			continue
		}
		if err := c.bypass.warm(s, p.warmupURL); err != nil {
			c.logWarn("session warm failed on create", err)
			continue
		}
		created = append(created, s)
	}
	p.mu.Lock()
	p.sessions = append(p.sessions, created...)
	p.mu.Unlock()
}

func (c *Client) viaBypass(ctx context.Context, p *pool, url string, opts Options) (string, bool) {
	p.mu.Lock()
	if len(p.sessions) == 0 {
		p.mu.Unlock()
		c.createAndWarm(p)
		p.mu.Lock()
	}
	if len(p.sessions) == 0 {
		p.mu.Unlock()
		return "", false
	}
	idx := atomic.AddUint64(&p.cursor, 1) % uint64(len(p.sessions))
	s := p.sessions[idx]
	p.mu.Unlock()

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	body, ok := c.bypass.requestGet(ctx, url, s, timeout)
	return body, ok
}

func (c *Client) refreshLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		c.mu.Lock()
		pools := make([]*pool, 0, len(c.pools))
		for _, p := range c.pools {
			pools = append(pools, p)
		}
		c.mu.Unlock()

		for _, p := range pools {
			c.refreshPool(p)
		}
	}
}

func (c *Client) refreshPool(p *pool) {
	p.mu.Lock()
	if p.state != stateForceBypass || p.refreshing {
		p.mu.Unlock()
		return
	}
	p.refreshing = true
	sessions := append([]*session(nil), p.sessions...)
	warmupURL := p.warmupURL
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.refreshing = false
		p.mu.Unlock()
	}()

	for i, s := range sessions {
		if err := c.bypass.warm(s, warmupURL); err != nil {
			c.logWarn("session refresh warm failed, recreating", err)
			_ = c.bypass.destroySession(s)
			ns, err := c.bypass.createSession()
			if err != nil {
				continue
			}
			if err := c.bypass.warm(ns, warmupURL); err != nil {
				c.logWarn("session recreate warm failed", err)
				continue
			}
			p.mu.Lock()
			if i < len(p.sessions) {
				p.sessions[i] = ns
			}
			p.mu.Unlock()
		}
	}
}

func (c *Client) logWarn(msg string, err error) {
	if c.logger == nil {
		return
	}
	c.logger.Warn(msg, zap.Error(err))
}

// bypassService wraps a third-party service that loads a URL in a
// headless browser and returns the rendered HTML, used to get past
// anti-bot challenges the plain path can't.
type bypassService struct {
	baseURL    string
	httpClient *http.Client
}

type bypassRequest struct {
	Cmd        string `json:"cmd"`
	Session    string `json:"session,omitempty"`
	URL        string `json:"url,omitempty"`
	MaxTimeout int    `json:"maxTimeout,omitempty"`
}

type bypassResponse struct {
	Status   string `json:"status"`
	Session  string `json:"session"`
	Solution struct {
		Status   int    `json:"status"`
		Response string `json:"response"`
	} `json:"solution"`
}

func (b *bypassService) call(ctx context.Context, req bypassRequest) (*bypassResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/v1", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", contentTypeJSON)

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out bypassResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if out.Status != "ok" {
		return nil, fmt.Errorf("bypass service: status %q", out.Status)
	}
	return &out, nil
}

func (b *bypassService) createSession() (*session, error) {
	resp, err := b.call(context.Background(), bypassRequest{Cmd: "sessions.create"})
	if err != nil {
		return nil, err
	}
	return &session{id: resp.Session}, nil
}

func (b *bypassService) destroySession(s *session) error {
	_, err := b.call(context.Background(), bypassRequest{Cmd: "sessions.destroy", Session: s.id})
	return err
}

func (b *bypassService) warm(s *session, warmupURL string) error {
	if warmupURL == "" {
		return nil
	}
	resp, err := b.call(context.Background(), bypassRequest{Cmd: "request.get", URL: warmupURL, Session: s.id, MaxTimeout: int(defaultTimeout.Milliseconds())})
	if err != nil {
		return err
	}
	if resp.Solution.Status < 200 || resp.Solution.Status >= 300 {
		return fmt.Errorf("bypass warm: solution status %d", resp.Solution.Status)
	}
	return nil
}

func (b *bypassService) requestGet(ctx context.Context, url string, s *session, timeout time.Duration) (string, bool) {
	resp, err := b.call(ctx, bypassRequest{Cmd: "request.get", URL: url, Session: s.id, MaxTimeout: int(timeout.Milliseconds())})
	if err != nil {
		return "", false
	}
	if resp.Solution.Status < 200 || resp.Solution.Status >= 300 || resp.Solution.Response == "" {
		return "", false
	}
	return resp.Solution.Response, true
}
