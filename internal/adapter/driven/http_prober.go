package driven

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/time/rate"

	"github.com/alorle/iptv-livecheck/internal/catalog"
	"github.com/alorle/iptv-livecheck/internal/hls"
	"github.com/alorle/iptv-livecheck/internal/port/driven"
	"github.com/alorle/iptv-livecheck/internal/probe"
	"github.com/alorle/iptv-livecheck/metrics"
)

// Deep-decode modes.
const (
	DeepDecodeFallback = "fallback"
	DeepDecodeAlways   = "always"
)

const (
	noteDecoderUnavailable = "decoder unavailable"
	noteEmptyBody          = "empty body"
	noteHTMLBody           = "html body"
	noteTCPDial            = "tcp dial"
	chunkSize              = 32 * 1024
)

// HTTPProberConfig holds the cascade tunables.
type HTTPProberConfig struct {
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	Retries        int
	BackoffInitial time.Duration
	BackoffMax     time.Duration

	SegmentWindow    int64
	PlaylistMaxBytes int64
	MaxPlaylistDepth int

	UserAgents  []string
	ImmuneHosts []string
	PerHostRPS  float64

	EnableHead       bool
	EnablePlaylist   bool
	EnableSegment    bool
	EnableDeepDecode bool

	DeepDecodeBudgets []time.Duration
	DeepDecodeMode    string
}

// HTTPStreamProber implements the StreamProber port. It runs the cascade
// HEAD → PLAYLIST → SEGMENT → DEEP_DECODE and stops at the first stage that
// proves the endpoint live.
type HTTPStreamProber struct {
	cfg      HTTPProberConfig
	client   *http.Client
	dialer   *net.Dialer
	decoder  driven.DecoderProbe
	limiters *xsync.MapOf[string, *rate.Limiter]
	logger   *slog.Logger
}

// NewHTTPStreamProber creates a prober. decoder may be nil, in which case
// the deep-decode stage is always reported as unavailable.
func NewHTTPStreamProber(cfg HTTPProberConfig, decoder driven.DecoderProbe, logger *slog.Logger) *HTTPStreamProber {
	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout, KeepAlive: 30 * time.Second}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   cfg.ConnectTimeout,
		ResponseHeaderTimeout: cfg.ReadTimeout,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
	}
	return &HTTPStreamProber{
		cfg:      cfg,
		client:   &http.Client{Transport: transport},
		dialer:   dialer,
		decoder:  decoder,
		limiters: xsync.NewMapOf[string, *rate.Limiter](),
		logger:   logger,
	}
}

// SetHTTPClient replaces the HTTP client (used in tests).
func (p *HTTPStreamProber) SetHTTPClient(client *http.Client) {
	p.client = client
}

// Probe runs the cascade for one entry.
func (p *HTTPStreamProber) Probe(ctx context.Context, e catalog.Entry) probe.Result {
	if pattern, ok := p.immunePattern(e); ok {
		p.logger.Info("immune host, skipping liveness checks",
			"name", e.Name, "uri", e.URI, "pattern", pattern)
		return probe.Reachable(e, time.Now(), 0, nil)
	}

	c := &cascade{p: p, entry: e, ua: p.userAgent()}

	var ok bool
	var latency time.Duration
	switch e.Scheme() {
	case "http", "https":
		ok, latency = c.runHTTP(ctx)
	case "rtmp", "rtsp":
		ok, latency = c.runDial(ctx)
	}

	ok, latency = c.runDeepDecode(ctx, ok, latency)

	if ok {
		return probe.Reachable(e, time.Now(), latency, c.attempts)
	}
	if ctx.Err() != nil {
		return probe.Failed(e, time.Now(), probe.ReasonCancelled, c.attempts)
	}
	reason := c.reason
	if reason == probe.ReasonNone {
		reason = probe.ReasonUnreachable
	}
	return probe.Failed(e, time.Now(), reason, c.attempts)
}

func (p *HTTPStreamProber) immunePattern(e catalog.Entry) (string, bool) {
	host := strings.ToLower(e.Host())
	if host == "" {
		return "", false
	}
	for _, pattern := range p.cfg.ImmuneHosts {
		if matchHost(host, strings.ToLower(strings.TrimSpace(pattern))) {
			return pattern, true
		}
	}
	return "", false
}

func matchHost(host, pattern string) bool {
	if pattern == "" {
		return false
	}
	if strings.Contains(pattern, "*") {
		ok, err := path.Match(pattern, host)
		return err == nil && ok
	}
	return strings.Contains(host, pattern)
}

func (p *HTTPStreamProber) userAgent() string {
	if len(p.cfg.UserAgents) == 0 {
		return ""
	}
	return p.cfg.UserAgents[rand.IntN(len(p.cfg.UserAgents))]
}

func (p *HTTPStreamProber) limiter(host string) *rate.Limiter {
	if p.cfg.PerHostRPS <= 0 {
		return nil
	}
	l, _ := p.limiters.LoadOrCompute(host, func() *rate.Limiter {
		return rate.NewLimiter(rate.Limit(p.cfg.PerHostRPS), 1)
	})
	return l
}

// expectation tells a fetch how much of the body it needs.
type expectation int

const (
	expectHeaders  expectation = iota // HEAD: headers only
	expectChunk                       // first non-empty chunk of the byte window
	expectDocument                    // whole body up to PlaylistMaxBytes
)

type response struct {
	status        int
	contentType   string
	contentLength int64
	finalURL      *url.URL
	body          []byte
	playlist      bool
	latency       time.Duration
}

// cascade is the per-entry state of one Probe call.
type cascade struct {
	p        *HTTPStreamProber
	entry    catalog.Entry
	ua       string
	attempts []probe.Attempt
	reason   probe.FailureReason
}

func (c *cascade) record(a probe.Attempt) {
	c.attempts = append(c.attempts, a)
	if a.Outcome != probe.OutcomeSkipped {
		metrics.RecordAttempt(string(a.Stage), string(a.Outcome))
	}
	c.p.logger.Debug("probe attempt",
		"uri", c.entry.URI, "stage", a.Stage, "outcome", a.Outcome,
		"status", a.StatusCode, "elapsed", a.Elapsed, "note", a.Note)
}

func (c *cascade) last() probe.Attempt {
	if len(c.attempts) == 0 {
		return probe.Attempt{}
	}
	return c.attempts[len(c.attempts)-1]
}

// classify maps the last failed attempt to a failure reason.
func (c *cascade) classify() probe.FailureReason {
	a := c.last()
	switch {
	case a.Outcome == probe.OutcomeHTTPStatus, a.Note == noteHTMLBody:
		return probe.ReasonHTTPFailure
	case strings.HasPrefix(a.Note, noteEmptyBody):
		return probe.ReasonEmptyStream
	default:
		return probe.ReasonUnreachable
	}
}

func (c *cascade) runHTTP(ctx context.Context) (bool, time.Duration) {
	cfg := c.p.cfg
	target := c.entry.URI
	isPlaylist := hls.LooksLikePlaylist("", target)

	if cfg.EnableHead {
		resp, err := c.fetch(ctx, probe.StageHead, http.MethodHead, target, expectHeaders)
		if err == nil {
			if hls.LooksLikePlaylist(resp.contentType, target) {
				isPlaylist = true
			} else if resp.contentLength > 0 && !isHTML(resp.contentType) {
				return true, resp.latency
			}
		} else {
			c.reason = c.classify()
		}
		if ctx.Err() != nil {
			return false, 0
		}
	}

	if isPlaylist && cfg.EnablePlaylist {
		segment, ok := c.resolvePlaylist(ctx, target, nil, 0)
		if !ok || !cfg.EnableSegment {
			return false, 0
		}
		return c.segment(ctx, segment)
	}

	if cfg.EnableSegment {
		return c.direct(ctx, target)
	}
	return false, 0
}

// direct performs a ranged GET of the entry URI itself. A response that turns
// out to be a playlist is handed to playlist resolution.
func (c *cascade) direct(ctx context.Context, target string) (bool, time.Duration) {
	resp, err := c.fetch(ctx, probe.StageGet, http.MethodGet, target, expectChunk)
	if err != nil {
		c.reason = c.classify()
		return false, 0
	}
	if !resp.playlist {
		return true, resp.latency
	}
	if !c.p.cfg.EnablePlaylist {
		c.reason = probe.ReasonPlaylistUnresolvable
		return false, 0
	}
	segment, ok := c.resolvePlaylist(ctx, resp.finalURL.String(), resp.body, 0)
	if !ok {
		return false, 0
	}
	return c.segment(ctx, segment)
}

// resolvePlaylist follows master playlists down to the first media segment.
// body may carry an already fetched playlist for uri.
func (c *cascade) resolvePlaylist(ctx context.Context, uri string, body []byte, depth int) (string, bool) {
	base, _ := url.Parse(uri)
	if body == nil {
		resp, err := c.fetch(ctx, probe.StagePlaylist, http.MethodGet, uri, expectDocument)
		if err != nil {
			c.reason = c.classify()
			return "", false
		}
		body, base = resp.body, resp.finalURL
	}

	pl, err := hls.Parse(body, base)
	var next string
	if err == nil {
		next, err = pl.Next()
	}
	if err != nil {
		c.record(probe.Attempt{Stage: probe.StagePlaylist, Outcome: probe.OutcomeError, Note: err.Error()})
		c.reason = probe.ReasonPlaylistUnresolvable
		return "", false
	}

	if pl.Kind == hls.KindMaster {
		if depth+1 > c.p.cfg.MaxPlaylistDepth {
			c.record(probe.Attempt{Stage: probe.StagePlaylist, Outcome: probe.OutcomeError, Note: "playlist nesting too deep"})
			c.reason = probe.ReasonPlaylistUnresolvable
			return "", false
		}
		return c.resolvePlaylist(ctx, next, nil, depth+1)
	}
	return next, true
}

func (c *cascade) segment(ctx context.Context, uri string) (bool, time.Duration) {
	resp, err := c.fetch(ctx, probe.StageSegment, http.MethodGet, uri, expectChunk)
	if err != nil {
		c.reason = probe.ReasonSegmentFailure
		return false, 0
	}
	return true, resp.latency
}

// runDial opens a TCP connection to an rtmp/rtsp endpoint. It proves only
// that something listens; the decoder stage gets the final word when present.
func (c *cascade) runDial(ctx context.Context) (bool, time.Duration) {
	u, err := url.Parse(c.entry.URI)
	if err != nil {
		c.record(probe.Attempt{Stage: probe.StageGet, Outcome: probe.OutcomeError, Note: err.Error()})
		c.reason = probe.ReasonUnreachable
		return false, 0
	}
	port := u.Port()
	if port == "" {
		port = map[string]string{"rtmp": "1935", "rtsp": "554"}[c.entry.Scheme()]
	}
	addr := net.JoinHostPort(u.Hostname(), port)

	var latency time.Duration
	_, err = retry(ctx, c.p.cfg, func() (struct{}, error) {
		start := time.Now()
		conn, err := c.p.dialer.DialContext(ctx, "tcp", addr)
		elapsed := time.Since(start)
		if err != nil {
			c.record(probe.Attempt{Stage: probe.StageGet, Outcome: outcomeOf(err), Elapsed: elapsed, Note: noteTCPDial})
			return struct{}{}, err
		}
		_ = conn.Close()
		latency = elapsed
		c.record(probe.Attempt{Stage: probe.StageGet, Outcome: probe.OutcomeSuccess, Elapsed: elapsed, Note: noteTCPDial})
		return struct{}{}, nil
	})
	if err != nil {
		c.reason = probe.ReasonUnreachable
		return false, 0
	}
	return true, latency
}

// runDeepDecode applies the decoder stage to the verdict of the earlier
// stages and returns the final verdict.
func (c *cascade) runDeepDecode(ctx context.Context, ok bool, latency time.Duration) (bool, time.Duration) {
	cfg := c.p.cfg
	if !cfg.EnableDeepDecode || ctx.Err() != nil {
		if !ok && c.entry.Scheme() == "udp" {
			c.reason = probe.ReasonCapabilityUnavailable
		}
		return ok, latency
	}

	dialOnly := ok && (c.entry.Scheme() == "rtmp" || c.entry.Scheme() == "rtsp")
	wanted := !ok || dialOnly || cfg.DeepDecodeMode == DeepDecodeAlways
	if !wanted {
		return ok, latency
	}

	if c.p.decoder == nil || !c.p.decoder.Available() {
		c.record(probe.Attempt{Stage: probe.StageDeepDecode, Outcome: probe.OutcomeSkipped, Note: noteDecoderUnavailable})
		if !ok && c.reason == probe.ReasonNone {
			c.reason = probe.ReasonCapabilityUnavailable
		}
		// Without a decoder the earlier verdict stands.
		return ok, latency
	}

	for _, budget := range cfg.DeepDecodeBudgets {
		start := time.Now()
		decoded, err := c.p.decoder.Probe(ctx, c.entry.URI, budget)
		elapsed := time.Since(start)
		a := probe.Attempt{Stage: probe.StageDeepDecode, Elapsed: elapsed, Note: "budget " + budget.String()}
		switch {
		case decoded:
			a.Outcome = probe.OutcomeSuccess
		case err != nil:
			a.Outcome = outcomeOf(err)
			a.Note += ": " + err.Error()
		default:
			a.Outcome = probe.OutcomeError
			a.Note += ": no media streams"
		}
		c.record(a)

		if decoded {
			if ok {
				return true, latency
			}
			return true, elapsed
		}
		if ctx.Err() != nil {
			break
		}
	}

	c.reason = probe.ReasonUndecodable
	return false, 0
}

// retry runs op with randomized exponential backoff. Errors wrapped with
// backoff.Permanent end the loop immediately.
func retry[T any](ctx context.Context, cfg HTTPProberConfig, op backoff.Operation[T]) (T, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = cfg.BackoffInitial
	bo.MaxInterval = cfg.BackoffMax
	return backoff.Retry(ctx, op,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(cfg.Retries+1)),
	)
}

// fetch performs one stage request with retries. Every try is recorded.
func (c *cascade) fetch(ctx context.Context, stage probe.Stage, method, uri string, want expectation) (response, error) {
	return retry(ctx, c.p.cfg, func() (response, error) {
		resp, a, err := c.fetchOnce(ctx, stage, method, uri, want)
		c.record(a)
		return resp, err
	})
}

func (c *cascade) fetchOnce(ctx context.Context, stage probe.Stage, method, uri string, want expectation) (response, probe.Attempt, error) {
	cfg := c.p.cfg
	a := probe.Attempt{Stage: stage}

	attemptCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout+cfg.ReadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, method, uri, nil)
	if err != nil {
		a.Outcome, a.Note = probe.OutcomeError, err.Error()
		return response{}, a, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	if c.ua != "" {
		req.Header.Set("User-Agent", c.ua)
	}
	if want == expectChunk && cfg.SegmentWindow > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=0-%d", cfg.SegmentWindow-1))
	}

	if l := c.p.limiter(req.URL.Host); l != nil {
		if err := l.Wait(attemptCtx); err != nil {
			a.Outcome, a.Note = outcomeOf(err), "rate limit: "+err.Error()
			return response{}, a, err
		}
	}

	start := time.Now()
	resp, err := c.p.client.Do(req)
	if err != nil {
		a.Elapsed = time.Since(start)
		a.Outcome, a.Note = outcomeOf(err), err.Error()
		if ctx.Err() != nil {
			return response{}, a, backoff.Permanent(err)
		}
		return response{}, a, err
	}
	defer resp.Body.Close()

	a.StatusCode = resp.StatusCode
	out := response{
		status:        resp.StatusCode,
		contentType:   resp.Header.Get("Content-Type"),
		contentLength: resp.ContentLength,
		finalURL:      resp.Request.URL,
		latency:       time.Since(start),
	}

	if !statusOK(resp.StatusCode, method) {
		a.Elapsed = time.Since(start)
		a.Outcome = probe.OutcomeHTTPStatus
		statusErr := fmt.Errorf("unexpected status %d", resp.StatusCode)
		if retryableStatus(resp.StatusCode) {
			return out, a, statusErr
		}
		return out, a, backoff.Permanent(statusErr)
	}

	switch want {
	case expectHeaders:
		a.Elapsed = out.latency
		a.Outcome = probe.OutcomeSuccess
		return out, a, nil

	case expectDocument:
		body, err := io.ReadAll(io.LimitReader(resp.Body, cfg.PlaylistMaxBytes))
		a.Elapsed = time.Since(start)
		if err != nil {
			a.Outcome, a.Note = outcomeOf(err), err.Error()
			return out, a, err
		}
		out.body = body
		a.Outcome = probe.OutcomeSuccess
		return out, a, nil
	}

	// Error pages served with 200 are a common dead-link signature.
	if isHTML(out.contentType) {
		a.Elapsed = time.Since(start)
		a.Outcome, a.Note = probe.OutcomeError, noteHTMLBody
		return out, a, backoff.Permanent(errors.New("html response"))
	}

	chunk, ttfb, err := firstChunk(resp.Body, start)
	a.Elapsed = time.Since(start)
	if len(chunk) == 0 {
		// The status line arrived, so a silent body is an empty stream
		// whether it ended or timed out.
		a.Outcome, a.Note = probe.OutcomeError, noteEmptyBody
		if err != nil && !errors.Is(err, io.EOF) {
			a.Outcome, a.Note = outcomeOf(err), noteEmptyBody+": "+err.Error()
		}
		return out, a, errors.New("no data received")
	}
	out.latency = ttfb

	if stage == probe.StageGet && (hls.LooksLikePlaylist(out.contentType, "") || hls.HasPlaylistHeader(chunk)) {
		rest, err := io.ReadAll(io.LimitReader(resp.Body, cfg.PlaylistMaxBytes-int64(len(chunk))))
		if err != nil {
			a.Outcome, a.Note = outcomeOf(err), err.Error()
			return out, a, err
		}
		out.body = append(chunk, rest...)
		out.playlist = true
		a.Note = "playlist"
	}

	a.Outcome = probe.OutcomeSuccess
	return out, a, nil
}

// firstChunk reads until the body yields at least one byte.
func firstChunk(r io.Reader, start time.Time) ([]byte, time.Duration, error) {
	buf := make([]byte, chunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			return buf[:n], time.Since(start), nil
		}
		if err != nil {
			return nil, 0, err
		}
	}
}

func statusOK(code int, method string) bool {
	if method == http.MethodHead {
		return code >= 200 && code < 400
	}
	return code == http.StatusOK || code == http.StatusPartialContent
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

func isHTML(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "text/html")
}

func outcomeOf(err error) probe.Outcome {
	if errors.Is(err, context.DeadlineExceeded) {
		return probe.OutcomeTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return probe.OutcomeTimeout
	}
	return probe.OutcomeError
}
