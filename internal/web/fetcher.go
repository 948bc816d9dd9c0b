// Package web fetches pages and turns them into plain text, honouring robots.txt
// and a fixed politeness delay.
package web

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

const (
	DefaultUserAgent = "Smart Building AI Assistant/1.0 (Educational Research)"
	DefaultDelay     = time.Second
	DefaultTimeout   = 30 * time.Second

	// MinContentLength is the shortest trimmed page text worth ingesting.
	MinContentLength = 100

	maxBodyBytes = 10 << 20
)

// Config controls fetch behaviour.
type Config struct {
	UserAgent string
	Delay     time.Duration
	Timeout   time.Duration
}

// DefaultConfig returns the production settings.
func DefaultConfig() Config {
	return Config{
		UserAgent: DefaultUserAgent,
		Delay:     DefaultDelay,
		Timeout:   DefaultTimeout,
	}
}

// Page is the extracted text of one URL.
type Page struct {
	URL         string
	Title       string
	ContentType string
	Text        string
	// InsecureTLS is set when the page was fetched without certificate verification.
	InsecureTLS bool
}

// Fetcher retrieves pages. It is safe for concurrent use.
type Fetcher struct {
	cfg      Config
	client   *http.Client
	insecure *http.Client
	logger   *slog.Logger

	mu     sync.Mutex
	robots map[string]*robotstxt.RobotsData
}

func NewFetcher(cfg Config, logger *slog.Logger) *Fetcher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	insecureTransport := http.DefaultTransport.(*http.Transport).Clone()
	insecureTransport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}

	return &Fetcher{
		cfg:      cfg,
		client:   &http.Client{Timeout: cfg.Timeout},
		insecure: &http.Client{Timeout: cfg.Timeout, Transport: insecureTransport},
		logger:   logger,
		robots:   make(map[string]*robotstxt.RobotsData),
	}
}

// Extract fetches rawURL and returns its text.
func (f *Fetcher) Extract(ctx context.Context, rawURL string) (*Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	if !f.allowed(ctx, u) {
		return nil, fmt.Errorf("%w: %s", ErrDisallowed, rawURL)
	}

	if err := f.wait(ctx); err != nil {
		return nil, err
	}

	resp, insecure, err := f.get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &FetchError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	page, err := render(rawURL, contentType, body)
	if err != nil {
		return nil, err
	}
	page.ContentType = contentType
	page.InsecureTLS = insecure
	return page, nil
}

// wait sleeps for the configured delay unless ctx ends first.
func (f *Fetcher) wait(ctx context.Context) error {
	if f.cfg.Delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(f.cfg.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// get performs the request, retrying once without certificate verification
// when the first attempt fails verification.
func (f *Fetcher) get(ctx context.Context, rawURL string) (*http.Response, bool, error) {
	resp, err := f.do(ctx, f.client, rawURL)
	if err == nil {
		return resp, false, nil
	}
	if !isCertificateError(err) {
		return nil, false, &FetchError{URL: rawURL, Err: err}
	}

	f.logger.Warn("TLS verification failed, retrying without verification", "url", rawURL, "error", err)

	resp, fallbackErr := f.do(ctx, f.insecure, rawURL)
	if fallbackErr != nil {
		return nil, false, &FetchError{URL: rawURL, Err: err, Fallback: fallbackErr}
	}
	f.logger.Warn("Fetched without TLS verification", "url", rawURL)
	return resp, true, nil
}

func (f *Fetcher) do(ctx context.Context, client *http.Client, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	return client.Do(req)
}

func isCertificateError(err error) bool {
	var verifyErr *tls.CertificateVerificationError
	var unknownAuthority x509.UnknownAuthorityError
	var hostname x509.HostnameError
	var invalid x509.CertificateInvalidError
	return errors.As(err, &verifyErr) ||
		errors.As(err, &unknownAuthority) ||
		errors.As(err, &hostname) ||
		errors.As(err, &invalid)
}

// allowed checks the host's robots.txt. An unreachable robots.txt permits the fetch.
func (f *Fetcher) allowed(ctx context.Context, u *url.URL) bool {
	robots := f.robotsFor(ctx, u)
	if robots == nil {
		return true
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return robots.TestAgent(path, f.cfg.UserAgent)
}

func (f *Fetcher) robotsFor(ctx context.Context, u *url.URL) *robotstxt.RobotsData {
	key := u.Scheme + "://" + u.Host

	f.mu.Lock()
	cached, ok := f.robots[key]
	f.mu.Unlock()
	if ok {
		return cached
	}

	robots := f.fetchRobots(ctx, key+"/robots.txt")

	f.mu.Lock()
	f.robots[key] = robots
	f.mu.Unlock()
	return robots
}

func (f *Fetcher) fetchRobots(ctx context.Context, robotsURL string) *robotstxt.RobotsData {
	resp, err := f.do(ctx, f.client, robotsURL)
	if err != nil {
		f.logger.Debug("robots.txt unreachable, permitting", "url", robotsURL, "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil
	}
	robots, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		f.logger.Debug("robots.txt unparsable, permitting", "url", robotsURL, "error", err)
		return nil
	}
	return robots
}
