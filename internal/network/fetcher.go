package network

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	fhttp "github.com/bogdanfinn/fhttp"
	"github.com/rs/zerolog"
	"golang.org/x/net/html/charset"
)

const (
	DefaultTimeout    = 10 * time.Second
	DefaultMaxRetries = 3
	DefaultBackoff    = 300 * time.Millisecond

	maxBodyBytes = 8 << 20
)

var retryableStatus = map[int]bool{
	fhttp.StatusInternalServerError: true,
	fhttp.StatusBadGateway:          true,
	fhttp.StatusServiceUnavailable:  true,
	fhttp.StatusGatewayTimeout:      true,
}

var blockedTitles = []string{"access denied", "bot detected", "captcha", "security check", "forbidden"}

const captchaSelectors = "#captcha, .captcha, #recaptcha, .g-recaptcha"

// Page is a fetched and parsed HTML document.
type Page struct {
	URL    string
	Status int
	Doc    *goquery.Document
}

type FetcherOptions struct {
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
	Limiter    *RateLimiter
	Robots     *RobotsPolicy
	Sleep      SleepFunc
	Logger     zerolog.Logger
}

// Fetcher retrieves pages for one source: robots check, rate limit, GET with
// retry, parse, block detection. Every failure is a *FetchError.
type Fetcher struct {
	doer       Doer
	userAgent  string
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
	limiter    *RateLimiter
	robots     *RobotsPolicy
	sleep      SleepFunc
	log        zerolog.Logger
}

func NewFetcher(doer Doer, opts FetcherOptions) *Fetcher {
	f := &Fetcher{
		doer:       doer,
		userAgent:  opts.UserAgent,
		timeout:    opts.Timeout,
		maxRetries: opts.MaxRetries,
		backoff:    opts.Backoff,
		limiter:    opts.Limiter,
		robots:     opts.Robots,
		sleep:      opts.Sleep,
		log:        opts.Logger,
	}
	if f.timeout <= 0 {
		f.timeout = DefaultTimeout
	}
	if f.maxRetries < 0 {
		f.maxRetries = 0
	}
	if f.backoff <= 0 {
		f.backoff = DefaultBackoff
	}
	if f.sleep == nil {
		f.sleep = Sleep
	}
	return f
}

func (f *Fetcher) Fetch(ctx context.Context, target string, headers map[string]string) (*Page, error) {
	if !f.robots.Allowed(ctx, target) {
		return nil, fetchError(ErrPolicyDenied, target, 0, nil)
	}
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fetchError(ErrFetchFailed, target, 0, err)
	}

	status, contentType, body, err := f.getWithRetry(ctx, target, headers)
	if err != nil {
		return nil, fetchError(ErrFetchFailed, target, status, err)
	}

	doc, err := parseDocument(body, contentType)
	if err != nil {
		return nil, fetchError(ErrParseFailed, target, status, err)
	}
	if reason, blocked := DetectBlock(doc); blocked {
		return nil, fetchError(ErrBlocked, target, status, errors.New(reason))
	}

	return &Page{URL: target, Status: status, Doc: doc}, nil
}

func (f *Fetcher) getWithRetry(ctx context.Context, target string, headers map[string]string) (int, string, []byte, error) {
	for attempt := 0; ; attempt++ {
		status, contentType, body, err := f.get(ctx, target, headers)
		if err == nil && status >= 200 && status < 300 {
			return status, contentType, body, nil
		}
		if err == nil {
			err = fmt.Errorf("http %d", status)
		}

		retryable := retryableStatus[status] || (status == 0 && ctx.Err() == nil)
		if !retryable || attempt >= f.maxRetries {
			return status, "", nil, err
		}

		wait := f.backoff << attempt
		f.log.Debug().Str("url", target).Int("attempt", attempt+1).Dur("backoff", wait).Err(err).Msg("retrying request")
		if err := f.sleep(ctx, wait); err != nil {
			return status, "", nil, err
		}
		// Retries spend the source budget like any other request.
		if err := f.limiter.Wait(ctx); err != nil {
			return status, "", nil, err
		}
	}
}

func (f *Fetcher) get(ctx context.Context, target string, headers map[string]string) (int, string, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := fhttp.NewRequestWithContext(ctx, fhttp.MethodGet, target, nil)
	if err != nil {
		return 0, "", nil, err
	}
	applyHeaders(req, headers, f.userAgent)

	resp, err := f.doer.Do(req)
	if err != nil {
		return 0, "", nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, "", nil, err
	}
	return resp.StatusCode, resp.Header.Get("Content-Type"), body, nil
}

func applyHeaders(req *fhttp.Request, headers map[string]string, userAgent string) {
	defaults := map[string]string{
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "fr-FR,fr;q=0.9,en-US;q=0.8,en;q=0.7",
	}
	if userAgent != "" {
		defaults["User-Agent"] = userAgent
	}
	for key, value := range defaults {
		req.Header.Set(key, value)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
}

func parseDocument(body []byte, contentType string) (*goquery.Document, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("empty body")
	}
	reader, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		reader = bytes.NewReader(body)
	}
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, err
	}
	if doc.Find("body *").Length() == 0 && strings.TrimSpace(doc.Text()) == "" {
		return nil, errors.New("document has no content")
	}
	return doc, nil
}

// DetectBlock reports whether doc is an anti-bot or captcha interstitial.
func DetectBlock(doc *goquery.Document) (string, bool) {
	title := strings.ToLower(strings.TrimSpace(doc.Find("title").First().Text()))
	for _, phrase := range blockedTitles {
		if strings.Contains(title, phrase) {
			return "title: " + phrase, true
		}
	}
	if doc.Find(captchaSelectors).Length() > 0 {
		return "captcha widget", true
	}
	return "", false
}
