package network

import (
	"math/rand"
	"net/url"
	"sync"
	"time"

	fhttp "github.com/bogdanfinn/fhttp"
	fhttpcookiejar "github.com/bogdanfinn/fhttp/cookiejar"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
)

// Doer is the request surface the fetcher and robots policy need.
type Doer interface {
	Do(req *fhttp.Request) (*fhttp.Response, error)
}

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

// Client is a browser-fingerprinted HTTP client with a cookie jar and optional
// proxy rotation. One Client serves one source.
type Client struct {
	http       tls_client.HttpClient
	rotator    *Rotator
	userAgents []string

	mu   sync.Mutex
	rand *rand.Rand
}

func NewClient(rotator *Rotator, timeout time.Duration) (*Client, error) {
	jar, _ := fhttpcookiejar.New(nil)
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client, err := tls_client.NewHttpClient(
		tls_client.NewNoopLogger(),
		tls_client.WithClientProfile(profiles.Chrome_120),
		tls_client.WithTimeoutSeconds(int(timeout.Round(time.Second)/time.Second)),
		tls_client.WithCookieJar(jar),
	)
	if err != nil {
		return nil, err
	}

	return &Client{
		http:       client,
		rotator:    rotator,
		userAgents: append([]string{}, userAgents...),
		rand:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

func (c *Client) Do(req *fhttp.Request) (*fhttp.Response, error) {
	proxy := c.rotateProxy()
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.randomUA())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if proxy != nil {
			c.rotator.Report(proxy, 0)
		}
		return nil, err
	}
	if proxy != nil {
		c.rotator.Report(proxy, resp.StatusCode)
	}
	return resp, nil
}

// rotateProxy switches to the next healthy proxy. With no proxies configured
// (or all banned) requests go out directly.
func (c *Client) rotateProxy() *url.URL {
	if c.rotator == nil {
		return nil
	}
	proxy, err := c.rotator.Next()
	if err != nil {
		return nil
	}
	_ = c.http.SetProxy(proxy.String())
	return proxy
}

func (c *Client) randomUA() string {
	if len(c.userAgents) == 0 {
		return ""
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userAgents[c.rand.Intn(len(c.userAgents))]
}
