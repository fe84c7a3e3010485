package network

import (
	"bufio"
	"context"
	"io"
	"net/url"
	"strings"
	"sync"

	fhttp "github.com/bogdanfinn/fhttp"
)

// RobotsRules holds the Allow/Disallow prefixes that apply to one user-agent.
// The longest matching prefix wins; Allow wins ties.
type RobotsRules struct {
	allow    []string
	disallow []string
}

func (r *RobotsRules) Allowed(path string) bool {
	if r == nil {
		return true
	}
	path = normalizePath(path)
	best, allowed := -1, true
	for _, prefix := range r.disallow {
		if strings.HasPrefix(path, prefix) && len(prefix) > best {
			best, allowed = len(prefix), false
		}
	}
	for _, prefix := range r.allow {
		if strings.HasPrefix(path, prefix) && len(prefix) >= best {
			best, allowed = len(prefix), true
		}
	}
	return allowed
}

// ParseRobots returns the rules of the group naming userAgent, falling back to the "*" group.
func ParseRobots(body []byte, userAgent string) *RobotsRules {
	var (
		named, wildcard *RobotsRules
		current         []*RobotsRules
		inAgents        bool
	)
	token := robotsToken(userAgent)

	scanner := bufio.NewScanner(strings.NewReader(string(body)))
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		key, value, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "user-agent":
			if !inAgents {
				current = nil
			}
			inAgents = true
			agent := strings.ToLower(value)
			switch {
			case agent == "*":
				if wildcard == nil {
					wildcard = &RobotsRules{}
				}
				current = append(current, wildcard)
			case agent != "" && token != "" && strings.Contains(token, agent):
				if named == nil {
					named = &RobotsRules{}
				}
				current = append(current, named)
			}
		case "allow", "disallow":
			inAgents = false
			if value == "" {
				continue
			}
			for _, rules := range current {
				if key == "allow" {
					rules.allow = append(rules.allow, normalizePath(value))
				} else {
					rules.disallow = append(rules.disallow, normalizePath(value))
				}
			}
		default:
			inAgents = false
		}
	}

	if named != nil {
		return named
	}
	if wildcard != nil {
		return wildcard
	}
	return &RobotsRules{}
}

// robotsToken reduces "Mozilla/5.0 (...) Chrome/120" to "mozilla".
func robotsToken(userAgent string) string {
	token, _, _ := strings.Cut(strings.TrimSpace(userAgent), "/")
	return strings.ToLower(strings.TrimSpace(token))
}

func normalizePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if p[0] != '/' {
		return "/" + p
	}
	return p
}

// PathFromURL returns the path (and query) of rawURL, or "/" if it cannot be parsed.
func PathFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "/"
	}
	path := u.EscapedPath()
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return normalizePath(path)
}

// RobotsPolicy fetches and caches robots.txt per host. A robots.txt that cannot be
// read allows everything.
type RobotsPolicy struct {
	doer      Doer
	userAgent string

	mu    sync.Mutex
	rules map[string]*RobotsRules
}

func NewRobotsPolicy(doer Doer, userAgent string) *RobotsPolicy {
	return &RobotsPolicy{doer: doer, userAgent: userAgent, rules: map[string]*RobotsRules{}}
}

func (p *RobotsPolicy) Allowed(ctx context.Context, target string) bool {
	if p == nil {
		return true
	}
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return true
	}
	origin := u.Scheme + "://" + u.Host

	p.mu.Lock()
	rules, ok := p.rules[origin]
	p.mu.Unlock()
	if !ok {
		rules = p.load(ctx, origin)
		p.mu.Lock()
		p.rules[origin] = rules
		p.mu.Unlock()
	}
	return rules.Allowed(PathFromURL(target))
}

func (p *RobotsPolicy) load(ctx context.Context, origin string) *RobotsRules {
	req, err := fhttp.NewRequestWithContext(ctx, fhttp.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}
	resp, err := p.doer.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != fhttp.StatusOK {
		return nil
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 512<<10))
	if err != nil {
		return nil
	}
	return ParseRobots(body, p.userAgent)
}
