// Package lookup resolves player profiles and the host's addresses.
package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	DefaultProfileURL = "https://api.mojang.com/users/profiles/minecraft/"
	DefaultIPURL      = "https://api.ipify.org?format=json"
	DefaultCacheSize  = 1024
	DefaultTimeout    = 10 * time.Second
)

// ErrProfileNotFound is returned when no account has the requested name.
var ErrProfileNotFound = errors.New("lookup: profile not found")

// Options configures a Resolver.
type Options struct {
	HTTPClient *http.Client
	UserAgent  string
	ProfileURL string
	IPURL      string
	CacheSize  int
}

// Resolver looks up player UUIDs (cached by lower-cased name) and the
// external IP address.
type Resolver struct {
	http       *http.Client
	userAgent  string
	profileURL string
	ipURL      string
	cache      *lru.Cache[string, string]
}

// NewResolver creates a resolver.
func NewResolver(opts Options) (*Resolver, error) {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: DefaultTimeout}
	}
	if opts.ProfileURL == "" {
		opts.ProfileURL = DefaultProfileURL
	}
	if opts.IPURL == "" {
		opts.IPURL = DefaultIPURL
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, string](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("lookup: create cache: %w", err)
	}
	return &Resolver{
		http:       opts.HTTPClient,
		userAgent:  opts.UserAgent,
		profileURL: opts.ProfileURL,
		ipURL:      opts.IPURL,
		cache:      cache,
	}, nil
}

func (r *Resolver) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}
	return r.http.Do(req)
}

// UUID returns the account id for a player name. Only hits are cached.
func (r *Resolver) UUID(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrProfileNotFound
	}
	key := strings.ToLower(name)
	if id, ok := r.cache.Get(key); ok {
		return id, nil
	}

	resp, err := r.get(ctx, r.profileURL+url.PathEscape(name))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusNotFound:
		return "", ErrProfileNotFound
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return "", fmt.Errorf("lookup: profile HTTP %d", resp.StatusCode)
	}

	var body struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("lookup: decode profile: %w", err)
	}
	if body.ID == "" {
		return "", ErrProfileNotFound
	}
	r.cache.Add(key, body.ID)
	return body.ID, nil
}

// ExternalIP returns the public address as seen by the IP echo service, or
// "" when it cannot be determined.
func (r *Resolver) ExternalIP(ctx context.Context) string {
	resp, err := r.get(ctx, r.ipURL)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ""
	}
	var body struct {
		IP string `json:"ip"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return ""
	}
	return body.IP
}

// LocalIPs returns the non-loopback IPv4 addresses of this host.
func LocalIPs() []string {
	out := []string{}
	ifaces, err := net.Interfaces()
	if err != nil {
		return out
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipnet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			if ip4 := ipnet.IP.To4(); ip4 != nil && !ip4.IsLoopback() {
				out = append(out, ip4.String())
			}
		}
	}
	return out
}
