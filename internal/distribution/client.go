// Package distribution looks up and downloads server jars from the Mojang
// and PaperMC distribution APIs.
package distribution

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"
)

const (
	DefaultManifestURL = "https://piston-meta.mojang.com/mc/game/version_manifest.json"
	DefaultPaperURL    = "https://api.papermc.io/v2/projects/paper"
	DefaultUserAgent   = "craftpanel"
	DefaultTimeout     = 5 * time.Minute

	TypeVanilla = "vanilla"
	TypePaper   = "paper"
)

var (
	ErrUnknownType       = errors.New("distribution: unknown server type")
	ErrBuildsUnsupported = errors.New("distribution: builds are only listed for paper")
	ErrVersionNotFound   = errors.New("distribution: version not found")
	ErrDownloadNotFound  = errors.New("distribution: download not found")
)

// VersionList is the set of installable versions for one server type.
type VersionList struct {
	Versions []string `json:"versions"`
	Latest   string   `json:"latest"`
}

// Options configures a Client. Zero values use the public endpoints.
type Options struct {
	HTTPClient  *http.Client
	UserAgent   string
	ManifestURL string
	PaperURL    string
	Timeout     time.Duration
}

// Client talks to the distribution APIs.
type Client struct {
	http        *http.Client
	userAgent   string
	manifestURL string
	paperURL    string
}

// NewClient creates a distribution client.
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.ManifestURL == "" {
		opts.ManifestURL = DefaultManifestURL
	}
	if opts.PaperURL == "" {
		opts.PaperURL = DefaultPaperURL
	}
	return &Client{
		http:        opts.HTTPClient,
		userAgent:   opts.UserAgent,
		manifestURL: opts.ManifestURL,
		paperURL:    opts.PaperURL,
	}
}

type vanillaManifest struct {
	Latest struct {
		Release string `json:"release"`
	} `json:"latest"`
	Versions []struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		URL  string `json:"url"`
	} `json:"versions"`
}

type vanillaVersionDetail struct {
	Downloads struct {
		Server struct {
			URL string `json:"url"`
		} `json:"server"`
	} `json:"downloads"`
}

type paperProject struct {
	Versions []string `json:"versions"`
}

type paperVersionInfo struct {
	Builds []int `json:"builds"`
}

type paperBuildInfo struct {
	Downloads map[string]struct {
		Name string `json:"name"`
	} `json:"downloads"`
}

func (c *Client) getJSON(ctx context.Context, rawURL string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("distribution: GET %s: HTTP %d", rawURL, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("distribution: decode %s: %w", rawURL, err)
	}
	return nil
}

// Versions lists installable versions of serverType.
func (c *Client) Versions(ctx context.Context, serverType string) (VersionList, error) {
	switch serverType {
	case TypeVanilla:
		return c.VanillaVersions(ctx)
	case TypePaper:
		return c.PaperVersions(ctx)
	}
	return VersionList{}, ErrUnknownType
}

// Builds lists the builds of a version. Only paper has builds.
func (c *Client) Builds(ctx context.Context, serverType, version string) ([]int, error) {
	if serverType != TypePaper {
		return nil, ErrBuildsUnsupported
	}
	return c.PaperBuilds(ctx, version)
}

// VanillaVersions returns release versions in manifest order.
func (c *Client) VanillaVersions(ctx context.Context) (VersionList, error) {
	var m vanillaManifest
	if err := c.getJSON(ctx, c.manifestURL, &m); err != nil {
		return VersionList{}, err
	}
	out := VersionList{Versions: []string{}, Latest: m.Latest.Release}
	for _, v := range m.Versions {
		if v.Type == "release" {
			out.Versions = append(out.Versions, v.ID)
		}
	}
	return out, nil
}

// VanillaServerURL resolves the server jar URL of a vanilla version.
func (c *Client) VanillaServerURL(ctx context.Context, version string) (string, error) {
	var m vanillaManifest
	if err := c.getJSON(ctx, c.manifestURL, &m); err != nil {
		return "", err
	}
	for _, v := range m.Versions {
		if v.ID != version {
			continue
		}
		if v.URL == "" {
			break
		}
		var detail vanillaVersionDetail
		if err := c.getJSON(ctx, v.URL, &detail); err != nil {
			return "", err
		}
		if detail.Downloads.Server.URL == "" {
			return "", ErrDownloadNotFound
		}
		return detail.Downloads.Server.URL, nil
	}
	return "", ErrVersionNotFound
}

// PaperVersions returns paper versions sorted oldest first; Latest is the
// newest.
func (c *Client) PaperVersions(ctx context.Context) (VersionList, error) {
	var p paperProject
	if err := c.getJSON(ctx, c.paperURL, &p); err != nil {
		return VersionList{}, err
	}
	versions := append([]string{}, p.Versions...)
	SortVersions(versions)
	out := VersionList{Versions: versions}
	if len(versions) > 0 {
		out.Latest = versions[len(versions)-1]
	}
	return out, nil
}

// PaperBuilds returns the build numbers of a paper version as published.
func (c *Client) PaperBuilds(ctx context.Context, version string) ([]int, error) {
	var v paperVersionInfo
	if err := c.getJSON(ctx, c.paperURL+"/versions/"+url.PathEscape(version), &v); err != nil {
		return nil, err
	}
	if v.Builds == nil {
		return []int{}, nil
	}
	return v.Builds, nil
}

// PaperDownloadURL resolves the application jar of a paper build.
func (c *Client) PaperDownloadURL(ctx context.Context, version string, build int) (string, error) {
	base := c.paperURL + "/versions/" + url.PathEscape(version) + "/builds/" + strconv.Itoa(build)
	var b paperBuildInfo
	if err := c.getJSON(ctx, base, &b); err != nil {
		return "", err
	}
	app, ok := b.Downloads["application"]
	if !ok || app.Name == "" {
		return "", ErrDownloadNotFound
	}
	return base + "/downloads/" + url.PathEscape(app.Name), nil
}

// Resolve picks the download URL for an install request. For paper an empty
// build selects the latest one. It returns the build actually used.
func (c *Client) Resolve(ctx context.Context, serverType, version, build string) (string, string, error) {
	switch serverType {
	case TypeVanilla:
		u, err := c.VanillaServerURL(ctx, version)
		return u, "", err
	case TypePaper:
		var n int
		if build == "" {
			builds, err := c.PaperBuilds(ctx, version)
			if err != nil {
				return "", "", err
			}
			if len(builds) == 0 {
				return "", "", ErrVersionNotFound
			}
			n = builds[len(builds)-1]
		} else {
			var err error
			if n, err = strconv.Atoi(build); err != nil {
				return "", "", fmt.Errorf("distribution: invalid build %q", build)
			}
		}
		u, err := c.PaperDownloadURL(ctx, version, n)
		return u, strconv.Itoa(n), err
	}
	return "", "", ErrUnknownType
}

// Download fetches rawURL into dest. Redirects are followed; any final
// status outside 2xx fails. dest is only replaced once the body is fully
// written.
func (c *Client) Download(ctx context.Context, rawURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("distribution: download failed (%d)", resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	tmp := dest + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("distribution: write %s: %w", dest, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dest)
}

// SortVersions orders version strings with digit runs compared numerically,
// so 1.9 sorts before 1.10.
func SortVersions(versions []string) {
	sort.SliceStable(versions, func(i, j int) bool {
		return compareNatural(versions[i], versions[j]) < 0
	})
}

func compareNatural(a, b string) int {
	for a != "" && b != "" {
		ca, cb := a[0], b[0]
		if isDigit(ca) && isDigit(cb) {
			na, restA := splitDigits(a)
			nb, restB := splitDigits(b)
			if c := compareDigitRuns(na, nb); c != 0 {
				return c
			}
			a, b = restA, restB
			continue
		}
		if ca != cb {
			if ca < cb {
				return -1
			}
			return 1
		}
		a, b = a[1:], b[1:]
	}
	switch {
	case a == "" && b == "":
		return 0
	case a == "":
		return -1
	}
	return 1
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func splitDigits(s string) (string, string) {
	i := 0
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	return s[:i], s[i:]
}

func compareDigitRuns(a, b string) int {
	for len(a) > 1 && a[0] == '0' {
		a = a[1:]
	}
	for len(b) > 1 && b[0] == '0' {
		b = b[1:]
	}
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
