// Package modlinks fetches the published mod catalog and modding API manifest.
package modlinks

import (
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"runtime"
	"time"

	"butterfly/internal/domain"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

const (
	DefaultModLinksURL = "https://raw.githubusercontent.com/hk-modding/modlinks/main/ModLinks.xml"
	DefaultAPILinksURL = "https://raw.githubusercontent.com/hk-modding/modlinks/main/ApiLinks.xml"

	// DefaultTimeout bounds a single catalog request
	DefaultTimeout = 30 * time.Second

	// maxDocumentSize caps how much of a catalog response is read
	maxDocumentSize = 32 << 20
)

// Client fetches ModLinks.xml and ApiLinks.xml
type Client struct {
	httpClient  *http.Client
	modLinksURL string
	apiLinksURL string
	timeout     time.Duration
	goos        string
}

// Option configures a Client
type Option func(*Client)

// WithURLs overrides the catalog locations. Empty values keep the defaults.
func WithURLs(modLinks, apiLinks string) Option {
	return func(c *Client) {
		if modLinks != "" {
			c.modLinksURL = modLinks
		}
		if apiLinks != "" {
			c.apiLinksURL = apiLinks
		}
	}
}

// WithTimeout sets the per-request timeout. Zero keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithOS selects which platform's link is used for multi-platform entries
func WithOS(goos string) Option {
	return func(c *Client) {
		c.goos = goos
	}
}

// NewClient creates a catalog client
// If httpClient is nil, http.DefaultClient is used
func NewClient(httpClient *http.Client, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &Client{
		httpClient:  httpClient,
		modLinksURL: DefaultModLinksURL,
		apiLinksURL: DefaultAPILinksURL,
		timeout:     DefaultTimeout,
		goos:        runtime.GOOS,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchMods downloads and parses the mod catalog
func (c *Client) FetchMods(ctx context.Context) ([]domain.ModManifestEntry, error) {
	var doc modLinksXML
	if err := c.fetchXML(ctx, c.modLinksURL, &doc); err != nil {
		return nil, err
	}

	mods := make([]domain.ModManifestEntry, 0, len(doc.Manifests))
	for _, m := range doc.Manifests {
		entry := m.toDomain(c.goos)
		if entry.Name == "" {
			continue
		}
		mods = append(mods, entry)
	}

	zerolog.Ctx(ctx).Debug().Int("mods", len(mods)).Str("url", c.modLinksURL).Msg("fetched mod catalog")
	return mods, nil
}

// FetchAPI downloads and parses the modding API manifest
func (c *Client) FetchAPI(ctx context.Context) (*domain.APIManifest, error) {
	var doc apiLinksXML
	if err := c.fetchXML(ctx, c.apiLinksURL, &doc); err != nil {
		return nil, err
	}

	return &domain.APIManifest{
		Version: doc.Manifest.Version,
		Links:   doc.Manifest.Links.toDomain(),
		Files:   doc.Manifest.Files,
	}, nil
}

func (c *Client) fetchXML(ctx context.Context, url string, v any) (err error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.NetworkError("", url, err)
	}
	req.Header.Set("Accept", "application/xml, text/xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NetworkError("", url, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); err == nil && cerr != nil {
			err = domain.NetworkError("", url, cerr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return domain.NetworkError("", url, errors.Errorf("unexpected status %s", resp.Status))
	}

	if err := xml.NewDecoder(io.LimitReader(resp.Body, maxDocumentSize)).Decode(v); err != nil {
		if ctx.Err() != nil {
			return domain.NetworkError("", url, ctx.Err())
		}
		return errors.Errorf("parsing %s: %w", url, err)
	}
	return nil
}
