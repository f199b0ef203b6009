// Package resolve probes ambiguous URLs and turns indirect download pages
// into concrete direct links.
package resolve

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"telegram-mirror-bot/internal/logutils"
)

// FatalPrefix marks a resolver error message that must fail the task rather
// than fall back to a plain direct download.
const FatalPrefix = "ERROR:"

// DirectLinkResolver converts an indirect download page into a direct link.
// A returned error whose message starts with FatalPrefix is fatal; any other
// error lets the dispatcher fall back to fetching the original URL.
type DirectLinkResolver interface {
	Resolve(ctx context.Context, link string) (string, error)
}

// IsFatal reports whether a resolver error carries the fatal marker.
func IsFatal(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), FatalPrefix)
}

// Prober answers whether a URL serves an HTML or plain-text page instead of
// a downloadable payload.
type Prober struct {
	client *http.Client
}

func NewProber(client *http.Client) *Prober {
	if client == nil {
		client = http.DefaultClient
	}
	return &Prober{client: client}
}

// IsIndirect fetches the URL headers and reports true for text/html and
// text/plain responses. Other content types, and probe failures, proceed
// straight to direct download.
func (p *Prober) IsIndirect(ctx context.Context, link string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, http.NoBody)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		logutils.Log.WithError(err).Debugf("Content-type probe failed for %s", link)
		return false
	}
	resp.Body.Close()

	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "text/plain"
}

// ChainedResolver tries each resolver in order until one claims the link.
type ChainedResolver []DirectLinkResolver

func (c ChainedResolver) Resolve(ctx context.Context, link string) (string, error) {
	for _, r := range c {
		resolved, err := r.Resolve(ctx, link)
		if err == nil {
			return resolved, nil
		}
		if IsFatal(err) {
			return "", err
		}
	}
	return "", fmt.Errorf("no resolver recognized %s", link)
}
