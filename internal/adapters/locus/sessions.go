package locus

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/bnema/locus-sync/internal/domain"
)

const lociPath = "/loci"

// ListActive returns the sessions the home cluster holds for this user.
func (c *Client) ListActive(ctx context.Context) (domain.ActiveSessions, error) {
	return c.listLoci(ctx, c.opts.BaseURL)
}

// ListRemote returns the sessions held by another locus cluster. Remote
// clusters never point further.
func (c *Client) ListRemote(ctx context.Context, clusterURL string) (domain.ActiveSessions, error) {
	active, err := c.listLoci(ctx, strings.TrimRight(clusterURL, "/"))
	if err != nil {
		return domain.ActiveSessions{}, err
	}
	active.RemoteClusterURLs = nil
	return active, nil
}

func (c *Client) listLoci(ctx context.Context, baseURL string) (domain.ActiveSessions, error) {
	if baseURL == "" {
		return domain.ActiveSessions{}, fmt.Errorf("list loci: %w: cluster url is empty", domain.ErrSyncTransport)
	}

	var active domain.ActiveSessions
	if err := c.do(ctx, http.MethodGet, baseURL+lociPath, nil, &active); err != nil {
		return domain.ActiveSessions{}, fmt.Errorf("list loci on %s: %w", baseURL, err)
	}

	loci := active.Loci[:0]
	for _, record := range active.Loci {
		if record != nil && record.URL != "" {
			loci = append(loci, record)
		}
	}
	active.Loci = loci
	return active, nil
}
