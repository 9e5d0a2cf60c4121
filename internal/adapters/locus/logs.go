package locus

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bnema/locus-sync/internal/ports"
)

type logUploadRequest struct {
	CorrelationID string `json:"correlationId"`
	LocusURL      string `json:"locusUrl,omitempty"`
	MeetingNumber string `json:"meetingNumber,omitempty"`
	CallStart     string `json:"callStart,omitempty"`
}

// UploadLogs files a diagnostics upload keyed by the session identity.
func (c *Client) UploadLogs(ctx context.Context, req ports.LogUploadRequest) error {
	if c.opts.LogUploadURL == "" {
		return errors.New("upload logs: log upload url is not configured")
	}

	body := logUploadRequest{
		CorrelationID: req.CorrelationID,
		LocusURL:      req.LocusURL,
		MeetingNumber: req.MeetingNumber,
	}
	if !req.CallStart.IsZero() {
		body.CallStart = req.CallStart.UTC().Format(time.RFC3339)
	}

	if err := c.do(ctx, http.MethodPost, c.opts.LogUploadURL, body, nil); err != nil {
		return fmt.Errorf("upload logs for %s: %w", req.CorrelationID, err)
	}
	return nil
}
