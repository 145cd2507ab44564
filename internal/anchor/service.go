// Package anchor delivers post-ingestion events to the external
// anchoring/notification service.
//
// Calls are fire-and-forget: failures are returned so the caller can log
// them locally, but nothing here ever rolls back an ingestion. A noop
// implementation is returned when anchoring is disabled so stages need no
// conditional HTTP glue.
package anchor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"airchart/internal/config"
)

const userAgent = "airchart/0.1.0"

// Service is the anchoring surface exposed to batch stages.
type Service interface {
	NotifyIngested(ctx context.Context, sourceFile string, week, year, rows int) error
}

// NewService builds an anchoring client from config. When anchoring is
// disabled or no URL is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil || !cfg.Anchor.Enabled || cfg.Anchor.URL == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Anchor.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &httpService{
		endpoint: cfg.Anchor.URL,
		client:   &http.Client{Timeout: timeout},
	}
}

type httpService struct {
	endpoint string
	client   *http.Client
}

type ingestedEvent struct {
	Event      string `json:"event"`
	SourceFile string `json:"source_file"`
	ReportWeek int    `json:"report_week"`
	ReportYear int    `json:"report_year"`
	RowCount   int    `json:"row_count"`
}

func (s *httpService) NotifyIngested(ctx context.Context, sourceFile string, week, year, rows int) error {
	payload, err := json.Marshal(ingestedEvent{
		Event:      "report_ingested",
		SourceFile: sourceFile,
		ReportWeek: week,
		ReportYear: year,
		RowCount:   rows,
	})
	if err != nil {
		return fmt.Errorf("marshal anchor event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build anchor request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post anchor event: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("anchor service returned status %d", resp.StatusCode)
	}
	return nil
}

type noopService struct{}

func (noopService) NotifyIngested(context.Context, string, int, int, int) error { return nil }
