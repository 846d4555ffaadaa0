package shotgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/shootsim/internal/domain/model"
	"github.com/okian/shootsim/pkg/logger"
)

const (
	maxAttempts  = 8
	retryBackoff = 20 * time.Millisecond
)

type outcome int

const (
	outcomeAccepted outcome = iota
	outcomeDuplicate
	outcomeFailed
)

// httpClient wraps http.Client with JSON helpers.
type httpClient struct {
	client *http.Client
}

func newHTTPClient(timeout time.Duration) *httpClient {
	return &httpClient{client: &http.Client{Timeout: timeout}}
}

func (c *httpClient) get(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	if v == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func (c *httpClient) post(ctx context.Context, url string, body any) (int, []byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	return resp.StatusCode, out, err
}

// submitHTTP posts shots with cfg.Workers concurrent submitters. A 429 is
// retried with a growing backoff.
func submitHTTP(ctx context.Context, cfg *Config, shots []model.Shot, stats *Stats) {
	log := logger.Get().Named("shotgen")
	log.Info(ctx, "submitting shots", logger.Int("shots", len(shots)), logger.Int("workers", cfg.Workers))

	client := newHTTPClient(cfg.Timeout)
	url := cfg.BaseURL + "/shots"

	var submitted, accepted, duplicate, failed, retried atomic.Int64
	ch := make(chan model.Shot, cfg.Workers*2)
	var wg sync.WaitGroup

	for i := 0; i < max(cfg.Workers, 1); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for shot := range ch {
				res, retries := submitOne(ctx, client, url, shot)
				submitted.Add(1)
				retried.Add(int64(retries))
				switch res {
				case outcomeAccepted:
					accepted.Add(1)
				case outcomeDuplicate:
					duplicate.Add(1)
				default:
					failed.Add(1)
					if cfg.Verbose {
						log.Warn(ctx, "shot rejected", logger.String("shot_id", shot.ID))
					}
				}
			}
		}()
	}

feed:
	for _, s := range shots {
		select {
		case <-ctx.Done():
			break feed
		case ch <- s:
		}
	}
	close(ch)
	wg.Wait()

	stats.Submitted = int(submitted.Load())
	stats.Accepted = int(accepted.Load())
	stats.Duplicate = int(duplicate.Load())
	stats.Failed = int(failed.Load())
	stats.Retried = int(retried.Load())
}

func submitOne(ctx context.Context, client *httpClient, url string, shot model.Shot) (outcome, int) {
	backoff := retryBackoff
	for attempt := 0; attempt < maxAttempts; attempt++ {
		status, body, err := client.post(ctx, url, model.NewShotMessage(shot))
		if err != nil {
			return outcomeFailed, attempt
		}
		switch status {
		case http.StatusAccepted:
			return outcomeAccepted, attempt
		case http.StatusOK:
			var a ack
			if json.Unmarshal(body, &a) == nil && !a.Duplicate {
				return outcomeAccepted, attempt
			}
			return outcomeDuplicate, attempt
		case http.StatusTooManyRequests:
			select {
			case <-ctx.Done():
				return outcomeFailed, attempt
			case <-time.After(backoff):
			}
			backoff *= 2
		default:
			return outcomeFailed, attempt
		}
	}
	return outcomeFailed, maxAttempts
}
