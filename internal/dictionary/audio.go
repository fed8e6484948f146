package dictionary

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/avast/retry-go"
	"resty.dev/v3"

	"github.com/at-ishikawa/vocabox/internal/config"
	"github.com/at-ishikawa/vocabox/internal/translate"
)

// AudioFetcher downloads remote pronunciation audio and inlines it.
type AudioFetcher struct {
	httpClient       *resty.Client
	maxRetryAttempts uint
}

func NewAudioFetcher(cfg config.AudioConfig) *AudioFetcher {
	client := resty.New()
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	return &AudioFetcher{
		httpClient:       client,
		maxRetryAttempts: cfg.RetryAttempts,
	}
}

func (f *AudioFetcher) Close() error {
	return f.httpClient.Close()
}

type statusError struct {
	status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("response error %d", e.status)
}

func isRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// Fetch downloads url and returns it as a data:audio/mpeg URI.
func (f *AudioFetcher) Fetch(ctx context.Context, url string) (string, error) {
	var body []byte
	if err := retry.Do(
		func() error {
			response, err := f.httpClient.R().
				SetContext(ctx).
				Get(url)
			if err != nil {
				return fmt.Errorf("httpClient.Get > %w", err)
			}
			if response.IsError() {
				err := &statusError{status: response.StatusCode()}
				if !isRetryableStatus(response.StatusCode()) {
					return retry.Unrecoverable(err)
				}
				return err
			}
			body = response.Bytes()
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(f.maxRetryAttempts+1),
		retry.Delay(100*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			return retry.BackOffDelay(n, err, config)
		}),
	); err != nil {
		return "", fmt.Errorf("download pronunciation: %w", err)
	}
	if len(body) == 0 {
		return "", fmt.Errorf("download pronunciation: empty body")
	}
	return translate.AudioDataURIPrefix + base64.StdEncoding.EncodeToString(body), nil
}
