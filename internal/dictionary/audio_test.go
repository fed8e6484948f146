package dictionary

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/vocabox/internal/config"
)

func TestAudioFetcher_Fetch(t *testing.T) {
	tests := []struct {
		name         string
		handler      func(calls int32, w http.ResponseWriter, r *http.Request)
		want         string
		wantErr      bool
		wantRequests int32
	}{
		{
			name: "inlines the downloaded audio",
			handler: func(calls int32, w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "audio/mpeg")
				_, _ = w.Write([]byte("ID3"))
			},
			want:         "data:audio/mpeg;base64,SUQz",
			wantRequests: 1,
		},
		{
			name: "retries server errors",
			handler: func(calls int32, w http.ResponseWriter, r *http.Request) {
				if calls == 1 {
					w.WriteHeader(http.StatusServiceUnavailable)
					return
				}
				_, _ = w.Write([]byte("ID3"))
			},
			want:         "data:audio/mpeg;base64,SUQz",
			wantRequests: 2,
		},
		{
			name: "does not retry client errors",
			handler: func(calls int32, w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
			},
			wantErr:      true,
			wantRequests: 1,
		},
		{
			name: "empty body",
			handler: func(calls int32, w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			},
			wantErr:      true,
			wantRequests: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				tt.handler(calls.Add(1), w, r)
			}))
			defer server.Close()

			fetcher := NewAudioFetcher(config.AudioConfig{RetryAttempts: 2, Timeout: time.Second})
			defer fetcher.Close()

			got, err := fetcher.Fetch(context.Background(), server.URL+"/translate_tts?q=apple")
			assert.Equal(t, tt.wantRequests, calls.Load())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
