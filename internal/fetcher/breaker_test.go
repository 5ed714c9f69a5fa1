package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreaker_Transitions(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	b := NewBreaker("api", 2, time.Minute)
	b.now = func() time.Time { return now }

	require.NoError(t, b.Allow())
	b.Record(true)
	assert.Equal(t, BreakerClosed, b.State())
	require.NoError(t, b.Allow())
	b.Record(true)
	assert.Equal(t, BreakerOpen, b.State())
	assert.ErrorIs(t, b.Allow(), ErrBreakerOpen)

	now = now.Add(time.Minute)
	assert.Equal(t, BreakerHalfOpen, b.State())
	require.NoError(t, b.Allow())
	assert.ErrorIs(t, b.Allow(), ErrBreakerOpen, "only one probe at a time")

	b.Record(true)
	assert.Equal(t, BreakerOpen, b.State())

	now = now.Add(time.Minute)
	require.NoError(t, b.Allow())
	b.Record(false)
	assert.Equal(t, BreakerClosed, b.State())
}

func TestBreaker_SuccessResetsCount(t *testing.T) {
	b := NewBreaker("api", 2, time.Minute)
	b.Record(true)
	b.Record(false)
	b.Record(true)
	assert.Equal(t, BreakerClosed, b.State())
}

func TestDo_BreakerShortCircuits(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPOptions{RateLimit: 1000, BreakerThreshold: 2, BreakerCooldown: time.Hour})
	for range 2 {
		_, err := f.Download(context.Background(), srv.URL+"/prices")
		require.Error(t, err)
	}
	_, err := f.Download(context.Background(), srv.URL+"/prices")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBreakerOpen)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestDo_ClientErrorsDoNotTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPOptions{RateLimit: 1000, BreakerThreshold: 1})
	for range 3 {
		_, err := f.Download(context.Background(), srv.URL+"/missing")
		require.Error(t, err)
	}
	assert.Equal(t, BreakerClosed, f.Breaker(strings.TrimPrefix(srv.URL, "http://")).State())
}

func TestBreaker_DisabledByDefault(t *testing.T) {
	assert.Nil(t, NewHTTPFetcher(HTTPOptions{}).Breaker("example.com"))
}
