package oracle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ayo6706/custody-ledger/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClientLatestPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"answer":"200000000000","updated_at":1700000000}`))
	}))
	defer srv.Close()

	c, err := NewHTTPClient(srv.URL, time.Second)
	require.NoError(t, err)

	q, err := c.LatestPrice(context.Background())
	require.NoError(t, err)
	assert.True(t, q.Valid)
	assert.Equal(t, "200000000000", q.Value.String())
	assert.Equal(t, domain.FeedDecimals, q.Decimals)
	assert.Equal(t, int64(1700000000), q.UpdatedAt.Unix())
}

func TestHTTPClientNonPositiveAnswerIsInvalid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"answer":"0"}`))
	}))
	defer srv.Close()

	c, err := NewHTTPClient(srv.URL, time.Second)
	require.NoError(t, err)

	q, err := c.LatestPrice(context.Background())
	require.NoError(t, err)
	assert.False(t, q.Valid)
}

func TestHTTPClientRejectsForeignPrecision(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"answer":"2000000000","decimals":6}`))
	}))
	defer srv.Close()

	c, err := NewHTTPClient(srv.URL, time.Second)
	require.NoError(t, err)

	_, err = c.LatestPrice(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "6 decimals")
}

func TestHTTPClientErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "stale", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, err := NewHTTPClient(srv.URL, time.Second)
	require.NoError(t, err)

	_, err = c.LatestPrice(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestNewClientsRequireSource(t *testing.T) {
	_, err := NewHTTPClient("", time.Second)
	require.ErrorIs(t, err, domain.ErrInvalidConfiguration)

	_, err = NewHTTPClient("ftp://feed", time.Second)
	require.ErrorIs(t, err, domain.ErrInvalidConfiguration)

	_, err = NewStaticClient("  ", domain.DefaultCapUSD6)
	require.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}
