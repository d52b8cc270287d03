package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ayo6706/custody-ledger/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

type quoteFunc func(ctx context.Context) (domain.PriceQuote, error)

func (f quoteFunc) Quote(ctx context.Context) (domain.PriceQuote, error) { return f(ctx) }

func TestReadyReportsComponents(t *testing.T) {
	okDB := pingerFunc(func(context.Context) error { return nil })
	downDB := pingerFunc(func(context.Context) error { return errors.New("refused") })
	okPrice := quoteFunc(func(context.Context) (domain.PriceQuote, error) { return domain.PriceQuote{}, nil })
	stalePrice := quoteFunc(func(context.Context) (domain.PriceQuote, error) {
		return domain.PriceQuote{}, fmt.Errorf("%w: quote too old", domain.ErrOracleUnavailable)
	})

	testCases := []struct {
		name   string
		db     Pinger
		prices QuoteSource
		code   int
		status string
		oracle string
	}{
		{name: "memory deployment", code: http.StatusOK, status: "ready", oracle: "disabled"},
		{name: "all healthy", db: okDB, prices: okPrice, code: http.StatusOK, status: "ready", oracle: "ok"},
		{name: "stale oracle degrades", db: okDB, prices: stalePrice, code: http.StatusOK, status: "degraded", oracle: "oracle_unavailable"},
		{name: "database down", db: downDB, prices: okPrice, code: http.StatusServiceUnavailable, status: "unavailable", oracle: "ok"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHealthHandler(tc.db, nil, tc.prices)
			w := httptest.NewRecorder()
			h.Ready(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			require.Equal(t, tc.code, w.Code)
			var body struct {
				Status     string            `json:"status"`
				Components map[string]string `json:"components"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.status, body.Status)
			assert.Equal(t, tc.oracle, body.Components["oracle"])
			assert.Equal(t, "disabled", body.Components["redis"])
		})
	}
}
