package marketdata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewWTDClientMissingToken(t *testing.T) {
	_, err := NewWTDClient(WTDConfig{}, zap.NewNop())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingCredential))
}

func TestWTDClientQueryParameters(t *testing.T) {
	type recorded struct {
		symbol   string
		dateFrom string
		dateTo   string
		apiToken string
	}
	var requests []recorded

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		requests = append(requests, recorded{
			symbol:   q.Get("symbol"),
			dateFrom: q.Get("date_from"),
			dateTo:   q.Get("date_to"),
			apiToken: q.Get("api_token"),
		})
		w.Write([]byte(`{"name": "` + q.Get("symbol") + `", "history": {}}`))
	}))
	defer srv.Close()

	client, err := NewWTDClient(WTDConfig{
		APIToken: "demo-token",
		BaseURL:  srv.URL,
	}, zap.NewNop())
	require.NoError(t, err)

	ids := []string{"^DAX", "^AEX", "KOSPI.KS"}
	for _, id := range ids {
		_, err := client.History(context.Background(), id)
		require.NoError(t, err)
	}

	require.Len(t, requests, 3)

	var prev time.Time
	for i, req := range requests {
		assert.Equal(t, ids[i], req.symbol)
		assert.Equal(t, DefaultDateFrom, req.dateFrom)
		assert.Equal(t, "demo-token", req.apiToken)

		// date_to is captured per request, not per batch, so it never
		// moves backwards.
		ts, err := time.Parse(dateToLayout, req.dateTo)
		require.NoError(t, err, "date_to %q should be a valid timestamp", req.dateTo)
		assert.False(t, ts.Before(prev), "date_to went backwards: %v < %v", ts, prev)
		prev = ts
	}
}

func TestWTDClientReturnsNonOKBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("Forbidden"))
	}))
	defer srv.Close()

	client, err := NewWTDClient(WTDConfig{APIToken: "t", BaseURL: srv.URL}, zap.NewNop())
	require.NoError(t, err)

	// The status code is not an error here; whether the body decodes is the
	// fetch loop's call.
	body, err := client.History(context.Background(), "^DAX")
	require.NoError(t, err)
	assert.Equal(t, "Forbidden", string(body))
}

func TestWTDClientTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	client, err := NewWTDClient(WTDConfig{APIToken: "t", BaseURL: srv.URL}, zap.NewNop())
	require.NoError(t, err)

	_, err = client.History(context.Background(), "^DAX")
	require.Error(t, err)
}
