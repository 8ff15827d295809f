package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chartBody = `{
	"chart": {
		"result": [{
			"timestamp": [1700092800, 1700179200, 1700265600],
			"indicators": {
				"quote": [{
					"open":   [3500.0, 3510.0, null],
					"high":   [3550.0, 3560.0, 3570.0],
					"low":    [3480.0, 3490.0, 3500.0],
					"close":  [3540.0, 3545.0, 3550.0],
					"volume": [120000, 130000, 110000]
				}]
			}
		}],
		"error": null
	}
}`

func TestClient_FetchDailyBars(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/TCS.NS", r.URL.Path)
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		w.Write([]byte(chartBody))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	bars, err := client.FetchDailyBars(context.Background(),
		"TCS.NS", time.Unix(1700000000, 0), time.Unix(1700300000, 0))
	require.NoError(t, err)

	// Third row has a null open and must be dropped
	require.Len(t, bars, 2)
	assert.Equal(t, "TCS.NS", bars[0].Symbol)
	assert.Equal(t, int64(1700092800000), bars[0].TimestampMs)
	assert.InDelta(t, 3500.0, bars[0].Open, 1e-9)
	assert.InDelta(t, 3545.0, bars[1].Close, 1e-9)
}

func TestClient_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"chart":{"result":[],"error":{"code":"Not Found","description":"No data found"}}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.FetchDailyBars(context.Background(),
		"UNKNOWN.NS", time.Unix(0, 0), time.Unix(1, 0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Not Found")
}

func TestClient_RetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(chartBody))
	}))
	defer server.Close()

	client := NewClient(server.URL, WithMaxRetries(3), WithRetryDelay(time.Millisecond))
	bars, err := client.FetchDailyBars(context.Background(),
		"TCS.NS", time.Unix(1700000000, 0), time.Unix(1700300000, 0))
	require.NoError(t, err)
	assert.Len(t, bars, 2)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_MaxRetriesExceeded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, WithMaxRetries(1), WithRetryDelay(time.Millisecond))
	_, err := client.FetchDailyBars(context.Background(),
		"TCS.NS", time.Unix(0, 0), time.Unix(1, 0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries exceeded")
}

func TestClient_EmptySymbol(t *testing.T) {
	client := NewClient("http://localhost")
	_, err := client.FetchDailyBars(context.Background(), "", time.Unix(0, 0), time.Unix(1, 0))
	assert.Error(t, err)
}
