package report

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWebhookSinkPosts(t *testing.T) {
	var got webhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer server.Close()

	sink := NewWebhookSink(server.URL, testLogger())
	sink.Notify(SeverityOK, "Swap confirmed: 1 ETH for ~1990 INSDR", "https://example.org/tx/0xabc")

	assert.Equal(t, SeverityOK, got.Severity)
	assert.Contains(t, got.Message, "Swap confirmed")
	assert.NotEmpty(t, got.Link)
}

func TestWebhookSinkOmitsEmptyLink(t *testing.T) {
	var raw []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error
		raw, err = io.ReadAll(r.Body)
		require.NoError(t, err)
	}))
	defer server.Close()

	sink := NewWebhookSink(server.URL, testLogger())
	sink.Notify(SeverityError, "swap failed", "")

	assert.NotContains(t, string(raw), "link")
}

func TestWebhookSinkSurvivesDownEndpoint(t *testing.T) {
	sink := NewWebhookSink("http://127.0.0.1:1", testLogger())
	// Must not panic or block; failures are logged and dropped.
	sink.Notify(SeverityOK, "message", "")
}

func TestNopSinks(t *testing.T) {
	NopNotifier{}.Notify(SeverityOK, "m", "")
	assert.NoError(t, NopHistory{}.Record(t.Context(), Entry{}))
}
