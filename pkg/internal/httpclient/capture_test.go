package httpclient

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/dnaeon/go-vcr.v4/pkg/cassette"
	"gopkg.in/dnaeon/go-vcr.v4/pkg/recorder"
)

func TestRedactHeaders(t *testing.T) {
	headers := map[string]string{
		"Authorization":  "Bearer sk-secret",
		"x-api-key":      "sk-secret",
		"X-Goog-Api-Key": "sk-secret",
		"Api_Key":        "sk-secret",
		"ApiKey":         "sk-secret",
		"Content-Type":   "application/json",
	}
	redacted := RedactHeaders(headers)

	for name, value := range redacted {
		if name == "Content-Type" {
			assert.Equal(t, "application/json", value)
			continue
		}
		assert.Equal(t, Redacted, value, "header %s leaked", name)
	}
}

func TestIsSensitiveHeader(t *testing.T) {
	for _, name := range []string{"Authorization", "authorization", "X-API-Key", "x-goog-api-key", "apikey", "API_KEY", "X-Amz-Security-Token"} {
		assert.True(t, IsSensitiveHeader(name), name)
	}
	for _, name := range []string{"Content-Type", "Accept", "anthropic-version"} {
		assert.False(t, IsSensitiveHeader(name), name)
	}
}

func TestCaptureRequest_NeverContainsCredential(t *testing.T) {
	req := &Request{
		Method: "POST",
		URL:    "https://api.openai.com/v1/chat/completions",
		Headers: map[string]string{
			"Authorization": "Bearer sk-live-12345",
			"Content-Type":  "application/json",
		},
		Body: []byte(`{"model":"gpt-4o"}`),
	}
	capture := CaptureRequest(req)

	serialized, err := json.Marshal(capture)
	require.NoError(t, err)
	assert.NotContains(t, string(serialized), "sk-live-12345")
	assert.Contains(t, string(serialized), Redacted)

	// The original request is untouched.
	assert.Equal(t, "Bearer sk-live-12345", req.Headers["Authorization"])
}

// TestRecordedFixturesAreRedacted exercises the redaction hook with a VCR
// recorder: a cassette written from live traffic must never contain
// credential header values.
func TestRecordedFixturesAreRedacted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	cassettePath := filepath.Join(t.TempDir(), "fixture")
	rec, err := recorder.New(cassettePath,
		recorder.WithMode(recorder.ModeRecordOnly),
		recorder.WithHook(func(i *cassette.Interaction) error {
			for name := range i.Request.Headers {
				if IsSensitiveHeader(name) {
					i.Request.Headers.Set(name, Redacted)
				}
			}
			return nil
		}, recorder.BeforeSaveHook),
	)
	require.NoError(t, err)

	client := rec.GetDefaultClient()
	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer sk-live-67890")
	req.Header.Set("x-api-key", "sk-live-67890")

	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.NoError(t, rec.Stop())

	written, err := os.ReadFile(cassettePath + ".yaml")
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(written), "sk-live-67890"),
		"cassette contains a raw credential")
}
