package httpclient

import "regexp"

// Redacted replaces credential header values in captures.
const Redacted = "REDACTED"

// apiKeyRe matches header names that carry API keys in any spelling
// (api-key, api_key, apikey, x-goog-api-key, ...).
var apiKeyRe = regexp.MustCompile(`(?i)api.?key`)

// sensitiveHeaders are always redacted regardless of the pattern match.
var sensitiveHeaders = map[string]bool{
	"authorization":        true,
	"x-api-key":            true,
	"x-amz-security-token": true,
}

// IsSensitiveHeader reports whether a header's value must never appear in
// logs or captures.
func IsSensitiveHeader(name string) bool {
	lower := lowerASCII(name)
	return sensitiveHeaders[lower] || apiKeyRe.MatchString(lower)
}

// RedactHeaders returns a copy of headers with credential values replaced.
func RedactHeaders(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for name, value := range headers {
		if IsSensitiveHeader(name) {
			out[name] = Redacted
			continue
		}
		out[name] = value
	}
	return out
}

// Capture is a serializable snapshot of a request, safe to persist: all
// credential-bearing headers are redacted.
type Capture struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers"`
	Body    string            `json:"body,omitempty"`
}

// CaptureRequest snapshots a request for debugging or fixtures.
func CaptureRequest(req *Request) Capture {
	return Capture{
		Method:  req.Method,
		URL:     req.URL,
		Headers: RedactHeaders(req.Headers),
		Body:    string(req.Body),
	}
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
