package bedrock

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"
)

const (
	signingAlgorithm = "AWS4-HMAC-SHA256"
	signingService   = "bedrock"
)

// Credentials are the AWS credentials used for SigV4 signing.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Region          string
}

// signer computes AWS Signature V4 over the canonical request, per the
// SigV4 specification. Bedrock accepts no API-key header; every request
// must be signed.
type signer struct {
	creds Credentials
	now   func() time.Time
}

func newSigner(creds Credentials) *signer {
	return &signer{creds: creds, now: time.Now}
}

// sign sets Host, X-Amz-Date, optional session token and the
// Authorization header on headers for the given request line and payload.
func (s *signer) sign(method, rawURL string, headers map[string]string, payload []byte) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parsing request URL: %w", err)
	}

	now := s.now().UTC()
	amzDate := now.Format("20060102T150405Z")
	shortDate := now.Format("20060102")

	headers["Host"] = parsed.Host
	headers["X-Amz-Date"] = amzDate
	if s.creds.SessionToken != "" {
		headers["X-Amz-Security-Token"] = s.creds.SessionToken
	}

	canonicalHeaders, signedHeaders := canonicalizeHeaders(headers)
	payloadHash := sha256Hex(payload)

	canonicalRequest := strings.Join([]string{
		method,
		canonicalPath(parsed),
		canonicalQuery(parsed),
		canonicalHeaders,
		signedHeaders,
		payloadHash,
	}, "\n")

	scope := strings.Join([]string{shortDate, s.creds.Region, signingService, "aws4_request"}, "/")
	stringToSign := strings.Join([]string{
		signingAlgorithm,
		amzDate,
		scope,
		sha256Hex([]byte(canonicalRequest)),
	}, "\n")

	signature := hex.EncodeToString(hmacSHA256(s.signingKey(shortDate), stringToSign))
	headers["Authorization"] = fmt.Sprintf("%s Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		signingAlgorithm, s.creds.AccessKeyID, scope, signedHeaders, signature)
	return nil
}

// signingKey derives the per-day signing key: four chained HMACs over the
// date, region, service and the aws4_request terminator.
func (s *signer) signingKey(shortDate string) []byte {
	key := hmacSHA256([]byte("AWS4"+s.creds.SecretAccessKey), shortDate)
	key = hmacSHA256(key, s.creds.Region)
	key = hmacSHA256(key, signingService)
	return hmacSHA256(key, "aws4_request")
}

func canonicalPath(u *url.URL) string {
	if u.EscapedPath() == "" {
		return "/"
	}
	return u.EscapedPath()
}

func canonicalQuery(u *url.URL) string {
	params := u.Query()
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		for _, v := range params[k] {
			parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(v))
		}
	}
	return strings.Join(parts, "&")
}

// canonicalizeHeaders renders the lowercase-sorted header list and the
// matching signed-headers string.
func canonicalizeHeaders(headers map[string]string) (canonical, signed string) {
	names := make([]string, 0, len(headers))
	byLower := make(map[string]string, len(headers))
	for name, value := range headers {
		lower := strings.ToLower(name)
		names = append(names, lower)
		byLower[lower] = strings.TrimSpace(value)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte(':')
		b.WriteString(byLower[name])
		b.WriteByte('\n')
	}
	return b.String(), strings.Join(names, ";")
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func hmacSHA256(key []byte, data string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(data))
	return mac.Sum(nil)
}
