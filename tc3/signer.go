package tc3

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	// Algorithm is the signature scheme identifier sent in the
	// Authorization header and the string to sign.
	Algorithm = "TC3-HMAC-SHA256"

	// ContentType is the only content type this signer supports. It must
	// match the request body header byte-for-byte, charset included.
	ContentType = "application/json; charset=utf-8"

	// SignedHeaders is the fixed, sorted set of headers covered by the
	// signature. Adding or removing request headers outside this set does
	// not change the signature.
	SignedHeaders = "content-type;host"

	requestScope = "tc3_request"
	keyPrefix    = "TC3"
	dateLayout   = "2006-01-02"
)

// Signer derives per-request TC3 signatures from a fixed credential pair.
// It is safe for concurrent use.
type Signer struct {
	secretID  string
	secretKey string
	cache     derivedKeyCache
}

// New validates the credential pair and returns a Signer. Empty or
// whitespace-only secret material is rejected up front so a request that can
// never verify is not sent at all.
func New(secretID, secretKey string) (*Signer, error) {
	if strings.TrimSpace(secretID) == "" {
		return nil, fmt.Errorf("tc3: secret id is empty")
	}
	if strings.TrimSpace(secretKey) == "" {
		return nil, fmt.Errorf("tc3: secret key is empty")
	}
	return &Signer{
		secretID:  secretID,
		secretKey: secretKey,
		cache:     derivedKeyCache{values: map[string][]byte{}},
	}, nil
}

// BuildCanonicalRequest assembles the canonical request string for a POST to
// the given host carrying payload. The payload hash is computed over the
// exact bytes passed in, never a re-serialization. Pure function of its
// inputs.
func BuildCanonicalRequest(method, uri, query, contentType, host string, payload []byte) string {
	return strings.Join([]string{
		method,
		uri,
		query,
		"content-type:" + contentType + "\nhost:" + host + "\n",
		SignedHeaders,
		HashHex(payload),
	}, "\n")
}

// Sign computes the TC3 signature over canonical for the given service and
// unix-seconds timestamp, returning the hex signature and the full
// Authorization header value. Same inputs always yield the same outputs;
// the wall clock is never consulted.
func (s *Signer) Sign(service, canonical string, timestamp int64) (signature, authorization string) {
	date := time.Unix(timestamp, 0).UTC().Format(dateLayout)

	stringToSign := Algorithm + "\n" +
		strconv.FormatInt(timestamp, 10) + "\n" +
		date + "/" + service + "/" + requestScope + "\n" +
		HashHex([]byte(canonical))

	key := s.cache.get(s.secretKey, service, date)
	signature = hex.EncodeToString(hmacSHA256(key, stringToSign))

	authorization = fmt.Sprintf("%s Credential=%s/%s/%s/%s, SignedHeaders=%s, Signature=%s",
		Algorithm, s.secretID, date, service, requestScope, SignedHeaders, signature)
	return signature, authorization
}

// HashHex returns the lower-case hex SHA-256 digest of b.
func HashHex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func hmacSHA256(key []byte, msg string) []byte {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(msg))
	return h.Sum(nil)
}

// deriveKey runs the fixed HMAC chain date -> service -> request scope,
// producing the request-scoped signing key. The raw secret is never used to
// sign request content directly.
func deriveKey(secretKey, service, date string) []byte {
	secretDate := hmacSHA256([]byte(keyPrefix+secretKey), date)
	secretService := hmacSHA256(secretDate, service)
	return hmacSHA256(secretService, requestScope)
}

// derivedKeyCache memoizes derived signing keys per (date, service) scope.
// The chain is three HMAC invocations, so this mostly matters for hot
// polling loops that sign many requests within the same UTC day.
type derivedKeyCache struct {
	mu     sync.Mutex
	values map[string][]byte
}

func (c *derivedKeyCache) get(secretKey, service, date string) []byte {
	scope := date + "/" + service

	c.mu.Lock()
	defer c.mu.Unlock()
	if key, ok := c.values[scope]; ok {
		return key
	}
	key := deriveKey(secretKey, service, date)
	// Keys for past dates can never be requested again; drop them so the
	// cache stays at one entry per service in steady state.
	for k := range c.values {
		if strings.HasPrefix(k, date) {
			continue
		}
		delete(c.values, k)
	}
	c.values[scope] = key
	return key
}
