package tc3

import (
	"strings"
	"testing"
)

// Reference credentials from the Tencent Cloud signing documentation. They
// are not live secrets.
const (
	testSecretID  = "AKIDz8krbsJ5yKBZQpn74WFkmLPx3EXAMPLE"
	testSecretKey = "Gu5t9xGARNpq86cd98joQYCN3EXAMPLE"

	testHost    = "ai3d.tencentcloudapi.com"
	testService = "ai3d"

	// 1700000000 falls on 2023-11-14 UTC.
	testTimestamp = int64(1700000000)
)

func testSigner(t *testing.T) *Signer {
	t.Helper()
	s, err := New(testSecretID, testSecretKey)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return s
}

func TestBuildCanonicalRequest(t *testing.T) {
	payload := []byte(`{"Prompt":"a red chair"}`)
	expect := strings.Join([]string{
		`POST`,
		`/`,
		``,
		`content-type:application/json; charset=utf-8`,
		`host:ai3d.tencentcloudapi.com`,
		``,
		`content-type;host`,
		`3c0c6a7373144e4dde9137e1a6ee5d3c3b668b3ba62dd328d05b0bd61e70d4a1`,
	}, "\n")

	actual := BuildCanonicalRequest("POST", "/", "", ContentType, testHost, payload)
	if actual != expect {
		t.Errorf("expect %q but got %q", expect, actual)
	}
}

func TestSign_GoldenVector(t *testing.T) {
	payload := []byte(`{"Prompt":"a red chair"}`)
	canonical := BuildCanonicalRequest("POST", "/", "", ContentType, testHost, payload)

	sig, auth := testSigner(t).Sign(testService, canonical, testTimestamp)

	expectSig := "32ce9d1898c7a99f799f904783c38cec54402e639da5ddc164b673056965c502"
	if sig != expectSig {
		t.Errorf("expect signature %q but got %q", expectSig, sig)
	}

	expectAuth := `TC3-HMAC-SHA256 Credential=AKIDz8krbsJ5yKBZQpn74WFkmLPx3EXAMPLE/2023-11-14/ai3d/tc3_request, SignedHeaders=content-type;host, Signature=32ce9d1898c7a99f799f904783c38cec54402e639da5ddc164b673056965c502`
	if auth != expectAuth {
		t.Errorf("expect authorization %q but got %q", expectAuth, auth)
	}
}

func TestSign_GoldenVectorQueryPayload(t *testing.T) {
	payload := []byte(`{"JobId":"1400224250220388352"}`)
	canonical := BuildCanonicalRequest("POST", "/", "", ContentType, testHost, payload)

	sig, _ := testSigner(t).Sign(testService, canonical, testTimestamp)

	expect := "471eb449cf653d921668b08dc7e2278237768114b2df514cb7a90c4d93011d2d"
	if sig != expect {
		t.Errorf("expect signature %q but got %q", expect, sig)
	}
}

func TestSign_Deterministic(t *testing.T) {
	canonical := BuildCanonicalRequest("POST", "/", "", ContentType, testHost, []byte(`{"Prompt":"a red chair"}`))
	s := testSigner(t)

	sig1, auth1 := s.Sign(testService, canonical, testTimestamp)
	sig2, auth2 := s.Sign(testService, canonical, testTimestamp)
	if sig1 != sig2 || auth1 != auth2 {
		t.Errorf("same inputs produced different signatures: %q vs %q", sig1, sig2)
	}

	// A fresh signer with an empty key cache must agree as well.
	sig3, _ := testSigner(t).Sign(testService, canonical, testTimestamp)
	if sig1 != sig3 {
		t.Errorf("cached and uncached signing disagree: %q vs %q", sig1, sig3)
	}
}

func TestSign_PayloadSensitivity(t *testing.T) {
	s := testSigner(t)

	base := BuildCanonicalRequest("POST", "/", "", ContentType, testHost, []byte(`{"Prompt":"a red chair"}`))
	flipped := BuildCanonicalRequest("POST", "/", "", ContentType, testHost, []byte(`{"Prompt":"a red chaiR"}`))

	sigBase, _ := s.Sign(testService, base, testTimestamp)
	sigFlipped, _ := s.Sign(testService, flipped, testTimestamp)
	if sigBase == sigFlipped {
		t.Error("changing a payload byte did not change the signature")
	}

	expect := "d136c08cf6b4a4bb6298ebe4647c4bbd5bd7d5210b6056ba8965b0e81db3019c"
	if sigFlipped != expect {
		t.Errorf("expect signature %q but got %q", expect, sigFlipped)
	}
}

func TestSign_TimestampSensitivity(t *testing.T) {
	canonical := BuildCanonicalRequest("POST", "/", "", ContentType, testHost, []byte(`{"Prompt":"a red chair"}`))
	s := testSigner(t)

	sig1, _ := s.Sign(testService, canonical, testTimestamp)
	sig2, _ := s.Sign(testService, canonical, testTimestamp+1)
	if sig1 == sig2 {
		t.Error("changing the timestamp did not change the signature")
	}

	expect := "5bbded66eaf9f07bc4412711eec6610d92727516505f6e9287e1f66dd68cbc37"
	if sig2 != expect {
		t.Errorf("expect signature %q but got %q", expect, sig2)
	}
}

func TestSign_OtherHeadersDoNotAffectSignature(t *testing.T) {
	// The canonical request only ever covers content-type and host. Two
	// requests differing in any other header sign identically because the
	// builder never sees those headers.
	payload := []byte(`{"Prompt":"a red chair"}`)
	c1 := BuildCanonicalRequest("POST", "/", "", ContentType, testHost, payload)
	c2 := BuildCanonicalRequest("POST", "/", "", ContentType, testHost, payload)
	if c1 != c2 {
		t.Error("canonical request is not a pure function of its inputs")
	}
}

func TestNew_RejectsEmptyCredentials(t *testing.T) {
	cases := []struct {
		name    string
		id, key string
	}{
		{"empty id", "", testSecretKey},
		{"empty key", testSecretID, ""},
		{"blank id", "   ", testSecretKey},
		{"blank key", testSecretID, "\t"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.id, tc.key); err == nil {
				t.Error("expect error but got nil")
			}
		})
	}
}

func TestDerivedKeyCache(t *testing.T) {
	s := testSigner(t)
	canonical := BuildCanonicalRequest("POST", "/", "", ContentType, testHost, []byte(`{}`))

	s.Sign(testService, canonical, testTimestamp)
	if len(s.cache.values) != 1 {
		t.Fatalf("expect 1 cache entry but got %d", len(s.cache.values))
	}
	if _, ok := s.cache.values["2023-11-14/ai3d"]; !ok {
		t.Fatal("derived key not cached under its credential scope")
	}

	// Crossing a UTC day boundary evicts the stale scope.
	s.Sign(testService, canonical, testTimestamp+86400)
	if len(s.cache.values) != 1 {
		t.Fatalf("expect stale scope evicted, got %d entries", len(s.cache.values))
	}
	if _, ok := s.cache.values["2023-11-15/ai3d"]; !ok {
		t.Fatal("new scope missing from cache")
	}
}
