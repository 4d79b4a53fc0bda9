package ai3d

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"meshforge.dev/server/tc3"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
		Header:     make(http.Header),
	}
}

func testClient(t *testing.T, rt roundTripFunc) *Client {
	t.Helper()
	signer, err := tc3.New("AKIDz8krbsJ5yKBZQpn74WFkmLPx3EXAMPLE", "Gu5t9xGARNpq86cd98joQYCN3EXAMPLE")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c := NewClient(signer, "")
	c.client.Transport = rt
	c.nowFunc = func() time.Time { return time.Unix(1700000000, 0) }
	return c
}

func TestSubmitJob_SendsSignedRequest(t *testing.T) {
	var seen *http.Request
	var seenBody []byte
	c := testClient(t, func(r *http.Request) (*http.Response, error) {
		seen = r
		seenBody, _ = io.ReadAll(r.Body)
		return jsonResponse(http.StatusOK, `{"Response":{"JobId":"J1","RequestId":"r-1"}}`), nil
	})

	res, err := c.SubmitJob(context.Background(), "a red chair")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.JobID != "J1" {
		t.Errorf("expect JobID %q but got %q", "J1", res.JobID)
	}
	if len(res.Raw) == 0 {
		t.Error("expect raw response bytes to be exposed")
	}

	if got := string(seenBody); got != `{"Prompt":"a red chair"}` {
		t.Errorf("unexpected payload: %s", got)
	}
	if got := seen.Header.Get("X-TC-Action"); got != ActionSubmit {
		t.Errorf("unexpected X-TC-Action: %q", got)
	}
	if got := seen.Header.Get("X-TC-Version"); got != Version {
		t.Errorf("unexpected X-TC-Version: %q", got)
	}
	if got := seen.Header.Get("X-TC-Region"); got != DefaultRegion {
		t.Errorf("unexpected X-TC-Region: %q", got)
	}
	if got := seen.Header.Get("Content-Type"); got != tc3.ContentType {
		t.Errorf("unexpected Content-Type: %q", got)
	}
	if seen.Host != Host {
		t.Errorf("unexpected host: %q", seen.Host)
	}

	// The header timestamp and the timestamp inside the signature come
	// from the same capture, so with a pinned clock the Authorization
	// value is fully deterministic.
	if got := seen.Header.Get("X-TC-Timestamp"); got != "1700000000" {
		t.Errorf("unexpected X-TC-Timestamp: %q", got)
	}
	expectAuth := `TC3-HMAC-SHA256 Credential=AKIDz8krbsJ5yKBZQpn74WFkmLPx3EXAMPLE/2023-11-14/ai3d/tc3_request, SignedHeaders=content-type;host, Signature=32ce9d1898c7a99f799f904783c38cec54402e639da5ddc164b673056965c502`
	if got := seen.Header.Get("Authorization"); got != expectAuth {
		t.Errorf("expect authorization %q but got %q", expectAuth, got)
	}
}

func TestSubmitJob_VendorRejection(t *testing.T) {
	c := testClient(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK,
			`{"Response":{"RequestId":"r-2","Error":{"Code":"RequestLimitExceeded","Message":"quota exhausted"}}}`), nil
	})

	_, err := c.SubmitJob(context.Background(), "a red chair")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expect *APIError but got %v", err)
	}
	if apiErr.Code != "RequestLimitExceeded" {
		t.Errorf("unexpected code %q", apiErr.Code)
	}
}

func TestSubmitJob_MissingJobID(t *testing.T) {
	c := testClient(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"Response":{"RequestId":"r-3"}}`), nil
	})

	if _, err := c.SubmitJob(context.Background(), "a red chair"); err == nil {
		t.Error("expect error for response without JobId")
	}
}

func TestQueryJob_ParsesStatusPayload(t *testing.T) {
	c := testClient(t, func(r *http.Request) (*http.Response, error) {
		if got := r.Header.Get("X-TC-Action"); got != ActionQuery {
			t.Errorf("unexpected X-TC-Action: %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"JobId":"J1"}` {
			t.Errorf("unexpected payload: %s", body)
		}
		return jsonResponse(http.StatusOK, `{"Response":{
			"Status":"DONE",
			"ResultFile3Ds":[
				{"Type":"OBJ","Url":"https://x/model.zip","PreviewImageUrl":"https://x/p1.png"},
				{"Type":"GLB","Url":"https://x/model.glb","PreviewImageUrl":"https://x/p2.png"}
			],
			"RequestId":"r-4"}}`), nil
	})

	res, err := c.QueryJob(context.Background(), "J1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != "DONE" {
		t.Errorf("unexpected status %q", res.Status)
	}
	if len(res.Files) != 2 || res.Files[1].Type != "GLB" || res.Files[1].Url != "https://x/model.glb" {
		t.Errorf("unexpected files: %+v", res.Files)
	}
}

func TestQueryJob_JobLevelError(t *testing.T) {
	c := testClient(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK,
			`{"Response":{"Status":"FAIL","ErrorCode":"FailedOperation.ContentAudit","ErrorMessage":"prompt rejected","RequestId":"r-5"}}`), nil
	})

	res, err := c.QueryJob(context.Background(), "J1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ErrorCode != "FailedOperation.ContentAudit" {
		t.Errorf("unexpected error code %q", res.ErrorCode)
	}
	if res.ErrorMessage != "prompt rejected" {
		t.Errorf("unexpected error message %q", res.ErrorMessage)
	}
}

func TestQueryJob_EnvelopeError(t *testing.T) {
	c := testClient(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK,
			`{"Response":{"RequestId":"r-6","Error":{"Code":"AuthFailure.SignatureExpire","Message":"signature expired"}}}`), nil
	})

	_, err := c.QueryJob(context.Background(), "J1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expect *APIError but got %v", err)
	}
}

func TestCall_NonOKStatus(t *testing.T) {
	c := testClient(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusBadGateway, `upstream unavailable`), nil
	})

	if _, err := c.QueryJob(context.Background(), "J1"); err == nil {
		t.Error("expect error for non-200 status")
	}
}

func TestCall_MalformedBody(t *testing.T) {
	c := testClient(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `<html>not json</html>`), nil
	})

	if _, err := c.QueryJob(context.Background(), "J1"); err == nil {
		t.Error("expect error for malformed body")
	}
}
