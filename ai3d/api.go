package ai3d

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"meshforge.dev/server/tc3"
)

const (
	Host    = "ai3d.tencentcloudapi.com"
	Service = "ai3d"
	Version = "2025-05-13"

	// DefaultRegion is where the Hunyuan-To-3D jobs run.
	DefaultRegion = "ap-guangzhou"

	ActionSubmit = "SubmitHunyuanTo3DProJob"
	ActionQuery  = "QueryHunyuanTo3DProJob"
)

// Client signs and sends requests to the Hunyuan-To-3D endpoint. It is the
// transport collaborator: it performs the network call and parses the
// response envelope, nothing more.
type Client struct {
	endpoint string
	host     string
	region   string
	signer   *tc3.Signer
	client   *http.Client
	nowFunc  func() time.Time
}

func NewClient(signer *tc3.Signer, region string) *Client {
	if region == "" {
		region = DefaultRegion
	}
	return &Client{
		endpoint: "https://" + Host,
		host:     Host,
		region:   region,
		signer:   signer,
		client: &http.Client{
			Timeout: 0, // bounded by the caller's context instead
		},
		nowFunc: time.Now,
	}
}

// SubmitJob submits a text-to-3D generation job and returns the remote job
// id. A vendor rejection comes back as *APIError; anything else is a
// transport failure.
func (c *Client) SubmitJob(ctx context.Context, prompt string) (*SubmitResult, error) {
	payload, err := json.Marshal(submitRequest{Prompt: prompt})
	if err != nil {
		return nil, fmt.Errorf("ai3d: encode submit payload: %w", err)
	}

	body, err := c.call(ctx, ActionSubmit, payload)
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("ai3d: decode submit response: %w", err)
	}
	if env.Response.Error != nil {
		return nil, env.Response.Error
	}
	if env.Response.JobId == "" {
		return nil, fmt.Errorf("ai3d: submit response carries no JobId")
	}

	return &SubmitResult{JobID: env.Response.JobId, Raw: body}, nil
}

// QueryJob fetches the current remote state of a job. Classification of the
// result is the caller's concern; this only separates vendor envelope
// errors and transport failures from a parseable status payload.
func (c *Client) QueryJob(ctx context.Context, jobID string) (*QueryResult, error) {
	payload, err := json.Marshal(queryRequest{JobId: jobID})
	if err != nil {
		return nil, fmt.Errorf("ai3d: encode query payload: %w", err)
	}

	body, err := c.call(ctx, ActionQuery, payload)
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("ai3d: decode query response: %w", err)
	}
	if env.Response.Error != nil {
		return nil, env.Response.Error
	}

	return &QueryResult{
		Status:       env.Response.Status,
		ErrorCode:    env.Response.ErrorCode,
		ErrorMessage: env.Response.ErrorMessage,
		Files:        env.Response.ResultFile3Ds,
		Raw:          body,
	}, nil
}

// call signs payload for the given action and POSTs it. The timestamp used
// in the signature and the X-TC-Timestamp header come from the same capture,
// and the body bytes are the exact bytes hashed by the signer.
func (c *Client) call(ctx context.Context, action string, payload []byte) ([]byte, error) {
	timestamp := c.nowFunc().Unix()
	canonical := tc3.BuildCanonicalRequest(http.MethodPost, "/", "", tc3.ContentType, c.host, payload)
	_, authorization := c.signer.Sign(Service, canonical, timestamp)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("ai3d: build request: %w", err)
	}
	req.Header.Set("Authorization", authorization)
	req.Header.Set("Content-Type", tc3.ContentType)
	req.Host = c.host
	req.Header.Set("X-TC-Action", action)
	req.Header.Set("X-TC-Version", Version)
	req.Header.Set("X-TC-Region", c.region)
	req.Header.Set("X-TC-Timestamp", fmt.Sprintf("%d", timestamp))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ai3d: %s request failed: %w", action, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ai3d: read %s response: %w", action, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ai3d: %s returned status %d: %s", action, resp.StatusCode, body)
	}
	return body, nil
}
