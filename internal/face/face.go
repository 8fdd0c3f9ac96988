// Package face talks to the external biometric matcher over HTTP.
//
// Every transport or decode failure is fail-closed: it surfaces as an
// error, never as a match.
package face

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/evoting-dev/evoting/internal/config"
	"github.com/evoting-dev/evoting/internal/domain"
	internal_errors "github.com/evoting-dev/evoting/internal/errors"
	"github.com/evoting-dev/evoting/internal/logger"
)

type MatchResult struct {
	IsMatch  bool
	Distance float64
}

type Verifier interface {
	EncodeFace(ctx context.Context, image string) (domain.FaceEncoding, error)
	MatchFace(ctx context.Context, stored domain.FaceEncoding, image string) (MatchResult, error)
}

type Client struct {
	address   string
	threshold float64
	client    *http.Client
}

func New(cfg *config.FaceService) *Client {
	return &Client{
		address:   cfg.Address,
		threshold: cfg.MatchThreshold,
		client:    &http.Client{Timeout: cfg.Timeout()},
	}
}

// NewWithClient is used by tests to inject a custom http client.
func NewWithClient(address string, threshold float64, client *http.Client) *Client {
	return &Client{address: address, threshold: threshold, client: client}
}

type encodeRequest struct {
	Image string `json:"image"`
}

type encodeResponse struct {
	Encoding []float64 `json:"encoding"`
	Error    string    `json:"error"`
}

type verifyRequest struct {
	Encoding []float64 `json:"encoding"`
	Image    string    `json:"image"`
}

type verifyResponse struct {
	Match    bool    `json:"match"`
	Distance float64 `json:"distance"`
	Reason   string  `json:"reason"`
}

// EncodeFace extracts the biometric descriptor from a base64 image.
// Used once, at registration.
func (c *Client) EncodeFace(ctx context.Context, image string) (domain.FaceEncoding, error) {
	var resp encodeResponse
	status, err := c.post(ctx, "/encode-face", encodeRequest{Image: image}, &resp)
	if err != nil {
		return nil, serviceUnavailable(err)
	}
	if status != http.StatusOK {
		reason := resp.Error
		if reason == "" {
			reason = "No face detected"
		}
		return nil, &internal_errors.ErrorWithStatusCode{Message: "Face encoding failed: " + reason, StatusCode: http.StatusBadRequest}
	}
	if len(resp.Encoding) == 0 {
		return nil, &internal_errors.ErrorWithStatusCode{Message: "Face encoding failed: empty encoding", StatusCode: http.StatusBadRequest}
	}
	return domain.FaceEncoding(resp.Encoding), nil
}

// MatchFace compares a stored encoding against a freshly captured image.
// The match decision is made here, against the fixed distance threshold,
// not trusted from the remote service.
func (c *Client) MatchFace(ctx context.Context, stored domain.FaceEncoding, image string) (MatchResult, error) {
	var resp verifyResponse
	status, err := c.post(ctx, "/verify-encoding", verifyRequest{Encoding: stored, Image: image}, &resp)
	if err != nil {
		return MatchResult{}, serviceUnavailable(err)
	}
	if status != http.StatusOK {
		reason := resp.Reason
		if reason == "" {
			reason = "verification rejected"
		}
		return MatchResult{}, &internal_errors.ErrorWithStatusCode{Message: "Face verification failed: " + reason, StatusCode: http.StatusBadRequest}
	}

	return MatchResult{
		IsMatch:  resp.Distance < c.threshold,
		Distance: resp.Distance,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, reqBody, respBody any) (int, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.address+path, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		logger.Log.Error("face service request failed", "path", path, "error", err)
		return 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read response: %w", err)
	}
	if err := json.Unmarshal(body, respBody); err != nil {
		return 0, fmt.Errorf("malformed response from face service: %w", err)
	}

	logger.Log.Debug("face service call", "path", path, "status", resp.StatusCode, "took", time.Since(start))
	return resp.StatusCode, nil
}

func serviceUnavailable(err error) error {
	logger.Log.Error("face verification unavailable", "error", err)
	return &internal_errors.ErrorWithStatusCode{Message: "Verification service unavailable", StatusCode: http.StatusServiceUnavailable}
}
