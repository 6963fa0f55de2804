// Package backend talks to the credential rendering service that produces a
// QR code and a PDF certificate for an issued credential.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/quantumauth-io/quantum-credential-client/internal/constants"
)

// ErrNotFound is returned when the service does not know the credential.
var ErrNotFound = errors.New("backend: credential not found")

// StatusError carries a non-2xx answer. Detail is the service's error text
// when it sent one.
type StatusError struct {
	Status int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("backend: status %d", e.Status)
	}
	return fmt.Sprintf("backend: status %d: %s", e.Status, e.Detail)
}

type QRCode struct {
	CredentialID    string `json:"credential_id,omitempty"`
	QRCode          string `json:"qr_code"`
	VerificationURL string `json:"verification_url"`
}

type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient returns a client for baseURL, e.g. "http://localhost:8000/api".
// A zero timeout uses the default.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("backend: base url is empty")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, errors.Wrap(err, "backend: base url")
	}
	if timeout <= 0 {
		timeout = constants.DefaultBackendTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
	}, nil
}

// QRCode wraps GET /credentials/{id}/qr.
func (c *Client) QRCode(ctx context.Context, credentialID string) (*QRCode, error) {
	resp, err := c.get(ctx, credentialID, "qr", "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out QRCode
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.Wrap(err, "backend: decode qr response")
	}
	if out.QRCode == "" {
		return nil, errors.New("backend: qr response without qr_code")
	}
	return &out, nil
}

// PDF wraps GET /credentials/{id}/pdf. The caller closes the stream.
func (c *Client) PDF(ctx context.Context, credentialID string) (io.ReadCloser, error) {
	resp, err := c.get(ctx, credentialID, "pdf", "application/pdf")
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) get(ctx context.Context, credentialID, leaf, accept string) (*http.Response, error) {
	if strings.TrimSpace(credentialID) == "" {
		return nil, errors.New("backend: credential id is empty")
	}
	u := c.baseURL + "/credentials/" + url.PathEscape(credentialID) + "/" + leaf

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", accept)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "backend: get %s", leaf)
	}
	if resp.StatusCode == http.StatusOK {
		return resp, nil
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	serr := &StatusError{Status: resp.StatusCode, Detail: detail(body)}
	log.Error("backend: request failed", "path", leaf, "credential_id", credentialID, "status", resp.StatusCode, "error", serr)
	return nil, serr
}

// detail pulls FastAPI style {"detail": "..."} or falls back to the raw body.
func detail(body []byte) string {
	var e struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Detail != nil {
		if s, ok := e.Detail.(string); ok {
			return s
		}
		b, _ := json.Marshal(e.Detail)
		return string(b)
	}
	return strings.TrimSpace(string(body))
}
