package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrNotFound is matched by errors returned for unknown records and
// unrecognised or superseded QR codes.
var ErrNotFound = errors.New("record not found")

// APIError is returned when ledgerd answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("ledgerd returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("ledgerd returned HTTP %d: %s", e.StatusCode, e.Message)
}

// Is makes errors.Is(err, ErrNotFound) hold for 404 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Client talks to a ledgerd instance.
type Client struct {
	base        string
	httpClient  *http.Client
	bearerToken string
}

// Option is a functional option for configuring a Client.
type Option func(*Client) error

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return errors.New("nil http client")
		}
		c.httpClient = hc
		return nil
	}
}

// WithBearerToken attaches a user token to every request.
func WithBearerToken(token string) Option {
	return func(c *Client) error {
		c.bearerToken = token
		return nil
	}
}

// WithTimeout overrides the default 10 second request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		c.httpClient.Timeout = d
		return nil
	}
}

// New creates a Client for the ledgerd instance at base, e.g. "http://localhost:8080".
func New(base string, opts ...Option) (*Client, error) {
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", base)
	}
	c := &Client{
		base:       strings.TrimRight(base, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MustNew is like New but panics on error.
func MustNew(base string, opts ...Option) *Client {
	c, err := New(base, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// RegisterGuide records a guide and returns the issued QR token.
func (c *Client) RegisterGuide(ctx context.Context, g Guide) (*Receipt, error) {
	var rc Receipt
	if err := c.call(ctx, http.MethodPost, "/api/v1/guides", g, &rc); err != nil {
		return nil, err
	}
	return &rc, nil
}

// RegisterProduct records a product and returns the issued QR token.
func (c *Client) RegisterProduct(ctx context.Context, p Product) (*Receipt, error) {
	var rc Receipt
	if err := c.call(ctx, http.MethodPost, "/api/v1/products", p, &rc); err != nil {
		return nil, err
	}
	return &rc, nil
}

// RegisterArtisan records an artisan and returns the issued QR token.
func (c *Client) RegisterArtisan(ctx context.Context, a Artisan) (*Receipt, error) {
	var rc Receipt
	if err := c.call(ctx, http.MethodPost, "/api/v1/artisans", a, &rc); err != nil {
		return nil, err
	}
	return &rc, nil
}

// VerifyGuide resolves a guide QR token.
func (c *Client) VerifyGuide(ctx context.Context, qr string) (*Guide, error) {
	var out struct {
		Guide Guide `json:"guide"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/guides/verify?qr="+url.QueryEscape(qr), nil, &out); err != nil {
		return nil, err
	}
	return &out.Guide, nil
}

// VerifyProduct resolves a product QR token.
func (c *Client) VerifyProduct(ctx context.Context, qr string) (*Product, error) {
	var out struct {
		Product Product `json:"product"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/products/verify?qr="+url.QueryEscape(qr), nil, &out); err != nil {
		return nil, err
	}
	return &out.Product, nil
}

// VerifyArtisan resolves an artisan QR token.
func (c *Client) VerifyArtisan(ctx context.Context, qr string) (*Artisan, error) {
	var out struct {
		Artisan Artisan `json:"artisan"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/artisans/verify?qr="+url.QueryEscape(qr), nil, &out); err != nil {
		return nil, err
	}
	return &out.Artisan, nil
}

// RecordBooking appends a booking and returns its hash and confirmation code.
func (c *Client) RecordBooking(ctx context.Context, b Booking) (*BookingReceipt, error) {
	var rc BookingReceipt
	if err := c.call(ctx, http.MethodPost, "/api/v1/bookings", b, &rc); err != nil {
		return nil, err
	}
	return &rc, nil
}

// VerifyBooking looks a booking up by id or BOOKING_ confirmation code.
func (c *Client) VerifyBooking(ctx context.Context, id string) (*Booking, error) {
	var out struct {
		Booking Booking `json:"booking"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/bookings/"+url.PathEscape(id)+"/verify", nil, &out); err != nil {
		return nil, err
	}
	return &out.Booking, nil
}

// Scan verifies any scanned code, dispatching on its prefix server-side.
func (c *Client) Scan(ctx context.Context, qr string) (*ScanResult, error) {
	var out ScanResult
	if err := c.call(ctx, http.MethodGet, "/api/v1/scan?qr="+url.QueryEscape(qr), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ledger returns the chain length and tip.
func (c *Client) Ledger(ctx context.Context) (*LedgerOverview, error) {
	var out LedgerOverview
	if err := c.call(ctx, http.MethodGet, "/api/v1/ledger", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyChain runs an integrity check. scope is "memory" or "store"; empty means memory.
func (c *Client) VerifyChain(ctx context.Context, scope string) (*ChainStatus, error) {
	path := "/api/v1/ledger/verify"
	if scope != "" {
		path += "?scope=" + url.QueryEscape(scope)
	}
	var out ChainStatus
	if err := c.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetRecord fetches the chain record at idx.
func (c *Client) GetRecord(ctx context.Context, idx int) (*Record, error) {
	var out Record
	if err := c.call(ctx, http.MethodGet, "/api/v1/ledger/records/"+strconv.Itoa(idx), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Analytics fetches the aggregate counts. Requires a registrar token.
func (c *Client) Analytics(ctx context.Context) (*Analytics, error) {
	var out Analytics
	if err := c.call(ctx, http.MethodGet, "/api/v1/ledger/analytics", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health returns nil when ledgerd and its store are reachable.
func (c *Client) Health(ctx context.Context) error {
	return c.call(ctx, http.MethodGet, "/healthz", nil, nil)
}

// call JSON-encodes in (when non-nil), issues the request and decodes the
// response into out (when non-nil).
func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	respBody, err := c.do(req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	if c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(body, &e)
		return nil, &APIError{StatusCode: resp.StatusCode, Message: e.Error}
	}
	return body, nil
}
