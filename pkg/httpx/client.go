// Package httpx holds the outbound HTTP plumbing shared by the payment,
// SMS and maps gateway clients.
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"gigmarket/internal/metrics"

	"github.com/sony/gobreaker"
	"golang.org/x/net/proxy"
)

// GatewayError carries a third-party error message verbatim.
type GatewayError struct {
	Gateway string
	Message string
}

func (e *GatewayError) Error() string {
	return e.Message
}

// IsGatewayError reports whether err came from a gateway.
func IsGatewayError(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge)
}

// NewClient builds an HTTP client, optionally dialing through a SOCKS5 proxy.
func NewClient(proxyAddr string, timeout time.Duration) *http.Client {
	if proxyAddr == "" {
		return &http.Client{Timeout: timeout}
	}

	proxyURL := &url.URL{
		Scheme: "socks5h",
		Host:   proxyAddr,
	}

	dialer, err := proxy.FromURL(proxyURL, proxy.Direct)
	if err != nil {
		log.Printf("Failed to create SOCKS5 dialer: %v", err)
		return &http.Client{Timeout: timeout}
	}

	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			if cd, ok := dialer.(proxy.ContextDialer); ok {
				return cd.DialContext(ctx, network, addr)
			}
			return dialer.Dial(network, addr)
		},
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// NewBreaker trips after 3+ requests with a failure ratio of at least 60%.
func NewBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    5 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("Circuit breaker '%s' changed from %s to %s", name, from, to)
		},
	})
}

// Caller executes JSON requests against one gateway.
type Caller struct {
	Gateway string
	Client  *http.Client
	Breaker *gobreaker.CircuitBreaker
}

func NewCaller(gateway string, client *http.Client) *Caller {
	return &Caller{
		Gateway: gateway,
		Client:  client,
		Breaker: NewBreaker(gateway),
	}
}

// NewJSONRequest encodes body (if not nil) as JSON.
func NewJSONRequest(ctx context.Context, method, rawURL string, body any) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, r)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// Do sends req and decodes the JSON response into out. Transport failures,
// 5xx responses and undecodable bodies are errors; 4xx bodies are decoded so
// callers can surface the gateway's own message. A 5xx becomes a
// GatewayError carrying the provider's message when the body has one. Only
// transport failures and 5xx count against the circuit breaker.
func (c *Caller) Do(req *http.Request, endpoint string, out any) (int, error) {
	start := time.Now()

	result, err := c.Breaker.Execute(func() (interface{}, error) {
		resp, err := c.Client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}

		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, c.serverError(resp.StatusCode, body)
		}
		return &rawResponse{status: resp.StatusCode, body: body}, nil
	})

	metrics.GatewayRequestDuration.WithLabelValues(c.Gateway, endpoint).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.GatewayRequestsTotal.WithLabelValues(c.Gateway, endpoint, "error").Inc()
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return 0, &GatewayError{Gateway: c.Gateway, Message: c.Gateway + " is temporarily unavailable"}
		}
		return 0, err
	}

	raw := result.(*rawResponse)
	metrics.GatewayRequestsTotal.WithLabelValues(c.Gateway, endpoint, strconv.Itoa(raw.status)).Inc()

	if out != nil && len(raw.body) > 0 {
		if err := json.Unmarshal(raw.body, out); err != nil {
			return raw.status, fmt.Errorf("failed to parse %s response: %w", c.Gateway, err)
		}
	}
	return raw.status, nil
}

// serverError reads the message field the providers use for errors:
// "message" (Flutterwave, Termii) or "error_message" (Google).
func (c *Caller) serverError(status int, body []byte) *GatewayError {
	var e struct {
		Message      string `json:"message"`
		ErrorMessage string `json:"error_message"`
	}
	msg := ""
	if json.Unmarshal(body, &e) == nil {
		msg = e.Message
		if msg == "" {
			msg = e.ErrorMessage
		}
	}
	if msg == "" {
		msg = fmt.Sprintf("%s returned status %d", c.Gateway, status)
	}
	return &GatewayError{Gateway: c.Gateway, Message: msg}
}

type rawResponse struct {
	status int
	body   []byte
}
