package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// maxRetryAfter caps how long a rate-limit hint may stall one call.
const maxRetryAfter = 5 * time.Second

// APIError is a non-2xx answer from OpenRouteService. ORS reports details as
// {"error":{"code":2010,"message":"..."}}; Code is zero when the body has no
// such envelope and Message then holds the raw body.
type APIError struct {
	Status     int
	Code       int
	Message    string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("ors status %d (code %d): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("ors status %d: %s", e.Status, e.Message)
}

// Temporary reports whether repeating the call may succeed.
func (e *APIError) Temporary() bool {
	return e.Status == http.StatusTooManyRequests ||
		(e.Status >= 500 && e.Status != http.StatusNotImplemented)
}

// orsCall is one request against an ORS endpoint. body is sent as JSON.
type orsCall struct {
	method string
	path   string
	query  url.Values
	body   []byte
}

// call performs c and decodes the JSON answer into out. Network failures and
// temporary API errors are retried with doubling waits, stretched to the
// server's Retry-After hint when it asks for longer.
func (o *ORSRouteProvider) call(ctx context.Context, c orsCall, out any) error {
	wait := o.backoff
	for attempt := 1; ; attempt++ {
		err := o.send(ctx, c, out)
		if err == nil {
			return nil
		}
		if attempt >= o.maxAttempts || !temporary(err) {
			return err
		}

		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.RetryAfter > wait {
			wait = apiErr.RetryAfter
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		wait *= 2
	}
}

func (o *ORSRouteProvider) send(ctx context.Context, c orsCall, out any) error {
	target := o.baseURL + c.path
	if len(c.query) > 0 {
		target += "?" + c.query.Encode()
	}
	var body io.Reader
	if c.body != nil {
		body = bytes.NewReader(c.body)
	}

	req, err := http.NewRequestWithContext(ctx, c.method, target, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", c.path, err)
	}
	req.Header.Set("Authorization", o.apiKey)
	req.Header.Set("Accept", "application/json, application/geo+json")
	if c.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := o.session.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return readAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", c.path, err)
	}
	return nil
}

func readAPIError(resp *http.Response) *APIError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	e := &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}

	var envelope struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &envelope) == nil && envelope.Error.Message != "" {
		e.Code, e.Message = envelope.Error.Code, envelope.Error.Message
	}

	if secs, err := strconv.Atoi(strings.TrimSpace(resp.Header.Get("Retry-After"))); err == nil && secs > 0 {
		e.RetryAfter = min(time.Duration(secs)*time.Second, maxRetryAfter)
	}
	return e
}

func temporary(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
