package airtable

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/ajitpratap0/airtable/pkg/clients"
	"github.com/ajitpratap0/airtable/pkg/errors"
	"github.com/ajitpratap0/airtable/pkg/json"
	"github.com/ajitpratap0/airtable/pkg/logger"
	"github.com/ajitpratap0/airtable/pkg/metrics"
	"github.com/ajitpratap0/airtable/pkg/ratelimit"
)

// maxErrorBody bounds how much of an error response is kept
const maxErrorBody = 64 * 1024

// call is a single request to the vendor
type call struct {
	method string
	url    string
	query  url.Values
	// body is marshaled as JSON; stream is sent as-is when body is nil
	body   any
	stream io.Reader
}

// apiURL joins escaped path segments under {endpoint}/v0
func (c *Client) apiURL(segments ...string) string {
	return joinURL(c.endpoint, segments)
}

// contentURL joins escaped path segments under {content endpoint}/v0
func (c *Client) contentURL(segments ...string) string {
	return joinURL(c.contentEndpoint, segments)
}

func joinURL(root string, segments []string) string {
	var sb strings.Builder
	sb.WriteString(root)
	sb.WriteString("/v0")
	for _, s := range segments {
		sb.WriteByte('/')
		sb.WriteString(url.PathEscape(s))
	}
	return sb.String()
}

// do sends req under the client limiters and decodes a 2xx JSON response
// into out (when non-nil). Failures are classified into the error taxonomy
// and never retried.
func (c *Client) do(ctx context.Context, req call, out any) error {
	if c.closed.Load() {
		return errors.New(errors.ErrorTypeTransport, "client is closed")
	}

	waitTimer := metrics.NewTimer()
	_, err := ratelimit.Do(ctx, c.limiter, func(ctx context.Context) (struct{}, error) {
		metrics.LimiterWait.Observe(waitTimer.Stop().Seconds())
		return struct{}{}, c.send(ctx, req, out)
	})
	if err != nil {
		if errors.TypeOf(err) == "" {
			// limiter admission interrupted by the caller's context
			return errors.Wrap(err, errors.ErrorTypeTransport, "request not sent")
		}
		return err
	}
	return nil
}

func (c *Client) send(ctx context.Context, req call, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var body io.Reader
	switch {
	case req.body != nil:
		data, err := json.Marshal(req.body)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeValidation, "failed to encode request body")
		}
		body = bytes.NewReader(data)
	case req.stream != nil:
		body = req.stream
	}

	target := req.url
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeValidation, "failed to build request")
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	requestID := uuid.NewString()
	httpReq.Header.Set(clients.RequestIDHeader, requestID)

	log := logger.FromContext(logger.WithRequestID(ctx, requestID), c.logger).With(
		zap.String("method", req.method),
		zap.String("path", httpReq.URL.Path),
	)

	resp, err := c.doer.Do(httpReq)
	if err != nil {
		log.Debug("airtable request failed", zap.Error(err))
		var tokenErr *oauth2.RetrieveError
		if stderrors.As(err, &tokenErr) {
			e := errors.Wrap(err, errors.ErrorTypeAuthentication, "oauth2 token refresh failed").
				WithDetail("request_id", requestID)
			if tokenErr.Response != nil {
				e = e.WithStatus(tokenErr.Response.StatusCode)
			}
			return e
		}
		return errors.Wrap(err, errors.ErrorTypeTransport, "request failed").
			WithDetail("method", req.method).
			WithDetail("path", httpReq.URL.Path).
			WithDetail("request_id", requestID)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		classified := classifyResponse(resp.StatusCode, data).
			WithDetail("method", req.method).
			WithDetail("path", httpReq.URL.Path).
			WithDetail("request_id", requestID)
		if classified.Type == errors.ErrorTypeRateLimit {
			log.Warn("airtable rate limit reached", zap.Int("status", resp.StatusCode))
		} else {
			log.Debug("airtable request rejected", zap.Int("status", resp.StatusCode), zap.Error(classified))
		}
		return classified
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeTransport, "failed to read response body").
			WithStatus(resp.StatusCode).
			WithDetail("request_id", requestID)
	}
	log.Debug("airtable request completed", zap.Int("status", resp.StatusCode), zap.Int("bytes", len(data)))

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "failed to decode response").
			WithStatus(resp.StatusCode).
			WithDetail("request_id", requestID)
	}
	return nil
}

// vendorError is the error member of an Airtable error body, either
// {"error":"NOT_FOUND"} or {"error":{"type":"...","message":"..."}}
type vendorError struct {
	Type    string
	Message string
}

func (v *vendorError) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v.Type = s
		return nil
	}
	var obj struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	v.Type, v.Message = obj.Type, obj.Message
	return nil
}

// classifyResponse maps a non-2xx status and body to the error taxonomy
func classifyResponse(status int, body []byte) *errors.Error {
	var errType errors.ErrorType
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		errType = errors.ErrorTypeAuthentication
	case status == http.StatusNotFound:
		errType = errors.ErrorTypeNotFound
	case status == http.StatusTooManyRequests:
		errType = errors.ErrorTypeRateLimit
	case status >= 500:
		errType = errors.ErrorTypeServer
	case status >= 400:
		errType = errors.ErrorTypeValidation
	default:
		errType = errors.ErrorTypeServer
	}

	var parsed struct {
		Error *vendorError `json:"error"`
	}
	_ = json.Unmarshal(body, &parsed)

	message := http.StatusText(status)
	if message == "" {
		message = "unexpected status"
	}
	if parsed.Error != nil && parsed.Error.Message != "" {
		message = parsed.Error.Message
	}

	e := errors.Newf(errType, "%s (HTTP %d)", message, status).WithStatus(status)
	if parsed.Error != nil && parsed.Error.Type != "" {
		e = e.WithDetail("vendor_type", parsed.Error.Type)
	}
	return e
}
