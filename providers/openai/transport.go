package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/petal-labs/oaikit/core"
	"github.com/petal-labs/oaikit/providers/internal/normalize"
)

// apiRequest describes one HTTP call. body is buffered so a retry can resend it.
type apiRequest struct {
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
	accept      string
}

// endpoint joins the base URL, path, and configured plus per-call query.
func (p *OpenAI) endpoint(path string, query url.Values) string {
	u := p.config.BaseURL + path
	q := make(url.Values)
	for k, v := range p.config.Query {
		q[k] = append([]string(nil), v...)
	}
	for k, v := range query {
		q[k] = append(q[k], v...)
	}
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

// send executes r under the configured retry policy. On success the caller
// owns the response body. Non-2xx responses are read, closed, and returned
// as a *core.ProviderError.
func (p *OpenAI) send(ctx context.Context, r *apiRequest) (*http.Response, error) {
	attempt := 0
	return core.Retry(ctx, p.config.Retry, func(ctx context.Context) (*http.Response, error) {
		attempt++
		return p.roundTrip(ctx, r, attempt)
	})
}

func (p *OpenAI) roundTrip(ctx context.Context, r *apiRequest, attempt int) (*http.Response, error) {
	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, r.method, p.endpoint(r.path, r.query), body)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", p.ID(), err)
	}
	httpReq.Header = p.buildHeaders()
	if r.contentType != "" {
		httpReq.Header.Set("Content-Type", r.contentType)
	}
	if r.accept != "" {
		httpReq.Header.Set("Accept", r.accept)
	}

	start := time.Now()
	resp, err := p.config.HTTPClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		p.config.Logger.Debug("request failed",
			zap.String("method", r.method),
			zap.String("path", r.path),
			zap.Duration("duration", time.Since(start)),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		return nil, p.networkError(err)
	}

	requestID := resp.Header.Get("x-request-id")
	p.config.Logger.Debug("request",
		zap.String("method", r.method),
		zap.String("path", r.path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
		zap.String("request_id", requestID),
		zap.Int("attempt", attempt),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(resp.Body)
		return nil, normalize.OpenAIStyleProviderError(p.ID(), resp.StatusCode, respBody, resp.Header)
	}
	return resp, nil
}

// withTimeout applies the configured per-request timeout.
func (p *OpenAI) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.config.Timeout > 0 {
		return context.WithTimeout(ctx, p.config.Timeout)
	}
	return context.WithCancel(ctx)
}

// doJSON sends in as a JSON body (nil for none) and decodes the response into out (nil to discard).
func (p *OpenAI) doJSON(ctx context.Context, method, path string, query url.Values, in, out any) error {
	r := &apiRequest{method: method, path: path, query: query, accept: "application/json"}
	if in != nil {
		body, err := jsonBody(in)
		if err != nil {
			return p.wrap(err)
		}
		r.body = body
		r.contentType = "application/json"
	}
	return p.do(ctx, r, out)
}

// doMultipart builds a multipart form with fill and decodes the JSON response into out.
func (p *OpenAI) doMultipart(ctx context.Context, path string, fill func(w *multipart.Writer) error, out any) error {
	body, contentType, err := buildMultipart(fill)
	if err != nil {
		return fmt.Errorf("%s: %w", p.ID(), err)
	}
	return p.do(ctx, &apiRequest{
		method:      http.MethodPost,
		path:        path,
		body:        body,
		contentType: contentType,
	}, out)
}

func (p *OpenAI) do(ctx context.Context, r *apiRequest, out any) error {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	resp, err := p.send(ctx, r)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return p.decodeError(err)
	}
	return nil
}

// doRaw returns the response body unread. The request timeout, if any,
// stays in force until the returned reader is closed.
func (p *OpenAI) doRaw(ctx context.Context, r *apiRequest) (io.ReadCloser, error) {
	ctx, cancel := p.withTimeout(ctx)
	resp, err := p.send(ctx, r)
	if err != nil {
		cancel()
		return nil, err
	}
	return &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

func buildMultipart(fill func(w *multipart.Writer) error) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := fill(w); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// writeFields writes non-empty form fields in order.
func writeFields(w *multipart.Writer, kv ...string) error {
	if len(kv)%2 != 0 {
		return errors.New("writeFields: odd argument count")
	}
	for i := 0; i < len(kv); i += 2 {
		if kv[i+1] == "" {
			continue
		}
		if err := w.WriteField(kv[i], kv[i+1]); err != nil {
			return fmt.Errorf("write %s field: %w", kv[i], err)
		}
	}
	return nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// writeFile adds a file part whose Content-Type follows the filename extension.
func writeFile(w *multipart.Writer, field, filename string, r io.Reader) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(field), quoteEscaper.Replace(filename)))
	ct := mime.TypeByExtension(filepath.Ext(filename))
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)
	part, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create form file %s: %w", field, err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("copy %s content: %w", field, err)
	}
	return nil
}

func jsonBody(v any) ([]byte, error) {
	body, err := marshalJSON(v)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return body, nil
}

// marshalJSON is json.Marshal without HTML escaping, so prompts containing
// <, > or & go over the wire and into batch files as written.
func marshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
