package openai

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"

	"github.com/google/uuid"

	"github.com/petal-labs/oaikit/core"
	"github.com/petal-labs/oaikit/providers/internal/normalize"
)

// maxBatchLine bounds a single output line; embedding results can be large.
const maxBatchLine = 16 << 20

// ErrDuplicateCustomID is returned by WriteBatchInput when two lines share a custom_id.
var ErrDuplicateCustomID = errors.New("duplicate batch custom_id")

// BatchLine is one request in a batch input file.
type BatchLine struct {
	CustomID string          `json:"custom_id"`
	Method   string          `json:"method"`
	URL      BatchEndpoint   `json:"url"`
	Body     json.RawMessage `json:"body"`
}

// NewChatBatchLine encodes a chat request as a batch line. An empty
// customID gets a random UUID.
func NewChatBatchLine(customID string, req *core.ChatRequest) (BatchLine, error) {
	if req.Model == "" {
		return BatchLine{}, core.ErrModelRequired
	}
	wire, err := buildChatRequest(req, false)
	if err != nil {
		return BatchLine{}, err
	}
	return newBatchLine(customID, BatchEndpointChat, wire)
}

// NewEmbeddingBatchLine encodes an embedding request as a batch line.
func NewEmbeddingBatchLine(customID string, req *core.EmbeddingRequest) (BatchLine, error) {
	if req.Model == "" {
		return BatchLine{}, core.ErrModelRequired
	}
	if len(req.Input) == 0 {
		return BatchLine{}, fmt.Errorf("%w: embedding input is empty", core.ErrBadRequest)
	}
	return newBatchLine(customID, BatchEndpointEmbeddings, buildEmbeddingRequest(req))
}

func newBatchLine(customID string, endpoint BatchEndpoint, body any) (BatchLine, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(body); err != nil {
		return BatchLine{}, fmt.Errorf("encode batch body: %w", err)
	}
	raw := bytes.TrimRight(buf.Bytes(), "\n")
	if customID == "" {
		customID = uuid.NewString()
	}
	return BatchLine{
		CustomID: customID,
		Method:   http.MethodPost,
		URL:      endpoint,
		Body:     raw,
	}, nil
}

// WriteBatchInput writes lines as JSONL.
func WriteBatchInput(w io.Writer, lines []BatchLine) error {
	seen := make(map[string]struct{}, len(lines))
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	for i, line := range lines {
		if _, dup := seen[line.CustomID]; dup {
			return fmt.Errorf("line %d: %w: %q", i, ErrDuplicateCustomID, line.CustomID)
		}
		seen[line.CustomID] = struct{}{}
		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("line %d: %w", i, err)
		}
	}
	return bw.Flush()
}

// BatchResult is one line of a batch output or error file.
type BatchResult struct {
	ID       string         `json:"id"`
	CustomID string         `json:"custom_id"`
	Response *BatchResponse `json:"response"`
	Error    *BatchError    `json:"error"`
}

// BatchResponse is the HTTP response recorded for one request.
type BatchResponse struct {
	StatusCode int             `json:"status_code"`
	RequestID  string          `json:"request_id"`
	Body       json.RawMessage `json:"body"`
}

// BatchError is a request-level failure that produced no response.
type BatchError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch request failed: %s: %s", e.Code, e.Message)
}

// ReadBatchOutput iterates over a batch output file. Blank lines are
// skipped; iteration stops after the first malformed line.
func ReadBatchOutput(r io.Reader) iter.Seq2[BatchResult, error] {
	return func(yield func(BatchResult, error) bool) {
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), maxBatchLine)
		lineNo := 0
		for sc.Scan() {
			lineNo++
			line := bytes.TrimSpace(sc.Bytes())
			if len(line) == 0 {
				continue
			}
			var res BatchResult
			if err := json.Unmarshal(line, &res); err != nil {
				yield(BatchResult{}, fmt.Errorf("batch output line %d: %w", lineNo, err))
				return
			}
			if !yield(res, nil) {
				return
			}
		}
		if err := sc.Err(); err != nil {
			yield(BatchResult{}, fmt.Errorf("batch output: %w", err))
		}
	}
}

// body returns the successful response body or the recorded failure.
func (r BatchResult) body() ([]byte, error) {
	if r.Error != nil {
		return nil, r.Error
	}
	if r.Response == nil {
		return nil, fmt.Errorf("batch result %q has no response", r.CustomID)
	}
	if r.Response.StatusCode < 200 || r.Response.StatusCode > 299 {
		err := normalize.OpenAIStyleProviderError("openai", r.Response.StatusCode, r.Response.Body, nil)
		var pe *core.ProviderError
		if errors.As(err, &pe) {
			pe.RequestID = r.Response.RequestID
		}
		return nil, err
	}
	return r.Response.Body, nil
}

// ChatResponse decodes a chat completion result.
func (r BatchResult) ChatResponse() (*core.ChatResponse, error) {
	body, err := r.body()
	if err != nil {
		return nil, err
	}
	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, normalize.DecodeError("openai", err)
	}
	return mapChatResponse(&resp)
}

// Embeddings decodes an embeddings result.
func (r BatchResult) Embeddings() (*core.EmbeddingResponse, error) {
	body, err := r.body()
	if err != nil {
		return nil, err
	}
	var resp embeddingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, normalize.DecodeError("openai", err)
	}
	out := &core.EmbeddingResponse{
		Model: core.ModelID(resp.Model),
		Usage: core.EmbeddingUsage{
			PromptTokens: resp.Usage.PromptTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
	}
	for _, d := range resp.Data {
		out.Vectors = append(out.Vectors, core.EmbeddingVector{
			Index:     d.Index,
			ID:        r.CustomID,
			Vector:    d.Embedding.Floats,
			VectorB64: d.Embedding.base64(),
		})
	}
	return out, nil
}
