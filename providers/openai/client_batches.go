package openai

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/petal-labs/oaikit/core"
)

const batchesPath = "/batches"

// DefaultBatchPollInterval is used by WaitForBatch when no interval is given.
const DefaultBatchPollInterval = 5 * time.Second

// CreateBatch starts a batch. CompletionWindow defaults to "24h".
func (p *OpenAI) CreateBatch(ctx context.Context, req *BatchCreateRequest) (*Batch, error) {
	if req.InputFileID == "" {
		return nil, fmt.Errorf("%w: input file id is required", core.ErrBadRequest)
	}
	if req.Endpoint == "" {
		return nil, fmt.Errorf("%w: batch endpoint is required", core.ErrBadRequest)
	}
	body := *req
	if body.CompletionWindow == "" {
		body.CompletionWindow = DefaultCompletionWindow
	}

	var batch Batch
	if err := p.doJSON(ctx, http.MethodPost, batchesPath, nil, &body, &batch); err != nil {
		return nil, err
	}
	return &batch, nil
}

// GetBatch retrieves a batch.
func (p *OpenAI) GetBatch(ctx context.Context, batchID string) (*Batch, error) {
	if batchID == "" {
		return nil, fmt.Errorf("%w: batch id is required", core.ErrBadRequest)
	}
	var batch Batch
	if err := p.doJSON(ctx, http.MethodGet, batchesPath+"/"+url.PathEscape(batchID), nil, nil, &batch); err != nil {
		return nil, err
	}
	return &batch, nil
}

// ListBatches returns one page of batches, newest first.
func (p *OpenAI) ListBatches(ctx context.Context, req *BatchListRequest) (*Page[Batch], error) {
	query := make(url.Values)
	if req != nil {
		if req.After != "" {
			query.Set("after", req.After)
		}
		if req.Limit > 0 {
			query.Set("limit", strconv.Itoa(req.Limit))
		}
	}
	var page Page[Batch]
	if err := p.doJSON(ctx, http.MethodGet, batchesPath, query, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// AllBatches iterates over every batch, fetching pages as needed.
func (p *OpenAI) AllBatches(ctx context.Context, req *BatchListRequest) iter.Seq2[Batch, error] {
	base := BatchListRequest{}
	if req != nil {
		base = *req
	}
	return paginate(ctx, base.After, func(ctx context.Context, after string) (*Page[Batch], error) {
		r := base
		r.After = after
		return p.ListBatches(ctx, &r)
	}, func(b Batch) string { return b.ID })
}

// CancelBatch requests cancellation. The batch moves to "cancelling" and
// later to "cancelled".
func (p *OpenAI) CancelBatch(ctx context.Context, batchID string) (*Batch, error) {
	if batchID == "" {
		return nil, fmt.Errorf("%w: batch id is required", core.ErrBadRequest)
	}
	var batch Batch
	if err := p.doJSON(ctx, http.MethodPost, batchesPath+"/"+url.PathEscape(batchID)+"/cancel", nil, nil, &batch); err != nil {
		return nil, err
	}
	return &batch, nil
}

// WaitForBatch polls until the batch reaches a terminal status or ctx is done.
// The terminal batch is returned without error even when it failed or expired.
func (p *OpenAI) WaitForBatch(ctx context.Context, batchID string, interval time.Duration) (*Batch, error) {
	if interval <= 0 {
		interval = DefaultBatchPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		batch, err := p.GetBatch(ctx, batchID)
		if err != nil {
			return nil, err
		}
		p.config.Logger.Debug("batch status",
			zap.String("batch_id", batch.ID),
			zap.String("status", string(batch.Status)),
			zap.Int("completed", batch.RequestCounts.Completed),
			zap.Int("total", batch.RequestCounts.Total),
		)
		if batch.Status.IsTerminal() {
			return batch, nil
		}

		select {
		case <-ctx.Done():
			return batch, ctx.Err()
		case <-ticker.C:
		}
	}
}
