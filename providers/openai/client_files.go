package openai

import (
	"context"
	"fmt"
	"io"
	"iter"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/petal-labs/oaikit/core"
)

const filesPath = "/files"

// UploadFile uploads a file for use with batches, vision, or other endpoints.
func (p *OpenAI) UploadFile(ctx context.Context, req *FileUploadRequest) (*File, error) {
	if req.File == nil || req.Filename == "" {
		return nil, fmt.Errorf("%w: file and filename are required", core.ErrBadRequest)
	}
	if req.Purpose == "" {
		return nil, fmt.Errorf("%w: file purpose is required", core.ErrBadRequest)
	}

	var file File
	err := p.doMultipart(ctx, filesPath, func(w *multipart.Writer) error {
		if err := writeFields(w, "purpose", string(req.Purpose)); err != nil {
			return err
		}
		if req.ExpiresAfter != nil {
			if err := writeFields(w,
				"expires_after[anchor]", req.ExpiresAfter.Anchor,
				"expires_after[seconds]", strconv.Itoa(req.ExpiresAfter.Seconds),
			); err != nil {
				return err
			}
		}
		return writeFile(w, "file", req.Filename, req.File)
	}, &file)
	if err != nil {
		return nil, err
	}
	return &file, nil
}

// ListFiles returns one page of files.
func (p *OpenAI) ListFiles(ctx context.Context, req *FileListRequest) (*Page[File], error) {
	query := make(url.Values)
	if req != nil {
		if req.Purpose != "" {
			query.Set("purpose", string(req.Purpose))
		}
		if req.Limit > 0 {
			query.Set("limit", strconv.Itoa(req.Limit))
		}
		if req.After != "" {
			query.Set("after", req.After)
		}
		if req.Order != "" {
			query.Set("order", req.Order)
		}
	}

	var page Page[File]
	if err := p.doJSON(ctx, http.MethodGet, filesPath, query, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// AllFiles iterates over every file matching req, fetching pages as needed.
func (p *OpenAI) AllFiles(ctx context.Context, req *FileListRequest) iter.Seq2[File, error] {
	base := FileListRequest{}
	if req != nil {
		base = *req
	}
	return paginate(ctx, base.After, func(ctx context.Context, after string) (*Page[File], error) {
		r := base
		r.After = after
		return p.ListFiles(ctx, &r)
	}, func(f File) string { return f.ID })
}

// GetFile retrieves file metadata.
func (p *OpenAI) GetFile(ctx context.Context, fileID string) (*File, error) {
	if fileID == "" {
		return nil, fmt.Errorf("%w: file id is required", core.ErrBadRequest)
	}
	var file File
	if err := p.doJSON(ctx, http.MethodGet, filesPath+"/"+url.PathEscape(fileID), nil, nil, &file); err != nil {
		return nil, err
	}
	return &file, nil
}

// GetFileContent downloads file content. The caller must close the reader.
func (p *OpenAI) GetFileContent(ctx context.Context, fileID string) (io.ReadCloser, error) {
	if fileID == "" {
		return nil, fmt.Errorf("%w: file id is required", core.ErrBadRequest)
	}
	return p.doRaw(ctx, &apiRequest{
		method: http.MethodGet,
		path:   filesPath + "/" + url.PathEscape(fileID) + "/content",
	})
}

// DeleteFile deletes a file.
func (p *OpenAI) DeleteFile(ctx context.Context, fileID string) (*FileDeleteResponse, error) {
	if fileID == "" {
		return nil, fmt.Errorf("%w: file id is required", core.ErrBadRequest)
	}
	var out FileDeleteResponse
	if err := p.doJSON(ctx, http.MethodDelete, filesPath+"/"+url.PathEscape(fileID), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
