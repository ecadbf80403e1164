package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/petal-labs/oaikit/core"
)

func TestCreateBatch(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/batches" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		var req BatchCreateRequest
		json.NewDecoder(r.Body).Decode(&req)
		want := BatchCreateRequest{
			InputFileID:      "file-in",
			Endpoint:         BatchEndpointChat,
			CompletionWindow: "24h",
			Metadata:         map[string]string{"job": "nightly"},
		}
		if diff := cmp.Diff(want, req); diff != "" {
			t.Errorf("request mismatch (-want +got):\n%s", diff)
		}
		w.Write([]byte(`{"id":"batch_1","object":"batch","endpoint":"/v1/chat/completions","input_file_id":"file-in","completion_window":"24h","status":"validating","created_at":1,"request_counts":{"total":0,"completed":0,"failed":0}}`))
	})

	b, err := p.CreateBatch(context.Background(), &BatchCreateRequest{
		InputFileID: "file-in",
		Endpoint:    BatchEndpointChat,
		Metadata:    map[string]string{"job": "nightly"},
	})
	if err != nil {
		t.Fatalf("CreateBatch() error = %v", err)
	}
	if b.ID != "batch_1" || b.Status != BatchStatusValidating {
		t.Errorf("batch = %+v", b)
	}
}

func TestCreateBatchValidation(t *testing.T) {
	p := New("k")
	if _, err := p.CreateBatch(context.Background(), &BatchCreateRequest{Endpoint: BatchEndpointChat}); !errors.Is(err, core.ErrBadRequest) {
		t.Errorf("err = %v", err)
	}
	if _, err := p.CreateBatch(context.Background(), &BatchCreateRequest{InputFileID: "f"}); !errors.Is(err, core.ErrBadRequest) {
		t.Errorf("err = %v", err)
	}
}

func TestCancelAndGetBatch(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method + " " + r.URL.Path {
		case "POST /batches/batch_1/cancel":
			w.Write([]byte(`{"id":"batch_1","status":"cancelling"}`))
		case "GET /batches/batch_1":
			w.Write([]byte(`{"id":"batch_1","status":"cancelled","request_counts":{"total":10,"completed":4,"failed":0}}`))
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
	})

	b, err := p.CancelBatch(context.Background(), "batch_1")
	if err != nil || b.Status != BatchStatusCancelling {
		t.Errorf("CancelBatch() = %+v, %v", b, err)
	}
	b, err = p.GetBatch(context.Background(), "batch_1")
	if err != nil || b.Status != BatchStatusCancelled || b.RequestCounts.Completed != 4 {
		t.Errorf("GetBatch() = %+v, %v", b, err)
	}
}

func TestAllBatches(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("after") {
		case "":
			w.Write([]byte(`{"object":"list","data":[{"id":"b1"},{"id":"b2"}],"has_more":true,"first_id":"b1","last_id":"b2"}`))
		case "b2":
			w.Write([]byte(`{"object":"list","data":[{"id":"b3"}],"has_more":false}`))
		default:
			t.Errorf("unexpected cursor %q", r.URL.Query().Get("after"))
		}
	})

	var ids []string
	for b, err := range p.AllBatches(context.Background(), nil) {
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, b.ID)
	}
	if diff := cmp.Diff([]string{"b1", "b2", "b3"}, ids); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
}

func TestWaitForBatch(t *testing.T) {
	var polls atomic.Int32
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		switch polls.Add(1) {
		case 1:
			w.Write([]byte(`{"id":"batch_1","status":"validating"}`))
		case 2:
			w.Write([]byte(`{"id":"batch_1","status":"in_progress"}`))
		default:
			w.Write([]byte(`{"id":"batch_1","status":"completed","output_file_id":"file-out"}`))
		}
	})

	b, err := p.WaitForBatch(context.Background(), "batch_1", time.Millisecond)
	if err != nil {
		t.Fatalf("WaitForBatch() error = %v", err)
	}
	if b.Status != BatchStatusCompleted || b.OutputFileID != "file-out" {
		t.Errorf("batch = %+v", b)
	}
	if polls.Load() != 3 {
		t.Errorf("polls = %d, want 3", polls.Load())
	}
}

func TestWaitForBatchContextDone(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"batch_1","status":"in_progress"}`))
	})
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := p.WaitForBatch(ctx, "batch_1", 5*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want DeadlineExceeded", err)
	}
}

func TestBatchStatusIsTerminal(t *testing.T) {
	terminal := map[BatchStatus]bool{
		BatchStatusValidating: false,
		BatchStatusInProgress: false,
		BatchStatusFinalizing: false,
		BatchStatusCancelling: false,
		BatchStatusCompleted:  true,
		BatchStatusFailed:     true,
		BatchStatusExpired:    true,
		BatchStatusCancelled:  true,
	}
	for s, want := range terminal {
		if s.IsTerminal() != want {
			t.Errorf("%s.IsTerminal() = %v, want %v", s, !want, want)
		}
	}
}
