package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/frankbria/auto-author/internal/domain"
	"github.com/frankbria/auto-author/internal/service/retention"
)

type sweeperMock struct {
	SweepFunc func(ctx context.Context) (retention.Report, error)
}

func (m *sweeperMock) Sweep(ctx context.Context) (retention.Report, error) {
	return m.SweepFunc(ctx)
}

func TestSweepHandler_OK(t *testing.T) {
	t.Parallel()

	failed := uuid.New()
	h := NewSweepHandler(&sweeperMock{SweepFunc: func(context.Context) (retention.Report, error) {
		return retention.Report{
			BooksScanned:   3,
			BooksChanged:   1,
			ChaptersPurged: 4,
			Failures:       []retention.BookFailure{{BookID: failed, Err: domain.ErrConcurrencyConflict}},
			Duration:       1500 * time.Millisecond,
		}, nil
	}}, slog.Default(), 0)

	rec := httptest.NewRecorder()
	h.Sweep(rec, httptest.NewRequest(http.MethodPost, "/admin/retention/sweep", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp SweepResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.BooksScanned != 3 || resp.ChaptersPurged != 4 || resp.Duration != "1.5s" {
		t.Errorf("unexpected response %+v", resp)
	}
	if len(resp.Failures) != 1 || resp.Failures[0].BookID != failed.String() {
		t.Errorf("failures = %+v", resp.Failures)
	}
}

func TestSweepHandler_Error(t *testing.T) {
	t.Parallel()

	h := NewSweepHandler(&sweeperMock{SweepFunc: func(context.Context) (retention.Report, error) {
		return retention.Report{}, errors.New("list books: store unavailable")
	}}, slog.Default(), 0)

	rec := httptest.NewRecorder()
	h.Sweep(rec, httptest.NewRequest(http.MethodPost, "/admin/retention/sweep", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestSweepHandler_OneAtATime(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	h := NewSweepHandler(&sweeperMock{SweepFunc: func(context.Context) (retention.Report, error) {
		close(started)
		<-release
		return retention.Report{}, nil
	}}, slog.Default(), 0)

	var wg sync.WaitGroup
	wg.Add(1)
	first := httptest.NewRecorder()
	go func() {
		defer wg.Done()
		h.Sweep(first, httptest.NewRequest(http.MethodPost, "/admin/retention/sweep", nil))
	}()
	<-started

	second := httptest.NewRecorder()
	h.Sweep(second, httptest.NewRequest(http.MethodPost, "/admin/retention/sweep", nil))
	close(release)
	wg.Wait()

	if second.Code != http.StatusConflict {
		t.Errorf("concurrent sweep status = %d, want 409", second.Code)
	}
	if first.Code != http.StatusOK {
		t.Errorf("first sweep status = %d, want 200", first.Code)
	}
}

func TestSweepHandler_OutlivesServerWriteTimeout(t *testing.T) {
	t.Parallel()

	h := NewSweepHandler(&sweeperMock{SweepFunc: func(context.Context) (retention.Report, error) {
		time.Sleep(300 * time.Millisecond)
		return retention.Report{BooksScanned: 12}, nil
	}}, slog.Default(), time.Minute)

	srv := httptest.NewUnstartedServer(http.HandlerFunc(h.Sweep))
	srv.Config.WriteTimeout = 100 * time.Millisecond
	srv.Start()
	t.Cleanup(srv.Close)

	resp, err := http.Post(srv.URL+"/admin/retention/sweep", "application/json", nil)
	if err != nil {
		t.Fatalf("sweep response lost: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body SweepResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.BooksScanned != 12 {
		t.Errorf("unexpected response %+v", body)
	}
}

func TestSweepHandler_Timeout(t *testing.T) {
	t.Parallel()

	h := NewSweepHandler(&sweeperMock{SweepFunc: func(ctx context.Context) (retention.Report, error) {
		<-ctx.Done()
		return retention.Report{}, ctx.Err()
	}}, slog.Default(), 20*time.Millisecond)

	rec := httptest.NewRecorder()
	h.Sweep(rec, httptest.NewRequest(http.MethodPost, "/admin/retention/sweep", nil))

	if rec.Code != http.StatusGatewayTimeout {
		t.Fatalf("status = %d, want 504", rec.Code)
	}
}
