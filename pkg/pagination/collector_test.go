package pagination

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Sternrassler/order-report/pkg/order"
)

// scriptedFetcher serves pre-built pages and records which indices were requested.
type scriptedFetcher struct {
	pages     []*Page
	failAt    int
	requested []int
}

func (f *scriptedFetcher) FetchPage(ctx context.Context, page int) (*Page, error) {
	f.requested = append(f.requested, page)
	if f.failAt >= 0 && page == f.failAt {
		return nil, errors.New("server exploded")
	}
	if page >= len(f.pages) {
		return &Page{}, nil
	}
	return f.pages[page], nil
}

func records(n, offset int) order.ResultSet {
	rs := make(order.ResultSet, n)
	for i := range rs {
		rs[i] = order.NewRecord(order.F("id", order.Int(int64(offset+i))))
	}
	return rs
}

func withTotal(rs order.ResultSet, total int) *Page {
	return &Page{Records: rs, TotalCount: total, HasTotal: true}
}

func TestCollect_TerminationConditions(t *testing.T) {
	tests := []struct {
		name          string
		pageSize      int
		pages         []*Page
		wantRecords   int
		wantPages     int
		wantReason    StopReason
		wantRequested []int
	}{
		{
			name:     "empty page stops after pages 0-1",
			pageSize: 2,
			pages: []*Page{
				withTotal(records(2, 0), 100),
				withTotal(records(2, 2), 100),
				withTotal(nil, 100),
			},
			wantRecords:   4,
			wantPages:     3,
			wantReason:    StopEmptyPage,
			wantRequested: []int{0, 1, 2},
		},
		{
			name:     "short page stops before total is reached",
			pageSize: 100,
			pages: []*Page{
				withTotal(records(100, 0), 1000),
				withTotal(records(37, 100), 1000),
				withTotal(records(100, 137), 1000),
			},
			wantRecords:   137,
			wantPages:     2,
			wantReason:    StopShortPage,
			wantRequested: []int{0, 1},
		},
		{
			name:     "total reached on a full page",
			pageSize: 3,
			pages: []*Page{
				withTotal(records(3, 0), 6),
				withTotal(records(3, 3), 6),
				withTotal(records(3, 6), 6),
			},
			wantRecords:   6,
			wantPages:     2,
			wantReason:    StopTotalReached,
			wantRequested: []int{0, 1},
		},
		{
			name:     "total reached mid page keeps the whole page",
			pageSize: 4,
			pages: []*Page{
				withTotal(records(4, 0), 5),
				withTotal(records(4, 4), 5),
			},
			wantRecords:   8,
			wantPages:     2,
			wantReason:    StopTotalReached,
			wantRequested: []int{0, 1},
		},
		{
			name:     "missing total counts as zero",
			pageSize: 2,
			pages: []*Page{
				{Records: records(2, 0)},
				{Records: records(2, 2)},
			},
			wantRecords:   2,
			wantPages:     1,
			wantReason:    StopTotalReached,
			wantRequested: []int{0},
		},
		{
			name:          "first page empty yields empty result",
			pageSize:      100,
			pages:         []*Page{withTotal(nil, 0)},
			wantRecords:   0,
			wantPages:     1,
			wantReason:    StopEmptyPage,
			wantRequested: []int{0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &scriptedFetcher{pages: tt.pages, failAt: -1}

			result, err := Collect(context.Background(), f, tt.pageSize)
			if err != nil {
				t.Fatalf("Collect failed: %v", err)
			}

			if len(result.Records) != tt.wantRecords {
				t.Errorf("records = %d, want %d", len(result.Records), tt.wantRecords)
			}
			if result.Pages != tt.wantPages {
				t.Errorf("pages = %d, want %d", result.Pages, tt.wantPages)
			}
			if result.Reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", result.Reason, tt.wantReason)
			}
			if fmt.Sprint(f.requested) != fmt.Sprint(tt.wantRequested) {
				t.Errorf("requested pages = %v, want %v", f.requested, tt.wantRequested)
			}
		})
	}
}

func TestCollect_PreservesOrderAcrossPages(t *testing.T) {
	f := &scriptedFetcher{
		pages: []*Page{
			withTotal(records(2, 0), 5),
			withTotal(records(2, 2), 5),
			withTotal(records(1, 4), 5),
		},
		failAt: -1,
	}

	result, err := Collect(context.Background(), f, 2)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	for i, rec := range result.Records {
		v, _ := rec.Get("id")
		if id, _ := v.Int64(); id != int64(i) {
			t.Errorf("record %d has id %d", i, id)
		}
	}
}

func TestCollect_ErrorDiscardsPartialResults(t *testing.T) {
	f := &scriptedFetcher{
		pages: []*Page{
			withTotal(records(2, 0), 10),
			withTotal(records(2, 2), 10),
		},
		failAt: 1,
	}

	result, err := Collect(context.Background(), f, 2)
	if err == nil {
		t.Fatal("expected error from failing page")
	}
	if result != nil {
		t.Errorf("expected nil result on error, got %d records", len(result.Records))
	}
}

func TestCollect_InvalidArguments(t *testing.T) {
	if _, err := Collect(context.Background(), nil, 10); err == nil {
		t.Error("expected error for nil fetcher")
	}
	if _, err := Collect(context.Background(), &scriptedFetcher{failAt: -1}, 0); err == nil {
		t.Error("expected error for zero page size")
	}
}

func TestCollect_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := &scriptedFetcher{failAt: -1}
	if _, err := Collect(ctx, f, 10); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if len(f.requested) != 0 {
		t.Errorf("no page should be requested, got %v", f.requested)
	}
}
