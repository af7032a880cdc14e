package pagination

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Sternrassler/rickmorty-client/pkg/model"
)

// fakeFetcher serves canned bodies by URL and records calls.
type fakeFetcher struct {
	mu     sync.Mutex
	bodies map[string]string
	errs   map[string]error
	calls  []string
}

func (f *fakeFetcher) Get(ctx context.Context, rawURL string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, rawURL)
	if err, ok := f.errs[rawURL]; ok {
		return nil, err
	}
	body, ok := f.bodies[rawURL]
	if !ok {
		return nil, fmt.Errorf("unexpected url %s", rawURL)
	}
	return []byte(body), nil
}

// locationPage renders a location collection page with the given ids.
func locationPage(total int, next string, ids ...int) string {
	var results []string
	for _, id := range ids {
		results = append(results, fmt.Sprintf(`{"id":%d,"name":"loc-%d","residents":[]}`, id, id))
	}
	nextJSON := "null"
	if next != "" {
		nextJSON = `"` + next + `"`
	}
	return fmt.Sprintf(`{"info":{"count":%d,"next":%s},"results":[%s]}`, total, nextJSON, strings.Join(results, ","))
}

func collectIDs(t *testing.T, f *fakeFetcher, first string) ([]int, error) {
	t.Helper()
	var ids []int
	err := Walk(context.Background(), f, first, func(page model.Page[model.LocationRecord]) error {
		for _, rec := range page.Items {
			ids = append(ids, rec.ID)
		}
		return nil
	})
	return ids, err
}

func TestWalk_ConcatenatesPagesInOrder(t *testing.T) {
	f := &fakeFetcher{bodies: map[string]string{
		"p1": locationPage(6, "p2", 1, 2),
		"p2": locationPage(6, "p3", 3, 4, 5),
		"p3": locationPage(6, "", 6),
	}}

	ids, err := collectIDs(t, f, "p1")
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}

	want := []int{1, 2, 3, 4, 5, 6}
	if fmt.Sprint(ids) != fmt.Sprint(want) {
		t.Errorf("ids = %v, want %v", ids, want)
	}
	if fmt.Sprint(f.calls) != "[p1 p2 p3]" {
		t.Errorf("calls = %v, want [p1 p2 p3]", f.calls)
	}
}

func TestWalk_SinglePage(t *testing.T) {
	f := &fakeFetcher{bodies: map[string]string{
		"only": locationPage(2, "", 7, 8),
	}}

	ids, err := collectIDs(t, f, "only")
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	if fmt.Sprint(ids) != "[7 8]" {
		t.Errorf("ids = %v, want [7 8]", ids)
	}
	if len(f.calls) != 1 {
		t.Errorf("calls = %d, want exactly 1", len(f.calls))
	}
}

func TestWalk_FetchErrorAborts(t *testing.T) {
	boom := errors.New("boom")
	f := &fakeFetcher{
		bodies: map[string]string{"p1": locationPage(4, "p2", 1, 2)},
		errs:   map[string]error{"p2": boom},
	}

	_, err := collectIDs(t, f, "p1")
	if !errors.Is(err, boom) {
		t.Fatalf("Expected boom, got %v", err)
	}
	if !strings.Contains(err.Error(), "fetch page 2") {
		t.Errorf("Error should name the failing page: %v", err)
	}
}

func TestWalk_MalformedPage(t *testing.T) {
	f := &fakeFetcher{bodies: map[string]string{"p1": `{"results": []}`}}

	_, err := collectIDs(t, f, "p1")
	if !errors.Is(err, model.ErrMalformedResponse) {
		t.Errorf("Expected ErrMalformedResponse, got %v", err)
	}
}

func TestWalk_VisitErrorStops(t *testing.T) {
	f := &fakeFetcher{bodies: map[string]string{
		"p1": locationPage(4, "p2", 1, 2),
		"p2": locationPage(4, "", 3, 4),
	}}
	stop := errors.New("stop")

	err := Walk(context.Background(), f, "p1", func(model.Page[model.LocationRecord]) error { return stop })
	if !errors.Is(err, stop) {
		t.Errorf("Expected visit error, got %v", err)
	}
	if len(f.calls) != 1 {
		t.Errorf("calls = %d, want 1", len(f.calls))
	}
}

func TestWalk_CyclicNextStopsOnCancel(t *testing.T) {
	f := &fakeFetcher{bodies: map[string]string{"loop": locationPage(1, "loop", 1)}}

	ctx, cancel := context.WithCancel(context.Background())
	visited := 0
	err := Walk(ctx, f, "loop", func(model.Page[model.LocationRecord]) error {
		visited++
		if visited == 5 {
			cancel()
		}
		return nil
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if visited != 5 {
		t.Errorf("visited = %d, want 5", visited)
	}
}

func TestFanOut_PreservesOrder(t *testing.T) {
	urls := []string{"u1", "u2", "u3", "u4", "u5"}

	got, err := FanOut(context.Background(), Config{MaxConcurrency: 3}, urls, func(ctx context.Context, u string) (string, error) {
		// Later URLs finish first.
		time.Sleep(time.Duration(len(urls)-int(u[1]-'0')) * 5 * time.Millisecond)
		return strings.ToUpper(u), nil
	})
	if err != nil {
		t.Fatalf("FanOut failed: %v", err)
	}

	if fmt.Sprint(got) != "[U1 U2 U3 U4 U5]" {
		t.Errorf("results = %v", got)
	}
}

func TestFanOut_RespectsConcurrencyLimit(t *testing.T) {
	var inFlight, peak int32
	urls := make([]string, 20)
	for i := range urls {
		urls[i] = fmt.Sprintf("u%d", i)
	}

	_, err := FanOut(context.Background(), Config{MaxConcurrency: 4}, urls, func(ctx context.Context, u string) (int, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return 0, nil
	})
	if err != nil {
		t.Fatalf("FanOut failed: %v", err)
	}
	if peak > 4 {
		t.Errorf("peak concurrency = %d, want <= 4", peak)
	}
}

func TestFanOut_FailFast(t *testing.T) {
	boom := errors.New("boom")
	urls := []string{"u1", "u2", "u3"}

	got, err := FanOut(context.Background(), DefaultConfig(), urls, func(ctx context.Context, u string) (string, error) {
		if u == "u2" {
			return "", boom
		}
		return u, nil
	})

	if !errors.Is(err, boom) {
		t.Fatalf("Expected boom, got %v", err)
	}
	if got != nil {
		t.Errorf("Expected no partial results, got %v", got)
	}
}

func TestFanOut_FailureCancelsOutstanding(t *testing.T) {
	boom := errors.New("boom")
	var cancelled int32

	_, err := FanOut(context.Background(), Config{MaxConcurrency: 2}, []string{"slow", "bad"}, func(ctx context.Context, u string) (string, error) {
		if u == "bad" {
			return "", boom
		}
		select {
		case <-ctx.Done():
			atomic.StoreInt32(&cancelled, 1)
			return "", ctx.Err()
		case <-time.After(2 * time.Second):
			return u, nil
		}
	})

	if !errors.Is(err, boom) {
		t.Fatalf("Expected boom, got %v", err)
	}
	if atomic.LoadInt32(&cancelled) != 1 {
		t.Error("Outstanding fetch should observe cancellation")
	}
}

func TestFanOut_Empty(t *testing.T) {
	got, err := FanOut(context.Background(), DefaultConfig(), nil, func(ctx context.Context, u string) (int, error) {
		t.Error("fetch should not be called")
		return 0, nil
	})
	if err != nil {
		t.Fatalf("FanOut failed: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Expected empty non-nil result, got %#v", got)
	}
}
