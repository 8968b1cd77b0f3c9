package e2e

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"
)

func TestVisitorCountLifecycle(t *testing.T) {
	sut := startSystemUnderTest(t)
	defer sut.Close()
	if sut.restart == nil {
		t.Skip("lifecycle expects a fresh store")
	}
	client := NewClient(sut.BaseURL, nil)
	ctx := testContext(t)

	got, err := client.Get(ctx)
	if err != nil {
		t.Fatalf("initial get: %v", err)
	}
	if got.Count != 0 {
		t.Fatalf("fresh store count: got %d want 0", got.Count)
	}

	for want := uint64(1); want <= 3; want++ {
		got, err := client.Increment(ctx)
		if err != nil {
			t.Fatalf("increment %d: %v", want, err)
		}
		if got.Count != want {
			t.Fatalf("increment result: got %d want %d", got.Count, want)
		}
	}

	got, err = client.Get(ctx)
	if err != nil {
		t.Fatalf("final get: %v", err)
	}
	if got.Count != 3 {
		t.Fatalf("final count: got %d want 3", got.Count)
	}
}

func TestGetIsReadOnly(t *testing.T) {
	sut := startSystemUnderTest(t)
	defer sut.Close()
	client := NewClient(sut.BaseURL, nil)
	ctx := testContext(t)

	first, err := client.Get(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	for i := 0; i < 3; i++ {
		got, err := client.Get(ctx)
		if err != nil {
			t.Fatalf("get %d: %v", i, err)
		}
		if got.Count != first.Count {
			t.Fatalf("get changed count: got %d want %d", got.Count, first.Count)
		}
	}
}

func TestConcurrentIncrementsAreNotLost(t *testing.T) {
	sut := startSystemUnderTest(t)
	defer sut.Close()
	client := NewClient(sut.BaseURL, nil)
	ctx := testContext(t)

	before, err := client.Get(ctx)
	if err != nil {
		t.Fatalf("get before: %v", err)
	}

	const visits = 20
	var wg sync.WaitGroup
	for i := 0; i < visits; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = client.Increment(ctx)
		}()
	}
	wg.Wait()

	after, err := client.Get(ctx)
	if err != nil {
		t.Fatalf("get after: %v", err)
	}
	if after.Count != before.Count+visits {
		t.Fatalf("lost updates: got %d want %d", after.Count, before.Count+visits)
	}
}

func TestCompactDisplay(t *testing.T) {
	sut := startSystemUnderTest(t)
	defer sut.Close()
	client := NewClient(sut.BaseURL, nil)
	ctx := testContext(t)

	got, err := client.GetCompact(ctx)
	if err != nil {
		t.Fatalf("get compact: %v", err)
	}
	if got.Display == nil || *got.Display == "" {
		t.Fatalf("expected display field, got %+v", got)
	}
}

func TestBadRequestOnUnknownFormat(t *testing.T) {
	sut := startSystemUnderTest(t)
	defer sut.Close()
	ctx := testContext(t)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sut.BaseURL+"/api/visitor-count?format=binary", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown format, got %d", resp.StatusCode)
	}
}

func TestCountSurvivesRestart(t *testing.T) {
	sut := startSystemUnderTest(t)
	defer sut.Close()
	if sut.restart == nil {
		t.Skip("restart testing requires a controllable server")
	}

	client := NewClient(sut.BaseURL, nil)
	ctx := testContext(t)

	var last uint64
	for i := 0; i < 4; i++ {
		got, err := client.Increment(ctx)
		if err != nil {
			t.Fatalf("increment before restart: %v", err)
		}
		last = got.Count
	}

	sut.restart(t)

	got, err := client.Get(ctx)
	if err != nil {
		t.Fatalf("get after restart: %v", err)
	}
	if got.Count != last {
		t.Fatalf("restart lost count: got %d want %d", got.Count, last)
	}
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}
