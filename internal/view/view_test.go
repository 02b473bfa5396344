package view_test

import (
	"context"
	"sync"
	"testing"

	"tdo/internal/service"
	"tdo/internal/view"
)

func snapshot(ids ...string) view.Snapshot {
	todos := make([]service.Todo, len(ids))
	for i, id := range ids {
		todos[i] = service.Todo{ID: id}
	}
	return view.Snapshot{Todos: todos}
}

func TestLatest_EmptyBeforeFirstDelivery(t *testing.T) {
	v := view.New()
	if _, ok := v.Latest(); ok {
		t.Error("expected no snapshot before first delivery")
	}
}

func TestDeliver_LatestWins(t *testing.T) {
	v := view.New()

	first := v.Begin(context.Background())
	second := v.Begin(context.Background())

	if !v.Deliver(second, snapshot("new")) {
		t.Fatal("latest fetch should deliver")
	}
	// The slow first response arrives after the second already landed.
	if v.Deliver(first, snapshot("stale")) {
		t.Fatal("superseded fetch must be discarded")
	}

	snap, ok := v.Latest()
	if !ok || len(snap.Todos) != 1 || snap.Todos[0].ID != "new" {
		t.Errorf("expected visible state from latest fetch, got %+v ok=%v", snap, ok)
	}
}

func TestBegin_CancelsPriorFetch(t *testing.T) {
	v := view.New()

	first := v.Begin(context.Background())
	select {
	case <-first.Context().Done():
		t.Fatal("fetch cancelled before being superseded")
	default:
	}

	v.Begin(context.Background())
	select {
	case <-first.Context().Done():
	default:
		t.Error("expected prior fetch context cancelled by newer fetch")
	}
}

func TestDeliver_StaleAfterReset(t *testing.T) {
	v := view.New()

	f := v.Begin(context.Background())
	v.Reset()

	select {
	case <-f.Context().Done():
	default:
		t.Error("expected reset to cancel the in-flight fetch")
	}
	if v.Deliver(f, snapshot("late")) {
		t.Error("delivery after reset must be discarded")
	}
	if _, ok := v.Latest(); ok {
		t.Error("expected cleared state after reset")
	}
}

func TestDeliver_ConcurrentFetchesConverge(t *testing.T) {
	v := view.New()

	var wg sync.WaitGroup
	fetches := make([]view.Fetch, 20)
	for i := range fetches {
		fetches[i] = v.Begin(context.Background())
	}
	delivered := make([]bool, len(fetches))
	for i := range fetches {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			delivered[i] = v.Deliver(fetches[i], snapshot("fetch"))
		}(i)
	}
	wg.Wait()

	accepted := 0
	for i, ok := range delivered {
		if ok {
			accepted++
			if i != len(fetches)-1 {
				t.Errorf("fetch %d accepted, expected only the last", i)
			}
		}
	}
	if accepted != 1 {
		t.Errorf("expected exactly 1 accepted delivery, got %d", accepted)
	}
}
