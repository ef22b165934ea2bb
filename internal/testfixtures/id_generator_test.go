package testfixtures

import (
	"sync"
	"testing"
)

func TestIDGeneratorProducesSequentialIDs(t *testing.T) {
	t.Parallel()

	gen := NewIDGenerator("booking")
	if first, second := gen.Next(), gen.Next(); first != "booking-1" || second != "booking-2" {
		t.Fatalf("unexpected identifiers: %q, %q", first, second)
	}
	if got := NewIDGenerator("").Next(); got != "id-1" {
		t.Fatalf("expected default prefix, got %q", got)
	}
}

func TestIDGeneratorIsUniqueUnderConcurrency(t *testing.T) {
	t.Parallel()

	gen := NewIDGenerator("c")
	var mu sync.Mutex
	seen := make(map[string]struct{})
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := gen.Next()
			mu.Lock()
			seen[id] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(seen) != 16 || gen.Issued() != 16 {
		t.Fatalf("expected 16 unique ids, got %d (issued %d)", len(seen), gen.Issued())
	}
}
