package history

import (
	"strings"
	"testing"
)

func TestEmptyHistory(t *testing.T) {
	r := New(5)
	if got := r.String(); got != "No command history" {
		t.Fatalf("empty history: %q", got)
	}
	if r.Len() != 0 {
		t.Fatalf("len = %d", r.Len())
	}
}

func TestNumberingSurvivesEviction(t *testing.T) {
	r := New(2)
	r.Add("eval 1+1")
	r.Add("get memory.free")
	r.Add("eval 2+2")
	if r.Len() != 2 {
		t.Fatalf("len = %d, want 2", r.Len())
	}
	got := r.String()
	if strings.Contains(got, "1: ") {
		t.Fatalf("evicted entry still listed: %q", got)
	}
	if !strings.Contains(got, "2: get memory.free") || !strings.Contains(got, "3: eval 2+2") {
		t.Fatalf("history: %q", got)
	}
}

func TestDefaultCapacity(t *testing.T) {
	r := New(0)
	for i := 0; i < 150; i++ {
		r.Add("eval 1+1")
	}
	if r.Len() != 100 {
		t.Fatalf("len = %d, want 100", r.Len())
	}
}
