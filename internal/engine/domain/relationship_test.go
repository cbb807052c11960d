package domain

import (
	"fmt"
	"testing"
)

func TestMergeFlags(t *testing.T) {
	merged := MergeFlags([]string{"saved_me"}, []string{"saved_me", "", "shared_meal"})
	if len(merged) != 2 {
		t.Fatalf("merged len = %d, want 2", len(merged))
	}
	if merged[0] != "saved_me" || merged[1] != "shared_meal" {
		t.Fatalf("unexpected merge order: %v", merged)
	}
}

func TestMergeFlagsCap(t *testing.T) {
	var existing []string
	for i := range FlagSetCap {
		existing = append(existing, fmt.Sprintf("flag-%d", i))
	}
	merged := MergeFlags(existing, []string{"one-too-many"})
	if len(merged) != FlagSetCap {
		t.Fatalf("merged len = %d, want %d", len(merged), FlagSetCap)
	}
	if HasFlag(merged, "one-too-many") {
		t.Fatal("expected overflow flag dropped")
	}
	if !HasFlag(merged, "flag-0") {
		t.Fatal("expected oldest existing flag retained")
	}
}

func TestClampBounds(t *testing.T) {
	if got := ClampAffinity(10000); got != AffinityMax {
		t.Fatalf("affinity clamp high = %d, want %d", got, AffinityMax)
	}
	if got := ClampAffinity(-10000); got != AffinityMin {
		t.Fatalf("affinity clamp low = %d, want %d", got, AffinityMin)
	}
	if got := ClampTrust(-1); got != TrustMin {
		t.Fatalf("trust clamp low = %d, want %d", got, TrustMin)
	}
	if got := ClampRespect(250); got != RespectMax {
		t.Fatalf("respect clamp high = %d, want %d", got, RespectMax)
	}
}
