package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return New(client)
}

// Testable property 3: TryInsert returns true at most once per
// fingerprint within the TTL window.
func TestTryInsert_IdempotentWithinTTL(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	fp := Fingerprint("Pipeline disruption halts shipments", "LPG supplies affected by regional outage")

	first, err := idx.TryInsert(ctx, fp, time.Hour)
	if err != nil {
		t.Fatalf("TryInsert: %v", err)
	}
	if !first {
		t.Fatal("first TryInsert should return true (novel article)")
	}

	for i := 0; i < 5; i++ {
		again, err := idx.TryInsert(ctx, fp, time.Hour)
		if err != nil {
			t.Fatalf("TryInsert repeat %d: %v", i, err)
		}
		if again {
			t.Fatalf("TryInsert repeat %d should return false (duplicate)", i)
		}
	}
}

// Scenario C: two fetch cycles within TTL deliver the same article;
// only the first is novel.
func TestTryInsert_ScenarioC_DuplicateAcrossFetchCycles(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	fp := Fingerprint("Major pipeline disruption halts LPG shipments", "A fire at the regional terminal has halted shipments")

	firstCycle, err := idx.TryInsert(ctx, fp, 48*time.Hour)
	if err != nil || !firstCycle {
		t.Fatalf("first fetch cycle should observe a novel article: novel=%v err=%v", firstCycle, err)
	}
	secondCycle, err := idx.TryInsert(ctx, fp, 48*time.Hour)
	if err != nil {
		t.Fatalf("second fetch cycle: %v", err)
	}
	if secondCycle {
		t.Fatal("second fetch cycle should observe a duplicate")
	}
}

// Testable property 4: the fingerprint is invariant under whitespace and
// case changes in the headline and first 100 bytes of the body.
func TestFingerprint_Stability(t *testing.T) {
	base := Fingerprint("Major Supply Disruption", "Detailed body text describing the event in full.")

	variants := []string{
		Fingerprint("  Major Supply Disruption  ", "Detailed body text describing the event in full."),
		Fingerprint("MAJOR SUPPLY DISRUPTION", "DETAILED BODY TEXT DESCRIBING THE EVENT IN FULL."),
		Fingerprint("major supply disruption", "detailed body text describing the event in full."),
		Fingerprint("Major Supply Disruption", "  Detailed body text describing the event in full.  "),
	}

	for i, v := range variants {
		if v != base {
			t.Errorf("variant %d fingerprint %q != base %q", i, v, base)
		}
	}
}

// Articles with different headlines and bodies get different fingerprints.
func TestFingerprint_DistinctContentDiffers(t *testing.T) {
	a := Fingerprint("Headline one", "body one")
	b := Fingerprint("Headline two", "body two")
	if a == b {
		t.Fatal("distinct headline/body should not fingerprint identically")
	}
}

func TestFingerprint_OnlyFirst100BytesOfBodyMatter(t *testing.T) {
	longBody := "x"
	for len(longBody) < 200 {
		longBody += "y"
	}
	a := Fingerprint("Same headline", longBody[:100]+"AAAA")
	b := Fingerprint("Same headline", longBody[:100]+"BBBB")
	if a != b {
		t.Fatal("fingerprint should only depend on the first 100 bytes of body")
	}
}
