package hashroute

import (
	"math/rand"
	"testing"
	"testing/quick"
	"time"
)

func TestPartitionForDeterministic(t *testing.T) {
	ids := []string{"A1", "order-45", "550e8400-e29b-41d4-a716-446655440000", "1234567890"}
	for _, id := range ids {
		p1 := PartitionFor(id, 25)
		p2 := PartitionFor(id, 25)
		if p1 != p2 {
			t.Fatalf("partition should be deterministic for %q", id)
		}
		if p1 < 0 || p1 >= 25 {
			t.Fatalf("partition out of range for %q: %d", id, p1)
		}
	}
}

func TestPartitionForDistinctPartitionCounts(t *testing.T) {
	// n is a construction-time constant; whatever n is, the partition
	// must fall inside [0, n).
	for _, n := range []int{1, 4, 25, 128} {
		p := PartitionFor("A1", n)
		if p < 0 || p >= n {
			t.Fatalf("partition out of range for n=%d: %d", n, p)
		}
	}
}

func TestPartitionRangeProperty(t *testing.T) {
	cfg := &quick.Config{Rand: rand.New(rand.NewSource(time.Now().UnixNano()))}
	if err := quick.Check(func(s string) bool {
		p := PartitionFor(s, 25)
		return p >= 0 && p < 25
	}, cfg); err != nil {
		t.Fatalf("partition property failed: %v", err)
	}
}

func TestPartitionDistributionBound(t *testing.T) {
	const n = 4
	counts := make([]int, n)
	for i := 0; i < 10000; i++ {
		id := randID(i)
		counts[PartitionFor(id, n)]++
	}
	mean := 10000.0 / float64(n)
	for p, c := range counts {
		if float64(c) > mean*2 {
			t.Fatalf("partition %d deviates too far from uniform: %d (mean %.1f)", p, c, mean)
		}
	}
}

func randID(i int) string {
	const charset = "abcdefghijklmnopqrstuvwxyz0123456789"
	r := rand.New(rand.NewSource(int64(i) * 2654435761))
	b := make([]byte, 12)
	for j := range b {
		b[j] = charset[r.Intn(len(charset))]
	}
	return string(b)
}
