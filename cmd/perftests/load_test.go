package perftests

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"art-marketplace/internal/biddingerrors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// LoadScenario defines configurable benchmark parameters
type LoadScenario struct {
	Name            string
	NumUsers        int
	NumAuctions     int
	ReadRatio       int
	MaxBidIncrement int
	Burst           bool // if true, no delay between ops
}

// OperationMetrics collects latencies safely
type OperationMetrics struct {
	mu        sync.Mutex
	latencies []time.Duration
}

func (om *OperationMetrics) Record(d time.Duration) {
	om.mu.Lock()
	om.latencies = append(om.latencies, d)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (min, max, avg, p95, p99 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()
	if len(om.latencies) == 0 {
		return
	}
	latencies := om.latencies
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	min = latencies[0]
	max = latencies[len(latencies)-1]

	var total time.Duration
	for _, d := range latencies {
		total += d
	}
	avg = total / time.Duration(len(latencies))
	p95 = latencies[int(0.95*float64(len(latencies)))]
	p99 = latencies[int(0.99*float64(len(latencies)))]
	return
}

// Benchmark_Load_BiddingSystem runs multiple scenarios
func Benchmark_Load_BiddingSystem(b *testing.B) {
	scenarios := []LoadScenario{
		{"Low-Contention-WriteHeavy", 200, 200, 0, 50, false},
		{"High-Contention-WriteHeavy", 500, 10, 0, 20, false},
		{"Mixed-Workload", 300, 50, 7, 30, false},
		{"ReadHeavy", 200, 50, 9, 20, false},
		{"Edge-Case-SingleAuction", 100, 1, 5, 10, false},
		{"Peak-Burst", 500, 50, 0, 20, true},
	}

	for _, s := range scenarios {
		b.Run(s.Name, func(b *testing.B) {
			runParallelScenario(b, s)
		})
	}
}

func runParallelScenario(b *testing.B, s LoadScenario) {
	b.ReportAllocs()

	repo, svc := newBenchService(b)
	for i := 0; i < s.NumAuctions; i++ {
		addAuction(repo, fmt.Sprintf("auction_%d", i), 100)
	}
	ctx := context.Background()

	var totalOps, acceptedBids, rejectedBids, totalReads int64
	auctionSuccess := make([]int64, s.NumAuctions)
	metrics := &OperationMetrics{}

	start := time.Now()

	b.RunParallel(func(pb *testing.PB) {
		rnd := rand.New(rand.NewSource(time.Now().UnixNano()))

		for pb.Next() {
			auctionIndex := rnd.Intn(s.NumAuctions)
			auctionID := fmt.Sprintf("auction_%d", auctionIndex)

			opStart := time.Now()
			if rnd.Intn(10) < s.ReadRatio {
				if _, err := svc.GetAuctionState(ctx, auctionID); err != nil {
					b.Logf("ignored read error: %v", err)
				}
				atomic.AddInt64(&totalReads, 1)
			} else {
				amount := decimal.NewFromInt(int64(101 + rnd.Intn(s.MaxBidIncrement)))
				userID := fmt.Sprintf("user_%d", rnd.Intn(s.NumUsers))
				if _, err := svc.PlaceBid(ctx, auctionID, userID, amount); err != nil {
					atomic.AddInt64(&rejectedBids, 1)
				} else {
					atomic.AddInt64(&acceptedBids, 1)
					atomic.AddInt64(&auctionSuccess[auctionIndex], 1)
				}
			}

			metrics.Record(time.Since(opStart))
			atomic.AddInt64(&totalOps, 1)

			if !s.Burst {
				time.Sleep(time.Millisecond)
			}
		}
	})

	elapsed := time.Since(start)
	throughput := float64(totalOps) / elapsed.Seconds()
	min, max, avg, p95, p99 := metrics.Stats()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	b.Logf(
		"Scenario: %s | Auctions: %d | Total Ops: %d | Accepted Bids: %d | Rejected Bids: %d | Reads: %d | Elapsed: %s | Throughput: %.2f ops/sec | Latency(us) min: %.2f avg: %.2f max: %.2f p95: %.2f p99: %.2f | Memory Alloc: %.2f MB",
		s.Name, s.NumAuctions, totalOps, acceptedBids, rejectedBids, totalReads, elapsed,
		throughput,
		float64(min.Microseconds()), float64(avg.Microseconds()), float64(max.Microseconds()),
		float64(p95.Microseconds()), float64(p99.Microseconds()),
		float64(mem.Alloc)/1024/1024,
	)

	for i, v := range auctionSuccess {
		if v > 0 {
			b.Logf("Auction %d accepted bids: %d", i, v)
		}
	}
}

// Under parallel load every accepted bid must beat the one before it, so the
// ledger's maximum, the cached highest bid and the served state agree.
func TestLoad_HighestBidMatchesLedger(t *testing.T) {
	repo, svc := newBenchService(t)
	const auctions = 4
	for i := 0; i < auctions; i++ {
		addAuction(repo, fmt.Sprintf("auction_%d", i), 100)
	}
	ctx := context.Background()

	var wg sync.WaitGroup
	var unexpected int64
	for w := 0; w < 32; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			rnd := rand.New(rand.NewSource(int64(worker)))
			for i := 0; i < 200; i++ {
				auctionID := fmt.Sprintf("auction_%d", rnd.Intn(auctions))
				amount := decimal.NewFromInt(int64(101 + rnd.Intn(500)))
				_, err := svc.PlaceBid(ctx, auctionID, fmt.Sprintf("user_%d", worker), amount)
				if err != nil && !errors.Is(err, biddingerrors.ErrBidTooLow) && !errors.Is(err, biddingerrors.ErrBidConflict) {
					atomic.AddInt64(&unexpected, 1)
				}
			}
		}(w)
	}
	wg.Wait()
	require.Zero(t, atomic.LoadInt64(&unexpected))

	for i := 0; i < auctions; i++ {
		auctionID := fmt.Sprintf("auction_%d", i)

		bids, err := svc.GetBidsForAuction(ctx, auctionID)
		require.NoError(t, err)
		require.NotEmpty(t, bids)

		ledgerMax := bids[0].Amount
		for _, bid := range bids {
			require.True(t, bid.Amount.LessThanOrEqual(ledgerMax))
		}

		state, err := svc.GetAuctionState(ctx, auctionID)
		require.NoError(t, err)
		require.True(t, state.HighestBid.Equal(ledgerMax), "state %s ledger %s", state.HighestBid, ledgerMax)
		require.Equal(t, len(bids), state.BidCount)

		cached, err := repo.GetAuction(ctx, auctionID)
		require.NoError(t, err)
		require.True(t, cached.CurrentHighestBid.Equal(ledgerMax))
	}
}
