package collective

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/momentics/hioload-placement/api"
)

// tcpGroup bootstraps a loopback job: rank 0 listens on an ephemeral port
// and every other rank joins it.
func tcpGroup(t *testing.T, size int, jobs []string) ([]Communicator, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	acc, err := Listen(Options{Rank: 0, Size: size, Coordinator: "127.0.0.1:0", JobID: jobs[0]})
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	comms := make([]Communicator, size)
	var acceptErr error
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		comms[0], acceptErr = acc.Accept(ctx)
	}()
	for r := 1; r < size; r++ {
		c, err := Join(ctx, Options{
			Rank:           r,
			Size:           size,
			Coordinator:    acc.Addr(),
			JobID:          jobs[r],
			ConnectTimeout: 2 * time.Second,
		})
		if err != nil {
			t.Fatalf("Join rank %d: %v", r, err)
		}
		comms[r] = c
	}
	wg.Wait()
	t.Cleanup(func() {
		for _, c := range comms {
			if c != nil {
				_ = c.Close()
			}
		}
	})
	return comms, acceptErr
}

func TestTCP_HeterogeneousGather(t *testing.T) {
	workers := []int{2, 3, 1, 5}
	comms, err := tcpGroup(t, len(workers), []string{"job-7", "job-7", "job-7", "job-7"})
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	results := runJob(t, comms, workers, func(rank int) []byte { return payloadFor(rank, workers[rank]) })
	for rank, r := range results {
		if r.err != nil {
			t.Fatalf("rank %d: %v", rank, r.err)
		}
	}
	root := results[CoordinatorRank]
	if root.counts.Total != 11 {
		t.Errorf("total = %d, want 11", root.counts.Total)
	}
	if !bytes.Equal(root.assembled, expectedReport(workers)) {
		t.Errorf("assembled report mismatch:\n got %q\nwant %q", root.assembled, expectedReport(workers))
	}
	for rank := 1; rank < len(workers); rank++ {
		if results[rank].counts.RunID != root.counts.RunID {
			t.Errorf("rank %d run id %q, want %q", rank, results[rank].counts.RunID, root.counts.RunID)
		}
	}
}

func TestTCP_ForeignJobRejected(t *testing.T) {
	comms, err := tcpGroup(t, 2, []string{"job-a", "job-b"})
	if api.CodeOf(err) != api.ErrCodeBootstrap {
		t.Fatalf("Accept: expected bootstrap error, got %v", err)
	}
	if comms[0] != nil {
		t.Fatal("coordinator returned a communicator for a rejected job")
	}

	// The rejected participant learns about it on its first collective.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := comms[1].GatherCounts(ctx, 1); api.CodeOf(err) != api.ErrCodeCollective {
		t.Fatalf("rejected participant: expected collective error, got %v", err)
	}
}

func TestConnect_SoloNeedsNoNetwork(t *testing.T) {
	c, err := Connect(context.Background(), Options{Rank: 0, Size: 1})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()
	if !c.IsCoordinator() || c.Size() != 1 {
		t.Fatalf("unexpected communicator: rank=%d size=%d", c.Rank(), c.Size())
	}
}

func TestConnect_RejectsBadTopology(t *testing.T) {
	for _, o := range []Options{{Rank: 0, Size: 0}, {Rank: 2, Size: 2}, {Rank: -1, Size: 3}} {
		if _, err := Connect(context.Background(), o); api.CodeOf(err) != api.ErrCodeBootstrap {
			t.Errorf("Connect(%+v): expected bootstrap error, got %v", o, err)
		}
	}
}

func TestJoin_CoordinatorUnreachable(t *testing.T) {
	ctx := context.Background()
	_, err := Join(ctx, Options{Rank: 1, Size: 2, Coordinator: "127.0.0.1:1", ConnectTimeout: 300 * time.Millisecond})
	if api.CodeOf(err) != api.ErrCodeBootstrap {
		t.Fatalf("expected bootstrap error, got %v", err)
	}
}
