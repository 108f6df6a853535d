package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQueue_FIFO(t *testing.T) {
	q := New()

	for i := int64(1); i <= 5; i++ {
		require.True(t, q.Enqueue(Seed{MessageID: i, URL: "https://example.com"}))
	}

	require.Equal(t, 5, q.Len())

	for i := int64(1); i <= 5; i++ {
		seed, err := q.Dequeue(context.Background())
		require.NoError(t, err)
		require.Equal(t, i, seed.MessageID, "dequeue order must match enqueue order")
	}
}

func TestQueue_DequeueBlocksUntilEnqueue(t *testing.T) {
	q := New()

	done := make(chan Seed, 1)

	go func() {
		seed, err := q.Dequeue(context.Background())
		if err == nil {
			done <- seed
		}
	}()

	select {
	case <-done:
		t.Fatal("dequeue returned before enqueue")
	case <-time.After(50 * time.Millisecond):
	}

	q.Enqueue(Seed{MessageID: 99, URL: "https://example.com"})

	select {
	case seed := <-done:
		require.Equal(t, int64(99), seed.MessageID)
	case <-time.After(time.Second):
		t.Fatal("dequeue did not wake up after enqueue")
	}
}

func TestQueue_ContextCancel(t *testing.T) {
	q := New()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := q.Dequeue(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestQueue_CloseDrainsRemaining(t *testing.T) {
	q := New()

	q.Enqueue(Seed{MessageID: 1, URL: "https://a.example.com"})
	q.Enqueue(Seed{MessageID: 2, URL: "https://b.example.com"})
	q.Close()

	require.False(t, q.Enqueue(Seed{MessageID: 3}), "enqueue after close must be rejected")

	ctx := context.Background()

	seed, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), seed.MessageID)

	seed, err = q.Dequeue(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), seed.MessageID)

	_, err = q.Dequeue(ctx)
	require.ErrorIs(t, err, ErrClosed)
}

func TestQueue_ConcurrentProducers(t *testing.T) {
	q := New()

	const producers = 8

	const perProducer = 50

	var wg sync.WaitGroup

	for p := 0; p < producers; p++ {
		wg.Add(1)

		go func(p int) {
			defer wg.Done()

			for i := 0; i < perProducer; i++ {
				q.Enqueue(Seed{MessageID: int64(p*perProducer + i), URL: "https://example.com"})
			}
		}(p)
	}

	wg.Wait()
	q.Close()

	seen := make(map[int64]bool)

	for {
		seed, err := q.Dequeue(context.Background())
		if err != nil {
			require.ErrorIs(t, err, ErrClosed)

			break
		}

		require.False(t, seen[seed.MessageID], "seed %d dequeued twice", seed.MessageID)
		seen[seed.MessageID] = true
	}

	require.Len(t, seen, producers*perProducer)
}
