package streamio

import (
	"context"
	"sync"
)

// Splice joins a and b bidirectionally: one goroutine copies a→b, another
// b→a. The first direction to see clean EOF (or an error) unblocks the
// other by closing both streams outright — cancelling ctx alone cannot
// interrupt a goroutine parked inside a pending Read on a real
// connection (a half-closed peer may never send again, per spec.md
// §4.L's "cancellation must unwind through any pending read"), so
// EnsureClosed runs before, not after, waiting for the siblings to
// return. Both streams are EnsureClosed exactly once each — the second
// call each goroutine's own cleanup would have made is a no-op, since
// EnsureClosed is idempotent. The first non-nil error observed (if any)
// is returned.
func Splice(ctx context.Context, a, b *Stream) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		errCh <- copyDirection(ctx, b, a)
	}()
	go func() {
		defer wg.Done()
		errCh <- copyDirection(ctx, a, b)
	}()

	first := <-errCh
	cancel()
	a.EnsureClosed(ctx)
	b.EnsureClosed(ctx)
	wg.Wait()
	close(errCh)

	if first != nil {
		return first
	}
	return <-errCh
}

// copyDirection runs dst.WriteStream(ctx, src) but treats context
// cancellation (the sibling direction finished first) as a clean return
// rather than an error to propagate out of Splice.
func copyDirection(ctx context.Context, dst, src *Stream) error {
	err := dst.WriteStream(ctx, src)
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
