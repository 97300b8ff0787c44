package store

import "sync"

// optimistic is the snapshot/apply/attempt/restore cycle behind every
// mutation: take a snapshot of the affected state, apply the speculative
// change so readers see it immediately, attempt the server call, and
// restore the snapshot if the call fails. The mutex guards the cache;
// attempt runs without it so in-flight requests never block readers.
func optimistic[S any](mu *sync.RWMutex, snapshot func() S, apply func(), attempt func() error, restore func(S)) error {
	mu.Lock()
	snap := snapshot()
	apply()
	mu.Unlock()

	if err := attempt(); err != nil {
		mu.Lock()
		restore(snap)
		mu.Unlock()
		return err
	}
	return nil
}
