package testutil

import "sync"

// Journal records the order in which fakes were called.
type Journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *Journal) Add(entry string) {
	if j == nil {
		return
	}
	j.mu.Lock()
	j.entries = append(j.entries, entry)
	j.mu.Unlock()
}

func (j *Journal) Entries() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}
