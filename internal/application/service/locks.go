package service

import "sync"

// keyedMutex serialises work per draft id. LockAll excludes every
// per-key holder at once for work that spans drafts.
type keyedMutex struct {
	sweep sync.RWMutex
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedLock)}
}

// Lock blocks until key is free and returns its unlock func. Holders
// must not call Lock or LockAll again before unlocking.
func (k *keyedMutex) Lock(key string) func() {
	k.sweep.RLock()

	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()

		k.sweep.RUnlock()
	}
}

// LockAll waits for every key holder to finish and blocks new ones until
// the returned func is called.
func (k *keyedMutex) LockAll() func() {
	k.sweep.Lock()
	return k.sweep.Unlock
}

// Operation names a slow AI call that may be in flight for a draft
type Operation string

const (
	OpScanReceipt     Operation = "scanReceipt"
	OpUploadPolicy    Operation = "uploadPolicy"
	OpCheckCompliance Operation = "checkCompliance"
)

// busySet tracks in-flight operations per draft
type busySet struct {
	mu  sync.Mutex
	ops map[string]map[Operation]bool
}

func newBusySet() *busySet {
	return &busySet{ops: make(map[string]map[Operation]bool)}
}

// acquire marks op busy for id, returning false when it already is
func (b *busySet) acquire(id string, op Operation) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ops[id][op] {
		return false
	}
	if b.ops[id] == nil {
		b.ops[id] = make(map[Operation]bool)
	}
	b.ops[id][op] = true
	return true
}

func (b *busySet) release(id string, op Operation) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.ops[id], op)
	if len(b.ops[id]) == 0 {
		delete(b.ops, id)
	}
}

func (b *busySet) list(id string) []Operation {
	b.mu.Lock()
	defer b.mu.Unlock()

	var ops []Operation
	for _, op := range []Operation{OpScanReceipt, OpUploadPolicy, OpCheckCompliance} {
		if b.ops[id][op] {
			ops = append(ops, op)
		}
	}
	return ops
}

func (b *busySet) forget(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.ops, id)
}
