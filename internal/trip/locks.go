package trip

import (
	"sort"
	"sync"
)

// keyedMutex hands out one mutex per key and forgets keys nobody holds.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedLock)}
}

func (k *keyedMutex) acquire(key string) *keyedLock {
	k.mu.Lock()
	lock, ok := k.locks[key]
	if !ok {
		lock = &keyedLock{}
		k.locks[key] = lock
	}
	lock.refs++
	k.mu.Unlock()

	lock.Lock()
	return lock
}

func (k *keyedMutex) release(key string, lock *keyedLock) {
	lock.Unlock()
	k.mu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()
}

// Lock locks every distinct key in sorted order and returns a func that
// releases them in reverse.
func (k *keyedMutex) Lock(keys ...string) (unlock func()) {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)
	held := make([]string, 0, len(sorted))
	locks := make([]*keyedLock, 0, len(sorted))
	for i, key := range sorted {
		if i > 0 && key == sorted[i-1] {
			continue
		}
		locks = append(locks, k.acquire(key))
		held = append(held, key)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			k.release(held[i], locks[i])
		}
	}
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

func driverKey(driverID string) string {
	return "driver:" + driverID
}

func vehicleKey(vehicleID string) string {
	return "vehicle:" + vehicleID
}
