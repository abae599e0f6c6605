package surety

import "sync"

// keyedMutex hands out one mutex per key and forgets it once unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

type refLock struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refLock)}
}

// Lock blocks until key is free and returns the matching unlock.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &refLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// Lock keys. Acquire in this order: registration or request, then
// participant, then ledger info.
func registrationLockKey(candidate string) string { return "registration/" + candidate }
func participantLockKey(id string) string         { return "participant/" + id }
func requestLockKey(airline, flight string, timestamp int64) string {
	return memKey(statusRequestObjectType, flightAttrs(airline, flight, timestamp))
}
func flightLockKey(airline, flight string, timestamp int64) string {
	return memKey(flightObjectType, flightAttrs(airline, flight, timestamp))
}

const ledgerInfoLockKey = "ledger"
