package surety

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/maxmedina05/flight-surety-udacity-project/model"
)

// slowStore delays ledger info reads to widen the window between reading the
// airline count and writing it back.
type slowStore struct {
	*MemoryStore
	delay time.Duration
}

func (s *slowStore) GetState(objectType string, attrs []string) ([]byte, error) {
	if objectType == ledgerInfoObjectType {
		time.Sleep(s.delay)
	}
	return s.MemoryStore.GetState(objectType, attrs)
}

var errWriteFailed = errors.New("write failed")

// failingStore rejects participant writes while armed.
type failingStore struct {
	*MemoryStore
	armed atomic.Bool
}

func (s *failingStore) PutState(objectType string, attrs []string, value []byte) error {
	if s.armed.Load() && objectType == participantObjectType {
		return errWriteFailed
	}
	return s.MemoryStore.PutState(objectType, attrs, value)
}

func airlineCount(t *testing.T, e *Engine) int {
	t.Helper()
	n, err := e.AirlineCount()
	require.NoError(t, err)
	return n
}

func TestConcurrentDirectAdmissionRespectsLimit(t *testing.T) {
	e, err := NewEngine(&slowStore{MemoryStore: NewMemoryStore(), delay: time.Millisecond}, DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, e.Bootstrap(owner))
	seedAirlines(t, e, "A2", "A3")
	require.Equal(t, 3, airlineCount(t, e))

	var (
		mu         sync.Mutex
		admissions []*model.Admission
	)
	var g errgroup.Group
	for i := 0; i < 8; i++ {
		candidate := fmt.Sprintf("C%d", i)
		g.Go(func() error {
			adm, err := e.RegisterAirline(owner, candidate)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			admissions = append(admissions, adm)
			return nil
		})
	}
	require.NoError(t, g.Wait())

	admitted := 0
	for _, adm := range admissions {
		switch adm.Status {
		case model.AdmissionAdmitted:
			admitted++
		case model.AdmissionPending:
			assert.Equal(t, 1, adm.Votes)
			assert.Equal(t, 2, adm.Required, "quorum of four airlines")
		}
	}
	assert.Equal(t, 1, admitted, "only one seat was left below the limit")
	assert.Equal(t, 4, airlineCount(t, e))

	airlines, err := e.Airlines()
	require.NoError(t, err)
	assert.Len(t, airlines, 4)
	pending, err := e.PendingRegistrations()
	require.NoError(t, err)
	assert.Len(t, pending, 7)
}

func TestConcurrentVotesAdmitOnce(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DirectAdmissionLimit = 7
	e, _ := newTestEngine(t, cfg)
	sponsors := []string{owner, "A2", "A3", "A4", "A5", "A6", "A7"}
	seedAirlines(t, e, sponsors[1:]...)
	require.Equal(t, 7, airlineCount(t, e))

	results := make([]*model.Admission, len(sponsors))
	var g errgroup.Group
	for i, sponsor := range sponsors {
		i, sponsor := i, sponsor
		g.Go(func() error {
			adm, err := e.RegisterAirline(sponsor, "NEW")
			results[i] = adm
			return err
		})
	}
	require.NoError(t, g.Wait())

	var admittedCounted, pendingCounted, noops int
	for _, adm := range results {
		switch {
		case adm.Status == model.AdmissionAdmitted && adm.Counted:
			admittedCounted++
		case adm.Status == model.AdmissionPending && adm.Counted:
			pendingCounted++
		case !adm.Counted:
			noops++
		}
	}
	assert.Equal(t, 1, admittedCounted)
	assert.Equal(t, 3, pendingCounted, "four votes are needed out of seven")
	assert.Equal(t, 3, noops)
	assert.Equal(t, 8, airlineCount(t, e))

	isAirline, err := e.IsAirline("NEW")
	require.NoError(t, err)
	assert.True(t, isAirline)
	_, err = e.PendingRegistration("NEW")
	assert.ErrorIs(t, err, ErrNotRegistered)
}

func TestAdmissionFailureKeepsCount(t *testing.T) {
	store := &failingStore{MemoryStore: NewMemoryStore()}
	e, err := NewEngine(store, DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, e.Bootstrap(owner))
	seedAirlines(t, e, "A2")

	store.armed.Store(true)
	_, err = e.RegisterAirline(owner, "A3")
	assert.ErrorIs(t, err, errWriteFailed)
	store.armed.Store(false)

	assert.Equal(t, 2, airlineCount(t, e))
	isAirline, err := e.IsAirline("A3")
	require.NoError(t, err)
	assert.False(t, isAirline)

	adm, err := e.RegisterAirline(owner, "A3")
	require.NoError(t, err)
	assert.Equal(t, model.AdmissionAdmitted, adm.Status)
	assert.Equal(t, 3, airlineCount(t, e))
}

func TestUnregisterFailureKeepsAirline(t *testing.T) {
	store := &failingStore{MemoryStore: NewMemoryStore()}
	e, err := NewEngine(store, DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, e.Bootstrap(owner))
	seedAirlines(t, e, "A2")

	store.armed.Store(true)
	err = e.UnregisterAirline(owner, "A2")
	assert.ErrorIs(t, err, errWriteFailed)
	store.armed.Store(false)

	assert.Equal(t, 2, airlineCount(t, e))
	isAirline, err := e.IsAirline("A2")
	require.NoError(t, err)
	assert.True(t, isAirline)
}
