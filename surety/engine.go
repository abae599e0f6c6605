package surety

import (
	"fmt"
	"time"

	"github.com/hyperledger/fabric/common/flogging"

	"github.com/maxmedina05/flight-surety-udacity-project/model"
)

var logger = flogging.MustGetLogger("flightsurety.engine")

// Notifier receives the requests that oracles must answer.
type Notifier interface {
	FlightStatusRequested(event model.FlightStatusRequested) error
}

// Settlement is told once, synchronously, when a status request finalizes.
// It is one-way: the engine neither waits on nor inspects its outcome.
type Settlement interface {
	OnFlightStatusFinalized(airline, flight string, timestamp int64, status model.StatusCode)
}

type nopNotifier struct{}

func (nopNotifier) FlightStatusRequested(model.FlightStatusRequested) error { return nil }

type nopSettlement struct{}

func (nopSettlement) OnFlightStatusFinalized(string, string, int64, model.StatusCode) {}

// Engine hosts the participant registry, airline governance, oracle
// assignment and flight-status consensus over a Store.
type Engine struct {
	store      Store
	cfg        Config
	indexes    IndexSource
	notifier   Notifier
	settlement Settlement
	clock      func() time.Time
	locks      *keyedMutex
}

// Option customizes an Engine.
type Option func(*Engine)

// WithIndexSource replaces the default hash-based index source.
func WithIndexSource(src IndexSource) Option { return func(e *Engine) { e.indexes = src } }

// WithNotifier sets the receiver of FlightStatusRequested notifications.
func WithNotifier(n Notifier) Option { return func(e *Engine) { e.notifier = n } }

// WithSettlement sets the finalization trigger.
func WithSettlement(s Settlement) Option { return func(e *Engine) { e.settlement = s } }

// WithClock sets the time source used for record timestamps.
func WithClock(clock func() time.Time) Option { return func(e *Engine) { e.clock = clock } }

// NewEngine validates cfg and returns an engine over store.
func NewEngine(store Store, cfg Config, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store is required", ErrInvalidArgument)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		store:      store,
		cfg:        cfg,
		notifier:   nopNotifier{},
		settlement: nopSettlement{},
		clock:      time.Now,
		locks:      newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.indexes == nil {
		entropy, err := RandomEntropy()
		if err != nil {
			return nil, err
		}
		e.indexes = NewHashIndexSource(entropy)
	}
	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

func (e *Engine) now() time.Time { return e.clock().UTC() }

func (e *Engine) loadLedgerInfo() (*model.LedgerInfo, error) {
	return loadLedgerInfo(e.store)
}

func loadLedgerInfo(store Store) (*model.LedgerInfo, error) {
	info, err := getRecord[model.LedgerInfo](store, ledgerInfoObjectType, nil)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, ErrNotBootstrapped
	}
	return info, nil
}

// updateLedgerInfo applies fn to the ledger info under its lock.
func (e *Engine) updateLedgerInfo(fn func(*model.LedgerInfo) error) error {
	unlock := e.locks.Lock(ledgerInfoLockKey)
	defer unlock()
	info, err := e.loadLedgerInfo()
	if err != nil {
		return err
	}
	if err := fn(info); err != nil {
		return err
	}
	return putRecord(e.store, ledgerInfoObjectType, nil, info)
}

func (e *Engine) requireOperational() error {
	return requireOperational(e.store)
}

func requireOperational(store Store) error {
	info, err := loadLedgerInfo(store)
	if err != nil {
		return err
	}
	if !info.Operational {
		return ErrNotOperational
	}
	return nil
}

func (e *Engine) loadParticipant(id string) (*model.Participant, error) {
	return getRecord[model.Participant](e.store, participantObjectType, []string{id})
}

// updateParticipant applies fn to the participant record, creating it first
// when absent. fn runs under the participant lock.
func (e *Engine) updateParticipant(id string, fn func(*model.Participant) error) (*model.Participant, error) {
	unlock := e.locks.Lock(participantLockKey(id))
	defer unlock()
	p, err := e.loadParticipant(id)
	if err != nil {
		return nil, err
	}
	now := e.now()
	if p == nil {
		p = &model.Participant{ObjectType: participantObjectType, ID: id, CreatedAt: now}
	}
	if err := fn(p); err != nil {
		return nil, err
	}
	p.LastUpdatedAt = now
	if err := putRecord(e.store, participantObjectType, []string{id}, p); err != nil {
		return nil, err
	}
	return p, nil
}
