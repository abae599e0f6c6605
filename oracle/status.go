package oracle

import (
	"math/rand"
	"sync"

	"github.com/maxmedina05/flight-surety-udacity-project/model"
)

// StatusSource decides what an oracle reports for a request.
type StatusSource interface {
	Status(oracle string, ev model.FlightStatusRequested) model.StatusCode
}

// FixedStatus reports the same status for every request.
type FixedStatus model.StatusCode

func (s FixedStatus) Status(string, model.FlightStatusRequested) model.StatusCode {
	return model.StatusCode(s)
}

// RandomStatus simulates oracles by reporting one of the five known, non-zero
// statuses at random.
type RandomStatus struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandomStatus returns a source seeded with seed.
func NewRandomStatus(seed int64) *RandomStatus {
	return &RandomStatus{rnd: rand.New(rand.NewSource(seed))}
}

func (r *RandomStatus) Status(string, model.FlightStatusRequested) model.StatusCode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return model.StatusCode((r.rnd.Intn(5) + 1) * 10)
}
