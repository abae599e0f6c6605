package oracle

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/holiman/uint256"
	"github.com/hyperledger/fabric/common/flogging"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/maxmedina05/flight-surety-udacity-project/model"
	"github.com/maxmedina05/flight-surety-udacity-project/surety"
)

var logger = flogging.MustGetLogger("flightsurety.oracle")

// Ledger is the part of the engine the oracles talk to.
type Ledger interface {
	RegisterOracle(participant string, fee *uint256.Int) ([3]uint8, error)
	SubmitOracleResponse(oracle string, index uint8, airline, flight string, timestamp int64, status model.StatusCode) (*model.OracleStatusRequest, error)
}

// Config tunes a Service.
type Config struct {
	// Concurrency bounds the submissions in flight for one request.
	Concurrency int
	// Namespace prefixes the exported metrics.
	Namespace string
	// Registerer receives the metrics. Nil means a private registry.
	Registerer prometheus.Registerer
}

// Outcome summarizes the handling of one request.
type Outcome struct {
	Matched   int // Oracles holding the request index
	Submitted int // Responses accepted by the ledger
	Rejected  int // Responses refused by the ledger
	Finalized bool
	Status    model.StatusCode // Final status when Finalized
}

type assignment struct {
	id      string
	indexes [3]uint8
}

func (a assignment) holds(index uint8) bool {
	for _, i := range a.indexes {
		if i == index {
			return true
		}
	}
	return false
}

// Service operates a pool of oracles. It listens for status requests and
// answers them with every oracle whose indexes include the request index.
type Service struct {
	ledger   Ledger
	statuses StatusSource
	cfg      Config
	metrics  *metrics

	mu      sync.RWMutex
	oracles []assignment
}

// NewService returns a service submitting to ledger.
func NewService(ledger Ledger, statuses StatusSource, cfg Config) (*Service, error) {
	if ledger == nil || statuses == nil {
		return nil, fmt.Errorf("%w: ledger and status source are required", surety.ErrInvalidArgument)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "oracle"
	}
	if cfg.Registerer == nil {
		cfg.Registerer = prometheus.NewRegistry()
	}
	m, err := newMetrics(cfg.Namespace, cfg.Registerer)
	if err != nil {
		return nil, fmt.Errorf("failed to register oracle metrics: %w", err)
	}
	return &Service{ledger: ledger, statuses: statuses, cfg: cfg, metrics: m}, nil
}

// RegisterOracles registers each id with the ledger, paying fee, and adds it
// to the pool. It stops at the first failure.
func (s *Service) RegisterOracles(ids []string, fee *uint256.Int) error {
	for _, id := range ids {
		indexes, err := s.ledger.RegisterOracle(id, fee)
		if err != nil {
			return fmt.Errorf("failed to register oracle '%s': %w", id, err)
		}
		s.mu.Lock()
		s.oracles = append(s.oracles, assignment{id: id, indexes: indexes})
		s.mu.Unlock()
		s.metrics.registered.Inc()
		logger.Debugf("Oracle '%s' joined the pool with indexes %v", id, indexes)
	}
	logger.Infof("%d oracles registered", len(ids))
	return nil
}

// Size returns the number of oracles in the pool.
func (s *Service) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.oracles)
}

func (s *Service) matching(index uint8) []assignment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []assignment
	for _, a := range s.oracles {
		if a.holds(index) {
			out = append(out, a)
		}
	}
	return out
}

// Handle answers ev with every matching oracle, concurrently. Rejections are
// logged and counted; only cancellation of ctx is returned as an error.
func (s *Service) Handle(ctx context.Context, ev model.FlightStatusRequested) (Outcome, error) {
	s.metrics.requests.Inc()
	matched := s.matching(ev.Index)
	out := Outcome{Matched: len(matched)}
	if len(matched) == 0 {
		logger.Warningf("No oracle holds index %d for %s/%s@%d", ev.Index, ev.Airline, ev.Flight, ev.Timestamp)
		return out, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for _, a := range matched {
		a := a
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			status := s.statuses.Status(a.id, ev)
			req, err := s.ledger.SubmitOracleResponse(a.id, ev.Index, ev.Airline, ev.Flight, ev.Timestamp, status)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				out.Rejected++
				s.metrics.rejected.WithLabelValues(rejectionReason(err)).Inc()
				logger.Warningf("Response of oracle '%s' for %s/%s@%d rejected: %v", a.id, ev.Airline, ev.Flight, ev.Timestamp, err)
				return nil
			}
			out.Submitted++
			s.metrics.submitted.WithLabelValues(status.String()).Inc()
			if req.Finalized {
				out.Finalized = true
				out.Status = req.FinalStatus
				if status == req.FinalStatus && req.Count(status) == req.FinalizedWith {
					s.metrics.finalized.WithLabelValues(status.String()).Inc()
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.metrics.handleFailed.Inc()
		return out, err
	}
	logger.Infof("Request %s/%s@%d index %d: %d matched, %d submitted, %d rejected, finalized=%t",
		ev.Airline, ev.Flight, ev.Timestamp, ev.Index, out.Matched, out.Submitted, out.Rejected, out.Finalized)
	return out, nil
}

// Run handles events until the channel is closed or ctx is done.
func (s *Service) Run(ctx context.Context, events <-chan model.FlightStatusRequested) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if _, err := s.Handle(ctx, ev); err != nil {
				return err
			}
		}
	}
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, surety.ErrAlreadyResponded):
		return "already_responded"
	case errors.Is(err, surety.ErrIndexMismatch):
		return "index_mismatch"
	case errors.Is(err, surety.ErrUnknownRequest):
		return "unknown_request"
	case errors.Is(err, surety.ErrNotRegistered):
		return "not_registered"
	case errors.Is(err, surety.ErrNotOperational):
		return "not_operational"
	case errors.Is(err, surety.ErrInvalidStatus):
		return "invalid_status"
	}
	return "other"
}
