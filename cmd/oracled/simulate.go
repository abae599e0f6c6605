package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/hyperledger/fabric/common/flogging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/maxmedina05/flight-surety-udacity-project/model"
	"github.com/maxmedina05/flight-surety-udacity-project/oracle"
	"github.com/maxmedina05/flight-surety-udacity-project/surety"
)

var logger = flogging.MustGetLogger("flightsurety.oracled")

type flightKey struct {
	airline   string
	flight    string
	timestamp int64
}

type world struct {
	engine    *surety.Engine
	insurance *surety.Insurance
	credits   *surety.Credits
	feed      *oracle.Feed

	airlines   []string
	flights    []flightKey
	passengers []string
}

func run(ctx context.Context, config *Config, out io.Writer) error {
	flogging.ActivateSpec(config.LogLevel)
	if config.Seed == 0 {
		config.Seed = time.Now().UnixNano()
	}
	logger.Infof("Starting with seed %d", config.Seed)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	g, gctx := errgroup.WithContext(ctx)
	var server *http.Server
	if config.MetricsAddr != "" {
		server = &http.Server{
			Addr:              config.MetricsAddr,
			Handler:           metricsMux(registry),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Infof("Serving metrics on %s", config.MetricsAddr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	w, err := setup(config)
	if err != nil {
		return errors.Join(err, shutdown(server, g))
	}
	svc, err := oracle.NewService(w.engine, oracle.NewRandomStatus(config.Seed), oracle.Config{
		Concurrency: config.Concurrency,
		Namespace:   "flightsurety_oracle",
		Registerer:  registry,
	})
	if err != nil {
		return errors.Join(err, shutdown(server, g))
	}
	ids := make([]string, config.Oracles)
	for i := range ids {
		ids[i] = "oracle-" + uuid.NewString()
	}
	if err := svc.RegisterOracles(ids, config.Engine.OracleFee); err != nil {
		return errors.Join(err, shutdown(server, g))
	}

	done := make(chan struct{})
	g.Go(func() error {
		defer close(done)
		return svc.Run(gctx, w.feed.Events())
	})
	for i, f := range w.flights {
		// Passengers ask for the status; the airline asks when nobody is insured.
		caller := f.airline
		if len(w.passengers) > 0 {
			caller = w.passengers[i%len(w.passengers)]
		}
		if _, err := w.engine.RequestFlightStatus(caller, f.airline, f.flight, f.timestamp); err != nil {
			w.feed.Close()
			return errors.Join(err, shutdown(server, g))
		}
	}
	w.feed.Close()

	select {
	case <-done:
	case <-gctx.Done():
	}
	if server == nil {
		if err := g.Wait(); err != nil {
			return err
		}
		return report(out, w)
	}
	if err := report(out, w); err != nil {
		return errors.Join(err, shutdown(server, g))
	}
	<-gctx.Done()
	return shutdown(server, g)
}

func metricsMux(registry *prometheus.Registry) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})).Methods(http.MethodGet)
	r.HandleFunc("/health", healthCheck).Methods(http.MethodGet)
	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

func shutdown(server *http.Server, g *errgroup.Group) error {
	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Warningf("Metrics server shutdown: %v", err)
		}
	}
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// setup bootstraps the ledger with funded airlines, their flights and the
// insured passengers.
func setup(config *Config) (*world, error) {
	store := surety.NewMemoryStore()
	credits := surety.NewCredits(store, time.Now)
	insurance, err := surety.NewInsurance(store, config.Engine, credits, time.Now)
	if err != nil {
		return nil, err
	}
	feed := oracle.NewFeed(config.Flights + 16)
	entropy := surety.StaticEntropy([]byte(strconv.FormatInt(config.Seed, 10)))
	engine, err := surety.NewEngine(store, config.Engine,
		surety.WithIndexSource(surety.NewHashIndexSource(entropy)),
		surety.WithNotifier(feed),
		surety.WithSettlement(insurance),
	)
	if err != nil {
		return nil, err
	}
	w := &world{engine: engine, insurance: insurance, credits: credits, feed: feed}

	owner := "airline-" + uuid.NewString()
	if err := engine.Bootstrap(owner); err != nil {
		return nil, err
	}
	if err := engine.Fund(owner, config.Engine.MinFunding); err != nil {
		return nil, err
	}
	w.airlines = append(w.airlines, owner)
	for len(w.airlines) < config.Airlines {
		candidate := "airline-" + uuid.NewString()
		if err := w.admit(candidate); err != nil {
			return nil, err
		}
		if err := engine.Fund(candidate, config.Engine.MinFunding); err != nil {
			return nil, err
		}
		w.airlines = append(w.airlines, candidate)
	}

	departure := time.Now().Add(24 * time.Hour).Truncate(time.Hour).Unix()
	for i := 0; i < config.Flights; i++ {
		f := flightKey{
			airline:   w.airlines[i%len(w.airlines)],
			flight:    fmt.Sprintf("FS%04d", i+1),
			timestamp: departure + int64(i)*int64(time.Hour/time.Second),
		}
		if _, err := insurance.RegisterFlight(f.airline, f.flight, f.timestamp); err != nil {
			return nil, err
		}
		w.flights = append(w.flights, f)
	}
	if len(w.flights) == 0 {
		return w, nil
	}
	for i := 0; i < config.Passengers; i++ {
		passenger := "passenger-" + uuid.NewString()
		f := w.flights[i%len(w.flights)]
		if _, err := insurance.Buy(passenger, f.airline, f.flight, f.timestamp, config.Engine.MaxPremium); err != nil {
			return nil, err
		}
		w.passengers = append(w.passengers, passenger)
	}
	return w, nil
}

// admit collects votes from the admitted airlines until candidate is in.
func (w *world) admit(candidate string) error {
	for _, sponsor := range w.airlines {
		adm, err := w.engine.RegisterAirline(sponsor, candidate)
		if err != nil {
			return err
		}
		if adm.Status == model.AdmissionAdmitted {
			logger.Debugf("Airline '%s' admitted with %d votes", candidate, adm.Votes)
			return nil
		}
	}
	return fmt.Errorf("airline '%s' was not admitted by %d sponsors", candidate, len(w.airlines))
}

func report(out io.Writer, w *world) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "AIRLINE\tFLIGHT\tTIMESTAMP\tINDEX\tSTATUS\tVOTES\tPOLICIES")
	for _, f := range w.flights {
		req, err := w.engine.StatusRequest(f.airline, f.flight, f.timestamp)
		if err != nil {
			return err
		}
		policies, err := w.insurance.Policies(f.airline, f.flight, f.timestamp)
		if err != nil {
			return err
		}
		status, votes := "OPEN", "-"
		if req.Finalized {
			status = req.FinalStatus.String()
			votes = strconv.Itoa(req.FinalizedWith)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\t%d\n", f.airline, f.flight, f.timestamp, req.Index, status, votes, len(policies))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(out)
	tw = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PASSENGER\tCREDIT")
	for _, p := range w.passengers {
		balance, err := w.credits.Balance(p)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%s\n", p, balance.Dec())
	}
	return tw.Flush()
}
