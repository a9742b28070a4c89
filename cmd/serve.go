package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fleetsim/fleetsim/sim"
	"github.com/fleetsim/fleetsim/sim/observe"
	"github.com/fleetsim/fleetsim/sim/scenario"
	"github.com/fleetsim/fleetsim/sim/store"
)

var serveAddr string // Listen address

// serveCmd starts the HTTP API for launching and following simulations
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the simulation HTTP API",
	Run: func(cmd *cobra.Command, args []string) {
		if scenarioPath == "" {
			logrus.Fatalf("Scenario not provided. Exiting.")
		}
		sc, err := scenario.Load(scenarioPath)
		if err != nil {
			logrus.Fatalf("Loading scenario: %v", err)
		}

		var st store.Store = store.NewMemory()
		if dsn := getEnvUnlessSet(cmd.Flags().Changed("database-url"), "DATABASE_URL", databaseURL); dsn != "" {
			pg, err := store.NewPostgres(dsn)
			if err != nil {
				logrus.Fatalf("Database: %v", err)
			}
			if err := pg.Migrate(context.Background()); err != nil {
				logrus.Fatalf("Database: %v", err)
			}
			st = pg
		}
		defer func() { _ = st.Close() }()

		var broker observe.Broker = observe.NewMemoryBroker()
		if url := getEnvUnlessSet(cmd.Flags().Changed("redis-url"), "REDIS_URL", redisURL); url != "" {
			rb, err := observe.NewRedisBrokerFromURL(url)
			if err != nil {
				logrus.Fatalf("Redis: %v", err)
			}
			defer func() { _ = rb.Close() }()
			broker = rb
		}

		srv := newServer(sc, st, broker)
		httpSrv := &http.Server{
			Addr:              serveAddr,
			Handler:           srv.routes(),
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = httpSrv.Shutdown(shutdownCtx)
		}()

		logrus.Infof("Server listening addr=%s", serveAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("Server: %v", err)
		}
		srv.shutdown()
	},
}

// run is one simulation launched through the API.
type run struct {
	cancel context.CancelFunc

	mu      sync.Mutex
	last    sim.Progress
	history *sim.History
	err     error
}

func (r *run) Report(p sim.Progress) {
	r.mu.Lock()
	r.last = p
	r.mu.Unlock()
}

func (r *run) current() (sim.Progress, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last, r.last.Kind != ""
}

type server struct {
	scenario *scenario.Scenario
	store    store.Store
	broker   observe.Broker

	mu   sync.Mutex
	runs map[uuid.UUID]*run
	wg   sync.WaitGroup
}

func newServer(sc *scenario.Scenario, st store.Store, b observe.Broker) *server {
	return &server{scenario: sc, store: st, broker: b, runs: map[uuid.UUID]*run{}}
}

func (s *server) routes() http.Handler {
	observe.RegisterDefault()
	mux := http.NewServeMux()
	mux.Handle("POST /v1/simulations", observe.Instrument("/v1/simulations", http.HandlerFunc(s.handleCreate)))
	mux.Handle("GET /v1/simulations", observe.Instrument("/v1/simulations", http.HandlerFunc(s.handleList)))
	mux.Handle("GET /v1/simulations/{id}", observe.Instrument("/v1/simulations/{id}", http.HandlerFunc(s.handleGet)))
	mux.Handle("DELETE /v1/simulations/{id}", observe.Instrument("/v1/simulations/{id}", http.HandlerFunc(s.handleCancel)))
	mux.HandleFunc("GET /v1/simulations/{id}/progress", s.handleProgress)
	mux.Handle("GET /metrics", observe.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return mux
}

// createRequest overrides scenario parameters for one run. Omitted fields
// keep the scenario's values.
type createRequest struct {
	Seed         *int64   `json:"seed"`
	Vehicles     *int     `json:"vehicles"`
	Orders       *int     `json:"orders"`
	Speed        *float64 `json:"speed"`
	MaxSteps     *int     `json:"max_steps"`
	OrderPayload *float64 `json:"order_payload"`
}

func (c createRequest) apply(p *sim.SimulationParameters) {
	if c.Seed != nil {
		p.Seed = *c.Seed
	}
	if c.Vehicles != nil {
		p.NumberOfVehicles = *c.Vehicles
	}
	if c.Orders != nil {
		p.NumberOfOrders = *c.Orders
		p.Orders = nil
	}
	if c.Speed != nil {
		p.SimulationSpeed = *c.Speed
	}
	if c.MaxSteps != nil {
		p.MaxSteps = *c.MaxSteps
	}
	if c.OrderPayload != nil {
		p.OrderPayload = c.OrderPayload
	}
}

func (s *server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if r.ContentLength != 0 {
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "invalid request body", err.Error())
			return
		}
	}
	params, err := s.scenario.Build()
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "scenario", err.Error())
		return
	}
	req.apply(&params)
	simulator, err := sim.NewSimulator(params)
	if err != nil {
		writeProblem(w, http.StatusUnprocessableEntity, "invalid parameters", err.Error())
		return
	}

	id := simulator.ID()
	ctx, cancel := context.WithCancel(context.Background())
	rn := &run{cancel: cancel}
	s.mu.Lock()
	s.runs[id] = rn
	s.mu.Unlock()

	sinks := sim.MultiSink{
		rn,
		observe.MetricsSink{},
		observe.BrokerSink{Broker: s.broker, SimulationID: id.String()},
		store.Sink{Store: s.store, Timeout: 10 * time.Second},
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		h, err := simulator.Simulate(ctx, sinks)
		rn.mu.Lock()
		rn.history, rn.err = h, err
		rn.mu.Unlock()
		// the store sink has saved the history by now; later reads go there
		s.mu.Lock()
		delete(s.runs, id)
		s.mu.Unlock()
	}()

	w.Header().Set("Location", "/v1/simulations/"+id.String())
	writeJSON(w, http.StatusCreated, map[string]string{"id": id.String()})
}

func (s *server) lookup(w http.ResponseWriter, r *http.Request) (uuid.UUID, *run, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid simulation id", err.Error())
		return uuid.Nil, nil, false
	}
	s.mu.Lock()
	rn := s.runs[id]
	s.mu.Unlock()
	return id, rn, true
}

// statusResponse describes a run that is still in flight.
type statusResponse struct {
	ID       uuid.UUID    `json:"id"`
	Outcome  sim.Outcome  `json:"outcome"`
	Progress sim.Progress `json:"progress"`
}

func (s *server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, rn, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if rn != nil {
		rn.mu.Lock()
		h, last := rn.history, rn.last
		rn.mu.Unlock()
		if h == nil {
			writeJSON(w, http.StatusOK, statusResponse{ID: id, Outcome: sim.OutcomeRunning, Progress: last})
			return
		}
		writeJSON(w, http.StatusOK, h)
		return
	}
	h, err := s.store.GetHistory(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "simulation not found", id.String())
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "store", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, rn, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if rn == nil {
		writeProblem(w, http.StatusNotFound, "simulation not found", id.String())
		return
	}
	rn.cancel()
	writeJSON(w, http.StatusAccepted, map[string]string{"id": id.String(), "status": "cancelling"})
}

func (s *server) handleList(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeProblem(w, http.StatusBadRequest, "invalid limit", fmt.Sprintf("limit must be a positive integer, got %q", v))
			return
		}
		limit = n
	}
	runs, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "store", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": runs})
}

func (s *server) handleProgress(w http.ResponseWriter, r *http.Request) {
	id, rn, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if rn != nil {
		observe.StreamProgress(w, r, s.broker, id.String(), rn.current)
		return
	}

	// finished runs replay their terminal report and close
	h, err := s.store.GetHistory(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) || (err == nil && h.Final == nil) {
		writeProblem(w, http.StatusNotFound, "simulation not found", id.String())
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "store", err.Error())
		return
	}
	final := *h.Final
	observe.StreamProgress(w, r, s.broker, id.String(), func() (sim.Progress, bool) { return final, true })
}

// shutdown cancels every run and waits for their histories to be published.
func (s *server) shutdown() {
	s.mu.Lock()
	for _, rn := range s.runs {
		rn.cancel()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// Problem represents an RFC7807 problem details response body.
type Problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	writeJSON(w, status, Problem{Type: "about:blank", Title: title, Status: status, Detail: detail})
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")
	serveCmd.Flags().StringVar(&scenarioPath, "scenario", "", "Scenario YAML file used as the base of every run")
	serveCmd.Flags().StringVar(&redisURL, "redis-url", "", "Fan progress out through Redis (default $REDIS_URL)")
	serveCmd.Flags().StringVar(&databaseURL, "database-url", "", "Persist histories to Postgres (default $DATABASE_URL)")
}
