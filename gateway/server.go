package gateway

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dmcchain/core/events"
	"dmcchain/core/state"
	"dmcchain/core/types"
	"dmcchain/native/dmc"
	"dmcchain/observability"
	"dmcchain/storage"
)

const requestBodyLimit = 1 << 20 // 1 MiB

// Server exposes the accounting engine over HTTP. Mutating endpoints run
// under a single lock with snapshot/revert semantics: either every state
// mutation and event of an operation commits, or none do.
type Server struct {
	mu      sync.Mutex
	engine  *dmc.Engine
	state   *state.Manager
	queue   *events.Queue
	db      storage.Database
	tokens  map[string]types.Address
	log     *slog.Logger
	metrics *observability.EngineMetrics
}

// NewServer wires the engine host. tokens maps bearer tokens to the principal
// each token may act for; db may be nil to skip persistence (tests).
func NewServer(engine *dmc.Engine, manager *state.Manager, queue *events.Queue, db storage.Database, tokens map[string]types.Address, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		engine:  engine,
		state:   manager,
		queue:   queue,
		db:      db,
		tokens:  tokens,
		log:     log,
		metrics: observability.Engine(),
	}
}

// Handler builds the HTTP route table.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(v1 chi.Router) {
		v1.Post("/bills", s.handleBill)
		v1.Post("/bills/{id}/cancel", s.handleUnbill)
		v1.Get("/bills", s.handleListBills)
		v1.Get("/bills/{id}", s.handleGetBill)

		v1.Post("/orders", s.handleOrder)
		v1.Get("/orders/{id}", s.handleGetOrder)

		v1.Post("/stake/increase", s.handleIncrease)
		v1.Post("/stake/redeem", s.handleRedemption)
		v1.Post("/stake/mint", s.handleMint)
		v1.Post("/stake/rate", s.handleSetMakerRate)
		v1.Post("/stake/benchmark", s.handleSetMakerBenchmark)
		v1.Get("/makers", s.handleListMakers)
		v1.Get("/makers/{addr}", s.handleGetMaker)

		v1.Post("/liquidation", s.handleLiquidation)
		v1.Post("/params", s.handleSetConfig)

		v1.Post("/accounts/{addr}/release", s.handleRelease)
		v1.Get("/accounts/{addr}", s.handleGetAccount)
		v1.Get("/price", s.handlePrice)
	})

	return r
}

// --- auth ---

type authCtx struct {
	principal types.Address
}

func (a authCtx) Authorized(addr types.Address) bool { return addr == a.principal }

var errNoPrincipal = errors.New("gateway: missing or unknown bearer token")

func (s *Server) principal(r *http.Request) (types.Address, error) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		return types.Address{}, errNoPrincipal
	}
	addr, ok := s.tokens[header[len(prefix):]]
	if !ok {
		return types.Address{}, errNoPrincipal
	}
	return addr, nil
}

// --- commit protocol ---

type eventPayload interface {
	Event() *types.Event
}

type opResponse struct {
	Result any            `json:"result,omitempty"`
	Events []*types.Event `json:"events,omitempty"`
}

type errResponse struct {
	Error string `json:"error"`
	Class string `json:"class"`
}

// apply runs one mutating operation under the commit protocol. On error every
// mutation is rolled back and buffered events are discarded before the error
// is reported.
func (s *Server) apply(w http.ResponseWriter, r *http.Request, operation string, fn func(auth dmc.AuthContext, principal types.Address) (any, error)) {
	principal, err := s.principal(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err, dmc.ClassAuthorization)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	snap := s.state.Snapshot()
	result, err := fn(authCtx{principal: principal}, principal)
	if err != nil {
		s.state.RevertToSnapshot(snap)
		s.queue.Reset()
		class := dmc.Class(err)
		s.metrics.ObserveOperation(operation, "revert", time.Since(start))
		s.metrics.ObserveRevert(operation, class)
		s.log.Warn("operation reverted", "operation", operation, "class", class, "err", err)
		writeError(w, classStatus(class), err, class)
		return
	}
	s.state.DiscardSnapshot(snap)

	emitted := s.queue.Drain()
	if s.db != nil {
		if flushErr := s.state.Flush(s.db); flushErr != nil {
			s.log.Error("state flush failed", "operation", operation, "err", flushErr)
		}
	}
	s.metrics.ObserveOperation(operation, "ok", time.Since(start))

	resp := opResponse{Result: result}
	for _, ev := range emitted {
		if payload, ok := ev.(eventPayload); ok {
			resp.Events = append(resp.Events, payload.Event())
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func classStatus(class string) int {
	switch class {
	case dmc.ClassAuthorization:
		return http.StatusForbidden
	case dmc.ClassValidation:
		return http.StatusBadRequest
	case dmc.ClassNotFound:
		return http.StatusNotFound
	case dmc.ClassInsufficientFunds:
		return http.StatusUnprocessableEntity
	case dmc.ClassRateViolation, dmc.ClassTimingViolation:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error, class string) {
	writeJSON(w, status, errResponse{Error: err.Error(), Class: class})
}

func decodeBody(w http.ResponseWriter, r *http.Request, into any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, requestBodyLimit))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(into); err != nil {
		writeError(w, http.StatusBadRequest, err, dmc.ClassValidation)
		return false
	}
	return true
}

func parseAmount(raw string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, errors.New("gateway: invalid decimal amount")
	}
	return amount, nil
}

// --- mutating handlers ---

type billRequest struct {
	Owner           string  `json:"owner"`
	Amount          string  `json:"amount"`
	Price           float64 `json:"price"`
	ExpireOn        int64   `json:"expireOn"`
	DepositRatioBps uint64  `json:"depositRatioBps"`
	Memo            string  `json:"memo"`
}

func (s *Server) handleBill(w http.ResponseWriter, r *http.Request) {
	var req billRequest
	if !decodeBody(w, r, &req) {
		return
	}
	owner, err := types.ParseAddress(req.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, err, dmc.ClassValidation)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err, dmc.ClassValidation)
		return
	}
	priceFixed, err := dmc.EncodePrice(req.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, err, dmc.ClassValidation)
		return
	}
	s.apply(w, r, "bill", func(auth dmc.AuthContext, _ types.Address) (any, error) {
		id, err := s.engine.Bill(auth, owner, amount, priceFixed, req.ExpireOn, req.DepositRatioBps, req.Memo)
		if err != nil {
			return nil, err
		}
		return map[string]string{"billId": strconv.FormatUint(id, 10)}, nil
	})
}

type unbillRequest struct {
	Owner string `json:"owner"`
	Memo  string `json:"memo"`
}

func (s *Server) handleUnbill(w http.ResponseWriter, r *http.Request) {
	billID, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, err, dmc.ClassValidation)
		return
	}
	var req unbillRequest
	if !decodeBody(w, r, &req) {
		return
	}
	owner, err := types.ParseAddress(req.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, err, dmc.ClassValidation)
		return
	}
	s.apply(w, r, "unbill", func(auth dmc.AuthContext, _ types.Address) (any, error) {
		return nil, s.engine.Unbill(auth, owner, billID, req.Memo)
	})
}

type orderRequest struct {
	User         string `json:"user"`
	Miner        string `json:"miner"`
	BillID       uint64 `json:"billId"`
	Amount       string `json:"amount"`
	Pledge       string `json:"pledge"`
	Memo         string `json:"memo"`
	DepositValid int64  `json:"depositValid"`
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	user, err := types.ParseAddress(req.User)
	if err != nil {
		writeError(w, http.StatusBadRequest, err, dmc.ClassValidation)
		return
	}
	miner, err := types.ParseAddress(req.Miner)
	if err != nil {
		writeError(w, http.StatusBadRequest, err, dmc.ClassValidation)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err, dmc.ClassValidation)
		return
	}
	pledge, err := parseAmount(req.Pledge)
	if err != nil {
		writeError(w, http.StatusBadRequest, err, dmc.ClassValidation)
		return
	}
	s.apply(w, r, "order", func(auth dmc.AuthContext, _ types.Address) (any, error) {
		id, err := s.engine.Order(auth, user, miner, req.BillID, amount, pledge, req.Memo, req.DepositValid)
		if err != nil {
			return nil, err
		}
		return map[string]string{"orderId": strconv.FormatUint(id, 10)}, nil
	})
}

type increaseRequest struct {
	Owner  string `json:"owner"`
	Amount string `json:"amount"`
	Miner  string `json:"miner"`
}

func (s *Server) handleIncrease(w http.ResponseWriter, r *http.Request) {
	var req increaseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	owner, err := types.ParseAddress(req.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, err, dmc.ClassValidation)
		return
	}
	miner, err := types.ParseAddress(req.Miner)
	if err != nil {
		writeError(w, http.StatusBadRequest, err, dmc.ClassValidation)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err, dmc.ClassValidation)
		return
	}
	s.apply(w, r, "increase", func(auth dmc.AuthContext, _ types.Address) (any, error) {
		return nil, s.engine.Increase(auth, owner, amount, miner)
	})
}

type redemptionRequest struct {
	Owner string  `json:"owner"`
	Rate  float64 `json:"rate"`
	Miner string  `json:"miner"`
}

func (s *Server) handleRedemption(w http.ResponseWriter, r *http.Request) {
	var req redemptionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	owner, err := types.ParseAddress(req.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, err, dmc.ClassValidation)
		return
	}
	miner, err := types.ParseAddress(req.Miner)
	if err != nil {
		writeError(w, http.StatusBadRequest, err, dmc.ClassValidation)
		return
	}
	s.apply(w, r, "redemption", func(auth dmc.AuthContext, _ types.Address) (any, error) {
		redeemed, err := s.engine.Redemption(auth, owner, req.Rate, miner)
		if err != nil {
			return nil, err
		}
		return map[string]string{"redeemed": redeemed.String()}, nil
	})
}

type mintRequest struct {
	Owner  string `json:"owner"`
	Amount string `json:"amount"`
}

func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	var req mintRequest
	if !decodeBody(w, r, &req) {
		return
	}
	owner, err := types.ParseAddress(req.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, err, dmc.ClassValidation)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err, dmc.ClassValidation)
		return
	}
	s.apply(w, r, "mint", func(auth dmc.AuthContext, _ types.Address) (any, error) {
		return nil, s.engine.Mint(auth, owner, amount)
	})
}

type makerRateRequest struct {
	Owner string  `json:"owner"`
	Rate  float64 `json:"rate"`
}

func (s *Server) handleSetMakerRate(w http.ResponseWriter, r *http.Request) {
	var req makerRateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	owner, err := types.ParseAddress(req.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, err, dmc.ClassValidation)
		return
	}
	s.apply(w, r, "setmakerrate", func(auth dmc.AuthContext, _ types.Address) (any, error) {
		return nil, s.engine.SetMakerRate(auth, owner, req.Rate)
	})
}

type benchmarkRequest struct {
	Owner string `json:"owner"`
	Rate  uint64 `json:"rate"`
}

func (s *Server) handleSetMakerBenchmark(w http.ResponseWriter, r *http.Request) {
	var req benchmarkRequest
	if !decodeBody(w, r, &req) {
		return
	}
	owner, err := types.ParseAddress(req.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, err, dmc.ClassValidation)
		return
	}
	s.apply(w, r, "setmakerbstr", func(auth dmc.AuthContext, _ types.Address) (any, error) {
		return nil, s.engine.SetMakerBenchmarkRate(auth, owner, req.Rate)
	})
}

func (s *Server) handleLiquidation(w http.ResponseWriter, r *http.Request) {
	s.apply(w, r, "liquidation", func(auth dmc.AuthContext, principal types.Address) (any, error) {
		processed, err := s.engine.Liquidation(auth, principal)
		if err != nil {
			return nil, err
		}
		return map[string]int{"processed": processed}, nil
	})
}

type setConfigRequest struct {
	Key   string `json:"key"`
	Value uint64 `json:"value"`
}

func (s *Server) handleSetConfig(w http.ResponseWriter, r *http.Request) {
	var req setConfigRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s.apply(w, r, "setconfig", func(auth dmc.AuthContext, principal types.Address) (any, error) {
		return nil, s.engine.SetConfig(auth, principal, req.Key, req.Value)
	})
}

func (s *Server) handleRelease(w http.ResponseWriter, r *http.Request) {
	addr, err := types.ParseAddress(chi.URLParam(r, "addr"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err, dmc.ClassValidation)
		return
	}
	s.apply(w, r, "release", func(_ dmc.AuthContext, _ types.Address) (any, error) {
		released := s.engine.ReleaseMatured(addr, time.Now().Unix())
		return map[string]string{"released": released.String()}, nil
	})
}

// --- read handlers ---

func (s *Server) handleListBills(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.state.Bills())
}

func (s *Server) handleGetBill(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, err, dmc.ClassValidation)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	bill, ok := s.state.GetBill(id)
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("gateway: no such bill"), dmc.ClassNotFound)
		return
	}
	writeJSON(w, http.StatusOK, bill)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, err, dmc.ClassValidation)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.state.GetOrder(id)
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("gateway: no such order"), dmc.ClassNotFound)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (s *Server) handleListMakers(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.state.MakersByRate())
}

type makerResponse struct {
	Maker  *dmc.Maker       `json:"maker"`
	Minted string           `json:"minted"`
	Shares []*dmc.PoolShare `json:"shares"`
}

func (s *Server) handleGetMaker(w http.ResponseWriter, r *http.Request) {
	addr, err := types.ParseAddress(chi.URLParam(r, "addr"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err, dmc.ClassValidation)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	maker, ok := s.state.GetMaker(addr)
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("gateway: no such maker"), dmc.ClassNotFound)
		return
	}
	writeJSON(w, http.StatusOK, makerResponse{
		Maker:  maker,
		Minted: s.state.MintedAmount(addr).String(),
		Shares: s.state.PoolShares(addr),
	})
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	addr, err := types.ParseAddress(chi.URLParam(r, "addr"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err, dmc.ClassValidation)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, types.EnsureAccount(s.state.GetAccount(addr)))
}

func (s *Server) handlePrice(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.state.PriceBoard())
}
