//go:generate mockgen -source ./server.go -destination=./mocks/server.go -package=mock_server
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/dairyline/milk-distributor/internal/date"
	"github.com/dairyline/milk-distributor/internal/ledger"
)

type CapacityService interface {
	GetCapacity(ctx context.Context, day date.Date) (*ledger.Capacity, error)
	UpdateCapacityDetails(ctx context.Context, day date.Date, upd ledger.CapacityUpdate) (*ledger.Capacity, error)
}

type OrderService interface {
	CreateOrder(ctx context.Context, in ledger.NewOrder) (*ledger.Order, error)
	GetOrder(ctx context.Context, orderID string) (*ledger.Order, error)
	ListOrders(ctx context.Context, day date.Date) ([]*ledger.Order, error)
	UpdateOrder(ctx context.Context, orderID string, upd ledger.OrderUpdate) (*ledger.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status string) (*ledger.Order, error)
	DeleteOrder(ctx context.Context, orderID string) (*ledger.Order, error)
	GetOrderHistory(ctx context.Context, orderID string) ([]ledger.HistoryEntry, error)
}

type Deps struct {
	Capacities CapacityService
	Orders     OrderService
	Clock      date.Clock
	Logger     *zap.Logger
	// Production hides internal error details from 500 responses.
	Production bool
	AuditSink  AuditSink
}

type Server struct {
	capacities   CapacityService
	orders       OrderService
	clock        date.Clock
	logger       *zap.Logger
	production   bool
	validate     *validator.Validate
	server       *http.Server
	AuditManager *AuditManager
}

func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sink := deps.AuditSink
	if sink == nil {
		sink = NewZapAuditSink(logger)
	}
	return &Server{
		capacities:   deps.Capacities,
		orders:       deps.Orders,
		clock:        deps.Clock,
		logger:       logger,
		production:   deps.Production,
		validate:     newValidator(),
		AuditManager: NewAuditManager(sink, logger, 2, 5, 500*time.Millisecond),
	}
}

// Run serves until Shutdown is called.
func (s *Server) Run(ctx context.Context, port string) error {
	s.server = &http.Server{
		Addr:              ":" + port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
	}

	s.AuditManager.Start(ctx)

	s.logger.Info("server starting", zap.String("port", port))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			return err
		}
	}
	s.logger.Info("http server shutdown completed")

	s.AuditManager.Shutdown(ctx)
	return nil
}

// Handler builds the router. Exposed for tests.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(s.handleNotFound)
	r.Use(s.recoverMiddleware, s.requestLogMiddleware)

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api", s.handleIndex).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.auditLogMiddleware)

	api.HandleFunc("/checkCapacity/{date}", s.handleGetCapacity).Methods(http.MethodGet)
	api.HandleFunc("/capacity/{date}", s.handleUpdateCapacity).Methods(http.MethodPatch)

	api.HandleFunc("/add", s.handleCreateOrder).Methods(http.MethodPost)
	api.HandleFunc("/orders", s.handleCreateOrder).Methods(http.MethodPost)
	api.HandleFunc("/orders", s.handleListOrders).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}", s.handleGetOrder).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}", s.handleUpdateOrder).Methods(http.MethodPatch)
	api.HandleFunc("/orders/{id}", s.handleDeleteOrder).Methods(http.MethodDelete)
	api.HandleFunc("/orders/{id}/status", s.handleUpdateOrderStatus).Methods(http.MethodPut)
	api.HandleFunc("/orders/{id}/history", s.handleOrderHistory).Methods(http.MethodGet)

	return r
}
