package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/restaurantapi/orders-service/internal/domain"
	"github.com/restaurantapi/orders-service/internal/observability"
)

//go:generate mockgen -source internal/httpapi/httpapi.go -destination=internal/httpapi/httpapi_mock_test.go -package=httpapi

// OrderService is the narrow contract the HTTP layer consumes.
type OrderService interface {
	Create(ctx context.Context, order domain.Order) (*domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListActive(ctx context.Context) ([]domain.Order, error)
	Advance(ctx context.Context, id string) (*domain.Order, error)
}

type Server struct {
	service OrderService
	router  chi.Router
	logger  *zap.Logger
	metrics observability.Metrics
}

func New(service OrderService, logger *zap.Logger, metrics observability.Metrics) *Server {
	s := &Server{
		service: service,
		logger:  logger,
		metrics: metrics,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(s.logger, s.metrics))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/orders", func(r chi.Router) {
		r.Get("/", s.listOrders)
		r.Post("/", s.createOrder)
		r.Get("/{id}", s.getOrder)
		r.Post("/{id}/advance", s.advanceOrder)
	})

	s.router = r
}

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.service.ListActive(r.Context())
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	ct := r.Header.Get("Content-Type")
	if ct != "" && !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		httpError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}

	var order domain.Order
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&order); err != nil {
		httpError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	created, err := s.service.Create(r.Context(), order)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			httpError(w, http.StatusBadRequest, err.Error())
			return
		}
		httpError(w, http.StatusInternalServerError, "failed to create order")
		return
	}

	w.Header().Set("Location", "/orders/"+created.ID)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		httpError(w, http.StatusBadRequest, "order id required")
		return
	}

	order, err := s.service.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			httpError(w, http.StatusNotFound, "order not found")
			return
		}
		httpError(w, http.StatusInternalServerError, "failed to get order")
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (s *Server) advanceOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		httpError(w, http.StatusBadRequest, "order id required")
		return
	}

	order, err := s.service.Advance(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			httpError(w, http.StatusNotFound, "order not found")
			return
		}
		httpError(w, http.StatusInternalServerError, "failed to advance order")
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// ListenAndServe runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	return srv.ListenAndServe()
}

func (s *Server) Handler() http.Handler { return s.router }
