package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"loyalty/internal/server/service"
)

type Options struct {
	MaxRequestBytes int64
	RateLimit       float64 // per client per second; 0 disables
	RateBurst       int
	// Registry receives the HTTP metrics; nil uses a private registry.
	Registry *prometheus.Registry
}

type Router struct {
	services        *service.Services
	log             *logrus.Entry
	maxRequestBytes int64
	metrics         *metrics
}

func NewRouter(services *service.Services, logger *logrus.Logger, opts Options) http.Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	r := &Router{
		services:        services,
		log:             logger.WithField("component", "httpapi"),
		maxRequestBytes: opts.MaxRequestBytes,
		metrics:         newMetrics(reg),
	}
	mux := chi.NewRouter()
	mux.Use(r.instrument)
	if opts.RateLimit > 0 {
		mux.Use(newRateLimiter(rate.Limit(opts.RateLimit), opts.RateBurst, r.log).handler)
	}

	mux.Get("/health", r.handleHealth)
	mux.Handle("/metrics", r.metrics.handler(reg))

	mux.Route("/auth", func(ar chi.Router) {
		ar.Post("/register", r.handleRegister)
		ar.Post("/login", r.handleLogin)
		ar.Post("/logout", r.handleLogout)
		ar.With(r.authMiddleware).Get("/me", r.handleMe)
	})

	mux.Route("/businesses", func(br chi.Router) {
		br.Get("/", r.handleListBusinesses)
		br.Group(func(or chi.Router) {
			or.Use(r.authMiddleware, r.ownerMiddleware)
			or.Put("/", r.handleUpsertBusiness)
			or.Get("/me", r.handleOwnBusiness)
			or.Get("/enrollments", r.handleBusinessEnrollments)
			or.Post("/rewards", r.handleCreateReward)
			or.Put("/rewards/{id}", r.handleUpdateReward)
			or.Delete("/rewards/{id}", r.handleDeleteReward)
		})
	})

	mux.Route("/enrollments", func(er chi.Router) {
		er.Use(r.authMiddleware)
		er.Get("/me", r.handleMyEnrollments)
		er.Post("/businesses/{id}", r.handleEnroll)
		er.Delete("/businesses/{id}", r.handleCancelEnrollment)
		er.Group(func(or chi.Router) {
			or.Use(r.ownerMiddleware)
			or.Post("/add_points", r.handleAddPoints)
			or.Post("/redeem_reward", r.handleRedeemReward)
		})
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON reads a size-limited JSON body into dst and answers the request
// itself when that fails.
func (r *Router) decodeJSON(w http.ResponseWriter, req *http.Request, dst any) bool {
	if r.maxRequestBytes > 0 {
		req.Body = http.MaxBytesReader(w, req.Body, r.maxRequestBytes)
	}
	err := json.NewDecoder(req.Body).Decode(dst)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "request entity too large")
	case errors.Is(err, io.EOF):
		writeError(w, http.StatusBadRequest, "empty body")
	default:
		writeError(w, http.StatusBadRequest, "invalid json")
	}
	return false
}

// fail maps a service error to its status code. Unexpected errors are logged
// and hidden behind a generic 500.
func (r *Router) fail(w http.ResponseWriter, req *http.Request, err error) {
	var insufficient *service.InsufficientPointsError
	switch {
	case errors.As(err, &insufficient):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":    err.Error(),
			"required": insufficient.Required,
			"current":  insufficient.Current,
		})
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrConflict):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		r.log.WithError(err).WithFields(logrus.Fields{"method": req.Method, "path": req.URL.Path}).Error("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
