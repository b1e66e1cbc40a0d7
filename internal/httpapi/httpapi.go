package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"inventra/backend/internal/logger"
	"inventra/backend/internal/service"
	"inventra/backend/internal/store"
)

const maxJSONBodyBytes = 1 << 20

type API struct {
	service       *service.Service
	actors        *ActorResolver
	allowedOrigin string
	log           zerolog.Logger
}

func New(svc *service.Service, actors *ActorResolver, allowedOrigin string) *API {
	return &API{
		service:       svc,
		actors:        actors,
		allowedOrigin: allowedOrigin,
		log:           logger.Log.With().Str("component", "httpapi").Logger(),
	}
}

func (a *API) Handler() http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(writeNotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(writeMethodNotAllowed)

	r.HandleFunc("/healthz", a.handleHealth).Methods(http.MethodGet)

	r.HandleFunc("/inbound", a.handleListInbound).Methods(http.MethodGet)
	r.HandleFunc("/inbound", a.requireActor(a.handleCreateInbound)).Methods(http.MethodPost)
	r.HandleFunc("/inbound", a.requireActor(a.handleUpdateInbound)).Methods(http.MethodPut)
	r.HandleFunc("/inbound/tracking", a.handleGetInbound).Methods(http.MethodGet)
	r.HandleFunc("/inbound/tracking", a.requireActor(a.handleInboundTracking)).Methods(http.MethodPost)
	r.HandleFunc("/inbound/cancel", a.requireActor(a.handleCancelInbound)).Methods(http.MethodPost)

	r.HandleFunc("/outbound", a.handleListOutbound).Methods(http.MethodGet)
	r.HandleFunc("/outbound", a.requireActor(a.handleCreateOutbound)).Methods(http.MethodPost)
	r.HandleFunc("/outbound", a.requireActor(a.handleUpdateOutbound)).Methods(http.MethodPut)
	r.HandleFunc("/outbound/deliver", a.requireActor(a.handleDeliverOutbound)).Methods(http.MethodPost)
	r.HandleFunc("/outbound/cancel", a.requireActor(a.handleCancelOutbound)).Methods(http.MethodPost)
	r.HandleFunc("/outbound/receipt", a.requireActor(a.handleOutboundReceipt)).Methods(http.MethodPost)

	r.HandleFunc("/stock-adjustment", a.handleListAdjustments).Methods(http.MethodGet)
	r.HandleFunc("/stock-adjustment", a.requireActor(a.handleCreateAdjustment)).Methods(http.MethodPost)

	r.HandleFunc("/products", a.handleListProducts).Methods(http.MethodGet)
	r.HandleFunc("/products", a.requireActor(a.handleCreateProduct)).Methods(http.MethodPost)
	r.HandleFunc("/products", a.requireActor(a.handleProductStatus)).Methods(http.MethodPatch)
	r.HandleFunc("/products", a.requireActor(a.handleDeleteProduct)).Methods(http.MethodDelete)
	r.HandleFunc("/storage-locations", a.handleListStorageLocations).Methods(http.MethodGet)
	r.HandleFunc("/storage-locations", a.requireActor(a.handleCreateStorageLocation)).Methods(http.MethodPost)
	r.HandleFunc("/suppliers", a.handleListSuppliers).Methods(http.MethodGet)

	return a.withMiddleware(r)
}

// requireActor resolves who is acting and puts it on the request context.
func (a *API) requireActor(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := a.actors.Resolve(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}
		next(w, r.WithContext(service.WithActor(r.Context(), actor)))
	}
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+actorHeader)
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if (r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch) && strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
			r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		startedAt := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		a.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("latency", time.Since(startedAt)).
			Msg("request")
	})
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

// statusFor maps the store error taxonomy onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInvalidTransition), errors.Is(err, store.ErrInsufficientStock):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err)
}

func writeNotFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, errors.New("route not found"))
}

func writeMethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func writeError(w http.ResponseWriter, status int, err error) {
	// 5xx bodies stay generic; the cause goes to the log.
	msg := err.Error()
	if status >= 500 {
		logger.Log.Error().Stack().Err(err).Int("status", status).Msg("internal error")
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
