package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"campus/companion/internal/auth"
	"campus/companion/internal/companion"
	"campus/companion/internal/config"
	"campus/companion/internal/db"
	"campus/companion/internal/deeplink"
	"campus/companion/internal/dispatch"
	"campus/companion/internal/nav"
	"campus/companion/internal/snapshot"
)

var (
	deepLinkHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deeplink_handled_total",
		Help: "Deep-link requests by outcome.",
	}, []string{"outcome"})
	contextApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "companion_context_applied_total",
		Help: "Context payloads with at least one decoded collection.",
	})
	contextRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "companion_context_rejected_total",
		Help: "Context payloads with zero decodable collections.",
	})
)

// ContextPublisher forwards the latest accepted payload to connected
// wearables.
type ContextPublisher interface {
	Publish(ctx context.Context, userID string, payload companion.ContextPayload) error
}

type Server struct {
	cfg       config.Config
	store     *db.Store
	contexts  companion.Store
	publisher ContextPublisher
	loop      *dispatch.Loop
	parser    deeplink.Parser
	builder   *snapshot.Builder

	mu        sync.Mutex
	routers   map[string]*nav.Router
	receivers map[string]*companion.Receiver
}

func NewServer(cfg config.Config, store *db.Store, contexts companion.Store, publisher ContextPublisher, loop *dispatch.Loop) *Server {
	s := &Server{
		cfg:       cfg,
		store:     store,
		contexts:  contexts,
		publisher: publisher,
		loop:      loop,
		parser:    deeplink.NewParser(cfg.DeepLinkScheme),
		routers:   make(map[string]*nav.Router),
		receivers: make(map[string]*companion.Receiver),
	}
	if store != nil {
		s.builder = snapshot.NewBuilder(store.Queries)
	}
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/deeplink", s.handleDeepLink)
	r.Post("/deeplink/activity", s.handleActivity)
	r.With(s.authMiddleware).Post("/deeplink/pending", s.handleProcessPending)
	r.With(s.authMiddleware).Get("/navigation", s.handleGetNavigation)
	r.With(s.authMiddleware).Put("/context", s.handlePutContext)
	r.With(s.authMiddleware).Get("/context", s.handleGetContext)
	r.With(s.authMiddleware).Post("/context/refresh", s.handleRefreshContext)

	return r
}

// Auth

type claimsKey struct{}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing_token")
			return
		}
		claims, err := auth.ParseToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_token")
			return
		}
		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func claimsFromContext(ctx context.Context) *auth.Claims {
	value := ctx.Value(claimsKey{})
	claims, _ := value.(*auth.Claims)
	return claims
}

// optionalClaims validates the bearer token when present. The deep-link
// endpoints accept unauthenticated requests; authentication only gates
// whether a destination is applied or deferred.
func (s *Server) optionalClaims(r *http.Request) *auth.Claims {
	token := bearerToken(r.Header.Get("Authorization"))
	if token == "" {
		return nil
	}
	claims, err := auth.ParseToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, token)
	if err != nil {
		return nil
	}
	return claims
}

// Models

type deepLinkRequest struct {
	URL string `json:"url"`
}

type activityRequest struct {
	Activity string `json:"activity"`
}

type destinationResponse struct {
	Kind string `json:"kind"`
	ID   string `json:"id,omitempty"`
}

type deepLinkResponse struct {
	Handled     bool                 `json:"handled"`
	Deferred    bool                 `json:"deferred"`
	Destination *destinationResponse `json:"destination,omitempty"`
}

type contextResponse struct {
	Assignments []companion.Assignment    `json:"assignments"`
	Schedule    []companion.ScheduleEntry `json:"schedule"`
	Grades      []companion.Grade         `json:"grades"`
	SyncedAt    int64                     `json:"syncedAt"`
	Error       string                    `json:"error,omitempty"`
}

// Deep-link handlers

func (s *Server) handleDeepLink(w http.ResponseWriter, r *http.Request) {
	var req deepLinkRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	deviceID := strings.TrimSpace(r.Header.Get("X-Device-ID"))
	if deviceID == "" {
		writeError(w, http.StatusBadRequest, "missing_device_id")
		return
	}

	claims := s.optionalClaims(r)
	authenticated := claims != nil
	router := s.routerFor(deviceID)
	if !router.Handle(req.URL, authenticated) {
		deepLinkHandled.WithLabelValues("unhandled").Inc()
		writeJSON(w, http.StatusOK, deepLinkResponse{Handled: false})
		return
	}
	if !authenticated {
		deepLinkHandled.WithLabelValues("deferred").Inc()
		writeJSON(w, http.StatusOK, deepLinkResponse{Handled: true, Deferred: true})
		return
	}
	deepLinkHandled.WithLabelValues("applied").Inc()
	dest, _ := s.parser.ParseURL(req.URL)
	writeJSON(w, http.StatusOK, deepLinkResponse{Handled: true, Destination: mapDestination(dest)})
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	var req activityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	deviceID := strings.TrimSpace(r.Header.Get("X-Device-ID"))
	if deviceID == "" {
		writeError(w, http.StatusBadRequest, "missing_device_id")
		return
	}

	claims := s.optionalClaims(r)
	router := s.routerFor(deviceID)
	// Activities cannot be re-encoded as URLs, so an unauthenticated
	// activity is dropped rather than deferred.
	if !router.HandleActivity(req.Activity, claims != nil) {
		deepLinkHandled.WithLabelValues("unhandled").Inc()
		writeJSON(w, http.StatusOK, deepLinkResponse{Handled: false})
		return
	}
	deepLinkHandled.WithLabelValues("applied").Inc()
	dest, _ := s.parser.ParseActivity(req.Activity)
	writeJSON(w, http.StatusOK, deepLinkResponse{Handled: true, Destination: mapDestination(dest)})
}

func (s *Server) handleProcessPending(w http.ResponseWriter, r *http.Request) {
	deviceID := strings.TrimSpace(r.Header.Get("X-Device-ID"))
	if deviceID == "" {
		writeError(w, http.StatusBadRequest, "missing_device_id")
		return
	}
	router := s.routerFor(deviceID)
	replayed := router.HasPending()
	router.ProcessPending()
	writeJSON(w, http.StatusOK, map[string]bool{"replayed": replayed})
}

func (s *Server) handleGetNavigation(w http.ResponseWriter, r *http.Request) {
	deviceID := strings.TrimSpace(r.Header.Get("X-Device-ID"))
	if deviceID == "" {
		writeError(w, http.StatusBadRequest, "missing_device_id")
		return
	}
	writeJSON(w, http.StatusOK, s.routerFor(deviceID).State())
}

// Context handlers

func (s *Server) handlePutContext(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}
	var payload companion.ContextPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	applied := s.ApplyContext(r.Context(), claims.UserID, payload)
	writeJSON(w, http.StatusOK, map[string]bool{"applied": applied})
}

func (s *Server) handleGetContext(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}
	receiver := s.receiverFor(r.Context(), claims.UserID)
	snap, lastError := receiver.State()
	writeJSON(w, http.StatusOK, mapSnapshot(snap, lastError))
}

func (s *Server) handleRefreshContext(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}
	if s.builder == nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	studentID, err := uuid.Parse(claims.UserID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_student_id")
		return
	}
	payload, err := s.builder.Build(r.Context(), studentID, time.Now().UTC())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	applied := s.ApplyContext(r.Context(), claims.UserID, payload)
	writeJSON(w, http.StatusOK, map[string]bool{"applied": applied})
}

// ApplyContext runs the receiver path for one user: decode, replace,
// persist, then forward the latest value. Used by the PUT handler and the
// refresh job.
func (s *Server) ApplyContext(ctx context.Context, userID string, payload companion.ContextPayload) bool {
	receiver := s.receiverFor(ctx, userID)
	if !receiver.Apply(ctx, payload) {
		contextRejected.Inc()
		return false
	}
	contextApplied.Inc()
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, userID, payload); err != nil {
			receiver.SetTransportError("companion link unavailable: " + err.Error())
			log.Printf("context publish failed for %s: %v", userID, err)
		}
	}
	return true
}

// Registries

func (s *Server) routerFor(deviceID string) *nav.Router {
	s.mu.Lock()
	defer s.mu.Unlock()
	if router, ok := s.routers[deviceID]; ok {
		return router
	}
	router := nav.NewRouter(s.parser, s.loop)
	s.routers[deviceID] = router
	return router
}

func (s *Server) receiverFor(ctx context.Context, userID string) *companion.Receiver {
	s.mu.Lock()
	receiver, ok := s.receivers[userID]
	if !ok {
		receiver = companion.NewReceiver(userID, s.contexts, s.loop)
		s.receivers[userID] = receiver
	}
	s.mu.Unlock()
	if !ok {
		receiver.Bootstrap(ctx)
	}
	return receiver
}

// Mapping helpers

func mapDestination(dest deeplink.Destination) *destinationResponse {
	resp := &destinationResponse{Kind: string(dest.Kind)}
	if dest.Kind.CarriesID() {
		resp.ID = dest.ID.String()
	}
	return resp
}

func mapSnapshot(snap companion.Snapshot, lastError string) contextResponse {
	resp := contextResponse{
		Assignments: snap.Assignments,
		Schedule:    snap.Schedule,
		Grades:      snap.Grades,
		Error:       lastError,
	}
	if resp.Assignments == nil {
		resp.Assignments = []companion.Assignment{}
	}
	if resp.Schedule == nil {
		resp.Schedule = []companion.ScheduleEntry{}
	}
	if resp.Grades == nil {
		resp.Grades = []companion.Grade{}
	}
	if !snap.SyncedAt.IsZero() {
		resp.SyncedAt = snap.SyncedAt.Unix()
	}
	return resp
}

// Utilities

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
