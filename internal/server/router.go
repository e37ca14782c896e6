package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// NewRouter wires the public endpoints, the websocket and the protected
// lobby API.
func NewRouter(gs *GameServer) *mux.Router {
	r := mux.NewRouter()

	// CORS first so preflight requests never reach auth
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if len(gs.opts.AllowedOrigins) == 0 {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else if origin != "" && originAllowed(gs.opts.AllowedOrigins, origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		log.Debug().Str("remote", r.RemoteAddr).Msg("health check")
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods(http.MethodGet)

	r.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	}).Methods(http.MethodGet)

	r.HandleFunc("/ws", gs.HandleWS)

	// session issuance must stay reachable without a token
	r.HandleFunc("/api/session", gs.HandleSession).Methods(http.MethodPost, http.MethodOptions)

	protected := r.PathPrefix("/api").Subrouter()
	protected.Use(gs.issuer.Middleware)
	protected.HandleFunc("/rooms", gs.HandleListRooms).Methods(http.MethodGet, http.MethodOptions)
	protected.HandleFunc("/rooms", gs.HandleCreateRoom).Methods(http.MethodPost)

	return r
}
