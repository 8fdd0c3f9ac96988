package router

import (
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/evoting-dev/evoting/internal/middleware/metrics"
	"github.com/evoting-dev/evoting/internal/setup"
)

// New creates and configures a new mux router with all the routes.
func New(deps *setup.Dependencies) *mux.Router {
	r := mux.NewRouter()

	// Enable gzip compression for all responses
	r.Use(handlers.CompressHandler)

	// setup CORS for frontend
	r.Use(handlers.CORS(
		handlers.AllowedOrigins([]string{"http://localhost:5173"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	))

	r.Use(metrics.Middleware)

	// Add a wildcard OPTIONS handler to avoid 404s for preflight requests
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	h := deps.Handler
	authMw := deps.AuthMiddleware

	r.HandleFunc("/health", h.Health).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Auth routes
	auth := r.PathPrefix("/api/auth").Subrouter()
	auth.HandleFunc("/register", h.Register).Methods("POST")
	auth.HandleFunc("/verify-otp", h.VerifyOTP).Methods("POST")
	auth.HandleFunc("/login", h.Login).Methods("POST")
	auth.HandleFunc("/admin/login", h.AdminLogin).Methods("POST")

	// Face check needs a token but not a confirmed one-time code yet
	voterAuthed := r.PathPrefix("/api/voter").Subrouter()
	voterAuthed.Use(authMw.NeedAuth())
	voterAuthed.HandleFunc("/verify-face", h.VerifyFace).Methods("POST")

	// Voter routes: token plus a confirmed one-time code required
	voter := r.PathPrefix("/api/voter").Subrouter()
	voter.Use(authMw.VerifiedVoter())
	voter.HandleFunc("/candidates", h.Candidates).Methods("GET")
	voter.HandleFunc("/verify-and-vote", h.VerifyAndCast).Methods("POST")

	// Election routes readable by any authenticated user
	election := r.PathPrefix("/api/election").Subrouter()
	election.Use(authMw.NeedAuth())
	election.HandleFunc("/live", h.LiveElections).Methods("GET")
	election.HandleFunc("/previous", h.PreviousElections).Methods("GET")
	election.HandleFunc("/active", h.OpenElections).Methods("GET")
	election.HandleFunc("/{id}/parties", h.ElectionParties).Methods("GET")

	// Casting needs the verified-voter gate on top of the election prefix
	electionVote := r.PathPrefix("/api/election").Subrouter()
	electionVote.Use(authMw.VerifiedVoter())
	electionVote.HandleFunc("/vote", h.CastVote).Methods("POST")

	// Election creation sits under the election prefix but is admin-only
	electionAdmin := r.PathPrefix("/api/election").Subrouter()
	electionAdmin.Use(authMw.AdminOnly())
	electionAdmin.HandleFunc("/add", h.CreateElection).Methods("POST")

	// Admin routes
	admin := r.PathPrefix("/api/admin").Subrouter()
	admin.Use(authMw.AdminOnly())
	admin.HandleFunc("/candidates", h.AddParty).Methods("POST")
	admin.HandleFunc("/candidates", h.ListParties).Methods("GET")
	admin.HandleFunc("/candidates/{id}", h.DeactivateParty).Methods("DELETE")
	admin.HandleFunc("/candidates", h.DeactivateAllParties).Methods("DELETE")
	admin.HandleFunc("/reset-votes", h.ResetTallies).Methods("POST")
	admin.HandleFunc("/results", h.Results).Methods("GET")
	admin.HandleFunc("/users", h.Users).Methods("GET")

	return r
}
