// Package webd is the HTTP face of ftmsd: telemetry ingest, session
// status, pending-workout listing, upload history, manual upload
// triggering, and a websocket feed of session state transitions.
package webd

import (
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/jellydator/ttlcache/v3"
	"github.com/olahol/melody"
	"github.com/rotblauer/ftmsd/params"
	"github.com/rotblauer/ftmsd/session"
	"github.com/rotblauer/ftmsd/store"
	"github.com/rotblauer/ftmsd/types/telemetry"
)

const lastEventTTL = 5 * time.Minute

type WebDaemon struct {
	Config  *params.WebDaemonConfig
	logger  *slog.Logger
	tracker *session.Tracker
	flat    *store.Flat
	journal *store.Journal // nil when the journal failed to open

	melodyInstance *melody.Melody

	// lastEvents keeps the most recent telemetry event briefly, so
	// /status can report live machine readings without touching the
	// tracker's recording state.
	lastEvents *ttlcache.Cache[string, *telemetry.Event]

	dedupe  func(telemetry.Event) bool
	started time.Time
}

func NewWebDaemon(config *params.WebDaemonConfig, tracker *session.Tracker, flat *store.Flat, journal *store.Journal) *WebDaemon {
	if config == nil {
		config = params.DefaultWebDaemonConfig()
	}
	return &WebDaemon{
		Config:  config,
		logger:  slog.With("d", "web"),
		tracker: tracker,
		flat:    flat,
		journal: journal,
		lastEvents: ttlcache.New[string, *telemetry.Event](
			ttlcache.WithTTL[string, *telemetry.Event](lastEventTTL)),
		dedupe:  telemetry.NewDedupeLRUFunc(),
		started: time.Now(),
	}
}

// Run starts the HTTP server (ListenAndServe) and waits for it,
// returning any server error.
func (s *WebDaemon) Run() error {
	go s.lastEvents.Start()
	router := s.NewRouter()
	http.Handle("/", router)
	log.Printf("Starting web daemon on %s", s.Config.Address)
	return http.ListenAndServe(s.Config.Address, nil)
}

func (s *WebDaemon) NewRouter() *mux.Router {

	s.initMelody()

	router := mux.NewRouter().StrictSlash(false)
	router.Use(loggingMiddleware)

	// Handle websocket.
	router.Path("/sofit").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = s.melodyInstance.HandleRequest(w, r)
	})

	apiRoutes := router.NewRoute().Subrouter()

	// All API routes use permissive CORS settings.
	apiRoutes.Use(permissiveCorsMiddleware)

	// /ping is a simple server healthcheck endpoint
	apiRoutes.Path("/ping").HandlerFunc(pingPong)

	apiRoutes.Path("/telemetry").HandlerFunc(s.handlePostTelemetry).Methods(http.MethodPost)

	apiJSONRoutes := apiRoutes.NewRoute().Subrouter()
	jsonMiddleware := contentTypeMiddlewareFunc("application/json")
	apiJSONRoutes.Use(jsonMiddleware)

	apiJSONRoutes.Path("/status").HandlerFunc(s.handleGetStatus).Methods(http.MethodGet)
	apiJSONRoutes.Path("/workouts").HandlerFunc(s.handleGetWorkouts).Methods(http.MethodGet)
	apiJSONRoutes.Path("/uploads").HandlerFunc(s.handleGetUploads).Methods(http.MethodGet)
	apiJSONRoutes.Path("/upload").HandlerFunc(s.handlePostUpload).Methods(http.MethodPost)

	return router
}
