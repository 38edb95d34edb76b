package api

import (
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	nuts "github.com/vaudience/go-nuts"

	"github.com/ossohq/pe32-hub/api/middleware"
	"github.com/ossohq/pe32-hub/api/resources"
	"github.com/ossohq/pe32-hub/internal/hubservice"
)

type Router struct {
	router    *mux.Router
	auth      *middleware.KeyMiddleware
	resources *resources.Resources
}

func NewRouter(svc *hubservice.HubService, keys middleware.KeyConfig) *Router {
	r := &Router{
		router:    mux.NewRouter(),
		auth:      middleware.NewKeyMiddleware(keys),
		resources: resources.NewResources(svc),
	}

	r.setupRoutes()
	return r
}

func (r *Router) setupRoutes() {
	// API version prefix
	api := r.router.PathPrefix("/api/v1").Subrouter()

	// Public routes
	api.HandleFunc("/health", handleHealth).Methods(http.MethodGet)

	// Read-only routes; the writer key passes these too
	read := api.PathPrefix("").Subrouter()
	read.Use(r.auth.RequireReader)
	read.HandleFunc("/labels", r.resources.Labels.ListLabels).Methods(http.MethodGet)
	read.HandleFunc("/labels/{id:[0-9]+}", r.resources.Labels.GetLabel).Methods(http.MethodGet)
	read.HandleFunc("/devices", r.resources.Devices.ListDevices).Methods(http.MethodGet)
	read.HandleFunc("/metrics", r.resources.Samples.ListMetrics).Methods(http.MethodGet)
	read.HandleFunc("/metrics/{metric}/samples", r.resources.Samples.QuerySamples).Methods(http.MethodGet)

	// Writer routes
	write := api.PathPrefix("").Subrouter()
	write.Use(r.auth.RequireWriter)
	write.HandleFunc("/labels", r.resources.Labels.CreateLabel).Methods(http.MethodPost)
	write.HandleFunc("/labels/{id:[0-9]+}", r.resources.Labels.RenameLabel).Methods(http.MethodPut)
	write.HandleFunc("/devices/{identifier}/resolve", r.resources.Devices.ResolveLabel).Methods(http.MethodPost)
	write.HandleFunc("/devices/{identifier}/label", r.resources.Devices.ReassignLabel).Methods(http.MethodPut)
	write.HandleFunc("/metrics/{metric}/samples", r.resources.Samples.RecordSample).Methods(http.MethodPost)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok","version":"` + nuts.GetVersion() + `"}`))
}

// Handler wraps the router with request logging and panic recovery
func (r *Router) Handler() http.Handler {
	return handlers.CombinedLoggingHandler(os.Stdout,
		handlers.RecoveryHandler()(r.router))
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.router.ServeHTTP(w, req)
}
