package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

func (s *Server) routes() http.Handler {
	router := mux.NewRouter()
	router.Use(s.requestIDMiddleware, s.accessLogMiddleware, s.authMiddleware)

	router.HandleFunc("/api/healthz", s.handleHealth).Methods("GET")
	router.HandleFunc("/api/jobs", s.handleListJobs).Methods("GET")
	router.HandleFunc("/api/jobs", s.handleRegisterJob).Methods("POST")
	router.HandleFunc("/api/jobs/{id}", s.handleDescribeJob).Methods("GET")
	router.HandleFunc("/api/jobs/{id}", s.handleConfigureJob).Methods("PATCH")
	router.HandleFunc("/api/jobs/{id}", s.handleRemoveJob).Methods("DELETE")
	router.HandleFunc("/api/jobs/{id}/retry", s.handleRetryJob).Methods("POST")
	router.HandleFunc("/api/jobs/{id}/result", s.handleResult).Methods("GET")
	router.HandleFunc("/api/batch", s.handleBatchStatus).Methods("GET")
	router.HandleFunc("/api/batch", s.handleBatchStart).Methods("POST")

	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.Paths.APIOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})
	return c.Handler(router)
}
