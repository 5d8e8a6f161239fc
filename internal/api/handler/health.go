package handler

import (
	"net/http"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// Health reports process liveness. Dependency health is visible through
// /metrics; this endpoint only answers "is the process serving".
func Health(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Service: "mediavault",
	})
}
