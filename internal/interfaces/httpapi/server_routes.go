package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /healthz", h.Healthz)
}

func registerGameRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /v1/games", h.ListGames)
	mux.HandleFunc("GET /v1/player-stats", h.GetPlayerStats)
}

func registerPredictionRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("POST /v1/predictions", h.CreatePrediction)
	mux.HandleFunc("GET /v1/predictions", h.ListPredictions)
	mux.HandleFunc("GET /v1/predictions/summary", h.GetPredictionSummary)
}

func registerInternalJobRoutes(mux *http.ServeMux, h *Handler, token string) {
	mux.Handle("POST /v1/internal/jobs/pipeline-run",
		RequireInternalJobToken(token, http.HandlerFunc(h.RunPipelineJob)))
}
