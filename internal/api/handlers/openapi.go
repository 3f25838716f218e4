// openapi.go — отдача OpenAPI контракта как /openapi.json.
package handlers

import "net/http"

// SetOpenAPISpec задаёт сериализованный OpenAPI контракт.
// Вызывается один раз при старте, до запуска сервера.
func (h *APIHandler) SetOpenAPISpec(specJSON []byte) {
	h.specJSON = specJSON
}

// HandleOpenAPI — GET /openapi.json.
func (h *APIHandler) HandleOpenAPI(w http.ResponseWriter, r *http.Request) {
	if len(h.specJSON) == 0 {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(h.specJSON)
}
