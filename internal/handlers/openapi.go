package handlers

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gorilla/mux"
	"gopkg.in/yaml.v3"
)

// OpenAPIHandler serves the OpenAPI specification.
type OpenAPIHandler struct {
	specPath string
	baseDir  string
}

// NewOpenAPIHandler creates a new OpenAPI handler with path validation.
func NewOpenAPIHandler(specPath string) *OpenAPIHandler {
	absPath, _ := filepath.Abs(specPath)
	baseDir, _ := filepath.Abs(filepath.Dir(specPath))

	return &OpenAPIHandler{
		specPath: absPath,
		baseDir:  baseDir,
	}
}

// RegisterRoutes registers OpenAPI routes.
func (h *OpenAPIHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/v1/openapi.yaml", h.ServeYAML).Methods("GET")
	r.HandleFunc("/api/v1/openapi.json", h.ServeJSON).Methods("GET")
}

// validatePath ensures the spec path stays within the base directory.
func (h *OpenAPIHandler) validatePath() error {
	absPath, err := filepath.Abs(filepath.Clean(h.specPath))
	if err != nil {
		return err
	}

	relPath, err := filepath.Rel(h.baseDir, absPath)
	if err != nil {
		return err
	}

	if filepath.IsAbs(relPath) || relPath == ".." || len(relPath) > 2 && relPath[:3] == "../" {
		return os.ErrPermission
	}

	return nil
}

// ServeYAML serves the spec in YAML format.
func (h *OpenAPIHandler) ServeYAML(w http.ResponseWriter, r *http.Request) {
	if err := h.validatePath(); err != nil {
		http.Error(w, "OpenAPI specification not found", http.StatusNotFound)
		return
	}

	data, err := os.ReadFile(h.specPath)
	if err != nil {
		http.Error(w, "OpenAPI specification not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/x-yaml")
	if _, err := w.Write(data); err != nil {
		http.Error(w, "Failed to write response", http.StatusInternalServerError)
		return
	}
}

// ServeJSON serves the spec converted to JSON.
func (h *OpenAPIHandler) ServeJSON(w http.ResponseWriter, r *http.Request) {
	if err := h.validatePath(); err != nil {
		http.Error(w, "OpenAPI specification not found", http.StatusNotFound)
		return
	}

	data, err := os.ReadFile(h.specPath)
	if err != nil {
		http.Error(w, "OpenAPI specification not found", http.StatusNotFound)
		return
	}

	var yamlData map[string]any
	if err := yaml.Unmarshal(data, &yamlData); err != nil {
		http.Error(w, "Failed to parse OpenAPI specification", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(yamlData); err != nil {
		http.Error(w, "Failed to encode JSON response", http.StatusInternalServerError)
		return
	}
}
