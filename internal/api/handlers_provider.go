package api

import (
	"encoding/json"
	"net/http"
	"slices"

	"github.com/resonate-app/resonate/internal/provider"
)

type providerInfo struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name"`
	Fields      []string `json:"fields"`
	Configured  bool     `json:"configured"`
}

func (r *Router) handleListProviders(w http.ResponseWriter, req *http.Request) {
	infos := make([]providerInfo, 0, len(provider.AllNames()))
	for _, name := range provider.AllNames() {
		configured, err := r.providerSettings.Configured(req.Context(), name)
		if err != nil {
			r.logger.Error("checking provider credentials", "provider", name, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		infos = append(infos, providerInfo{
			Name:        string(name),
			DisplayName: name.DisplayName(),
			Fields:      provider.CredentialFields(name),
			Configured:  configured,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": infos})
}

func (r *Router) handleSetProviderKey(w http.ResponseWriter, req *http.Request) {
	name, fields, ok := r.providerFromPath(w, req)
	if !ok {
		return
	}

	var body struct {
		Field string `json:"field"`
		Value string `json:"value"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Field == "" && len(fields) == 1 {
		body.Field = fields[0]
	}
	if !slices.Contains(fields, body.Field) {
		writeError(w, http.StatusBadRequest, "unknown credential field")
		return
	}
	if body.Value == "" {
		writeError(w, http.StatusBadRequest, "value is required")
		return
	}

	if err := r.providerSettings.SetCredential(req.Context(), name, body.Field, body.Value); err != nil {
		r.logger.Error("storing provider credential", "provider", name, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (r *Router) handleDeleteProviderKey(w http.ResponseWriter, req *http.Request) {
	name, fields, ok := r.providerFromPath(w, req)
	if !ok {
		return
	}

	for _, field := range fields {
		if err := r.providerSettings.DeleteCredential(req.Context(), name, field); err != nil {
			r.logger.Error("deleting provider credential", "provider", name, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// providerFromPath resolves the {name} path segment to a known provider.
func (r *Router) providerFromPath(w http.ResponseWriter, req *http.Request) (provider.Name, []string, bool) {
	name := provider.Name(req.PathValue("name"))
	fields := provider.CredentialFields(name)
	if len(fields) == 0 {
		writeError(w, http.StatusNotFound, "unknown provider")
		return "", nil, false
	}
	return name, fields, true
}
