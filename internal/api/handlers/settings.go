package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gif-subs/backend/internal/db"
	"github.com/gif-subs/backend/internal/search"
)

// settingsKeys defines which keys are allowed and their display metadata
var settingsKeys = []SettingDef{
	{Key: "whisper_engine", Label: "Transcription Engine", Group: "whisper", Placeholder: "faster-whisper", Secret: false},
	{Key: "whisper_language", Label: "Default Language", Group: "whisper", Placeholder: "en", Secret: false},
	{Key: "transcribe_prompt", Label: "Initial Prompt", Group: "whisper", Placeholder: "", Secret: false},
	{Key: "openai_api_key", Label: "OpenAI API Key", Group: "whisper", Placeholder: "sk-...", Secret: true},
	{Key: "min_score", Label: "Minimum Match Score", Group: "search", Placeholder: "0.25", Secret: false},
	{Key: "top_k", Label: "Max Search Results", Group: "search", Placeholder: "10", Secret: false},
}

type SettingDef struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Group       string `json:"group"`
	Placeholder string `json:"placeholder"`
	Secret      bool   `json:"secret"`
}

type SettingsHandler struct {
	database *db.Database
	index    *search.Index
}

func NewSettingsHandler(database *db.Database, index *search.Index) *SettingsHandler {
	return &SettingsHandler{database: database, index: index}
}

// GetSettings returns all settings (secrets are masked)
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	all, err := h.database.GetAllSettings()
	if err != nil {
		jsonError(w, "failed to load settings", http.StatusInternalServerError)
		return
	}

	// Build response with metadata and masked values
	type SettingResponse struct {
		SettingDef
		Value    string `json:"value"`
		HasValue bool   `json:"has_value"`
	}

	var result []SettingResponse
	for _, def := range settingsKeys {
		val := all[def.Key]
		masked := val
		hasValue := val != ""
		if def.Secret && hasValue {
			// Show only last 4 chars
			if len(val) > 4 {
				masked = "••••••••" + val[len(val)-4:]
			} else {
				masked = "••••••••"
			}
		}
		result = append(result, SettingResponse{
			SettingDef: def,
			Value:      masked,
			HasValue:   hasValue,
		})
	}

	jsonResponse(w, result, http.StatusOK)
}

// UpdateSettings upserts the provided settings keys
func (h *SettingsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var updates map[string]string
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	allowed := make(map[string]bool, len(settingsKeys))
	for _, def := range settingsKeys {
		allowed[def.Key] = true
	}

	for key, value := range updates {
		if !allowed[key] {
			jsonError(w, "unknown setting: "+key, http.StatusBadRequest)
			return
		}
		if err := h.database.SetSetting(key, value); err != nil {
			jsonError(w, "failed to save setting: "+err.Error(), http.StatusInternalServerError)
			return
		}
		// min_score takes effect immediately; other keys are read on use.
		if key == "min_score" {
			if v, err := strconv.ParseFloat(value, 64); err == nil {
				h.index.SetMinScore(v)
			}
		}
	}

	jsonResponse(w, map[string]string{"status": "ok"}, http.StatusOK)
}
