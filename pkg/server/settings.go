package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/facilog/facilog/pkg/log"
	"github.com/facilog/facilog/pkg/types"
)

func (s *Server) getSettingsWithMigration(ctx context.Context) (types.Settings, error) {
	settings, version, err := s.db.GetSettings(ctx)
	if err != nil {
		return types.Settings{}, err
	}

	if version < types.CurrentSettingsVersion {
		log.Ctx(ctx).InfoContext(ctx, "migrating settings", slog.Int("oldVersion", version), slog.Int("newVersion", types.CurrentSettingsVersion))
		newSettings, changed, err := types.MigrateSettings(settings, version)
		if err != nil {
			// best effort, serve what we have
			log.Ctx(ctx).ErrorContext(ctx, "failed to migrate settings", slog.Int("currentVersion", version), slog.Any("error", err))
			return settings, nil
		}
		if changed {
			settings = newSettings
			if err := s.db.SetSettings(ctx, newSettings, types.CurrentSettingsVersion); err != nil {
				// serve the migrated defaults even if the save failed
				log.Ctx(ctx).ErrorContext(ctx, "failed to save migrated settings", slog.Any("error", err))
			}
		}
	}

	return settings, nil
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	settings, err := s.getSettingsWithMigration(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get settings", slog.Any("error", err))
		writeJSONError(w, "failed to get settings", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, settings)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !s.canEditSettings(r) {
		log.Ctx(ctx).WarnContext(ctx, "unauthorized for settings update", slog.String("email", s.getEmail(r)))
		writeJSONError(w, "unauthorized", http.StatusForbidden)
		return
	}

	var newSettings types.Settings
	if err := json.NewDecoder(r.Body).Decode(&newSettings); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to decode settings", slog.Any("error", err))
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if newSettings.LineVoltageKV <= 0 {
		writeJSONError(w, "line voltage must be positive", http.StatusBadRequest)
		return
	}
	if newSettings.ContractedCapacityKW <= 0 {
		writeJSONError(w, "contracted capacity must be positive", http.StatusBadRequest)
		return
	}
	if newSettings.LookbackDays < 1 || newSettings.LookbackDays > 365 {
		writeJSONError(w, "lookback days must be between 1 and 365", http.StatusBadRequest)
		return
	}
	if newSettings.WorkLogLookbackDays < 1 || newSettings.WorkLogLookbackDays > 365 {
		writeJSONError(w, "work log lookback days must be between 1 and 365", http.StatusBadRequest)
		return
	}

	if err := s.db.SetSettings(ctx, newSettings, types.CurrentSettingsVersion); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to save settings", slog.Any("error", err))
		writeJSONError(w, "failed to save settings", http.StatusInternalServerError)
		return
	}

	log.Ctx(ctx).InfoContext(ctx, "settings updated")
	w.WriteHeader(http.StatusOK)
}
