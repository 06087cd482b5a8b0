package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/facilog/facilog/pkg/log"
	"github.com/facilog/facilog/pkg/reconciler"
	"github.com/facilog/facilog/pkg/types"
)

type dayResponse struct {
	Record      types.DailyRecord `json:"record"`
	Synthesized []string          `json:"synthesized"`
}

func newDayResponse(rec types.DailyRecord) dayResponse {
	return dayResponse{
		Record:      rec,
		Synthesized: rec.SynthesizedPaths(),
	}
}

// validateDayParams checks the subsystem and date common to every day
// endpoint.
func (s *Server) validateDayParams(subsystem, date string) error {
	if _, ok := s.site.Subsystem(subsystem); !ok {
		return errors.New("unknown subsystem")
	}
	if _, err := types.ParseDay(date); err != nil {
		return errors.New("date must be yyyy-MM-dd")
	}
	return nil
}

func (s *Server) handleGetDay(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subsystem := r.URL.Query().Get("subsystem")
	date := r.URL.Query().Get("date")
	if err := s.validateDayParams(subsystem, date); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	rec, err := s.rec.Reconcile(ctx, subsystem, date)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "reconcile failed",
			slog.String("subsystem", subsystem),
			slog.String("date", date),
			slog.Any("error", err),
		)
		writeJSONError(w, "failed to load day record", http.StatusBadGateway)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, newDayResponse(rec))
}

type readingRequest struct {
	Subsystem string          `json:"subsystem"`
	Date      string          `json:"date"`
	Channel   types.ChannelID `json:"channel,omitempty"`
	Field     string          `json:"field"`
	Value     string          `json:"value"`
}

func (s *Server) handleSetReading(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req readingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.validateDayParams(req.Subsystem, req.Date); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var rec types.DailyRecord
	var err error
	switch req.Field {
	case "powerFactorRaw", "currentAmps":
		rec, err = s.rec.SetBreakerReading(ctx, req.Subsystem, req.Date, req.Field, req.Value)
	default:
		rec, err = s.rec.SetMeterReading(ctx, req.Subsystem, req.Date, req.Channel, req.Field, req.Value)
	}
	if err != nil {
		s.writeMutatorError(w, ctx, err)
		return
	}
	writeJSON(w, newDayResponse(rec))
}

type taskRequest struct {
	Subsystem string           `json:"subsystem"`
	Date      string           `json:"date"`
	Category  types.CategoryID `json:"category"`
	// Op is one of add, setContent, setStatus, confirmCarryForward.
	Op      string           `json:"op"`
	List    string           `json:"list,omitempty"`
	TaskID  string           `json:"taskID,omitempty"`
	Content string           `json:"content,omitempty"`
	Status  types.TaskStatus `json:"status,omitempty"`
}

func (s *Server) handleTaskMutation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.validateDayParams(req.Subsystem, req.Date); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var rec types.DailyRecord
	var err error
	switch req.Op {
	case "add":
		rec, err = s.rec.AddTask(ctx, req.Subsystem, req.Date, req.Category, req.List, req.Content)
	case "setContent":
		rec, err = s.rec.SetTaskContent(ctx, req.Subsystem, req.Date, req.Category, req.TaskID, req.Content)
	case "setStatus":
		rec, err = s.rec.SetTaskStatus(ctx, req.Subsystem, req.Date, req.Category, req.TaskID, req.Status)
	case "confirmCarryForward":
		rec, err = s.rec.MarkCarryForwardApplied(ctx, req.Subsystem, req.Date, req.Category)
	default:
		writeJSONError(w, "unknown task op", http.StatusBadRequest)
		return
	}
	if err != nil {
		s.writeMutatorError(w, ctx, err)
		return
	}
	writeJSON(w, newDayResponse(rec))
}

func (s *Server) handleRemoveTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	subsystem := q.Get("subsystem")
	date := q.Get("date")
	if err := s.validateDayParams(subsystem, date); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	taskID := q.Get("taskID")
	if taskID == "" {
		writeJSONError(w, "taskID required", http.StatusBadRequest)
		return
	}

	rec, err := s.rec.RemoveTask(ctx, subsystem, date, types.CategoryID(q.Get("category")), taskID)
	if err != nil {
		s.writeMutatorError(w, ctx, err)
		return
	}
	writeJSON(w, newDayResponse(rec))
}

type saveRequest struct {
	Subsystem string `json:"subsystem"`
	Date      string `json:"date"`
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.validateDayParams(req.Subsystem, req.Date); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.rec.Save(ctx, req.Subsystem, req.Date); err != nil {
		if errors.Is(err, reconciler.ErrNotReady) {
			writeJSONError(w, "no record loaded for that day", http.StatusConflict)
			return
		}
		log.Ctx(ctx).ErrorContext(ctx, "save failed",
			slog.String("subsystem", req.Subsystem),
			slog.String("date", req.Date),
			slog.Any("error", err),
		)
		// the staged draft survives, the operator can retry
		writeJSONError(w, "failed to save record", http.StatusBadGateway)
		return
	}

	rec, err := s.rec.Record(req.Subsystem, req.Date)
	if err != nil {
		// only reachable if a concurrent navigation landed between the
		// save and this snapshot; the save itself succeeded
		writeJSONError(w, "saved record is no longer loaded", http.StatusConflict)
		return
	}

	if err := s.pub.PublishUsage(ctx, req.Subsystem, rec); err != nil {
		// publishing is best effort, the save already succeeded
		log.Ctx(ctx).WarnContext(ctx, "failed to publish usage", slog.Any("error", err))
	}

	writeJSON(w, newDayResponse(rec))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rec, err := s.rec.ForceRefresh(ctx)
	if err != nil {
		if errors.Is(err, reconciler.ErrNotReady) {
			writeJSONError(w, "no record loaded", http.StatusConflict)
			return
		}
		log.Ctx(ctx).ErrorContext(ctx, "refresh failed", slog.Any("error", err))
		writeJSONError(w, "failed to refresh", http.StatusBadGateway)
		return
	}
	writeJSON(w, newDayResponse(rec))
}

func (s *Server) writeMutatorError(w http.ResponseWriter, ctx context.Context, err error) {
	if errors.Is(err, reconciler.ErrNotReady) {
		writeJSONError(w, "record still loading, retry shortly", http.StatusConflict)
		return
	}
	log.Ctx(ctx).WarnContext(ctx, "mutation rejected", slog.Any("error", err))
	writeJSONError(w, err.Error(), http.StatusBadRequest)
}
