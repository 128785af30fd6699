package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/btouchard/nbnotify/internal/events"
	"github.com/btouchard/nbnotify/internal/notify"
	"github.com/btouchard/nbnotify/internal/store"
)

const maxBodyBytes = 1 << 20

// notifyBody is the registration payload sent by the notebook frontend.
type notifyBody struct {
	CellID         string   `json:"cell_id"`
	Mode           string   `json:"mode"`
	SlackEnabled   bool     `json:"slackEnabled"`
	EmailEnabled   bool     `json:"emailEnabled"`
	SuccessMessage string   `json:"successMessage"`
	FailureMessage string   `json:"failureMessage"`
	Threshold      *float64 `json:"threshold"`
}

// triggerBody adds the outcome to a registration payload.
type triggerBody struct {
	notifyBody
	Success *bool  `json:"success"`
	Error   string `json:"error"`
	Timer   bool   `json:"timer"`
}

// toRequest converts the wire payload, validating the mode and threshold.
func (b notifyBody) toRequest(maxThreshold time.Duration) (notify.Request, error) {
	if b.CellID == "" {
		return notify.Request{}, &notify.ValidationError{Field: "cell_id", Message: "Missing cell_id in request"}
	}
	mode, err := notify.ParseMode(b.Mode)
	if err != nil {
		return notify.Request{}, &notify.ValidationError{Field: "mode", Message: err.Error()}
	}
	if b.Threshold != nil && *b.Threshold < 0 {
		return notify.Request{}, &notify.ValidationError{Field: "threshold", Message: "threshold must not be negative"}
	}
	threshold := notify.ThresholdFromSeconds(b.Threshold)
	if maxThreshold > 0 && threshold > maxThreshold {
		return notify.Request{}, &notify.ValidationError{
			Field:   "threshold",
			Message: fmt.Sprintf("threshold must not exceed %s", maxThreshold),
		}
	}
	return notify.Request{
		CellID:         b.CellID,
		Mode:           mode,
		Chat:           b.SlackEnabled,
		Mail:           b.EmailEnabled,
		SuccessMessage: b.SuccessMessage,
		FailureMessage: b.FailureMessage,
		Threshold:      threshold,
	}, nil
}

// outcome returns the outcome carried by a trigger payload. Either timer
// must be set or success must be present.
func (b triggerBody) outcome() (notify.Outcome, error) {
	if b.Timer {
		return notify.TimeoutOutcome(), nil
	}
	if b.Success == nil {
		return notify.Outcome{}, &notify.ValidationError{Field: "success", Message: "Missing cell_id or success status in request"}
	}
	return notify.Outcome{Success: *b.Success, ErrorDetail: b.Error}, nil
}

// handleCapabilities reports which server-side features are available.
func (s *Server) handleCapabilities(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.caps)
}

// handleRegister registers a cell for notification.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body notifyBody
	if !decodeBody(w, r, &body) {
		return
	}

	req, err := body.toRequest(s.maxThresh)
	if err == nil {
		err = s.engine.Register(req)
	}
	if err != nil {
		writeValidationError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"accepted": true})
}

// handleTrigger dispatches a notification immediately.
func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	var body triggerBody
	if !decodeBody(w, r, &body) {
		return
	}

	req, err := body.notifyBody.toRequest(s.maxThresh)
	if err != nil {
		writeValidationError(w, err)
		return
	}
	o, err := body.outcome()
	if err != nil {
		writeValidationError(w, err)
		return
	}
	if err := s.engine.TriggerDirect(req, o); err != nil {
		writeValidationError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"done": true})
}

// handleEvent queues a cell execution event from the host.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var ev events.Event
	if !decodeBody(w, r, &ev) {
		return
	}
	if ev.EventType == "" {
		writeError(w, http.StatusBadRequest, "Missing event_type in request")
		return
	}

	if err := s.events.Publish(ev); err != nil {
		if errors.Is(err, events.ErrBufferFull) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]bool{"queued": true})
}

// handleListDeliveries returns recent delivery log entries.
// Accepts optional ?limit=N (default 50), ?cell_id= and ?result= filters.
func (s *Server) handleListDeliveries(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	records, err := s.deliveries.ListDeliveries(store.DeliveryFilter{
		CellID: r.URL.Query().Get("cell_id"),
		Result: r.URL.Query().Get("result"),
		Limit:  limit,
	})
	if err != nil {
		slog.Warn("listing deliveries failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list deliveries")
		return
	}

	out := make([]deliveryJSON, 0, len(records))
	for _, d := range records {
		out = append(out, deliveryJSON{
			ID:        d.ID,
			CellID:    d.CellID,
			Mode:      d.Mode,
			Status:    d.Status,
			Trigger:   d.Trigger,
			Channel:   d.Channel,
			Result:    d.Result,
			Error:     d.Error,
			CreatedAt: d.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type deliveryJSON struct {
	ID        string `json:"id"`
	CellID    string `json:"cell_id"`
	Mode      string `json:"mode"`
	Status    string `json:"status"`
	Trigger   string `json:"trigger"`
	Channel   string `json:"channel,omitempty"`
	Result    string `json:"result"`
	Error     string `json:"error,omitempty"`
	CreatedAt string `json:"created_at"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeValidationError(w http.ResponseWriter, err error) {
	var ve *notify.ValidationError
	if errors.As(err, &ve) {
		writeError(w, http.StatusBadRequest, ve.Message)
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}
