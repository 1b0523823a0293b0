package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mirkobrombin/go-redisdemo/v1/logging"
)

const (
	defaultConsumer  = "consumer-1"
	defaultReadCount = 10
	defaultMinIdleMs = 60000
)

func (a *App) handleAppend(w http.ResponseWriter, r *http.Request) {
	var fields map[string]any
	if err := decodeBody(r, &fields); err != nil {
		fail(w, r, err)
		return
	}
	id, err := a.streams.Append(r.Context(), chi.URLParam(r, "stream"), fields)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"event_id": id})
}

func (a *App) handleEnsureGroup(w http.ResponseWriter, r *http.Request) {
	stream, group := chi.URLParam(r, "stream"), chi.URLParam(r, "group")
	if err := a.streams.EnsureGroup(r.Context(), stream, group); err != nil {
		fail(w, r, err)
		return
	}
	logging.Ctx(r.Context()).Debug().Str("stream", stream).Str("group", group).Msg("consumer group ready")
	writeJSON(w, r, http.StatusOK, messageBody{Message: "Consumer group created"})
}

func (a *App) handleRead(w http.ResponseWriter, r *http.Request) {
	count, err := queryInt(r, "count", defaultReadCount)
	if err != nil {
		fail(w, r, err)
		return
	}
	events, err := a.streams.Read(r.Context(), chi.URLParam(r, "stream"), chi.URLParam(r, "group"),
		queryDefault(r, "consumer_name", defaultConsumer), count)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, events)
}

func (a *App) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	id, err := queryString(r, "event_id")
	if err != nil {
		fail(w, r, err)
		return
	}
	n, err := a.streams.Acknowledge(r.Context(), chi.URLParam(r, "stream"), chi.URLParam(r, "group"), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"message": "Event acknowledged", "acknowledged": n})
}

func (a *App) handlePending(w http.ResponseWriter, r *http.Request) {
	count, err := queryInt(r, "count", defaultReadCount)
	if err != nil {
		fail(w, r, err)
		return
	}
	pending, err := a.streams.Pending(r.Context(), chi.URLParam(r, "stream"), chi.URLParam(r, "group"),
		r.URL.Query().Get("consumer_name"), count)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, pending)
}

func (a *App) handleClaim(w http.ResponseWriter, r *http.Request) {
	count, err := queryInt(r, "count", defaultReadCount)
	if err != nil {
		fail(w, r, err)
		return
	}
	minIdle, err := queryDuration(r, "min_idle_ms", time.Millisecond, defaultMinIdleMs*time.Millisecond)
	if err != nil {
		fail(w, r, err)
		return
	}
	events, err := a.streams.Claim(r.Context(), chi.URLParam(r, "stream"), chi.URLParam(r, "group"),
		queryDefault(r, "consumer_name", defaultConsumer), minIdle, count)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, events)
}

type recordEventRequest struct {
	Event string `json:"event"`
}

func (a *App) handleRecordEvent(w http.ResponseWriter, r *http.Request) {
	var req recordEventRequest
	if err := decodeBody(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	if req.Event == "" {
		writeDetail(w, r, http.StatusUnprocessableEntity, "event is required")
		return
	}
	if err := a.events.Record(r.Context(), chi.URLParam(r, "log"), req.Event); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, messageBody{Message: "Event recorded"})
}

func (a *App) handleRecentEvents(w http.ResponseWriter, r *http.Request) {
	count, err := queryInt(r, "count", defaultReadCount)
	if err != nil {
		fail(w, r, err)
		return
	}
	events, err := a.events.Recent(r.Context(), chi.URLParam(r, "log"), count)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, events)
}
