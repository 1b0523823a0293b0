package api

import (
	"context"
	"net/http"
	"time"

	"github.com/mirkobrombin/go-redisdemo/v1/geo"
	"github.com/mirkobrombin/go-redisdemo/v1/lock"
	"github.com/mirkobrombin/go-redisdemo/v1/logging"
)

const (
	demoCacheKey   = "my_key"
	demoCacheValue = "Hello, Redis!"
	defaultTopN    = 10
)

func (a *App) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, messageBody{Message: "Welcome to the Go with Redis and PostgreSQL Demo!"})
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := a.Ping(r.Context()); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("health check failed")
		writeDetail(w, r, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) handleCache(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := a.kv.Set(ctx, demoCacheKey, demoCacheValue, 0); err != nil {
		fail(w, r, err)
		return
	}
	v, _, err := a.kv.Get(ctx, demoCacheKey)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"cached_value": v})
}

type lockResponse struct {
	Message  string `json:"message"`
	Acquired bool   `json:"acquired"`
}

func (a *App) handleLock(w http.ResponseWriter, r *http.Request) {
	key, err := queryString(r, "key")
	if err != nil {
		fail(w, r, err)
		return
	}
	ttl, err := queryDuration(r, "timeout", time.Second, a.cfg.Lock.DefaultTTL)
	if err != nil {
		fail(w, r, err)
		return
	}

	acquired, err := lock.Do(r.Context(), a.locker, key, ttl, func(ctx context.Context) error {
		logging.Ctx(ctx).Debug().Str("key", key).Msg("critical section")
		return nil
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	if !acquired {
		writeJSON(w, r, http.StatusOK, lockResponse{Message: "Resource is locked"})
		return
	}
	writeJSON(w, r, http.StatusOK, lockResponse{Message: "Lock acquired, critical section executed", Acquired: true})
}

func (a *App) handleAddScore(w http.ResponseWriter, r *http.Request) {
	member, err := queryString(r, "user_id")
	if err != nil {
		fail(w, r, err)
		return
	}
	score, err := queryFloat(r, "score")
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := a.board.AddScore(r.Context(), member, score); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, messageBody{Message: "Score added"})
}

func (a *App) handleTopScores(w http.ResponseWriter, r *http.Request) {
	n, err := queryInt(r, "top_n", defaultTopN)
	if err != nil {
		fail(w, r, err)
		return
	}
	entries, err := a.board.Top(r.Context(), n)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, entries)
}

func (a *App) handleAddLocation(w http.ResponseWriter, r *http.Request) {
	name, err := queryString(r, "name")
	if err != nil {
		fail(w, r, err)
		return
	}
	lon, err := queryFloat(r, "longitude")
	if err != nil {
		fail(w, r, err)
		return
	}
	lat, err := queryFloat(r, "latitude")
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := a.geo.Add(r.Context(), name, lon, lat); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, messageBody{Message: "Location added"})
}

func (a *App) handleNearby(w http.ResponseWriter, r *http.Request) {
	lon, err := queryFloat(r, "longitude")
	if err != nil {
		fail(w, r, err)
		return
	}
	lat, err := queryFloat(r, "latitude")
	if err != nil {
		fail(w, r, err)
		return
	}
	radius, err := queryFloat(r, "radius")
	if err != nil {
		fail(w, r, err)
		return
	}
	locs, err := a.geo.Nearby(r.Context(), lon, lat, radius, queryDefault(r, "unit", geo.DefaultUnit))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, locs)
}
