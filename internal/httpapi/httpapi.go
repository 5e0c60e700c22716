// Package httpapi is the External Interfaces surface (§6): the admin CRUD
// API over lists, the public CSV/JSON/TXT endpoints gated by the Access
// Gate (C8), and the health check, all served off one http.ServeMux using
// Go 1.22's method+pattern routing rather than an external router
// library — the teacher's own internal/httpx shows the same preference
// for a thin net/http-based surface with hand-rolled middleware.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/listforge/listforge/internal/access"
	"github.com/listforge/listforge/internal/httpx"
	"github.com/listforge/listforge/internal/jobs"
	"github.com/listforge/listforge/internal/metrics"
	"github.com/listforge/listforge/internal/model"
	"github.com/listforge/listforge/internal/proxy"
	"github.com/listforge/listforge/internal/publish"
	"github.com/listforge/listforge/internal/scheduler"
	"github.com/listforge/listforge/internal/storage"
)

// Deps bundles everything the HTTP surface needs, adapted from the
// teacher's Deps-struct-per-server pattern so handlers stay pure
// functions of (Deps, request) rather than closing over globals.
type Deps struct {
	Store      *storage.Store
	Scheduler  *scheduler.Scheduler
	Publisher  *publish.Publisher
	History    *jobs.History
	Log        *zap.SugaredLogger
	CORSOrigin string
	// AdminAllowlist, if non-nil, restricts /api/* to admitted remote
	// addresses; /public/* and /health stay unaffected.
	AdminAllowlist *proxy.Allowlist
}

// NewMux builds the full routed handler.
func NewMux(d Deps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", d.handleHealth)

	admin := http.NewServeMux()
	admin.HandleFunc("GET /api/metrics", d.handleMetrics)
	admin.HandleFunc("GET /api/lists", d.handleListLists)
	admin.HandleFunc("POST /api/lists", d.handleCreateList)
	admin.HandleFunc("GET /api/lists/{id}", d.handleGetList)
	admin.HandleFunc("PUT /api/lists/{id}", d.handleUpdateList)
	admin.HandleFunc("DELETE /api/lists/{id}", d.handleDeleteList)
	admin.HandleFunc("POST /api/lists/{id}/update", d.handleTriggerUpdate)
	admin.HandleFunc("GET /api/lists/{id}/rows", d.handleReadRows)
	admin.HandleFunc("GET /api/lists/{id}/runs", d.handleListRuns)
	mux.Handle("/api/", d.AdminAllowlist.Middleware(admin))

	mux.HandleFunc("GET /public/csv/{token}", d.handlePublic("csv"))
	mux.HandleFunc("GET /public/json/{token}", d.handlePublic("json"))
	mux.HandleFunc("GET /public/txt/{token}", d.handlePublic("txt"))

	var handler http.Handler = mux
	handler = httpx.Logging(d.Log)(handler)
	handler = httpx.RequestID(handler)
	if d.CORSOrigin != "" {
		handler = httpx.CORS(d.CORSOrigin)(handler)
	}
	return handler
}

func (d Deps) handleHealth(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (d Deps) handleListLists(w http.ResponseWriter, r *http.Request) {
	lists, err := d.Store.ListLists(r.Context(), storage.ListFilter{})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed to list lists")
		return
	}
	httpx.JSON(w, http.StatusOK, lists)
}

func (d Deps) handleGetList(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid id")
		return
	}
	list, columns, err := d.Store.GetList(r.Context(), id)
	if err != nil {
		if err == storage.ErrNotFound {
			httpx.JSONError(w, http.StatusNotFound, "list not found")
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed to load list")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"list": list, "columns": columns})
}

type createListRequest struct {
	List    model.List     `json:"list"`
	Columns []model.Column `json:"columns"`
}

func (d Deps) handleCreateList(w http.ResponseWriter, r *http.Request) {
	var req createListRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := model.Validate(req.List.UpdateConfig, req.List.UpdateType, req.List.UpdateSchedule); err != nil {
		httpx.JSONError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	req.List.EnsureToken()
	id, err := d.Store.CreateList(r.Context(), req.List, req.Columns)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed to create list")
		return
	}
	req.List.ID = id
	if d.Scheduler != nil {
		if err := d.Scheduler.Reschedule(req.List); err != nil {
			d.Log.Warnf("reschedule list %d: %v", id, err)
		}
	}
	httpx.JSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (d Deps) handleUpdateList(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var list model.List
	if err := json.NewDecoder(r.Body).Decode(&list); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	list.ID = id
	if err := model.Validate(list.UpdateConfig, list.UpdateType, list.UpdateSchedule); err != nil {
		httpx.JSONError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	list.EnsureToken()
	if err := d.Store.UpdateList(r.Context(), list); err != nil {
		if err == storage.ErrNotFound {
			httpx.JSONError(w, http.StatusNotFound, "list not found")
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed to update list")
		return
	}
	if d.Scheduler != nil {
		if err := d.Scheduler.Reschedule(list); err != nil {
			d.Log.Warnf("reschedule list %d: %v", id, err)
		}
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (d Deps) handleDeleteList(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid id")
		return
	}
	list, _, err := d.Store.GetList(r.Context(), id)
	if err != nil && err != storage.ErrNotFound {
		httpx.JSONError(w, http.StatusInternalServerError, "failed to load list")
		return
	}
	if err := d.Store.DeleteList(r.Context(), id); err != nil {
		if err == storage.ErrNotFound {
			httpx.JSONError(w, http.StatusNotFound, "list not found")
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed to delete list")
		return
	}
	if d.Scheduler != nil {
		d.Scheduler.Remove(id)
	}
	if d.Publisher != nil && list.PublicAccessToken != "" {
		d.Publisher.Remove(list.PublicAccessToken)
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (d Deps) handleTriggerUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if d.Scheduler == nil {
		httpx.JSONError(w, http.StatusServiceUnavailable, "scheduler unavailable")
		return
	}
	result := d.Scheduler.TriggerNow(r.Context(), id)
	status := http.StatusOK
	if result.IsFailed() {
		status = http.StatusBadGateway
	}
	httpx.JSON(w, status, map[string]string{"result": result.String()})
}

func (d Deps) handleReadRows(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid id")
		return
	}
	rows, err := d.Store.ReadRows(r.Context(), id)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed to read rows")
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}

func (d Deps) handleMetrics(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, metrics.Export())
}

func (d Deps) handleListRuns(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid id")
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if d.History == nil {
		httpx.JSON(w, http.StatusOK, []any{})
		return
	}
	runs, err := d.History.Recent(id, limit)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed to read run history")
		return
	}
	httpx.JSON(w, http.StatusOK, runs)
}

// handlePublic serves a published artifact, generating it on demand if
// it hasn't been rendered yet, gated on token validity and, if
// configured, the requester's IP.
func (d Deps) handlePublic(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.PathValue("token")
		list, columns, err := d.Store.GetListByToken(r.Context(), token)
		if err != nil {
			httpx.JSONError(w, http.StatusNotFound, "not found")
			return
		}

		gate, err := newGateFor(list)
		if err != nil {
			httpx.JSONError(w, http.StatusInternalServerError, "access gate misconfigured")
			return
		}
		if !gate.AllowToken(token) {
			httpx.JSONError(w, http.StatusForbidden, "forbidden")
			return
		}
		if ip, ok := access.ClientIP(r); ok && !gate.AllowIP(ip) {
			httpx.JSONError(w, http.StatusForbidden, "forbidden")
			return
		}

		enabled := map[string]bool{"csv": list.PublicCSVEnabled, "json": list.PublicJSONEnabled, "txt": list.PublicTXTEnabled}
		if !enabled[kind] {
			httpx.JSONError(w, http.StatusNotFound, "artifact not enabled")
			return
		}

		body, ct, found, err := d.Publisher.Lookup(kind, token)
		if err != nil {
			httpx.JSONError(w, http.StatusInternalServerError, "failed to read artifact")
			return
		}
		if !found {
			rows, err := d.Store.ReadRows(r.Context(), list.ID)
			if err != nil {
				httpx.JSONError(w, http.StatusInternalServerError, "failed to generate artifact")
				return
			}
			if err := d.Publisher.Generate(list, columns, rows); err != nil {
				httpx.JSONError(w, http.StatusInternalServerError, "failed to generate artifact")
				return
			}
			body, ct, found, err = d.Publisher.Lookup(kind, token)
			if err != nil || !found {
				httpx.JSONError(w, http.StatusInternalServerError, "failed to generate artifact")
				return
			}
		}
		w.Header().Set("Content-Type", ct)
		_, _ = w.Write(body)
	}
}

func newGateFor(list model.List) (*access.Gate, error) {
	var rules []model.IPRule
	if list.IPRestrictionEnabled {
		r, err := model.ParseIPRules(list.AllowedIPs)
		if err != nil {
			return nil, err
		}
		rules = r
	}
	return access.NewGate(list.PublicAccessToken, rules, list.IPRestrictionEnabled)
}

func idParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(r.PathValue("id")), 10, 64)
}
