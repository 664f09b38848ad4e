package server

import (
	"net/http"
	"time"

	"github.com/WIPACrepo/lta/cmn"
	"github.com/WIPACrepo/lta/store"
)

// handleStatusRollup implements GET /status (spec §4.7): every component's
// last heartbeat, plus an overall "ok" derived from staleness.
func handleStatusRollup(s *Server, w http.ResponseWriter, r *http.Request, _ string) {
	all, err := s.store.ListStatus()
	if err != nil {
		s.writeError(w, r, errStatus(err), err.Error())
		return
	}
	out := map[string]interface{}{}
	healthy := true
	for component, cs := range all {
		fresh := s.isFresh(cs)
		if !fresh {
			healthy = false
		}
		out[component] = cs
	}
	status := http.StatusOK
	if !healthy {
		status = http.StatusInternalServerError
	}
	out["health"] = map[string]bool{"ok": healthy}
	s.writeJSON(w, r, status, out)
}

func handleStatusComponent(s *Server, w http.ResponseWriter, r *http.Request, id string) {
	cs, err := s.store.GetStatus(id)
	if err != nil {
		s.writeError(w, r, errStatus(err), err.Error())
		return
	}
	status := http.StatusOK
	if !s.isFresh(cs) {
		status = http.StatusInternalServerError
	}
	s.writeJSON(w, r, status, cs)
}

func handlePatchStatus(s *Server, w http.ResponseWriter, r *http.Request, id string) {
	var fields store.ComponentStatus
	if err := decodeBody(r, s.bulkBodyLimit, &fields); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "malformed request body: "+err.Error())
		return
	}
	if fields == nil {
		fields = store.ComponentStatus{}
	}
	fields["timestamp"] = cmn.Now()
	if err := s.store.PatchStatus(id, fields); err != nil {
		s.writeError(w, r, errStatus(err), err.Error())
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]string{})
}

// isFresh reports whether a component's last heartbeat is within
// s.staleAfter of now (spec §9's stale-claimant detection).
func (s *Server) isFresh(cs store.ComponentStatus) bool {
	ts, ok := cs["timestamp"].(string)
	if !ok {
		return false
	}
	t, err := cmn.ParseTimestamp(ts)
	if err != nil {
		return false
	}
	return time.Since(t) <= s.staleAfter
}
