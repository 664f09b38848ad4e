package server

import (
	"net/http"

	"github.com/WIPACrepo/lta/cmn"
	"github.com/WIPACrepo/lta/store"
)

func handleListBundles(s *Server, w http.ResponseWriter, r *http.Request, _ string) {
	q := r.URL.Query()
	filter := store.BundleFilter{
		Location: q.Get("location"),
		Status:   q.Get("status"),
		Request:  q.Get("request"),
	}
	bundles, err := s.store.ListBundles(filter)
	if err != nil {
		s.writeError(w, r, errStatus(err), err.Error())
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]interface{}{"results": bundles})
}

func handleGetBundle(s *Server, w http.ResponseWriter, r *http.Request, id string) {
	b, err := s.store.GetBundle(id)
	if err != nil {
		s.writeError(w, r, errStatus(err), err.Error())
		return
	}
	s.writeJSON(w, r, http.StatusOK, b)
}

func handlePatchBundle(s *Server, w http.ResponseWriter, r *http.Request, id string) {
	var patch map[string]interface{}
	if err := decodeBody(r, s.bulkBodyLimit, &patch); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "malformed request body: "+err.Error())
		return
	}
	if err := s.store.PatchBundle(id, patch); err != nil {
		s.writeError(w, r, errStatus(err), err.Error())
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]string{})
}

func handleDeleteBundle(s *Server, w http.ResponseWriter, r *http.Request, id string) {
	if err := s.store.DeleteBundle(id); err != nil {
		s.writeError(w, r, errStatus(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handlePopBundle implements POST /Bundles/actions/pop?source=S&dest=D&status=X
// (spec §4.3): atomically claims one matching, unclaimed bundle.
func handlePopBundle(s *Server, w http.ResponseWriter, r *http.Request, _ string) {
	q := r.URL.Query()
	var body struct {
		Claimant string `json:"claimant"`
	}
	if err := decodeBody(r, s.bulkBodyLimit, &body); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "malformed request body: "+err.Error())
		return
	}
	b, err := s.store.PopBundle(q.Get("source"), q.Get("dest"), q.Get("status"), body.Claimant)
	if err != nil {
		s.writeError(w, r, errStatus(err), err.Error())
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]interface{}{"bundle": b})
}

func handleBulkCreateBundles(s *Server, w http.ResponseWriter, r *http.Request, _ string) {
	var body struct {
		Bundles []cmn.Bundle `json:"bundles"`
	}
	if err := decodeBody(r, s.bulkBodyLimit, &body); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "malformed request body: "+err.Error())
		return
	}
	uuids, err := s.store.BulkCreateBundles(body.Bundles)
	if err != nil {
		s.writeError(w, r, errStatus(err), err.Error())
		return
	}
	s.writeJSON(w, r, http.StatusCreated, map[string]interface{}{
		"bundles": uuids,
		"count":   len(uuids),
	})
}

func handleBulkUpdateBundles(s *Server, w http.ResponseWriter, r *http.Request, _ string) {
	var body struct {
		Bundles []string               `json:"bundles"`
		Update  map[string]interface{} `json:"update"`
	}
	if err := decodeBody(r, s.bulkBodyLimit, &body); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "malformed request body: "+err.Error())
		return
	}
	matched, err := s.store.BulkUpdateBundles(body.Bundles, body.Update)
	if err != nil {
		s.writeError(w, r, errStatus(err), err.Error())
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"bundles": matched,
		"count":   len(matched),
	})
}

func handleBulkDeleteBundles(s *Server, w http.ResponseWriter, r *http.Request, _ string) {
	var body struct {
		Bundles []string `json:"bundles"`
	}
	if err := decodeBody(r, s.bulkBodyLimit, &body); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "malformed request body: "+err.Error())
		return
	}
	removed, err := s.store.BulkDeleteBundles(body.Bundles)
	if err != nil {
		s.writeError(w, r, errStatus(err), err.Error())
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"bundles": removed,
		"count":   len(removed),
	})
}
