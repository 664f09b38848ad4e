package server

import (
	"net/http"

	"github.com/WIPACrepo/lta/cmn"
	"github.com/WIPACrepo/lta/store"
)

func handleListTransferRequests(s *Server, w http.ResponseWriter, r *http.Request, _ string) {
	q := r.URL.Query()
	filter := store.TransferRequestFilter{
		Source: q.Get("source"),
		Status: q.Get("status"),
	}
	reqs, err := s.store.ListTransferRequests(filter)
	if err != nil {
		s.writeError(w, r, errStatus(err), err.Error())
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]interface{}{"results": reqs})
}

func handleCreateTransferRequest(s *Server, w http.ResponseWriter, r *http.Request, _ string) {
	var req cmn.TransferRequest
	if err := decodeBody(r, s.bulkBodyLimit, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "malformed request body: "+err.Error())
		return
	}
	uuid, err := s.store.CreateTransferRequest(req)
	if err != nil {
		s.writeError(w, r, errStatus(err), err.Error())
		return
	}
	s.writeJSON(w, r, http.StatusCreated, map[string]string{"TransferRequest": uuid})
}

func handleGetTransferRequest(s *Server, w http.ResponseWriter, r *http.Request, id string) {
	req, err := s.store.GetTransferRequest(id)
	if err != nil {
		s.writeError(w, r, errStatus(err), err.Error())
		return
	}
	s.writeJSON(w, r, http.StatusOK, req)
}

func handlePatchTransferRequest(s *Server, w http.ResponseWriter, r *http.Request, id string) {
	var patch map[string]interface{}
	if err := decodeBody(r, s.bulkBodyLimit, &patch); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "malformed request body: "+err.Error())
		return
	}
	if err := s.store.PatchTransferRequest(id, patch); err != nil {
		s.writeError(w, r, errStatus(err), err.Error())
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]string{})
}

func handleDeleteTransferRequest(s *Server, w http.ResponseWriter, r *http.Request, id string) {
	if err := s.store.DeleteTransferRequest(id); err != nil {
		s.writeError(w, r, errStatus(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handlePopTransferRequest implements POST /TransferRequests/actions/pop?source=S
// (spec §4.3, picker variant): atomically claims one unclaimed request for
// source, transitioning it to processing.
func handlePopTransferRequest(s *Server, w http.ResponseWriter, r *http.Request, _ string) {
	source := r.URL.Query().Get("source")
	var body struct {
		Claimant string `json:"claimant"`
	}
	if err := decodeBody(r, s.bulkBodyLimit, &body); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "malformed request body: "+err.Error())
		return
	}
	req, err := s.store.PopTransferRequest(source, body.Claimant)
	if err != nil {
		s.writeError(w, r, errStatus(err), err.Error())
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]interface{}{"request": req})
}
