package server

import "net/http"

func handleListMetadata(s *Server, w http.ResponseWriter, r *http.Request, _ string) {
	q := r.URL.Query()
	limit := 0
	if v := q.Get("limit"); v != "" {
		if n, err := parseNonNegInt(v); err == nil {
			limit = n
		}
	}
	md, err := s.store.ListMetadata(q.Get("bundle_uuid"), limit)
	if err != nil {
		s.writeError(w, r, errStatus(err), err.Error())
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]interface{}{"results": md})
}

func handleGetMetadata(s *Server, w http.ResponseWriter, r *http.Request, id string) {
	md, err := s.store.GetMetadata(id)
	if err != nil {
		s.writeError(w, r, errStatus(err), err.Error())
		return
	}
	s.writeJSON(w, r, http.StatusOK, md)
}

func handleDeleteMetadata(s *Server, w http.ResponseWriter, r *http.Request, id string) {
	if err := s.store.DeleteMetadata(id); err != nil {
		s.writeError(w, r, errStatus(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDeleteMetadataByBundle implements DELETE /Metadata?bundle_uuid=,
// removing every Metadata row of one bundle and returning the count.
func handleDeleteMetadataByBundle(s *Server, w http.ResponseWriter, r *http.Request, _ string) {
	bundleUUID := r.URL.Query().Get("bundle_uuid")
	count, err := s.store.DeleteMetadataByBundle(bundleUUID)
	if err != nil {
		s.writeError(w, r, errStatus(err), err.Error())
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]int{"count": count})
}

func handleBulkCreateMetadata(s *Server, w http.ResponseWriter, r *http.Request, _ string) {
	var body struct {
		BundleUUID string   `json:"bundle_uuid"`
		Files      []string `json:"files"`
	}
	if err := decodeBody(r, s.bulkBodyLimit, &body); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "malformed request body: "+err.Error())
		return
	}
	uuids, err := s.store.BulkCreateMetadata(body.BundleUUID, body.Files)
	if err != nil {
		s.writeError(w, r, errStatus(err), err.Error())
		return
	}
	s.writeJSON(w, r, http.StatusCreated, map[string]interface{}{
		"metadata": uuids,
		"count":    len(uuids),
	})
}

// handleBulkDeleteMetadata implements POST /Metadata/actions/bulk_delete. The
// returned count is the number of rows actually removed, which pagination
// loops (spec §4.5/§8) compare against the number of uuids they submitted.
func handleBulkDeleteMetadata(s *Server, w http.ResponseWriter, r *http.Request, _ string) {
	var body struct {
		Metadata []string `json:"metadata"`
	}
	if err := decodeBody(r, s.bulkBodyLimit, &body); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "malformed request body: "+err.Error())
		return
	}
	count, err := s.store.BulkDeleteMetadata(body.Metadata)
	if err != nil {
		s.writeError(w, r, errStatus(err), err.Error())
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]int{"count": count})
}

func parseNonNegInt(s string) (int, error) {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, errNotANumber
		}
		n = n*10 + int(c-'0')
	}
	return n, nil
}
