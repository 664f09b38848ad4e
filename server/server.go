package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/WIPACrepo/lta/cmn"
	"github.com/WIPACrepo/lta/metrics"
	"github.com/WIPACrepo/lta/store"
)

var errNotANumber = errors.New("not a non-negative integer")

// Roles recognized by the LTA DB (spec §4.2).
const (
	RoleAdmin  = "admin"
	RoleUser   = "user"
	RoleSystem = "system"
)

// StatusStaleAfter is the default heartbeat freshness threshold (spec §4.7).
// The threshold a Server applies is the one passed to New; lta-rest passes
// its -stale-after-seconds flag, which defaults to 300 seconds.
const StatusStaleAfter = 5 * time.Minute

// Server is the LTA DB REST service: a thin HTTP front end over store.Store.
type Server struct {
	store         *store.Store
	metrics       *metrics.Registry
	log           *logrus.Entry
	auth          AuthConfig
	routes        []route
	staleAfter    time.Duration
	bulkBodyLimit int64 // bytes; spec §4.2 requires >= ~12MB for bulk_create
}

// New builds a Server ready to ListenAndServe.
func New(st *store.Store, reg *metrics.Registry, log *logrus.Entry, auth AuthConfig, staleAfter time.Duration) *Server {
	if staleAfter <= 0 {
		staleAfter = StatusStaleAfter
	}
	s := &Server{
		store:         st,
		metrics:       reg,
		log:           log,
		auth:          auth,
		staleAfter:    staleAfter,
		bulkBodyLimit: 16 << 20, // 16MiB, comfortably above the spec's ~12MB floor
	}
	s.routes = s.buildRoutes()
	return s
}

func (s *Server) buildRoutes() []route {
	return []route{
		{"GET", seg("/"), handleLiveness, nil},

		{"GET", seg("/TransferRequests"), handleListTransferRequests, []string{RoleAdmin, RoleUser, RoleSystem}},
		{"POST", seg("/TransferRequests"), handleCreateTransferRequest, []string{RoleAdmin, RoleUser}},
		{"POST", seg("/TransferRequests/actions/pop"), handlePopTransferRequest, []string{RoleSystem}},
		{"GET", seg("/TransferRequests/*"), handleGetTransferRequest, []string{RoleAdmin, RoleUser, RoleSystem}},
		{"PATCH", seg("/TransferRequests/*"), handlePatchTransferRequest, []string{RoleAdmin, RoleUser, RoleSystem}},
		{"DELETE", seg("/TransferRequests/*"), handleDeleteTransferRequest, []string{RoleAdmin, RoleUser}},

		{"GET", seg("/Bundles"), handleListBundles, []string{RoleAdmin, RoleUser, RoleSystem}},
		{"POST", seg("/Bundles/actions/pop"), handlePopBundle, []string{RoleSystem}},
		{"POST", seg("/Bundles/actions/bulk_create"), handleBulkCreateBundles, []string{RoleSystem}},
		{"POST", seg("/Bundles/actions/bulk_update"), handleBulkUpdateBundles, []string{RoleSystem}},
		{"POST", seg("/Bundles/actions/bulk_delete"), handleBulkDeleteBundles, []string{RoleSystem}},
		{"GET", seg("/Bundles/*"), handleGetBundle, []string{RoleAdmin, RoleUser, RoleSystem}},
		{"PATCH", seg("/Bundles/*"), handlePatchBundle, []string{RoleAdmin, RoleUser, RoleSystem}},
		{"DELETE", seg("/Bundles/*"), handleDeleteBundle, []string{RoleAdmin, RoleUser}},

		{"GET", seg("/Metadata"), handleListMetadata, []string{RoleAdmin, RoleUser, RoleSystem}},
		{"DELETE", seg("/Metadata"), handleDeleteMetadataByBundle, []string{RoleSystem}},
		{"POST", seg("/Metadata/actions/bulk_create"), handleBulkCreateMetadata, []string{RoleSystem}},
		{"POST", seg("/Metadata/actions/bulk_delete"), handleBulkDeleteMetadata, []string{RoleSystem}},
		{"GET", seg("/Metadata/*"), handleGetMetadata, []string{RoleAdmin, RoleUser, RoleSystem}},
		{"DELETE", seg("/Metadata/*"), handleDeleteMetadata, []string{RoleSystem}},

		{"GET", seg("/status"), handleStatusRollup, []string{RoleAdmin, RoleUser, RoleSystem}},
		{"GET", seg("/status/*"), handleStatusComponent, []string{RoleAdmin, RoleUser, RoleSystem}},
		{"PATCH", seg("/status/*"), handlePatchStatus, []string{RoleSystem}},
	}
}

func handleLiveness(s *Server, w http.ResponseWriter, r *http.Request, _ string) {
	s.writeJSON(w, r, http.StatusOK, map[string]string{})
}

// writeJSON writes v as the JSON body with the given status, recording the
// response in the metrics registry (spec §4.7 per-route response counters).
func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Error("failed to encode response body")
	}
	s.metrics.ResponseSent(r.Method, r.URL.Path, status)
}

// writeError writes a {"reason": ...} error body (spec §4.2, §6).
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, reason string) {
	s.writeJSON(w, r, status, map[string]string{"reason": reason})
}

// errStatus maps a store/cmn error to the HTTP status the spec requires.
func errStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case isErr(err, cmn.ErrNotFound):
		return http.StatusNotFound
	case isErr(err, cmn.ErrBadRequest), isErr(err, cmn.ErrIdentityField):
		return http.StatusBadRequest
	case isErr(err, cmn.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func isErr(err, target error) bool {
	for err != nil {
		if err == target {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// decodeBody decodes r's JSON body into v, capping the read at limit bytes
// (spec §4.2 requires the bulk_create routes to accept bodies of at least
// ~12MB).
func decodeBody(r *http.Request, limit int64, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, limit))
	return dec.Decode(v)
}
