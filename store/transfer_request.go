package store

import (
	"fmt"

	"github.com/tidwall/buntdb"

	"github.com/WIPACrepo/lta/cmn"
)

// TransferRequestFilter narrows a TransferRequests list query.
type TransferRequestFilter struct {
	Source string
	Status string
}

func (f TransferRequestFilter) match(r *cmn.TransferRequest) bool {
	if f.Source != "" && r.Source != f.Source {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	return true
}

// CreateTransferRequest validates, assigns a uuid, and persists req,
// returning the assigned uuid (spec §4.2 POST /TransferRequests).
func (s *Store) CreateTransferRequest(req cmn.TransferRequest) (string, error) {
	if req.Source == "" || len(req.Dest) == 0 || req.Path == "" {
		return "", fmt.Errorf("%w: source, dest, and path are required", cmn.ErrBadRequest)
	}
	req.UUID = cmn.GenUUID()
	req.Status = cmn.TransferRequestUnclaimed
	req.CreateTimestamp = cmn.Now()
	req.UpdateTimestamp = req.CreateTimestamp
	req.Claimed = false

	err := s.db.Update(func(tx *buntdb.Tx) error {
		data, err := cmn.Marshal(req)
		if err != nil {
			return err
		}
		_, _, err = tx.Set(trKey(req.UUID), string(data), nil)
		return err
	})
	if err != nil {
		return "", err
	}
	return req.UUID, nil
}

// GetTransferRequest returns the request by uuid, or cmn.ErrNotFound.
func (s *Store) GetTransferRequest(uuid string) (*cmn.TransferRequest, error) {
	var req cmn.TransferRequest
	err := s.db.View(func(tx *buntdb.Tx) error {
		val, err := tx.Get(trKey(uuid))
		if err != nil {
			if err == buntdb.ErrNotFound {
				return notFound("TransferRequest", uuid)
			}
			return err
		}
		return cmn.Unmarshal([]byte(val), &req)
	})
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// ListTransferRequests returns every request matching filter.
func (s *Store) ListTransferRequests(filter TransferRequestFilter) ([]*cmn.TransferRequest, error) {
	var out []*cmn.TransferRequest
	err := s.scan(trPrefix, func(value string) error {
		var r cmn.TransferRequest
		if err := cmn.Unmarshal([]byte(value), &r); err != nil {
			return err
		}
		if filter.match(&r) {
			out = append(out, &r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PatchTransferRequest merges patch fields (by re-marshaling over the stored
// record) onto the request with the given uuid. A uuid field in patch that
// differs from the path uuid is rejected (spec §4.2).
func (s *Store) PatchTransferRequest(uuid string, patch map[string]interface{}) error {
	if v, ok := patch["uuid"]; ok {
		if s, ok := v.(string); !ok || s != uuid {
			return cmn.ErrIdentityField
		}
	}
	return s.db.Update(func(tx *buntdb.Tx) error {
		val, err := tx.Get(trKey(uuid))
		if err != nil {
			if err == buntdb.ErrNotFound {
				return notFound("TransferRequest", uuid)
			}
			return err
		}
		var current map[string]interface{}
		if err := cmn.Unmarshal([]byte(val), &current); err != nil {
			return err
		}
		for k, v := range patch {
			current[k] = v
		}
		data, err := cmn.Marshal(current)
		if err != nil {
			return err
		}
		_, _, err = tx.Set(trKey(uuid), string(data), nil)
		return err
	})
}

// DeleteTransferRequest removes the request. It is idempotent: deleting a
// nonexistent uuid is not an error (spec §4.2).
func (s *Store) DeleteTransferRequest(uuid string) error {
	err := s.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(trKey(uuid))
		if err == buntdb.ErrNotFound {
			return nil
		}
		return err
	})
	return err
}

// PopTransferRequest atomically claims one unclaimed request for source,
// transitioning it to "processing" (spec §4.3, picker variant).
func (s *Store) PopTransferRequest(source, claimant string) (*cmn.TransferRequest, error) {
	if claimant == "" {
		return nil, fmt.Errorf("%w: missing claimant field", cmn.ErrBadRequest)
	}
	if source == "" {
		return nil, fmt.Errorf("%w: missing source query parameter", cmn.ErrBadRequest)
	}

	var claimed *cmn.TransferRequest
	err := s.db.Update(func(tx *buntdb.Tx) error {
		var candidates []*cmn.TransferRequest
		err := tx.AscendKeys(trPrefix+"*", func(_, value string) bool {
			var r cmn.TransferRequest
			if cmn.Unmarshal([]byte(value), &r) != nil {
				return true
			}
			if !r.Claimed && r.Status == cmn.TransferRequestUnclaimed && r.Source == source {
				candidates = append(candidates, &r)
			}
			return true
		})
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			return nil
		}
		sortRequestsByPriority(candidates)
		chosen := candidates[0]
		chosen.Claimed = true
		chosen.Claimant = claimant
		chosen.ClaimTimestamp = cmn.Now()
		chosen.Status = cmn.TransferRequestProcessing
		chosen.UpdateTimestamp = cmn.Now()
		data, err := cmn.Marshal(chosen)
		if err != nil {
			return err
		}
		if _, _, err := tx.Set(trKey(chosen.UUID), string(data), nil); err != nil {
			return err
		}
		claimed = chosen
		return nil
	})
	return claimed, err
}
