package store

import (
	"fmt"

	"github.com/tidwall/buntdb"

	"github.com/WIPACrepo/lta/cmn"
)

// BundleFilter narrows a Bundles list query (spec §4.2).
type BundleFilter struct {
	Location string // "site[:pathPrefix]" matched against Source
	Status   string
	Request  string
	Verified *bool // unused by the data model directly; reserved for callers that track verification via Status
}

func (f BundleFilter) match(b *cmn.Bundle) bool {
	if f.Location != "" && !siteLocationMatch(f.Location, b.Source) {
		return false
	}
	if f.Status != "" && b.Status != f.Status {
		return false
	}
	if f.Request != "" && b.Request != f.Request {
		return false
	}
	return true
}

// CreateBundle persists a single bundle, assigning a uuid; its fields are
// stored as given, without validation.
func (s *Store) CreateBundle(b cmn.Bundle) (string, error) {
	b.UUID = cmn.GenUUID()
	b.CreateTimestamp = cmn.Now()
	b.UpdateTimestamp = b.CreateTimestamp
	b.Claimed = false
	err := s.db.Update(func(tx *buntdb.Tx) error {
		data, err := cmn.Marshal(b)
		if err != nil {
			return err
		}
		_, _, err = tx.Set(bnKey(b.UUID), string(data), nil)
		return err
	})
	if err != nil {
		return "", err
	}
	return b.UUID, nil
}

// BulkCreateBundles persists every bundle in bundles, assigning each a uuid,
// and returns the assigned uuids in order (spec §4.2 bulk_create).
func (s *Store) BulkCreateBundles(bundles []cmn.Bundle) ([]string, error) {
	if len(bundles) == 0 {
		return nil, fmt.Errorf("%w: bundles must be a non-empty list", cmn.ErrBadRequest)
	}
	uuids := make([]string, len(bundles))
	err := s.db.Update(func(tx *buntdb.Tx) error {
		now := cmn.Now()
		for i := range bundles {
			b := bundles[i]
			b.UUID = cmn.GenUUID()
			b.CreateTimestamp = now
			b.UpdateTimestamp = now
			b.Claimed = false
			data, err := cmn.Marshal(b)
			if err != nil {
				return err
			}
			if _, _, err := tx.Set(bnKey(b.UUID), string(data), nil); err != nil {
				return err
			}
			uuids[i] = b.UUID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return uuids, nil
}

// GetBundle returns the bundle by uuid, or cmn.ErrNotFound.
func (s *Store) GetBundle(uuid string) (*cmn.Bundle, error) {
	var b cmn.Bundle
	err := s.db.View(func(tx *buntdb.Tx) error {
		val, err := tx.Get(bnKey(uuid))
		if err != nil {
			if err == buntdb.ErrNotFound {
				return notFound("Bundle", uuid)
			}
			return err
		}
		return cmn.Unmarshal([]byte(val), &b)
	})
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ListBundles returns every bundle matching filter.
func (s *Store) ListBundles(filter BundleFilter) ([]*cmn.Bundle, error) {
	var out []*cmn.Bundle
	err := s.scan(bnPrefix, func(value string) error {
		var b cmn.Bundle
		if err := cmn.Unmarshal([]byte(value), &b); err != nil {
			return err
		}
		if filter.match(&b) {
			out = append(out, &b)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PatchBundle merges patch fields onto the bundle with the given uuid,
// rejecting any attempt to change uuid (spec §4.2).
func (s *Store) PatchBundle(uuid string, patch map[string]interface{}) error {
	if v, ok := patch["uuid"]; ok {
		if s, ok := v.(string); !ok || s != uuid {
			return cmn.ErrIdentityField
		}
	}
	return s.db.Update(func(tx *buntdb.Tx) error {
		val, err := tx.Get(bnKey(uuid))
		if err != nil {
			if err == buntdb.ErrNotFound {
				return notFound("Bundle", uuid)
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
		_, _, err = tx.Set(bnKey(uuid), string(data), nil)
		return err
	})
}

// BulkUpdateBundles applies update to each bundle named by uuids that
// exists, returning the uuids actually matched (spec §4.2 bulk_update).
func (s *Store) BulkUpdateBundles(uuids []string, update map[string]interface{}) ([]string, error) {
	if len(uuids) == 0 {
		return nil, fmt.Errorf("%w: bundles must be a non-empty list", cmn.ErrBadRequest)
	}
	if len(update) == 0 {
		return nil, fmt.Errorf("%w: update must be a non-empty object", cmn.ErrBadRequest)
	}
	var matched []string
	err := s.db.Update(func(tx *buntdb.Tx) error {
		for _, uuid := range uuids {
			val, err := tx.Get(bnKey(uuid))
			if err != nil {
				if err == buntdb.ErrNotFound {
					continue
				}
				return err
			}
			var current map[string]interface{}
			if err := cmn.Unmarshal([]byte(val), &current); err != nil {
				return err
			}
			for k, v := range update {
				current[k] = v
			}
			data, err := cmn.Marshal(current)
			if err != nil {
				return err
			}
			if _, _, err := tx.Set(bnKey(uuid), string(data), nil); err != nil {
				return err
			}
			matched = append(matched, uuid)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matched, nil
}

// DeleteBundle removes the bundle. Idempotent.
func (s *Store) DeleteBundle(uuid string) error {
	return s.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(bnKey(uuid))
		if err == buntdb.ErrNotFound {
			return nil
		}
		return err
	})
}

// BulkDeleteBundles removes every bundle named by uuids, returning the
// uuids actually found and removed.
func (s *Store) BulkDeleteBundles(uuids []string) ([]string, error) {
	var removed []string
	err := s.db.Update(func(tx *buntdb.Tx) error {
		for _, uuid := range uuids {
			_, err := tx.Delete(bnKey(uuid))
			if err == buntdb.ErrNotFound {
				continue
			}
			if err != nil {
				return err
			}
			removed = append(removed, uuid)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// PopBundle atomically claims one bundle matching (source, dest, status)
// with claimed==false, ordered by ascending work_priority_timestamp (nulls
// first, ties by create_timestamp) — spec §4.3.
func (s *Store) PopBundle(source, dest, status, claimant string) (*cmn.Bundle, error) {
	if claimant == "" {
		return nil, fmt.Errorf("%w: missing claimant field", cmn.ErrBadRequest)
	}
	if source == "" && dest == "" {
		return nil, fmt.Errorf("%w: missing source and dest query parameters", cmn.ErrBadRequest)
	}
	if status == "" {
		return nil, fmt.Errorf("%w: missing status query parameter", cmn.ErrBadRequest)
	}

	var claimed *cmn.Bundle
	err := s.db.Update(func(tx *buntdb.Tx) error {
		var candidates []*cmn.Bundle
		err := tx.AscendKeys(bnPrefix+"*", func(_, value string) bool {
			var b cmn.Bundle
			if cmn.Unmarshal([]byte(value), &b) != nil {
				return true
			}
			if b.Claimed || b.Status != status {
				return true
			}
			if source != "" && b.Source != source {
				return true
			}
			if dest != "" && b.Dest != dest {
				return true
			}
			candidates = append(candidates, &b)
			return true
		})
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			return nil
		}
		sortBundlesByPriority(candidates)
		chosen := candidates[0]
		chosen.Claimed = true
		chosen.Claimant = claimant
		chosen.ClaimTimestamp = cmn.Now()
		data, err := cmn.Marshal(chosen)
		if err != nil {
			return err
		}
		if _, _, err := tx.Set(bnKey(chosen.UUID), string(data), nil); err != nil {
			return err
		}
		claimed = chosen
		return nil
	})
	return claimed, err
}
