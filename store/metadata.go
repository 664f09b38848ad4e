package store

import (
	"fmt"

	"github.com/tidwall/buntdb"

	"github.com/WIPACrepo/lta/cmn"
)

// BulkCreateMetadata creates one Metadata row per file in files, all
// associated with bundleUUID, and returns the assigned uuids (spec §4.2).
func (s *Store) BulkCreateMetadata(bundleUUID string, files []string) ([]string, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: files must be a non-empty list", cmn.ErrBadRequest)
	}
	uuids := make([]string, len(files))
	err := s.db.Update(func(tx *buntdb.Tx) error {
		for i, fc := range files {
			md := cmn.Metadata{
				UUID:            cmn.GenUUID(),
				BundleUUID:      bundleUUID,
				FileCatalogUUID: fc,
			}
			data, err := cmn.Marshal(md)
			if err != nil {
				return err
			}
			if _, _, err := tx.Set(mdKey(md.UUID), string(data), nil); err != nil {
				return err
			}
			uuids[i] = md.UUID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return uuids, nil
}

// GetMetadata returns the metadata row by uuid.
func (s *Store) GetMetadata(uuid string) (*cmn.Metadata, error) {
	var md cmn.Metadata
	err := s.db.View(func(tx *buntdb.Tx) error {
		val, err := tx.Get(mdKey(uuid))
		if err != nil {
			if err == buntdb.ErrNotFound {
				return notFound("Metadata", uuid)
			}
			return err
		}
		return cmn.Unmarshal([]byte(val), &md)
	})
	if err != nil {
		return nil, err
	}
	return &md, nil
}

// ListMetadata returns up to limit rows (0 meaning unbounded) associated
// with bundleUUID (empty meaning all).
func (s *Store) ListMetadata(bundleUUID string, limit int) ([]*cmn.Metadata, error) {
	var out []*cmn.Metadata
	err := s.scan(mdPrefix, func(value string) error {
		if limit > 0 && len(out) >= limit {
			return nil
		}
		var md cmn.Metadata
		if err := cmn.Unmarshal([]byte(value), &md); err != nil {
			return err
		}
		if bundleUUID == "" || md.BundleUUID == bundleUUID {
			out = append(out, &md)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// DeleteMetadata removes the metadata row by uuid. Idempotent.
func (s *Store) DeleteMetadata(uuid string) error {
	return s.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(mdKey(uuid))
		if err == buntdb.ErrNotFound {
			return nil
		}
		return err
	})
}

// DeleteMetadataByBundle removes every metadata row for bundleUUID, used by
// DELETE /Metadata?bundle_uuid=.
func (s *Store) DeleteMetadataByBundle(bundleUUID string) (int, error) {
	var keys []string
	err := s.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(mdPrefix+"*", func(key, value string) bool {
			var md cmn.Metadata
			if cmn.Unmarshal([]byte(value), &md) == nil && md.BundleUUID == bundleUUID {
				keys = append(keys, key)
			}
			return true
		})
	})
	if err != nil {
		return 0, err
	}
	err = s.db.Update(func(tx *buntdb.Tx) error {
		for _, k := range keys {
			if _, err := tx.Delete(k); err != nil && err != buntdb.ErrNotFound {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

// BulkDeleteMetadata removes every metadata row named by uuids, returning
// the count actually removed (spec §4.5: verifiers assert this count
// matches the number of uuids they submitted, or raise).
func (s *Store) BulkDeleteMetadata(uuids []string) (int, error) {
	count := 0
	err := s.db.Update(func(tx *buntdb.Tx) error {
		for _, uuid := range uuids {
			_, err := tx.Delete(mdKey(uuid))
			if err == buntdb.ErrNotFound {
				continue
			}
			if err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}
