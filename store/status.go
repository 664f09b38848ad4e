package store

import (
	"github.com/tidwall/buntdb"

	"github.com/WIPACrepo/lta/cmn"
)

// ComponentStatus is the heartbeat a worker PATCHes to /status/<component>
// (spec §4.7): a timestamp plus whatever component-specific counters it
// chooses to report.
type ComponentStatus map[string]interface{}

// PatchStatus upserts the heartbeat for component, merging fields onto
// whatever was previously recorded.
func (s *Store) PatchStatus(component string, fields ComponentStatus) error {
	return s.db.Update(func(tx *buntdb.Tx) error {
		current := ComponentStatus{}
		if val, err := tx.Get(stKey(component)); err == nil {
			_ = cmn.Unmarshal([]byte(val), &current)
		} else if err != buntdb.ErrNotFound {
			return err
		}
		for k, v := range fields {
			current[k] = v
		}
		data, err := cmn.Marshal(current)
		if err != nil {
			return err
		}
		_, _, err = tx.Set(stKey(component), string(data), nil)
		return err
	})
}

// GetStatus returns the last heartbeat recorded for component, or
// cmn.ErrNotFound if none has ever been recorded.
func (s *Store) GetStatus(component string) (ComponentStatus, error) {
	var status ComponentStatus
	err := s.db.View(func(tx *buntdb.Tx) error {
		val, err := tx.Get(stKey(component))
		if err != nil {
			if err == buntdb.ErrNotFound {
				return notFound("Status", component)
			}
			return err
		}
		return cmn.Unmarshal([]byte(val), &status)
	})
	if err != nil {
		return nil, err
	}
	return status, nil
}

// ListStatus returns every component's last-recorded heartbeat, keyed by
// component type.
func (s *Store) ListStatus() (map[string]ComponentStatus, error) {
	out := make(map[string]ComponentStatus)
	err := s.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(stPrefix+"*", func(key, value string) bool {
			var status ComponentStatus
			if cmn.Unmarshal([]byte(value), &status) == nil {
				out[key[len(stPrefix):]] = status
			}
			return true
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
