// Package store implements the persistent collections for TransferRequests,
// Bundles, and Metadata, plus the atomic claim ("pop") operation the REST
// surface exposes to workers (spec §4.1, §4.3).
//
// It is grounded on the teacher's cluster.Smap idiom (one mutex-guarded
// structure, indexed, owned by a single component) fronting a tidwall/buntdb
// embedded, transactional KV engine: every mutation (including the claim
// scan-and-set) runs inside a single buntdb.Update transaction, so buntdb's
// own single-writer lock is the linearizability boundary the claim engine
// needs — no additional application-level mutex is required.
/*
 * Copyright (c) 2018-2026, The IceCube Collaboration, WIPAC. All rights reserved.
 */
package store

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/buntdb"

	"github.com/WIPACrepo/lta/cmn"
)

const (
	trPrefix = "TransferRequests:"
	bnPrefix = "Bundles:"
	mdPrefix = "Metadata:"
	stPrefix = "Status:"
)

// Store is the LTA DB's backing persistence layer.
type Store struct {
	db *buntdb.DB
}

// Open opens (creating if necessary) the store at path. Pass ":memory:" for
// an ephemeral, in-process store (used by tests and single-node demos).
func Open(path string) (*Store, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	s := &Store{db: db}
	if err := s.createIndexes(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

// createIndexes declares the secondary indexes named in spec §4.1. buntdb
// indexes accelerate Ascend-family scans; the claim and list operations below
// still apply their own predicate in Go, since the spec's filter shapes
// (multi-field equality plus a location prefix) don't reduce to a single
// JSON-path ordering.
func (s *Store) createIndexes() error {
	if err := s.db.CreateIndex("tr_source_status", trPrefix+"*",
		buntdb.IndexJSON("source"), buntdb.IndexJSON("status")); err != nil {
		return err
	}
	if err := s.db.CreateIndex("bn_source_dest_status", bnPrefix+"*",
		buntdb.IndexJSON("source"), buntdb.IndexJSON("dest"), buntdb.IndexJSON("status")); err != nil {
		return err
	}
	if err := s.db.CreateIndex("md_bundle", mdPrefix+"*", buntdb.IndexJSON("bundle_uuid")); err != nil {
		return err
	}
	return nil
}

func trKey(uuid string) string { return trPrefix + uuid }
func bnKey(uuid string) string { return bnPrefix + uuid }
func mdKey(uuid string) string { return mdPrefix + uuid }
func stKey(component string) string { return stPrefix + component }

// notFound wraps cmn.ErrNotFound for a given key so callers can errors.Is it
// regardless of entity kind.
func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, cmn.ErrNotFound)
}

// scan runs fn over every value whose key carries the given prefix, within a
// read-only transaction.
func (s *Store) scan(prefix string, fn func(value string) error) error {
	return s.db.View(func(tx *buntdb.Tx) error {
		var ferr error
		err := tx.AscendKeys(prefix+"*", func(_, value string) bool {
			if ferr = fn(value); ferr != nil {
				return false
			}
			return true
		})
		if err != nil {
			return err
		}
		return ferr
	})
}

// siteLocationMatch implements the "location=SITE:/prefix" bundle filter
// (spec §8): the bundle's source must start with the literal filter value.
func siteLocationMatch(location, source string) bool {
	if location == "" {
		return true
	}
	return strings.HasPrefix(source, location)
}

// sortBundlesByPriority orders claim candidates by ascending work_priority_timestamp
// (empty/unset sorts first), ties broken by ascending create_timestamp (spec
// §4.3).
func sortBundlesByPriority(bundles []*cmn.Bundle) {
	sort.SliceStable(bundles, func(i, j int) bool {
		a, b := bundles[i], bundles[j]
		if a.WorkPriorityTimestamp != b.WorkPriorityTimestamp {
			if a.WorkPriorityTimestamp == "" {
				return true
			}
			if b.WorkPriorityTimestamp == "" {
				return false
			}
			return a.WorkPriorityTimestamp < b.WorkPriorityTimestamp
		}
		return a.CreateTimestamp < b.CreateTimestamp
	})
}

func sortRequestsByPriority(reqs []*cmn.TransferRequest) {
	sort.SliceStable(reqs, func(i, j int) bool {
		return reqs[i].CreateTimestamp < reqs[j].CreateTimestamp
	})
}
