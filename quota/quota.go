// Package quota implements the disk-transport rate limiter (spec §4.5's
// disk transport stages, §9's deferred-bundle behavior): before moving a
// bundle into a quota-bounded output directory, check whether doing so would
// exceed the configured quota, and if so, report that the caller should defer
// rather than advance the bundle's status.
//
// Grounded on original_source's rate_limiter.py: _get_files_and_size walks
// the output directory on every check rather than keeping a running counter,
// so a stage started against an already-populated directory behaves
// correctly from its very first check. This mirrors that choice.
/*
 * Copyright (c) 2018-2026, The IceCube Collaboration, WIPAC. All rights reserved.
 */
package quota

import (
	"fmt"
	"os"
	"path/filepath"
)

// DirectorySize walks path and sums the size of every regular file beneath
// it, the same traversal original_source's _get_files_and_size performs.
func DirectorySize(path string) (int64, error) {
	var total int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("measure directory size %s: %w", path, err)
	}
	return total, nil
}

// WouldExceed reports whether staging an additional bundleSize bytes into
// outputPath would exceed quota.
func WouldExceed(outputPath string, bundleSize, quota int64) (bool, error) {
	current, err := DirectorySize(outputPath)
	if err != nil {
		return false, err
	}
	return current+bundleSize > quota, nil
}
