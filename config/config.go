// Package config loads and validates the process-scope string map every LTA
// worker and the REST service are configured from, following the teacher's
// per-subsystem validation style (cmn.Config.Validate) generalized onto the
// spec's "enumerate required keys, fail on missing/empty" contract.
/*
 * Copyright (c) 2018-2026, The IceCube Collaboration, WIPAC. All rights reserved.
 */
package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// Map is the process-scope configuration: a flat string->string map, the way
// every LTA component reads its environment.
type Map map[string]string

// secretSuffixes names the key suffixes whose values are never logged
// verbatim (spec §4.4 step 1).
var secretSuffixes = []string{"CLIENT_SECRET", "FILE_CATALOG_CLIENT_SECRET"}

// CommonKeys are the configuration keys required of every worker component,
// regardless of stage (spec §4.4; mirrors original_source's COMMON_CONFIG).
var CommonKeys = []string{
	"CLIENT_ID",
	"CLIENT_SECRET",
	"COMPONENT_NAME",
	"DEST_SITE",
	"INPUT_STATUS",
	"LOG_LEVEL",
	"LTA_AUTH_OPENID_URL",
	"LTA_REST_URL",
	"OUTPUT_STATUS",
	"PROMETHEUS_METRICS_PORT",
	"RUN_ONCE_AND_DIE",
	"RUN_UNTIL_NO_WORK",
	"SOURCE_SITE",
	"WORK_RETRIES",
	"WORK_SLEEP_DURATION_SECONDS",
	"WORK_TIMEOUT_SECONDS",
}

// defaults mirrors the handful of common keys original_source gives
// fall-through values for, rather than requiring the operator to set them.
var defaults = map[string]string{
	"LOG_LEVEL":                   "INFO",
	"PROMETHEUS_METRICS_PORT":     "8080",
	"RUN_ONCE_AND_DIE":            "False",
	"RUN_UNTIL_NO_WORK":           "False",
	"WORK_RETRIES":                "3",
	"WORK_SLEEP_DURATION_SECONDS": "60",
	"WORK_TIMEOUT_SECONDS":        "30",
	"STATUS_STALE_THRESHOLD_SECONDS": "300",
}

// FromEnvironment builds a Map from the process environment, seeding any key
// present in `expected` (additional to CommonKeys) with its default from
// `defaults`, if not already set. It does not validate; call Validate.
func FromEnvironment(expected []string) Map {
	m := make(Map, len(CommonKeys)+len(expected))
	for _, k := range allKeys(expected) {
		if v, ok := os.LookupEnv(k); ok {
			m[k] = v
		} else if d, ok := defaults[k]; ok {
			m[k] = d
		}
	}
	return m
}

func allKeys(expected []string) []string {
	seen := make(map[string]bool, len(CommonKeys)+len(expected))
	out := make([]string, 0, len(CommonKeys)+len(expected))
	for _, k := range CommonKeys {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	for _, k := range expected {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}

// Validate fails with a descriptive error naming the first missing or empty
// key, checking CommonKeys union expected (spec §4.4 step 1).
func (m Map) Validate(expected []string) error {
	for _, k := range allKeys(expected) {
		v, ok := m[k]
		if !ok || v == "" {
			return fmt.Errorf("missing expected configuration parameter: %q", k)
		}
	}
	return nil
}

// LogConfig logs each configured key/value at Info level, redacting any key
// whose name ends in a secret suffix (spec §4.4 step 1).
func (m Map) LogConfig(log *logrus.Entry) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if isSecret(k) {
			log.Infof("%s = [REDACTED]", k)
			continue
		}
		log.Infof("%s = %s", k, m[k])
	}
}

func isSecret(key string) bool {
	for _, suffix := range secretSuffixes {
		if strings.HasSuffix(key, suffix) {
			return true
		}
	}
	return false
}

// Bool parses an original_source-style "True"/"False" boolean, defaulting to
// false on any unparsable value.
func (m Map) Bool(key string) bool {
	b, _ := strconv.ParseBool(strings.ToLower(m[key]))
	return b
}

// Int parses an integer-valued key, returning 0 if unparsable.
func (m Map) Int(key string) int {
	n, _ := strconv.Atoi(m[key])
	return n
}

// Float parses a float-valued key, returning 0 if unparsable.
func (m Map) Float(key string) float64 {
	f, _ := strconv.ParseFloat(m[key], 64)
	return f
}
