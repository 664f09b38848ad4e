package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateReportsFirstMissingKey(t *testing.T) {
	m := Map{}
	err := m.Validate(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CLIENT_ID")
}

func TestValidatePassesWhenCommonAndExpectedPresent(t *testing.T) {
	m := Map{}
	for _, k := range CommonKeys {
		m[k] = "x"
	}
	m["OUTPUT_PATH"] = "/tmp/out"
	assert.NoError(t, m.Validate([]string{"OUTPUT_PATH"}))
}

func TestValidateFailsOnEmptyValue(t *testing.T) {
	m := Map{}
	for _, k := range CommonKeys {
		m[k] = "x"
	}
	m["OUTPUT_PATH"] = ""
	err := m.Validate([]string{"OUTPUT_PATH"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OUTPUT_PATH")
}

func TestFromEnvironmentSeedsDefaultsAndReadsEnv(t *testing.T) {
	os.Setenv("SOURCE_SITE", "WIPAC")
	defer os.Unsetenv("SOURCE_SITE")

	m := FromEnvironment(nil)
	assert.Equal(t, "WIPAC", m["SOURCE_SITE"])
	assert.Equal(t, "INFO", m["LOG_LEVEL"])
	assert.Equal(t, "3", m["WORK_RETRIES"])
}

func TestBoolIntFloatDefaultsOnUnparsable(t *testing.T) {
	m := Map{"FLAG": "garbage", "COUNT": "garbage", "RATIO": "garbage"}
	assert.False(t, m.Bool("FLAG"))
	assert.Equal(t, 0, m.Int("COUNT"))
	assert.Equal(t, 0.0, m.Float("RATIO"))

	m = Map{"FLAG": "True", "COUNT": "42", "RATIO": "1.5"}
	assert.True(t, m.Bool("FLAG"))
	assert.Equal(t, 42, m.Int("COUNT"))
	assert.Equal(t, 1.5, m.Float("RATIO"))
}
