package cmn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNowRoundTripsThroughParseTimestamp(t *testing.T) {
	ts := Now()
	parsed, err := ParseTimestamp(ts)
	require.NoError(t, err)
	assert.Equal(t, ts, parsed.Format(TimestampFormat))
}

func TestParseTimestampRejectsMalformed(t *testing.T) {
	_, err := ParseTimestamp("not a timestamp")
	assert.Error(t, err)
}
