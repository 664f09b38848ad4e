package worker

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/WIPACrepo/lta/cmn"
)

func TestSuccessfulIsOnlySuccessful(t *testing.T) {
	o := Successful()
	assert.True(t, o.IsSuccessful())
	assert.False(t, o.IsNothingClaimed())
	assert.False(t, o.IsQuarantineNow())
}

func TestNothingClaimedIsOnlyNothingClaimed(t *testing.T) {
	o := NothingClaimed()
	assert.False(t, o.IsSuccessful())
	assert.True(t, o.IsNothingClaimed())
	assert.False(t, o.IsQuarantineNow())
}

func TestQuarantineBundleNowCarriesBundleAndCause(t *testing.T) {
	bundle := &cmn.Bundle{UUID: "bundle-1"}
	cause := errors.New("checksum mismatch")

	o := QuarantineBundleNow(bundle, cause)
	assert.True(t, o.IsQuarantineNow())
	assert.Equal(t, QuarantineBundle, o.quarantine)
	assert.Same(t, bundle, o.bundle)
	assert.Equal(t, cause, o.cause)
}

func TestQuarantineRequestNowCarriesRequestAndCause(t *testing.T) {
	req := &cmn.TransferRequest{UUID: "request-1"}
	cause := errors.New("no matching path")

	o := QuarantineRequestNow(req, cause)
	assert.True(t, o.IsQuarantineNow())
	assert.Equal(t, QuarantineRequest, o.quarantine)
	assert.Same(t, req, o.request)
	assert.Equal(t, cause, o.cause)
}
