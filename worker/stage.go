package worker

import (
	"context"

	"github.com/WIPACrepo/lta/client"
	"github.com/WIPACrepo/lta/config"
)

// StageHandler is the per-component unit of work the generic worker loop
// dispatches to (spec §4.5, §9's "dynamic dispatch over heterogeneous
// stages"). Each concrete stage in the stage package is a value implementing
// this interface; no reflection is involved, only a plain config map.
type StageHandler interface {
	// ExpectedConfig lists the config keys this stage needs beyond
	// config.CommonKeys.
	ExpectedConfig() []string

	// DoWorkClaim attempts one claim-and-process cycle against rest, and
	// reports its Outcome.
	DoWorkClaim(ctx context.Context, rest *client.Client) (Outcome, error)

	// Status returns stage-specific counters to merge into the next
	// heartbeat PATCH (spec §4.7). Optional: a stage with nothing to report
	// may return a nil map.
	Status() map[string]interface{}
}

// Configurable is implemented by stages that need the resolved config map
// (most do, to read stage-specific keys named by ExpectedConfig).
type Configurable interface {
	Configure(cfg config.Map) error
}
