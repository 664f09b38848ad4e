package worker

import (
	"context"
	"fmt"
	"strings"

	pkgerrors "github.com/pkg/errors"

	"github.com/WIPACrepo/lta/cmn"
)

// maxTraceLines is the §4.6 truncation point: traces beyond this length keep
// their first and last halves, joined by an ellipsis line noting the count
// of omitted lines.
const maxTraceLines = 500

// quarantine applies the §4.6 quarantine patch for outcome's target (bundle
// or transfer request), logging and swallowing any failure of the PATCH
// itself so the outer loop can continue.
func (w *Worker) quarantine(ctx context.Context, outcome Outcome) {
	reason := fmt.Sprintf("BY:%s-%s REASON:%v", w.componentName, w.instanceUUID, outcome.cause)
	details := truncateTrace(traceOf(outcome.cause))

	switch outcome.quarantine {
	case QuarantineBundle:
		b := outcome.bundle
		patch := map[string]interface{}{
			"original_status":         b.Status,
			"status":                  cmn.BundleQuarantined,
			"reason":                  reason,
			"reason_details":          details,
			"work_priority_timestamp": cmn.Now(),
		}
		if err := w.rest.PatchBundle(ctx, b.UUID, patch); err != nil {
			w.log.WithError(err).WithField("bundle", b.UUID).
				Error("quarantine PATCH failed; continuing outer loop")
		}
		w.metrics.Quarantined(w.componentType, "bundle")
	case QuarantineRequest:
		r := outcome.request
		patch := map[string]interface{}{
			"original_status":         r.Status,
			"status":                  cmn.TransferRequestQuarantined,
			"reason":                  reason,
			"reason_details":          details,
		}
		if err := w.rest.PatchTransferRequest(ctx, r.UUID, patch); err != nil {
			w.log.WithError(err).WithField("request", r.UUID).
				Error("quarantine PATCH failed; continuing outer loop")
		}
		w.metrics.Quarantined(w.componentType, "request")
	}
}

// traceOf renders cause with a stack trace: it wraps cause via
// github.com/pkg/errors.WithStack, so the result always carries the stack of
// this call site (plus cause's own, if it was already produced or wrapped
// via pkg/errors).
func traceOf(cause error) string {
	if cause == nil {
		return ""
	}
	return fmt.Sprintf("%+v", pkgerrors.WithStack(cause))
}

func truncateTrace(trace string) string {
	lines := strings.Split(trace, "\n")
	if len(lines) <= maxTraceLines {
		return trace
	}
	half := maxTraceLines / 2
	omitted := len(lines) - maxTraceLines
	out := make([]string, 0, maxTraceLines+1)
	out = append(out, lines[:half]...)
	out = append(out, fmt.Sprintf("... (%d lines omitted) ...", omitted))
	out = append(out, lines[len(lines)-half:]...)
	return strings.Join(out, "\n")
}
