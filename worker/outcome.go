package worker

import "github.com/WIPACrepo/lta/cmn"

// Outcome is the sum type a StageHandler's DoWorkClaim returns, replacing the
// source implementation's exception-based control flow (spec §4.5, §9).
type Outcome struct {
	kind        outcomeKind
	bundle      *cmn.Bundle
	request     *cmn.TransferRequest
	quarantine  QuarantineKind
	cause       error
}

type outcomeKind int

const (
	outcomeSuccessful outcomeKind = iota
	outcomeNothingClaimed
	outcomeQuarantineNow
)

// QuarantineKind distinguishes a bundle-scoped from a request-scoped
// quarantine (spec §7.2, §7.3).
type QuarantineKind int

const (
	QuarantineBundle QuarantineKind = iota
	QuarantineRequest
)

// Successful signals the stage processed one bundle and the loop should
// claim again immediately.
func Successful() Outcome { return Outcome{kind: outcomeSuccessful} }

// NothingClaimed signals the pop returned empty; the loop should break to the
// sleep interval.
func NothingClaimed() Outcome { return Outcome{kind: outcomeNothingClaimed} }

// QuarantineBundleNow signals that bundle must be quarantined with cause.
func QuarantineBundleNow(bundle *cmn.Bundle, cause error) Outcome {
	return Outcome{kind: outcomeQuarantineNow, bundle: bundle, quarantine: QuarantineBundle, cause: cause}
}

// QuarantineRequestNow signals that request must be quarantined with cause.
func QuarantineRequestNow(request *cmn.TransferRequest, cause error) Outcome {
	return Outcome{kind: outcomeQuarantineNow, request: request, quarantine: QuarantineRequest, cause: cause}
}

func (o Outcome) IsSuccessful() bool      { return o.kind == outcomeSuccessful }
func (o Outcome) IsNothingClaimed() bool  { return o.kind == outcomeNothingClaimed }
func (o Outcome) IsQuarantineNow() bool   { return o.kind == outcomeQuarantineNow }
