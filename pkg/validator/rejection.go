// Package validator implements the pure ordered-rule-pipeline block
// validator: given a candidate block and a read-only ledger view, it
// decides acceptance (returning InsertInstructions) or rejection
// (returning a typed Rejection), performing only reads.
package validator

// RejectionKind is the closed enum of validation outcomes. Progress is
// the only non-rejection value and is never returned as an error; it
// exists so callers (and observers/metrics) can name the success case
// alongside the rejection kinds in one switch.
type RejectionKind uint8

const (
	Progress RejectionKind = iota
	BadSignature
	Old
	Fork
	GapPrevious
	GapSource
	Unreceivable
	BalanceMismatch
	NegativeSpend
	InsufficientWork
	BlockPosition
	OpenedBurnAccount
	InvalidEpochLink
	InvalidRollback
)

func (k RejectionKind) String() string {
	switch k {
	case Progress:
		return "progress"
	case BadSignature:
		return "bad_signature"
	case Old:
		return "old"
	case Fork:
		return "fork"
	case GapPrevious:
		return "gap_previous"
	case GapSource:
		return "gap_source"
	case Unreceivable:
		return "unreceivable"
	case BalanceMismatch:
		return "balance_mismatch"
	case NegativeSpend:
		return "negative_spend"
	case InsufficientWork:
		return "insufficient_work"
	case BlockPosition:
		return "block_position"
	case OpenedBurnAccount:
		return "opened_burn_account"
	case InvalidEpochLink:
		return "invalid_epoch_link"
	case InvalidRollback:
		return "invalid_rollback"
	default:
		return "unknown"
	}
}

// Rejection is a typed validation failure. It is a value, not an error
// wrapping the store's own errors: the validator's rule pipeline never
// surfaces storage failures this way (those are fatal, per the spec's
// error-handling design — see pkg/validator.Validate's doc comment).
type Rejection struct {
	Kind   RejectionKind
	Reason string
}

func (r *Rejection) Error() string {
	if r.Reason == "" {
		return r.Kind.String()
	}
	return r.Kind.String() + ": " + r.Reason
}

func reject(kind RejectionKind, reason string) *Rejection {
	return &Rejection{Kind: kind, Reason: reason}
}
