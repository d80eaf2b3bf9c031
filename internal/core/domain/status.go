package domain

// TransactionStatus is the internal finite-state model for a payment attempt.
type TransactionStatus string

const (
	// StatusPending means the gateway has not reported a final outcome yet.
	StatusPending TransactionStatus = "PENDING"

	// StatusSuccess, StatusFailed and StatusExpired are terminal.
	StatusSuccess TransactionStatus = "SUCCESS"
	StatusFailed  TransactionStatus = "FAILED"
	StatusExpired TransactionStatus = "EXPIRED"

	// StatusUnknown is an ambiguity sentinel: the query worked transport-wise
	// but returned nothing interpretable. It is never committed to storage;
	// callers should query again later.
	StatusUnknown TransactionStatus = "UNKNOWN"
)

// Terminal reports whether the status can never change again.
func (s TransactionStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed || s == StatusExpired
}

// Committable reports whether the status may be written to a transaction
// record. UNKNOWN is a retry signal, not a state.
func (s TransactionStatus) Committable() bool {
	switch s {
	case StatusPending, StatusSuccess, StatusFailed, StatusExpired:
		return true
	}
	return false
}

// CanTransition reports whether a record in state from may move to state to.
// Terminal states are immutable; re-asserting the current state is allowed so
// that polling can refresh LastCheckedAt.
func CanTransition(from, to TransactionStatus) bool {
	if !to.Committable() {
		return false
	}
	if from == to {
		return true
	}
	return from == StatusPending
}
