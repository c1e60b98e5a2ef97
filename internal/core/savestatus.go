package core

// SaveStatus is the user-facing persistence indicator for the active
// payment ledger. It is display-only; the ledger's in-flight guard, not
// this value, governs save concurrency.
type SaveStatus int

const (
	StatusIdle SaveStatus = iota
	StatusSaving
	StatusSaved
	StatusFailed
)

func (s SaveStatus) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusSaving:
		return "saving"
	case StatusSaved:
		return "saved"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}
