package model

type OpsType byte

const (
	GET OpsType = iota
	INCREMENT
)

func (op OpsType) String() string {
	switch op {
	case GET:
		return "get"
	case INCREMENT:
		return "increment"
	default:
		return "unknown"
	}
}

// VisitorCount is the single persisted record. Count never goes below zero,
// which the unsigned type enforces at decode time.
type VisitorCount struct {
	Count uint64 `json:"count"`
}
