package machine

import (
	"encoding/json"
	"time"
)

// Snapshot is the mode, entry time and remaining window observed at one instant.
// EnteredAt and Remaining are nil exactly when Mode is Closed.
type Snapshot struct {
	Mode      Mode
	EnteredAt *time.Time
	Remaining *time.Duration
	At        time.Time
}

type snapshotJSON struct {
	Status        Mode       `json:"status"`
	OpenedAt      *time.Time `json:"openedAt"`
	RemainingTime *int64     `json:"remainingTime"`
	Timestamp     time.Time  `json:"timestamp"`
}

// MarshalJSON renders the snapshot with the remaining time in whole milliseconds.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	out := snapshotJSON{
		Status:    s.Mode,
		OpenedAt:  s.EnteredAt,
		Timestamp: s.At,
	}
	if s.Remaining != nil {
		ms := s.Remaining.Milliseconds()
		out.RemainingTime = &ms
	}
	return json.Marshal(out)
}

// Cause records what triggered a transition.
type Cause string

const (
	CauseCommand  Cause = "command"
	CauseTimer    Cause = "timer"
	CauseDeadline Cause = "deadline"
)

// Transition describes a single state entry. Seq increases with every entry, so
// observers receiving transitions out of order can discard older ones.
type Transition struct {
	Seq      uint64    `json:"seq"`
	From     Mode      `json:"from"`
	To       Mode      `json:"to"`
	Cause    Cause     `json:"cause"`
	At       time.Time `json:"at"`
	Snapshot Snapshot  `json:"state"`
}
