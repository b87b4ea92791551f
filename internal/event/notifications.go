package event

// NotificationKind discriminates outbound event payloads.
type NotificationKind string

const (
	NoteBalanceChanged NotificationKind = "balance_changed"
	NoteRewardClaimed  NotificationKind = "reward_claimed"
	NotePeriodStarted  NotificationKind = "period_started"
	NoteDurationSet    NotificationKind = "duration_set"
	NoteSinkBurned     NotificationKind = "sink_burned"
	NoteFunded         NotificationKind = "funded"
)

// Notification is one externally visible effect of a processed
// operation. A single operation may emit several, one per touched
// account.
type Notification struct {
	Kind        NotificationKind `json:"kind"`
	Account     string           `json:"account,omitempty"`
	Amount      int64            `json:"amount,omitempty"`
	NewBalance  int64            `json:"new_balance,omitempty"`
	Unallocated int64            `json:"unallocated,omitempty"`
	Rate        int64            `json:"rate,omitempty"`
	FinishAt    int64            `json:"finish_at,omitempty"`
	Duration    int64            `json:"duration_seconds,omitempty"`
}

// SubjectPrefix is the stream subject root for outbound events.
const SubjectPrefix = "reward.ledger.events."

// Subject returns the publish subject for this notification.
func (n Notification) Subject() string {
	return SubjectPrefix + string(n.Kind)
}
