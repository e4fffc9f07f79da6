package events

// Event types emitted by the engine.
const (
	TypeTransfer           = "Transfer"
	TypeApproval           = "Approval"
	TypeMint               = "Mint"
	TypeBurn               = "Burn"
	TypeTreasuryDeposit    = "TreasuryDeposit"
	TypeTreasuryWithdraw   = "TreasuryWithdraw"
	TypeRewardsDistributed = "RewardsDistributed"

	TypeProposalCreated       = "ProposalCreated"
	TypeVoteCast              = "VoteCast"
	TypeCriticalApproved      = "CriticalApproved"
	TypeProposalCancelled     = "ProposalCancelled"
	TypeProposalExecuted      = "ProposalExecuted"
	TypeContributorRegistered = "ContributorRegistered"
	TypeTierChanged           = "TierChanged"

	TypeScoreSubmitted = "ScoreSubmitted"
	TypeScoreVerified  = "ScoreVerified"

	// TypeAll subscribes a handler to every event type.
	TypeAll = "*"
)

// Treasury is the pseudo address used in events for treasury movements.
const Treasury = "treasury"

// Event is an observable effect of a committed call.
type Event struct {
	Type  string `json:"type"`
	TxRef string `json:"txRef"`
	// Sequence is the journal sequence of the committed call; it orders calls.
	Sequence uint64 `json:"sequence"`
	// Index is the position of the event among the events of its call.
	Index      int               `json:"index"`
	Timestamp  int64             `json:"timestamp"`
	Attributes map[string]string `json:"attributes"`
}

// Recorder collects events emitted while a call is applied.
type Recorder interface {
	Record(eventType string, attributes map[string]string)
}

// Buffer is a Recorder that keeps the events of one call until it commits.
type Buffer struct {
	TxRef     string
	Timestamp int64
	events    []Event
}

func NewBuffer(txRef string, timestamp int64) *Buffer {
	return &Buffer{TxRef: txRef, Timestamp: timestamp}
}

func (b *Buffer) Record(eventType string, attributes map[string]string) {
	b.events = append(b.events, Event{
		Type:       eventType,
		TxRef:      b.TxRef,
		Index:      len(b.events),
		Timestamp:  b.Timestamp,
		Attributes: attributes,
	})
}

// Events returns the recorded events in emission order.
func (b *Buffer) Events() []Event {
	out := make([]Event, len(b.events))
	copy(out, b.events)
	return out
}

// Discard is a Recorder that drops every event.
type Discard struct{}

func (Discard) Record(string, map[string]string) {}
