package model

import "fmt"

// EventKind enumerates the persisted event kinds of spec §6: T ranges over
// exactly this set. store.Store keys saved records by (SwapId, EventKind)
// and rejects a second save of the same pair.
type EventKind uint8

const (
	EventRequestSent EventKind = iota
	EventAccepted
	EventDeclined
	EventAlphaDeployed
	EventAlphaFunded
	EventAlphaRedeemed
	EventAlphaRefunded
	EventBetaDeployed
	EventBetaFunded
	EventBetaRedeemed
	EventBetaRefunded
)

var eventKindNames = map[EventKind]string{
	EventRequestSent:   "RequestSent",
	EventAccepted:      "Accepted",
	EventDeclined:      "Declined",
	EventAlphaDeployed: "AlphaDeployed",
	EventAlphaFunded:   "AlphaFunded",
	EventAlphaRedeemed: "AlphaRedeemed",
	EventAlphaRefunded: "AlphaRefunded",
	EventBetaDeployed:  "BetaDeployed",
	EventBetaFunded:    "BetaFunded",
	EventBetaRedeemed:  "BetaRedeemed",
	EventBetaRefunded:  "BetaRefunded",
}

func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("unknown-event-kind(%d)", uint8(k))
}
