package models

import "time"

// EventType is the closed set of Event Bus notifications (§4.H).
type EventType string

const (
	EventNewTradeOffer      EventType = "new_trade_offer"
	EventTradeOfferResponse EventType = "trade_offer_response"
	EventTradeCompleted     EventType = "trade_completed"
	EventTradeOfferCancelled EventType = "trade_offer_cancelled"
	EventNewMessage         EventType = "new_message"
	EventVoteUpdate         EventType = "vote_update"
	EventTimerUpdate        EventType = "timer_update"
)

// Event is one fan-out notification. Payload holds the type-specific fields;
// the Event Bus is write-only from the core, so no ack/response is modelled.
type Event struct {
	Type        EventType   `json:"type"`
	SessionCode SessionCode `json:"session_code"`
	OccurredAt  time.Time   `json:"occurred_at"`
	Payload     any         `json:"payload"`
}
