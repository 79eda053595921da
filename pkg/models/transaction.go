package models

import "github.com/shopspring/decimal"

// OfferType is the direction of a trade offer.
type OfferType string

const (
	OfferBuy  OfferType = "buy"
	OfferSell OfferType = "sell"
)

// TransactionStatus is the trade state machine (§4.C.1).
type TransactionStatus string

const (
	TransactionProposed  TransactionStatus = "proposed"
	TransactionCompleted TransactionStatus = "completed"
	TransactionCancelled TransactionStatus = "cancelled"
)

// Transaction is one ShapeFactory trade offer/acceptance.
type Transaction struct {
	TransactionID string            `json:"transaction_id"`
	ShortID       string            `json:"short_id"`
	SessionCode   SessionCode       `json:"session_code"`
	Seller        ParticipantCode   `json:"seller"`
	Buyer         ParticipantCode   `json:"buyer"`
	Proposer      ParticipantCode   `json:"proposer"`
	Recipient     ParticipantCode   `json:"recipient"`
	OfferType     OfferType         `json:"offer_type"`
	Shape         string            `json:"shape"`
	Quantity      int               `json:"quantity"`
	Price         decimal.Decimal   `json:"price"`
	Status        TransactionStatus `json:"status"`
}
