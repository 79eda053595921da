package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvestmentDecisionType distinguishes an individually-decided investment
// from one made as part of a group consensus flow.
type InvestmentDecisionType string

const (
	DecisionIndividual InvestmentDecisionType = "individual"
	DecisionGroup      InvestmentDecisionType = "group"
)

// Investment is one DayTrader make_investment call.
type Investment struct {
	InvestmentID   string                  `json:"investment_id"`
	SessionCode    SessionCode             `json:"session_code"`
	ParticipantCode ParticipantCode        `json:"participant_code"`
	Price          decimal.Decimal         `json:"price"`
	DecisionType   InvestmentDecisionType  `json:"decision_type"`
	Timestamp      time.Time               `json:"timestamp"`
}
