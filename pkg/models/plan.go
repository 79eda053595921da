package models

import "encoding/json"

// PlanActionType is the closed tagged union of actions an LLM plan may
// contain (§6.2, §9 "dynamic typing of LLM replies"). Unknown types are
// ignored with a warning, never a type error.
type PlanActionType string

const (
	ActionMessage           PlanActionType = "message"
	ActionProposeTradeOffer PlanActionType = "propose_trade_offer"
	ActionTradeResponse     PlanActionType = "trade_response"
	ActionCancelTradeOffer  PlanActionType = "cancel_trade_offer"
	ActionProduceShape      PlanActionType = "produce_shape"
	ActionFulfillOrder      PlanActionType = "fulfill_order"
	ActionMakeInvestment    PlanActionType = "make_investment"
	ActionSubmitRanking     PlanActionType = "submit_ranking"
	ActionGetAssignedEssays PlanActionType = "get_assigned_essays"
	ActionGetEssayContent   PlanActionType = "get_essay_content"
	ActionSubmitVote        PlanActionType = "submit_vote"
)

// PlanAction is one element of a plan's "actions" list. Fields are a
// superset over all action types; unused fields are left zero.
type PlanAction struct {
	Type PlanActionType `json:"type"`

	Recipient string `json:"recipient,omitempty"`
	Content   string `json:"content,omitempty"`

	OfferType string  `json:"offer_type,omitempty"`
	Shape     string  `json:"shape,omitempty"`
	Price     float64 `json:"price,omitempty"`
	Quantity  int     `json:"quantity,omitempty"`

	TransactionID string `json:"transaction_id,omitempty"`
	Response      string `json:"response,omitempty"`

	OrderIndices []int `json:"order_indices,omitempty"`

	InvestPrice        float64 `json:"invest_price,omitempty"`
	InvestDecisionType string  `json:"invest_decision_type,omitempty"`

	Rankings []RankingEntry `json:"rankings,omitempty"`
	EssayID  string         `json:"essay_id,omitempty"`

	CandidateName string `json:"candidate_name,omitempty"`
}

// Plan is the top-level JSON object an LLM reply must contain in plain/JSON
// mode (§6.2).
type Plan struct {
	Actions []PlanAction `json:"actions"`
}

// ToolCall is a single function/tool invocation, either produced directly by
// a function-calling LLM response or synthesised from a mapped PlanAction.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolResult is the outcome of dispatching one ToolCall through the Tool
// Surface.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Success    bool   `json:"success"`
	Payload    any    `json:"payload,omitempty"`
	Error      *Failure `json:"error,omitempty"`
}
