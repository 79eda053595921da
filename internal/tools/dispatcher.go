// Package tools implements the Tool Surface (spec.md §4.D): a narrow,
// uniform function-call API the Agent Controller drives, translated to
// Game Engine calls with the calling agent's identity injected and the
// session's communication-level policy enforced before dispatch.
package tools

import (
	"context"
	"encoding/json"

	"github.com/haasonsaas/nexus/internal/engine"
	"github.com/haasonsaas/nexus/internal/engine/daytrader"
	"github.com/haasonsaas/nexus/internal/engine/essayranking"
	"github.com/haasonsaas/nexus/internal/engine/hiddenprofiles"
	"github.com/haasonsaas/nexus/internal/engine/shapefactory"
	"github.com/haasonsaas/nexus/internal/engine/wordguessing"
	"github.com/haasonsaas/nexus/internal/store"
	"github.com/haasonsaas/nexus/pkg/models"
)

// Caller is the identity the dispatcher injects into every call, overriding
// any participant_code/session_code the LLM may have guessed at (§4.D).
type Caller struct {
	Session     models.SessionCode
	Participant models.ParticipantCode
}

// Dispatcher is execute_tool_call (§4.D). It resolves the session's engine
// once per call and type-switches to the experiment-kind-specific methods
// the closed tool set requires.
type Dispatcher struct {
	Store   store.Store
	Factory *engine.Factory
}

// NewDispatcher builds a Dispatcher over st using the given Factory.
func NewDispatcher(st store.Store, f *engine.Factory) *Dispatcher {
	return &Dispatcher{Store: st, Factory: f}
}

func (d *Dispatcher) resolve(ctx context.Context, session models.SessionCode) (engine.Engine, *models.Session, *models.Failure) {
	sess, f := d.Store.GetSession(ctx, session)
	if f != nil {
		return nil, nil, f
	}
	eng, ok := d.Factory.For(sess.ExperimentType)
	if !ok {
		return nil, nil, models.NewFailure(models.ErrInvalidState, "no engine registered for experiment type %q", sess.ExperimentType)
	}
	return eng, sess, nil
}

// isPlaceholderID catches the literal template value a confused LLM echoes
// back instead of a real transaction id (§4.D).
func isPlaceholderID(id string) bool {
	return id == "" || id == "transaction_id"
}

func unwrongTool(name string) *models.Failure {
	return models.NewFailure(models.ErrInvalidState, "tool %q is not available for this experiment", name)
}

// Execute is execute_tool_call(name, args) → result (§4.D). caller identity
// is always taken from the parameter, never from args.
func (d *Dispatcher) Execute(ctx context.Context, caller Caller, name string, args json.RawMessage) (any, *models.Failure) {
	eng, sess, f := d.resolve(ctx, caller.Session)
	if f != nil {
		return nil, f
	}
	if f := Validate(name, args); f != nil {
		return nil, f
	}

	switch name {
	case "get_game_state":
		return d.getGameState(ctx, eng, sess, caller)
	case "send_message":
		return d.sendMessage(ctx, eng, sess, caller, args)
	case "mark_messages_as_read":
		return d.markMessagesAsRead(ctx, caller, args)

	case "create_trade_offer":
		return d.createTradeOffer(ctx, eng, caller, args)
	case "respond_to_trade_offer":
		return d.respondToTradeOffer(ctx, eng, caller, args)
	case "cancel_trade_offer":
		return d.cancelTradeOffer(ctx, eng, caller, args)
	case "produce_shape":
		return d.produceShape(ctx, eng, caller, args)
	case "fulfill_orders":
		return d.fulfillOrders(ctx, eng, caller, args)
	case "process_completed_productions":
		return d.processCompletedProductions(ctx, eng, caller)

	case "make_investment":
		return d.makeInvestment(ctx, eng, caller, args)
	case "get_investment_history":
		return d.getInvestmentHistory(ctx, eng, caller)

	case "submit_ranking":
		return d.submitRanking(ctx, eng, caller, args)
	case "get_assigned_essays":
		return d.getAssignedEssays(ctx, eng, caller)
	case "get_essay_content":
		return d.getEssayContent(ctx, eng, caller, args)

	case "get_assigned_words":
		return d.getAssignedWords(ctx, eng, caller)

	case "submit_vote":
		return d.submitVote(ctx, eng, caller, args)

	default:
		return nil, models.NewFailure(models.ErrInvalidState, "unknown tool %q", name)
	}
}

func (d *Dispatcher) getGameState(ctx context.Context, eng engine.Engine, sess *models.Session, caller Caller) (any, *models.Failure) {
	private, f := eng.GetParticipantState(ctx, caller.Session, caller.Participant)
	if f != nil {
		return nil, f
	}
	public, f := eng.GetPublicState(ctx, caller.Session)
	if f != nil {
		return nil, f
	}
	return map[string]any{
		"private_state":       private,
		"public_state":        public,
		"communication_level": sess.Config.CommunicationLevel,
	}, nil
}

func (d *Dispatcher) sendMessage(ctx context.Context, eng engine.Engine, sess *models.Session, caller Caller, args json.RawMessage) (any, *models.Failure) {
	var in struct {
		Recipient string `json:"recipient"`
		Content   string `json:"content"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, models.NewFailure(models.ErrInvalidState, "invalid send_message args: %v", err)
	}

	if sess.Config.CommunicationLevel == models.CommNoChat {
		return nil, models.NewFailure(models.ErrCommunicationLevelViolation, "messaging is disabled for this session")
	}
	if sess.Config.CommunicationLevel == models.CommBroadcast {
		in.Recipient = "all"
	}

	msg, f := eng.SendMessage(ctx, caller.Session, caller.Participant, in.Recipient, in.Content)
	if f != nil {
		return nil, f
	}
	return map[string]any{"message_id": msg.MessageID}, nil
}

func (d *Dispatcher) markMessagesAsRead(ctx context.Context, caller Caller, args json.RawMessage) (any, *models.Failure) {
	var in struct {
		MessageIDs []string `json:"message_ids"`
	}
	_ = json.Unmarshal(args, &in)

	unread, f := d.Store.ListUnread(ctx, caller.Session, caller.Participant)
	if f != nil {
		return nil, f
	}
	requested := make(map[string]bool, len(in.MessageIDs))
	for _, id := range in.MessageIDs {
		requested[id] = true
	}

	marked := 0
	for _, m := range unread {
		if len(in.MessageIDs) > 0 && !requested[m.MessageID] {
			continue
		}
		if m.IsBroadcast() {
			if f := d.Store.MarkBroadcastSeen(ctx, caller.Session, m.MessageID, caller.Participant); f != nil {
				return nil, f
			}
			if f := d.Store.MaybeMarkBroadcastRead(ctx, caller.Session, m.MessageID); f != nil {
				return nil, f
			}
		} else {
			if f := d.Store.MarkDirectRead(ctx, caller.Session, m.MessageID); f != nil {
				return nil, f
			}
		}
		marked++
	}
	return map[string]any{"messages_marked": marked}, nil
}

func asShapeFactory(eng engine.Engine) (*shapefactory.Engine, *models.Failure) {
	e, ok := eng.(*shapefactory.Engine)
	if !ok {
		return nil, unwrongTool("shapefactory action")
	}
	return e, nil
}

func (d *Dispatcher) createTradeOffer(ctx context.Context, eng engine.Engine, caller Caller, args json.RawMessage) (any, *models.Failure) {
	e, f := asShapeFactory(eng)
	if f != nil {
		return nil, f
	}
	var in struct {
		Recipient    string          `json:"recipient"`
		OfferType    models.OfferType `json:"offer_type"`
		Shape        string          `json:"shape"`
		Quantity     int             `json:"quantity"`
		PricePerUnit int64           `json:"price_per_unit"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, models.NewFailure(models.ErrInvalidState, "invalid create_trade_offer args: %v", err)
	}
	if in.Quantity == 0 {
		in.Quantity = 1
	}
	tx, f := e.CreateTradeOffer(ctx, caller.Session, caller.Participant, models.ParticipantCode(in.Recipient), in.OfferType, in.Shape, in.Quantity, in.PricePerUnit)
	if f != nil {
		return nil, f
	}
	return map[string]any{"transaction_id": tx.TransactionID, "short_id": tx.ShortID}, nil
}

func (d *Dispatcher) respondToTradeOffer(ctx context.Context, eng engine.Engine, caller Caller, args json.RawMessage) (any, *models.Failure) {
	e, f := asShapeFactory(eng)
	if f != nil {
		return nil, f
	}
	var in struct {
		TransactionID string `json:"transaction_id"`
		Response      string `json:"response"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, models.NewFailure(models.ErrInvalidState, "invalid respond_to_trade_offer args: %v", err)
	}
	if isPlaceholderID(in.TransactionID) {
		return nil, models.NewFailure(models.ErrInvalidState, "transaction_id is required")
	}
	if in.Response == "decline" {
		in.Response = "reject"
	}
	tx, f := e.RespondToTradeOffer(ctx, caller.Session, caller.Participant, in.TransactionID, in.Response)
	if f != nil {
		return nil, f
	}
	return map[string]any{"transaction_id": tx.TransactionID, "status": tx.Status}, nil
}

func (d *Dispatcher) cancelTradeOffer(ctx context.Context, eng engine.Engine, caller Caller, args json.RawMessage) (any, *models.Failure) {
	e, f := asShapeFactory(eng)
	if f != nil {
		return nil, f
	}
	var in struct {
		TransactionID string `json:"transaction_id"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, models.NewFailure(models.ErrInvalidState, "invalid cancel_trade_offer args: %v", err)
	}
	if isPlaceholderID(in.TransactionID) {
		return nil, models.NewFailure(models.ErrInvalidState, "transaction_id is required")
	}
	tx, f := e.CancelTradeOffer(ctx, caller.Session, caller.Participant, in.TransactionID)
	if f != nil {
		return nil, f
	}
	return map[string]any{"transaction_id": tx.TransactionID}, nil
}

func (d *Dispatcher) produceShape(ctx context.Context, eng engine.Engine, caller Caller, args json.RawMessage) (any, *models.Failure) {
	e, f := asShapeFactory(eng)
	if f != nil {
		return nil, f
	}
	var in struct {
		Shape    string `json:"shape"`
		Quantity int    `json:"quantity"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, models.NewFailure(models.ErrInvalidState, "invalid produce_shape args: %v", err)
	}
	entry, f := e.ProduceShape(ctx, caller.Session, caller.Participant, in.Shape, in.Quantity)
	if f != nil {
		return nil, f
	}
	return map[string]any{"production_id": entry.QueueID, "expected_completion": entry.EstimatedCompletion}, nil
}

func (d *Dispatcher) fulfillOrders(ctx context.Context, eng engine.Engine, caller Caller, args json.RawMessage) (any, *models.Failure) {
	e, f := asShapeFactory(eng)
	if f != nil {
		return nil, f
	}
	var in struct {
		OrderIndices []int `json:"order_indices"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, models.NewFailure(models.ErrInvalidState, "invalid fulfill_orders args: %v", err)
	}
	result, f := e.FulfillOrders(ctx, caller.Session, caller.Participant, in.OrderIndices)
	if f != nil {
		return nil, f
	}
	return map[string]any{
		"orders_fulfilled": result.FulfilledCount,
		"score_gained":     result.FulfilledCount,
		"new_money":        result.NewMoney.String(),
		"new_orders":       result.NewOrders,
	}, nil
}

func (d *Dispatcher) processCompletedProductions(ctx context.Context, eng engine.Engine, caller Caller) (any, *models.Failure) {
	e, f := asShapeFactory(eng)
	if f != nil {
		return nil, f
	}
	promoted, f := e.ProcessCompletedProductions(ctx, caller.Session)
	if f != nil {
		return nil, f
	}
	return map[string]any{"processed_count": len(promoted)}, nil
}

func asDayTrader(eng engine.Engine) (*daytrader.Engine, *models.Failure) {
	e, ok := eng.(*daytrader.Engine)
	if !ok {
		return nil, unwrongTool("daytrader action")
	}
	return e, nil
}

func (d *Dispatcher) makeInvestment(ctx context.Context, eng engine.Engine, caller Caller, args json.RawMessage) (any, *models.Failure) {
	e, f := asDayTrader(eng)
	if f != nil {
		return nil, f
	}
	var in struct {
		InvestPrice        int64                          `json:"invest_price"`
		InvestDecisionType models.InvestmentDecisionType `json:"invest_decision_type"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, models.NewFailure(models.ErrInvalidState, "invalid make_investment args: %v", err)
	}
	inv, f := e.MakeInvestment(ctx, caller.Session, caller.Participant, in.InvestPrice, in.InvestDecisionType)
	if f != nil {
		return nil, f
	}
	return map[string]any{"investment_id": inv.InvestmentID}, nil
}

func (d *Dispatcher) getInvestmentHistory(ctx context.Context, eng engine.Engine, caller Caller) (any, *models.Failure) {
	e, f := asDayTrader(eng)
	if f != nil {
		return nil, f
	}
	history, f := e.GetInvestmentHistory(ctx, caller.Session, caller.Participant)
	if f != nil {
		return nil, f
	}
	return map[string]any{"investment_history": history}, nil
}

func asEssayRanking(eng engine.Engine) (*essayranking.Engine, *models.Failure) {
	e, ok := eng.(*essayranking.Engine)
	if !ok {
		return nil, unwrongTool("essayranking action")
	}
	return e, nil
}

func (d *Dispatcher) submitRanking(ctx context.Context, eng engine.Engine, caller Caller, args json.RawMessage) (any, *models.Failure) {
	e, f := asEssayRanking(eng)
	if f != nil {
		return nil, f
	}
	var in struct {
		Rankings []models.RankingEntry `json:"rankings"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, models.NewFailure(models.ErrInvalidState, "invalid submit_ranking args: %v", err)
	}
	p, f := e.SubmitRanking(ctx, caller.Session, caller.Participant, in.Rankings)
	if f != nil {
		return nil, f
	}
	return map[string]any{"submission_id": "", "rankings_count": len(p.CurrentRankings)}, nil
}

func (d *Dispatcher) getAssignedEssays(ctx context.Context, eng engine.Engine, caller Caller) (any, *models.Failure) {
	e, f := asEssayRanking(eng)
	if f != nil {
		return nil, f
	}
	assignment, f := e.GetAssignedEssays(ctx, caller.Session, caller.Participant)
	if f != nil {
		return nil, f
	}
	return map[string]any{"essays": assignment.EssayIDs}, nil
}

func (d *Dispatcher) getEssayContent(ctx context.Context, eng engine.Engine, caller Caller, args json.RawMessage) (any, *models.Failure) {
	e, f := asEssayRanking(eng)
	if f != nil {
		return nil, f
	}
	var in struct {
		EssayID string `json:"essay_id"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, models.NewFailure(models.ErrInvalidState, "invalid get_essay_content args: %v", err)
	}
	essay, f := e.GetEssayContent(ctx, caller.Session, caller.Participant, in.EssayID)
	if f != nil {
		return nil, f
	}
	return map[string]any{"essay": essay}, nil
}

func asWordGuessing(eng engine.Engine) (*wordguessing.Engine, *models.Failure) {
	e, ok := eng.(*wordguessing.Engine)
	if !ok {
		return nil, unwrongTool("wordguessing action")
	}
	return e, nil
}

func (d *Dispatcher) getAssignedWords(ctx context.Context, eng engine.Engine, caller Caller) (any, *models.Failure) {
	e, f := asWordGuessing(eng)
	if f != nil {
		return nil, f
	}
	words, f := e.GetAssignedWords(ctx, caller.Session, caller.Participant)
	if f != nil {
		return nil, f
	}
	return map[string]any{"assigned_words": words}, nil
}

func asHiddenProfiles(eng engine.Engine) (*hiddenprofiles.Engine, *models.Failure) {
	e, ok := eng.(*hiddenprofiles.Engine)
	if !ok {
		return nil, unwrongTool("hiddenprofiles action")
	}
	return e, nil
}

func (d *Dispatcher) submitVote(ctx context.Context, eng engine.Engine, caller Caller, args json.RawMessage) (any, *models.Failure) {
	e, f := asHiddenProfiles(eng)
	if f != nil {
		return nil, f
	}
	var in struct {
		CandidateName string `json:"candidate_name"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, models.NewFailure(models.ErrInvalidState, "invalid submit_vote args: %v", err)
	}
	if in.CandidateName == "" {
		return nil, models.NewFailure(models.ErrInvalidState, "candidate_name is required")
	}
	if f := e.SubmitVote(ctx, caller.Session, caller.Participant, in.CandidateName); f != nil {
		return nil, f
	}
	return map[string]any{"candidate_name": in.CandidateName}, nil
}
