// Package controller implements the Agent Controller (spec.md §4.E): the
// single per-tick loop that turns one agent's turn into promoted state,
// an LLM decision, dispatched tool calls, and emitted events.
package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/haasonsaas/nexus/internal/engine"
	"github.com/haasonsaas/nexus/internal/events"
	"github.com/haasonsaas/nexus/internal/llm"
	"github.com/haasonsaas/nexus/internal/sinks"
	"github.com/haasonsaas/nexus/internal/store"
	"github.com/haasonsaas/nexus/internal/tools"
	"github.com/haasonsaas/nexus/pkg/models"
)

// Controller runs one agent's tick loop against the Store, ChatCompletion
// Port, and Tool Surface.
type Controller struct {
	Store   store.Store
	Factory *engine.Factory
	LLM     llm.ChatCompletion
	Tools   *tools.Dispatcher
	Bus     *events.Bus
	Logger  *slog.Logger
}

// New builds a Controller. bus may be nil (events are then dropped, not an
// error — the Event Bus is write-only best-effort observability per §4.H).
func New(st store.Store, factory *engine.Factory, llmRouter llm.ChatCompletion, dispatcher *tools.Dispatcher, bus *events.Bus) *Controller {
	return &Controller{
		Store:   st,
		Factory: factory,
		LLM:     llmRouter,
		Tools:   dispatcher,
		Bus:     bus,
		Logger:  slog.Default().With("component", "controller"),
	}
}

// TickResult summarizes one Tick call, mainly for the Agent Manager's
// logging sinks.
type TickResult struct {
	ToolResults []models.ToolResult
	PlanActions int
}

// Tick runs the full per-tick loop for one participant in one session
// (§4.E, steps 1-8; step 9, the HiddenProfiles final-vote hook, is a
// separate FinalVote call the Agent Manager makes on stop, not part of the
// regular tick). sink may be nil — every write is nil-receiver-safe.
func (c *Controller) Tick(ctx context.Context, session models.SessionCode, participant models.ParticipantCode, memory *models.AgentMemory, failures *models.FailureHistory, opts llm.Options, sink *sinks.Sinks) (*TickResult, *models.Failure) {
	sess, f := c.Store.GetSession(ctx, session)
	if f != nil {
		return nil, f
	}
	eng, ok := c.Factory.For(sess.ExperimentType)
	if !ok {
		return nil, models.NewFailure(models.ErrInvalidState, "no engine registered for experiment type %q", sess.ExperimentType)
	}
	caller := tools.Caller{Session: session, Participant: participant}

	// Step 1: promote any production whose time has elapsed (ShapeFactory
	// only; a no-op rejection for every other kind is expected and ignored).
	if sess.ExperimentType == models.ExperimentShapeFactory {
		if _, f := c.Tools.Execute(ctx, caller, "process_completed_productions", nil); f != nil {
			c.Logger.Warn("process_completed_productions", "session", session, "participant", participant, "error", f)
		}
	}

	// Step 2: perceive.
	private, f := eng.GetParticipantState(ctx, session, participant)
	if f != nil {
		return nil, f
	}
	public, f := eng.GetPublicState(ctx, session)
	if f != nil {
		return nil, f
	}
	unread, f := c.Store.ListUnread(ctx, session, participant)
	if f != nil {
		return nil, f
	}

	// Step 3: build the status update the model sees this turn.
	userPrompt := buildStatusUpdate(private, public, unread, failures)

	// Step 4: decide.
	sink.LogLLM(sinks.LLMEntry{Timestamp: time.Now(), Direction: "request", Mode: string(opts.Mode), Payload: userPrompt})
	var calls []models.ToolCall
	switch opts.Mode {
	case llm.ModeJSON:
		reply, f := c.LLM.DecidePlain(ctx, memory.SystemPrompt, userPrompt, opts)
		if f != nil {
			return nil, f
		}
		sink.LogLLM(sinks.LLMEntry{Timestamp: time.Now(), Direction: "response", Mode: string(opts.Mode), Payload: reply})
		plan := llm.ExtractPlan(reply)
		calls = mapPlanToToolCalls(plan)
		memory.Append(models.MemoryEntry{Role: models.MemoryAssistant, Content: reply})
	default:
		toolCalls, f := c.LLM.DecideWithTools(ctx, memory.SystemPrompt, userPrompt, tools.Catalog(sess.ExperimentType), opts)
		if f != nil {
			return nil, f
		}
		calls = toolCalls
		summary := summarizeCalls(calls)
		sink.LogLLM(sinks.LLMEntry{Timestamp: time.Now(), Direction: "response", Mode: string(opts.Mode), Payload: summary})
		memory.Append(models.MemoryEntry{Role: models.MemoryAssistant, Content: summary})
	}
	memory.Append(models.MemoryEntry{Role: models.MemoryUser, Content: userPrompt})
	sink.LogMemory(sinks.MemoryEvent{Timestamp: time.Now(), Kind: "status_update", Detail: userPrompt})

	// Step 5: mark every currently-unread message read before acting, so the
	// next tick's perceive step doesn't re-surface messages this turn's
	// decision already accounted for.
	if len(unread) > 0 {
		if _, f := c.Tools.Execute(ctx, caller, "mark_messages_as_read", nil); f != nil {
			c.Logger.Warn("mark_messages_as_read", "session", session, "participant", participant, "error", f)
		}
	}

	// Steps 6-7: act through the Tool Surface. An empty plan is a valid,
	// silent outcome — no synthetic action is substituted (§4.E).
	results := make([]models.ToolResult, 0, len(calls))
	for _, call := range calls {
		payload, f := c.Tools.Execute(ctx, caller, call.Name, call.Arguments)
		result := models.ToolResult{ToolCallID: call.ID, Success: f == nil, Payload: payload, Error: f}
		results = append(results, result)

		event := sinks.ActionEvent{Timestamp: time.Now(), Action: "tool_call", Tool: call.Name, Success: f == nil}
		if f != nil {
			event.Error = f.Error()
			sink.LogAction(event)
			failures.Push(models.FailureRecord{
				Action:    call.Name,
				Arguments: json.RawMessage(call.Arguments),
				Error:     f.Error(),
				Timestamp: time.Now(),
			})
			sink.LogMemory(sinks.MemoryEvent{Timestamp: time.Now(), Kind: "failure_summary", Detail: f.Error()})
			continue
		}
		sink.LogAction(event)
		// Step 8: emit an event for the outcome.
		c.emit(ctx, session, call.Name, payload)
	}

	return &TickResult{ToolResults: results, PlanActions: len(calls)}, nil
}

// FinalVote makes one last submit_vote attempt on a HiddenProfiles
// participant's behalf before the Agent Manager stops it (§4.E step 9,
// §4.F's graceful-stop requirement). It is a no-op, not an error, for every
// other experiment kind.
func (c *Controller) FinalVote(ctx context.Context, session models.SessionCode, participant models.ParticipantCode, memory *models.AgentMemory, opts llm.Options, sink *sinks.Sinks) *models.Failure {
	sess, f := c.Store.GetSession(ctx, session)
	if f != nil {
		return f
	}
	if sess.ExperimentType != models.ExperimentHiddenProfiles {
		return nil
	}

	caller := tools.Caller{Session: session, Participant: participant}
	eng, _ := c.Factory.For(sess.ExperimentType)
	private, f := eng.GetParticipantState(ctx, session, participant)
	if f != nil {
		return f
	}
	if hasVoted, _ := private.Extra["has_voted"].(bool); hasVoted {
		return nil
	}

	reply, f := c.LLM.DecidePlain(ctx, memory.SystemPrompt,
		"The session is ending. Cast your final vote now using submit_vote; you will not get another turn.", opts)
	if f != nil {
		return f
	}
	for _, call := range mapPlanToToolCalls(llm.ExtractPlan(reply)) {
		if call.Name != "submit_vote" {
			continue
		}
		if _, f := c.Tools.Execute(ctx, caller, call.Name, call.Arguments); f != nil {
			return f
		}
		sink.LogMemory(sinks.MemoryEvent{Timestamp: time.Now(), Kind: "final_vote", Detail: string(call.Arguments)})
		return nil
	}
	c.Logger.Warn("final vote: agent produced no submit_vote", "session", session, "participant", participant)
	sink.LogMemory(sinks.MemoryEvent{Timestamp: time.Now(), Kind: "final_vote", Detail: "no submit_vote produced"})
	return nil
}

func (c *Controller) emit(ctx context.Context, session models.SessionCode, toolName string, payload any) {
	if c.Bus == nil {
		return
	}
	eventType, ok := map[string]models.EventType{
		"send_message":           models.EventNewMessage,
		"create_trade_offer":     models.EventNewTradeOffer,
		"respond_to_trade_offer": models.EventTradeOfferResponse,
		"cancel_trade_offer":     models.EventTradeOfferCancelled,
		"submit_vote":            models.EventVoteUpdate,
	}[toolName]
	if !ok {
		return
	}
	c.Bus.Publish(ctx, models.Event{Type: eventType, SessionCode: session, OccurredAt: time.Now(), Payload: payload})
}

func buildStatusUpdate(private *engine.PrivateState, public *engine.PublicState, unread []*models.Message, failures *models.FailureHistory) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session status: %s\n", public.Status)
	fmt.Fprintf(&b, "Your state: %s\n", marshalQuiet(private.Extra))
	if len(unread) > 0 {
		fmt.Fprintf(&b, "Unread messages (%d):\n", len(unread))
		for _, m := range unread {
			fmt.Fprintf(&b, "- from %s: %s\n", m.Sender, m.Content)
		}
	}
	if failures != nil {
		if entries := failures.Entries(); len(entries) > 0 {
			fmt.Fprintf(&b, "Recent failures:\n")
			for _, entry := range entries {
				fmt.Fprintf(&b, "- %s: %s\n", entry.Action, entry.Error)
			}
		}
	}
	return b.String()
}

func marshalQuiet(v any) string {
	payload, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(payload)
}

func summarizeCalls(calls []models.ToolCall) string {
	if len(calls) == 0 {
		return "(no tool calls)"
	}
	names := make([]string, len(calls))
	for i, c := range calls {
		names[i] = c.Name
	}
	return strings.Join(names, ", ")
}

// mapPlanToToolCalls is the §4.E plan-to-tool-call mapping table: every
// models.PlanActionType becomes exactly one tool call with its matching
// argument shape. Unknown action types are dropped silently (§9's "dynamic
// typing of LLM replies": tolerate, don't fail the tick over one bad entry).
func mapPlanToToolCalls(plan models.Plan) []models.ToolCall {
	calls := make([]models.ToolCall, 0, len(plan.Actions))
	for i, action := range plan.Actions {
		name, args := mapOne(action)
		if name == "" {
			continue
		}
		raw, err := json.Marshal(args)
		if err != nil {
			continue
		}
		calls = append(calls, models.ToolCall{ID: fmt.Sprintf("plan-%d", i), Name: name, Arguments: raw})
	}
	return calls
}

func mapOne(a models.PlanAction) (string, map[string]any) {
	switch a.Type {
	case models.ActionMessage:
		return "send_message", map[string]any{"recipient": a.Recipient, "content": a.Content}
	case models.ActionProposeTradeOffer:
		return "create_trade_offer", map[string]any{
			"recipient": a.Recipient, "offer_type": a.OfferType, "shape": a.Shape,
			"quantity": a.Quantity, "price_per_unit": int64(a.Price),
		}
	case models.ActionTradeResponse:
		return "respond_to_trade_offer", map[string]any{"transaction_id": a.TransactionID, "response": a.Response}
	case models.ActionCancelTradeOffer:
		return "cancel_trade_offer", map[string]any{"transaction_id": a.TransactionID}
	case models.ActionProduceShape:
		return "produce_shape", map[string]any{"shape": a.Shape, "quantity": a.Quantity}
	case models.ActionFulfillOrder:
		return "fulfill_orders", map[string]any{"order_indices": a.OrderIndices}
	case models.ActionMakeInvestment:
		return "make_investment", map[string]any{"invest_price": int64(a.InvestPrice), "invest_decision_type": a.InvestDecisionType}
	case models.ActionSubmitRanking:
		return "submit_ranking", map[string]any{"rankings": a.Rankings}
	case models.ActionGetAssignedEssays:
		return "get_assigned_essays", map[string]any{}
	case models.ActionGetEssayContent:
		return "get_essay_content", map[string]any{"essay_id": a.EssayID}
	case models.ActionSubmitVote:
		return "submit_vote", map[string]any{"candidate_name": a.CandidateName}
	default:
		return "", nil
	}
}
