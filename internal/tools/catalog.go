package tools

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/haasonsaas/nexus/internal/llm"
	"github.com/haasonsaas/nexus/pkg/models"
)

func obj(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func prop(kind, description string) map[string]any {
	return map[string]any{"type": kind, "description": description}
}

var commonCatalog = []llm.ToolSchema{
	{
		Name:        "get_game_state",
		Description: "Fetch your private state and the session's public state.",
		Parameters:  obj(map[string]any{}),
	},
	{
		Name:        "send_message",
		Description: "Send a chat message. recipient is a participant_code, or \"all\" when the session's communication level permits it.",
		Parameters: obj(map[string]any{
			"recipient": prop("string", "Participant code to message, or \"all\" for a broadcast."),
			"content":   prop("string", "Message text."),
		}, "content"),
	},
	{
		Name:        "mark_messages_as_read",
		Description: "Mark one or more received messages as read. Omit message_ids to mark every unread message.",
		Parameters: obj(map[string]any{
			"message_ids": map[string]any{
				"type":        "array",
				"description": "Message ids to mark read; empty marks all unread.",
				"items":       map[string]any{"type": "string"},
			},
		}),
	},
}

var shapeFactoryCatalog = []llm.ToolSchema{
	{
		Name:        "produce_shape",
		Description: "Queue production of a shape. Starts immediately if nothing is already in progress, otherwise queues behind it.",
		Parameters: obj(map[string]any{
			"shape":    prop("string", "Shape to produce."),
			"quantity": prop("integer", "Number of units to produce."),
		}, "shape", "quantity"),
	},
	{
		Name:        "process_completed_productions",
		Description: "Promote any production whose time has elapsed into your inventory. Never auto-starts the next queued item.",
		Parameters:  obj(map[string]any{}),
	},
	{
		Name:        "fulfill_orders",
		Description: "Consume inventory against your current orders at the given indices, earning incentive money.",
		Parameters: obj(map[string]any{
			"order_indices": map[string]any{
				"type":        "array",
				"description": "Indices into your current orders list to fulfill.",
				"items":       map[string]any{"type": "integer"},
			},
		}, "order_indices"),
	},
	{
		Name:        "create_trade_offer",
		Description: "Propose a trade to another participant.",
		Parameters: obj(map[string]any{
			"recipient":      prop("string", "Participant code to trade with."),
			"offer_type":     map[string]any{"type": "string", "description": "buy or sell.", "enum": []string{"buy", "sell"}},
			"shape":          prop("string", "Shape being traded."),
			"quantity":       prop("integer", "Quantity."),
			"price_per_unit": prop("integer", "Price per unit, within the session's allowed trade range."),
		}, "recipient", "offer_type", "shape", "quantity", "price_per_unit"),
	},
	{
		Name:        "respond_to_trade_offer",
		Description: "Accept or decline a pending trade offer addressed to you.",
		Parameters: obj(map[string]any{
			"transaction_id": prop("string", "The transaction id from the offer."),
			"response":       map[string]any{"type": "string", "description": "accept or decline.", "enum": []string{"accept", "decline"}},
		}, "transaction_id", "response"),
	},
	{
		Name:        "cancel_trade_offer",
		Description: "Cancel a trade offer you proposed that has not yet been accepted.",
		Parameters: obj(map[string]any{
			"transaction_id": prop("string", "The transaction id to cancel."),
		}, "transaction_id"),
	},
}

var dayTraderCatalog = []llm.ToolSchema{
	{
		Name:        "make_investment",
		Description: "Invest at a price within the session's configured range.",
		Parameters: obj(map[string]any{
			"invest_price":         prop("integer", "Investment price, within [min_trade_price, max_trade_price]."),
			"invest_decision_type": map[string]any{"type": "string", "description": "individual or group.", "enum": []string{"individual", "group"}},
		}, "invest_price"),
	},
	{
		Name:        "get_investment_history",
		Description: "List your past investments.",
		Parameters:  obj(map[string]any{}),
	},
}

var essayRankingCatalog = []llm.ToolSchema{
	{
		Name:        "submit_ranking",
		Description: "Submit or update a ranking for one or more of your assigned essays. Re-submitting an essay_id overwrites its prior rank.",
		Parameters: obj(map[string]any{
			"rankings": map[string]any{
				"type":        "array",
				"description": "Ranking entries, each naming an assigned essay_id, its rank, and optional reasoning.",
				"items": obj(map[string]any{
					"essay_id":  prop("string", "Essay id; must be in your assignment."),
					"rank":      prop("integer", "Your rank for this essay."),
					"reasoning": prop("string", "Optional rationale."),
				}, "essay_id", "rank"),
			},
		}, "rankings"),
	},
	{
		Name:        "get_assigned_essays",
		Description: "List the essay ids assigned to you.",
		Parameters:  obj(map[string]any{}),
	},
	{
		Name:        "get_essay_content",
		Description: "Read the full text of one of your assigned essays.",
		Parameters: obj(map[string]any{
			"essay_id": prop("string", "Essay id; must be in your assignment."),
		}, "essay_id"),
	},
}

var wordGuessingCatalog = []llm.ToolSchema{
	{
		Name:        "get_assigned_words",
		Description: "Hinter-only: list the words assigned to you, one per round.",
		Parameters:  obj(map[string]any{}),
	},
}

var hiddenProfilesCatalog = []llm.ToolSchema{
	{
		Name:        "submit_vote",
		Description: "Cast or change your vote for the candidate you judge best. Overwritable until the session ends.",
		Parameters: obj(map[string]any{
			"candidate_name": prop("string", "Name of the candidate you are voting for."),
		}, "candidate_name"),
	},
}

// Catalog returns the closed tool set available to agents in a session of
// the given experiment kind: the three shared tools plus that kind's
// game-specific actions (§4.D, §6.1).
func Catalog(kind models.ExperimentType) []llm.ToolSchema {
	var kindSpecific []llm.ToolSchema
	switch kind {
	case models.ExperimentShapeFactory:
		kindSpecific = shapeFactoryCatalog
	case models.ExperimentDayTrader:
		kindSpecific = dayTraderCatalog
	case models.ExperimentEssayRanking:
		kindSpecific = essayRankingCatalog
	case models.ExperimentWordGuessing:
		kindSpecific = wordGuessingCatalog
	case models.ExperimentHiddenProfiles:
		kindSpecific = hiddenProfilesCatalog
	}
	out := make([]llm.ToolSchema, 0, len(commonCatalog)+len(kindSpecific))
	out = append(out, commonCatalog...)
	out = append(out, kindSpecific...)
	return out
}

// compiledSchemas lazily compiles every catalog entry's JSON Schema once,
// keyed by tool name, so repeated Validate calls across a long-running
// Agent Manager don't re-parse schema documents every tick.
var (
	compileOnce sync.Once
	compiled    map[string]*jsonschema.Schema
	compileErr  error
)

func allSchemas() []llm.ToolSchema {
	seen := make(map[string]bool)
	var all []llm.ToolSchema
	for _, kind := range []models.ExperimentType{
		models.ExperimentShapeFactory, models.ExperimentDayTrader,
		models.ExperimentEssayRanking, models.ExperimentWordGuessing,
		models.ExperimentHiddenProfiles,
	} {
		for _, t := range Catalog(kind) {
			if !seen[t.Name] {
				seen[t.Name] = true
				all = append(all, t)
			}
		}
	}
	return all
}

func ensureCompiled() error {
	compileOnce.Do(func() {
		compiled = make(map[string]*jsonschema.Schema)
		for _, t := range allSchemas() {
			raw, err := json.Marshal(t.Parameters)
			if err != nil {
				compileErr = fmt.Errorf("marshal schema for %s: %w", t.Name, err)
				return
			}
			s, err := jsonschema.CompileString(t.Name+".schema.json", string(raw))
			if err != nil {
				compileErr = fmt.Errorf("compile schema for %s: %w", t.Name, err)
				return
			}
			compiled[t.Name] = s
		}
	})
	return compileErr
}

// Validate checks raw tool-call arguments against the published JSON Schema
// for name before the Dispatcher ever touches a Game Engine (§4.D).
func Validate(name string, args json.RawMessage) *models.Failure {
	if err := ensureCompiled(); err != nil {
		return models.NewFailure(models.ErrInvalidState, "tool schema compilation: %v", err)
	}
	schema, ok := compiled[name]
	if !ok {
		return models.NewFailure(models.ErrInvalidState, "unknown tool %q", name)
	}
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	var doc any
	if err := json.Unmarshal(args, &doc); err != nil {
		return models.NewFailure(models.ErrInvalidState, "invalid JSON arguments for %s: %v", name, err)
	}
	if err := schema.Validate(doc); err != nil {
		return models.NewFailure(models.ErrInvalidState, "arguments for %s failed validation: %v", name, err)
	}
	return nil
}
