// Package shapefactory implements the ShapeFactory Game Engine (spec.md
// §4.C.1): specialty-shape production queues, deterministic per-participant
// orders, and a ShapeFactory trade state machine.
package shapefactory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/haasonsaas/nexus/internal/engine"
	"github.com/haasonsaas/nexus/internal/store"
	"github.com/haasonsaas/nexus/pkg/models"
)

// Engine is the ShapeFactory Game Engine.
type Engine struct {
	engine.Base
}

// New builds a ShapeFactory engine over st.
func New(st store.Store) *Engine {
	return &Engine{Base: engine.Base{Store: st, Kind: models.ExperimentShapeFactory, Desc: "ShapeFactory: produce, trade, and fulfil shape orders."}}
}

var _ engine.Engine = (*Engine)(nil)

// defaultShapeCatalog is the built-in specialty pool used when a session's
// config does not list one under Extra["shapes"].
var defaultShapeCatalog = []string{"circle", "square", "triangle", "star", "hexagon"}

func shapeCatalog(cfg models.SessionConfig) []string {
	if raw, ok := cfg.Extra["shapes"]; ok {
		if list, ok := raw.([]string); ok && len(list) > 0 {
			return list
		}
	}
	return defaultShapeCatalog
}

// AddParticipant assigns the next specialty shape round-robin from the
// session's catalog and generates the participant's deterministic order
// sequence from it (§4.C.1).
func (e *Engine) AddParticipant(ctx context.Context, session models.SessionCode, code models.ParticipantCode, ptype models.ParticipantType) (*models.Participant, *models.Failure) {
	sess, f := e.Store.GetSession(ctx, session)
	if f != nil {
		return nil, f
	}

	existing, f := e.Store.ListParticipants(ctx, session)
	if f != nil {
		return nil, f
	}

	catalog := shapeCatalog(sess.Config)
	specialty := catalog[len(existing)%len(catalog)]

	others := make([]string, 0, len(catalog)-1)
	for _, s := range catalog {
		if s != specialty {
			others = append(others, s)
		}
	}

	p := &models.Participant{
		ParticipantCode: code,
		SessionCode:     session,
		Type:            ptype,
		SpecialtyShape:  specialty,
		Money:           decimal.NewFromInt(sess.Config.StartingMoney),
		LoginStatus:     models.LoginNotLoggedIn,
	}
	p.Orders = GenerateOrders(specialty, session, others, sess.Config.ShapesPerOrder)

	if f := e.Store.AddParticipant(ctx, p); f != nil {
		return nil, f
	}
	return p, nil
}

// ProduceShape is produce_shape (§6.1). Cost is specialtyCost for the
// participant's own specialty, regularCost otherwise; respects
// maxProductionNum. Queue discipline: starts immediately if nothing is
// in_progress, else appended as queued (§4.C.1); no auto-advance.
func (e *Engine) ProduceShape(ctx context.Context, session models.SessionCode, participant models.ParticipantCode, shape string, quantity int) (*models.ProductionQueueEntry, *models.Failure) {
	if quantity < 1 {
		return nil, models.NewFailure(models.ErrInvalidQuantity, "quantity must be >= 1")
	}

	sess, f := e.Store.GetSession(ctx, session)
	if f != nil {
		return nil, f
	}
	p, f := e.Store.GetParticipant(ctx, session, participant)
	if f != nil {
		return nil, f
	}

	cost := sess.Config.RegularCost
	if shape == p.SpecialtyShape {
		cost = sess.Config.SpecialtyCost
		if p.SpecialtyProductionUsed+quantity > sess.Config.MaxProductionNum {
			return nil, models.NewFailure(models.ErrProductionLimitReached, "production limit %d reached", sess.Config.MaxProductionNum)
		}
	}

	totalCost := decimal.NewFromInt(cost).Mul(decimal.NewFromInt(int64(quantity)))
	if p.Money.LessThan(totalCost) {
		return nil, models.NewFailure(models.ErrInsufficientFunds, "insufficient funds to produce %d x %s", quantity, shape)
	}

	queue, f := e.Store.ListProductionQueue(ctx, session, participant)
	if f != nil {
		return nil, f
	}
	var priorDuration time.Duration
	for _, q := range queue {
		if q.Status != models.ProductionCompleted {
			priorDuration += time.Duration(q.Quantity) * time.Duration(sess.Config.ProductionTime) * time.Second
		}
	}

	now := time.Now()
	own := time.Duration(quantity) * time.Duration(sess.Config.ProductionTime) * time.Second
	entry := &models.ProductionQueueEntry{
		QueueID:             uuid.NewString(),
		SessionCode:         session,
		ParticipantCode:     participant,
		Shape:               shape,
		Quantity:            quantity,
		StartTime:           now,
		EstimatedCompletion: now.Add(priorDuration + own),
	}

	if f := e.Store.EnqueueProduction(ctx, entry); f != nil {
		return nil, f
	}

	p.Money = p.Money.Sub(totalCost)
	if shape == p.SpecialtyShape {
		p.SpecialtyProductionUsed += quantity
	}
	if f := e.Store.UpdateParticipant(ctx, p); f != nil {
		return nil, f
	}
	return entry, nil
}

// ProcessCompletedProductions wraps promote_completed_productions (§4.A),
// called on every agent perceive and on participant-initiated refresh.
func (e *Engine) ProcessCompletedProductions(ctx context.Context, session models.SessionCode) ([]*models.ProductionQueueEntry, *models.Failure) {
	return e.Store.PromoteCompletedProductions(ctx, session, time.Now())
}

// StartNextQueued is the explicit, participant-initiated queued->in_progress
// promotion spec.md insists promote_completed_productions must never do.
func (e *Engine) StartNextQueued(ctx context.Context, session models.SessionCode, participant models.ParticipantCode) (*models.ProductionQueueEntry, *models.Failure) {
	return e.Store.StartNextQueued(ctx, session, participant, time.Now())
}

// FulfillOrders is fulfill_orders (§6.1); all-or-nothing across the batch.
func (e *Engine) FulfillOrders(ctx context.Context, session models.SessionCode, participant models.ParticipantCode, indices []int) (*store.FulfillResult, *models.Failure) {
	sess, f := e.Store.GetSession(ctx, session)
	if f != nil {
		return nil, f
	}
	return e.Store.FulfillOrders(ctx, session, participant, indices, decimal.NewFromInt(sess.Config.IncentiveMoney))
}

// CreateTradeOffer is create_trade_offer (§6.1).
func (e *Engine) CreateTradeOffer(ctx context.Context, session models.SessionCode, proposer models.ParticipantCode, recipient models.ParticipantCode, offerType models.OfferType, shape string, quantity int, pricePerUnit int64) (*models.Transaction, *models.Failure) {
	sess, f := e.Store.GetSession(ctx, session)
	if f != nil {
		return nil, f
	}
	price := decimal.NewFromInt(pricePerUnit)
	min := decimal.NewFromInt(sess.Config.MinTradePrice)
	max := decimal.NewFromInt(sess.Config.MaxTradePrice)
	if price.LessThan(min) || price.GreaterThan(max) {
		return nil, models.NewFailure(models.ErrInvalidPrice, "price %s outside [%s, %s]", price, min, max)
	}
	if quantity < 1 {
		return nil, models.NewFailure(models.ErrInvalidQuantity, "quantity must be >= 1")
	}
	if proposer == recipient {
		return nil, models.NewFailure(models.ErrSelfOfferForbidden, "cannot offer a trade to yourself")
	}

	t := &models.Transaction{
		SessionCode: session,
		Proposer:    proposer,
		Recipient:   recipient,
		OfferType:   offerType,
		Shape:       shape,
		Quantity:    quantity,
		Price:       price,
	}
	if offerType == models.OfferSell {
		t.Seller, t.Buyer = proposer, recipient
	} else {
		t.Buyer, t.Seller = proposer, recipient
	}

	if f := e.Store.CreateTransaction(ctx, t); f != nil {
		return nil, f
	}
	return t, nil
}

// RespondToTradeOffer is respond_to_trade_offer (§6.1): "decline" maps to
// reject at the tool surface; engine only sees accept/reject.
func (e *Engine) RespondToTradeOffer(ctx context.Context, session models.SessionCode, responder models.ParticipantCode, idOrShortID string, response string) (*models.Transaction, *models.Failure) {
	switch response {
	case "accept":
		return e.Store.AcceptTrade(ctx, session, idOrShortID, responder)
	case "reject":
		return e.Store.RejectTrade(ctx, session, idOrShortID)
	default:
		return nil, models.NewFailure(models.ErrInvalidState, "unknown trade response %q", response)
	}
}

// CancelTradeOffer is cancel_trade_offer (§6.1); only the proposer may
// cancel.
func (e *Engine) CancelTradeOffer(ctx context.Context, session models.SessionCode, proposer models.ParticipantCode, idOrShortID string) (*models.Transaction, *models.Failure) {
	return e.Store.CancelTrade(ctx, session, idOrShortID, proposer)
}

func (e *Engine) GetParticipantState(ctx context.Context, session models.SessionCode, code models.ParticipantCode) (*engine.PrivateState, *models.Failure) {
	p, f := e.Store.GetParticipant(ctx, session, code)
	if f != nil {
		return nil, f
	}
	inv, f := e.Store.GetInventory(ctx, session, code)
	if f != nil {
		return nil, f
	}
	queue, f := e.Store.ListProductionQueue(ctx, session, code)
	if f != nil {
		return nil, f
	}
	sent, f := e.Store.ListTransactions(ctx, session, code)
	if f != nil {
		return nil, f
	}

	return &engine.PrivateState{
		ParticipantCode: code,
		Extra: map[string]any{
			"money":             p.Money.String(),
			"specialty_shape":   p.SpecialtyShape,
			"inventory":         inv,
			"orders":            p.Orders,
			"orders_completed":  p.OrdersCompleted,
			"production_queue":  queue,
			"production_used":   p.SpecialtyProductionUsed,
			"transactions":      sent,
		},
	}, nil
}

func (e *Engine) GetPublicState(ctx context.Context, session models.SessionCode) (*engine.PublicState, *models.Failure) {
	sess, f := e.Store.GetSession(ctx, session)
	if f != nil {
		return nil, f
	}
	participants, f := e.Store.ListParticipants(ctx, session)
	if f != nil {
		return nil, f
	}
	timer, f := e.Store.GetTimerState(ctx, session)
	if f != nil {
		timer = &models.TimerState{SessionCode: session, ExperimentStatus: sess.Status}
	}

	return &engine.PublicState{
		Status:                sess.Status,
		Participants:          engine.AwarenessView(participants, sess.Config.AwarenessDashboard, true),
		ExperimentConfig:      sess.Config,
		ExperimentType:        sess.ExperimentType,
		Timer:                 *timer,
		ExperimentDescription: e.Desc,
	}, nil
}
