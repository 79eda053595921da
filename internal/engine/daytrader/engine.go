// Package daytrader implements the DayTrader Game Engine (spec.md §4.C.2): a
// single investment action against a configured price range.
package daytrader

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/haasonsaas/nexus/internal/engine"
	"github.com/haasonsaas/nexus/internal/store"
	"github.com/haasonsaas/nexus/pkg/models"
)

// Engine is the DayTrader Game Engine.
type Engine struct {
	engine.Base
}

// New builds a DayTrader engine over st.
func New(st store.Store) *Engine {
	return &Engine{Base: engine.Base{Store: st, Kind: models.ExperimentDayTrader, Desc: "DayTrader: make investments within a configured price range."}}
}

var _ engine.Engine = (*Engine)(nil)

func (e *Engine) AddParticipant(ctx context.Context, session models.SessionCode, code models.ParticipantCode, ptype models.ParticipantType) (*models.Participant, *models.Failure) {
	sess, f := e.Store.GetSession(ctx, session)
	if f != nil {
		return nil, f
	}
	p := &models.Participant{
		ParticipantCode: code,
		SessionCode:     session,
		Type:            ptype,
		Money:           decimal.NewFromInt(sess.Config.StartingMoney),
		LoginStatus:     models.LoginNotLoggedIn,
	}
	if f := e.Store.AddParticipant(ctx, p); f != nil {
		return nil, f
	}
	return p, nil
}

// MakeInvestment is make_investment (§4.C.2): records the investment and
// debits its price from the participant's money. This is the baseline
// variant — no return is modeled, by design; DayTrader measures decision
// behavior, not portfolio outcome.
func (e *Engine) MakeInvestment(ctx context.Context, session models.SessionCode, participant models.ParticipantCode, price int64, decisionType models.InvestmentDecisionType) (*models.Investment, *models.Failure) {
	sess, f := e.Store.GetSession(ctx, session)
	if f != nil {
		return nil, f
	}
	priceDec := decimal.NewFromInt(price)
	min := decimal.NewFromInt(sess.Config.MinTradePrice)
	max := decimal.NewFromInt(sess.Config.MaxTradePrice)
	if priceDec.LessThan(min) || priceDec.GreaterThan(max) {
		return nil, models.NewFailure(models.ErrInvalidPrice, "price %s outside [%s, %s]", priceDec, min, max)
	}

	p, f := e.Store.GetParticipant(ctx, session, participant)
	if f != nil {
		return nil, f
	}
	if p.Money.LessThan(priceDec) {
		return nil, models.NewFailure(models.ErrInsufficientFunds, "insufficient funds to invest %s", priceDec)
	}

	inv := &models.Investment{
		InvestmentID:    uuid.NewString(),
		SessionCode:     session,
		ParticipantCode: participant,
		Price:           priceDec,
		DecisionType:    decisionType,
	}
	if f := e.Store.CreateInvestment(ctx, inv); f != nil {
		return nil, f
	}

	p.Money = p.Money.Sub(priceDec)
	if f := e.Store.UpdateParticipant(ctx, p); f != nil {
		return nil, f
	}
	return inv, nil
}

// GetInvestmentHistory is get_investment_history (§4.C.2).
func (e *Engine) GetInvestmentHistory(ctx context.Context, session models.SessionCode, participant models.ParticipantCode) ([]*models.Investment, *models.Failure) {
	return e.Store.ListInvestments(ctx, session, participant)
}

func (e *Engine) GetParticipantState(ctx context.Context, session models.SessionCode, code models.ParticipantCode) (*engine.PrivateState, *models.Failure) {
	p, f := e.Store.GetParticipant(ctx, session, code)
	if f != nil {
		return nil, f
	}
	history, f := e.Store.ListInvestments(ctx, session, code)
	if f != nil {
		return nil, f
	}
	return &engine.PrivateState{
		ParticipantCode: code,
		Extra: map[string]any{
			"money":              p.Money.String(),
			"investment_history": history,
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
		Participants:          engine.AwarenessView(participants, sess.Config.AwarenessDashboard, false),
		ExperimentConfig:      sess.Config,
		ExperimentType:        sess.ExperimentType,
		Timer:                 *timer,
		ExperimentDescription: e.Desc,
	}, nil
}
