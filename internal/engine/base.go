package engine

import (
	"context"
	"crypto/rand"
	"strconv"
	"time"

	"github.com/haasonsaas/nexus/internal/store"
	"github.com/haasonsaas/nexus/pkg/models"
)

// sessionCodeLength and sessionCodeAlphabet use unambiguous characters only
// (no 0/O/1/I), matching other short human-facing codes in this codebase.
const (
	sessionCodeLength   = 6
	sessionCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

func generateSessionCode() models.SessionCode {
	b := make([]byte, sessionCodeLength)
	_, _ = rand.Read(b)
	code := make([]byte, sessionCodeLength)
	for i := range code {
		code[i] = sessionCodeAlphabet[int(b[i])%len(sessionCodeAlphabet)]
	}
	return models.SessionCode(code)
}

// Base bundles the Store Port handle and the small pieces of common logic
// (create/add/message/start/end) that every engine shares verbatim, per
// spec.md §4.C's shared engine interface. Concrete engines embed Base and
// override GetParticipantState/GetPublicState with kind-specific payloads.
type Base struct {
	Store store.Store
	Kind  models.ExperimentType
	Desc  string
}

func (b *Base) ExperimentType() models.ExperimentType { return b.Kind }

func (b *Base) CreateSession(ctx context.Context, researcher string, config models.SessionConfig) (*models.Session, *models.Failure) {
	sess := &models.Session{
		SessionCode:    generateSessionCode(),
		ExperimentType: b.Kind,
		Status:         models.SessionIdle,
		Config:         config,
	}
	if err := b.Store.CreateSession(ctx, sess); err != nil {
		return nil, models.NewFailure(models.ErrStoreError, "create_session: %v", err)
	}
	return sess, nil
}

func (b *Base) AddParticipant(ctx context.Context, session models.SessionCode, code models.ParticipantCode, ptype models.ParticipantType) (*models.Participant, *models.Failure) {
	p := &models.Participant{
		ParticipantCode: code,
		SessionCode:     session,
		Type:            ptype,
		LoginStatus:     models.LoginNotLoggedIn,
	}
	if f := b.Store.AddParticipant(ctx, p); f != nil {
		return nil, f
	}
	return p, nil
}

func (b *Base) SendMessage(ctx context.Context, session models.SessionCode, sender models.ParticipantCode, recipient string, content string) (*models.Message, *models.Failure) {
	sess, f := b.Store.GetSession(ctx, session)
	if f != nil {
		return nil, f
	}

	m := &models.Message{
		SessionCode: session,
		Sender:      sender,
		Content:     content,
		Timestamp:   time.Now(),
		Type:        "chat",
	}

	switch sess.Config.CommunicationLevel {
	case models.CommChat:
		if recipient == "" || recipient == "all" {
			return nil, models.NewFailure(models.ErrCommunicationLevelViolation, "broadcast messaging is disabled in chat mode")
		}
		rc := models.ParticipantCode(recipient)
		m.Recipient = &rc
	case models.CommBroadcast:
		// any send_message has recipient forced to "all" (broadcast).
	case models.CommNoChat:
		return nil, models.NewFailure(models.ErrCommunicationLevelViolation, "messaging is disabled for this session")
	default:
		if recipient != "" && recipient != "all" {
			rc := models.ParticipantCode(recipient)
			m.Recipient = &rc
		}
	}

	if f := b.Store.CreateMessage(ctx, m); f != nil {
		return nil, f
	}
	return m, nil
}

func (b *Base) StartSession(ctx context.Context, session models.SessionCode) *models.Failure {
	sess, f := b.Store.GetSession(ctx, session)
	if f != nil {
		return f
	}
	sess.Status = models.SessionActive
	return b.Store.UpdateSession(ctx, sess)
}

func (b *Base) EndSession(ctx context.Context, session models.SessionCode) *models.Failure {
	sess, f := b.Store.GetSession(ctx, session)
	if f != nil {
		return f
	}
	sess.Status = models.SessionCompleted
	return b.Store.UpdateSession(ctx, sess)
}

// AwarenessView builds the common get_public_state participant listing,
// gating extras behind config.AwarenessDashboard (§4.C.6).
func AwarenessView(participants []*models.Participant, dashboard bool, withShapeFactoryExtras bool) []ParticipantView {
	out := make([]ParticipantView, 0, len(participants))
	for _, p := range participants {
		v := ParticipantView{ParticipantCode: p.ParticipantCode, DisplayName: string(p.ParticipantCode)}
		if dashboard {
			money := p.Money.String()
			v.Money = &money
			if withShapeFactoryExtras {
				progress := formatOrdersProgress(p)
				v.OrdersProgress = &progress
				count := p.SpecialtyProductionUsed
				v.ProductionCount = &count
			}
		}
		out = append(out, v)
	}
	return out
}

func formatOrdersProgress(p *models.Participant) string {
	total := p.OrdersCompleted + len(p.Orders)
	if total == 0 {
		return "0/0"
	}
	return strconv.Itoa(p.OrdersCompleted) + "/" + strconv.Itoa(total)
}
