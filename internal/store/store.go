// Package store defines the Store Port: typed, session-scoped CRUD over
// sessions, participants, messages, transactions, inventory, productions,
// votes, investments, and rankings. Every other component reaches persisted
// state only through this interface.
package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/haasonsaas/nexus/pkg/models"
)

// Store is the full Store Port surface. Implementations: memory (tests, the
// run-agent CLI) and postgres (production, §6.4).
//
// Every session-scoped method accepts a models.SessionCode; implementations
// MUST return *models.Failure{Kind: MissingSessionScope} if a caller omits it
// where a session-scoped entity is being touched (invariant 1). Methods that
// must serialize concurrent writers (AcceptTrade, PromoteCompletedProductions,
// FulfillOrders, broadcast seen_by updates) take a row lock on the driving
// row; callers may invoke them concurrently and rely on the documented
// atomicity.
type Store interface {
	SessionStore
	ParticipantStore
	MessageStore
	TransactionStore
	ProductionStore
	InvestmentStore
	EssayStore

	// Close releases any underlying resources (DB pool, files).
	Close() error
}

// SessionStore manages Session and TimerState records.
type SessionStore interface {
	CreateSession(ctx context.Context, s *models.Session) error
	GetSession(ctx context.Context, code models.SessionCode) (*models.Session, *models.Failure)
	UpdateSession(ctx context.Context, s *models.Session) *models.Failure
	UpdateSessionConfig(ctx context.Context, code models.SessionCode, mutate func(*models.SessionConfig)) *models.Failure

	GetTimerState(ctx context.Context, code models.SessionCode) (*models.TimerState, *models.Failure)
	PutTimerState(ctx context.Context, state *models.TimerState) *models.Failure
}

// ParticipantStore manages Participant records.
type ParticipantStore interface {
	AddParticipant(ctx context.Context, p *models.Participant) *models.Failure
	GetParticipant(ctx context.Context, session models.SessionCode, code models.ParticipantCode) (*models.Participant, *models.Failure)
	ListParticipants(ctx context.Context, session models.SessionCode) ([]*models.Participant, *models.Failure)
	UpdateParticipant(ctx context.Context, p *models.Participant) *models.Failure

	GetInventory(ctx context.Context, session models.SessionCode, code models.ParticipantCode) ([]string, *models.Failure)
	SetInventory(ctx context.Context, session models.SessionCode, code models.ParticipantCode, shapes []string) *models.Failure
}

// MessageStore manages chat Messages, including broadcast seen_by tracking.
type MessageStore interface {
	CreateMessage(ctx context.Context, m *models.Message) *models.Failure
	GetMessage(ctx context.Context, session models.SessionCode, id string) (*models.Message, *models.Failure)
	ListMessages(ctx context.Context, session models.SessionCode, participant models.ParticipantCode) ([]*models.Message, *models.Failure)
	ListUnread(ctx context.Context, session models.SessionCode, participant models.ParticipantCode) ([]*models.Message, *models.Failure)

	MarkDirectRead(ctx context.Context, session models.SessionCode, messageID string) *models.Failure
	// MarkBroadcastSeen is idempotent per (messageID, participant).
	MarkBroadcastSeen(ctx context.Context, session models.SessionCode, messageID string, participant models.ParticipantCode) *models.Failure
	// MaybeMarkBroadcastRead flips delivered_status to read iff seen_by
	// covers every participant in the session. Idempotent.
	MaybeMarkBroadcastRead(ctx context.Context, session models.SessionCode, messageID string) *models.Failure
}

// TransactionStore manages ShapeFactory trade offers.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, t *models.Transaction) *models.Failure
	GetTransaction(ctx context.Context, session models.SessionCode, idOrShortID string) (*models.Transaction, *models.Failure)
	ListTransactions(ctx context.Context, session models.SessionCode, participant models.ParticipantCode) ([]*models.Transaction, *models.Failure)

	// AcceptTrade is the atomic accept_trade operation (§4.A). It locks the
	// transaction row in proposed state, validates funds/inventory, and on
	// success flips status and moves money/shapes atomically. Concurrent
	// accepts on the same transaction yield exactly one completed and the
	// rest AlreadyProcessed with no side effect (invariant 4/5, testable
	// property 5).
	AcceptTrade(ctx context.Context, session models.SessionCode, idOrShortID string, accepter models.ParticipantCode) (*models.Transaction, *models.Failure)
	RejectTrade(ctx context.Context, session models.SessionCode, idOrShortID string) (*models.Transaction, *models.Failure)
	CancelTrade(ctx context.Context, session models.SessionCode, idOrShortID string, proposer models.ParticipantCode) (*models.Transaction, *models.Failure)
}

// ProductionStore manages ShapeFactory production queue entries.
type ProductionStore interface {
	EnqueueProduction(ctx context.Context, e *models.ProductionQueueEntry) *models.Failure
	ListProductionQueue(ctx context.Context, session models.SessionCode, participant models.ParticipantCode) ([]*models.ProductionQueueEntry, *models.Failure)

	// PromoteCompletedProductions marks every in_progress entry whose
	// EstimatedCompletion <= now as completed and deposits its shapes into
	// the owner's inventory. It MUST NOT start the next queued entry.
	PromoteCompletedProductions(ctx context.Context, session models.SessionCode, now time.Time) ([]*models.ProductionQueueEntry, *models.Failure)

	// StartNextQueued promotes the oldest queued entry for participant to
	// in_progress. Participant-initiated only; never called automatically.
	StartNextQueued(ctx context.Context, session models.SessionCode, participant models.ParticipantCode, now time.Time) (*models.ProductionQueueEntry, *models.Failure)

	// FulfillOrders atomically consumes inventory tags at the requested
	// order indices, increments orders_completed, and credits incentive
	// money per order. All-or-nothing across the batch.
	FulfillOrders(ctx context.Context, session models.SessionCode, participant models.ParticipantCode, indices []int, incentivePerOrder decimal.Decimal) (*FulfillResult, *models.Failure)
}

// FulfillResult is the success payload of FulfillOrders.
type FulfillResult struct {
	FulfilledCount int
	NewMoney       decimal.Decimal
	NewOrders      []string
	NewInventory   []string
}

// InvestmentStore manages DayTrader investments.
type InvestmentStore interface {
	CreateInvestment(ctx context.Context, inv *models.Investment) *models.Failure
	ListInvestments(ctx context.Context, session models.SessionCode, participant models.ParticipantCode) ([]*models.Investment, *models.Failure)
}

// EssayStore manages EssayRanking essays/assignments/submissions and
// HiddenProfiles candidate documents.
type EssayStore interface {
	GetEssay(ctx context.Context, session models.SessionCode, essayID string) (*models.Essay, *models.Failure)
	GetAssignment(ctx context.Context, session models.SessionCode, participant models.ParticipantCode) (*models.EssayAssignment, *models.Failure)
	SubmitRanking(ctx context.Context, sub *models.RankingSubmission) (*models.Participant, *models.Failure)

	GetCandidateDocument(ctx context.Context, session models.SessionCode, participant models.ParticipantCode) (*models.CandidateDocument, *models.Failure)
	// SetPublicInfo marks the shared HiddenProfiles publicInfo document as
	// present; half of ReadingPhaseComplete's condition.
	SetPublicInfo(ctx context.Context, session models.SessionCode) *models.Failure
	ReadingPhaseComplete(ctx context.Context, session models.SessionCode) (bool, *models.Failure)
}
