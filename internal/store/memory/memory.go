// Package memory implements the Store Port entirely in process memory. It
// backs the run-agent CLI and the integration tests for scenarios S1-S6; it
// is not meant to survive a process restart (see spec's Non-goals).
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/haasonsaas/nexus/internal/store"
	"github.com/haasonsaas/nexus/pkg/models"
)

// sessionLock is a refcounted per-session mutex: the last unlocker of a
// session removes its entry so the lock map never grows unbounded across a
// long-running process with many short-lived sessions.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// Store is the in-memory Store Port implementation. All exported methods are
// safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	sessions     map[models.SessionCode]*models.Session
	timers       map[models.SessionCode]*models.TimerState
	participants map[models.SessionCode]map[models.ParticipantCode]*models.Participant
	inventory    map[models.SessionCode]map[models.ParticipantCode][]string
	messages     map[models.SessionCode]map[string]*models.Message
	messageOrder map[models.SessionCode][]string
	transactions map[models.SessionCode]map[string]*models.Transaction
	shortIDIndex map[models.SessionCode]map[string]string // short_id -> uuid
	shortIDSeq   map[models.SessionCode]int
	productions  map[models.SessionCode]map[models.ParticipantCode][]*models.ProductionQueueEntry
	investments  map[models.SessionCode]map[models.ParticipantCode][]*models.Investment
	essays       map[models.SessionCode]map[string]*models.Essay
	assignments  map[models.SessionCode]map[models.ParticipantCode]*models.EssayAssignment
	candidates   map[models.SessionCode]map[models.ParticipantCode]*models.CandidateDocument

	locksMu sync.Mutex
	locks   map[models.SessionCode]*sessionLock
}

// New returns an empty in-memory Store.
func New() *Store {
	return &Store{
		sessions:      make(map[models.SessionCode]*models.Session),
		timers:        make(map[models.SessionCode]*models.TimerState),
		participants:  make(map[models.SessionCode]map[models.ParticipantCode]*models.Participant),
		inventory:     make(map[models.SessionCode]map[models.ParticipantCode][]string),
		messages:      make(map[models.SessionCode]map[string]*models.Message),
		messageOrder:  make(map[models.SessionCode][]string),
		transactions:  make(map[models.SessionCode]map[string]*models.Transaction),
		shortIDIndex:  make(map[models.SessionCode]map[string]string),
		shortIDSeq:    make(map[models.SessionCode]int),
		productions:   make(map[models.SessionCode]map[models.ParticipantCode][]*models.ProductionQueueEntry),
		investments:   make(map[models.SessionCode]map[models.ParticipantCode][]*models.Investment),
		essays:        make(map[models.SessionCode]map[string]*models.Essay),
		assignments:   make(map[models.SessionCode]map[models.ParticipantCode]*models.EssayAssignment),
		candidates:    make(map[models.SessionCode]map[models.ParticipantCode]*models.CandidateDocument),
		locks:         make(map[models.SessionCode]*sessionLock),
	}
}

var _ store.Store = (*Store)(nil)

func (s *Store) Close() error { return nil }

// lockSession serializes the atomic operations (accept_trade,
// promote_completed_productions, fulfill_orders, broadcast seen_by) that
// spec.md §4.A/§5 require row-level locking for.
func (s *Store) lockSession(session models.SessionCode) func() {
	s.locksMu.Lock()
	l := s.locks[session]
	if l == nil {
		l = &sessionLock{}
		s.locks[session] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.locksMu.Lock()
		l.refs--
		if l.refs <= 0 {
			delete(s.locks, session)
		}
		s.locksMu.Unlock()
	}
}

func missingScope(what string) *models.Failure {
	return models.NewFailure(models.ErrMissingSessionScope, "%s requires a session_code", what)
}

// --- SessionStore ---

func (s *Store) CreateSession(ctx context.Context, sess *models.Session) error {
	if sess.SessionCode == "" {
		return fmt.Errorf("session_code required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess.SessionID == "" {
		sess.SessionID = uuid.NewString()
	}
	now := time.Now()
	sess.CreatedAt, sess.UpdatedAt = now, now
	s.sessions[sess.SessionCode] = sess
	s.participants[sess.SessionCode] = make(map[models.ParticipantCode]*models.Participant)
	s.inventory[sess.SessionCode] = make(map[models.ParticipantCode][]string)
	s.messages[sess.SessionCode] = make(map[string]*models.Message)
	s.transactions[sess.SessionCode] = make(map[string]*models.Transaction)
	s.shortIDIndex[sess.SessionCode] = make(map[string]string)
	s.productions[sess.SessionCode] = make(map[models.ParticipantCode][]*models.ProductionQueueEntry)
	s.investments[sess.SessionCode] = make(map[models.ParticipantCode][]*models.Investment)
	s.essays[sess.SessionCode] = make(map[string]*models.Essay)
	s.assignments[sess.SessionCode] = make(map[models.ParticipantCode]*models.EssayAssignment)
	s.candidates[sess.SessionCode] = make(map[models.ParticipantCode]*models.CandidateDocument)
	return nil
}

func (s *Store) GetSession(ctx context.Context, code models.SessionCode) (*models.Session, *models.Failure) {
	if code == "" {
		return nil, missingScope("get_session")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[code]
	if !ok {
		return nil, models.NewFailure(models.ErrSessionNotFound, "session %s not found", code)
	}
	cp := *sess
	return &cp, nil
}

func (s *Store) UpdateSession(ctx context.Context, sess *models.Session) *models.Failure {
	if sess.SessionCode == "" {
		return missingScope("update_session")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.SessionCode]; !ok {
		return models.NewFailure(models.ErrSessionNotFound, "session %s not found", sess.SessionCode)
	}
	sess.UpdatedAt = time.Now()
	s.sessions[sess.SessionCode] = sess
	return nil
}

func (s *Store) UpdateSessionConfig(ctx context.Context, code models.SessionCode, mutate func(*models.SessionConfig)) *models.Failure {
	if code == "" {
		return missingScope("update_session_config")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[code]
	if !ok {
		return models.NewFailure(models.ErrSessionNotFound, "session %s not found", code)
	}
	mutate(&sess.Config)
	sess.UpdatedAt = time.Now()
	return nil
}

func (s *Store) GetTimerState(ctx context.Context, code models.SessionCode) (*models.TimerState, *models.Failure) {
	if code == "" {
		return nil, missingScope("get_timer_state")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.timers[code]
	if !ok {
		return nil, models.NewFailure(models.ErrSessionNotFound, "no timer state for %s", code)
	}
	cp := *t
	return &cp, nil
}

func (s *Store) PutTimerState(ctx context.Context, state *models.TimerState) *models.Failure {
	if state.SessionCode == "" {
		return missingScope("put_timer_state")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *state
	s.timers[state.SessionCode] = &cp
	return nil
}

// --- ParticipantStore ---

func (s *Store) AddParticipant(ctx context.Context, p *models.Participant) *models.Failure {
	if p.SessionCode == "" {
		return missingScope("add_participant")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[p.SessionCode]; !ok {
		return models.NewFailure(models.ErrSessionNotFound, "session %s not found", p.SessionCode)
	}
	if p.ParticipantID == "" {
		p.ParticipantID = uuid.NewString()
	}
	s.participants[p.SessionCode][p.ParticipantCode] = p
	s.inventory[p.SessionCode][p.ParticipantCode] = nil
	return nil
}

func (s *Store) GetParticipant(ctx context.Context, session models.SessionCode, code models.ParticipantCode) (*models.Participant, *models.Failure) {
	if session == "" {
		return nil, missingScope("get_participant")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	bySession, ok := s.participants[session]
	if !ok {
		return nil, models.NewFailure(models.ErrSessionNotFound, "session %s not found", session)
	}
	p, ok := bySession[code]
	if !ok {
		return nil, models.NewFailure(models.ErrParticipantNotFound, "participant %s not found", code)
	}
	cp := *p
	return &cp, nil
}

func (s *Store) ListParticipants(ctx context.Context, session models.SessionCode) ([]*models.Participant, *models.Failure) {
	if session == "" {
		return nil, missingScope("list_participants")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	bySession, ok := s.participants[session]
	if !ok {
		return nil, models.NewFailure(models.ErrSessionNotFound, "session %s not found", session)
	}
	out := make([]*models.Participant, 0, len(bySession))
	for _, p := range bySession {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Store) UpdateParticipant(ctx context.Context, p *models.Participant) *models.Failure {
	if p.SessionCode == "" {
		return missingScope("update_participant")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	bySession, ok := s.participants[p.SessionCode]
	if !ok {
		return models.NewFailure(models.ErrSessionNotFound, "session %s not found", p.SessionCode)
	}
	if _, ok := bySession[p.ParticipantCode]; !ok {
		return models.NewFailure(models.ErrParticipantNotFound, "participant %s not found", p.ParticipantCode)
	}
	bySession[p.ParticipantCode] = p
	return nil
}

func (s *Store) GetInventory(ctx context.Context, session models.SessionCode, code models.ParticipantCode) ([]string, *models.Failure) {
	if session == "" {
		return nil, missingScope("get_inventory")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	shapes := append([]string(nil), s.inventory[session][code]...)
	return shapes, nil
}

func (s *Store) SetInventory(ctx context.Context, session models.SessionCode, code models.ParticipantCode, shapes []string) *models.Failure {
	if session == "" {
		return missingScope("set_inventory")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.inventory[session]; !ok {
		return models.NewFailure(models.ErrSessionNotFound, "session %s not found", session)
	}
	s.inventory[session][code] = append([]string(nil), shapes...)
	return nil
}

// --- MessageStore ---

func (s *Store) CreateMessage(ctx context.Context, m *models.Message) *models.Failure {
	if m.SessionCode == "" {
		return missingScope("create_message")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[m.SessionCode]; !ok {
		return models.NewFailure(models.ErrSessionNotFound, "session %s not found", m.SessionCode)
	}
	if m.MessageID == "" {
		m.MessageID = uuid.NewString()
	}
	if m.IsBroadcast() && m.MessageData.SeenBy == nil {
		m.MessageData.SeenBy = make(map[models.ParticipantCode]bool)
	}
	s.messages[m.SessionCode][m.MessageID] = m
	s.messageOrder[m.SessionCode] = append(s.messageOrder[m.SessionCode], m.MessageID)
	return nil
}

func (s *Store) GetMessage(ctx context.Context, session models.SessionCode, id string) (*models.Message, *models.Failure) {
	if session == "" {
		return nil, missingScope("get_message")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.messages[session][id]
	if !ok {
		return nil, models.NewFailure(models.ErrStoreError, "message %s not found", id)
	}
	cp := *m
	return &cp, nil
}

func (s *Store) ListMessages(ctx context.Context, session models.SessionCode, participant models.ParticipantCode) ([]*models.Message, *models.Failure) {
	if session == "" {
		return nil, missingScope("list_messages")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Message
	for _, id := range s.messageOrder[session] {
		m := s.messages[session][id]
		if m.IsBroadcast() || m.Sender == participant || (m.Recipient != nil && *m.Recipient == participant) {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) ListUnread(ctx context.Context, session models.SessionCode, participant models.ParticipantCode) ([]*models.Message, *models.Failure) {
	all, f := s.ListMessages(ctx, session, participant)
	if f != nil {
		return nil, f
	}
	var out []*models.Message
	for _, m := range all {
		if m.Sender == participant {
			continue
		}
		if m.IsBroadcast() {
			if !m.MessageData.SeenBy[participant] {
				out = append(out, m)
			}
			continue
		}
		if m.DeliveredStatus != models.MessageRead {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Store) MarkDirectRead(ctx context.Context, session models.SessionCode, messageID string) *models.Failure {
	if session == "" {
		return missingScope("mark_direct_read")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[session][messageID]
	if !ok {
		return models.NewFailure(models.ErrStoreError, "message %s not found", messageID)
	}
	m.DeliveredStatus = models.MessageRead
	return nil
}

func (s *Store) MarkBroadcastSeen(ctx context.Context, session models.SessionCode, messageID string, participant models.ParticipantCode) *models.Failure {
	if session == "" {
		return missingScope("mark_broadcast_seen")
	}
	unlock := s.lockSession(session)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[session][messageID]
	if !ok {
		return models.NewFailure(models.ErrStoreError, "message %s not found", messageID)
	}
	if m.MessageData.SeenBy == nil {
		m.MessageData.SeenBy = make(map[models.ParticipantCode]bool)
	}
	m.MessageData.SeenBy[participant] = true
	return nil
}

func (s *Store) MaybeMarkBroadcastRead(ctx context.Context, session models.SessionCode, messageID string) *models.Failure {
	if session == "" {
		return missingScope("maybe_mark_broadcast_read")
	}
	unlock := s.lockSession(session)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[session][messageID]
	if !ok {
		return models.NewFailure(models.ErrStoreError, "message %s not found", messageID)
	}
	if !m.IsBroadcast() {
		return nil
	}
	for code := range s.participants[session] {
		if !m.MessageData.SeenBy[code] {
			return nil
		}
	}
	m.DeliveredStatus = models.MessageRead
	return nil
}

// --- TransactionStore ---

func (s *Store) nextShortID(session models.SessionCode) string {
	s.shortIDSeq[session]++
	return fmt.Sprintf("%s-%03d", session, s.shortIDSeq[session])
}

func (s *Store) CreateTransaction(ctx context.Context, t *models.Transaction) *models.Failure {
	if t.SessionCode == "" {
		return missingScope("create_transaction")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transactions[t.SessionCode]; !ok {
		return models.NewFailure(models.ErrSessionNotFound, "session %s not found", t.SessionCode)
	}
	if t.TransactionID == "" {
		t.TransactionID = uuid.NewString()
	}
	if t.ShortID == "" {
		t.ShortID = s.nextShortID(t.SessionCode)
	}
	t.Status = models.TransactionProposed
	s.transactions[t.SessionCode][t.TransactionID] = t
	s.shortIDIndex[t.SessionCode][t.ShortID] = t.TransactionID
	return nil
}

func (s *Store) resolveTransactionLocked(session models.SessionCode, idOrShortID string) (*models.Transaction, *models.Failure) {
	byID, ok := s.transactions[session]
	if !ok {
		return nil, models.NewFailure(models.ErrSessionNotFound, "session %s not found", session)
	}
	if t, ok := byID[idOrShortID]; ok {
		return t, nil
	}
	if uuidVal, ok := s.shortIDIndex[session][idOrShortID]; ok {
		if t, ok := byID[uuidVal]; ok {
			return t, nil
		}
	}
	return nil, models.NewFailure(models.ErrStoreError, "transaction %s not found", idOrShortID)
}

func (s *Store) GetTransaction(ctx context.Context, session models.SessionCode, idOrShortID string) (*models.Transaction, *models.Failure) {
	if session == "" {
		return nil, missingScope("get_transaction")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, f := s.resolveTransactionLocked(session, idOrShortID)
	if f != nil {
		return nil, f
	}
	cp := *t
	return &cp, nil
}

func (s *Store) ListTransactions(ctx context.Context, session models.SessionCode, participant models.ParticipantCode) ([]*models.Transaction, *models.Failure) {
	if session == "" {
		return nil, missingScope("list_transactions")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Transaction
	for _, t := range s.transactions[session] {
		if t.Seller == participant || t.Buyer == participant || t.Proposer == participant || t.Recipient == participant {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

// AcceptTrade is the atomic accept_trade operation. The session lock plays
// the role of the "row lock on the driving row" spec.md §4.A calls for: the
// in-memory store has no real row storage, so the whole session is
// serialized for the duration of one accept, which is sufficient to satisfy
// testable property 5 (exactly one winner).
func (s *Store) AcceptTrade(ctx context.Context, session models.SessionCode, idOrShortID string, accepter models.ParticipantCode) (*models.Transaction, *models.Failure) {
	if session == "" {
		return nil, missingScope("accept_trade")
	}
	unlock := s.lockSession(session)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	t, f := s.resolveTransactionLocked(session, idOrShortID)
	if f != nil {
		return nil, f
	}
	if t.Status != models.TransactionProposed {
		return nil, models.NewFailure(models.ErrAlreadyProcessed, "transaction %s already %s", t.ShortID, t.Status)
	}
	if t.Proposer == accepter {
		return nil, models.NewFailure(models.ErrSelfAcceptForbidden, "proposer cannot accept its own offer")
	}

	buyer, seller := t.Buyer, t.Seller
	if buyer == "" {
		buyer = accepter
	}
	if seller == "" {
		seller = t.Proposer
	}

	buyerP, ok := s.participants[session][buyer]
	if !ok {
		return nil, models.NewFailure(models.ErrParticipantNotFound, "buyer %s not found", buyer)
	}
	sellerP, ok := s.participants[session][seller]
	if !ok {
		return nil, models.NewFailure(models.ErrParticipantNotFound, "seller %s not found", seller)
	}

	total := t.Price.Mul(decimal.NewFromInt(int64(t.Quantity)))
	if buyerP.Money.LessThan(total) {
		t.Status = models.TransactionCancelled
		return nil, models.NewFailure(models.ErrInsufficientFunds, "buyer %s lacks funds for %s", buyer, total)
	}

	sellerInv := s.inventory[session][seller]
	if countShape(sellerInv, t.Shape) < t.Quantity {
		t.Status = models.TransactionCancelled
		return nil, models.NewFailure(models.ErrInsufficientInventory, "seller %s lacks %d x %s", seller, t.Quantity, t.Shape)
	}

	buyerP.Money = buyerP.Money.Sub(total)
	sellerP.Money = sellerP.Money.Add(total)
	s.inventory[session][seller] = removeShapes(sellerInv, t.Shape, t.Quantity)
	s.inventory[session][buyer] = append(s.inventory[session][buyer], repeatShape(t.Shape, t.Quantity)...)

	t.Status = models.TransactionCompleted
	cp := *t
	return &cp, nil
}

func (s *Store) RejectTrade(ctx context.Context, session models.SessionCode, idOrShortID string) (*models.Transaction, *models.Failure) {
	if session == "" {
		return nil, missingScope("reject_trade")
	}
	unlock := s.lockSession(session)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	t, f := s.resolveTransactionLocked(session, idOrShortID)
	if f != nil {
		return nil, f
	}
	if t.Status != models.TransactionProposed {
		return nil, models.NewFailure(models.ErrNotInProposedState, "transaction %s is %s", t.ShortID, t.Status)
	}
	t.Status = models.TransactionCancelled
	cp := *t
	return &cp, nil
}

func (s *Store) CancelTrade(ctx context.Context, session models.SessionCode, idOrShortID string, proposer models.ParticipantCode) (*models.Transaction, *models.Failure) {
	if session == "" {
		return nil, missingScope("cancel_trade")
	}
	unlock := s.lockSession(session)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	t, f := s.resolveTransactionLocked(session, idOrShortID)
	if f != nil {
		return nil, f
	}
	if t.Status != models.TransactionProposed {
		return nil, models.NewFailure(models.ErrNotInProposedState, "transaction %s is %s", t.ShortID, t.Status)
	}
	if t.Proposer != proposer {
		return nil, models.NewFailure(models.ErrSelfOfferForbidden, "only the proposer may cancel")
	}
	t.Status = models.TransactionCancelled
	cp := *t
	return &cp, nil
}

func countShape(inv []string, shape string) int {
	n := 0
	for _, s := range inv {
		if s == shape {
			n++
		}
	}
	return n
}

func removeShapes(inv []string, shape string, n int) []string {
	out := make([]string, 0, len(inv))
	removed := 0
	for _, s := range inv {
		if s == shape && removed < n {
			removed++
			continue
		}
		out = append(out, s)
	}
	return out
}

func repeatShape(shape string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = shape
	}
	return out
}

// --- ProductionStore ---

func (s *Store) EnqueueProduction(ctx context.Context, e *models.ProductionQueueEntry) *models.Failure {
	if e.SessionCode == "" {
		return missingScope("enqueue_production")
	}
	unlock := s.lockSession(e.SessionCode)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if e.QueueID == "" {
		e.QueueID = uuid.NewString()
	}
	q := s.productions[e.SessionCode][e.ParticipantCode]
	inProgress := false
	for _, existing := range q {
		if existing.Status == models.ProductionInProgress {
			inProgress = true
		}
	}
	if !inProgress {
		e.Status = models.ProductionInProgress
		e.StartTime = time.Now()
	} else {
		e.Status = models.ProductionQueued
	}
	e.QueuePosition = len(q) + 1
	s.productions[e.SessionCode][e.ParticipantCode] = append(q, e)
	return nil
}

func (s *Store) ListProductionQueue(ctx context.Context, session models.SessionCode, participant models.ParticipantCode) ([]*models.ProductionQueueEntry, *models.Failure) {
	if session == "" {
		return nil, missingScope("list_production_queue")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.ProductionQueueEntry, len(s.productions[session][participant]))
	for i, e := range s.productions[session][participant] {
		cp := *e
		out[i] = &cp
	}
	return out, nil
}

func (s *Store) PromoteCompletedProductions(ctx context.Context, session models.SessionCode, now time.Time) ([]*models.ProductionQueueEntry, *models.Failure) {
	if session == "" {
		return nil, missingScope("promote_completed_productions")
	}
	unlock := s.lockSession(session)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	var promoted []*models.ProductionQueueEntry
	for participant, q := range s.productions[session] {
		for _, e := range q {
			if e.Status == models.ProductionInProgress && !e.EstimatedCompletion.After(now) {
				e.Status = models.ProductionCompleted
				s.inventory[session][participant] = append(s.inventory[session][participant], repeatShape(e.Shape, e.Quantity)...)
				cp := *e
				promoted = append(promoted, &cp)
			}
		}
	}
	return promoted, nil
}

func (s *Store) StartNextQueued(ctx context.Context, session models.SessionCode, participant models.ParticipantCode, now time.Time) (*models.ProductionQueueEntry, *models.Failure) {
	if session == "" {
		return nil, missingScope("start_next_queued")
	}
	unlock := s.lockSession(session)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.productions[session][participant]
	for _, e := range q {
		if e.Status == models.ProductionInProgress {
			return nil, models.NewFailure(models.ErrInvalidState, "participant %s already has a production in progress", participant)
		}
	}
	for _, e := range q {
		if e.Status == models.ProductionQueued {
			e.Status = models.ProductionInProgress
			e.StartTime = now
			cp := *e
			return &cp, nil
		}
	}
	return nil, models.NewFailure(models.ErrInvalidState, "no queued production for participant %s", participant)
}

func (s *Store) FulfillOrders(ctx context.Context, session models.SessionCode, participant models.ParticipantCode, indices []int, incentivePerOrder decimal.Decimal) (*store.FulfillResult, *models.Failure) {
	if session == "" {
		return nil, missingScope("fulfill_orders")
	}
	unlock := s.lockSession(session)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.participants[session][participant]
	if !ok {
		return nil, models.NewFailure(models.ErrParticipantNotFound, "participant %s not found", participant)
	}
	for _, idx := range indices {
		if idx < 0 || idx >= len(p.Orders) {
			return nil, models.NewFailure(models.ErrInvalidOrderIndex, "order index %d out of range", idx)
		}
	}

	inv := append([]string(nil), s.inventory[session][participant]...)
	needed := make([]string, len(indices))
	for i, idx := range indices {
		needed[i] = p.Orders[idx]
	}
	tmp := append([]string(nil), inv...)
	for _, tag := range needed {
		found := -1
		for i, have := range tmp {
			if have == tag {
				found = i
				break
			}
		}
		if found == -1 {
			return nil, models.NewFailure(models.ErrInsufficientInventory, "missing %s in inventory", tag)
		}
		tmp = append(tmp[:found], tmp[found+1:]...)
	}

	removeSet := make(map[int]bool, len(indices))
	for _, idx := range indices {
		removeSet[idx] = true
	}
	newOrders := make([]string, 0, len(p.Orders)-len(indices))
	for i, o := range p.Orders {
		if !removeSet[i] {
			newOrders = append(newOrders, o)
		}
	}

	inv = tmp
	p.Orders = newOrders
	p.OrdersCompleted += len(indices)
	credit := incentivePerOrder.Mul(decimal.NewFromInt(int64(len(indices))))
	p.Money = p.Money.Add(credit)
	s.inventory[session][participant] = inv

	return &store.FulfillResult{
		FulfilledCount: len(indices),
		NewMoney:       p.Money,
		NewOrders:      append([]string(nil), p.Orders...),
		NewInventory:   append([]string(nil), inv...),
	}, nil
}

// --- InvestmentStore ---

func (s *Store) CreateInvestment(ctx context.Context, inv *models.Investment) *models.Failure {
	if inv.SessionCode == "" {
		return missingScope("create_investment")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if inv.InvestmentID == "" {
		inv.InvestmentID = uuid.NewString()
	}
	s.investments[inv.SessionCode][inv.ParticipantCode] = append(s.investments[inv.SessionCode][inv.ParticipantCode], inv)
	return nil
}

func (s *Store) ListInvestments(ctx context.Context, session models.SessionCode, participant models.ParticipantCode) ([]*models.Investment, *models.Failure) {
	if session == "" {
		return nil, missingScope("list_investments")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Investment, len(s.investments[session][participant]))
	copy(out, s.investments[session][participant])
	return out, nil
}

// --- EssayStore ---

func (s *Store) GetEssay(ctx context.Context, session models.SessionCode, essayID string) (*models.Essay, *models.Failure) {
	if session == "" {
		return nil, missingScope("get_essay")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.essays[session][essayID]
	if !ok {
		return nil, models.NewFailure(models.ErrStoreError, "essay %s not found", essayID)
	}
	cp := *e
	return &cp, nil
}

func (s *Store) GetAssignment(ctx context.Context, session models.SessionCode, participant models.ParticipantCode) (*models.EssayAssignment, *models.Failure) {
	if session == "" {
		return nil, missingScope("get_assignment")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assignments[session][participant]
	if !ok {
		return nil, models.NewFailure(models.ErrStoreError, "no assignment for %s", participant)
	}
	cp := *a
	return &cp, nil
}

func (s *Store) SubmitRanking(ctx context.Context, sub *models.RankingSubmission) (*models.Participant, *models.Failure) {
	if sub.SessionCode == "" {
		return nil, missingScope("submit_ranking")
	}
	assignment, f := s.GetAssignment(ctx, sub.SessionCode, sub.ParticipantCode)
	if f != nil {
		return nil, f
	}
	allowed := make(map[string]bool, len(assignment.EssayIDs))
	for _, id := range assignment.EssayIDs {
		allowed[id] = true
	}
	for _, r := range sub.Rankings {
		if !allowed[r.EssayID] {
			return nil, models.NewFailure(models.ErrInvalidState, "essay %s not assigned to %s", r.EssayID, sub.ParticipantCode)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[sub.SessionCode][sub.ParticipantCode]
	if !ok {
		return nil, models.NewFailure(models.ErrParticipantNotFound, "participant %s not found", sub.ParticipantCode)
	}
	merged := make(map[string]models.RankingEntry)
	for _, r := range p.CurrentRankings {
		merged[r.EssayID] = r
	}
	for _, r := range sub.Rankings {
		merged[r.EssayID] = r
	}
	out := make([]models.RankingEntry, 0, len(merged))
	for _, r := range merged {
		out = append(out, r)
	}
	p.CurrentRankings = out
	if sub.SubmissionID == "" {
		sub.SubmissionID = uuid.NewString()
	}
	cp := *p
	return &cp, nil
}

func (s *Store) GetCandidateDocument(ctx context.Context, session models.SessionCode, participant models.ParticipantCode) (*models.CandidateDocument, *models.Failure) {
	if session == "" {
		return nil, missingScope("get_candidate_document")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.candidates[session][participant]
	if !ok {
		return nil, models.NewFailure(models.ErrStoreError, "no candidate document for %s", participant)
	}
	cp := *d
	return &cp, nil
}

func (s *Store) ReadingPhaseComplete(ctx context.Context, session models.SessionCode) (bool, *models.Failure) {
	if session == "" {
		return false, missingScope("reading_phase_complete")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[session]
	if !ok {
		return false, models.NewFailure(models.ErrSessionNotFound, "session %s not found", session)
	}
	if !sess.Config.HiddenProfiles.PublicInfoSet {
		return false, nil
	}
	for code := range s.participants[session] {
		if _, ok := s.candidates[session][code]; !ok {
			return false, nil
		}
	}
	return true, nil
}

// SetPublicInfo marks the shared publicInfo document as present; half of
// ReadingPhaseComplete's condition (§4.C.5).
func (s *Store) SetPublicInfo(ctx context.Context, session models.SessionCode) *models.Failure {
	if session == "" {
		return missingScope("set_public_info")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[session]
	if !ok {
		return models.NewFailure(models.ErrSessionNotFound, "session %s not found", session)
	}
	sess.Config.HiddenProfiles.PublicInfoSet = true
	return nil
}

// SeedEssay and SeedCandidateDocument and SeedAssignment are setup helpers
// used by tests and the CLI to populate EssayRanking/HiddenProfiles fixtures
// without a full researcher-facing configuration surface (out of scope).
func (s *Store) SeedEssay(session models.SessionCode, e *models.Essay) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.essays[session][e.EssayID] = e
}

func (s *Store) SeedAssignment(a *models.EssayAssignment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignments[a.SessionCode][a.ParticipantCode] = a
}

func (s *Store) SeedCandidateDocument(d *models.CandidateDocument) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candidates[d.SessionCode][d.ParticipantCode] = d
}
