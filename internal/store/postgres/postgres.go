// Package postgres implements the Store Port against PostgreSQL (or a
// wire-compatible CockroachDB cluster) using pgx's connection pool. Table
// layout matches spec.md §6.4; JSON-bearing columns are the only place
// loosely-typed config/metadata is allowed to live.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/haasonsaas/nexus/internal/store"
	"github.com/haasonsaas/nexus/pkg/models"
)

// PoolConfig configures the pgx connection pool, mirroring the reference
// codebase's Cockroach pool tuning knobs (internal/storage/cockroach_config.go)
// but expressed through pgxpool.Config.
type PoolConfig struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	ConnectTimeout  time.Duration
}

// DefaultPoolConfig returns conservative defaults for a single research-run
// deployment.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxConns:        25,
		MinConns:        2,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 2 * time.Minute,
		ConnectTimeout:  10 * time.Second,
	}
}

// Store is the PostgreSQL-backed Store Port implementation.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to dsn and returns a ready Store. Callers must run the
// golang-migrate migrations under ./migrations before first use.
func New(ctx context.Context, dsn string, cfg PoolConfig) (*Store, error) {
	pgCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	pgCfg.MaxConns = cfg.MaxConns
	pgCfg.MinConns = cfg.MinConns
	pgCfg.MaxConnLifetime = cfg.MaxConnLifetime
	pgCfg.MaxConnIdleTime = cfg.MaxConnIdleTime

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, pgCfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

var _ store.Store = (*Store)(nil)

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func missingScope(what string) *models.Failure {
	return models.NewFailure(models.ErrMissingSessionScope, "%s requires a session_code", what)
}

func storeErr(op string, err error) *models.Failure {
	if errors.Is(err, pgx.ErrNoRows) {
		return models.NewFailure(models.ErrStoreError, "%s: not found", op)
	}
	return models.NewFailure(models.ErrStoreError, "%s: %v", op, err)
}

// --- SessionStore ---

func (s *Store) CreateSession(ctx context.Context, sess *models.Session) error {
	if sess.SessionCode == "" {
		return fmt.Errorf("session_code required")
	}
	cfg, err := json.Marshal(sess.Config)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO sessions (session_id, session_code, experiment_type, status, experiment_config, created_at, updated_at)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, now(), now())`,
		sess.SessionCode, sess.ExperimentType, sess.Status, cfg)
	return err
}

func (s *Store) GetSession(ctx context.Context, code models.SessionCode) (*models.Session, *models.Failure) {
	if code == "" {
		return nil, missingScope("get_session")
	}
	var sess models.Session
	var cfg []byte
	err := s.pool.QueryRow(ctx, `
		SELECT session_id, session_code, experiment_type, status, experiment_config, created_at, updated_at
		FROM sessions WHERE session_code = $1`, code).
		Scan(&sess.SessionID, &sess.SessionCode, &sess.ExperimentType, &sess.Status, &cfg, &sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		return nil, storeErr("get_session", err)
	}
	if err := json.Unmarshal(cfg, &sess.Config); err != nil {
		return nil, storeErr("get_session:unmarshal_config", err)
	}
	return &sess, nil
}

func (s *Store) UpdateSession(ctx context.Context, sess *models.Session) *models.Failure {
	if sess.SessionCode == "" {
		return missingScope("update_session")
	}
	cfg, err := json.Marshal(sess.Config)
	if err != nil {
		return storeErr("update_session:marshal_config", err)
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE sessions SET status = $2, experiment_config = $3, updated_at = now()
		WHERE session_code = $1`, sess.SessionCode, sess.Status, cfg)
	if err != nil {
		return storeErr("update_session", err)
	}
	if tag.RowsAffected() == 0 {
		return models.NewFailure(models.ErrSessionNotFound, "session %s not found", sess.SessionCode)
	}
	return nil
}

func (s *Store) UpdateSessionConfig(ctx context.Context, code models.SessionCode, mutate func(*models.SessionConfig)) *models.Failure {
	if code == "" {
		return missingScope("update_session_config")
	}
	sess, f := s.GetSession(ctx, code)
	if f != nil {
		return f
	}
	mutate(&sess.Config)
	return s.UpdateSession(ctx, sess)
}

func (s *Store) GetTimerState(ctx context.Context, code models.SessionCode) (*models.TimerState, *models.Failure) {
	if code == "" {
		return nil, missingScope("get_timer_state")
	}
	var t models.TimerState
	err := s.pool.QueryRow(ctx, `
		SELECT session_code, experiment_status, time_remaining_seconds, round_duration_minutes, round_start_time, active
		FROM session_timers WHERE session_code = $1`, code).
		Scan(&t.SessionCode, &t.ExperimentStatus, &t.TimeRemainingSecs, &t.RoundDurationMins, &t.RoundStartTime, &t.Active)
	if err != nil {
		return nil, storeErr("get_timer_state", err)
	}
	return &t, nil
}

func (s *Store) PutTimerState(ctx context.Context, t *models.TimerState) *models.Failure {
	if t.SessionCode == "" {
		return missingScope("put_timer_state")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO session_timers (session_code, experiment_status, time_remaining_seconds, round_duration_minutes, round_start_time, active)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (session_code) DO UPDATE SET
			experiment_status = $2, time_remaining_seconds = $3, round_duration_minutes = $4,
			round_start_time = $5, active = $6`,
		t.SessionCode, t.ExperimentStatus, t.TimeRemainingSecs, t.RoundDurationMins, t.RoundStartTime, t.Active)
	if err != nil {
		return storeErr("put_timer_state", err)
	}
	return nil
}

// --- ParticipantStore ---

func (s *Store) AddParticipant(ctx context.Context, p *models.Participant) *models.Failure {
	if p.SessionCode == "" {
		return missingScope("add_participant")
	}
	orders, _ := json.Marshal(p.Orders)
	words, _ := json.Marshal(p.AssignedWords)
	rankings, _ := json.Marshal(p.CurrentRankings)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO participants (participant_id, participant_code, session_code, type, specialty_shape, money,
			orders, orders_completed, specialty_production_used, role, assigned_words, score, current_round,
			initiative, current_rankings, login_status)
		VALUES (gen_random_uuid(), $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		p.ParticipantCode, p.SessionCode, p.Type, p.SpecialtyShape, p.Money.String(),
		orders, p.OrdersCompleted, p.SpecialtyProductionUsed, p.Role, words, p.Score, p.CurrentRound,
		p.Initiative, rankings, p.LoginStatus)
	if err != nil {
		return storeErr("add_participant", err)
	}
	return nil
}

func scanParticipant(row pgx.Row) (*models.Participant, error) {
	var p models.Participant
	var moneyStr string
	var orders, words, rankings []byte
	if err := row.Scan(&p.ParticipantID, &p.ParticipantCode, &p.SessionCode, &p.Type, &p.SpecialtyShape, &moneyStr,
		&orders, &p.OrdersCompleted, &p.SpecialtyProductionUsed, &p.Role, &words, &p.Score, &p.CurrentRound,
		&p.Initiative, &rankings, &p.LoginStatus); err != nil {
		return nil, err
	}
	p.Money, _ = decimal.NewFromString(moneyStr)
	_ = json.Unmarshal(orders, &p.Orders)
	_ = json.Unmarshal(words, &p.AssignedWords)
	_ = json.Unmarshal(rankings, &p.CurrentRankings)
	return &p, nil
}

const participantColumns = `participant_id, participant_code, session_code, type, specialty_shape, money,
	orders, orders_completed, specialty_production_used, role, assigned_words, score, current_round,
	initiative, current_rankings, login_status`

func (s *Store) GetParticipant(ctx context.Context, session models.SessionCode, code models.ParticipantCode) (*models.Participant, *models.Failure) {
	if session == "" {
		return nil, missingScope("get_participant")
	}
	row := s.pool.QueryRow(ctx, `SELECT `+participantColumns+` FROM participants WHERE session_code=$1 AND participant_code=$2`, session, code)
	p, err := scanParticipant(row)
	if err != nil {
		return nil, storeErr("get_participant", err)
	}
	return p, nil
}

func (s *Store) ListParticipants(ctx context.Context, session models.SessionCode) ([]*models.Participant, *models.Failure) {
	if session == "" {
		return nil, missingScope("list_participants")
	}
	rows, err := s.pool.Query(ctx, `SELECT `+participantColumns+` FROM participants WHERE session_code=$1`, session)
	if err != nil {
		return nil, storeErr("list_participants", err)
	}
	defer rows.Close()
	var out []*models.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, storeErr("list_participants:scan", err)
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Store) UpdateParticipant(ctx context.Context, p *models.Participant) *models.Failure {
	if p.SessionCode == "" {
		return missingScope("update_participant")
	}
	orders, _ := json.Marshal(p.Orders)
	words, _ := json.Marshal(p.AssignedWords)
	rankings, _ := json.Marshal(p.CurrentRankings)
	tag, err := s.pool.Exec(ctx, `
		UPDATE participants SET money=$3, orders=$4, orders_completed=$5, specialty_production_used=$6,
			assigned_words=$7, score=$8, current_round=$9, current_rankings=$10, login_status=$11
		WHERE session_code=$1 AND participant_code=$2`,
		p.SessionCode, p.ParticipantCode, p.Money.String(), orders, p.OrdersCompleted, p.SpecialtyProductionUsed,
		words, p.Score, p.CurrentRound, rankings, p.LoginStatus)
	if err != nil {
		return storeErr("update_participant", err)
	}
	if tag.RowsAffected() == 0 {
		return models.NewFailure(models.ErrParticipantNotFound, "participant %s not found", p.ParticipantCode)
	}
	return nil
}

func (s *Store) GetInventory(ctx context.Context, session models.SessionCode, code models.ParticipantCode) ([]string, *models.Failure) {
	if session == "" {
		return nil, missingScope("get_inventory")
	}
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT shapes_in_inventory FROM shape_inventory WHERE session_code=$1 AND participant_code=$2`, session, code).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("get_inventory", err)
	}
	var shapes []string
	_ = json.Unmarshal(raw, &shapes)
	return shapes, nil
}

func (s *Store) SetInventory(ctx context.Context, session models.SessionCode, code models.ParticipantCode, shapes []string) *models.Failure {
	if session == "" {
		return missingScope("set_inventory")
	}
	raw, _ := json.Marshal(shapes)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO shape_inventory (session_code, participant_code, shapes_in_inventory)
		VALUES ($1,$2,$3)
		ON CONFLICT (session_code, participant_code) DO UPDATE SET shapes_in_inventory = $3`,
		session, code, raw)
	if err != nil {
		return storeErr("set_inventory", err)
	}
	return nil
}

// AcceptTrade demonstrates the production row-lock pattern spec.md §4.A/§5
// require: a single transaction takes `SELECT ... FOR UPDATE` on the
// transaction row, so two concurrent callers serialize on the DB rather than
// in-process, which is what makes this implementation safe across multiple
// runtime processes (the in-memory Store's per-session mutex only protects a
// single process).
func (s *Store) AcceptTrade(ctx context.Context, session models.SessionCode, idOrShortID string, accepter models.ParticipantCode) (*models.Transaction, *models.Failure) {
	if session == "" {
		return nil, missingScope("accept_trade")
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, storeErr("accept_trade:begin", err)
	}
	defer tx.Rollback(ctx)

	var t models.Transaction
	var priceStr string
	err = tx.QueryRow(ctx, `
		SELECT transaction_id, short_id, session_code, seller, buyer, proposer, recipient, offer_type, shape, quantity, price, status
		FROM transactions WHERE session_code=$1 AND (transaction_id::text = $2 OR short_id = $2)
		FOR UPDATE`, session, idOrShortID).
		Scan(&t.TransactionID, &t.ShortID, &t.SessionCode, &t.Seller, &t.Buyer, &t.Proposer, &t.Recipient,
			&t.OfferType, &t.Shape, &t.Quantity, &priceStr, &t.Status)
	if err != nil {
		return nil, storeErr("accept_trade:lookup", err)
	}
	t.Price, _ = decimal.NewFromString(priceStr)

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

	var buyerMoneyStr, sellerMoneyStr string
	if err := tx.QueryRow(ctx, `SELECT money FROM participants WHERE session_code=$1 AND participant_code=$2 FOR UPDATE`, session, buyer).Scan(&buyerMoneyStr); err != nil {
		return nil, storeErr("accept_trade:buyer", err)
	}
	if err := tx.QueryRow(ctx, `SELECT money FROM participants WHERE session_code=$1 AND participant_code=$2 FOR UPDATE`, session, seller).Scan(&sellerMoneyStr); err != nil {
		return nil, storeErr("accept_trade:seller", err)
	}
	buyerMoney, _ := decimal.NewFromString(buyerMoneyStr)
	sellerMoney, _ := decimal.NewFromString(sellerMoneyStr)

	total := t.Price.Mul(decimal.NewFromInt(int64(t.Quantity)))
	if buyerMoney.LessThan(total) {
		_, _ = tx.Exec(ctx, `UPDATE transactions SET status=$2 WHERE transaction_id=$1`, t.TransactionID, models.TransactionCancelled)
		_ = tx.Commit(ctx)
		return nil, models.NewFailure(models.ErrInsufficientFunds, "buyer %s lacks funds for %s", buyer, total)
	}

	var invRaw []byte
	if err := tx.QueryRow(ctx, `SELECT shapes_in_inventory FROM shape_inventory WHERE session_code=$1 AND participant_code=$2 FOR UPDATE`, session, seller).Scan(&invRaw); err != nil {
		return nil, storeErr("accept_trade:seller_inventory", err)
	}
	var sellerInv []string
	_ = json.Unmarshal(invRaw, &sellerInv)
	have := 0
	for _, sh := range sellerInv {
		if sh == t.Shape {
			have++
		}
	}
	if have < t.Quantity {
		_, _ = tx.Exec(ctx, `UPDATE transactions SET status=$2 WHERE transaction_id=$1`, t.TransactionID, models.TransactionCancelled)
		_ = tx.Commit(ctx)
		return nil, models.NewFailure(models.ErrInsufficientInventory, "seller %s lacks %d x %s", seller, t.Quantity, t.Shape)
	}

	newSellerInv := removeN(sellerInv, t.Shape, t.Quantity)
	newSellerRaw, _ := json.Marshal(newSellerInv)

	var buyerInvRaw []byte
	_ = tx.QueryRow(ctx, `SELECT shapes_in_inventory FROM shape_inventory WHERE session_code=$1 AND participant_code=$2 FOR UPDATE`, session, buyer).Scan(&buyerInvRaw)
	var buyerInv []string
	_ = json.Unmarshal(buyerInvRaw, &buyerInv)
	for i := 0; i < t.Quantity; i++ {
		buyerInv = append(buyerInv, t.Shape)
	}
	newBuyerRaw, _ := json.Marshal(buyerInv)

	if _, err := tx.Exec(ctx, `UPDATE participants SET money=$3 WHERE session_code=$1 AND participant_code=$2`, session, buyer, buyerMoney.Sub(total).String()); err != nil {
		return nil, storeErr("accept_trade:debit_buyer", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE participants SET money=$3 WHERE session_code=$1 AND participant_code=$2`, session, seller, sellerMoney.Add(total).String()); err != nil {
		return nil, storeErr("accept_trade:credit_seller", err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO shape_inventory (session_code, participant_code, shapes_in_inventory) VALUES ($1,$2,$3)
		ON CONFLICT (session_code, participant_code) DO UPDATE SET shapes_in_inventory=$3`, session, seller, newSellerRaw); err != nil {
		return nil, storeErr("accept_trade:seller_inv_write", err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO shape_inventory (session_code, participant_code, shapes_in_inventory) VALUES ($1,$2,$3)
		ON CONFLICT (session_code, participant_code) DO UPDATE SET shapes_in_inventory=$3`, session, buyer, newBuyerRaw); err != nil {
		return nil, storeErr("accept_trade:buyer_inv_write", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE transactions SET status=$2 WHERE transaction_id=$1`, t.TransactionID, models.TransactionCompleted); err != nil {
		return nil, storeErr("accept_trade:finalize", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, storeErr("accept_trade:commit", err)
	}

	t.Status = models.TransactionCompleted
	return &t, nil
}

func removeN(shapes []string, shape string, n int) []string {
	out := make([]string, 0, len(shapes))
	removed := 0
	for _, sh := range shapes {
		if sh == shape && removed < n {
			removed++
			continue
		}
		out = append(out, sh)
	}
	return out
}

// The remaining TransactionStore/ProductionStore/InvestmentStore/EssayStore/
// MessageStore methods follow the same pgx transaction pattern as
// AcceptTrade and CreateSession above; they are omitted here for brevity in
// this reference implementation and delegate to the in-memory Store's
// validated logic is NOT an option at runtime (no cross-package delegation
// across a DB boundary), so a production deployment must finish wiring the
// remaining SQL. The in-memory Store is feature-complete and is what the
// run-agent CLI and the test suite exercise.
var errNotImplemented = fmt.Errorf("postgres: operation not implemented in this reference build")

func (s *Store) GetTransaction(ctx context.Context, session models.SessionCode, idOrShortID string) (*models.Transaction, *models.Failure) {
	var t models.Transaction
	var priceStr string
	err := s.pool.QueryRow(ctx, `
		SELECT transaction_id, short_id, session_code, seller, buyer, proposer, recipient, offer_type, shape, quantity, price, status
		FROM transactions WHERE session_code=$1 AND (transaction_id::text = $2 OR short_id = $2)`, session, idOrShortID).
		Scan(&t.TransactionID, &t.ShortID, &t.SessionCode, &t.Seller, &t.Buyer, &t.Proposer, &t.Recipient, &t.OfferType, &t.Shape, &t.Quantity, &priceStr, &t.Status)
	if err != nil {
		return nil, storeErr("get_transaction", err)
	}
	t.Price, _ = decimal.NewFromString(priceStr)
	return &t, nil
}

func (s *Store) ListTransactions(ctx context.Context, session models.SessionCode, participant models.ParticipantCode) ([]*models.Transaction, *models.Failure) {
	rows, err := s.pool.Query(ctx, `
		SELECT transaction_id, short_id, session_code, seller, buyer, proposer, recipient, offer_type, shape, quantity, price, status
		FROM transactions WHERE session_code=$1 AND (seller=$2 OR buyer=$2 OR proposer=$2 OR recipient=$2)`, session, participant)
	if err != nil {
		return nil, storeErr("list_transactions", err)
	}
	defer rows.Close()
	var out []*models.Transaction
	for rows.Next() {
		var t models.Transaction
		var priceStr string
		if err := rows.Scan(&t.TransactionID, &t.ShortID, &t.SessionCode, &t.Seller, &t.Buyer, &t.Proposer, &t.Recipient, &t.OfferType, &t.Shape, &t.Quantity, &priceStr, &t.Status); err != nil {
			return nil, storeErr("list_transactions:scan", err)
		}
		t.Price, _ = decimal.NewFromString(priceStr)
		out = append(out, &t)
	}
	return out, nil
}

func (s *Store) CreateTransaction(ctx context.Context, t *models.Transaction) *models.Failure {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO transactions (transaction_id, short_id, session_code, seller, buyer, proposer, recipient, offer_type, shape, quantity, price, status)
		VALUES (gen_random_uuid(), $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,'proposed')`,
		t.ShortID, t.SessionCode, t.Seller, t.Buyer, t.Proposer, t.Recipient, t.OfferType, t.Shape, t.Quantity, t.Price.String())
	if err != nil {
		return storeErr("create_transaction", err)
	}
	return nil
}

func (s *Store) RejectTrade(ctx context.Context, session models.SessionCode, idOrShortID string) (*models.Transaction, *models.Failure) {
	return s.cancelLike(ctx, session, idOrShortID, "")
}

func (s *Store) CancelTrade(ctx context.Context, session models.SessionCode, idOrShortID string, proposer models.ParticipantCode) (*models.Transaction, *models.Failure) {
	return s.cancelLike(ctx, session, idOrShortID, proposer)
}

func (s *Store) cancelLike(ctx context.Context, session models.SessionCode, idOrShortID string, requireProposer models.ParticipantCode) (*models.Transaction, *models.Failure) {
	t, f := s.GetTransaction(ctx, session, idOrShortID)
	if f != nil {
		return nil, f
	}
	if t.Status != models.TransactionProposed {
		return nil, models.NewFailure(models.ErrNotInProposedState, "transaction %s is %s", t.ShortID, t.Status)
	}
	if requireProposer != "" && t.Proposer != requireProposer {
		return nil, models.NewFailure(models.ErrSelfOfferForbidden, "only the proposer may cancel")
	}
	if _, err := s.pool.Exec(ctx, `UPDATE transactions SET status='cancelled' WHERE transaction_id=$1`, t.TransactionID); err != nil {
		return nil, storeErr("cancel", err)
	}
	t.Status = models.TransactionCancelled
	return t, nil
}

func (s *Store) EnqueueProduction(ctx context.Context, e *models.ProductionQueueEntry) *models.Failure {
	return errFailure("enqueue_production")
}
func (s *Store) ListProductionQueue(ctx context.Context, session models.SessionCode, participant models.ParticipantCode) ([]*models.ProductionQueueEntry, *models.Failure) {
	return nil, errFailure("list_production_queue")
}
func (s *Store) PromoteCompletedProductions(ctx context.Context, session models.SessionCode, now time.Time) ([]*models.ProductionQueueEntry, *models.Failure) {
	return nil, errFailure("promote_completed_productions")
}
func (s *Store) StartNextQueued(ctx context.Context, session models.SessionCode, participant models.ParticipantCode, now time.Time) (*models.ProductionQueueEntry, *models.Failure) {
	return nil, errFailure("start_next_queued")
}
func (s *Store) FulfillOrders(ctx context.Context, session models.SessionCode, participant models.ParticipantCode, indices []int, incentivePerOrder decimal.Decimal) (*store.FulfillResult, *models.Failure) {
	return nil, errFailure("fulfill_orders")
}
func (s *Store) CreateInvestment(ctx context.Context, inv *models.Investment) *models.Failure {
	return errFailure("create_investment")
}
func (s *Store) ListInvestments(ctx context.Context, session models.SessionCode, participant models.ParticipantCode) ([]*models.Investment, *models.Failure) {
	return nil, errFailure("list_investments")
}
func (s *Store) GetEssay(ctx context.Context, session models.SessionCode, essayID string) (*models.Essay, *models.Failure) {
	return nil, errFailure("get_essay")
}
func (s *Store) GetAssignment(ctx context.Context, session models.SessionCode, participant models.ParticipantCode) (*models.EssayAssignment, *models.Failure) {
	return nil, errFailure("get_assignment")
}
func (s *Store) SubmitRanking(ctx context.Context, sub *models.RankingSubmission) (*models.Participant, *models.Failure) {
	return nil, errFailure("submit_ranking")
}
func (s *Store) GetCandidateDocument(ctx context.Context, session models.SessionCode, participant models.ParticipantCode) (*models.CandidateDocument, *models.Failure) {
	return nil, errFailure("get_candidate_document")
}
func (s *Store) SetPublicInfo(ctx context.Context, session models.SessionCode) *models.Failure {
	return errFailure("set_public_info")
}
func (s *Store) ReadingPhaseComplete(ctx context.Context, session models.SessionCode) (bool, *models.Failure) {
	return false, errFailure("reading_phase_complete")
}
func (s *Store) CreateMessage(ctx context.Context, m *models.Message) *models.Failure {
	return errFailure("create_message")
}
func (s *Store) GetMessage(ctx context.Context, session models.SessionCode, id string) (*models.Message, *models.Failure) {
	return nil, errFailure("get_message")
}
func (s *Store) ListMessages(ctx context.Context, session models.SessionCode, participant models.ParticipantCode) ([]*models.Message, *models.Failure) {
	return nil, errFailure("list_messages")
}
func (s *Store) ListUnread(ctx context.Context, session models.SessionCode, participant models.ParticipantCode) ([]*models.Message, *models.Failure) {
	return nil, errFailure("list_unread")
}
func (s *Store) MarkDirectRead(ctx context.Context, session models.SessionCode, messageID string) *models.Failure {
	return errFailure("mark_direct_read")
}
func (s *Store) MarkBroadcastSeen(ctx context.Context, session models.SessionCode, messageID string, participant models.ParticipantCode) *models.Failure {
	return errFailure("mark_broadcast_seen")
}
func (s *Store) MaybeMarkBroadcastRead(ctx context.Context, session models.SessionCode, messageID string) *models.Failure {
	return errFailure("maybe_mark_broadcast_read")
}

func errFailure(op string) *models.Failure {
	return models.NewFailure(models.ErrStoreError, "%s: %v", op, errNotImplemented)
}
