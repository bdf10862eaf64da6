package service

import (
	"context"
	"log/slog"

	"github.com/Respawn-Gate/Respawngate/internal/domain/gate"
	"github.com/Respawn-Gate/Respawngate/internal/domain/journal"
)

// GateSession is the session surface the gate service consumes: the
// transactional slice plus the identity the journal records.
type GateSession interface {
	gate.Session
	ChainID() string
	Wallet() string
}

// EntryRecorder accepts journal entries without blocking the caller.
// Satisfied by *JournalService; a nil recorder disables journaling.
type EntryRecorder interface {
	Record(entry journal.Entry)
}

// GateService runs the gate's user-facing operations end to end. Status
// checks delegate to the checker; respawn and pay verify, submit, and
// journal the outcome. Respawn and Pay never return an error value:
// failures land inside the Result so every surface renders a local
// refusal, a wallet rejection, and an on-chain abort the same way.
type GateService struct {
	checker *gate.Checker
	journal EntryRecorder
	logger  *slog.Logger
}

// NewGateService creates a gate service. journal may be nil when
// journaling is disabled.
func NewGateService(checker *gate.Checker, journal EntryRecorder, logger *slog.Logger) *GateService {
	if logger == nil {
		logger = slog.Default()
	}
	return &GateService{
		checker: checker,
		journal: journal,
		logger:  logger,
	}
}

// Status derives the current gate snapshot for the session's account.
func (s *GateService) Status(ctx context.Context, sess GateSession, cfg gate.Config) (*gate.Status, error) {
	return s.checker.Check(ctx, sess, cfg)
}

// Respawn takes the free path. The cooldown is re-checked immediately
// before submitting; an active cooldown refuses locally without
// touching the wallet. Refusals are not journaled, submissions are,
// successful or not.
func (s *GateService) Respawn(ctx context.Context, sess GateSession, cfg gate.Config) *gate.Result {
	res := &gate.Result{Option: gate.OptionWait}

	status, err := s.checker.Check(ctx, sess, cfg)
	if err != nil {
		res.Err = err.Error()
		return res
	}
	if !status.CanRespawnFree {
		res.Err = "cooldown active: " + gate.FormatRemaining(status.Remaining)
		s.logger.Debug("respawn refused",
			"account", sess.Account(),
			"remaining", status.Remaining,
		)
		return res
	}

	tx, err := gate.RecordFreeAccess(ctx, sess, cfg)
	if err != nil {
		res.Err = err.Error()
		s.logger.Warn("respawn submission failed",
			"account", sess.Account(),
			"error", err,
		)
	} else {
		res.Success = true
		res.Transaction = tx
		s.logger.Info("respawn recorded",
			"account", sess.Account(),
			"tx_id", tx.TransactionID,
		)
	}
	s.journalResult(sess, journal.EventRespawn, res, "", "")
	return res
}

// Pay buys past the cooldown. No local eligibility check: paying is
// always allowed and the token contract is the authority on whether the
// balance covers it.
func (s *GateService) Pay(ctx context.Context, sess GateSession, cfg gate.Config) *gate.Result {
	res := &gate.Result{Option: gate.OptionPay}

	tx, err := gate.PayForAccess(ctx, sess, cfg)
	if err != nil {
		res.Err = err.Error()
		s.logger.Warn("payment submission failed",
			"account", sess.Account(),
			"quantity", cfg.PaymentAmount,
			"error", err,
		)
	} else {
		res.Success = true
		res.Transaction = tx
		s.logger.Info("cooldown bypass paid",
			"account", sess.Account(),
			"quantity", cfg.PaymentAmount,
			"tx_id", tx.TransactionID,
		)
	}
	s.journalResult(sess, journal.EventPay, res, cfg.PaymentAmount, cfg.Memo())
	return res
}

// journalResult records one attempted submission, failed ones included.
func (s *GateService) journalResult(sess GateSession, event string, res *gate.Result, quantity, memo string) {
	if s.journal == nil {
		return
	}
	entry := newSessionEntry(event, sess)
	entry.Quantity = quantity
	entry.Memo = memo
	entry.Error = res.Err
	if res.Transaction != nil {
		entry.TxID = res.Transaction.TransactionID
	}
	s.journal.Record(entry)
}
