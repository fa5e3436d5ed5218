package automation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"closedesk/application/ports"
	"closedesk/domain/events"
	"closedesk/domain/model"
	"closedesk/pkg/auth"
	"closedesk/pkg/errors"
	"closedesk/pkg/metrics"

	"go.uber.org/zap"
)

// Options configures the automation engine's sweeps.
type Options struct {
	// ReminderThreshold is how long a transaction may sit in
	// PendingDocuments before its client contact is reminded.
	ReminderThreshold time.Duration
	// ReminderCooldown suppresses repeat reminders for the same
	// transaction across sweep runs. Zero disables suppression and
	// restores one-reminder-per-run behavior.
	ReminderCooldown time.Duration
	// RiskHorizon bounds how far ahead of the closing date the risk
	// sweep looks.
	RiskHorizon time.Duration
	// Sweep intervals.
	ReminderInterval     time.Duration
	RiskInterval         time.Duration
	VerificationInterval time.Duration
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		ReminderThreshold:    3 * 24 * time.Hour,
		ReminderCooldown:     24 * time.Hour,
		RiskHorizon:          14 * 24 * time.Hour,
		ReminderInterval:     24 * time.Hour,
		RiskInterval:         24 * time.Hour,
		VerificationInterval: time.Hour,
	}
}

// Engine runs the automation jobs on their own schedule, decoupled from
// connection handling. Jobs read committed snapshots and tolerate
// slightly stale data; each is re-entrancy guarded so an overrunning
// sweep is skipped, never doubled.
type Engine struct {
	transactions ports.TransactionRepository
	documents    ports.DocumentRepository
	verifier     *Verifier
	emitter      ports.Emitter
	email        ports.EmailSender
	opts         Options
	logger       *zap.Logger
	now          func() time.Time

	reminderRunning     sync.Mutex
	riskRunning         sync.Mutex
	verificationRunning sync.Mutex

	remindedMu   sync.Mutex
	lastReminded map[string]time.Time
}

// NewEngine creates the automation engine.
func NewEngine(
	transactions ports.TransactionRepository,
	documents ports.DocumentRepository,
	verifier *Verifier,
	emitter ports.Emitter,
	email ports.EmailSender,
	opts Options,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		transactions: transactions,
		documents:    documents,
		verifier:     verifier,
		emitter:      emitter,
		email:        email,
		opts:         opts,
		logger:       logger,
		now:          time.Now,
		lastReminded: make(map[string]time.Time),
	}
}

// Start launches the sweep tickers. They stop when ctx is cancelled.
func (e *Engine) Start(ctx context.Context) {
	go e.loop(ctx, "reminders", e.opts.ReminderInterval, e.RunReminderSweep)
	go e.loop(ctx, "risk", e.opts.RiskInterval, e.RunRiskSweep)
	go e.loop(ctx, "verification", e.opts.VerificationInterval, e.RunVerificationSweep)
}

func (e *Engine) loop(ctx context.Context, name string, interval time.Duration, sweep func(context.Context) error) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sweep(ctx); err != nil {
				e.logger.Error("sweep failed",
					zap.String("job", name),
					zap.Error(err))
			}
		}
	}
}

// RunReminderSweep emails the client contact of every transaction stuck
// in PendingDocuments beyond the threshold: at most one reminder per
// transaction per run, and none inside the cooldown window. A previous
// run still in flight causes this one to be skipped.
func (e *Engine) RunReminderSweep(ctx context.Context) error {
	if !e.reminderRunning.TryLock() {
		e.logger.Warn("reminder sweep still running, skipping")
		return nil
	}
	defer e.reminderRunning.Unlock()

	start := e.now()
	defer func() {
		metrics.SweepDuration.WithLabelValues("reminders").Observe(time.Since(start).Seconds())
	}()

	pending, err := e.transactions.ListByStatus(ctx, model.StatusPendingDocuments)
	if err != nil {
		return errors.Wrap(err, "reminder sweep: list pending transactions")
	}

	now := e.now()
	sent := 0
	for _, txn := range pending {
		if now.Sub(txn.UpdatedAt) < e.opts.ReminderThreshold {
			continue
		}
		if !e.shouldRemind(txn.TransactionID, now) {
			continue
		}
		if txn.Parties.ClientContact == "" {
			continue
		}

		subject := "Reminder: documents still needed for your transaction"
		body := fmt.Sprintf(
			"Transaction %s has been waiting on documents since %s. Please upload the outstanding items so closing stays on schedule.",
			txn.TransactionID, txn.UpdatedAt.Format("January 2, 2006"))

		// Failures are isolated per transaction and retried naturally
		// by the next sweep because the cooldown is only recorded on
		// success.
		if err := e.email.Send(ctx, txn.Parties.ClientContact, subject, body); err != nil {
			metrics.NotificationFailures.WithLabelValues("reminder").Inc()
			e.logger.Error("reminder email failed",
				zap.String("transaction_id", txn.TransactionID),
				zap.Error(err))
			continue
		}
		e.recordReminder(txn.TransactionID, now)
		metrics.RemindersSent.Inc()
		sent++
	}

	e.logger.Info("reminder sweep complete",
		zap.Int("eligible", len(pending)),
		zap.Int("sent", sent))
	return nil
}

func (e *Engine) shouldRemind(transactionID string, now time.Time) bool {
	if e.opts.ReminderCooldown <= 0 {
		return true
	}
	e.remindedMu.Lock()
	defer e.remindedMu.Unlock()
	last, ok := e.lastReminded[transactionID]
	return !ok || now.Sub(last) >= e.opts.ReminderCooldown
}

func (e *Engine) recordReminder(transactionID string, now time.Time) {
	e.remindedMu.Lock()
	defer e.remindedMu.Unlock()
	e.lastReminded[transactionID] = now
}

// RunRiskSweep assesses every open transaction closing within the
// horizon and alerts on scores at or above the threshold. One
// transaction's failure never aborts the rest of the sweep.
func (e *Engine) RunRiskSweep(ctx context.Context) error {
	if !e.riskRunning.TryLock() {
		e.logger.Warn("risk sweep still running, skipping")
		return nil
	}
	defer e.riskRunning.Unlock()

	start := e.now()
	defer func() {
		metrics.SweepDuration.WithLabelValues("risk").Observe(time.Since(start).Seconds())
	}()

	open, err := e.transactions.ListOpen(ctx)
	if err != nil {
		return errors.Wrap(err, "risk sweep: list open transactions")
	}

	now := e.now()
	horizonDays := int(e.opts.RiskHorizon.Hours() / 24)
	flagged := 0
	for _, txn := range open {
		if txn.DaysToClosing(now) > horizonDays {
			continue
		}

		docs, err := e.documents.ListByTransaction(ctx, txn.TransactionID)
		if err != nil {
			e.logger.Error("risk sweep: document snapshot failed",
				zap.String("transaction_id", txn.TransactionID),
				zap.Error(err))
			continue
		}

		assessment := AssessDelayRisk(txn, docs, now)
		if !assessment.AtRisk() {
			continue
		}
		flagged++
		metrics.AtRiskDetected.Inc()

		ev := events.TransactionAtRisk{Assessment: assessment}
		e.emitter.EmitToRole(auth.RoleBroker, ev)
		e.emitter.EmitToRole(auth.RoleTC, ev)
		if txn.Parties.AgentID != "" {
			e.emitter.EmitToUser(txn.Parties.AgentID, ev)
		}

		if txn.Parties.ClientContact == "" {
			continue
		}
		subject := "Closing date at risk"
		body := fmt.Sprintf(
			"Transaction %s is at risk of missing its closing date (%d days away, risk score %d). Factors: %v.",
			txn.TransactionID, assessment.DaysToClosing, assessment.RiskScore, assessment.RiskFactors)
		if err := e.email.Send(ctx, txn.Parties.ClientContact, subject, body); err != nil {
			metrics.NotificationFailures.WithLabelValues("risk_alert").Inc()
			e.logger.Error("risk alert email failed",
				zap.String("transaction_id", txn.TransactionID),
				zap.Error(err))
		}
	}

	e.logger.Info("risk sweep complete",
		zap.Int("open", len(open)),
		zap.Int("at_risk", flagged))
	return nil
}

// RunVerificationSweep verifies documents that are still awaiting a
// score, typically because verification failed at upload time.
func (e *Engine) RunVerificationSweep(ctx context.Context) error {
	if !e.verificationRunning.TryLock() {
		e.logger.Warn("verification sweep still running, skipping")
		return nil
	}
	defer e.verificationRunning.Unlock()

	docs, err := e.documents.ListUnverified(ctx)
	if err != nil {
		return errors.Wrap(err, "verification sweep: list unverified")
	}

	for _, doc := range docs {
		if _, err := e.verifier.VerifyDocument(ctx, doc); err != nil {
			e.logger.Error("verification failed",
				zap.String("document_id", doc.DocumentID),
				zap.Error(err))
		}
	}
	return nil
}
