// services/claim_engine.go
package services

import (
	"context"
	"errors"
	"time"

	"claim-link-service/models"

	"go.uber.org/zap"
)

// ClaimOutcome classifies one claim attempt.
type ClaimOutcome string

const (
	OutcomeSuccess        ClaimOutcome = "success"
	OutcomeNotFound       ClaimOutcome = "not_found"
	OutcomeAlreadyClaimed ClaimOutcome = "already_claimed"
	OutcomeExpired        ClaimOutcome = "expired"
	OutcomeServerError    ClaimOutcome = "server_error"
)

// notFoundAttemptCount is reported for unknown links. There is no row to
// count against, so this is a constant rather than a tally.
const notFoundAttemptCount = 1

const (
	MsgClaimSuccess    = "Congratulations! You are the winner. Your Discord role will be granted shortly."
	MsgLinkNotFound    = "Invalid link!"
	MsgAlreadyClaimed  = "This link has already been used!"
	MsgLostRace        = "This link was already used by someone else!"
	MsgLinkExpired     = "This link has expired!"
	MsgClaimServerFail = "Server error, please try again."
)

// ClaimResult is what a caller gets back. Reward and ExpiresAt are set only
// on success; AttemptCount only on rejections.
type ClaimResult struct {
	Outcome          ClaimOutcome
	Message          string
	Reward           string
	ExpiresAt        time.Time
	AttemptCount     int
	AttemptEstimated bool
	LostRace         bool
	Err              error
}

// ClaimNotifier receives committed wins. Notify must not block.
type ClaimNotifier interface {
	Notify(n models.ClaimNotification)
}

// ClaimEngine resolves concurrent redemptions of the same link. All
// serialisation is left to the store's row lock.
type ClaimEngine struct {
	store    LinkStore
	selector *RewardSelector
	notifier ClaimNotifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewClaimEngine(store LinkStore, selector *RewardSelector, notifier ClaimNotifier, logger *zap.Logger) *ClaimEngine {
	return &ClaimEngine{
		store:    store,
		selector: selector,
		notifier: notifier,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock swaps the time source; used by tests.
func (e *ClaimEngine) WithClock(now func() time.Time) *ClaimEngine {
	e.now = now
	return e
}

// AttemptClaim tries to redeem linkID for claimant. The claimant is assumed
// to be validated by the caller.
func (e *ClaimEngine) AttemptClaim(ctx context.Context, linkID string, claimant models.Claimant) ClaimResult {
	start := time.Now()
	// Once started the transaction runs to commit, rollback or lock timeout.
	ctx = context.WithoutCancel(ctx)

	var (
		result   ClaimResult
		observed *models.ClaimLink
	)

	txErr := e.store.WithLinkTx(ctx, func(tx ClaimTx) error {
		link, err := tx.LockLink(linkID)
		if err != nil {
			return err
		}
		observed = link

		if link.Claimed {
			result = ClaimResult{Outcome: OutcomeAlreadyClaimed, Message: MsgAlreadyClaimed}
			return nil
		}

		now := e.now()
		if link.IsExpired(now) {
			result = ClaimResult{Outcome: OutcomeExpired, Message: MsgLinkExpired}
			return nil
		}

		reward := e.selector.Pick()
		applied, err := tx.MarkClaimed(linkID, claimant, reward.Name, now)
		if err != nil {
			return err
		}
		if !applied {
			result = ClaimResult{Outcome: OutcomeAlreadyClaimed, Message: MsgLostRace, LostRace: true}
			return nil
		}

		result = ClaimResult{
			Outcome:   OutcomeSuccess,
			Message:   MsgClaimSuccess,
			Reward:    reward.Name,
			ExpiresAt: link.ExpiresAt,
		}
		return nil
	})

	switch {
	case errors.Is(txErr, ErrLinkNotFound):
		result = ClaimResult{Outcome: OutcomeNotFound, Message: MsgLinkNotFound, AttemptCount: notFoundAttemptCount}
	case txErr != nil:
		result = ClaimResult{Outcome: OutcomeServerError, Message: MsgClaimServerFail, Err: txErr}
	}

	switch result.Outcome {
	case OutcomeAlreadyClaimed, OutcomeExpired, OutcomeServerError:
		e.recordAttempt(ctx, linkID, observed, &result)
	case OutcomeSuccess:
		e.notifier.Notify(models.ClaimNotification{
			Username:  claimant.Username,
			DiscordID: claimant.DiscordID,
			Reward:    result.Reward,
			LinkID:    linkID,
			ClaimedAt: e.now(),
		})
	}

	fields := []zap.Field{
		zap.String("link_id", linkID),
		zap.String("outcome", string(result.Outcome)),
		zap.Int("attempt_count", result.AttemptCount),
		zap.Duration("dur", time.Since(start)),
	}
	if result.Outcome == OutcomeServerError {
		fields = append(fields, zap.String("store_error", DescribeStoreError(result.Err)), zap.Error(result.Err))
		e.logger.Error("claim failed", fields...)
	} else {
		if result.Outcome == OutcomeSuccess {
			fields = append(fields, zap.String("reward", result.Reward), zap.String("username", claimant.Username))
		}
		e.logger.Info("claim resolved", fields...)
	}

	return result
}

// recordAttempt runs after the claim transaction has finished, independent of
// whether it committed. A failure here never changes the outcome; the count
// is then an estimate from the last row we saw.
func (e *ClaimEngine) recordAttempt(ctx context.Context, linkID string, observed *models.ClaimLink, result *ClaimResult) {
	count, err := e.store.IncrementAttempts(ctx, linkID)
	if err == nil {
		result.AttemptCount = count
		return
	}

	e.logger.Warn("attempt counter update failed",
		zap.String("link_id", linkID),
		zap.String("store_error", DescribeStoreError(err)),
		zap.Error(err),
	)
	result.AttemptEstimated = true
	if observed != nil {
		result.AttemptCount = observed.AttemptCount + 1
	} else {
		result.AttemptCount = 1
	}
}
