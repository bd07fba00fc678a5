package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"claim-link-service/models"
)

// memoryLinkStore is a LinkStore backed by a map. Each row has its own mutex
// standing in for the row lock; writes made inside a transaction are staged and
// only applied when fn returns nil.
type memoryLinkStore struct {
	mu    sync.Mutex
	links map[string]*memoryRow

	lockErr      error
	markErr      error
	incrementErr error
	// beforeMark runs inside MarkClaimed before the conditional check, with
	// the committed row; tests use it to simulate a concurrent writer.
	beforeMark func(row *models.ClaimLink)

	increments int
}

type memoryRow struct {
	lock sync.Mutex
	row  models.ClaimLink
}

func newMemoryLinkStore(links ...models.ClaimLink) *memoryLinkStore {
	s := &memoryLinkStore{links: make(map[string]*memoryRow)}
	for _, l := range links {
		s.links[l.ID] = &memoryRow{row: l}
	}
	return s
}

func (s *memoryLinkStore) get(id string) (*memoryRow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.links[id]
	return r, ok
}

// snapshot returns the committed row.
func (s *memoryLinkStore) snapshot(id string) models.ClaimLink {
	r, _ := s.get(id)
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.row
}

func (s *memoryLinkStore) incrementCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.increments
}

type memoryClaimTx struct {
	store  *memoryLinkStore
	held   *memoryRow
	staged *models.ClaimLink
}

func (s *memoryLinkStore) WithLinkTx(ctx context.Context, fn func(tx ClaimTx) error) error {
	tx := &memoryClaimTx{store: s}
	defer func() {
		if tx.held != nil {
			tx.held.lock.Unlock()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if tx.staged != nil {
		tx.held.row = *tx.staged
	}
	return nil
}

func (t *memoryClaimTx) LockLink(id string) (*models.ClaimLink, error) {
	if t.store.lockErr != nil {
		return nil, t.store.lockErr
	}
	r, ok := t.store.get(id)
	if !ok {
		return nil, ErrLinkNotFound
	}
	r.lock.Lock()
	t.held = r
	row := r.row
	return &row, nil
}

func (t *memoryClaimTx) MarkClaimed(id string, claimant models.Claimant, reward string, at time.Time) (bool, error) {
	if t.store.markErr != nil {
		return false, t.store.markErr
	}
	if t.held == nil || t.held.row.ID != id {
		return false, errors.New("row not locked")
	}
	if t.store.beforeMark != nil {
		t.store.beforeMark(&t.held.row)
	}
	if t.held.row.Claimed {
		return false, nil
	}
	next := t.held.row
	next.Claimed = true
	next.WinnerUsername = &claimant.Username
	next.DiscordID = &claimant.DiscordID
	next.RoleReward = &reward
	next.ClaimedAt = &at
	t.staged = &next
	return true, nil
}

func (s *memoryLinkStore) IncrementAttempts(ctx context.Context, id string) (int, error) {
	s.mu.Lock()
	s.increments++
	s.mu.Unlock()
	if s.incrementErr != nil {
		return 0, s.incrementErr
	}
	r, ok := s.get(id)
	if !ok {
		return 0, ErrLinkNotFound
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	r.row.AttemptCount++
	return r.row.AttemptCount, nil
}

func (s *memoryLinkStore) IsClaimed(ctx context.Context, id string) (bool, error) {
	r, ok := s.get(id)
	if !ok {
		return false, ErrLinkNotFound
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.row.Claimed, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []models.ClaimNotification
}

func (n *recordingNotifier) Notify(c models.ClaimNotification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, c)
}

func (n *recordingNotifier) all() []models.ClaimNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]models.ClaimNotification, len(n.sent))
	copy(out, n.sent)
	return out
}
