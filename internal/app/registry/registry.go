/*
Package registry maintains the authoritative table of currently connected users.

It is the single source of truth for presence: one entry per live user ID,
created by the join handshake and removed exactly once on disconnect. All
mutation is serialized behind one mutex so concurrent sessions observe a total
order of register/deregister/update operations.
*/
package registry

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"termio/internal/pkg/errs"
	"termio/internal/pkg/logx"
	"termio/internal/pkg/randx"
	"termio/internal/protocol"
)

// User is the immutable identity assigned to a connection at join time.
type User struct {
	// ID is a server-generated unique token, stable for the connection's
	// lifetime and never reused within a server process.
	ID string

	// Username is the display name provided at join. Duplicates are allowed;
	// users are disambiguated by ID.
	Username string

	// ConnectedAt is fixed at registration.
	ConnectedAt time.Time
}

// Info converts the user to its wire-format presence summary.
func (u User) Info() protocol.UserInfo {
	return protocol.UserInfo{
		UserID:      u.ID,
		Username:    u.Username,
		ConnectedAt: u.ConnectedAt.UTC().Format(time.RFC3339),
	}
}

type entry struct {
	user        User
	latestFrame *protocol.Frame
}

// Registry is the shared mapping from user ID to presence and most-recent frame.
type Registry struct {
	mu sync.RWMutex

	users map[string]*entry

	// order preserves join order for snapshots.
	order []string

	limit  int
	logger zerolog.Logger
}

// New creates a registry accepting at most limit concurrent users.
func New(limit int) *Registry {
	return &Registry{
		users:  make(map[string]*entry),
		limit:  limit,
		logger: logx.Logger().With().Str("component", "registry").Logger(),
	}
}

// Register assigns a fresh user ID to the given display name and adds the
// entry. It fails with ErrServerFull when the configured connection limit
// is reached, leaving the registry unchanged.
func (r *Registry) Register(username string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.limit > 0 && len(r.users) >= r.limit {
		r.logger.Warn().
			Int("limit", r.limit).
			Str("username", username).
			Msg("Registration rejected: user limit reached.")
		return User{}, errs.NewError(errs.ErrServerFull)
	}

	user := User{
		ID:          randx.UserID(),
		Username:    username,
		ConnectedAt: time.Now(),
	}

	r.users[user.ID] = &entry{user: user}
	r.order = append(r.order, user.ID)

	r.logger.Info().
		Str("user_id", user.ID).
		Str("username", username).
		Int("total_users", len(r.users)).
		Msg("User registered.")

	return user, nil
}

// UpdateFrame replaces the user's latest frame. An unknown ID is a no-op:
// a late frame racing a disconnect is a benign race, not an error.
func (r *Registry) UpdateFrame(userID string, frame *protocol.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.users[userID]; ok {
		e.latestFrame = frame
	}
}

// LatestFrame returns the most recently stored frame for the user, or false
// when the user is unknown or has not sent one yet.
func (r *Registry) LatestFrame(userID string) (*protocol.Frame, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.users[userID]
	if !ok || e.latestFrame == nil {
		return nil, false
	}
	return e.latestFrame, true
}

// Deregister removes the entry for the given user ID. It is idempotent:
// removed is true only the first time, so the caller emits at most one
// Leave announcement.
func (r *Registry) Deregister(userID string) (User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.users[userID]
	if !ok {
		return User{}, false
	}

	delete(r.users, userID)
	for i, id := range r.order {
		if id == userID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	r.logger.Info().
		Str("user_id", userID).
		Str("username", e.user.Username).
		Int("total_users", len(r.users)).
		Msg("User deregistered.")

	return e.user, true
}

// Snapshot returns the presence summaries of all connected users in join
// order, taken under a single consistent view.
func (r *Registry) Snapshot() []protocol.UserInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]protocol.UserInfo, 0, len(r.order))
	for _, id := range r.order {
		if e, ok := r.users[id]; ok {
			users = append(users, e.user.Info())
		}
	}
	return users
}

// Count returns the number of currently registered users.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}
