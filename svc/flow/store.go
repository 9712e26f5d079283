package flow

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// SessionStore keeps flow sessions until they expire.
type SessionStore interface {
	// Save writes s with a time to live of ttl.
	Save(ctx context.Context, s *Session, ttl time.Duration) error
	// Get returns ErrFlowNotFound for unknown or expired sessions.
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
	// IncrAttempts counts one more attempt on session id and returns the
	// new total. The increment is atomic across concurrent callers. The
	// counter outlives Delete and Consume and expires after ttl, so a
	// request racing a finished session cannot restart the count.
	IncrAttempts(ctx context.Context, id string, ttl time.Duration) (int, error)
	// Consume deletes session id and reports whether this call removed it.
	// Of several concurrent callers at most one gets true.
	Consume(ctx context.Context, id string) (bool, error)
}

func attemptsKey(id string) string {
	return id + ":attempts"
}

func encode(s *Session) ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, errors.Join(ErrFailedToEncode, err)
	}
	return b, nil
}

func decode(b []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, errors.Join(ErrFailedToEncode, err)
	}
	return &s, nil
}
