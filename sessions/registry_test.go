package sessions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestAddReadRevoke(t *testing.T) {
	r := NewRegistry(time.Hour)
	defer r.Stop()

	s := Session{ID: NewID(), UserID: 1, Email: "ann@example.com", ExpiresAt: time.Now().Add(time.Hour)}
	r.Add(s)

	got, err := r.Read(s.ID)
	require.NoError(t, err)
	assert.Equal(t, s, got)

	r.Revoke(s.ID)
	_, err = r.Read(s.ID)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestExpiredSessionsAreNotReturned(t *testing.T) {
	r := NewRegistry(time.Hour)
	defer r.Stop()

	old := Session{ID: NewID(), ExpiresAt: time.Now().Add(-time.Second)}
	live := Session{ID: NewID(), ExpiresAt: time.Now().Add(time.Hour)}
	r.Add(old)
	r.Add(live)

	_, err := r.Read(old.ID)
	require.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 2, r.Len())

	assert.Equal(t, 1, r.expire(time.Now()))
	assert.Equal(t, 1, r.Len())
}

func TestCleanupLoopDropsExpired(t *testing.T) {
	r := NewRegistry(5 * time.Millisecond)
	r.Add(Session{ID: NewID(), ExpiresAt: time.Now().Add(10 * time.Millisecond)})

	require.Eventually(t, func() bool { return r.Len() == 0 }, time.Second, 5*time.Millisecond)
	r.Stop()
	r.Stop()
}

func TestNewIDIsUnique(t *testing.T) {
	assert.NotEqual(t, NewID(), NewID())
}
