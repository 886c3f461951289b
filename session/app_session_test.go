package session

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() time.Time { return time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC) }

func newTestAppStore(t *testing.T) (*AppSessionStore, redismock.ClientMock) {
	t.Helper()
	rdb, mock := redismock.NewClientMock()
	s := NewAppSessionStore(rdb, time.Hour)
	s.now = fixedClock
	return s, mock
}

func TestAppSessionCreate(t *testing.T) {
	s, mock := newTestAppStore(t)
	payload, err := s.encode("u1", "Amina", true)
	require.NoError(t, err)

	mock.ExpectTxPipeline()
	mock.ExpectSet(key("sid-1"), payload, time.Hour).SetVal("OK")
	mock.ExpectSAdd(userSetKey("u1"), "sid-1").SetVal(1)
	mock.ExpectExpire(userSetKey("u1"), time.Hour).SetVal(true)
	mock.ExpectTxPipelineExec()

	require.NoError(t, s.Create(context.Background(), "sid-1", "u1", "Amina", true))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppSessionGet(t *testing.T) {
	s, mock := newTestAppStore(t)
	payload, err := s.encode("u1", "Amina", false)
	require.NoError(t, err)

	mock.ExpectGet(key("sid-1")).SetVal(payload)
	as, err := s.Get(context.Background(), "sid-1")
	require.NoError(t, err)
	assert.Equal(t, "u1", as.UserID)
	assert.Equal(t, "Amina", as.Name)
	assert.False(t, as.IsAdmin)
	assert.Equal(t, fixedClock().Unix(), as.IssuedAt)
	assert.Equal(t, fixedClock().Add(time.Hour).Unix(), as.ExpiresAt)

	mock.ExpectGet(key("gone")).RedisNil()
	_, err = s.Get(context.Background(), "gone")
	assert.ErrorIs(t, err, ErrNoSession)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppSessionDelete(t *testing.T) {
	s, mock := newTestAppStore(t)
	payload, err := s.encode("u1", "Amina", false)
	require.NoError(t, err)

	mock.ExpectGet(key("sid-1")).SetVal(payload)
	mock.ExpectTxPipeline()
	mock.ExpectDel(key("sid-1")).SetVal(1)
	mock.ExpectSRem(userSetKey("u1"), "sid-1").SetVal(1)
	mock.ExpectTxPipelineExec()

	require.NoError(t, s.Delete(context.Background(), "sid-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppSessionRevokeAllForUser(t *testing.T) {
	s, mock := newTestAppStore(t)

	mock.ExpectSMembers(userSetKey("u1")).SetVal([]string{"a", "b"})
	mock.ExpectTxPipeline()
	mock.ExpectDel(key("a")).SetVal(1)
	mock.ExpectDel(key("b")).SetVal(1)
	mock.ExpectDel(userSetKey("u1")).SetVal(1)
	mock.ExpectTxPipelineExec()

	require.NoError(t, s.RevokeAllForUser(context.Background(), "u1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
