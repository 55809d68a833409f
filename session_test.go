package mailinglist_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-mailinglist"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBunSessionStore_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	store := mailinglist.NewBunSessionStore(db)
	ctx := context.Background()

	userID := uuid.New()
	id, err := store.Create(ctx, userID)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	record, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, record.ID)
	assert.Equal(t, userID, record.UserID)
}

func TestBunSessionStore_GetUnknown(t *testing.T) {
	db := setupTestDB(t)
	store := mailinglist.NewBunSessionStore(db)

	_, err := store.Get(context.Background(), "no-such-session")
	assert.ErrorIs(t, err, mailinglist.ErrSessionNotFound)
}

func TestBunSessionStore_RotateRetiresOldID(t *testing.T) {
	db := setupTestDB(t)
	store := mailinglist.NewBunSessionStore(db)
	ctx := context.Background()

	userID := uuid.New()
	initial, err := store.Create(ctx, userID)
	require.NoError(t, err)

	rotated, err := store.Rotate(ctx, initial)
	require.NoError(t, err)
	require.NotEqual(t, initial, rotated)

	_, err = store.Get(ctx, initial)
	assert.ErrorIs(t, err, mailinglist.ErrSessionNotFound)

	record, err := store.Get(ctx, rotated)
	require.NoError(t, err)
	assert.Equal(t, userID, record.UserID)
}

func TestBunSessionStore_RotateUnknown(t *testing.T) {
	db := setupTestDB(t)
	store := mailinglist.NewBunSessionStore(db)

	_, err := store.Rotate(context.Background(), "no-such-session")
	assert.ErrorIs(t, err, mailinglist.ErrSessionNotFound)
}

func TestBunSessionStore_TTLExpiry(t *testing.T) {
	db := setupTestDB(t)
	store := mailinglist.NewBunSessionStore(db, mailinglist.WithSessionTTL(25*time.Millisecond))
	ctx := context.Background()

	id, err := store.Create(ctx, uuid.New())
	require.NoError(t, err)

	time.Sleep(60 * time.Millisecond)

	_, err = store.Get(ctx, id)
	assert.ErrorIs(t, err, mailinglist.ErrSessionNotFound)
}

func TestBunSessionStore_TouchExtendsWindow(t *testing.T) {
	db := setupTestDB(t)
	store := mailinglist.NewBunSessionStore(db, mailinglist.WithSessionTTL(150*time.Millisecond))
	ctx := context.Background()

	id, err := store.Create(ctx, uuid.New())
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, store.Touch(ctx, id))
	time.Sleep(100 * time.Millisecond)

	// 200ms after creation, but only 100ms after the touch
	_, err = store.Get(ctx, id)
	assert.NoError(t, err)
}

func TestSessionManager_EstablishNeverReturnsPreRotationID(t *testing.T) {
	db := setupTestDB(t)
	recording := &recordingSessionStore{SessionStore: mailinglist.NewBunSessionStore(db)}
	manager := mailinglist.NewSessionManager(recording).WithLogger(silentLogger{})
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		id, err := manager.Establish(ctx, uuid.New())
		require.NoError(t, err)
		assert.NotContains(t, recording.created, id)
	}
}

func TestSessionManager_AuthorizeFailsClosed(t *testing.T) {
	db := setupTestDB(t)
	manager := mailinglist.NewSessionManager(mailinglist.NewBunSessionStore(db)).WithLogger(silentLogger{})
	ctx := context.Background()

	_, err := manager.Authorize(ctx, "")
	assert.ErrorIs(t, err, mailinglist.ErrUnauthorized)

	_, err = manager.Authorize(ctx, "never-issued")
	assert.ErrorIs(t, err, mailinglist.ErrUnauthorized)
}

func TestSessionManager_EstablishAuthorizeDestroy(t *testing.T) {
	db := setupTestDB(t)
	manager := mailinglist.NewSessionManager(mailinglist.NewBunSessionStore(db)).WithLogger(silentLogger{})
	ctx := context.Background()

	userID := uuid.New()
	id, err := manager.Establish(ctx, userID)
	require.NoError(t, err)

	record, err := manager.Authorize(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, userID, record.UserID)

	require.NoError(t, manager.Destroy(ctx, id))

	_, err = manager.Authorize(ctx, id)
	assert.ErrorIs(t, err, mailinglist.ErrUnauthorized)

	// destroying again is a no-op
	assert.NoError(t, manager.Destroy(ctx, id))
}
