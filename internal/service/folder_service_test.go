package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docvault/internal/domain"
)

func newFolderService() (*FolderService, *cascadeEnv) {
	env := newCascadeEnv()
	return NewFolderService(env.folders, env.files), env
}

func TestFolderCreate(t *testing.T) {
	svc, _ := newFolderService()
	ctx := context.Background()

	folder, err := svc.Create(ctx, "Reports", 1, nil)
	require.NoError(t, err)
	assert.NotZero(t, folder.ID)
	assert.Equal(t, domain.StatusDraft, folder.Status)

	child, err := svc.Create(ctx, "Q1", 1, &folder.ID)
	require.NoError(t, err)
	require.NotNil(t, child.ParentID)
	assert.Equal(t, folder.ID, *child.ParentID)
}

func TestFolderCreate_Validation(t *testing.T) {
	svc, _ := newFolderService()
	ctx := context.Background()

	_, err := svc.Create(ctx, "", 1, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	missing := int64(404)
	_, err = svc.Create(ctx, "orphan", 1, &missing)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	other, err := svc.Create(ctx, "other-dim", 2, nil)
	require.NoError(t, err)
	_, err = svc.Create(ctx, "cross", 1, &other.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestFolderUpdateStatus(t *testing.T) {
	svc, env := newFolderService()
	ctx := context.Background()

	folder, err := svc.Create(ctx, "A", 1, nil)
	require.NoError(t, err)

	require.NoError(t, svc.UpdateStatus(ctx, folder.ID, domain.StatusForChecking))

	updated, err := env.folders.GetByID(ctx, folder.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusForChecking, updated.Status)

	// Skipping the checking step is rejected
	err = svc.UpdateStatus(ctx, folder.ID, domain.StatusForChecking)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestFolderLockUnlock(t *testing.T) {
	svc, env := newFolderService()
	ctx := context.Background()

	folder, err := svc.Create(ctx, "secret", 1, nil)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Lock(ctx, folder.ID, "123"), domain.ErrInvalidInput)
	require.NoError(t, svc.Lock(ctx, folder.ID, "1234"))

	locked, err := env.folders.GetByID(ctx, folder.ID)
	require.NoError(t, err)
	assert.True(t, locked.IsLocked)
	require.NotNil(t, locked.PinHash)
	// Only the hash is stored
	assert.NotEqual(t, "1234", *locked.PinHash)

	assert.ErrorIs(t, svc.Unlock(ctx, folder.ID, "0000"), domain.ErrUnauthorized)
	require.NoError(t, svc.Unlock(ctx, folder.ID, "1234"))

	unlocked, err := env.folders.GetByID(ctx, folder.ID)
	require.NoError(t, err)
	assert.False(t, unlocked.IsLocked)
}

func TestFolderGetContent(t *testing.T) {
	svc, env := newFolderService()
	ctx := context.Background()

	folder, err := svc.Create(ctx, "A", 1, nil)
	require.NoError(t, err)
	_, err = svc.Create(ctx, "B", 1, &folder.ID)
	require.NoError(t, err)
	env.mkFile(t, "a.txt", 1, &folder.ID)

	content, err := svc.GetContent(ctx, folder.ID)
	require.NoError(t, err)
	assert.Equal(t, folder.ID, content.Folder.ID)
	assert.Len(t, content.Folders, 1)
	assert.Len(t, content.Files, 1)
}

func TestFolderGetRootContent(t *testing.T) {
	svc, env := newFolderService()
	ctx := context.Background()

	_, err := svc.Create(ctx, "top", 1, nil)
	require.NoError(t, err)
	env.mkFile(t, "root.txt", 1, nil)
	_, err = svc.Create(ctx, "other-dim", 2, nil)
	require.NoError(t, err)

	content, err := svc.GetRootContent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, content.Folders, 1)
	assert.Len(t, content.Files, 1)
}
