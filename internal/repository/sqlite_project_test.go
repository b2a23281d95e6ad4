package repository

import (
	"context"
	"testing"

	"github.com/alexanderramin/hourglass/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectRepo_CreateAndGetByID(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteProjectRepo(db)
	ctx := context.Background()

	proj := testutil.NewTestProject("Algebra")
	require.NoError(t, repo.Create(ctx, proj))
	assert.NotZero(t, proj.ID)

	fetched, err := repo.GetByID(ctx, proj.ID)
	require.NoError(t, err)
	assert.Equal(t, "Algebra", fetched.Name)
	assert.Equal(t, proj.Identifier, fetched.Identifier)
}

func TestProjectRepo_DuplicateIdentifier(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteProjectRepo(db)
	ctx := context.Background()

	proj := testutil.NewTestProject("Algebra")
	require.NoError(t, repo.Create(ctx, proj))

	dup := testutil.NewTestProject("Other")
	dup.Identifier = proj.Identifier
	err := repo.Create(ctx, dup)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestProjectRepo_GetByID_NotFound(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteProjectRepo(db)

	_, err := repo.GetByID(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestActivityRepo_CreateAndGetByID(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteActivityRepo(db)
	ctx := context.Background()

	act := testutil.NewTestActivity("Development")
	require.NoError(t, repo.Create(ctx, act))

	fetched, err := repo.GetByID(ctx, act.ID)
	require.NoError(t, err)
	assert.Equal(t, "Development", fetched.Name)
	assert.True(t, fetched.Active)

	_, err = repo.GetByID(ctx, act.ID+1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepo_GetByLogin(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteUserRepo(db)
	ctx := context.Background()

	u := testutil.NewTestUser("alice", testutil.WithName("Alice", "Smith"), testutil.WithAdmin())
	require.NoError(t, repo.Create(ctx, u))

	fetched, err := repo.GetByLogin(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, fetched.ID)
	assert.True(t, fetched.Admin)
	assert.Equal(t, "Alice Smith", fetched.String())

	_, err = repo.GetByLogin(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)

	err = repo.Create(ctx, testutil.NewTestUser("alice"))
	assert.ErrorIs(t, err, ErrConflict)
}

func TestUserRepo_ExplicitID(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteUserRepo(db)
	ctx := context.Background()

	u := testutil.NewTestUser("bob")
	u.ID = 42
	require.NoError(t, repo.Create(ctx, u))

	fetched, err := repo.GetByID(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "bob", fetched.Login)
	assert.Equal(t, "bob", fetched.String())
}
