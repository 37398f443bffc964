package catalog

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"locallibrary/internal/testutil"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapWriteError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "insert pointing at nothing",
			err:  &pgconn.PgError{Code: pgForeignKeyViolation, ConstraintName: "catalog_books_author_id_fkey"},
			want: ErrInvalidReference,
		},
		{
			name: "borrower on a copy that is not on loan",
			err:  fmt.Errorf("update: %w", &pgconn.PgError{Code: pgCheckViolation, ConstraintName: borrowerOnLoanConstraint}),
			want: ErrBorrowerNotOnLoan,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, mapWriteError(tt.err), tt.want)
		})
	}
}

func TestMapDeleteError(t *testing.T) {
	// Detail text is localized by lc_messages and is not relied on.
	localized := &pgconn.PgError{
		Code:           pgForeignKeyViolation,
		ConstraintName: "catalog_books_author_id_fkey",
		Detail:         `La clé (id)=(x) est toujours référencée à partir de la table « catalog_books ».`,
	}

	err := mapDeleteError(fmt.Errorf("delete catalog_authors: %w", localized))

	assert.ErrorIs(t, err, ErrInUse)
	assert.NotErrorIs(t, err, ErrInvalidReference)

	t.Run("other errors fall through", func(t *testing.T) {
		check := &pgconn.PgError{Code: pgCheckViolation, ConstraintName: borrowerOnLoanConstraint}
		assert.ErrorIs(t, mapDeleteError(check), ErrBorrowerNotOnLoan)

		plain := errors.New("boom")
		assert.Same(t, plain, mapDeleteError(plain))
	})
}

func TestMapWriteError_Passthrough(t *testing.T) {
	other := &pgconn.PgError{Code: pgCheckViolation, ConstraintName: "authors_death_after_birth"}
	plain := errors.New("boom")

	assert.Same(t, other, mapWriteError(other))
	assert.Same(t, plain, mapWriteError(plain))
}

func TestInstanceWhere(t *testing.T) {
	sql, args, err := instanceWhere(InstanceFilter{BorrowerID: "u1", Status: StatusOnLoan}).ToSql()

	require.NoError(t, err)
	assert.Equal(t, "(i.borrower_id = ? AND i.status = ?)", sql)
	assert.Equal(t, []interface{}{"u1", "o"}, args)
}

func newTestRepo(t *testing.T) (*PostgresRepo, func(string, string)) {
	pool := testutil.OpenTestDB(t)
	return NewPostgresRepo(pool, 5*time.Second), func(id, name string) {
		testutil.InsertUser(t, pool, id, name, "MEMBER")
	}
}

func seedBook(t *testing.T, repo *PostgresRepo) (Author, Book) {
	ctx := context.Background()
	a := Author{FirstName: "Frank", LastName: "Herbert", DateOfBirth: NewDate(time.Date(1920, 10, 8, 0, 0, 0, 0, time.UTC))}
	require.NoError(t, repo.CreateAuthor(ctx, &a))
	b := Book{Title: "Dune", AuthorID: &a.ID, Summary: "Spice.", ISBN: "9780441013593"}
	require.NoError(t, repo.CreateBook(ctx, &b, nil))
	return a, b
}

func TestPostgresRepo_DeletePolicy(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	a, b := seedBook(t, repo)
	first := BookInstance{BookID: b.ID, Imprint: "Ace, 1990", Status: StatusAvailable}
	second := BookInstance{BookID: b.ID, Imprint: "Chilton, 1965", Status: StatusMaintenance}
	require.NoError(t, repo.CreateInstance(ctx, &first))
	require.NoError(t, repo.CreateInstance(ctx, &second))

	assert.ErrorIs(t, repo.DeleteAuthor(ctx, a.ID), ErrInUse)
	_, err := repo.GetAuthor(ctx, a.ID)
	assert.NoError(t, err, "author is still present")

	assert.ErrorIs(t, repo.DeleteBook(ctx, b.ID), ErrInUse)

	require.NoError(t, repo.DeleteInstance(ctx, first.ID))
	_, err = repo.GetInstance(ctx, first.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.GetInstance(ctx, second.ID)
	assert.NoError(t, err, "only the deleted copy is gone")

	assert.ErrorIs(t, repo.DeleteInstance(ctx, first.ID), ErrNotFound)
}

func TestPostgresRepo_BorrowerInvariant(t *testing.T) {
	repo, addUser := newTestRepo(t)
	ctx := context.Background()
	userID := "3a4b5c6d-7e8f-4091-a2b3-c4d5e6f70819"
	addUser(userID, "reader")

	_, b := seedBook(t, repo)
	bi := BookInstance{BookID: b.ID, Imprint: "Ace", Status: StatusAvailable, BorrowerID: &userID}

	assert.ErrorIs(t, repo.CreateInstance(ctx, &bi), ErrBorrowerNotOnLoan)

	bi.Status = StatusOnLoan
	require.NoError(t, repo.CreateInstance(ctx, &bi))

	err := repo.UpdateInstance(ctx, bi.ID, map[string]any{"status": "a"})
	assert.ErrorIs(t, err, ErrBorrowerNotOnLoan)
}

func TestPostgresRepo_LoansAndRenewal(t *testing.T) {
	repo, addUser := newTestRepo(t)
	ctx := context.Background()
	userID := "3a4b5c6d-7e8f-4091-a2b3-c4d5e6f70819"
	addUser(userID, "reader")

	_, b := seedBook(t, repo)
	later := BookInstance{BookID: b.ID, Imprint: "A", Status: StatusOnLoan, BorrowerID: &userID,
		DueBack: NewDate(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))}
	sooner := BookInstance{BookID: b.ID, Imprint: "B", Status: StatusOnLoan, BorrowerID: &userID,
		DueBack: NewDate(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))}
	free := BookInstance{BookID: b.ID, Imprint: "C", Status: StatusAvailable}
	for _, bi := range []*BookInstance{&later, &sooner, &free} {
		require.NoError(t, repo.CreateInstance(ctx, bi))
	}

	loans, total, err := repo.ListInstances(ctx, InstanceFilter{BorrowerID: userID, Status: StatusOnLoan}, PageSize, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, loans, 2)
	assert.Equal(t, sooner.ID, loans[0].ID, "soonest due first")
	assert.Equal(t, "Dune", loans[0].BookTitle)

	renewed := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpdateDueBack(ctx, sooner.ID, renewed))
	got, err := repo.GetInstance(ctx, sooner.ID)
	require.NoError(t, err)
	assert.True(t, renewed.Equal(got.DueBack.Time))

	summary, err := repo.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, Summary{Books: 1, Instances: 3, InstancesAvailable: 1, Authors: 1}, summary)
}

func TestPostgresRepo_UpdateUnknownID(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	err := repo.UpdateAuthor(ctx, "0b6c2f0e-1111-4222-8333-944455556666", map[string]any{"first_name": "X"})
	assert.ErrorIs(t, err, ErrNotFound)

	err = repo.UpdateDueBack(ctx, "not-a-uuid", time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}
