package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	tableAuthors    = "catalog_authors"
	tableBooks      = "catalog_books"
	tableBookGenres = "catalog_book_genres"
	tableGenres     = "catalog_genres"
	tableLanguages  = "catalog_languages"
	tableInstances  = "catalog_bookinstances"
)

// Postgres error codes mapped onto catalog errors.
const (
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"

	borrowerOnLoanConstraint = "bookinstances_borrower_on_loan"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresRepo is the catalog store. It serves the read side through
// Repository and the writes needed by loans and the edit forms.
type PostgresRepo struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewPostgresRepo(db *pgxpool.Pool, timeout time.Duration) *PostgresRepo {
	return &PostgresRepo{db: db, timeout: timeout}
}

func (r *PostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func (r *PostgresRepo) Counts(ctx context.Context) (Summary, error) {
	const query = `
	SELECT
		(SELECT COUNT(*) FROM catalog_books),
		(SELECT COUNT(*) FROM catalog_bookinstances),
		(SELECT COUNT(*) FROM catalog_bookinstances WHERE status = 'a'),
		(SELECT COUNT(*) FROM catalog_authors),
		(SELECT COUNT(*) FROM catalog_genres),
		(SELECT COUNT(*) FROM catalog_languages)
	`
	var s Summary
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	err := r.db.QueryRow(timeoutCtx, query).Scan(
		&s.Books, &s.Instances, &s.InstancesAvailable,
		&s.Authors, &s.Genres, &s.Languages,
	)
	return s, err
}

func bookSelect() sq.SelectBuilder {
	return psql.Select(
		"b.id", "b.title", "b.author_id", "b.summary", "b.isbn", "b.language_id",
		"a.first_name", "a.last_name", "l.name",
	).
		From(tableBooks + " b").
		LeftJoin(tableAuthors + " a ON a.id = b.author_id").
		LeftJoin(tableLanguages + " l ON l.id = b.language_id")
}

func scanBook(row pgx.Row) (Book, error) {
	var (
		b                   Book
		firstName, lastName *string
		language            *string
	)
	if err := row.Scan(
		&b.ID, &b.Title, &b.AuthorID, &b.Summary, &b.ISBN, &b.LanguageID,
		&firstName, &lastName, &language,
	); err != nil {
		return Book{}, err
	}
	if b.AuthorID != nil && firstName != nil && lastName != nil {
		b.Author = &Author{ID: *b.AuthorID, FirstName: *firstName, LastName: *lastName}
	}
	if b.LanguageID != nil && language != nil {
		b.Language = &Language{ID: *b.LanguageID, Name: *language}
	}
	return b, nil
}

func (r *PostgresRepo) queryBooks(ctx context.Context, q sq.SelectBuilder) ([]Book, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) count(ctx context.Context, q sq.SelectBuilder) (int, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return 0, err
	}
	var total int
	err = r.db.QueryRow(ctx, query, args...).Scan(&total)
	return total, err
}

func paginate(q sq.SelectBuilder, limit, offset int) sq.SelectBuilder {
	if limit > 0 {
		q = q.Limit(uint64(limit)).Offset(uint64(offset))
	}
	return q
}

func (r *PostgresRepo) ListBooks(ctx context.Context, limit, offset int) ([]Book, int, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	total, err := r.count(timeoutCtx, psql.Select("COUNT(*)").From(tableBooks))
	if err != nil {
		return nil, 0, err
	}
	books, err := r.queryBooks(timeoutCtx, paginate(bookSelect().OrderBy("b.title ASC", "b.id ASC"), limit, offset))
	if err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

func (r *PostgresRepo) ListBooksByAuthor(ctx context.Context, authorID string) ([]Book, error) {
	id, err := ParseID(authorID)
	if err != nil {
		return nil, nil
	}
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.queryBooks(timeoutCtx, bookSelect().Where(sq.Eq{"b.author_id": id}).OrderBy("b.title ASC"))
}

func (r *PostgresRepo) GetBook(ctx context.Context, id string) (Book, error) {
	id, err := ParseID(id)
	if err != nil {
		return Book{}, err
	}
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	query, args, err := bookSelect().Where(sq.Eq{"b.id": id}).ToSql()
	if err != nil {
		return Book{}, err
	}
	b, err := scanBook(r.db.QueryRow(timeoutCtx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Book{}, fmt.Errorf("book %s: %w", id, ErrNotFound)
		}
		return Book{}, err
	}

	const genresSQL = `
	SELECT g.id, g.name
	FROM catalog_genres g
	JOIN catalog_book_genres bg ON bg.genre_id = g.id
	WHERE bg.book_id = $1
	ORDER BY g.name
	`
	rows, err := r.db.Query(timeoutCtx, genresSQL, id)
	if err != nil {
		return Book{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var g Genre
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return Book{}, err
		}
		b.Genres = append(b.Genres, g)
	}
	return b, rows.Err()
}

func (r *PostgresRepo) ListAuthors(ctx context.Context, limit, offset int) ([]Author, int, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	total, err := r.count(timeoutCtx, psql.Select("COUNT(*)").From(tableAuthors))
	if err != nil {
		return nil, 0, err
	}

	q := psql.Select("id", "first_name", "last_name", "date_of_birth", "date_of_death").
		From(tableAuthors).
		OrderBy("last_name ASC", "first_name ASC", "id ASC")
	query, args, err := paginate(q, limit, offset).ToSql()
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.db.Query(timeoutCtx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Author
	for rows.Next() {
		var a Author
		if err := rows.Scan(&a.ID, &a.FirstName, &a.LastName, &a.DateOfBirth, &a.DateOfDeath); err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}

func (r *PostgresRepo) GetAuthor(ctx context.Context, id string) (Author, error) {
	id, err := ParseID(id)
	if err != nil {
		return Author{}, err
	}
	const query = `
	SELECT id, first_name, last_name, date_of_birth, date_of_death
	FROM catalog_authors
	WHERE id = $1
	`
	var a Author
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	err = r.db.QueryRow(timeoutCtx, query, id).Scan(&a.ID, &a.FirstName, &a.LastName, &a.DateOfBirth, &a.DateOfDeath)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Author{}, fmt.Errorf("author %s: %w", id, ErrNotFound)
		}
		return Author{}, err
	}
	return a, nil
}

func (r *PostgresRepo) ListGenres(ctx context.Context) ([]Genre, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	rows, err := r.db.Query(timeoutCtx, `SELECT id, name FROM catalog_genres ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[Genre])
}

func (r *PostgresRepo) ListLanguages(ctx context.Context) ([]Language, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	rows, err := r.db.Query(timeoutCtx, `SELECT id, name FROM catalog_languages ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[Language])
}

func instanceSelect() sq.SelectBuilder {
	return psql.Select(
		"i.id", "i.book_id", "b.title", "i.imprint", "i.due_back", "i.status", "i.borrower_id",
	).
		From(tableInstances + " i").
		Join(tableBooks + " b ON b.id = i.book_id")
}

func scanInstance(row pgx.Row) (BookInstance, error) {
	var bi BookInstance
	err := row.Scan(&bi.ID, &bi.BookID, &bi.BookTitle, &bi.Imprint, &bi.DueBack, &bi.Status, &bi.BorrowerID)
	return bi, err
}

func instanceWhere(f InstanceFilter) sq.And {
	where := sq.And{}
	if f.BookID != "" {
		where = append(where, sq.Eq{"i.book_id": f.BookID})
	}
	if f.BorrowerID != "" {
		where = append(where, sq.Eq{"i.borrower_id": f.BorrowerID})
	}
	if f.Status != "" {
		where = append(where, sq.Eq{"i.status": string(f.Status)})
	}
	return where
}

func (r *PostgresRepo) ListInstances(ctx context.Context, f InstanceFilter, limit, offset int) ([]BookInstance, int, error) {
	for _, id := range []*string{&f.BookID, &f.BorrowerID} {
		if *id == "" {
			continue
		}
		parsed, err := ParseID(*id)
		if err != nil {
			return nil, 0, nil
		}
		*id = parsed
	}

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	where := instanceWhere(f)
	total, err := r.count(timeoutCtx, psql.Select("COUNT(*)").From(tableInstances+" i").Where(where))
	if err != nil {
		return nil, 0, err
	}

	q := instanceSelect().Where(where).OrderBy("i.due_back ASC NULLS LAST", "i.id ASC")
	query, args, err := paginate(q, limit, offset).ToSql()
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.db.Query(timeoutCtx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []BookInstance
	for rows.Next() {
		bi, err := scanInstance(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, bi)
	}
	return out, total, rows.Err()
}

func (r *PostgresRepo) GetInstance(ctx context.Context, id string) (BookInstance, error) {
	id, err := ParseID(id)
	if err != nil {
		return BookInstance{}, err
	}
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	query, args, err := instanceSelect().Where(sq.Eq{"i.id": id}).ToSql()
	if err != nil {
		return BookInstance{}, err
	}
	bi, err := scanInstance(r.db.QueryRow(timeoutCtx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return BookInstance{}, fmt.Errorf("book instance %s: %w", id, ErrNotFound)
		}
		return BookInstance{}, err
	}
	return bi, nil
}

// UpdateDueBack overwrites the due date of one copy. Concurrent renewals of
// the same copy are last-writer-wins.
func (r *PostgresRepo) UpdateDueBack(ctx context.Context, id string, dueBack time.Time) error {
	id, err := ParseID(id)
	if err != nil {
		return err
	}
	const query = `UPDATE catalog_bookinstances SET due_back = $2 WHERE id = $1`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	result, err := r.db.Exec(timeoutCtx, query, id, NewDate(dueBack))
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("book instance %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *PostgresRepo) CreateAuthor(ctx context.Context, a *Author) error {
	const query = `
	INSERT INTO catalog_authors (id, first_name, last_name, date_of_birth, date_of_death)
	VALUES (gen_random_uuid(), $1, $2, $3, $4)
	RETURNING id
	`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.db.QueryRow(timeoutCtx, query, a.FirstName, a.LastName, a.DateOfBirth, a.DateOfDeath).Scan(&a.ID)
}

func (r *PostgresRepo) UpdateAuthor(ctx context.Context, id string, changes map[string]any) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.update(timeoutCtx, r.db, tableAuthors, id, changes)
}

// DeleteAuthor refuses to remove an author that still has books.
func (r *PostgresRepo) DeleteAuthor(ctx context.Context, id string) error {
	return r.restrictedDelete(ctx, tableAuthors, id,
		`SELECT EXISTS(SELECT 1 FROM catalog_books WHERE author_id = $1)`)
}

func (r *PostgresRepo) CreateBook(ctx context.Context, b *Book, genreIDs []string) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.Begin(timeoutCtx)
	if err != nil {
		return err
	}
	defer tx.Rollback(timeoutCtx)

	const bookSQL = `
	INSERT INTO catalog_books (id, title, author_id, summary, isbn, language_id)
	VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)
	RETURNING id
	`
	err = tx.QueryRow(timeoutCtx, bookSQL, b.Title, b.AuthorID, b.Summary, b.ISBN, b.LanguageID).Scan(&b.ID)
	if err != nil {
		return mapWriteError(fmt.Errorf("insert book: %w", err))
	}
	if err := replaceGenres(timeoutCtx, tx, b.ID, genreIDs); err != nil {
		return err
	}
	return tx.Commit(timeoutCtx)
}

// UpdateBook writes the changed columns. A nil genreIDs leaves the genre
// links untouched; a non-nil slice replaces them.
func (r *PostgresRepo) UpdateBook(ctx context.Context, id string, changes map[string]any, genreIDs []string) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.Begin(timeoutCtx)
	if err != nil {
		return err
	}
	defer tx.Rollback(timeoutCtx)

	if err := r.update(timeoutCtx, tx, tableBooks, id, changes); err != nil {
		return err
	}
	if genreIDs != nil {
		if err := replaceGenres(timeoutCtx, tx, id, genreIDs); err != nil {
			return err
		}
	}
	return tx.Commit(timeoutCtx)
}

// DeleteBook refuses to remove a book that still has copies.
func (r *PostgresRepo) DeleteBook(ctx context.Context, id string) error {
	return r.restrictedDelete(ctx, tableBooks, id,
		`SELECT EXISTS(SELECT 1 FROM catalog_bookinstances WHERE book_id = $1)`)
}

func (r *PostgresRepo) CreateInstance(ctx context.Context, bi *BookInstance) error {
	const query = `
	INSERT INTO catalog_bookinstances (id, book_id, imprint, due_back, status, borrower_id)
	VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)
	RETURNING id
	`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	err := r.db.QueryRow(timeoutCtx, query, bi.BookID, bi.Imprint, bi.DueBack, string(bi.Status), bi.BorrowerID).Scan(&bi.ID)
	if err != nil {
		return mapWriteError(fmt.Errorf("insert book instance: %w", err))
	}
	return nil
}

func (r *PostgresRepo) UpdateInstance(ctx context.Context, id string, changes map[string]any) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.update(timeoutCtx, r.db, tableInstances, id, changes)
}

// DeleteInstance removes exactly one copy.
func (r *PostgresRepo) DeleteInstance(ctx context.Context, id string) error {
	return r.restrictedDelete(ctx, tableInstances, id, "")
}

type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

func (r *PostgresRepo) update(ctx context.Context, db execer, table, id string, changes map[string]any) error {
	id, err := ParseID(id)
	if err != nil {
		return err
	}

	var (
		query string
		args  []any
	)
	if len(changes) == 0 {
		// Nothing changed; still report unknown ids.
		query, args, err = psql.Update(table).Set("id", sq.Expr("id")).Where(sq.Eq{"id": id}).ToSql()
	} else {
		query, args, err = psql.Update(table).SetMap(changes).Where(sq.Eq{"id": id}).ToSql()
	}
	if err != nil {
		return err
	}

	result, err := db.Exec(ctx, query, args...)
	if err != nil {
		return mapWriteError(fmt.Errorf("update %s: %w", table, err))
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%s %s: %w", table, id, ErrNotFound)
	}
	return nil
}

func (r *PostgresRepo) restrictedDelete(ctx context.Context, table, id, referencedSQL string) error {
	id, err := ParseID(id)
	if err != nil {
		return err
	}
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.Begin(timeoutCtx)
	if err != nil {
		return err
	}
	defer tx.Rollback(timeoutCtx)

	if referencedSQL != "" {
		var referenced bool
		if err := tx.QueryRow(timeoutCtx, referencedSQL, id).Scan(&referenced); err != nil {
			return err
		}
		if referenced {
			return fmt.Errorf("%s %s: %w", table, id, ErrInUse)
		}
	}

	query, args, err := psql.Delete(table).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	result, err := tx.Exec(timeoutCtx, query, args...)
	if err != nil {
		return mapDeleteError(fmt.Errorf("delete %s: %w", table, err))
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%s %s: %w", table, id, ErrNotFound)
	}
	return tx.Commit(timeoutCtx)
}

func replaceGenres(ctx context.Context, tx pgx.Tx, bookID string, genreIDs []string) error {
	if _, err := tx.Exec(ctx, `DELETE FROM catalog_book_genres WHERE book_id = $1`, bookID); err != nil {
		return fmt.Errorf("clear genres: %w", err)
	}
	if len(genreIDs) == 0 {
		return nil
	}
	q := psql.Insert(tableBookGenres).Columns("book_id", "genre_id")
	for _, g := range genreIDs {
		q = q.Values(bookID, g)
	}
	query, args, err := q.Suffix("ON CONFLICT DO NOTHING").ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return mapWriteError(fmt.Errorf("link genres: %w", err))
	}
	return nil
}

// mapWriteError turns constraint violations raised by inserts and updates
// into catalog errors. A foreign key violation there means the row points at
// a record that does not exist.
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgForeignKeyViolation:
		return fmt.Errorf("%w: %s", ErrInvalidReference, pgErr.ConstraintName)
	case pgCheckViolation:
		if pgErr.ConstraintName == borrowerOnLoanConstraint {
			return fmt.Errorf("%w: %s", ErrBorrowerNotOnLoan, pgErr.ConstraintName)
		}
	}
	return err
}

// mapDeleteError treats a foreign key violation on delete as a row that is
// still referenced.
func mapDeleteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
		return fmt.Errorf("%w: %s", ErrInUse, pgErr.ConstraintName)
	}
	return mapWriteError(err)
}
