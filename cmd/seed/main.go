package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"locallibrary/internal/auth"
	"locallibrary/internal/catalog"
	"locallibrary/internal/config"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/lo"
)

type demoBook struct {
	title, summary, isbn string
	author               int
	language             string
	genres               []string
}

var (
	genres    = []string{"Fantasy", "Science Fiction", "French Poetry", "Mystery", "History"}
	languages = []string{"English", "French", "Spanish"}
	authors   = [][2]string{{"Patrick", "Rothfuss"}, {"Ursula", "Le Guin"}, {"Frank", "Herbert"}, {"Charles", "Baudelaire"}}
	books     = []demoBook{
		{"The Name of the Wind", "Told in Kvothe's own voice.", "9780756404079", 0, "English", []string{"Fantasy"}},
		{"The Wise Man's Fear", "Day two of the chronicle.", "9780756407919", 0, "English", []string{"Fantasy"}},
		{"A Wizard of Earthsea", "Ged learns the cost of power.", "9780553383041", 1, "English", []string{"Fantasy"}},
		{"The Left Hand of Darkness", "An envoy on the world of Gethen.", "9780441478125", 1, "English", []string{"Science Fiction"}},
		{"Dune", "Spice, sand and prophecy.", "9780441013593", 2, "English", []string{"Science Fiction"}},
		{"Les Fleurs du mal", "Poèmes.", "9782070411252", 3, "French", []string{"French Poetry"}},
	}
	imprints = []string{"Penguin, 2007", "DAW Books, 2011", "Ace, 1990", "Gallimard, 1972"}
)

func main() {
	extra := flag.Int("extra", 0, "Number of generated copies to add on top of the demo catalog")
	flag.Parse()

	config.LoadEnvFiles()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	repo := catalog.NewPostgresRepo(pool, cfg.DBTimeout)

	member, err := upsertUser(ctx, pool, "member", auth.RoleMember)
	if err != nil {
		log.Fatalf("Failed to insert users: %v", err)
	}
	librarian, err := upsertUser(ctx, pool, "librarian", auth.RoleLibrarian)
	if err != nil {
		log.Fatalf("Failed to insert users: %v", err)
	}

	genreIDs, err := insertNames(ctx, pool, "catalog_genres", genres)
	if err != nil {
		log.Fatalf("Failed to insert genres: %v", err)
	}
	languageIDs, err := insertNames(ctx, pool, "catalog_languages", languages)
	if err != nil {
		log.Fatalf("Failed to insert languages: %v", err)
	}

	authorIDs := make([]string, len(authors))
	for i, name := range authors {
		a := catalog.Author{FirstName: name[0], LastName: name[1]}
		if err := repo.CreateAuthor(ctx, &a); err != nil {
			log.Fatalf("Failed to insert author %s: %v", a.Name(), err)
		}
		authorIDs[i] = a.ID
	}

	var bookIDs []string
	for _, d := range books {
		langID := languageIDs[d.language]
		b := catalog.Book{
			Title:      d.title,
			AuthorID:   &authorIDs[d.author],
			Summary:    d.summary,
			ISBN:       d.isbn,
			LanguageID: &langID,
		}
		ids := lo.Map(d.genres, func(g string, _ int) string { return genreIDs[g] })
		if err := repo.CreateBook(ctx, &b, ids); err != nil {
			log.Fatalf("Failed to insert book %q: %v", d.title, err)
		}
		bookIDs = append(bookIDs, b.ID)
	}

	today := catalog.Today(time.Now())
	statuses := []catalog.LoanStatus{catalog.StatusAvailable, catalog.StatusOnLoan, catalog.StatusMaintenance, catalog.StatusReserved}
	copies := 0
	for i, bookID := range bookIDs {
		for j := 0; j < 3; j++ {
			bi := catalog.BookInstance{
				BookID:  bookID,
				Imprint: imprints[(i+j)%len(imprints)],
				Status:  statuses[(i+j)%len(statuses)],
			}
			if bi.Status == catalog.StatusOnLoan {
				bi.BorrowerID = &member
				bi.DueBack = catalog.NewDate(today.AddDate(0, 0, 7*(j+1)-10))
			}
			if err := repo.CreateInstance(ctx, &bi); err != nil {
				log.Fatalf("Failed to insert copy: %v", err)
			}
			copies++
		}
	}

	if *extra > 0 {
		n, err := copyInstances(ctx, pool, bookIDs, *extra)
		if err != nil {
			log.Fatalf("Failed to bulk insert copies: %v", err)
		}
		copies += int(n)
	}

	summary, err := repo.Counts(ctx)
	if err != nil {
		log.Fatalf("Failed to count: %v", err)
	}
	log.Printf("Seeded %d books, %d copies (%d available), %d authors", summary.Books, copies, summary.InstancesAvailable, summary.Authors)

	printToken(cfg.JWTSecret, "member", member, auth.RoleMember, nil)
	printToken(cfg.JWTSecret, "librarian", librarian, auth.RoleLibrarian, []string{auth.PermMarkReturned, auth.PermEdit})
}

// upsertUser returns the id of username, creating the user when missing.
func upsertUser(ctx context.Context, pool *pgxpool.Pool, username, role string) (string, error) {
	var id string
	err := pool.QueryRow(ctx, `INSERT INTO users (id, username, role) VALUES ($1, $2, $3)
		ON CONFLICT (username) DO UPDATE SET role = EXCLUDED.role
		RETURNING id`, uuid.NewString(), username, role).Scan(&id)
	return id, err
}

// insertNames upserts name-only reference rows and returns their ids by name.
func insertNames(ctx context.Context, pool *pgxpool.Pool, table string, names []string) (map[string]string, error) {
	ids := make(map[string]string, len(names))
	query := fmt.Sprintf(`INSERT INTO %s (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`, pgx.Identifier{table}.Sanitize())
	for _, name := range names {
		var id string
		if err := pool.QueryRow(ctx, query, name).Scan(&id); err != nil {
			return nil, err
		}
		ids[name] = id
	}
	return ids, nil
}

// copyInstances bulk loads available copies with COPY.
func copyInstances(ctx context.Context, pool *pgxpool.Pool, bookIDs []string, n int) (int64, error) {
	rows := make([][]any, n)
	for i := range rows {
		rows[i] = []any{uuid.NewString(), lo.Sample(bookIDs), imprints[rand.Intn(len(imprints))], "a"}
	}
	return pool.CopyFrom(ctx,
		pgx.Identifier{"catalog_bookinstances"},
		[]string{"id", "book_id", "imprint", "status"},
		pgx.CopyFromRows(rows),
	)
}

func printToken(secret, label, userID, role string, perms []string) {
	token, _, err := auth.GenerateToken(secret, userID, role, perms, 30*24*time.Hour)
	if err != nil {
		log.Fatalf("Failed to sign %s token: %v", label, err)
	}
	fmt.Printf("%s (%s): Bearer %s\n", label, userID, token)
}
