package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/soyeahso/bakebot/internal/domain"
)

// ErrRecipeNotFound is returned when a saved recipe id does not exist.
var ErrRecipeNotFound = errors.New("recipe not found")

// SavedRecipe is a recipe the user asked to keep.
type SavedRecipe struct {
	ID        int64         `json:"id"`
	Page      string        `json:"page,omitempty"`
	Recipe    domain.Recipe `json:"recipe"`
	CreatedAt time.Time     `json:"createdAt"`
	Rank      float64       `json:"rank,omitempty"` // FTS5 rank score (search results only)
}

// RecipeStore keeps saved recipes with full-text search via SQLite FTS5.
type RecipeStore struct {
	db *DB
}

// NewRecipeStore creates a recipe store using the given database.
func NewRecipeStore(db *DB) *RecipeStore {
	return &RecipeStore{db: db}
}

// SaveRecipe stores a recipe and returns its id. It satisfies
// widget.RecipeSaver.
func (s *RecipeStore) SaveRecipe(ctx context.Context, page string, r domain.Recipe) (int64, error) {
	if strings.TrimSpace(r.Name) == "" {
		return 0, errors.New("recipe has no name")
	}
	body, err := json.Marshal(r)
	if err != nil {
		return 0, fmt.Errorf("encoding recipe: %w", err)
	}

	res, err := s.db.sql.ExecContext(ctx,
		`INSERT INTO saved_recipes (page, name, body, search_text, created_at) VALUES (?, ?, ?, ?, ?)`,
		page, r.Name, string(body), searchText(r), time.Now().UTC().Format(time.DateTime),
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	s.db.log.Debug().Int64("id", id).Str("name", r.Name).Msg("recipe saved")
	return id, nil
}

// Get returns a saved recipe by id.
func (s *RecipeStore) Get(ctx context.Context, id int64) (SavedRecipe, error) {
	rows, err := s.db.sql.QueryContext(ctx,
		`SELECT id, page, body, created_at, 0 FROM saved_recipes WHERE id = ?`, id,
	)
	if err != nil {
		return SavedRecipe{}, err
	}
	defer rows.Close()

	out, err := scanRecipes(rows)
	if err != nil {
		return SavedRecipe{}, err
	}
	if len(out) == 0 {
		return SavedRecipe{}, ErrRecipeNotFound
	}
	return out[0], nil
}

// List returns saved recipes, newest first. Limit of 0 defaults to 100.
func (s *RecipeStore) List(ctx context.Context, limit int) ([]SavedRecipe, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.sql.QueryContext(ctx,
		`SELECT id, page, body, created_at, 0 FROM saved_recipes ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecipes(rows)
}

// Search finds saved recipes whose name, ingredients or directions contain
// every word of query, ranked by relevance. Limit of 0 defaults to 20.
func (s *RecipeStore) Search(ctx context.Context, query string, limit int) ([]SavedRecipe, error) {
	match := ftsQuery(query)
	if match == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.sql.QueryContext(ctx,
		`SELECT r.id, r.page, r.body, r.created_at, rank
		 FROM recipes_fts
		 JOIN saved_recipes r ON r.id = recipes_fts.rowid
		 WHERE recipes_fts MATCH ?
		 ORDER BY rank
		 LIMIT ?`,
		match, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecipes(rows)
}

// Delete removes a saved recipe.
func (s *RecipeStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.sql.ExecContext(ctx, `DELETE FROM saved_recipes WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRecipeNotFound
	}
	return nil
}

func searchText(r domain.Recipe) string {
	parts := append([]string{}, r.Ingredients...)
	parts = append(parts, r.Directions...)
	if desc, ok := r.Extra["desc"].(string); ok {
		parts = append(parts, desc)
	}
	return strings.Join(parts, "\n")
}

// ftsQuery quotes each word so user input cannot break FTS5 syntax. Quoted
// words are ANDed.
func ftsQuery(q string) string {
	var terms []string
	for _, word := range strings.Fields(q) {
		terms = append(terms, `"`+strings.ReplaceAll(word, `"`, `""`)+`"`)
	}
	return strings.Join(terms, " ")
}

func scanRecipes(rows *sql.Rows) ([]SavedRecipe, error) {
	var out []SavedRecipe
	for rows.Next() {
		var rec SavedRecipe
		var body, createdAt string
		if err := rows.Scan(&rec.ID, &rec.Page, &body, &createdAt, &rec.Rank); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(body), &rec.Recipe); err != nil {
			return nil, fmt.Errorf("decoding recipe %d: %w", rec.ID, err)
		}
		rec.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}
