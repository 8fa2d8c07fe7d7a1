package store

import (
	"time"

	"github.com/soyeahso/bakebot/internal/logging"
	"github.com/soyeahso/bakebot/internal/render"
)

// Transcript entry kinds.
const (
	EntryMessage       = "message"
	EntryRecipe        = "recipe"
	EntrySupplementary = "supplementary"
)

// TranscriptEntry is one recorded display update.
type TranscriptEntry struct {
	ID        int64         `json:"id"`
	Page      string        `json:"page"`
	Kind      string        `json:"kind"`
	Sender    render.Sender `json:"sender,omitempty"`
	Content   string        `json:"content"`
	CreatedAt time.Time     `json:"createdAt"`
}

// Transcript records the display updates of one page. It implements
// render.Renderer so it can sit next to the visible renderer.
type Transcript struct {
	db   *DB
	page string
	log  *logging.Logger
}

// NewTranscript creates a transcript recorder for a page.
func NewTranscript(db *DB, page string) *Transcript {
	return &Transcript{db: db, page: page, log: db.log.With("page", page)}
}

func (t *Transcript) AppendMessage(text string, sender render.Sender) {
	t.record(EntryMessage, sender, text)
}

func (t *Transcript) ReplaceRecipePanel(html string) {
	t.record(EntryRecipe, "", html)
}

func (t *Transcript) AppendSupplementaryOutput(html string) {
	t.record(EntrySupplementary, "", html)
}

// ClearTranscript deletes every entry of the page.
func (t *Transcript) ClearTranscript() {
	if _, err := t.db.sql.Exec(`DELETE FROM transcript WHERE page = ?`, t.page); err != nil {
		t.log.Error().Err(err).Msg("failed to clear transcript")
	}
}

func (t *Transcript) record(kind string, sender render.Sender, content string) {
	_, err := t.db.sql.Exec(
		`INSERT INTO transcript (page, kind, sender, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		t.page, kind, string(sender), content, time.Now().UTC().Format(time.DateTime),
	)
	if err != nil {
		t.log.Error().Err(err).Str("kind", kind).Msg("failed to record transcript entry")
	}
}

// TranscriptEntries returns a page's entries in the order they were shown.
// Limit 0 returns everything.
func (db *DB) TranscriptEntries(page string, limit int) ([]TranscriptEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.sql.Query(
		`SELECT id, page, kind, sender, content, created_at
		 FROM transcript WHERE page = ? ORDER BY id LIMIT ?`, page, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TranscriptEntry
	for rows.Next() {
		var e TranscriptEntry
		var sender, createdAt string
		if err := rows.Scan(&e.ID, &e.Page, &e.Kind, &sender, &e.Content, &createdAt); err != nil {
			return nil, err
		}
		e.Sender = render.Sender(sender)
		e.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
		out = append(out, e)
	}
	return out, rows.Err()
}
