package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create widget sessions, transcript and local storage",
		SQL: `
			CREATE TABLE widget_sessions (
				page        TEXT PRIMARY KEY,
				session_id  TEXT NOT NULL DEFAULT '',
				thread_id   TEXT NOT NULL DEFAULT '',
				metadata    TEXT,
				created_at  TEXT NOT NULL DEFAULT (datetime('now')),
				updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_widget_sessions_session ON widget_sessions (session_id);

			CREATE TABLE transcript (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				page        TEXT NOT NULL,
				kind        TEXT NOT NULL,
				sender      TEXT NOT NULL DEFAULT '',
				content     TEXT NOT NULL,
				created_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_transcript_page ON transcript (page, id);

			CREATE TABLE local_storage (
				origin      TEXT NOT NULL,
				key         TEXT NOT NULL,
				value       TEXT NOT NULL,
				updated_at  TEXT NOT NULL DEFAULT (datetime('now')),
				PRIMARY KEY (origin, key)
			);
		`,
	},
	{
		Version: 2,
		Name:    "create saved recipes with FTS5",
		SQL: `
			CREATE TABLE saved_recipes (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				page        TEXT NOT NULL DEFAULT '',
				name        TEXT NOT NULL,
				body        TEXT NOT NULL,
				search_text TEXT NOT NULL,
				created_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_saved_recipes_name ON saved_recipes (name);

			CREATE VIRTUAL TABLE recipes_fts USING fts5(
				name,
				search_text,
				content='saved_recipes',
				content_rowid='id'
			);

			CREATE TRIGGER saved_recipes_ai AFTER INSERT ON saved_recipes BEGIN
				INSERT INTO recipes_fts(rowid, name, search_text)
				VALUES (new.id, new.name, new.search_text);
			END;

			CREATE TRIGGER saved_recipes_ad AFTER DELETE ON saved_recipes BEGIN
				INSERT INTO recipes_fts(recipes_fts, rowid, name, search_text)
				VALUES ('delete', old.id, old.name, old.search_text);
			END;

			CREATE TRIGGER saved_recipes_au AFTER UPDATE ON saved_recipes BEGIN
				INSERT INTO recipes_fts(recipes_fts, rowid, name, search_text)
				VALUES ('delete', old.id, old.name, old.search_text);
				INSERT INTO recipes_fts(rowid, name, search_text)
				VALUES (new.id, new.name, new.search_text);
			END;
		`,
	},
}
