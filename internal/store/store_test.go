package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/soyeahso/bakebot/internal/domain"
	"github.com/soyeahso/bakebot/internal/logging"
	"github.com/soyeahso/bakebot/internal/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(MemoryPath, logging.New(nil, "silent"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// --- DB/Migration tests ---

func TestOpen_InMemory(t *testing.T) {
	db := testDB(t)
	assert.NotNil(t, db.SQL())

	v, err := db.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, len(migrations), v)
}

func TestOpen_FileIsReopenable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "bakebot.db")
	log := logging.New(nil, "silent")

	db, err := Open(path, log)
	require.NoError(t, err)
	require.NoError(t, NewSessionStore(db).SaveSession("p1", domain.Session{SessionID: "s1"}))
	require.NoError(t, db.Close())

	db, err = Open(path, log)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.sql.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, len(migrations), count)

	sess, ok, err := NewSessionStore(db).LoadSession("p1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "s1", sess.SessionID)
}

// --- Session store tests ---

func TestSessionStore_SaveLoadDelete(t *testing.T) {
	s := NewSessionStore(testDB(t))

	_, ok, err := s.LoadSession("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	want := domain.Session{SessionID: "s1", ThreadID: "t1", Metadata: map[string]any{"page": "landing"}}
	require.NoError(t, s.SaveSession("p1", want))

	got, ok, err := s.LoadSession("p1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)

	want.ThreadID = "t2"
	require.NoError(t, s.SaveSession("p1", want))
	got, _, _ = s.LoadSession("p1")
	assert.Equal(t, "t2", got.ThreadID)

	require.NoError(t, s.DeleteSession("p1"))
	_, ok, err = s.LoadSession("p1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSessionStore_List(t *testing.T) {
	s := NewSessionStore(testDB(t))
	require.NoError(t, s.SaveSession("a", domain.Session{SessionID: "s-a"}))
	require.NoError(t, s.SaveSession("b", domain.Session{SessionID: "s-b"}))

	recs, err := s.List(0)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	pages := []string{recs[0].Page, recs[1].Page}
	assert.ElementsMatch(t, []string{"a", "b"}, pages)
	assert.Nil(t, recs[0].Session.Metadata)
}

// --- Transcript tests ---

func TestTranscript_RecordsInOrder(t *testing.T) {
	db := testDB(t)
	tr := NewTranscript(db, "p1")
	other := NewTranscript(db, "p2")

	tr.AppendMessage("hi", render.SenderUser)
	tr.AppendMessage("hello", render.SenderBot)
	tr.ReplaceRecipePanel("<h2>Soup</h2>")
	tr.AppendSupplementaryOutput("<p>Bread</p>")
	other.AppendMessage("elsewhere", render.SenderUser)

	entries, err := db.TranscriptEntries("p1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	assert.Equal(t, EntryMessage, entries[0].Kind)
	assert.Equal(t, render.SenderUser, entries[0].Sender)
	assert.Equal(t, "hello", entries[1].Content)
	assert.Equal(t, EntryRecipe, entries[2].Kind)
	assert.Equal(t, EntrySupplementary, entries[3].Kind)

	limited, err := db.TranscriptEntries("p1", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	tr.ClearTranscript()
	entries, err = db.TranscriptEntries("p1", 0)
	require.NoError(t, err)
	assert.Empty(t, entries)

	entries, err = db.TranscriptEntries("p2", 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

// --- Local storage tests ---

func TestLocalStorage(t *testing.T) {
	db := testDB(t)
	web := NewLocalStorage(db, "web")
	irc := NewLocalStorage(db, "irc")

	_, ok, err := web.GetItem("recipeData")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, web.SetItem("recipeData", `{"name":"Pie"}`))
	require.NoError(t, web.SetItem("recipeType", "uploaded"))
	require.NoError(t, web.SetItem("recipeType", "new"))

	v, ok, err := web.GetItem("recipeType")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "new", v)

	_, ok, _ = irc.GetItem("recipeData")
	assert.False(t, ok, "origins are isolated")

	keys, err := web.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"recipeData", "recipeType"}, keys)

	require.NoError(t, web.RemoveItem("recipeData"))
	_, ok, _ = web.GetItem("recipeData")
	assert.False(t, ok)
}

// --- Recipe store tests ---

func TestRecipeStore_SaveGetList(t *testing.T) {
	s := NewRecipeStore(testDB(t))
	ctx := context.Background()

	r := domain.Recipe{
		Name:        "Banana Bread",
		Ingredients: []string{"3 ripe bananas", "flour"},
		Directions:  []string{"mash", "bake 60 min"},
		Extra:       map[string]any{"servings": float64(8)},
	}
	id, err := s.SaveRecipe(ctx, "p1", r)
	require.NoError(t, err)
	assert.Positive(t, id)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, r, got.Recipe)
	assert.Equal(t, "p1", got.Page)

	_, err = s.SaveRecipe(ctx, "p1", domain.Recipe{Name: "Tacos"})
	require.NoError(t, err)

	list, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Tacos", list[0].Recipe.Name)

	_, err = s.Get(ctx, 999)
	assert.ErrorIs(t, err, ErrRecipeNotFound)

	_, err = s.SaveRecipe(ctx, "p1", domain.Recipe{})
	assert.Error(t, err)
}

func TestRecipeStore_Search(t *testing.T) {
	s := NewRecipeStore(testDB(t))
	ctx := context.Background()

	for _, r := range []domain.Recipe{
		{Name: "Banana Bread", Ingredients: []string{"bananas", "flour", "walnuts"}},
		{Name: "Walnut Brownies", Ingredients: []string{"cocoa", "walnuts"}},
		{Name: "Tomato Soup", Ingredients: []string{"tomatoes", "basil"}},
	} {
		_, err := s.SaveRecipe(ctx, "", r)
		require.NoError(t, err)
	}

	tests := []struct {
		query string
		want  []string
	}{
		{"basil", []string{"Tomato Soup"}},
		{"bread", []string{"Banana Bread"}},
		{"walnuts flour", []string{"Banana Bread"}},
		{"cocoa OR basil", nil},
		{"   ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			results, err := s.Search(ctx, tt.query, 0)
			require.NoError(t, err)
			var names []string
			for _, r := range results {
				names = append(names, r.Recipe.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestRecipeStore_DeleteUpdatesIndex(t *testing.T) {
	s := NewRecipeStore(testDB(t))
	ctx := context.Background()

	id, err := s.SaveRecipe(ctx, "", domain.Recipe{Name: "Pesto", Ingredients: []string{"basil"}})
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, id))

	results, err := s.Search(ctx, "basil", 0)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.ErrorIs(t, s.Delete(ctx, id), ErrRecipeNotFound)
}

func TestFTSQuery(t *testing.T) {
	assert.Equal(t, `"apple" "pie"`, ftsQuery("apple  pie"))
	assert.Equal(t, `"say" """hi"""`, ftsQuery(`say "hi"`))
	assert.Equal(t, "", ftsQuery(" "))
}
