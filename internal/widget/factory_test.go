package widget

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/soyeahso/bakebot/internal/config"
	"github.com/soyeahso/bakebot/internal/domain"
	"github.com/soyeahso/bakebot/internal/logging"
	"github.com/soyeahso/bakebot/internal/render"
	"github.com/soyeahso/bakebot/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactory_PersistsAcrossPageViews(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":"Welcome back","session_id":"s-42","thread_id":"t-42","tool_return_values":[
			{"tool_name":"create_recipe","tool_output":{"name":"Gnocchi","ingredients":["potatoes"],"directions":["boil"]}}
		]}`))
	}))
	defer backend.Close()

	log := logging.New(nil, "silent")
	db, err := store.Open(store.MemoryPath, log)
	require.NoError(t, err)
	defer db.Close()

	cfg := config.Defaults()
	cfg.Backend.BaseURL = backend.URL
	f := NewFactory(cfg, db, nil, log)
	ctx := context.Background()

	page := render.NewPage(cfg.Widget.BotName)
	w, err := f.Open(ctx, PageOptions{Page: "tab-1", Origin: "web", Renderer: page})
	require.NoError(t, err)

	_, err = w.Ask(ctx, domain.ModeAskQuestion, "dinner idea?")
	require.NoError(t, err)
	_, err = w.SaveRecipe(ctx)
	require.NoError(t, err)
	w.Close(ctx)

	// a new page view with the same key resumes the session
	again, err := f.Open(ctx, PageOptions{Page: "tab-1", Origin: "web", Renderer: render.NewPage("bakebot")})
	require.NoError(t, err)
	assert.Equal(t, "s-42", again.Session().SessionID)

	entries, err := db.TranscriptEntries("tab-1", 0)
	require.NoError(t, err)
	var kinds []string
	for _, e := range entries {
		kinds = append(kinds, e.Kind)
	}
	// greeting, user, bot, recipe panel, greeting of the second view
	assert.Equal(t, []string{store.EntryMessage, store.EntryMessage, store.EntryMessage, store.EntryRecipe, store.EntryMessage}, kinds)

	saved, err := store.NewRecipeStore(db).Search(ctx, "potatoes", 0)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "Gnocchi", saved[0].Recipe.Name)
}

func TestFactory_GeneratesPageKey(t *testing.T) {
	f := NewFactory(config.Defaults(), nil, nil, logging.New(nil, "silent"))
	w, err := f.Open(context.Background(), PageOptions{Renderer: render.NewPage("bakebot")})
	require.NoError(t, err)
	assert.Len(t, w.Page(), 36)
}
