package domain

import (
	"encoding/json"
	"fmt"
	"maps"
	"strings"
)

// Recipe is the recipe owned by a page view. Fields the widget does not
// interpret (desc, preptime, servings, ...) are kept in Extra and survive a
// JSON round trip.
type Recipe struct {
	Name        string
	Ingredients []string
	Directions  []string
	Extra       map[string]any
}

// Field aliases used by the recipe entry form.
var recipeAliases = map[string]string{
	"recipe_name":        "name",
	"recipe_ingredients": "ingredients",
	"recipe_directions":  "directions",
}

func (r Recipe) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Extra)+3)
	maps.Copy(out, r.Extra)
	out["name"] = r.Name
	out["ingredients"] = nonNil(r.Ingredients)
	out["directions"] = nonNil(r.Directions)
	return json.Marshal(out)
}

func (r *Recipe) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Recipe{Extra: map[string]any{}}
	for key, val := range raw {
		if canonical, ok := recipeAliases[key]; ok {
			key = canonical
		}
		switch key {
		case "name":
			s, ok := val.(string)
			if !ok {
				return fmt.Errorf("recipe name: expected string, got %T", val)
			}
			r.Name = s
		case "ingredients":
			r.Ingredients = toLines(val)
		case "directions":
			r.Directions = toLines(val)
		default:
			r.Extra[key] = val
		}
	}
	if len(r.Extra) == 0 {
		r.Extra = nil
	}
	return nil
}

// ParseRecipe interprets a tool or upload payload as a recipe. It accepts a
// bare recipe object or one wrapped as {"recipe": {...}}.
func ParseRecipe(payload string) (Recipe, bool) {
	payload = strings.TrimSpace(payload)
	if !strings.HasPrefix(payload, "{") {
		return Recipe{}, false
	}
	var wrapped struct {
		Recipe *Recipe `json:"recipe"`
	}
	if err := json.Unmarshal([]byte(payload), &wrapped); err == nil && wrapped.Recipe != nil && wrapped.Recipe.Name != "" {
		return *wrapped.Recipe, true
	}
	var r Recipe
	if err := json.Unmarshal([]byte(payload), &r); err != nil || r.Name == "" {
		return Recipe{}, false
	}
	return r, true
}

// Markdown renders the recipe for the recipe panel.
func (r Recipe) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", r.Name)
	if desc, ok := r.Extra["desc"].(string); ok && desc != "" {
		fmt.Fprintf(&b, "%s\n\n", desc)
	}

	var facts []string
	for _, f := range []struct{ key, label, unit string }{
		{"preptime", "Prep time", " min"},
		{"cooktime", "Cook time", " min"},
		{"totaltime", "Total time", " min"},
		{"servings", "Servings", ""},
		{"calories", "Calories", ""},
	} {
		if v, ok := r.Extra[f.key]; ok && v != nil {
			facts = append(facts, fmt.Sprintf("**%s:** %v%s", f.label, v, f.unit))
		}
	}
	if len(facts) > 0 {
		b.WriteString(strings.Join(facts, " | "))
		b.WriteString("\n\n")
	}

	if len(r.Ingredients) > 0 {
		b.WriteString("### Ingredients\n\n")
		for _, ing := range r.Ingredients {
			fmt.Fprintf(&b, "- %s\n", ing)
		}
		b.WriteString("\n")
	}
	if len(r.Directions) > 0 {
		b.WriteString("### Directions\n\n")
		for i, step := range r.Directions {
			fmt.Fprintf(&b, "%d. %s\n", i+1, step)
		}
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// Text renders the recipe as a single prose line, the way an uploaded
// recipe is described to the chat backend.
func (r Recipe) Text() string {
	parts := []string{"name: " + r.Name}
	if len(r.Ingredients) > 0 {
		parts = append(parts, "ingredients: "+strings.Join(r.Ingredients, ", "))
	}
	if len(r.Directions) > 0 {
		parts = append(parts, "directions: "+strings.Join(r.Directions, " "))
	}
	return strings.Join(parts, "; ")
}

func toLines(v any) []string {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		var out []string
		for _, line := range strings.Split(t, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				out = append(out, line)
			}
		}
		return out
	case nil:
		return nil
	default:
		return []string{fmt.Sprint(t)}
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
