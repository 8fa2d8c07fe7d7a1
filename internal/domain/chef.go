package domain

// ChefStyle is the persona the backend answers with.
type ChefStyle string

const (
	ChefPro         ChefStyle = "pro_chef"
	ChefHomeCook    ChefStyle = "home_cook"
	ChefAdventurous ChefStyle = "adventurous_chef"
)

// DefaultChefStyle is used when no style was chosen.
const DefaultChefStyle = ChefHomeCook

var chefStyleLabels = map[string]ChefStyle{
	"Classic Pro Chef": ChefPro,
	"Sweet Home Chef":  ChefHomeCook,
	"Snarky Fun Chef":  ChefAdventurous,
	"Pro Chef":         ChefPro,
	"Home Cook":        ChefHomeCook,
}

// ParseChefStyle maps a dropdown label to the backend value. Backend values
// and unknown labels pass through unchanged; empty input yields the default.
func ParseChefStyle(label string) ChefStyle {
	if label == "" {
		return DefaultChefStyle
	}
	if s, ok := chefStyleLabels[label]; ok {
		return s
	}
	return ChefStyle(label)
}

// Label returns the dropdown label for a backend value.
func (c ChefStyle) Label() string {
	switch c {
	case ChefPro:
		return "Classic Pro Chef"
	case ChefHomeCook:
		return "Sweet Home Chef"
	case ChefAdventurous:
		return "Snarky Fun Chef"
	}
	return string(c)
}
