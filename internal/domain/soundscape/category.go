package soundscape

import "fmt"

// Category is one of the four fixed scent presets.
// It selects both the audio timbre and the visual palette.
type Category string

const (
	MandarinCedarwood Category = "mandarin-cedarwood"
	EucalyptusHinoki  Category = "eucalyptus-hinoki"
	BergamotAmber     Category = "bergamot-amber"
	BlackteaPalo      Category = "blacktea-palo"
)

// DefaultCategory is the category a fresh session starts in
const DefaultCategory = EucalyptusHinoki

var categories = [...]Category{
	MandarinCedarwood,
	EucalyptusHinoki,
	BergamotAmber,
	BlackteaPalo,
}

var categoryLabels = map[Category]string{
	MandarinCedarwood: "Mandarin + Cedar",
	EucalyptusHinoki:  "Eucalyptus + Hinoki",
	BergamotAmber:     "Bergamot + Amber",
	BlackteaPalo:      "Black Tea + Palo",
}

// Categories returns all categories in display order
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories[:])
	return out
}

// ParseCategory validates a category name
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

// Valid reports whether c is one of the fixed categories
func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// Label returns the human readable name
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

func (c Category) String() string { return string(c) }
