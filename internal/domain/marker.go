package domain

import "strings"

// Marker is a named reaction a user can attach to a message to pick an answer.
type Marker struct {
	Name  string
	Emoji string
	Color string
}

// Label is how the marker is written in message text.
func (m Marker) Label() string {
	if m.Emoji != "" {
		return m.Emoji
	}
	return ":" + m.Name + ":"
}

// Family is the ordered set of markers valid for one kind of question.
type Family []Marker

func (f Family) Contains(name string) bool {
	for _, m := range f {
		if m.Name == name {
			return true
		}
	}
	return false
}

var (
	MarkerTrue  = Marker{Name: "this", Emoji: "✅"}
	MarkerFalse = Marker{Name: "not-this", Emoji: "❌"}

	// BooleanMarkers is ordered [True, False].
	BooleanMarkers = Family{MarkerTrue, MarkerFalse}

	// ChoiceMarkers assigns a marker to each multiple choice position.
	ChoiceMarkers = Family{
		{Name: "green_heart", Emoji: "💚", Color: "#6C9935"},
		{Name: "yellow_heart", Emoji: "💛", Color: "#F3C200"},
		{Name: "heart", Emoji: "❤️", Color: "#B6281E"},
		{Name: "blue_heart", Emoji: "💙", Color: "#3176EF"},
	}
)

// MaxChoices bounds the number of answers of a multiple choice question.
var MaxChoices = min(4, len(ChoiceMarkers))

// FamilyOf returns the family a marker belongs to, or nil for a stray marker.
func FamilyOf(m Marker) Family {
	switch {
	case BooleanMarkers.Contains(m.Name):
		return BooleanMarkers
	case ChoiceMarkers.Contains(m.Name):
		return ChoiceMarkers
	default:
		return nil
	}
}

// FamilyFor returns the markers users answer a question of the given kind with.
func FamilyFor(k Kind) Family {
	if k == KindBoolean {
		return BooleanMarkers
	}
	return ChoiceMarkers
}

// LookupMarker finds a known marker by name or emoji. Emoji variation selectors are
// ignored since chat clients add or drop them freely.
func LookupMarker(nameOrEmoji string) (Marker, bool) {
	e := stripVariation(nameOrEmoji)
	for _, f := range []Family{BooleanMarkers, ChoiceMarkers} {
		for _, m := range f {
			if m.Name == nameOrEmoji || stripVariation(m.Emoji) == e {
				return m, true
			}
		}
	}
	return Marker{}, false
}

func stripVariation(s string) string {
	return strings.ReplaceAll(s, "\uFE0F", "")
}
