package classify

import (
	"strings"

	"gigcal/internal/model"
)

// Field names the event attribute a genre rule inspects.
type Field string

const (
	FieldCategory Field = "category"
	FieldName     Field = "name"
)

// GenreRule assigns Genre when Field contains any of Keywords
// (case-insensitive substring match).
type GenreRule struct {
	Field    Field
	Keywords []string
	Genre    model.Genre
}

// genreRules is evaluated top to bottom and the first match wins.
// Structured category labels outrank name heuristics. Titles matching
// several keywords (e.g. "Jazz Tribute") resolve purely by this order.
var genreRules = []GenreRule{
	{FieldCategory, []string{"jazz"}, model.GenreJazz},
	{FieldCategory, []string{"blues"}, model.GenreBlues},
	{FieldCategory, []string{"rock", "indie", "punk", "metal"}, model.GenreRock},
	{FieldCategory, []string{"folk", "acoustic", "americana", "country"}, model.GenreFolk},
	{FieldCategory, []string{"big band", "swing"}, model.GenreBigBand},

	{FieldName, []string{"tribute", "~"}, model.GenreTribute},
	{FieldName, []string{"big band", "swing"}, model.GenreBigBand},
	{FieldName, []string{"jazz"}, model.GenreJazz},
	{FieldName, []string{"blues"}, model.GenreBlues},
	{FieldName, []string{"rock", "metal", "punk"}, model.GenreRock},
	{FieldName, []string{"folk", "acoustic", "americana"}, model.GenreFolk},
}

// GenreRules returns a copy of the ordered rule table.
func GenreRules() []GenreRule {
	out := make([]GenreRule, len(genreRules))
	copy(out, genreRules)
	return out
}

// ClassifyGenre derives the genre of ev. It is total: events matching no
// rule are GenreOther.
func ClassifyGenre(ev model.NormalizedEvent) model.Genre {
	fields := map[Field]string{
		FieldCategory: strings.ToLower(ev.Category),
		FieldName:     strings.ToLower(ev.Name),
	}

	for _, r := range genreRules {
		value := fields[r.Field]
		if value == "" {
			continue
		}
		if containsAny(value, r.Keywords) {
			return r.Genre
		}
	}
	return model.GenreOther
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
