package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/collate"
)

// Suggestion is a title close to a requested one.
type Suggestion struct {
	Category string
	Title    string
	Distance int
}

// Suggest returns up to limit songs whose titles are within edit distance of
// title, closest first. It is used to answer "did you mean" after a failed
// lookup. The cutoff is a third of the title length, but never below 2.
func (c *Catalog) Suggest(ctx context.Context, title string, limit int) ([]Suggestion, error) {
	want := strings.ToLower(strings.TrimSpace(title))
	if want == "" || limit <= 0 {
		return nil, nil
	}
	maxDist := utf8.RuneCountInString(want) / 3
	if maxDist < 2 {
		maxDist = 2
	}

	rows, err := c.db.QueryContext(ctx, "SELECT category, title FROM songs")
	if err != nil {
		return nil, fmt.Errorf("suggest titles: %w", err)
	}
	defer rows.Close()

	var out []Suggestion
	for rows.Next() {
		var s Suggestion
		if err := rows.Scan(&s.Category, &s.Title); err != nil {
			return nil, fmt.Errorf("scan title: %w", err)
		}
		s.Distance = levenshtein.ComputeDistance(want, strings.ToLower(s.Title))
		if s.Distance <= maxDist {
			out = append(out, s)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("suggest titles: %w", err)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].Category < out[j].Category
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// sortByCollation orders summaries by category, then title, under coll.
func sortByCollation(coll *collate.Collator, s []Summary) {
	sort.SliceStable(s, func(i, j int) bool {
		if r := coll.CompareString(s[i].Category, s[j].Category); r != 0 {
			return r < 0
		}
		return coll.CompareString(s[i].Title, s[j].Title) < 0
	})
}
