package report

import (
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/nickng/bibtex"

	"paperflow_go_backend/internal/models"
)

var citeKeyUnsafe = regexp.MustCompile(`[^A-Za-z0-9]+`)

// Proceedings builds one @inproceedings entry per paper, ordered by title.
// Papers in any other status than Accepted are skipped.
func Proceedings(conference models.Conference, papers []models.Paper) *bibtex.BibTex {
	accepted := make([]models.Paper, 0, len(papers))
	for _, p := range papers {
		if p.Status == models.PaperStatusAccepted && p.ConferenceID == conference.ID {
			accepted = append(accepted, p)
		}
	}
	sort.Slice(accepted, func(i, j int) bool {
		return strings.ToLower(accepted[i].Title) < strings.ToLower(accepted[j].Title)
	})

	bib := bibtex.NewBibTex()
	used := make(map[string]int)
	for _, p := range accepted {
		key := citeKey(conference, p)
		used[key]++
		if n := used[key]; n > 1 {
			key = fmt.Sprintf("%s%c", key, 'a'+n-1)
		}

		entry := bibtex.NewBibEntry("inproceedings", key)
		entry.AddField("title", bibtex.NewBibConst(clean(p.Title)))
		if names := bibAuthors(p.Authors); names != "" {
			entry.AddField("author", bibtex.NewBibConst(names))
		}
		entry.AddField("booktitle", bibtex.NewBibConst(clean(conference.Name)))
		entry.AddField("year", bibtex.NewBibConst(fmt.Sprintf("%d", conference.Year)))
		if p.Keywords != "" {
			entry.AddField("keywords", bibtex.NewBibConst(clean(p.Keywords)))
		}
		if p.PageCount > 0 {
			entry.AddField("numpages", bibtex.NewBibConst(fmt.Sprintf("%d", p.PageCount)))
		}
		bib.AddEntry(entry)
	}
	return bib
}

// WriteProceedings writes the BibTeX export of a conference's accepted papers.
func WriteProceedings(w io.Writer, conference models.Conference, papers []models.Paper) error {
	_, err := io.WriteString(w, Proceedings(conference, papers).PrettyString())
	return err
}

// citeKey is the first author's surname, the year and the first title word.
func citeKey(conference models.Conference, p models.Paper) string {
	surname := "anon"
	if len(p.Authors) > 0 {
		parts := strings.Fields(p.Authors[0].Name)
		if len(parts) > 0 {
			surname = parts[len(parts)-1]
		}
	}
	word := "paper"
	for _, w := range strings.Fields(p.Title) {
		if w = citeKeyUnsafe.ReplaceAllString(w, ""); len(w) > 3 {
			word = w
			break
		}
	}
	if surname = citeKeyUnsafe.ReplaceAllString(surname, ""); surname == "" {
		surname = "anon"
	}
	return fmt.Sprintf("%s%d%s", strings.ToLower(surname), conference.Year, strings.ToLower(word))
}

func bibAuthors(authors []models.User) string {
	names := make([]string, 0, len(authors))
	for _, a := range authors {
		if n := clean(a.Name); n != "" {
			names = append(names, n)
		}
	}
	return strings.Join(names, " and ")
}

// clean drops characters that would unbalance a braced BibTeX value.
func clean(s string) string {
	s = strings.NewReplacer("{", "", "}", "", "\n", " ", "\r", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}
