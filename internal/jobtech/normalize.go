package jobtech

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/spigell/marketsync/internal/jobs"
	"github.com/tidwall/gjson"
)

// Normalize converts one search hit into a jobs.Job.
// It never fails: missing or oddly typed fields become empty values.
func Normalize(hit gjson.Result) jobs.Job {
	location := joinNonEmpty(", ",
		str(hit, "workplace_address.municipality"),
		str(hit, "workplace_address.region"),
	)
	if location == "" {
		location = str(hit, "workplace_address.city")
	}

	description := str(hit, "description.text")
	if description == "" {
		description = htmlToText(str(hit, "description.text_formatted"))
	}

	return jobs.Job{
		ID:               str(hit, "id"),
		Source:           Source,
		SourceURL:        firstNonEmpty(str(hit, "webpage_url"), str(hit, "application_details.url")),
		Title:            firstNonEmpty(str(hit, "headline"), str(hit, "title")),
		Company:          str(hit, "employer.name"),
		Location:         location,
		EmploymentType:   firstNonEmpty(str(hit, "employment_type.label"), str(hit, "employment_type")),
		Seniority:        "",
		Description:      description,
		RequirementsText: str(hit, "description.requirements"),
		Skills:           labels(hit, "must_have.skills"),
		PublishedAt:      str(hit, "publication_date"),
		ExpiresAt:        str(hit, "application_deadline"),
	}
}

// str returns the value at path when it is a string or a number.
func str(r gjson.Result, path string) string {
	v := r.Get(path)
	switch v.Type {
	case gjson.String, gjson.Number:
		return v.String()
	default:
		return ""
	}
}

func labels(r gjson.Result, path string) []string {
	out := []string{}

	list := r.Get(path)
	if !list.IsArray() {
		return out
	}

	for _, item := range list.Array() {
		if label := str(item, "label"); label != "" {
			out = append(out, label)
		}
	}

	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func joinNonEmpty(sep string, values ...string) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, sep)
}

// htmlToText flattens formatted descriptions, keeping one line per block element.
func htmlToText(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, li, div, h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	lines := strings.Split(doc.Text(), "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			kept = append(kept, line)
		}
	}

	return strings.Join(kept, "\n")
}
