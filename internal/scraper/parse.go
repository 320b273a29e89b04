package scraper

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"mspro-labs/flat-watch/internal/models"
)

const (
	containerSelector = "#blockDetails"
	rowSelector       = ".row"
	// The unit grid is the fifth .row inside the container.
	unitRowIndex = 4
)

var unitNoPattern = regexp.MustCompile(`^[A-Za-z](\d+)-(\d+)$`)

// tooltipFormat is one known way the portal separates cost from size in the
// title of an available unit. Formats are tried in slice order.
type tooltipFormat struct {
	name string
	sep  *regexp.Regexp
}

var tooltipFormats = []tooltipFormat{
	{name: "line-break", sep: regexp.MustCompile(`(?i)<br\s*/?>`)},
	{name: "underscore-rule", sep: regexp.MustCompile(`_{3,}`)},
}

// ParsePage extracts every unit from one availability page, in document order.
func ParsePage(html string) ([]models.Unit, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	container := doc.Find(containerSelector)
	switch container.Length() {
	case 0:
		return nil, &PageStructureError{Reason: fmt.Sprintf("no %s container", containerSelector)}
	case 1:
	default:
		return nil, &PageStructureError{Reason: fmt.Sprintf("%d %s containers", container.Length(), containerSelector)}
	}

	rows := container.Find(rowSelector)
	if rows.Length() <= unitRowIndex {
		return nil, &PageStructureError{
			Reason: fmt.Sprintf("expected at least %d %s elements, found %d", unitRowIndex+1, rowSelector, rows.Length()),
		}
	}

	var (
		units    []models.Unit
		parseErr error
		seen     = make(map[string]bool)
		formats  = make(map[string]int)
	)
	rows.Eq(unitRowIndex).Find("td").EachWithBreak(func(_ int, cell *goquery.Selection) bool {
		unit, format, err := parseUnit(cell)
		if err != nil {
			parseErr = err
			return false
		}
		if seen[unit.UnitNo] {
			parseErr = &MalformedUnitError{Fragment: outerHTML(cell), Reason: fmt.Sprintf("duplicate unit %s", unit.UnitNo)}
			return false
		}
		seen[unit.UnitNo] = true
		if format != "" {
			formats[format]++
		}
		units = append(units, unit)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	for _, f := range tooltipFormats {
		if n := formats[f.name]; n > 0 {
			logger.Printf("%d tooltips matched the %s format", n, f.name)
		}
	}
	return units, nil
}

// ParseUnitFragment parses the markup of a single <td> cell.
func ParseUnitFragment(fragment string) (models.Unit, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<table><tbody><tr>" + fragment + "</tr></tbody></table>"))
	if err != nil {
		return models.Unit{}, fmt.Errorf("failed to parse HTML: %w", err)
	}
	cell := doc.Find("td").First()
	if cell.Length() == 0 {
		cell = doc.Find("body")
	}
	return ParseUnit(cell)
}

// ParseUnit reads one table cell. A cell holding a link is an available unit
// whose tooltip carries cost and size; anything else is booked.
func ParseUnit(cell *goquery.Selection) (models.Unit, error) {
	u, _, err := parseUnit(cell)
	return u, err
}

func parseUnit(cell *goquery.Selection) (models.Unit, string, error) {
	if cell.Find("a").Length() > 0 {
		return parseAvailable(cell)
	}

	text := cell.Find("*").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Children().Length() == 0 && cleanText(s.Text()) != ""
	})
	switch text.Length() {
	case 0:
		return models.Unit{}, "", &MalformedUnitError{Fragment: outerHTML(cell), Reason: "neither a link nor a text element"}
	case 1:
	default:
		return models.Unit{}, "", &MalformedUnitError{Fragment: outerHTML(cell), Reason: fmt.Sprintf("%d text elements where one unit number was expected", text.Length())}
	}

	u, err := newUnit(cell, cleanText(text.Text()), true, "", "")
	return u, "", err
}

func parseAvailable(cell *goquery.Selection) (models.Unit, string, error) {
	el := cell.Find("a [id]").First()
	if el.Length() == 0 {
		el = cell.Find("[id]").First()
	}
	id, ok := el.Attr("id")
	if !ok {
		return models.Unit{}, "", &MalformedUnitError{Fragment: outerHTML(cell), Reason: "link without an element carrying the unit id"}
	}

	title, ok := el.Attr("title")
	if !ok {
		title, ok = cell.Find("[title]").First().Attr("title")
	}
	if !ok {
		return models.Unit{}, "", &MalformedUnitError{Fragment: outerHTML(cell), Reason: "available unit without a tooltip"}
	}

	cost, size, format, err := splitTooltip(title)
	if err != nil {
		return models.Unit{}, "", &MalformedUnitError{Fragment: outerHTML(cell), Reason: err.Error()}
	}

	u, err := newUnit(cell, cleanText(id), false, cost, size)
	return u, format, err
}

// splitTooltip returns the first and last non-empty segments of the title.
func splitTooltip(title string) (cost, size, format string, err error) {
	title = cleanText(title)
	for _, f := range tooltipFormats {
		if !f.sep.MatchString(title) {
			continue
		}
		var parts []string
		for _, p := range f.sep.Split(title, -1) {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if len(parts) < 2 {
			return "", "", "", fmt.Errorf("tooltip %q has fewer than two fields", title)
		}
		return parts[0], parts[len(parts)-1], f.name, nil
	}
	return "", "", "", fmt.Errorf("tooltip %q matches no known format", title)
}

func newUnit(cell *goquery.Selection, unitNo string, booked bool, cost, size string) (models.Unit, error) {
	m := unitNoPattern.FindStringSubmatch(unitNo)
	if m == nil {
		return models.Unit{}, &MalformedUnitError{Fragment: outerHTML(cell), Reason: fmt.Sprintf("unit number %q does not look like A12-345", unitNo)}
	}
	return models.Unit{
		UnitNo: unitNo,
		Floor:  m[1],
		Stack:  m[2],
		Booked: booked,
		Cost:   cost,
		Size:   size,
	}, nil
}

func cleanText(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\u00a0", " "))
}

func outerHTML(s *goquery.Selection) string {
	h, err := goquery.OuterHtml(s)
	if err != nil {
		return ""
	}
	return h
}
