package client

import (
	"regexp"
	"strings"

	"kurskompass/scraper/internal/domain"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const (
	basicDataSelector       = `table[summary='Grunddaten zur Veranstaltung']`
	scheduleTableSelector   = `table[summary='Übersicht über alle Veranstaltungstermine']`
	lecturerTableSelector   = `table[summary='Verantwortliche Dozenten']`
	personsTableSelector    = `table[summary='Zugeordnete Personen']`
	programsTableSelector   = `table[summary='Übersicht über die zugehörigen Studiengänge']`
	freeTextTableSelector   = `table[summary='Weitere Angaben zur Veranstaltung']`
	enrollmentCellSelector  = `td[headers='basic_14']`
	freeTextLimit           = 500
)

var (
	weekdayRe      = regexp.MustCompile(`^(Mo|Di|Mi|Do|Fr|Sa|So)\.?$`)
	groupTextRe    = regexp.MustCompile(`Termine\s+Gruppe.*Gruppe\s*\d+`)
	groupHeadingRe = regexp.MustCompile(`Gruppe\s*\d+`)
	groupLabelRe   = regexp.MustCompile(`Gruppe\s*(\d+)`)
	roomTitleRe    = regexp.MustCompile(`Details ansehen zu Raum`)
)

// basicDataRules maps the free-text labels of the basic-data table onto
// detail fields. The table's row count varies between events, so labels are
// matched by substring or equality, never by position. First match wins.
var basicDataRules = []struct {
	label  string
	exact  bool
	assign func(d *domain.EventDetail, v string)
}{
	{"Veranstaltungsart", false, func(d *domain.EventDetail, v string) { d.Category = v }},
	{"Kürzel", false, func(d *domain.EventDetail, v string) { d.ShortCode = v }},
	{"Semester", false, func(d *domain.EventDetail, v string) { d.Semester = v }},
	{"SWS", true, func(d *domain.EventDetail, v string) { d.WeeklyHours = v }},
	{"Max. Teilnehmer", false, func(d *domain.EventDetail, v string) { d.MaxParticipants = v }},
	{"Sprache", false, func(d *domain.EventDetail, v string) { d.Language = v }},
	{"Credits", false, func(d *domain.EventDetail, v string) { d.Credits = v }},
	{"Belegung", true, func(d *domain.EventDetail, v string) { d.Enrollment = v }},
}

// ParseEventDetail reads one detail page. Any table or section that is
// absent simply leaves its fields blank; structural mismatches are not
// errors.
func (p *qisParser) ParseEventDetail(doc *goquery.Document) *domain.EventDetail {
	detail := &domain.EventDetail{}
	p.parseBasicData(doc, detail)
	detail.Occurrences = p.parseOccurrences(doc)
	p.parseLecturers(doc, detail)
	p.parseDegreePrograms(doc, detail)
	p.parseFreeText(doc, detail)
	return detail
}

func (p *qisParser) parseBasicData(doc *goquery.Document, detail *domain.EventDetail) {
	table := doc.Find(basicDataSelector).First()
	if table.Length() == 0 {
		return
	}

	table.Find("th.mod").Each(func(_ int, th *goquery.Selection) {
		label := strings.TrimSpace(th.Text())
		td := th.NextAllFiltered("td").First()
		if td.Length() == 0 {
			return
		}
		value := strings.TrimSpace(td.Text())

		for _, rule := range basicDataRules {
			matched := rule.label == label
			if !rule.exact {
				matched = strings.Contains(label, rule.label)
			}
			if matched {
				rule.assign(detail, value)
				break
			}
		}
	})

	var windows []string
	table.Find(enrollmentCellSelector).Each(func(_ int, td *goquery.Selection) {
		if text := strings.TrimSpace(td.Text()); text != "" {
			windows = append(windows, text)
		}
	})
	detail.EnrollmentPeriods = strings.Join(windows, " | ")
}

// parseOccurrences extracts all schedule occurrences. Pages come in two
// shapes: group mode, where each "Termine Gruppe N" header is followed by
// its own schedule table, and plain mode with a single generic table.
func (p *qisParser) parseOccurrences(doc *goquery.Document) []domain.Occurrence {
	headers := findGroupHeaders(doc)
	if len(headers) == 0 {
		table := doc.Find(scheduleTableSelector).First()
		if table.Length() == 0 {
			return nil
		}
		return parseScheduleTable(table, "", false)
	}

	all := doc.Find("*")
	position := make(map[*html.Node]int, len(all.Nodes))
	for i, n := range all.Nodes {
		position[n] = i
	}

	var occurrences []domain.Occurrence
	for _, header := range headers {
		start, ok := position[header.node]
		if !ok {
			continue
		}

		// Scan forward in document order for the group's schedule table,
		// giving up if the next group heading arrives first.
		for i := start + 1; i < len(all.Nodes); i++ {
			sel := all.Eq(i)
			name := goquery.NodeName(sel)

			if (name == "h2" || name == "h3") && strings.Contains(sel.Text(), "Gruppe") {
				break
			}
			if name != "table" {
				continue
			}

			ths := sel.Find("th")
			if ths.Length() == 0 {
				continue
			}
			var headings []string
			ths.Each(func(_ int, th *goquery.Selection) {
				headings = append(headings, strings.TrimSpace(th.Text()))
			})
			joined := strings.Join(headings, " ")
			if strings.Contains(joined, "Tag") && strings.Contains(joined, "Zeit") {
				occurrences = append(occurrences, parseScheduleTable(sel, header.label, true)...)
				break
			}
		}
	}

	return occurrences
}

type groupHeader struct {
	node  *html.Node
	label string
}

// findGroupHeaders locates the "meeting times for group N" section markers.
// Free text like "Termine Gruppe: Gruppe 1" is checked first; heading-like
// elements combining a group number with a "Termin" keyword are the
// fallback.
func findGroupHeaders(doc *goquery.Document) []groupHeader {
	var headers []groupHeader

	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		text := ownText(s.Nodes[0])
		if groupTextRe.MatchString(text) {
			headers = append(headers, groupHeader{node: s.Nodes[0], label: groupLabel(text)})
		}
	})
	if len(headers) > 0 {
		return headers
	}

	doc.Find("h2, h3, caption, b, strong").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if groupHeadingRe.MatchString(text) && strings.Contains(text, "Termin") {
			headers = append(headers, groupHeader{node: s.Nodes[0], label: groupLabel(text)})
		}
	})

	return headers
}

func groupLabel(text string) string {
	if m := groupLabelRe.FindStringSubmatch(text); m != nil {
		return "Gruppe " + m[1]
	}
	return ""
}

// ownText concatenates the element's direct text-node children, so a marker
// inside a cell does not also match every enclosing container.
func ownText(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return strings.TrimSpace(b.String())
}

// parseScheduleTable reads occurrence rows out of one schedule table. Cells
// are scanned left to right for a weekday token; the two cells after it are
// the time range and the rhythm. Rows without a weekday are discarded. In
// group mode the group's label and its personnel-link lecturer are attached
// to every occurrence.
func parseScheduleTable(table *goquery.Selection, label string, group bool) []domain.Occurrence {
	var occurrences []domain.Occurrence

	table.Find("tr").Each(func(i int, tr *goquery.Selection) {
		if i == 0 {
			return
		}
		cells := tr.Find("td")
		if cells.Length() < 3 {
			return
		}

		texts := make([]string, cells.Length())
		cells.Each(func(j int, c *goquery.Selection) {
			texts[j] = strings.TrimSpace(c.Text())
		})

		var occ domain.Occurrence
		for j, text := range texts {
			if weekdayRe.MatchString(text) {
				occ.Day = text
				if j+1 < len(texts) {
					occ.Time = strings.ReplaceAll(texts[j+1], "\u00a0", " ")
				}
				if j+2 < len(texts) {
					occ.Rhythm = texts[j+2]
				}
				break
			}
		}
		if occ.Day == "" {
			return
		}

		occ.Room = findRoom(cells)
		occ.Group = label
		occurrences = append(occurrences, occ)
	})

	if group {
		if lecturer := findGroupLecturer(table); lecturer != "" {
			for i := range occurrences {
				if occurrences[i].Lecturer == "" {
					occurrences[i].Lecturer = lecturer
				}
			}
		}
	}

	return occurrences
}

// findRoom returns the first room reference in the row: a link whose title
// marks it as a room detail view, or failing that one whose href points at
// the room resource.
func findRoom(cells *goquery.Selection) string {
	var room string
	cells.EachWithBreak(func(_ int, c *goquery.Selection) bool {
		link := c.Find("a").FilterFunction(func(_ int, a *goquery.Selection) bool {
			title, _ := a.Attr("title")
			return roomTitleRe.MatchString(title)
		}).First()
		if link.Length() == 0 {
			link = c.Find("a").FilterFunction(func(_ int, a *goquery.Selection) bool {
				href, _ := a.Attr("href")
				return strings.Contains(href, "raum")
			}).First()
		}
		if link.Length() > 0 {
			room = strings.TrimSpace(link.Text())
			return false
		}
		return true
	})
	return room
}

func findGroupLecturer(table *goquery.Selection) string {
	var lecturer string
	table.Find("tr").EachWithBreak(func(i int, tr *goquery.Selection) bool {
		if i == 0 {
			return true
		}
		tr.Find("td a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
			href, _ := a.Attr("href")
			if strings.Contains(href, "personal") {
				lecturer = strings.TrimSpace(a.Text())
				return false
			}
			return true
		})
		return lecturer == ""
	})
	return lecturer
}

func (p *qisParser) parseLecturers(doc *goquery.Document, detail *domain.EventDetail) {
	table := doc.Find(lecturerTableSelector).First()
	if table.Length() == 0 {
		table = doc.Find(personsTableSelector).First()
	}
	if table.Length() == 0 {
		return
	}

	var lecturers []string
	table.Find("tr").Each(func(i int, tr *goquery.Selection) {
		if i == 0 {
			return
		}
		td := tr.Find("td").First()
		if td.Length() == 0 {
			return
		}
		if name := strings.TrimSpace(td.Text()); name != "" {
			lecturers = append(lecturers, name)
		}
	})
	detail.Lecturer = strings.Join(lecturers, "; ")
}

func (p *qisParser) parseDegreePrograms(doc *goquery.Document, detail *domain.EventDetail) {
	table := doc.Find(programsTableSelector).First()
	if table.Length() == 0 {
		return
	}

	var programs []string
	table.Find("tr").Each(func(i int, tr *goquery.Selection) {
		if i == 0 {
			return
		}
		cells := tr.Find("td")
		if cells.Length() < 2 {
			return
		}
		degree := strings.TrimSpace(cells.Eq(0).Text())
		program := strings.TrimSpace(cells.Eq(1).Text())
		programs = append(programs, degree+": "+program)
	})
	detail.DegreePrograms = strings.Join(programs, "; ")
}

func (p *qisParser) parseFreeText(doc *goquery.Document, detail *domain.EventDetail) {
	table := doc.Find(freeTextTableSelector).First()
	if table.Length() == 0 {
		return
	}

	table.Find("th").Each(func(_ int, th *goquery.Selection) {
		label := strings.TrimSpace(th.Text())
		td := th.NextAllFiltered("td").First()
		if td.Length() == 0 {
			return
		}
		text := truncate(strings.TrimSpace(td.Text()), freeTextLimit)

		switch {
		case strings.Contains(label, "Kommentar"):
			detail.Comment = text
		case strings.Contains(label, "Voraussetzungen"):
			detail.Prerequisites = text
		}
	})
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
