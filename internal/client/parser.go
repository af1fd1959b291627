package client

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"kurskompass/scraper/internal/domain"
	"kurskompass/scraper/internal/pathcode"

	"github.com/PuerkitoBio/goquery"
)

const eventTableSelector = `table[summary='Übersicht über alle Veranstaltungen']`

var rootPathRe = regexp.MustCompile(`root120261=([^&]+)`)

// nonCategoryLabels are the listing-length selectors QIS renders as tree
// links; they are navigation chrome, not categories.
var nonCategoryLabels = map[string]bool{
	"kurz":   true,
	"mittel": true,
	"lang":   true,
}

type qisParser struct {
	baseURL string
}

func newQISParser(baseURL string) *qisParser {
	return &qisParser{baseURL: baseURL}
}

func (p *qisParser) treeURL(rootPath string) string {
	return fmt.Sprintf("%s/qisserver/rds?state=wtree&search=1&trex=step&root120261=%s&P.vx=kurz",
		p.baseURL, rootPath)
}

// resolveURL makes href absolute against the configured base URL.
func (p *qisParser) resolveURL(href string) string {
	base, err := url.Parse(p.baseURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// ParseCategoryPage extracts everything the crawler and the scraper need
// from one browse page in a single pass.
func (p *qisParser) ParseCategoryPage(doc *goquery.Document, parentRoot string) *domain.CategoryPage {
	page := &domain.CategoryPage{
		Children:           p.parseTreeChildren(doc, parentRoot),
		HasVeranstaltungen: doc.Find(eventTableSelector).Length() > 0,
	}
	if page.HasVeranstaltungen {
		page.Rows = p.parseListingRows(doc)
	}
	return page
}

// parseTreeChildren finds the immediate child categories of parentRoot.
// Hierarchy is inferred purely from the encoded position identifiers: a link
// is a child iff its decoded identifier is one segment deeper than the
// parent's and shares its prefix. Document order is preserved.
func (p *qisParser) parseTreeChildren(doc *goquery.Document, parentRoot string) []*domain.TreeNode {
	var children []*domain.TreeNode

	doc.Find("a.ueb").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if !strings.Contains(href, "state=wtree") || !strings.Contains(href, "root120261=") {
			return
		}

		match := rootPathRe.FindStringSubmatch(href)
		if match == nil {
			return
		}
		rootPath := match[1]

		if !pathcode.IsChild(parentRoot, rootPath) {
			return
		}

		name := strings.TrimSpace(a.Text())
		if name == "" || nonCategoryLabels[name] {
			return
		}

		children = append(children, &domain.TreeNode{
			Name:     name,
			RootPath: rootPath,
			URL:      p.treeURL(rootPath),
		})
	})

	return children
}

// parseListingRows scans the event table for rows carrying a publish-view
// detail link and captures everything available at listing level.
func (p *qisParser) parseListingRows(doc *goquery.Document) []domain.ListingRow {
	table := doc.Find(eventTableSelector).First()
	if table.Length() == 0 {
		return nil
	}

	var rows []domain.ListingRow
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < 2 {
			return
		}

		first := cells.Eq(0)
		link := first.Find("a.regular").First()
		if link.Length() == 0 {
			return
		}
		href, _ := link.Attr("href")
		if !strings.Contains(href, "state=verpublish") {
			return
		}

		linkText := strings.TrimSpace(link.Text())

		// Lecturers attached directly to the row, as small person links.
		var lecturers []string
		first.Find("a.klein").Each(func(_ int, dl *goquery.Selection) {
			name := strings.Join(strings.Fields(dl.Text()), " ")
			if name != "" {
				lecturers = append(lecturers, name)
			}
		})

		row := domain.ListingRow{
			Category:  strings.TrimSpace(cells.Eq(1).Text()),
			Lecturer:  strings.Join(lecturers, ", "),
			DetailURL: p.resolveURL(href),
		}
		row.Code, row.Title = splitCodeTitle(linkText)

		rows = append(rows, row)
	})

	return rows
}

// splitCodeTitle separates "BIO101: Einführung ..." into code and title.
// Text without a colon is all title; the code stays empty for the caller to
// backfill from the breadcrumb.
func splitCodeTitle(linkText string) (code, title string) {
	if idx := strings.Index(linkText, ":"); idx >= 0 {
		return strings.TrimSpace(linkText[:idx]), strings.TrimSpace(linkText[idx+1:])
	}
	return "", linkText
}
