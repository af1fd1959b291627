package client

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBaseURL = "https://qis.server.uni-frankfurt.de"

func parseDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestParseTreeChildren(t *testing.T) {
	parent := "118146%7C118447"
	html := `<html><body>
	<a class="ueb" href="/qisserver/rds?state=wtree&search=1&trex=step&root120261=118146%7C118447%7C119001&P.vx=kurz">Biologie</a>
	<a class="ueb" href="/qisserver/rds?state=wtree&search=1&trex=step&root120261=118146%7C118447%7C119002&P.vx=kurz">Chemie</a>
	<a class="ueb" href="/qisserver/rds?state=wtree&search=1&trex=step&root120261=118146%7C118447%7C119003&P.vx=kurz">kurz</a>
	<a class="ueb" href="/qisserver/rds?state=wtree&search=1&trex=step&root120261=118146%7C118447%7C119001%7C120000&P.vx=kurz">Zu tief</a>
	<a class="ueb" href="/qisserver/rds?state=wtree&search=1&trex=step&root120261=999999%7C888888%7C777777&P.vx=kurz">Fremder Zweig</a>
	<a class="ueb" href="/qisserver/rds?state=user&search=1">Kein Baumlink</a>
	<a class="regular" href="/qisserver/rds?state=wtree&search=1&trex=step&root120261=118146%7C118447%7C119009&P.vx=kurz">Falsche Klasse</a>
	</body></html>`

	parser := newQISParser(testBaseURL)
	children := parser.parseTreeChildren(parseDoc(t, html), parent)

	require.Len(t, children, 2)
	assert.Equal(t, "Biologie", children[0].Name)
	assert.Equal(t, "118146%7C118447%7C119001", children[0].RootPath)
	assert.Equal(t, parser.treeURL("118146%7C118447%7C119001"), children[0].URL)
	assert.Equal(t, "Chemie", children[1].Name)
}

func TestTreeURL(t *testing.T) {
	parser := newQISParser(testBaseURL)
	assert.Equal(t,
		"https://qis.server.uni-frankfurt.de/qisserver/rds?state=wtree&search=1&trex=step&root120261=118146%7C118447&P.vx=kurz",
		parser.treeURL("118146%7C118447"))
}

func TestParseCategoryPageWithoutEventTable(t *testing.T) {
	html := `<html><body><p>Nur Navigation</p></body></html>`

	parser := newQISParser(testBaseURL)
	page := parser.ParseCategoryPage(parseDoc(t, html), "118146")

	assert.False(t, page.HasVeranstaltungen)
	assert.Empty(t, page.Rows)
	assert.Empty(t, page.Children)
}

func TestParseListingRows(t *testing.T) {
	html := `<html><body>
	<table summary="Übersicht über alle Veranstaltungen">
	<tr><th>Veranstaltung</th><th>Art</th></tr>
	<tr>
		<td>
			<a class="regular" href="/qisserver/rds?state=verpublish&publishid=401">BIO101: Einführung in die Biologie</a>
			<a class="klein" href="/qisserver/rds?state=verpublish&personal.pid=7">Dr.  Anna
			Beispiel</a>
			<a class="klein" href="/qisserver/rds?state=verpublish&personal.pid=8">Prof. Bert Muster</a>
		</td>
		<td>Vorlesung</td>
	</tr>
	<tr>
		<td><a class="regular" href="/qisserver/rds?state=verpublish&publishid=402">Einführung in die Biologie</a></td>
		<td>Seminar</td>
	</tr>
	<tr>
		<td><a class="regular" href="/qisserver/rds?state=change&publishid=403">Kein Publish-Link</a></td>
		<td>Übung</td>
	</tr>
	<tr><td>nur eine Zelle</td></tr>
	</table>
	</body></html>`

	parser := newQISParser(testBaseURL)
	page := parser.ParseCategoryPage(parseDoc(t, html), "118146")

	assert.True(t, page.HasVeranstaltungen)
	require.Len(t, page.Rows, 2)

	first := page.Rows[0]
	assert.Equal(t, "BIO101", first.Code)
	assert.Equal(t, "Einführung in die Biologie", first.Title)
	assert.Equal(t, "Vorlesung", first.Category)
	assert.Equal(t, "Dr. Anna Beispiel, Prof. Bert Muster", first.Lecturer)
	assert.Equal(t, testBaseURL+"/qisserver/rds?state=verpublish&publishid=401", first.DetailURL)

	second := page.Rows[1]
	assert.Empty(t, second.Code)
	assert.Equal(t, "Einführung in die Biologie", second.Title)
	assert.Equal(t, "Seminar", second.Category)
	assert.Empty(t, second.Lecturer)
}

func TestSplitCodeTitle(t *testing.T) {
	tests := []struct {
		text  string
		code  string
		title string
	}{
		{"BIO101: Einführung in die Biologie", "BIO101", "Einführung in die Biologie"},
		{"Einführung in die Biologie", "", "Einführung in die Biologie"},
		{"CHE200: Organik: Vertiefung", "CHE200", "Organik: Vertiefung"},
	}

	for _, tt := range tests {
		code, title := splitCodeTitle(tt.text)
		assert.Equal(t, tt.code, code)
		assert.Equal(t, tt.title, title)
	}
}
