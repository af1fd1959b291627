package domain

// Occurrence is one weekday/time/rhythm/room tuple. Group and Lecturer are
// only set for occurrences parsed out of a per-group schedule table.
type Occurrence struct {
	Group    string `json:"gruppe,omitempty"`
	Day      string `json:"tag"`
	Time     string `json:"zeit"`
	Rhythm   string `json:"rhythmus"`
	Room     string `json:"raum"`
	Lecturer string `json:"dozent,omitempty"`
}

// EventRecord is one scheduled offering, or one group-variant of it. All
// fields default to the empty string when the source page does not expose
// them. JSON tags follow the wire format the frontend consumes.
type EventRecord struct {
	Path              string       `json:"pfad"`
	Code              string       `json:"kennung"`
	Title             string       `json:"titel"`
	Lecturer          string       `json:"dozent"`
	Category          string       `json:"veranstaltungsart"`
	Semester          string       `json:"semester"`
	WeeklyHours       string       `json:"sws"`
	Group             string       `json:"gruppe"`
	Day               string       `json:"tag"`
	Time              string       `json:"zeit"`
	Rhythm            string       `json:"rhythmus"`
	Room              string       `json:"raum"`
	MaxParticipants   string       `json:"max_teilnehmer"`
	Enrollment        string       `json:"belegung"`
	EnrollmentPeriods string       `json:"belegungsfristen"`
	Credits           string       `json:"credits"`
	Language          string       `json:"sprache"`
	ShortCode         string       `json:"kuerzel"`
	DegreePrograms    string       `json:"studiengaenge"`
	Comment           string       `json:"kommentar"`
	Prerequisites     string       `json:"voraussetzungen"`
	DetailURL         string       `json:"detail_url"`
	ExtraDates        []Occurrence `json:"weitere_termine"`
}

// ListingRow is one row of a category page's event table: the data that is
// available without fetching the detail page.
type ListingRow struct {
	Code      string `json:"code"`
	Title     string `json:"title"`
	Category  string `json:"category"`
	Lecturer  string `json:"lecturer"`
	DetailURL string `json:"detail_url"`
}

// CategoryPage is a parsed tree-browse page: its immediate child categories,
// whether it lists events itself, and the listing rows if it does.
type CategoryPage struct {
	Children           []*TreeNode  `json:"children"`
	HasVeranstaltungen bool         `json:"has_veranstaltungen"`
	Rows               []ListingRow `json:"rows"`
}

// EventDetail holds everything parsed from one detail page.
type EventDetail struct {
	Category          string       `json:"veranstaltungsart"`
	ShortCode         string       `json:"kuerzel"`
	Semester          string       `json:"semester"`
	WeeklyHours       string       `json:"sws"`
	MaxParticipants   string       `json:"max_teilnehmer"`
	Enrollment        string       `json:"belegung"`
	EnrollmentPeriods string       `json:"belegungsfristen"`
	Credits           string       `json:"credits"`
	Language          string       `json:"sprache"`
	Lecturer          string       `json:"dozent"`
	DegreePrograms    string       `json:"studiengaenge"`
	Comment           string       `json:"kommentar"`
	Prerequisites     string       `json:"voraussetzungen"`
	Occurrences       []Occurrence `json:"termine"`
}
