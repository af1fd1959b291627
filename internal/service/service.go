package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"kurskompass/scraper/internal/client"
	"kurskompass/scraper/internal/domain"
	"kurskompass/scraper/internal/progress"
	"kurskompass/scraper/internal/repository"
	"kurskompass/scraper/internal/runner"
	"kurskompass/scraper/internal/state"

	log "github.com/sirupsen/logrus"
)

// ErrNoTree is returned when a scrape is requested before any tree has been
// discovered or loaded for the user.
var ErrNoTree = errors.New("no tree available, scan the structure first")

// ErrNothingSelected is returned when a scrape request names no nodes.
var ErrNothingSelected = errors.New("no areas selected")

// Service is the crawl-and-extract engine and the contract surface for the
// serving layer: fire-and-forget starts, polled progress, cached results.
type Service struct {
	client     client.QISClient
	state      state.StateManager
	repository repository.EventRepository
	tracker    *progress.Tracker
	runner     *runner.Runner
	user       string
	startRoot  string
	maxDepth   int

	mu      sync.Mutex
	tree    []*domain.TreeNode
	records []domain.EventRecord
}

func NewService(
	qisClient client.QISClient,
	stateManager state.StateManager,
	eventRepository repository.EventRepository,
	tracker *progress.Tracker,
	run *runner.Runner,
	startRoot string,
	maxDepth int,
	user string,
) *Service {
	return &Service{
		client:     qisClient,
		state:      stateManager,
		repository: eventRepository,
		tracker:    tracker,
		runner:     run,
		user:       user,
		startRoot:  startRoot,
		maxDepth:   maxDepth,
	}
}

// ScanTopLevel fetches only the first level under the default root and
// returns area stubs. The result is cached in the keyed store because the
// top level of the catalog changes at most once per semester.
func (s *Service) ScanTopLevel(ctx context.Context) ([]domain.AreaRef, error) {
	if areas, err := s.state.LoadAreas(ctx); err == nil && len(areas) > 0 {
		return areas, nil
	}

	page, err := s.client.GetCategoryPage(ctx, s.startRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to scan top level: %w", err)
	}

	areas := make([]domain.AreaRef, 0, len(page.Children))
	for _, node := range page.Children {
		areas = append(areas, domain.AreaRef{Name: node.Name, RootPath: node.RootPath})
	}

	if len(areas) > 0 {
		if err := s.state.SaveAreas(ctx, areas); err != nil {
			log.Warnf("Failed to cache top-level areas: %v", err)
		}
	}
	return areas, nil
}

// StartScan launches Phase 1 discovery in the background and returns
// immediately. Empty roots means the configured default root; several roots
// are scanned in order and their trees concatenated. Fails with
// runner.ErrAlreadyRunning while another run holds the slot.
func (s *Service) StartScan(roots []string) error {
	return s.runner.Start("scan", func() error {
		ctx := context.Background()

		tree := s.scanTree(ctx, roots)

		s.mu.Lock()
		s.tree = tree
		s.mu.Unlock()

		if err := s.state.SaveTree(ctx, s.user, tree); err != nil {
			log.Errorf("Failed to persist tree for user %s: %v", s.user, err)
		}
		return nil
	})
}

// StartScrape launches Phase 2 extraction for the selected node identifiers.
// It fails fast, before taking the run slot, when no tree is available or
// nothing is selected.
func (s *Service) StartScrape(selected []string) error {
	if len(selected) == 0 {
		return ErrNothingSelected
	}

	tree, err := s.Tree(context.Background())
	if err != nil {
		return err
	}
	if len(tree) == 0 {
		return ErrNoTree
	}

	selectedSet := make(map[string]struct{}, len(selected))
	for _, rootPath := range selected {
		selectedSet[rootPath] = struct{}{}
	}

	return s.runner.Start("scrape", func() error {
		ctx := context.Background()

		records := s.scrapeSelected(ctx, tree, selectedSet)

		s.mu.Lock()
		s.records = records
		s.mu.Unlock()

		if err := s.state.SaveRecords(ctx, s.user, records); err != nil {
			log.Errorf("Failed to cache records for user %s: %v", s.user, err)
		}
		if err := s.repository.SaveRecords(ctx, s.user, records); err != nil {
			log.Errorf("Failed to persist records for user %s: %v", s.user, err)
		}
		return nil
	})
}

// Progress returns the current progress snapshot for polling.
func (s *Service) Progress() domain.Progress {
	return s.tracker.Snapshot()
}

// RunState reports the background task state without blocking.
func (s *Service) RunState() runner.State {
	return s.runner.State()
}

// Wait blocks until the currently running background task has finished.
func (s *Service) Wait() {
	s.runner.Wait()
}

// Tree returns the tree of the current run, falling back to the keyed store
// so a scrape can resume after a restart without re-discovery.
func (s *Service) Tree(ctx context.Context) ([]*domain.TreeNode, error) {
	s.mu.Lock()
	tree := s.tree
	s.mu.Unlock()
	if tree != nil {
		return tree, nil
	}

	tree, err := s.state.LoadTree(ctx, s.user)
	if err != nil {
		return nil, err
	}
	if tree != nil {
		s.mu.Lock()
		s.tree = tree
		s.mu.Unlock()
	}
	return tree, nil
}

// Records returns the flat record list of the latest scrape.
func (s *Service) Records(ctx context.Context) ([]domain.EventRecord, error) {
	s.mu.Lock()
	records := s.records
	s.mu.Unlock()
	if records != nil {
		return records, nil
	}
	return s.state.LoadRecords(ctx, s.user)
}

// scanTree is Phase 1: discover the category tree under the given roots.
func (s *Service) scanTree(ctx context.Context, roots []string) []*domain.TreeNode {
	s.tracker.Reset("scan", "Scanne Baumstruktur...", 0)

	custom := len(roots) > 0
	if !custom {
		roots = []string{s.startRoot}
	}

	var top []*domain.TreeNode
	loaded := false
	for _, root := range roots {
		page, err := s.client.GetCategoryPage(ctx, root)
		if err != nil {
			log.Errorf("Failed to load start page for root %s: %v", root, err)
			continue
		}
		loaded = true

		children := page.Children
		if len(children) == 0 && custom {
			// A caller-supplied root can itself be a leaf that directly
			// lists events; represent it as a single placeholder node.
			children = []*domain.TreeNode{{
				Name:               "Ausgewählter Bereich",
				RootPath:           root,
				URL:                s.client.TreeURL(root),
				HasVeranstaltungen: page.HasVeranstaltungen,
			}}
		}

		for _, node := range children {
			log.Infof("Scanning branch: %s", node.Name)
			s.tracker.SetStatus(fmt.Sprintf("Scanne %s...", node.Name))
			s.scanNode(ctx, node, 0, s.maxDepth)
		}
		top = append(top, children...)
	}

	if !loaded {
		s.tracker.Finish("error", "Fehler beim Laden der Startseite")
		return top
	}

	s.tracker.Finish("scan_done", fmt.Sprintf("Struktur geladen: %d Bereiche", domain.CountNodes(top)))
	return top
}

// scanNode fetches one node's page, probes it for an event table, discovers
// its children and recurses. The depth bound is checked before the fetch, so
// termination holds even against a malformed or cyclic remote hierarchy. A
// failed fetch truncates only this branch.
func (s *Service) scanNode(ctx context.Context, node *domain.TreeNode, depth, maxDepth int) {
	if depth >= maxDepth {
		return
	}

	page, err := s.client.GetCategoryPage(ctx, node.RootPath)
	if err != nil {
		return
	}

	s.tracker.Step()
	s.tracker.Push(node.Name)

	node.HasVeranstaltungen = page.HasVeranstaltungen
	node.Children = page.Children

	for _, child := range page.Children {
		s.scanNode(ctx, child, depth+1, maxDepth)
	}
}

// scrapeSelected is Phase 2: walk the tree depth-first and extract events
// from every selected node.
func (s *Service) scrapeSelected(ctx context.Context, tree []*domain.TreeNode, selected map[string]struct{}) []domain.EventRecord {
	s.tracker.Reset("scrape", "Starte...", len(selected))

	var records []domain.EventRecord
	for _, node := range tree {
		records = s.scrapeNode(ctx, node, selected, nil, records)
	}

	s.tracker.Finish("done", fmt.Sprintf("Fertig! %d Veranstaltungen gefunden.", len(records)))
	return records
}

// scrapeNode extracts the node itself when selected, then always descends:
// a selected ancestor and a selected descendant are scraped independently.
func (s *Service) scrapeNode(ctx context.Context, node *domain.TreeNode, selected map[string]struct{}, path []string, records []domain.EventRecord) []domain.EventRecord {
	currentPath := append(path[:len(path):len(path)], node.Name)

	if _, ok := selected[node.RootPath]; ok {
		log.Infof("Scraping: %s", strings.Join(currentPath, " > "))
		s.tracker.SetStatus(fmt.Sprintf("Scrape: %s...", node.Name))
		records = append(records, s.extractFromPage(ctx, node.RootPath, currentPath)...)
		s.tracker.Step()
	}

	for _, child := range node.Children {
		records = s.scrapeNode(ctx, child, selected, currentPath, records)
	}
	return records
}

// extractFromPage emits the records for one category page: one stub per
// listing row, enriched from the row's detail page. A failed detail fetch
// still yields a stub record from listing data alone.
func (s *Service) extractFromPage(ctx context.Context, rootPath string, path []string) []domain.EventRecord {
	page, err := s.client.GetCategoryPage(ctx, rootPath)
	if err != nil {
		return nil
	}

	var records []domain.EventRecord
	for _, row := range page.Rows {
		s.tracker.Push(truncateTitle(row.Title))

		detail, err := s.client.GetEventDetail(ctx, row.DetailURL)
		if err != nil {
			detail = nil
		}

		records = append(records, buildRecords(path, row, detail)...)
	}
	return records
}

// buildRecords applies the group emission policy: with two or more distinct
// non-empty group labels the listing row splits into one record per label,
// each carrying that group's own schedule and lecturer; otherwise the first
// occurrence supplies the primary schedule and the rest become secondary
// dates on a single record.
func buildRecords(path []string, row domain.ListingRow, detail *domain.EventDetail) []domain.EventRecord {
	code := row.Code
	if code == "" && len(path) > 0 {
		code = path[len(path)-1]
	}

	base := domain.EventRecord{
		Path:      strings.Join(path, " > "),
		Code:      code,
		Title:     row.Title,
		Category:  row.Category,
		Lecturer:  row.Lecturer,
		DetailURL: row.DetailURL,
	}

	if detail != nil {
		if base.Lecturer == "" {
			base.Lecturer = detail.Lecturer
		}
		base.Semester = detail.Semester
		base.WeeklyHours = detail.WeeklyHours
		base.MaxParticipants = detail.MaxParticipants
		base.Enrollment = detail.Enrollment
		base.EnrollmentPeriods = detail.EnrollmentPeriods
		base.Credits = detail.Credits
		base.Language = detail.Language
		base.ShortCode = detail.ShortCode
		base.DegreePrograms = detail.DegreePrograms
		base.Comment = detail.Comment
		base.Prerequisites = detail.Prerequisites
	}

	if detail == nil || len(detail.Occurrences) == 0 {
		return []domain.EventRecord{base}
	}
	occurrences := detail.Occurrences

	var labels []string
	byLabel := make(map[string][]domain.Occurrence)
	for _, occ := range occurrences {
		if occ.Group != "" {
			if _, seen := byLabel[occ.Group]; !seen {
				labels = append(labels, occ.Group)
			}
		}
		byLabel[occ.Group] = append(byLabel[occ.Group], occ)
	}

	if len(labels) >= 2 {
		records := make([]domain.EventRecord, 0, len(labels))
		for _, label := range labels {
			groupOccs := byLabel[label]

			record := base
			applyOccurrence(&record, groupOccs[0])
			record.Group = label
			if groupOccs[0].Lecturer != "" {
				record.Lecturer = groupOccs[0].Lecturer
			}
			record.ExtraDates = append([]domain.Occurrence(nil), groupOccs[1:]...)
			records = append(records, record)
		}
		return records
	}

	record := base
	applyOccurrence(&record, occurrences[0])
	record.Group = occurrences[0].Group
	record.ExtraDates = append([]domain.Occurrence(nil), occurrences[1:]...)
	return []domain.EventRecord{record}
}

func applyOccurrence(record *domain.EventRecord, occ domain.Occurrence) {
	record.Day = occ.Day
	record.Time = occ.Time
	record.Rhythm = occ.Rhythm
	record.Room = occ.Room
}

// truncateTitle shortens a title for the rolling progress log.
func truncateTitle(title string) string {
	runes := []rune(title)
	if len(runes) > 50 {
		runes = runes[:50]
	}
	return string(runes) + "..."
}
