package container

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"kurskompass/scraper/internal/client"
	"kurskompass/scraper/internal/config"
	"kurskompass/scraper/internal/domain"
	"kurskompass/scraper/internal/progress"
	"kurskompass/scraper/internal/repository"
	"kurskompass/scraper/internal/runner"
	"kurskompass/scraper/internal/service"
	"kurskompass/scraper/internal/state"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Container holds all initialized components
type Container struct {
	Config     *config.Config
	Client     client.QISClient
	State      state.StateManager
	Repository repository.EventRepository
	Tracker    *progress.Tracker

	Service *service.Service

	db    *pgxpool.Pool
	redis *redis.Client
}

// New creates a new container with all dependencies initialized
func New(cfg *config.Config) (*Container, error) {
	container := &Container{
		Config: cfg,
	}

	qisClient := client.NewQISClient(cfg.QIS)
	container.Client = qisClient

	db, err := pgxpool.New(context.Background(),
		fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			cfg.Database.Host,
			cfg.Database.Port,
			cfg.Database.User,
			cfg.Database.Password,
			cfg.Database.Name,
		))
	if err != nil {
		return nil, err
	}
	container.db = db

	eventRepository := repository.NewEventRepository(db)
	container.Repository = eventRepository

	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.Database,
	})
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	container.redis = rdb

	log.Info("Connected to Redis successfully")

	stateManager := state.NewRedisStateManager(rdb, qisClient.TreeURL)
	container.State = stateManager

	tracker := progress.NewTracker()
	container.Tracker = tracker

	container.Service = service.NewService(
		qisClient,
		stateManager,
		eventRepository,
		tracker,
		&runner.Runner{},
		cfg.QIS.StartRoot,
		cfg.QIS.MaxDepth,
		cfg.Scrape.User,
	)

	return container, nil
}

// Run executes a full scan-then-scrape pipeline while a second goroutine
// polls the progress tracker, the same way the serving layer would.
func (c *Container) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	done := make(chan struct{})

	g.Go(func() error {
		defer close(done)
		return c.runPipeline(gctx)
	})

	g.Go(func() error {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return nil
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				p := c.Service.Progress()
				if p.Phase != "idle" {
					log.Infof("[%s] %s (%d/%d)", p.Phase, p.Status, p.Current, p.Total)
				}
			}
		}
	})

	return g.Wait()
}

func (c *Container) runPipeline(ctx context.Context) error {
	if areas, err := c.Service.ScanTopLevel(ctx); err != nil {
		log.Warnf("Top-level scan failed: %v", err)
	} else {
		log.Infof("Found %d top-level areas", len(areas))
	}

	if err := c.Service.StartScan(c.Config.Scrape.Roots); err != nil {
		return err
	}
	c.Service.Wait()

	tree, err := c.Service.Tree(ctx)
	if err != nil {
		return err
	}
	if len(tree) == 0 {
		return fmt.Errorf("no categories discovered")
	}
	log.Infof("Discovered %d categories", domain.CountNodes(tree))

	selected := c.Config.Scrape.Selected
	if len(selected) == 0 {
		selected = domain.EventBearingPaths(tree)
	}
	if len(selected) == 0 {
		log.Warn("No event-bearing categories found, nothing to scrape")
		return nil
	}

	if err := c.Service.StartScrape(selected); err != nil {
		return err
	}
	c.Service.Wait()

	records, err := c.Service.Records(ctx)
	if err != nil {
		return err
	}
	log.Infof("Run complete: %d events extracted from %d selected categories", len(records), len(selected))
	return nil
}

// Close performs cleanup when shutting down
func (c *Container) Close() error {
	log.Info("Shutting down container...")

	c.db.Close()
	if err := c.redis.Close(); err != nil {
		return err
	}

	log.Info("Container shut down successfully")
	return nil
}
