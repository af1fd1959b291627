// Package state is the keyed per-user result store: each user owns their
// last discovered tree and their last extracted record list. Entries are
// created on first write and evicted only by explicit deletion.
package state

import (
	"context"
	"encoding/json"
	"fmt"

	"kurskompass/scraper/internal/domain"

	"github.com/redis/go-redis/v9"
)

type StateManager interface {
	SaveTree(ctx context.Context, user string, tree []*domain.TreeNode) error
	// LoadTree returns (nil, nil) when no tree is stored for the user.
	// Node URLs are regenerated from the identifiers, never persisted.
	LoadTree(ctx context.Context, user string) ([]*domain.TreeNode, error)
	SaveRecords(ctx context.Context, user string, records []domain.EventRecord) error
	LoadRecords(ctx context.Context, user string) ([]domain.EventRecord, error)
	SaveAreas(ctx context.Context, areas []domain.AreaRef) error
	LoadAreas(ctx context.Context) ([]domain.AreaRef, error)
}

type redisStateManager struct {
	redisClient *redis.Client
	keyPrefix   string
	urlFor      func(rootPath string) string
}

func NewRedisStateManager(redisClient *redis.Client, urlFor func(string) string) StateManager {
	return &redisStateManager{
		redisClient: redisClient,
		keyPrefix:   "kurskompass:",
		urlFor:      urlFor,
	}
}

func (s *redisStateManager) SaveTree(ctx context.Context, user string, tree []*domain.TreeNode) error {
	return s.saveJSON(ctx, s.keyPrefix+"tree:"+user, tree)
}

func (s *redisStateManager) LoadTree(ctx context.Context, user string) ([]*domain.TreeNode, error) {
	var tree []*domain.TreeNode
	found, err := s.loadJSON(ctx, s.keyPrefix+"tree:"+user, &tree)
	if err != nil || !found {
		return nil, err
	}
	domain.RebuildURLs(tree, s.urlFor)
	return tree, nil
}

func (s *redisStateManager) SaveRecords(ctx context.Context, user string, records []domain.EventRecord) error {
	return s.saveJSON(ctx, s.keyPrefix+"veranstaltungen:"+user, records)
}

func (s *redisStateManager) LoadRecords(ctx context.Context, user string) ([]domain.EventRecord, error) {
	var records []domain.EventRecord
	found, err := s.loadJSON(ctx, s.keyPrefix+"veranstaltungen:"+user, &records)
	if err != nil || !found {
		return nil, err
	}
	return records, nil
}

func (s *redisStateManager) SaveAreas(ctx context.Context, areas []domain.AreaRef) error {
	return s.saveJSON(ctx, s.keyPrefix+"lehramtstypen", areas)
}

func (s *redisStateManager) LoadAreas(ctx context.Context) ([]domain.AreaRef, error) {
	var areas []domain.AreaRef
	found, err := s.loadJSON(ctx, s.keyPrefix+"lehramtstypen", &areas)
	if err != nil || !found {
		return nil, err
	}
	return areas, nil
}

func (s *redisStateManager) saveJSON(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to serialize %s: %w", key, err)
	}
	if err := s.redisClient.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}

func (s *redisStateManager) loadJSON(ctx context.Context, key string, target any) (bool, error) {
	data, err := s.redisClient.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("failed to load %s: %w", key, err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}
