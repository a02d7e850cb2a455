package wordlist

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/example/spellsync/internal/database"
	"github.com/example/spellsync/pkg/models"
)

// ErrListExists is returned when an import would replace a bundled list
var ErrListExists = errors.New("a bundled list with this ID already exists")

// LoadDir parses every .txt list in dir. Files that fail to parse are
// reported in the returned error; the other lists are still returned.
func LoadDir(dir string) ([]*models.WordList, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read word list directory: %w", err)
	}

	var lists []*models.WordList
	var errs []error
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".txt") {
			continue
		}
		list, err := ParseFile(filepath.Join(dir, e.Name()))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		lists = append(lists, list)
	}
	sort.Slice(lists, func(i, j int) bool { return lists[i].ID < lists[j].ID })
	return lists, errors.Join(errs...)
}

// Catalog is the set of word lists known locally: bundled lists from the
// word list directory and lists imported by users. Lists are stored in the
// local database and cached in memory once read.
type Catalog struct {
	repo   *database.WordListRepository
	dir    string
	logger *zap.Logger

	mu    sync.RWMutex
	cache map[string]*models.WordList
}

func NewCatalog(repo *database.WordListRepository, dir string, logger *zap.Logger) *Catalog {
	return &Catalog{
		repo:   repo,
		dir:    dir,
		logger: logger,
		cache:  make(map[string]*models.WordList),
	}
}

// Dir returns the bundled list directory
func (c *Catalog) Dir() string {
	return c.dir
}

// Reload stores every bundled list from the directory and returns how many
// were loaded
func (c *Catalog) Reload(ctx context.Context) (int, error) {
	lists, loadErr := LoadDir(c.dir)
	if loadErr != nil && lists == nil {
		return 0, loadErr
	}
	if loadErr != nil {
		c.logger.Warn("Some word lists could not be loaded", zap.Error(loadErr))
	}

	for _, list := range lists {
		list.Source = models.SourceBundled
		if err := c.repo.Save(ctx, list); err != nil {
			return 0, err
		}
		c.remember(list)
	}
	if err := c.pruneBundled(ctx); err != nil {
		return 0, err
	}
	c.logger.Info("Word lists loaded", zap.String("dir", c.dir), zap.Int("count", len(lists)))
	return len(lists), nil
}

// pruneBundled removes bundled lists whose file left the directory. A file
// that is present but fails to parse keeps its last good list.
func (c *Catalog) pruneBundled(ctx context.Context) error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("failed to read word list directory: %w", err)
	}
	onDisk := make(map[string]bool, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".txt") {
			onDisk[ListID(e.Name())] = true
		}
	}

	stored, err := c.repo.ListByLanguage(ctx, "")
	if err != nil {
		return err
	}
	for _, list := range stored {
		if list.Source != models.SourceBundled || onDisk[list.ID] {
			continue
		}
		if err := c.repo.DeleteBundled(ctx, list.ID); err != nil && !errors.Is(err, database.ErrNotFound) {
			return err
		}
		c.forget(list.ID)
		c.logger.Info("Bundled word list removed", zap.String("list_id", list.ID))
	}
	return nil
}

// Import reads a user list from a file and stores it
func (c *Catalog) Import(ctx context.Context, cfg ImportConfig, ownerID string) (*models.WordList, *ImportResult, error) {
	list, result, err := ImportWords(cfg)
	if err != nil {
		return nil, result, err
	}

	existing, err := c.repo.GetByID(ctx, list.ID)
	switch {
	case err == nil && existing.Source == models.SourceBundled:
		return nil, result, fmt.Errorf("%s: %w", list.ID, ErrListExists)
	case err != nil && !errors.Is(err, database.ErrNotFound):
		return nil, result, err
	}

	list.Source = models.SourceUser
	list.OwnerID = ownerID
	if err := c.repo.Save(ctx, list); err != nil {
		return nil, result, err
	}
	c.remember(list)

	c.logger.Info("Word list imported",
		zap.String("list_id", list.ID),
		zap.String("language", list.Language),
		zap.Int("words", len(list.Words)),
		zap.Int("skipped", result.Skipped))
	return list, result, nil
}

// Get returns a list with its words
func (c *Catalog) Get(ctx context.Context, id string) (*models.WordList, error) {
	c.mu.RLock()
	list, ok := c.cache[id]
	c.mu.RUnlock()
	if ok {
		return list, nil
	}

	list, err := c.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.remember(list)
	return list, nil
}

// Lists returns list headers for a language, every language when empty
func (c *Catalog) Lists(ctx context.Context, language string) ([]models.WordList, error) {
	return c.repo.ListByLanguage(ctx, language)
}

func (c *Catalog) Languages(ctx context.Context) ([]string, error) {
	return c.repo.Languages(ctx)
}

// Delete removes a user list
func (c *Catalog) Delete(ctx context.Context, id string) error {
	if err := c.repo.Delete(ctx, id); err != nil {
		return err
	}
	c.forget(id)
	return nil
}

func (c *Catalog) forget(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cache, id)
}

// Search looks through every list of a language, every language when empty
func (c *Catalog) Search(ctx context.Context, language, query string, limit int) ([]Match, error) {
	headers, err := c.repo.ListByLanguage(ctx, language)
	if err != nil {
		return nil, err
	}
	lists := make([]*models.WordList, 0, len(headers))
	for _, h := range headers {
		list, err := c.Get(ctx, h.ID)
		if err != nil {
			return nil, err
		}
		lists = append(lists, list)
	}
	return Search(lists, query, limit), nil
}

func (c *Catalog) remember(list *models.WordList) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[list.ID] = list
}
