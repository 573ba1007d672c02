package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pricelens/backend/internal/domain"
	"go.uber.org/zap"
)

// FileRepository stores catalogs as JSON documents on disk
type FileRepository struct {
	logger *zap.Logger
}

// NewFileRepository creates a file-backed catalog repository
func NewFileRepository(logger *zap.Logger) *FileRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileRepository{logger: logger.Named("catalog")}
}

// Load reads a catalog. A missing file, malformed JSON or a document
// without "produtos" yields an empty catalog together with an error
// wrapping domain.ErrCatalogUnavailable, so callers may continue.
func (r *FileRepository) Load(ctx context.Context, path string) (*domain.Catalog, error) {
	empty := &domain.Catalog{Products: []domain.Product{}}

	data, err := os.ReadFile(path)
	if err != nil {
		return empty, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
	}

	var doc struct {
		Products *[]domain.Product `json:"produtos"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return empty, fmt.Errorf("%w: %s: %v", domain.ErrCatalogUnavailable, path, err)
	}
	if doc.Products == nil {
		return empty, fmt.Errorf("%w: %s: missing \"produtos\"", domain.ErrCatalogUnavailable, path)
	}

	r.logger.Info("catalog loaded", zap.String("path", path), zap.Int("products", len(*doc.Products)))

	return &domain.Catalog{Products: *doc.Products}, nil
}

// Save writes the catalog as UTF-8 JSON with two-space indentation and
// non-ASCII characters kept as-is. Parent directories are created.
func (r *FileRepository) Save(ctx context.Context, path string, catalog *domain.Catalog) error {
	if catalog == nil {
		catalog = &domain.Catalog{}
	}
	if catalog.Products == nil {
		catalog = &domain.Catalog{Products: []domain.Product{}}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(catalog); err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create catalog dir: %w", err)
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write catalog: %w", err)
	}

	r.logger.Info("catalog saved", zap.String("path", path), zap.Int("products", len(catalog.Products)))

	return nil
}
