package catalog

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type fileCatalog struct {
	Categories []Category    `yaml:"categories"`
	Products   []fileProduct `yaml:"products"`
}

type fileProduct struct {
	ID           string      `yaml:"id"`
	Name         string      `yaml:"name"`
	Category     string      `yaml:"category"`
	Subcategory  string      `yaml:"subcategory"`
	Price        string      `yaml:"price"`
	OldPrice     string      `yaml:"old_price"`
	Availability string      `yaml:"availability"`
	Dimensions   string      `yaml:"dimensions"`
	Size         *Dimensions `yaml:"size"`
	Stock        int         `yaml:"stock"`
	Materials    []string    `yaml:"materials"`
	Colors       []string    `yaml:"colors"`
	Tags         []string    `yaml:"tags"`
	Hit          bool        `yaml:"hit"`
	New          bool        `yaml:"new"`
	Sale         bool        `yaml:"sale"`
	Image        string      `yaml:"image"`
}

func (fp fileProduct) product() (Product, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(fp.Price))
	if err != nil {
		return Product{}, errors.Wrapf(err, "product %q: price", fp.ID)
	}
	p := Product{
		ID:             fp.ID,
		Name:           fp.Name,
		Category:       fp.Category,
		Subcategory:    fp.Subcategory,
		Price:          price,
		Availability:   Availability(fp.Availability),
		DimensionsText: fp.Dimensions,
		Dimensions:     fp.Size,
		Stock:          fp.Stock,
		Materials:      fp.Materials,
		Colors:         fp.Colors,
		Tags:           fp.Tags,
		IsHit:          fp.Hit,
		IsNew:          fp.New,
		IsSale:         fp.Sale,
		Image:          fp.Image,
	}
	if s := strings.TrimSpace(fp.OldPrice); s != "" {
		old, err := decimal.NewFromString(s)
		if err != nil {
			return Product{}, errors.Wrapf(err, "product %q: old_price", fp.ID)
		}
		p.OldPrice = &old
	}
	return p, nil
}

// ParseYAML decodes a catalog document.
func ParseYAML(data []byte) (*Dataset, error) {
	var doc fileCatalog
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "decode catalog")
	}
	products := make([]Product, 0, len(doc.Products))
	for _, fp := range doc.Products {
		p, err := fp.product()
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return NewDataset(doc.Categories, products)
}

// LoadFile reads a catalog document from disk.
func LoadFile(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read catalog file")
	}
	ds, err := ParseYAML(data)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return ds, nil
}

// Watch reloads c from path whenever the file changes, until ctx is done.
// The parent directory is watched because editors usually replace files
// instead of writing them in place. A broken file keeps the previous dataset.
func Watch(ctx context.Context, c *Catalog, path string, logger *zap.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create catalog watcher")
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(err, "resolve catalog path")
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return errors.Wrap(err, "watch catalog dir")
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			ds, err := LoadFile(abs)
			if err == nil && len(ds.Products()) == 0 {
				// a truncate-then-write shows up as an empty file first
				err = errors.New("catalog file has no products")
			}
			if err != nil {
				logger.Warn("catalog reload failed, keeping previous version", zap.String("path", abs), zap.Error(err))
				continue
			}
			c.Replace(ds)
			logger.Info("catalog reloaded",
				zap.String("path", abs),
				zap.Int("products", len(ds.Products())),
				zap.Uint64("version", c.Version()))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("catalog watcher error", zap.Error(err))
		}
	}
}
