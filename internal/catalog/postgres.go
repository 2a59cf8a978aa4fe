package catalog

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// EnsureSchema creates the catalog tables used when the storefront reads
// its catalog from Postgres.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS horeca_categories (
			slug TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			parent TEXT,
			position INT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS horeca_products (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			category TEXT NOT NULL,
			subcategory TEXT,
			price NUMERIC(14,2) NOT NULL,
			old_price NUMERIC(14,2),
			availability TEXT CHECK (availability IN ('instock','7days','10days')) DEFAULT '10days',
			dimensions_text TEXT,
			length_cm DOUBLE PRECISION,
			width_cm DOUBLE PRECISION,
			height_cm DOUBLE PRECISION,
			stock INT NOT NULL DEFAULT 0,
			materials TEXT,
			colors TEXT,
			tags TEXT,
			is_hit BOOLEAN NOT NULL DEFAULT FALSE,
			is_new BOOLEAN NOT NULL DEFAULT FALSE,
			is_sale BOOLEAN NOT NULL DEFAULT FALSE,
			image TEXT,
			position INT NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_horeca_products_category ON horeca_products (category, position)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "ensure catalog schema")
		}
	}
	return nil
}

// LoadDB reads the whole catalog from Postgres in display order.
func LoadDB(ctx context.Context, db *sql.DB) (*Dataset, error) {
	categories, err := loadCategories(ctx, db)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, name, category, subcategory, price, old_price, availability, dimensions_text,
			length_cm, width_cm, height_cm, stock, materials, colors, tags, is_hit, is_new, is_sale, image
		FROM horeca_products
		ORDER BY position, id`)
	if err != nil {
		return nil, errors.Wrap(err, "query products")
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		var sub, dims, materials, colors, tags, image, availability sql.NullString
		var oldPrice decimal.NullDecimal
		var length, width, height sql.NullFloat64
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &sub, &p.Price, &oldPrice, &availability, &dims,
			&length, &width, &height, &p.Stock, &materials, &colors, &tags, &p.IsHit, &p.IsNew, &p.IsSale, &image); err != nil {
			return nil, errors.Wrap(err, "scan product")
		}
		p.Subcategory = sub.String
		p.Availability = Availability(availability.String)
		p.DimensionsText = dims.String
		p.Materials = splitList(materials.String)
		p.Colors = splitList(colors.String)
		p.Tags = splitList(tags.String)
		p.Image = image.String
		if oldPrice.Valid {
			v := oldPrice.Decimal
			p.OldPrice = &v
		}
		if length.Valid && width.Valid && height.Valid {
			p.Dimensions = &Dimensions{Length: length.Float64, Width: width.Float64, Height: height.Float64}
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate products")
	}
	return NewDataset(categories, products)
}

func loadCategories(ctx context.Context, db *sql.DB) ([]Category, error) {
	rows, err := db.QueryContext(ctx, `SELECT slug, name, parent FROM horeca_categories ORDER BY position, slug`)
	if err != nil {
		return nil, errors.Wrap(err, "query categories")
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		var parent sql.NullString
		if err := rows.Scan(&c.Slug, &c.Name, &parent); err != nil {
			return nil, errors.Wrap(err, "scan category")
		}
		c.Parent = parent.String
		out = append(out, c)
	}
	return out, errors.Wrap(rows.Err(), "iterate categories")
}

// Import upserts ds into Postgres inside one transaction, preserving order.
func Import(ctx context.Context, db *sql.DB, ds *Dataset) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin import")
	}
	defer func() { _ = tx.Rollback() }()

	for i, c := range ds.Categories() {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO horeca_categories (slug, name, parent, position) VALUES ($1,$2,$3,$4)
			ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name, parent = EXCLUDED.parent, position = EXCLUDED.position`,
			c.Slug, c.Name, nilIfEmpty(c.Parent), i); err != nil {
			return errors.Wrapf(err, "import category %s", c.Slug)
		}
	}
	for i, p := range ds.Products() {
		var length, width, height any
		if p.Dimensions != nil {
			length, width, height = p.Dimensions.Length, p.Dimensions.Width, p.Dimensions.Height
		}
		var oldPrice any
		if p.OldPrice != nil {
			oldPrice = *p.OldPrice
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO horeca_products (id, name, category, subcategory, price, old_price, availability, dimensions_text,
				length_cm, width_cm, height_cm, stock, materials, colors, tags, is_hit, is_new, is_sale, image, position)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, category = EXCLUDED.category,
				subcategory = EXCLUDED.subcategory, price = EXCLUDED.price, old_price = EXCLUDED.old_price,
				availability = EXCLUDED.availability, dimensions_text = EXCLUDED.dimensions_text,
				length_cm = EXCLUDED.length_cm, width_cm = EXCLUDED.width_cm, height_cm = EXCLUDED.height_cm,
				stock = EXCLUDED.stock, materials = EXCLUDED.materials, colors = EXCLUDED.colors, tags = EXCLUDED.tags,
				is_hit = EXCLUDED.is_hit, is_new = EXCLUDED.is_new, is_sale = EXCLUDED.is_sale,
				image = EXCLUDED.image, position = EXCLUDED.position`,
			p.ID, p.Name, p.Category, nilIfEmpty(p.Subcategory), p.Price, oldPrice, string(p.Availability),
			nilIfEmpty(p.DimensionsText), length, width, height, p.Stock,
			nilIfEmpty(strings.Join(p.Materials, ",")), nilIfEmpty(strings.Join(p.Colors, ",")),
			nilIfEmpty(strings.Join(p.Tags, ",")), p.IsHit, p.IsNew, p.IsSale, nilIfEmpty(p.Image), i); err != nil {
			return errors.Wrapf(err, "import product %s", p.ID)
		}
	}
	return errors.Wrap(tx.Commit(), "commit import")
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, v := range parts {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
