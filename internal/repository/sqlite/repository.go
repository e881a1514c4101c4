// Package sqlite persists the property catalog and its price history.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cwhitley/propmail/internal/domain"
	"github.com/cwhitley/propmail/internal/ingest"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Repository provides database access for properties and price history
type Repository struct {
	db *sql.DB
}

// New creates a new SQLite repository and runs migrations
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable foreign keys and WAL mode
	if _, err := db.Exec("PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL;"); err != nil {
		return nil, fmt.Errorf("enable pragmas: %w", err)
	}

	repo := &Repository{db: db}
	if err := repo.migrate(); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return repo, nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}

// DB returns the underlying database connection for custom queries
func (r *Repository) DB() *sql.DB {
	return r.db
}

func (r *Repository) migrate() error {
	migration, err := migrationsFS.ReadFile("migrations/001_initial.sql")
	if err != nil {
		return err
	}
	_, err = r.db.Exec(string(migration))
	return err
}

const propertyColumns = `id, source, source_id, url, street, city, state, zip, county,
	price, status, property_type, beds, baths, sqft, lot_acres, year_built,
	builder, agent, description, image_urls, first_seen_at, created_at, updated_at`

// FindBySource retrieves a property by its identity key. Returns nil when
// no record matches.
func (r *Repository) FindBySource(ctx context.Context, source domain.Source, sourceID string) (*domain.Property, error) {
	row := r.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM properties WHERE source = ? AND source_id = ?
	`, propertyColumns), string(source), sourceID)

	prop, err := scanProperty(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return prop, nil
}

// FindByCityState retrieves all properties in a city, matched
// case-insensitively. Ordered by first sighting so address-key resolution is
// deterministic.
func (r *Repository) FindByCityState(ctx context.Context, city, state string) ([]domain.Property, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s FROM properties
		WHERE city = ? COLLATE NOCASE AND state = ? COLLATE NOCASE
		ORDER BY first_seen_at, id
	`, propertyColumns), city, state)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var props []domain.Property
	for rows.Next() {
		prop, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		props = append(props, *prop)
	}
	return props, rows.Err()
}

// Apply executes one upsert plan in a single transaction: the property
// insert or update together with its price history appends. A crash cannot
// leave a history row without its record or vice versa.
func (r *Repository) Apply(ctx context.Context, plan *ingest.Plan) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	prop := plan.Property
	switch plan.Action {
	case ingest.ActionCreate:
		id, err := insertProperty(ctx, tx, prop)
		if err != nil {
			return fmt.Errorf("insert property: %w", err)
		}
		prop.ID = id
	case ingest.ActionUpdate:
		if err := updateProperty(ctx, tx, prop); err != nil {
			return fmt.Errorf("update property: %w", err)
		}
	default:
		return fmt.Errorf("unknown plan action %q", plan.Action)
	}

	for i := range plan.History {
		entry := &plan.History[i]
		entry.PropertyID = prop.ID
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = time.Now().UTC()
		}
		if err := insertPriceChange(ctx, tx, entry); err != nil {
			return fmt.Errorf("append price history: %w", err)
		}
	}

	return tx.Commit()
}

// PriceHistory returns all recorded price changes for a property, oldest first
func (r *Repository) PriceHistory(ctx context.Context, propertyID int64) ([]domain.PriceChange, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, property_id, old_price, new_price, change_date, created_at
		FROM price_history WHERE property_id = ? ORDER BY change_date, id
	`, propertyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.PriceChange
	for rows.Next() {
		var e domain.PriceChange
		if err := rows.Scan(&e.ID, &e.PropertyID, &e.OldPrice, &e.NewPrice, &e.ChangeDate, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountProperties returns the catalog size, for run stats
func (r *Repository) CountProperties(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM properties`).Scan(&n)
	return n, err
}

// CountBySource breaks the catalog down per listing service
func (r *Repository) CountBySource(ctx context.Context) (map[domain.Source]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT source, COUNT(*) FROM properties GROUP BY source ORDER BY source
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.Source]int)
	for rows.Next() {
		var source string
		var n int
		if err := rows.Scan(&source, &n); err != nil {
			return nil, err
		}
		counts[domain.Source(source)] = n
	}
	return counts, rows.Err()
}

func insertProperty(ctx context.Context, tx *sql.Tx, p *domain.Property) (int64, error) {
	imageURLs, _ := json.Marshal(p.ImageURLs)

	result, err := tx.ExecContext(ctx, `
		INSERT INTO properties (
			source, source_id, url, street, city, state, zip, county,
			price, status, property_type, beds, baths, sqft, lot_acres,
			year_built, builder, agent, description, image_urls,
			first_seen_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		string(p.Source), p.SourceID, p.URL, p.Street, p.City, p.State, p.Zip, p.County,
		p.Price, string(p.Status), string(p.PropertyType),
		nullableInt(p.Beds), nullableFloat(p.Baths), nullableInt64(p.Sqft), nullableFloat(p.LotAcres),
		nullableInt(p.YearBuilt), p.Builder, p.Agent, p.Description, string(imageURLs),
		p.FirstSeenAt, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func updateProperty(ctx context.Context, tx *sql.Tx, p *domain.Property) error {
	imageURLs, _ := json.Marshal(p.ImageURLs)

	_, err := tx.ExecContext(ctx, `
		UPDATE properties SET
			url = ?, zip = ?, county = ?, price = ?, status = ?, property_type = ?,
			beds = ?, baths = ?, sqft = ?, lot_acres = ?, year_built = ?,
			builder = ?, agent = ?, description = ?, image_urls = ?, updated_at = ?
		WHERE id = ?
	`,
		p.URL, p.Zip, p.County, p.Price, string(p.Status), string(p.PropertyType),
		nullableInt(p.Beds), nullableFloat(p.Baths), nullableInt64(p.Sqft), nullableFloat(p.LotAcres),
		nullableInt(p.YearBuilt), p.Builder, p.Agent, p.Description, string(imageURLs),
		p.UpdatedAt, p.ID,
	)
	return err
}

func insertPriceChange(ctx context.Context, tx *sql.Tx, e *domain.PriceChange) error {
	result, err := tx.ExecContext(ctx, `
		INSERT INTO price_history (property_id, old_price, new_price, change_date, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, e.PropertyID, e.OldPrice, e.NewPrice, e.ChangeDate, e.CreatedAt)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = id
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProperty(row rowScanner) (*domain.Property, error) {
	var p domain.Property
	var source, status, propertyType string
	var zip, county, builder, agent, description, imageURLs sql.NullString
	var beds, sqft, yearBuilt sql.NullInt64
	var baths, lotAcres sql.NullFloat64

	err := row.Scan(
		&p.ID, &source, &p.SourceID, &p.URL, &p.Street, &p.City, &p.State, &zip, &county,
		&p.Price, &status, &propertyType, &beds, &baths, &sqft, &lotAcres, &yearBuilt,
		&builder, &agent, &description, &imageURLs,
		&p.FirstSeenAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Source = domain.Source(source)
	p.Status = domain.Status(status)
	p.PropertyType = domain.PropertyType(propertyType)
	p.Zip = zip.String
	p.County = county.String
	p.Beds = int(beds.Int64)
	p.Baths = baths.Float64
	p.Sqft = sqft.Int64
	p.LotAcres = lotAcres.Float64
	p.YearBuilt = int(yearBuilt.Int64)
	p.Builder = builder.String
	p.Agent = agent.String
	p.Description = description.String
	if imageURLs.Valid {
		json.Unmarshal([]byte(imageURLs.String), &p.ImageURLs)
	}
	return &p, nil
}

// Helper functions

func nullableInt(v int) interface{} {
	if v == 0 {
		return nil
	}
	return v
}

func nullableInt64(v int64) interface{} {
	if v == 0 {
		return nil
	}
	return v
}

func nullableFloat(v float64) interface{} {
	if v == 0 {
		return nil
	}
	return v
}
