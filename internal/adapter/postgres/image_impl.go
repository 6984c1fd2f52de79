package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/imagescraper-service/internal/entity"
	"github.com/user/imagescraper-service/internal/repository"
)

const (
	imageColumns = `id, title, image_url, source_url, tags, category, scraped_at, created_at, updated_at`
	topTagsLimit = 10
)

// ImageRepoImpl implements repository.ImageRepository on PostgreSQL.
type ImageRepoImpl struct {
	db *pgxpool.Pool
}

func NewImageRepo(db *pgxpool.Pool) *ImageRepoImpl {
	return &ImageRepoImpl{db: db}
}

// Create inserts img unless its image_url is already stored, in which case the
// existing row is returned. Concurrent creates of one URL yield a single row.
func (r *ImageRepoImpl) Create(ctx context.Context, img *entity.StoredImage) (*entity.StoredImage, error) {
	now := time.Now().UTC()
	tags := img.Tags
	if tags == nil {
		tags = []string{}
	}

	query := `
		INSERT INTO images (` + imageColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (image_url) DO NOTHING
		RETURNING ` + imageColumns

	row := r.db.QueryRow(ctx, query,
		uuid.NewString(),
		img.Title,
		img.ImageURL,
		img.SourceURL,
		tags,
		img.Category,
		img.ScrapedAt,
		now,
	)
	saved, err := scanImage(row)
	if err == nil {
		return saved, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to insert image %s: %w", img.ImageURL, err)
	}

	// Lost the race or a repeat: hand back the row that owns the URL.
	existing, err := scanImage(r.db.QueryRow(ctx,
		`SELECT `+imageColumns+` FROM images WHERE image_url = $1`, img.ImageURL))
	if err != nil {
		return nil, fmt.Errorf("failed to load existing image %s: %w", img.ImageURL, err)
	}
	return existing, nil
}

// FindByURL matches either the blob URL or the URL the image was downloaded from.
func (r *ImageRepoImpl) FindByURL(ctx context.Context, url string) (*entity.StoredImage, error) {
	query := `
		SELECT ` + imageColumns + `
		FROM images
		WHERE image_url = $1 OR source_url = $1
		ORDER BY created_at ASC
		LIMIT 1`
	return scanImage(r.db.QueryRow(ctx, query, url))
}

func (r *ImageRepoImpl) FindByID(ctx context.Context, id string) (*entity.StoredImage, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, repository.ErrNotFound
	}
	return scanImage(r.db.QueryRow(ctx, `SELECT `+imageColumns+` FROM images WHERE id = $1`, id))
}

func (r *ImageRepoImpl) List(ctx context.Context, filter entity.ImageFilter) ([]*entity.StoredImage, error) {
	query, args := buildListQuery(filter)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	defer rows.Close()

	images := make([]*entity.StoredImage, 0, filter.Limit)
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read images: %w", err)
	}
	return images, nil
}

func (r *ImageRepoImpl) Stats(ctx context.Context) (*entity.ImageStats, error) {
	stats := &entity.ImageStats{}

	if err := r.db.QueryRow(ctx, `SELECT COUNT(*), MAX(scraped_at) FROM images`).
		Scan(&stats.TotalImages, &stats.LastScraped); err != nil {
		return nil, fmt.Errorf("failed to count images: %w", err)
	}

	var err error
	stats.TopTags, err = r.countBy(ctx, `
		SELECT tag, COUNT(*) AS n
		FROM images, unnest(tags) AS tag
		GROUP BY tag
		ORDER BY n DESC, tag ASC
		LIMIT $1`, topTagsLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate tags: %w", err)
	}

	stats.SourceBreakdown, err = r.countBy(ctx, `
		SELECT COALESCE(substring(source_url FROM '^[A-Za-z][A-Za-z0-9+.-]*://([^/:?#]+)'), source_url) AS host, COUNT(*) AS n
		FROM images
		GROUP BY host
		ORDER BY n DESC, host ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate sources: %w", err)
	}

	stats.CategoryBreakdown, err = r.countBy(ctx, `
		SELECT category, COUNT(*) AS n
		FROM images
		GROUP BY category
		ORDER BY n DESC, category ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate categories: %w", err)
	}

	return stats, nil
}

func (r *ImageRepoImpl) countBy(ctx context.Context, query string, args ...any) ([]entity.CountEntry, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []entity.CountEntry{}
	for rows.Next() {
		var e entity.CountEntry
		if err := rows.Scan(&e.Key, &e.Count); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Ping checks the database connection.
func (r *ImageRepoImpl) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func scanImage(row pgx.Row) (*entity.StoredImage, error) {
	var img entity.StoredImage
	err := row.Scan(
		&img.ID,
		&img.Title,
		&img.ImageURL,
		&img.SourceURL,
		&img.Tags,
		&img.Category,
		&img.ScrapedAt,
		&img.CreatedAt,
		&img.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &img, nil
}

// buildListQuery renders filter as a parameterised SELECT.
func buildListQuery(filter entity.ImageFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Search != "" {
		p := arg("%" + escapeLike(filter.Search) + "%")
		where = append(where, fmt.Sprintf(
			"(title ILIKE %[1]s OR category ILIKE %[1]s OR EXISTS (SELECT 1 FROM unnest(tags) AS t WHERE t ILIKE %[1]s))", p))
	}
	if filter.Source != "" {
		where = append(where, "source_url ILIKE "+arg("%"+escapeLike(filter.Source)+"%"))
	}
	if filter.DateFrom != nil {
		where = append(where, "scraped_at >= "+arg(*filter.DateFrom))
	}
	if filter.DateTo != nil {
		where = append(where, "scraped_at <= "+arg(*filter.DateTo))
	}
	if len(filter.Categories) > 0 {
		where = append(where, "lower(category) = ANY("+arg(filter.Categories)+")")
	}

	var b strings.Builder
	b.WriteString("SELECT " + imageColumns + " FROM images")
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}

	column := entity.SortByScrapedAt
	if filter.SortBy == entity.SortByTitle {
		column = entity.SortByTitle
	}
	direction := "DESC"
	if filter.Ascending {
		direction = "ASC"
	}
	fmt.Fprintf(&b, " ORDER BY %s %s, id %s", column, direction, direction)

	if filter.Limit > 0 {
		b.WriteString(" LIMIT " + arg(filter.Limit))
	}
	if filter.Offset > 0 {
		b.WriteString(" OFFSET " + arg(filter.Offset))
	}
	return b.String(), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes user input match literally inside an ILIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
