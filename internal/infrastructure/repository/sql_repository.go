package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"istanbul-explorer/internal/domain"
	"istanbul-explorer/internal/models"
	"istanbul-explorer/pkg/database"
	errs "istanbul-explorer/pkg/errors"
)

// queryer is satisfied by *sql.DB and *sql.Tx so the same repository code
// serves both pooled and transactional access.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLRepository is the MySQL implementation of domain.Repository.
type SQLRepository struct {
	db *database.DB
	q  queryer
}

func NewSQLRepository(db *database.DB) *SQLRepository {
	return &SQLRepository{db: db, q: db.Conn()}
}

var _ domain.Repository = (*SQLRepository)(nil)

const stagingColumns = `id, title, category, status, images, primary_image,
	confidence_score, raw_content, source_urls, scraping_job_id, created_at, updated_at`

func publishedTable(c models.Category) (string, error) {
	switch c {
	case models.CategoryActivities:
		return "published_activities", nil
	case models.CategoryRestaurants:
		return "published_restaurants", nil
	case models.CategoryHotels:
		return "published_hotels", nil
	case models.CategoryShopping:
		return "published_shopping", nil
	}
	return "", errs.NewValidation("repository.publishedTable", fmt.Sprintf("unknown category: %s", c), nil)
}

func scanStagingItem(scan func(dest ...any) error) (*models.StagingItem, error) {
	var (
		item       models.StagingItem
		imagesRaw  []byte
		contentRaw []byte
		sourcesRaw sql.NullString
	)
	err := scan(&item.ID, &item.Title, &item.Category, &item.Status, &imagesRaw,
		&item.PrimaryImage, &item.ConfidenceScore, &contentRaw, &sourcesRaw,
		&item.ScrapingJobID, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if len(imagesRaw) > 0 {
		if err := json.Unmarshal(imagesRaw, &item.Images); err != nil {
			return nil, fmt.Errorf("decode images: %w", err)
		}
	}
	if len(contentRaw) > 0 {
		if err := json.Unmarshal(contentRaw, &item.Raw); err != nil {
			return nil, fmt.Errorf("decode raw_content: %w", err)
		}
	}
	if sourcesRaw.Valid && sourcesRaw.String != "" {
		if err := json.Unmarshal([]byte(sourcesRaw.String), &item.SourceURLs); err != nil {
			return nil, fmt.Errorf("decode source_urls: %w", err)
		}
	}
	return &item, nil
}

func (r *SQLRepository) GetStagingItemCtx(ctx context.Context, id int64) (*models.StagingItem, error) {
	rctx, cancel := r.db.ReadCtx(ctx)
	defer cancel()

	q := fmt.Sprintf("SELECT %s FROM staging_items WHERE id = ?", stagingColumns)
	row := r.q.QueryRowContext(rctx, q, id)
	item, err := scanStagingItem(row.Scan)
	if err == sql.ErrNoRows {
		return nil, errs.NewNotFound("repository.GetStagingItem", fmt.Sprintf("staging item %d", id), nil)
	}
	if err != nil {
		return nil, errs.NewDB("repository.GetStagingItem", "query staging item", err)
	}
	return item, nil
}

func (r *SQLRepository) GetStagingItemsByIDsCtx(ctx context.Context, ids []int64) ([]models.StagingItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rctx, cancel := r.db.ReadCtx(ctx)
	defer cancel()

	query, args, err := sq.Select(stagingColumns).
		From("staging_items").
		Where(sq.Eq{"id": ids}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, errs.NewDB("repository.GetStagingItemsByIDs", "build query", err)
	}

	rows, err := r.q.QueryContext(rctx, query, args...)
	if err != nil {
		return nil, errs.NewDB("repository.GetStagingItemsByIDs", "query staging items", err)
	}
	defer rows.Close()

	// Preserve the caller's id ordering: batch responses must line up with
	// request order, not table order.
	byID := make(map[int64]models.StagingItem, len(ids))
	for rows.Next() {
		item, err := scanStagingItem(rows.Scan)
		if err != nil {
			return nil, errs.NewDB("repository.GetStagingItemsByIDs", "scan staging item", err)
		}
		byID[item.ID] = *item
	}
	if err := rows.Err(); err != nil {
		return nil, errs.NewDB("repository.GetStagingItemsByIDs", "iterate staging items", err)
	}

	out := make([]models.StagingItem, 0, len(byID))
	for _, id := range ids {
		if item, ok := byID[id]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *SQLRepository) ListStagingItemsCtx(ctx context.Context, f domain.StagingFilter) ([]models.StagingItem, int, error) {
	rctx, cancel := r.db.ReadCtx(ctx)
	defer cancel()

	where := sq.And{}
	if f.Status != "" {
		where = append(where, sq.Eq{"status": f.Status})
	}
	if f.Category != "" {
		where = append(where, sq.Eq{"category": f.Category})
	}
	if f.Search != "" {
		where = append(where, sq.Like{"title": "%" + f.Search + "%"})
	}
	if f.MinConfidence > 0 {
		where = append(where, sq.GtOrEq{"confidence_score": f.MinConfidence})
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	query, args, err := sq.Select(stagingColumns).
		From("staging_items").
		Where(where).
		OrderBy("updated_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(f.Offset)).
		ToSql()
	if err != nil {
		return nil, 0, errs.NewDB("repository.ListStagingItems", "build query", err)
	}

	rows, err := r.q.QueryContext(rctx, query, args...)
	if err != nil {
		return nil, 0, errs.NewDB("repository.ListStagingItems", "query staging items", err)
	}
	defer rows.Close()

	var items []models.StagingItem
	for rows.Next() {
		item, err := scanStagingItem(rows.Scan)
		if err != nil {
			return nil, 0, errs.NewDB("repository.ListStagingItems", "scan staging item", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errs.NewDB("repository.ListStagingItems", "iterate staging items", err)
	}

	countQuery, countArgs, err := sq.Select("COUNT(*)").From("staging_items").Where(where).ToSql()
	if err != nil {
		return nil, 0, errs.NewDB("repository.ListStagingItems", "build count query", err)
	}
	var total int
	if err := r.q.QueryRowContext(rctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, errs.NewDB("repository.ListStagingItems", "count staging items", err)
	}

	return items, total, nil
}

func (r *SQLRepository) GetStagingStatsCtx(ctx context.Context) (*models.StagingStats, error) {
	rctx, cancel := r.db.ReadCtx(ctx)
	defer cancel()

	stats := &models.StagingStats{
		ByStatus:   make(map[models.Status]int),
		ByCategory: make(map[models.Category]int),
	}

	rows, err := r.q.QueryContext(rctx, `SELECT status, COUNT(*) FROM staging_items GROUP BY status`)
	if err != nil {
		return nil, errs.NewDB("repository.GetStagingStats", "query status counts", err)
	}
	for rows.Next() {
		var st models.Status
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			rows.Close()
			return nil, errs.NewDB("repository.GetStagingStats", "scan status count", err)
		}
		stats.ByStatus[st] = n
		stats.Total += n
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, errs.NewDB("repository.GetStagingStats", "iterate status counts", err)
	}
	rows.Close()

	rows, err = r.q.QueryContext(rctx, `SELECT category, COUNT(*) FROM staging_items GROUP BY category`)
	if err != nil {
		return nil, errs.NewDB("repository.GetStagingStats", "query category counts", err)
	}
	for rows.Next() {
		var c models.Category
		var n int
		if err := rows.Scan(&c, &n); err != nil {
			rows.Close()
			return nil, errs.NewDB("repository.GetStagingStats", "scan category count", err)
		}
		stats.ByCategory[c] = n
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, errs.NewDB("repository.GetStagingStats", "iterate category counts", err)
	}
	rows.Close()

	const bandQuery = `SELECT
		SUM(CASE WHEN confidence_score >= 85 THEN 1 ELSE 0 END),
		SUM(CASE WHEN confidence_score >= 60 AND confidence_score < 85 THEN 1 ELSE 0 END),
		SUM(CASE WHEN confidence_score < 60 THEN 1 ELSE 0 END)
		FROM staging_items`
	var high, medium, low sql.NullInt64
	if err := r.q.QueryRowContext(rctx, bandQuery).Scan(&high, &medium, &low); err != nil {
		return nil, errs.NewDB("repository.GetStagingStats", "query confidence bands", err)
	}
	stats.HighConfidence = int(high.Int64)
	stats.MediumConfidence = int(medium.Int64)
	stats.LowConfidence = int(low.Int64)

	return stats, nil
}

func (r *SQLRepository) UpdateStatusCtx(ctx context.Context, ids []int64, from, to models.Status) (int64, error) {
	if len(ids) == 0 {
		return 0, errs.NewValidation("repository.UpdateStatus", "no ids provided", nil)
	}
	if !models.ValidStatus(to) {
		return 0, errs.NewValidation("repository.UpdateStatus", fmt.Sprintf("invalid status: %s", to), nil)
	}

	wctx, cancel := r.db.WriteCtx(ctx)
	defer cancel()

	where := sq.And{sq.Eq{"id": ids}}
	if from != "" {
		where = append(where, sq.Eq{"status": from})
	}

	query, args, err := sq.Update("staging_items").
		Set("status", to).
		Set("updated_at", time.Now().UTC()).
		Where(where).
		ToSql()
	if err != nil {
		return 0, errs.NewDB("repository.UpdateStatus", "build query", err)
	}

	res, err := r.q.ExecContext(wctx, query, args...)
	if err != nil {
		return 0, errs.NewDB("repository.UpdateStatus", "update status", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, errs.NewDB("repository.UpdateStatus", "rows affected", err)
	}
	return affected, nil
}

func (r *SQLRepository) UpdateThumbnailCtx(ctx context.Context, id int64, url string, index *int, reason string) error {
	item, err := r.GetStagingItemCtx(ctx, id)
	if err != nil {
		return err
	}

	item.Raw.ThumbnailIndex = index
	item.Raw.ThumbnailReason = reason
	contentRaw, err := json.Marshal(item.Raw)
	if err != nil {
		return errs.NewBiz("repository.UpdateThumbnail", "marshal raw_content", err)
	}

	wctx, cancel := r.db.WriteCtx(ctx)
	defer cancel()

	const q = `UPDATE staging_items SET primary_image = ?, raw_content = ?, updated_at = ? WHERE id = ?`
	_, err = r.q.ExecContext(wctx, q, url, string(contentRaw), time.Now().UTC(), id)
	if err != nil {
		return errs.NewDB("repository.UpdateThumbnail", "update thumbnail", err)
	}
	return nil
}

func (r *SQLRepository) UpdateImagesCtx(ctx context.Context, id int64, images []string, primary *string) error {
	imagesRaw, err := json.Marshal(images)
	if err != nil {
		return errs.NewBiz("repository.UpdateImages", "marshal images", err)
	}

	wctx, cancel := r.db.WriteCtx(ctx)
	defer cancel()

	const q = `UPDATE staging_items SET images = ?, primary_image = ?, updated_at = ? WHERE id = ?`
	res, err := r.q.ExecContext(wctx, q, string(imagesRaw), primary, time.Now().UTC(), id)
	if err != nil {
		return errs.NewDB("repository.UpdateImages", "update images", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// MySQL reports 0 for no-op updates too; confirm existence before
		// reporting not found.
		if _, gerr := r.GetStagingItemCtx(ctx, id); gerr != nil {
			return gerr
		}
	}
	return nil
}

func (r *SQLRepository) UpdateContentCtx(ctx context.Context, item *models.StagingItem) error {
	contentRaw, err := json.Marshal(item.Raw)
	if err != nil {
		return errs.NewBiz("repository.UpdateContent", "marshal raw_content", err)
	}

	wctx, cancel := r.db.WriteCtx(ctx)
	defer cancel()

	const q = `UPDATE staging_items SET title = ?, confidence_score = ?, raw_content = ?, updated_at = ? WHERE id = ?`
	_, err = r.q.ExecContext(wctx, q, item.Title, item.ConfidenceScore, string(contentRaw), time.Now().UTC(), item.ID)
	if err != nil {
		return errs.NewDB("repository.UpdateContent", "update content", err)
	}
	return nil
}

func (r *SQLRepository) InsertPublishedCtx(ctx context.Context, e *models.PublishedEntity) (int64, error) {
	table, err := publishedTable(e.Category)
	if err != nil {
		return 0, err
	}

	imagesRaw, err := json.Marshal(e.Images)
	if err != nil {
		return 0, errs.NewBiz("repository.InsertPublished", "marshal images", err)
	}
	metaRaw, err := json.Marshal(e.Metadata)
	if err != nil {
		return 0, errs.NewBiz("repository.InsertPublished", "marshal metadata", err)
	}

	wctx, cancel := r.db.WriteCtx(ctx)
	defer cancel()

	query, args, err := sq.Insert(table).
		Columns("name", "slug", "description", "category", "subcategory",
			"images", "primary_image", "price", "duration", "rating",
			"review_count", "featured", "confidence_score", "metadata", "created_at").
		Values(e.Name, e.Slug, e.Description, e.Category, e.Subcategory,
			string(imagesRaw), e.PrimaryImage, e.Price, e.Duration, e.Rating,
			e.ReviewCount, e.Featured, e.ConfidenceScore, string(metaRaw), time.Now().UTC()).
		ToSql()
	if err != nil {
		return 0, errs.NewDB("repository.InsertPublished", "build insert", err)
	}

	res, err := r.q.ExecContext(wctx, query, args...)
	if err != nil {
		return 0, errs.NewDB("repository.InsertPublished", fmt.Sprintf("insert into %s", table), err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errs.NewDB("repository.InsertPublished", "last insert id", err)
	}
	return id, nil
}

func (r *SQLRepository) SlugExistsCtx(ctx context.Context, category models.Category, slug string) (bool, error) {
	table, err := publishedTable(category)
	if err != nil {
		return false, err
	}

	rctx, cancel := r.db.ReadCtx(ctx)
	defer cancel()

	q := fmt.Sprintf("SELECT 1 FROM %s WHERE slug = ? LIMIT 1", table)
	var one int
	err = r.q.QueryRowContext(rctx, q, slug).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errs.NewDB("repository.SlugExists", "query slug", err)
	}
	return true, nil
}
