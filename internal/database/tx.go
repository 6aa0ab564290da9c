package database

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/lib/pq"
	"photo-studio-backend/internal/models"
	"photo-studio-backend/internal/store"
)

type transaction struct {
	tx *sql.Tx
}

// LockScope takes a transaction-scoped advisory lock keyed on the scope
// name. It is released on commit or rollback.
func (t *transaction) LockScope(ctx context.Context, scope store.Scope) error {
	_, err := t.tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, string(scope))
	if err != nil {
		return fmt.Errorf("failed to lock %s: %w", scope, err)
	}
	return nil
}

func (t *transaction) exec(ctx context.Context, query string, args ...any) error {
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return translate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// setOrders rewrites display_order for every id in one statement. The
// per-parent unique constraints are deferred so intermediate states may
// collide.
func (t *transaction) setOrders(ctx context.Context, table string, orders map[string]int) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, 0, len(orders))
	for id := range orders {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	values := make([]int64, len(ids))
	for i, id := range ids {
		values[i] = int64(orders[id])
	}

	query := fmt.Sprintf(`
		UPDATE %s AS t SET display_order = o.ord, updated_at = NOW()
		FROM unnest($1::uuid[], $2::int[]) AS o(id, ord)
		WHERE t.id = o.id`, pq.QuoteIdentifier(table))
	res, err := t.tx.ExecContext(ctx, query, pq.Array(ids), pq.Array(values))
	if err != nil {
		return translate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if int(n) != len(ids) {
		return store.ErrNotFound
	}
	return nil
}

func (t *transaction) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := t.tx.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, translate(err)
	}
	return n, nil
}

// Projects

func (t *transaction) ListProjects(ctx context.Context) ([]models.Project, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY display_order`)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (t *transaction) GetProject(ctx context.Context, id string) (models.Project, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id)
	p, err := scanProject(row)
	if err != nil {
		return models.Project{}, translate(err)
	}
	return p, nil
}

func (t *transaction) InsertProject(ctx context.Context, p models.Project) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO projects (`+projectColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.Name, nullString(p.Description), nullString(p.Color), p.DisplayOrder, p.CreatedAt, p.UpdatedAt,
	)
	return translate(err)
}

func (t *transaction) UpdateProject(ctx context.Context, p models.Project) error {
	return t.exec(ctx, `
		UPDATE projects SET name = $2, description = $3, color = $4, display_order = $5, updated_at = $6
		WHERE id = $1`,
		p.ID, p.Name, nullString(p.Description), nullString(p.Color), p.DisplayOrder, p.UpdatedAt,
	)
}

func (t *transaction) DeleteProject(ctx context.Context, id string) error {
	return t.exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
}

func (t *transaction) SetProjectOrders(ctx context.Context, orders map[string]int) error {
	return t.setOrders(ctx, "projects", orders)
}

// Albums

func (t *transaction) ListAlbums(ctx context.Context, projectID string) ([]models.Album, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT `+albumColumns+` FROM albums WHERE project_id = $1 ORDER BY display_order`, projectID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	albums := []models.Album{}
	for rows.Next() {
		a, err := scanAlbum(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan album: %w", err)
		}
		albums = append(albums, a)
	}
	return albums, rows.Err()
}

func (t *transaction) CountAlbums(ctx context.Context, projectID string) (int, error) {
	return t.count(ctx, `SELECT COUNT(*) FROM albums WHERE project_id = $1`, projectID)
}

func (t *transaction) GetAlbum(ctx context.Context, id string) (models.Album, error) {
	a, err := scanAlbum(t.tx.QueryRowContext(ctx, `SELECT `+albumColumns+` FROM albums WHERE id = $1`, id))
	if err != nil {
		return models.Album{}, translate(err)
	}
	return a, nil
}

func (t *transaction) InsertAlbum(ctx context.Context, a models.Album) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO albums (`+albumColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.ProjectID, a.Name, nullString(a.Description), nullString(a.CoverPhotoID),
		a.DisplayOrder, a.CreatedAt, a.UpdatedAt,
	)
	return translate(err)
}

func (t *transaction) UpdateAlbum(ctx context.Context, a models.Album) error {
	return t.exec(ctx, `
		UPDATE albums SET project_id = $2, name = $3, description = $4, cover_photo_id = $5,
			display_order = $6, updated_at = $7
		WHERE id = $1`,
		a.ID, a.ProjectID, a.Name, nullString(a.Description), nullString(a.CoverPhotoID),
		a.DisplayOrder, a.UpdatedAt,
	)
}

func (t *transaction) DeleteAlbum(ctx context.Context, id string) error {
	return t.exec(ctx, `DELETE FROM albums WHERE id = $1`, id)
}

func (t *transaction) SetAlbumOrders(ctx context.Context, orders map[string]int) error {
	return t.setOrders(ctx, "albums", orders)
}

// Photos

func (t *transaction) queryPhotos(ctx context.Context, query string, args ...any) ([]models.Photo, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	photos := []models.Photo{}
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan photo: %w", err)
		}
		photos = append(photos, p)
	}
	return photos, rows.Err()
}

func (t *transaction) ListPhotos(ctx context.Context, albumID string) ([]models.Photo, error) {
	return t.queryPhotos(ctx,
		`SELECT `+photoColumns+` FROM photos WHERE album_id = $1 ORDER BY display_order`, albumID)
}

// photoOrderBy builds the ORDER BY clause from the closed set of sort fields;
// display_order always breaks ties.
func photoOrderBy(q models.PhotoQuery) string {
	dir := "ASC"
	if q.SortDirection == models.SortDesc {
		dir = "DESC"
	}
	switch q.SortBy {
	case models.SortCreated:
		return "created_at " + dir + ", display_order " + dir
	case models.SortName:
		return "prompt " + dir + ", display_order " + dir
	default:
		return "display_order " + dir
	}
}

func (t *transaction) QueryPhotos(ctx context.Context, albumID string, q models.PhotoQuery) ([]models.Photo, int, error) {
	if q.Offset < 0 {
		q.Offset = 0
	}
	total, err := t.CountPhotos(ctx, albumID)
	if err != nil {
		return nil, 0, err
	}
	photos, err := t.queryPhotos(ctx,
		`SELECT `+photoColumns+` FROM photos WHERE album_id = $1 ORDER BY `+photoOrderBy(q)+` LIMIT $2 OFFSET $3`,
		albumID, q.Limit, q.Offset)
	if err != nil {
		return nil, 0, err
	}
	return photos, total, nil
}

func (t *transaction) CountPhotos(ctx context.Context, albumID string) (int, error) {
	return t.count(ctx, `SELECT COUNT(*) FROM photos WHERE album_id = $1`, albumID)
}

func (t *transaction) GetPhoto(ctx context.Context, id string) (models.Photo, error) {
	p, err := scanPhoto(t.tx.QueryRowContext(ctx, `SELECT `+photoColumns+` FROM photos WHERE id = $1`, id))
	if err != nil {
		return models.Photo{}, translate(err)
	}
	return p, nil
}

func (t *transaction) InsertPhoto(ctx context.Context, p models.Photo) error {
	args, err := photoArgs(p)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx, insertPhotoSQL, args...)
	return translate(err)
}

func (t *transaction) UpdatePhoto(ctx context.Context, p models.Photo) error {
	args, err := photoUpdateArgs(p)
	if err != nil {
		return err
	}
	return t.exec(ctx, updatePhotoSQL, args...)
}

func (t *transaction) DeletePhoto(ctx context.Context, id string) error {
	return t.exec(ctx, `DELETE FROM photos WHERE id = $1`, id)
}

func (t *transaction) SetPhotoOrders(ctx context.Context, orders map[string]int) error {
	return t.setOrders(ctx, "photos", orders)
}

// Templates

func (t *transaction) ListTemplates(ctx context.Context) ([]models.PromptTemplate, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT `+templateColumns+` FROM prompt_templates ORDER BY lower(name)`)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	templates := []models.PromptTemplate{}
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		templates = append(templates, tpl)
	}
	return templates, rows.Err()
}

func (t *transaction) GetTemplate(ctx context.Context, id string) (models.PromptTemplate, error) {
	tpl, err := scanTemplate(t.tx.QueryRowContext(ctx,
		`SELECT `+templateColumns+` FROM prompt_templates WHERE id = $1`, id))
	if err != nil {
		return models.PromptTemplate{}, translate(err)
	}
	return tpl, nil
}

func (t *transaction) GetTemplateByName(ctx context.Context, name string) (models.PromptTemplate, error) {
	tpl, err := scanTemplate(t.tx.QueryRowContext(ctx,
		`SELECT `+templateColumns+` FROM prompt_templates WHERE lower(name) = lower($1)`, name))
	if err != nil {
		return models.PromptTemplate{}, translate(err)
	}
	return tpl, nil
}

func (t *transaction) InsertTemplate(ctx context.Context, tpl models.PromptTemplate) error {
	args, err := templateArgs(tpl)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx, insertTemplateSQL, args...)
	return translate(err)
}

func (t *transaction) UpdateTemplate(ctx context.Context, tpl models.PromptTemplate) error {
	args, err := templateUpdateArgs(tpl)
	if err != nil {
		return err
	}
	return t.exec(ctx, updateTemplateSQL, args...)
}

func (t *transaction) DeleteTemplate(ctx context.Context, id string) error {
	return t.exec(ctx, `DELETE FROM prompt_templates WHERE id = $1`, id)
}

func (t *transaction) InsertTemplateUsage(ctx context.Context, u models.TemplateUsage) error {
	values, err := jsonValues(u.AppliedValues)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx,
		`INSERT INTO template_usages (`+usageColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.TemplateID, nullString(u.PhotoID), u.PhotoURL, values, u.CreatedAt,
	)
	return translate(err)
}

func (t *transaction) TemplateStats(ctx context.Context, templateID string) (models.TemplateStats, error) {
	var stats models.TemplateStats
	var lastUsed sql.NullTime
	err := t.tx.QueryRowContext(ctx,
		`SELECT COUNT(*), MAX(created_at) FROM template_usages WHERE template_id = $1`, templateID,
	).Scan(&stats.UsageCount, &lastUsed)
	if err != nil {
		return models.TemplateStats{}, translate(err)
	}
	if lastUsed.Valid {
		at := lastUsed.Time
		stats.LastUsed = &at
	}
	return stats, nil
}

func (t *transaction) RecentTemplateUsages(ctx context.Context, templateID string, limit int) ([]models.TemplateUsage, error) {
	query := `SELECT ` + usageColumns + ` FROM template_usages WHERE template_id = $1 ORDER BY created_at DESC`
	args := []any{templateID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	usages := []models.TemplateUsage{}
	for rows.Next() {
		u, err := scanUsage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template usage: %w", err)
		}
		usages = append(usages, u)
	}
	return usages, rows.Err()
}
