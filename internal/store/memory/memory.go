// Package memory is a transactional in-process store. Each write
// transaction works on a cloned state that replaces the live state only when
// the transaction function succeeds, so readers never see partial writes.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"photo-studio-backend/internal/models"
	"photo-studio-backend/internal/store"
)

type state struct {
	projects  map[string]models.Project
	albums    map[string]models.Album
	photos    map[string]models.Photo
	templates map[string]models.PromptTemplate
	usages    []models.TemplateUsage
}

func newState() state {
	return state{
		projects:  make(map[string]models.Project),
		albums:    make(map[string]models.Album),
		photos:    make(map[string]models.Photo),
		templates: make(map[string]models.PromptTemplate),
	}
}

func (s state) clone() state {
	out := newState()
	for k, v := range s.projects {
		out.projects[k] = v
	}
	for k, v := range s.albums {
		out.albums[k] = v
	}
	for k, v := range s.photos {
		out.photos[k] = v.Clone()
	}
	for k, v := range s.templates {
		out.templates[k] = v.Clone()
	}
	out.usages = make([]models.TemplateUsage, len(s.usages))
	for i, u := range s.usages {
		u.AppliedValues = u.AppliedValues.Clone()
		out.usages[i] = u
	}
	return out
}

type Store struct {
	mu    sync.RWMutex
	state state
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{state: newState()}
}

func (s *Store) RunInTx(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := &transaction{state: s.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

func (s *Store) View(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()
	return fn(&transaction{state: snapshot})
}

func (s *Store) Close() error { return nil }

type transaction struct {
	state state
}

// LockScope is a no-op: the store mutex already serializes writers.
func (tx *transaction) LockScope(context.Context, store.Scope) error { return nil }

func (tx *transaction) ListProjects(context.Context) ([]models.Project, error) {
	out := make([]models.Project, 0, len(tx.state.projects))
	for _, p := range tx.state.projects {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out, nil
}

func (tx *transaction) GetProject(_ context.Context, id string) (models.Project, error) {
	p, ok := tx.state.projects[id]
	if !ok {
		return models.Project{}, store.ErrNotFound
	}
	return p, nil
}

func (tx *transaction) InsertProject(_ context.Context, p models.Project) error {
	if _, exists := tx.state.projects[p.ID]; exists {
		return store.ErrDuplicate
	}
	tx.state.projects[p.ID] = p
	return nil
}

func (tx *transaction) UpdateProject(_ context.Context, p models.Project) error {
	if _, ok := tx.state.projects[p.ID]; !ok {
		return store.ErrNotFound
	}
	tx.state.projects[p.ID] = p
	return nil
}

func (tx *transaction) DeleteProject(ctx context.Context, id string) error {
	if _, ok := tx.state.projects[id]; !ok {
		return store.ErrNotFound
	}
	for albumID, a := range tx.state.albums {
		if a.ProjectID == id {
			if err := tx.DeleteAlbum(ctx, albumID); err != nil {
				return err
			}
		}
	}
	delete(tx.state.projects, id)
	return nil
}

func (tx *transaction) SetProjectOrders(_ context.Context, orders map[string]int) error {
	now := time.Now().UTC()
	for id, order := range orders {
		p, ok := tx.state.projects[id]
		if !ok {
			return store.ErrNotFound
		}
		p.DisplayOrder = order
		p.UpdatedAt = now
		tx.state.projects[id] = p
	}
	return nil
}

func (tx *transaction) ListAlbums(_ context.Context, projectID string) ([]models.Album, error) {
	out := make([]models.Album, 0)
	for _, a := range tx.state.albums {
		if a.ProjectID == projectID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out, nil
}

func (tx *transaction) CountAlbums(ctx context.Context, projectID string) (int, error) {
	albums, err := tx.ListAlbums(ctx, projectID)
	return len(albums), err
}

func (tx *transaction) GetAlbum(_ context.Context, id string) (models.Album, error) {
	a, ok := tx.state.albums[id]
	if !ok {
		return models.Album{}, store.ErrNotFound
	}
	return a, nil
}

func (tx *transaction) InsertAlbum(_ context.Context, a models.Album) error {
	if _, exists := tx.state.albums[a.ID]; exists {
		return store.ErrDuplicate
	}
	if _, ok := tx.state.projects[a.ProjectID]; !ok {
		return store.ErrNotFound
	}
	tx.state.albums[a.ID] = a
	return nil
}

func (tx *transaction) UpdateAlbum(_ context.Context, a models.Album) error {
	if _, ok := tx.state.albums[a.ID]; !ok {
		return store.ErrNotFound
	}
	tx.state.albums[a.ID] = a
	return nil
}

func (tx *transaction) DeleteAlbum(ctx context.Context, id string) error {
	if _, ok := tx.state.albums[id]; !ok {
		return store.ErrNotFound
	}
	for photoID, p := range tx.state.photos {
		if p.AlbumID == id {
			if err := tx.DeletePhoto(ctx, photoID); err != nil {
				return err
			}
		}
	}
	delete(tx.state.albums, id)
	return nil
}

func (tx *transaction) SetAlbumOrders(_ context.Context, orders map[string]int) error {
	now := time.Now().UTC()
	for id, order := range orders {
		a, ok := tx.state.albums[id]
		if !ok {
			return store.ErrNotFound
		}
		a.DisplayOrder = order
		a.UpdatedAt = now
		tx.state.albums[id] = a
	}
	return nil
}

func (tx *transaction) ListPhotos(_ context.Context, albumID string) ([]models.Photo, error) {
	out := make([]models.Photo, 0)
	for _, p := range tx.state.photos {
		if p.AlbumID == albumID {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out, nil
}

func (tx *transaction) QueryPhotos(ctx context.Context, albumID string, q models.PhotoQuery) ([]models.Photo, int, error) {
	all, err := tx.ListPhotos(ctx, albumID)
	if err != nil {
		return nil, 0, err
	}
	less := func(a, b models.Photo) bool {
		switch q.SortBy {
		case models.SortCreated:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
		case models.SortName:
			if a.Prompt != b.Prompt {
				return a.Prompt < b.Prompt
			}
		}
		return a.DisplayOrder < b.DisplayOrder
	}
	sort.SliceStable(all, func(i, j int) bool {
		if q.SortDirection == models.SortDesc {
			return less(all[j], all[i])
		}
		return less(all[i], all[j])
	})

	total := len(all)
	if q.Offset < 0 {
		q.Offset = 0
	}
	if q.Offset >= total {
		return []models.Photo{}, total, nil
	}
	end := q.Offset + q.Limit
	if q.Limit < 0 || end > total || end < q.Offset {
		end = total
	}
	return all[q.Offset:end], total, nil
}

func (tx *transaction) CountPhotos(ctx context.Context, albumID string) (int, error) {
	n := 0
	for _, p := range tx.state.photos {
		if p.AlbumID == albumID {
			n++
		}
	}
	return n, nil
}

func (tx *transaction) GetPhoto(_ context.Context, id string) (models.Photo, error) {
	p, ok := tx.state.photos[id]
	if !ok {
		return models.Photo{}, store.ErrNotFound
	}
	return p.Clone(), nil
}

func (tx *transaction) InsertPhoto(_ context.Context, p models.Photo) error {
	if _, exists := tx.state.photos[p.ID]; exists {
		return store.ErrDuplicate
	}
	if _, ok := tx.state.albums[p.AlbumID]; !ok {
		return store.ErrNotFound
	}
	tx.state.photos[p.ID] = p.Clone()
	return nil
}

func (tx *transaction) UpdatePhoto(_ context.Context, p models.Photo) error {
	if _, ok := tx.state.photos[p.ID]; !ok {
		return store.ErrNotFound
	}
	if _, ok := tx.state.albums[p.AlbumID]; !ok {
		return store.ErrNotFound
	}
	tx.state.photos[p.ID] = p.Clone()
	return nil
}

// DeletePhoto mirrors the foreign keys of the SQL schema: album covers and
// usage rows that point at the photo are cleared.
func (tx *transaction) DeletePhoto(_ context.Context, id string) error {
	if _, ok := tx.state.photos[id]; !ok {
		return store.ErrNotFound
	}
	delete(tx.state.photos, id)
	for albumID, a := range tx.state.albums {
		if a.CoverPhotoID != nil && *a.CoverPhotoID == id {
			a.CoverPhotoID = nil
			tx.state.albums[albumID] = a
		}
	}
	for i, u := range tx.state.usages {
		if u.PhotoID != nil && *u.PhotoID == id {
			tx.state.usages[i].PhotoID = nil
		}
	}
	return nil
}

func (tx *transaction) SetPhotoOrders(_ context.Context, orders map[string]int) error {
	now := time.Now().UTC()
	for id, order := range orders {
		p, ok := tx.state.photos[id]
		if !ok {
			return store.ErrNotFound
		}
		p.DisplayOrder = order
		p.UpdatedAt = now
		tx.state.photos[id] = p
	}
	return nil
}

func (tx *transaction) ListTemplates(context.Context) ([]models.PromptTemplate, error) {
	out := make([]models.PromptTemplate, 0, len(tx.state.templates))
	for _, t := range tx.state.templates {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name) })
	return out, nil
}

func (tx *transaction) GetTemplate(_ context.Context, id string) (models.PromptTemplate, error) {
	t, ok := tx.state.templates[id]
	if !ok {
		return models.PromptTemplate{}, store.ErrNotFound
	}
	return t.Clone(), nil
}

func (tx *transaction) GetTemplateByName(_ context.Context, name string) (models.PromptTemplate, error) {
	for _, t := range tx.state.templates {
		if strings.EqualFold(t.Name, name) {
			return t.Clone(), nil
		}
	}
	return models.PromptTemplate{}, store.ErrNotFound
}

func (tx *transaction) nameTaken(name, exceptID string) bool {
	for id, t := range tx.state.templates {
		if id != exceptID && strings.EqualFold(t.Name, name) {
			return true
		}
	}
	return false
}

func (tx *transaction) InsertTemplate(_ context.Context, t models.PromptTemplate) error {
	if _, exists := tx.state.templates[t.ID]; exists || tx.nameTaken(t.Name, "") {
		return store.ErrDuplicate
	}
	tx.state.templates[t.ID] = t.Clone()
	return nil
}

func (tx *transaction) UpdateTemplate(_ context.Context, t models.PromptTemplate) error {
	if _, ok := tx.state.templates[t.ID]; !ok {
		return store.ErrNotFound
	}
	if tx.nameTaken(t.Name, t.ID) {
		return store.ErrDuplicate
	}
	tx.state.templates[t.ID] = t.Clone()
	return nil
}

func (tx *transaction) DeleteTemplate(_ context.Context, id string) error {
	if _, ok := tx.state.templates[id]; !ok {
		return store.ErrNotFound
	}
	delete(tx.state.templates, id)
	kept := tx.state.usages[:0]
	for _, u := range tx.state.usages {
		if u.TemplateID != id {
			kept = append(kept, u)
		}
	}
	tx.state.usages = kept
	for photoID, p := range tx.state.photos {
		if p.TemplateID != nil && *p.TemplateID == id {
			p.TemplateID = nil
			tx.state.photos[photoID] = p
		}
	}
	return nil
}

func (tx *transaction) InsertTemplateUsage(_ context.Context, u models.TemplateUsage) error {
	if _, ok := tx.state.templates[u.TemplateID]; !ok {
		return store.ErrNotFound
	}
	u.AppliedValues = u.AppliedValues.Clone()
	tx.state.usages = append(tx.state.usages, u)
	return nil
}

func (tx *transaction) TemplateStats(_ context.Context, templateID string) (models.TemplateStats, error) {
	var stats models.TemplateStats
	for _, u := range tx.state.usages {
		if u.TemplateID != templateID {
			continue
		}
		stats.UsageCount++
		if stats.LastUsed == nil || u.CreatedAt.After(*stats.LastUsed) {
			at := u.CreatedAt
			stats.LastUsed = &at
		}
	}
	return stats, nil
}

func (tx *transaction) RecentTemplateUsages(_ context.Context, templateID string, limit int) ([]models.TemplateUsage, error) {
	out := make([]models.TemplateUsage, 0)
	for _, u := range tx.state.usages {
		if u.TemplateID == templateID {
			u.AppliedValues = u.AppliedValues.Clone()
			out = append(out, u)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
