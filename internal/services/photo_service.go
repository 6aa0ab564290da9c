package services

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strings"

	"github.com/apex/log"
	"photo-studio-backend/internal/apperr"
	"photo-studio-backend/internal/events"
	"photo-studio-backend/internal/generation"
	"photo-studio-backend/internal/models"
	"photo-studio-backend/internal/ordering"
	"photo-studio-backend/internal/store"
	"photo-studio-backend/internal/templating"
)

const (
	defaultPage     = 1
	defaultPageSize = 20
)

// Generator is the part of generation.Adapter the photo service drives.
type Generator interface {
	Generate(ctx context.Context, req generation.Request) (generation.Job, error)
	Claim(id string) (generation.Job, error)
	Release(id string)
	Discard(id string)
}

type PhotoService struct {
	store       store.Store
	catalog     generation.ModelCatalog
	generator   Generator
	engine      *templating.Engine
	mirror      ImageMirror
	publisher   events.Publisher
	maxPageSize int
}

type PhotoServiceOptions struct {
	Catalog     generation.ModelCatalog
	Generator   Generator
	Engine      *templating.Engine
	Mirror      ImageMirror
	Publisher   events.Publisher
	MaxPageSize int
}

func NewPhotoService(st store.Store, opts PhotoServiceOptions) *PhotoService {
	maxPageSize := opts.MaxPageSize
	if maxPageSize < 1 {
		maxPageSize = 100
	}
	return &PhotoService{
		store:       st,
		catalog:     opts.Catalog,
		generator:   opts.Generator,
		engine:      opts.Engine,
		mirror:      opts.Mirror,
		publisher:   opts.Publisher,
		maxPageSize: maxPageSize,
	}
}

func (s *PhotoService) publish(action, albumID string, photoIDs ...string) {
	if s.publisher == nil {
		return
	}
	s.publisher.PublishPhotos(models.PhotoEvent{Action: action, AlbumID: albumID, PhotoIDs: photoIDs})
}

// normalize clamps paging input: page defaults to and is at least 1, limit
// defaults to 20 and is capped at the configured maximum, unknown sort keys
// fall back to display order ascending. A page whose offset would overflow
// lies past every album and yields an empty page.
func (s *PhotoService) normalize(opts models.PhotoListOptions) (page int, q models.PhotoQuery) {
	page = opts.Page
	if page < defaultPage {
		page = defaultPage
	}
	limit := opts.Limit
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > s.maxPageSize {
		limit = s.maxPageSize
	}

	offset := math.MaxInt
	if page-1 <= math.MaxInt/limit {
		offset = (page - 1) * limit
	}
	q = models.PhotoQuery{Offset: offset, Limit: limit, SortBy: opts.SortBy, SortDirection: opts.SortDirection}
	switch q.SortBy {
	case models.SortCreated, models.SortName, models.SortOrder:
	default:
		q.SortBy = models.SortOrder
	}
	if q.SortDirection != models.SortDesc {
		q.SortDirection = models.SortAsc
	}
	return page, q
}

func (s *PhotoService) GetPhotosByAlbum(ctx context.Context, albumID string, opts models.PhotoListOptions) (models.PhotoListResponse, error) {
	page, q := s.normalize(opts)

	var out models.PhotoListResponse
	err := s.store.View(ctx, func(tx store.Tx) error {
		if _, err := tx.GetAlbum(ctx, albumID); err != nil {
			return missing(err, apperr.AlbumNotFound, "album %s not found", albumID)
		}
		photos, total, err := tx.QueryPhotos(ctx, albumID, q)
		if err != nil {
			return err
		}
		out.Photos = make([]models.PhotoPreview, 0, len(photos))
		for _, p := range photos {
			out.Photos = append(out.Photos, p.Preview())
		}
		out.Pagination = models.Pagination{
			Page:    page,
			Limit:   q.Limit,
			Total:   total,
			HasNext: len(photos) > 0 && q.Offset+len(photos) < total,
			HasPrev: page > 1,
		}
		return nil
	})
	return out, err
}

func (s *PhotoService) GetPhoto(ctx context.Context, id string) (models.PhotoDetail, error) {
	var out models.PhotoDetail
	err := s.store.View(ctx, func(tx store.Tx) error {
		photo, err := tx.GetPhoto(ctx, id)
		if err != nil {
			return missing(err, apperr.PhotoNotFound, "photo %s not found", id)
		}
		album, err := tx.GetAlbum(ctx, photo.AlbumID)
		if err != nil {
			return err
		}
		project, err := tx.GetProject(ctx, album.ProjectID)
		if err != nil {
			return err
		}
		out = models.PhotoDetail{
			Photo:   photo,
			Album:   models.AlbumSummary{ID: album.ID, Name: album.Name, ProjectID: album.ProjectID},
			Project: models.ProjectSummary{ID: project.ID, Name: project.Name},
		}
		return nil
	})
	return out, err
}

// GeneratePhoto submits a generation job. With a template id the prompt is
// the template rendered with the supplied values; nothing is recorded
// against the template until the result is saved.
func (s *PhotoService) GeneratePhoto(ctx context.Context, req models.GeneratePhotoRequest) (models.GeneratePhotoResponse, error) {
	genReq := generation.Request{
		Model:          req.Model,
		Prompt:         req.Prompt,
		Parameters:     req.Parameters,
		AlbumID:        req.AlbumID,
		TemplateID:     req.TemplateID,
		TemplateValues: req.TemplateValues,
	}

	err := s.store.View(ctx, func(tx store.Tx) error {
		if req.AlbumID != "" {
			if _, err := tx.GetAlbum(ctx, req.AlbumID); err != nil {
				return missing(err, apperr.AlbumNotFound, "album %s not found", req.AlbumID)
			}
		}
		if req.TemplateID == "" {
			return nil
		}
		t, err := tx.GetTemplate(ctx, req.TemplateID)
		if err != nil {
			return missing(err, apperr.TemplateNotFound, "template %s not found", req.TemplateID)
		}
		applied, err := s.engine.Apply(t, req.TemplateValues)
		if err != nil {
			return err
		}
		genReq.Prompt = applied.FinalPrompt
		genReq.TemplateValues = applied.AppliedValues
		if genReq.Model == "" {
			genReq.Model = applied.Model
		}
		return nil
	})
	if err != nil {
		return models.GeneratePhotoResponse{}, err
	}

	job, err := s.generator.Generate(ctx, genReq)
	if err != nil {
		return models.GeneratePhotoResponse{}, err
	}

	resp := models.GeneratePhotoResponse{ID: job.ID, Status: job.Status}
	if job.EstimatedTimeRemaining != nil {
		resp.EstimatedTime = *job.EstimatedTimeRemaining
	}
	return resp, nil
}

// fromGeneration fills the fields a save request left out from the
// finished job it references.
func fromGeneration(req *models.SavePhotoRequest, job generation.Job) *models.GenerationMetadata {
	if len(job.Images) > 0 {
		img := job.Images[0]
		if req.URL == "" {
			req.URL = img.URL
		}
		if req.Width == 0 {
			req.Width = img.Width
		}
		if req.Height == 0 {
			req.Height = img.Height
		}
	}
	if req.Prompt == "" {
		req.Prompt = job.Prompt
	}
	if req.Model == "" {
		req.Model = job.Model
	}
	if req.Parameters == nil {
		req.Parameters = job.Parameters
	}
	if req.AlbumID == "" {
		req.AlbumID = job.AlbumID
	}
	if req.TemplateID == "" {
		req.TemplateID = job.TemplateID
		req.TemplateValues = job.TemplateValues
	}
	if job.Metadata == nil {
		return nil
	}
	md := *job.Metadata
	return &md
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return apperr.Validation(apperr.InvalidURL, "url", "url must be an absolute http(s) URL")
	}
	return nil
}

func (s *PhotoService) checkSave(req models.SavePhotoRequest) (models.ModelDetail, error) {
	if err := checkURL(req.URL); err != nil {
		return models.ModelDetail{}, err
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return models.ModelDetail{}, apperr.Validation(apperr.InvalidPrompt, "prompt", "prompt is required")
	}
	model, ok := s.catalog.Model(req.Model)
	if !ok {
		return models.ModelDetail{}, apperr.Validation(apperr.InvalidModel, "model", "model %q does not exist", req.Model)
	}
	if req.Width <= 0 || req.Height <= 0 {
		return models.ModelDetail{}, apperr.Validation(apperr.InvalidDimensions, "width",
			"width and height must be positive, got %dx%d", req.Width, req.Height)
	}
	if l := model.Limits; (l.MaxWidth > 0 && req.Width > l.MaxWidth) || (l.MaxHeight > 0 && req.Height > l.MaxHeight) {
		return models.ModelDetail{}, apperr.Validation(apperr.InvalidDimensions, "width",
			"%dx%d exceeds the %s limit of %dx%d", req.Width, req.Height, model.ID, l.MaxWidth, l.MaxHeight)
	}
	if req.AlbumID == "" {
		return models.ModelDetail{}, apperr.Validation(apperr.InvalidRequest, "album_id", "album_id is required")
	}
	return model, nil
}

// SavePhoto persists a photo at the end of its album. When the request
// references a generation job, the job must have completed; its outcome
// fills any omitted fields and the job is discarded once the photo is
// stored. A job is saved at most once: concurrent saves of the same job
// fail with a conflict.
func (s *PhotoService) SavePhoto(ctx context.Context, req models.SavePhotoRequest) (models.Photo, error) {
	if req.GenerationID == "" {
		return s.savePhoto(ctx, req, nil, nil)
	}

	job, err := s.generator.Claim(req.GenerationID)
	if err != nil {
		return models.Photo{}, err
	}
	metadata := fromGeneration(&req, job)
	var applied models.Values
	if job.TemplateID != "" && req.TemplateID == job.TemplateID {
		applied = job.TemplateValues
		if applied == nil {
			applied = models.Values{}
		}
	}

	photo, err := s.savePhoto(ctx, req, metadata, applied)
	if err != nil {
		s.generator.Release(req.GenerationID)
		return models.Photo{}, err
	}
	s.generator.Discard(req.GenerationID)
	return photo, nil
}

// savePhoto stores the photo and, for a template-linked photo, its usage.
// applied holds the template values already resolved by the generation;
// when nil the request's template values are applied here and must pass
// the template's validation.
func (s *PhotoService) savePhoto(ctx context.Context, req models.SavePhotoRequest, metadata *models.GenerationMetadata, applied models.Values) (models.Photo, error) {
	model, err := s.checkSave(req)
	if err != nil {
		return models.Photo{}, err
	}
	if req.GenerationTime != nil || req.Cost != nil {
		if metadata == nil {
			metadata = &models.GenerationMetadata{}
		}
		if req.GenerationTime != nil {
			metadata.ProcessingTimeMs = *req.GenerationTime
		}
		if req.Cost != nil {
			metadata.Cost = req.Cost
			metadata.Currency = model.Pricing.Currency
		}
	}

	at := now()
	photo := models.Photo{
		ID:                 newID(),
		AlbumID:            req.AlbumID,
		URL:                req.URL,
		Prompt:             strings.TrimSpace(req.Prompt),
		Model:              model.ID,
		Parameters:         req.Parameters.Clone(),
		Width:              req.Width,
		Height:             req.Height,
		GenerationMetadata: metadata,
		CreatedAt:          at,
		UpdatedAt:          at,
	}
	if photo.Parameters == nil {
		photo.Parameters = models.Values{}
	}
	if req.TemplateID != "" {
		photo.TemplateID = &req.TemplateID
	}

	err = s.store.View(ctx, func(tx store.Tx) error {
		if _, err := tx.GetAlbum(ctx, req.AlbumID); err != nil {
			return missing(err, apperr.AlbumNotFound, "album %s not found", req.AlbumID)
		}
		if photo.TemplateID == nil || applied != nil {
			return nil
		}
		t, err := tx.GetTemplate(ctx, *photo.TemplateID)
		if err != nil {
			return missing(err, apperr.TemplateNotFound, "template %s not found", *photo.TemplateID)
		}
		result, err := s.engine.Apply(t, req.TemplateValues)
		if err != nil {
			return err
		}
		applied = result.AppliedValues
		return nil
	})
	if err != nil {
		return models.Photo{}, err
	}

	if s.mirror != nil {
		storagePath, publicURL, err := s.mirror.MirrorPhoto(ctx, photo.AlbumID, photo.ID, photo.URL)
		if err != nil {
			return models.Photo{}, apperr.External(apperr.ServiceUnavailable, err, "failed to store image")
		}
		photo.StoragePath = storagePath
		photo.URL = publicURL
	}

	err = s.store.RunInTx(ctx, func(tx store.Tx) error {
		if err := tx.LockScope(ctx, store.PhotosScope(photo.AlbumID)); err != nil {
			return err
		}
		siblings, err := tx.ListPhotos(ctx, photo.AlbumID)
		if err != nil {
			return err
		}
		photo.DisplayOrder = ordering.Next(photoItems(siblings))
		if err := tx.InsertPhoto(ctx, photo); err != nil {
			return missing(err, apperr.AlbumNotFound, "album %s not found", photo.AlbumID)
		}
		if photo.TemplateID == nil {
			return nil
		}
		err = tx.InsertTemplateUsage(ctx, models.TemplateUsage{
			ID:            newID(),
			TemplateID:    *photo.TemplateID,
			PhotoID:       &photo.ID,
			PhotoURL:      photo.URL,
			AppliedValues: applied.Clone(),
			CreatedAt:     at,
		})
		return missing(err, apperr.TemplateNotFound, "template %s not found", *photo.TemplateID)
	})
	if err != nil {
		if s.mirror != nil {
			s.mirror.RemovePhotos(ctx, []string{photo.StoragePath})
		}
		return models.Photo{}, err
	}

	log.WithFields(log.Fields{
		"photo_id":      photo.ID,
		"album_id":      photo.AlbumID,
		"display_order": photo.DisplayOrder,
	}).Info("saved photo")
	s.publish(models.PhotoSaved, photo.AlbumID, photo.ID)
	return photo, nil
}

// lockedPhoto reads a photo, locks the photo scopes of its album plus extra,
// and re-reads it so the caller works on the locked state.
func lockedPhoto(ctx context.Context, tx store.Tx, id string, extra ...store.Scope) (models.Photo, error) {
	photo, err := tx.GetPhoto(ctx, id)
	if err != nil {
		return models.Photo{}, missing(err, apperr.PhotoNotFound, "photo %s not found", id)
	}
	if err := lockScopes(ctx, tx, append(extra, store.PhotosScope(photo.AlbumID))...); err != nil {
		return models.Photo{}, err
	}
	locked, err := tx.GetPhoto(ctx, id)
	if err != nil {
		return models.Photo{}, missing(err, apperr.PhotoNotFound, "photo %s not found", id)
	}
	if locked.AlbumID != photo.AlbumID {
		return models.Photo{}, apperr.Conflict(apperr.InvalidRequest, "album_id", "photo %s was moved concurrently", id)
	}
	return locked, nil
}

// clearCover drops the album's cover when it points at photoID.
func clearCover(ctx context.Context, tx store.Tx, albumID, photoID string) error {
	album, err := tx.GetAlbum(ctx, albumID)
	if err != nil {
		return err
	}
	if album.CoverPhotoID == nil || *album.CoverPhotoID != photoID {
		return nil
	}
	album.CoverPhotoID = nil
	album.UpdatedAt = now()
	return tx.UpdateAlbum(ctx, album)
}

// UpdatePhoto applies a move or a reposition.
func (s *PhotoService) UpdatePhoto(ctx context.Context, id string, mutation models.PhotoMutation) (models.Photo, error) {
	var photo models.Photo
	var moved bool
	var from string
	err := s.store.RunInTx(ctx, func(tx store.Tx) error {
		var extra []store.Scope
		if m, ok := mutation.(models.MovePhoto); ok {
			extra = append(extra, store.PhotosScope(m.AlbumID))
		}
		current, err := lockedPhoto(ctx, tx, id, extra...)
		if err != nil {
			return err
		}
		from = current.AlbumID

		switch m := mutation.(type) {
		case models.RepositionPhoto:
			err = reposition(ctx, tx, current, m.DisplayOrder)
		case models.MovePhoto:
			switch {
			case m.AlbumID == current.AlbumID && m.DisplayOrder == nil:
			case m.AlbumID == current.AlbumID:
				err = reposition(ctx, tx, current, *m.DisplayOrder)
			default:
				moved = true
				err = move(ctx, tx, current, m)
			}
		default:
			err = fmt.Errorf("unsupported photo mutation %T", mutation)
		}
		if err != nil {
			return err
		}
		photo, err = tx.GetPhoto(ctx, id)
		return err
	})
	if err != nil {
		return models.Photo{}, err
	}

	if moved {
		log.WithFields(log.Fields{"photo_id": id, "from": from, "to": photo.AlbumID}).Info("moved photo")
		s.publish(models.PhotoMoved, photo.AlbumID, id)
	}
	return photo, nil
}

func reposition(ctx context.Context, tx store.Tx, photo models.Photo, to int) error {
	siblings, err := tx.ListPhotos(ctx, photo.AlbumID)
	if err != nil {
		return err
	}
	changes, err := ordering.Move(photoItems(siblings), photo.ID, to)
	if err != nil {
		return err
	}
	return tx.SetPhotoOrders(ctx, changes)
}

func move(ctx context.Context, tx store.Tx, photo models.Photo, m models.MovePhoto) error {
	if _, err := tx.GetAlbum(ctx, m.AlbumID); err != nil {
		return missing(err, apperr.AlbumNotFound, "album %s not found", m.AlbumID)
	}
	target, err := tx.ListPhotos(ctx, m.AlbumID)
	if err != nil {
		return err
	}
	items := photoItems(target)
	at := ordering.Next(items)
	if m.DisplayOrder != nil {
		at = *m.DisplayOrder
		if err := ordering.CheckInsertPosition(at, len(items)); err != nil {
			return err
		}
	}

	source := photo.AlbumID
	photo.AlbumID = m.AlbumID
	photo.DisplayOrder = at
	photo.UpdatedAt = now()
	if err := tx.UpdatePhoto(ctx, photo); err != nil {
		return err
	}
	if err := tx.SetPhotoOrders(ctx, ordering.OpenGap(items, at)); err != nil {
		return err
	}

	remaining, err := tx.ListPhotos(ctx, source)
	if err != nil {
		return err
	}
	if err := tx.SetPhotoOrders(ctx, ordering.Compact(photoItems(remaining))); err != nil {
		return err
	}
	return clearCover(ctx, tx, source, photo.ID)
}

func (s *PhotoService) DeletePhoto(ctx context.Context, id string) error {
	var photo models.Photo
	err := s.store.RunInTx(ctx, func(tx store.Tx) error {
		var err error
		if photo, err = lockedPhoto(ctx, tx, id); err != nil {
			return err
		}
		if err := tx.DeletePhoto(ctx, id); err != nil {
			return err
		}
		remaining, err := tx.ListPhotos(ctx, photo.AlbumID)
		if err != nil {
			return err
		}
		return tx.SetPhotoOrders(ctx, ordering.CloseGap(photoItems(remaining), photo.DisplayOrder))
	})
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{"photo_id": id, "album_id": photo.AlbumID}).Info("deleted photo")
	if s.mirror != nil {
		s.mirror.RemovePhotos(ctx, []string{photo.StoragePath})
	}
	s.publish(models.PhotoDeleted, photo.AlbumID, id)
	return nil
}

func uniqueIDs(ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, apperr.Validation(apperr.InvalidRequest, "photo_ids", "photo_ids must not be empty")
	}
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out, nil
}

// lockedPhotos reads every photo in ids and locks the scopes of all albums
// they live in plus extra. Any missing id fails the whole call.
func lockedPhotos(ctx context.Context, tx store.Tx, ids []string, extra ...store.Scope) ([]models.Photo, error) {
	scopes := append([]store.Scope{}, extra...)
	for _, id := range ids {
		p, err := tx.GetPhoto(ctx, id)
		if err != nil {
			return nil, missing(err, apperr.PhotoNotFound, "photo %s not found", id)
		}
		scopes = append(scopes, store.PhotosScope(p.AlbumID))
	}
	if err := lockScopes(ctx, tx, scopes...); err != nil {
		return nil, err
	}

	photos := make([]models.Photo, 0, len(ids))
	for _, id := range ids {
		p, err := tx.GetPhoto(ctx, id)
		if err != nil {
			return nil, missing(err, apperr.PhotoNotFound, "photo %s not found", id)
		}
		photos = append(photos, p)
	}
	for i, p := range photos {
		if scopes[len(extra)+i] != store.PhotosScope(p.AlbumID) {
			return nil, apperr.Conflict(apperr.InvalidRequest, "photo_ids", "photo %s was moved concurrently", p.ID)
		}
	}
	return photos, nil
}

func compactAlbums(ctx context.Context, tx store.Tx, albumIDs map[string]bool) error {
	for albumID := range albumIDs {
		remaining, err := tx.ListPhotos(ctx, albumID)
		if err != nil {
			return err
		}
		if err := tx.SetPhotoOrders(ctx, ordering.Compact(photoItems(remaining))); err != nil {
			return err
		}
	}
	return nil
}

// DeletePhotos removes every listed photo or none of them.
func (s *PhotoService) DeletePhotos(ctx context.Context, ids []string) (int, error) {
	ids, err := uniqueIDs(ids)
	if err != nil {
		return 0, err
	}

	var paths []string
	err = s.store.RunInTx(ctx, func(tx store.Tx) error {
		photos, err := lockedPhotos(ctx, tx, ids)
		if err != nil {
			return err
		}
		albums := make(map[string]bool)
		for _, p := range photos {
			if err := tx.DeletePhoto(ctx, p.ID); err != nil {
				return err
			}
			albums[p.AlbumID] = true
			paths = append(paths, p.StoragePath)
		}
		return compactAlbums(ctx, tx, albums)
	})
	if err != nil {
		return 0, err
	}

	log.WithField("count", len(ids)).Info("deleted photos")
	if s.mirror != nil {
		s.mirror.RemovePhotos(ctx, paths)
	}
	s.publish(models.PhotoDeleted, "", ids...)
	return len(ids), nil
}

// MovePhotos appends the photos to the target album in request order and
// compacts every album they left.
func (s *PhotoService) MovePhotos(ctx context.Context, req models.MovePhotosRequest) ([]models.Photo, error) {
	ids, err := uniqueIDs(req.PhotoIDs)
	if err != nil {
		return nil, err
	}
	if req.TargetAlbumID == "" {
		return nil, apperr.Validation(apperr.InvalidRequest, "target_album_id", "target_album_id is required")
	}

	var out []models.Photo
	err = s.store.RunInTx(ctx, func(tx store.Tx) error {
		photos, err := lockedPhotos(ctx, tx, ids, store.PhotosScope(req.TargetAlbumID))
		if err != nil {
			return err
		}
		if _, err := tx.GetAlbum(ctx, req.TargetAlbumID); err != nil {
			return missing(err, apperr.AlbumNotFound, "album %s not found", req.TargetAlbumID)
		}

		moving := make(map[string]bool, len(ids))
		for _, id := range ids {
			moving[id] = true
		}
		target, err := tx.ListPhotos(ctx, req.TargetAlbumID)
		if err != nil {
			return err
		}
		var stay []ordering.Item
		for _, it := range photoItems(target) {
			if !moving[it.ID] {
				stay = append(stay, it)
			}
		}

		at := now()
		sources := make(map[string]bool)
		for i, p := range photos {
			if p.AlbumID != req.TargetAlbumID {
				sources[p.AlbumID] = true
				if err := clearCover(ctx, tx, p.AlbumID, p.ID); err != nil {
					return err
				}
			}
			p.AlbumID = req.TargetAlbumID
			p.DisplayOrder = len(stay) + i
			p.UpdatedAt = at
			if err := tx.UpdatePhoto(ctx, p); err != nil {
				return err
			}
		}
		if err := tx.SetPhotoOrders(ctx, ordering.Compact(stay)); err != nil {
			return err
		}
		if err := compactAlbums(ctx, tx, sources); err != nil {
			return err
		}

		out = make([]models.Photo, 0, len(ids))
		for _, id := range ids {
			p, err := tx.GetPhoto(ctx, id)
			if err != nil {
				return err
			}
			out = append(out, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"count": len(ids), "album_id": req.TargetAlbumID}).Info("moved photos")
	s.publish(models.PhotoMoved, req.TargetAlbumID, ids...)
	return out, nil
}

func (s *PhotoService) ReorderPhotos(ctx context.Context, albumID string, orders []models.OrderAssignment) ([]models.PhotoPreview, error) {
	var out []models.PhotoPreview
	err := s.store.RunInTx(ctx, func(tx store.Tx) error {
		if err := tx.LockScope(ctx, store.PhotosScope(albumID)); err != nil {
			return err
		}
		if _, err := tx.GetAlbum(ctx, albumID); err != nil {
			return missing(err, apperr.AlbumNotFound, "album %s not found", albumID)
		}
		siblings, err := tx.ListPhotos(ctx, albumID)
		if err != nil {
			return err
		}
		changes, err := ordering.Validate(itemIDs(photoItems(siblings)), toAssignments(orders))
		if err != nil {
			return err
		}
		if err := tx.SetPhotoOrders(ctx, changes); err != nil {
			return err
		}
		photos, err := tx.ListPhotos(ctx, albumID)
		if err != nil {
			return err
		}
		out = make([]models.PhotoPreview, 0, len(photos))
		for _, p := range photos {
			out = append(out, p.Preview())
		}
		return nil
	})
	return out, err
}
