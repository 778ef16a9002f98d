package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/photomapper/internal/common"
	"github.com/joseph-ayodele/photomapper/internal/entity"
)

type PhotoRepository interface {
	Create(ctx context.Context, p *entity.Photo) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Photo, error)
	GetByHash(ctx context.Context, hash []byte) (*entity.Photo, error)
	UpsertByHash(ctx context.Context, p *entity.Photo) (*entity.Photo, bool, error)
	ListByBatch(ctx context.Context, batchID uuid.UUID) ([]*entity.Photo, error)
}

type photoRepo struct {
	db     *DB
	logger *slog.Logger
}

func NewPhotoRepository(db *DB, logger *slog.Logger) PhotoRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &photoRepo{db: db, logger: logger}
}

var photoColumns = []string{
	"id", "batch_id", "source_name", "file_name", "object_key", "thumb_key",
	"content_hash", "size_bytes", "width", "height", "status", "created_at",
}

const photosTable = "photos"

func (r *photoRepo) Create(ctx context.Context, p *entity.Photo) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	p.CreatedAt = p.CreatedAt.UTC()

	var thumb sql.NullString
	if p.ThumbKey != "" {
		thumb = sql.NullString{String: p.ThumbKey, Valid: true}
	}
	query, args := entsql.Dialect(r.db.Dialect()).
		Insert(photosTable).
		Columns(photoColumns...).
		Values(p.ID.String(), p.BatchID.String(), p.SourceName, p.FileName, p.ObjectKey, thumb,
			p.ContentHash, p.SizeBytes, p.Width, p.Height, p.Status, p.CreatedAt).
		Query()
	if err := r.db.Ent.Exec(ctx, query, args, nil); err != nil {
		r.logger.Error("failed to create photo", "photo_id", p.ID, "file_name", p.FileName, "error", err)
		return fmt.Errorf("%w: create photo: %w", common.ErrDatabase, err)
	}
	return nil
}

// selectPhotos builds SELECT <photoColumns> FROM photos for the repo's dialect.
func (r *photoRepo) selectPhotos() *entsql.Selector {
	b := entsql.Dialect(r.db.Dialect())
	return b.Select(photoColumns...).From(b.Table(photosTable))
}

func (r *photoRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Photo, error) {
	return r.only(ctx, r.selectPhotos().Where(entsql.EQ("id", id.String())), "photo "+id.String())
}

func (r *photoRepo) GetByHash(ctx context.Context, hash []byte) (*entity.Photo, error) {
	return r.only(ctx, r.selectPhotos().Where(entsql.EQ("content_hash", hash)), fmt.Sprintf("photo with hash %x", hash))
}

// UpsertByHash returns the existing row for p.ContentHash (dedup=true) or inserts p.
func (r *photoRepo) UpsertByHash(ctx context.Context, p *entity.Photo) (*entity.Photo, bool, error) {
	existing, err := r.GetByHash(ctx, p.ContentHash)
	if err == nil {
		return existing, true, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, false, err
	}
	if err := r.Create(ctx, p); err != nil {
		r.logger.Error("failed to upsert photo by hash", "file_name", p.FileName, "error", err)
		return nil, false, err
	}
	return p, false, nil
}

func (r *photoRepo) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]*entity.Photo, error) {
	sel := r.selectPhotos().
		Where(entsql.EQ("batch_id", batchID.String())).
		OrderBy("created_at", "file_name")
	out, err := r.query(ctx, sel)
	if err != nil {
		r.logger.Error("failed to list photos", "batch_id", batchID, "error", err)
		return nil, fmt.Errorf("%w: list photos: %w", common.ErrDatabase, err)
	}
	return out, nil
}

func (r *photoRepo) query(ctx context.Context, sel *entsql.Selector) ([]*entity.Photo, error) {
	query, args := sel.Query()
	var rows entsql.Rows
	if err := r.db.Ent.Query(ctx, query, args, &rows); err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*entity.Photo
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("scan photo: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// only returns the single row sel matches, or ErrNotFound.
func (r *photoRepo) only(ctx context.Context, sel *entsql.Selector, what string) (*entity.Photo, error) {
	out, err := r.query(ctx, sel.Limit(1))
	if err != nil {
		r.logger.Error("photo query failed", "what", what, "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", common.ErrNotFound, what)
	}
	return out[0], nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPhoto(s scanner) (*entity.Photo, error) {
	var (
		p     entity.Photo
		thumb sql.NullString
	)
	err := s.Scan(&p.ID, &p.BatchID, &p.SourceName, &p.FileName, &p.ObjectKey, &thumb,
		&p.ContentHash, &p.SizeBytes, &p.Width, &p.Height, &p.Status, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.ThumbKey = thumb.String
	return &p, nil
}
