package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mediakeepapp/mediakeep-server/internal/domain"
	"github.com/mediakeepapp/mediakeep-server/internal/id"
	"github.com/mediakeepapp/mediakeep-server/internal/store"
)

// mediaColumns is the ordered list of columns selected in media queries.
// Must match the scan order in scanMedia.
const mediaColumns = `id, created_at, updated_at, title, kind, folder_path,
	manifest, item_count, total_size, cover_url, cover_blur_hash,
	source_url, description`

// scanMedia scans a sql.Row (or sql.Rows via its Scan method) into a
// domain.MediaRecord.
func scanMedia(scanner interface{ Scan(dest ...any) error }) (*domain.MediaRecord, error) {
	var m domain.MediaRecord

	var (
		createdAt string
		updatedAt string
		kind      string
		manifest  sql.NullString

		coverURL      sql.NullString
		coverBlurHash sql.NullString
		sourceURL     sql.NullString
		description   sql.NullString
	)

	err := scanner.Scan(
		&m.ID,
		&createdAt,
		&updatedAt,
		&m.Title,
		&kind,
		&m.FolderPath,
		&manifest,
		&m.ItemCount,
		&m.TotalSize,
		&coverURL,
		&coverBlurHash,
		&sourceURL,
		&description,
	)
	if err != nil {
		return nil, err
	}

	m.Kind = domain.MediaKind(kind)

	m.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	m.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	if manifest.Valid && manifest.String != "" {
		m.Manifest, err = domain.ParseManifest([]byte(manifest.String), m.Kind)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", m.ID, err)
		}
	}

	if coverURL.Valid {
		m.CoverURL = coverURL.String
	}
	if coverBlurHash.Valid {
		m.CoverBlurHash = coverBlurHash.String
	}
	if sourceURL.Valid {
		m.SourceURL = sourceURL.String
	}
	if description.Valid {
		m.Description = description.String
	}

	return &m, nil
}

// UpsertMedia inserts rec or replaces the scan-derived fields of the
// existing record for rec.FolderPath. The id and created_at of an
// existing record are preserved, as are source_url and description,
// which are set by the upload handler after registration rather than
// by the scan. The write is a single statement; there is no
// partial-write state to recover from.
func (s *Store) UpsertMedia(ctx context.Context, rec *domain.MediaRecord) (*domain.MediaRecord, error) {
	if rec.FolderPath == "" {
		return nil, store.ErrInvalidInput.WithMessage("media record missing folder path")
	}
	if !rec.Kind.Valid() {
		return nil, store.ErrInvalidInput.WithMessage(fmt.Sprintf("unknown media kind %q", rec.Kind))
	}

	var manifestJSON sql.NullString
	if rec.Manifest != nil {
		if err := rec.Manifest.ValidateFor(rec.Kind); err != nil {
			return nil, store.ErrInvalidInput.WithCause(err)
		}
		data, err := domain.EncodeManifest(rec.Manifest)
		if err != nil {
			return nil, err
		}
		manifestJSON = sql.NullString{String: string(data), Valid: true}
	}

	newID, err := id.Generate("med")
	if err != nil {
		return nil, fmt.Errorf("generate media id: %w", err)
	}

	now := formatTime(time.Now())

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO media (
			id, created_at, updated_at, title, kind, folder_path,
			manifest, item_count, total_size, cover_url, cover_blur_hash,
			source_url, description
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(folder_path) DO UPDATE SET
			updated_at = excluded.updated_at,
			title = excluded.title,
			kind = excluded.kind,
			manifest = excluded.manifest,
			item_count = excluded.item_count,
			total_size = excluded.total_size,
			cover_url = excluded.cover_url,
			cover_blur_hash = excluded.cover_blur_hash
		RETURNING `+mediaColumns,
		newID, now, now, rec.Title, string(rec.Kind), rec.FolderPath,
		manifestJSON, rec.ItemCount, rec.TotalSize,
		nullString(rec.CoverURL), nullString(rec.CoverBlurHash),
		nullString(rec.SourceURL), nullString(rec.Description),
	)

	persisted, err := scanMedia(row)
	if err != nil {
		return nil, fmt.Errorf("upsert media %s: %w", rec.FolderPath, err)
	}

	return persisted, nil
}

// GetMedia returns the record with the given id.
func (s *Store) GetMedia(ctx context.Context, mediaID string) (*domain.MediaRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+mediaColumns+` FROM media WHERE id = ?`, mediaID)

	rec, err := scanMedia(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound.WithMessage("media record not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get media %s: %w", mediaID, err)
	}
	return rec, nil
}

// GetMediaByPath returns the record for an absolute folder path.
func (s *Store) GetMediaByPath(ctx context.Context, folderPath string) (*domain.MediaRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+mediaColumns+` FROM media WHERE folder_path = ?`, folderPath)

	rec, err := scanMedia(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound.WithMessage("media record not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get media by path %s: %w", folderPath, err)
	}
	return rec, nil
}

// ListMedia returns records ordered by most recently updated. kind
// filters when non-empty.
func (s *Store) ListMedia(ctx context.Context, kind domain.MediaKind) ([]*domain.MediaRecord, error) {
	query := `SELECT ` + mediaColumns + ` FROM media`
	var args []any
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY updated_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}
	defer rows.Close()

	var records []*domain.MediaRecord
	for rows.Next() {
		rec, err := scanMedia(rows)
		if err != nil {
			return nil, fmt.Errorf("list media: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}

	return records, nil
}

// MediaPatch holds optional field updates applied after registration.
// Nil fields are left untouched.
type MediaPatch struct {
	Title       *string
	SourceURL   *string
	Description *string
}

// PatchMedia updates the patchable fields of a record and returns the
// result. Used by the upload handler to attach the source URL once a
// scan has returned its record id.
func (s *Store) PatchMedia(ctx context.Context, mediaID string, patch MediaPatch) (*domain.MediaRecord, error) {
	sets := []string{"updated_at = ?"}
	args := []any{formatTime(time.Now())}

	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.SourceURL != nil {
		sets = append(sets, "source_url = ?")
		args = append(args, nullString(*patch.SourceURL))
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, nullString(*patch.Description))
	}

	args = append(args, mediaID)

	res, err := s.db.ExecContext(ctx,
		`UPDATE media SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("patch media %s: %w", mediaID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("patch media %s: %w", mediaID, err)
	}
	if affected == 0 {
		return nil, store.ErrNotFound.WithMessage("media record not found")
	}

	return s.GetMedia(ctx, mediaID)
}

// DeleteMedia removes a record. The caller is responsible for any
// on-disk cleanup of the folder itself.
func (s *Store) DeleteMedia(ctx context.Context, mediaID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM media WHERE id = ?`, mediaID)
	if err != nil {
		return fmt.Errorf("delete media %s: %w", mediaID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete media %s: %w", mediaID, err)
	}
	if affected == 0 {
		return store.ErrNotFound.WithMessage("media record not found")
	}
	return nil
}
