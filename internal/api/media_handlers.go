package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/mediakeepapp/mediakeep-server/internal/domain"
	"github.com/mediakeepapp/mediakeep-server/internal/store"
	"github.com/mediakeepapp/mediakeep-server/internal/store/sqlite"
)

func (s *Server) registerMediaRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Tags:        []string{"System"},
	}, s.handleHealthCheck)

	huma.Register(s.api, huma.Operation{
		OperationID: "listMedia",
		Method:      http.MethodGet,
		Path:        "/api/v1/media",
		Summary:     "List media",
		Description: "Returns media records, most recently updated first",
		Tags:        []string{"Media"},
	}, s.handleListMedia)

	huma.Register(s.api, huma.Operation{
		OperationID: "getMedia",
		Method:      http.MethodGet,
		Path:        "/api/v1/media/{id}",
		Summary:     "Get media",
		Description: "Returns a media record by ID, including its manifest",
		Tags:        []string{"Media"},
	}, s.handleGetMedia)

	huma.Register(s.api, huma.Operation{
		OperationID: "patchMedia",
		Method:      http.MethodPatch,
		Path:        "/api/v1/media/{id}",
		Summary:     "Update media",
		Description: "Updates the editable fields of a media record",
		Tags:        []string{"Media"},
	}, s.handlePatchMedia)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteMedia",
		Method:      http.MethodDelete,
		Path:        "/api/v1/media/{id}",
		Summary:     "Delete media",
		Description: "Deletes a media record; files on disk are kept",
		Tags:        []string{"Media"},
	}, s.handleDeleteMedia)

	huma.Register(s.api, huma.Operation{
		OperationID: "rescanMedia",
		Method:      http.MethodPost,
		Path:        "/api/v1/media/{id}/scan",
		Summary:     "Rescan media",
		Description: "Re-runs the ingestion scan over the record's folder",
		Tags:        []string{"Media"},
	}, s.handleRescanMedia)
}

type healthOutput struct {
	Body struct {
		Status  string `json:"status" example:"healthy"`
		Version string `json:"version"`
	}
}

func (s *Server) handleHealthCheck(_ context.Context, _ *struct{}) (*healthOutput, error) {
	out := &healthOutput{}
	out.Body.Status = "healthy"
	out.Body.Version = Version
	return out, nil
}

type listMediaInput struct {
	Kind string `query:"kind" enum:"MANGA,AUDIO,VIDEO,IMAGE,LINK" required:"false" doc:"Filter by media kind"`
}

type listMediaOutput struct {
	Body struct {
		Media []*domain.MediaRecord `json:"media"`
	}
}

func (s *Server) handleListMedia(ctx context.Context, input *listMediaInput) (*listMediaOutput, error) {
	records, err := s.store.ListMedia(ctx, domain.MediaKind(input.Kind))
	if err != nil {
		return nil, err
	}

	out := &listMediaOutput{}
	out.Body.Media = records
	if out.Body.Media == nil {
		out.Body.Media = []*domain.MediaRecord{}
	}
	return out, nil
}

type mediaIDInput struct {
	ID string `path:"id" doc:"Media record ID"`
}

type mediaOutput struct {
	Body *domain.MediaRecord
}

func (s *Server) handleGetMedia(ctx context.Context, input *mediaIDInput) (*mediaOutput, error) {
	rec, err := s.store.GetMedia(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &mediaOutput{Body: rec}, nil
}

type patchMediaInput struct {
	ID   string `path:"id" doc:"Media record ID"`
	Body struct {
		Title       *string `json:"title,omitempty" doc:"New display title"`
		Description *string `json:"description,omitempty" doc:"New description"`
		SourceURL   *string `json:"source_url,omitempty" doc:"New source URL"`
	}
}

func (s *Server) handlePatchMedia(ctx context.Context, input *patchMediaInput) (*mediaOutput, error) {
	rec, err := s.store.PatchMedia(ctx, input.ID, sqlite.MediaPatch{
		Title:       input.Body.Title,
		Description: input.Body.Description,
		SourceURL:   input.Body.SourceURL,
	})
	if err != nil {
		return nil, err
	}
	return &mediaOutput{Body: rec}, nil
}

func (s *Server) handleDeleteMedia(ctx context.Context, input *mediaIDInput) (*struct{}, error) {
	if err := s.store.DeleteMedia(ctx, input.ID); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Server) handleRescanMedia(ctx context.Context, input *mediaIDInput) (*mediaOutput, error) {
	rec, err := s.store.GetMedia(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	switch rec.Kind {
	case domain.KindManga:
		_, err = s.scanner.ScanMangaFolder(ctx, rec.FolderPath, rec.Title)
	case domain.KindAudio:
		_, err = s.scanner.ScanAudioFolder(ctx, rec.FolderPath, rec.Title, nil)
	default:
		return nil, store.ErrInvalidInput.WithMessage(
			fmt.Sprintf("media kind %s is not scannable", rec.Kind))
	}
	if err != nil {
		return nil, huma.Error422UnprocessableEntity(fmt.Sprintf("rescan failed: %v", err))
	}

	refreshed, err := s.store.GetMedia(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &mediaOutput{Body: refreshed}, nil
}
