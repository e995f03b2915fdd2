// Package media validates externally-stored uploads, persists their
// reference records and fans out a live event to the owning clique.
package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/cliquepay/cliqued/internal/ident"
	"github.com/cliquepay/cliqued/internal/models"
	"github.com/cliquepay/cliqued/internal/notify"
)

// ErrUpload indicates the storage result is missing required metadata.
// The external store may already hold the bytes, but no media row is
// created for a malformed result.
var ErrUpload = errors.New("malformed upload result")

// Service persists media references and broadcasts their creation.
type Service struct {
	db        *gorm.DB
	ids       ident.Generator
	publisher notify.Publisher
}

// NewService constructs a media Service.
func NewService(db *gorm.DB, ids ident.Generator, publisher notify.Publisher) *Service {
	return &Service{db: db, ids: ids, publisher: publisher}
}

// List returns all media records for the clique, newest first.
func (s *Service) List(ctx context.Context, cliqueID string) ([]models.Media, error) {
	var rows []models.Media
	if errFind := s.db.WithContext(ctx).
		Where("clique_id = ?", cliqueID).
		Order("created_at DESC").
		Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("list media: %w", errFind)
	}
	return rows, nil
}

// Ingest validates the upload result, persists a media record keyed to
// the clique and the sending member, and publishes a media-created event
// on the clique's channel. A publish failure is logged, not surfaced:
// the record already exists and the mutation succeeded.
func (s *Service) Ingest(ctx context.Context, cliqueID string, member *models.Member, upload *UploadResult) (*models.Media, error) {
	if upload == nil ||
		strings.TrimSpace(upload.Location) == "" ||
		strings.TrimSpace(upload.ContentType) == "" {
		return nil, fmt.Errorf("%w: location and content type are required", ErrUpload)
	}

	row := models.Media{
		ID:          s.ids.NewID(),
		CliqueID:    cliqueID,
		MemberID:    member.ID,
		Location:    upload.Location,
		ContentType: upload.ContentType,
	}
	if upload.Name != "" || upload.Size > 0 {
		meta, errMarshal := json.Marshal(map[string]any{"name": upload.Name, "size": upload.Size})
		if errMarshal == nil {
			row.Metadata = datatypes.JSON(meta)
		}
	}

	if errCreate := s.db.WithContext(ctx).Create(&row).Error; errCreate != nil {
		return nil, fmt.Errorf("create media: %w", errCreate)
	}

	event := notify.Event{
		Type:     notify.EventMediaCreated,
		CliqueID: cliqueID,
		Payload:  row,
	}
	if errPublish := s.publisher.Publish(ctx, event); errPublish != nil {
		log.WithError(errPublish).
			WithField("clique_id", cliqueID).
			WithField("media_id", row.ID).
			Warn("media-created broadcast failed")
	}
	return &row, nil
}
