package service

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/woco-project/woco-api/internal/models"
	appErrors "github.com/woco-project/woco-api/pkg/errors"
	"github.com/woco-project/woco-api/pkg/export"
	"github.com/woco-project/woco-api/pkg/storage"
)

type exportPostmarkLister interface {
	List(ctx context.Context, filter models.PostmarkFilter) ([]models.Postmark, int, error)
}

type exportPostcoverLister interface {
	List(ctx context.Context, filter models.PostcoverFilter) ([]models.Postcover, int, error)
	ListPlacements(ctx context.Context, postcoverID string) ([]models.PostcoverPlacement, error)
}

type exportLocationLookup interface {
	FindByID(ctx context.Context, id string) (*models.GeographicLocation, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
	MaxRows   int
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	ExpiresAt    time.Time
	RowCount     int
}

// ExportService renders catalog extracts: postmark listings as CSV and
// collection inventories as PDF. Rendered files land in local storage and
// are fetched back through signed download tokens.
type ExportService struct {
	postmarks  exportPostmarkLister
	postcovers exportPostcoverLister
	locations  exportLocationLookup
	storage    fileStorage
	csv        csvRenderer
	pdf        pdfRenderer
	signer     *storage.SignedURLSigner
	logger     *zap.Logger
	cfg        ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(postmarks exportPostmarkLister, postcovers exportPostcoverLister, locations exportLocationLookup, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = 10000
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		postmarks:  postmarks,
		postcovers: postcovers,
		locations:  locations,
		storage:    store,
		csv:        csv,
		pdf:        pdf,
		signer:     signer,
		logger:     logger,
		cfg:        cfg,
	}
}

var postmarkCSVHeaders = []string{"postmark_key", "location", "rate_location", "rate_value", "condition", "is_manuscript", "other_characteristics", "created_at"}

// PostmarksCSV renders the filtered catalog as CSV. The filter's paging is
// overridden so the export covers everything up to the configured cap.
func (s *ExportService) PostmarksCSV(ctx context.Context, filter models.PostmarkFilter) (*ExportResult, error) {
	filter.Page = 1
	filter.PageSize = 100

	rows := make([]map[string]string, 0)
	locationNames := map[string]string{}
	for len(rows) < s.cfg.MaxRows {
		postmarks, total, err := s.postmarks.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to collect postmarks")
		}
		for _, p := range postmarks {
			if len(rows) >= s.cfg.MaxRows {
				break
			}
			name, ok := locationNames[p.LocationID]
			if !ok {
				if location, err := s.locations.FindByID(ctx, p.LocationID); err == nil {
					name = location.LocationName
				}
				locationNames[p.LocationID] = name
			}
			condition := ""
			if p.Condition != nil {
				condition = string(*p.Condition)
			}
			rows = append(rows, map[string]string{
				"postmark_key":          p.PostmarkKey,
				"location":              name,
				"rate_location":         string(p.RateLocation),
				"rate_value":            p.RateValue,
				"condition":             condition,
				"is_manuscript":         strconv.FormatBool(p.IsManuscript),
				"other_characteristics": p.OtherCharacteristics,
				"created_at":            p.CreatedAt.Format(time.RFC3339),
			})
		}
		if filter.Page*filter.PageSize >= total || len(postmarks) == 0 {
			break
		}
		filter.Page++
	}

	payload, err := s.csv.Render(export.Dataset{Headers: postmarkCSVHeaders, Rows: rows})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return s.persist("postmarks", "csv", payload, len(rows))
}

var postcoverPDFHeaders = []string{"postcover_key", "description", "condition", "postmarks"}

// PostcoversPDF renders a collector's inventory as a tabular PDF.
func (s *ExportService) PostcoversPDF(ctx context.Context, ownerID string) (*ExportResult, error) {
	filter := models.PostcoverFilter{OwnerUserID: ownerID, Page: 1, PageSize: 100}

	rows := make([]map[string]string, 0)
	for len(rows) < s.cfg.MaxRows {
		covers, total, err := s.postcovers.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to collect postcovers")
		}
		for _, cover := range covers {
			if len(rows) >= s.cfg.MaxRows {
				break
			}
			placements, err := s.postcovers.ListPlacements(ctx, cover.ID)
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to collect placements")
			}
			condition := ""
			if cover.Condition != nil {
				condition = string(*cover.Condition)
			}
			rows = append(rows, map[string]string{
				"postcover_key": cover.PostcoverKey,
				"description":   cover.Description,
				"condition":     condition,
				"postmarks":     strconv.Itoa(len(placements)),
			})
		}
		if filter.Page*filter.PageSize >= total || len(covers) == 0 {
			break
		}
		filter.Page++
	}

	payload, err := s.pdf.Render(export.Dataset{Headers: postcoverPDFHeaders, Rows: rows}, "Collection Inventory")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
	}
	return s.persist("postcovers", "pdf", payload, len(rows))
}

// Download resolves a signed token back to the stored file.
func (s *ExportService) Download(token string) (*os.File, string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export no longer available")
	}
	return file, relPath, nil
}

// Cleanup removes rendered exports past the TTL.
func (s *ExportService) Cleanup() {
	deleted, err := s.storage.CleanupOlderThan(s.cfg.ResultTTL)
	if err != nil {
		s.logger.Warn("export cleanup failed", zap.Error(err))
		return
	}
	if len(deleted) > 0 {
		s.logger.Info("export cleanup", zap.Int("deleted", len(deleted)))
	}
}

func (s *ExportService) persist(kind, ext string, payload []byte, rowCount int) (*ExportResult, error) {
	exportID := fmt.Sprintf("%s-%d", kind, time.Now().UTC().UnixNano())
	filename := fmt.Sprintf("%s/%s.%s", kind, exportID, ext)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}

	token, expiresAt, err := s.signer.Generate(exportID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
	}

	prefix := strings.TrimSuffix(s.cfg.APIPrefix, "/")
	result := &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/exports/download?token=%s", prefix, token),
		ExpiresAt:    expiresAt,
		RowCount:     rowCount,
	}
	s.logger.Info("export rendered",
		zap.String("kind", kind),
		zap.Int("rows", rowCount),
		zap.String("path", relPath))
	return result, nil
}
