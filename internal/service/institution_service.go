package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/chronoslab/timetabler/internal/dto"
	"github.com/chronoslab/timetabler/internal/models"
	appErrors "github.com/chronoslab/timetabler/pkg/errors"
)

type institutionCatalog interface {
	Create(ctx context.Context, institution *models.Institution) error
	FindByID(ctx context.Context, id string) (*models.Institution, error)
	List(ctx context.Context, page, pageSize int) ([]models.Institution, int, error)
	Rename(ctx context.Context, id, name string) error
	Delete(ctx context.Context, id string) error
}

type resultPurger interface {
	DeleteByInstitution(ctx context.Context, institutionID string) error
}

// InstitutionService manages institution records.
type InstitutionService struct {
	repo     institutionCatalog
	results  resultPurger
	cache    documentCache
	validate *validator.Validate
	logger   *zap.Logger
}

// NewInstitutionService constructs the service. results and cache may be nil;
// deletion then skips the cascade and cache invalidation.
func NewInstitutionService(repo institutionCatalog, results resultPurger, cache documentCache, logger *zap.Logger) *InstitutionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstitutionService{repo: repo, results: results, cache: cache, validate: validator.New(), logger: logger}
}

// Create registers a new institution.
func (s *InstitutionService) Create(ctx context.Context, req dto.CreateInstitutionRequest) (*models.Institution, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(appErrors.ErrValidation, err)
	}
	institution := &models.Institution{Name: req.Name}
	if err := s.repo.Create(ctx, institution); err != nil {
		return nil, appErrors.Wrap(appErrors.ErrInternal, err)
	}
	s.logger.Info("institution created", zap.String("institution_id", institution.ID), zap.String("name", institution.Name))
	return institution, nil
}

// Get loads an institution by id.
func (s *InstitutionService) Get(ctx context.Context, id string) (*models.Institution, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "institution id is required")
	}
	institution, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "institution not found")
		}
		return nil, appErrors.Wrap(appErrors.ErrInternal, err)
	}
	return institution, nil
}

// Update renames an institution and returns the stored record.
func (s *InstitutionService) Update(ctx context.Context, id string, req dto.UpdateInstitutionRequest) (*models.Institution, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "institution id is required")
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(appErrors.ErrValidation, err)
	}
	if err := s.repo.Rename(ctx, id, req.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "institution not found")
		}
		return nil, appErrors.Wrap(appErrors.ErrInternal, err)
	}
	s.logger.Info("institution renamed", zap.String("institution_id", id), zap.String("name", req.Name))
	return s.Get(ctx, id)
}

// Delete removes an institution together with its stored timetables.
func (s *InstitutionService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return appErrors.Clone(appErrors.ErrValidation, "institution id is required")
	}
	if s.results != nil {
		if err := s.results.DeleteByInstitution(ctx, id); err != nil {
			return appErrors.Wrap(appErrors.ErrInternal, err)
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "institution not found")
		}
		return appErrors.Wrap(appErrors.ErrInternal, err)
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, cacheKeyLatest(id)); err != nil {
			s.logger.Warn("evict latest cache failed", zap.String("institution_id", id), zap.Error(err))
		}
	}
	s.logger.Info("institution deleted", zap.String("institution_id", id))
	return nil
}

// List returns institutions with pagination metadata.
func (s *InstitutionService) List(ctx context.Context, page, pageSize int) ([]models.Institution, *models.Pagination, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	institutions, total, err := s.repo.List(ctx, page, pageSize)
	if err != nil {
		return nil, nil, appErrors.Wrap(appErrors.ErrInternal, err)
	}
	return institutions, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}
