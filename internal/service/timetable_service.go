package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/chronoslab/timetabler/internal/constraint"
	"github.com/chronoslab/timetabler/internal/dto"
	"github.com/chronoslab/timetabler/internal/models"
	"github.com/chronoslab/timetabler/internal/optimizer"
	"github.com/chronoslab/timetabler/pkg/config"
	appErrors "github.com/chronoslab/timetabler/pkg/errors"
	"github.com/chronoslab/timetabler/pkg/jobs"
)

type timetableResultStore interface {
	CreateVersioned(ctx context.Context, exec sqlx.ExtContext, result *models.TimetableResult) error
	LatestByInstitution(ctx context.Context, institutionID string) (*models.TimetableResult, error)
	ListByInstitution(ctx context.Context, institutionID string, limit int) ([]models.TimetableResultMeta, error)
}

type institutionStore interface {
	FindByID(ctx context.Context, id string) (*models.Institution, error)
	IncrementGenerationCount(ctx context.Context, exec sqlx.ExtContext, id string) error
}

type documentCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type persistQueue interface {
	Enqueue(job jobs.Job) error
}

// TimetableService orchestrates optimization runs, background persistence,
// cached retrieval and history listing.
type TimetableService struct {
	results      timetableResultStore
	institutions institutionStore
	cache        documentCache
	queue        persistQueue
	checker      *constraint.Checker
	metrics      *MetricsService
	validate     *validator.Validate
	optCfg       config.OptimizerConfig
	cacheTTL     time.Duration
	logger       *zap.Logger
}

// NewTimetableService wires the service. cache and queue may be nil; the
// service then skips caching and persists synchronously.
func NewTimetableService(
	results timetableResultStore,
	institutions institutionStore,
	cache documentCache,
	queue persistQueue,
	checker *constraint.Checker,
	metrics *MetricsService,
	optCfg config.OptimizerConfig,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *TimetableService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if checker == nil {
		checker = constraint.NewChecker(logger)
	}
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &TimetableService{
		results:      results,
		institutions: institutions,
		cache:        cache,
		queue:        queue,
		checker:      checker,
		metrics:      metrics,
		validate:     validator.New(),
		optCfg:       optCfg,
		cacheTTL:     cacheTTL,
		logger:       logger,
	}
}

const persistJobType = "persist_timetable_result"

func cacheKeyLatest(institutionID string) string {
	return "timetable:latest:" + institutionID
}

// Generate runs the optimizer for the request and schedules the result for
// background persistence.
func (s *TimetableService) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(appErrors.ErrValidation, err)
	}

	grid, courses, resources, err := buildProblem(req.Config, req.Courses)
	if err != nil {
		return nil, err
	}

	algorithm := optimizer.Algorithm(req.Algorithm)
	if algorithm == "" {
		algorithm = optimizer.AlgorithmGenetic
		if s.optCfg.AnnealingEnabled {
			algorithm = optimizer.AlgorithmHybrid
		}
	}

	runCtx := ctx
	if s.optCfg.OptimizationLimit > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.optCfg.OptimizationLimit)
		defer cancel()
	}

	opt := optimizer.New(grid, courses, resources, s.logger)
	result, err := opt.Run(runCtx, optimizer.Options{
		Algorithm: algorithm,
		Seed:      req.Seed,
		Params:    s.searchParams(),
		Anneal: optimizer.AnnealParams{
			InitialTemp:  s.optCfg.InitialTemp,
			FinalTemp:    s.optCfg.FinalTemp,
			CoolingRate:  s.optCfg.CoolingRate,
			MovesPerTemp: s.optCfg.MovesPerTemp,
		},
	})
	if err != nil {
		return nil, err
	}

	set := constraint.Set{Constraints: req.Constraints}
	violations := s.checker.Check(result.Timetable, set)
	satisfaction := s.checker.Score(result.Timetable, set)

	document := buildDocument(result, string(algorithm), violations, satisfaction)
	document.Recommendations = recommendations(result, violations)

	raw, err := json.Marshal(document)
	if err != nil {
		return nil, appErrors.Wrap(appErrors.ErrInternal, err)
	}

	record := &models.TimetableResult{
		ID:            uuid.NewString(),
		InstitutionID: req.InstitutionID,
		Algorithm:     string(algorithm),
		FitnessScore:  result.FitnessScore,
		Generations:   result.Generations,
		Document:      types.JSONText(raw),
		CreatedAt:     time.Now().UTC(),
	}
	s.schedulePersist(ctx, record)

	resp := &dto.GenerateTimetableResponse{
		ResultID:      record.ID,
		InstitutionID: req.InstitutionID,
		Document:      document,
		CreatedAt:     record.CreatedAt,
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKeyLatest(req.InstitutionID), resp, s.cacheTTL); err != nil {
			s.logger.Warn("cache latest result failed", zap.String("institution_id", req.InstitutionID), zap.Error(err))
		}
	}

	if s.metrics != nil {
		hits, misses := result.CacheHits, result.CacheMisses
		s.metrics.ObserveOptimizationRun(string(algorithm), result.FitnessScore, result.Elapsed, hits, misses)
	}

	s.logger.Info("timetable generated",
		zap.String("institution_id", req.InstitutionID),
		zap.String("algorithm", string(algorithm)),
		zap.Float64("fitness", result.FitnessScore),
		zap.Int("generations", result.Generations),
		zap.Int("violations", len(violations)),
	)
	return resp, nil
}

// schedulePersist hands the record to the worker queue, falling back to a
// synchronous write when no queue is configured.
func (s *TimetableService) schedulePersist(ctx context.Context, record *models.TimetableResult) {
	if s.queue != nil {
		err := s.queue.Enqueue(jobs.Job{
			ID:      record.ID,
			Type:    persistJobType,
			Payload: record,
		})
		if err == nil {
			return
		}
		s.logger.Warn("enqueue persist job failed, writing inline", zap.Error(err))
	}
	if err := s.persist(ctx, record); err != nil {
		s.logger.Error("persist timetable result failed", zap.String("result_id", record.ID), zap.Error(err))
	}
}

// HandlePersistJob is the queue handler for background persistence.
func (s *TimetableService) HandlePersistJob(ctx context.Context, job jobs.Job) error {
	record, ok := job.Payload.(*models.TimetableResult)
	if !ok {
		return fmt.Errorf("unexpected payload type for job %s", job.ID)
	}
	return s.persist(ctx, record)
}

func (s *TimetableService) persist(ctx context.Context, record *models.TimetableResult) error {
	if s.results == nil {
		return nil
	}
	if err := s.results.CreateVersioned(ctx, nil, record); err != nil {
		return err
	}
	if s.institutions != nil {
		if err := s.institutions.IncrementGenerationCount(ctx, nil, record.InstitutionID); err != nil {
			// The stored result is the source of truth; a missed counter
			// bump is log-worthy, not fatal.
			s.logger.Warn("increment generation count failed",
				zap.String("institution_id", record.InstitutionID), zap.Error(err))
		}
	}
	return nil
}

// Latest returns the newest result for the institution, cache first.
func (s *TimetableService) Latest(ctx context.Context, institutionID string) (*dto.GenerateTimetableResponse, error) {
	if institutionID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "institution id is required")
	}

	if s.cache != nil {
		var cached dto.GenerateTimetableResponse
		if err := s.cache.Get(ctx, cacheKeyLatest(institutionID), &cached); err == nil {
			if s.metrics != nil {
				s.metrics.RecordCacheLookup(true)
			}
			return &cached, nil
		}
		if s.metrics != nil {
			s.metrics.RecordCacheLookup(false)
		}
	}

	record, err := s.results.LatestByInstitution(ctx, institutionID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no timetable stored for institution")
	}

	var document dto.TimetableDocument
	if err := json.Unmarshal(record.Document, &document); err != nil {
		return nil, appErrors.Wrap(appErrors.ErrInternal, err)
	}
	resp := &dto.GenerateTimetableResponse{
		ResultID:      record.ID,
		InstitutionID: record.InstitutionID,
		Document:      document,
		CreatedAt:     record.CreatedAt,
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKeyLatest(institutionID), resp, s.cacheTTL); err != nil {
			s.logger.Warn("refresh latest cache failed", zap.String("institution_id", institutionID), zap.Error(err))
		}
	}
	return resp, nil
}

// History lists stored result versions, newest first.
func (s *TimetableService) History(ctx context.Context, institutionID string, limit int) ([]models.TimetableResultMeta, error) {
	if institutionID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "institution id is required")
	}
	metas, err := s.results.ListByInstitution(ctx, institutionID, limit)
	if err != nil {
		return nil, appErrors.Wrap(appErrors.ErrInternal, err)
	}
	return metas, nil
}

// Validate performs a pre-flight feasibility check without running a search.
func (s *TimetableService) Validate(ctx context.Context, req dto.ValidateTimetableRequest) (*dto.ValidateTimetableResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(appErrors.ErrValidation, err)
	}

	resp := &dto.ValidateTimetableResponse{Valid: true}

	grid, courses, _, err := buildProblem(req.Config, req.Courses)
	if err != nil {
		appErr := appErrors.FromError(err)
		resp.Valid = false
		resp.Issues = append(resp.Issues, dto.ValidationIssue{Severity: "error", Message: appErr.Message})
		return resp, nil
	}

	seen := make(map[string]bool, len(courses))
	for _, c := range courses {
		if seen[c.Code] {
			resp.Valid = false
			resp.Issues = append(resp.Issues, dto.ValidationIssue{
				Severity: "error",
				Message:  fmt.Sprintf("duplicate course code %s", c.Code),
			})
		}
		seen[c.Code] = true
		resp.TotalSessions += c.SessionsPerWeek
		if c.Kind == optimizer.KindLab && c.LabSpan > grid.SlotsPerDay() {
			resp.Valid = false
			resp.Issues = append(resp.Issues, dto.ValidationIssue{
				Severity: "error",
				Message:  fmt.Sprintf("lab %s needs %d consecutive slots but a day only has %d", c.Code, c.LabSpan, grid.SlotsPerDay()),
			})
		}
	}

	resp.TotalCapacity = grid.Cells()
	if resp.TotalSessions > resp.TotalCapacity {
		resp.Valid = false
		resp.Issues = append(resp.Issues, dto.ValidationIssue{
			Severity: "error",
			Message:  fmt.Sprintf("demand of %d sessions exceeds grid capacity of %d cells", resp.TotalSessions, resp.TotalCapacity),
		})
	} else if resp.TotalSessions*10 > resp.TotalCapacity*8 {
		resp.Issues = append(resp.Issues, dto.ValidationIssue{
			Severity: "warning",
			Message:  "grid utilization above 80%, scheduling flexibility will be limited",
		})
	}

	return resp, nil
}

func (s *TimetableService) searchParams() optimizer.Params {
	return optimizer.Params{
		MutationRate:    s.optCfg.MutationRate,
		CrossoverRate:   s.optCfg.CrossoverRate,
		EliteFraction:   s.optCfg.EliteFraction,
		TournamentSize:  s.optCfg.TournamentSize,
		TargetScore:     s.optCfg.TargetScore,
		StagnationLimit: s.optCfg.StagnationLimit,
		Workers:         s.optCfg.EvalWorkers,
		PlacementTries:  s.optCfg.PlacementTries,
	}
}

// buildProblem converts request DTOs into optimizer inputs.
func buildProblem(cfg dto.ScheduleConfigRequest, courses []dto.CourseRequest) (*optimizer.SlotGrid, []optimizer.CourseSpec, optimizer.Resources, error) {
	start, err := optimizer.ParseClock(cfg.StartTime)
	if err != nil {
		return nil, nil, optimizer.Resources{}, appErrors.Clone(appErrors.ErrConfiguration, "invalid start time: "+cfg.StartTime)
	}
	end, err := optimizer.ParseClock(cfg.EndTime)
	if err != nil {
		return nil, nil, optimizer.Resources{}, appErrors.Clone(appErrors.ErrConfiguration, "invalid end time: "+cfg.EndTime)
	}

	var lunchStart, lunchEnd int
	if cfg.LunchStart != "" || cfg.LunchEnd != "" {
		lunchStart, err = optimizer.ParseClock(cfg.LunchStart)
		if err != nil {
			return nil, nil, optimizer.Resources{}, appErrors.Clone(appErrors.ErrConfiguration, "invalid lunch start: "+cfg.LunchStart)
		}
		lunchEnd, err = optimizer.ParseClock(cfg.LunchEnd)
		if err != nil {
			return nil, nil, optimizer.Resources{}, appErrors.Clone(appErrors.ErrConfiguration, "invalid lunch end: "+cfg.LunchEnd)
		}
	}

	grid, err := optimizer.BuildSlotGrid(optimizer.GridConfig{
		WorkingDays:     cfg.WorkingDays,
		StartTime:       start,
		EndTime:         end,
		SessionDuration: cfg.SessionDuration,
		LunchStart:      lunchStart,
		LunchEnd:        lunchEnd,
	})
	if err != nil {
		return nil, nil, optimizer.Resources{}, err
	}

	specs := make([]optimizer.CourseSpec, 0, len(courses))
	for _, c := range courses {
		kind := optimizer.KindLecture
		if strings.EqualFold(c.Kind, string(optimizer.KindLab)) {
			kind = optimizer.KindLab
		}
		span := c.LabSpan
		if kind == optimizer.KindLab && span < 1 {
			span = 1
		}
		specs = append(specs, optimizer.CourseSpec{
			Code:            c.Code,
			Name:            c.Name,
			Teacher:         c.Teacher,
			SessionsPerWeek: c.LecturesPerWeek,
			Kind:            kind,
			Duration:        cfg.SessionDuration,
			LabSpan:         span,
		})
	}

	return grid, specs, optimizer.Resources{Classrooms: cfg.Classrooms, Labs: cfg.Labs}, nil
}

// buildDocument renders the optimizer result into the serializable document.
func buildDocument(result *optimizer.Result, algorithm string, violations []string, satisfaction float64) dto.TimetableDocument {
	grid := result.Timetable.Grid()

	slotTimes := make([]string, grid.SlotsPerDay())
	for i := range slotTimes {
		slotTimes[i] = grid.ClockOf(i)
	}

	schedule := make(map[string]map[string]*dto.ScheduleEntry, len(grid.Days()))
	for _, day := range grid.Days() {
		schedule[day] = make(map[string]*dto.ScheduleEntry, len(slotTimes))
	}
	for _, p := range result.Timetable.Placements() {
		schedule[p.Day][p.Start] = &dto.ScheduleEntry{
			CourseCode:  p.Session.CourseCode,
			CourseName:  p.Session.CourseName,
			Teacher:     p.Session.Teacher,
			Room:        p.Session.Room,
			Kind:        string(p.Session.Kind),
			Part:        p.Session.Part,
			TotalParts:  p.Session.TotalParts,
			Consecutive: p.Session.Consecutive,
		}
	}

	completion := make(map[string]dto.CourseCompletionResponse, len(result.Summary.Completion))
	for code, c := range result.Summary.Completion {
		completion[code] = dto.CourseCompletionResponse{
			CourseName:     c.CourseName,
			Scheduled:      c.Scheduled,
			Required:       c.Required,
			CompletionRate: c.CompletionRate,
		}
	}

	return dto.TimetableDocument{
		Schedule:  schedule,
		Days:      grid.Days(),
		SlotTimes: slotTimes,
		Algorithm: algorithm,
		Summary: dto.SummaryResponse{
			TotalSessions:   result.Summary.TotalSessions,
			Completion:      completion,
			TeacherWorkload: result.Summary.TeacherWorkload,
			RoomUtilization: result.Summary.RoomUtilization,
		},
		FitnessScore:    result.FitnessScore,
		Generations:     result.Generations,
		History:         result.History,
		Violations:      violations,
		ConstraintScore: satisfaction,
		ElapsedMS:       result.Elapsed.Milliseconds(),
	}
}

// recommendations derives user-facing advice from the run outcome.
func recommendations(result *optimizer.Result, violations []string) []string {
	var recs []string

	if result.FitnessScore < 300 {
		recs = append(recs, "Consider reducing the number of required classes or extending working hours")
	} else if result.FitnessScore < 600 {
		recs = append(recs, "Try adjusting some constraints to allow more scheduling flexibility")
	}

	if len(result.Summary.Completion) > 0 {
		total := 0.0
		for _, c := range result.Summary.Completion {
			total += c.CompletionRate
		}
		if total/float64(len(result.Summary.Completion)) < 80 {
			recs = append(recs, "Increase available time slots or reduce course requirements")
		}
	}

	maxLoad := 0
	for _, load := range result.Summary.TeacherWorkload {
		if load > maxLoad {
			maxLoad = load
		}
	}
	if maxLoad > 25 {
		recs = append(recs, "Consider balancing teacher workload more evenly")
	}

	if len(violations) > 0 {
		recs = append(recs, "Review and possibly relax some custom constraints to improve scheduling")
	}

	if len(result.Summary.RoomUtilization) > 0 {
		total := 0
		for _, n := range result.Summary.RoomUtilization {
			total += n
		}
		if total/len(result.Summary.RoomUtilization) > 20 {
			recs = append(recs, "Consider adding more classrooms or labs to reduce congestion")
		}
	}

	return recs
}
