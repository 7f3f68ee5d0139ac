package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronoslab/timetabler/internal/dto"
	"github.com/chronoslab/timetabler/internal/models"
	"github.com/chronoslab/timetabler/pkg/config"
	appErrors "github.com/chronoslab/timetabler/pkg/errors"
	"github.com/chronoslab/timetabler/pkg/jobs"
)

type stubResultStore struct {
	created []*models.TimetableResult
	latest  *models.TimetableResult
	metas   []models.TimetableResultMeta
	err     error
}

func (s *stubResultStore) CreateVersioned(_ context.Context, _ sqlx.ExtContext, result *models.TimetableResult) error {
	if s.err != nil {
		return s.err
	}
	result.Version = len(s.created) + 1
	s.created = append(s.created, result)
	return nil
}

func (s *stubResultStore) LatestByInstitution(context.Context, string) (*models.TimetableResult, error) {
	if s.latest == nil {
		return nil, errors.New("no rows")
	}
	return s.latest, nil
}

func (s *stubResultStore) ListByInstitution(context.Context, string, int) ([]models.TimetableResultMeta, error) {
	return s.metas, s.err
}

type stubInstitutionStore struct {
	incremented []string
}

func (s *stubInstitutionStore) FindByID(context.Context, string) (*models.Institution, error) {
	return &models.Institution{ID: "inst-1", Name: "Springfield High"}, nil
}

func (s *stubInstitutionStore) IncrementGenerationCount(_ context.Context, _ sqlx.ExtContext, id string) error {
	s.incremented = append(s.incremented, id)
	return nil
}

type stubCache struct {
	entries map[string][]byte
}

func newStubCache() *stubCache {
	return &stubCache{entries: make(map[string][]byte)}
}

func (s *stubCache) Get(_ context.Context, key string, dest interface{}) error {
	raw, ok := s.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (s *stubCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.entries[key] = raw
	return nil
}

func (s *stubCache) Delete(_ context.Context, key string) error {
	delete(s.entries, key)
	return nil
}

type stubQueue struct {
	jobs []jobs.Job
	err  error
}

func (s *stubQueue) Enqueue(job jobs.Job) error {
	if s.err != nil {
		return s.err
	}
	s.jobs = append(s.jobs, job)
	return nil
}

type timetableServiceFixture struct {
	service      *TimetableService
	results      *stubResultStore
	institutions *stubInstitutionStore
	cache        *stubCache
	queue        *stubQueue
}

func newTimetableServiceFixture(t *testing.T) *timetableServiceFixture {
	t.Helper()
	f := &timetableServiceFixture{
		results:      &stubResultStore{},
		institutions: &stubInstitutionStore{},
		cache:        newStubCache(),
		queue:        &stubQueue{},
	}
	cfg := config.OptimizerConfig{
		MutationRate:    0.15,
		CrossoverRate:   0.8,
		EliteFraction:   0.1,
		TournamentSize:  5,
		StagnationLimit: 30,
		PlacementTries:  50,
	}
	f.service = NewTimetableService(f.results, f.institutions, f.cache, f.queue, nil, nil, cfg, time.Minute, nil)
	return f
}

func generateRequest() dto.GenerateTimetableRequest {
	return dto.GenerateTimetableRequest{
		InstitutionID: "inst-1",
		Config: dto.ScheduleConfigRequest{
			WorkingDays:     []string{"Monday", "Tuesday", "Wednesday"},
			StartTime:       "09:00",
			EndTime:         "14:00",
			SessionDuration: 60,
			Classrooms:      3,
			Labs:            1,
		},
		Courses: []dto.CourseRequest{
			{Code: "CS101", Name: "Programming", Teacher: "Dr. Ada", LecturesPerWeek: 3, Kind: "lecture"},
			{Code: "PH301L", Name: "Physics Lab", Teacher: "Dr. Eve", LecturesPerWeek: 1, Kind: "lab", LabSpan: 2},
		},
		Algorithm: "genetic",
		Seed:      42,
	}
}

func TestTimetableServiceGenerate(t *testing.T) {
	f := newTimetableServiceFixture(t)

	resp, err := f.service.Generate(context.Background(), generateRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, resp.ResultID)
	assert.Equal(t, "inst-1", resp.InstitutionID)
	assert.Greater(t, resp.Document.FitnessScore, 0.0)
	assert.Equal(t, "genetic", resp.Document.Algorithm)
	assert.Equal(t, []string{"Monday", "Tuesday", "Wednesday"}, resp.Document.Days)
	assert.Equal(t, 100.0, resp.Document.ConstraintScore)

	entries := 0
	for _, day := range resp.Document.Schedule {
		entries += len(day)
	}
	assert.Equal(t, resp.Document.Summary.TotalSessions, entries)

	// Persistence goes through the queue; the latest document lands in cache.
	require.Len(t, f.queue.jobs, 1)
	assert.Equal(t, persistJobType, f.queue.jobs[0].Type)
	assert.Contains(t, f.cache.entries, cacheKeyLatest("inst-1"))
}

func TestTimetableServiceGenerateDeterministicWithSeed(t *testing.T) {
	f := newTimetableServiceFixture(t)

	first, err := f.service.Generate(context.Background(), generateRequest())
	require.NoError(t, err)
	second, err := f.service.Generate(context.Background(), generateRequest())
	require.NoError(t, err)

	assert.Equal(t, first.Document.FitnessScore, second.Document.FitnessScore)
	assert.Equal(t, first.Document.Schedule, second.Document.Schedule)
}

func TestTimetableServiceGenerateRejectsInvalidRequest(t *testing.T) {
	f := newTimetableServiceFixture(t)

	_, err := f.service.Generate(context.Background(), dto.GenerateTimetableRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceGenerateRejectsBadWindow(t *testing.T) {
	f := newTimetableServiceFixture(t)

	req := generateRequest()
	req.Config.StartTime = "15:00"
	req.Config.EndTime = "09:00"

	_, err := f.service.Generate(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConfiguration.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceGenerateFallsBackWhenQueueRejects(t *testing.T) {
	f := newTimetableServiceFixture(t)
	f.queue.err = errors.New("queue full")

	_, err := f.service.Generate(context.Background(), generateRequest())
	require.NoError(t, err)

	// Inline write happened instead.
	require.Len(t, f.results.created, 1)
	assert.Equal(t, []string{"inst-1"}, f.institutions.incremented)
}

func TestTimetableServiceHandlePersistJob(t *testing.T) {
	f := newTimetableServiceFixture(t)

	record := &models.TimetableResult{ID: "res-1", InstitutionID: "inst-1"}
	err := f.service.HandlePersistJob(context.Background(), jobs.Job{ID: "res-1", Type: persistJobType, Payload: record})
	require.NoError(t, err)

	require.Len(t, f.results.created, 1)
	assert.Equal(t, 1, f.results.created[0].Version)
	assert.Equal(t, []string{"inst-1"}, f.institutions.incremented)
}

func TestTimetableServiceHandlePersistJobBadPayload(t *testing.T) {
	f := newTimetableServiceFixture(t)

	err := f.service.HandlePersistJob(context.Background(), jobs.Job{ID: "x", Payload: "nope"})
	assert.Error(t, err)
}

func TestTimetableServiceLatestFromCache(t *testing.T) {
	f := newTimetableServiceFixture(t)

	cached := dto.GenerateTimetableResponse{ResultID: "res-9", InstitutionID: "inst-1"}
	require.NoError(t, f.cache.Set(context.Background(), cacheKeyLatest("inst-1"), cached, time.Minute))

	resp, err := f.service.Latest(context.Background(), "inst-1")
	require.NoError(t, err)
	assert.Equal(t, "res-9", resp.ResultID)
}

func TestTimetableServiceLatestFallsThroughToStore(t *testing.T) {
	f := newTimetableServiceFixture(t)

	doc := dto.TimetableDocument{Algorithm: "genetic", FitnessScore: 90210}
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	f.results.latest = &models.TimetableResult{
		ID:            "res-1",
		InstitutionID: "inst-1",
		Version:       1,
		Document:      raw,
	}

	resp, err := f.service.Latest(context.Background(), "inst-1")
	require.NoError(t, err)
	assert.Equal(t, "res-1", resp.ResultID)
	assert.Equal(t, 90210.0, resp.Document.FitnessScore)
	// The store read refreshed the cache.
	assert.Contains(t, f.cache.entries, cacheKeyLatest("inst-1"))
}

func TestTimetableServiceLatestNotFound(t *testing.T) {
	f := newTimetableServiceFixture(t)

	_, err := f.service.Latest(context.Background(), "inst-unknown")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceHistory(t *testing.T) {
	f := newTimetableServiceFixture(t)
	f.results.metas = []models.TimetableResultMeta{{ID: "res-2", Version: 2}, {ID: "res-1", Version: 1}}

	metas, err := f.service.History(context.Background(), "inst-1", 10)
	require.NoError(t, err)
	assert.Len(t, metas, 2)

	_, err = f.service.History(context.Background(), "", 10)
	assert.Error(t, err)
}

func TestTimetableServiceValidate(t *testing.T) {
	f := newTimetableServiceFixture(t)

	resp, err := f.service.Validate(context.Background(), dto.ValidateTimetableRequest{
		Config: dto.ScheduleConfigRequest{
			WorkingDays:     []string{"Monday"},
			StartTime:       "09:00",
			EndTime:         "12:00",
			SessionDuration: 60,
		},
		Courses: []dto.CourseRequest{
			{Code: "CS101", Name: "Programming", Teacher: "Dr. Ada", LecturesPerWeek: 2, Kind: "lecture"},
		},
	})
	require.NoError(t, err)
	assert.True(t, resp.Valid)
	assert.Equal(t, 2, resp.TotalSessions)
	assert.Equal(t, 3, resp.TotalCapacity)
}

func TestTimetableServiceValidateFindsProblems(t *testing.T) {
	f := newTimetableServiceFixture(t)

	resp, err := f.service.Validate(context.Background(), dto.ValidateTimetableRequest{
		Config: dto.ScheduleConfigRequest{
			WorkingDays:     []string{"Monday"},
			StartTime:       "09:00",
			EndTime:         "12:00",
			SessionDuration: 60,
		},
		Courses: []dto.CourseRequest{
			{Code: "CS101", Name: "Programming", Teacher: "Dr. Ada", LecturesPerWeek: 3, Kind: "lecture"},
			{Code: "CS101", Name: "Programming", Teacher: "Dr. Ada", LecturesPerWeek: 1, Kind: "lecture"},
			{Code: "PH301L", Name: "Physics Lab", Teacher: "Dr. Eve", LecturesPerWeek: 1, Kind: "lab", LabSpan: 5},
		},
	})
	require.NoError(t, err)
	assert.False(t, resp.Valid)

	var messages []string
	for _, issue := range resp.Issues {
		messages = append(messages, issue.Message)
	}
	joined := ""
	for _, m := range messages {
		joined += m + "\n"
	}
	assert.Contains(t, joined, "duplicate course code CS101")
	assert.Contains(t, joined, "consecutive slots")
	assert.Contains(t, joined, "exceeds grid capacity")
}

func TestTimetableServiceValidateReportsBadConfigAsIssue(t *testing.T) {
	f := newTimetableServiceFixture(t)

	resp, err := f.service.Validate(context.Background(), dto.ValidateTimetableRequest{
		Config: dto.ScheduleConfigRequest{
			WorkingDays:     []string{"Monday"},
			StartTime:       "15:00",
			EndTime:         "09:00",
			SessionDuration: 60,
		},
		Courses: []dto.CourseRequest{
			{Code: "CS101", Name: "Programming", Teacher: "Dr. Ada", LecturesPerWeek: 1, Kind: "lecture"},
		},
	})
	require.NoError(t, err)
	assert.False(t, resp.Valid)
	require.NotEmpty(t, resp.Issues)
	assert.Equal(t, "error", resp.Issues[0].Severity)
}
