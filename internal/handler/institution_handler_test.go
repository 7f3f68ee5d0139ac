package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronoslab/timetabler/internal/dto"
	"github.com/chronoslab/timetabler/internal/models"
	appErrors "github.com/chronoslab/timetabler/pkg/errors"
)

type institutionServiceMock struct {
	createResp *models.Institution
	getResp    *models.Institution
	getErr     error
	listResp   []models.Institution
	pagination *models.Pagination
	updateErr  error
	deleted    []string
	deleteErr  error
}

func (m *institutionServiceMock) Create(context.Context, dto.CreateInstitutionRequest) (*models.Institution, error) {
	return m.createResp, nil
}

func (m *institutionServiceMock) Get(context.Context, string) (*models.Institution, error) {
	return m.getResp, m.getErr
}

func (m *institutionServiceMock) List(context.Context, int, int) ([]models.Institution, *models.Pagination, error) {
	return m.listResp, m.pagination, nil
}

func (m *institutionServiceMock) Update(_ context.Context, id string, req dto.UpdateInstitutionRequest) (*models.Institution, error) {
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	return &models.Institution{ID: id, Name: req.Name}, nil
}

func (m *institutionServiceMock) Delete(_ context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return m.deleteErr
}

func TestInstitutionHandlerCreate(t *testing.T) {
	mock := &institutionServiceMock{createResp: &models.Institution{ID: "inst-new", Name: "Springfield High"}}
	h := &InstitutionHandler{service: mock}

	c, w := newTestContext(t, http.MethodPost, "/institutions", dto.CreateInstitutionRequest{Name: "Springfield High"})
	h.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "inst-new")
}

func TestInstitutionHandlerGetNotFound(t *testing.T) {
	mock := &institutionServiceMock{getErr: appErrors.Clone(appErrors.ErrNotFound, "institution not found")}
	h := &InstitutionHandler{service: mock}

	c, w := newTestContext(t, http.MethodGet, "/institutions/inst-gone", nil)
	c.Params = gin.Params{{Key: "id", Value: "inst-gone"}}
	h.Get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInstitutionHandlerUpdate(t *testing.T) {
	h := &InstitutionHandler{service: &institutionServiceMock{}}

	c, w := newTestContext(t, http.MethodPut, "/institutions/inst-1", dto.UpdateInstitutionRequest{Name: "New Name"})
	c.Params = gin.Params{{Key: "id", Value: "inst-1"}}
	h.Update(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "New Name")
}

func TestInstitutionHandlerDelete(t *testing.T) {
	mock := &institutionServiceMock{}
	h := &InstitutionHandler{service: mock}

	c, w := newTestContext(t, http.MethodDelete, "/institutions/inst-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "inst-1"}}
	h.Delete(c)
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"inst-1"}, mock.deleted)
}

func TestInstitutionHandlerList(t *testing.T) {
	mock := &institutionServiceMock{
		listResp:   []models.Institution{{ID: "inst-1"}, {ID: "inst-2"}},
		pagination: &models.Pagination{Page: 1, PageSize: 20, TotalCount: 2},
	}
	h := &InstitutionHandler{service: mock}

	c, w := newTestContext(t, http.MethodGet, "/institutions?page=1&limit=20", nil)
	h.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "inst-2")
	assert.Contains(t, w.Body.String(), `"total_count":2`)
}
