package controllers

import (
	"net/http"
	"testing"

	"tool_lending_admin/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectDetailsAndCascade(t *testing.T) {
	e := newTestEnv(t)
	r := e.router(e.asAdmin())
	toolID := e.seedTool(t, r, 10)

	w := doJSON(t, r, http.MethodPost, "/api/projects", map[string]any{
		"name": "Centrale Ouarzazate", "clientName": "Noor", "startDate": "2024-02-01", "endDate": "2024-06-30",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var p struct {
		Project models.Project `json:"project"`
	}
	decode(t, w, &p)
	assert.Equal(t, models.ProjectPlanned, p.Project.Status)

	w = doJSON(t, r, http.MethodPost, "/api/loans", map[string]any{"toolId": toolID, "quantity": 4, "projectId": p.Project.ID})
	require.Equal(t, http.StatusCreated, w.Code)
	var l loanResp
	decode(t, w, &l)
	w = doJSON(t, r, http.MethodPut, "/api/loans/"+l.Loan.ID, map[string]any{"installedQuantity": 3, "lostQuantity": 1})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/projects/"+p.Project.ID+"/details", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var d struct {
		Loans   []models.Loan          `json:"loans"`
		Summary models.QuantitySummary `json:"summary"`
	}
	decode(t, w, &d)
	require.Len(t, d.Loans, 1)
	assert.Equal(t, models.QuantitySummary{Loaned: 4, Installed: 3, Lost: 1}, d.Summary)

	w = doJSON(t, r, http.MethodGet, "/api/projects?q=noor", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Total int64 `json:"total"`
	}
	decode(t, w, &list)
	assert.EqualValues(t, 1, list.Total)

	w = doJSON(t, r, http.MethodDelete, "/api/projects/"+p.Project.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, r, http.MethodGet, "/api/loans/"+l.Loan.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateProjectRejectsBadDates(t *testing.T) {
	e := newTestEnv(t)
	r := e.router(e.asAdmin())

	w := doJSON(t, r, http.MethodPost, "/api/projects", map[string]any{"name": "X", "startDate": "2024-06-01", "endDate": "2024-01-01"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_input", errCode(t, w))

	w = doJSON(t, r, http.MethodPost, "/api/projects", map[string]any{"clientName": "no name"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatsEndpoint(t *testing.T) {
	e := newTestEnv(t)
	r := e.router(e.asAdmin())
	toolID := e.seedTool(t, r, 10)
	e.seedTool(t, r, 2)

	require.Equal(t, http.StatusCreated, doJSON(t, r, http.MethodPost, "/api/loans", map[string]any{"toolId": toolID, "quantity": 4}).Code)
	require.Equal(t, http.StatusCreated, doJSON(t, r, http.MethodPost, "/api/maintenance", map[string]any{"toolId": toolID, "cost": "30"}).Code)

	w := doJSON(t, r, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var st struct {
		TotalUsers       int64  `json:"totalUsers"`
		TotalTools       int    `json:"totalTools"`
		TotalLoans       int    `json:"totalLoans"`
		TotalMaintenance int    `json:"totalMaintenance"`
		ActiveLoans      int    `json:"activeLoans"`
		LowStockTools    int    `json:"lowStockTools"`
		TotalLoaned      int    `json:"totalLoaned"`
		MaintenanceCost  string `json:"maintenanceCost"`
	}
	decode(t, w, &st)
	assert.EqualValues(t, 1, st.TotalUsers)
	assert.Equal(t, 2, st.TotalTools)
	assert.Equal(t, 1, st.TotalLoans)
	assert.Equal(t, 1, st.TotalMaintenance)
	assert.Equal(t, 1, st.ActiveLoans)
	assert.Equal(t, 1, st.LowStockTools)
	assert.Equal(t, 4, st.TotalLoaned)
	assert.Equal(t, "30", st.MaintenanceCost)
}
