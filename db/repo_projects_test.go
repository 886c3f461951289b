package db

import (
	"context"
	"testing"

	"tool_lending_admin/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectCRUD(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	start, end := day(2024, 3, 1), day(2024, 2, 1)
	_, err := r.CreateProject(ctx, ProjectInput{Name: "Villa", StartDate: &start, EndDate: &end})
	assert.ErrorIs(t, err, ErrInvalidInput)

	p, err := r.CreateProject(ctx, ProjectInput{Name: "Centrale PV Ouarzazate", ClientName: "ONEE", Address: "Route N9"})
	require.NoError(t, err)
	assert.Equal(t, models.ProjectPlanned, p.Status)

	active := models.ProjectActive
	p, err = r.UpdateProject(ctx, p.ID, ProjectPatch{Status: &active})
	require.NoError(t, err)
	assert.Equal(t, models.ProjectActive, p.Status)

	bogus := models.ProjectStatus("pause")
	_, err = r.UpdateProject(ctx, p.ID, ProjectPatch{Status: &bogus})
	assert.ErrorIs(t, err, ErrInvalidInput)

	res, err := r.ListProjects(ctx, ProjectQuery{Q: "onee"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Total)
}

func TestDeleteProjectCascadesLoans(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	u := seedUser(t, r, "EF300")
	tool := seedTool(t, r, 10)

	p, err := r.CreateProject(ctx, ProjectInput{Name: "Pompage solaire"})
	require.NoError(t, err)

	loan, err := r.CreateLoan(ctx, LoanInput{ToolID: tool.ID, UserID: u.ID, ProjectID: &p.ID, Quantity: 4})
	require.NoError(t, err)
	installed := 1
	_, err = r.UpdateLoan(ctx, loan.ID, LoanPatch{InstalledQuantity: &installed})
	require.NoError(t, err)
	_, err = r.CreateLoan(ctx, LoanInput{ToolID: tool.ID, UserID: u.ID, Quantity: 1})
	require.NoError(t, err)

	details, err := r.ProjectDetails(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, details.Loans, 1)
	assert.Equal(t, 4, details.Summary.Loaned)
	assert.Equal(t, 1, details.Summary.Installed)

	require.NoError(t, r.DeleteProject(ctx, p.ID))
	assert.Zero(t, countRows(t, r, &models.Loan{}, "project_id = ?", p.ID))
	assert.Equal(t, int64(1), countRows(t, r, &models.Loan{}, "tool_id = ?", tool.ID))
	// 10 - 4 - 1 + 3（未结部分回库）
	assert.Equal(t, 8, toolQty(t, r, tool.ID))

	_, err = r.ProjectDetails(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
