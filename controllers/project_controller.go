package controllers

import (
	"net/http"
	"time"

	"tool_lending_admin/app"
	"tool_lending_admin/db"
	"tool_lending_admin/models"

	"github.com/gin-gonic/gin"
)

type ProjectController struct{ *Srv }

func NewProjectController(s *Srv) *ProjectController { return &ProjectController{Srv: s} }

type projectBody struct {
	Name       *string               `json:"name"`
	ClientName *string               `json:"clientName"`
	Address    *string               `json:"address"`
	StartDate  *string               `json:"startDate"`
	EndDate    *string               `json:"endDate"`
	Status     *models.ProjectStatus `json:"status"`
}

func (b projectBody) dates() (start, end *time.Time, err error) {
	if start, err = parseDatePtr(b.StartDate); err != nil {
		return nil, nil, err
	}
	end, err = parseDatePtr(b.EndDate)
	return start, end, err
}

// GET /api/projects?q=&status=&page=&size=
func (pc *ProjectController) List(c *gin.Context) {
	res, err := pc.Repo.ListProjects(c.Request.Context(), db.ProjectQuery{
		Q:      c.Query("q"),
		Status: models.ProjectStatus(c.Query("status")),
		Page:   pageOf(c),
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (pc *ProjectController) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	p, err := pc.Repo.FindProjectByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"project": p})
}

// GET /api/projects/:id/details  项目 + 借用 + 数量汇总
func (pc *ProjectController) Details(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	d, err := pc.Repo.ProjectDetails(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (pc *ProjectController) Create(c *gin.Context) {
	var in projectBody
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	if in.Name == nil {
		badRequest(c, "name is required")
		return
	}
	start, end, err := in.dates()
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	pi := db.ProjectInput{Name: *in.Name, StartDate: start, EndDate: end}
	if in.ClientName != nil {
		pi.ClientName = *in.ClientName
	}
	if in.Address != nil {
		pi.Address = *in.Address
	}
	if in.Status != nil {
		pi.Status = *in.Status
	}
	p, err := pc.Repo.CreateProject(c.Request.Context(), pi)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, app.H{"project": p})
}

func (pc *ProjectController) Update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in projectBody
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	start, end, err := in.dates()
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	p, err := pc.Repo.UpdateProject(c.Request.Context(), id, db.ProjectPatch{
		Name:       in.Name,
		ClientName: in.ClientName,
		Address:    in.Address,
		StartDate:  start,
		EndDate:    end,
		Status:     in.Status,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"project": p})
}

// DELETE /api/projects/:id  项目下的借用一并删除并回补库存
func (pc *ProjectController) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := pc.Repo.DeleteProject(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}
