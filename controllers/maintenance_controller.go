package controllers

import (
	"net/http"

	"tool_lending_admin/app"
	"tool_lending_admin/db"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type MaintenanceController struct{ *Srv }

func NewMaintenanceController(s *Srv) *MaintenanceController {
	return &MaintenanceController{Srv: s}
}

// GET /api/maintenance?q=&toolId=&open=true&page=&size=
func (mc *MaintenanceController) List(c *gin.Context) {
	open, err := boolQuery(c, "open")
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	toolID, ok := uuidQuery(c, "toolId")
	if !ok {
		return
	}
	res, err := mc.Repo.ListMaintenance(c.Request.Context(), db.MaintenanceQuery{
		Q:      c.Query("q"),
		ToolID: toolID,
		Open:   open,
		Page:   pageOf(c),
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (mc *MaintenanceController) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	m, err := mc.Repo.FindMaintenanceByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"maintenance": m})
}

// POST /api/maintenance  工具随即变为不可借
func (mc *MaintenanceController) Create(c *gin.Context) {
	var in struct {
		ToolID      string          `json:"toolId" binding:"required"`
		Description string          `json:"description"`
		Date        *string         `json:"date"`
		Cost        decimal.Decimal `json:"cost"`
		Quantity    int             `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := uuidField("toolId", &in.ToolID); err != nil {
		badRequest(c, err.Error())
		return
	}
	d, err := parseDatePtr(in.Date)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	mi := db.MaintenanceInput{
		ToolID:      in.ToolID,
		Description: in.Description,
		Cost:        in.Cost,
		Quantity:    in.Quantity,
	}
	if d != nil {
		mi.Date = *d
	}
	m, err := mc.Repo.CreateMaintenance(c.Request.Context(), mi)
	if err != nil {
		fail(c, err)
		return
	}
	mc.Metrics.MaintenanceOpened()
	c.JSON(http.StatusCreated, app.H{"maintenance": m})
}

// PUT /api/maintenance/:id
func (mc *MaintenanceController) Update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in struct {
		Description *string          `json:"description"`
		Date        *string          `json:"date"`
		Cost        *decimal.Decimal `json:"cost"`
		Quantity    *int             `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	d, err := parseDatePtr(in.Date)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	m, err := mc.Repo.UpdateMaintenance(c.Request.Context(), id, db.MaintenancePatch{
		Description: in.Description,
		Date:        d,
		Cost:        in.Cost,
		Quantity:    in.Quantity,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"maintenance": m})
}

// POST /api/maintenance/:id/fix
func (mc *MaintenanceController) MarkFixed(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	m, err := mc.Repo.MarkFixed(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	mc.Metrics.MaintenanceFixed()
	c.JSON(http.StatusOK, app.H{"maintenance": m})
}

func (mc *MaintenanceController) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := mc.Repo.DeleteMaintenance(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}
