package controllers

import (
	"net/http"

	"tool_lending_admin/app"
	"tool_lending_admin/db"
	"tool_lending_admin/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type ToolController struct{ *Srv }

func NewToolController(s *Srv) *ToolController { return &ToolController{Srv: s} }

// GET /api/tools?q=&type=&available=true&lowStock=true&page=&size=
func (tc *ToolController) ListTools(c *gin.Context) {
	avail, err := boolQuery(c, "available")
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	low, err := boolQuery(c, "lowStock")
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	res, err := tc.Repo.ListTools(c.Request.Context(), db.ToolQuery{
		Q:         c.Query("q"),
		Type:      c.Query("type"),
		Available: avail,
		LowStock:  low != nil && *low,
		Threshold: tc.Cfg.LowStockThreshold,
		Page:      pageOf(c),
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (tc *ToolController) GetTool(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	t, err := tc.Repo.FindToolByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"tool": t})
}

// POST /api/tools
func (tc *ToolController) CreateTool(c *gin.Context) {
	var in struct {
		Name         string               `json:"name" binding:"required"`
		Type         models.ToolType      `json:"type" binding:"required"`
		Condition    models.ToolCondition `json:"condition" binding:"required"`
		Quantity     int                  `json:"quantity"`
		Price        decimal.Decimal      `json:"price"`
		PurchaseDate string               `json:"purchaseDate" binding:"required"`
		Picture      string               `json:"picture"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	pd, err := parseDate(in.PurchaseDate)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	t, err := tc.Repo.CreateTool(c.Request.Context(), db.ToolInput{
		Name:         in.Name,
		Type:         in.Type,
		Condition:    in.Condition,
		Quantity:     in.Quantity,
		Price:        in.Price,
		PurchaseDate: pd,
		Picture:      in.Picture,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, app.H{"tool": t})
}

// PUT /api/tools/:id
func (tc *ToolController) UpdateTool(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in struct {
		Name         *string               `json:"name"`
		Type         *models.ToolType      `json:"type"`
		Condition    *models.ToolCondition `json:"condition"`
		Quantity     *int                  `json:"quantity"`
		Price        *decimal.Decimal      `json:"price"`
		PurchaseDate *string               `json:"purchaseDate"`
		Availability *bool                 `json:"availability"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	pd, err := parseDatePtr(in.PurchaseDate)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	t, err := tc.Repo.UpdateTool(c.Request.Context(), id, db.ToolPatch{
		Name:         in.Name,
		Type:         in.Type,
		Condition:    in.Condition,
		Quantity:     in.Quantity,
		Price:        in.Price,
		PurchaseDate: pd,
		Availability: in.Availability,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"tool": t})
}

// DELETE /api/tools/:id  连同借用和维修记录一起删除
func (tc *ToolController) DeleteTool(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := tc.Repo.DeleteTool(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}

// POST /api/tools/:id/picture  multipart file
func (tc *ToolController) UploadPicture(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if _, err := tc.Repo.FindToolByID(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	url, ok := tc.storeImage(c, "tools", id)
	if !ok {
		return
	}
	if err := tc.Repo.SetToolPicture(c.Request.Context(), id, url); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"picture": url})
}

// GET /api/tools/:id/loans
func (tc *ToolController) ToolLoans(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	loans, err := tc.Repo.ToolLoans(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"loans": loans})
}
