package controllers

import (
	"errors"
	"net/http"

	"tool_lending_admin/app"
	"tool_lending_admin/db"
	"tool_lending_admin/metrics"
	"tool_lending_admin/models"

	"github.com/gin-gonic/gin"
)

type LoanController struct{ *Srv }

func NewLoanController(s *Srv) *LoanController { return &LoanController{Srv: s} }

// GET /api/loans?q=&toolId=&userId=&projectId=&status=&overdue=true&page=&size=
func (lc *LoanController) ListLoans(c *gin.Context) {
	q := db.LoanQuery{Q: c.Query("q"), Page: pageOf(c)}
	var ok bool
	if q.ToolID, ok = uuidQuery(c, "toolId"); !ok {
		return
	}
	if q.UserID, ok = uuidQuery(c, "userId"); !ok {
		return
	}
	if q.ProjectID, ok = uuidQuery(c, "projectId"); !ok {
		return
	}
	if s := c.Query("status"); s != "" {
		st, ok := models.ParseLoanStatus(s)
		if !ok {
			badRequest(c, "unknown status")
			return
		}
		q.Status = st
	}
	overdue, err := boolQuery(c, "overdue")
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	q.Overdue = overdue != nil && *overdue

	res, err := lc.Repo.ListLoans(c.Request.Context(), q)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (lc *LoanController) GetLoan(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	l, err := lc.Repo.FindLoanByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"loan": l})
}

// POST /api/loans
// 普通用户只能给自己借；管理员可以指定 userId
func (lc *LoanController) CreateLoan(c *gin.Context) {
	p, ok := app.CurrentPrincipal(c)
	if !ok {
		unauthorized(c)
		return
	}
	var in struct {
		ToolID     string  `json:"toolId" binding:"required"`
		UserID     string  `json:"userId"`
		ProjectID  *string `json:"projectId"`
		Quantity   int     `json:"quantity"`
		StartDate  *string `json:"startDate"`
		ReturnDate *string `json:"returnDate"`
		Location   string  `json:"location"`
		Note       string  `json:"note"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		lc.Metrics.LoanRejected(metrics.ReasonInvalid)
		badRequest(c, err.Error())
		return
	}
	if in.UserID == "" {
		in.UserID = p.UserID
	}
	for _, f := range []struct {
		name string
		v    *string
	}{{"toolId", &in.ToolID}, {"userId", &in.UserID}, {"projectId", in.ProjectID}} {
		if err := uuidField(f.name, f.v); err != nil {
			lc.Metrics.LoanRejected(metrics.ReasonInvalid)
			badRequest(c, err.Error())
			return
		}
	}
	if in.UserID != p.UserID && !p.IsAdmin {
		forbidden(c)
		return
	}
	start, err := parseDatePtr(in.StartDate)
	if err != nil {
		lc.Metrics.LoanRejected(metrics.ReasonInvalid)
		badRequest(c, err.Error())
		return
	}
	ret, err := parseDatePtr(in.ReturnDate)
	if err != nil {
		lc.Metrics.LoanRejected(metrics.ReasonInvalid)
		badRequest(c, err.Error())
		return
	}
	li := db.LoanInput{
		ToolID:     in.ToolID,
		UserID:     in.UserID,
		ProjectID:  in.ProjectID,
		Quantity:   in.Quantity,
		ReturnDate: ret,
		Location:   in.Location,
		Note:       in.Note,
	}
	if start != nil {
		li.StartDate = *start
	}

	l, err := lc.Repo.CreateLoan(c.Request.Context(), li)
	if err != nil {
		switch {
		case errors.Is(err, db.ErrUnavailable):
			lc.Metrics.LoanRejected(metrics.ReasonUnavailable)
		case errors.Is(err, db.ErrInsufficientStock):
			lc.Metrics.LoanRejected(metrics.ReasonInsufficient)
		case errors.Is(err, db.ErrInvalidQuantity), errors.Is(err, db.ErrInvalidInput):
			lc.Metrics.LoanRejected(metrics.ReasonInvalid)
		}
		fail(c, err)
		return
	}
	lc.Metrics.LoanCreated()
	c.JSON(http.StatusCreated, app.H{"loan": l})
}

// PUT /api/loans/:id
func (lc *LoanController) UpdateLoan(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in struct {
		Status            *string `json:"status"`
		StartDate         *string `json:"startDate"`
		ReturnDate        *string `json:"returnDate"`
		ProjectID         *string `json:"projectId"`
		Location          *string `json:"location"`
		Note              *string `json:"note"`
		Quantity          *int    `json:"quantity"`
		ReturnedQuantity  *int    `json:"returnedQuantity"`
		InstalledQuantity *int    `json:"installedQuantity"`
		DamagedQuantity   *int    `json:"damagedQuantity"`
		LostQuantity      *int    `json:"lostQuantity"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := uuidField("projectId", in.ProjectID); err != nil {
		badRequest(c, err.Error())
		return
	}
	patch := db.LoanPatch{
		ProjectID:         in.ProjectID,
		Location:          in.Location,
		Note:              in.Note,
		Quantity:          in.Quantity,
		ReturnedQuantity:  in.ReturnedQuantity,
		InstalledQuantity: in.InstalledQuantity,
		DamagedQuantity:   in.DamagedQuantity,
		LostQuantity:      in.LostQuantity,
	}
	if in.Status != nil {
		st, ok := models.ParseLoanStatus(*in.Status)
		if !ok {
			badRequest(c, "unknown status")
			return
		}
		patch.Status = &st
	}
	var err error
	if patch.StartDate, err = parseDatePtr(in.StartDate); err != nil {
		badRequest(c, err.Error())
		return
	}
	if patch.ReturnDate, err = parseDatePtr(in.ReturnDate); err != nil {
		badRequest(c, err.Error())
		return
	}

	l, err := lc.Repo.UpdateLoan(c.Request.Context(), id, patch)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"loan": l})
}

// DELETE /api/loans/:id  未归还的数量回到库存
func (lc *LoanController) DeleteLoan(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := lc.Repo.DeleteLoan(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}
