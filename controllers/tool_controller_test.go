package controllers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tool_lending_admin/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")

func multipartFile(t *testing.T, path string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "photo.bin")
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestToolCRUD(t *testing.T) {
	e := newTestEnv(t)
	r := e.router(e.asAdmin())
	id := e.seedTool(t, r, 3)

	w := doJSON(t, r, http.MethodGet, "/api/tools/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var out struct {
		Tool models.Tool `json:"tool"`
	}
	decode(t, w, &out)
	assert.True(t, out.Tool.Availability)
	assert.Equal(t, "120.5", out.Tool.Price.String())

	w = doJSON(t, r, http.MethodPut, "/api/tools/"+id, map[string]any{"quantity": 7, "condition": models.ConditionExcellent})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &out)
	assert.Equal(t, 7, out.Tool.Quantity)
	assert.Equal(t, models.ConditionExcellent, out.Tool.Condition)

	w = doJSON(t, r, http.MethodPut, "/api/tools/"+id, map[string]any{"type": "Marteau"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_input", errCode(t, w))

	w = doJSON(t, r, http.MethodGet, "/api/tools/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/tools/6f1c1a4e-8c7b-4a55-9d5e-2f1f3c0b9a10", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", errCode(t, w))
}

func TestCreateToolValidation(t *testing.T) {
	e := newTestEnv(t)
	r := e.router(e.asAdmin())

	base := func() map[string]any {
		return map[string]any{
			"name": "Pince", "type": models.ToolHandBasic, "condition": models.ConditionNew,
			"quantity": 2, "price": 10, "purchaseDate": "2023-01-15",
		}
	}
	for field, val := range map[string]any{"quantity": 0, "price": 0, "purchaseDate": "15/01/2023"} {
		body := base()
		body[field] = val
		w := doJSON(t, r, http.MethodPost, "/api/tools", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, field)
	}
	w := doJSON(t, r, http.MethodPost, "/api/tools", base())
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestListToolsLowStock(t *testing.T) {
	e := newTestEnv(t)
	r := e.router(e.asAdmin())
	e.seedTool(t, r, 2)
	e.seedTool(t, r, 20)

	var res struct {
		Tools []models.Tool `json:"tools"`
		Total int64         `json:"total"`
	}
	w := doJSON(t, r, http.MethodGet, "/api/tools?lowStock=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &res)
	require.EqualValues(t, 1, res.Total)
	assert.Equal(t, 2, res.Tools[0].Quantity)

	w = doJSON(t, r, http.MethodGet, "/api/tools?q=perceuse&available=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &res)
	assert.EqualValues(t, 2, res.Total)
}

func TestDeleteToolCascades(t *testing.T) {
	e := newTestEnv(t)
	r := e.router(e.asAdmin())
	id := e.seedTool(t, r, 5)

	require.Equal(t, http.StatusCreated, doJSON(t, r, http.MethodPost, "/api/loans", map[string]any{"toolId": id, "quantity": 2}).Code)
	require.Equal(t, http.StatusCreated, doJSON(t, r, http.MethodPost, "/api/maintenance", map[string]any{"toolId": id}).Code)

	w := doJSON(t, r, http.MethodDelete, "/api/tools/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var n int64
	require.NoError(t, e.repo.DB.Model(&models.Loan{}).Where("tool_id = ?", id).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, e.repo.DB.Model(&models.Maintenance{}).Where("tool_id = ?", id).Count(&n).Error)
	assert.Zero(t, n)

	w = doJSON(t, r, http.MethodGet, "/api/tools/"+id+"/loans", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUploadToolPicture(t *testing.T) {
	e := newTestEnv(t)
	r := e.router(e.asAdmin())
	id := e.seedTool(t, r, 1)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, multipartFile(t, "/api/tools/"+id+"/picture", pngHeader))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var out struct {
		Picture string `json:"picture"`
	}
	decode(t, w, &out)
	prefix := "http://test/uploads/pictures/tools/" + id + "/"
	require.True(t, strings.HasPrefix(out.Picture, prefix), out.Picture)
	assert.True(t, strings.HasSuffix(out.Picture, ".png"))

	stored, err := os.ReadFile(filepath.Join(e.disk.Root(), filepath.FromSlash(strings.TrimPrefix(out.Picture, "http://test/uploads/"))))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, stored)

	tool, err := e.repo.FindToolByID(t.Context(), id)
	require.NoError(t, err)
	assert.Equal(t, out.Picture, tool.Picture)
}

func TestUploadRejectsBadFiles(t *testing.T) {
	e := newTestEnv(t)
	r := e.router(e.asAdmin())
	id := e.seedTool(t, r, 1)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, multipartFile(t, "/api/tools/"+id+"/picture", []byte("#!/bin/sh\necho hi\n")))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "unsupported_type", errCode(t, w))

	big := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 8<<10)...)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, multipartFile(t, "/api/tools/"+id+"/picture", big))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/tools/"+id+"/picture", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
