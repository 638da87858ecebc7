package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tagframe/coco"
	"tagframe/metrics"
	"tagframe/models"
	"tagframe/sessions"
	"tagframe/store"
	"tagframe/testutil"
	"tagframe/uploads"
	"tagframe/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type harness struct {
	t       *testing.T
	router  *gin.Engine
	factory store.ShareDaoFactory
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.NewTestDB(t)
	factory := store.NewDaoFactory(db)

	config := utils.DefaultConfig()
	config.Auth.JwtSecret = "test-secret"
	config.Auth.LoginRatePerMinute = 1000
	config.Storage.UploadDir = t.TempDir()

	registry := sessions.NewRegistry(time.Hour)
	t.Cleanup(registry.Stop)
	files, err := uploads.NewStore(config.Storage.UploadDir, 8, config.Storage.MaxPixels)
	require.NoError(t, err)
	m, err := metrics.New(prometheus.NewRegistry(), registry.Len)
	require.NoError(t, err)

	router := NewRouter(Dependencies{
		Config:   config,
		DB:       db,
		Factory:  factory,
		Sessions: registry,
		Uploads:  files,
		Exporter: coco.NewExporter(factory.Graph(), config.Export, "test"),
		Metrics:  m,
		Version:  "test",
	})
	return &harness{t: t, router: router, factory: factory}
}

type response struct {
	*httptest.ResponseRecorder
}

// data decodes the "data" envelope into out.
func (r response) data(t *testing.T, out interface{}) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(r.Body.Bytes(), &env), r.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, out))
}

func (h *harness) do(method, path, token string, body interface{}) response {
	h.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(buf)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return response{w}
}

func (h *harness) register(email string) string {
	h.t.Helper()
	w := h.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{"email": email, "password": "correct horse"})
	require.Equal(h.t, http.StatusCreated, w.Code, w.Body.String())
	var out struct {
		Token string `json:"token"`
	}
	w.data(h.t, &out)
	require.NotEmpty(h.t, out.Token)
	return out.Token
}

func (h *harness) createProject(token string) uint {
	h.t.Helper()
	w := h.do(http.MethodPost, "/api/v1/projects", token, gin.H{"name": "birds"})
	require.Equal(h.t, http.StatusCreated, w.Code, w.Body.String())
	var p models.Project
	w.data(h.t, &p)
	return p.ID
}

func (h *harness) createImage(projectID uint, width, height *int) uint {
	h.t.Helper()
	img, err := h.factory.Images().Create(context.Background(), &models.Image{
		ProjectID: projectID, FileName: "img.jpg", Path: "/nonexistent/img.jpg", Width: width, Height: height,
	})
	require.NoError(h.t, err)
	return img.ID
}

func TestAuthFlow(t *testing.T) {
	h := newHarness(t)
	token := h.register("ann@example.com")

	w := h.do(http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me models.User
	w.data(t, &me)
	assert.Equal(t, "ann@example.com", me.Email)
	assert.NotContains(t, w.Body.String(), "password")

	w = h.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{"email": "ANN@example.com", "password": "another one"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = h.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "ann@example.com", "password": "wrong password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "ann@example.com", "password": "correct horse"})
	require.Equal(t, http.StatusOK, w.Code)

	w = h.do(http.MethodPost, "/api/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = h.do(http.MethodGet, "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{"email": "bob@example.com", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProjectRoles(t *testing.T) {
	h := newHarness(t)
	owner := h.register("owner@example.com")
	visitor := h.register("visitor@example.com")
	stranger := h.register("stranger@example.com")
	projectID := h.createProject(owner)
	base := fmt.Sprintf("/api/v1/projects/%d", projectID)

	w := h.do(http.MethodPost, base+"/members", owner, gin.H{"email": "visitor@example.com", "role": "visitor"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = h.do(http.MethodPost, base+"/members", owner, gin.H{"email": "x@example.com", "role": "owner"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, base, visitor, nil).Code)
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, base, stranger, nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/v1/projects/999", owner, nil).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/api/v1/projects/abc", owner, nil).Code)

	imageID := h.createImage(projectID, nil, nil)
	w = h.do(http.MethodPost, fmt.Sprintf("/api/v1/images/%d/annotations", imageID), visitor,
		gin.H{"annotations": []gin.H{{"type": "rectangle", "x": 1, "y": 1, "width": 2, "height": 2}}})
	assert.Equal(t, http.StatusForbidden, w.Code)

	assert.Equal(t, http.StatusForbidden, h.do(http.MethodPatch, base, visitor, gin.H{"name": "mine"}).Code)
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodDelete, base+"/members/owner@example.com", owner, nil).Code)

	w = h.do(http.MethodPatch, base, owner, gin.H{"name": "renamed"})
	require.Equal(t, http.StatusOK, w.Code)
	var p models.Project
	w.data(t, &p)
	assert.Equal(t, "renamed", p.Name)

	w = h.do(http.MethodGet, "/api/v1/projects", visitor, nil)
	var list []models.Project
	w.data(t, &list)
	assert.Len(t, list, 1)

	assert.Equal(t, http.StatusOK, h.do(http.MethodDelete, base, owner, nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, base, owner, nil).Code)
}

func TestAnnotationLifecycle(t *testing.T) {
	h := newHarness(t)
	token := h.register("ann@example.com")
	projectID := h.createProject(token)
	imageID := h.createImage(projectID, intPtr(100), intPtr(100))

	w := h.do(http.MethodPost, "/api/v1/labels", token, gin.H{"name": "bird", "color": "#ff0000", "project_id": projectID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var label models.Label
	w.data(t, &label)

	path := fmt.Sprintf("/api/v1/images/%d/annotations", imageID)
	w = h.do(http.MethodPost, path, token, gin.H{"annotations": []gin.H{
		{"type": "rectangle", "x": 40, "y": 60, "width": -30, "height": -40, "label_id": label.ID},
		{"type": "polygon", "coordinates": [][]float64{{0, 0}, {10, 0}, {10, 10}}},
	}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var saved []models.Annotation
	w.data(t, &saved)
	require.Len(t, saved, 2)
	assert.Equal(t, 10.0, *saved[0].X, "rectangles are stored normalized")
	require.NotNil(t, saved[0].Label)
	assert.Equal(t, "bird", saved[0].Label.Name)
	assert.JSONEq(t, `[0,0,10,0,10,10]`, string(saved[1].Coordinates))

	w = h.do(http.MethodPost, path, token, gin.H{"annotations": []gin.H{{"type": "polygon", "coordinates": []float64{0, 0, 1}}}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodGet, fmt.Sprintf("/api/v1/projects/%d/labels/stats", projectID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var usage []store.LabelUsage
	w.data(t, &usage)
	require.Len(t, usage, 1)
	assert.Equal(t, int64(1), usage[0].Count)

	labelPath := fmt.Sprintf("/api/v1/annotations/%d/label", saved[1].ID)
	w = h.do(http.MethodPatch, labelPath, token, gin.H{"label_id": label.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = h.do(http.MethodPatch, labelPath, token, gin.H{"label_id": 999})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodDelete, fmt.Sprintf("/api/v1/annotations/%d", saved[0].ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = h.do(http.MethodDelete, fmt.Sprintf("/api/v1/annotations/%d", saved[0].ID), token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = h.do(http.MethodGet, path, token, nil)
	var remaining []models.Annotation
	w.data(t, &remaining)
	require.Len(t, remaining, 1)
	require.NotNil(t, remaining[0].LabelID)
	assert.Equal(t, label.ID, *remaining[0].LabelID)
}

func intPtr(v int) *int { return &v }

func TestExportCOCO(t *testing.T) {
	h := newHarness(t)
	token := h.register("ann@example.com")
	projectID := h.createProject(token)
	withSize := h.createImage(projectID, intPtr(320), intPtr(200))
	withoutSize := h.createImage(projectID, nil, nil)

	w := h.do(http.MethodPost, fmt.Sprintf("/api/v1/images/%d/annotations", withSize), token, gin.H{"annotations": []gin.H{
		{"type": "rectangle", "x": 10, "y": 20, "width": 30, "height": 40, "label_id": 12345},
	}})
	assert.Equal(t, http.StatusBadRequest, w.Code, "labels must exist")

	w = h.do(http.MethodPost, fmt.Sprintf("/api/v1/images/%d/annotations", withSize), token, gin.H{"annotations": []gin.H{
		{"type": "rectangle", "x": 10, "y": 20, "width": 30, "height": 40},
	}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = h.do(http.MethodGet, fmt.Sprintf("/api/v1/projects/%d/export/coco", projectID), token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, fmt.Sprintf("attachment; filename=project_%d_COCO.json", projectID), w.Header().Get("Content-Disposition"))
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
	assert.Equal(t, fmt.Sprint(withoutSize), w.Header().Get("X-Export-Defaulted-Images"))

	var ds coco.Dataset
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ds))
	require.Len(t, ds.Images, 2)
	assert.Equal(t, 320, ds.Images[0].Width)
	assert.Equal(t, 640, ds.Images[1].Width)
	require.Len(t, ds.Annotations, 1)
	assert.Equal(t, [4]float64{10, 20, 30, 40}, ds.Annotations[0].BBox)
	assert.Equal(t, 0, ds.Annotations[0].CategoryID)
	assert.Empty(t, ds.Categories)

	w = h.do(http.MethodGet, "/api/v1/projects/999/export/coco", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUploadImages(t *testing.T) {
	h := newHarness(t)
	token := h.register("ann@example.com")
	projectID := h.createProject(token)

	var pngData bytes.Buffer
	require.NoError(t, png.Encode(&pngData, image.NewGray(image.Rect(0, 0, 40, 30))))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(uploadField, "cat.png")
	require.NoError(t, err)
	_, err = part.Write(pngData.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/projects/%d/images", projectID), &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created []models.Image
	response{w}.data(t, &created)
	require.Len(t, created, 1)
	assert.Equal(t, "cat.png", created[0].FileName)
	require.NotNil(t, created[0].Width)
	assert.Equal(t, 40, *created[0].Width)
	assert.NotNil(t, created[0].LqipPath)

	w2 := h.do(http.MethodGet, fmt.Sprintf("/api/v1/images/%d/file", created[0].ID), token, nil)
	require.Equal(t, http.StatusOK, w2.Code)
	assert.Equal(t, pngData.Bytes(), w2.Body.Bytes())

	w2 = h.do(http.MethodDelete, fmt.Sprintf("/api/v1/images/%d", created[0].ID), token, nil)
	require.Equal(t, http.StatusOK, w2.Code)
}

func TestSaveUploadsRemovesEarlierImages(t *testing.T) {
	h := newHarness(t)
	token := h.register("ann@example.com")
	projectID := h.createProject(token)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(uploadField, "cat.png")
	require.NoError(t, err)
	require.NoError(t, png.Encode(part, image.NewGray(image.Rect(0, 0, 20, 20))))
	require.NoError(t, mw.Close())
	form, err := multipart.NewReader(&body, mw.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })

	// The second header has no content behind it, so opening it fails.
	headers := append(form.File[uploadField], &multipart.FileHeader{Filename: "broken.png"})

	dir := t.TempDir()
	files, err := uploads.NewStore(dir, 8, 0)
	require.NoError(t, err)

	created, err := saveUploads(context.Background(), h.factory, files, projectID, headers)
	assert.ErrorContains(t, err, "broken.png")
	assert.Nil(t, created)

	images, err := h.factory.Images().List(context.Background(), projectID)
	require.NoError(t, err)
	assert.Empty(t, images, "the image saved before the failure is removed")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "stored files and placeholders are removed")
}

func TestListPaging(t *testing.T) {
	h := newHarness(t)
	token := h.register("ann@example.com")
	projectID := h.createProject(token)
	var ids []uint
	for i := 0; i < 3; i++ {
		ids = append(ids, h.createImage(projectID, nil, nil))
	}

	w := h.do(http.MethodGet, fmt.Sprintf("/api/v1/projects/%d/images?limit=2&offset=1", projectID), token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var images []models.Image
	w.data(t, &images)
	require.Len(t, images, 2)
	assert.Equal(t, ids[1], images[0].ID)
	assert.Equal(t, ids[2], images[1].ID)

	w = h.do(http.MethodGet, fmt.Sprintf("/api/v1/projects/%d/images", projectID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	images = nil
	w.data(t, &images)
	assert.Len(t, images, 3)

	h.do(http.MethodPost, "/api/v1/projects", token, gin.H{"name": "fish"})
	w = h.do(http.MethodGet, "/api/v1/projects?limit=1", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var projects []models.Project
	w.data(t, &projects)
	require.Len(t, projects, 1)
	assert.Equal(t, "fish", projects[0].Name, "newest first")

	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/api/v1/projects?limit=abc", token, nil).Code)
	assert.Equal(t, http.StatusBadRequest,
		h.do(http.MethodGet, fmt.Sprintf("/api/v1/projects/%d/images?offset=-1", projectID), token, nil).Code)
}

func TestOpsRoutes(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/version", "", nil).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/healthz", "", nil).Code)

	h.do(http.MethodGet, "/version", "", nil)
	w := h.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tagframe_http_requests_total")
	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/api/v1/projects", "", nil).Code)
}
