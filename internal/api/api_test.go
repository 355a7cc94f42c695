package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cvstudio/internal/adapt"
	"cvstudio/internal/database"
	"cvstudio/internal/pdf"
	"cvstudio/internal/resume"
	"cvstudio/internal/storage"
	"cvstudio/internal/tasks"
	"cvstudio/internal/worker"
)

type fakeQueue struct {
	mu    sync.Mutex
	tasks []*asynq.Task
}

func (q *fakeQueue) Enqueue(task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, task)
	return &asynq.TaskInfo{ID: "task-1", Type: task.Type()}, nil
}

type echoCompleter struct{}

// Complete 返回提示词中内嵌的 CV，并替换其摘要。
func (echoCompleter) Complete(_ context.Context, messages []adapt.Message) (string, error) {
	prompt := messages[len(messages)-1].Content
	start := strings.Index(prompt, "{")
	end := strings.Index(prompt, "\n}\n")
	var cv resume.AdaptedCV
	if err := json.Unmarshal([]byte(prompt[start:end+2]), &cv); err != nil {
		return "", err
	}
	cv.Summary = "Tailored for the role"
	out, err := json.Marshal(map[string]any{"cv": cv})
	return string(out), err
}

type testServer struct {
	router  *gin.Engine
	store   *database.Store
	objects *storage.Memory
	queue   *fakeQueue
	mr      *miniredis.Miniredis
}

type serverOption func(*Deps)

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.OpenSQLite("file:" + name + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := &testServer{
		store:   database.NewStore(db),
		objects: storage.NewMemory(),
		queue:   &fakeQueue{},
		mr:      mr,
	}
	deps := Deps{
		Store:          srv.store,
		Renderer:       pdf.NewRenderer(logger, pdf.WithConcurrency(2)),
		RenderDefaults: pdf.Params{Backend: pdf.BackendFPDF, Variant: "two-column", PageSize: "A4"},
		Objects:        srv.objects,
		Queue:          srv.queue,
		Redis:          client,
		Gateway:        adapt.NewGateway(logger, nil, adapt.NewMemorySessionStore(10, 10, time.Hour)),
		Logger:         logger,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	srv.router = NewRouter(logger)
	RegisterRoutes(srv.router, deps)
	return srv
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) upload(t *testing.T, path string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if data != nil {
		part, err := mw.CreateFormFile("photo", "photo.png")
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) create(t *testing.T) resume.CV {
	t.Helper()
	w := s.do(t, http.MethodPost, "/v1/cvs", apiCV())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var cv resume.CV
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cv))
	require.NotZero(t, cv.ID)
	return cv
}

func apiCV() resume.CV {
	return resume.CV{
		Personal: resume.PersonalInfo{Name: "Grace Hopper", Email: "grace@example.com", Headline: "Engineer"},
		Entries: []resume.TimelineEntry{
			{Ref: "navy", Category: resume.CategoryExperience, Title: "Officer", Organization: "US Navy",
				StartDate: resume.NewDate(2015, time.March, 1), EndDate: resume.NewDate(2018, time.June, 1)},
			{Ref: "yale", Category: resume.CategoryEducation, Title: "PhD", Organization: "Yale"},
			{Ref: "a0", Category: resume.CategoryProject, Title: "A-0 <b>compiler</b>"},
		},
		Skills: []resume.SkillGroup{{Category: "Languages", Items: []string{"COBOL"}, EntryRefs: []string{"navy"}}},
	}
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func pngPhoto(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/v1/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Correlation-ID"))
}

func TestCVCrud(t *testing.T) {
	s := newTestServer(t)
	cv := s.create(t)
	assert.Equal(t, "A-0 compiler", cv.Entries[2].Title)

	w := s.do(t, http.MethodGet, "/v1/cvs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list listResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.EqualValues(t, 1, list.Total)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "Grace Hopper", list.Items[0].Name)

	updated := apiCV()
	updated.Personal.Name = "Rear Admiral Hopper"
	w = s.do(t, http.MethodPut, "/v1/cvs/"+itoa(cv.ID), updated)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/v1/cvs/"+itoa(cv.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got resume.CV
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "Rear Admiral Hopper", got.Personal.Name)
	assert.Len(t, got.Entries, 3)

	w = s.do(t, http.MethodDelete, "/v1/cvs/"+itoa(cv.ID), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(t, http.MethodGet, "/v1/cvs/"+itoa(cv.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCVErrors(t *testing.T) {
	s := newTestServer(t)

	invalid := apiCV()
	invalid.Personal.Email = "not-an-email"
	invalid.Skills[0].EntryRefs = []string{"missing"}
	w := s.do(t, http.MethodPost, "/v1/cvs", invalid)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "unknown_entry")
	assert.Contains(t, w.Body.String(), "Personal.Email")

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/v1/cvs/abc", nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/v1/cvs/0", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/v1/cvs/99", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPut, "/v1/cvs/99", apiCV()).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, "/v1/cvs/99", nil).Code)
}

func TestTimelineSkillsPreview(t *testing.T) {
	s := newTestServer(t)
	cv := s.create(t)
	base := "/v1/cvs/" + itoa(cv.ID)

	w := s.do(t, http.MethodGet, base+"/timeline", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var timeline struct {
		Items []resume.TimelineEntry `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &timeline))
	require.Len(t, timeline.Items, 3)
	assert.Equal(t, []string{"navy", "a0", "yale"}, []string{timeline.Items[0].Ref, timeline.Items[1].Ref, timeline.Items[2].Ref})

	w = s.do(t, http.MethodGet, base+"/timeline/projects", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &timeline))
	require.Len(t, timeline.Items, 1)
	assert.Equal(t, "a0", timeline.Items[0].Ref)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, base+"/timeline/hobbies", nil).Code)

	w = s.do(t, http.MethodGet, base+"/skills", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"flat":["COBOL"]`)

	w = s.do(t, http.MethodGet, base+"/preview?locale=en", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var preview previewResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &preview))
	require.Len(t, preview.Sections, 3)
	assert.Equal(t, resume.CategoryExperience, preview.Sections[0].Category)
	assert.NotEmpty(t, preview.Sections[0].Entries[0].Period)
	assert.Equal(t, []string{"COBOL"}, preview.Sections[0].Entries[0].Skills)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, base+"/preview?locale=xx", nil).Code)
}

func TestRenderPDF(t *testing.T) {
	s := newTestServer(t)
	cv := s.create(t)
	base := "/v1/cvs/" + itoa(cv.ID)

	w := s.do(t, http.MethodGet, base+"/pdf", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "CV_Grace_Hopper.pdf")
	assert.Empty(t, w.Header().Get("X-Render-Warning"))

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, base+"/pdf?page_size=Z9", nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, base+"/pdf?backend=troff", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/v1/cvs/99/pdf", nil).Code)
}

func TestRenderPDFUnsupportedText(t *testing.T) {
	s := newTestServer(t)
	body := apiCV()
	body.Personal.Name = "张伟"
	w := s.do(t, http.MethodPost, "/v1/cvs", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var cv resume.CV
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cv))

	w = s.do(t, http.MethodGet, "/v1/cvs/"+itoa(cv.ID)+"/pdf", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "no font can draw")
}

func TestRenderPDFWithPhoto(t *testing.T) {
	s := newTestServer(t)
	cv := s.create(t)
	path := "/v1/cvs/" + itoa(cv.ID) + "/pdf"

	w := s.upload(t, path, pngPhoto(t))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "CV_Grace_Hopper_with_photo.pdf")

	w = s.upload(t, path, []byte("definitely not an image"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))
	assert.Contains(t, w.Header().Get("X-Render-Warning"), "photo skipped")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "CV_Grace_Hopper.pdf")

	assert.Equal(t, http.StatusBadRequest, s.upload(t, path, nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.upload(t, path, []byte{}).Code)

	big := make([]byte, pdf.DefaultMaxPhotoBytes+1)
	assert.Equal(t, http.StatusRequestEntityTooLarge, s.upload(t, path, big).Code)
}

func TestUploadPhoto(t *testing.T) {
	s := newTestServer(t)
	cv := s.create(t)
	path := "/v1/cvs/" + itoa(cv.ID) + "/photo"

	w := s.upload(t, path, pngPhoto(t))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	info, err := s.store.RenderInfo(context.Background(), cv.ID)
	require.NoError(t, err)
	assert.True(t, storage.OwnedBy(info.PhotoKey, cv.ID))
	assert.Equal(t, "image/jpeg", s.objects.ContentType(info.PhotoKey))

	assert.Equal(t, http.StatusBadRequest, s.upload(t, path, []byte("GIF89a broken")).Code)
	assert.Equal(t, http.StatusNotFound, s.upload(t, "/v1/cvs/99/photo", pngPhoto(t)).Code)
}

func TestEnqueueRenderAndDownloadLink(t *testing.T) {
	s := newTestServer(t)
	cv := s.create(t)
	base := "/v1/cvs/" + itoa(cv.ID)

	w := s.do(t, http.MethodGet, base+"/download-link", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	req := httptest.NewRequest(http.MethodPost, base+"/render?variant=single-column", nil)
	req.Header.Set("X-Correlation-ID", "corr-1")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"task_id":"task-1"`)

	require.Len(t, s.queue.tasks, 1)
	assert.Equal(t, tasks.TypeCVRender, s.queue.tasks[0].Type())
	payload, err := tasks.ParseCVRenderPayload(s.queue.tasks[0])
	require.NoError(t, err)
	assert.Equal(t, cv.ID, payload.CVID)
	assert.Equal(t, "corr-1", payload.CorrelationID)
	assert.Equal(t, "single-column", payload.Options.Variant)
	assert.Equal(t, pdf.BackendFPDF, payload.Options.Backend)

	info, err := s.store.RenderInfo(context.Background(), cv.ID)
	require.NoError(t, err)
	assert.Equal(t, database.RenderStatusPending, info.RenderStatus)

	key := storage.PDFKey(cv.ID)
	require.NoError(t, s.objects.Put(context.Background(), key, []byte("%PDF-1.4"), "application/pdf"))
	require.NoError(t, s.store.SetRenderResult(context.Background(), cv.ID, key))

	w = s.do(t, http.MethodGet, base+"/download-link", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "memory:///"+key)
	assert.Contains(t, w.Body.String(), `"status":"completed"`)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, base+"/render?variant=baroque", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPost, "/v1/cvs/99/render", nil).Code)
	assert.Len(t, s.queue.tasks, 1)
}

func TestDeleteRemovesObjects(t *testing.T) {
	s := newTestServer(t)
	cv := s.create(t)
	other := s.create(t)
	ctx := context.Background()

	require.NoError(t, s.objects.Put(ctx, storage.PDFKey(cv.ID), []byte("%PDF"), "application/pdf"))
	require.NoError(t, s.objects.Put(ctx, storage.PhotoKey(cv.ID, "jpg"), []byte("x"), "image/jpeg"))
	keep := storage.PDFKey(other.ID)
	require.NoError(t, s.objects.Put(ctx, keep, []byte("%PDF"), "application/pdf"))

	w := s.do(t, http.MethodDelete, "/v1/cvs/"+itoa(cv.ID), nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{keep}, s.objects.Keys())
}

func TestAdaptDisabled(t *testing.T) {
	s := newTestServer(t)
	cv := s.create(t)
	w := s.do(t, http.MethodPost, "/v1/adapt", gin.H{"cv_id": cv.ID, "posting": gin.H{"raw": "job"}})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func withCompleter(limit int) serverOption {
	return func(d *Deps) {
		d.Gateway = adapt.NewGateway(d.Logger, echoCompleter{}, adapt.NewMemorySessionStore(10, 10, time.Hour))
		d.AdaptClientLimit = limit
	}
}

func TestAdapt(t *testing.T) {
	s := newTestServer(t, withCompleter(0))
	cv := s.create(t)

	w := s.do(t, http.MethodPost, "/v1/adapt", gin.H{
		"cv_id":   cv.ID,
		"posting": gin.H{"raw": "Compiler engineer wanted", "company": "Remington Rand"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res adapt.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.NotEmpty(t, res.SessionID)
	assert.Equal(t, "Tailored for the role", res.CV.Personal.Summary)
	assert.Equal(t, "Grace Hopper", res.CV.Personal.Name)

	inline := apiCV()
	w = s.do(t, http.MethodPost, "/v1/adapt", gin.H{"cv": inline, "posting": gin.H{"raw": "job"}, "session_id": res.SessionID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodDelete, "/v1/adapt/sessions/"+res.SessionID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestAdaptRequestErrors(t *testing.T) {
	s := newTestServer(t, withCompleter(0))
	cv := s.create(t)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/v1/adapt", gin.H{"posting": gin.H{"raw": "job"}}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/v1/adapt", gin.H{"cv_id": cv.ID}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/v1/adapt",
		gin.H{"cv_id": cv.ID, "cv": apiCV(), "posting": gin.H{"raw": "job"}}).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPost, "/v1/adapt", gin.H{"cv_id": 99, "posting": gin.H{"raw": "job"}}).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, s.do(t, http.MethodPost, "/v1/adapt",
		gin.H{"cv_id": cv.ID, "posting": gin.H{"url": "ftp://example.com/job"}}).Code)
}

func TestAdaptClientLimit(t *testing.T) {
	s := newTestServer(t, withCompleter(1))
	cv := s.create(t)
	body := gin.H{"cv_id": cv.ID, "posting": gin.H{"raw": "job"}}

	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/v1/adapt", body).Code)
	assert.Equal(t, http.StatusTooManyRequests, s.do(t, http.MethodPost, "/v1/adapt", body).Code)

	s.mr.FastForward(adaptRateWindow + time.Second)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/v1/adapt", body).Code)
}

func TestWebSocketForwardsNotifications(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.router)
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/ws?cv_id=7"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	channel := worker.NotifyChannel(7)
	require.Eventually(t, func() bool {
		return s.mr.PubSubNumSub(channel)[channel] == 1
	}, 2*time.Second, 10*time.Millisecond)

	s.mr.Publish(channel, `{"status":"completed","cv_id":7}`)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"completed","cv_id":7}`, string(msg))
}

func TestWebSocketRequiresCVID(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/v1/ws", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
