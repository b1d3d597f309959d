package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"decider/internal/cache"
	"decider/internal/config"
	"decider/internal/events"
	"decider/internal/middleware"
	"decider/internal/models"
	"decider/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-at-least-32-characters-long"

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.QuestionCreated
}

func (p *recordingPublisher) PublishQuestionCreated(_ context.Context, e events.QuestionCreated) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Backend() string { return "recording" }
func (p *recordingPublisher) Close() error    { return nil }

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func uintString(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}

type envelope struct {
	Status int             `json:"status"`
	Code   int             `json:"code"`
	Msg    string          `json:"msg"`
	Data   json.RawMessage `json:"data"`
	Errors []string        `json:"errors"`
	Count  *int            `json:"count"`
}

type testEnv struct {
	t         *testing.T
	app       *fiber.App
	fx        *testutil.Fixture
	mr        *miniredis.Miniredis
	publisher *recordingPublisher
	viewer    *models.User
	token     string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(rdb)
	t.Cleanup(func() { cache.SetClient(nil) })

	cfg := &config.Config{
		Env:              "test",
		JWTSecret:        testSecret,
		MediaDir:         t.TempDir(),
		MediaURLPrefix:   "/media",
		FeedDefaultLimit: 20,
		FeedMaxLimit:     100,
	}
	publisher := &recordingPublisher{}
	s, err := NewServerWithDeps(cfg, db, rdb, publisher)
	require.NoError(t, err)

	fx := testutil.NewFixture(t, db)
	viewer := fx.User("viewer")
	token, err := middleware.SignViewerToken(testSecret, viewer.ID, time.Hour)
	require.NoError(t, err)

	return &testEnv{
		t:         t,
		app:       s.NewApp(),
		fx:        fx,
		mr:        mr,
		publisher: publisher,
		viewer:    viewer,
		token:     token,
	}
}

func (e *testEnv) do(req *http.Request) (*http.Response, envelope) {
	e.t.Helper()
	if req.Header.Get("Authorization") == "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(e.t, err)
	defer resp.Body.Close()

	var env envelope
	body, err := io.ReadAll(resp.Body)
	require.NoError(e.t, err)
	if len(body) > 0 && resp.Header.Get("Content-Type") == fiber.MIMEApplicationJSON {
		require.NoError(e.t, json.Unmarshal(body, &env), string(body))
	}
	return resp, env
}

func (e *testEnv) get(path string) (*http.Response, envelope) {
	return e.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (e *testEnv) postJSON(path, body string) (*http.Response, envelope) {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
	return e.do(req)
}

func (e *testEnv) postForm(path string, fields map[string]string, file []byte) (*http.Response, envelope) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(e.t, w.WriteField(k, v))
	}
	if file != nil {
		part, err := w.CreateFormFile("image", "upload.png")
		require.NoError(e.t, err)
		_, err = part.Write(file)
		require.NoError(e.t, err)
	}
	require.NoError(e.t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return e.do(req)
}

func TestAPI_RequiresToken(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/questions", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp, body := env.do(req)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, models.CodeInvalidToken, body.Code)
	assert.Equal(t, http.StatusUnauthorized, body.Status)
}

func TestGetQuestions_Feed(t *testing.T) {
	env := newTestEnv(t)
	ann := env.fx.User("ann")
	food := env.fx.Category("Food")

	withPoll := env.fx.Question(ann, food, "Pizza or pasta?", 3, 0)
	_, items := env.fx.Poll(withPoll, "Pizza", "Pasta", "Salad")
	withoutPoll := env.fx.Question(ann, food, "Anyone hungry?", 0, 0)

	resp, body := env.get("/api/questions")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, models.CodeOK, body.Code)
	assert.Equal(t, "Successfully fetched questions", body.Msg)
	require.NotNil(t, body.Count)
	assert.Equal(t, 2, *body.Count)

	var questions []models.QuestionView
	require.NoError(t, json.Unmarshal(body.Data, &questions))
	require.Len(t, questions, 2)

	assert.Equal(t, withoutPoll.ID, questions[0].ID)
	assert.Nil(t, questions[0].Poll)

	q := questions[1]
	assert.Equal(t, withPoll.ID, q.ID)
	assert.False(t, q.Voted)
	require.NotNil(t, q.Author)
	assert.Equal(t, "ann", q.Author.Username)
	require.Len(t, q.Poll, 3)
	for i, item := range q.Poll {
		assert.Equal(t, items[i].ID, item.ID)
		assert.False(t, item.Voted)
	}
}

func TestGetQuestions_UnknownTab(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get("/api/questions?tab=bogus&limit=x")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, models.CodeUnknownTab, body.Code)
	assert.Equal(t, "Tab is unknown", body.Msg)
	assert.Equal(t, "null", string(body.Data))
}

func TestGetQuestions_InvalidParams(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get("/api/questions?limit=x&offset=y&categories%5B%5D=1&categories%5B%5D=z")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, models.CodeInvalidData, body.Code)
	assert.Equal(t, "Some parameters are invalid", body.Msg)
	assert.ElementsMatch(t, []string{"limit", "offset", "categories"}, body.Errors)
}

func TestGetQuestions_CategoryFilterAndMineTab(t *testing.T) {
	env := newTestEnv(t)
	ann := env.fx.User("ann")
	food := env.fx.Category("Food")
	travel := env.fx.Category("Travel")

	env.fx.Question(ann, food, "Pizza?", 0, 0)
	trip := env.fx.Question(ann, travel, "Beach?", 0, 0)
	own := env.fx.Question(env.viewer, food, "Mine?", 0, 0)

	_, body := env.get("/api/questions?categories%5B%5D=" + uintString(travel.ID))
	var questions []models.QuestionView
	require.NoError(t, json.Unmarshal(body.Data, &questions))
	require.Len(t, questions, 1)
	assert.Equal(t, trip.ID, questions[0].ID)

	_, body = env.get("/api/questions?tab=MINE")
	require.NoError(t, json.Unmarshal(body.Data, &questions))
	require.Len(t, questions, 1)
	assert.Equal(t, own.ID, questions[0].ID)
}

func TestGetQuestion_Detail(t *testing.T) {
	env := newTestEnv(t)
	ann := env.fx.User("ann")
	food := env.fx.Category("Food")

	quiet := env.fx.Question(ann, food, "Quiet?", 0, 0)
	busy := env.fx.Question(ann, food, "Busy?", 0, 2)
	_, items := env.fx.Poll(busy, "Yes", "No")
	env.fx.Vote(env.viewer, items[0])
	first := env.fx.Comment(busy, ann, "first")
	env.fx.Comment(busy, env.viewer, "second")
	env.fx.LikeComment(env.viewer, first)

	resp, body := env.get("/api/questions/" + uintString(quiet.ID))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Successfully fetched question", body.Msg)
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body.Data, &raw))
	assert.Equal(t, "null", string(raw["comments"]))
	assert.Equal(t, "null", string(raw["poll"]))

	_, body = env.get("/api/questions/" + uintString(busy.ID))
	var detail models.QuestionDetailView
	require.NoError(t, json.Unmarshal(body.Data, &detail))
	assert.True(t, detail.Voted)
	require.Len(t, detail.Poll, 2)
	assert.True(t, detail.Poll[0].Voted)
	assert.Equal(t, 1, detail.Poll[0].VotesCount)
	require.Len(t, detail.Comments, 2)
	assert.Equal(t, "first", detail.Comments[0].Text)
	assert.True(t, detail.Comments[0].Voted)
	assert.Equal(t, "viewer", detail.Comments[1].Author.Username)
}

func TestGetQuestion_Errors(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get("/api/questions/999")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, models.CodeUnknownQuestion, body.Code)
	assert.Equal(t, "Question with specified id was not found", body.Msg)

	for _, id := range []string{"abc", "0", "-3"} {
		resp, body = env.get("/api/questions/" + id)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, id)
		assert.Equal(t, models.CodeInvalidData, body.Code, id)
		assert.Equal(t, []string{"question_id"}, body.Errors, id)
	}
}

func TestCreateQuestion_FormData(t *testing.T) {
	env := newTestEnv(t)
	food := env.fx.Category("Food")
	pic := env.fx.Picture("pic-1")

	data := `{"text": "Pizza or pasta?", "category_id": ` + uintString(food.ID) +
		`, "poll": [{"text": "Pizza", "image_uid": "pic-1"}, {"text": "Pasta"}]}`
	resp, body := env.postForm("/api/questions", map[string]string{"data": data}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body.Msg)
	assert.Equal(t, models.CodeCreated, body.Code)
	assert.Equal(t, "Question added", body.Msg)

	var created models.QuestionView
	require.NoError(t, json.Unmarshal(body.Data, &created))
	assert.NotZero(t, created.ID)
	assert.Equal(t, food.ID, created.CategoryID)
	require.NotNil(t, created.Author)
	assert.Equal(t, env.viewer.ID, created.Author.ID)
	require.Len(t, created.Poll, 2)
	require.NotNil(t, created.Poll[0].ImageURL)
	assert.Equal(t, pic.URL, *created.Poll[0].ImageURL)
	assert.Nil(t, created.Poll[1].ImageURL)
	assert.Equal(t, 1, env.publisher.count())

	resp, _ = env.get("/api/questions/" + uintString(created.ID))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateQuestion_JSONBodyAnonymous(t *testing.T) {
	env := newTestEnv(t)
	food := env.fx.Category("Food")

	resp, body := env.postJSON("/api/questions",
		`{"text": "Secret?", "category_id": "`+uintString(food.ID)+`", "is_anonymous": true, "poll": [{"text": "yes"}]}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body.Msg)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body.Data, &raw))
	assert.Equal(t, "null", string(raw["author"]))
	assert.Equal(t, "true", string(raw["is_anonymous"]))
}

func TestCreateQuestion_Errors(t *testing.T) {
	env := newTestEnv(t)
	food := env.fx.Category("Food")
	cat := uintString(food.ID)

	tests := []struct {
		name       string
		data       string
		wantStatus int
		wantCode   int
		wantFields []string
	}{
		{
			name:       "missing fields",
			data:       `{"text": "Hi"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   models.CodeRequiredParamsMissing,
			wantFields: []string{"poll", "category_id"},
		},
		{
			name:       "malformed data",
			data:       `{"text": `,
			wantStatus: http.StatusBadRequest,
			wantCode:   models.CodeInvalidData,
			wantFields: []string{"data"},
		},
		{
			name:       "category not numeric",
			data:       `{"text": "Hi", "category_id": "abc", "poll": [{"text": "a"}]}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   models.CodeInvalidData,
			wantFields: []string{"category_id"},
		},
		{
			name:       "unknown category",
			data:       `{"text": "Hi", "category_id": 999, "poll": [{"text": "a"}]}`,
			wantStatus: http.StatusNotFound,
			wantCode:   models.CodeUnknownCategory,
		},
		{
			name:       "empty item text",
			data:       `{"text": "Hi", "category_id": ` + cat + `, "poll": [{"text": "a"}, {"text": ""}]}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   models.CodeInvalidData,
			wantFields: []string{"poll_item.text"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.postForm("/api/questions", map[string]string{"data": tt.data}, nil)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantCode, body.Code)
			assert.Equal(t, tt.wantFields, body.Errors)
		})
	}

	var n int64
	require.NoError(t, env.fx.DB.Model(&models.Question{}).Count(&n).Error)
	assert.Zero(t, n)
	assert.Zero(t, env.publisher.count())
}

func TestGetCategories_Cached(t *testing.T) {
	env := newTestEnv(t)
	env.fx.Category("Food")
	env.fx.Category("Travel")

	resp, body := env.get("/api/categories")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var categories []models.Category
	require.NoError(t, json.Unmarshal(body.Data, &categories))
	require.Len(t, categories, 2)
	assert.Equal(t, "Food", categories[0].Name)
	assert.True(t, env.mr.Exists(cache.CategoriesKey))
}

func TestUploadPicture(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.postForm("/api/pictures", nil, testutil.PNG(t, 64, 48))
	require.Equal(t, http.StatusCreated, resp.StatusCode, body.Msg)

	var uploaded PictureUploadResponse
	require.NoError(t, json.Unmarshal(body.Data, &uploaded))
	require.NotEmpty(t, uploaded.UID)

	media, err := env.app.Test(httptest.NewRequest(http.MethodGet, uploaded.URL, nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, media.StatusCode)

	resp, body = env.postForm("/api/pictures", nil, []byte("definitely not an image"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, models.CodeBadImage, body.Code)

	resp, body = env.postForm("/api/pictures", map[string]string{"x": "y"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, models.CodeRequiredParamsMissing, body.Code)
	assert.Equal(t, []string{"image"}, body.Errors)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.app.Test(httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = env.app.Test(httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestErrorGuard_MasksUnexpectedErrors(t *testing.T) {
	env := newTestEnv(t)
	env.app.Get("/boom", func(c *fiber.Ctx) error { panic("kaboom") })
	env.app.Get("/fail", func(c *fiber.Ctx) error { return errors.New("db password is hunter2") })

	for _, path := range []string{"/boom", "/fail"} {
		resp, body := env.get(path)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode, path)
		assert.Equal(t, models.CodeServerError, body.Code, path)
		assert.Equal(t, "Internal server error", body.Msg, path)
	}
}
