package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"surveyor/handlers"
	"surveyor/models/modeltest"
	"surveyor/services"
)

const testSecret = "test-secret"

type apiClient struct {
	t      *testing.T
	router *gin.Engine
	hub    *services.Hub
	token  string
}

func newAPI(t *testing.T, strict bool) *apiClient {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := modeltest.NewDB(t)
	logger := zap.NewNop()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := services.NewHub(logger)
	go hub.Run(ctx)

	authService := services.NewAuthService(db, testSecret, logger)
	surveyService := services.NewSurveyService(db, nil, logger)
	answerService := services.NewAnswerService(db, nil, hub, logger, strict)

	router := gin.New()
	SetupRoutes(router,
		handlers.NewAuthHandler(authService),
		handlers.NewSurveyHandler(surveyService),
		handlers.NewAnswerHandler(answerService),
		hub, surveyService, testSecret, logger)

	return &apiClient{t: t, router: router, hub: hub}
}

func (a *apiClient) do(method, path, body string) *httptest.ResponseRecorder {
	a.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *apiClient) login(username string) {
	a.t.Helper()
	creds := fmt.Sprintf(`{"username":%q,"password":"long enough"}`, username)
	w := a.do(http.MethodPost, "/api/auth/register", creds)
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())

	w = a.do(http.MethodPost, "/api/auth/login", creds)
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &resp))
	a.token = resp.Token
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

const surveyJSON = `{
  "title": "Kitchen Sink",
  "sections": [{
    "title": "One",
    "reference_identifier": "one",
    "questions": [{
      "text": "What is your name?",
      "reference_identifier": "name",
      "pick": "one",
      "answers": [{"text": "My name is|{{name}}", "reference_identifier": "name", "help_text": "My name is..."}]
    }]
  }]
}`

type createdSurvey struct {
	ID       uint `json:"id"`
	Sections []struct {
		Questions []struct {
			ID      uint `json:"id"`
			Answers []struct {
				ID    uint   `json:"id"`
				APIID string `json:"api_id"`
			} `json:"answers"`
		} `json:"questions"`
	} `json:"sections"`
}

func (a *apiClient) createSurvey() createdSurvey {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/surveys", surveyJSON)
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	var s createdSurvey
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &s))
	return s
}

func TestHealth(t *testing.T) {
	api := newAPI(t, true)
	w := api.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestSurveyEndpointsRequireAuth(t *testing.T) {
	api := newAPI(t, true)
	w := api.do(http.MethodGet, "/api/surveys", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = api.do(http.MethodPatch, "/api/answers/1", `{"text":"x"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAnswerLifecycle(t *testing.T) {
	api := newAPI(t, true)
	api.login("author")
	survey := api.createSurvey()
	answer := survey.Sections[0].Questions[0].Answers[0]
	answerPath := fmt.Sprintf("/api/answers/%d", answer.ID)

	w := api.do(http.MethodGet, answerPath, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "", body["css_class"])
	assert.Equal(t, answer.APIID, body["api_id"])

	w = api.do(http.MethodPost, answerPath+"/text", `{"part":"post","context":{"name":"Ada"}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"text":"Ada"}`, w.Body.String())

	w = api.do(http.MethodPost, answerPath+"/text", `{"part":"pre"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"text":"My name is"}`, w.Body.String())

	w = api.do(http.MethodPost, answerPath+"/text", `{"part":"middle"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodPatch, answerPath, `{"custom_class":"wide","is_exclusive":true,"weight":3}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body = decode(t, w)
	assert.Equal(t, "exclusive wide", body["css_class"])
	assert.EqualValues(t, 3, body["weight"])

	w = api.do(http.MethodPatch, answerPath, `{"api_id":"NEW","text":"Changed"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = api.do(http.MethodPatch, answerPath, `{"colour":"red"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = api.do(http.MethodPatch, answerPath, `["not","an","object"]`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodGet, answerPath, "")
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, answer.APIID, body["api_id"])
	assert.Equal(t, "My name is|{{name}}", body["text"])

	w = api.do(http.MethodPost, answerPath+"/validations",
		`{"rule":"A","message":"too short","conditions":[{"rule_key":"A","operator":">=","integer_value":2}]}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = api.do(http.MethodDelete, answerPath, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = api.do(http.MethodGet, answerPath, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, decode(t, w), "error")
}

func TestLenientUpdateDropsProtectedAttributes(t *testing.T) {
	api := newAPI(t, false)
	api.login("author")
	survey := api.createSurvey()
	answer := survey.Sections[0].Questions[0].Answers[0]

	w := api.do(http.MethodPatch, fmt.Sprintf("/api/answers/%d", answer.ID), `{"api_id":"NEW","text":"Changed"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, answer.APIID, body["api_id"])
	assert.Equal(t, "Changed", body["text"])
}

func TestTranslations(t *testing.T) {
	api := newAPI(t, true)
	api.login("author")
	survey := api.createSurvey()
	answer := survey.Sections[0].Questions[0].Answers[0]
	base := fmt.Sprintf("/api/surveys/%d/translations", survey.ID)

	w := api.do(http.MethodPut, base+"/es", "title: [broken")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = api.do(http.MethodPut, base+"/es", modeltest.SpanishTranslation)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	api.token = ""
	w = api.do(http.MethodGet, base+"/es", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Un idioma nunca es suficiente", decode(t, w)["title"])

	w = api.do(http.MethodGet, fmt.Sprintf("/api/answers/%d/translations/es", answer.ID), "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Mi nombre es...", body["help_text"])
	assert.Equal(t, "My name is|{{name}}", body["text"])

	w = api.do(http.MethodGet, fmt.Sprintf("/api/answers/%d/translations/de", answer.ID), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "My name is...", decode(t, w)["help_text"])

	for _, path := range []string{
		fmt.Sprintf("/api/answers/%d/translations/keys", answer.ID),
		fmt.Sprintf("/api/answers/%d/translations/es:1", answer.ID),
		base + "/keys",
	} {
		w = api.do(http.MethodGet, path, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
	}
}

func TestOwnershipIsEnforced(t *testing.T) {
	api := newAPI(t, true)
	api.login("author")
	survey := api.createSurvey()
	question := survey.Sections[0].Questions[0]
	answer := question.Answers[0]

	api.login("intruder")
	w := api.do(http.MethodGet, fmt.Sprintf("/api/surveys/%d", survey.ID), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = api.do(http.MethodDelete, fmt.Sprintf("/api/answers/%d", answer.ID), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = api.do(http.MethodPost, fmt.Sprintf("/api/questions/%d/answers", question.ID), `{"text":"sneaky"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = api.do(http.MethodPut, fmt.Sprintf("/api/surveys/%d/translations/es", survey.ID), "title: x")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(http.MethodPost, "/api/auth/register", `{"username":"author","password":"long enough"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestEditorStream(t *testing.T) {
	api := newAPI(t, true)
	api.login("author")
	survey := api.createSurvey()
	question := survey.Sections[0].Questions[0]

	server := httptest.NewServer(api.router)
	defer server.Close()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + fmt.Sprintf("/ws/surveys/%d", survey.ID)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token="+api.token, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return api.hub.ConnectedEditors(survey.ID) == 1 }, time.Second, 10*time.Millisecond)

	req, err := http.NewRequest(http.MethodPost, fmt.Sprintf("%s/api/questions/%d/answers", server.URL, question.ID),
		bytes.NewBufferString(`{"text":"Other"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+api.token)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusCreated, res.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg services.Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "answer_created", msg.Type)
}
