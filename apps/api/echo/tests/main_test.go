package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"

	. "github.com/chihwayi/ecd-materials-generator-sub003/apps/api/echo"
	"github.com/chihwayi/ecd-materials-generator-sub003/core"
	"github.com/chihwayi/ecd-materials-generator-sub003/core/material"
	emailsvc "github.com/chihwayi/ecd-materials-generator-sub003/services/email"
	"github.com/chihwayi/ecd-materials-generator-sub003/services/metrics"
	"github.com/chihwayi/ecd-materials-generator-sub003/storage/blob/memory"
	sqlxrepos "github.com/chihwayi/ecd-materials-generator-sub003/storage/database/sqlx"
	"github.com/chihwayi/ecd-materials-generator-sub003/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testApp struct {
	app     Server
	conf    *core.Config
	matRepo material.Repository
	blobs   *memory.Store
	metrics *metrics.Recorder
}

func newTestApp(t *testing.T) testApp {
	t.Helper()

	conf := testutil.NewConfig(t)
	logger := testutil.NewLogger(conf)
	testutil.ParseEmailTemplates(conf)
	emailsvc.ResetSentMessages()

	db := testutil.PrepareDB(t, conf)
	ta := testApp{
		conf:    conf,
		matRepo: sqlxrepos.NewMaterialRepository(db),
		blobs:   memory.New(),
		metrics: metrics.NewRecorder(),
	}

	matSvc, err := material.NewService(material.Deps{
		Repo:    ta.matRepo,
		Blobs:   ta.blobs,
		MailSvc: emailsvc.NewConsoleServiceMock(conf, logger),
		Logger:  logger,
		Conf:    conf,
		Metrics: ta.metrics,
	})
	if err != nil {
		t.Fatalf("material.NewService(): %v", err)
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	material.InitValidators(validate, translator)

	ta.app = NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		MaterialSvc:    matSvc,
		Metrics:        ta.metrics,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})
	t.Cleanup(func() { _ = ta.app.Close() })
	return ta
}

func (ta testApp) serve(req *http.Request, rec *httptest.ResponseRecorder) {
	ta.app.ServeHTTP(rec, req)
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, conf *core.Config, person core.Person) string {
	token, err := GenerateToken(conf, NewClaims(conf, person, time.Hour))
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func teacherOf(schoolID string) core.Person {
	return core.Person{ID: "teacher-" + schoolID, Username: "teacher", Email: "teacher@ecd.test", SchoolID: schoolID, Roles: []string{RoleTeacher}}
}

func parentOf(schoolID string) core.Person {
	return core.Person{ID: "parent-" + schoolID, Username: "parent", SchoolID: schoolID, Roles: []string{RoleParent}}
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList(): %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	return false, nil
}

func checkCode(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	checkCode(t, tt, rec)
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decoding %s: %v", rec.Body.String(), err)
	}
}
