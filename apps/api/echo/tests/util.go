package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	. "github.com/trezcool/registrar/apps/api/echo"
	"github.com/trezcool/registrar/core"
	"github.com/trezcool/registrar/core/catalog"
	"github.com/trezcool/registrar/core/enrollment"
	"github.com/trezcool/registrar/core/session"
	"github.com/trezcool/registrar/services/email"
	"github.com/trezcool/registrar/storage/database/inmem"
	"github.com/trezcool/registrar/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type env struct {
	conf       *core.Config
	app        Server
	db         *inmemdb.DB
	offRepo    catalog.Repository
	enrSvc     enrollment.Service
	mailSvc    *emailsvc.ConsoleServiceMock
	student    session.Session
	admin      session.Session
	adminToken string
}

func setup(t *testing.T) *env {
	t.Helper()
	conf := testutil.NewConfig(t)
	logger := testutil.NewLogger()
	validate, translator := core.NewValidator()

	// set up DB & repos
	db := inmemdb.Open()
	offRepo := inmemdb.NewOfferingRepository(db)
	enrRepo := inmemdb.NewEnrollmentRepository(db)

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock(logger, conf)
	catalogSvc := catalog.NewService(offRepo, validate, logger)
	enrSvc := enrollment.NewService(enrRepo, catalogSvc, mailSvc, logger, conf)

	// set up server
	app := NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		CatalogSvc:     catalogSvc,
		EnrollmentSvc:  enrSvc,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})
	t.Cleanup(func() { _ = app.Close() })

	e := &env{
		conf:    conf,
		app:     app,
		db:      db,
		offRepo: offRepo,
		enrSvc:  enrSvc,
		mailSvc: mailSvc,
		student: session.Session{UserID: "s-001", Name: "Hero", Email: "hero@test.cd", Roles: []string{session.RoleStudent}},
		admin:   session.Session{UserID: "a-001", Name: "Admin", Email: "admin@test.cd", Roles: []string{session.RoleAdmin}},
	}
	e.adminToken = getToken(t, conf, e.admin)
	return e
}

func (e *env) serve(tt httpTest) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
	e.app.ServeHTTP(rec, req)
	return rec
}

type httpErr struct {
	Error string `json:"error"`
}

type httpConflict struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type httpNotFound struct {
	Error       string   `json:"error"`
	Suggestions []string `json:"suggestions"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
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

func getToken(t *testing.T, conf *core.Config, sess session.Session, edits ...func(*Claims)) string {
	claims := NewClaims(sess, conf)
	for _, edit := range edits {
		edit(claims)
	}
	token, err := GenerateToken(claims, conf.SecretKey)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
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
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
