package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	echoapi "github.com/peakform/funnel/apps/api/echo"
	"github.com/peakform/funnel/core"
	"github.com/peakform/funnel/core/funnel"
	"github.com/peakform/funnel/core/session"
	"github.com/peakform/funnel/core/tenant"
	emailsvc "github.com/peakform/funnel/services/email"
	dummyenroll "github.com/peakform/funnel/services/enrollment/dummy"
	dummydb "github.com/peakform/funnel/storage/database/dummy"
	testutil "github.com/peakform/funnel/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type apiFixture struct {
	server     echoapi.Server
	funnelRepo funnel.Repository
	sessionSvc *session.Service
	tenantSvc  *tenant.Service
}

func setup(t *testing.T) *apiFixture {
	t.Helper()

	// stable error shapes
	core.Conf.Debug = false
	core.Conf.TestMode = true

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	funnelRepo := dummydb.NewFunnelRepository(db)

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	funnel.RegisterValidators(validate, translator)

	funnelSvc := funnel.NewService(funnelRepo)
	sessionSvc := session.NewService(
		dummydb.NewSessionRepository(db),
		funnelSvc,
		dummyenroll.NewService(),
		emailsvc.NewConsoleServiceMock(),
		testutil.NopLogger{},
	)
	tenantSvc := tenant.NewService(dummydb.NewTenantRepository(db))

	server := echoapi.NewServer(echoapi.ServerDeps{
		Logger:         testutil.NopLogger{},
		FunnelSvc:      funnelSvc,
		SessionSvc:     sessionSvc,
		TenantSvc:      tenantSvc,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})
	return &apiFixture{server: server, funnelRepo: funnelRepo, sessionSvc: sessionSvc, tenantSvc: tenantSvc}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

type httpErr struct {
	Error string `json:"error"`
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

func getToken(t *testing.T, userID, orgID string) string {
	t.Helper()

	token, err := echoapi.GenerateToken(echoapi.NewUserClaims(userID, orgID, userID+"@test.cd"))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()

	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()

	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decoding response %s: %v", rec.Body.String(), err)
	}
}

func createSession(t *testing.T, fix *apiFixture, funnelID string) session.Session {
	t.Helper()

	sess, err := fix.sessionSvc.Create(context.Background(), session.NewSession{FunnelID: funnelID})
	if err != nil {
		t.Fatalf("createSession() failed: %v", err)
	}
	return sess
}
