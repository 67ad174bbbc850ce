package echoapi_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	echoapi "github.com/peakform/funnel/apps/api/echo"
	"github.com/peakform/funnel/core/funnel"
	testutil "github.com/peakform/funnel/tests"
)

func Test_funnelApi_retrieve(t *testing.T) {
	fix := setup(t)
	f := testutil.CreateFunnel(t, fix.funnelRepo, "org1", "Funnel", testutil.CoachingSteps(),
		testutil.WithInvites(funnel.InviteCode{Code: "SECRET", Prepaid: true}))

	req, rec := newRequest(http.MethodGet, "/v1/funnels/"+f.ID)
	fix.server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var got funnel.Funnel
	decodeBody(t, rec, &got)
	assert.Equal(t, f.ID, got.ID)
	assert.Len(t, got.Steps, len(f.Steps))
	assert.Empty(t, got.InviteCodes, "invite codes must not leak")

	req, rec = newRequest(http.MethodGet, "/v1/funnels/nope")
	fix.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_funnelApi_resumeSession(t *testing.T) {
	fix := setup(t)
	f := testutil.CreateFunnel(t, fix.funnelRepo, "org1", "Funnel", testutil.CoachingSteps())

	cookieName := "fnl_session_" + f.ID

	sessionCookie := func(rec interface{ Result() *http.Response }) *http.Cookie {
		for _, c := range rec.Result().Cookies() {
			if c.Name == cookieName {
				return c
			}
		}
		return nil
	}

	// first visit: no cookie, a fresh session is started and pinned
	req, rec := newRequest(http.MethodGet, "/v1/funnels/"+f.ID+"/session")
	fix.server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var first echoapi.SessionResponse
	decodeBody(t, rec, &first)
	assert.Equal(t, 0, first.CurrentStepIndex)

	cookie := sessionCookie(rec)
	if assert.NotNil(t, cookie, "session cookie must be set") {
		assert.Equal(t, first.ID, cookie.Value)
	}

	// second visit with the cookie: same session comes back
	req, rec = newRequest(http.MethodGet, "/v1/funnels/"+f.ID+"/session")
	req.AddCookie(cookie)
	fix.server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var second echoapi.SessionResponse
	decodeBody(t, rec, &second)
	assert.Equal(t, first.ID, second.ID)

	// a garbage cookie silently starts over
	req, rec = newRequest(http.MethodGet, "/v1/funnels/"+f.ID+"/session")
	req.AddCookie(&http.Cookie{Name: cookieName, Value: "garbage"})
	fix.server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var third echoapi.SessionResponse
	decodeBody(t, rec, &third)
	assert.NotEqual(t, first.ID, third.ID)
	assert.Equal(t, 0, third.CurrentStepIndex)
}

func Test_funnelApi_create(t *testing.T) {
	fix := setup(t)

	if _, err := fix.tenantSvc.IssueKey(context.Background(), "org1", "sk_test_123"); err != nil {
		t.Fatalf("IssueKey() failed: %v", err)
	}

	body := marshallObj(t, funnel.NewFunnel{
		OrgID: "ignored", // the verified org always wins
		Name:  "New Funnel",
		Steps: testutil.CoachingSteps(),
	})

	t.Run("API key required", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/funnels", body)
		fix.server.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong API key", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/funnels", body)
		req.Header.Set("X-Org-ID", "org1")
		req.Header.Set("X-Api-Key", "sk_wrong")
		fix.server.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("created", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/funnels", body)
		req.Header.Set("X-Org-ID", "org1")
		req.Header.Set("X-Api-Key", "sk_test_123")
		fix.server.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		var got funnel.Funnel
		decodeBody(t, rec, &got)
		assert.Equal(t, "org1", got.OrgID)
		assert.NotEmpty(t, got.ID)
	})

	t.Run("invalid step graph", func(t *testing.T) {
		steps := testutil.CoachingSteps()
		steps[1].ID = steps[0].ID // duplicate id

		req, rec := newRequest(http.MethodPost, "/v1/funnels", marshallObj(t, funnel.NewFunnel{
			OrgID: "org1",
			Name:  "Bad Funnel",
			Steps: steps,
		}))
		req.Header.Set("X-Org-ID", "org1")
		req.Header.Set("X-Api-Key", "sk_test_123")
		fix.server.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
