package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/peakform/funnel/core/funnel"
	"github.com/peakform/funnel/core/session"
)

var sessionCookiePrefix = "fnl_session_"

type funnelApi struct {
	svc        *funnel.Service
	sessionSvc *session.Service
	validate   *validator.Validate
	translator ut.Translator
}

func registerFunnelAPI(g *echo.Group, apiKey echo.MiddlewareFunc, deps ServerDeps) {
	api := funnelApi{
		svc:        deps.FunnelSvc,
		sessionSvc: deps.SessionSvc,
		validate:   deps.Validate,
		translator: deps.Translator,
	}

	fg := g.Group("/funnels")

	// un-authed endpoints; the funnel definition is what the visitor's UI renders
	fg.GET("/:id", api.retrieve)
	fg.GET("/:id/session", api.resumeSession)

	// tenant management endpoints
	tg := fg.Group("", apiKey)
	tg.POST("", api.create)
	tg.GET("", api.query)
}

// Handlers

func (api *funnelApi) retrieve(ctx echo.Context) error {
	f, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting funnel")
	}
	// invite codes are tenant secrets
	f.InviteCodes = nil
	return ctx.JSON(http.StatusOK, f)
}

// resumeSession is the visitor's entry point: it restores the session the browser
// points at via cookie, or starts a fresh one when the pointer is missing, malformed,
// expired, completed or belongs to another funnel. The visitor never sees an error
// for a bad pointer; they just start over at step 0.
func (api *funnelApi) resumeSession(ctx echo.Context) error {
	funnelID := ctx.Param("id")

	ns := session.NewSession{
		FunnelID:   funnelID,
		InviteCode: ctx.QueryParam("invite_code"),
		ReferrerID: ctx.QueryParam("referrer_id"),
	}
	if err := ns.Validate(api.validate); err != nil {
		return err
	}

	var pointer string
	if cookie, err := ctx.Cookie(sessionCookiePrefix + funnelID); err == nil {
		pointer = cookie.Value
	}

	sess, err := api.sessionSvc.Reconcile(ctx.Request().Context(), ns, pointer)
	if err != nil {
		return errors.Wrap(err, "reconciling session")
	}

	ctx.SetCookie(&http.Cookie{
		Name:     sessionCookiePrefix + funnelID,
		Value:    sess.ID,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return ctx.JSON(http.StatusOK, SessionResponse{Session: sess})
}

func (api *funnelApi) create(ctx echo.Context) error {
	orgID, err := getContextOrg(ctx)
	if err != nil {
		return err
	}

	var data funnel.NewFunnel
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewFunnel")
	}
	data.OrgID = orgID // the verified tenant owns the funnel, whatever the body says
	if err := data.Validate(api.validate, api.translator); err != nil {
		return err
	}

	f, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating funnel")
	}
	return ctx.JSON(http.StatusCreated, f)
}

func (api *funnelApi) query(ctx echo.Context) error {
	orgID, err := getContextOrg(ctx)
	if err != nil {
		return err
	}

	all, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying funnels")
	}

	funnels := make([]funnel.Funnel, 0, len(all))
	for _, f := range all {
		if f.OrgID == orgID {
			funnels = append(funnels, f)
		}
	}
	return ctx.JSON(http.StatusOK, funnels)
}
