package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/peakform/funnel/core"
	"github.com/peakform/funnel/core/funnel"
	"github.com/peakform/funnel/core/session"
)

var errEnrollmentFailed = errors.New("enrollment could not be finalized")

type sessionApi struct {
	svc      *session.Service
	validate *validator.Validate
}

func registerSessionAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := sessionApi{
		svc:      deps.SessionSvc,
		validate: deps.Validate,
	}

	sg := g.Group("/sessions")

	// un-authed endpoints; sessions start anonymous and link a user later
	sg.POST("", api.create)
	sg.GET("/:id", api.retrieve)
	sg.PATCH("/:id", api.patch)
	sg.DELETE("/:id", api.destroy)
	sg.POST("/:id/steps/:stepID/complete", api.completeStep)
	sg.POST("/:id/complete", api.complete)

	// authed endpoints
	sg.POST("/:id/link-user", api.linkUser, jwt)
}

// Handlers

func (api *sessionApi) create(ctx echo.Context) error {
	var data session.NewSession
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSession")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sess, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating session")
	}
	return ctx.JSON(http.StatusCreated, sess)
}

func (api *sessionApi) retrieve(ctx echo.Context) error {
	sess, expired, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting session")
	}
	return ctx.JSON(http.StatusOK, SessionResponse{Session: sess, Expired: expired})
}

func (api *sessionApi) patch(ctx echo.Context) error {
	var data session.SessionPatch
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SessionPatch")
	}

	sess, err := api.svc.Patch(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "patching session")
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *sessionApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting session")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *sessionApi) completeStep(ctx echo.Context) error {
	var data StepResultRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StepResultRequest")
	}

	res := session.StepResult{
		StepID:   ctx.Param("stepID"),
		Data:     data.Data,
		Accepted: data.Accepted,
	}
	adv, sess, err := api.svc.Advance(ctx.Request().Context(), ctx.Param("id"), res)
	if err != nil {
		return errors.Wrap(err, "advancing session")
	}
	return ctx.JSON(http.StatusOK, AdvanceResponse{
		NextIndex:   adv.NextIndex,
		Complete:    adv.Complete,
		RedirectURL: adv.RedirectURL,
		Session:     sess,
	})
}

func (api *sessionApi) complete(ctx echo.Context) error {
	var data CompleteRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CompleteRequest")
	}

	redirect, err := api.svc.Complete(ctx.Request().Context(), ctx.Param("id"), data.Data, data.Payment)
	if err != nil {
		switch errors.Cause(err) {
		case session.ErrNotFound, session.ErrExpired, funnel.ErrNotFound:
			return err
		}
		if _, ok := errors.Cause(err).(*core.ValidationError); ok {
			return err
		}
		// the enrollment collaborator is idempotent on the session id; the client
		// can safely retry this exact call
		return errors.Wrap(errEnrollmentFailed, err.Error())
	}
	return ctx.JSON(http.StatusOK, CompleteResponse{RedirectURL: redirect})
}

func (api *sessionApi) linkUser(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data LinkUserRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LinkUserRequest")
	}

	joinOrg := data.Confirm == "join"
	sess, err := api.svc.LinkUser(ctx.Request().Context(), ctx.Param("id"), claims.Subject, claims.OrgID, joinOrg)
	if err != nil {
		return errors.Wrap(err, "linking user")
	}
	return ctx.JSON(http.StatusOK, sess)
}

type (
	SessionResponse struct {
		session.Session
		Expired bool `json:"expired"`
	}

	StepResultRequest struct {
		Data     map[string]interface{} `json:"data,omitempty"`
		Accepted *bool                  `json:"accepted,omitempty"`
	}

	AdvanceResponse struct {
		NextIndex   int             `json:"next_index"`
		Complete    bool            `json:"complete"`
		RedirectURL string          `json:"redirect_url,omitempty"`
		Session     session.Session `json:"session"`
	}

	CompleteRequest struct {
		Data    map[string]interface{}  `json:"data,omitempty"`
		Payment *core.PaymentReferences `json:"payment,omitempty"`
	}

	CompleteResponse struct {
		RedirectURL string `json:"redirect_url"`
	}

	LinkUserRequest struct {
		// Confirm set to "join" resolves an org mismatch by joining the funnel's org.
		Confirm string `json:"confirm,omitempty"`
	}
)
