package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/peakform/funnel/core"
	"github.com/peakform/funnel/core/funnel"
	"github.com/peakform/funnel/core/session"
	"github.com/peakform/funnel/core/tenant"
)

var (
	errUnauthorized  = echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	errApiKeyMissing = echo.NewHTTPError(http.StatusUnauthorized, "a tenant API key is required")
	errApiKeyInvalid = echo.NewHTTPError(http.StatusForbidden, "invalid tenant API key")
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default:
			switch origErr {
			case session.ErrNotFound, funnel.ErrNotFound, tenant.ErrNotFound:
				code = http.StatusNotFound
				message = origErr.Error()
			case session.ErrExpired:
				code = http.StatusGone
				message = echo.Map{"error": origErr.Error(), "expired": true}
			case session.ErrUserConflict:
				code = http.StatusConflict
				message = echo.Map{"error": origErr.Error(), "choices": []string{"sign_out"}}
			case session.ErrOrgMismatch:
				// the caller must either confirm joining the funnel's org or sign out
				code = http.StatusConflict
				message = echo.Map{"error": origErr.Error(), "choices": []string{"join", "sign_out"}}
			case errEnrollmentFailed:
				code = http.StatusBadGateway
				message = echo.Map{"error": origErr.Error(), "retryable": true}
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg
				logger.Error(msg, errors.Wrap(err, msg))

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		} else if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
