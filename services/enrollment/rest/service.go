package restenroll

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/peakform/funnel/core"
)

// service finalizes enrollments against the billing backend over HTTP.
// The backend keys enrollments on session id, so retries are safe.
type service struct {
	baseURL string
	apiKey  string
	logger  core.Logger
}

var _ core.EnrollmentService = (*service)(nil)

func NewService(logger core.Logger) *service {
	return &service{
		baseURL: core.Conf.Enrollment.BaseURL,
		apiKey:  core.Conf.Enrollment.APIKey,
		logger:  logger,
	}
}

func (svc *service) Finalize(ctx context.Context, enr core.Enrollment) error {
	body, err := json.Marshal(enr)
	if err != nil {
		return errors.Wrap(err, "marshaling enrollment")
	}

	req := rest.Request{
		Method:  rest.Post,
		BaseURL: svc.baseURL + "/v1/enrollments",
		Headers: map[string]string{
			"Authorization":   "Bearer " + svc.apiKey,
			"Content-Type":    "application/json",
			"Idempotency-Key": enr.SessionID,
		},
		Body: body,
	}

	resp, err := rest.SendWithContext(ctx, req)
	if err != nil {
		return errors.Wrap(err, "finalizing enrollment")
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return errors.Errorf("finalizing enrollment: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
