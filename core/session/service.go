package session

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/peakform/funnel/core"
	"github.com/peakform/funnel/core/funnel"
)

var (
	// errors
	ErrNotFound     = errors.New("session not found")
	ErrExpired      = errors.New("session has expired")
	ErrUserConflict = errors.New("session is linked to another user")
	ErrOrgMismatch  = errors.New("authenticated user belongs to a different organization")

	errInviteRequired = errors.New("a valid invite code is required for this funnel")
)

type (
	Repository interface {
		CreateSession(ctx context.Context, sess Session) (Session, error)
		GetSessionByID(ctx context.Context, id string) (Session, error)
		// PatchSession merges patch.Data over the stored data (overlay, non-destructive)
		// and overwrites the index fields when set.
		PatchSession(ctx context.Context, id string, patch SessionPatch) (Session, error)
		LinkSessionUser(ctx context.Context, id, userID string) (Session, error)
		// MarkSessionCompleted stamps CompletedAt and RedirectURL, only if not already set.
		MarkSessionCompleted(ctx context.Context, id, redirectURL string) (Session, error)
		DeleteSession(ctx context.Context, id string) error
	}

	Service struct {
		repo      Repository
		funnelSvc *funnel.Service
		enrollSvc core.EnrollmentService
		mailSvc   core.EmailService
		logger    core.Logger
	}
)

func NewService(
	repo Repository,
	funnelSvc *funnel.Service,
	enrollSvc core.EnrollmentService,
	mailSvc core.EmailService,
	logger core.Logger,
) *Service {
	return &Service{
		repo:      repo,
		funnelSvc: funnelSvc,
		enrollSvc: enrollSvc,
		mailSvc:   mailSvc,
		logger:    logger,
	}
}

// Create starts a fresh session at step 0 with empty answer data, enforcing the
// funnel's access policy. Prepaid invite codes flag the session to skip payment steps.
func (svc *Service) Create(ctx context.Context, ns NewSession) (Session, error) {
	f, err := svc.funnelSvc.GetByID(ctx, ns.FunnelID)
	if err != nil {
		if errors.Cause(err) == funnel.ErrNotFound {
			return Session{}, core.NewValidationError(err, core.FieldError{Field: "funnel_id", Error: err.Error()})
		}
		return Session{}, errors.Wrap(err, "getting funnel")
	}

	var skipPayment bool
	if f.Access == funnel.AccessInvite {
		invite, ok := f.FindInvite(ns.InviteCode)
		if !ok {
			return Session{}, core.NewValidationError(errInviteRequired,
				core.FieldError{Field: "invite_code", Error: errInviteRequired.Error()})
		}
		skipPayment = invite.Prepaid
	}

	now := time.Now().UTC()
	sess := Session{
		ID:                 NewToken(),
		FunnelID:           f.ID,
		OrgID:              f.OrgID,
		CurrentStepIndex:   0,
		CompletedStepIndex: -1,
		Data:               make(map[string]interface{}),
		SkipPayment:        skipPayment,
		InviteCode:         ns.InviteCode,
		ReferrerID:         ns.ReferrerID,
		CreatedAt:          now,
		UpdatedAt:          now,
		ExpiresAt:          now.Add(core.Conf.Session.TTL),
	}
	return svc.repo.CreateSession(ctx, sess)
}

// Get returns the session and whether it is past its expiry. Expired records are
// reported, not deleted; recovery decides what to do with them.
func (svc *Service) Get(ctx context.Context, id string) (Session, bool, error) {
	sess, err := svc.repo.GetSessionByID(ctx, id)
	if err != nil {
		return Session{}, false, err
	}
	return sess, sess.Expired(time.Now().UTC()), nil
}

// Patch applies a merge-semantics partial update, holding the index invariant:
// 0 <= index <= len(steps).
func (svc *Service) Patch(ctx context.Context, id string, patch SessionPatch) (Session, error) {
	sess, err := svc.repo.GetSessionByID(ctx, id)
	if err != nil {
		return Session{}, err
	}
	f, err := svc.funnelSvc.GetByID(ctx, sess.FunnelID)
	if err != nil {
		return Session{}, errors.Wrap(err, "getting funnel")
	}

	if idx := patch.CurrentStepIndex; idx != nil && (*idx < 0 || *idx > len(f.Steps)) {
		return Session{}, core.NewValidationError(errors.New("step index out of range"),
			core.FieldError{Field: "current_step_index", Error: "out of range"})
	}
	if idx := patch.CompletedStepIndex; idx != nil && (*idx < -1 || *idx >= len(f.Steps)) {
		return Session{}, core.NewValidationError(errors.New("step index out of range"),
			core.FieldError{Field: "completed_step_index", Error: "out of range"})
	}
	return svc.repo.PatchSession(ctx, id, patch)
}

// LinkUser attaches the authenticated user to the session. It is idempotent: linking
// the same user again is a no-op. joinOrg confirms joining the funnel's organization
// when the user's home organization differs.
func (svc *Service) LinkUser(ctx context.Context, id, userID, userOrgID string, joinOrg bool) (Session, error) {
	sess, err := svc.repo.GetSessionByID(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if sess.UserID == userID {
		return sess, nil
	}
	if sess.UserID != "" {
		return Session{}, ErrUserConflict
	}
	if userOrgID != "" && userOrgID != sess.OrgID && !joinOrg {
		return Session{}, ErrOrgMismatch
	}
	return svc.repo.LinkSessionUser(ctx, id, userID)
}

// Advance handles one step-completion event: it records the answer data, routes
// upsell declines to their linked downsell, and otherwise asks the Navigator for the
// next step. Persistence is fire-and-forget: a failed patch is logged and navigation
// proceeds on the in-memory state, which stays canonical for the rest of the session.
func (svc *Service) Advance(ctx context.Context, id string, res StepResult) (funnel.Advance, Session, error) {
	sess, err := svc.repo.GetSessionByID(ctx, id)
	if err != nil {
		return funnel.Advance{}, Session{}, err
	}
	if sess.Expired(time.Now().UTC()) {
		return funnel.Advance{}, Session{}, ErrExpired
	}
	f, err := svc.funnelSvc.GetByID(ctx, sess.FunnelID)
	if err != nil {
		return funnel.Advance{}, Session{}, errors.Wrap(err, "getting funnel")
	}

	idx, ok := f.StepIndexByID(res.StepID)
	if !ok {
		return funnel.Advance{}, Session{}, core.NewValidationError(errors.New("unknown step"),
			core.FieldError{Field: "step_id", Error: "unknown step " + res.StepID})
	}
	step := f.Steps[idx]

	if sess.Data == nil {
		sess.Data = make(map[string]interface{})
	}
	for k, v := range res.Data {
		sess.Data[k] = v
	}
	if res.Accepted != nil {
		sess.Data[step.ID+".accepted"] = *res.Accepted
	}

	nav := funnel.NewNavState(idx)
	var adv funnel.Advance
	switch {
	case offerStep(step.Type) && res.Accepted != nil && !*res.Accepted:
		if jump, ok := nav.Branches.Decline(f.Steps, step); ok {
			adv = funnel.Advance{NextIndex: jump}
			break
		}
		adv = nav.Next(f.Steps, sess.Data, sess.SkipPayment)
	default:
		if offerStep(step.Type) {
			nav.Branches.Accept(step.ID)
		}
		adv = nav.Next(f.Steps, sess.Data, sess.SkipPayment)
	}

	currentIndex := adv.NextIndex
	if adv.Complete {
		currentIndex = len(f.Steps)
	}
	completedIndex := sess.CompletedStepIndex
	if idx > completedIndex {
		completedIndex = idx
	}

	sess.CurrentStepIndex = currentIndex
	sess.CompletedStepIndex = completedIndex

	patch := SessionPatch{
		CurrentStepIndex:   &currentIndex,
		CompletedStepIndex: &completedIndex,
		Data:               res.Data,
	}
	if res.Accepted != nil {
		// own copy: the accepted marker must not leak into the caller's map
		data := make(map[string]interface{}, len(res.Data)+1)
		for k, v := range res.Data {
			data[k] = v
		}
		data[step.ID+".accepted"] = *res.Accepted
		patch.Data = data
	}
	if _, err := svc.repo.PatchSession(ctx, id, patch); err != nil {
		svc.logger.Error(fmt.Sprintf("persisting session %s: %v", id, err), err)
	}

	return adv, sess, nil
}

// Complete finalizes the funnel exactly once. The enrollment collaborator is
// idempotent keyed on the session id and this method always passes the same id,
// never synthesizing a new one mid-flow. Re-completing an already completed session
// returns the stored redirect without a second finalize.
func (svc *Service) Complete(ctx context.Context, id string, finalData map[string]interface{}, payRefs *core.PaymentReferences) (string, error) {
	sess, err := svc.repo.GetSessionByID(ctx, id)
	if err != nil {
		return "", err
	}
	if sess.Completed() {
		return sess.RedirectURL, nil
	}
	f, err := svc.funnelSvc.GetByID(ctx, sess.FunnelID)
	if err != nil {
		return "", errors.Wrap(err, "getting funnel")
	}

	if len(finalData) > 0 {
		if sess, err = svc.repo.PatchSession(ctx, id, SessionPatch{Data: finalData}); err != nil {
			return "", errors.Wrap(err, "merging final data")
		}
	}

	enr := core.Enrollment{
		SessionID: sess.ID,
		FunnelID:  sess.FunnelID,
		OrgID:     sess.OrgID,
		UserID:    sess.UserID,
		Data:      sess.Data,
		Payment:   payRefs,
	}
	if err := svc.enrollSvc.Finalize(ctx, enr); err != nil {
		return "", errors.Wrap(err, "finalizing enrollment")
	}

	redirect := completionRedirect(f)
	if _, err := svc.repo.MarkSessionCompleted(ctx, id, redirect); err != nil {
		// finalize already happened; a retry is safe since the collaborator is idempotent
		return "", errors.Wrap(err, "marking session completed")
	}

	svc.sendConfirmationMail(sess)
	return redirect, nil
}

// Delete removes the server record. Completion does not call this (the record is
// kept as an audit trail) but tenants can purge abandoned sessions.
func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteSession(ctx, id)
}

// completionRedirect picks the step-configured custom redirect, falling back to the
// platform default.
func completionRedirect(f funnel.Funnel) string {
	for _, s := range f.Steps {
		if s.Type == funnel.StepSuccess && s.Config.Success != nil && s.Config.Success.RedirectURL != "" {
			return s.Config.Success.RedirectURL
		}
	}
	return core.Conf.DefaultRedirectURL
}

func offerStep(t funnel.StepType) bool {
	return t == funnel.StepUpsell || t == funnel.StepDownsell
}

func (svc *Service) sendConfirmationMail(sess Session) {
	email, _ := sess.Data["email"].(string)
	if email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Address: email}},
		Subject: "You're in!",
		BodyStr: "Your enrollment is confirmed. Welcome aboard.",
	})
}
