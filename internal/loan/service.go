package loan

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"locallibrary/internal/auth"
	"locallibrary/internal/catalog"
)

// RenewRequest is one call to the renewal workflow. DueBack is nil when the
// caller submitted no date.
type RenewRequest struct {
	InstanceID string
	Caller     auth.Caller
	Method     string
	DueBack    *time.Time
}

// RenewResult is either the form state to (re)display or a completed renewal.
type RenewResult struct {
	Instance catalog.BookInstance
	DueBack  time.Time
	Errors   ValidationErrors
	Renewed  bool
}

type Option func(*Service)

// WithClock replaces the source of "today".
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Renew runs the renewal workflow for one copy.
//
// The permission check comes first and does not depend on the method or the
// payload. A POST with an acceptable date overwrites due_back; any other
// method only proposes a date. Validation failures are reported in
// RenewResult.Errors with a nil error and leave the copy untouched.
func (s *Service) Renew(ctx context.Context, req RenewRequest) (RenewResult, error) {
	if err := req.Caller.Require(auth.PermMarkReturned); err != nil {
		return RenewResult{}, err
	}

	instance, err := s.repo.GetInstance(ctx, req.InstanceID)
	if err != nil {
		return RenewResult{}, err
	}

	now := s.now()
	if req.Method != http.MethodPost {
		return RenewResult{Instance: instance, DueBack: ProposedDueBack(now)}, nil
	}

	if req.DueBack == nil {
		return RenewResult{
			Instance: instance,
			Errors:   ValidationErrors{{Field: "due_back", Message: "due_back is required"}},
		}, nil
	}

	dueBack := catalog.Today(*req.DueBack)
	if err := ValidateRenewalDate(dueBack, now); err != nil {
		return RenewResult{
			Instance: instance,
			DueBack:  dueBack,
			Errors:   ValidationErrors{{Field: "due_back", Message: renewalMessage(err)}},
		}, nil
	}

	if err := s.repo.UpdateDueBack(ctx, instance.ID, dueBack); err != nil {
		return RenewResult{}, fmt.Errorf("renew %s: %w", instance.ID, err)
	}
	instance.DueBack = catalog.NewDate(dueBack)

	return RenewResult{Instance: instance, DueBack: dueBack, Renewed: true}, nil
}
