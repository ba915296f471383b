package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/noah-isme/sims-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/sims-enrollment-api/pkg/errors"
)

type dependencyCounter interface {
	Exists(ctx context.Context, kind models.DeletionKind, id string) (bool, error)
	Count(ctx context.Context, kind models.DeletionKind, id string) (models.DependentCounts, error)
}

// DeletionPolicy decides between hard and soft deletion before any mutation happens.
type DeletionPolicy struct {
	deps dependencyCounter
}

// NewDeletionPolicy constructs DeletionPolicy.
func NewDeletionPolicy(deps dependencyCounter) *DeletionPolicy {
	return &DeletionPolicy{deps: deps}
}

// ParseDeletionKind validates a kind path segment.
func ParseDeletionKind(raw string) (models.DeletionKind, error) {
	kind := models.DeletionKind(strings.ToLower(strings.TrimSpace(raw)))
	switch kind {
	case models.DeletionKindStudent, models.DeletionKindFaculty, models.DeletionKindCourse, models.DeletionKindSection:
		return kind, nil
	}
	return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported record kind %q", raw))
}

// Decide returns CanHardDelete when nothing references the record, MustSoftDelete otherwise.
func (p *DeletionPolicy) Decide(ctx context.Context, kind models.DeletionKind, id string) (*models.DeletionDecision, error) {
	exists, err := p.deps.Exists(ctx, kind, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load record")
	}
	if !exists {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s record not found", kind))
	}
	counts, err := p.deps.Count(ctx, kind, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count dependents")
	}
	return Decide(kind, id, counts), nil
}

// Decide is the pure form of the policy.
func Decide(kind models.DeletionKind, id string, counts models.DependentCounts) *models.DeletionDecision {
	decision := &models.DeletionDecision{Kind: kind, ID: id, Mode: models.CanHardDelete, Dependents: counts}

	var reasons []string
	switch kind {
	case models.DeletionKindStudent, models.DeletionKindSection:
		if counts.Enrollments > 0 {
			reasons = append(reasons, fmt.Sprintf("%d enrollment(s)", counts.Enrollments))
		}
	case models.DeletionKindFaculty:
		if counts.Sections > 0 {
			reasons = append(reasons, fmt.Sprintf("%d section(s)", counts.Sections))
		}
		if counts.CourseFaculty > 0 {
			reasons = append(reasons, fmt.Sprintf("%d course assignment(s)", counts.CourseFaculty))
		}
	case models.DeletionKindCourse:
		if counts.Enrollments > 0 {
			reasons = append(reasons, fmt.Sprintf("%d enrollment(s)", counts.Enrollments))
		}
		if counts.Sections > 0 {
			reasons = append(reasons, fmt.Sprintf("%d section(s)", counts.Sections))
		}
	}

	if len(reasons) > 0 {
		decision.Mode = models.MustSoftDelete
		decision.Reason = "referenced by " + strings.Join(reasons, " and ")
	}
	return decision
}
