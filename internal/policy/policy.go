package policy

import (
	"context"
	"time"

	"comms-service/internal/models"
)

// DenyReason distinguishes policy denials the UI must surface differently:
// a wrong recipient is not the same as a right recipient at the wrong time.
type DenyReason string

const (
	DenyUnauthorizedPair   DenyReason = "unauthorized_pair"
	DenyOutsideOfficeHours DenyReason = "outside_office_hours"
)

// Decision is the outcome of a policy evaluation.
type Decision struct {
	Allowed                bool       `json:"allowed"`
	Reason                 DenyReason `json:"reason,omitempty"`
	RequiresGuardianMirror bool       `json:"requires_guardian_mirror"`
	ForcesEncryption       bool       `json:"forces_encryption"`
}

// Directory exposes the read side of the relationship graph.
type Directory interface {
	IsGuardian(ctx context.Context, parentID, childID int64) (bool, error)
	Teaches(ctx context.Context, teacherID, childID int64) (bool, error)
}

// Gate answers the office-hours predicate for a teacher at a given time.
type Gate interface {
	IsOpen(ctx context.Context, teacherID int64, now time.Time) (bool, error)
}

// Engine is the single authoritative decision point for whether a sender
// may message a recipient about a child right now. It only reads; it is
// safe to call speculatively from a compose-time precheck.
type Engine struct {
	dir  Directory
	gate Gate
}

// NewEngine builds the policy engine.
func NewEngine(dir Directory, gate Gate) *Engine {
	return &Engine{dir: dir, gate: gate}
}

// Evaluate applies the role-pair matrix in order; the first matching rule
// wins and anything unmatched is denied.
func (e *Engine) Evaluate(ctx context.Context, sender, recipient models.Account, childID int64, now time.Time) (Decision, error) {
	deny := func(reason DenyReason) Decision {
		return Decision{Allowed: false, Reason: reason}
	}

	if sender.ID == recipient.ID {
		return deny(DenyUnauthorizedPair), nil
	}

	switch {
	case pairIs(sender, recipient, models.RoleParent, models.RoleTeacher):
		parent, teacher := oriented(sender, recipient, models.RoleParent)
		guards, err := e.dir.IsGuardian(ctx, parent.ID, childID)
		if err != nil {
			return Decision{}, err
		}
		teaches, err := e.dir.Teaches(ctx, teacher.ID, childID)
		if err != nil {
			return Decision{}, err
		}
		if !guards || !teaches {
			return deny(DenyUnauthorizedPair), nil
		}
		// The parent is already a party, so no mirror is needed.
		return Decision{Allowed: true, ForcesEncryption: true}, nil

	case pairIs(sender, recipient, models.RoleStudent, models.RoleTeacher):
		student, teacher := oriented(sender, recipient, models.RoleStudent)
		// A student thread is always anchored on the student themself.
		if childID != student.ID {
			return deny(DenyUnauthorizedPair), nil
		}
		teaches, err := e.dir.Teaches(ctx, teacher.ID, student.ID)
		if err != nil {
			return Decision{}, err
		}
		if !teaches {
			return deny(DenyUnauthorizedPair), nil
		}
		open, err := e.gate.IsOpen(ctx, teacher.ID, now)
		if err != nil {
			return Decision{}, err
		}
		if !open {
			return deny(DenyOutsideOfficeHours), nil
		}
		return Decision{Allowed: true, RequiresGuardianMirror: true}, nil

	default:
		return deny(DenyUnauthorizedPair), nil
	}
}

func pairIs(a, b models.Account, r1, r2 models.Role) bool {
	return (a.Role == r1 && b.Role == r2) || (a.Role == r2 && b.Role == r1)
}

// oriented returns (x, y) where x holds the wanted role and y is the other
// participant. Callers guarantee exactly one side matches.
func oriented(a, b models.Account, want models.Role) (models.Account, models.Account) {
	if a.Role == want {
		return a, b
	}
	return b, a
}
