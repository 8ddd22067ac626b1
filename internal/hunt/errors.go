package hunt

import (
	"errors"
	"strings"
)

// Business-rule violations. The error text is the stable taxonomy key
// returned to clients.
var (
	ErrGameNotActive     = errors.New("game_not_active")
	ErrInvalidCode       = errors.New("invalid_code")
	ErrMustStartAtStart  = errors.New("must_start_at_start_node")
	ErrAlreadyScanned    = errors.New("already_scanned")
	ErrPasswordRequired  = errors.New("password_required")
	ErrIncorrectPassword = errors.New("incorrect_password")
	ErrNoHintAvailable   = errors.New("no_hint_available")
	ErrInvalidTransition = errors.New("invalid_transition")
	ErrNodeNotInTeamGame = errors.New("node_not_in_team_game")
	ErrValidation        = errors.New("validation_failed")
	ErrDuplicate         = errors.New("duplicate")
	ErrTransient         = errors.New("store_unavailable")
)

// Not-found errors.
var (
	ErrNotFound     = errors.New("not_found")
	ErrGameNotFound = &NotFoundError{Kind: "game"}
	ErrNodeNotFound = &NotFoundError{Kind: "node"}
	ErrTeamNotFound = &NotFoundError{Kind: "team"}
)

type NotFoundError struct {
	Kind string
}

func (e *NotFoundError) Error() string { return e.Kind + "_not_found" }

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// Lifecycle preconditions reported by ValidationError.
const (
	MissingNodes         = "no_nodes"
	MissingStartNode     = "no_start_node"
	MissingEndNode       = "no_end_node"
	MissingActivatedNode = "no_activated_node"
)

// ValidationError lists every precondition a game failed.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return ErrValidation.Error() + ": " + strings.Join(e.Missing, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

var businessRules = []error{
	ErrGameNotActive, ErrInvalidCode, ErrMustStartAtStart, ErrAlreadyScanned,
	ErrPasswordRequired, ErrIncorrectPassword, ErrNoHintAvailable,
	ErrInvalidTransition, ErrNodeNotInTeamGame,
}

// IsBusinessRule reports whether err is a terminal, user-facing rule violation.
func IsBusinessRule(err error) bool {
	for _, target := range businessRules {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Code returns the taxonomy key of err, or "" for errors outside the taxonomy.
func Code(err error) string {
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return nf.Error()
	}
	for _, target := range businessRules {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	for _, target := range []error{ErrValidation, ErrNotFound, ErrDuplicate, ErrTransient} {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return ""
}
