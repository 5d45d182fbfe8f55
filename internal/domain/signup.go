package domain

import "time"

type SignupStep string

const (
	StepAuthUser     SignupStep = "auth_user"
	StepProfile      SignupStep = "profile"
	StepRegistration SignupStep = "registration"
	StepSettings     SignupStep = "settings"
	StepCounter      SignupStep = "counter"
	StepPublish      SignupStep = "publish"
)

type AttemptStatus string

const (
	AttemptInProgress         AttemptStatus = "in_progress"
	AttemptCompleted          AttemptStatus = "completed"
	AttemptDegraded           AttemptStatus = "degraded"
	AttemptRolledBack         AttemptStatus = "rolled_back"
	AttemptCompensationFailed AttemptStatus = "compensation_failed"
)

// SignupAttempt tracks a multi-step registration so that interrupted
// attempts can be resumed or rolled back by the sweeper.
type SignupAttempt struct {
	ID          string        `db:"id"`
	Email       string        `db:"email"`
	UserID      *string       `db:"user_id"`
	Source      string        `db:"source"`
	DateOfBirth *time.Time    `db:"date_of_birth"`
	Step        SignupStep    `db:"step"`
	Status      AttemptStatus `db:"status"`
	LastError   *string       `db:"last_error"`
	CreatedAt   time.Time     `db:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at"`
}

type StepResult struct {
	Step SignupStep
	Err  error
}

func (r StepResult) OK() bool {
	return r.Err == nil
}

type SignupResult struct {
	Profile  *UserProfile
	Steps    []StepResult
	Degraded bool
}
