package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/xid"

	"dreamclerk/internal/apperror"
	"dreamclerk/internal/auth"
	"dreamclerk/internal/domain"
	"dreamclerk/internal/validate"
)

const (
	defaultSource = "web"
	adminSource   = "admin-init"
	recentWindow  = 7 * 24 * time.Hour
	sweepBatch    = 100
)

type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email,max=254"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
	Name        string `json:"name" validate:"notblank,max=100"`
	DateOfBirth string `json:"dateOfBirth" validate:"omitempty,datetime=2006-01-02"`
	College     string `json:"college" validate:"omitempty,max=200"`
	Major       string `json:"major" validate:"omitempty,max=200"`
	Source      string `json:"source" validate:"omitempty,max=50"`
}

func (r *RegisterRequest) normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Name = strings.TrimSpace(r.Name)
	r.College = strings.TrimSpace(r.College)
	r.Major = strings.TrimSpace(r.Major)
	if r.Source == "" {
		r.Source = defaultSource
	}
}

type CreateAdminRequest struct {
	RegisterRequest
	Secret string `json:"secret"`
}

type UpdateProfileRequest struct {
	Name      *string  `json:"name" validate:"omitempty,notblank,max=100"`
	College   *string  `json:"college" validate:"omitempty,max=200"`
	Major     *string  `json:"major" validate:"omitempty,max=200"`
	Bio       *string  `json:"bio" validate:"omitempty,max=2000"`
	Interests []string `json:"interests" validate:"omitempty,max=20,dive,notblank,max=50"`
}

type LoginResult struct {
	Token   string              `json:"token"`
	Profile *domain.UserProfile `json:"profile"`
}

type RegistrationDeps struct {
	Users         AuthUserStore
	Profiles      ProfileStore
	Registrations RegistrationStore
	Settings      SettingsStore
	Attempts      SignupAttemptStore
	TxManager     TransactionManager
	Publisher     Publisher
	Counter       *CounterService
	Passwords     *auth.PasswordService
	Tokens        *auth.TokenService
}

// RegistrationService creates accounts. Account creation spans several
// writes; the auth user and profile must both exist or neither does, the
// remaining writes are best effort and reported per step.
type RegistrationService struct {
	users         AuthUserStore
	profiles      ProfileStore
	registrations RegistrationStore
	settings      SettingsStore
	attempts      SignupAttemptStore
	txManager     TransactionManager
	publisher     Publisher
	counter       *CounterService
	passwords     *auth.PasswordService
	tokens        *auth.TokenService
	adminSecret   string
	staleAfter    time.Duration
	logger        *slog.Logger
	now           func() time.Time
}

func NewRegistrationService(deps RegistrationDeps, adminSecret string, staleAfter time.Duration, logger *slog.Logger) *RegistrationService {
	return &RegistrationService{
		users:         deps.Users,
		profiles:      deps.Profiles,
		registrations: deps.Registrations,
		settings:      deps.Settings,
		attempts:      deps.Attempts,
		txManager:     deps.TxManager,
		publisher:     deps.Publisher,
		counter:       deps.Counter,
		passwords:     deps.Passwords,
		tokens:        deps.Tokens,
		adminSecret:   adminSecret,
		staleAfter:    staleAfter,
		logger:        logger.With("component", "registration"),
		now:           time.Now,
	}
}

// Register runs the step-by-step signup and records its progress so an
// interrupted attempt can be finished or undone by SweepStaleAttempts.
func (s *RegistrationService) Register(ctx context.Context, req RegisterRequest) (*domain.SignupResult, error) {
	return s.register(ctx, req, domain.RoleStudent)
}

// CreateAdmin registers an administrator. The request must carry the admin
// initialisation secret.
func (s *RegistrationService) CreateAdmin(ctx context.Context, req CreateAdminRequest) (*domain.SignupResult, error) {
	if res := auth.CheckSecret(req.Secret, s.adminSecret); !res.Allowed {
		s.logger.Warn("admin creation denied", "reason", res.Reason)
		return nil, apperror.Unauthorized("unauthorized")
	}

	if req.Source == "" {
		req.Source = adminSource
	}
	return s.register(ctx, req.RegisterRequest, domain.RoleAdmin)
}

func (s *RegistrationService) register(ctx context.Context, req RegisterRequest, role domain.Role) (*domain.SignupResult, error) {
	req.normalize()
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	if err := s.ensureEmailFree(ctx, req.Email); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	attempt := &domain.SignupAttempt{
		ID:          xid.New().String(),
		Email:       req.Email,
		Source:      req.Source,
		DateOfBirth: parseDate(req.DateOfBirth),
		Status:      domain.AttemptInProgress,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.attempts.Create(ctx, attempt); err != nil {
		return nil, apperror.Persistence("start signup", err)
	}

	user, err := s.newAuthUser(req, now)
	if err != nil {
		s.finish(ctx, attempt, domain.AttemptRolledBack, err)
		return nil, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		s.finish(ctx, attempt, domain.AttemptRolledBack, err)
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		return nil, apperror.Persistence("create account", err)
	}
	attempt.UserID = &user.ID
	s.advance(ctx, attempt, domain.StepAuthUser)

	profile := newProfile(user, req, role, now)
	if err := s.profiles.Insert(ctx, profile); err != nil {
		s.compensate(ctx, attempt, user.ID, err)
		return nil, apperror.Persistence("create profile", err)
	}
	s.advance(ctx, attempt, domain.StepProfile)

	result := &domain.SignupResult{
		Profile: profile,
		Steps: []domain.StepResult{
			{Step: domain.StepAuthUser},
			{Step: domain.StepProfile},
		},
	}

	rec := newRegistration(req, user.ID, now)
	optional := s.runOptionalSteps(ctx, rec, newSettings(user.ID, now), true)
	result.Steps = append(result.Steps, optional...)

	status := domain.AttemptCompleted
	var firstErr error
	for _, step := range optional {
		if !step.OK() {
			result.Degraded = true
			status = domain.AttemptDegraded
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", step.Step, step.Err)
			}
		}
	}
	s.finish(ctx, attempt, status, firstErr)

	s.logger.Info("user registered",
		"user_id", user.ID,
		"role", role,
		"source", req.Source,
		"degraded", result.Degraded,
	)

	return result, nil
}

// AtomicRegister writes the account, profile, registration record and
// settings in one transaction, then recomputes the counter.
func (s *RegistrationService) AtomicRegister(ctx context.Context, req RegisterRequest) (*domain.SignupResult, error) {
	req.normalize()
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	if err := s.ensureEmailFree(ctx, req.Email); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	user, err := s.newAuthUser(req, now)
	if err != nil {
		return nil, err
	}
	profile := newProfile(user, req, domain.RoleStudent, now)
	rec := newRegistration(req, user.ID, now)

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.users.Create(txCtx, user); err != nil {
			return fmt.Errorf("create account: %w", err)
		}
		if err := s.profiles.Insert(txCtx, profile); err != nil {
			return fmt.Errorf("create profile: %w", err)
		}
		if err := s.registrations.Insert(txCtx, rec); err != nil {
			return fmt.Errorf("record registration: %w", err)
		}
		if err := s.settings.Insert(txCtx, newSettings(user.ID, now)); err != nil {
			return fmt.Errorf("create settings: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		return nil, apperror.Persistence("register", err)
	}

	result := &domain.SignupResult{
		Profile: profile,
		Steps: []domain.StepResult{
			{Step: domain.StepAuthUser},
			{Step: domain.StepProfile},
			{Step: domain.StepRegistration},
			{Step: domain.StepSettings},
		},
	}

	counterStep := domain.StepResult{Step: domain.StepCounter}
	if _, err := s.counter.Reconcile(ctx); err != nil {
		counterStep.Err = err
		s.logger.Warn("counter reconcile after signup failed", "user_id", user.ID, "error", err)
	}
	result.Steps = append(result.Steps, counterStep)

	if step, ok := s.publishRegistration(ctx, rec); ok {
		result.Steps = append(result.Steps, step)
	}

	for _, step := range result.Steps {
		if !step.OK() {
			result.Degraded = true
		}
	}

	s.logger.Info("user registered atomically", "user_id", user.ID, "degraded", result.Degraded)

	return result, nil
}

func (s *RegistrationService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if s.tokens == nil {
		return nil, apperror.Configuration("JWT_SECRET")
	}

	invalid := apperror.Unauthorized("invalid email or password")

	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, invalid
	}
	if err != nil {
		return nil, apperror.Persistence("load account", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrInvalidPassword) {
			s.logger.Error("password verification failed", "user_id", user.ID, "error", err)
		}
		return nil, invalid
	}

	profile, err := s.profiles.Get(ctx, user.ID)
	if errors.Is(err, apperror.ErrNotFound) {
		s.logger.Warn("login for account without profile", "user_id", user.ID)
		return nil, invalid
	}
	if err != nil {
		return nil, apperror.Persistence("load profile", err)
	}

	now := s.now().UTC()
	if err := s.users.TouchLastSignIn(ctx, user.ID, now); err != nil {
		s.logger.Warn("failed to touch last sign-in", "user_id", user.ID, "error", err)
	}
	if err := s.profiles.TouchLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("failed to touch last login", "user_id", user.ID, "error", err)
	} else {
		profile.LastLoginAt = &now
	}

	token, err := s.tokens.Generate(user.ID, string(profile.Role))
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	return &LoginResult{Token: token, Profile: profile}, nil
}

func (s *RegistrationService) GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return profile, nil
}

func (s *RegistrationService) UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (*domain.UserProfile, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	if req.Name != nil {
		profile.Name = strings.TrimSpace(*req.Name)
	}
	if req.College != nil {
		profile.College = optional(*req.College)
	}
	if req.Major != nil {
		profile.Major = optional(*req.Major)
	}
	if req.Bio != nil {
		profile.Bio = optional(*req.Bio)
	}
	if req.Interests != nil {
		profile.Interests = req.Interests
	}
	profile.UpdatedAt = s.now().UTC()

	if err := s.profiles.Update(ctx, profile); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return profile, nil
}

// Stats summarises registrations and brings the counter in line with them.
func (s *RegistrationService) Stats(ctx context.Context) (*domain.RegistrationStats, error) {
	total, err := s.registrations.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count registrations: %w", err)
	}

	recent, err := s.registrations.CountSince(ctx, s.now().Add(-recentWindow))
	if err != nil {
		return nil, fmt.Errorf("count recent registrations: %w", err)
	}

	byStatus, err := s.registrations.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count registrations by status: %w", err)
	}

	stats := &domain.RegistrationStats{
		Total:    total,
		Recent:   recent,
		ByStatus: byStatus,
	}

	if res, err := s.counter.Reconcile(ctx); err != nil {
		s.logger.Warn("counter reconcile during stats failed", "error", err)
	} else {
		stats.Counter = *res
	}

	return stats, nil
}

// SweepStaleAttempts settles signups that stopped part way or finished
// degraded. An attempt whose profile exists has its remaining steps replayed;
// otherwise its auth user is removed. It returns how many attempts ended
// completed or rolled back.
func (s *RegistrationService) SweepStaleAttempts(ctx context.Context) (int, error) {
	stale, err := s.attempts.ListStale(ctx, s.now().Add(-s.staleAfter), sweepBatch)
	if err != nil {
		return 0, fmt.Errorf("list stale attempts: %w", err)
	}

	settled, resumed := 0, 0
	for i := range stale {
		attempt := &stale[i]
		logger := s.logger.With("attempt_id", attempt.ID)

		if attempt.UserID == nil {
			s.finish(ctx, attempt, domain.AttemptRolledBack, nil)
			settled++
			continue
		}
		userID := *attempt.UserID
		previous := attempt.Status

		profile, err := s.profiles.Get(ctx, userID)
		switch {
		case err == nil:
			now := s.now().UTC()
			rec := resumedRegistration(attempt, profile)
			status := domain.AttemptCompleted
			var firstErr error
			for _, step := range s.runOptionalSteps(ctx, rec, newSettings(userID, now), false) {
				if !step.OK() {
					status = domain.AttemptDegraded
					if firstErr == nil {
						firstErr = step.Err
					}
				}
			}
			s.finish(ctx, attempt, status, firstErr)
			logger.Info("resumed signup", "user_id", userID, "previous_status", previous, "status", status)
			resumed++
			if status == domain.AttemptCompleted {
				settled++
			}

		case errors.Is(err, apperror.ErrNotFound):
			if delErr := s.users.Delete(ctx, userID); delErr != nil {
				logger.Error("failed to remove orphaned account", "user_id", userID, "error", delErr)
				s.finish(ctx, attempt, domain.AttemptCompensationFailed, delErr)
				continue
			}
			s.finish(ctx, attempt, domain.AttemptRolledBack, nil)
			logger.Info("rolled back interrupted signup", "user_id", userID)
			settled++

		default:
			logger.Error("failed to inspect signup attempt", "error", err)
		}
	}

	if resumed > 0 {
		if _, err := s.counter.Reconcile(ctx); err != nil {
			s.logger.Warn("counter reconcile after sweep failed", "error", err)
		}
	}

	if len(stale) > 0 {
		s.logger.Info("signup sweep completed", "stale", len(stale), "settled", settled, "resumed", resumed)
	}

	return settled, nil
}

func (s *RegistrationService) ensureEmailFree(ctx context.Context, email string) error {
	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return apperror.Conflict("email already exists")
	case errors.Is(err, apperror.ErrNotFound):
		return nil
	default:
		return apperror.Persistence("check email", err)
	}
}

func (s *RegistrationService) newAuthUser(req RegisterRequest, now time.Time) (*domain.AuthUser, error) {
	hash, err := s.passwords.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return &domain.AuthUser{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: hash,
		CreatedAt:    now,
	}, nil
}

// runOptionalSteps performs the writes whose failure leaves the account usable.
func (s *RegistrationService) runOptionalSteps(ctx context.Context, rec *domain.RegistrationRecord, settings *domain.UserSettings, increment bool) []domain.StepResult {
	steps := make([]domain.StepResult, 0, 4)

	regStep := domain.StepResult{Step: domain.StepRegistration}
	if err := s.registrations.Insert(ctx, rec); err != nil {
		regStep.Err = err
	}
	steps = append(steps, regStep)

	steps = append(steps, domain.StepResult{
		Step: domain.StepSettings,
		Err:  s.settings.Insert(ctx, settings),
	})

	if increment && regStep.OK() {
		counterStep := domain.StepResult{Step: domain.StepCounter}
		if _, err := s.counter.Increment(ctx); err != nil {
			counterStep.Err = err
		}
		steps = append(steps, counterStep)
	}

	if regStep.OK() {
		if step, ok := s.publishRegistration(ctx, rec); ok {
			steps = append(steps, step)
		}
	}

	for _, step := range steps {
		if !step.OK() {
			s.logger.Warn("signup step failed",
				"user_id", rec.UserID,
				"step", step.Step,
				"error", step.Err,
			)
		}
	}

	return steps
}

func (s *RegistrationService) publishRegistration(ctx context.Context, rec *domain.RegistrationRecord) (domain.StepResult, bool) {
	if s.publisher == nil {
		return domain.StepResult{}, false
	}
	return domain.StepResult{
		Step: domain.StepPublish,
		Err:  s.publisher.PublishRegistration(ctx, rec),
	}, true
}

func (s *RegistrationService) advance(ctx context.Context, attempt *domain.SignupAttempt, step domain.SignupStep) {
	attempt.Step = step
	attempt.UpdatedAt = s.now().UTC()
	if err := s.attempts.Update(ctx, attempt); err != nil {
		s.logger.Warn("failed to record signup progress", "attempt_id", attempt.ID, "step", step, "error", err)
	}
}

func (s *RegistrationService) finish(ctx context.Context, attempt *domain.SignupAttempt, status domain.AttemptStatus, cause error) {
	attempt.Status = status
	attempt.UpdatedAt = s.now().UTC()
	attempt.LastError = nil
	if cause != nil {
		msg := cause.Error()
		attempt.LastError = &msg
	}
	if err := s.attempts.Update(ctx, attempt); err != nil {
		s.logger.Warn("failed to record signup outcome", "attempt_id", attempt.ID, "status", status, "error", err)
	}
}

// compensate removes the auth user created by a signup whose profile insert
// failed. If that fails too the attempt is left for the sweeper.
func (s *RegistrationService) compensate(ctx context.Context, attempt *domain.SignupAttempt, userID string, cause error) {
	if err := s.users.Delete(ctx, userID); err != nil {
		s.logger.Error("signup compensation failed",
			"attempt_id", attempt.ID,
			"user_id", userID,
			"cause", cause,
			"error", err,
		)
		s.finish(ctx, attempt, domain.AttemptCompensationFailed, err)
		return
	}
	s.logger.Warn("signup rolled back", "attempt_id", attempt.ID, "user_id", userID, "cause", cause)
	s.finish(ctx, attempt, domain.AttemptRolledBack, cause)
}

func newProfile(user *domain.AuthUser, req RegisterRequest, role domain.Role, now time.Time) *domain.UserProfile {
	return &domain.UserProfile{
		ID:        user.ID,
		Name:      req.Name,
		Email:     user.Email,
		Role:      role,
		College:   optional(req.College),
		Major:     optional(req.Major),
		Interests: []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func newRegistration(req RegisterRequest, userID string, now time.Time) *domain.RegistrationRecord {
	rec := &domain.RegistrationRecord{
		UserID:           userID,
		Email:            req.Email,
		Name:             req.Name,
		RegisteredAt:     now,
		Status:           domain.RegistrationActive,
		CompletedProfile: req.College != "" && req.Major != "",
		Source:           req.Source,
	}
	rec.DateOfBirth = parseDate(req.DateOfBirth)
	return rec
}

// resumedRegistration rebuilds the registration record of an interrupted
// signup from what the attempt and the stored profile remember.
func resumedRegistration(attempt *domain.SignupAttempt, profile *domain.UserProfile) *domain.RegistrationRecord {
	source := attempt.Source
	if source == "" {
		source = defaultSource
	}
	return &domain.RegistrationRecord{
		UserID:           profile.ID,
		Email:            profile.Email,
		Name:             profile.Name,
		DateOfBirth:      attempt.DateOfBirth,
		RegisteredAt:     profile.CreatedAt,
		Status:           domain.RegistrationActive,
		CompletedProfile: profile.College != nil && profile.Major != nil,
		Source:           source,
	}
}

func parseDate(v string) *time.Time {
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return nil
	}
	return &t
}

func newSettings(userID string, now time.Time) *domain.UserSettings {
	return &domain.UserSettings{
		UserID:             userID,
		EmailNotifications: true,
		Theme:              "system",
		CreatedAt:          now,
	}
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
