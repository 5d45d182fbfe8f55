package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"dreamclerk/internal/domain"
)

// CounterService owns every write to the user counter. Writers are
// serialized by a mutex within the process and by an advisory lock in the
// database across processes.
type CounterService struct {
	registrations RegistrationStore
	counters      CounterStore
	txManager     TransactionManager
	logger        *slog.Logger
	mu            sync.Mutex
}

func NewCounterService(
	registrations RegistrationStore,
	counters CounterStore,
	txManager TransactionManager,
	logger *slog.Logger,
) *CounterService {
	return &CounterService{
		registrations: registrations,
		counters:      counters,
		txManager:     txManager,
		logger:        logger.With("counter", domain.UserCounter),
	}
}

// Reconcile recomputes the counter from the registration records and
// overwrites it when the two disagree.
func (s *CounterService) Reconcile(ctx context.Context) (*domain.ReconcileResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result domain.ReconcileResult

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.counters.Lock(txCtx, domain.UserCounter); err != nil {
			return fmt.Errorf("lock counter: %w", err)
		}

		actual, err := s.registrations.Count(txCtx)
		if err != nil {
			return fmt.Errorf("count registrations: %w", err)
		}

		current, err := s.counters.Get(txCtx, domain.UserCounter)
		if err != nil {
			return fmt.Errorf("get counter: %w", err)
		}

		result = domain.ReconcileResult{
			PreviousCount: current.Count,
			NewCount:      actual,
			Changed:       current.Count != actual,
		}

		if !result.Changed {
			return nil
		}

		if err := s.counters.Set(txCtx, domain.UserCounter, actual); err != nil {
			return fmt.Errorf("set counter: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Changed {
		s.logger.Info("counter reconciled",
			"previous", result.PreviousCount,
			"actual", result.NewCount,
		)
	} else {
		s.logger.Debug("counter already consistent", "count", result.NewCount)
	}

	return &result, nil
}

// Increment adds one registration to the counter.
func (s *CounterService) Increment(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.counters.Lock(txCtx, domain.UserCounter); err != nil {
			return fmt.Errorf("lock counter: %w", err)
		}

		n, err := s.counters.Increment(txCtx, domain.UserCounter)
		if err != nil {
			return fmt.Errorf("increment counter: %w", err)
		}
		count = n
		return nil
	})
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Current reads the counter without modifying it.
func (s *CounterService) Current(ctx context.Context) (*domain.CounterStat, error) {
	stat, err := s.counters.Get(ctx, domain.UserCounter)
	if err != nil {
		return nil, fmt.Errorf("get counter: %w", err)
	}
	return stat, nil
}
