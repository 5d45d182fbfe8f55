package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"dreamclerk/internal/domain"
	"dreamclerk/internal/service/mocks"
)

type CounterServiceTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	registrations *mocks.MockRegistrationStore
	counters      *mocks.MockCounterStore
	txManager     *mocks.MockTransactionManager

	service *CounterService
}

func (s *CounterServiceTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())

	s.registrations = mocks.NewMockRegistrationStore(s.ctrl)
	s.counters = mocks.NewMockCounterStore(s.ctrl)
	s.txManager = mocks.NewMockTransactionManager(s.ctrl)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	s.service = NewCounterService(s.registrations, s.counters, s.txManager, logger)

	s.txManager.EXPECT().WithTransaction(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		},
	).AnyTimes()
}

func (s *CounterServiceTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestCounterServiceTestSuite(t *testing.T) {
	suite.Run(t, new(CounterServiceTestSuite))
}

func (s *CounterServiceTestSuite) TestReconcile_FixesDriftThenReportsNoChange() {
	ctx := context.Background()

	s.counters.EXPECT().Lock(ctx, domain.UserCounter).Return(nil).Times(2)
	s.registrations.EXPECT().Count(ctx).Return(int64(7), nil).Times(2)
	gomock.InOrder(
		s.counters.EXPECT().Get(ctx, domain.UserCounter).Return(&domain.CounterStat{Name: domain.UserCounter, Count: 5}, nil),
		s.counters.EXPECT().Set(ctx, domain.UserCounter, int64(7)).Return(nil),
		s.counters.EXPECT().Get(ctx, domain.UserCounter).Return(&domain.CounterStat{Name: domain.UserCounter, Count: 7}, nil),
	)

	first, err := s.service.Reconcile(ctx)
	s.Require().NoError(err)
	s.Equal(domain.ReconcileResult{PreviousCount: 5, NewCount: 7, Changed: true}, *first)

	second, err := s.service.Reconcile(ctx)
	s.Require().NoError(err)
	s.Equal(domain.ReconcileResult{PreviousCount: 7, NewCount: 7, Changed: false}, *second)
}

func (s *CounterServiceTestSuite) TestReconcile_MissingRowCountsAsZero() {
	ctx := context.Background()

	s.counters.EXPECT().Lock(ctx, domain.UserCounter).Return(nil)
	s.registrations.EXPECT().Count(ctx).Return(int64(3), nil)
	s.counters.EXPECT().Get(ctx, domain.UserCounter).Return(&domain.CounterStat{Name: domain.UserCounter}, nil)
	s.counters.EXPECT().Set(ctx, domain.UserCounter, int64(3)).Return(nil)

	result, err := s.service.Reconcile(ctx)

	s.Require().NoError(err)
	s.Equal(int64(0), result.PreviousCount)
	s.Equal(int64(3), result.NewCount)
	s.True(result.Changed)
}

func (s *CounterServiceTestSuite) TestReconcile_EmptyTablesNoChange() {
	ctx := context.Background()

	s.counters.EXPECT().Lock(ctx, domain.UserCounter).Return(nil)
	s.registrations.EXPECT().Count(ctx).Return(int64(0), nil)
	s.counters.EXPECT().Get(ctx, domain.UserCounter).Return(&domain.CounterStat{Name: domain.UserCounter}, nil)

	result, err := s.service.Reconcile(ctx)

	s.Require().NoError(err)
	s.False(result.Changed)
}

func (s *CounterServiceTestSuite) TestReconcile_CountFailureWritesNothing() {
	ctx := context.Background()

	s.counters.EXPECT().Lock(ctx, domain.UserCounter).Return(nil)
	s.registrations.EXPECT().Count(ctx).Return(int64(0), errors.New("relation does not exist"))

	result, err := s.service.Reconcile(ctx)

	s.Nil(result)
	s.ErrorContains(err, "count registrations")
}

func (s *CounterServiceTestSuite) TestReconcile_LockFailure() {
	ctx := context.Background()

	s.counters.EXPECT().Lock(ctx, domain.UserCounter).Return(errors.New("deadlock detected"))

	_, err := s.service.Reconcile(ctx)

	s.ErrorContains(err, "lock counter")
}

func (s *CounterServiceTestSuite) TestIncrement() {
	ctx := context.Background()

	s.counters.EXPECT().Lock(ctx, domain.UserCounter).Return(nil)
	s.counters.EXPECT().Increment(ctx, domain.UserCounter).Return(int64(42), nil)

	count, err := s.service.Increment(ctx)

	s.Require().NoError(err)
	s.Equal(int64(42), count)
}

func (s *CounterServiceTestSuite) TestCurrent() {
	ctx := context.Background()

	s.counters.EXPECT().Get(ctx, domain.UserCounter).Return(&domain.CounterStat{Name: domain.UserCounter, Count: 9}, nil)

	stat, err := s.service.Current(ctx)

	s.Require().NoError(err)
	s.Equal(int64(9), stat.Count)
}
