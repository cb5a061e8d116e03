// Package service реализует бизнес-логику жизненного цикла пожертвований.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/foodrescue/internal/apperr"
	"github.com/mmeshcher/foodrescue/internal/lifecycle"
	"github.com/mmeshcher/foodrescue/internal/model"
	"github.com/mmeshcher/foodrescue/internal/repository"
)

// Repository описывает контракт хранилища пожертвований, используемый сервисом.
//
// Методы, выполняющие переходы, обязаны применять условие по исходному состоянию
// атомарно и возвращать repository.ErrConditionFailed, если ни одна запись не подошла.
type Repository interface {
	Close() error
	CreateDonation(ctx context.Context, nd model.NewDonation) (*model.Donation, error)
	GetDonation(ctx context.Context, id string) (*model.Donation, error)
	ListDonations(ctx context.Context, f model.DonationFilter) ([]model.Donation, error)
	CountDonations(ctx context.Context, f model.DonationFilter) (int64, error)
	ScheduledVolunteers(ctx context.Context, donorID string) ([]string, error)
	AssignVolunteer(ctx context.Context, id, volunteerID string) (*model.Donation, error)
	ReleaseVolunteer(ctx context.Context, id, volunteerID string) (*model.Donation, error)
	MarkPickedUp(ctx context.Context, donorID, volunteerID string, at time.Time) (int64, error)
	MarkCompleted(ctx context.Context, id, volunteerID, destinationID string, at time.Time) (*model.Donation, error)
	Withdraw(ctx context.Context, id string) (*model.Donation, error)
	DeleteDonation(ctx context.Context, id string) error
}

// ErrInvalidCredential возвращается, если код или отсканированный идентификатор
// не соответствует ни одному волонтёру, назначенному к поставщику.
var ErrInvalidCredential = apperr.New(apperr.KindInvalidInput, "confirmation credential does not match any scheduled volunteer")

// Options задаёт политики сервиса.
type Options struct {
	// DefaultDestinationID подставляется, если при завершении не указан получатель.
	// Пустое значение делает получателя обязательным.
	DefaultDestinationID string
	// ScanCrossCheck включает сверку отсканированного идентификатора с волонтёрами,
	// назначенными к поставщику.
	ScanCrossCheck bool
}

// Service содержит бизнес-логику сервиса.
type Service struct {
	repo   Repository
	logger *zap.Logger
	opts   Options
	now    func() time.Time
}

// NewService создаёт новый сервис с указанным хранилищем.
func NewService(repo Repository, logger *zap.Logger, opts Options) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:   repo,
		logger: logger,
		opts:   opts,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

var errDonationNotFound = apperr.New(apperr.KindNotFound, "donation not found")

// storeErr переводит ошибки хранилища в таксономию сервиса.
func storeErr(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrDonationNotFound), errors.Is(err, repository.ErrInvalidID):
		return errDonationNotFound
	case errors.Is(err, repository.ErrConditionFailed):
		return apperr.New(apperr.KindConflict, "donation was modified concurrently")
	}
	return apperr.Upstream(op, err)
}

// classify определяет причину, по которой условное обновление не затронуло запись.
// Чтение используется только для выбора вида ошибки и не влияет на запись.
func (s *Service) classify(ctx context.Context, op, id string, edge lifecycle.Edge, volunteerID string) error {
	d, err := s.repo.GetDonation(ctx, id)
	if err != nil {
		return storeErr(op, err)
	}

	if volunteerID != "" {
		if bound := d.BoundVolunteer(); bound != "" && bound != volunteerID {
			return apperr.New(apperr.KindForbidden, "donation is bound to another volunteer")
		}
	}

	if !edge.Allows(d.Status) {
		return apperr.Newf(apperr.KindConflict, "donation is %s, %s requires %s", d.Status, edge.Name, edge.From)
	}

	return apperr.New(apperr.KindConflict, "donation was modified concurrently")
}

// transitionErr обрабатывает ошибку условного перехода одной записи.
func (s *Service) transitionErr(ctx context.Context, op, id string, edge lifecycle.Edge, volunteerID string, err error) error {
	if errors.Is(err, repository.ErrConditionFailed) {
		return s.classify(ctx, op, id, edge, volunteerID)
	}
	return storeErr(op, err)
}

func invalid(format string, args ...any) error {
	return apperr.Newf(apperr.KindInvalidInput, format, args...)
}

func opName(edge lifecycle.Edge) string {
	return fmt.Sprintf("%s donation", edge.Name)
}
