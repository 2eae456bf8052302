package service

import (
	"context"

	"go-gin-ticket-ledger/internal/model"
	"go-gin-ticket-ledger/internal/repository"
	apperrors "go-gin-ticket-ledger/pkg/app_errors"
	"go-gin-ticket-ledger/pkg/logger"

	"go.uber.org/zap"
)

// LoyaltyService 追蹤 (fan, organizer) 出席次數並推導等級。
// 何時確認出席由整合端決定，這裡只提供明確的 RecordAttendance。
type LoyaltyService interface {
	// RecordAttendance 由主辦方替 fan 記錄一次出席
	RecordAttendance(ctx context.Context, organizer, fan model.Identity) (*model.LoyaltyStatus, error)
	TierOf(ctx context.Context, fan, organizer model.Identity, goldRequirement int) (model.Tier, error)
	AttendanceCount(ctx context.Context, fan, organizer model.Identity) (int, error)
	// LoyaltyTier 使用主辦方目前的 Gold 門檻
	LoyaltyTier(ctx context.Context, fan, organizer model.Identity) (*model.LoyaltyStatus, error)
	// TierForEvent 使用活動建立時快照的 Gold 門檻
	TierForEvent(ctx context.Context, fan model.Identity, eventID int64) (*model.LoyaltyStatus, error)
	SetGoldRequirement(ctx context.Context, organizer model.Identity, requirement int) error
	GoldRequirement(ctx context.Context, organizer model.Identity) (int, error)
}

type LoyaltyServiceImpl struct {
	repos *repository.Repositories
	log   *zap.Logger
}

func NewLoyaltyService(repos *repository.Repositories) *LoyaltyServiceImpl {
	return &LoyaltyServiceImpl{
		repos: repos,
		log:   logger.WithComponent("loyalty_service"),
	}
}

func (s *LoyaltyServiceImpl) RecordAttendance(ctx context.Context, organizer, fan model.Identity) (*model.LoyaltyStatus, error) {
	if organizer.IsZero() || fan.IsZero() {
		return nil, apperrors.ErrInvalidIdentity
	}
	if organizer == fan {
		return nil, apperrors.ErrSelfAttendance
	}

	var status *model.LoyaltyStatus
	err := s.repos.Tx.WithTx(ctx, func(ctx context.Context) error {
		profile, err := s.repos.Loyalty.IncrementAttendance(ctx, fan, organizer)
		if err != nil {
			return err
		}
		requirement, err := s.repos.Loyalty.GoldRequirement(ctx, organizer)
		if err != nil {
			return err
		}
		status = newStatus(profile, requirement)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("attendance recorded",
		zap.String("fan", fan.String()),
		zap.String("organizer", organizer.String()),
		zap.Int("attended", status.AttendedCount),
		zap.String("tier", string(status.Tier)))
	return status, nil
}

func (s *LoyaltyServiceImpl) TierOf(ctx context.Context, fan, organizer model.Identity, goldRequirement int) (model.Tier, error) {
	if goldRequirement < 0 {
		return model.TierNone, apperrors.ErrInvalidInput
	}
	count, err := s.AttendanceCount(ctx, fan, organizer)
	if err != nil {
		return model.TierNone, err
	}
	return model.DeriveTier(count, goldRequirement), nil
}

func (s *LoyaltyServiceImpl) AttendanceCount(ctx context.Context, fan, organizer model.Identity) (int, error) {
	profile, err := s.repos.Loyalty.FindProfile(ctx, fan, organizer)
	if err != nil {
		return 0, err
	}
	return profile.AttendedCount, nil
}

func (s *LoyaltyServiceImpl) LoyaltyTier(ctx context.Context, fan, organizer model.Identity) (*model.LoyaltyStatus, error) {
	profile, err := s.repos.Loyalty.FindProfile(ctx, fan, organizer)
	if err != nil {
		return nil, err
	}
	requirement, err := s.repos.Loyalty.GoldRequirement(ctx, organizer)
	if err != nil {
		return nil, err
	}
	return newStatus(profile, requirement), nil
}

func (s *LoyaltyServiceImpl) TierForEvent(ctx context.Context, fan model.Identity, eventID int64) (*model.LoyaltyStatus, error) {
	event, err := s.repos.Events.FindByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	profile, err := s.repos.Loyalty.FindProfile(ctx, fan, event.Organizer)
	if err != nil {
		return nil, err
	}
	return newStatus(profile, event.GoldRequirement), nil
}

// SetGoldRequirement 只影響之後建立的活動；既有活動保留建立時的快照
func (s *LoyaltyServiceImpl) SetGoldRequirement(ctx context.Context, organizer model.Identity, requirement int) error {
	if organizer.IsZero() {
		return apperrors.ErrInvalidIdentity
	}
	if requirement < 0 {
		return apperrors.ErrInvalidInput
	}
	if err := s.repos.Loyalty.SetGoldRequirement(ctx, organizer, requirement); err != nil {
		return err
	}
	s.log.Info("gold requirement updated",
		zap.String("organizer", organizer.String()),
		zap.Int("requirement", requirement))
	return nil
}

func (s *LoyaltyServiceImpl) GoldRequirement(ctx context.Context, organizer model.Identity) (int, error) {
	return s.repos.Loyalty.GoldRequirement(ctx, organizer)
}

func (s *LoyaltyServiceImpl) ensureProfile(ctx context.Context, fan, organizer model.Identity) error {
	return s.repos.Loyalty.EnsureProfile(ctx, fan, organizer)
}

func newStatus(profile *model.LoyaltyProfile, requirement int) *model.LoyaltyStatus {
	return &model.LoyaltyStatus{
		Fan:             profile.Fan,
		Organizer:       profile.Organizer,
		AttendedCount:   profile.AttendedCount,
		GoldRequirement: requirement,
		Tier:            model.DeriveTier(profile.AttendedCount, requirement),
	}
}
