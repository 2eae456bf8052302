package service

import (
	"context"

	"go-gin-ticket-ledger/internal/model"
	"go-gin-ticket-ledger/internal/repository"
	apperrors "go-gin-ticket-ledger/pkg/app_errors"
)

// EscrowLedger 不做業務驗證，由 EventService 驅動；在交易 ctx 中呼叫時與其他寫入一起提交
type EscrowLedger interface {
	Credit(ctx context.Context, eventID int64, buyer model.Identity, amount model.Amount) error
	Zero(ctx context.Context, eventID int64, buyer model.Identity) error
	SumFor(ctx context.Context, eventID int64) (model.Amount, error)
	RecordFor(ctx context.Context, eventID int64, buyer model.Identity) (model.Amount, error)
	Records(ctx context.Context, eventID int64) ([]*model.EscrowRecord, error)
}

type EscrowLedgerImpl struct {
	repository repository.EscrowRepository
}

func NewEscrowLedger(repo repository.EscrowRepository) EscrowLedger {
	return &EscrowLedgerImpl{repository: repo}
}

func (l *EscrowLedgerImpl) Credit(ctx context.Context, eventID int64, buyer model.Identity, amount model.Amount) error {
	if amount <= 0 {
		return apperrors.ErrInvalidAmount
	}
	return l.repository.Credit(ctx, eventID, buyer, amount)
}

func (l *EscrowLedgerImpl) Zero(ctx context.Context, eventID int64, buyer model.Identity) error {
	return l.repository.Zero(ctx, eventID, buyer)
}

func (l *EscrowLedgerImpl) SumFor(ctx context.Context, eventID int64) (model.Amount, error) {
	return l.repository.SumFor(ctx, eventID)
}

func (l *EscrowLedgerImpl) RecordFor(ctx context.Context, eventID int64, buyer model.Identity) (model.Amount, error) {
	return l.repository.RecordFor(ctx, eventID, buyer)
}

func (l *EscrowLedgerImpl) Records(ctx context.Context, eventID int64) ([]*model.EscrowRecord, error) {
	return l.repository.ListByEvent(ctx, eventID)
}
