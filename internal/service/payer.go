package service

import (
	"context"

	"go-gin-ticket-ledger/internal/model"
	"go-gin-ticket-ledger/internal/repository"
	apperrors "go-gin-ticket-ledger/pkg/app_errors"
)

// Payer 付款原語：全部成功或失敗。在交易中呼叫時隨交易一起 rollback。
type Payer interface {
	Pay(ctx context.Context, to model.Identity, amount model.Amount) error
}

// AccountPayer 將款項記入帳本內的可提領餘額
type AccountPayer struct {
	accounts repository.AccountRepository
}

func NewAccountPayer(accounts repository.AccountRepository) *AccountPayer {
	return &AccountPayer{accounts: accounts}
}

func (p *AccountPayer) Pay(ctx context.Context, to model.Identity, amount model.Amount) error {
	if to.IsZero() {
		return apperrors.ErrInvalidIdentity
	}
	if amount <= 0 {
		return apperrors.ErrInvalidAmount
	}
	return p.accounts.Credit(ctx, to, amount)
}

type AccountService interface {
	BalanceOf(ctx context.Context, holder model.Identity) (model.Amount, error)
}

type AccountServiceImpl struct {
	accounts repository.AccountRepository
}

func NewAccountService(accounts repository.AccountRepository) AccountService {
	return &AccountServiceImpl{accounts: accounts}
}

func (s *AccountServiceImpl) BalanceOf(ctx context.Context, holder model.Identity) (model.Amount, error) {
	if holder.IsZero() {
		return 0, apperrors.ErrInvalidIdentity
	}
	return s.accounts.BalanceOf(ctx, holder)
}
