package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/exrstore/exr-backend/internal/accounts"
	"github.com/exrstore/exr-backend/pkg/db/models"
	"github.com/exrstore/exr-backend/pkg/enums"
	pkgerrors "github.com/exrstore/exr-backend/pkg/errors"
	"github.com/exrstore/exr-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Statement is the wallet view returned to the account holder. Transactions
// are one page of the ledger; NextCursor continues it.
type Statement struct {
	AccountID    uuid.UUID                  `json:"account_id"`
	BalanceCents int                        `json:"balance_cents"`
	Transactions []models.WalletTransaction `json:"transactions"`
	NextCursor   string                     `json:"next_cursor,omitempty"`
}

// Service owns the wallet ledger. Credit, Debit and AttachOrder run inside a
// caller-provided transaction so they compose with checkout and refund flows;
// AdminCredit and Statement manage their own scope.
type Service interface {
	Statement(ctx context.Context, accountID uuid.UUID, params pagination.Params) (*Statement, error)
	AdminCredit(ctx context.Context, adminID, accountID uuid.UUID, amountCents int, note string) (*models.WalletTransaction, error)
	Credit(ctx context.Context, tx *gorm.DB, accountID uuid.UUID, amountCents int, txnType enums.WalletTransactionType, note string, relatedOrderID *uuid.UUID) (*models.WalletTransaction, error)
	Debit(ctx context.Context, tx *gorm.DB, accountID uuid.UUID, amountCents int, note string) (*models.WalletTransaction, error)
	AttachOrder(ctx context.Context, tx *gorm.DB, transactionID, orderID uuid.UUID) error
}

type service struct {
	tx       txRunner
	repo     Repository
	accounts accounts.Repository
}

// NewService wires a wallet service.
func NewService(tx txRunner, repo Repository, accountsRepo accounts.Repository) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	if accountsRepo == nil {
		return nil, fmt.Errorf("accounts repository required")
	}
	return &service{tx: tx, repo: repo, accounts: accountsRepo}, nil
}

func (s *service) Statement(ctx context.Context, accountID uuid.UUID, params pagination.Params) (*Statement, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id required")
	}

	account, err := s.repo.FindAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading account")
	}

	txns, next, err := s.repo.ListTransactions(ctx, accountID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing wallet transactions")
	}

	return &Statement{
		AccountID:    account.ID,
		BalanceCents: account.WalletBalanceCents,
		Transactions: txns,
		NextCursor:   next,
	}, nil
}

func (s *service) AdminCredit(ctx context.Context, adminID, accountID uuid.UUID, amountCents int, note string) (*models.WalletTransaction, error) {
	if adminID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "admin id required")
	}

	var txn *models.WalletTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var terr error
		txn, terr = s.Credit(ctx, tx, accountID, amountCents, enums.WalletTransactionTypeAdminCredit, note, nil)
		if terr != nil {
			return terr
		}
		entry := &models.ActivityEntry{
			AccountID: accountID,
			Action:    "wallet_admin_credit",
			Details:   fmt.Sprintf("admin %s credited %d cents: %s", adminID, amountCents, note),
		}
		return s.accounts.WithTx(tx).InsertActivity(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

func (s *service) Credit(ctx context.Context, tx *gorm.DB, accountID uuid.UUID, amountCents int, txnType enums.WalletTransactionType, note string, relatedOrderID *uuid.UUID) (*models.WalletTransaction, error) {
	if err := validateEntry(tx, accountID, amountCents); err != nil {
		return nil, err
	}
	if !txnType.IsValid() || !txnType.IsCredit() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid credit transaction type").
			WithDetails(map[string]any{"type": txnType})
	}

	repo := s.repo.WithTx(tx)
	credited, err := repo.CreditBalance(ctx, accountID, amountCents)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "crediting wallet")
	}
	if !credited {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
	}

	txn := &models.WalletTransaction{
		AccountID:      accountID,
		Type:           txnType,
		AmountCents:    amountCents,
		RelatedOrderID: relatedOrderID,
		Note:           note,
	}
	if err := repo.InsertTransaction(ctx, txn); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording wallet credit")
	}
	return txn, nil
}

func (s *service) Debit(ctx context.Context, tx *gorm.DB, accountID uuid.UUID, amountCents int, note string) (*models.WalletTransaction, error) {
	if err := validateEntry(tx, accountID, amountCents); err != nil {
		return nil, err
	}

	repo := s.repo.WithTx(tx)
	debited, err := repo.DebitBalance(ctx, accountID, amountCents)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "debiting wallet")
	}
	if !debited {
		account, lookupErr := repo.FindAccount(ctx, accountID)
		if lookupErr != nil {
			if errors.Is(lookupErr, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, lookupErr, "loading account")
		}
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "insufficient wallet balance").
			WithDetails(map[string]any{
				"required_cents":  amountCents,
				"available_cents": account.WalletBalanceCents,
			})
	}

	// Debits are stored negative so the ledger sums to the balance.
	txn := &models.WalletTransaction{
		AccountID:   accountID,
		Type:        enums.WalletTransactionTypePurchase,
		AmountCents: -amountCents,
		Note:        note,
	}
	if err := repo.InsertTransaction(ctx, txn); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording wallet debit")
	}
	return txn, nil
}

func (s *service) AttachOrder(ctx context.Context, tx *gorm.DB, transactionID, orderID uuid.UUID) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction handle required")
	}
	if transactionID == uuid.Nil || orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "transaction id and order id required")
	}
	if err := s.repo.WithTx(tx).AttachOrder(ctx, transactionID, orderID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "linking wallet transaction to order")
	}
	return nil
}

func validateEntry(tx *gorm.DB, accountID uuid.UUID, amountCents int) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction handle required")
	}
	if accountID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "account id required")
	}
	if amountCents <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	return nil
}
