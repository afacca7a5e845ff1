package points

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Balance(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.GetBalance(ctx, userID)
}

func (s *Service) Stats(ctx context.Context, userID uuid.UUID) (*Stats, error) {
	return s.repo.GetStats(ctx, userID)
}

func (s *Service) Transactions(ctx context.Context, userID uuid.UUID, filter Filter, p Pagination) ([]Transaction, int, error) {
	return s.repo.ListTransactions(ctx, userID, filter, p)
}

func (s *Service) Transaction(ctx context.Context, userID, txID uuid.UUID) (*Transaction, error) {
	return s.repo.GetTransaction(ctx, userID, txID)
}

// RecordPurchase credits a top-up confirmed by the payment gateway. The
// gateway reference makes the call idempotent: a replay returns the original
// transaction without crediting twice.
func (s *Service) RecordPurchase(ctx context.Context, userID uuid.UUID, amount int64, reference string) (*PurchaseResult, error) {
	if amount <= 0 || reference == "" {
		return nil, ErrInvalidAmount
	}

	txID, applied, err := s.repo.Credit(ctx, userID, amount, ReasonPurchase, TxMeta{
		Reference:   reference,
		Description: "points purchase",
	})
	if err != nil {
		return nil, err
	}

	balance, err := s.repo.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}

	if applied {
		log.Info().Str("user_id", userID.String()).Int64("amount", amount).Str("reference", reference).Msg("points purchase recorded")
	}

	return &PurchaseResult{TransactionID: txID, Balance: balance, Applied: applied}, nil
}

// CreditListingRewardTx grants the one-time listing reward inside the
// caller's transaction. The book's permanent id is the reference, so a
// replayed registration never pays twice.
func (s *Service) CreditListingRewardTx(ctx context.Context, tx *sqlx.Tx, ownerID uuid.UUID, permanentID string) error {
	_, err := s.repo.CreditTx(ctx, tx, ownerID, ListingRewardPoints, ReasonListingReward, TxMeta{
		Reference:   permanentID,
		Description: "listing reward",
	})
	return err
}

// TransferExchangeTx moves the frozen exchange cost from requester to owner
// inside the caller's transaction.
func (s *Service) TransferExchangeTx(ctx context.Context, tx *sqlx.Tx, requesterID, ownerID uuid.UUID, amount int64, exchangeID uuid.UUID) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	_, _, err := s.repo.TransferTx(ctx, tx, requesterID, ownerID, amount, exchangeID)
	return err
}

// Reconcile recomputes one user's balance from the transaction log and
// repairs the materialized row if it drifted.
func (s *Service) Reconcile(ctx context.Context, userID uuid.UUID) (*ReconcileResult, error) {
	stored, computed, err := s.repo.RecomputeBalance(ctx, userID)
	if err != nil {
		return nil, err
	}

	res := &ReconcileResult{UserID: userID, Stored: stored, Computed: computed, Fixed: stored != computed}
	if res.Fixed {
		log.Warn().Str("user_id", userID.String()).Int64("stored", stored).Int64("computed", computed).Msg("points balance drift repaired")
	}
	return res, nil
}

// ReconcileAll sweeps every account. Returns the number of repaired
// balances; individual failures are logged and skipped so one bad account
// cannot stall the sweep.
func (s *Service) ReconcileAll(ctx context.Context) (int, error) {
	ids, err := s.repo.ListAccountIDs(ctx)
	if err != nil {
		return 0, err
	}

	fixed := 0
	for _, id := range ids {
		res, err := s.Reconcile(ctx, id)
		if err != nil {
			log.Error().Err(err).Str("user_id", id.String()).Msg("points reconcile failed")
			continue
		}
		if res.Fixed {
			fixed++
		}
	}
	return fixed, nil
}
