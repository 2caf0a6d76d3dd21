package purchase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/promptforge/marketplace-api/internal/domain/coupon"
	"github.com/promptforge/marketplace-api/internal/domain/license"
	"github.com/promptforge/marketplace-api/internal/domain/listing"
	"github.com/promptforge/marketplace-api/internal/domain/transaction"
	"github.com/promptforge/marketplace-api/internal/domain/wallet"
	"github.com/promptforge/marketplace-api/internal/pkg/idempotency"
	"github.com/promptforge/marketplace-api/internal/pkg/payment"
)

const compensationTimeout = 15 * time.Second

// Config holds purchase settings
type Config struct {
	// PurchaseTimeout bounds one purchase attempt. Zero disables the deadline.
	PurchaseTimeout time.Duration
	// RefundWindow is how long after completion a refund is accepted. Zero means no limit.
	RefundWindow   time.Duration
	IdempotencyTTL time.Duration
}

// Service orchestrates purchases and refunds across the ledger components
type Service struct {
	listings     *listing.Service
	coupons      *coupon.Service
	wallets      *wallet.Service
	transactions transaction.Store
	licenses     license.Store
	gateways     *payment.Registry
	idempotency  idempotency.Store
	cfg          Config
	now          func() time.Time
}

// NewService creates purchase service
func NewService(
	listings *listing.Service,
	coupons *coupon.Service,
	wallets *wallet.Service,
	transactions transaction.Store,
	licenses license.Store,
	gateways *payment.Registry,
	idem idempotency.Store,
	cfg Config,
) *Service {
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 24 * time.Hour
	}
	return &Service{
		listings:     listings,
		coupons:      coupons,
		wallets:      wallets,
		transactions: transactions,
		licenses:     licenses,
		gateways:     gateways,
		idempotency:  idem,
		cfg:          cfg,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Purchase buys a listing for buyerID. When idempotencyKey is set, a retry
// with the same key returns the transaction of the first attempt.
func (s *Service) Purchase(ctx context.Context, buyerID uuid.UUID, req *Request, idempotencyKey string) (*Result, error) {
	if idempotencyKey == "" {
		txn, err := s.purchase(ctx, buyerID, req, nil)
		if err != nil {
			return nil, err
		}
		return &Result{Transaction: txn}, nil
	}

	storeKey := fmt.Sprintf("purchase:%s:%s", buyerID, idempotencyKey)
	rec, err := s.idempotency.Reserve(ctx, storeKey, s.reservationTTL())
	if errors.Is(err, idempotency.ErrInProgress) {
		return nil, ErrRequestInProgress
	}
	if err != nil {
		return nil, fmt.Errorf("reserve idempotency key: %w", err)
	}
	if !rec.Reserved {
		return s.replay(ctx, rec.Result)
	}

	// The key store may have expired while the transaction log still holds
	// the first attempt.
	if existing, err := s.transactions.GetByIdempotencyKey(ctx, buyerID, idempotencyKey); err == nil {
		s.completeKey(ctx, storeKey, existing.ID)
		return &Result{Transaction: existing, Replayed: true}, nil
	} else if !errors.Is(err, transaction.ErrNotFound) {
		s.releaseKey(ctx, storeKey)
		return nil, fmt.Errorf("lookup idempotency key: %w", err)
	}

	key := idempotencyKey
	txn, err := s.purchase(ctx, buyerID, req, &key)

	var failed *FailedPurchaseError
	switch {
	case err == nil:
		s.completeKey(ctx, storeKey, txn.ID)
		return &Result{Transaction: txn}, nil
	case errors.As(err, &failed):
		s.completeKey(ctx, storeKey, failed.Transaction.ID)
	case errors.Is(err, transaction.ErrDuplicateIdempotencyKey):
		s.releaseKey(ctx, storeKey)
		existing, getErr := s.transactions.GetByIdempotencyKey(ctx, buyerID, idempotencyKey)
		if getErr != nil {
			return nil, fmt.Errorf("load transaction for idempotency key: %w", getErr)
		}
		return &Result{Transaction: existing, Replayed: true}, nil
	default:
		s.releaseKey(ctx, storeKey)
	}
	return nil, err
}

// reservationTTL bounds how long an unfinished attempt holds its key, so a
// crashed process frees it once the attempt and its compensation would have ended.
// Complete extends the key to IdempotencyTTL.
func (s *Service) reservationTTL() time.Duration {
	if s.cfg.PurchaseTimeout <= 0 {
		return s.cfg.IdempotencyTTL
	}
	return s.cfg.PurchaseTimeout + compensationTimeout
}

func (s *Service) replay(ctx context.Context, result string) (*Result, error) {
	id, err := uuid.Parse(result)
	if err != nil {
		return nil, fmt.Errorf("corrupt idempotency record %q: %w", result, err)
	}
	txn, err := s.transactions.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load replayed transaction: %w", err)
	}
	return &Result{Transaction: txn, Replayed: true}, nil
}

func (s *Service) completeKey(ctx context.Context, key string, txnID uuid.UUID) {
	ctx = context.WithoutCancel(ctx)
	if err := s.idempotency.Complete(ctx, key, txnID.String(), s.cfg.IdempotencyTTL); err != nil {
		log.Error().Err(err).Str("key", key).Msg("failed to record idempotency result")
	}
}

func (s *Service) releaseKey(ctx context.Context, key string) {
	ctx = context.WithoutCancel(ctx)
	if err := s.idempotency.Release(ctx, key); err != nil {
		log.Error().Err(err).Str("key", key).Msg("failed to release idempotency key")
	}
}

func (s *Service) purchase(ctx context.Context, buyerID uuid.UUID, req *Request, idempotencyKey *string) (*transaction.Transaction, error) {
	if s.cfg.PurchaseTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.PurchaseTimeout)
		defer cancel()
	}

	l, err := s.listings.Get(ctx, req.ListingID)
	if errors.Is(err, listing.ErrNotFound) {
		return nil, ErrListingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load listing: %w", err)
	}
	if !l.IsActive {
		return nil, ErrListingNotFound
	}
	if l.SellerID == buyerID {
		return nil, ErrInvalidBuyer
	}

	owned, err := s.licenses.HasActive(ctx, buyerID, l.ItemID)
	if err != nil {
		return nil, fmt.Errorf("check license: %w", err)
	}
	if owned {
		return nil, ErrAlreadyPurchased
	}

	// The seller is always paid into a wallet, whatever the buyer pays with.
	if l.Currency != s.wallets.Currency() {
		return nil, ErrCurrencyMismatch
	}

	licenseType := license.TypePersonal
	if req.LicenseType != "" {
		licenseType = license.Type(req.LicenseType)
		if !licenseType.Valid() {
			return nil, ErrInvalidLicenseType
		}
	}

	method := transaction.PaymentMethod(req.PaymentMethod)
	var gateway payment.Gateway
	if !method.Valid() {
		return nil, ErrInvalidPaymentMethod
	}
	if method != transaction.PaymentWallet {
		gateway, err = s.gateways.Get(string(method))
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidPaymentMethod, method)
		}
	}

	txn := &transaction.Transaction{
		ID:             uuid.New(),
		BuyerID:        buyerID,
		SellerID:       l.SellerID,
		ListingID:      l.ID,
		ItemID:         l.ItemID,
		Amount:         l.Price,
		OriginalAmount: l.Price,
		Discount:       decimal.Zero,
		Currency:       l.Currency,
		Status:         transaction.StatusPending,
		PaymentMethod:  method,
		LicenseType:    string(licenseType),
		IdempotencyKey: idempotencyKey,
	}
	sg := newSaga(txn.ID)

	if req.CouponCode != nil && *req.CouponCode != "" {
		code := coupon.NormalizeCode(*req.CouponCode)
		v, err := s.coupons.Validate(ctx, code, l.Price)
		if err != nil {
			return nil, fmt.Errorf("validate coupon: %w", err)
		}
		if !v.IsValid {
			return nil, &CouponError{Message: v.Message}
		}
		if err := s.coupons.Redeem(ctx, code); err != nil {
			if errors.Is(err, coupon.ErrNotRedeemable) {
				return nil, &CouponError{Message: "Coupon is no longer available"}
			}
			return nil, fmt.Errorf("redeem coupon: %w", err)
		}
		sg.onFailure("release coupon", func(ctx context.Context) error {
			return s.coupons.Release(ctx, code)
		})

		txn.Amount = v.FinalPrice
		txn.Discount = v.Discount
		txn.CouponCode = &code
	}

	txn.CreatedAt = s.now()
	if err := s.transactions.Create(ctx, txn); err != nil {
		s.rollback(ctx, sg)
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	if err := s.collect(ctx, sg, txn, gateway); err != nil {
		return s.abort(ctx, sg, txn, err)
	}
	if err := s.settle(ctx, sg, txn); err != nil {
		return s.abort(ctx, sg, txn, err)
	}

	completed, err := s.transactions.Transition(ctx, txn.ID, transaction.StatusPending, transaction.StatusCompleted, s.now(), "")
	if err != nil {
		return s.abort(ctx, sg, txn, fmt.Errorf("complete transaction: %w", err))
	}

	log.Info().
		Str("transaction_id", completed.ID.String()).
		Str("buyer_id", buyerID.String()).
		Str("seller_id", completed.SellerID.String()).
		Str("amount", completed.Amount.String()).
		Str("payment_method", string(method)).
		Msg("purchase completed")
	return completed, nil
}

// collect takes the final price from the buyer.
func (s *Service) collect(ctx context.Context, sg *saga, txn *transaction.Transaction, gateway payment.Gateway) error {
	if !txn.Amount.IsPositive() {
		return nil
	}

	if gateway != nil {
		charge := payment.Charge{
			TransactionID: txn.ID,
			UserID:        txn.BuyerID,
			Amount:        txn.Amount,
			Currency:      txn.Currency,
			Method:        string(txn.PaymentMethod),
		}
		if err := gateway.Charge(ctx, charge); err != nil {
			if ctx.Err() != nil {
				// The processor may have captured the funds before the deadline.
				sg.onFailure("refund charge", func(ctx context.Context) error {
					return gateway.Refund(ctx, charge)
				})
				return fmt.Errorf("charge: %w", err)
			}
			return fmt.Errorf("%w: %v", ErrPaymentDeclined, err)
		}
		sg.onFailure("refund charge", func(ctx context.Context) error {
			return gateway.Refund(ctx, charge)
		})
		return nil
	}

	ref := "purchase:" + txn.ID.String()
	reverse := func(ctx context.Context) error {
		_, err := s.wallets.Credit(ctx, txn.BuyerID, txn.Amount, wallet.ReasonPurchaseReversal, "purchase-reversal:"+txn.ID.String())
		return err
	}

	_, err := s.wallets.Debit(ctx, txn.BuyerID, txn.Amount, wallet.ReasonPurchase, ref)
	if errors.Is(err, wallet.ErrInsufficientFunds) {
		return ErrInsufficientFunds
	}
	if err != nil {
		// On a deadline the debit may have committed after we stopped waiting.
		sg.onFailure("reverse buyer debit", func(ctx context.Context) error {
			landed, err := s.wallets.EntryExists(ctx, txn.BuyerID, wallet.ReasonPurchase, ref)
			if err != nil || !landed {
				return err
			}
			return reverse(ctx)
		})
		return fmt.Errorf("debit buyer: %w", err)
	}
	sg.onFailure("reverse buyer debit", reverse)
	return nil
}

// settle pays the seller and grants the license.
func (s *Service) settle(ctx context.Context, sg *saga, txn *transaction.Transaction) error {
	if txn.Amount.IsPositive() {
		if _, err := s.wallets.Credit(ctx, txn.SellerID, txn.Amount, wallet.ReasonSalePayout, "payout:"+txn.ID.String()); err != nil {
			return fmt.Errorf("credit seller: %w", err)
		}
		sg.onFailure("reverse seller payout", func(ctx context.Context) error {
			_, err := s.wallets.Debit(ctx, txn.SellerID, txn.Amount, wallet.ReasonPayoutReversal, "payout-reversal:"+txn.ID.String())
			return err
		})
	}

	if err := s.listings.RecordSale(ctx, txn.ListingID, txn.Amount); err != nil {
		return fmt.Errorf("record sale: %w", err)
	}
	sg.onFailure("reverse listing sale", func(ctx context.Context) error {
		return s.listings.ReverseSale(ctx, txn.ListingID, txn.Amount)
	})

	err := s.licenses.Grant(ctx, s.licenseFor(txn))
	if errors.Is(err, license.ErrAlreadyLicensed) {
		return ErrAlreadyPurchased
	}
	if err != nil {
		return fmt.Errorf("grant license: %w", err)
	}
	sg.onFailure("revoke license", func(ctx context.Context) error {
		return s.licenses.RevokeByTransaction(ctx, txn.ID, s.now())
	})
	return nil
}

// abort marks a persisted purchase failed and then unwinds it. The failed
// status is claimed first: if the completion write landed after all, the
// purchase stands and nothing is reversed.
func (s *Service) abort(ctx context.Context, sg *saga, txn *transaction.Transaction, cause error) (*transaction.Transaction, error) {
	cctx, cancel := detached(ctx)
	defer cancel()

	reason := failureReason(cause)
	failed, err := s.transactions.Transition(cctx, txn.ID, transaction.StatusPending, transaction.StatusFailed, s.now(), reason)
	if err != nil {
		current, getErr := s.transactions.Get(cctx, txn.ID)
		switch {
		case getErr != nil:
			// Status unknown: reversing money under a possibly completed record
			// is worse than leaving it pending for the client to poll.
			log.Error().Err(err).AnErr("lookup_error", getErr).
				Str("transaction_id", txn.ID.String()).
				Msg("purchase outcome unknown, compensation skipped")
			return nil, &FailedPurchaseError{Transaction: txn, Err: fmt.Errorf("%w: %v", ErrSettlementFailure, cause)}
		case current.Status == transaction.StatusCompleted:
			log.Warn().Err(cause).
				Str("transaction_id", txn.ID.String()).
				Msg("completion was recorded despite the error, keeping purchase")
			return current, nil
		case current.Status == transaction.StatusFailed:
			failed = current
		default:
			log.Error().Err(err).Str("transaction_id", txn.ID.String()).Msg("failed to mark transaction failed")
		}
	}

	s.rollback(cctx, sg)

	if failed == nil {
		// Still pending; the money is back, so retry the mark once more.
		failed, err = s.transactions.Transition(cctx, txn.ID, transaction.StatusPending, transaction.StatusFailed, s.now(), reason)
		if err != nil {
			log.Error().Err(err).Str("transaction_id", txn.ID.String()).Msg("transaction left pending after compensation")
			local := *txn
			local.Status = transaction.StatusFailed
			local.FailureReason = &reason
			failed = &local
		}
	}

	log.Warn().Err(cause).
		Str("transaction_id", txn.ID.String()).
		Str("buyer_id", txn.BuyerID.String()).
		Str("failure_reason", reason).
		Msg("purchase failed")

	switch {
	case errors.Is(cause, ErrInsufficientFunds), errors.Is(cause, ErrPaymentDeclined), errors.Is(cause, ErrAlreadyPurchased):
		return nil, &FailedPurchaseError{Transaction: failed, Err: cause}
	default:
		return nil, &FailedPurchaseError{Transaction: failed, Err: fmt.Errorf("%w: %v", ErrSettlementFailure, cause)}
	}
}

func (s *Service) rollback(ctx context.Context, sg *saga) {
	cctx, cancel := detached(ctx)
	defer cancel()
	if err := sg.rollback(cctx); err != nil {
		log.Error().Err(err).Str("transaction_id", sg.txnID.String()).Msg("rollback incomplete")
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrPaymentDeclined):
		return "payment_declined"
	case errors.Is(err, ErrAlreadyPurchased):
		return "already_purchased"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "settlement_failure"
	}
}

// detached returns a context that survives cancellation of ctx, so
// compensation still runs after the request deadline.
func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
}

// Refund reverses a completed purchase. Only the seller or an admin may
// refund, within the configured window.
func (s *Service) Refund(ctx context.Context, actorID uuid.UUID, isAdmin bool, txnID uuid.UUID) (*transaction.Transaction, error) {
	txn, err := s.transactions.Get(ctx, txnID)
	if errors.Is(err, transaction.ErrNotFound) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load transaction: %w", err)
	}

	if !isAdmin && txn.SellerID != actorID {
		if txn.BuyerID != actorID {
			return nil, ErrTransactionNotFound
		}
		return nil, ErrForbidden
	}
	if txn.Status != transaction.StatusCompleted {
		return nil, fmt.Errorf("%w: status is %s", ErrRefundNotAllowed, txn.Status)
	}
	if s.cfg.RefundWindow > 0 && txn.CompletedAt != nil && s.now().Sub(*txn.CompletedAt) > s.cfg.RefundWindow {
		return nil, fmt.Errorf("%w: refund window has elapsed", ErrRefundNotAllowed)
	}

	var gateway payment.Gateway
	if txn.PaymentMethod != transaction.PaymentWallet {
		gateway, err = s.gateways.Get(string(txn.PaymentMethod))
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidPaymentMethod, txn.PaymentMethod)
		}
	}

	attempt := uuid.New()
	if _, err := s.transactions.ClaimRefund(ctx, txn.ID, attempt, s.now()); err != nil {
		switch {
		case errors.Is(err, transaction.ErrInvalidTransition):
			return nil, fmt.Errorf("%w: already refunded", ErrRefundNotAllowed)
		case errors.Is(err, transaction.ErrRefundInProgress):
			return nil, fmt.Errorf("%w: %v", ErrRefundNotAllowed, err)
		}
		return nil, fmt.Errorf("claim refund: %w", err)
	}

	sg := newSaga(txn.ID)
	err = s.unwind(ctx, sg, txn, gateway, attempt.String())

	cctx, cancel := detached(ctx)
	defer cancel()

	var refunded *transaction.Transaction
	if err == nil {
		refunded, err = s.finishRefund(cctx, txn.ID, attempt)
	}
	if err != nil {
		s.rollback(cctx, sg)
		if releaseErr := s.transactions.ReleaseRefund(cctx, txn.ID, attempt); releaseErr != nil {
			log.Error().Err(releaseErr).Str("transaction_id", txn.ID.String()).Msg("failed to release refund claim")
		}
		if errors.Is(err, ErrSellerFundsUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrSettlementFailure, err)
	}

	log.Info().
		Str("transaction_id", txn.ID.String()).
		Str("actor_id", actorID.String()).
		Str("amount", txn.Amount.String()).
		Msg("purchase refunded")
	return refunded, nil
}

// finishRefund flips the claimed transaction to refunded. A write that
// landed despite an error is detected by reading the row back.
func (s *Service) finishRefund(ctx context.Context, txnID, attempt uuid.UUID) (*transaction.Transaction, error) {
	refunded, err := s.transactions.FinishRefund(ctx, txnID, attempt, s.now())
	if err == nil {
		return refunded, nil
	}
	if current, getErr := s.transactions.Get(ctx, txnID); getErr == nil && current.Status == transaction.StatusRefunded {
		return current, nil
	}
	return nil, fmt.Errorf("finish refund: %w", err)
}

// unwind moves money and counters back for a claimed refund, registering an
// undo for every step on sg. Ledger references are scoped to the attempt so a
// refund that was rolled back can be retried.
func (s *Service) unwind(ctx context.Context, sg *saga, txn *transaction.Transaction, gateway payment.Gateway, attempt string) error {
	ref := fmt.Sprintf("refund:%s:%s", txn.ID, attempt)
	undoRef := fmt.Sprintf("refund-undo:%s:%s", txn.ID, attempt)

	if txn.Amount.IsPositive() {
		_, err := s.wallets.Debit(ctx, txn.SellerID, txn.Amount, wallet.ReasonRefundClawback, ref)
		if errors.Is(err, wallet.ErrInsufficientFunds) {
			return ErrSellerFundsUnavailable
		}
		if err != nil {
			return fmt.Errorf("claw back seller payout: %w", err)
		}
		sg.onFailure("restore seller payout", func(ctx context.Context) error {
			_, err := s.wallets.Credit(ctx, txn.SellerID, txn.Amount, wallet.ReasonSalePayout, undoRef)
			return err
		})
	}

	if err := s.listings.ReverseSale(ctx, txn.ListingID, txn.Amount); err != nil {
		return fmt.Errorf("reverse listing sale: %w", err)
	}
	sg.onFailure("restore listing sale", func(ctx context.Context) error {
		return s.listings.RecordSale(ctx, txn.ListingID, txn.Amount)
	})

	err := s.licenses.RevokeByTransaction(ctx, txn.ID, s.now())
	if err != nil && !errors.Is(err, license.ErrNotFound) {
		return fmt.Errorf("revoke license: %w", err)
	}
	if err == nil {
		sg.onFailure("restore license", func(ctx context.Context) error {
			return s.licenses.Grant(ctx, s.licenseFor(txn))
		})
	}

	if !txn.Amount.IsPositive() {
		return nil
	}
	charge := payment.Charge{
		TransactionID: txn.ID,
		UserID:        txn.BuyerID,
		Amount:        txn.Amount,
		Currency:      txn.Currency,
		Method:        string(txn.PaymentMethod),
	}
	if gateway != nil {
		if err := gateway.Refund(ctx, charge); err != nil {
			return fmt.Errorf("refund charge: %w", err)
		}
		sg.onFailure("charge buyer again", func(ctx context.Context) error {
			return gateway.Charge(ctx, charge)
		})
		return nil
	}

	if _, err := s.wallets.Credit(ctx, txn.BuyerID, txn.Amount, wallet.ReasonRefund, ref); err != nil {
		return fmt.Errorf("return funds to buyer: %w", err)
	}
	sg.onFailure("take back buyer refund", func(ctx context.Context) error {
		_, err := s.wallets.Debit(ctx, txn.BuyerID, txn.Amount, wallet.ReasonPurchase, undoRef)
		return err
	})
	return nil
}

func (s *Service) licenseFor(txn *transaction.Transaction) *license.License {
	return &license.License{
		ID:            uuid.New(),
		TransactionID: txn.ID,
		ItemID:        txn.ItemID,
		BuyerID:       txn.BuyerID,
		Type:          license.Type(txn.LicenseType),
		CreatedAt:     s.now(),
	}
}
