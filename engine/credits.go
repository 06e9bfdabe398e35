package engine

import (
	"fmt"

	"gorm.io/gorm"

	"promopilot/models"
)

// GormCreditLedger implements CreditLedger on the users table plus the
// append-only credit_transactions log.
type GormCreditLedger struct {
	DB *gorm.DB
}

func NewCreditLedger(db *gorm.DB) *GormCreditLedger {
	return &GormCreditLedger{DB: db}
}

func (l *GormCreditLedger) BalanceOf(userID uint) (int, error) {
	var user models.User
	if err := l.DB.Select("credits").First(&user, userID).Error; err != nil {
		return 0, err
	}
	return user.Credits, nil
}

// Debit atomically decrements the user's balance and appends a ledger row.
// The guarded UPDATE keeps two concurrent debits for the same user from
// driving the balance negative.
func (l *GormCreditLedger) Debit(userID uint, amount int, reason string) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("debit amount must be positive, got %d", amount)
	}

	var newBalance int
	err := l.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).
			Where("id = ? AND credits >= ?", userID, amount).
			Updates(map[string]interface{}{
				"credits":          gorm.Expr("credits - ?", amount),
				"credits_consumed": gorm.Expr("credits_consumed + ?", amount),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientCredits
		}

		var user models.User
		if err := tx.Select("credits").First(&user, userID).Error; err != nil {
			return err
		}
		newBalance = user.Credits

		return tx.Create(&models.CreditTransaction{
			UserID:       userID,
			Credits:      -amount,
			BalanceAfter: newBalance,
			Reason:       reason,
		}).Error
	})
	if err != nil {
		return 0, err
	}
	return newBalance, nil
}

// GateResult splits candidates into the ones the balance covers and the
// rest, preserving resolver order.
type GateResult struct {
	Affordable   []models.Contact
	Unaffordable []models.Contact
}

// GateSMS applies the partial-fulfillment policy: the first
// floor(balance/cost) candidates are affordable, the remainder are
// skipped by the dispatcher.
func GateSMS(ledger CreditLedger, userID uint, perMessageCost int, candidates []models.Contact) (GateResult, error) {
	balance, err := ledger.BalanceOf(userID)
	if err != nil {
		return GateResult{}, err
	}

	maxAffordable := 0
	if perMessageCost > 0 {
		maxAffordable = balance / perMessageCost
	}
	if maxAffordable >= len(candidates) {
		return GateResult{Affordable: candidates}, nil
	}
	return GateResult{
		Affordable:   candidates[:maxAffordable],
		Unaffordable: candidates[maxAffordable:],
	}, nil
}

// GateEmail applies the all-or-nothing policy: the whole batch must be
// affordable up front or none of it is sent.
func GateEmail(ledger CreditLedger, userID uint, perMessageCost, candidateCount int) (bool, error) {
	balance, err := ledger.BalanceOf(userID)
	if err != nil {
		return false, err
	}
	return balance >= perMessageCost*candidateCount, nil
}
