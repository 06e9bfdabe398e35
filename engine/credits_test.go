package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promopilot/models"
)

func TestDebitDecrementsBalanceAndAppendsTransaction(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, &models.User{Credits: 10})
	ledger := NewCreditLedger(db)

	newBalance, err := ledger.Debit(user.ID, 3, "automation_sms")
	require.NoError(t, err)
	assert.Equal(t, 7, newBalance)

	balance, err := ledger.BalanceOf(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, balance)

	var tx models.CreditTransaction
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&tx).Error)
	assert.Equal(t, -3, tx.Credits)
	assert.Equal(t, 7, tx.BalanceAfter)
	assert.Equal(t, "automation_sms", tx.Reason)

	var fresh models.User
	require.NoError(t, db.First(&fresh, user.ID).Error)
	assert.Equal(t, 3, fresh.CreditsConsumed)
}

func TestDebitRejectsOverdraft(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, &models.User{Credits: 2})
	ledger := NewCreditLedger(db)

	_, err := ledger.Debit(user.ID, 3, "automation_sms")
	assert.ErrorIs(t, err, ErrInsufficientCredits)

	// Balance untouched, no ledger row written
	balance, err := ledger.BalanceOf(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, balance)

	var count int64
	require.NoError(t, db.Model(&models.CreditTransaction{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestDebitRejectsNonPositiveAmount(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, &models.User{Credits: 5})
	ledger := NewCreditLedger(db)

	_, err := ledger.Debit(user.ID, 0, "automation_sms")
	assert.Error(t, err)
}

func TestGateSMSPartialFulfillmentKeepsOrder(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, &models.User{Credits: 3})
	ledger := NewCreditLedger(db)

	candidates := []models.Contact{
		{FirstName: "A"}, {FirstName: "B"}, {FirstName: "C"}, {FirstName: "D"}, {FirstName: "E"},
	}

	gated, err := GateSMS(ledger, user.ID, 1, candidates)
	require.NoError(t, err)

	require.Len(t, gated.Affordable, 3)
	require.Len(t, gated.Unaffordable, 2)
	assert.Equal(t, "A", gated.Affordable[0].FirstName)
	assert.Equal(t, "C", gated.Affordable[2].FirstName)
	assert.Equal(t, "D", gated.Unaffordable[0].FirstName)
}

func TestGateSMSAllAffordable(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, &models.User{Credits: 100})
	ledger := NewCreditLedger(db)

	gated, err := GateSMS(ledger, user.ID, 3, []models.Contact{{}, {}})
	require.NoError(t, err)
	assert.Len(t, gated.Affordable, 2)
	assert.Empty(t, gated.Unaffordable)
}

func TestGateEmailAllOrNothing(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, &models.User{Credits: 4})
	ledger := NewCreditLedger(db)

	ok, err := GateEmail(ledger, user.ID, 1, 4)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = GateEmail(ledger, user.ID, 1, 5)
	require.NoError(t, err)
	assert.False(t, ok)
}
