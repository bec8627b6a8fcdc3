package services

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "budgethq/internal/errors"
	"budgethq/internal/models"
)

// sumAmounts folds a decimal column in Go so SQLite and Postgres agree to the cent.
func sumAmounts(q *gorm.DB, column string) (decimal.Decimal, error) {
	var values []decimal.Decimal
	if err := q.Pluck(column, &values).Error; err != nil {
		return decimal.Zero, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total, nil
}

// balanceAsOf recomputes an account balance from its beginning balance and
// every live entry dated on or before date.
func balanceAsOf(db *gorm.DB, account *models.Account, date time.Time) (decimal.Decimal, error) {
	balance := account.BeginningBalance

	income, err := sumAmounts(db.Model(&models.IncomeEntry{}).Scopes(models.Live).
		Where("account_id = ? AND received_flag = ? AND entry_date <= ?", account.ID, true, date), "amount")
	if err != nil {
		return decimal.Zero, err
	}
	payments, err := sumAmounts(db.Model(&models.Payment{}).Scopes(models.Live).
		Where("account_id = ? AND payment_date <= ?", account.ID, date), "amount")
	if err != nil {
		return decimal.Zero, err
	}
	transfersIn, err := sumAmounts(db.Model(&models.TransferMaster{}).Scopes(models.Live).
		Where("to_account_id = ? AND from_account_id <> ? AND transfer_date <= ?", account.ID, account.ID, date), "amount")
	if err != nil {
		return decimal.Zero, err
	}
	transfersOut, err := sumAmounts(db.Model(&models.TransferMaster{}).Scopes(models.Live).
		Where("from_account_id = ? AND to_account_id <> ? AND transfer_date <= ?", account.ID, account.ID, date), "amount")
	if err != nil {
		return decimal.Zero, err
	}
	adjustments, err := sumAmounts(db.Model(&models.BalanceAdjustment{}).Scopes(models.Live).
		Where("account_id = ? AND adjustment_date <= ?", account.ID, date), "amount")
	if err != nil {
		return decimal.Zero, err
	}

	return balance.Add(income).Sub(payments).Add(transfersIn).Sub(transfersOut).Add(adjustments), nil
}

// monthTotals computes the headline figures of a month across the user's
// live accounts.
func monthTotals(db *gorm.DB, userID string, year int, month time.Month) (*MonthSummary, []models.Account, error) {
	start, end := monthRange(year, month)

	spent, err := sumAmounts(db.Model(&models.Payment{}).Scopes(models.Live).
		Where("user_id = ? AND payment_date BETWEEN ? AND ?", userID, start, end), "amount")
	if err != nil {
		return nil, nil, err
	}
	income, err := sumAmounts(db.Model(&models.IncomeEntry{}).Scopes(models.Live).
		Where("user_id = ? AND received_flag = ? AND entry_date BETWEEN ? AND ?", userID, true, start, end), "amount")
	if err != nil {
		return nil, nil, err
	}

	var accounts []models.Account
	if err := db.Scopes(models.Live).Where("user_id = ?", userID).Order("sort_order ASC").Find(&accounts).Error; err != nil {
		return nil, nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	summary := &MonthSummary{TotalSpent: spent, TotalIncome: income}
	dayBefore := start.AddDate(0, 0, -1)
	for i := range accounts {
		ending, err := balanceAsOf(db, &accounts[i], end)
		if err != nil {
			return nil, nil, err
		}
		summary.NetWorth = summary.NetWorth.Add(ending)
		if !accounts[i].IncludeInBudget {
			continue
		}
		beginning, err := balanceAsOf(db, &accounts[i], dayBefore)
		if err != nil {
			return nil, nil, err
		}
		summary.BeginningBudgetTotal = summary.BeginningBudgetTotal.Add(beginning)
		summary.EndingBudgetTotal = summary.EndingBudgetTotal.Add(ending)
	}
	return summary, accounts, nil
}
