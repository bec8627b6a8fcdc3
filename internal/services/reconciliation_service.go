package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "budgethq/internal/errors"
	"budgethq/internal/models"
)

// reconcileTable describes how one entry table joins an account and a month.
type reconcileTable struct {
	kind        ReconcileKind
	model       func() interface{}
	dateColumn  string
	accountCond string
	notFound    *apperrors.AppError
}

var reconcileTables = []reconcileTable{
	{ReconcilePayment, func() interface{} { return &models.Payment{} }, "payment_date", "account_id = ?", apperrors.ErrPaymentNotFound},
	{ReconcileIncome, func() interface{} { return &models.IncomeEntry{} }, "entry_date", "account_id = ?", apperrors.ErrIncomeNotFound},
	{ReconcileTransfer, func() interface{} { return &models.TransferMaster{} }, "transfer_date", "(from_account_id = ? OR to_account_id = ?)", apperrors.ErrTransferNotFound},
	{ReconcileAdjustment, func() interface{} { return &models.BalanceAdjustment{} }, "adjustment_date", "account_id = ?", apperrors.ErrAdjustmentNotFound},
}

func (rt reconcileTable) scope(db *gorm.DB, userID, accountID string, start, end time.Time) *gorm.DB {
	args := []interface{}{accountID}
	if rt.kind == ReconcileTransfer {
		args = append(args, accountID)
	}
	return db.Model(rt.model()).Scopes(models.Live).
		Where("user_id = ?", userID).
		Where(rt.accountCond, args...).
		Where(rt.dateColumn+" BETWEEN ? AND ?", start, end)
}

func findReconcileTable(kind ReconcileKind) (reconcileTable, bool) {
	for _, rt := range reconcileTables {
		if rt.kind == kind {
			return rt, true
		}
	}
	return reconcileTable{}, false
}

// reconciliationService compares an account's ledger with its bank
// statement for the open month.
type reconciliationService struct {
	db     *gorm.DB
	months MonthServicer
}

// NewReconciliationService creates a new ReconciliationServicer.
func NewReconciliationService(db *gorm.DB, months MonthServicer) ReconciliationServicer {
	return &reconciliationService{db: db, months: months}
}

// GetSummary reports the ledger balance at month end next to the statement
// figures, with per-kind totals.
func (s *reconciliationService) GetSummary(userID, accountID string, today time.Time) (*ReconciliationSummary, error) {
	om, err := s.months.ForUser(userID, today)
	if err != nil {
		return nil, err
	}
	account, err := findLiveAccount(s.db, userID, accountID)
	if err != nil {
		return nil, err
	}
	record, err := loadReconciliation(s.db, userID, accountID, om.CurrentYear, om.CurrentMonth, false)
	if err != nil {
		return nil, err
	}

	start, end := om.Start(), om.End()
	budget, err := balanceAsOf(s.db, account, end)
	if err != nil {
		return nil, err
	}

	summary := &ReconciliationSummary{
		AccountID:     accountID,
		Year:          om.CurrentYear,
		Month:         om.CurrentMonth,
		BudgetBalance: budget,
		Status:        record.Status,
		Kinds:         make(map[ReconcileKind]*KindTotals, len(reconcileTables)),
	}
	if record.OutsideBalance != nil {
		outside := *record.OutsideBalance
		diff := outside.Sub(budget).Round(2)
		summary.OutsideBalance = &outside
		summary.Difference = &diff
	}

	for _, rt := range reconcileTables {
		totals := &KindTotals{}
		if err := rt.scope(s.db, userID, accountID, start, end).Count(&totals.Count).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := rt.scope(s.db, userID, accountID, start, end).Where("reconciled = ?", false).
			Count(&totals.Unreconciled).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		totals.Total, err = sumAmounts(rt.scope(s.db, userID, accountID, start, end), "amount")
		if err != nil {
			return nil, err
		}
		summary.Kinds[rt.kind] = totals
	}
	return summary, nil
}

// SetOutsideBalance stores the balance reported by the bank. A reconciled
// record goes back to pending.
func (s *reconciliationService) SetOutsideBalance(userID, accountID string, balance decimal.Decimal, today time.Time) (*models.ReconciliationRecord, error) {
	rounded := cents(balance)
	return s.updateRecord(userID, accountID, today, map[string]interface{}{
		"outside_balance": rounded,
	})
}

// SetStatementCounts stores the item counts printed on the statement.
func (s *reconciliationService) SetStatementCounts(userID, accountID string, counts StatementCounts, today time.Time) (*models.ReconciliationRecord, error) {
	for _, c := range []*int{counts.Payments, counts.Deposits, counts.Adjustments} {
		if c != nil && *c < 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "statement counts must not be negative")
		}
	}
	return s.updateRecord(userID, accountID, today, map[string]interface{}{
		"statement_payment_count":    counts.Payments,
		"statement_deposit_count":    counts.Deposits,
		"statement_adjustment_count": counts.Adjustments,
	})
}

func (s *reconciliationService) updateRecord(userID, accountID string, today time.Time, fields map[string]interface{}) (*models.ReconciliationRecord, error) {
	om, err := s.months.ForUser(userID, today)
	if err != nil {
		return nil, err
	}

	var record *models.ReconciliationRecord
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := findLiveAccount(tx, userID, accountID); err != nil {
			return err
		}
		var err error
		record, err = loadReconciliation(tx, userID, accountID, om.CurrentYear, om.CurrentMonth, true)
		if err != nil {
			return err
		}
		fields["status"] = models.ReconciliationPending
		fields["reconciled_at"] = nil
		if err := tx.Model(record).Updates(fields).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return tx.Where("id = ?", record.ID).First(record).Error
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// ToggleReconciled flips the reconciled flag of one entry.
func (s *reconciliationService) ToggleReconciled(userID string, kind ReconcileKind, id string, reconciled bool) error {
	rt, ok := findReconcileTable(kind)
	if !ok {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, fmt.Sprintf("unknown entry kind %q", kind))
	}
	result := s.db.Model(rt.model()).Scopes(models.Live).
		Where("id = ? AND user_id = ?", id, userID).
		Update("reconciled", reconciled)
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return rt.notFound
	}
	return nil
}

// MarkReconciled requires the statement balance to match the ledger to the
// cent, then marks every entry of the account in the month reconciled.
func (s *reconciliationService) MarkReconciled(userID, accountID string, today time.Time) (*models.ReconciliationRecord, error) {
	om, err := s.months.ForUser(userID, today)
	if err != nil {
		return nil, err
	}
	start, end := om.Start(), om.End()

	var record *models.ReconciliationRecord
	err = s.db.Transaction(func(tx *gorm.DB) error {
		account, err := findLiveAccount(tx, userID, accountID)
		if err != nil {
			return err
		}
		record, err = loadReconciliation(forUpdate(tx), userID, accountID, om.CurrentYear, om.CurrentMonth, false)
		if err != nil {
			return err
		}
		if record.OutsideBalance == nil {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "outside balance is required before reconciling")
		}

		budget, err := balanceAsOf(tx, account, end)
		if err != nil {
			return err
		}
		if diff := record.OutsideBalance.Sub(budget).Round(2); !diff.IsZero() {
			return apperrors.WithMessage(apperrors.ErrReconciliationVariance,
				fmt.Sprintf("outside balance differs from the budget balance by %s", diff.StringFixed(2)))
		}

		for _, rt := range reconcileTables {
			if err := rt.scope(tx, userID, accountID, start, end).Update("reconciled", true).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}

		now := time.Now().UTC()
		if err := tx.Model(record).Updates(map[string]interface{}{
			"status":        models.ReconciliationReconciled,
			"reconciled_at": now,
		}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		record.Status = models.ReconciliationReconciled
		record.ReconciledAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// Diagnostics lists statement counts that disagree with the ledger and the
// unreconciled entries whose amount equals the outstanding difference.
func (s *reconciliationService) Diagnostics(userID, accountID string, today time.Time) (*Diagnostics, error) {
	summary, err := s.GetSummary(userID, accountID, today)
	if err != nil {
		return nil, err
	}
	om, err := s.months.ForUser(userID, today)
	if err != nil {
		return nil, err
	}
	record, err := loadReconciliation(s.db, userID, accountID, om.CurrentYear, om.CurrentMonth, false)
	if err != nil {
		return nil, err
	}

	diag := &Diagnostics{Difference: summary.Difference, Mismatches: []CountMismatch{}, Candidates: []Candidate{}}
	statement := map[ReconcileKind]*int{
		ReconcilePayment:    record.StatementPaymentCount,
		ReconcileIncome:     record.StatementDepositCount,
		ReconcileAdjustment: record.StatementAdjustmentCount,
	}
	for _, kind := range []ReconcileKind{ReconcilePayment, ReconcileIncome, ReconcileAdjustment} {
		want := statement[kind]
		if want == nil {
			continue
		}
		if got := summary.Kinds[kind].Count; int64(*want) != got {
			diag.Mismatches = append(diag.Mismatches, CountMismatch{Kind: kind, Statement: *want, Ledger: got})
		}
	}

	if summary.Difference == nil || summary.Difference.IsZero() {
		return diag, nil
	}
	target := summary.Difference.Abs()
	start, end := om.Start(), om.End()
	for _, rt := range reconcileTables {
		candidates, err := s.candidates(rt, userID, accountID, start, end, target)
		if err != nil {
			return nil, err
		}
		diag.Candidates = append(diag.Candidates, candidates...)
	}
	return diag, nil
}

func (s *reconciliationService) candidates(rt reconcileTable, userID, accountID string, start, end time.Time, target decimal.Decimal) ([]Candidate, error) {
	q := rt.scope(s.db, userID, accountID, start, end).Where("reconciled = ?", false)
	var out []Candidate
	switch rt.kind {
	case ReconcilePayment:
		var rows []models.Payment
		if err := q.Find(&rows).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		for _, r := range rows {
			if r.Amount.Abs().Equal(target) {
				out = append(out, Candidate{Kind: rt.kind, ID: r.ID, Date: r.PaymentDate, Amount: r.Amount, Description: r.Description})
			}
		}
	case ReconcileIncome:
		var rows []models.IncomeEntry
		if err := q.Find(&rows).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		for _, r := range rows {
			if r.Amount.Abs().Equal(target) {
				out = append(out, Candidate{Kind: rt.kind, ID: r.ID, Date: r.EntryDate, Amount: r.Amount, Description: r.SourceName})
			}
		}
	case ReconcileTransfer:
		var rows []models.TransferMaster
		if err := q.Find(&rows).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		for _, r := range rows {
			if r.Amount.Abs().Equal(target) {
				out = append(out, Candidate{Kind: rt.kind, ID: r.ID, Date: r.TransferDate, Amount: r.Amount, Description: r.Memo})
			}
		}
	case ReconcileAdjustment:
		var rows []models.BalanceAdjustment
		if err := q.Find(&rows).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		for _, r := range rows {
			if r.Amount.Abs().Equal(target) {
				out = append(out, Candidate{Kind: rt.kind, ID: r.ID, Date: r.AdjustmentDate, Amount: r.Amount, Description: r.Description})
			}
		}
	}
	return out, nil
}

// loadReconciliation returns the record of an account and month. A missing
// record is inserted when create is set, otherwise an unsaved pending record
// is returned.
func loadReconciliation(db *gorm.DB, userID, accountID string, year, month int, create bool) (*models.ReconciliationRecord, error) {
	var record models.ReconciliationRecord
	err := db.Where("user_id = ? AND account_id = ? AND year = ? AND month = ?", userID, accountID, year, month).First(&record).Error
	if err == nil {
		return &record, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	record = models.ReconciliationRecord{
		UserID:    userID,
		AccountID: accountID,
		Year:      year,
		Month:     month,
		Status:    models.ReconciliationPending,
	}
	if !create {
		return &record, nil
	}
	if err := db.Create(&record).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &record, nil
}
