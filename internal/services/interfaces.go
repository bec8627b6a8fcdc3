package services

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"budgethq/internal/frequency"
	"budgethq/internal/models"
	"budgethq/internal/pagination"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, firstName, lastName string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(email, password string) (*models.User, error)
	StoreRefreshTokenHash(userID string, tokenHash string) error
	GetRefreshTokenHash(userID string) (string, error)
}

// AccountInput holds the fields accepted when creating an account.
type AccountInput struct {
	Name            string
	AccountType     string
	Description     string
	Balance         decimal.Decimal
	IncludeInBudget *bool
}

// AccountUpdateFields holds optional fields for updating an account.
// Only non-nil fields are applied.
type AccountUpdateFields struct {
	Name            *string
	AccountType     *string
	Description     *string
	IncludeInBudget *bool
	Balance         *decimal.Decimal
	SortOrder       *int
}

// AccountServicer defines the contract for account-related business logic.
type AccountServicer interface {
	CreateAccount(userID string, in AccountInput) (*models.Account, error)
	GetUserAccounts(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Account], error)
	GetAccountByID(userID, accountID string) (*models.Account, error)
	UpdateAccount(userID, accountID string, fields AccountUpdateFields) (*models.Account, error)
	DeleteAccount(userID, accountID string) error
	Adjust(tx *gorm.DB, accountID string, delta decimal.Decimal) error
	TotalBalance(userID string) (decimal.Decimal, error)
}

// BucketInput holds the fields accepted when creating a bucket.
type BucketInput struct {
	Name              string
	Priority          *int
	IsDefault         bool
	TargetAmount      decimal.Decimal
	InitialAllocation decimal.Decimal
}

// BucketUpdateFields holds optional fields for updating a bucket.
type BucketUpdateFields struct {
	Name         *string
	TargetAmount *decimal.Decimal
	Priority     *int
	IsActive     *bool
}

// BucketEntry is one request to the bucket ledger.
type BucketEntry struct {
	BucketID   string
	UserID     string
	Direction  models.Direction
	Amount     decimal.Decimal
	SourceType models.BucketSource
	SourceID   *string
	TxnDate    time.Time
	Memo       string
}

// LedgerCheck reports whether a bucket's cached balance matches its ledger.
type LedgerCheck struct {
	BucketID       string          `json:"bucket_id"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	LedgerBalance  decimal.Decimal `json:"ledger_balance"`
	Drift          decimal.Decimal `json:"drift"`
	Transactions   int64           `json:"transactions"`
	Consistent     bool            `json:"consistent"`
}

// BucketServicer defines the contract for the bucket ledger and its lifecycle.
type BucketServicer interface {
	CreateBucket(userID, accountID string, in BucketInput) (*models.Bucket, error)
	GetBuckets(userID, accountID string) ([]models.Bucket, error)
	GetBucketByID(userID, bucketID string) (*models.Bucket, error)
	UpdateBucket(userID, bucketID string, fields BucketUpdateFields) (*models.Bucket, error)
	MakeDefault(userID, bucketID string) (*models.Bucket, error)
	DeleteBucket(userID, bucketID string) error
	FundBucket(userID, toBucketID, fromBucketID string, amount decimal.Decimal) (*models.Bucket, error)
	GetBucketTransactions(userID, bucketID string, page pagination.PageRequest) (*pagination.PageResponse[models.BucketTransaction], error)
	VerifyLedger(userID, bucketID string) (*LedgerCheck, error)
	RecordTransaction(tx *gorm.DB, entry BucketEntry) (*models.BucketTransaction, error)
}

// MonthServicer defines the contract for the per-user open month cursor.
type MonthServicer interface {
	ForUser(userID string, today time.Time) (*models.OpenMonthMaster, error)
	EnsureOpenWithDB(tx *gorm.DB, userID string, dates ...time.Time) error
	ReopenPrevious(userID string) (*models.OpenMonthMaster, error)
}

// EntryFilter narrows ledger entry listings.
type EntryFilter struct {
	AccountID *string
	FromDate  *time.Time
	ToDate    *time.Time
}

// PaymentInput holds the fields accepted when recording a payment.
type PaymentInput struct {
	AccountID              string
	SpendingCategoryID     string
	SpendingTypeOverrideID *string
	BucketID               *string
	IsBucketExecution      bool
	PaymentDate            time.Time
	Description            string
	Notes                  string
	Amount                 decimal.Decimal
}

// PaymentServicer defines the contract for payments.
type PaymentServicer interface {
	CreatePayment(userID string, in PaymentInput) (*models.Payment, error)
	GetPayments(userID string, today time.Time, filter EntryFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Payment], error)
	GetPaymentByID(userID, paymentID string) (*models.Payment, error)
	UpdatePayment(userID, paymentID string, in PaymentInput) (*models.Payment, error)
	DeletePayment(userID, paymentID string) error
}

// IncomeInput holds the fields accepted when recording an income entry.
type IncomeInput struct {
	AccountID    *string
	SourceName   string
	Description  string
	EntryDate    time.Time
	Amount       decimal.Decimal
	ReceivedFlag bool
}

// IncomeServicer defines the contract for income entries.
type IncomeServicer interface {
	CreateIncome(userID string, in IncomeInput) (*models.IncomeEntry, error)
	GetIncomes(userID string, today time.Time, filter EntryFilter, page pagination.PageRequest) (*pagination.PageResponse[models.IncomeEntry], error)
	GetIncomeByID(userID, incomeID string) (*models.IncomeEntry, error)
	UpdateIncome(userID, incomeID string, in IncomeInput) (*models.IncomeEntry, error)
	DeleteIncome(userID, incomeID string) error
}

// TransferInput holds the fields accepted when recording a transfer.
type TransferInput struct {
	FromAccountID string
	ToAccountID   string
	FromBucketID  *string
	ToBucketID    *string
	TransferDate  time.Time
	Amount        decimal.Decimal
	Memo          string
}

// TransferServicer defines the contract for transfers between accounts or buckets.
type TransferServicer interface {
	CreateTransfer(userID string, in TransferInput) (*models.TransferMaster, error)
	GetTransfers(userID string, filter EntryFilter, page pagination.PageRequest) (*pagination.PageResponse[models.TransferMaster], error)
	GetTransferByID(userID, transferID string) (*models.TransferMaster, error)
	UpdateTransfer(userID, transferID string, in TransferInput) (*models.TransferMaster, error)
	DeleteTransfer(userID, transferID string) error
	CreateAutoTransferWithDB(tx *gorm.DB, payment *models.Payment, fromAccountID string) (*models.TransferMaster, error)
	RemoveAutoTransfersWithDB(tx *gorm.DB, paymentID string) error
}

// AdjustmentInput holds the fields accepted when recording a balance adjustment.
type AdjustmentInput struct {
	AccountID      string
	AdjustmentDate time.Time
	Description    string
	Notes          string
	Amount         decimal.Decimal
}

// AdjustmentServicer defines the contract for manual balance adjustments.
type AdjustmentServicer interface {
	CreateAdjustment(userID string, in AdjustmentInput) (*models.BalanceAdjustment, error)
	GetAdjustments(userID string, filter EntryFilter, page pagination.PageRequest) (*pagination.PageResponse[models.BalanceAdjustment], error)
	GetAdjustmentByID(userID, adjustmentID string) (*models.BalanceAdjustment, error)
	UpdateAdjustment(userID, adjustmentID string, in AdjustmentInput) (*models.BalanceAdjustment, error)
	DeleteAdjustment(userID, adjustmentID string) error
}

// FrequencyInput describes a user-defined frequency rule.
type FrequencyInput struct {
	Name string
	Rule frequency.Rule
}

// RecurringKind selects a recurring definition table.
type RecurringKind string

const (
	RecurringIncome     RecurringKind = "income"
	RecurringPayment    RecurringKind = "payment"
	RecurringObligation RecurringKind = "obligation"
)

// IncomeRecurringInput holds the fields of a recurring income definition.
type IncomeRecurringInput struct {
	AccountID         *string
	FrequencyMasterID string
	Name              string
	Description       string
	Amount            decimal.Decimal
	NextDate          time.Time
	UseFlag           *bool
}

// PaymentRecurringInput holds the fields of a recurring payment definition.
type PaymentRecurringInput struct {
	AccountID          string
	SpendingCategoryID string
	FrequencyMasterID  string
	Description        string
	Amount             decimal.Decimal
	NextDate           time.Time
	UseFlag            *bool
}

// ObligationInput holds the fields of a projection-only recurring obligation.
type ObligationInput struct {
	AccountID          *string
	SpendingCategoryID *string
	FrequencyMasterID  string
	Name               string
	Amount             decimal.Decimal
	StartDate          time.Time
	DueDay             int
	UseFlag            *bool
}

// ObligationDue is one projected occurrence of an obligation.
type ObligationDue struct {
	ObligationID string          `json:"obligation_id"`
	Name         string          `json:"name"`
	Amount       decimal.Decimal `json:"amount"`
	DueDate      time.Time       `json:"due_date"`
	Frequency    string          `json:"frequency"`
}

// GenerationResult reports what one generator pass materialized.
type GenerationResult struct {
	Created  int `json:"created"`
	Skipped  int `json:"skipped"`
	Retired  int `json:"retired"`
	Advanced int `json:"advanced"`
}

// RecurringServicer defines the contract for recurring definitions and the
// generator that materializes them.
type RecurringServicer interface {
	SeedFrequencies() error
	GetFrequencies(userID string) ([]models.FrequencyMaster, error)
	CreateFrequency(userID string, in FrequencyInput) (*models.FrequencyMaster, error)

	CreateIncomeRecurring(userID string, in IncomeRecurringInput) (*models.IncomeRecurring, error)
	GetIncomeRecurrings(userID string) ([]models.IncomeRecurring, error)
	UpdateIncomeRecurring(userID, id string, in IncomeRecurringInput) (*models.IncomeRecurring, error)

	CreatePaymentRecurring(userID string, in PaymentRecurringInput) (*models.PaymentRecurring, error)
	GetPaymentRecurrings(userID string) ([]models.PaymentRecurring, error)
	UpdatePaymentRecurring(userID, id string, in PaymentRecurringInput) (*models.PaymentRecurring, error)

	CreateObligation(userID string, in ObligationInput) (*models.RecurringObligation, error)
	GetObligations(userID string) ([]models.RecurringObligation, error)
	UpdateObligation(userID, id string, in ObligationInput) (*models.RecurringObligation, error)
	ObligationsForMonth(userID string, year int, month time.Month) ([]ObligationDue, error)

	DeleteRecurring(userID string, kind RecurringKind, id string) error

	GenerateDueIncome(userID string, today time.Time) (*GenerationResult, error)
	GenerateDuePayments(userID string, today time.Time) (*GenerationResult, error)
}

// SpendingLimitServicer defines the contract for effective-dated spending limits.
type SpendingLimitServicer interface {
	SetLimit(userID string, scope models.LimitScope, scopeID string, value decimal.Decimal, effectiveYYYYMM int) (*models.SpendingLimitHistory, error)
	LimitsForMonth(userID string, scope models.LimitScope, yyyymm int) (map[string]decimal.Decimal, error)
	GetLimitHistory(userID string, scope models.LimitScope, scopeID string) ([]models.SpendingLimitHistory, error)
	DeleteLimit(userID, limitID string) error
}

// CategoryInput holds the fields of a spending category.
type CategoryInput struct {
	Name           string
	Description    string
	SpendingTypeID *string
	IsDebt         bool
}

// CategoryServicer defines the contract for the spending taxonomy.
type CategoryServicer interface {
	CreateSpendingType(userID, name, description string) (*models.SpendingType, error)
	GetSpendingTypes(userID string) ([]models.SpendingType, error)
	GetSpendingTypeByID(userID, id string) (*models.SpendingType, error)
	UpdateSpendingType(userID, id, name, description string) (*models.SpendingType, error)
	DeleteSpendingType(userID, id string) error

	CreateCategory(userID string, in CategoryInput) (*models.SpendingCategory, error)
	GetUserCategories(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.SpendingCategory], error)
	GetCategoryByID(userID, categoryID string) (*models.SpendingCategory, error)
	UpdateCategory(userID, categoryID string, in CategoryInput) (*models.SpendingCategory, error)
	DeleteCategory(userID, categoryID string) error
}

// SnapshotServicer defines the contract for month-end snapshots.
type SnapshotServicer interface {
	GenerateMonthWithDB(tx *gorm.DB, userID string, year int, month time.Month) error
	MarkStaleWithDB(tx *gorm.DB, userID string, year int, month time.Month) error
	GetAccountSnapshots(userID string, year int, month time.Month) ([]models.AccountMonthSnapshot, error)
	GetDashboardSnapshot(userID string, year int, month time.Month) (*models.DashboardMonthSnapshot, error)
	GetNetWorthHistory(userID string, from, to time.Time) ([]models.NetWorthSnapshot, error)
}

// ChecklistItem is one soft-close predicate result.
type ChecklistItem struct {
	Key    string `json:"key"`
	Label  string `json:"label"`
	Passed bool   `json:"passed"`
	Count  int64  `json:"count"`
}

// MonthSummary holds the headline totals of a month.
type MonthSummary struct {
	TotalSpent           decimal.Decimal `json:"total_spent"`
	TotalIncome          decimal.Decimal `json:"total_income"`
	BeginningBudgetTotal decimal.Decimal `json:"beginning_budget_total"`
	EndingBudgetTotal    decimal.Decimal `json:"ending_budget_total"`
	NetWorth             decimal.Decimal `json:"net_worth"`
}

// SoftCloseStatus is the checklist and summary for the open month.
type SoftCloseStatus struct {
	Year      int             `json:"year"`
	Month     int             `json:"month"`
	Checklist []ChecklistItem `json:"checklist"`
	Ready     bool            `json:"ready"`
	Summary   MonthSummary    `json:"summary"`
}

// Attestation carries the two manual confirmations required to close.
type Attestation struct {
	ReviewedTotals    bool
	FinalConfirmation bool
}

// SoftCloseServicer defines the contract for the month-end close.
type SoftCloseServicer interface {
	GetStatus(userID string, today time.Time) (*SoftCloseStatus, error)
	CloseMonth(userID string, year int, month time.Month, att Attestation, today time.Time) (*models.OpenMonthMaster, error)
}

// ReconcileKind names a reconcilable entry table.
type ReconcileKind string

const (
	ReconcilePayment    ReconcileKind = "payment"
	ReconcileIncome     ReconcileKind = "income"
	ReconcileTransfer   ReconcileKind = "transfer"
	ReconcileAdjustment ReconcileKind = "adjustment"
)

// KindTotals are the per-kind totals of a reconciliation summary.
type KindTotals struct {
	Total        decimal.Decimal `json:"total"`
	Count        int64           `json:"count"`
	Unreconciled int64           `json:"unreconciled"`
}

// ReconciliationSummary compares the ledger with the statement.
type ReconciliationSummary struct {
	AccountID      string                        `json:"account_id"`
	Year           int                           `json:"year"`
	Month          int                           `json:"month"`
	BudgetBalance  decimal.Decimal               `json:"budget_balance"`
	OutsideBalance *decimal.Decimal              `json:"outside_balance,omitempty"`
	Difference     *decimal.Decimal              `json:"difference,omitempty"`
	Status         models.ReconciliationStatus   `json:"status"`
	Kinds          map[ReconcileKind]*KindTotals `json:"kinds"`
}

// StatementCounts are the item counts reported by the bank statement.
type StatementCounts struct {
	Payments    *int
	Deposits    *int
	Adjustments *int
}

// CountMismatch reports a statement count that disagrees with the ledger.
type CountMismatch struct {
	Kind      ReconcileKind `json:"kind"`
	Statement int           `json:"statement"`
	Ledger    int64         `json:"ledger"`
}

// Candidate is an unreconciled entry whose amount explains the difference.
type Candidate struct {
	Kind        ReconcileKind   `json:"kind"`
	ID          string          `json:"id"`
	Date        time.Time       `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// Diagnostics helps the user find the source of a variance.
type Diagnostics struct {
	Difference *decimal.Decimal `json:"difference,omitempty"`
	Mismatches []CountMismatch  `json:"mismatches"`
	Candidates []Candidate      `json:"candidates"`
}

// ReconciliationServicer defines the contract for statement reconciliation
// of the open month.
type ReconciliationServicer interface {
	GetSummary(userID, accountID string, today time.Time) (*ReconciliationSummary, error)
	SetOutsideBalance(userID, accountID string, balance decimal.Decimal, today time.Time) (*models.ReconciliationRecord, error)
	SetStatementCounts(userID, accountID string, counts StatementCounts, today time.Time) (*models.ReconciliationRecord, error)
	ToggleReconciled(userID string, kind ReconcileKind, id string, reconciled bool) error
	MarkReconciled(userID, accountID string, today time.Time) (*models.ReconciliationRecord, error)
	Diagnostics(userID, accountID string, today time.Time) (*Diagnostics, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID string, action, resourceType string, resourceID string, ipAddress string, changes map[string]interface{})
}
