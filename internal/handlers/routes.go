package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"budgethq/internal/services"
)

// Router holds every handler of the API.
type Router struct {
	Auth           *AuthHandler
	Accounts       *AccountHandler
	Buckets        *BucketHandler
	Categories     *CategoryHandler
	Payments       *PaymentHandler
	Incomes        *IncomeHandler
	Transfers      *TransferHandler
	Adjustments    *AdjustmentHandler
	Recurring      *RecurringHandler
	Limits         *SpendingLimitHandler
	Months         *MonthHandler
	Reconciliation *ReconciliationHandler
}

// NewRouter wires the services on db into handlers. requireReconciliation
// adds the reconciliation item to the soft-close checklist.
func NewRouter(db *gorm.DB, requireReconciliation bool) *Router {
	audit := services.NewAuditService(db)
	accounts := services.NewAccountService(db)
	buckets := services.NewBucketService(db)
	snapshots := services.NewSnapshotService(db)
	months := services.NewMonthService(db, snapshots, today)
	transfers := services.NewTransferService(db, accounts, buckets, months)
	recurring := services.NewRecurringService(db, accounts)
	payments := services.NewPaymentService(db, accounts, buckets, transfers, months, recurring)
	incomes := services.NewIncomeService(db, accounts, months, recurring)
	adjustments := services.NewAdjustmentService(db, accounts, months)

	return &Router{
		Auth:           NewAuthHandler(services.NewUserService(db)),
		Accounts:       NewAccountHandler(accounts, audit),
		Buckets:        NewBucketHandler(buckets, audit),
		Categories:     NewCategoryHandler(services.NewCategoryService(db)),
		Payments:       NewPaymentHandler(payments, audit),
		Incomes:        NewIncomeHandler(incomes),
		Transfers:      NewTransferHandler(transfers, audit),
		Adjustments:    NewAdjustmentHandler(adjustments, audit),
		Recurring:      NewRecurringHandler(recurring),
		Limits:         NewSpendingLimitHandler(services.NewSpendingLimitService(db), audit),
		Months:         NewMonthHandler(months, services.NewSoftCloseService(db, months, snapshots, requireReconciliation), snapshots, audit),
		Reconciliation: NewReconciliationHandler(services.NewReconciliationService(db, months), audit),
	}
}

// Register mounts the public auth routes on v1 and everything else behind auth.
func (r *Router) Register(v1 *gin.RouterGroup, auth gin.HandlerFunc) {
	public := v1.Group("/auth")
	public.POST("/register", r.Auth.Register)
	public.POST("/login", r.Auth.Login)
	public.POST("/refresh", r.Auth.Refresh)

	protected := v1.Group("/")
	protected.Use(auth)

	protected.GET("/profile", r.Auth.GetProfile)

	accounts := protected.Group("/accounts")
	accounts.POST("", r.Accounts.CreateAccount)
	accounts.GET("", r.Accounts.GetUserAccounts)
	accounts.GET("/:id", r.Accounts.GetAccountByID)
	accounts.PUT("/:id", r.Accounts.UpdateAccount)
	accounts.DELETE("/:id", r.Accounts.DeleteAccount)
	accounts.GET("/:id/buckets", r.Buckets.GetBuckets)
	accounts.POST("/:id/buckets", r.Buckets.CreateBucket)
	accounts.GET("/:id/reconciliation", r.Reconciliation.GetSummary)
	accounts.PUT("/:id/reconciliation/outside-balance", r.Reconciliation.SetOutsideBalance)
	accounts.PUT("/:id/reconciliation/statement-counts", r.Reconciliation.SetStatementCounts)
	accounts.POST("/:id/reconciliation/mark", r.Reconciliation.MarkReconciled)
	accounts.GET("/:id/reconciliation/diagnostics", r.Reconciliation.Diagnostics)

	buckets := protected.Group("/buckets")
	buckets.GET("/:id", r.Buckets.GetBucket)
	buckets.PUT("/:id", r.Buckets.UpdateBucket)
	buckets.DELETE("/:id", r.Buckets.DeleteBucket)
	buckets.POST("/:id/fund", r.Buckets.FundBucket)
	buckets.POST("/:id/default", r.Buckets.MakeDefault)
	buckets.GET("/:id/transactions", r.Buckets.GetBucketTransactions)
	buckets.GET("/:id/verify", r.Buckets.VerifyLedger)

	types := protected.Group("/spending-types")
	types.POST("", r.Categories.CreateSpendingType)
	types.GET("", r.Categories.GetSpendingTypes)
	types.GET("/:id", r.Categories.GetSpendingType)
	types.PUT("/:id", r.Categories.UpdateSpendingType)
	types.DELETE("/:id", r.Categories.DeleteSpendingType)

	categories := protected.Group("/spending-categories")
	categories.POST("", r.Categories.CreateCategory)
	categories.GET("", r.Categories.GetUserCategories)
	categories.GET("/:id", r.Categories.GetCategoryByID)
	categories.PUT("/:id", r.Categories.UpdateCategory)
	categories.DELETE("/:id", r.Categories.DeleteCategory)

	payments := protected.Group("/payments")
	payments.POST("", r.Payments.CreatePayment)
	payments.GET("", r.Payments.GetPayments)
	payments.GET("/:id", r.Payments.GetPayment)
	payments.PUT("/:id", r.Payments.UpdatePayment)
	payments.DELETE("/:id", r.Payments.DeletePayment)

	incomes := protected.Group("/income-entries")
	incomes.POST("", r.Incomes.CreateIncome)
	incomes.GET("", r.Incomes.GetIncomes)
	incomes.GET("/:id", r.Incomes.GetIncome)
	incomes.PUT("/:id", r.Incomes.UpdateIncome)
	incomes.DELETE("/:id", r.Incomes.DeleteIncome)

	transfers := protected.Group("/transfers")
	transfers.POST("", r.Transfers.CreateTransfer)
	transfers.GET("", r.Transfers.GetTransfers)
	transfers.GET("/:id", r.Transfers.GetTransfer)
	transfers.PUT("/:id", r.Transfers.UpdateTransfer)
	transfers.DELETE("/:id", r.Transfers.DeleteTransfer)

	adjustments := protected.Group("/adjustments")
	adjustments.POST("", r.Adjustments.CreateAdjustment)
	adjustments.GET("", r.Adjustments.GetAdjustments)
	adjustments.GET("/:id", r.Adjustments.GetAdjustment)
	adjustments.PUT("/:id", r.Adjustments.UpdateAdjustment)
	adjustments.DELETE("/:id", r.Adjustments.DeleteAdjustment)

	protected.GET("/frequencies", r.Recurring.GetFrequencies)
	protected.POST("/frequencies", r.Recurring.CreateFrequency)

	recurring := protected.Group("/recurring")
	recurring.POST("/income", r.Recurring.CreateIncomeRecurring)
	recurring.GET("/income", r.Recurring.GetIncomeRecurrings)
	recurring.PUT("/income/:id", r.Recurring.UpdateIncomeRecurring)
	recurring.POST("/payments", r.Recurring.CreatePaymentRecurring)
	recurring.GET("/payments", r.Recurring.GetPaymentRecurrings)
	recurring.PUT("/payments/:id", r.Recurring.UpdatePaymentRecurring)
	recurring.POST("/obligations", r.Recurring.CreateObligation)
	recurring.GET("/obligations", r.Recurring.GetObligations)
	recurring.GET("/obligations/projection", r.Recurring.ProjectObligations)
	recurring.PUT("/obligations/:id", r.Recurring.UpdateObligation)
	recurring.DELETE("/:kind/:id", r.Recurring.DeleteRecurring)
	recurring.POST("/generate", r.Recurring.GenerateDue)

	limits := protected.Group("/spending-limits")
	limits.POST("", r.Limits.SetLimit)
	limits.GET("", r.Limits.GetLimitHistory)
	limits.GET("/for-month", r.Limits.LimitsForMonth)
	limits.DELETE("/:id", r.Limits.DeleteLimit)

	protected.GET("/month", r.Months.GetOpenMonth)
	protected.POST("/month/reopen", r.Months.ReopenPrevious)
	protected.GET("/soft-close", r.Months.GetSoftCloseStatus)
	protected.POST("/soft-close", r.Months.CloseMonth)
	protected.GET("/snapshots", r.Months.GetMonthSnapshots)
	protected.GET("/snapshots/net-worth", r.Months.GetNetWorthHistory)

	protected.POST("/reconciliation/toggle", r.Reconciliation.Toggle)
}
