package errors

// Generic codes, one per category.
const (
	CodeSystemGeneric     = "SYS-000"
	CodeNetworkGeneric    = "NET-000"
	CodeConfigGeneric     = "CFG-000"
	CodeValidationGeneric = "VAL-000"
	CodeDatabaseGeneric   = "DB-000"
)

// Store codes. Callers branch on these, so they must stay stable.
const (
	CodeStoreUnavailable = "NET-001"
	CodeNamespaceExists  = "DB-001"
	CodeDuplicateValues  = "DB-002"
	CodeIndexConflict    = "DB-003"
)

const (
	CodeInvalidPlan        = "VAL-001"
	CodeVerificationFailed = "VAL-010"
	CodeInvalidConfig      = "CFG-001"
	CodeUsage              = "CFG-002"
	CodeJournalDisabled    = "CFG-003"
)
