package model

// ReportType classifies a report. It is fixed at creation.
type ReportType string

const (
	ReportTypeFinancialStatement   ReportType = "FINANCIAL_STATEMENT"
	ReportTypeAccountsPayable      ReportType = "ACCOUNTS_PAYABLE"
	ReportTypeAccountsReceivable   ReportType = "ACCOUNTS_RECEIVABLE"
	ReportTypeProjectProfitability ReportType = "PROJECT_PROFITABILITY"
	ReportTypeCashFlow             ReportType = "CASH_FLOW"
	ReportTypeExpense              ReportType = "EXPENSE"
	ReportTypeRevenue              ReportType = "REVENUE"
	ReportTypeTax                  ReportType = "TAX"
	ReportTypeAsset                ReportType = "ASSET"
	ReportTypeCustom               ReportType = "CUSTOM"
)

func (t ReportType) Valid() bool {
	switch t {
	case ReportTypeFinancialStatement, ReportTypeAccountsPayable, ReportTypeAccountsReceivable,
		ReportTypeProjectProfitability, ReportTypeCashFlow, ReportTypeExpense, ReportTypeRevenue,
		ReportTypeTax, ReportTypeAsset, ReportTypeCustom:
		return true
	}
	return false
}

// ReportFormat is the output encoding of a generated artifact.
type ReportFormat string

const (
	FormatPDF   ReportFormat = "PDF"
	FormatExcel ReportFormat = "EXCEL"
	FormatCSV   ReportFormat = "CSV"
	FormatHTML  ReportFormat = "HTML"
	FormatJSON  ReportFormat = "JSON"
)

// DefaultFormat is applied when a report or template does not name one.
const DefaultFormat = FormatPDF

func (f ReportFormat) Valid() bool {
	switch f {
	case FormatPDF, FormatExcel, FormatCSV, FormatHTML, FormatJSON:
		return true
	}
	return false
}

// Extension returns the file extension used for artifacts of this format.
func (f ReportFormat) Extension() string {
	switch f {
	case FormatExcel:
		return "xlsx"
	case FormatCSV:
		return "csv"
	case FormatHTML:
		return "html"
	case FormatJSON:
		return "json"
	default:
		return "pdf"
	}
}

// ParameterType governs how a parameter value string is validated.
type ParameterType string

const (
	ParamString     ParameterType = "STRING"
	ParamNumber     ParameterType = "NUMBER"
	ParamDate       ParameterType = "DATE"
	ParamDateTime   ParameterType = "DATETIME"
	ParamBoolean    ParameterType = "BOOLEAN"
	ParamList       ParameterType = "LIST"
	ParamMultiList  ParameterType = "MULTI_LIST"
	ParamCurrency   ParameterType = "CURRENCY"
	ParamPercentage ParameterType = "PERCENTAGE"
)

func (t ParameterType) Valid() bool {
	switch t {
	case ParamString, ParamNumber, ParamDate, ParamDateTime, ParamBoolean,
		ParamList, ParamMultiList, ParamCurrency, ParamPercentage:
		return true
	}
	return false
}

// Roles carried in access tokens.
const (
	RoleAdmin            = "ADMIN"
	RoleFinancialManager = "FINANCIAL_MANAGER"
	RoleAccountant       = "ACCOUNTANT"
	RoleProjectManager   = "PROJECT_MANAGER"
)
