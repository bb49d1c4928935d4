package analytics

import (
	"fmt"
	"strings"
)

// NoDataMessage is rendered whenever a query produces an empty result
// set, instead of an empty list.
const NoDataMessage = "No data found for this query."

// Format renders a result into a human-readable summary. It is a pure,
// total function per query type.
func Format(query *GeneratedQuery, result *Result) string {
	switch result.QueryType {
	case QueryTopAccountsByExpense:
		if len(result.AccountTotals) == 0 {
			return NoDataMessage
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Top accounts by spending (%s):\n", periodLabel(query.TimePeriod))
		for i, row := range result.AccountTotals {
			fmt.Fprintf(&b, "%d. %s: %.2f %s\n", i+1, row.AccountName, row.Total, row.Currency)
		}
		return strings.TrimRight(b.String(), "\n")

	case QuerySpendingByCategory:
		if len(result.CategoryTotals) == 0 {
			return NoDataMessage
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Spending by category (%s):\n", periodLabel(query.TimePeriod))
		for _, row := range result.CategoryTotals {
			fmt.Fprintf(&b, "• %s: %.2f %s\n", row.Category, row.Total, row.Currency)
		}
		return strings.TrimRight(b.String(), "\n")

	case QueryCountArchivedTransactions:
		return fmt.Sprintf("You have %d archived transaction(s).", result.Count)

	case QueryCountRemainingInstallments:
		return fmt.Sprintf("You have %d remaining installment(s).", result.Count)

	case QueryTotalCreditCardDebt:
		if len(result.CurrencyTotals) == 0 {
			return NoDataMessage
		}
		var b strings.Builder
		b.WriteString("Total credit card debt:\n")
		for _, row := range result.CurrencyTotals {
			fmt.Fprintf(&b, "• %.2f %s\n", row.Total, row.Currency)
		}
		return strings.TrimRight(b.String(), "\n")

	case QueryTopAccountsByTransactionCount:
		if len(result.AccountCounts) == 0 {
			return NoDataMessage
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Most active accounts (%s):\n", periodLabel(query.TimePeriod))
		for i, row := range result.AccountCounts {
			fmt.Fprintf(&b, "%d. %s: %d transaction(s)\n", i+1, row.AccountName, row.Count)
		}
		return strings.TrimRight(b.String(), "\n")

	default:
		return NoDataMessage
	}
}

func periodLabel(p TimePeriod) string {
	switch p {
	case PeriodToday:
		return "today"
	case PeriodThisWeek:
		return "this week"
	case PeriodThisMonth:
		return "this month"
	case PeriodThisYear:
		return "this year"
	default:
		return "all time"
	}
}
