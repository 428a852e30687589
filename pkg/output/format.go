// Package output provides utilities for formatting and displaying comparison results.
package output

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/iwvelando/mortgage-compare/internal/compare"
	"github.com/iwvelando/mortgage-compare/pkg/amortization"
	"github.com/iwvelando/mortgage-compare/pkg/format"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// PrettyFormat writes a human-readable ranking followed by the details of each offer.
func PrettyFormat(w io.Writer, comparison *compare.Comparison) {
	p := message.NewPrinter(language.English)

	_, _ = p.Fprintf(w, "--- Ranking of %d offers (%s method) ---\n", len(comparison.Results), comparison.Method)
	_, _ = fmt.Fprintf(w, "Rank | Offer | Months | Effective Rate | Break-even Fee\n")
	_, _ = fmt.Fprintf(w, "____ | _____ | ______ | ______________ | ______________\n")
	for _, result := range byRank(comparison.Results) {
		_, _ = p.Fprintf(w, "%d | %s | %d | %s | %s\n",
			result.Rank, result.Name, result.HorizonMonths, effectiveRate(result), breakEvenFee(result, comparison.Benchmark))
	}

	for _, result := range comparison.Results {
		_, _ = fmt.Fprintf(w, "\n--- Results for offer %s ---\n", result.Name)
		if result.LoanToValuePercent > 0 {
			_, _ = fmt.Fprintf(w, "Principal: %s against a house value of %s (%s loan to value)\n",
				format.Currency(result.Principal), format.Currency(result.HouseValue), format.Percent(result.LoanToValuePercent, 1))
		} else {
			_, _ = fmt.Fprintf(w, "Principal: %s\n", format.Currency(result.Principal))
		}
		for _, seg := range result.Segments {
			_, _ = p.Fprintf(w, "Segment %d: %s from month %d for %d of %d months, paying %s per month%s\n",
				seg.Index, format.Percent(seg.RatePercent, 2), seg.StartMonth, seg.DurationMonths, seg.TermMonths,
				format.Currency(seg.MonthlyPayment), segmentCosts(seg))
		}
		_, _ = p.Fprintf(w, "Paid over %d months: %s (%s of the loan)\n",
			result.HorizonMonths, format.Currency(result.TotalPaid), format.Percent(result.TotalPaidRatio*100, 1))
		_, _ = fmt.Fprintf(w, "Remaining balance: %s (%s of the loan)\n",
			format.Currency(result.RemainingBalance), format.Percent(result.RemainingRatio*100, 1))
		_, _ = fmt.Fprintf(w, "Effective rate: %s\n", effectiveRate(result))
		if result.BreakEvenFee != nil {
			_, _ = fmt.Fprintf(w, "Break-even fee against %s: %s\n", comparison.Benchmark, format.Currency(*result.BreakEvenFee))
		}
		for _, note := range result.Notes {
			_, _ = fmt.Fprintf(w, "Note: %s\n", note)
		}
	}
}

// CsvFormat writes one comma-separated row per offer in configuration order.
func CsvFormat(w io.Writer, comparison *compare.Comparison) error {
	writer := csv.NewWriter(w)
	header := []string{
		"rank", "offer", "principal", "months", "total paid", "remaining balance",
		"effective rate (%)", "break-even fee", "notes",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, result := range comparison.Results {
		rate := ""
		if result.EffectiveRate.Method != "" {
			rate = strconv.FormatFloat(result.EffectivePercent, 'f', 6, 64)
		}
		fee := ""
		if result.BreakEvenFee != nil {
			fee = format.Plain(*result.BreakEvenFee)
		}
		record := []string{
			strconv.Itoa(result.Rank),
			result.Name,
			format.Plain(result.Principal),
			strconv.Itoa(result.HorizonMonths),
			format.Plain(result.TotalPaid),
			format.Plain(result.RemainingBalance),
			rate,
			fee,
			strings.Join(result.Notes, "; "),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// CsvString returns CsvFormat output as a string.
func CsvString(comparison *compare.Comparison) string {
	var buf bytes.Buffer
	if err := CsvFormat(&buf, comparison); err != nil {
		return ""
	}
	return buf.String()
}

// ScheduleFormat writes a human-readable amortization table.
func ScheduleFormat(w io.Writer, name string, schedule []amortization.Payment) {
	_, _ = fmt.Fprintf(w, "--- Amortization schedule for offer %s ---\n", name)
	_, _ = fmt.Fprintf(w, "Month | Date    | Payment | Principal | Interest | Remaining\n")
	_, _ = fmt.Fprintf(w, "_____ | ____    | _______ | _________ | ________ | _________\n")
	for _, payment := range schedule {
		date := payment.Date
		if date == "" {
			date = "-"
		}
		_, _ = fmt.Fprintf(w, "%d | %s | %s | %s | %s | %s\n",
			payment.Month, date,
			format.Currency(payment.Payment),
			format.Currency(payment.Principal),
			format.Currency(payment.Interest),
			format.Currency(payment.RemainingPrincipal),
		)
	}
}

// ScheduleCsv writes an amortization schedule in comma-separated value format.
func ScheduleCsv(w io.Writer, schedule []amortization.Payment) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"month", "date", "payment", "principal", "interest", "remaining"}); err != nil {
		return err
	}
	for _, payment := range schedule {
		record := []string{
			strconv.Itoa(payment.Month),
			payment.Date,
			format.Plain(payment.Payment),
			format.Plain(payment.Principal),
			format.Plain(payment.Interest),
			format.Plain(payment.RemainingPrincipal),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func byRank(results []compare.Result) []compare.Result {
	ordered := append([]compare.Result(nil), results...)
	sort.SliceStable(ordered, func(a, b int) bool {
		return ordered[a].Rank < ordered[b].Rank
	})
	return ordered
}

func effectiveRate(result compare.Result) string {
	if result.EffectiveRate.Method == "" {
		return "below 0%"
	}
	return format.Percent(result.EffectivePercent, 4)
}

func breakEvenFee(result compare.Result, benchmark string) string {
	switch {
	case result.Name == benchmark:
		return "benchmark"
	case result.BreakEvenFee == nil:
		return "-"
	default:
		return format.Currency(*result.BreakEvenFee)
	}
}

func segmentCosts(seg compare.Segment) string {
	var parts []string
	if seg.Fees != 0 {
		if seg.FeesAddedToLoan {
			parts = append(parts, fmt.Sprintf("fees %s added to the loan", format.Currency(seg.Fees)))
		} else {
			parts = append(parts, fmt.Sprintf("fees %s paid upfront", format.Currency(seg.Fees)))
		}
	}
	if seg.Cashback != 0 {
		parts = append(parts, fmt.Sprintf("cashback %s", format.Currency(seg.Cashback)))
	}
	if len(parts) == 0 {
		return ""
	}
	return ", " + strings.Join(parts, ", ")
}
