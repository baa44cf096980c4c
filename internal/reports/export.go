package reports

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/kudibooks/kudibooks/internal/money"
)

// WriteAgingCSV prints aging buckets to CSV with amounts in display units of
// currency.
func WriteAgingCSV(w io.Writer, aging Aging, currency string) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()
	if err := writer.Write([]string{"Bucket", "Invoices", "Due"}); err != nil {
		return err
	}
	for _, bucket := range aging.Buckets {
		if err := writer.Write([]string{bucket.Bucket, strconv.Itoa(bucket.Count), major(bucket.Due, currency)}); err != nil {
			return err
		}
	}
	if err := writer.Write([]string{"Total", "", major(aging.Total, currency)}); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

// WriteTrendCSV emits the monthly trend as CSV.
func WriteTrendCSV(w io.Writer, points []TrendPoint, currency string) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()
	if err := writer.Write([]string{"Period", "Invoiced", "Paid", "Expenses"}); err != nil {
		return err
	}
	for _, point := range points {
		if err := writer.Write([]string{
			point.Period,
			major(point.Invoiced, currency),
			major(point.Paid, currency),
			major(point.Expenses, currency),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func major(m money.Money, currency string) string {
	scale := money.Scale(currency)
	return m.Decimal(scale).StringFixed(int32(scale))
}
