package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/cbw-coffee/api/internal/domain"
	"github.com/cbw-coffee/api/internal/services"
)

const (
	ordersSheet    = "Orders"
	summarySheet   = "Summary"
	exportPageSize = 100
	filsPerDirham  = 100
)

var orderColumns = []any{
	"Order Number", "Created (UTC)", "Status", "Payment", "Payment Status", "Fulfillment",
	"Emirate", "Items", "Subtotal", "Discount", "Delivery", "VAT", "Grand Total", "Total (display)",
}

func ordersCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Order reporting and diagnostics",
	}
	cmd.AddCommand(ordersExportCmd(flags), ordersNextNumberCmd(flags))
	return cmd
}

func ordersExportCmd(flags *globalFlags) *cobra.Command {
	var (
		out      string
		from     string
		to       string
		statuses []string
		locale   string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write orders to an XLSX workbook",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			filter, err := exportFilter(from, to, statuses)
			if err != nil {
				return err
			}
			tag, err := language.Parse(locale)
			if err != nil {
				return fmt.Errorf("invalid --locale %q: %w", locale, err)
			}

			e, err := newEnv(ctx, flags)
			if err != nil {
				return err
			}
			defer e.Close()

			container, err := e.container(ctx)
			if err != nil {
				return err
			}
			orders, err := collectOrders(ctx, container.Services.Orders, filter)
			if err != nil {
				return err
			}
			file, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create %s: %w", out, err)
			}
			if err := writeOrdersWorkbook(file, orders, message.NewPrinter(tag)); err != nil {
				_ = file.Close()
				return err
			}
			if err := file.Close(); err != nil {
				return err
			}
			e.logger.Info("orders exported", zap.Int("count", len(orders)), zap.String("file", out))
			fmt.Fprintf(cmd.OutOrStdout(), "%d orders written to %s\n", len(orders), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "orders.xlsx", "output workbook path")
	cmd.Flags().StringVar(&from, "from", "", "first creation date (YYYY-MM-DD, inclusive)")
	cmd.Flags().StringVar(&to, "to", "", "last creation date (YYYY-MM-DD, inclusive)")
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "only include these statuses")
	cmd.Flags().StringVar(&locale, "locale", "en-AE", "locale used for the display total column")
	return cmd
}

func ordersNextNumberCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "next-number",
		Short: "Show the order number the next checkout will receive",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			e, err := newEnv(ctx, flags)
			if err != nil {
				return err
			}
			defer e.Close()

			container, err := e.container(ctx)
			if err != nil {
				return err
			}
			next, err := container.Services.Counters.PeekOrderNumber(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), next)
			return nil
		},
	}
}

func exportFilter(from, to string, statuses []string) (services.OrderListFilter, error) {
	filter := services.OrderListFilter{Pagination: domain.Pagination{PageSize: exportPageSize}}
	if from = strings.TrimSpace(from); from != "" {
		start, err := time.Parse(time.DateOnly, from)
		if err != nil {
			return filter, fmt.Errorf("invalid --from: %w", err)
		}
		filter.From = &start
	}
	if to = strings.TrimSpace(to); to != "" {
		day, err := time.Parse(time.DateOnly, to)
		if err != nil {
			return filter, fmt.Errorf("invalid --to: %w", err)
		}
		end := day.Add(24*time.Hour - time.Nanosecond)
		filter.To = &end
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return filter, fmt.Errorf("--to is before --from")
	}
	for _, raw := range statuses {
		status := domain.OrderStatus(strings.ToUpper(strings.TrimSpace(raw)))
		if !status.Valid() {
			return filter, fmt.Errorf("unknown status %q", raw)
		}
		filter.Status = append(filter.Status, status)
	}
	return filter, nil
}

// collectOrders walks every page of the listing.
func collectOrders(ctx context.Context, svc services.OrderService, filter services.OrderListFilter) ([]domain.Order, error) {
	var orders []domain.Order
	for {
		page, err := svc.ListOrders(ctx, filter)
		if err != nil {
			return nil, err
		}
		orders = append(orders, page.Items...)
		if page.NextPageToken == "" {
			return orders, nil
		}
		filter.Pagination.PageToken = page.NextPageToken
	}
}

// writeOrdersWorkbook writes an Orders sheet with one row per order and a Summary sheet with
// totals per status. Amount columns are dirhams so spreadsheet formulas work on them directly.
func writeOrdersWorkbook(w io.Writer, orders []domain.Order, printer *message.Printer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ordersSheet); err != nil {
		return err
	}
	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return err
	}

	if err := f.SetSheetRow(ordersSheet, "A1", &orderColumns); err != nil {
		return err
	}
	if err := f.SetCellStyle(ordersSheet, "A1", "N1", header); err != nil {
		return err
	}

	type statusTotal struct {
		count int
		total int64
	}
	totals := make(map[domain.OrderStatus]*statusTotal)

	for i, order := range orders {
		row := i + 2
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		values := []any{
			order.OrderNumber,
			order.CreatedAt.UTC().Format("2006-01-02 15:04"),
			string(order.Status),
			string(order.Payment.Method),
			string(order.Payment.Status),
			string(order.Fulfillment.Type),
			emirate(order),
			itemCount(order),
			dirhams(order.Pricing.Subtotal),
			dirhams(order.Pricing.Discount),
			dirhams(order.Pricing.DeliveryFee),
			dirhams(order.Pricing.VAT),
			dirhams(order.Pricing.GrandTotal),
			formatAED(printer, order.Pricing.GrandTotal),
		}
		if err := f.SetSheetRow(ordersSheet, cell, &values); err != nil {
			return err
		}
		first, _ := excelize.CoordinatesToCellName(9, row)
		last, _ := excelize.CoordinatesToCellName(13, row)
		if err := f.SetCellStyle(ordersSheet, first, last, money); err != nil {
			return err
		}

		t := totals[order.Status]
		if t == nil {
			t = &statusTotal{}
			totals[order.Status] = t
		}
		t.count++
		t.total += order.Pricing.GrandTotal
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(summarySheet, "A1", &[]any{"Status", "Orders", "Grand Total"}); err != nil {
		return err
	}
	if err := f.SetCellStyle(summarySheet, "A1", "C1", header); err != nil {
		return err
	}
	statuses := make([]string, 0, len(totals))
	for status := range totals {
		statuses = append(statuses, string(status))
	}
	sort.Strings(statuses)
	for i, status := range statuses {
		t := totals[domain.OrderStatus(status)]
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(summarySheet, cell, &[]any{status, t.count, formatAED(printer, t.total)}); err != nil {
			return err
		}
	}

	_, err = f.WriteTo(w)
	return err
}

func dirhams(fils int64) float64 {
	return float64(fils) / filsPerDirham
}

func formatAED(printer *message.Printer, fils int64) string {
	return printer.Sprint(currency.MustParseISO("AED").Amount(dirhams(fils)))
}

func itemCount(order domain.Order) int {
	total := 0
	for _, item := range order.Items {
		total += item.Quantity
	}
	return total
}

func emirate(order domain.Order) string {
	if order.Fulfillment.Address == nil {
		return ""
	}
	return order.Fulfillment.Address.Emirate
}
