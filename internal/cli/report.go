package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/riveredge/bulkport/internal/perf"
	"github.com/riveredge/bulkport/internal/reporting"
	"github.com/riveredge/bulkport/internal/tui"
)

// reportOptions holds the report command flags.
type reportOptions struct {
	workOrder   string
	workOrderID string
	qr          string
	operation   string
	reported    float64
	qualified   float64
	unqualified float64
	workHours   float64
	status      string
	remarks     string
	dryRun      bool
	yes         bool
	output      string
}

// NewReportCmd creates the report command for production reporting.
func NewReportCmd() *cobra.Command {
	var opts reportOptions

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Report production for a work-order operation",
		Long: `Loads the work order, selects the operation (the first one not completed
unless --operation is given) and submits a production report.

Quantities are pre-filled from the work order: for quantity reporting the
remaining quantity is reported as qualified, and work hours are the operation's
standard time times the work-order quantity. Flags override the pre-filled values.

The work order is given by code, by id, or as the JSON payload of a scanned
work-order QR code: {"qr_type":"WO","work_order_id":7} or
{"work_order_code":"WO20240001"}.

An operation that does not allow jumping can only be reported once every
operation before it is completed.`,
		Example: `  # Report the next pending operation with the pre-filled values
  bulkport report --work-order WO20240001

  # Report 95 good and 5 scrapped pieces for the welding operation
  bulkport report --work-order WO20240001 --operation WELD --quantity 100 --qualified 95 --unqualified 5

  # Show what would be reported
  bulkport report --work-order WO20240001 --dry-run

  # Report from a scanned traveler QR code
  bulkport report --qr '{"qr_type":"WO","work_order_id":7}'`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReport(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.workOrder, "work-order", "w", "", "work order code")
	cmd.Flags().StringVar(&opts.workOrderID, "work-order-id", "", "work order id")
	cmd.Flags().StringVar(&opts.qr, "qr", "", "scanned work-order QR code payload (JSON)")
	cmd.Flags().StringVar(&opts.operation, "operation", "", "operation code, name, id or sequence")
	cmd.Flags().Float64Var(&opts.reported, "quantity", 0, "reported quantity")
	cmd.Flags().Float64Var(&opts.qualified, "qualified", 0, "qualified quantity")
	cmd.Flags().Float64Var(&opts.unqualified, "unqualified", 0, "unqualified quantity")
	cmd.Flags().Float64Var(&opts.workHours, "work-hours", 0, "work hours")
	cmd.Flags().StringVar(&opts.status, "status", "", "completed status for status reporting")
	cmd.Flags().StringVar(&opts.remarks, "remarks", "", "remarks")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "show the report without submitting it")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "submit without asking for confirmation on a terminal")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output format: table, json or plain")
	cmd.MarkFlagsOneRequired("work-order", "work-order-id", "qr")
	cmd.MarkFlagsMutuallyExclusive("work-order", "work-order-id", "qr")

	return cmd
}

func reportOverrides(cmd *cobra.Command, opts reportOptions) reporting.Overrides {
	o := reporting.Overrides{CompletedStatus: opts.status, Remarks: opts.remarks}
	set := func(name string, v float64) *float64 {
		if !cmd.Flags().Changed(name) {
			return nil
		}
		return &v
	}
	o.ReportedQuantity = set("quantity", opts.reported)
	o.QualifiedQuantity = set("qualified", opts.qualified)
	o.UnqualifiedQuantity = set("unqualified", opts.unqualified)
	o.WorkHours = set("work-hours", opts.workHours)
	return o
}

// reportQRCode turns the work-order flags into a QR code to resolve.
func reportQRCode(opts reportOptions) (reporting.QRCode, error) {
	switch {
	case opts.qr != "":
		return reporting.ParseQR(opts.qr)
	case opts.workOrderID != "":
		return reporting.QRCode{WorkOrderID: strings.TrimSpace(opts.workOrderID)}, nil
	default:
		return reporting.QRCode{WorkOrderCode: opts.workOrder}, nil
	}
}

func runReport(cmd *cobra.Command, opts reportOptions) error {
	ctx := cmd.Context()
	format, err := resolveOutputFormat(opts.output)
	if err != nil {
		return err
	}
	qr, err := reportQRCode(opts)
	if err != nil {
		return err
	}

	monitor := perf.NewMonitor()
	defer printPerfSummary(cmd, monitor)
	client, err := newAPIClient(cmd, monitor)
	if err != nil {
		return err
	}
	svc := reporting.NewService(reporting.NewAPIBackend(client))

	code, err := svc.ResolveQR(ctx, qr)
	if err != nil {
		return friendlyError(err)
	}
	plan, err := svc.Prepare(ctx, code, opts.operation)
	if err != nil {
		return friendlyError(err)
	}
	overrides := reportOverrides(cmd, opts)
	report := plan.Report.Apply(overrides)

	if opts.dryRun || plan.Blocked != nil {
		if renderErr := renderReport(cmd.OutOrStdout(), format, plan, report, nil); renderErr != nil {
			return renderErr
		}
		if plan.Blocked != nil {
			return plan.Blocked
		}
		return report.Validate()
	}

	if !opts.yes && outputMode(cmd, format) == tui.OutputModeInteractive && isTerminal(os.Stdin) {
		question := fmt.Sprintf("Submit report for %s of %s (reported=%g qualified=%g unqualified=%g)?",
			plan.Operation.Label(), plan.WorkOrder.Code,
			report.ReportedQuantity, report.QualifiedQuantity, report.UnqualifiedQuantity)
		if answer := Confirm(cmd.OutOrStdout(), cmd.InOrStdin(), question); !answer.Accepted {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted, nothing submitted")
			return nil
		}
	}

	created, err := svc.Submit(ctx, plan, overrides)
	if err != nil {
		return friendlyError(err)
	}
	return renderReport(cmd.OutOrStdout(), format, plan, report, created)
}

func renderReport(
	w io.Writer, format string, plan *reporting.Plan, report reporting.Report, created map[string]any,
) error {
	if format == outputJSON {
		doc := map[string]any{
			"work_order": plan.WorkOrder,
			"operation":  plan.Operation,
			"report":     report,
			"submitted":  created != nil,
		}
		if plan.Blocked != nil {
			doc["blocked"] = plan.Blocked.Error()
		}
		if created != nil {
			doc["record"] = created
		}
		return writeJSON(w, doc)
	}

	fmt.Fprintf(w, "Work order  %s %s (%g of %g completed)\n",
		plan.WorkOrder.Code, plan.WorkOrder.Name, plan.WorkOrder.CompletedQuantity, plan.WorkOrder.Quantity)
	for _, op := range plan.Operations {
		marker := " "
		switch {
		case op.OperationID == plan.Operation.OperationID:
			marker = ">"
		case op.Completed():
			marker = tui.IconOK
		}
		jump := ""
		if op.AllowJump {
			jump = " (jump allowed)"
		}
		fmt.Fprintf(w, "  %s %d. %s [%s]%s\n", marker, op.Sequence, op.Label(), op.Status, jump)
	}

	if op := plan.Operation; op.ReportingType == reporting.ReportingStatus {
		fmt.Fprintf(w, "Report      status=%s work_hours=%g\n", report.CompletedStatus, report.WorkHours)
	} else {
		fmt.Fprintf(w, "Report      reported=%g qualified=%g unqualified=%g work_hours=%g\n",
			report.ReportedQuantity, report.QualifiedQuantity, report.UnqualifiedQuantity, report.WorkHours)
	}
	if report.Remarks != "" {
		fmt.Fprintf(w, "Remarks     %s\n", report.Remarks)
	}

	switch {
	case plan.Blocked != nil:
		fmt.Fprintf(w, "Blocked: %v\n", plan.Blocked)
	case created != nil:
		fmt.Fprintf(w, "Report submitted for %s\n", plan.Operation.Label())
	default:
		fmt.Fprintln(w, "Dry run, nothing submitted")
	}
	return nil
}
