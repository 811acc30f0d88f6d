package cli_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riveredge/bulkport/internal/reporting"
)

// newReportingServer serves one work order with a four-step routing and records
// submitted reports.
func newReportingServer(t *testing.T, submitted *[]reporting.Report) *httptest.Server {
	t.Helper()
	const base = "/api/v1" + reporting.WorkOrdersEndpoint
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == base:
			_ = json.NewEncoder(w).Encode([]map[string]any{
				{"id": 7, "code": "WO-1", "name": "Brackets", "quantity": 100, "completed_quantity": 40},
			})
		case r.Method == http.MethodGet && r.URL.Path == base+"/7":
			_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": map[string]any{"id": 7, "code": "WO-1"}})
		case r.Method == http.MethodGet && r.URL.Path == base+"/7/operations":
			_ = json.NewEncoder(w).Encode([]map[string]any{
				{"operation_id": 11, "operation_code": "CUT", "operation_name": "Cutting", "sequence": 1,
					"status": "completed", "reporting_type": "quantity"},
				{"operation_id": 12, "operation_code": "WELD", "operation_name": "Welding", "sequence": 2,
					"status": "pending", "reporting_type": "quantity", "standard_time": 0.5, "completed_quantity": 40},
				{"operation_id": 13, "operation_code": "PAINT", "operation_name": "Painting", "sequence": 3,
					"status": "pending", "reporting_type": "status"},
			})
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1"+reporting.ReportingEndpoint:
			var rep reporting.Report
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&rep))
			*submitted = append(*submitted, rep)
			_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": map[string]any{"id": 501}})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestReport_Submit(t *testing.T) {
	setupCLITest(t)
	var submitted []reporting.Report
	server := newReportingServer(t, &submitted)

	stdout, _, err := runCLI(t, "report", "--api-url", server.URL, "-w", "WO-1",
		"--qualified", "55", "--unqualified", "5", "--remarks", "night shift")
	require.NoError(t, err)

	require.Len(t, submitted, 1)
	rep := submitted[0]
	assert.Equal(t, int64(7), rep.WorkOrderID)
	assert.Equal(t, int64(12), rep.OperationID)
	assert.InDelta(t, 60.0, rep.ReportedQuantity, 0)
	assert.InDelta(t, 55.0, rep.QualifiedQuantity, 0)
	assert.InDelta(t, 5.0, rep.UnqualifiedQuantity, 0)
	assert.InDelta(t, 50.0, rep.WorkHours, 0)
	assert.Equal(t, "night shift", rep.Remarks)
	assert.Contains(t, stdout, "Report submitted for")
}

func TestReport_DryRun(t *testing.T) {
	setupCLITest(t)
	var submitted []reporting.Report
	server := newReportingServer(t, &submitted)

	stdout, _, err := runCLI(t, "report", "--api-url", server.URL, "-w", "WO-1", "--dry-run")
	require.NoError(t, err)
	assert.Empty(t, submitted)
	assert.Contains(t, stdout, "reported=60 qualified=60 unqualified=0 work_hours=50")
	assert.Contains(t, stdout, "Dry run, nothing submitted")
}

func TestReport_WorkOrderSources(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"qr with work order id", []string{"--qr", `{"qr_type":"WO","work_order_id":7}`}},
		{"qr with work order code", []string{"--qr", `{"work_order_code":"WO-1"}`}},
		{"work order id flag", []string{"--work-order-id", "7"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupCLITest(t)
			var submitted []reporting.Report
			server := newReportingServer(t, &submitted)

			args := append([]string{"report", "--api-url", server.URL}, tt.args...)
			stdout, _, err := runCLI(t, args...)
			require.NoError(t, err)
			require.Len(t, submitted, 1)
			assert.Equal(t, int64(7), submitted[0].WorkOrderID)
			assert.Equal(t, int64(12), submitted[0].OperationID)
			assert.Contains(t, stdout, "Work order  WO-1")
		})
	}
}

func TestReport_InvalidWorkOrderSource(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr error
		wantMsg string
	}{
		{name: "incomplete qr", args: []string{"--qr", `{"qr_type":"WO"}`}, wantErr: reporting.ErrIncompleteQR},
		{name: "qr is not json", args: []string{"--qr", "WO-1"}, wantErr: reporting.ErrIncompleteQR},
		{name: "unknown id", args: []string{"--work-order-id", "8"}, wantErr: reporting.ErrWorkOrderNotFound},
		{name: "no source", wantMsg: "at least one of the flags"},
		{name: "two sources", args: []string{"-w", "WO-1", "--work-order-id", "7"}, wantMsg: "none of the others can be"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupCLITest(t)
			var submitted []reporting.Report
			server := newReportingServer(t, &submitted)

			args := append([]string{"report", "--api-url", server.URL}, tt.args...)
			_, _, err := runCLI(t, args...)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
			assert.Empty(t, submitted)
		})
	}
}

func TestReport_JumpRule(t *testing.T) {
	setupCLITest(t)
	var submitted []reporting.Report
	server := newReportingServer(t, &submitted)

	stdout, _, err := runCLI(t, "report", "--api-url", server.URL, "-w", "WO-1", "--operation", "PAINT")
	require.ErrorIs(t, err, reporting.ErrJumpRule)
	assert.Empty(t, submitted)
	assert.Contains(t, stdout, "Blocked:")
	assert.Contains(t, err.Error(), "Welding")
}

func TestReport_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{"completed operation", []string{"-w", "WO-1", "--operation", "CUT"}, reporting.ErrOperationCompleted},
		{"unknown operation", []string{"-w", "WO-1", "--operation", "GRIND"}, reporting.ErrOperationNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupCLITest(t)
			var submitted []reporting.Report
			server := newReportingServer(t, &submitted)

			args := append([]string{"report", "--api-url", server.URL}, tt.args...)
			_, _, err := runCLI(t, args...)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, submitted)
		})
	}
}
