package reporting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riveredge/bulkport/internal/api"
)

func routing() []Operation {
	return []Operation{
		{OperationID: 11, OperationCode: "CUT", OperationName: "Cutting", Sequence: 1, Status: StatusCompleted,
			ReportingType: ReportingQuantity},
		{OperationID: 12, OperationCode: "WELD", OperationName: "Welding", Sequence: 2, Status: "pending",
			ReportingType: ReportingQuantity, StandardTime: 0.5, CompletedQuantity: 40},
		{OperationID: 13, OperationCode: "PAINT", OperationName: "Painting", Sequence: 3, Status: "pending",
			ReportingType: ReportingStatus},
		{OperationID: 14, OperationCode: "PACK", OperationName: "Packing", Sequence: 4, Status: "pending",
			ReportingType: ReportingStatus, AllowJump: true},
	}
}

func TestCheckJumpRule(t *testing.T) {
	ops := routing()
	tests := []struct {
		name     string
		target   Operation
		blocking []string
	}{
		{"predecessors completed", ops[1], nil},
		{"first operation", ops[0], nil},
		{"pending predecessor", ops[2], []string{"Welding"}},
		{"allow jump", ops[3], nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckJumpRule(tt.target, ops)
			if tt.blocking == nil {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrJumpRule)
			var jumpErr *JumpRuleError
			require.ErrorAs(t, err, &jumpErr)
			assert.Equal(t, tt.blocking, jumpErr.Blocking)
			assert.Contains(t, err.Error(), `"Welding"`)
		})
	}

	t.Run("blocking names in sequence order", func(t *testing.T) {
		shuffled := []Operation{
			{OperationName: "C", Sequence: 3},
			{OperationName: "A", Sequence: 1},
			{OperationName: "B", Sequence: 2},
		}
		var jumpErr *JumpRuleError
		require.ErrorAs(t, CheckJumpRule(Operation{OperationName: "D", Sequence: 4}, shuffled), &jumpErr)
		assert.Equal(t, []string{"A", "B", "C"}, jumpErr.Blocking)
	})
}

func TestFirstPending(t *testing.T) {
	op, ok := FirstPending(routing())
	require.True(t, ok)
	assert.Equal(t, "WELD", op.OperationCode)

	_, ok = FirstPending([]Operation{{Status: StatusCompleted}})
	assert.False(t, ok)
}

func TestFindOperation(t *testing.T) {
	ops := routing()
	for _, ref := range []string{"paint", "Painting", "13", "3"} {
		op, err := FindOperation(ops, ref)
		require.NoError(t, err, ref)
		assert.Equal(t, int64(13), op.OperationID, ref)
	}
	_, err := FindOperation(ops, "GRIND")
	assert.ErrorIs(t, err, ErrOperationNotFound)
}

func TestAutofill(t *testing.T) {
	wo := WorkOrder{ID: 7, Code: "WO-1", Quantity: 100}
	ops := routing()

	t.Run("quantity reporting", func(t *testing.T) {
		r := Autofill(wo, ops[1])
		assert.Equal(t, Report{
			WorkOrderID:       7,
			OperationID:       12,
			ReportedQuantity:  60,
			QualifiedQuantity: 60,
			WorkHours:         50,
			CompletedStatus:   StatusCompleted,
		}, r)
	})

	t.Run("nothing remaining", func(t *testing.T) {
		op := ops[1]
		op.CompletedQuantity = 100
		r := Autofill(wo, op)
		assert.Zero(t, r.ReportedQuantity)
		assert.Zero(t, r.QualifiedQuantity)
	})

	t.Run("status reporting", func(t *testing.T) {
		r := Autofill(wo, ops[2])
		assert.Equal(t, StatusCompleted, r.CompletedStatus)
		assert.Zero(t, r.ReportedQuantity)
		assert.Zero(t, r.WorkHours)
	})
}

func TestReport_ApplyAndValidate(t *testing.T) {
	base := Report{WorkOrderID: 1, OperationID: 2, ReportedQuantity: 10, QualifiedQuantity: 10}
	unq := 2.0
	qual := 8.0
	r := base.Apply(Overrides{QualifiedQuantity: &qual, UnqualifiedQuantity: &unq, Remarks: "scratch"})
	assert.InDelta(t, 10.0, r.ReportedQuantity, 0)
	assert.InDelta(t, 8.0, r.QualifiedQuantity, 0)
	assert.InDelta(t, 2.0, r.UnqualifiedQuantity, 0)
	assert.Equal(t, "scratch", r.Remarks)
	require.NoError(t, r.Validate())

	neg := -1.0
	assert.Error(t, base.Apply(Overrides{WorkHours: &neg}).Validate())
	assert.Error(t, Report{}.Validate())
}

type fakeBackend struct {
	wo        *WorkOrder
	ops       []Operation
	submitted []Report
}

func (f *fakeBackend) FindWorkOrder(_ context.Context, code string) (*WorkOrder, error) {
	if f.wo == nil || f.wo.Code != code {
		return nil, ErrWorkOrderNotFound
	}
	return f.wo, nil
}

func (f *fakeBackend) WorkOrderByID(_ context.Context, id string) (*WorkOrder, error) {
	if f.wo == nil || strconv.FormatInt(f.wo.ID, 10) != id {
		return nil, ErrWorkOrderNotFound
	}
	return f.wo, nil
}

func (f *fakeBackend) Operations(context.Context, int64) ([]Operation, error) {
	return f.ops, nil
}

func (f *fakeBackend) SubmitReport(_ context.Context, r Report) (map[string]any, error) {
	f.submitted = append(f.submitted, r)
	return map[string]any{"id": len(f.submitted)}, nil
}

func TestService(t *testing.T) {
	ctx := context.Background()
	newBackend := func() *fakeBackend {
		return &fakeBackend{wo: &WorkOrder{ID: 7, Code: "WO-1", Quantity: 100}, ops: routing()}
	}

	t.Run("default operation", func(t *testing.T) {
		b := newBackend()
		svc := NewService(b)
		plan, err := svc.Prepare(ctx, "WO-1", "")
		require.NoError(t, err)
		assert.Equal(t, "WELD", plan.Operation.OperationCode)
		require.NoError(t, plan.Blocked)

		out, err := svc.Submit(ctx, plan, Overrides{})
		require.NoError(t, err)
		assert.Equal(t, 1, out["id"])
		require.Len(t, b.submitted, 1)
		assert.InDelta(t, 60.0, b.submitted[0].ReportedQuantity, 0)
	})

	t.Run("jump rule blocks submit", func(t *testing.T) {
		b := newBackend()
		svc := NewService(b)
		plan, err := svc.Prepare(ctx, "WO-1", "PAINT")
		require.NoError(t, err)
		require.ErrorIs(t, plan.Blocked, ErrJumpRule)

		_, err = svc.Submit(ctx, plan, Overrides{})
		require.ErrorIs(t, err, ErrJumpRule)
		assert.Empty(t, b.submitted)
	})

	t.Run("completed operation", func(t *testing.T) {
		_, err := NewService(newBackend()).Prepare(ctx, "WO-1", "CUT")
		assert.ErrorIs(t, err, ErrOperationCompleted)
	})

	t.Run("all completed", func(t *testing.T) {
		b := newBackend()
		for i := range b.ops {
			b.ops[i].Status = StatusCompleted
		}
		_, err := NewService(b).Prepare(ctx, "WO-1", "")
		assert.ErrorIs(t, err, ErrAllCompleted)
	})

	t.Run("unknown work order", func(t *testing.T) {
		_, err := NewService(newBackend()).Prepare(ctx, "WO-9", "")
		assert.ErrorIs(t, err, ErrWorkOrderNotFound)
		_, err = NewService(newBackend()).Prepare(ctx, " ", "")
		assert.ErrorIs(t, err, ErrWorkOrderNotFound)
	})
}

func TestParseQR(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    QRCode
		wantErr error
	}{
		{"work order id", `{"qr_type":"WO","work_order_id":7}`, QRCode{WorkOrderID: "7"}, nil},
		{"string id", `{"qr_type":"WO","work_order_id":" 7 "}`, QRCode{WorkOrderID: "7"}, nil},
		{"work order code", `{"work_order_code":" WO-1 "}`, QRCode{WorkOrderCode: "WO-1"}, nil},
		{
			"id wins over code",
			`{"qr_type":"WO","work_order_id":7,"work_order_code":"WO-9"}`,
			QRCode{WorkOrderID: "7"}, nil,
		},
		{"id without type falls back to code", `{"work_order_id":7,"work_order_code":"WO-1"}`,
			QRCode{WorkOrderCode: "WO-1"}, nil},
		{"id without type", `{"work_order_id":7}`, QRCode{}, ErrIncompleteQR},
		{"zero id", `{"qr_type":"WO","work_order_id":0}`, QRCode{}, ErrIncompleteQR},
		{"other type", `{"qr_type":"MAT","material_id":3}`, QRCode{}, ErrIncompleteQR},
		{"empty object", `{}`, QRCode{}, ErrIncompleteQR},
		{"not json", `WO-1`, QRCode{}, ErrIncompleteQR},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseQR(tt.data)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestService_ResolveQR(t *testing.T) {
	ctx := context.Background()
	svc := NewService(&fakeBackend{wo: &WorkOrder{ID: 7, Code: "WO-1"}})

	code, err := svc.ResolveQR(ctx, QRCode{WorkOrderID: "7"})
	require.NoError(t, err)
	assert.Equal(t, "WO-1", code)

	code, err = svc.ResolveQR(ctx, QRCode{WorkOrderCode: "WO-2"})
	require.NoError(t, err)
	assert.Equal(t, "WO-2", code)

	_, err = svc.ResolveQR(ctx, QRCode{WorkOrderID: "8"})
	assert.ErrorIs(t, err, ErrWorkOrderNotFound)
	_, err = svc.ResolveQR(ctx, QRCode{})
	assert.ErrorIs(t, err, ErrIncompleteQR)

	_, err = NewService(&fakeBackend{wo: &WorkOrder{ID: 7}}).ResolveQR(ctx, QRCode{WorkOrderID: "7"})
	assert.ErrorIs(t, err, ErrWorkOrderNotFound)
}

func TestAPIBackend(t *testing.T) {
	var posted Report
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1"+WorkOrdersEndpoint:
			assert.Equal(t, "WO-1", r.URL.Query().Get("code"))
			_ = json.NewEncoder(w).Encode([]map[string]any{
				{"id": 6, "code": "WO-10", "quantity": 5},
				{"id": 7, "code": "WO-1", "quantity": 100},
			})
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1"+WorkOrdersEndpoint+"/7/operations":
			_ = json.NewEncoder(w).Encode(routing())
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1"+WorkOrdersEndpoint+"/7":
			_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": map[string]any{"id": 7, "code": "WO-1"}})
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1"+ReportingEndpoint:
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&posted))
			_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": map[string]any{"id": 99}})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client, err := api.NewClient(api.Options{BaseURL: server.URL, HTTPClient: server.Client()})
	require.NoError(t, err)
	svc := NewService(NewAPIBackend(client))

	ctx := context.Background()
	code, err := svc.ResolveQR(ctx, QRCode{WorkOrderID: "7"})
	require.NoError(t, err)
	assert.Equal(t, "WO-1", code)
	_, err = svc.ResolveQR(ctx, QRCode{WorkOrderID: "8"})
	require.ErrorIs(t, err, ErrWorkOrderNotFound)

	plan, err := svc.Prepare(ctx, code, "")
	require.NoError(t, err)
	assert.Equal(t, int64(7), plan.WorkOrder.ID)

	out, err := svc.Submit(ctx, plan, Overrides{})
	require.NoError(t, err)
	assert.InDelta(t, 99, out["id"], 0)
	assert.Equal(t, int64(12), posted.OperationID)
	assert.InDelta(t, 60.0, posted.ReportedQuantity, 0)
}
