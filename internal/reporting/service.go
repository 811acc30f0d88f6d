package reporting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/riveredge/bulkport/internal/api"
	"github.com/riveredge/bulkport/internal/logging"
)

// Backend endpoints.
const (
	WorkOrdersEndpoint = "/apps/kuaizhizao/production-execution/work-orders"
	ReportingEndpoint  = "/apps/kuaizhizao/production-execution/reporting"
)

// Backend is what the service needs from the server.
type Backend interface {
	FindWorkOrder(ctx context.Context, code string) (*WorkOrder, error)
	WorkOrderByID(ctx context.Context, id string) (*WorkOrder, error)
	Operations(ctx context.Context, workOrderID int64) ([]Operation, error)
	SubmitReport(ctx context.Context, r Report) (map[string]any, error)
}

// APIBackend implements Backend over the REST client.
type APIBackend struct {
	client *api.Client
}

// NewAPIBackend wraps client.
func NewAPIBackend(client *api.Client) *APIBackend {
	return &APIBackend{client: client}
}

// FindWorkOrder looks a work order up by code, preferring an exact match.
func (b *APIBackend) FindWorkOrder(ctx context.Context, code string) (*WorkOrder, error) {
	code = strings.TrimSpace(code)
	page, err := b.client.List(ctx, WorkOrdersEndpoint, api.PagingOffset,
		url.Values{"code": {code}}, 1, api.DefaultPageSize)
	if err != nil {
		return nil, fmt.Errorf("looking up work order %s: %w", code, err)
	}
	if len(page.Items) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrWorkOrderNotFound, code)
	}

	item := page.Items[0]
	for _, candidate := range page.Items {
		if c, ok := candidate["code"].(string); ok && strings.EqualFold(c, code) {
			item = candidate
			break
		}
	}
	var wo WorkOrder
	if err = decode(item, &wo); err != nil {
		return nil, fmt.Errorf("decoding work order %s: %w", code, err)
	}
	return &wo, nil
}

// WorkOrderByID fetches a work order by its id.
func (b *APIBackend) WorkOrderByID(ctx context.Context, id string) (*WorkOrder, error) {
	item, err := b.client.Get(ctx, WorkOrdersEndpoint, id)
	if errors.Is(err, api.ErrNotFound) {
		return nil, fmt.Errorf("%w: id %s", ErrWorkOrderNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading work order %s: %w", id, err)
	}
	var wo WorkOrder
	if err = decode(item, &wo); err != nil {
		return nil, fmt.Errorf("decoding work order %s: %w", id, err)
	}
	return &wo, nil
}

// Operations lists the operations of a work order.
func (b *APIBackend) Operations(ctx context.Context, workOrderID int64) ([]Operation, error) {
	path := WorkOrdersEndpoint + "/" + strconv.FormatInt(workOrderID, 10) + "/operations"
	var ops []Operation
	if err := b.client.Do(ctx, http.MethodGet, path, nil, nil, &ops); err != nil {
		return nil, fmt.Errorf("loading operations of work order %d: %w", workOrderID, err)
	}
	return ops, nil
}

// SubmitReport posts a reporting record.
func (b *APIBackend) SubmitReport(ctx context.Context, r Report) (map[string]any, error) {
	var out map[string]any
	if err := b.client.Do(ctx, http.MethodPost, ReportingEndpoint, nil, r, &out); err != nil {
		return nil, fmt.Errorf("submitting report: %w", err)
	}
	return out, nil
}

func decode(in map[string]any, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// Plan is a prepared report. Blocked is set when the jump rule forbids it.
type Plan struct {
	WorkOrder  WorkOrder
	Operation  Operation
	Operations []Operation
	Report     Report
	Blocked    error
}

// Service prepares and submits production reports.
type Service struct {
	backend Backend
}

// NewService creates a service on backend.
func NewService(backend Backend) *Service {
	return &Service{backend: backend}
}

// ResolveQR returns the work-order code a scanned QR code refers to. The id
// form is looked up on the server.
func (s *Service) ResolveQR(ctx context.Context, qr QRCode) (string, error) {
	if qr.WorkOrderID == "" {
		if qr.WorkOrderCode == "" {
			return "", ErrIncompleteQR
		}
		return qr.WorkOrderCode, nil
	}
	wo, err := s.backend.WorkOrderByID(ctx, qr.WorkOrderID)
	if err != nil {
		return "", err
	}
	if wo.Code == "" {
		return "", fmt.Errorf("%w: id %s has no code", ErrWorkOrderNotFound, qr.WorkOrderID)
	}
	return wo.Code, nil
}

// Prepare loads the work order, selects the operation and autofills the report.
// An empty operation selects the first pending one. A jump rule violation is
// returned in Plan.Blocked, not as an error.
func (s *Service) Prepare(ctx context.Context, workOrderCode, operation string) (*Plan, error) {
	if strings.TrimSpace(workOrderCode) == "" {
		return nil, fmt.Errorf("%w: empty code", ErrWorkOrderNotFound)
	}
	wo, err := s.backend.FindWorkOrder(ctx, workOrderCode)
	if err != nil {
		return nil, err
	}
	ops, err := s.backend.Operations(ctx, wo.ID)
	if err != nil {
		return nil, err
	}

	var target Operation
	if operation == "" {
		var ok bool
		if target, ok = FirstPending(ops); !ok {
			return nil, fmt.Errorf("%w: %s", ErrAllCompleted, wo.Code)
		}
	} else {
		if target, err = FindOperation(ops, operation); err != nil {
			return nil, err
		}
		if target.Completed() {
			return nil, fmt.Errorf("%w: %s", ErrOperationCompleted, target.Label())
		}
	}

	plan := &Plan{
		WorkOrder:  *wo,
		Operation:  target,
		Operations: ops,
		Report:     Autofill(*wo, target),
		Blocked:    CheckJumpRule(target, ops),
	}

	logger := logging.FromContext(ctx)
	logger.Debug().Ctx(ctx).
		Str("component", "reporting").
		Str("work_order", wo.Code).
		Str("operation", target.Label()).
		Bool("blocked", plan.Blocked != nil).
		Msg("report prepared")
	return plan, nil
}

// Submit applies overrides to the plan's report and posts it.
func (s *Service) Submit(ctx context.Context, plan *Plan, o Overrides) (map[string]any, error) {
	if plan == nil {
		return nil, fmt.Errorf("%w: nothing prepared", ErrOperationNotFound)
	}
	if plan.Blocked != nil {
		return nil, plan.Blocked
	}
	report := plan.Report.Apply(o)
	if err := report.Validate(); err != nil {
		return nil, err
	}

	out, err := s.backend.SubmitReport(ctx, report)
	if err != nil {
		return nil, err
	}

	logger := logging.FromContext(ctx)
	logger.Info().Ctx(ctx).
		Str("component", "reporting").
		Str("work_order", plan.WorkOrder.Code).
		Str("operation", plan.Operation.Label()).
		Float64("reported_quantity", report.ReportedQuantity).
		Msg("report submitted")
	return out, nil
}
