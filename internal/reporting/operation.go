package reporting

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Operation statuses and reporting types used by the backend.
const (
	StatusCompleted = "completed"

	ReportingQuantity = "quantity"
	ReportingStatus   = "status"
)

var (
	// ErrJumpRule is wrapped by JumpRuleError.
	ErrJumpRule = errors.New("operation jump rule violated")

	ErrWorkOrderNotFound  = errors.New("work order not found")
	ErrOperationNotFound  = errors.New("operation not found")
	ErrAllCompleted       = errors.New("all operations of the work order are completed")
	ErrOperationCompleted = errors.New("operation is already completed")
)

// WorkOrder is the subset of a work order needed for reporting.
type WorkOrder struct {
	ID                int64   `json:"id"`
	Code              string  `json:"code"`
	Name              string  `json:"name"`
	ProductCode       string  `json:"product_code"`
	ProductName       string  `json:"product_name"`
	Quantity          float64 `json:"quantity"`
	CompletedQuantity float64 `json:"completed_quantity"`
	Status            string  `json:"status"`
}

// Operation is one routed step of a work order.
type Operation struct {
	OperationID       int64   `json:"operation_id"`
	OperationCode     string  `json:"operation_code"`
	OperationName     string  `json:"operation_name"`
	Sequence          int     `json:"sequence"`
	Status            string  `json:"status"`
	ReportingType     string  `json:"reporting_type"`
	StandardTime      float64 `json:"standard_time"`
	CompletedQuantity float64 `json:"completed_quantity"`
	AllowJump         bool    `json:"allow_jump"`
}

// Completed reports whether the operation is done.
func (o Operation) Completed() bool {
	return o.Status == StatusCompleted
}

// Label is the operation's display name.
func (o Operation) Label() string {
	if o.OperationName != "" {
		return o.OperationName
	}
	if o.OperationCode != "" {
		return o.OperationCode
	}
	return fmt.Sprintf("#%d", o.Sequence)
}

// JumpRuleError lists the earlier operations that must be completed first.
type JumpRuleError struct {
	Operation string
	Blocking  []string
}

func (e *JumpRuleError) Error() string {
	quoted := make([]string, len(e.Blocking))
	for i, name := range e.Blocking {
		quoted[i] = fmt.Sprintf("%q", name)
	}
	return fmt.Sprintf("operation %q cannot be reported before %s is completed",
		e.Operation, strings.Join(quoted, ", "))
}

func (e *JumpRuleError) Unwrap() error {
	return ErrJumpRule
}

// CheckJumpRule returns a *JumpRuleError when target does not allow jumping and
// an operation with a lower sequence is not completed.
func CheckJumpRule(target Operation, all []Operation) error {
	if target.AllowJump {
		return nil
	}
	var blocking []Operation
	for _, op := range all {
		if op.Sequence < target.Sequence && !op.Completed() {
			blocking = append(blocking, op)
		}
	}
	if len(blocking) == 0 {
		return nil
	}
	sort.SliceStable(blocking, func(i, j int) bool { return blocking[i].Sequence < blocking[j].Sequence })

	names := make([]string, len(blocking))
	for i, op := range blocking {
		names[i] = op.Label()
	}
	return &JumpRuleError{Operation: target.Label(), Blocking: names}
}

// FirstPending returns the first operation, in list order, that is not completed.
func FirstPending(ops []Operation) (Operation, bool) {
	for _, op := range ops {
		if !op.Completed() {
			return op, true
		}
	}
	return Operation{}, false
}

// FindOperation matches ref against operation code, name, id or sequence.
func FindOperation(ops []Operation, ref string) (Operation, error) {
	ref = strings.TrimSpace(ref)
	for _, op := range ops {
		if strings.EqualFold(op.OperationCode, ref) || op.OperationName == ref {
			return op, nil
		}
	}
	for _, op := range ops {
		if fmt.Sprint(op.OperationID) == ref || fmt.Sprint(op.Sequence) == ref {
			return op, nil
		}
	}
	return Operation{}, fmt.Errorf("%w: %s", ErrOperationNotFound, ref)
}
