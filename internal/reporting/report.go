package reporting

import (
	"errors"
	"fmt"
)

// Report is the body posted to the reporting endpoint.
type Report struct {
	WorkOrderID         int64   `json:"work_order_id"`
	OperationID         int64   `json:"operation_id"`
	ReportedQuantity    float64 `json:"reported_quantity"`
	QualifiedQuantity   float64 `json:"qualified_quantity"`
	UnqualifiedQuantity float64 `json:"unqualified_quantity"`
	WorkHours           float64 `json:"work_hours"`
	CompletedStatus     string  `json:"completed_status"`
	Remarks             string  `json:"remarks"`
}

// Overrides are explicit values that replace autofilled ones. Nil pointers and
// empty strings keep the autofilled value.
type Overrides struct {
	ReportedQuantity    *float64
	QualifiedQuantity   *float64
	UnqualifiedQuantity *float64
	WorkHours           *float64
	CompletedStatus     string
	Remarks             string
}

// Autofill pre-fills a report for op of wo.
func Autofill(wo WorkOrder, op Operation) Report {
	r := Report{
		WorkOrderID:     wo.ID,
		OperationID:     op.OperationID,
		CompletedStatus: StatusCompleted,
	}
	if op.ReportingType == ReportingQuantity && wo.Quantity > 0 {
		if remaining := wo.Quantity - op.CompletedQuantity; remaining > 0 {
			r.ReportedQuantity = remaining
			r.QualifiedQuantity = remaining
			r.UnqualifiedQuantity = 0
		}
	}
	if op.StandardTime > 0 && wo.Quantity > 0 {
		r.WorkHours = op.StandardTime * wo.Quantity
	}
	return r
}

// Apply returns r with the overrides set.
func (r Report) Apply(o Overrides) Report {
	if o.ReportedQuantity != nil {
		r.ReportedQuantity = *o.ReportedQuantity
	}
	if o.QualifiedQuantity != nil {
		r.QualifiedQuantity = *o.QualifiedQuantity
	}
	if o.UnqualifiedQuantity != nil {
		r.UnqualifiedQuantity = *o.UnqualifiedQuantity
	}
	if o.WorkHours != nil {
		r.WorkHours = *o.WorkHours
	}
	if o.CompletedStatus != "" {
		r.CompletedStatus = o.CompletedStatus
	}
	if o.Remarks != "" {
		r.Remarks = o.Remarks
	}
	return r
}

// Validate rejects negative values and reports without a target.
func (r Report) Validate() error {
	var errs []error
	if r.WorkOrderID == 0 || r.OperationID == 0 {
		errs = append(errs, errors.New("work order and operation are required"))
	}
	checks := []struct {
		name  string
		value float64
	}{
		{"reported quantity", r.ReportedQuantity},
		{"qualified quantity", r.QualifiedQuantity},
		{"unqualified quantity", r.UnqualifiedQuantity},
		{"work hours", r.WorkHours},
	}
	for _, c := range checks {
		if c.value < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %g", c.name, c.value))
		}
	}
	return errors.Join(errs...)
}
