package reporting

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// QRTypeWorkOrder marks a QR code printed on a work-order traveler.
const QRTypeWorkOrder = "WO"

// ErrIncompleteQR is returned for QR data that names no work order.
var ErrIncompleteQR = errors.New("incomplete QR code data")

// QRCode is a scanned work-order QR code. Exactly one of the fields is set.
type QRCode struct {
	WorkOrderID   string
	WorkOrderCode string
}

// ParseQR decodes a scanned payload. Two shapes are accepted:
// {"qr_type":"WO","work_order_id":7} and {"work_order_code":"WO20240001"}.
// The id form wins when both are present.
func ParseQR(data string) (QRCode, error) {
	var raw struct {
		QRType        string `json:"qr_type"`
		WorkOrderID   any    `json:"work_order_id"`
		WorkOrderCode string `json:"work_order_code"`
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(strings.TrimSpace(data))))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return QRCode{}, fmt.Errorf("%w: %v", ErrIncompleteQR, err)
	}

	if id := idText(raw.WorkOrderID); raw.QRType == QRTypeWorkOrder && id != "" {
		return QRCode{WorkOrderID: id}, nil
	}
	if code := strings.TrimSpace(raw.WorkOrderCode); code != "" {
		return QRCode{WorkOrderCode: code}, nil
	}
	return QRCode{}, ErrIncompleteQR
}

// idText renders a JSON id; zero and blank ids count as missing.
func idText(v any) string {
	var s string
	switch t := v.(type) {
	case json.Number:
		s = t.String()
	case string:
		s = strings.TrimSpace(t)
	}
	if s == "0" {
		return ""
	}
	return s
}
