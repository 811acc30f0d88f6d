// Package reporting submits production reports for work-order operations the way
// the shop-floor kiosk does: it picks the operation to report, enforces the
// operation jump rule and pre-fills quantities and work hours.
package reporting
