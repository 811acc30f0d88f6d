// Package ingest turns import sheets into records ready to be created remotely.
//
// A sheet is a grid of cells as a spreadsheet upload produces it: row 1 holds
// the headers, row 2 an example that is always skipped, and data starts at row 3.
// Headers are matched against an Entity's column aliases (a leading "*" marks a
// required column and is ignored for matching). Rows that fail local validation
// are reported with their sheet row number and never sent.
package ingest
