// Package exporter writes loaded tables out as CSV, XLSX and bundled ZIP
// files. All writers place their output under the configured export
// directory and name files after the source dataset.
package exporter
