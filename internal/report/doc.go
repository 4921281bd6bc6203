// File: internal/report/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package report renders the coordinator's assembled records: the classic
// text listing, or JSON and YAML documents for tooling that checks bindings.
package report
