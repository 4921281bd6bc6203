// File: internal/placement/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package placement drives one run of a participant: sample every worker's
// CPU, take part in the size exchange and the variable-length collection,
// and on the coordinator print the report.
package placement
