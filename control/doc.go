// Package control
// Author: momentics <momentics@gmail.com>
//
// Run configuration, phase metrics and debug introspection layer.
//
// Provides:
//   - Typed configuration resolved from flags, the environment and launcher variables
//   - Phase timing registry reported at the end of a run
//   - Debug probe registration with platform specific probes
//
// This package is cross-platform and build-tag-partitioned as needed.
package control
