// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Worker fan-out for a single participant. Each worker is a goroutine locked
// to its own OS thread, so a sampled CPU belongs to a real thread that no other
// worker shares. Workers write only to their own index-partitioned output;
// FanOut itself needs no locks around that output.
package concurrency
