// Package pool recycles the transient objects of command recording: native
// command buffers, staging buffers and staging textures, and the bundles
// that track which resources a recording referenced.
//
// Nothing is returned to a pool while a submission that references it is
// still executing. A recording's bundle holds one reference to every
// resource it touched; the bundle is recycled, and the references dropped,
// only when the device reports the submission complete.
package pool
