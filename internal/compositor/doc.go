// Package compositor reduces a temporal stack of co-registered band buffers
// to a single nodata-aware median buffer.
//
// For every pixel the compositor discards observations in which any band
// holds a sentinel value of the configured [domain.NodataPolicy], then picks
// the median of what remains:
//
//   - [MethodJoint] (default) orders the valid (r, g, b) triples by r+g+b,
//     breaking ties by stack position, and copies the triple at rank
//     floor(n/2) unchanged. The output colour was physically observed.
//   - [MethodPerBand] takes the median of each band independently over the
//     same valid observations. The output may mix bands from different
//     acquisitions.
//
// Pixels with no valid observation are written as (0, 0, 0).
//
// The pixel range is split into shards processed concurrently; shards write
// disjoint parts of the output, so the result does not depend on the shard
// count.
package compositor
