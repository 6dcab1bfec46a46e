// Package fetch reads the same pixel window from a stack of source rasters.
//
// [TileFetcher] validates one source (band count, window bounds) and reads
// the window. [Orchestrator] runs one fetch per source concurrently; every
// fetch holds a slot of a process-wide [Pool] while it runs, so the number
// of open sources stays bounded no matter how many requests are in flight.
// Results come back in source order regardless of completion order.
package fetch
