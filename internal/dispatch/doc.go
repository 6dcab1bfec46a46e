// Package dispatch splits a scene into composite requests and publishes
// them for workers to pick up.
//
// A Plan covers an imageSize x imageSize scene with tileSize windows,
// column by column; windows on the right and bottom edges are clipped to
// the scene. Each window becomes one domain.Request over the same stack
// of datasets, with its destination derived from the window origin as
// <prefix>tile<x>-<y>.tif.
//
// The Dispatcher publishes requests concurrently. A request whose publish
// keeps failing after its retries is counted and logged; it does not stop
// the others.
package dispatch
