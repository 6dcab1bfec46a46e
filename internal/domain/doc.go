// Package domain contains the core entities and value objects of the mosaic
// worker.
//
// This package is the innermost layer of the application. It has no
// dependencies on infrastructure concerns (GDAL, object storage, HTTP,
// logging) and contains only pure rules about pixels, windows and
// geotransforms.
//
// # Entities
//
//   - [Window]: a pixel rectangle (x, y, width, height) inside a source raster
//   - [BandBuffer]: a band-major 3-band 8-bit pixel buffer for one window
//   - [GeoTransform]: the affine pixel-to-world mapping of a raster
//   - [NodataPolicy]: the set of sample values treated as nodata or saturated
//   - [Request]: a composite job (datasets, window, destination)
//
// # Design Principles
//
// Domain values are:
//   - Immutable after construction (where practical)
//   - Free of infrastructure dependencies
//   - Testable without mocks or external systems
package domain
