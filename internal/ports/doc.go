// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// Ports are the boundaries between the compositing core and the outside
// world. They define what the application needs from raster drivers, object
// stores and message brokers without specifying how those needs are
// fulfilled.
//
// # Port Interfaces
//
//   - [RasterReader]: opens a source raster and reads pixel windows from it
//   - [RasterWriter]: encodes a composite buffer to a local file
//   - [ObjectStore]: uploads a local file to a destination URI
//   - [Publisher]: enqueues composite requests for remote workers
//   - [Logger]: structured logging abstraction
//
// # Usage
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters) implement them with GDAL,
// Cloud Storage, Pub/Sub, zerolog, etc. Clients are created once by the
// caller and injected, so nothing in the core reaches for a global.
package ports
