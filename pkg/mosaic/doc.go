// Package mosaic provides an embeddable median composite worker.
//
// A Service receives composite requests (a stack of co-registered 3-band
// 8-bit rasters, a pixel window and a destination URI), reads the window
// from every raster, computes the per-pixel nodata-aware median and uploads
// the result as a georeferenced raster.
//
// # Basic Usage
//
//	svc, err := mosaic.New(mosaic.DefaultConfig(),
//	    mosaic.WithReader(gdal.NewReader()),
//	    mosaic.WithWriter(cog.NewWriter(gdal.NewWriter())),
//	    mosaic.WithStore(store),
//	    mosaic.WithLogger(logger),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := svc.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	http.Handle("/", svc.Handler())
//
//	// ... run until shutdown signal ...
//
//	if err := svc.Stop(); err != nil {
//	    log.Printf("shutdown error: %v", err)
//	}
//
// # Dependency Injection
//
// Raster I/O and object storage are always injected: the service never
// constructs cloud clients itself. Reader, writer and store are required.
//
// # Lifecycle States
//
// The service moves through Stopped, Starting, Running, Stopping and
// Crashed. Requests are only admitted while Running; Stop waits up to
// Config.ShutdownTimeout for admitted requests to finish.
//
// # Concurrency
//
// All reads of every request share one pool of Config.PoolSize slots, so
// concurrent requests cannot multiply the number of open sources.
package mosaic
