package domain

// GeoTransform maps pixel (col, row) to world coordinates:
//
//	x = A*col + B*row + C
//	y = D*col + E*row + F
type GeoTransform struct {
	A, B, C float64
	D, E, F float64
}

// GeoTransformFromGDAL converts GDAL's coefficient order [C, A, B, F, D, E].
func GeoTransformFromGDAL(gt [6]float64) GeoTransform {
	return GeoTransform{A: gt[1], B: gt[2], C: gt[0], D: gt[4], E: gt[5], F: gt[3]}
}

// GDAL returns the coefficients in GDAL order.
func (g GeoTransform) GDAL() [6]float64 {
	return [6]float64{g.C, g.A, g.B, g.F, g.D, g.E}
}

// Adjust returns the transform of the sub-raster starting at the window
// origin. Only the origin terms change; the rotation terms B and D are not
// folded in, so the result is exact for north-up rasters.
func (g GeoTransform) Adjust(w Window) GeoTransform {
	g.C += float64(w.X) * g.A
	g.F += float64(w.Y) * g.E
	return g
}

// Apply maps a pixel coordinate to world coordinates.
func (g GeoTransform) Apply(col, row float64) (x, y float64) {
	return g.A*col + g.B*row + g.C, g.D*col + g.E*row + g.F
}
