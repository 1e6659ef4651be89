// Package domain models fire-event observation data exported by the upstream
// simulation post-processing step.
//
// # Data Source
//
// Observations arrive as GeoJSON FeatureCollection "slice" files, one file per
// export batch, dropped into a data directory (default GeoJson/). Files are
// processed in lexical filename order, which the exporter guarantees to be
// chronological. Two filename families appear:
//
//	gdf_<n>.geojson                     → per-event slices; <n> is the fire event id
//	firEvents-YYYY-MM-DD_HHMM.geojson   → combined snapshot slices (manifest input)
//
// # Property Conventions
//
// id_fire_event identifies the burning entity a feature belongs to. The
// exporter writes it as a string or a bare number depending on the pandas
// dtype that survived the pipeline; both forms normalize to a string here.
// Features in gdf_<n> files may omit it, in which case <n> is the id.
//
// Timestamps:
//
//	time_floor   → observation time floored to the export interval (preferred)
//	time         → raw observation time
//	timestamp    → legacy field name from older exports
//	All ISO-8601; naive values are UTC. The first non-empty field in the
//	order above is the feature's effective instant.
//
// Fire radiative quantities:
//
//	frp  → fire radiative power in MW at the observation instant.
//	fre  → fire radiative energy in MJ, derived as frp × 600 s (the export
//	       interval); never present upstream, always computed here.
//	fros → fire rate of spread in m/s. Values ≤ −900 are the exporter's
//	       sentinel for "could not be estimated" and are discarded from
//	       every FROS statistic.
//
// # Geometry
//
// Geometries are standard GeoJSON with one extra obligation: positions may
// carry dimensions past lon/lat (elevation, per-vertex weights) and those must
// survive reprojection and re-emission untouched. Coordinate arrays nest at
// most four levels deep (MultiPolygon).
//
// # Day Buckets
//
// Spatial aggregation groups observations by UTC calendar day. A bucket spans
// [day_start, day_start + 86400s) and is labelled YYYY-MM-DD. Buckets never
// straddle days regardless of the export cadence.
package domain
