package telemetry

import "go.opentelemetry.io/otel/attribute"

// Span names.
const (
	SpanClusterPass = "clustering.pass"
	SpanDrillDown   = "selection.drilldown"
	SpanActivate    = "selection.activate"
	SpanWarmup      = "clustering.warmup"
)

// Span attribute keys shared by the clustering and selection services.
const (
	AttrBand        = attribute.Key("cluster.band")
	AttrThresholdKm = attribute.Key("cluster.threshold_km")
	AttrPoints      = attribute.Key("cluster.points")
	AttrStrategy    = attribute.Key("cluster.strategy")
	AttrCached      = attribute.Key("cluster.cached")
	AttrClusters    = attribute.Key("cluster.count")
	AttrSelection   = attribute.Key("selection.kind")
	AttrMembers     = attribute.Key("selection.members")
)
