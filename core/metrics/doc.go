// Package metrics defines the observability events produced while an agent
// trains against the charging simulator, and the sinks that record them.
// Sinks like PromSink and InfluxSink live in infra/metrics and register
// themselves with the factory helpers here; NewMetricsSink returns a
// MultiSink automatically when several sinks are configured.
package metrics
