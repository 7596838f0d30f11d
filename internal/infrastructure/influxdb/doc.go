// Package influxdb mirrors device telemetry into an InfluxDB v2 bucket.
//
// The mirror is optional and best-effort: SQLite remains the durable record
// of the fleet, InfluxDB exists for dashboarding and retention policies the
// relational store is not suited to. Writes are non-blocking and batched by
// the underlying client; async failures surface through an error callback,
// never to the device goroutines producing the data.
package influxdb
