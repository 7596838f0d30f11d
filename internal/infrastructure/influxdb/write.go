package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteSensorReading mirrors one sensor production cycle.
//
// Missing readings are recorded with ok=false and no value field so gaps
// stay visible in dashboards; faulted readings carry their sentinel value
// and are easy to filter on.
//
// The write is non-blocking: points are batched and sent asynchronously.
func (c *Client) WriteSensorReading(name string, value *float64, timestamp int64) {
	if !c.IsConnected() {
		return
	}

	fields := map[string]interface{}{
		"ok": value != nil,
	}
	if value != nil {
		fields["value"] = *value
	}

	point := write.NewPoint(
		"sensor_reading",
		map[string]string{"device": name},
		fields,
		time.Unix(timestamp, 0),
	)
	c.writeAPI.WritePoint(point)
}

// WriteSwitchState mirrors one switch state change.
func (c *Client) WriteSwitchState(name string, on bool, timestamp int64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"switch_state",
		map[string]string{"device": name},
		map[string]interface{}{"on": on},
		time.Unix(timestamp, 0),
	)
	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point for measurements the helpers above
// don't cover.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}
