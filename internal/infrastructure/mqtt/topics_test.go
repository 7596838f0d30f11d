package mqtt

import "testing"

func TestTopicBuilders(t *testing.T) {
	topics := Topics{}

	tests := []struct {
		got  string
		want string
	}{
		{topics.Sensor("temp-lounge"), "fleetsim/sensor/temp-lounge"},
		{topics.Switch("relay-hall"), "fleetsim/switch/relay-hall"},
		{topics.SwitchCommand("relay-hall"), "fleetsim/switch/relay-hall/set"},
		{topics.SwitchCommandWildcard(), "fleetsim/switch/+/set"},
		{topics.SystemStatus(), "fleetsim/system/status"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}

func TestPublishValidation(t *testing.T) {
	c := &Client{subscriptions: make(map[string]subscription)}

	if err := c.Publish("", nil, 0, false); err != ErrInvalidTopic {
		t.Errorf("empty topic = %v, want ErrInvalidTopic", err)
	}
	if err := c.Publish("fleetsim/sensor/x", nil, 3, false); err != ErrInvalidQoS {
		t.Errorf("qos 3 = %v, want ErrInvalidQoS", err)
	}
}
