package mqtt

import "testing"

func TestTopics(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"status", Topics{}.Status(), "pulsebridge/status"},
		{"device status", Topics{}.DeviceStatus("LovenseEdge"), "pulsebridge/device/LovenseEdge/status"},
		{"event", Topics{}.Event("device_added"), "pulsebridge/event/device_added"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestPublishValidation(t *testing.T) {
	c := &Client{}

	if err := c.Publish("", []byte("x"), 0, false); err != ErrInvalidTopic {
		t.Errorf("expected ErrInvalidTopic, got %v", err)
	}
	if err := c.Publish("pulsebridge/status", []byte("x"), 3, false); err != ErrInvalidQoS {
		t.Errorf("expected ErrInvalidQoS, got %v", err)
	}
}
