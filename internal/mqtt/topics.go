// internal/mqtt/topics.go
package mqtt

import "strings"

// DefaultTopicPrefix is used when the configured prefix is empty.
const DefaultTopicPrefix = "seesaw"

// Topics builds topic names under one prefix.
type Topics struct {
	Prefix string
}

func (t Topics) prefix() string {
	p := strings.Trim(t.Prefix, "/")
	if p == "" {
		return DefaultTopicPrefix
	}
	return p
}

// Position returns the topic for one channel's position.
//
// Example: seesaw/knob-a/position
func (t Topics) Position(channelID string) string {
	return t.prefix() + "/" + channelID + "/position"
}

// Status returns the service status topic (also the LWT topic).
//
// Example: seesaw/status
func (t Topics) Status() string {
	return t.prefix() + "/status"
}
