// Package mqtt publishes encoder position changes to an MQTT broker.
//
// Topic layout, with the configured prefix (default "seesaw"):
//
//	seesaw/<channel-id>/position   {"payload":<position>}
//	seesaw/status                  online/offline, retained, also the LWT
package mqtt
