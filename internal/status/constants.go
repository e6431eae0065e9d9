// internal/status/constants.go
package status

// Channel Status Block layout constants.
// These values define the protocol and MUST NOT be configurable.

// ---- BLOCK GEOMETRY ----

// SlotsPerDevice is the fixed number of registers per channel status block.
const SlotsPerDevice = 20

// ---- SLOT INDICES ----

// SlotHealthCode holds the channel health state.
const SlotHealthCode = 0

// SlotLastErrorCode holds the code of the last failed read.
const SlotLastErrorCode = 1

// SlotSecondsInError holds the duration (in seconds) the channel has been in error.
const SlotSecondsInError = 2

// SlotPositionHigh and SlotPositionLow hold the last observed position (int32, big-endian words).
const SlotPositionHigh = 3
const SlotPositionLow = 4

// ---- RESERVED RANGE ----

// Slots 5-10 are reserved for future use.
const SlotReservedStart = 5
const SlotReservedEnd = 10

// ---- DEVICE NAME ----

// SlotDeviceNameStart is the first slot used for the device name.
// Device name is always placed at the END of the status block.
const SlotDeviceNameStart = 11

// SlotDeviceNameSlots is the number of slots reserved for the device name.
const SlotDeviceNameSlots = 8

// SlotDeviceNameEnd is the last slot used for the device name (inclusive).
const SlotDeviceNameEnd = SlotDeviceNameStart + SlotDeviceNameSlots - 1

// ---- LIMITS ----

// DeviceNameMaxChars is the maximum number of ASCII characters stored for device name.
const DeviceNameMaxChars = 16

// MaxSecondsInError is where seconds_in_error saturates.
const MaxSecondsInError = 65535

// ---- HEALTH CODES ----

// HealthUnknown represents the state before the first read completes.
const HealthUnknown uint16 = 0

// HealthOK represents a channel whose last read succeeded.
const HealthOK uint16 = 1

// HealthError represents a channel whose last read failed.
const HealthError uint16 = 2

// HealthStopped represents a channel whose poll loop has been stopped.
const HealthStopped uint16 = 4

// ---- ERROR CODES ----

const (
	CodeNone    uint16 = 0
	CodeGeneric uint16 = 1
)
