package buttplug

// The Buttplug wire protocol carries JSON arrays of single-key objects,
// the key naming the message type. envelope models one such object for
// both directions; exactly one field is non-nil.
//
// This client speaks spec message version 2, the version the Intiface
// servers in the wild all accept.
const messageVersion = 2

type envelope struct {
	// Client -> server.
	RequestServerInfo *requestServerInfo `json:"RequestServerInfo,omitempty"`
	RequestDeviceList *idMessage         `json:"RequestDeviceList,omitempty"`
	StartScanning     *idMessage         `json:"StartScanning,omitempty"`
	StopScanning      *idMessage         `json:"StopScanning,omitempty"`
	VibrateCmd        *vibrateCmd        `json:"VibrateCmd,omitempty"`
	StopDeviceCmd     *stopDeviceCmd     `json:"StopDeviceCmd,omitempty"`
	StopAllDevices    *idMessage         `json:"StopAllDevices,omitempty"`
	Ping              *idMessage         `json:"Ping,omitempty"`

	// Server -> client.
	Ok               *idMessage     `json:"Ok,omitempty"`
	Error            *protocolError `json:"Error,omitempty"`
	ServerInfo       *serverInfo    `json:"ServerInfo,omitempty"`
	DeviceList       *deviceList    `json:"DeviceList,omitempty"`
	DeviceAdded      *deviceAdded   `json:"DeviceAdded,omitempty"`
	DeviceRemoved    *deviceRemoved `json:"DeviceRemoved,omitempty"`
	ScanningFinished *idMessage     `json:"ScanningFinished,omitempty"`
}

// responseID returns the correlation ID if this envelope is a direct
// response to a client request, and false otherwise. Server-initiated
// messages (device events, scanning finished) use ID 0 and are not
// correlated.
func (e *envelope) responseID() (uint32, bool) {
	switch {
	case e.Ok != nil:
		return e.Ok.ID, true
	case e.Error != nil && e.Error.ID != 0:
		return e.Error.ID, true
	case e.ServerInfo != nil:
		return e.ServerInfo.ID, true
	case e.DeviceList != nil:
		return e.DeviceList.ID, true
	default:
		return 0, false
	}
}

// idMessage is any message whose only payload is its correlation ID.
type idMessage struct {
	ID uint32 `json:"Id"`
}

type requestServerInfo struct {
	ID             uint32 `json:"Id"`
	ClientName     string `json:"ClientName"`
	MessageVersion uint32 `json:"MessageVersion"`
}

type serverInfo struct {
	ID             uint32 `json:"Id"`
	ServerName     string `json:"ServerName"`
	MessageVersion uint32 `json:"MessageVersion"`

	// MaxPingTime is the server's ping requirement in milliseconds;
	// zero disables the ping loop.
	MaxPingTime uint32 `json:"MaxPingTime"`
}

type protocolError struct {
	ID           uint32 `json:"Id"`
	ErrorMessage string `json:"ErrorMessage"`
	ErrorCode    int    `json:"ErrorCode"`
}

// deviceMessageAttrs describes one command a device accepts.
type deviceMessageAttrs struct {
	FeatureCount uint32   `json:"FeatureCount,omitempty"`
	StepCount    []uint32 `json:"StepCount,omitempty"`
}

// deviceInfo is the device description shared by DeviceAdded and DeviceList.
type deviceInfo struct {
	DeviceIndex    uint32                        `json:"DeviceIndex"`
	DeviceName     string                        `json:"DeviceName"`
	DeviceMessages map[string]deviceMessageAttrs `json:"DeviceMessages"`
}

type deviceAdded struct {
	ID uint32 `json:"Id"`
	deviceInfo
}

type deviceRemoved struct {
	ID          uint32 `json:"Id"`
	DeviceIndex uint32 `json:"DeviceIndex"`
}

type deviceList struct {
	ID      uint32       `json:"Id"`
	Devices []deviceInfo `json:"Devices"`
}

type motorSpeed struct {
	Index uint32  `json:"Index"`
	Speed float64 `json:"Speed"`
}

type vibrateCmd struct {
	ID          uint32       `json:"Id"`
	DeviceIndex uint32       `json:"DeviceIndex"`
	Speeds      []motorSpeed `json:"Speeds"`
}

type stopDeviceCmd struct {
	ID          uint32 `json:"Id"`
	DeviceIndex uint32 `json:"DeviceIndex"`
}
