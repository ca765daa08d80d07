package frame

// Status codes, carried in the response command_id field for commands
// that report a status rather than a data payload.
const (
	StatusOK             = 0x00
	StatusError          = 0x01
	StatusCmdUnknown     = 0x02
	StatusMalformed      = 0x03
	StatusCRCMismatch    = 0x04
	StatusTimeout        = 0x05
	StatusNotImplemented = 0x06
	StatusAck            = 0x07
)

// Command IDs, grouped the way the endpoint's router groups them: by
// capability, in contiguous id ranges.
const (
	// System
	CmdGetVersion          = 0x00
	CmdGetVersionResp      = 0x80
	CmdGetFreeMemory       = 0x01
	CmdGetFreeMemoryResp   = 0x82
	CmdLinkSync            = 0x02
	CmdLinkSyncResp        = 0x83
	CmdLinkReset           = 0x03
	CmdLinkResetResp       = 0x84
	CmdGetCapabilities     = 0x04
	CmdGetCapabilitiesResp = 0x85
	CmdSetBaudrate         = 0x05
	CmdSetBaudrateResp     = 0x86

	// Flow control
	CmdXOFF = 0x08
	CmdXON  = 0x09

	// GPIO
	CmdSetPinMode      = 0x10
	CmdDigitalWrite    = 0x11
	CmdAnalogWrite     = 0x12
	CmdDigitalRead     = 0x13
	CmdAnalogRead      = 0x14
	CmdDigitalReadResp = 0x15
	CmdAnalogReadResp  = 0x16

	// Console
	CmdConsoleWrite = 0x20

	// Datastore
	CmdDatastorePut     = 0x30
	CmdDatastoreGet     = 0x31
	CmdDatastoreGetResp = 0x81

	// Mailbox
	CmdMailboxRead          = 0x40
	CmdMailboxProcessed     = 0x41
	CmdMailboxAvailable     = 0x42
	CmdMailboxPush          = 0x43
	CmdMailboxReadResp      = 0x90
	CmdMailboxAvailableResp = 0x92

	// Filesystem
	CmdFileWrite    = 0x50
	CmdFileRead     = 0x51
	CmdFileRemove   = 0x52
	CmdFileReadResp = 0xA1

	// Process
	CmdProcessRun          = 0x60
	CmdProcessRunAsync     = 0x61
	CmdProcessPoll         = 0x62
	CmdProcessKill         = 0x63
	CmdProcessRunResp      = 0xB0
	CmdProcessRunAsyncResp = 0xB1
	CmdProcessPollResp     = 0xB2
)

// Category classifies a logical (flag-masked) command ID into the range
// the router dispatches on.
type Category int

const (
	CategoryUnknown Category = iota
	CategorySystem
	CategoryFlowControl
	CategoryGPIO
	CategoryConsole
	CategoryDatastore
	CategoryMailbox
	CategoryFilesystem
	CategoryProcess
)

// Classify returns the capability category a logical command ID belongs
// to, by the same contiguous id ranges the constants above are grouped
// into.
func Classify(id uint16) Category {
	switch {
	case id <= 0x07 || id == CmdGetVersionResp || (id >= CmdGetFreeMemoryResp && id <= CmdSetBaudrateResp):
		return CategorySystem
	case id == CmdXOFF || id == CmdXON:
		return CategoryFlowControl
	case id >= 0x10 && id <= 0x1F:
		return CategoryGPIO
	case id == CmdConsoleWrite:
		return CategoryConsole
	case id >= 0x30 && id <= 0x3F, id == CmdDatastoreGetResp:
		return CategoryDatastore
	case id >= 0x40 && id <= 0x4F, id == CmdMailboxReadResp, id == CmdMailboxAvailableResp:
		return CategoryMailbox
	case id >= 0x50 && id <= 0x5F, id == CmdFileReadResp:
		return CategoryFilesystem
	case id >= 0x60 && id <= 0x6F, id >= 0xB0 && id <= 0xBF:
		return CategoryProcess
	default:
		return CategoryUnknown
	}
}

// RequiresAck reports whether a command, once successfully dispatched,
// must be acknowledged by the receiver. Status/ack/response frames never
// require their own ACK.
func RequiresAck(id uint16) bool {
	switch id {
	case CmdGetVersionResp, CmdGetFreeMemoryResp, CmdLinkSyncResp, CmdLinkResetResp,
		CmdGetCapabilitiesResp, CmdSetBaudrateResp,
		CmdDigitalReadResp, CmdAnalogReadResp, CmdDatastoreGetResp,
		CmdMailboxReadResp, CmdMailboxAvailableResp, CmdFileReadResp,
		CmdProcessRunResp, CmdProcessRunAsyncResp, CmdProcessPollResp,
		CmdXOFF, CmdXON,
		StatusOK, StatusError, StatusCmdUnknown, StatusMalformed,
		StatusCRCMismatch, StatusTimeout, StatusNotImplemented, StatusAck:
		return false
	default:
		return true
	}
}
