// SPDX-License-Identifier: BSD-3-Clause

package peci

// Command is a PECI command code, one byte on the wire.
type Command uint8

const (
	CommandPing        Command = 0x00
	CommandGetDIB      Command = 0xF7
	CommandGetTemp     Command = 0x01
	CommandRdPkgConfig Command = 0xA1
	CommandWrPkgConfig Command = 0xA5
	CommandRdIAMSR     Command = 0xB1
	CommandWrIAMSR     Command = 0xB5
)

// CompletionCode is the first byte of a PECI response. 0x40 is the only
// success code; everything else means the request should be retried or
// treated as a missing sample, never parsed as data.
type CompletionCode uint8

const CompletionSuccess CompletionCode = 0x40

// Ok reports whether the response completed successfully.
func (c CompletionCode) Ok() bool { return c == CompletionSuccess }

// PkgConfigIndex selects the register group RdPkgConfig/WrPkgConfig
// reads or writes.
type PkgConfigIndex uint8

const (
	PkgConfigIndexPowerLimit1   PkgConfigIndex = 0x0
	PkgConfigIndexTDP           PkgConfigIndex = 0x1
	PkgConfigIndexPackageEnergy PkgConfigIndex = 0x3
	PkgConfigIndexEfficiency    PkgConfigIndex = 0x4
	PkgConfigIndexUtilization   PkgConfigIndex = 0x5
	PkgConfigIndexAvgFrequency  PkgConfigIndex = 0x6
	PkgConfigIndexDIMMTemp      PkgConfigIndex = 0x0E
	PkgConfigIndexTjMax         PkgConfigIndex = 0x10
	PkgConfigIndexTurboRatio    PkgConfigIndex = 0x16
	PkgConfigIndexMinOperating  PkgConfigIndex = 0x18
	PkgConfigIndexMaxOperating  PkgConfigIndex = 0x19
	PkgConfigIndexMaxNonTurbo   PkgConfigIndex = 0x1A
	PkgConfigIndexDieMask       PkgConfigIndex = 0x22
)

// Request is one PECI transaction: a command addressed to a client
// (CPU socket) with an optional parameter and write payload.
type Request struct {
	ClientAddr uint8
	Cmd        Command
	Index      PkgConfigIndex
	Param      uint16
	WriteData  []byte
	// ReadLen is the number of payload bytes expected in the response,
	// not counting the leading completion code.
	ReadLen int
}

// Response is a decoded PECI transaction result.
type Response struct {
	Completion CompletionCode
	Data       []byte
}

// CPUID identifies a CPU generation/stepping for command dispatch.
type CPUID uint32

// family dispatches RdPkgConfig index/parameter encodings that differ
// by CPU generation. Every generation not present here falls back to
// the default encoding.
type family struct {
	turboRatioIndex PkgConfigIndex
	turboRatioParam uint16
}

var familyTable = map[CPUID]family{
	0x000506F0: {turboRatioIndex: PkgConfigIndexTurboRatio, turboRatioParam: 0x0000},
	0x00050657: {turboRatioIndex: PkgConfigIndexTurboRatio, turboRatioParam: 0x0001},
	0x000A0671: {turboRatioIndex: PkgConfigIndexTurboRatio, turboRatioParam: 0x0002},
}

// WritePkgConfigRequest builds a WrPkgConfig request writing data to
// the given register index/parameter (turbo ratio limit, PROCHOT
// ratio limit).
func WritePkgConfigRequest(clientAddr uint8, index PkgConfigIndex, param uint16, data []byte) Request {
	return Request{
		ClientAddr: clientAddr,
		Cmd:        CommandWrPkgConfig,
		Index:      index,
		Param:      param,
		WriteData:  data,
	}
}

// WriteIAMSRRequest builds a WrIAMSR request writing data to msr on
// the given CPU core (HWPM preference/bias/override registers).
func WriteIAMSRRequest(clientAddr uint8, core uint8, msr uint16, data []byte) Request {
	return Request{
		ClientAddr: clientAddr,
		Cmd:        CommandWrIAMSR,
		Index:      PkgConfigIndex(core),
		Param:      msr,
		WriteData:  data,
	}
}

// TurboRatioRequest builds the RdPkgConfig request for the turbo ratio
// limit register, using the CPU-id-specific index/parameter encoding
// when one is known for this generation.
func TurboRatioRequest(clientAddr uint8, id CPUID) Request {
	f, ok := familyTable[id]
	if !ok {
		return Request{
			ClientAddr: clientAddr,
			Cmd:        CommandRdPkgConfig,
			Index:      PkgConfigIndexTurboRatio,
			Param:      0,
			ReadLen:    8,
		}
	}
	return Request{
		ClientAddr: clientAddr,
		Cmd:        CommandRdPkgConfig,
		Index:      f.turboRatioIndex,
		Param:      f.turboRatioParam,
		ReadLen:    8,
	}
}
