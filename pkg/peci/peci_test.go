// SPDX-License-Identifier: BSD-3-Clause

package peci

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeFrameLayout(t *testing.T) {
	req := Request{
		ClientAddr: 0x30,
		Cmd:        CommandWrPkgConfig,
		Index:      PkgConfigIndexTurboRatio,
		Param:      0x1234,
		WriteData:  []byte{0xAA, 0xBB},
	}

	frame := encodeFrame(req)
	assert.Equal(t, []byte{0xA5, 0x16, 0x34, 0x12, 0xAA, 0xBB}, frame,
		"command, index, little-endian parameter, then the write payload")
}

func TestEncodeFrameWithoutPayload(t *testing.T) {
	req := Request{
		ClientAddr: 0x31,
		Cmd:        CommandRdPkgConfig,
		Index:      PkgConfigIndexPackageEnergy,
		ReadLen:    4,
	}

	frame := encodeFrame(req)
	assert.Equal(t, []byte{0xA1, 0x03, 0x00, 0x00}, frame)
}

func TestCompletionCodeOk(t *testing.T) {
	assert.True(t, CompletionCode(0x40).Ok())
	assert.False(t, CompletionCode(0x80).Ok(), "0x80 asks for a retry, not a parse")
	assert.False(t, CompletionCode(0x90).Ok())
}

func TestTurboRatioRequestDispatchesByCPUID(t *testing.T) {
	known := TurboRatioRequest(0x30, 0x00050657)
	assert.Equal(t, CommandRdPkgConfig, known.Cmd)
	assert.Equal(t, PkgConfigIndexTurboRatio, known.Index)
	assert.Equal(t, uint16(0x0001), known.Param)

	unknown := TurboRatioRequest(0x30, 0xDEADBEEF)
	assert.Equal(t, uint16(0), unknown.Param, "an unknown generation uses the default encoding")
	assert.Equal(t, PkgConfigIndexTurboRatio, unknown.Index)
}

func TestWritePkgConfigRequest(t *testing.T) {
	req := WritePkgConfigRequest(0x32, PkgConfigIndexTDP, 0, []byte{0x42})
	assert.Equal(t, CommandWrPkgConfig, req.Cmd)
	assert.Equal(t, uint8(0x32), req.ClientAddr)
	assert.Equal(t, []byte{0x42}, req.WriteData)
}

func TestWriteIAMSRRequestTargetsCoreAndMSR(t *testing.T) {
	req := WriteIAMSRRequest(0x30, 2, 0x774, []byte{0x00, 0x80})
	assert.Equal(t, CommandWrIAMSR, req.Cmd)
	assert.Equal(t, PkgConfigIndex(2), req.Index)
	assert.Equal(t, uint16(0x774), req.Param)
}
