// audio/volume.go
// Copyright(c) 2022-2025 titlestore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package audio holds helpers for interpreting sound bank data loaded
// from title storage.
package audio

import "math"

// Sound banks store volumes as a single byte. The mapping to decibels is
// approximated by a four-parameter logistic fit through these points:
//
//	0xff   6dB
//	0xca   2dB
//	0xbf   1dB
//	0xb4   0dB
//	0x8f  -4dB
//	0x5a -12dB
//	0x14 -38dB
//	0x00 -96dB
const (
	fitA = -96.0
	fitB = 0.432254984608615
	fitC = 80.1748600297963
	fitD = 67.7385212334047
)

// DecibelsFromByte returns the attenuation in dB encoded by b.
func DecibelsFromByte(b byte) float64 {
	return (fitA-fitD)/(1+math.Pow(float64(b)/fitC, fitB)) + fitD
}

// VolumeFromDecibelByte returns the linear gain encoded by b, where 1 is
// unity gain.
func VolumeFromDecibelByte(b byte) float32 {
	return float32(math.Pow(10, DecibelsFromByte(b)/20))
}
