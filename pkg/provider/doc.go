// SPDX-License-Identifier: BSD-3-Clause

// Package provider implements the three discovery-and-access layers
// Sensors read through rather than touching hardware directly: the
// Hardware File Provider (hwmon path discovery), the
// Accelerator Entity Provider (object-manager-style polling over the
// IPC bus), and the GPIO Provider (character-device line enumeration).
package provider
