package utils

import (
	"encoding/hex"
)

// ASCIIToBytes converts an ASCII string to its byte representation.
// Callers check IsASCIIString first; non-ASCII input is returned as UTF-8 bytes.
func ASCIIToBytes(s string) []byte {
	return []byte(s)
}

// BytesToHex converts bytes to hex string
func BytesToHex(data []byte) string {
	return hex.EncodeToString(data)
}

// HexToBytes converts hex string to bytes
func HexToBytes(hexStr string) ([]byte, error) {
	return hex.DecodeString(hexStr)
}

// HexPayloads hex encodes every payload, preserving order.
func HexPayloads(payloads [][]byte) []string {
	out := make([]string, 0, len(payloads))
	for _, p := range payloads {
		out = append(out, hex.EncodeToString(p))
	}
	return out
}
