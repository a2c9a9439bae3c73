//go:build !(linux || darwin || windows) || nobluetooth

package ble

const backendAvailable = false

func newRadio() radio {
	return nil
}
