package preview

import (
	"fmt"
	"strings"
)

// Device is a preview frame size.
type Device string

const (
	Desktop Device = "desktop"
	Tablet  Device = "tablet"
	Mobile  Device = "mobile"
)

// Devices lists every supported frame in display order.
var Devices = []Device{Desktop, Tablet, Mobile}

// Frame is the pixel size of a device frame. Zero means fill the window.
type Frame struct {
	Width  int
	Height int
}

// Frame returns the frame size for d.
func (d Device) Frame() Frame {
	switch d {
	case Tablet:
		return Frame{Width: 768, Height: 1024}
	case Mobile:
		return Frame{Width: 375, Height: 667}
	default:
		return Frame{}
	}
}

// ParseDevice converts a name into a Device. An empty name is Desktop.
func ParseDevice(s string) (Device, error) {
	switch Device(strings.ToLower(strings.TrimSpace(s))) {
	case "", Desktop:
		return Desktop, nil
	case Tablet:
		return Tablet, nil
	case Mobile:
		return Mobile, nil
	}
	return "", fmt.Errorf("unknown device %q (want desktop, tablet or mobile)", s)
}
