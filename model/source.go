package model

import "fmt"

type ConnectionState uint8

const (
	Disconnected ConnectionState = iota
	Connected
)

func (s ConnectionState) String() string {
	if s == Connected {
		return "connected"
	}
	return "disconnected"
}

func (s ConnectionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type Source struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Manufacturer string          `json:"manufacturer,omitempty"`
	State        ConnectionState `json:"state"`
}

func (s *ConnectionState) UnmarshalText(b []byte) error {
	switch string(b) {
	case "connected":
		*s = Connected
	case "disconnected":
		*s = Disconnected
	default:
		return fmt.Errorf("unknown connection state %q", b)
	}
	return nil
}
