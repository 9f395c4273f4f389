package types

import "fmt"

// Zone identifies a network shard. The zone ID is encoded in the first byte
// of every address: the high nibble is the region, the low nibble the zone
// within that region.
type Zone uint8

// The nine zones of the network (3 regions x 3 zones).
const (
	ZoneCyprus1 Zone = 0x00
	ZoneCyprus2 Zone = 0x01
	ZoneCyprus3 Zone = 0x02
	ZonePaxos1  Zone = 0x10
	ZonePaxos2  Zone = 0x11
	ZonePaxos3  Zone = 0x12
	ZoneHydra1  Zone = 0x20
	ZoneHydra2  Zone = 0x21
	ZoneHydra3  Zone = 0x22
)

// zoneNames maps each zone ID to its human-readable name.
var zoneNames = map[Zone]string{
	ZoneCyprus1: "cyprus1",
	ZoneCyprus2: "cyprus2",
	ZoneCyprus3: "cyprus3",
	ZonePaxos1:  "paxos1",
	ZonePaxos2:  "paxos2",
	ZonePaxos3:  "paxos3",
	ZoneHydra1:  "hydra1",
	ZoneHydra2:  "hydra2",
	ZoneHydra3:  "hydra3",
}

// Valid returns true if z is one of the nine defined zones.
func (z Zone) Valid() bool {
	_, ok := zoneNames[z]
	return ok
}

// String returns the zone name, or its hex ID if unknown.
func (z Zone) String() string {
	if name, ok := zoneNames[z]; ok {
		return name
	}
	return fmt.Sprintf("zone(0x%02x)", uint8(z))
}

// ParseZone converts a zone name ("cyprus1", "paxos2", ...) to a Zone.
func ParseZone(s string) (Zone, error) {
	for z, name := range zoneNames {
		if name == s {
			return z, nil
		}
	}
	return 0, fmt.Errorf("unknown zone %q", s)
}

// Zones returns all defined zones in ascending ID order.
func Zones() []Zone {
	return []Zone{
		ZoneCyprus1, ZoneCyprus2, ZoneCyprus3,
		ZonePaxos1, ZonePaxos2, ZonePaxos3,
		ZoneHydra1, ZoneHydra2, ZoneHydra3,
	}
}

// MarshalText encodes the zone as its name.
func (z Zone) MarshalText() ([]byte, error) {
	if !z.Valid() {
		return nil, fmt.Errorf("invalid zone 0x%02x", uint8(z))
	}
	return []byte(z.String()), nil
}

// UnmarshalText decodes a zone name.
func (z *Zone) UnmarshalText(data []byte) error {
	parsed, err := ParseZone(string(data))
	if err != nil {
		return err
	}
	*z = parsed
	return nil
}
