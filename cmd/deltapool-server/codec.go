package main

import (
	"encoding/json"

	"github.com/doomsday-net/deltapool/internal/deltapool"
)

// jsonCodec encodes a Delta's kind-specific payload as JSON. It exists so
// this demo server has something concrete to hand transport.Server; a
// production deployment would swap this for the game's native wire
// format, which is exactly why transport.Codec is an interface rather
// than a hardcoded encoding.
type jsonCodec struct{}

func (jsonCodec) Encode(d *deltapool.Delta) ([]byte, error) {
	switch d.Kind {
	case deltapool.KindObject:
		return json.Marshal(d.Object)
	case deltapool.KindPlayer:
		return json.Marshal(d.Player)
	case deltapool.KindSector:
		return json.Marshal(d.Sector)
	case deltapool.KindSide:
		return json.Marshal(d.Side)
	case deltapool.KindPolyobject:
		return json.Marshal(d.Polyobject)
	default:
		return json.Marshal(d.Sound)
	}
}
