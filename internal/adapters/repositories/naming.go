package repositories

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// RecordNaming maps the canonical trip record onto the storage convention
// in use. Only the address columns differ between conventions.
type RecordNaming struct {
	Table              string
	OriginAddress      string
	DestinationAddress string
}

func NamingFor(convention string) (RecordNaming, error) {
	switch strings.ToLower(convention) {
	case "", "snake":
		return RecordNaming{
			Table:              "trips",
			OriginAddress:      "origin_address",
			DestinationAddress: "destination_address",
		}, nil
	case "camel":
		return RecordNaming{
			Table:              "trips_camel",
			OriginAddress:      "originAddress",
			DestinationAddress: "destinationAddress",
		}, nil
	}
	return RecordNaming{}, fmt.Errorf("unknown record naming %q", convention)
}

func (n RecordNaming) table() string       { return pgx.Identifier{n.Table}.Sanitize() }
func (n RecordNaming) origin() string      { return pgx.Identifier{n.OriginAddress}.Sanitize() }
func (n RecordNaming) destination() string { return pgx.Identifier{n.DestinationAddress}.Sanitize() }

// EncodeDestinationAddress stores one address as-is and several as a JSON list.
func EncodeDestinationAddress(addresses []string) (string, error) {
	if len(addresses) == 1 {
		return addresses[0], nil
	}
	b, err := json.Marshal(addresses)
	if err != nil {
		return "", fmt.Errorf("encode destination address: %w", err)
	}
	return string(b), nil
}

// DecodeDestinationAddress is the inverse of EncodeDestinationAddress.
func DecodeDestinationAddress(s string) []string {
	t := strings.TrimSpace(s)
	if strings.HasPrefix(t, "[") {
		var out []string
		if err := json.Unmarshal([]byte(t), &out); err == nil {
			return out
		}
	}
	if t == "" {
		return nil
	}
	return []string{s}
}
