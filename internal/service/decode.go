// Package service implements the gateway use cases on top of the content
// store and the aggregation engine.
package service

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/kaspadata/exgateway/internal/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Stored day files carry millisecond timestamps; the rest of the gateway
// works in unix seconds.
const millisThreshold = int64(1e12)

type dayPayload struct {
	Data []domain.RawTick `json:"data"`
}

// decodeDayFile parses a stored {"data": [...]} day file and normalizes
// timestamps to seconds.
func decodeDayFile(raw []byte) ([]domain.RawTick, error) {
	var payload dayPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode day file: %w", err)
	}
	for i := range payload.Data {
		if payload.Data[i].Timestamp >= millisThreshold {
			payload.Data[i].Timestamp /= 1000
		}
	}
	return payload.Data, nil
}
