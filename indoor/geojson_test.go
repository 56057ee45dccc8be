package indoor_test

import (
	"encoding/json"
	"testing"

	"kuanb/indoor-router/indoor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoRoomsGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"label": "kitchen"},
     "geometry": {"type": "Polygon", "coordinates": [[[0,0],[10,0],[10,10],[0,10],[0,0]]]}},
    {"type": "Feature", "properties": {"label": "hall"},
     "geometry": {"type": "Polygon", "coordinates": [[[10,0],[20,0],[20,10],[10,10],[10,0]]]}},
    {"type": "Feature", "properties": {"door": true},
     "geometry": {"type": "LineString", "coordinates": [[10,4],[10,6]]}},
    {"type": "Feature", "properties": {"door": true, "cells": ["hall"]},
     "geometry": {"type": "LineString", "coordinates": [[20,4],[20,6]]}},
    {"type": "Feature", "properties": {"name": "marker"},
     "geometry": {"type": "Point", "coordinates": [5,5]}}
  ]
}`

func TestDecodeGeoJSON(t *testing.T) {
	b, err := indoor.DecodeGeoJSON([]byte(twoRoomsGeoJSON))
	require.NoError(t, err)
	require.Equal(t, 2, b.Len())

	assert.Equal(t, "kitchen", b.Label(0))
	assert.Equal(t, 1, b.DoorCount(0))
	assert.Equal(t, 2, b.DoorCount(1))
	assert.True(t, b.Topology()[0][1])
}

func TestDecodeGeoJSONInvalid(t *testing.T) {
	_, err := indoor.DecodeGeoJSON([]byte(`{"type": "Feature"`))
	assert.Error(t, err)
}

func TestFeatureCollectionRoundTrip(t *testing.T) {
	b, err := indoor.DecodeGeoJSON([]byte(twoRoomsGeoJSON))
	require.NoError(t, err)

	data, err := json.Marshal(b.FeatureCollection())
	require.NoError(t, err)

	again, err := indoor.DecodeGeoJSON(data)
	require.NoError(t, err)
	assert.Equal(t, b.Len(), again.Len())
	assert.Equal(t, b.DoorCount(1), again.DoorCount(1))
	assert.Equal(t, b.Topology(), again.Topology())
}
