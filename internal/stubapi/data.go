package stubapi

import (
	"encoding/json"

	"github.com/urbanperceptions/survey-client/internal/api"
)

// Canned Lisbon data for offline development and tests. Geometries are
// rough, hand-placed boxes; the mix of Point and Polygon results mirrors
// what the real geocoder returns.

const boundaryGeoJSON = `{"type":"Polygon","coordinates":[[
	[-9.25,38.65],[-9.05,38.65],[-9.05,38.80],[-9.25,38.80],[-9.25,38.65]
]]}`

func box(west, south, east, north float64) json.RawMessage {
	b, _ := json.Marshal(map[string]any{
		"type": "Polygon",
		"coordinates": [][][]float64{{
			{west, south}, {east, south}, {east, north}, {west, north}, {west, south},
		}},
	})
	return b
}

func point(lon, lat float64) json.RawMessage {
	b, _ := json.Marshal(map[string]any{
		"type":        "Point",
		"coordinates": []float64{lon, lat},
	})
	return b
}

var places = []api.GeocodeResult{
	{
		OSMID: 5400890, OSMType: "relation", DisplayName: "Alfama, Lisboa, Portugal",
		Class: "place", Type: "suburb",
		GeoJSON: box(-9.135, 38.708, -9.124, 38.716),
	},
	{
		OSMID: 4461442, OSMType: "way", DisplayName: "Jardim da Estrela, Lisboa, Portugal",
		Class: "leisure", Type: "garden",
		GeoJSON: box(-9.162, 38.712, -9.156, 38.717),
	},
	{
		OSMID: 1862699, OSMType: "way", DisplayName: "Parque Eduardo VII, Lisboa, Portugal",
		Class: "leisure", Type: "park",
		GeoJSON: box(-9.156, 38.725, -9.149, 38.733),
	},
	{
		OSMID: 2263613, OSMType: "node", DisplayName: "Miradouro de Santa Luzia, Lisboa, Portugal",
		Class: "tourism", Type: "viewpoint",
		GeoJSON: point(-9.130, 38.712),
	},
	{
		OSMID: 3391509, OSMType: "relation", DisplayName: "Mouraria, Lisboa, Portugal",
		Class: "place", Type: "neighbourhood",
		GeoJSON: box(-9.138, 38.714, -9.130, 38.720),
	},
	{
		OSMID: 9136021, OSMType: "way", DisplayName: "Castelo de São Jorge, Lisboa, Portugal",
		Class: "historic", Type: "castle",
		GeoJSON: box(-9.135, 38.712, -9.131, 38.715),
	},
}

var categoryFeatures = map[string][]api.CategoryFeatureResult{
	"parks": {
		{OSMID: 1862699, DisplayName: "Parque Eduardo VII", Class: "leisure", Type: "park",
			GeoJSON: box(-9.156, 38.725, -9.149, 38.733)},
		{OSMID: 4461442, DisplayName: "Jardim da Estrela", Class: "leisure", Type: "garden",
			GeoJSON: box(-9.162, 38.712, -9.156, 38.717)},
		{OSMID: 7700391, DisplayName: "Parque Florestal de Monsanto", Class: "leisure", Type: "park",
			GeoJSON: box(-9.21, 38.72, -9.17, 38.75)},
	},
	"schools": {
		{OSMID: 6120044, DisplayName: "Escola Secundária de Camões", Class: "amenity", Type: "school",
			GeoJSON: box(-9.141, 38.729, -9.138, 38.731)},
		{OSMID: 8220137, DisplayName: "Instituto Superior Técnico", Class: "amenity", Type: "university",
			GeoJSON: box(-9.141, 38.735, -9.135, 38.739)},
	},
	"museums": {
		{OSMID: 9313220, DisplayName: "Museu Nacional do Azulejo", Class: "tourism", Type: "museum",
			GeoJSON: box(-9.115, 38.724, -9.112, 38.726)},
	},
	"heritage": {
		{OSMID: 9136021, DisplayName: "Castelo de São Jorge", Class: "historic", Type: "castle",
			GeoJSON: box(-9.135, 38.712, -9.131, 38.715)},
		{OSMID: 4059312, DisplayName: "Mosteiro dos Jerónimos", Class: "historic", Type: "monastery",
			GeoJSON: box(-9.208, 38.697, -9.205, 38.699)},
	},
	"neighborhoods": {
		{OSMID: 5400890, DisplayName: "Alfama", Class: "place", Type: "suburb",
			GeoJSON: box(-9.135, 38.708, -9.124, 38.716)},
		{OSMID: 3391509, DisplayName: "Mouraria", Class: "place", Type: "neighbourhood",
			GeoJSON: box(-9.138, 38.714, -9.130, 38.720)},
	},
}
