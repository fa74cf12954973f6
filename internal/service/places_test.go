package service

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOverpass(t *testing.T) {
	raw := `{"elements":[
		{"lat":52.52,"lon":13.40,"tags":{"amenity":"hospital","name":"City Hospital","addr:street":"Main St","addr:housenumber":"12"}},
		{"center":{"lat":52.53,"lon":13.41},"tags":{"amenity":"police","name":"Precinct 9"}},
		{"lat":52.54,"lon":13.42,"tags":{"amenity":"hospital"}},
		{"lat":52.55,"lon":13.43,"tags":{"amenity":"cafe","name":"Beans"}}
	]}`
	var resp overpassResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &resp))

	places := parseOverpass(resp)
	require.Len(t, places, 2, "unnamed and non-safety amenities are dropped")

	assert.Equal(t, "City Hospital", places[0].Name)
	assert.Equal(t, "hospital", places[0].Type)
	assert.Equal(t, "12 Main St", places[0].Address)
	assert.Equal(t, [2]float64{13.40, 52.52}, places[0].Coordinates())

	// Ways report coordinates under "center".
	assert.Equal(t, "Precinct 9", places[1].Name)
	assert.Equal(t, 52.53, places[1].Lat)
	assert.Equal(t, 13.41, places[1].Lng)
}

func TestChatClassify(t *testing.T) {
	cases := map[string]string{
		"i'm injured and need a doctor": "hospital",
		"someone is stalking me":        "police",
		"where can i buy medicine":      "pharmacy",
		"hello there":                   "greeting",
		"what can you do":               "help",
		"tell me a story":               "",
	}
	for msg, want := range cases {
		assert.Equal(t, want, classify(msg), "message %q", msg)
	}
}
