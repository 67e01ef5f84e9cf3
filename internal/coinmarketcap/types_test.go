package coinmarketcap

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogEntry_PassthroughFields(t *testing.T) {
	in := `{"id":1027,"name":"Ethereum","symbol":"ETH","slug":"ethereum","first_historical_data":"2015-08-07T14:45:00.000Z","platform":null}`

	var e CatalogEntry
	require.NoError(t, json.Unmarshal([]byte(in), &e))
	assert.Equal(t, 1027, e.ID)
	assert.Equal(t, "Ethereum", e.Name)
	assert.Equal(t, "ETH", e.Symbol)
	assert.Len(t, e.Extra, 3)

	out, err := json.Marshal(e)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))
}

func TestURLList_StringOrArray(t *testing.T) {
	var rec DetailRecord
	require.NoError(t, json.Unmarshal([]byte(`{"urls":{
		"website":["https://a.example","https://b.example"],
		"reddit":"https://reddit.com/r/x",
		"chat":"",
		"twitter":[]}}`), &rec))

	assert.Equal(t, URLList{"https://a.example", "https://b.example"}, rec.URLs["website"])
	assert.Equal(t, URLList{"https://reddit.com/r/x"}, rec.URLs["reddit"])
	assert.Empty(t, rec.URLs["chat"])

	assert.Equal(t, []string{
		"reddit: https://reddit.com/r/x",
		"website: https://a.example, https://b.example",
	}, rec.URLLines())
}

func TestURLList_RejectsOtherTypes(t *testing.T) {
	var u URLList
	assert.Error(t, json.Unmarshal([]byte(`42`), &u))
}

func TestSortedIDs(t *testing.T) {
	m := map[string]int{"1027": 0, "52": 0, "1": 0, "x": 0}
	assert.Equal(t, []string{"1", "52", "1027", "x"}, sortedIDs(m))
}
