package candidate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeListAcceptsAllShapes(t *testing.T) {
	cases := map[string]string{
		"data envelope":        `{"data":[{"_id":"a","firstName":"Ada"},{"_id":"b","firstName":"Bo"}]}`,
		"bare array":           `[{"_id":"a","firstName":"Ada"},{"id":"b","firstName":"Bo"}]`,
		"connections envelope": `{"connections":[{"_id":"a","firstName":"Ada"},null,{"_id":"b","firstName":"Bo"}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := DecodeList([]byte(body))
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, "a", got[0].ID)
			assert.Equal(t, "b", got[1].ID)
		})
	}
}

func TestDecodeListUnknownEnvelopeIsEmpty(t *testing.T) {
	got, err := DecodeList([]byte(`{"message":"ok"}`))
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = DecodeList([]byte(`null`))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDecodeListDropsRecordsWithoutID(t *testing.T) {
	got, err := DecodeList([]byte(`[{"firstName":"Ghost"},{"_id":"x","firstName":"Real"}]`))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "x", got[0].ID)
}

func TestDecodeListRejectsGarbage(t *testing.T) {
	_, err := DecodeList([]byte(`<html>`))
	assert.Error(t, err)
}

func TestOptionalFieldsAreAbsentNotErrors(t *testing.T) {
	got, err := DecodeList([]byte(`[{"_id":"a","firstName":"Ada","lastName":"Lovelace"}]`))
	require.NoError(t, err)
	require.Len(t, got, 1)
	c := got[0]
	assert.Equal(t, "", c.Badge())
	assert.Equal(t, DefaultPhotoURL, c.Photo())
	assert.Equal(t, "Ada Lovelace", c.DisplayName())
}

func TestAgeAcceptsStrings(t *testing.T) {
	got, err := DecodeList([]byte(`[{"_id":"a","firstName":"Ada","age":"29","gender":"female"}]`))
	require.NoError(t, err)
	assert.Equal(t, 29, got[0].Age)
	assert.Equal(t, "29, female", got[0].Badge())
}

func TestDisplayNameFallsBack(t *testing.T) {
	assert.Equal(t, "Unknown", Candidate{ID: "x"}.DisplayName())
	assert.Equal(t, "Bo", Candidate{ID: "x", FirstName: "Bo"}.DisplayName())
}
