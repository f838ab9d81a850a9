package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ridewell/benefit-api/internal/api"
)

func TestParseCSV(t *testing.T) {
	content := "email,firstName,lastName,hireDate\n" +
		"a@x.com, Jane ,Doe,2024-01-15\n" +
		"\n" +
		"b@x.com,John,Smith,\n"

	rows, err := ParseCSV(content, "email")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "a@x.com", rows[0]["email"])
	assert.Equal(t, "Jane", rows[0]["firstName"], "cell values are trimmed")
	assert.Equal(t, "2024-01-15", rows[0]["hireDate"])
	assert.Equal(t, "", rows[1]["hireDate"])
}

func TestParseCSV_Empty(t *testing.T) {
	_, err := ParseCSV("", "email")
	assert.ErrorIs(t, err, api.ErrEmptyCSV)

	_, err = ParseCSV("   \n\t\n", "email")
	assert.ErrorIs(t, err, api.ErrEmptyCSV)
}

func TestParseCSV_MissingHeader(t *testing.T) {
	_, err := ParseCSV("name,department\nJane,Sales", "email")
	var apiErr api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, api.ErrMissingHeader.Code, apiErr.Code)
	assert.Equal(t, "email", apiErr.Reason)
}

func TestParseCSV_HeaderOnly(t *testing.T) {
	_, err := ParseCSV("email,firstName\n", "email")
	assert.ErrorIs(t, err, api.ErrNoRows)
}

func TestParseCSV_ShortRecords(t *testing.T) {
	rows, err := ParseCSV("email,firstName,lastName\nc@x.com,Carol", "email")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Carol", rows[0]["firstName"])
	assert.Equal(t, "", rows[0]["lastName"], "missing trailing cells read as blank")
}
