package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cubtera/cubtera/pkg/invapi"
)

func TestParseQueries_SplitsOnFirstColon(t *testing.T) {
	filters, err := parseQueries([]string{"env:prod", "dc:us-east-1:a"})
	require.NoError(t, err)
	assert.Equal(t, []invapi.KeyValue{
		{Key: "env", Value: "prod"},
		{Key: "dc", Value: "us-east-1:a"},
	}, filters)
}

func TestParseQueries_EmptyInput(t *testing.T) {
	filters, err := parseQueries(nil)
	require.NoError(t, err)
	assert.Empty(t, filters)
}

func TestParseQueries_RejectsMissingColon(t *testing.T) {
	_, err := parseQueries([]string{"env"})
	assert.Error(t, err)
}

func TestParseQueries_RejectsEmptyKey(t *testing.T) {
	_, err := parseQueries([]string{":prod"})
	assert.Error(t, err)
}
