package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/internship-affectation/internal/dto"
)

var sampleFixture = filepath.Join("..", "..", "internal", "repository", "testdata", "sample_fixture.yaml")

func execute(t *testing.T, args ...string) []byte {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return out.Bytes()
}

func TestRunCommandWithFixture(t *testing.T) {
	out := execute(t, "run", "--fixture", sampleFixture, "--quiet", "--executions", "3", "--seed", "4")

	var result dto.GenerateAffectationResponse
	require.NoError(t, json.Unmarshal(out, &result))
	assert.Equal(t, 3, result.Executions)
	assert.Equal(t, int64(4), result.Seed)
	assert.Len(t, result.History, 3)
	assert.Zero(t, result.Persisted)
	assert.Positive(t, result.Placements)
}

func TestRunCommandIsReproducible(t *testing.T) {
	args := []string{"run", "--fixture", sampleFixture, "--quiet", "--executions", "2", "--seed", "9"}
	var first, second dto.GenerateAffectationResponse
	require.NoError(t, json.Unmarshal(execute(t, args...), &first))
	require.NoError(t, json.Unmarshal(execute(t, args...), &second))
	assert.Equal(t, first.Costs, second.Costs)
	assert.Equal(t, first.Statistics, second.Statistics)
}

func TestStatsCommandWithFixture(t *testing.T) {
	out := execute(t, "stats", "--fixture", sampleFixture, "--quiet", "--sort", "speciality")

	var result dto.StatisticsResponse
	require.NoError(t, json.Unmarshal(out, &result))
	assert.Equal(t, 2, result.Statistics.TotalStudents)
	assert.NotEmpty(t, result.Occupancy)
}

func TestRunCommandRejectsMissingFixture(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"run", "--fixture", "missing.yaml", "--quiet"})
	assert.Error(t, cmd.Execute())
}
