package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunEvaluate(t *testing.T) {
	in := `{
		"invoices": [
			{"id": 1, "owner_id": 9, "number": "INV-1", "status": "issued", "issue_date": "2025-03-01T00:00:00Z", "due_date": "2025-03-09T00:00:00Z"},
			{"id": 2, "owner_id": 9, "number": "INV-2", "status": "paid", "issue_date": "2025-03-01T00:00:00Z", "due_date": "2025-03-09T00:00:00Z"}
		],
		"jobs": [
			{"id": 4, "owner_id": 9, "title": "Wedding", "status": "confirmed"}
		]
	}`
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	require.NoError(t, runEvaluate(strings.NewReader(in), &buf, now))

	var out struct {
		Entities []struct {
			Kind   string `json:"kind"`
			ID     int64  `json:"id"`
			Badges []struct {
				ID string `json:"id"`
			} `json:"badges"`
		} `json:"entities"`
		Alerts []struct {
			ID string `json:"id"`
		} `json:"alerts"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))

	require.Len(t, out.Entities, 2)
	assert.Equal(t, "invoice", out.Entities[0].Kind)
	assert.Equal(t, int64(1), out.Entities[0].ID)
	assert.Equal(t, "invoice-overdue", out.Entities[0].Badges[0].ID)
	assert.Equal(t, "job", out.Entities[1].Kind)
	assert.Equal(t, "job-no-contract", out.Entities[1].Badges[0].ID)

	require.Len(t, out.Alerts, 2)
	assert.Equal(t, "overdue-invoices", out.Alerts[0].ID)
	assert.Equal(t, "jobs-no-contract", out.Alerts[1].ID)
}

func TestRunEvaluate_BadInput(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, runEvaluate(strings.NewReader("{"), &buf, time.Now()))
}

func TestRootCommandWiring(t *testing.T) {
	root := newRootCommand()
	for _, name := range []string{"migrate", "sweep", "topics", "evaluate"} {
		c, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, c.Name())
	}
}
