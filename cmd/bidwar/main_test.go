package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/minexpert/bidwar/core"
	"github.com/minexpert/bidwar/store"
)

func run(t *testing.T, args ...string) (string, int) {
	t.Helper()
	t.Setenv("BIDWAR_LOG_LEVEL", "error")
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), exitCode(err)
}

const projectJSON = `{"id":"project-1","budget":{"min":85000,"max":120000,"currency":"USD"},"timeline":"4 weeks","max_bids":5,"status":"OPEN"}`

const goodBidJSON = `{
  "consultant_id": "consultant-1",
  "price": 95000,
  "timeline": "3 weeks",
  "description": "Full geotechnical assessment of the north pit wall with monitoring plan.",
  "value_adds": ["site visit", "weekly reports", "risk register"],
  "case_studies": [{"title": "Pit optimisation, Pilbara"}]
}`

func TestValidateBid_Passes(t *testing.T) {
	out, code := run(t, "validate", "bid", "--project", projectJSON, "--bid", goodBidJSON)

	check.Equal(t, exitOK, code)
	check.True(t, strings.Contains(out, "VALIDATION: ✓ PASSED"))
	check.True(t, strings.Contains(out, "Composite:  0.7193"))
}

func TestValidateBid_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bid.json")
	assert.NoError(t, os.WriteFile(path, []byte(goodBidJSON), 0o600))

	_, code := run(t, "validate", "bid", "--project", projectJSON, "--bid", path)

	check.Equal(t, exitOK, code)
}

func TestValidateBid_FailsWithEveryError(t *testing.T) {
	bid := `{"consultant_id":"c","price":0,"timeline":"","description":"short"}`

	out, code := run(t, "--format", "json", "validate", "bid", "--project", projectJSON, "--bid", bid)

	check.Equal(t, exitInvalid, code)
	var result struct {
		Valid  bool     `json:"valid"`
		Errors []string `json:"errors"`
	}
	assert.NoError(t, json.Unmarshal([]byte(out), &result))
	check.False(t, result.Valid)
	check.Equal(t, 3, len(result.Errors))
}

func TestValidateBid_BadInput(t *testing.T) {
	_, code := run(t, "validate", "bid", "--project", projectJSON, "--bid", `{"price":"free"}`)
	check.Equal(t, exitError, code)

	_, code = run(t, "validate", "bid", "--project", "{not json", "--bid", goodBidJSON)
	check.Equal(t, exitError, code)

	_, code = run(t, "validate", "bid", "--bid", goodBidJSON)
	check.Equal(t, exitError, code)
}

func TestValidateRanking(t *testing.T) {
	good := `[
	  {"id":"b1","price":100000,"status":"LEADING","rank":1},
	  {"id":"b2","price":110000,"status":"OUTBID","rank":2},
	  {"id":"b3","price":90000,"status":"WITHDRAWN","rank":0}
	]`
	out, code := run(t, "validate", "ranking", "--project", projectJSON, "--bids", good)
	check.Equal(t, exitOK, code)
	check.True(t, strings.Contains(out, "VALIDATION: ✓ PASSED"))

	bad := `[
	  {"id":"b1","price":100000,"status":"LEADING","rank":1},
	  {"id":"b2","price":110000,"status":"LEADING","rank":1}
	]`
	out, code = run(t, "validate", "ranking", "--project", projectJSON, "--bids", bad)
	check.Equal(t, exitInvalid, code)
	check.True(t, strings.Contains(out, "Found 2 leading bids"))
}

const scenarioYAML = `
start: 2025-03-01T09:00:00Z
project:
  id: project-1
  title: Pit wall stability review
  budget: {min: 85000, max: 120000, currency: USD}
  timeline: 4 weeks
  deadline: 72h
  max_bids: 3
consultants:
  consultant-1: Geology
steps:
  - action: submit
    ref: a
    consultant: consultant-1
    price: 95000
    timeline: 3 weeks
    description: Full geotechnical assessment of the north pit wall with monitoring plan.
    value_adds: [site visit, weekly reports, risk register]
    case_studies:
      - title: Pit optimisation, Pilbara
  - action: submit
    ref: b
    consultant: consultant-2
    price: 110000
    timeline: 4 weeks
    description: Slope stability review with radar monitoring integration and a trigger action plan.
  - action: submit
    ref: c
    consultant: consultant-3
    price: 100000
    timeline: 3 weeks
    description: Kinematic and limit equilibrium analysis of the north wall with drilling plan.
  - action: submit
    consultant: consultant-4
    price: 99000
    timeline: 3 weeks
    description: Independent review of pit wall design parameters and monitoring practice.
    expect: BID_LIMIT_REACHED
  - after: 1h
    action: withdraw
    ref: c
    consultant: consultant-3
  - action: update
    ref: b
    consultant: consultant-2
    price: 90000
    timeline: 2 weeks
    description: Slope stability review with radar monitoring integration and a trigger action plan.
  - after: 72h
    action: submit
    consultant: consultant-5
    price: 99000
    timeline: 3 weeks
    description: Late bid that arrives after the deadline has already passed for this project.
    expect: DEADLINE_PASSED
  - action: select
    ref: a
  - action: status
    status: ASSIGNED
`

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestSimulate(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "bidwar.db")

	out, code := run(t, "--format", "json", "simulate", writeScenario(t, scenarioYAML), "--db", dbPath)
	check.Equal(t, exitOK, code)

	var report SimulationReport
	assert.NoError(t, json.Unmarshal([]byte(out), &report))

	check.True(t, report.RankingValid)
	check.Equal(t, 9, len(report.Steps))
	check.Equal(t, "EXPERT-GE-0062", report.Steps[0].AnonymousID)
	check.Equal(t, "BID_LIMIT_REACHED", report.Steps[3].Outcome)
	check.Equal(t, "DEADLINE_PASSED", report.Steps[6].Outcome)
	for _, s := range report.Steps {
		check.True(t, s.Matched)
	}

	// The rejected runner-up leaves the ranking; only the accepted bid stays ranked.
	board := report.Leaderboard
	check.Equal(t, core.ProjectAssigned, board.Project.Status)
	check.Equal(t, 1, len(board.Bids))
	assert.NotNil(t, board.Leader)
	check.Equal(t, "EXPERT-GE-0062", board.Leader.AnonymousID)
	check.Equal(t, core.BidAccepted, board.Leader.Status)
	check.True(t, board.RunnerUp == nil)

	st, err := store.NewStore(dbPath)
	assert.NoError(t, err)
	defer st.Close()
	events, err := st.ListEvents(context.Background(), "project-1")
	assert.NoError(t, err)
	check.True(t, len(events) > 0)
	check.Equal(t, core.EventProjectStatusChanged, events[len(events)-1].Type)
}

func TestSimulate_TextOutput(t *testing.T) {
	out, code := run(t, "simulate", writeScenario(t, scenarioYAML))

	check.Equal(t, exitOK, code)
	check.True(t, strings.Contains(out, "EXPERT-GE-0062"))
	check.True(t, strings.Contains(out, "Ranking audit: ✓ PASSED"))
}

func TestSimulate_UnmetExpectation(t *testing.T) {
	scenario := strings.Replace(scenarioYAML, "expect: BID_LIMIT_REACHED", "expect: OK", 1)

	_, code := run(t, "simulate", writeScenario(t, scenario))

	check.Equal(t, exitInvalid, code)
}

func TestSimulate_BadScenario(t *testing.T) {
	_, code := run(t, "simulate", filepath.Join(t.TempDir(), "missing.yaml"))
	check.Equal(t, exitError, code)

	bad := strings.Replace(scenarioYAML, "action: withdraw", "action: retract", 1)
	_, code = run(t, "simulate", writeScenario(t, bad))
	check.Equal(t, exitError, code)
}

func TestAnonID(t *testing.T) {
	out, code := run(t, "anon-id", "consultant-1", "project-1")
	check.Equal(t, exitOK, code)
	check.Equal(t, "EXPERT-MC-0062\n", out)

	out, code = run(t, "anon-id", "consultant-1", "project-1", "--specialization", "Geology")
	check.Equal(t, exitOK, code)
	check.Equal(t, "EXPERT-GE-0062\n", out)
}

func TestAnonID_ConfiguredConsultantsMatchAnyCase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bidwar.yaml")
	config := "expertise:\n  consultants:\n    Consultant-ABC: Geology\n"
	assert.NoError(t, os.WriteFile(path, []byte(config), 0o600))

	out, code := run(t, "-c", path, "anon-id", "Consultant-ABC", "project-1")

	check.Equal(t, exitOK, code)
	check.True(t, strings.HasPrefix(out, "EXPERT-GE-"))
}

func TestKeygen(t *testing.T) {
	out, code := run(t, "keygen")

	check.Equal(t, exitOK, code)
	check.Equal(t, 64, len(strings.TrimSpace(out)))
}

func TestWatch_RequiresRedis(t *testing.T) {
	_, code := run(t, "watch", "project-1")
	check.Equal(t, exitError, code)
}

func TestUnknownFormat(t *testing.T) {
	_, code := run(t, "--format", "xml", "keygen")
	check.Equal(t, exitError, code)
}
