package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/minexpert/bidwar/bidapi"
	"github.com/minexpert/bidwar/core"
	"github.com/minexpert/bidwar/engine"
	"github.com/minexpert/bidwar/feed"
	"github.com/minexpert/bidwar/store"
	"github.com/minexpert/bidwar/validation"
)

// Scenario is a scripted auction replayed by the simulate command.
type Scenario struct {
	// Start is the simulated clock at the first step. Defaults to now.
	Start   time.Time       `yaml:"start"`
	Project ScenarioProject `yaml:"project"`
	// Consultants maps consultant ID to specialization for anonymous IDs.
	Consultants map[string]string `yaml:"consultants"`
	Steps       []ScenarioStep    `yaml:"steps"`
}

type ScenarioProject struct {
	ID       string `yaml:"id"`
	Title    string `yaml:"title"`
	Budget   struct {
		Min      float64 `yaml:"min"`
		Max      float64 `yaml:"max"`
		Currency string  `yaml:"currency"`
	} `yaml:"budget"`
	Timeline string `yaml:"timeline"`
	// Deadline is an offset from Start, e.g. "72h".
	Deadline string `yaml:"deadline"`
	MaxBids  int    `yaml:"max_bids"`
	Status   string `yaml:"status"`
}

// ScenarioStep is one engine call. Bids are addressed by Ref, a name local to the scenario.
type ScenarioStep struct {
	// After advances the clock before the step runs, e.g. "90m".
	After       string           `yaml:"after"`
	Action      string           `yaml:"action"`
	Ref         string           `yaml:"ref"`
	Consultant  string           `yaml:"consultant"`
	Price       float64          `yaml:"price"`
	Timeline    string           `yaml:"timeline"`
	Description string           `yaml:"description"`
	ValueAdds   []string         `yaml:"value_adds"`
	CaseStudies []core.CaseStudy `yaml:"case_studies"`
	Status      string           `yaml:"status"`
	// Expect names the error code the step should fail with; empty means success.
	Expect string `yaml:"expect"`
}

const (
	actionSubmit   = "submit"
	actionUpdate   = "update"
	actionWithdraw = "withdraw"
	actionSelect   = "select"
	actionReject   = "reject"
	actionStatus   = "status"
)

// StepResult records what happened when a step ran.
type StepResult struct {
	Step        int    `json:"step"`
	Action      string `json:"action"`
	Ref         string `json:"ref,omitempty"`
	AnonymousID string `json:"anonymous_id,omitempty"`
	Outcome     string `json:"outcome"`
	Expected    string `json:"expected,omitempty"`
	Matched     bool   `json:"matched"`
}

// SimulationReport is the outcome of a scenario run.
type SimulationReport struct {
	Steps        []StepResult       `json:"steps"`
	Leaderboard  bidapi.Leaderboard `json:"leaderboard"`
	RankingValid bool               `json:"ranking_valid"`
	Details      []string           `json:"details,omitempty"`
}

// Passed reports whether every step met its expectation and the final ranking is sound.
func (r *SimulationReport) Passed() bool {
	if !r.RankingValid {
		return false
	}
	for _, s := range r.Steps {
		if !s.Matched {
			return false
		}
	}
	return true
}

func loadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	return &sc, nil
}

func (sc *Scenario) project() (core.Project, error) {
	p := sc.Project
	deadline := 7 * 24 * time.Hour
	if p.Deadline != "" {
		d, err := time.ParseDuration(p.Deadline)
		if err != nil {
			return core.Project{}, fmt.Errorf("project deadline: %w", err)
		}
		deadline = d
	}
	status := core.ProjectOpen
	if p.Status != "" {
		status = core.ProjectStatus(strings.ToUpper(p.Status))
	}
	return core.Project{
		ID:       p.ID,
		Title:    p.Title,
		Budget:   core.Budget{Min: p.Budget.Min, Max: p.Budget.Max, Currency: p.Budget.Currency},
		Timeline: p.Timeline,
		Deadline: sc.Start.Add(deadline),
		MaxBids:  p.MaxBids,
		Status:   status,
	}, nil
}

func (a *app) simulateCmd() *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "simulate <scenario.yaml>",
		Short: "Replay a YAML auction scenario through the engine",
		Long: `Replay a YAML auction scenario through the engine and print each step's
outcome and the final leaderboard.

When a store path is configured (or --db is given) every event is recorded in
SQLite. When Redis is configured every event is mirrored to the project channel.

Exits 1 if a step's outcome differs from its expect field or the final ranking
fails its audit.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := loadScenario(args[0])
			if err != nil {
				return err
			}
			if dbPath == "" {
				dbPath = a.cfg.Store.Path
			}
			report, err := a.simulate(cmd.Context(), sc, dbPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.jsonOutput() {
				if err := writeJSON(out, report); err != nil {
					return err
				}
			} else {
				writeReportText(out, report)
			}
			if !report.Passed() {
				return invalid(nil)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "record events in this SQLite file (overrides store.path)")
	return cmd
}

func (a *app) simulate(ctx context.Context, sc *Scenario, dbPath string) (*SimulationReport, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if sc.Start.IsZero() {
		sc.Start = time.Now().UTC()
	}
	project, err := sc.project()
	if err != nil {
		return nil, err
	}

	client, err := a.redisClient(ctx)
	if err != nil {
		return nil, err
	}
	if client != nil {
		defer client.Close()
	}

	anon, err := a.anonymizer(sc.Consultants, client)
	if err != nil {
		return nil, err
	}

	now := sc.Start
	e := engine.New(
		engine.WithClock(func() time.Time { return now }),
		engine.WithLogger(a.log),
		engine.WithAnonymizer(anon),
		engine.WithValidationOptions(validation.Options{StrictTimeline: a.cfg.Engine.StrictTimeline}),
		engine.WithSubscriberBuffer(a.cfg.Engine.SubscriberBuffer),
	)
	defer e.Close()

	if err := e.RegisterProject(project); err != nil {
		return nil, err
	}

	if dbPath != "" {
		st, err := store.NewStore(dbPath)
		if err != nil {
			return nil, err
		}
		defer st.Close()
		if err := st.SaveProject(ctx, project); err != nil {
			return nil, err
		}
		e.SubscribeFunc(project.ID, st.Recorder(ctx, a.log))
	}
	if client != nil {
		pub := feed.NewPublisher(client, a.cfg.Redis.ChannelPrefix, a.log)
		e.SubscribeFunc(project.ID, pub.Mirror(ctx))
	}

	refs := make(map[string]string)
	report := &SimulationReport{}
	for i, step := range sc.Steps {
		if step.After != "" {
			d, err := time.ParseDuration(step.After)
			if err != nil {
				return nil, fmt.Errorf("step %d: after: %w", i+1, err)
			}
			now = now.Add(d)
		}
		bid, err := runStep(ctx, e, project.ID, step, refs)
		if err != nil && engine.CodeOf(err) == "" {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}

		result := StepResult{
			Step:        i + 1,
			Action:      step.Action,
			Ref:         step.Ref,
			AnonymousID: bid.AnonymousID,
			Outcome:     "OK",
			Expected:    step.Expect,
		}
		if err != nil {
			result.Outcome = string(engine.CodeOf(err))
		}
		want := step.Expect
		if want == "" {
			want = "OK"
		}
		result.Matched = strings.EqualFold(result.Outcome, want)
		report.Steps = append(report.Steps, result)
	}

	final, err := e.Project(project.ID)
	if err != nil {
		return nil, err
	}
	bids, err := e.RankedBids(project.ID)
	if err != nil {
		return nil, err
	}
	audit := validation.ValidateRanking(final, bids)
	report.Leaderboard = bidapi.NewLeaderboard(final, bids)
	report.RankingValid = audit.IsValid()
	if !audit.IsValid() {
		report.Details = audit.ValidationDetails
	}
	return report, nil
}

// runStep performs one scenario step. Engine refusals come back as *engine.Error;
// any other error is a malformed scenario.
func runStep(ctx context.Context, e *engine.Engine, projectID string, step ScenarioStep, refs map[string]string) (core.Bid, error) {
	sub := engine.Submission{
		ConsultantID: step.Consultant,
		Price:        step.Price,
		Timeline:     step.Timeline,
		Description:  step.Description,
		ValueAdds:    step.ValueAdds,
		CaseStudies:  step.CaseStudies,
	}

	lookup := func() (string, error) {
		id, ok := refs[step.Ref]
		if !ok {
			return "", fmt.Errorf("unknown bid ref %q", step.Ref)
		}
		return id, nil
	}

	switch strings.ToLower(step.Action) {
	case actionSubmit:
		bid, err := e.Submit(ctx, projectID, sub)
		if err == nil && step.Ref != "" {
			refs[step.Ref] = bid.ID
		}
		return bid, err
	case actionUpdate:
		id, err := lookup()
		if err != nil {
			return core.Bid{}, err
		}
		return e.Update(ctx, projectID, id, sub)
	case actionWithdraw:
		id, err := lookup()
		if err != nil {
			return core.Bid{}, err
		}
		return e.Withdraw(ctx, projectID, id, step.Consultant)
	case actionSelect:
		id, err := lookup()
		if err != nil {
			return core.Bid{}, err
		}
		return e.RecordSelection(ctx, projectID, id)
	case actionReject:
		id, err := lookup()
		if err != nil {
			return core.Bid{}, err
		}
		return e.RecordRejection(ctx, projectID, id)
	case actionStatus:
		return core.Bid{}, e.SetProjectStatus(ctx, projectID, core.ProjectStatus(strings.ToUpper(step.Status)))
	}
	return core.Bid{}, fmt.Errorf("unknown action %q", step.Action)
}

func writeReportText(w io.Writer, report *SimulationReport) {
	steps := table.NewWriter()
	steps.SetOutputMirror(w)
	steps.SetTitle("Steps")
	steps.AppendHeader(table.Row{"#", "Action", "Ref", "Anonymous ID", "Outcome", "Expected"})
	for _, s := range report.Steps {
		mark := "✓"
		if !s.Matched {
			mark = "✗"
		}
		expected := s.Expected
		if expected == "" {
			expected = "OK"
		}
		steps.AppendRow(table.Row{s.Step, s.Action, s.Ref, s.AnonymousID, s.Outcome, mark + " " + expected})
	}
	steps.Render()

	board := report.Leaderboard
	ranking := table.NewWriter()
	ranking.SetOutputMirror(w)
	ranking.SetTitle(fmt.Sprintf("%s (%s)", board.Project.ID, board.Project.Status))
	ranking.AppendHeader(table.Row{"Rank", "Anonymous ID", "Price", "Timeline", "Price Score", "Time Score", "Value Score", "Composite", "Status"})
	for _, b := range board.Bids {
		ranking.AppendRow(table.Row{
			b.Rank, b.AnonymousID, fmt.Sprintf("%.2f", b.Price), b.Timeline,
			fmt.Sprintf("%.3f", b.Scores.Price), fmt.Sprintf("%.3f", b.Scores.Timeline),
			fmt.Sprintf("%.3f", b.Scores.Value), fmt.Sprintf("%.4f", b.Confidence), b.Status,
		})
	}
	ranking.Render()

	if report.RankingValid {
		fmt.Fprintln(w, "Ranking audit: ✓ PASSED")
	} else {
		fmt.Fprintln(w, "Ranking audit: ✗ FAILED")
		for _, d := range report.Details {
			fmt.Fprintf(w, "  - %s\n", d)
		}
	}
}
