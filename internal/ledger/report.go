package ledger

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"slices"
	"time"

	"github.com/roach88/cohort/internal/instance"
)

// Counts tallies assertions by outcome.
type Counts struct {
	Pass         int `json:"pass"`
	Fail         int `json:"fail"`
	NotSupported int `json:"not_supported"`
}

// Total is the number of assertions counted.
func (c Counts) Total() int { return c.Pass + c.Fail + c.NotSupported }

func (c *Counts) add(o Outcome) {
	switch o {
	case OutcomePass:
		c.Pass++
	case OutcomeFail:
		c.Fail++
	case OutcomeNotSupported:
		c.NotSupported++
	}
}

// Timing holds elapsed-time percentiles in milliseconds over the timed
// assertions of a profile.
type Timing struct {
	Count int     `json:"count"`
	P50   float64 `json:"p50_ms"`
	P90   float64 `json:"p90_ms"`
	P99   float64 `json:"p99_ms"`
	Max   float64 `json:"max_ms"`
}

// RequirementSummary counts the assertions filed under one requirement.
type RequirementSummary struct {
	ID     string `json:"id"`
	Counts Counts `json:"counts"`
}

// ProfileSummary is one row of the conformance matrix.
type ProfileSummary struct {
	ID           string               `json:"id"`
	Counts       Counts               `json:"counts"`
	Requirements []RequirementSummary `json:"requirements,omitempty"`
	Timing       *Timing              `json:"timing,omitempty"`
}

// Report aggregates a run into a pass/fail/not-supported matrix per profile.
type Report struct {
	RunID      string           `json:"run_id"`
	Totals     Counts           `json:"totals"`
	Profiles   []ProfileSummary `json:"profiles"`
	Discovered []Property       `json:"discovered,omitempty"`
}

// Conformant reports whether the run recorded no failures. Not-supported
// outcomes do not count against conformance.
func (r Report) Conformant() bool { return r.Totals.Fail == 0 }

// Summarize builds a Report. Profiles and requirements are sorted by id;
// assertions without a requirement count toward their profile only.
func Summarize(runID string, assertions []Assertion, discovered []Property) Report {
	type acc struct {
		counts  Counts
		reqs    map[string]*Counts
		elapsed []time.Duration
	}
	profiles := map[string]*acc{}

	r := Report{RunID: runID, Profiles: []ProfileSummary{}, Discovered: discovered}
	for _, a := range assertions {
		r.Totals.add(a.Outcome)

		p := profiles[a.ProfileID]
		if p == nil {
			p = &acc{reqs: map[string]*Counts{}}
			profiles[a.ProfileID] = p
		}
		p.counts.add(a.Outcome)
		if a.RequirementID != "" {
			c := p.reqs[a.RequirementID]
			if c == nil {
				c = &Counts{}
				p.reqs[a.RequirementID] = c
			}
			c.add(a.Outcome)
		}
		if a.Timed {
			p.elapsed = append(p.elapsed, a.Elapsed)
		}
	}

	ids := make([]string, 0, len(profiles))
	for id := range profiles {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		p := profiles[id]
		ps := ProfileSummary{ID: id, Counts: p.counts}

		reqIDs := make([]string, 0, len(p.reqs))
		for rid := range p.reqs {
			reqIDs = append(reqIDs, rid)
		}
		slices.Sort(reqIDs)
		for _, rid := range reqIDs {
			ps.Requirements = append(ps.Requirements, RequirementSummary{ID: rid, Counts: *p.reqs[rid]})
		}

		if len(p.elapsed) > 0 {
			ps.Timing = timing(p.elapsed)
		}
		r.Profiles = append(r.Profiles, ps)
	}
	return r
}

func timing(samples []time.Duration) *Timing {
	sorted := slices.Clone(samples)
	slices.Sort(sorted)
	return &Timing{
		Count: len(sorted),
		P50:   millis(percentile(sorted, 50)),
		P90:   millis(percentile(sorted, 90)),
		P99:   millis(percentile(sorted, 99)),
		Max:   millis(sorted[len(sorted)-1]),
	}
}

// percentile uses the nearest-rank method over sorted samples.
func percentile(sorted []time.Duration, p float64) time.Duration {
	rank := int(math.Ceil(p * float64(len(sorted)) / 100))
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

// RenderText writes the report in a line-oriented human format.
func RenderText(w io.Writer, r Report) error {
	var err error
	printf := func(format string, args ...any) {
		if err == nil {
			_, err = fmt.Fprintf(w, format, args...)
		}
	}

	printf("run %s: %d assertions (%s)\n", r.RunID, r.Totals.Total(), countsText(r.Totals))
	for _, p := range r.Profiles {
		printf("profile %s: %s\n", p.ID, countsText(p.Counts))
		for _, req := range p.Requirements {
			printf("  requirement %s: %s\n", req.ID, countsText(req.Counts))
		}
		if t := p.Timing; t != nil {
			printf("  timing ms: n=%d p50=%.3f p90=%.3f p99=%.3f max=%.3f\n", t.Count, t.P50, t.P90, t.P99, t.Max)
		}
	}
	for _, d := range r.Discovered {
		printf("discovered %s %s=%s\n", d.TestCaseID, d.Key, valueText(d.Value))
	}
	if r.Conformant() {
		printf("result: CONFORMANT\n")
	} else {
		printf("result: NOT CONFORMANT\n")
	}
	return err
}

// RenderJSON writes the report as indented JSON.
func RenderJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func countsText(c Counts) string {
	return fmt.Sprintf("%d pass, %d fail, %d not supported", c.Pass, c.Fail, c.NotSupported)
}

func valueText(v any) string {
	data, err := instance.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
