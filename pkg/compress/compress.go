// Package compress renders a ranked set of memory records into a
// character-bounded context block.
//
// The deterministic path is the contract: a fixed-structure block
// whose truncation only ever drops whole trailing lines. Remote
// shaping is an optional enhancement layered on top; any failure there
// degrades back to the deterministic block.
package compress

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/engramkit/engram/pkg/log"
	"github.com/engramkit/engram/pkg/mem"
	"github.com/engramkit/engram/pkg/search"
	"github.com/engramkit/engram/pkg/shaping"
)

// BudgetFloor is the minimum character budget. Smaller requests are
// clamped up to avoid degenerate output.
const BudgetFloor = 200

// DefaultLimit caps how many hits are considered for the block.
const DefaultLimit = 25

// Result is the outcome of a compression.
type Result struct {
	// Text is the rendered block, never longer than the effective budget.
	Text string `json:"text"`

	// IncludedHits is the full ranked set the block was built from,
	// independent of how many lines survived truncation. Callers use it
	// to tell "nothing matched" apart from "nothing fit".
	IncludedHits []search.Hit `json:"includedHits"`

	// BudgetRequested is the effective budget after the floor clamp.
	BudgetRequested int `json:"budgetRequested"`

	// CharsUsed is the byte length of Text.
	CharsUsed int `json:"charsUsed"`

	// Shaped reports whether a remote collaborator produced Text.
	Shaped bool `json:"shaped"`

	// Note annotates degraded results, such as a shaping fallback.
	Note string `json:"note,omitempty"`
}

// Deterministic compresses the records matching query into a block of
// at most budget bytes. Pure given now: same records, query, budget,
// limit, and clock always yield the same block.
func Deterministic(records []mem.MemoryRecord, query string, budget, limit int, now time.Time) Result {
	if budget < BudgetFloor {
		budget = BudgetFloor
	}
	if limit < 1 {
		limit = DefaultLimit
	}

	hits := search.Search(records, query, limit, now)
	text := renderWithinBudget(query, hits, budget)

	return Result{
		Text:            text,
		IncludedHits:    hits,
		BudgetRequested: budget,
		CharsUsed:       len(text),
	}
}

// WithShaping compresses deterministically and then asks the remote
// collaborator to tighten the block. The deterministic result is the
// fallback on every failure path, so callers always get usable text.
// An overflowing collaborator response is truncated to the budget.
func WithShaping(ctx context.Context, shaper shaping.Shaper, records []mem.MemoryRecord, query string, budget, limit int, now time.Time) Result {
	result := Deterministic(records, query, budget, limit, now)
	if shaper == nil || len(result.IncludedHits) == 0 {
		return result
	}

	shaped, err := shaper.Shape(ctx, query, result.Text, result.BudgetRequested)
	if err != nil {
		log.WarnContext(ctx, "Remote shaping failed, returning deterministic block", "error", err)
		result.Note = fmt.Sprintf("shaping unavailable (%v), deterministic output", err)
		return result
	}

	shaped = strings.TrimSpace(shaped)
	if shaped == "" {
		result.Note = "shaping returned empty text, deterministic output"
		return result
	}

	if len(shaped) > result.BudgetRequested {
		log.DebugContext(ctx, "Shaped block overflowed budget, truncating",
			"shaped_length", len(shaped),
			"budget", result.BudgetRequested,
		)
		shaped = truncateToBudget(shaped, result.BudgetRequested)
	}

	result.Text = shaped
	result.CharsUsed = len(shaped)
	result.Shaped = true
	return result
}

// renderWithinBudget renders the fixed block structure: a title line,
// a blank line, a section header, then one line per hit. If the full
// block overflows the budget it is rebuilt line by line, each line
// costing its length plus one separator, stopping at the first line
// that would not fit. Lines are never cut mid-way.
func renderWithinBudget(query string, hits []search.Hit, budget int) string {
	lines := make([]string, 0, len(hits)+3)
	lines = append(lines, "Memory context", "", headerLine(query))
	for _, hit := range hits {
		lines = append(lines, hitLine(hit.Record))
	}

	full := joinLines(lines)
	if len(full) <= budget {
		return full
	}

	used := 0
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		cost := len(line) + 1
		if used+cost > budget {
			break
		}
		kept = append(kept, line)
		used += cost
	}
	if len(kept) == 0 {
		return ""
	}
	return joinLines(kept)
}

func headerLine(query string) string {
	q := flatten(query)
	if q == "" {
		return "Relevant memories:"
	}
	return "Relevant memories for: " + q
}

// hitLine renders one record as `- (id) [tag,tag] text`. Whitespace
// runs inside the text are flattened so every hit stays on one line.
func hitLine(record mem.MemoryRecord) string {
	return fmt.Sprintf("- (%s) [%s] %s", record.ID, strings.Join(record.Tags, ","), flatten(record.Text))
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n") + "\n"
}

func flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncateToBudget cuts s to at most budget bytes without splitting a
// UTF-8 sequence.
func truncateToBudget(s string, budget int) string {
	if len(s) <= budget {
		return s
	}
	for budget > 0 && !utf8.RuneStart(s[budget]) {
		budget--
	}
	return s[:budget]
}
