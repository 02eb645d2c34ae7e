package tui

import (
	"fmt"
	"strings"
	"time"

	"forkful/types"
)

// View implements tea.Model interface
func (m Model) View() string {
	var b strings.Builder

	// Title
	b.WriteString(TitleStyle.Render("🍴 Forkful Ingestion Demo"))
	b.WriteString("\n\n")

	// Current state
	b.WriteString(m.getStateText())
	b.WriteString("\n\n")

	// Attempt trail
	attempts := m.attemptTrail()
	if len(attempts) > 0 {
		b.WriteString(InfoStyle.Render("📝 Extraction attempts:"))
		b.WriteString("\n")
		for _, a := range attempts {
			b.WriteString(InfoStyle.Render("   " + formatAttempt(a)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	// Result
	if m.State == StateComplete && m.Result != nil && m.Result.Recipe != nil {
		b.WriteString(BoxStyle.Render(formatRecipe(m.Result.Recipe)))
		b.WriteString("\n\n")
	}

	// Help text
	if m.State == StateIdle {
		b.WriteString(InfoStyle.Render("Press 'i' to ingest | Press 'q' or Ctrl+C to quit"))
	} else if m.State == StateSubmitting {
		b.WriteString(InfoStyle.Render("Press 'q' or Ctrl+C to quit"))
	} else {
		b.WriteString(HighlightStyle.Render("Press 'q' or Ctrl+C to exit"))
	}

	return b.String()
}

func (m Model) attemptTrail() []types.ExtractionAttempt {
	if m.Result != nil {
		return m.Result.Attempts
	}
	if m.Failure != nil {
		return m.Failure.Attempts
	}
	return nil
}

func formatAttempt(a types.ExtractionAttempt) string {
	switch a.Status {
	case types.AttemptSucceeded:
		return fmt.Sprintf("%s: succeeded (%.2f confidence, %s)", a.ExtractorID, a.Confidence, a.Latency.Round(time.Millisecond))
	case types.AttemptCached:
		return fmt.Sprintf("%s: served from cache (%.2f confidence)", a.ExtractorID, a.Confidence)
	case types.AttemptTimedOut:
		return fmt.Sprintf("%s: timed out after %s", a.ExtractorID, a.Latency.Round(time.Millisecond))
	default:
		return fmt.Sprintf("%s: failed (%s)", a.ExtractorID, a.FailureKind)
	}
}

func formatRecipe(r *types.CanonicalRecipe) string {
	var b strings.Builder

	b.WriteString(HighlightStyle.Render(r.Title))
	b.WriteString("\n\n")

	if r.Description != "" {
		b.WriteString(InfoStyle.Render(r.Description))
		b.WriteString("\n\n")
	}

	var facts []string
	if r.Servings > 0 {
		facts = append(facts, fmt.Sprintf("Serves %d", r.Servings))
	}
	if r.PrepMinutes > 0 {
		facts = append(facts, fmt.Sprintf("Prep %dm", r.PrepMinutes))
	}
	if r.CookMinutes > 0 {
		facts = append(facts, fmt.Sprintf("Cook %dm", r.CookMinutes))
	}
	if r.TotalMinutes > 0 {
		facts = append(facts, fmt.Sprintf("Total %dm", r.TotalMinutes))
	}
	if len(facts) > 0 {
		b.WriteString(StatusStyle.Render(strings.Join(facts, " | ")))
		b.WriteString("\n\n")
	}

	b.WriteString(fmt.Sprintf("Ingredients (%d):\n", len(r.Ingredients)))
	for _, ing := range r.Ingredients {
		b.WriteString("  - " + formatIngredient(ing) + "\n")
	}
	b.WriteString("\n")

	b.WriteString(fmt.Sprintf("Steps (%d):\n", len(r.Steps)))
	for i, step := range r.Steps {
		b.WriteString(fmt.Sprintf("  %d. %s\n", i+1, step))
	}

	if prov, ok := r.Provenance[types.FieldTitle]; ok {
		b.WriteString("\n")
		b.WriteString(InfoStyle.Render(fmt.Sprintf("Title via %s (%.2f confidence)", prov.Extractor, prov.Confidence)))
	}

	return b.String()
}

func formatIngredient(ing types.Ingredient) string {
	parts := make([]string, 0, 3)
	if ing.Quantity != "" {
		parts = append(parts, ing.Quantity)
	}
	if ing.Unit != "" {
		parts = append(parts, ing.Unit)
	}
	parts = append(parts, ing.Name)
	return strings.Join(parts, " ")
}
