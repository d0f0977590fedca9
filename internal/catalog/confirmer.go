package catalog

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"djia-agent/internal/common/genai"
)

// Confirmer asks the language model to pick the single catalog statement
// that fits a question exactly, as a second opinion when the rule cascade
// finds nothing. It answers "FOUND: n" or "NO_MATCH".
type Confirmer struct {
	client  genai.Client
	catalog *Catalog
}

func NewConfirmer(client genai.Client, c *Catalog) *Confirmer {
	return &Confirmer{client: client, catalog: c}
}

const confirmInstructions = `You are the SQL expert of a financial question answering system. From the numbered list of SQL statements below, pick EXACTLY the one that fits the question.

MANDATORY RULES:
- Only pick a statement if its structure, SELECT fields, WHERE conditions and parameters (:ticker, :date, ...) fully match the question.
- If the question compares two companies, the statement must use :ticker_a/:ticker_b or equivalent logic.
- Day filters must use date = CAST(:date AS DATE); year filters must use TO_CHAR(date, 'YYYY') = :year.
- Never pick a statement that is merely close.

ANSWER FORMAT:
- If a statement fits, answer: FOUND: n (n is the 1-based index in the list).
- If none fits completely, answer: NO_MATCH.

Answer only FOUND: n or NO_MATCH.`

// Confirm returns the chosen statement or "" when the model declines or
// answers out of range. Errors from the model are returned as-is so callers
// can fall through to synthesis.
func (cf *Confirmer) Confirm(ctx context.Context, question string) (string, error) {
	statements := cf.catalog.Statements()
	if len(statements) == 0 {
		return "", nil
	}

	var list strings.Builder
	for i, s := range statements {
		fmt.Fprintf(&list, "%d. %s\n", i+1, s)
	}

	prompt := fmt.Sprintf("%s\n\nQUESTION: %s\n\nSTATEMENTS:\n%s", confirmInstructions, question, list.String())

	answer, err := cf.client.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}

	answer = strings.TrimSpace(answer)
	if !strings.HasPrefix(answer, "FOUND:") {
		return "", nil
	}
	idxStr := strings.TrimSpace(strings.TrimPrefix(answer, "FOUND:"))
	idx, err := strconv.Atoi(idxStr)
	if err != nil || idx < 1 || idx > len(statements) {
		return "", nil
	}
	return statements[idx-1], nil
}
