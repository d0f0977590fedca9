package sqlexec

import (
	"context"
	"database/sql"
	"time"

	"djia-agent/internal/models"
)

// Logger captures the logging surface the executor needs.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

// Executor runs parameterized statements and materializes the rows into a
// ResultSet the rest of the pipeline can serialize.
type Executor struct {
	db     *sql.DB
	logger Logger
}

func NewExecutor(db *sql.DB, logger Logger) *Executor {
	return &Executor{db: db, logger: logger}
}

// Execute binds params into the statement, runs it and returns the result
// along with the display form of the SQL. On failure the display form is
// still returned so the error surface can show what was attempted.
func (e *Executor) Execute(ctx context.Context, sqlText string, params models.EntityBindings) (*models.ResultSet, string, error) {
	display := DisplaySQL(sqlText, params)

	query, args, err := Rebind(sqlText, params)
	if err != nil {
		return nil, display, err
	}

	start := time.Now()
	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		e.logger.Warn("query failed", map[string]interface{}{
			"error":    err.Error(),
			"duration": time.Since(start).String(),
		})
		return nil, display, err
	}
	defer rows.Close()

	result, err := scanRows(rows)
	if err != nil {
		return nil, display, err
	}

	e.logger.Debug("query executed", map[string]interface{}{
		"rows":     len(result.Rows),
		"duration": time.Since(start).String(),
	})
	return result, display, nil
}

func scanRows(rows *sql.Rows) (*models.ResultSet, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := &models.ResultSet{Columns: columns}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			row[col] = normalizeValue(values[i])
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Driver byte slices and timestamps become JSON friendly values.
func normalizeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case time.Time:
		return t.Format("2006-01-02")
	default:
		return v
	}
}
