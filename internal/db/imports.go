package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ResolveLatestSurveyDBName returns the db_name with the most recent imported_at
// from public.survey_imports where survey_name or db_name ILIKE '%survey%'.
func ResolveLatestSurveyDBName(ctx context.Context, meta *sql.DB, survey string) (string, error) {
	survey = strings.TrimSpace(survey)
	if survey == "" {
		return "", fmt.Errorf("survey is required")
	}
	// Fully qualified to the public schema (assumes we are connected to the 'postgres' database)
	q := `
SELECT db_name
FROM public.survey_imports
WHERE survey_name ILIKE '%' || $1 || '%' OR db_name ILIKE '%' || $1 || '%'
ORDER BY imported_at DESC
LIMIT 1`
	var dbName sql.NullString
	if err := meta.QueryRowContext(ctx, q, survey).Scan(&dbName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("no database found for survey like %q", survey)
		}
		return "", fmt.Errorf("query survey_imports: %w", err)
	}
	if !dbName.Valid || dbName.String == "" {
		return "", fmt.Errorf("empty db_name for survey like %q", survey)
	}
	return dbName.String, nil
}
