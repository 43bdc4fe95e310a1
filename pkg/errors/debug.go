package errors

import (
	stdErrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ErrorDump is a log-friendly breakdown of an error chain, including the
// Postgres diagnostics when either driver surfaced them.
type ErrorDump struct {
	TopMessage string   `json:"top_message"`
	Code       Code     `json:"code,omitempty"`
	Chain      []string `json:"chain,omitempty"`

	PGCode       string `json:"pg_code,omitempty"`
	PGConstraint string `json:"pg_constraint,omitempty"`
	PGTable      string `json:"pg_table,omitempty"`
	PGColumn     string `json:"pg_column,omitempty"`
	PGDetail     string `json:"pg_detail,omitempty"`
	PGMessage    string `json:"pg_message,omitempty"`
}

func Dump(err error) ErrorDump {
	var d ErrorDump
	if err == nil {
		return d
	}
	d.TopMessage = err.Error()
	if typed := As(err); typed != nil {
		d.Code = typed.code
	}
	for cur := err; cur != nil; cur = stdErrors.Unwrap(cur) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", cur, cur))
	}

	// gorm's postgres driver surfaces pgconn errors; goose migrations run over lib/pq.
	if pgErr := (*pgconn.PgError)(nil); stdErrors.As(err, &pgErr) {
		d.setPG(pgErr.Code, pgErr.ConstraintName, pgErr.TableName, pgErr.ColumnName, pgErr.Detail, pgErr.Message)
	} else if pqErr := (*pq.Error)(nil); stdErrors.As(err, &pqErr) {
		d.setPG(string(pqErr.Code), pqErr.Constraint, pqErr.Table, pqErr.Column, pqErr.Detail, pqErr.Message)
	}
	return d
}

func (d *ErrorDump) setPG(code, constraint, table, column, detail, message string) {
	d.PGCode = code
	d.PGConstraint = constraint
	d.PGTable = table
	d.PGColumn = column
	d.PGDetail = detail
	d.PGMessage = message
}

// Fields flattens the dump into structured log fields, omitting empty Postgres details.
func (d ErrorDump) Fields() map[string]any {
	out := map[string]any{
		"error":       d.TopMessage,
		"error_code":  d.Code,
		"error_chain": d.Chain,
	}
	if d.PGCode != "" {
		for k, v := range map[string]string{
			"pg_code":       d.PGCode,
			"pg_detail":     d.PGDetail,
			"pg_message":    d.PGMessage,
			"pg_table":      d.PGTable,
			"pg_column":     d.PGColumn,
			"pg_constraint": d.PGConstraint,
		} {
			out[k] = v
		}
	}
	return out
}
