package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const recordColumns = `
	r.id, r.picklist_id, r.success, r.quotation_id, r.quotation_number, r.error_message, r.converted_at,
	EXISTS (SELECT 1 FROM archived_picklists a WHERE a.pick_list_id = r.picklist_id)`

// IsConverted reports whether a success record exists for picklistID.
func (s *Store) IsConverted(ctx context.Context, picklistID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM conversion_records WHERE picklist_id = ? AND success = 1)`,
		picklistID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check converted: %w", err)
	}
	return exists, nil
}

// ConvertedPicklistIDs returns every picklist id with a success record.
func (s *Store) ConvertedPicklistIDs(ctx context.Context) (map[int64]bool, error) {
	return s.idSet(ctx, `SELECT picklist_id FROM conversion_records WHERE success = 1`, "list converted")
}

// Record appends the outcome of one attempt. A second success for the same
// picklist returns ErrAlreadyConverted and writes nothing.
func (s *Store) Record(ctx context.Context, rec NewRecord) (Record, error) {
	now := time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO conversion_records
			(picklist_id, success, quotation_id, quotation_number, error_message, converted_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.PicklistID, rec.Success, rec.QuotationID, rec.QuotationNumber, rec.ErrorMessage, now,
	)
	if err != nil {
		if rec.Success && isUniqueViolation(err) {
			return Record{}, ErrAlreadyConverted
		}
		return Record{}, fmt.Errorf("insert conversion record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return Record{}, fmt.Errorf("insert conversion record: %w", err)
	}

	return Record{
		ID:              id,
		PicklistID:      rec.PicklistID,
		Success:         rec.Success,
		QuotationID:     rec.QuotationID,
		QuotationNumber: rec.QuotationNumber,
		ErrorMessage:    rec.ErrorMessage,
		ConvertedAt:     now,
	}, nil
}

// Query returns records newest first plus the total matching count.
func (s *Store) Query(ctx context.Context, filter Filter, limit, offset int) ([]Record, int, error) {
	where, args := filterClause(filter)

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM conversion_records r`+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count conversion records: %w", err)
	}

	query := `SELECT` + recordColumns + ` FROM conversion_records r` + where +
		` ORDER BY r.converted_at DESC, r.id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query conversion records: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0, limit)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan conversion record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate conversion records: %w", err)
	}

	return records, total, nil
}

// Delete removes the given records. A deleted success makes its picklist
// eligible for conversion again.
func (s *Store) Delete(ctx context.Context, recordIDs []int64) (int64, error) {
	if len(recordIDs) == 0 {
		return 0, nil
	}

	placeholders, args := inClause(recordIDs)
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM conversion_records WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("delete conversion records: %w", err)
	}
	return result.RowsAffected()
}

// DeleteAllFailed purges every failure record.
func (s *Store) DeleteAllFailed(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM conversion_records WHERE success = 0`)
	if err != nil {
		return 0, fmt.Errorf("delete failed records: %w", err)
	}
	return result.RowsAffected()
}

// Stats counts success and failure records.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN success = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END), 0)
		FROM conversion_records`,
	).Scan(&stats.TotalConverted, &stats.TotalFailed)
	if err != nil {
		return Stats{}, fmt.Errorf("conversion stats: %w", err)
	}
	stats.TotalAttempts = stats.TotalConverted + stats.TotalFailed
	return stats, nil
}

func filterClause(filter Filter) (string, []interface{}) {
	clauses := make([]string, 0, 2)
	args := make([]interface{}, 0, 2)

	switch filter.Status {
	case StatusSuccess:
		clauses = append(clauses, "r.success = 1")
	case StatusFailed:
		clauses = append(clauses, "r.success = 0")
	}
	if filter.PicklistID != 0 {
		clauses = append(clauses, "r.picklist_id = ?")
		args = append(args, filter.PicklistID)
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		rec             Record
		quotationID     sql.NullInt64
		quotationNumber sql.NullString
		errorMessage    sql.NullString
	)
	if err := row.Scan(
		&rec.ID, &rec.PicklistID, &rec.Success, &quotationID, &quotationNumber,
		&errorMessage, &rec.ConvertedAt, &rec.Archived,
	); err != nil {
		return Record{}, err
	}

	if quotationID.Valid {
		v := quotationID.Int64
		rec.QuotationID = &v
	}
	if quotationNumber.Valid {
		v := quotationNumber.String
		rec.QuotationNumber = &v
	}
	if errorMessage.Valid {
		v := errorMessage.String
		rec.ErrorMessage = &v
	}
	return rec, nil
}

func inClause(ids []int64) (string, []interface{}) {
	marks := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		marks[i] = "?"
		args[i] = id
	}
	return strings.Join(marks, ","), args
}

func (s *Store) idSet(ctx context.Context, query, op string) (map[int64]bool, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	ids := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ids[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ids, nil
}
