package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/po-digitizer/constants"
	"github.com/joseph-ayodele/po-digitizer/internal/common"
	"github.com/joseph-ayodele/po-digitizer/internal/entity"
)

// sqlite stores times as fixed-width text so they sort lexically.
const textTimeLayout = "2006-01-02T15:04:05.000000000Z"

var resultColumns = []string{
	"id", "filename", "layout_signature", "vendor_guess", "totals_status",
	"status", "result_json", "created_at", "updated_at",
}

type ResultRepository interface {
	// Save stores a structured document. A second run of the same file with
	// the same layout signature replaces the earlier result in place; the
	// returned bool reports that.
	Save(ctx context.Context, doc *entity.Document, resultJSON []byte) (*entity.StoredResult, bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.StoredResult, error)
	ListByFilename(ctx context.Context, filename string, limit int) ([]*entity.StoredResult, error)
	SaveCorrection(ctx context.Context, resultID uuid.UUID, corrected map[string]any) (*entity.Correction, error)
	ListCorrections(ctx context.Context, resultID uuid.UUID) ([]*entity.Correction, error)
}

type resultRepo struct {
	db     *DB
	logger *slog.Logger
	now    func() time.Time
}

func NewResultRepository(db *DB, logger *slog.Logger) ResultRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &resultRepo{db: db, logger: logger, now: time.Now}
}

func (r *resultRepo) builder() *entsql.DialectBuilder {
	return entsql.Dialect(r.db.Dialect())
}

func (r *resultRepo) timeArg(t time.Time) any {
	if r.db.Dialect() == dialect.Postgres {
		return t.UTC()
	}
	return t.UTC().Format(textTimeLayout)
}

func (r *resultRepo) Save(ctx context.Context, doc *entity.Document, resultJSON []byte) (*entity.StoredResult, bool, error) {
	var signature string
	var vendor *string
	if doc.Fingerprint != nil {
		signature = doc.Fingerprint.LayoutSignature
		vendor = doc.Fingerprint.VendorGuess
	}
	totals := totalsStatus(doc)
	now := r.now()

	existing, err := r.findBySignature(ctx, doc.Filename, signature)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, false, err
	}
	if existing != nil {
		query, args := r.builder().Update(tableResults).
			Set("vendor_guess", nullable(vendor)).
			Set("totals_status", nullable(totals)).
			Set("status", string(constants.JobStatusStructured)).
			Set("result_json", string(resultJSON)).
			Set("updated_at", r.timeArg(now)).
			Where(entsql.EQ("id", existing.ID.String())).
			Query()
		if _, err := r.db.Driver.DB().ExecContext(ctx, query, args...); err != nil {
			r.logger.Error("result update failed", "result_id", existing.ID, "error", err)
			return nil, false, common.NewAppError("DB_ERROR", "update result", errors.Join(common.ErrDatabase, err))
		}
		existing.VendorGuess = vendor
		existing.TotalsStatus = totals
		existing.Status = string(constants.JobStatusStructured)
		existing.ResultJSON = json.RawMessage(resultJSON)
		existing.UpdatedAt = now.UTC()
		r.logger.Info("result replaced", "result_id", existing.ID, "filename", doc.Filename)
		return existing, true, nil
	}

	id := doc.RunID
	if id == uuid.Nil {
		id = uuid.New()
	}
	query, args := r.builder().Insert(tableResults).
		Columns(resultColumns...).
		Values(id.String(), doc.Filename, signature, nullable(vendor), nullable(totals),
			string(constants.JobStatusStructured), string(resultJSON), r.timeArg(now), r.timeArg(now)).
		Query()
	if _, err := r.db.Driver.DB().ExecContext(ctx, query, args...); err != nil {
		r.logger.Error("result insert failed", "filename", doc.Filename, "error", err)
		return nil, false, common.NewAppError("DB_ERROR", "insert result", errors.Join(common.ErrDatabase, err))
	}
	r.logger.Info("result stored", "result_id", id, "filename", doc.Filename, "layout_signature", signature)
	return &entity.StoredResult{
		ID:              id,
		Filename:        doc.Filename,
		LayoutSignature: signature,
		VendorGuess:     vendor,
		TotalsStatus:    totals,
		Status:          string(constants.JobStatusStructured),
		ResultJSON:      json.RawMessage(resultJSON),
		CreatedAt:       now.UTC(),
		UpdatedAt:       now.UTC(),
	}, false, nil
}

func (r *resultRepo) findBySignature(ctx context.Context, filename, signature string) (*entity.StoredResult, error) {
	query, args := r.builder().Select(resultColumns...).
		From(entsql.Table(tableResults)).
		Where(entsql.And(
			entsql.EQ("filename", filename),
			entsql.EQ("layout_signature", signature),
		)).
		Query()
	return r.queryOne(ctx, query, args)
}

func (r *resultRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.StoredResult, error) {
	query, args := r.builder().Select(resultColumns...).
		From(entsql.Table(tableResults)).
		Where(entsql.EQ("id", id.String())).
		Query()
	res, err := r.queryOne(ctx, query, args)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		r.logger.Error("result lookup failed", "result_id", id, "error", err)
	}
	return res, err
}

func (r *resultRepo) ListByFilename(ctx context.Context, filename string, limit int) ([]*entity.StoredResult, error) {
	sel := r.builder().Select(resultColumns...).
		From(entsql.Table(tableResults)).
		Where(entsql.EQ("filename", filename)).
		OrderBy(entsql.Desc("created_at"), entsql.Asc("id"))
	if limit > 0 {
		sel = sel.Limit(limit)
	}
	query, args := sel.Query()
	rows, err := r.db.Driver.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, common.NewAppError("DB_ERROR", "list results", errors.Join(common.ErrDatabase, err))
	}
	defer rows.Close()

	var out []*entity.StoredResult
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (r *resultRepo) queryOne(ctx context.Context, query string, args []any) (*entity.StoredResult, error) {
	rows, err := r.db.Driver.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, common.NewAppError("DB_ERROR", "query result", errors.Join(common.ErrDatabase, err))
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, common.ErrNotFound
	}
	return scanResult(rows)
}

func scanResult(rows *sql.Rows) (*entity.StoredResult, error) {
	var (
		res              entity.StoredResult
		id               string
		vendor, totals   sql.NullString
		body             []byte
		created, updated dbTime
	)
	if err := rows.Scan(&id, &res.Filename, &res.LayoutSignature, &vendor, &totals,
		&res.Status, &body, &created, &updated); err != nil {
		return nil, fmt.Errorf("scan result: %w", err)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("scan result id %q: %w", id, err)
	}
	res.ID = parsed
	if vendor.Valid {
		res.VendorGuess = &vendor.String
	}
	if totals.Valid {
		res.TotalsStatus = &totals.String
	}
	res.ResultJSON = json.RawMessage(body)
	res.CreatedAt = time.Time(created)
	res.UpdatedAt = time.Time(updated)
	return &res, nil
}

// SaveCorrection records a reviewer's corrected field values against a
// stored result and marks the result corrected. Changed fields are the
// corrected keys whose value differs from the stored normalization.
func (r *resultRepo) SaveCorrection(ctx context.Context, resultID uuid.UUID, corrected map[string]any) (*entity.Correction, error) {
	stored, err := r.GetByID(ctx, resultID)
	if err != nil {
		return nil, err
	}
	original, err := OriginalFields(stored.ResultJSON)
	if err != nil {
		return nil, common.NewAppError("CORRUPT_RESULT", "stored result is not a document", err)
	}
	changed := ChangedFields(original, corrected)

	body, err := json.Marshal(corrected)
	if err != nil {
		return nil, common.NewAppError("INVALID_CORRECTION", "correction is not serializable", errors.Join(common.ErrInvalidInput, err))
	}
	changedJSON, _ := json.Marshal(changed)
	now := r.now()
	corr := &entity.Correction{
		ID:            uuid.New(),
		ResultID:      resultID,
		Corrected:     body,
		ChangedFields: changed,
		CreatedAt:     now.UTC(),
	}

	tx, err := r.db.Driver.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, common.NewAppError("DB_ERROR", "begin correction", errors.Join(common.ErrDatabase, err))
	}
	defer func() { _ = tx.Rollback() }()

	insert, args := r.builder().Insert(tableCorrections).
		Columns("id", "result_id", "corrected_json", "changed_fields", "created_at").
		Values(corr.ID.String(), resultID.String(), string(body), string(changedJSON), r.timeArg(now)).
		Query()
	if _, err := tx.ExecContext(ctx, insert, args...); err != nil {
		r.logger.Error("correction insert failed", "result_id", resultID, "error", err)
		return nil, common.NewAppError("DB_ERROR", "insert correction", errors.Join(common.ErrDatabase, err))
	}
	update, args := r.builder().Update(tableResults).
		Set("status", string(constants.JobStatusCorrected)).
		Set("updated_at", r.timeArg(now)).
		Where(entsql.EQ("id", resultID.String())).
		Query()
	if _, err := tx.ExecContext(ctx, update, args...); err != nil {
		return nil, common.NewAppError("DB_ERROR", "mark result corrected", errors.Join(common.ErrDatabase, err))
	}
	if err := tx.Commit(); err != nil {
		return nil, common.NewAppError("DB_ERROR", "commit correction", errors.Join(common.ErrDatabase, err))
	}
	r.logger.Info("correction stored", "result_id", resultID, "changed_fields", changed)
	return corr, nil
}

func (r *resultRepo) ListCorrections(ctx context.Context, resultID uuid.UUID) ([]*entity.Correction, error) {
	query, args := r.builder().Select("id", "result_id", "corrected_json", "changed_fields", "created_at").
		From(entsql.Table(tableCorrections)).
		Where(entsql.EQ("result_id", resultID.String())).
		OrderBy(entsql.Asc("created_at"), entsql.Asc("id")).
		Query()
	rows, err := r.db.Driver.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, common.NewAppError("DB_ERROR", "list corrections", errors.Join(common.ErrDatabase, err))
	}
	defer rows.Close()

	var out []*entity.Correction
	for rows.Next() {
		var (
			id, rid       string
			body, changed []byte
			created       dbTime
		)
		if err := rows.Scan(&id, &rid, &body, &changed, &created); err != nil {
			return nil, fmt.Errorf("scan correction: %w", err)
		}
		c := &entity.Correction{Corrected: body, CreatedAt: time.Time(created)}
		if c.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("scan correction id %q: %w", id, err)
		}
		if c.ResultID, err = uuid.Parse(rid); err != nil {
			return nil, fmt.Errorf("scan correction result id %q: %w", rid, err)
		}
		if err := json.Unmarshal(changed, &c.ChangedFields); err != nil {
			return nil, fmt.Errorf("decode changed fields: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// OriginalFields flattens the reviewable values of a stored document:
// every normalized field, the currency code and the grand total.
func OriginalFields(resultJSON []byte) (map[string]any, error) {
	var doc entity.Document
	if err := json.Unmarshal(resultJSON, &doc); err != nil {
		return nil, err
	}
	out := map[string]any{}
	if doc.Normalized == nil {
		return out, nil
	}
	for name, v := range doc.Normalized.Fields {
		out[name] = valueOf(v)
	}
	if doc.Normalized.Currency != nil {
		out["currency"] = valueOf(doc.Normalized.Currency)
	}
	return out, nil
}

func valueOf(v *entity.NormalizedValue) any {
	if v == nil {
		return nil
	}
	if v.Normalized != nil {
		return *v.Normalized
	}
	if v.Raw != nil {
		return *v.Raw
	}
	return nil
}

// ChangedFields lists, sorted, the corrected keys whose value differs from
// the original. Values are compared after a JSON round trip so 5 and 5.0
// match.
func ChangedFields(original, corrected map[string]any) []string {
	changed := make([]string, 0, len(corrected))
	for k, v := range corrected {
		if !reflect.DeepEqual(jsonValue(original[k]), jsonValue(v)) {
			changed = append(changed, k)
		}
	}
	sort.Strings(changed)
	return changed
}

func jsonValue(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}

func totalsStatus(doc *entity.Document) *string {
	if doc.Normalized == nil || doc.Normalized.Totals == nil {
		return nil
	}
	s := string(doc.Normalized.Totals.Status)
	return &s
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// dbTime scans timestamps stored natively or as text.
type dbTime time.Time

func (t *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*t = dbTime(v.UTC())
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case nil:
		*t = dbTime(time.Time{})
		return nil
	default:
		return fmt.Errorf("unsupported time value %T", src)
	}
}

func (t *dbTime) parse(s string) error {
	for _, layout := range []string{textTimeLayout, time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00"} {
		if parsed, err := time.Parse(layout, s); err == nil {
			*t = dbTime(parsed.UTC())
			return nil
		}
	}
	return fmt.Errorf("unparseable time %q", s)
}
