package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/debt-dashboard/backend/internal/models"
)

// duckBatchSize is the number of rows per appender flush.
const duckBatchSize = 10000

// DuckStore keeps the prepared rows in a temporary DuckDB file and
// answers queries with SQL. Used for datasets large enough that a full
// in-memory scan per interaction is no longer comfortable.
type DuckStore struct {
	db     *sql.DB
	dbPath string
	count  int
	log    *zap.Logger
}

// NewDuckStore creates a DuckDB-backed store under tempDir and bulk-loads
// the prepared rows through the appender API.
func NewDuckStore(tempDir, snapshotID string, contracts []models.Contract, log *zap.Logger) (*DuckStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	dbPath := filepath.Join(tempDir, fmt.Sprintf("snapshot_%s.duckdb", snapshotID))

	connector, err := duckdb.NewConnector(dbPath, func(execer driver.ExecerContext) error {
		pragmas := []string{
			"PRAGMA memory_limit='512MB'",
			"PRAGMA threads=2",
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)

	_, err = db.Exec(`
		CREATE TABLE contracts (
			id            INTEGER PRIMARY KEY,
			contract_id   VARCHAR NOT NULL,
			partner       VARCHAR NOT NULL,
			bank          VARCHAR NOT NULL,
			contract_type VARCHAR NOT NULL,
			status        VARCHAR,
			region        VARCHAR,
			signed_ts     BIGINT,
			signed_year   INTEGER,
			maturity_ts   BIGINT,
			total_value   DOUBLE NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		os.Remove(dbPath)
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	ds := &DuckStore{db: db, dbPath: dbPath, log: log}
	if err := ds.loadRows(contracts); err != nil {
		ds.Close()
		return nil, err
	}

	// Index after the bulk load; creating it earlier slows the appender.
	if _, err := db.Exec("CREATE INDEX idx_signed ON contracts(signed_ts)"); err != nil {
		log.Warn("signed_ts index creation failed", zap.Error(err))
	}

	log.Info("duckdb store ready",
		zap.String("path", dbPath),
		zap.Int("rows", ds.count))
	return ds, nil
}

func (ds *DuckStore) loadRows(contracts []models.Contract) error {
	conn, err := ds.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}
	defer conn.Close()

	return conn.Raw(func(driverConn interface{}) error {
		dConn, ok := driverConn.(driver.Conn)
		if !ok {
			return fmt.Errorf("failed to cast to duckdb.Conn")
		}

		appender, err := duckdb.NewAppenderFromConn(dConn, "", "contracts")
		if err != nil {
			return fmt.Errorf("failed to create appender: %w", err)
		}
		defer appender.Close()

		for i := range contracts {
			c := &contracts[i]

			var signedTs, maturityTs any
			var signedYear any
			if c.SignedDate != nil {
				signedTs = c.SignedDate.Truncate(24 * time.Hour).UnixMilli()
				signedYear = int32(c.SignedDate.Year())
			}
			if c.MaturityDate != nil {
				maturityTs = c.MaturityDate.Truncate(24 * time.Hour).UnixMilli()
			}

			err := appender.AppendRow(
				int32(i),
				c.ID,
				c.Partner,
				c.Bank,
				c.ContractType,
				c.Status,
				c.Region,
				signedTs,
				signedYear,
				maturityTs,
				c.TotalValue,
			)
			if err != nil {
				return fmt.Errorf("failed to append row %d: %w", i, err)
			}
			ds.count++

			if ds.count%duckBatchSize == 0 {
				if err := appender.Flush(); err != nil {
					return fmt.Errorf("appender flush failed: %w", err)
				}
			}
		}

		return appender.Flush()
	})
}

func (ds *DuckStore) Len() int { return ds.count }

// Close releases the database and removes the backing file.
func (ds *DuckStore) Close() error {
	err := ds.db.Close()
	os.Remove(ds.dbPath)
	return err
}

// columnToSQL maps recognized filter columns to table columns.
var columnToSQL = map[string]string{
	models.ColumnPartner:      "partner",
	models.ColumnBank:         "bank",
	models.ColumnContractType: "contract_type",
	models.ColumnStatus:       "status",
	models.ColumnRegion:       "region",
}

// buildWhere translates a FilterSpec into a WHERE clause. Category
// matching folds both sides, mirroring the in-memory backend.
func buildWhere(spec *models.FilterSpec) (string, []any) {
	if spec.IsUnrestricted() {
		return "", nil
	}

	var conds []string
	var args []any

	for _, column := range models.RecognizedColumns {
		keys := spec.CategoryKeys(column)
		if keys == nil {
			continue
		}
		placeholders := make([]string, 0, len(keys))
		for k := range keys {
			placeholders = append(placeholders, "?")
			args = append(args, k)
		}
		conds = append(conds, fmt.Sprintf("lower(%s) IN (%s)",
			columnToSQL[column], strings.Join(placeholders, ",")))
	}

	if spec.DateFrom != nil {
		conds = append(conds, "signed_ts IS NOT NULL AND signed_ts >= ?")
		args = append(args, spec.DateFrom.Truncate(24*time.Hour).UnixMilli())
	}
	if spec.DateTo != nil {
		conds = append(conds, "signed_ts IS NOT NULL AND signed_ts <= ?")
		args = append(args, spec.DateTo.Truncate(24*time.Hour).UnixMilli())
	}
	if len(spec.Years) > 0 {
		placeholders := make([]string, 0, len(spec.Years))
		for _, y := range spec.Years {
			placeholders = append(placeholders, "?")
			args = append(args, y)
		}
		conds = append(conds, fmt.Sprintf("signed_year IN (%s)", strings.Join(placeholders, ",")))
	}

	return strings.Join(conds, " AND "), args
}

// Contracts returns one page of filtered rows ordered by load position.
func (ds *DuckStore) Contracts(ctx context.Context, spec *models.FilterSpec, page, pageSize int) ([]models.Contract, int, error) {
	where, args := buildWhere(spec)

	countQuery := "SELECT COUNT(*) FROM contracts"
	if where != "" {
		countQuery += " WHERE " + where
	}
	var total int
	if err := ds.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count query failed: %w", err)
	}
	if total == 0 {
		return []models.Contract{}, 0, nil
	}

	offset := (page - 1) * pageSize
	if offset < 0 {
		offset = 0
	}

	query := `SELECT contract_id, partner, bank, contract_type, status, region,
		signed_ts, maturity_ts, total_value FROM contracts`
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY id LIMIT ? OFFSET ?"
	rows, err := ds.db.QueryContext(ctx, query, append(args, pageSize, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("contracts query failed: %w", err)
	}
	defer rows.Close()

	contracts := make([]models.Contract, 0, pageSize)
	for rows.Next() {
		var c models.Contract
		var status, region sql.NullString
		var signedTs, maturityTs sql.NullInt64
		if err := rows.Scan(&c.ID, &c.Partner, &c.Bank, &c.ContractType,
			&status, &region, &signedTs, &maturityTs, &c.TotalValue); err != nil {
			return nil, 0, fmt.Errorf("row scan failed: %w", err)
		}
		c.Status = status.String
		c.Region = region.String
		c.SignedDate = msToTime(signedTs)
		c.MaturityDate = msToTime(maturityTs)
		contracts = append(contracts, c)
	}
	return contracts, total, rows.Err()
}

func msToTime(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64).UTC()
	return &t
}

// Summary computes the aggregates in SQL.
func (ds *DuckStore) Summary(ctx context.Context, spec *models.FilterSpec) (*models.Summary, error) {
	where, args := buildWhere(spec)
	suffix := ""
	if where != "" {
		suffix = " WHERE " + where
	}

	sum := &models.Summary{
		ByBank:           []models.GroupSum{},
		ByPartner:        []models.GroupSum{},
		ContractsPerYear: []models.YearCount{},
	}

	err := ds.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(total_value), 0) FROM contracts"+suffix, args...).
		Scan(&sum.Count, &sum.TotalValue)
	if err != nil {
		return nil, fmt.Errorf("summary query failed: %w", err)
	}

	sum.ByBank, err = ds.groupSums(ctx, "bank", suffix, args)
	if err != nil {
		return nil, err
	}
	sum.ByPartner, err = ds.groupSums(ctx, "partner", suffix, args)
	if err != nil {
		return nil, err
	}

	yearQuery := "SELECT signed_year, COUNT(*) FROM contracts" + suffix
	if where == "" {
		yearQuery += " WHERE signed_year IS NOT NULL"
	} else {
		yearQuery += " AND signed_year IS NOT NULL"
	}
	yearQuery += " GROUP BY signed_year ORDER BY signed_year"
	rows, err := ds.db.QueryContext(ctx, yearQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("year aggregate failed: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var yc models.YearCount
		if err := rows.Scan(&yc.Year, &yc.Count); err != nil {
			return nil, fmt.Errorf("year scan failed: %w", err)
		}
		sum.ContractsPerYear = append(sum.ContractsPerYear, yc)
	}

	return sum, rows.Err()
}

func (ds *DuckStore) groupSums(ctx context.Context, column, suffix string, args []any) ([]models.GroupSum, error) {
	// min(col) keeps one display casing per folded group.
	query := fmt.Sprintf(
		"SELECT lower(%s), min(%s), COUNT(*), SUM(total_value) FROM contracts%s GROUP BY lower(%s) ORDER BY lower(%s)",
		column, column, suffix, column, column)
	rows, err := ds.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s aggregate failed: %w", column, err)
	}
	defer rows.Close()

	out := []models.GroupSum{}
	for rows.Next() {
		var folded sql.NullString
		var g models.GroupSum
		var display sql.NullString
		if err := rows.Scan(&folded, &display, &g.Count, &g.Total); err != nil {
			return nil, fmt.Errorf("%s scan failed: %w", column, err)
		}
		g.Key = display.String
		if g.Key == "" {
			g.Key = "(unspecified)"
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// Options collects distinct widget values with DISTINCT queries.
func (ds *DuckStore) Options(ctx context.Context) (*models.FilterOptions, error) {
	opts := &models.FilterOptions{Years: []int{}}

	var err error
	if opts.Partners, err = ds.distinct(ctx, "partner"); err != nil {
		return nil, err
	}
	if opts.Banks, err = ds.distinct(ctx, "bank"); err != nil {
		return nil, err
	}
	if opts.ContractTypes, err = ds.distinct(ctx, "contract_type"); err != nil {
		return nil, err
	}
	if opts.Statuses, err = ds.distinct(ctx, "status"); err != nil {
		return nil, err
	}
	if opts.Regions, err = ds.distinct(ctx, "region"); err != nil {
		return nil, err
	}

	rows, err := ds.db.QueryContext(ctx,
		"SELECT DISTINCT signed_year FROM contracts WHERE signed_year IS NOT NULL ORDER BY signed_year")
	if err != nil {
		return nil, fmt.Errorf("years query failed: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var y int
		if err := rows.Scan(&y); err != nil {
			return nil, fmt.Errorf("year scan failed: %w", err)
		}
		opts.Years = append(opts.Years, y)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var minTs, maxTs sql.NullInt64
	err = ds.db.QueryRowContext(ctx,
		"SELECT MIN(signed_ts), MAX(signed_ts) FROM contracts").Scan(&minTs, &maxTs)
	if err != nil {
		return nil, fmt.Errorf("date range query failed: %w", err)
	}
	opts.DateRange = models.DateRange{Min: msToTime(minTs), Max: msToTime(maxTs)}

	return opts, nil
}

func (ds *DuckStore) distinct(ctx context.Context, column string) ([]string, error) {
	query := fmt.Sprintf(
		"SELECT min(%s) FROM contracts WHERE %s IS NOT NULL AND %s != '' GROUP BY lower(%s) ORDER BY lower(%s)",
		column, column, column, column, column)
	rows, err := ds.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s distinct failed: %w", column, err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("%s scan failed: %w", column, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
