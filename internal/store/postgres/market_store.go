package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/marketnorm/internal/domain"
)

// MarketStore implements domain.MarketStore using PostgreSQL.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a new MarketStore backed by the given connection pool.
func NewMarketStore(pool *pgxpool.Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

const upsertMarketQuery = `
	INSERT INTO markets (
		id, condition_id, question_id, question, slug,
		search_text, keywords, category,
		tickers, numbers, years,
		end_date, active, closed, icon, updated_at
	) VALUES (
		$1, $2, $3, $4, $5,
		$6, $7, $8,
		$9, $10, $11,
		$12, $13, $14, $15, NOW()
	)
	ON CONFLICT (id) DO UPDATE SET
		condition_id = EXCLUDED.condition_id,
		question_id  = EXCLUDED.question_id,
		question     = EXCLUDED.question,
		slug         = EXCLUDED.slug,
		search_text  = EXCLUDED.search_text,
		keywords     = EXCLUDED.keywords,
		category     = EXCLUDED.category,
		tickers      = EXCLUDED.tickers,
		numbers      = EXCLUDED.numbers,
		years        = EXCLUDED.years,
		end_date     = EXCLUDED.end_date,
		active       = EXCLUDED.active,
		closed       = EXCLUDED.closed,
		icon         = EXCLUDED.icon,
		updated_at   = NOW()`

// UpsertBatch inserts or updates multiple markets in a single batch operation.
func (s *MarketStore) UpsertBatch(ctx context.Context, markets []domain.CompactMarket) error {
	if len(markets) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, m := range markets {
		batch.Queue(upsertMarketQuery,
			m.ID, m.ConditionID, m.QuestionID, m.Question, m.Slug,
			m.SearchText, orEmpty(m.Keywords), m.Category,
			orEmpty(m.Tickers), orEmpty(m.Numbers), orEmpty(m.Years),
			m.EndDate, m.Active, m.Closed, m.Icon,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range markets {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: upsert market batch item %d (%s): %w", i, markets[i].ID, err)
		}
	}
	return nil
}

const marketCols = `id, condition_id, question_id, question, slug,
	search_text, keywords, category,
	tickers, numbers, years,
	end_date, active, closed, icon`

// scanMarket scans a single market row into a domain.CompactMarket.
func scanMarket(row pgx.Row) (domain.CompactMarket, error) {
	var m domain.CompactMarket
	err := row.Scan(
		&m.ID, &m.ConditionID, &m.QuestionID, &m.Question, &m.Slug,
		&m.SearchText, &m.Keywords, &m.Category,
		&m.Tickers, &m.Numbers, &m.Years,
		&m.EndDate, &m.Active, &m.Closed, &m.Icon,
	)
	return m, err
}

// GetByID retrieves a market by its primary key.
func (s *MarketStore) GetByID(ctx context.Context, id string) (domain.CompactMarket, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+marketCols+` FROM markets WHERE id = $1`, id)
	m, err := scanMarket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.CompactMarket{}, domain.ErrNotFound
		}
		return domain.CompactMarket{}, fmt.Errorf("postgres: get market %s: %w", id, err)
	}
	return m, nil
}

// List returns markets matching filter, ordered by id.
func (s *MarketStore) List(ctx context.Context, filter domain.MarketFilter) ([]domain.CompactMarket, error) {
	query, args := buildListQuery(filter)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list markets: %w", err)
	}
	defer rows.Close()

	var markets []domain.CompactMarket
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan market: %w", err)
		}
		markets = append(markets, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list markets rows: %w", err)
	}
	return markets, nil
}

// buildListQuery renders the SELECT for filter with positional arguments.
func buildListQuery(filter domain.MarketFilter) (string, []any) {
	where, args := buildWhere(filter)
	query := `SELECT ` + marketCols + ` FROM markets` + where + " ORDER BY id"
	argIdx := len(args) + 1

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, filter.Limit)
		argIdx++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, filter.Offset)
	}
	return query, args
}

// buildCountQuery renders the COUNT for filter. Paging is ignored.
func buildCountQuery(filter domain.MarketFilter) (string, []any) {
	where, args := buildWhere(filter)
	return `SELECT COUNT(*) FROM markets` + where, args
}

func buildWhere(filter domain.MarketFilter) (string, []any) {
	where := " WHERE 1=1"
	args := []any{}

	if filter.Category != "" {
		args = append(args, strings.ToLower(filter.Category))
		where += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if filter.ActiveOnly {
		where += " AND active AND NOT closed"
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+escapeLike(strings.ToLower(q))+"%")
		where += fmt.Sprintf(" AND search_text ILIKE $%d", len(args))
	}
	return where, args
}

// Count returns the number of markets matching filter, ignoring its limit
// and offset.
func (s *MarketStore) Count(ctx context.Context, filter domain.MarketFilter) (int64, error) {
	query, args := buildCountQuery(filter)
	var count int64
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: count markets: %w", err)
	}
	return count, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Compile-time interface check.
var _ domain.MarketStore = (*MarketStore)(nil)
