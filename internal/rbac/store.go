package rbac

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ProfileRule is one persisted rule row.
type ProfileRule struct {
	Profile Role
	Rule
}

// ProfileStore reads persisted profile rules.
type ProfileStore interface {
	ListProfileRules(ctx context.Context) ([]ProfileRule, error)
}

// PGProfileStore implements ProfileStore using PostgreSQL.
type PGProfileStore struct {
	pool *pgxpool.Pool
}

// NewProfileStore constructs a store backed by the provided pool.
func NewProfileStore(pool *pgxpool.Pool) *PGProfileStore {
	return &PGProfileStore{pool: pool}
}

// ListProfileRules returns all rules ordered by profile and insertion order.
func (s *PGProfileStore) ListProfileRules(ctx context.Context) ([]ProfileRule, error) {
	rows, err := s.pool.Query(ctx, `SELECT profile, model, operation, allowed FROM profile_rules ORDER BY profile, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ProfileRule
	for rows.Next() {
		var (
			profile, model, op string
			allowed            bool
		)
		if err := rows.Scan(&profile, &model, &op, &allowed); err != nil {
			return nil, err
		}
		out = append(out, ProfileRule{
			Profile: Role(profile),
			Rule:    Rule{Model: model, Operation: Operation(op), Allowed: allowed},
		})
	}
	return out, rows.Err()
}

var _ ProfileStore = (*PGProfileStore)(nil)

// LoadProfiles registers the persisted profiles, or the built-in defaults when
// the store holds no rules. A nil store loads the defaults.
func LoadProfiles(ctx context.Context, store ProfileStore, registry *Registry, logger *slog.Logger) error {
	var rows []ProfileRule
	if store != nil {
		var err error
		rows, err = store.ListProfileRules(ctx)
		if err != nil {
			return fmt.Errorf("rbac: load profiles: %w", err)
		}
	}

	grouped := DefaultProfiles()
	source := "defaults"
	if len(rows) > 0 {
		source = "store"
		grouped = make(map[Role][]Rule)
		for _, row := range rows {
			grouped[row.Profile] = append(grouped[row.Profile], row.Rule)
		}
	}

	for profile, rules := range grouped {
		if err := registry.Register(profile, rules); err != nil {
			return err
		}
	}
	if logger != nil {
		logger.Info("permission profiles loaded", slog.String("source", source), slog.Int("profiles", len(grouped)))
	}
	return nil
}
