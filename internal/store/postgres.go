package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/padelhub/padelhub/internal/models"
)

// Postgres is the gorm-backed Store. Outside Atomically every call is its own
// statement; inside it, loads take row locks so the read-modify-write cycle of
// one operation cannot interleave with another.
//
// The connection must be opened with gorm.Config{TranslateError: true} so
// unique violations surface as gorm.ErrDuplicatedKey.
type Postgres struct {
	*pgRepo
	db  *gorm.DB
	log *logrus.Entry
}

var _ Store = (*Postgres)(nil)

// NewPostgres wraps an open connection.
func NewPostgres(db *gorm.DB) *Postgres {
	return &Postgres{
		pgRepo: &pgRepo{db: db},
		db:     db,
		log:    logrus.WithField("component", "store.postgres"),
	}
}

// Atomically runs fn in one database transaction.
func (p *Postgres) Atomically(ctx context.Context, fn func(repo Repository) error) error {
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&pgRepo{db: tx, lock: true})
	})
	if err != nil && !errors.Is(err, ErrStaleWrite) && !errors.Is(err, ErrNotFound) {
		p.log.WithError(err).Debug("transaction rolled back")
	}
	return err
}

// SaveMatches writes every match or none of them.
func (p *Postgres) SaveMatches(ctx context.Context, matches []models.Match) error {
	return p.Atomically(ctx, func(r Repository) error { return r.SaveMatches(ctx, matches) })
}

// Close releases the underlying connection pool.
func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type pgRepo struct {
	db   *gorm.DB
	lock bool // SELECT ... FOR UPDATE on single-row and roster loads
}

func (r *pgRepo) query(ctx context.Context) *gorm.DB {
	q := r.db.WithContext(ctx)
	if r.lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
	}
	return err
}

func stale(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf(format+": %w", append(args, ErrStaleWrite)...)
	}
	return err
}

func (r *pgRepo) LoadMatches(ctx context.Context) ([]models.Match, error) {
	var out []models.Match
	if err := r.db.WithContext(ctx).Order("id").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *pgRepo) LoadMatch(ctx context.Context, id int) (models.Match, error) {
	var m models.Match
	if err := r.query(ctx).First(&m, id).Error; err != nil {
		return models.Match{}, notFound(err, "match %d", id)
	}
	return m, nil
}

func (r *pgRepo) SaveMatches(ctx context.Context, matches []models.Match) error {
	db := r.db.WithContext(ctx)
	for _, m := range matches {
		if m.Version == 0 {
			saved := m.Clone()
			saved.Version = 1
			if err := db.Create(&saved).Error; err != nil {
				return stale(err, "match %d", m.ID)
			}
			continue
		}

		// A named string type behind a pointer is not something every driver
		// encodes, so the winner goes down as a plain string or NULL.
		var winner any
		if m.Winner != nil {
			winner = string(*m.Winner)
		}
		res := db.Model(&models.Match{}).
			Where("id = ? AND version = ?", m.ID, m.Version).
			Updates(map[string]any{
				"date":       m.Date,
				"time":       m.Time,
				"club":       m.Club,
				"court":      m.Court,
				"type":       m.Type,
				"reves1":     m.Players.Reves1,
				"drive1":     m.Players.Drive1,
				"reves2":     m.Players.Reves2,
				"drive2":     m.Players.Drive2,
				"status":     m.Status,
				"winner":     winner,
				"updated_at": m.UpdatedAt,
				"version":    gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("match %d: %w", m.ID, ErrStaleWrite)
		}
	}
	return nil
}

func (r *pgRepo) NextMatchID(ctx context.Context) (int, error) {
	var id int
	if err := r.db.WithContext(ctx).Raw("SELECT nextval('match_id_seq')").Scan(&id).Error; err != nil {
		return 0, err
	}
	return id, nil
}

func (r *pgRepo) EnsureMatchCounter(ctx context.Context, atLeast int) error {
	if atLeast <= 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Exec("SELECT setval('match_id_seq', GREATEST(?, (SELECT last_value FROM match_id_seq)))", atLeast).
		Error
}

func (r *pgRepo) LoadPlayers(ctx context.Context) ([]models.Player, error) {
	var out []models.Player
	if err := r.query(ctx).Order("id").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *pgRepo) LoadPlayer(ctx context.Context, id int) (models.Player, error) {
	var p models.Player
	if err := r.query(ctx).First(&p, id).Error; err != nil {
		return models.Player{}, notFound(err, "player %d", id)
	}
	return p, nil
}

func (r *pgRepo) SavePlayers(ctx context.Context, players []models.Player) error {
	if len(players) == 0 {
		return nil
	}
	db := r.db.WithContext(ctx)
	for i := range players {
		if players[i].ID <= 0 {
			return fmt.Errorf("save player %q: id is required", players[i].Name)
		}
		if err := db.Save(&players[i]).Error; err != nil {
			return err
		}
	}
	// Rows inserted with explicit ids (imports) leave the serial behind.
	return db.Exec("SELECT setval(pg_get_serial_sequence('players', 'id'), (SELECT COALESCE(MAX(id), 1) FROM players))").Error
}

func (r *pgRepo) CreatePlayer(ctx context.Context, p models.Player) (models.Player, error) {
	if err := r.db.WithContext(ctx).Create(&p).Error; err != nil {
		return models.Player{}, stale(err, "player %d", p.ID)
	}
	return p, nil
}

func (r *pgRepo) LoadClubs(ctx context.Context) ([]models.Club, error) {
	var out []models.Club
	if err := r.db.WithContext(ctx).Order("id").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *pgRepo) SaveClubs(ctx context.Context, clubs []models.Club) error {
	if len(clubs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name"}),
		}).
		Create(&clubs).Error
}

func (r *pgRepo) LoadResults(ctx context.Context) ([]models.MatchResult, error) {
	var out []models.MatchResult
	if err := r.db.WithContext(ctx).Order("match_id").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *pgRepo) LoadResult(ctx context.Context, matchID int) (models.MatchResult, error) {
	var res models.MatchResult
	if err := r.db.WithContext(ctx).Where("match_id = ?", matchID).First(&res).Error; err != nil {
		return models.MatchResult{}, notFound(err, "result for match %d", matchID)
	}
	return res, nil
}

func (r *pgRepo) SaveResult(ctx context.Context, res models.MatchResult) error {
	if err := r.db.WithContext(ctx).Create(&res).Error; err != nil {
		return stale(err, "result for match %d", res.MatchID)
	}
	return nil
}
