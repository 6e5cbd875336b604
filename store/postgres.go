// store/postgres.go
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/ViniZap4/lumi-board/domain"
)

const (
	selectRooms = `SELECT id, creator_id FROM rooms ORDER BY created_at, id`
	selectRoom  = `SELECT id, creator_id FROM rooms WHERE id = $1`
	insertRoom  = `INSERT INTO rooms (id, creator_id) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`
	deleteRoom  = `DELETE FROM rooms WHERE id = $1`

	selectRoomNotes = `SELECT id, room_id, x, y, text, author_id FROM notes WHERE room_id = $1 ORDER BY created_at, id`
	insertNote      = `INSERT INTO notes (id, room_id, x, y, text, author_id) VALUES ($1, $2, $3, $4, $5, $6)`
	deleteNote      = `DELETE FROM notes WHERE id = $1`
	deleteRoomNotes = `DELETE FROM notes WHERE room_id = $1`
)

// Postgres is the Store backed by a pgx connection pool. Bounding concurrent
// queries is left to the pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to the database and verifies the connection. A
// maxConns of zero keeps the pgxpool default.
func OpenPostgres(ctx context.Context, dsn string, maxConns int32) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, wrap("connect", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, wrap("ping", err)
	}

	log.Info().
		Str("component", "store").
		Str("host", cfg.ConnConfig.Host).
		Str("database", cfg.ConnConfig.Database).
		Int32("max_conns", cfg.MaxConns).
		Msg("PostgreSQL connected")
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) GetRooms(ctx context.Context) ([]domain.Room, error) {
	rows, err := p.pool.Query(ctx, selectRooms)
	if err != nil {
		return nil, wrap("get rooms", classify(err))
	}
	rooms, err := pgx.CollectRows(rows, pgx.RowToStructByName[domain.Room])
	if err != nil {
		return nil, wrap("get rooms", classify(err))
	}
	return rooms, nil
}

func (p *Postgres) GetRoom(ctx context.Context, id string) (domain.Room, error) {
	rows, err := p.pool.Query(ctx, selectRoom, id)
	if err != nil {
		return domain.Room{}, wrap("get room", classify(err))
	}
	room, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[domain.Room])
	if err != nil {
		return domain.Room{}, wrap("get room", classify(err))
	}
	return room, nil
}

func (p *Postgres) UpsertRoom(ctx context.Context, room domain.Room) (domain.Room, bool, error) {
	tag, err := p.pool.Exec(ctx, insertRoom, room.ID, room.CreatorID)
	if err != nil {
		return domain.Room{}, false, wrap("upsert room", classify(err))
	}
	if tag.RowsAffected() == 1 {
		return room, true, nil
	}

	// Lost the insert to an existing row; report the stored creator.
	existing, err := p.GetRoom(ctx, room.ID)
	if err != nil {
		return domain.Room{}, false, err
	}
	return existing, false, nil
}

func (p *Postgres) GetRoomNotes(ctx context.Context, roomID string) ([]domain.Note, error) {
	rows, err := p.pool.Query(ctx, selectRoomNotes, roomID)
	if err != nil {
		return nil, wrap("get room notes", classify(err))
	}
	notes, err := pgx.CollectRows(rows, pgx.RowToStructByName[domain.Note])
	if err != nil {
		return nil, wrap("get room notes", classify(err))
	}
	return notes, nil
}

func (p *Postgres) InsertNote(ctx context.Context, note domain.Note) error {
	_, err := p.pool.Exec(ctx, insertNote, note.ID, note.RoomID, note.X, note.Y, note.Text, note.AuthorID)
	return wrap("insert note", classify(err))
}

func (p *Postgres) DeleteNoteByID(ctx context.Context, id string) error {
	_, err := p.pool.Exec(ctx, deleteNote, id)
	return wrap("delete note", classify(err))
}

func (p *Postgres) DeleteNotesByRoom(ctx context.Context, roomID string) error {
	_, err := p.pool.Exec(ctx, deleteRoomNotes, roomID)
	return wrap("delete room notes", classify(err))
}

func (p *Postgres) DeleteRoomByID(ctx context.Context, id string) error {
	_, err := p.pool.Exec(ctx, deleteRoom, id)
	return wrap("delete room", classify(err))
}

func (p *Postgres) Close() {
	p.pool.Close()
}

// classify maps driver errors onto the store sentinels, keeping the
// original error in the chain.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		return fmt.Errorf("%w: %w", ErrDuplicate, err)
	case pgerrcode.ForeignKeyViolation:
		return fmt.Errorf("%w: %w", ErrRoomMissing, err)
	}
	return err
}
