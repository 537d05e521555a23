package storage

import (
	"context"
	"database/sql"
	"encoding/hex"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"

	"trench_war_server/logic"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

var ErrProfileNotFound = errors.New("profile not found")

// Profile is the lifetime tally of one durable token.
type Profile struct {
	Side     logic.Side
	Kills    int
	Deaths   int
	Matches  int
	LastSeen time.Time
}

// Store persists career profiles in SQLite. Tokens are stored hashed.
type Store struct {
	db *sql.DB
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS profiles (
	token_hash TEXT PRIMARY KEY,
	side TEXT NOT NULL,
	kills INTEGER NOT NULL DEFAULT 0,
	deaths INTEGER NOT NULL DEFAULT 0,
	matches INTEGER NOT NULL DEFAULT 0,
	last_seen TIMESTAMP NOT NULL
);
`

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open sqlite db %s failed", path)
	}
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create profiles table failed")
	}
	logger.WithField("path", path).Info("profile store initialized")
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// TokenKey is the at-rest key of a durable token.
func TokenKey(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// RecordResult adds one finished membership to token's profile.
func (s *Store) RecordResult(ctx context.Context, token string, side logic.Side, kills, deaths int, at time.Time) error {
	const query = `
	INSERT INTO profiles (token_hash, side, kills, deaths, matches, last_seen)
	VALUES (?, ?, ?, ?, 1, ?)
	ON CONFLICT(token_hash) DO UPDATE SET
		side = excluded.side,
		kills = kills + excluded.kills,
		deaths = deaths + excluded.deaths,
		matches = matches + 1,
		last_seen = excluded.last_seen;
	`
	if _, err := s.db.ExecContext(ctx, query, TokenKey(token), string(side), kills, deaths, at.UTC()); err != nil {
		return errors.Wrapf(err, "save profile %s failed", shortToken(token))
	}
	return nil
}

// LoadProfile returns token's profile or ErrProfileNotFound.
func (s *Store) LoadProfile(ctx context.Context, token string) (Profile, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT side, kills, deaths, matches, last_seen FROM profiles WHERE token_hash = ?", TokenKey(token))
	var (
		p    Profile
		side string
	)
	if err := row.Scan(&side, &p.Kills, &p.Deaths, &p.Matches, &p.LastSeen); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Profile{}, ErrProfileNotFound
		}
		return Profile{}, errors.Wrapf(err, "load profile %s failed", shortToken(token))
	}
	p.Side = logic.Side(side)
	return p, nil
}

func shortToken(token string) string {
	if len(token) > 8 {
		return token[:8]
	}
	return token
}
