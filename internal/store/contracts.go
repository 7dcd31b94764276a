package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/Jaeyong-Cho/abstraction/internal/model"
)

// contractLocks serializes writes per contract identity. Writers to different
// identities proceed in parallel; two saves against the same identity are
// ordered so last-writer-wins is well defined.
type contractLocks struct {
	stripes [64]sync.Mutex
}

func (l *contractLocks) lock(id model.Identity) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(id.Token()))
	return &l.stripes[h.Sum32()%uint32(len(l.stripes))]
}

// PutContract saves c as a full replacement of any contract already recorded
// for its identity. Text fields are stored byte-exact.
func (s *Store) PutContract(c *model.Contract) error {
	if !model.ValidLevel(c.Level) {
		return fmt.Errorf("put contract %s: invalid level %q", c.Identity, c.Level)
	}

	mu := s.locks.lock(c.Identity)
	mu.Lock()
	defer mu.Unlock()

	recordedAt := c.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}
	_, err := s.db.Exec(`
INSERT INTO contracts(path, qualified_name, expected_behavior, preconditions, postconditions, level, recorded_fingerprint, recorded_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(path, qualified_name) DO UPDATE SET
  expected_behavior = excluded.expected_behavior,
  preconditions = excluded.preconditions,
  postconditions = excluded.postconditions,
  level = excluded.level,
  recorded_fingerprint = excluded.recorded_fingerprint,
  recorded_at = excluded.recorded_at`,
		c.Identity.Path, c.Identity.QualifiedName,
		c.ExpectedBehavior,
		marshalConditions(c.Preconditions), marshalConditions(c.Postconditions),
		string(c.Level), c.RecordedFingerprint,
		recordedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("put contract %s: %w", c.Identity, err)
	}
	return nil
}

// GetContract returns the contract recorded for id, or nil when none exists.
func (s *Store) GetContract(id model.Identity) (*model.Contract, error) {
	row := s.db.QueryRow(
		"SELECT path, qualified_name, expected_behavior, preconditions, postconditions, level, recorded_fingerprint, recorded_at FROM contracts WHERE path = ? AND qualified_name = ?",
		id.Path, id.QualifiedName,
	)
	c, err := scanContract(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get contract %s: %w", id, err)
	}
	return c, nil
}

// ListContracts returns all contracts whose path starts with pathPrefix, in
// (path, qualified name) order. An empty prefix lists everything. The prefix
// matches literally: LIKE metacharacters in it are escaped.
func (s *Store) ListContracts(pathPrefix string) ([]*model.Contract, error) {
	rows, err := s.db.Query(
		`SELECT path, qualified_name, expected_behavior, preconditions, postconditions, level, recorded_fingerprint, recorded_at FROM contracts WHERE path LIKE ? ESCAPE '\' ORDER BY path, qualified_name`,
		escapeLike(pathPrefix)+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("list contracts: %w", err)
	}
	defer rows.Close()

	var contracts []*model.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, fmt.Errorf("list contracts: %w", err)
		}
		contracts = append(contracts, c)
	}
	return contracts, rows.Err()
}

// DeleteContract removes the contract for id, reporting whether one existed.
func (s *Store) DeleteContract(id model.Identity) (bool, error) {
	mu := s.locks.lock(id)
	mu.Lock()
	defer mu.Unlock()

	res, err := s.db.Exec("DELETE FROM contracts WHERE path = ? AND qualified_name = ?", id.Path, id.QualifiedName)
	if err != nil {
		return false, fmt.Errorf("delete contract %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete contract %s: %w", id, err)
	}
	return n > 0, nil
}

// escapeLike escapes SQL LIKE wildcards (% and _) and the escape character
// itself with backslash.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContract(row rowScanner) (*model.Contract, error) {
	var c model.Contract
	var pre, post, level, recordedAt string
	if err := row.Scan(
		&c.Identity.Path, &c.Identity.QualifiedName,
		&c.ExpectedBehavior, &pre, &post, &level,
		&c.RecordedFingerprint, &recordedAt,
	); err != nil {
		return nil, err
	}
	c.Preconditions = unmarshalConditions(pre)
	c.Postconditions = unmarshalConditions(post)
	c.Level = model.AbstractionLevel(level)
	ts, err := time.Parse(time.RFC3339Nano, recordedAt)
	if err != nil {
		return nil, fmt.Errorf("parse recorded_at: %w", err)
	}
	c.RecordedAt = ts
	return &c, nil
}

// marshalConditions converts []string to JSON text for storage.
func marshalConditions(conds []string) string {
	if len(conds) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(conds)
	return string(b)
}

// unmarshalConditions converts JSON text back to []string.
func unmarshalConditions(s string) []string {
	if s == "" || s == "null" {
		return nil
	}
	var conds []string
	_ = json.Unmarshal([]byte(s), &conds)
	return conds
}
