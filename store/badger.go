package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"modguard/matcher"
)

const (
	rulePrefix    = "rule:"
	trustedPrefix = "trusted:"
)

// --- BADGERDB IMPLEMENTATION (PRODUCTION) ---

// BadgerStore is the production implementation of the Store interface using
// BadgerDB. All mutations run inside a single read-write transaction, so rule
// identifier assignment and the trusted-set checks are atomic.
type BadgerStore struct {
	db *badger.DB
}

var _ Store = (*BadgerStore)(nil)

// badgerLogger adapts slog.Logger to be used as a logger for BadgerDB.
type badgerLogger struct {
	*slog.Logger
}

func (l *badgerLogger) Warningf(f string, v ...any) { l.Warn(fmt.Sprintf(f, v...)) }
func (l *badgerLogger) Errorf(f string, v ...any)   { l.Error(fmt.Sprintf(f, v...)) }
func (l *badgerLogger) Infof(f string, v ...any)    {}
func (l *badgerLogger) Debugf(f string, v ...any)   {}

// NewBadgerStore initializes and returns a new, optimized BadgerStore.
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)

	// Values smaller than this (1KB) are stored in the faster LSM-tree
	// instead of the separate value log. Rule records and trusted-sender
	// keys are far below the threshold.
	opts.ValueThreshold = 1024

	// Redirect BadgerDB's internal logs to the application's main slog logger.
	opts.Logger = &badgerLogger{slog.Default()}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	return &BadgerStore{db: db}, nil
}

// Close gracefully closes the database connection.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func ruleKey(id int) []byte {
	// Zero-padded so that lexicographic key order is numeric ID order.
	return []byte(fmt.Sprintf("%s%010d", rulePrefix, id))
}

// CreateRule validates the input, assigns max(existing)+1 and persists the
// rule. The scan for the current maximum and the write happen in one
// transaction, so concurrent creates cannot hand out the same identifier.
func (s *BadgerStore) CreateRule(ctx context.Context, pattern string, severity Severity) (*Rule, error) {
	if !severity.Valid() {
		return nil, ErrInvalidSeverity
	}
	if _, err := matcher.Compile(pattern); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}

	var rule Rule
	err := s.db.Update(func(txn *badger.Txn) error {
		maxID := 0
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(rulePrefix)
		// Keys are zero-padded, so the last key under the prefix holds the
		// current maximum. Badger iterators only seek forward, so walk them all.
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var id int
			if _, err := fmt.Sscanf(string(it.Item().Key()), rulePrefix+"%d", &id); err == nil && id > maxID {
				maxID = id
			}
		}

		rule = Rule{ID: maxID + 1, Pattern: pattern, Severity: severity}
		value, err := json.Marshal(rule)
		if err != nil {
			return err
		}
		return txn.Set(ruleKey(rule.ID), value)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist rule: %w", err)
	}

	slog.Info("Created content rule", "id", rule.ID, "pattern", rule.Pattern, "severity", int(rule.Severity))
	return &rule, nil
}

// ListRules returns every rule in ascending-identifier order.
func (s *BadgerStore) ListRules(ctx context.Context) ([]Rule, error) {
	var rules []Rule
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(rulePrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				var rule Rule
				if err := json.Unmarshal(value, &rule); err != nil {
					return fmt.Errorf("corrupt rule record at %s: %w", it.Item().Key(), err)
				}
				rules = append(rules, rule)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rules, nil
}

// DeleteRule removes the rule with the given identifier.
func (s *BadgerStore) DeleteRule(ctx context.Context, id int) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		key := ruleKey(id)
		if _, err := txn.Get(key); err != nil {
			return err
		}
		return txn.Delete(key)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrRuleNotFound
	}
	if err != nil {
		return err
	}
	slog.Info("Deleted content rule", "id", id)
	return nil
}

// IsTrusted checks if a given userID is in the exemption set.
func (s *BadgerStore) IsTrusted(ctx context.Context, userID string) (bool, error) {
	key := []byte(trustedPrefix + userID)
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// AddTrusted adds a userID to the exemption set. The value is stored as nil
// to save space, as only the key's existence matters.
func (s *BadgerStore) AddTrusted(ctx context.Context, userID string) (bool, error) {
	key := []byte(trustedPrefix + userID)
	added := false
	err := s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return nil // already trusted
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		added = true
		return txn.Set(key, nil)
	})
	if err != nil {
		return false, err
	}
	if added {
		slog.Info("Added trusted sender", "user_id", userID)
	}
	return added, nil
}

// RemoveTrusted removes a userID from the exemption set.
func (s *BadgerStore) RemoveTrusted(ctx context.Context, userID string) (bool, error) {
	key := []byte(trustedPrefix + userID)
	removed := false
	err := s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil // was not trusted
		}
		if err != nil {
			return err
		}
		removed = true
		return txn.Delete(key)
	})
	if err != nil {
		return false, err
	}
	if removed {
		slog.Info("Removed trusted sender", "user_id", userID)
	}
	return removed, nil
}
