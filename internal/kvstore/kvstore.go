// Package kvstore keeps forms and submissions in an embedded Badger database.
//
// Key layout:
//
//	form/<formID>             JSON-encoded models.Form
//	token/<token>             formID
//	sub/<formID>/<ulid>       JSON-encoded models.Submission
//
// Submission keys embed a ULID built from the submission time, so a reverse
// prefix scan yields newest first.
package kvstore

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/dgraph-io/badger/v3"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/parisxmas/OxiDB/OxiForms/internal/models"
)

const (
	formPrefix  = "form/"
	tokenPrefix = "token/"
	subPrefix   = "sub/"
)

// ErrDuplicateToken is returned when a form is created with a token already in use.
var ErrDuplicateToken = errors.New("kvstore: token already in use")

// Store implements the form and submission stores on Badger.
type Store struct {
	db *badger.DB

	mu      sync.Mutex
	entropy io.Reader
}

// Open opens the Badger database in dir. An empty dir opens an in-memory store.
func Open(dir string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	opts := badger.DefaultOptions(dir).WithLogger(badgerLogger{log.Sugar()})
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("kvstore: open %q: %w", dir, err)
	}
	return &Store{db: db, entropy: ulid.Monotonic(rand.Reader, 0)}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// CreateForm stores the form and its token index in one transaction.
func (s *Store) CreateForm(_ context.Context, form *models.Form) error {
	data, err := json.Marshal(form)
	if err != nil {
		return fmt.Errorf("kvstore: encode form: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(tokenPrefix + form.Token))
		switch {
		case err == nil:
			return ErrDuplicateToken
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		if err := txn.Set([]byte(formPrefix+form.ID), data); err != nil {
			return err
		}
		return txn.Set([]byte(tokenPrefix+form.Token), []byte(form.ID))
	})
}

func (s *Store) FindByToken(_ context.Context, tok string) (*models.Form, error) {
	var form *models.Form
	err := s.db.View(func(txn *badger.Txn) error {
		id, err := get(txn, tokenPrefix+tok)
		if err != nil || id == nil {
			return err
		}
		form, err = getForm(txn, string(id))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("kvstore: find by token: %w", err)
	}
	return form, nil
}

func (s *Store) FindByID(_ context.Context, id string) (*models.Form, error) {
	var form *models.Form
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		form, err = getForm(txn, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("kvstore: find by id: %w", err)
	}
	return form, nil
}

// FindAll returns every form, newest first.
func (s *Store) FindAll(_ context.Context) ([]models.Form, error) {
	var forms []models.Form
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(formPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var f models.Form
			if err := it.Item().Value(func(v []byte) error { return json.Unmarshal(v, &f) }); err != nil {
				return err
			}
			forms = append(forms, f)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("kvstore: list forms: %w", err)
	}
	sort.SliceStable(forms, func(i, j int) bool {
		return forms[i].CreatedAt.After(forms[j].CreatedAt)
	})
	return forms, nil
}

// CreateSubmission appends a submission to an existing form.
func (s *Store) CreateSubmission(_ context.Context, sub *models.Submission) error {
	id, err := s.nextULID(sub)
	if err != nil {
		return err
	}
	data, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("kvstore: encode submission: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(formPrefix + sub.FormID)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("kvstore: form %s does not exist", sub.FormID)
			}
			return err
		}
		return txn.Set(submissionKey(sub.FormID, id.String()), data)
	})
}

// FindByFormID returns the form's submissions, newest first.
func (s *Store) FindByFormID(_ context.Context, formID string) ([]models.Submission, error) {
	subs := []models.Submission{}
	prefix := submissionKey(formID, "")
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(append(append([]byte{}, prefix...), 0xFF)); it.ValidForPrefix(prefix); it.Next() {
			var sub models.Submission
			if err := it.Item().Value(func(v []byte) error { return json.Unmarshal(v, &sub) }); err != nil {
				return err
			}
			subs = append(subs, sub)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("kvstore: list submissions: %w", err)
	}
	return subs, nil
}

func (s *Store) CountByFormID(_ context.Context, formID string) (int, error) {
	n := 0
	prefix := submissionKey(formID, "")
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("kvstore: count submissions: %w", err)
	}
	return n, nil
}

func (s *Store) nextULID(sub *models.Submission) (ulid.ULID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, err := ulid.New(ulid.Timestamp(sub.CreatedAt), s.entropy)
	if err != nil {
		return ulid.ULID{}, fmt.Errorf("kvstore: submission key: %w", err)
	}
	return id, nil
}

func submissionKey(formID, suffix string) []byte {
	return []byte(subPrefix + formID + "/" + suffix)
}

// get returns nil, nil for a missing key.
func get(txn *badger.Txn, key string) ([]byte, error) {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func getForm(txn *badger.Txn, id string) (*models.Form, error) {
	data, err := get(txn, formPrefix+id)
	if err != nil || data == nil {
		return nil, err
	}
	var f models.Form
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode form %s: %w", id, err)
	}
	return &f, nil
}

// badgerLogger routes Badger's logs through zap.
type badgerLogger struct {
	s *zap.SugaredLogger
}

func (l badgerLogger) Errorf(format string, args ...interface{})   { l.s.Errorf(format, args...) }
func (l badgerLogger) Warningf(format string, args ...interface{}) { l.s.Warnf(format, args...) }
func (l badgerLogger) Infof(format string, args ...interface{})    { l.s.Debugf(format, args...) }
func (l badgerLogger) Debugf(format string, args ...interface{})   { l.s.Debugf(format, args...) }

// Healthy reports whether the database is still open.
func (s *Store) Healthy() bool {
	return !s.db.IsClosed()
}
