// Package store persists all application state in a single JSON document.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrUsernameTaken is returned when registering an existing username.
	ErrUsernameTaken = errors.New("store: username taken")
	// ErrInvalidCredentials is returned on a failed login.
	ErrInvalidCredentials = errors.New("store: invalid credentials")
	// ErrUnknownUser is returned when an operation targets a missing account.
	ErrUnknownUser = errors.New("store: unknown user")
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("store: record not found")
)

const (
	// BootstrapUsername is the account created on first run.
	BootstrapUsername = "admin"
	// BootstrapPassword is the fixed first-run password.
	BootstrapPassword = "admin"

	dateLayout     = "2006-01-02"
	scanDateLayout = "2006-01-02 15:04"
	itemIDLength   = 8
)

// Inventory stat buckets, matching the dashboard cards.
var statCategories = []string{"Plant", "Seed", "Tool", "Other"}

// Store owns the in-memory document and its backing file. Every mutation
// rewrites the whole file; the last writer wins.
type Store struct {
	mu     sync.RWMutex
	path   string
	doc    *Document
	logger *zap.Logger

	now   func() time.Time
	newID func() string
}

// Open loads the document from disk, repairing or migrating it when the
// structure is off, and creates the bootstrap account when no users exist.
func Open(path string, logger *zap.Logger) (*Store, error) {
	s := &Store{
		path:   path,
		logger: logger.Named("store"),
		now:    time.Now,
		newID:  func() string { return uuid.NewString()[:itemIDLength] },
	}

	doc, err := s.loadDocument()
	if err != nil {
		return nil, err
	}
	s.doc = doc

	if len(s.doc.Users) == 0 {
		if err := s.Register(BootstrapUsername, BootstrapPassword); err != nil {
			return nil, fmt.Errorf("bootstrap account: %w", err)
		}
		s.logger.Info("created bootstrap account", zap.String("username", BootstrapUsername))
	}

	return s, nil
}

func (s *Store) loadDocument() (*Document, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		doc := newDocument()
		return doc, s.writeDocument(doc)
	}
	if err != nil {
		return nil, fmt.Errorf("read data file: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err == nil && doc.Users != nil {
		return &doc, nil
	}

	// Legacy layout kept user records at the top level.
	var legacy map[string]*UserRecord
	if err := json.Unmarshal(raw, &legacy); err == nil && len(legacy) > 0 && hasPasswords(legacy) {
		s.logger.Warn("migrating legacy data file layout", zap.String("path", s.path))
		doc := &Document{Users: legacy}
		return doc, s.writeDocument(doc)
	}

	s.logger.Warn("data file corrupt, resetting", zap.String("path", s.path))
	fresh := newDocument()
	return fresh, s.writeDocument(fresh)
}

func hasPasswords(users map[string]*UserRecord) bool {
	for _, rec := range users {
		if rec == nil || rec.PasswordHash == "" {
			return false
		}
	}
	return true
}

// Register creates a new account with a bcrypt password hash.
func (s *Store) Register(username, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.doc.Users[username]; exists {
		return ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	s.doc.Users[username] = &UserRecord{
		PasswordHash: string(hash),
		Inventory:    []InventoryItem{},
		History:      []ScanEntry{},
	}
	return s.save()
}

// Authenticate verifies a username/password pair. Legacy unsalted SHA-256
// hashes from a migrated document are accepted once and upgraded to bcrypt.
func (s *Store) Authenticate(username, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.doc.Users[username]
	if !exists {
		return ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(password)) == nil {
		return nil
	}

	if isLegacyHash(rec.PasswordHash, password) {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("rehash password: %w", err)
		}
		rec.PasswordHash = string(hash)
		if err := s.save(); err != nil {
			return err
		}
		s.logger.Info("upgraded legacy password hash", zap.String("username", username))
		return nil
	}

	return ErrInvalidCredentials
}

func isLegacyHash(stored, password string) bool {
	if len(stored) != sha256.Size*2 {
		return false
	}
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:]) == stored
}

// AddItem prepends a new inventory row and persists the document.
func (s *Store) AddItem(username, name, category, qty, notes string) (*InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.doc.Users[username]
	if !exists {
		return nil, ErrUnknownUser
	}

	item := InventoryItem{
		ID:       s.newID(),
		Name:     name,
		Category: category,
		Quantity: qty,
		Notes:    notes,
		Date:     s.now().Format(dateLayout),
	}
	rec.Inventory = append([]InventoryItem{item}, rec.Inventory...)
	if err := s.save(); err != nil {
		return nil, err
	}
	return &item, nil
}

// Inventory returns the user's inventory rows, newest first.
func (s *Store) Inventory(username string) ([]InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.doc.Users[username]
	if !exists {
		return nil, ErrUnknownUser
	}
	items := make([]InventoryItem, len(rec.Inventory))
	copy(items, rec.Inventory)
	return items, nil
}

// DeleteItem removes an inventory row by id.
func (s *Store) DeleteItem(username, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.doc.Users[username]
	if !exists {
		return ErrUnknownUser
	}

	kept := rec.Inventory[:0]
	found := false
	for _, item := range rec.Inventory {
		if item.ID == itemID {
			found = true
			continue
		}
		kept = append(kept, item)
	}
	if !found {
		return ErrNotFound
	}
	rec.Inventory = kept
	return s.save()
}

// Stats counts inventory rows per dashboard category. Categories outside
// the fixed set land in Other.
func (s *Store) Stats(username string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.doc.Users[username]
	if !exists {
		return nil, ErrUnknownUser
	}

	stats := make(map[string]int, len(statCategories))
	for _, cat := range statCategories {
		stats[cat] = 0
	}
	for _, item := range rec.Inventory {
		if _, known := stats[item.Category]; known {
			stats[item.Category]++
		} else {
			stats["Other"]++
		}
	}
	return stats, nil
}

// LogScan prepends a scan log entry and persists the document.
func (s *Store) LogScan(username, file, result, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.doc.Users[username]
	if !exists {
		return ErrUnknownUser
	}

	entry := ScanEntry{
		Date:   s.now().Format(scanDateLayout),
		File:   filepath.Base(file),
		Result: result,
		Status: status,
	}
	rec.History = append([]ScanEntry{entry}, rec.History...)
	return s.save()
}

// History returns the user's scan log, newest first.
func (s *Store) History(username string) ([]ScanEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.doc.Users[username]
	if !exists {
		return nil, ErrUnknownUser
	}
	entries := make([]ScanEntry, len(rec.History))
	copy(entries, rec.History)
	return entries, nil
}

// Flush rewrites the document to disk. Called once more at shutdown.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save()
}

func (s *Store) save() error {
	return s.writeDocument(s.doc)
}

// writeDocument rewrites the whole file via a temp file and rename so a
// crash mid-write never leaves a torn document behind.
func (s *Store) writeDocument(doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("encode data file: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp data file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write data file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close data file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace data file: %w", err)
	}
	return nil
}
