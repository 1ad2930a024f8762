// Package store provides Dolt-backed persistence for indexed projects,
// files, entities and their analysis records. The store lives at
// .ragdoll/ragdoll/ (a Dolt repository), which brings version control
// over the index: history, diff and time-travel come for free.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/dolthub/driver"
)

// Store manages the .ragdoll/ragdoll/ Dolt database.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Open opens or creates the store database under the given .ragdoll
// directory, creating directories and schema as needed.
func Open(ragdollDir string) (*Store, error) {
	if err := os.MkdirAll(ragdollDir, 0755); err != nil {
		return nil, fmt.Errorf("create .ragdoll directory: %w", err)
	}

	dbPath := filepath.Join(ragdollDir, "ragdoll")
	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("create dolt directory: %w", err)
	}

	// First connect without a database so it can be created.
	initDSN := fmt.Sprintf("file://%s?commitname=Ragdoll&commitemail=ragdoll@local", dbPath)
	initDB, err := sql.Open("dolt", initDSN)
	if err != nil {
		return nil, fmt.Errorf("open dolt for init: %w", err)
	}
	if _, err := initDB.Exec("CREATE DATABASE IF NOT EXISTS ragdoll"); err != nil {
		initDB.Close()
		return nil, fmt.Errorf("create database: %w", err)
	}
	initDB.Close()

	dsn := fmt.Sprintf("file://%s?commitname=Ragdoll&commitemail=ragdoll@local&database=ragdoll", dbPath)
	db, err := sql.Open("dolt", dsn)
	if err != nil {
		return nil, fmt.Errorf("open dolt db: %w", err)
	}

	store := &Store{db: db, dbPath: dbPath}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return store, nil
}

// OpenDefault opens the store under .ragdoll in the current working
// directory.
func OpenDefault() (*Store, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}
	return Open(filepath.Join(cwd, ".ragdoll"))
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying database connection.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the Dolt repository path.
func (s *Store) Path() string {
	return s.dbPath
}
