package db

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// Config selects either a local sqlite file or a remote libsql database,
// Url takes precedence when both are set.
type Config struct {
	File      string `json:"file"`
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

func wrapOpenDB(err error) error {
	return fmt.Errorf("open db: %w", err)
}

// OpenDB opens the configured database and applies the schema.
func OpenDB(config Config) (*sql.DB, error) {
	var (
		db  *sql.DB
		err error
	)
	switch {
	case config.Url != "":
		db, err = openRemote(config.Url, config.AuthToken)
	case config.File != "":
		db, err = openFile(config.File)
	default:
		err = fmt.Errorf("neither a file nor a url was specified")
	}
	if err != nil {
		return nil, wrapOpenDB(err)
	}

	_, err = db.Exec(Schema)
	if err != nil {
		db.Close()
		return nil, wrapOpenDB(fmt.Errorf("apply schema: %w", err))
	}
	return db, nil
}

func openRemote(rawUrl, authToken string) (*sql.DB, error) {
	dbUrl, err := url.Parse(rawUrl)
	if err != nil {
		return nil, err
	}
	if authToken != "" {
		query := dbUrl.Query()
		query.Set("authToken", authToken)
		dbUrl.RawQuery = query.Encode()
	}
	return sql.Open("libsql", dbUrl.String())
}

func openFile(path string) (*sql.DB, error) {
	if path != ":memory:" {
		err := os.MkdirAll(filepath.Dir(path), 0777)
		if err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// see this stackoverflow post for information on why the following
	// lines exist: https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
	db.SetMaxOpenConns(1)
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		db.Close()
		return nil, err
	}
	_, err = db.Exec("PRAGMA foreign_keys=ON")
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
