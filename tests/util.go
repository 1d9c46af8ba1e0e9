// Package testutil holds helpers shared by the package tests.
package testutil

import (
	"context"
	"io"
	"log"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/chihwayi/ecd-materials-generator-sub003/core"
	"github.com/chihwayi/ecd-materials-generator-sub003/core/material"
	appfs "github.com/chihwayi/ecd-materials-generator-sub003/fs"
	logsvc "github.com/chihwayi/ecd-materials-generator-sub003/services/logger"
	"github.com/chihwayi/ecd-materials-generator-sub003/storage/database"
)

// NewConfig returns the TEST configuration with a private sqlite database file.
func NewConfig(t *testing.T) *core.Config {
	t.Helper()
	t.Setenv("ENV", "TEST")
	conf := core.NewConfig()
	conf.Database.Engine = database.EngineSQLite
	conf.Database.Path = filepath.Join(t.TempDir(), "test.db")
	conf.Worksheet.SaveAttempts = 1
	return conf
}

// NewLogger returns a logger that discards everything.
func NewLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
}

// PrepareDB opens the sqlite database of conf and runs the migrations.
// The database is closed when the test ends.
func PrepareDB(t *testing.T, conf *core.Config) *sqlx.DB {
	t.Helper()
	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db, conf.Database.Engine); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

// ParseEmailTemplates loads the embedded email templates.
func ParseEmailTemplates(conf *core.Config) {
	core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf, NewLogger(conf))
}

func CreateMaterial(
	t *testing.T,
	repo material.Repository,
	schoolID, title, typ string,
	tags []string,
	createdAt ...time.Time,
) material.Material {
	t.Helper()
	tstamp := time.Now().UTC().Truncate(time.Microsecond)
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC().Truncate(time.Microsecond)
	}
	if tags == nil {
		tags = []string{}
	}
	id := title + "-" + schoolID
	mat := material.Material{
		ID:          id,
		SchoolID:    schoolID,
		Title:       title,
		Type:        typ,
		Tags:        tags,
		DocumentKey: "materials/" + schoolID + "/" + id + "/document.json",
		CreatedBy:   "creator",
		CreatedAt:   tstamp,
		UpdatedAt:   tstamp,
	}
	mat, err := repo.CreateMaterial(testContext(t), mat)
	if err != nil {
		t.Fatalf("CreateMaterial() failed: %v", err)
	}
	return mat
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}
