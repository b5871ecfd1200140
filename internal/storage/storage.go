// Package storage keeps uploaded files (user photos, article covers).
//
// Every stored file is addressed by a relative path of the form
// "{category}/{unix_seconds}_{original_name}". The path is what gets saved in
// the database. URL turns it into something a browser can fetch.
//
// Two backends exist: LocalStore writes to a directory served by the HTTP
// server, and S3Store writes to an S3 (or MinIO) bucket. Both guarantee that
// Save never overwrites a live file and that Delete of a missing file is
// not an error.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// Categories used by the services.
const (
	CategoryUserPhotos    = "images/users"
	CategoryArticleCovers = "images/articles"
)

// maxNameAttempts bounds how many later timestamps Save tries when a name
// is already taken. Hitting it means something is badly wrong.
const maxNameAttempts = 100

// Store is the asset store the services depend on.
type Store interface {
	Save(ctx context.Context, category, filename string, body io.Reader) (string, error)
	Delete(ctx context.Context, path string) error
	URL(path string) string
}

// Clock is swapped out in tests to make names deterministic.
type Clock func() time.Time

// objectName builds "{ts}_{base}" for attempt n (0 is "now").
func objectName(now time.Time, n int, filename string) string {
	return fmt.Sprintf("%d_%s", now.Unix()+int64(n), baseName(filename))
}

// baseName strips any directory part a client put in the filename, with
// either slash style, so "../../etc/passwd" becomes "passwd".
func baseName(filename string) string {
	name := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	switch name {
	case "", ".", "..", "/":
		return "file"
	}
	return name
}
