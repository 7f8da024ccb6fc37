// Package storage keeps uploaded files on local disk or in a MinIO bucket.
package storage

import "errors"

var ErrNotFound = errors.New("blob not found")
