// Package store provides persistence for diagram documents in serve mode.
//
// This package defines the Store interface with implementations for
// different backends:
//   - memory: In-memory storage for development/testing
//   - file: File-based storage for single-machine use
//   - redis: Redis-backed storage for multi-instance deployments
//   - mongo: MongoDB-backed storage for durable multi-instance deployments
//
// # Architecture
//
// A Document wraps one diagram together with identity and timestamps.
// Document IDs are minted as UUIDs at creation time. The Store interface
// supports Get/Put/Delete/List; Get returns nil, nil when the document does
// not exist so callers can distinguish absence from failure.
//
// # Usage
//
// Create a store:
//
//	// Development
//	store := store.NewMemory()
//
//	// Single machine
//	store, err := store.NewFile("")  // Uses ~/.config/diagrid/documents/
//
//	// Multi-instance
//	store, err := store.NewRedis(ctx, store.RedisConfig{Addr: "localhost:6379"})
//
// Manage documents:
//
//	doc := store.NewDocument("flowchart", diagram.Sample())
//	if err := s.Put(ctx, doc); err != nil {
//	    return err
//	}
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kheller/diagrid/pkg/diagram"
)

// Document is one stored diagram with identity and bookkeeping timestamps.
type Document struct {
	ID        string          `json:"id" bson:"_id"`
	Name      string          `json:"name" bson:"name"`
	Diagram   diagram.Diagram `json:"diagram" bson:"diagram"`
	CreatedAt time.Time       `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" bson:"updated_at"`
}

// NewDocument creates a document around a diagram with a fresh UUID.
func NewDocument(name string, d diagram.Diagram) *Document {
	now := time.Now().UTC()
	return &Document{
		ID:        uuid.NewString(),
		Name:      name,
		Diagram:   d,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch updates the modification timestamp.
func (d *Document) Touch() {
	d.UpdatedAt = time.Now().UTC()
}

// Store is the interface for document storage backends.
type Store interface {
	// Get retrieves a document by ID.
	// Returns nil, nil if the document doesn't exist.
	Get(ctx context.Context, id string) (*Document, error)

	// Put stores a document, replacing any existing document with the
	// same ID.
	Put(ctx context.Context, doc *Document) error

	// Delete removes a document. Deleting an absent document is not an
	// error.
	Delete(ctx context.Context, id string) error

	// List returns all stored documents.
	List(ctx context.Context) ([]*Document, error)
}
