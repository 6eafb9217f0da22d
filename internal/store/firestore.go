package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// firestoreDefaultTTL bounds entries written without an explicit TTL.
// Firestore has no native key expiry, so expiry is recorded per document
// and enforced at read time (plus a TTL policy on expireAt, if configured
// on the collection).
const firestoreDefaultTTL = 10 * 24 * time.Hour

// firestoreDoc is the document layout for one stored entry.
type firestoreDoc struct {
	Value    []byte    `firestore:"value"`
	ExpireAt time.Time `firestore:"expireAt"`
}

// Firestore is a backend on a Firestore collection, one document per key.
type Firestore struct {
	client     *firestore.Client
	collection string
	defaultTTL time.Duration
}

// NewFirestore creates a Firestore-backed store in the given project and
// collection.
func NewFirestore(ctx context.Context, project, collection string, defaultTTL time.Duration) (*Firestore, error) {
	client, err := firestore.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}
	if defaultTTL <= 0 {
		defaultTTL = firestoreDefaultTTL
	}
	return &Firestore{client: client, collection: collection, defaultTTL: defaultTTL}, nil
}

func (f *Firestore) doc(key string) *firestore.DocumentRef {
	// Keys are "namespace:token" strings and never contain "/", so they
	// are valid document IDs as-is.
	return f.client.Collection(f.collection).Doc(key)
}

// Put stores value under key.
func (f *Firestore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 || ttl > f.defaultTTL {
		ttl = f.defaultTTL
	}
	_, err := f.doc(key).Set(ctx, firestoreDoc{
		Value:    value,
		ExpireAt: time.Now().Add(ttl),
	})
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// Get returns the value stored under key. Documents past their expireAt
// are treated as absent.
func (f *Firestore) Get(ctx context.Context, key string) ([]byte, error) {
	snap, err := f.doc(key).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}

	var doc firestoreDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	if time.Now().After(doc.ExpireAt) {
		return nil, ErrNotFound
	}
	return doc.Value, nil
}

// Take removes and returns the value stored under key. The read and
// delete run in a transaction so only one caller wins.
func (f *Firestore) Take(ctx context.Context, key string) ([]byte, error) {
	var doc firestoreDoc
	ref := f.doc(key)

	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		if err := snap.DataTo(&doc); err != nil {
			return err
		}
		return tx.Delete(ref)
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to take %s: %w", key, err)
	}
	if time.Now().After(doc.ExpireAt) {
		return nil, ErrNotFound
	}
	return doc.Value, nil
}

// Delete removes key.
func (f *Firestore) Delete(ctx context.Context, key string) error {
	_, err := f.doc(key).Delete(ctx)
	if err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying client.
func (f *Firestore) Close() error {
	return f.client.Close()
}
