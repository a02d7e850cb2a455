package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const firestoreRoot = "users"

// FirestoreStore keeps documents in Cloud Firestore
type FirestoreStore struct {
	client *firestore.Client
}

type firestoreDoc struct {
	Data      string    `firestore:"data"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

// NewFirestoreStore connects to the Firestore database of a project. An empty
// credentials file falls back to application default credentials.
func NewFirestoreStore(ctx context.Context, projectID, credentialsFile string) (*FirestoreStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	return &FirestoreStore{client: client}, nil
}

func (s *FirestoreStore) collection(userID, collection string) *firestore.CollectionRef {
	return s.client.Collection(firestoreRoot).Doc(userID).Collection(collection)
}

func (s *FirestoreStore) Get(ctx context.Context, ref DocRef) (Document, error) {
	snap, err := s.collection(ref.UserID, ref.Collection).Doc(ref.ID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return Document{}, ErrNotFound
		}
		return Document{}, firestoreErr("get", err)
	}
	return snapshotToDocument(ref, snap)
}

func (s *FirestoreStore) Set(ctx context.Context, doc Document) error {
	_, err := s.collection(doc.Ref.UserID, doc.Ref.Collection).Doc(doc.Ref.ID).Set(ctx, firestoreDoc{
		Data:      string(doc.Data),
		UpdatedAt: doc.UpdatedAt,
	})
	if err != nil {
		return firestoreErr("set", err)
	}
	return nil
}

func (s *FirestoreStore) List(ctx context.Context, userID, collection string) ([]Document, error) {
	snaps, err := s.collection(userID, collection).Documents(ctx).GetAll()
	if err != nil {
		return nil, firestoreErr("list", err)
	}
	docs := make([]Document, 0, len(snaps))
	for _, snap := range snaps {
		doc, err := snapshotToDocument(DocRef{UserID: userID, Collection: collection, ID: snap.Ref.ID}, snap)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *FirestoreStore) Delete(ctx context.Context, ref DocRef) error {
	if _, err := s.collection(ref.UserID, ref.Collection).Doc(ref.ID).Delete(ctx); err != nil {
		return firestoreErr("delete", err)
	}
	return nil
}

// Ping reads at most one document of the root collection
func (s *FirestoreStore) Ping(ctx context.Context) error {
	if _, err := s.client.Collection(firestoreRoot).Limit(1).Documents(ctx).GetAll(); err != nil {
		return firestoreErr("ping", err)
	}
	return nil
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

func snapshotToDocument(ref DocRef, snap *firestore.DocumentSnapshot) (Document, error) {
	var fd firestoreDoc
	if err := snap.DataTo(&fd); err != nil {
		return Document{}, fmt.Errorf("failed to read %s: %w", ref, err)
	}
	return Document{Ref: ref, Data: []byte(fd.Data), UpdatedAt: fd.UpdatedAt}, nil
}

func firestoreErr(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted,
		codes.Aborted, codes.Internal, codes.Unknown:
		return unavailable(op, err)
	}
	return fmt.Errorf("firestore %s failed: %w", op, err)
}
