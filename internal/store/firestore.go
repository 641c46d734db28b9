package store

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"os"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore backs DocumentStore with Cloud Firestore.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore initializes the Firestore client. It first attempts
// to use credentials from the FIREBASE_SERVICE_ACCOUNT_JSON environment
// variable (Base64 encoded). If that's not found, it falls back to a
// local service account key file.
func NewFirestoreStore(ctx context.Context, localFilePath string) (*FirestoreStore, error) {
	var opt option.ClientOption

	encodedCreds := os.Getenv("FIREBASE_SERVICE_ACCOUNT_JSON")
	if encodedCreds != "" {
		decoded, err := base64.StdEncoding.DecodeString(encodedCreds)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 firebase credentials from FIREBASE_SERVICE_ACCOUNT_JSON: %v", err)
		}
		opt = option.WithCredentialsJSON(decoded)
		log.Println("Firestore: Initializing from FIREBASE_SERVICE_ACCOUNT_JSON environment variable.")
	} else {
		if _, err := os.Stat(localFilePath); os.IsNotExist(err) {
			return nil, fmt.Errorf("local firebase file not found: %s, and FIREBASE_SERVICE_ACCOUNT_JSON environment variable is not set", localFilePath)
		}
		opt = option.WithCredentialsFile(localFilePath)
		log.Printf("Firestore: Initializing from local file: %s.", localFilePath)
	}

	var conf *firebase.Config
	if projectID := os.Getenv("FIRESTORE_PROJECT_ID"); projectID != "" {
		conf = &firebase.Config{ProjectID: projectID}
	}

	app, err := firebase.NewApp(ctx, conf, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %v", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firestore client: %v", err)
	}

	return &FirestoreStore{client: client}, nil
}

func (s *FirestoreStore) Get(ctx context.Context, collection, key string, dest any) error {
	snap, err := s.client.Collection(collection).Doc(key).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get %s/%s: %w", collection, key, err)
	}

	if err := snap.DataTo(dest); err != nil {
		return fmt.Errorf("failed to decode %s/%s: %w", collection, key, err)
	}
	return nil
}

func (s *FirestoreStore) FindByField(ctx context.Context, collection, field, value string, dest any) error {
	iter := s.client.Collection(collection).Where(field, "==", value).Limit(1).Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err == iterator.Done {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to query %s by %s: %w", collection, field, err)
	}

	if err := snap.DataTo(dest); err != nil {
		return fmt.Errorf("failed to decode %s query result: %w", collection, err)
	}
	return nil
}

func (s *FirestoreStore) Set(ctx context.Context, collection, key string, doc any) error {
	if _, err := s.client.Collection(collection).Doc(key).Set(ctx, doc); err != nil {
		return fmt.Errorf("failed to set %s/%s: %w", collection, key, err)
	}
	return nil
}

func (s *FirestoreStore) Update(ctx context.Context, collection, key string, fields map[string]any) error {
	updates := make([]firestore.Update, 0, len(fields))
	for path, value := range fields {
		updates = append(updates, firestore.Update{Path: path, Value: value})
	}

	if _, err := s.client.Collection(collection).Doc(key).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return ErrNotFound
		}
		return fmt.Errorf("failed to update %s/%s: %w", collection, key, err)
	}
	return nil
}

// Ping verifies connectivity for the health endpoint. Firestore has no
// dedicated ping RPC, so listing one collection stands in.
func (s *FirestoreStore) Ping(ctx context.Context) error {
	iter := s.client.Collections(ctx)
	if _, err := iter.Next(); err != nil && err != iterator.Done {
		return err
	}
	return nil
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}
