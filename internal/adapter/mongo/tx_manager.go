package mongo

import (
	"context"
	"fmt"

	"github.com/Shiyikai2002/student-trading-platform/internal/repository"
	"go.mongodb.org/mongo-driver/mongo"
)

type txManager struct {
	client *mongo.Client
}

func NewTxManager(client *mongo.Client) repository.TxManager {
	return &txManager{client: client}
}

// WithinTransaction runs fn inside a multi-document transaction. The session
// context handed to fn carries the transaction, so every repository call made
// with it joins the unit. The driver retries fn on transient errors such as
// write conflicts.
func (m *txManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start mongodb session: %w", err)
	}
	defer session.EndSession(context.Background())

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}
