package mongodb

import (
	"context"

	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/platform/logger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// TxRunner runs callbacks inside a multi-document transaction. Transactions
// need a replica set; when disabled the callback runs without one.
type TxRunner struct {
	client  *mongo.Client
	enabled bool
	logger  *logger.Logger
}

func NewTxRunner(client *mongo.Client, enabled bool, log *logger.Logger) *TxRunner {
	return &TxRunner{client: client, enabled: enabled, logger: log.Named("TxRunner")}
}

func (t *TxRunner) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !t.enabled {
		return fn(ctx)
	}
	session, err := t.client.StartSession()
	if err != nil {
		t.logger.Error("Failed to start mongo session", zap.Error(err))
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}
