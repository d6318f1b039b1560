package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/qiniu/qmgo"
	"github.com/sifan077/FlexQR/config"
)

const defaultDialTimeout = 10 * time.Second

// NewClient connects to MongoDB with qmgo and verifies connectivity.
func NewClient(ctx context.Context, cfg config.MongoConfig) (*qmgo.Client, *qmgo.Database, error) {
	dialCtx, cancel := context.WithTimeout(ctx, defaultDialTimeout)
	defer cancel()

	timeoutMS := int64(defaultDialTimeout / time.Millisecond)
	client, err := qmgo.NewClient(dialCtx, &qmgo.Config{
		Uri:              cfg.URI,
		ConnectTimeoutMS: &timeoutMS,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("mongo: connect: %w", err)
	}

	if err := client.Ping(int64(defaultDialTimeout / time.Second)); err != nil {
		_ = client.Close(context.Background())
		return nil, nil, fmt.Errorf("mongo: ping: %w", err)
	}

	return client, client.Database(cfg.Database), nil
}
