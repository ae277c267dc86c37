package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	_ "github.com/lib/pq"
	"github.com/muhammadolammi/atsscore/internal/database"
	"github.com/streadway/amqp"
)

// connectInfra opens the database, R2 client and broker connection and
// attaches them to app. The returned func releases them.
func (app *App) connectInfra(ctx context.Context, cfg InfraConfig) (func(), error) {
	db, err := sql.Open("postgres", cfg.DBURL)
	if err != nil {
		return nil, fmt.Errorf("error opening db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to db: %w", err)
	}

	awsConfig, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.R2.AccessKey, cfg.R2.SecretKey, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating aws config: %w", err)
	}

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to RabbitMQ: %w", err)
	}
	if err := declareTopology(conn); err != nil {
		conn.Close()
		db.Close()
		return nil, fmt.Errorf("error declaring rabbitmq topology: %w", err)
	}

	app.DB = database.New(db)
	app.Objects = &r2Store{client: r2Client(awsConfig, cfg.R2.AccountID), bucket: cfg.R2.Bucket}
	app.Publisher = &rabbitPublisher{conn: conn}
	app.RABBITMQUrl = cfg.RabbitMQURL

	slog.Info("connected to postgres, r2 and rabbitmq", "bucket", cfg.R2.Bucket)
	return func() {
		conn.Close()
		db.Close()
	}, nil
}
