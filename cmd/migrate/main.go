package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rfmoraes/accounts-api-go/internal/adapter/database"
	"github.com/rfmoraes/accounts-api-go/pkg/logging"
	"go.uber.org/zap"
)

func main() {
	var (
		driver string
		dsn    string
	)

	flag.StringVar(&driver, "driver", "sqlite", "Driver de banco de dados (sqlite, mysql, postgres)")
	flag.StringVar(&dsn, "dsn", "./accounts.db", "DSN do banco de dados")
	flag.Parse()

	logger, err := logging.NewLogger()
	if err != nil {
		fmt.Printf("Erro ao inicializar logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	dbConfig := database.Config{
		Driver:          driver,
		DSN:             dsn,
		MaxIdleConns:    5,
		MaxOpenConns:    10,
		ConnMaxLifetime: 5 * time.Minute,
		LogLevel:        database.LogLevelInfo,
		SlowThreshold:   200 * time.Millisecond,
	}

	ctx := context.Background()

	// NewDatabase aplica o AutoMigrate dos modelos de usuário e de
	// códigos de verificação
	db, err := database.NewDatabase(ctx, dbConfig, logger)
	if err != nil {
		logger.Fatal("Falha ao inicializar banco de dados", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Migrações aplicadas com sucesso",
		zap.String("driver", driver),
		zap.String("dsn", dsn))
}
