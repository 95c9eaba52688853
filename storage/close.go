package storage

import (
	"context"
	"time"

	"go.uber.org/zap"

	"OnTrack/pkg/logger"
	"OnTrack/storage/database"
	"OnTrack/storage/local"
	"OnTrack/storage/mq"
	"OnTrack/storage/redis"
)

// Close 优雅关闭所有存储连接
// 关闭顺序：MQ -> Redis -> Database -> 本地快照
// 先停止接收变更事件，再关缓存和远端连接，最后把账本落盘
func Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	logger.Logger.Info("Closing storage connections...")

	if err := mq.Close(ctx); err != nil {
		logger.Logger.Error("Failed to close message queue", zap.Error(err))
	} else {
		logger.Logger.Info("Message queue closed successfully")
	}

	if err := redis.Close(ctx); err != nil {
		logger.Logger.Error("Failed to close Redis connection", zap.Error(err))
	} else {
		logger.Logger.Info("Redis connection closed successfully")
	}

	if err := database.Close(ctx); err != nil {
		logger.Logger.Error("Failed to close database connection", zap.Error(err))
	} else {
		logger.Logger.Info("Database connection closed successfully")
	}

	if err := local.Flush(); err != nil {
		logger.Logger.Error("Failed to flush local ledger snapshot", zap.Error(err))
	}

	logger.Logger.Info("All storage connections closed")
}
