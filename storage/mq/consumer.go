package mq

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"OnTrack/pkg/logger"
)

type MessageHandler func([]byte) error

type ConsumeOptions struct {
	Queue         string
	BindingKeys   []string // 绑定到变更 exchange 的 routing key 列表
	ConsumerTag   string
	PrefetchCount int
	Handler       MessageHandler
}

// Consume 声明一个独占的临时队列并消费，ctx 取消时退出。
// 订阅层每次前台恢复都会重建，所以队列是 auto-delete 的。
func Consume(ctx context.Context, opts ConsumeOptions) error {
	conn := Connection()

	if conn == nil {
		return fmt.Errorf("RabbitMQ connection is nil")
	}

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if opts.PrefetchCount > 0 {
		if err := ch.Qos(opts.PrefetchCount, 0, false); err != nil {
			return fmt.Errorf("failed to set QoS: %w", err)
		}
	}

	q, err := ch.QueueDeclare(
		opts.Queue,
		false, // durable
		true,  // auto-delete
		true,  // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	for _, key := range opts.BindingKeys {
		if err := ch.QueueBind(q.Name, key, ChangesExchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue: %w", err)
		}
	}

	msgs, err := ch.Consume(
		q.Name,
		opts.ConsumerTag,
		false, // auto-ack = false
		true,  // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	logger.Logger.Info("Started consuming messages",
		zap.String("queue", q.Name),
		zap.String("consumer_tag", opts.ConsumerTag),
		zap.Strings("binding_keys", opts.BindingKeys),
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			if err := opts.Handler(msg.Body); err != nil {
				logger.Logger.Error("Failed to process message",
					zap.String("queue", q.Name),
					zap.String("consumer_tag", opts.ConsumerTag),
					zap.Error(err),
				)

				msg.Nack(false, false) // 事件流是快照触发器，丢弃即可，下一个事件会补偿
				continue
			}

			msg.Ack(false)
		}
	}
}
