package mq

import (
	"context"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"OnTrack/config"
)

// ChangesExchange 所有表变更事件走这一个 topic exchange，
// routing key 形如 change.<table>.<profile_id>。
const ChangesExchange = "ontrack.changes"

var (
	conn    *amqp.Connection
	mqOnce  sync.Once
	initErr error
)

func Init() error {
	mqOnce.Do(func() {
		url := config.Cfg.GetRabbitMQURL()
		conn, initErr = amqp.Dial(url)
		if initErr != nil {
			return
		}

		var ch *amqp.Channel
		ch, initErr = conn.Channel()
		if initErr != nil {
			return
		}
		defer ch.Close()

		// 声明变更事件 exchange，幂等
		initErr = ch.ExchangeDeclare(
			ChangesExchange,
			"topic",
			true,  // durable
			false, // auto-delete
			false, // internal
			false, // no-wait
			nil,
		)
	})

	return initErr
}

func Connection() *amqp.Connection {
	return conn
}

func Close(ctx context.Context) error {
	if conn == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- conn.Close()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}
