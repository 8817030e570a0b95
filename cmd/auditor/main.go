package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/osool/allowance-gateway/internal/audit"
	"github.com/osool/allowance-gateway/internal/config"
	"github.com/osool/allowance-gateway/pkg/logger"
	"github.com/osool/allowance-gateway/pkg/redis"
)

func main() {
	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}

	redisAdap, err := redis.NewRedisAdapter("auditor", config.Get().RedisUniversalKeyPrefix, &redis.Options{
		Addrs:      []string{config.Get().RedisAddr},
		ClientName: "auditor",
		DB:         config.Get().RedisDatabase,
		Username:   config.Get().RedisUsername,
		Password:   config.Get().RedisPassword,
	})
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	consumerName := config.Get().AuditConsumerName
	if consumerName == "" {
		hostname, _ := os.Hostname()
		consumerName = fmt.Sprintf("auditor-%s-%d", hostname, os.Getpid())
	}

	consumer, err := audit.NewConsumer(redisAdap, audit.ConsumerConfig{
		Stream:       config.Get().AuditStreamName,
		Group:        config.Get().AuditConsumerGroup,
		Consumer:     consumerName,
		PollInterval: config.Get().AuditPollInterval,
	})
	if err != nil {
		logger.Error("failed creating audit consumer", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		logger.Info("shutting down auditor")
		cancel()
	}()

	logger.Info("auditor started",
		"stream", config.Get().AuditStreamName,
		"group", config.Get().AuditConsumerGroup,
		"consumer", consumerName)

	consumer.Run(ctx, func(ctx context.Context, id string, event audit.Event) error {
		logger.Info("audit event",
			"id", id,
			"action", event.Action,
			"at", event.At.Format(time.RFC3339),
			"fields", event.Fields)
		return nil
	})
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if strings.Contains(v, "--env=") {
			s := strings.Split(v, "=")
			if _, err := os.Open(s[1]); err != nil {
				logger.Error("failed to open the passed env file, got error" + err.Error())
				return ""
			}
			return s[1]
		}
	}
	return ""
}
