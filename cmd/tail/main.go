package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hollowbrook/reverie/internal/feed"
)

// tail follows one topic of a running simulation's Redis feed and prints
// every item, so a run can be watched without attaching to its process.
func main() {
	_ = godotenv.Load()

	var (
		redisURL = flag.String("redis", os.Getenv("REDIS_URL"), "redis connection url")
		topic    = flag.String("topic", feed.TopicNarrations, "feed topic: actions, chats or narrations")
	)
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	if *redisURL == "" {
		logger.Fatal("redis url required, set -redis or REDIS_URL")
	}

	f, err := feed.New(*redisURL, logger)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer f.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		cancel()
	}()

	logger.Info("tailing feed", zap.String("topic", *topic))
	for item := range f.Subscribe(ctx, *topic) {
		stamp := item.SimTime.Format("2006-01-02 15:04")
		if item.Agent != "" {
			fmt.Printf("[%s] %s: %s\n", stamp, item.Agent, item.Text)
		} else {
			fmt.Printf("[%s] %s\n", stamp, item.Text)
		}
	}
}
