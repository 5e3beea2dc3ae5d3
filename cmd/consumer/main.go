package main // Entry point of the event log consumer

import (
    "context"
    "os"
    "os/signal"
    "syscall"

    "github.com/joho/godotenv" // loads .env for local runs

    "github.com/iliyamo/parkall/internal/logger"
    "github.com/iliyamo/parkall/internal/queue"
)

// The consumer drains the spot events queue and appends one line per
// event to logs/parking-events.log.  It reads only RABBITMQ_URL,
// EVENTS_LOG_DIR and LOG_LEVEL, so it does not need the API's database
// settings.
func main() {
    _ = godotenv.Load()
    log := logger.SetupDefault(os.Stdout, logger.ParseLevel(os.Getenv("LOG_LEVEL")))

    url := os.Getenv("RABBITMQ_URL")
    if url == "" {
        url = queue.DefaultURL
    }
    dir := os.Getenv("EVENTS_LOG_DIR")
    if dir == "" {
        dir = "logs"
    }

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    log.Info("consumer starting", "queue", queue.EventsQueue, "dir", dir)
    if err := queue.NewConsumer(url, dir, log).Run(ctx); err != nil && ctx.Err() == nil {
        log.Error("consumer stopped", "error", err)
        os.Exit(1)
    }
    log.Info("consumer stopped")
}
