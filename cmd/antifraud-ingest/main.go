package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/maydaypets/platform/internal/domain"
	"github.com/maydaypets/platform/internal/infra"
	"github.com/maydaypets/platform/internal/repository"
)

// antifraud-ingest consumes verdicts published by the antifraud
// platform and appends them to the subjects' event logs, where they
// become facts the gate replays.

const (
	topic   = "mayday.antifraud.verdicts"
	groupID = "alert-antifraud-ingest"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("antifraud-ingest failed", "error", err)
		os.Exit(1)
	}
}

type verdictMessage struct {
	SubjectID uuid.UUID        `json:"subject_id"`
	EventType domain.EventType `json:"event_type"`
	Payload   json.RawMessage  `json:"payload"`
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pool, err := infra.NewPostgresPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	logger.Info("antifraud-ingest connected to postgres")

	consumer := infra.NewKafkaConsumer(cfg.KafkaBrokers, topic, groupID, cfg.KafkaEnabled, logger)
	defer consumer.Close()

	eventLog := repository.NewPgEventLog(pool)
	logger.Info("antifraud-ingest starting", "topic", topic, "group_id", groupID)

	for {
		msg, err := consumer.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				logger.Info("antifraud-ingest shutting down")
				return nil
			}
			logger.Error("read message failed", "error", err)
			continue
		}

		var v verdictMessage
		if err := json.Unmarshal(msg.Value, &v); err != nil {
			logger.Error("malformed verdict dropped", "offset", msg.Offset, "error", err)
			continue
		}

		ev, err := domain.DecodeEvent(v.EventType, v.Payload)
		if err != nil {
			logger.Error("unprocessable verdict dropped", "event_type", v.EventType, "error", err)
			continue
		}

		rec, err := domain.NewEventRecord(v.SubjectID, ev)
		if err != nil {
			logger.Error("build event record failed", "subject_id", v.SubjectID, "error", err)
			continue
		}
		if _, err := eventLog.Append(ctx, rec, nil); err != nil {
			logger.Error("append verdict failed", "subject_id", v.SubjectID, "event_type", v.EventType, "error", err)
			continue
		}

		logger.Info("verdict appended", "subject_id", v.SubjectID, "event_type", v.EventType)
	}
}
