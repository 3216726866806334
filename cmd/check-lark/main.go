// Command check-lark sends a sample submission acknowledgment through the
// Lark IM API using the configured app credentials.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/expense-wizard/internal/config"
	"github.com/garyjia/expense-wizard/internal/domain/entity"
	"github.com/garyjia/expense-wizard/internal/domain/wizard"
	"github.com/garyjia/expense-wizard/internal/infrastructure/external/lark"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	openID := flag.String("open-id", "", "Recipient open_id (defaults to notify.lark.receive_open_id)")
	timeout := flag.Duration("timeout", 15*time.Second, "API call timeout")
	flag.Parse()

	fmt.Println("=== Lark IM Notification Check ===")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	larkCfg := lark.Config{
		AppID:     cfg.Notify.Lark.AppID,
		AppSecret: cfg.Notify.Lark.AppSecret,
		ReceiveID: cfg.Notify.Lark.ReceiveOpenID,
		BaseURL:   cfg.Notify.Lark.BaseURL,
	}
	if *openID != "" {
		larkCfg.ReceiveID = *openID
	}
	if err := larkCfg.Validate(); err != nil {
		log.Fatalf("Lark is not configured: %v (set LARK_APP_ID, LARK_APP_SECRET, LARK_RECEIVE_OPEN_ID)", err)
	}
	fmt.Printf("App ID: %s\n", mask(larkCfg.AppID))
	fmt.Printf("Recipient: %s\n\n", larkCfg.ReceiveID)

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	messenger := lark.NewMessenger(lark.NewSDKClient(larkCfg, nil), larkCfg.ReceiveID, logger)

	ack := &wizard.Acknowledgment{
		ReportID:     "check",
		ReportNumber: "EXP-CHECK",
		Status:       entity.StatusSubmitted,
		Total:        42.5,
		LineCount:    2,
		Message:      wizard.SubmittedMessage,
		SubmittedAt:  time.Now(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	fmt.Println("Sending sample acknowledgment...")
	msgID, err := messenger.SendText(ctx, larkCfg.ReceiveID, lark.FormatAcknowledgment(ack))
	if err != nil {
		log.Fatalf("✗ Failed to send message: %v", err)
	}
	fmt.Printf("✓ Message sent! message_id: %s\n", msgID)
}

func mask(s string) string {
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
