package main

import (
	"os"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/maidlink/paycore/internal/clock"
	"github.com/maidlink/paycore/internal/config"
	"github.com/maidlink/paycore/internal/contactfee"
	"github.com/maidlink/paycore/internal/credit"
	"github.com/maidlink/paycore/internal/idempotency"
	"github.com/maidlink/paycore/internal/migration"
	"github.com/maidlink/paycore/internal/observability"
	"github.com/maidlink/paycore/internal/payment"
	"github.com/maidlink/paycore/internal/purchase"
	"github.com/maidlink/paycore/internal/scheduler"
	"github.com/maidlink/paycore/internal/server"
	"github.com/maidlink/paycore/internal/subscription"
	"github.com/maidlink/paycore/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Functional domains
		credit.Module,
		idempotency.Module,
		contactfee.Module,
		payment.Module,
		purchase.Module,
		subscription.Module,
		scheduler.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	nodeID := int64(1)
	if raw := os.Getenv("SNOWFLAKE_NODE_ID"); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil {
			nodeID = parsed
		}
	}
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		panic(err)
	}
	return node
}
