// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"crypto/ecdsa"
	"net/http"

	"github.com/clinicaudit/ledger/app/services/auditnode/handlers/v1/auditgrp"
	"github.com/clinicaudit/ledger/business/core/audit"
	"github.com/clinicaudit/ledger/foundation/events"
	"github.com/clinicaudit/ledger/foundation/ledger/state"
	"github.com/clinicaudit/ledger/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log        *zap.SugaredLogger
	Audit      *audit.Core
	Ledger     *state.Ledger
	Evts       *events.Events
	PrivateKey *ecdsa.PrivateKey
}

// Routes binds all the version 1 routes.
func Routes(app *web.App, cfg Config) {
	agh := auditgrp.Handlers{
		Log:        cfg.Log,
		Audit:      cfg.Audit,
		Ledger:     cfg.Ledger,
		Evts:       cfg.Evts,
		WS:         websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		PrivateKey: cfg.PrivateKey,
	}

	app.Handle(http.MethodPost, version, "/events", agh.RecordEvent)
	app.Handle(http.MethodPost, version, "/events/health-metric", agh.RecordHealthMetric)
	app.Handle(http.MethodPost, version, "/events/medical-record", agh.RecordMedicalRecord)
	app.Handle(http.MethodPost, version, "/events/prescription", agh.RecordPrescription)
	app.Handle(http.MethodGet, version, "/events/feed", agh.Feed)
	app.Handle(http.MethodGet, version, "/verify", agh.Verify)
	app.Handle(http.MethodGet, version, "/blocks/list", agh.Blocks)
	app.Handle(http.MethodGet, version, "/blocks/list/:from/:to", agh.Blocks)
	app.Handle(http.MethodGet, version, "/blocks/hash/:hash", agh.BlockByHash)
	app.Handle(http.MethodPost, version, "/blocks/hash/:hash/confirm", agh.Confirm)
	app.Handle(http.MethodGet, version, "/checkpoint", agh.Checkpoint)
}
