// Package auditgrp maintains the group of handlers for clinical audit access.
package auditgrp

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/clinicaudit/ledger/business/core/audit"
	"github.com/clinicaudit/ledger/business/sys/validate"
	"github.com/clinicaudit/ledger/business/web/v1/errs"
	"github.com/clinicaudit/ledger/foundation/events"
	"github.com/clinicaudit/ledger/foundation/ledger/database"
	"github.com/clinicaudit/ledger/foundation/ledger/state"
	"github.com/clinicaudit/ledger/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of audit endpoints.
type Handlers struct {
	Log        *zap.SugaredLogger
	Audit      *audit.Core
	Ledger     *state.Ledger
	Evts       *events.Events
	WS         websocket.Upgrader
	PrivateKey *ecdsa.PrivateKey
}

// RecordEvent fingerprints an untyped clinical event into the ledger.
func (h Handlers) RecordEvent(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var ne audit.NewEvent
	if err := web.Decode(r, &ne); err != nil {
		return decodeError(err)
	}

	rcpt, err := h.Audit.Record(ctx, ne)
	if err != nil {
		return toTrusted(err)
	}

	return web.Respond(ctx, w, rcpt, http.StatusCreated)
}

// RecordHealthMetric fingerprints a health metric into the ledger.
func (h Handlers) RecordHealthMetric(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var m newHealthMetric
	if err := web.Decode(r, &m); err != nil {
		return decodeError(err)
	}

	rcpt, err := h.Audit.RecordHealthMetric(ctx, m.SubjectID, m.Data)
	if err != nil {
		return toTrusted(err)
	}

	return web.Respond(ctx, w, rcpt, http.StatusCreated)
}

// RecordMedicalRecord fingerprints a medical record into the ledger.
func (h Handlers) RecordMedicalRecord(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var m newMedicalRecord
	if err := web.Decode(r, &m); err != nil {
		return decodeError(err)
	}

	rcpt, err := h.Audit.RecordMedicalRecord(ctx, m.SubjectID, m.Data)
	if err != nil {
		return toTrusted(err)
	}

	return web.Respond(ctx, w, rcpt, http.StatusCreated)
}

// RecordPrescription fingerprints a prescription into the ledger.
func (h Handlers) RecordPrescription(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var m newPrescription
	if err := web.Decode(r, &m); err != nil {
		return decodeError(err)
	}

	rcpt, err := h.Audit.RecordPrescription(ctx, m.SubjectID, m.Data)
	if err != nil {
		return toTrusted(err)
	}

	return web.Respond(ctx, w, rcpt, http.StatusCreated)
}

// Verify walks the chain and reports its integrity. A broken chain is still
// a successful call; the report carries the failure.
func (h Handlers) Verify(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.Audit.Verify(ctx), http.StatusOK)
}

// Blocks returns the chain or the inclusive range between from and to.
func (h Handlers) Blocks(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	fromStr, toStr := web.Param(r, "from"), web.Param(r, "to")
	if fromStr == "" {
		return web.Respond(ctx, w, toBlocks(h.Ledger.Blocks()), http.StatusOK)
	}

	from, err := strconv.ParseUint(fromStr, 10, 64)
	if err != nil {
		return errs.NewBadRequest(fmt.Errorf("invalid from: %w", err))
	}

	to := uint64(h.Ledger.Length())
	if toStr != "latest" {
		if to, err = strconv.ParseUint(toStr, 10, 64); err != nil {
			return errs.NewBadRequest(fmt.Errorf("invalid to: %w", err))
		}
	}

	if from > to {
		return errs.NewBadRequest(errors.New("from is greater than to"))
	}

	return web.Respond(ctx, w, toBlocks(h.Ledger.BlocksRange(from, to)), http.StatusOK)
}

// BlockByHash returns the block a cross-reference hash points to.
func (h Handlers) BlockByHash(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	b, err := h.Audit.Trace(ctx, web.Param(r, "hash"))
	if err != nil {
		return toTrusted(err)
	}

	return web.Respond(ctx, w, toBlock(b), http.StatusOK)
}

// Confirm checks a payload against the fingerprint sealed in a block.
func (h Handlers) Confirm(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var c confirmation
	if err := web.Decode(r, &c); err != nil {
		return decodeError(err)
	}

	recordType := database.RecordNone
	if c.RecordType != "" {
		rt, err := database.ParseRecordType(c.RecordType)
		if err != nil {
			return errs.NewBadRequest(err)
		}
		recordType = rt
	}

	conf, err := h.Audit.ConfirmPayload(ctx, web.Param(r, "hash"), recordType, c.Payload)
	if err != nil {
		return toTrusted(err)
	}

	return web.Respond(ctx, w, conf, http.StatusOK)
}

// Checkpoint returns a checkpoint of the chain head signed by this node.
func (h Handlers) Checkpoint(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if h.PrivateKey == nil {
		return errs.NewTrusted(errors.New("node has no signing key"), http.StatusServiceUnavailable)
	}

	scp, err := h.Ledger.Checkpoint(h.PrivateKey)
	if err != nil {
		return toTrusted(err)
	}

	return web.Respond(ctx, w, scp, http.StatusOK)
}

// Feed handles a web socket to provide ledger events to a client.
func (h Handlers) Feed(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case evt, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteJSON(evt); err != nil {
				return nil
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// =============================================================================

// decodeError passes validation failures through so they are reported per
// field, everything else is a bad request.
func decodeError(err error) error {
	if validate.IsFieldErrors(err) {
		return err
	}
	return errs.NewBadRequest(err)
}

// toTrusted maps business errors onto the status a client should see.
func toTrusted(err error) error {
	switch {
	case errors.Is(err, audit.ErrNotFound):
		return errs.NewNotFound(err)

	case errors.Is(err, audit.ErrInvalidSubject),
		errors.Is(err, audit.ErrInvalidHash),
		errors.Is(err, state.ErrInvalidSubject),
		errors.Is(err, audit.ErrRecordTypeDiffer),
		errors.Is(err, state.ErrInvalidRecordType):
		return errs.NewBadRequest(err)

	case errors.Is(err, state.ErrChainNotInitialized),
		errors.Is(err, state.ErrShutdown):
		return errs.NewTrusted(err, http.StatusServiceUnavailable)
	}

	return err
}
