// Package events appends audit records inside the transaction that caused them.
package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Event types written by the engine.
const (
	TrainCreated          = "train.created"
	TrainStatusChanged    = "train.status"
	WorkOrderCreated      = "workorder.created"
	WorkOrderTransition   = "workorder.transition"
	CertificateAdded      = "certificate.added"
	CertificateRevoked    = "certificate.revoked"
	CertificatesExpired   = "certificate.expired"
	ContractCreated       = "contract.created"
	BrandingAssigned      = "branding.assigned"
	BrandingStatusChanged = "branding.status"
	BayCreated            = "bay.created"
	BayAssigned           = "bay.assigned"
	BayReleased           = "bay.released"
	TripLogged            = "trip.logged"
	AccrualApplied        = "accrual.applied"
	CleaningScheduled     = "cleaning.scheduled"
	CleaningCompleted     = "cleaning.completed"
)

type Writer struct {
	Now func() time.Time
}

type EventPayload map[string]any

func (w Writer) Append(ctx context.Context, tx *sql.Tx, evtType, entityKind, entityID, actorID string, payload EventPayload) error {
	if tx == nil {
		return fmt.Errorf("append %s: transaction required", evtType)
	}
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	if payload == nil {
		payload = EventPayload{}
	}
	if actorID == "" {
		actorID = "system"
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO events(ts,type,entity_kind,entity_id,actor_id,payload_json) VALUES (?,?,?,?,?,?)`,
		now().UTC().Format(time.RFC3339), evtType, entityKind, nullable(entityID), actorID, string(data))
	return err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
