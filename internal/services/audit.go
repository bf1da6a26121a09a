package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/asvo/qmscore-backend/internal/pkg/dbctx"
	"github.com/asvo/qmscore-backend/internal/pkg/logger"
	"github.com/asvo/qmscore-backend/internal/pkg/qmserr"
	"github.com/asvo/qmscore-backend/internal/repos"
	"github.com/asvo/qmscore-backend/internal/types"
)

// genesisHash seeds the chain: the first entry links back to 64 zeros.
const genesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// AuditEvent is one loggable action. Metadata must be JSON-serializable.
type AuditEvent struct {
	UserID      *uuid.UUID
	Action      string
	Entity      string
	EntityID    *uuid.UUID
	Description string
	Severity    string
	Metadata    map[string]interface{}
}

// ChainReport is the result of walking the full audit chain.
type ChainReport struct {
	Entries    int64  `json:"entries"`
	Valid      bool   `json:"valid"`
	BrokenAt   *int64 `json:"broken_at,omitempty"`
	BreakCause string `json:"break_cause,omitempty"`
}

type AuditService interface {
	Log(ctx context.Context, event AuditEvent) (*types.AuditLog, error)
	Verify(ctx context.Context) (*ChainReport, error)
}

type auditService struct {
	db           *gorm.DB
	log          *logger.Logger
	runner       repos.TxRunner
	auditLogRepo repos.AuditLogRepo

	// appendMu serializes chain appends so chainIndex allocation cannot race
	// within this process. Cross-process writers rely on the unique index.
	appendMu sync.Mutex
}

func NewAuditService(db *gorm.DB, log *logger.Logger, runner repos.TxRunner, auditLogRepo repos.AuditLogRepo) AuditService {
	serviceLog := log.With("service", "AuditService")
	if runner == nil {
		runner = repos.NewGormTxRunner(db)
	}
	return &auditService{
		db:           db,
		log:          serviceLog,
		runner:       runner,
		auditLogRepo: auditLogRepo,
	}
}

func (as *auditService) Log(ctx context.Context, event AuditEvent) (*types.AuditLog, error) {
	if strings.TrimSpace(event.Action) == "" {
		return nil, qmserr.New(qmserr.CodeValidation, "audit.log", "audit event requires an action")
	}

	as.appendMu.Lock()
	defer as.appendMu.Unlock()

	var metaJSON datatypes.JSON
	if len(event.Metadata) > 0 {
		raw, err := json.Marshal(event.Metadata)
		if err != nil {
			return nil, qmserr.Wrap(qmserr.CodeInternal, "audit.log", err)
		}
		metaJSON = datatypes.JSON(raw)
	}

	severity := event.Severity
	if severity == "" {
		severity = types.NotifySeverityInfo
	}

	now := time.Now().UTC()
	dataHash := computeDataHash(event, metaJSON, now)

	var entry *types.AuditLog
	err := as.runner.InTx(ctx, func(dbc dbctx.Context) error {
		last, err := as.auditLogRepo.GetLast(dbc)
		if err != nil {
			return err
		}
		prevHash := genesisHash
		var chainIndex int64 = 1
		if last != nil {
			prevHash = last.CurrentHash
			chainIndex = last.ChainIndex + 1
		}

		entry = &types.AuditLog{
			ChainIndex:  chainIndex,
			PrevHash:    prevHash,
			DataHash:    dataHash,
			CurrentHash: computeChainHash(chainIndex, prevHash, dataHash),
			UserID:      event.UserID,
			Action:      event.Action,
			Entity:      event.Entity,
			EntityID:    event.EntityID,
			Description: event.Description,
			Severity:    severity,
			Metadata:    metaJSON,
			CreatedAt:   now,
		}
		_, err = as.auditLogRepo.Append(dbc, entry)
		return err
	})
	if err != nil {
		as.log.Error("Audit chain append failed", "action", event.Action, "error", err)
		return nil, qmserr.MapError("audit.log", err)
	}
	return entry, nil
}

// Verify walks the whole chain in order and reports the first break: a gap
// in chain indexes, a prev-hash mismatch, or a recomputed hash mismatch.
func (as *auditService) Verify(ctx context.Context) (*ChainReport, error) {
	dbc := dbctx.Context{Ctx: ctx}

	entries, err := as.auditLogRepo.GetRange(dbc, 1, -1)
	if err != nil {
		return nil, qmserr.MapError("audit.verify", err)
	}

	report := &ChainReport{Entries: int64(len(entries)), Valid: true}
	prevHash := genesisHash
	var expectedIndex int64 = 1

	for _, entry := range entries {
		switch {
		case entry.ChainIndex != expectedIndex:
			report.markBroken(entry.ChainIndex, "chain index gap")
		case entry.PrevHash != prevHash:
			report.markBroken(entry.ChainIndex, "prev hash mismatch")
		case computeChainHash(entry.ChainIndex, entry.PrevHash, entry.DataHash) != entry.CurrentHash:
			report.markBroken(entry.ChainIndex, "chain hash mismatch")
		}
		if !report.Valid {
			return report, nil
		}
		prevHash = entry.CurrentHash
		expectedIndex++
	}
	return report, nil
}

func (cr *ChainReport) markBroken(index int64, cause string) {
	cr.Valid = false
	cr.BrokenAt = &index
	cr.BreakCause = cause
}

func computeDataHash(event AuditEvent, metadata datatypes.JSON, createdAt time.Time) string {
	userID := ""
	if event.UserID != nil {
		userID = event.UserID.String()
	}
	entityID := ""
	if event.EntityID != nil {
		entityID = event.EntityID.String()
	}
	payload := strings.Join([]string{
		userID,
		event.Action,
		event.Entity,
		entityID,
		event.Description,
		string(metadata),
		createdAt.Format(time.RFC3339Nano),
	}, "|")
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

func computeChainHash(chainIndex int64, prevHash, dataHash string) string {
	payload := fmt.Sprintf("%d:%s:%s", chainIndex, prevHash, dataHash)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}
