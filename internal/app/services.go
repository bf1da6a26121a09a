package app

import (
	"gorm.io/gorm"

	redisclient "github.com/asvo/qmscore-backend/internal/clients/redis"
	"github.com/asvo/qmscore-backend/internal/pkg/logger"
	"github.com/asvo/qmscore-backend/internal/services"
)

type Services struct {
	Auth       services.AuthService
	Audit      services.AuditService
	DHR        services.DHRService
	Operation  services.OperationService
	Unit       services.UnitService
	Escalation services.EscalationService

	EscalationWorker *services.EscalationWorker
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, bus redisclient.NotificationBus) (Services, error) {
	log.Info("Wiring services...")

	policy, err := services.LoadEscalationPolicy(cfg.SLAPolicyFile)
	if err != nil {
		return Services{}, err
	}

	authService := services.NewAuthService(db, log, r.User, cfg.JWTSecretKey, cfg.AccessTokenTTL)
	auditService := services.NewAuditService(db, log, r.TxRunner, r.AuditLog)
	dhrService := services.NewDHRService(db, log, r.DHR)
	operationService := services.NewOperationService(
		db,
		log,
		r.TxRunner,
		r.Operation,
		r.Unit,
		r.RouteStep,
		r.StepChecklist,
		r.ChecklistResponse,
		r.Equipment,
		r.Nonconformity,
		dhrService,
		auditService,
		cfg.AutoNCDueDays,
	)
	unitService := services.NewUnitService(db, log, r.TxRunner, r.Unit, r.Operation, auditService)
	escalationService := services.NewEscalationService(
		db,
		log,
		r.TxRunner,
		r.Nonconformity,
		r.Capa,
		r.User,
		r.Notification,
		auditService,
		bus,
		policy,
	)
	escalationWorker := services.NewEscalationWorker(log, escalationService, cfg.EscalationInterval)

	return Services{
		Auth:             authService,
		Audit:            auditService,
		DHR:              dhrService,
		Operation:        operationService,
		Unit:             unitService,
		Escalation:       escalationService,
		EscalationWorker: escalationWorker,
	}, nil
}
