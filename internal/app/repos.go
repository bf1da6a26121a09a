package app

import (
	"gorm.io/gorm"

	"github.com/asvo/qmscore-backend/internal/pkg/logger"
	"github.com/asvo/qmscore-backend/internal/repos"
)

type Repos struct {
	TxRunner          repos.TxRunner
	User              repos.UserRepo
	Unit              repos.UnitRepo
	Operation         repos.OperationRepo
	RouteStep         repos.RouteStepRepo
	StepChecklist     repos.StepChecklistRepo
	ChecklistResponse repos.ChecklistResponseRepo
	Equipment         repos.EquipmentRepo
	Nonconformity     repos.NonconformityRepo
	Capa              repos.CapaRepo
	Notification      repos.NotificationRepo
	DHR               repos.DHRRepo
	AuditLog          repos.AuditLogRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		TxRunner:          repos.NewGormTxRunner(db),
		User:              repos.NewUserRepo(db, log),
		Unit:              repos.NewUnitRepo(db, log),
		Operation:         repos.NewOperationRepo(db, log),
		RouteStep:         repos.NewRouteStepRepo(db, log),
		StepChecklist:     repos.NewStepChecklistRepo(db, log),
		ChecklistResponse: repos.NewChecklistResponseRepo(db, log),
		Equipment:         repos.NewEquipmentRepo(db, log),
		Nonconformity:     repos.NewNonconformityRepo(db, log),
		Capa:              repos.NewCapaRepo(db, log),
		Notification:      repos.NewNotificationRepo(db, log),
		DHR:               repos.NewDHRRepo(db, log),
		AuditLog:          repos.NewAuditLogRepo(db, log),
	}
}
