package notify

import (
	"github.com/allevapp/allevapp/internal/farms"
	"github.com/allevapp/allevapp/internal/orders"
	"github.com/allevapp/allevapp/internal/reports"
	"github.com/allevapp/allevapp/internal/users"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewService wires the Postgres-backed sources.
func NewService(db *pgxpool.Pool, mailer Mailer, marks Marks, appURL, serviceName string) *Service {
	ords := &orders.Repo{DB: db}
	return &Service{
		Mailer:      mailer,
		Quotes:      ords,
		Orders:      ords,
		Reports:     &reports.Repo{DB: db},
		Maintenance: farms.MaintenanceStore{DB: db},
		Recipients:  &users.Repo{DB: db},
		EmailLog:    &EmailLogRepo{DB: db},
		Marks:       marks,
		AppURL:      appURL,
		ServiceName: serviceName,
	}
}
