package main

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-maintenance/internal/config"
	"github.com/ukydev/fleet-maintenance/internal/db/dbtest"
	"github.com/ukydev/fleet-maintenance/internal/inventory"
	"github.com/ukydev/fleet-maintenance/internal/models"
)

func TestNewLogger(t *testing.T) {
	dev := newLogger(&config.Config{Environment: "development"})
	assert.Equal(t, logrus.DebugLevel, dev.Logger.GetLevel())
	assert.Equal(t, "fleet-maintenance", dev.Data["service"])

	prod := newLogger(&config.Config{Environment: "production"})
	assert.Equal(t, logrus.InfoLevel, prod.Logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, prod.Logger.Formatter)
}

func TestBuildDispatchers(t *testing.T) {
	unreachable := func(broker, clientID string) (mqtt.Client, error) {
		return nil, errors.New("connection refused")
	}

	tests := []struct {
		name      string
		cfg       config.Config
		want      int
		wantWarns int
	}{
		{
			name:      "nothing configured",
			cfg:       config.Config{},
			want:      0,
			wantWarns: 1,
		},
		{
			name:      "unreachable broker is skipped",
			cfg:       config.Config{MQTTBroker: "tcp://localhost:1883"},
			want:      0,
			wantWarns: 2,
		},
		{
			name: "smtp only",
			cfg:  config.Config{SMTPHost: "smtp.example.com", SMTPPort: 587, SMTPFrom: "fleet@example.com"},
			want: 1,
		},
		{
			name:      "broker down, smtp up",
			cfg:       config.Config{MQTTBroker: "tcp://localhost:1883", SMTPHost: "smtp.example.com"},
			want:      1,
			wantWarns: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, hook := test.NewNullLogger()
			dispatchers, client := buildDispatchers(&tt.cfg, dbtest.New(), logrus.NewEntry(logger), unreachable)
			assert.Len(t, dispatchers, tt.want)
			assert.Nil(t, client)

			warns := 0
			for _, e := range hook.AllEntries() {
				if e.Level == logrus.WarnLevel {
					warns++
				}
			}
			assert.Equal(t, tt.wantWarns, warns)
		})
	}
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	logger, _ := test.NewNullLogger()
	srv := &http.Server{
		Addr:    "127.0.0.1:0",
		Handler: http.NotFoundHandler(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, srv, logrus.NewEntry(logger)) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServe_ReportsListenError(t *testing.T) {
	logger, _ := test.NewNullLogger()
	srv := &http.Server{Addr: "256.0.0.1:bad"}

	err := serve(context.Background(), srv, logrus.NewEntry(logger))
	assert.Error(t, err)
}

func TestNewServices_ComponentFields(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	entry := logrus.NewEntry(logger).WithField("service", "fleet-maintenance")
	store := dbtest.New()
	inv, mnt := newServices(store, entry)
	require.NotNil(t, mnt)

	ctx := context.Background()
	actor := &models.Claims{UserID: "64b000000000000000000001", TenantID: "org-1", Username: "ana", Role: models.RoleManager}
	vehicle := &models.Vehicle{LicensePlate: "BRA2E19"}
	require.NoError(t, inv.CreateVehicle(ctx, actor, vehicle))
	_, items, err := inv.CreatePart(ctx, actor, &models.PartRequest{Name: "Oil Filter", Category: models.PartCategoryConsumable, InitialQuantity: 1})
	require.NoError(t, err)
	_, err = inv.ChangeStatus(ctx, actor, items[0].ID, models.StatusInUse, inventory.ChangeOptions{VehicleID: &vehicle.ID})
	require.NoError(t, err)

	last := hook.LastEntry()
	require.NotNil(t, last)
	assert.Equal(t, "item transition staged", last.Message)
	assert.Equal(t, "inventory", last.Data["component"])
	assert.Equal(t, "fleet-maintenance", last.Data["service"])
}
