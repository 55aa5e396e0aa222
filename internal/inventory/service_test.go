package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-maintenance/internal/apperr"
	"github.com/ukydev/fleet-maintenance/internal/db"
	"github.com/ukydev/fleet-maintenance/internal/db/dbtest"
	"github.com/ukydev/fleet-maintenance/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fixture struct {
	svc     *Service
	store   *dbtest.Store
	actor   *models.Claims
	vehicle *models.Vehicle
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger, _ := logtest.NewNullLogger()
	store := dbtest.New()
	f := &fixture{
		svc:   NewService(store, logrus.NewEntry(logger)),
		store: store,
		actor: &models.Claims{UserID: primitive.NewObjectID().Hex(), TenantID: "org-1", Username: "ana", Role: models.RoleManager},
	}
	f.vehicle = &models.Vehicle{LicensePlate: "BRA2E19", Make: "Volvo", Model: "FH"}
	require.NoError(t, f.svc.CreateVehicle(context.Background(), f.actor, f.vehicle))
	return f
}

func (f *fixture) part(t *testing.T, name string, value *float64, quantity int) (*models.Part, []*models.InventoryItem) {
	t.Helper()
	var part *models.Part
	var items []*models.InventoryItem
	err := f.store.WithTransaction(context.Background(), func(ctx context.Context) error {
		var err error
		part, items, err = f.svc.CreatePart(ctx, f.actor, &models.PartRequest{
			Name: name, Category: models.PartCategoryPart, Value: value, InitialQuantity: quantity,
		})
		return err
	})
	require.NoError(t, err)
	return part, items
}

func price(v float64) *float64 { return &v }

func TestCanTransition(t *testing.T) {
	statuses := []models.InventoryItemStatus{
		models.StatusAvailable, models.StatusInUse, models.StatusEndOfLife, models.StatusMaintenance,
	}
	allowed := map[edge]bool{
		{models.StatusAvailable, models.StatusInUse}:     true,
		{models.StatusAvailable, models.StatusEndOfLife}: true,
		{models.StatusInUse, models.StatusEndOfLife}:     true,
	}
	for _, from := range statuses {
		for _, to := range statuses {
			t.Run(fmt.Sprintf("%s->%s", from, to), func(t *testing.T) {
				assert.Equal(t, allowed[edge{from, to}], CanTransition(from, to))
			})
		}
	}
}

func TestTransitionTable_EveryRuleHasLogCategory(t *testing.T) {
	for e, r := range transitions {
		assert.NotEmpty(t, r.txType, "%s -> %s", e.from, e.to)
		assert.NotEmpty(t, r.steps, "%s -> %s", e.from, e.to)
	}
}

func TestBrakePadScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	part, items := f.part(t, "Brake Pad", price(150), 3)
	require.Len(t, items, 3)
	for i, item := range items {
		assert.Equal(t, i+1, item.ItemIdentifier)
		assert.Equal(t, models.StatusAvailable, item.Status)
	}
	assert.Equal(t, 3, part.Stock)

	var installed *TransitionResult
	err := f.store.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		installed, err = f.svc.ChangeStatus(ctx, f.actor, items[0].ID, models.StatusInUse, ChangeOptions{VehicleID: &f.vehicle.ID})
		return err
	})
	require.NoError(t, err)

	item := installed.Item
	assert.Equal(t, models.StatusInUse, item.Status)
	require.NotNil(t, item.InstalledOnVehicleID)
	assert.Equal(t, f.vehicle.ID, *item.InstalledOnVehicleID)
	assert.NotNil(t, item.InstalledAt)
	assert.Equal(t, models.StatusAvailable, installed.From)
	assert.Equal(t, models.TxInstallation, installed.Transaction.Type)

	active, err := f.svc.VehicleComponents(ctx, f.actor, f.vehicle.ID, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, part.ID, active[0].PartID)
	assert.Equal(t, installed.Transaction.ID, active[0].TransactionID)
	assert.Equal(t, *item.ActiveComponentID, active[0].ID)

	costs, err := f.svc.VehicleCosts(ctx, f.actor, f.vehicle.ID)
	require.NoError(t, err)
	require.Len(t, costs, 1)
	assert.Equal(t, 150.0, costs[0].Amount)
	assert.Equal(t, models.CostParts, costs[0].Category)
	assert.Equal(t, "Installation: Brake Pad (item #1)", costs[0].Description)

	var disposed *TransitionResult
	err = f.store.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		disposed, err = f.svc.ChangeStatus(ctx, f.actor, items[0].ID, models.StatusEndOfLife, ChangeOptions{})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusEndOfLife, disposed.Item.Status)
	assert.Nil(t, disposed.Item.InstalledOnVehicleID)
	assert.Nil(t, disposed.Item.InstalledAt)
	assert.Nil(t, disposed.Item.ActiveComponentID)
	require.NotNil(t, disposed.Transaction.RelatedVehicleID)
	assert.Equal(t, f.vehicle.ID, *disposed.Transaction.RelatedVehicleID)

	active, err = f.svc.VehicleComponents(ctx, f.actor, f.vehicle.ID, true)
	require.NoError(t, err)
	assert.Empty(t, active)
	all, err := f.svc.VehicleComponents(ctx, f.actor, f.vehicle.ID, false)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.False(t, all[0].IsActive)
	assert.NotNil(t, all[0].UninstallationDate)

	details, err := f.svc.GetItemDetails(ctx, f.actor, items[0].ID)
	require.NoError(t, err)
	var types []models.TransactionType
	for _, tx := range details.Transactions {
		types = append(types, tx.Type)
	}
	assert.Equal(t, []models.TransactionType{models.TxIntake, models.TxInstallation, models.TxEndOfLife}, types)
	assert.Equal(t, "Brake Pad", details.Part.Name)
}

func TestChangeStatus_RejectedTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, items := f.part(t, "Battery", nil, 3)

	_, err := f.svc.ChangeStatus(ctx, f.actor, items[0].ID, models.StatusInUse, ChangeOptions{VehicleID: &f.vehicle.ID})
	require.NoError(t, err)
	_, err = f.svc.ChangeStatus(ctx, f.actor, items[1].ID, models.StatusEndOfLife, ChangeOptions{})
	require.NoError(t, err)

	tests := []struct {
		name   string
		item   *models.InventoryItem
		target models.InventoryItemStatus
		kind   apperr.Kind
	}{
		{"in use to in use", items[0], models.StatusInUse, apperr.KindInvalidTransition},
		{"in use to available", items[0], models.StatusAvailable, apperr.KindInvalidTransition},
		{"end of life is terminal", items[1], models.StatusAvailable, apperr.KindInvalidTransition},
		{"end of life to end of life", items[1], models.StatusEndOfLife, apperr.KindInvalidTransition},
		{"maintenance is reserved", items[2], models.StatusMaintenance, apperr.KindInvalidTransition},
		{"available to available", items[2], models.StatusAvailable, apperr.KindInvalidTransition},
		{"unknown status", items[2], "BROKEN", apperr.KindInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(f.store.AllTransactions())
			_, err := f.svc.ChangeStatus(ctx, f.actor, tt.item.ID, tt.target, ChangeOptions{VehicleID: &f.vehicle.ID})
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
			assert.Len(t, f.store.AllTransactions(), before)
		})
	}

	_, err = f.svc.ChangeStatus(ctx, f.actor, items[0].ID, models.StatusInUse, ChangeOptions{VehicleID: &f.vehicle.ID})
	assert.Contains(t, err.Error(), items[0].ID.Hex())
	assert.Contains(t, err.Error(), "EM_USO")
}

func TestChangeStatus_CostAccrual(t *testing.T) {
	tests := []struct {
		name  string
		value *float64
		want  int
	}{
		{"valued part", price(150), 1},
		{"no value", nil, 0},
		{"zero value", price(0), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, items := f.part(t, "Filter", tt.value, 1)
			res, err := f.svc.ChangeStatus(context.Background(), f.actor, items[0].ID, models.StatusInUse, ChangeOptions{VehicleID: &f.vehicle.ID})
			require.NoError(t, err)
			assert.Len(t, f.store.AllCosts(), tt.want)
			assert.Equal(t, tt.want == 1, res.Cost != nil)
		})
	}
}

func TestChangeStatus_DisposeNeverInstalled(t *testing.T) {
	f := newFixture(t)
	_, items := f.part(t, "Tire", price(900), 1)

	res, err := f.svc.ChangeStatus(context.Background(), f.actor, items[0].ID, models.StatusEndOfLife, ChangeOptions{Notes: "damaged in storage"})
	require.NoError(t, err)
	assert.Nil(t, res.Component)
	assert.Nil(t, res.Transaction.RelatedVehicleID)
	assert.Equal(t, "damaged in storage", res.Transaction.Notes)
	assert.Empty(t, f.store.AllComponents())
	assert.Empty(t, f.store.AllCosts())
}

func TestChangeStatus_DisposeDeactivatesOnlyOwnComponent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, items := f.part(t, "Tire", nil, 2)
	for _, item := range items {
		_, err := f.svc.ChangeStatus(ctx, f.actor, item.ID, models.StatusInUse, ChangeOptions{VehicleID: &f.vehicle.ID})
		require.NoError(t, err)
	}

	_, err := f.svc.ChangeStatus(ctx, f.actor, items[1].ID, models.StatusEndOfLife, ChangeOptions{})
	require.NoError(t, err)

	active, err := f.svc.VehicleComponents(ctx, f.actor, f.vehicle.ID, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, items[0].ID, active[0].ItemID)
}

func TestChangeStatus_InstallRequiresVehicleOfTenant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, items := f.part(t, "Alternator", nil, 1)

	_, err := f.svc.ChangeStatus(ctx, f.actor, items[0].ID, models.StatusInUse, ChangeOptions{})
	assert.True(t, apperr.Is(err, apperr.KindInvalid))

	foreign := &models.Vehicle{LicensePlate: "XYZ0000"}
	other := &models.Claims{UserID: primitive.NewObjectID().Hex(), TenantID: "org-2", Role: models.RoleManager}
	require.NoError(t, f.svc.CreateVehicle(ctx, other, foreign))

	err = f.store.WithTransaction(ctx, func(ctx context.Context) error {
		_, err := f.svc.ChangeStatus(ctx, f.actor, items[0].ID, models.StatusInUse, ChangeOptions{VehicleID: &foreign.ID})
		return err
	})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	got, err := f.store.Items().FindItemByID(ctx, "org-1", items[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAvailable, got.Status)
}

func TestChangeStatus_OtherTenantItemIsNotFound(t *testing.T) {
	f := newFixture(t)
	_, items := f.part(t, "Battery", nil, 1)
	other := &models.Claims{UserID: primitive.NewObjectID().Hex(), TenantID: "org-2", Role: models.RoleManager}

	_, err := f.svc.ChangeStatus(context.Background(), other, items[0].ID, models.StatusEndOfLife, ChangeOptions{})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestChangeStatus_FailedStepRollsBackEverything(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, items := f.part(t, "Brake Pad", price(150), 1)
	txsBefore := len(f.store.AllTransactions())

	f.store.FailOn["InsertCost"] = errors.New("disk full")
	err := f.store.WithTransaction(ctx, func(ctx context.Context) error {
		_, err := f.svc.ChangeStatus(ctx, f.actor, items[0].ID, models.StatusInUse, ChangeOptions{VehicleID: &f.vehicle.ID})
		return err
	})
	require.Error(t, err)

	got, err := f.store.Items().FindItemByID(ctx, "org-1", items[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAvailable, got.Status)
	assert.Nil(t, got.InstalledOnVehicleID)
	assert.Len(t, f.store.AllTransactions(), txsBefore)
	assert.Empty(t, f.store.AllComponents())
}

func TestChangeStatus_StaleItemIsConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, items := f.part(t, "Battery", nil, 1)

	first, err := f.store.Items().FindItemByID(ctx, "org-1", items[0].ID)
	require.NoError(t, err)
	second := *first

	_, err = f.svc.Transition(ctx, f.actor, first, models.StatusInUse, ChangeOptions{VehicleID: &f.vehicle.ID})
	require.NoError(t, err)
	_, err = f.svc.Transition(ctx, f.actor, &second, models.StatusInUse, ChangeOptions{VehicleID: &f.vehicle.ID})
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestCreateItems_SequentialIdentifiers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	part, _ := f.part(t, "Oil Filter", nil, 3)

	items, err := f.svc.AddItems(ctx, f.actor, part.ID, 2, "")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 4, items[0].ItemIdentifier)
	assert.Equal(t, 5, items[1].ItemIdentifier)

	intake := 0
	for _, tx := range f.store.AllTransactions() {
		if tx.Type == models.TxIntake {
			intake++
		}
	}
	assert.Equal(t, 5, intake)

	_, err = f.svc.AddItems(ctx, f.actor, part.ID, 0, "")
	assert.True(t, apperr.Is(err, apperr.KindInvalid))
}

func TestCreateItems_IdentifiersNotReusedAfterDisposal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	part, items := f.part(t, "Oil Filter", nil, 2)
	_, err := f.svc.ChangeStatus(ctx, f.actor, items[1].ID, models.StatusEndOfLife, ChangeOptions{})
	require.NoError(t, err)

	more, err := f.svc.AddItems(ctx, f.actor, part.ID, 1, "restock")
	require.NoError(t, err)
	assert.Equal(t, 3, more[0].ItemIdentifier)
}

func TestCreateItems_ConcurrentBatches(t *testing.T) {
	f := newFixture(t)
	part, _ := f.part(t, "Spark Plug", nil, 0)

	const workers, perBatch = 8, 5
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- f.store.WithTransaction(context.Background(), func(ctx context.Context) error {
				_, err := f.svc.AddItems(ctx, f.actor, part.ID, perBatch, "")
				return err
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	items, err := f.svc.ListItems(context.Background(), f.actor, ItemQuery{PartID: &part.ID})
	require.NoError(t, err)
	ids := make([]int, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ItemIdentifier)
	}
	sort.Ints(ids)
	require.Len(t, ids, workers*perBatch)
	for i, id := range ids {
		assert.Equal(t, i+1, id)
	}
}

func TestCatalog(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	part, items := f.part(t, "Brake Pad", price(150), 2)
	f.part(t, "Air Filter", nil, 0)

	parts, err := f.svc.ListParts(ctx, f.actor, "brake")
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.Equal(t, 2, parts[0].Stock)

	_, err = f.svc.ChangeStatus(ctx, f.actor, items[0].ID, models.StatusInUse, ChangeOptions{VehicleID: &f.vehicle.ID})
	require.NoError(t, err)
	got, err := f.svc.GetPart(ctx, f.actor, part.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Stock)
	assert.Equal(t, 2, got.LastItemIdentifier)

	updated, err := f.svc.UpdatePart(ctx, f.actor, part.ID, &models.PartRequest{Name: "Brake Pad XL", Category: models.PartCategoryPart, MinimumStock: 2})
	require.NoError(t, err)
	assert.Equal(t, "Brake Pad XL", updated.Name)

	level, err := f.svc.StockLevel(ctx, "org-1", part.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, level.Available)
	assert.True(t, level.Low())

	err = f.svc.DeletePart(ctx, f.actor, part.ID)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, _, err = f.svc.CreatePart(ctx, f.actor, &models.PartRequest{Name: "Bad", Category: "WHEEL"})
	assert.True(t, apperr.Is(err, apperr.KindInvalid))
}

func TestDeletePart_WithoutItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	part, _ := f.part(t, "Wiper", nil, 0)

	require.NoError(t, f.svc.DeletePart(ctx, f.actor, part.ID))
	_, err := f.svc.GetPart(ctx, f.actor, part.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	_, err = f.store.Parts().FindPartByID(ctx, "org-1", part.ID)
	assert.ErrorIs(t, err, db.ErrNotFound)
}
