// Package dbtest provides an in-memory db.Store for service and handler tests.
//
// Units of work are serialized and roll back to a snapshot when fn fails, which
// matches what a committed or aborted Mongo transaction leaves behind.
package dbtest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ukydev/fleet-maintenance/internal/db"
	"github.com/ukydev/fleet-maintenance/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type txKey struct{}

type data struct {
	parts      map[primitive.ObjectID]models.Part
	items      map[primitive.ObjectID]models.InventoryItem
	txs        []models.InventoryTransaction
	components []models.VehicleComponent
	costs      []models.Cost
	requests   map[primitive.ObjectID]models.MaintenanceRequest
	comments   []models.MaintenanceComment
	vehicles   map[primitive.ObjectID]models.Vehicle
	users      map[primitive.ObjectID]models.User
}

func (d *data) clone() *data {
	c := &data{
		parts:      make(map[primitive.ObjectID]models.Part, len(d.parts)),
		items:      make(map[primitive.ObjectID]models.InventoryItem, len(d.items)),
		txs:        append([]models.InventoryTransaction(nil), d.txs...),
		components: append([]models.VehicleComponent(nil), d.components...),
		costs:      append([]models.Cost(nil), d.costs...),
		requests:   make(map[primitive.ObjectID]models.MaintenanceRequest, len(d.requests)),
		comments:   append([]models.MaintenanceComment(nil), d.comments...),
		vehicles:   make(map[primitive.ObjectID]models.Vehicle, len(d.vehicles)),
		users:      make(map[primitive.ObjectID]models.User, len(d.users)),
	}
	for k, v := range d.parts {
		c.parts[k] = v
	}
	for k, v := range d.items {
		c.items[k] = v
	}
	for k, v := range d.requests {
		c.requests[k] = v
	}
	for k, v := range d.vehicles {
		c.vehicles[k] = v
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	return c
}

// Store is an in-memory db.Store.
type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex
	d    *data

	// FailOn makes the named write (e.g. "InsertComment") return the error.
	FailOn map[string]error
	// Now stamps created/updated times.
	Now func() time.Time
}

var _ db.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		d: &data{
			parts:    map[primitive.ObjectID]models.Part{},
			items:    map[primitive.ObjectID]models.InventoryItem{},
			requests: map[primitive.ObjectID]models.MaintenanceRequest{},
			vehicles: map[primitive.ObjectID]models.Vehicle{},
			users:    map[primitive.ObjectID]models.User{},
		},
		FailOn: map[string]error{},
		Now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithTransaction runs fn against a snapshot-protected view. Nested calls join the outer unit.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.d.clone()
	s.mu.Unlock()

	committed := false
	defer func() {
		if !committed {
			s.mu.Lock()
			s.d = snapshot
			s.mu.Unlock()
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		return err
	}
	committed = true
	return nil
}

func (s *Store) fail(op string) error {
	if err, ok := s.FailOn[op]; ok {
		return err
	}
	return nil
}

func (s *Store) Parts() db.PartCollection               { return partColl{s} }
func (s *Store) Items() db.ItemCollection               { return itemColl{s} }
func (s *Store) Transactions() db.TransactionCollection { return txColl{s} }
func (s *Store) Components() db.ComponentCollection     { return componentColl{s} }
func (s *Store) Costs() db.CostCollection               { return costColl{s} }
func (s *Store) Requests() db.RequestCollection         { return requestColl{s} }
func (s *Store) Comments() db.CommentCollection         { return commentColl{s} }
func (s *Store) Vehicles() db.VehicleCollection         { return vehicleColl{s} }
func (s *Store) Users() db.UserCollection               { return userColl{s} }

// AllTransactions returns the whole movement log in append order.
func (s *Store) AllTransactions() []models.InventoryTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.InventoryTransaction(nil), s.d.txs...)
}

// AllComments returns every comment in append order.
func (s *Store) AllComments() []models.MaintenanceComment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.MaintenanceComment(nil), s.d.comments...)
}

// AllCosts returns every cost in append order.
func (s *Store) AllCosts() []models.Cost {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Cost(nil), s.d.costs...)
}

// AllComponents returns every component in append order.
func (s *Store) AllComponents() []models.VehicleComponent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.VehicleComponent(nil), s.d.components...)
}

type partColl struct{ s *Store }

func (c partColl) InsertPart(_ context.Context, part *models.Part) error {
	if err := c.s.fail("InsertPart"); err != nil {
		return err
	}
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if part.ID.IsZero() {
		part.ID = primitive.NewObjectID()
	}
	now := c.s.Now()
	part.CreatedAt, part.UpdatedAt = now, now
	c.s.d.parts[part.ID] = *part
	return nil
}

func (c partColl) FindPartByID(_ context.Context, tenantID string, id primitive.ObjectID) (*models.Part, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	p, ok := c.s.d.parts[id]
	if !ok || p.TenantID != tenantID {
		return nil, db.ErrNotFound
	}
	return &p, nil
}

func (c partColl) FindParts(_ context.Context, tenantID, search string) ([]models.Part, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	needle := strings.ToLower(search)
	out := []models.Part{}
	for _, p := range c.s.d.parts {
		if p.TenantID != tenantID {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(p.Name), needle) &&
			!strings.Contains(strings.ToLower(p.Brand), needle) &&
			!strings.Contains(strings.ToLower(p.PartNumber), needle) {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (c partColl) UpdatePart(_ context.Context, part *models.Part) error {
	if err := c.s.fail("UpdatePart"); err != nil {
		return err
	}
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	stored, ok := c.s.d.parts[part.ID]
	if !ok || stored.TenantID != part.TenantID {
		return db.ErrNotFound
	}
	part.UpdatedAt = c.s.Now()
	updated := *part
	updated.LastItemIdentifier = stored.LastItemIdentifier
	updated.CreatedAt = stored.CreatedAt
	updated.Stock = 0
	c.s.d.parts[part.ID] = updated
	return nil
}

func (c partColl) DeletePart(_ context.Context, tenantID string, id primitive.ObjectID) error {
	if err := c.s.fail("DeletePart"); err != nil {
		return err
	}
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	p, ok := c.s.d.parts[id]
	if !ok || p.TenantID != tenantID {
		return db.ErrNotFound
	}
	delete(c.s.d.parts, id)
	return nil
}

func (c partColl) ReserveItemIdentifiers(_ context.Context, tenantID string, partID primitive.ObjectID, n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("reserve item identifiers: n must be positive, got %d", n)
	}
	if err := c.s.fail("ReserveItemIdentifiers"); err != nil {
		return 0, err
	}
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	p, ok := c.s.d.parts[partID]
	if !ok || p.TenantID != tenantID {
		return 0, db.ErrNotFound
	}
	first := p.LastItemIdentifier + 1
	p.LastItemIdentifier += n
	c.s.d.parts[partID] = p
	return first, nil
}

type itemColl struct{ s *Store }

func (c itemColl) InsertItems(_ context.Context, items []*models.InventoryItem) error {
	if err := c.s.fail("InsertItems"); err != nil {
		return err
	}
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	for _, item := range items {
		for _, existing := range c.s.d.items {
			if existing.PartID == item.PartID && existing.ItemIdentifier == item.ItemIdentifier {
				return fmt.Errorf("%w: duplicate item identifier %d", db.ErrConflict, item.ItemIdentifier)
			}
		}
	}
	now := c.s.Now()
	for _, item := range items {
		if item.ID.IsZero() {
			item.ID = primitive.NewObjectID()
		}
		item.CreatedAt, item.UpdatedAt = now, now
		c.s.d.items[item.ID] = *item
	}
	return nil
}

func (c itemColl) FindItemByID(_ context.Context, tenantID string, id primitive.ObjectID) (*models.InventoryItem, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	item, ok := c.s.d.items[id]
	if !ok || item.TenantID != tenantID {
		return nil, db.ErrNotFound
	}
	return &item, nil
}

func matchItem(item models.InventoryItem, f db.ItemFilter) bool {
	if item.TenantID != f.TenantID {
		return false
	}
	if f.PartID != nil && item.PartID != *f.PartID {
		return false
	}
	if f.Status != nil && item.Status != *f.Status {
		return false
	}
	if f.VehicleID != nil && (item.InstalledOnVehicleID == nil || *item.InstalledOnVehicleID != *f.VehicleID) {
		return false
	}
	return true
}

func (c itemColl) FindItems(_ context.Context, f db.ItemFilter) ([]models.InventoryItem, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	out := []models.InventoryItem{}
	for _, item := range c.s.d.items {
		if matchItem(item, f) {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PartID != out[j].PartID {
			return out[i].PartID.Hex() < out[j].PartID.Hex()
		}
		return out[i].ItemIdentifier < out[j].ItemIdentifier
	})
	return out, nil
}

func (c itemColl) CountItems(ctx context.Context, f db.ItemFilter) (int64, error) {
	items, err := c.FindItems(ctx, f)
	return int64(len(items)), err
}

func (c itemColl) UpdateItem(_ context.Context, item *models.InventoryItem) error {
	if err := c.s.fail("UpdateItem"); err != nil {
		return err
	}
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	stored, ok := c.s.d.items[item.ID]
	if !ok || stored.TenantID != item.TenantID {
		return db.ErrNotFound
	}
	if stored.Version != item.Version {
		return fmt.Errorf("%w: item %s changed since version %d", db.ErrConflict, item.ID.Hex(), item.Version)
	}
	stored.Status = item.Status
	stored.InstalledOnVehicleID = item.InstalledOnVehicleID
	stored.InstalledAt = item.InstalledAt
	stored.ActiveComponentID = item.ActiveComponentID
	stored.UpdatedAt = c.s.Now()
	stored.Version++
	c.s.d.items[item.ID] = stored
	item.Version = stored.Version
	item.UpdatedAt = stored.UpdatedAt
	return nil
}

type txColl struct{ s *Store }

func (c txColl) InsertTransaction(_ context.Context, tx *models.InventoryTransaction) error {
	if err := c.s.fail("InsertTransaction"); err != nil {
		return err
	}
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if tx.ID.IsZero() {
		tx.ID = primitive.NewObjectID()
	}
	if tx.Timestamp.IsZero() {
		tx.Timestamp = c.s.Now()
	}
	c.s.d.txs = append(c.s.d.txs, *tx)
	return nil
}

func (c txColl) find(match func(models.InventoryTransaction) bool) []models.InventoryTransaction {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	out := []models.InventoryTransaction{}
	for _, tx := range c.s.d.txs {
		if match(tx) {
			out = append(out, tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

func (c txColl) FindTransactionsByItem(_ context.Context, tenantID string, itemID primitive.ObjectID) ([]models.InventoryTransaction, error) {
	return c.find(func(tx models.InventoryTransaction) bool {
		return tx.TenantID == tenantID && tx.ItemID == itemID
	}), nil
}

func (c txColl) FindTransactionsByPart(_ context.Context, tenantID string, partID primitive.ObjectID) ([]models.InventoryTransaction, error) {
	return c.find(func(tx models.InventoryTransaction) bool {
		return tx.TenantID == tenantID && tx.PartID == partID
	}), nil
}

type componentColl struct{ s *Store }

func (c componentColl) InsertComponent(_ context.Context, component *models.VehicleComponent) error {
	if err := c.s.fail("InsertComponent"); err != nil {
		return err
	}
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if component.ID.IsZero() {
		component.ID = primitive.NewObjectID()
	}
	c.s.d.components = append(c.s.d.components, *component)
	return nil
}

func (c componentColl) DeactivateComponent(_ context.Context, tenantID string, id primitive.ObjectID, at time.Time) (bool, error) {
	if err := c.s.fail("DeactivateComponent"); err != nil {
		return false, err
	}
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	for i, comp := range c.s.d.components {
		if comp.ID == id && comp.TenantID == tenantID && comp.IsActive {
			c.s.d.components[i].IsActive = false
			c.s.d.components[i].UninstallationDate = &at
			return true, nil
		}
	}
	return false, nil
}

func (c componentColl) FindComponentsByVehicle(_ context.Context, tenantID string, vehicleID primitive.ObjectID, activeOnly bool) ([]models.VehicleComponent, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	out := []models.VehicleComponent{}
	for i := len(c.s.d.components) - 1; i >= 0; i-- {
		comp := c.s.d.components[i]
		if comp.TenantID != tenantID || comp.VehicleID != vehicleID || (activeOnly && !comp.IsActive) {
			continue
		}
		out = append(out, comp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].InstallationDate.After(out[j].InstallationDate) })
	return out, nil
}

type costColl struct{ s *Store }

func (c costColl) InsertCost(_ context.Context, cost *models.Cost) error {
	if err := c.s.fail("InsertCost"); err != nil {
		return err
	}
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if cost.ID.IsZero() {
		cost.ID = primitive.NewObjectID()
	}
	cost.CreatedAt = c.s.Now()
	c.s.d.costs = append(c.s.d.costs, *cost)
	return nil
}

func (c costColl) FindCostsByVehicle(_ context.Context, tenantID string, vehicleID primitive.ObjectID) ([]models.Cost, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	out := []models.Cost{}
	for i := len(c.s.d.costs) - 1; i >= 0; i-- {
		cost := c.s.d.costs[i]
		if cost.TenantID == tenantID && cost.VehicleID == vehicleID {
			out = append(out, cost)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

type requestColl struct{ s *Store }

func (c requestColl) InsertRequest(_ context.Context, req *models.MaintenanceRequest) error {
	if err := c.s.fail("InsertRequest"); err != nil {
		return err
	}
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if req.ID.IsZero() {
		req.ID = primitive.NewObjectID()
	}
	now := c.s.Now()
	req.CreatedAt, req.UpdatedAt = now, now
	stored := *req
	stored.Comments = nil
	c.s.d.requests[req.ID] = stored
	return nil
}

func (c requestColl) FindRequestByID(_ context.Context, tenantID string, id primitive.ObjectID) (*models.MaintenanceRequest, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	req, ok := c.s.d.requests[id]
	if !ok || req.TenantID != tenantID {
		return nil, db.ErrNotFound
	}
	return &req, nil
}

func (c requestColl) FindRequests(_ context.Context, f db.RequestFilter) ([]models.MaintenanceRequest, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	out := []models.MaintenanceRequest{}
	for _, req := range c.s.d.requests {
		if req.TenantID != f.TenantID {
			continue
		}
		if f.ReportedByID != nil && req.ReportedByID != *f.ReportedByID {
			continue
		}
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.Hex() > out[j].ID.Hex()
	})
	return out, nil
}

func (c requestColl) UpdateRequest(_ context.Context, req *models.MaintenanceRequest) error {
	if err := c.s.fail("UpdateRequest"); err != nil {
		return err
	}
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	stored, ok := c.s.d.requests[req.ID]
	if !ok || stored.TenantID != req.TenantID {
		return db.ErrNotFound
	}
	req.UpdatedAt = c.s.Now()
	stored.Status = req.Status
	stored.ApproverID = req.ApproverID
	stored.ManagerNotes = req.ManagerNotes
	stored.UpdatedAt = req.UpdatedAt
	c.s.d.requests[req.ID] = stored
	return nil
}

func (c requestColl) DeleteRequest(_ context.Context, tenantID string, id primitive.ObjectID) error {
	if err := c.s.fail("DeleteRequest"); err != nil {
		return err
	}
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	req, ok := c.s.d.requests[id]
	if !ok || req.TenantID != tenantID {
		return db.ErrNotFound
	}
	delete(c.s.d.requests, id)
	return nil
}

type commentColl struct{ s *Store }

func (c commentColl) InsertComment(_ context.Context, comment *models.MaintenanceComment) error {
	if err := c.s.fail("InsertComment"); err != nil {
		return err
	}
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if comment.ID.IsZero() {
		comment.ID = primitive.NewObjectID()
	}
	comment.CreatedAt = c.s.Now()
	c.s.d.comments = append(c.s.d.comments, *comment)
	return nil
}

func (c commentColl) FindCommentsByRequest(_ context.Context, tenantID string, requestID primitive.ObjectID) ([]models.MaintenanceComment, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	out := []models.MaintenanceComment{}
	for _, comment := range c.s.d.comments {
		if comment.TenantID == tenantID && comment.RequestID == requestID {
			out = append(out, comment)
		}
	}
	return out, nil
}

func (c commentColl) DeleteCommentsByRequest(_ context.Context, tenantID string, requestID primitive.ObjectID) error {
	if err := c.s.fail("DeleteCommentsByRequest"); err != nil {
		return err
	}
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	kept := c.s.d.comments[:0:0]
	for _, comment := range c.s.d.comments {
		if comment.TenantID == tenantID && comment.RequestID == requestID {
			continue
		}
		kept = append(kept, comment)
	}
	c.s.d.comments = kept
	return nil
}

type vehicleColl struct{ s *Store }

func (c vehicleColl) InsertVehicle(_ context.Context, vehicle *models.Vehicle) error {
	if err := c.s.fail("InsertVehicle"); err != nil {
		return err
	}
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if vehicle.ID.IsZero() {
		vehicle.ID = primitive.NewObjectID()
	}
	vehicle.CreatedAt = c.s.Now()
	c.s.d.vehicles[vehicle.ID] = *vehicle
	return nil
}

func (c vehicleColl) FindVehicleByID(_ context.Context, tenantID string, id primitive.ObjectID) (*models.Vehicle, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	v, ok := c.s.d.vehicles[id]
	if !ok || v.TenantID != tenantID {
		return nil, db.ErrNotFound
	}
	return &v, nil
}

func (c vehicleColl) FindVehicles(_ context.Context, tenantID string) ([]models.Vehicle, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	out := []models.Vehicle{}
	for _, v := range c.s.d.vehicles {
		if v.TenantID == tenantID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LicensePlate < out[j].LicensePlate })
	return out, nil
}

type userColl struct{ s *Store }

func (c userColl) InsertUser(_ context.Context, user *models.User) error {
	if err := c.s.fail("InsertUser"); err != nil {
		return err
	}
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	for _, u := range c.s.d.users {
		if u.Username == user.Username || u.Email == user.Email {
			return fmt.Errorf("%w: duplicate user %s", db.ErrConflict, user.Username)
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	now := c.s.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	user.IsActive = true
	c.s.d.users[user.ID] = *user
	return nil
}

func (c userColl) FindUserByID(_ context.Context, id string) (*models.User, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	u, ok := c.s.d.users[objectID]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &u, nil
}

func (c userColl) findBy(match func(models.User) bool) (*models.User, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	for _, u := range c.s.d.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, db.ErrNotFound
}

func (c userColl) FindUserByUsername(_ context.Context, username string) (*models.User, error) {
	return c.findBy(func(u models.User) bool { return u.Username == username })
}

func (c userColl) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	return c.findBy(func(u models.User) bool { return u.Email == email })
}

func (c userColl) FindUsersByRole(_ context.Context, tenantID string, roles ...models.Role) ([]models.User, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	out := []models.User{}
	for _, u := range c.s.d.users {
		if u.TenantID != tenantID || !u.IsActive {
			continue
		}
		for _, r := range roles {
			if u.Role == r {
				out = append(out, u)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (c userColl) UpdateUser(_ context.Context, id string, user models.User) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if _, ok := c.s.d.users[objectID]; !ok {
		return db.ErrNotFound
	}
	user.ID = objectID
	user.UpdatedAt = c.s.Now()
	c.s.d.users[objectID] = user
	return nil
}

func (c userColl) UpdateLastLogin(_ context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	u, ok := c.s.d.users[objectID]
	if !ok {
		return db.ErrNotFound
	}
	now := c.s.Now()
	u.LastLogin = &now
	u.UpdatedAt = now
	c.s.d.users[objectID] = u
	return nil
}
