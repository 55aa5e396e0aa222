package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-maintenance/internal/db/dbtest"
	"github.com/ukydev/fleet-maintenance/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"gopkg.in/gomail.v2"
)

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context, n Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func testRequest() *models.MaintenanceRequest {
	return &models.MaintenanceRequest{
		ID:                 primitive.NewObjectID(),
		TenantID:           "org-1",
		VehicleID:          primitive.NewObjectID(),
		ReportedByID:       primitive.NewObjectID(),
		Category:           models.CategoryMechanical,
		ProblemDescription: "Engine light on",
		Status:             models.MaintenanceApproved,
	}
}

func TestRouting(t *testing.T) {
	req := testRequest()
	manager := &models.Claims{Username: "marta", Role: models.RoleManager}
	driver := &models.Claims{Username: "joao", Role: models.RoleOperator}

	n := RequestCreated(req, "joao")
	assert.True(t, n.ToManagers)
	assert.Equal(t, TypeRequestNew, n.Type)
	assert.Equal(t, req.ID.Hex(), n.RelatedEntityID)

	n = StatusChanged(req)
	require.NotNil(t, n.UserID)
	assert.Equal(t, req.ReportedByID, *n.UserID)
	assert.Contains(t, n.Message, "APROVADA")

	n = CommentAdded(req, manager)
	require.NotNil(t, n.UserID)
	assert.False(t, n.ToManagers)

	n = CommentAdded(req, driver)
	assert.Nil(t, n.UserID)
	assert.True(t, n.ToManagers)

	n = ComponentReplaced(req, manager)
	assert.Equal(t, req.ReportedByID, *n.UserID)

	n = LowStock("org-1", primitive.NewObjectID(), "Brake Pad", 1, 4)
	assert.True(t, n.ToManagers)
	assert.Equal(t, "Stock of Brake Pad is low: 1 available, minimum 4", n.Message)
}

func newTestLog() *logrus.Entry {
	logger, _ := logtest.NewNullLogger()
	return logrus.NewEntry(logger)
}

func TestQueue_DispatchesToEveryDispatcher(t *testing.T) {
	failing := new(MockDispatcher)
	failing.On("Dispatch", mock.Anything, mock.Anything).Return(errors.New("broker down"))
	working := new(MockDispatcher)
	working.On("Dispatch", mock.Anything, mock.Anything).Return(nil)

	q := NewQueue(newTestLog(), 2, 10, failing, working)
	q.Start()
	for i := 0; i < 3; i++ {
		assert.True(t, q.Enqueue(RequestCreated(testRequest(), "joao")))
	}
	q.Close()

	failing.AssertNumberOfCalls(t, "Dispatch", 3)
	working.AssertNumberOfCalls(t, "Dispatch", 3)
}

func TestQueue_FullOrClosedDrops(t *testing.T) {
	q := NewQueue(newTestLog(), 1, 1)
	assert.True(t, q.Enqueue(Notification{Type: TypeLowStock}))
	assert.False(t, q.Enqueue(Notification{Type: TypeLowStock}))

	q.Start()
	q.Close()
	assert.False(t, q.Enqueue(Notification{Type: TypeLowStock}))
	q.Close()
}

type fakeToken struct {
	err  error
	done chan struct{}
}

func newFakeToken(err error) *fakeToken {
	t := &fakeToken{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type fakePublisher struct {
	mu       sync.Mutex
	topics   []string
	payloads [][]byte
	qos      []byte
	err      error
}

func (p *fakePublisher) Publish(topic string, qos byte, _ bool, payload interface{}) mqtt.Token {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.qos = append(p.qos, qos)
	p.payloads = append(p.payloads, payload.([]byte))
	return newFakeToken(p.err)
}

func TestMQTTDispatcher(t *testing.T) {
	pub := &fakePublisher{}
	d := NewMQTTDispatcher(pub, "fleet")
	req := testRequest()

	require.NoError(t, d.Dispatch(context.Background(), RequestCreated(req, "joao")))
	require.NoError(t, d.Dispatch(context.Background(), StatusChanged(req)))

	require.Len(t, pub.topics, 2)
	assert.Equal(t, "fleet/org-1/managers", pub.topics[0])
	assert.Equal(t, "fleet/org-1/users/"+req.ReportedByID.Hex(), pub.topics[1])
	assert.Equal(t, byte(1), pub.qos[0])

	var decoded Notification
	require.NoError(t, json.Unmarshal(pub.payloads[0], &decoded))
	assert.Equal(t, TypeRequestNew, decoded.Type)

	pub.err = errors.New("not connected")
	assert.Error(t, d.Dispatch(context.Background(), StatusChanged(req)))
}

type MockSender struct {
	mock.Mock
}

func (m *MockSender) DialAndSend(msgs ...*gomail.Message) error {
	args := m.Called(msgs)
	return args.Error(0)
}

func TestMailDispatcher(t *testing.T) {
	ctx := context.Background()
	store := dbtest.New()
	manager := &models.User{TenantID: "org-1", Username: "marta", Email: "marta@fleet.test", Role: models.RoleManager}
	driver := &models.User{TenantID: "org-1", Username: "joao", Email: "joao@fleet.test", Role: models.RoleOperator}
	foreign := &models.User{TenantID: "org-2", Username: "boss", Email: "boss@other.test", Role: models.RoleManager}
	for _, u := range []*models.User{manager, driver, foreign} {
		require.NoError(t, store.Users().InsertUser(ctx, u))
	}

	var sent []*gomail.Message
	sender := new(MockSender)
	sender.On("DialAndSend", mock.Anything).Run(func(args mock.Arguments) {
		sent = append(sent, args.Get(0).([]*gomail.Message)...)
	}).Return(nil)

	d := NewMailDispatcher(sender, store.Users(), "noreply@fleet.test")
	req := testRequest()
	req.ReportedByID = driver.ID

	require.NoError(t, d.Dispatch(ctx, RequestCreated(req, "joao")))
	require.NoError(t, d.Dispatch(ctx, StatusChanged(req)))

	require.Len(t, sent, 2)
	assert.Equal(t, []string{"marta@fleet.test"}, sent[0].GetHeader("To"))
	assert.Equal(t, []string{"[Fleet] Maintenance Request New"}, sent[0].GetHeader("Subject"))
	assert.Equal(t, []string{"joao@fleet.test"}, sent[1].GetHeader("To"))

	none := LowStock("org-3", primitive.NewObjectID(), "Tire", 0, 2)
	require.NoError(t, d.Dispatch(ctx, none))
	sender.AssertNumberOfCalls(t, "DialAndSend", 2)
}
