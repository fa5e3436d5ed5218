package realtime

import (
	"fmt"
	"testing"
	"time"

	"closedesk/domain/events"
	"closedesk/pkg/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "hub-test-secret"

func newTestHub(t *testing.T) (*Hub, *auth.Generator) {
	t.Helper()
	verifier, err := auth.NewVerifier(testSecret, "closedesk-test")
	require.NoError(t, err)
	gen, err := auth.NewGenerator(testSecret, "closedesk-test", time.Hour)
	require.NoError(t, err)
	return NewHub(NewMemoryStore(), verifier, zap.NewNop()), gen
}

func receiveEvent(t *testing.T, c *Client) Envelope {
	t.Helper()
	select {
	case env, ok := <-c.Events():
		require.True(t, ok, "channel closed unexpectedly")
		return env
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Envelope{}
	}
}

func assertNoEvent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case env, ok := <-c.Events():
		if ok {
			t.Fatalf("unexpected event %s", env.Type)
		}
	case <-time.After(50 * time.Millisecond):
	}
}

func authenticate(t *testing.T, hub *Hub, gen *auth.Generator, connID, userID string, role auth.Role) {
	t.Helper()
	token, err := gen.Generate(userID, role)
	require.NoError(t, err)
	_, err = hub.Authenticate(connID, token)
	require.NoError(t, err)
}

func TestAuthenticate_Success(t *testing.T) {
	hub, gen := newTestHub(t)
	client := hub.Register("conn-1")

	authenticate(t, hub, gen, "conn-1", "user-1", auth.RoleAgent)

	env := receiveEvent(t, client)
	assert.Equal(t, events.NameAuthenticated, env.Type)

	// Auto-joined role and user rooms.
	sess, ok := hub.Session("conn-1")
	require.True(t, ok)
	assert.Contains(t, sess.Rooms, events.RoleRoom(auth.RoleAgent))
	assert.Contains(t, sess.Rooms, events.UserRoom("user-1"))
}

func TestAuthenticate_FailureKeepsConnectionOpen(t *testing.T) {
	hub, _ := newTestHub(t)
	client := hub.Register("conn-1")

	_, err := hub.Authenticate("conn-1", "garbage-token")
	require.Error(t, err)

	env := receiveEvent(t, client)
	assert.Equal(t, events.NameAuthError, env.Type)

	// Session survives unauthenticated; a retry can succeed.
	sess, ok := hub.Session("conn-1")
	require.True(t, ok)
	assert.False(t, sess.Authenticated())
}

func TestAuthenticate_EventGoesToCallerOnly(t *testing.T) {
	hub, gen := newTestHub(t)
	bystander := hub.Register("conn-0")
	hub.Register("conn-1")

	authenticate(t, hub, gen, "conn-0", "user-0", auth.RoleTC)
	receiveEvent(t, bystander) // own authenticated event

	authenticate(t, hub, gen, "conn-1", "user-1", auth.RoleAgent)
	assertNoEvent(t, bystander)
}

func TestAuthenticate_SupersedesPreviousSession(t *testing.T) {
	hub, gen := newTestHub(t)
	old := hub.Register("conn-old")
	authenticate(t, hub, gen, "conn-old", "user-1", auth.RoleAgent)
	receiveEvent(t, old)

	hub.Register("conn-new")
	authenticate(t, hub, gen, "conn-new", "user-1", auth.RoleAgent)

	// The old connection's channel is closed by the eviction.
	_, open := <-old.Events()
	assert.False(t, open)
	_, exists := hub.Session("conn-old")
	assert.False(t, exists)
}

func TestJoinTask_RequiresAuthentication(t *testing.T) {
	hub, _ := newTestHub(t)
	client := hub.Register("conn-1")

	hub.JoinTask("conn-1", "task-1")

	env := receiveEvent(t, client)
	assert.Equal(t, events.NameAuthError, env.Type)
}

func TestJoinTask_AckAndIdempotence(t *testing.T) {
	hub, gen := newTestHub(t)
	client := hub.Register("conn-1")
	authenticate(t, hub, gen, "conn-1", "user-1", auth.RoleAgent)
	receiveEvent(t, client)

	hub.JoinTask("conn-1", "task-1")
	env := receiveEvent(t, client)
	assert.Equal(t, events.NameJoinedTask, env.Type)

	// Joining again is a no-op membership-wise.
	hub.JoinTask("conn-1", "task-1")
	receiveEvent(t, client) // ack is still sent

	hub.Route(events.TaskRoom("task-1"), events.TaskUpdated{TaskID: "task-1"})
	receiveEvent(t, client)
	assertNoEvent(t, client) // delivered once, not twice
}

func TestRoute_FIFOPerRoom(t *testing.T) {
	hub, gen := newTestHub(t)
	client := hub.Register("conn-1")
	authenticate(t, hub, gen, "conn-1", "user-1", auth.RoleAgent)
	receiveEvent(t, client)
	hub.JoinTask("conn-1", "task-1")
	receiveEvent(t, client)

	const n = 20
	for i := 0; i < n; i++ {
		hub.Route(events.TaskRoom("task-1"), events.NewMessage{})
	}

	var previous string
	for i := 0; i < n; i++ {
		env := receiveEvent(t, client)
		require.Equal(t, events.NameNewMessage, env.Type)
		// ULIDs are lexically ordered; publish order must hold.
		require.True(t, env.EventID > previous, "event %d out of order", i)
		previous = env.EventID
	}
}

func TestRoute_NoDeliveryAfterLeave(t *testing.T) {
	hub, gen := newTestHub(t)
	client := hub.Register("conn-1")
	authenticate(t, hub, gen, "conn-1", "user-1", auth.RoleAgent)
	receiveEvent(t, client)
	hub.JoinTask("conn-1", "task-1")
	receiveEvent(t, client)

	hub.LeaveTask("conn-1", "task-1")
	hub.Route(events.TaskRoom("task-1"), events.NewMessage{})

	assertNoEvent(t, client)

	// Leaving a room not joined is a no-op.
	hub.LeaveTask("conn-1", "task-never-joined")
}

func TestRoute_EmptyRoomIsSilentNoop(t *testing.T) {
	hub, _ := newTestHub(t)
	// No members anywhere; must not panic or error.
	hub.Route(events.TaskRoom("task-ghost"), events.TaskUpdated{TaskID: "task-ghost"})
}

func TestDeregister_FreesMembership(t *testing.T) {
	hub, gen := newTestHub(t)
	client := hub.Register("conn-1")
	authenticate(t, hub, gen, "conn-1", "user-1", auth.RoleBroker)
	receiveEvent(t, client)

	hub.Deregister("conn-1")

	_, open := <-client.Events()
	assert.False(t, open)
	_, exists := hub.Session("conn-1")
	assert.False(t, exists)

	// Routing to the rooms it occupied delivers nowhere.
	hub.Route(events.RoleRoom(auth.RoleBroker), events.TaskUpdated{})
	hub.Route(events.UserRoom("user-1"), events.TaskUpdated{})
}

func TestRoute_RoleRoomFanOut(t *testing.T) {
	hub, gen := newTestHub(t)

	var brokers []*Client
	for i := 0; i < 3; i++ {
		connID := fmt.Sprintf("conn-%d", i)
		c := hub.Register(connID)
		authenticate(t, hub, gen, connID, fmt.Sprintf("user-%d", i), auth.RoleBroker)
		receiveEvent(t, c)
		brokers = append(brokers, c)
	}
	agent := hub.Register("conn-agent")
	authenticate(t, hub, gen, "conn-agent", "user-agent", auth.RoleAgent)
	receiveEvent(t, agent)

	hub.Route(events.RoleRoom(auth.RoleBroker), events.TransactionStatusChanged{TransactionID: "txn-1"})

	for _, c := range brokers {
		env := receiveEvent(t, c)
		assert.Equal(t, events.NameStatusChanged, env.Type)
	}
	assertNoEvent(t, agent)
}
