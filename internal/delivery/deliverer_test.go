package delivery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hrplatform/go-notification-engine/internal/channel"
	"github.com/hrplatform/go-notification-engine/internal/domain"
)

type fakePush struct {
	result *channel.PushResult
	err    error
	calls  int
}

func (f *fakePush) SendPush(ctx context.Context, recipientIDs []string, title, message, url string, metadata map[string]string) (*channel.PushResult, error) {
	f.calls++
	return f.result, f.err
}

type fakeEmail struct {
	err   error
	sends []string
}

func (f *fakeEmail) SendEmail(ctx context.Context, to, subject, htmlBody, textBody string) error {
	f.sends = append(f.sends, to)
	return f.err
}

type fakeRecipientDirectory struct {
	users []domain.User
	err   error
}

func (f *fakeRecipientDirectory) FindUsersByIDs(ctx context.Context, ids []string) ([]domain.User, error) {
	return f.users, f.err
}

type outcome struct {
	succeeded bool
}

type fakeRecordStore struct {
	push  map[string]outcome
	email map[string]outcome
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{push: map[string]outcome{}, email: map[string]outcome{}}
}

func (f *fakeRecordStore) SetPushOutcome(ctx context.Context, ids []primitive.ObjectID, succeeded bool, at time.Time) error {
	for _, id := range ids {
		f.push[id.Hex()] = outcome{succeeded: succeeded}
	}
	return nil
}

func (f *fakeRecordStore) SetEmailOutcome(ctx context.Context, id primitive.ObjectID, succeeded bool, at time.Time) error {
	f.email[id.Hex()] = outcome{succeeded: succeeded}
	return nil
}

func makeTask(recipients ...Recipient) *Task {
	return &Task{
		ID:         "task-1",
		Title:      "Benefits enrollment closes Friday",
		Message:    "Complete your elections before the deadline.",
		URL:        "/benefits/enrollment",
		Recipients: recipients,
	}
}

func TestDeliver_PushSuccessMarksRecordsAndSkipsEmail(t *testing.T) {
	rec := Recipient{UserID: primitive.NewObjectID().Hex(), RecordID: primitive.NewObjectID()}
	push := &fakePush{result: &channel.PushResult{Success: true, DeliveredCount: 1}}
	email := &fakeEmail{}
	records := newFakeRecordStore()

	d := NewDeliverer(push, email, &fakeRecipientDirectory{}, records, zerolog.Nop())
	err := d.Deliver(context.Background(), makeTask(rec))

	require.NoError(t, err)
	assert.True(t, records.push[rec.RecordID.Hex()].succeeded)
	assert.Empty(t, email.sends)
	assert.Empty(t, records.email)
}

func TestDeliver_PushHardErrorFallsBackToEmail(t *testing.T) {
	user := domain.User{ID: primitive.NewObjectID(), Email: "pat@example.com"}
	rec := Recipient{UserID: user.ID.Hex(), RecordID: primitive.NewObjectID()}

	push := &fakePush{err: errors.New("provider 500")}
	email := &fakeEmail{}
	records := newFakeRecordStore()
	dir := &fakeRecipientDirectory{users: []domain.User{user}}

	d := NewDeliverer(push, email, dir, records, zerolog.Nop())
	err := d.Deliver(context.Background(), makeTask(rec))

	require.NoError(t, err)
	// Exactly one email send attempt for the recipient with a valid address.
	assert.Equal(t, []string{"pat@example.com"}, email.sends)
	assert.False(t, records.push[rec.RecordID.Hex()].succeeded)
	assert.True(t, records.email[rec.RecordID.Hex()].succeeded)
}

func TestDeliver_FallbackSkipsRecipientsWithoutEmail(t *testing.T) {
	withEmail := domain.User{ID: primitive.NewObjectID(), Email: "sam@example.com"}
	without := domain.User{ID: primitive.NewObjectID(), Email: ""}
	recA := Recipient{UserID: withEmail.ID.Hex(), RecordID: primitive.NewObjectID()}
	recB := Recipient{UserID: without.ID.Hex(), RecordID: primitive.NewObjectID()}

	push := &fakePush{err: errors.New("provider 500")}
	email := &fakeEmail{}
	records := newFakeRecordStore()
	dir := &fakeRecipientDirectory{users: []domain.User{withEmail, without}}

	d := NewDeliverer(push, email, dir, records, zerolog.Nop())
	err := d.Deliver(context.Background(), makeTask(recA, recB))

	require.NoError(t, err)
	assert.Equal(t, []string{"sam@example.com"}, email.sends)
	_, attempted := records.email[recB.RecordID.Hex()]
	assert.False(t, attempted, "recipient without an address must not get an email outcome")
}

func TestDeliver_NoValidAddressesIsTerminal(t *testing.T) {
	user := domain.User{ID: primitive.NewObjectID(), Email: "not-an-address"}
	rec := Recipient{UserID: user.ID.Hex(), RecordID: primitive.NewObjectID()}

	push := &fakePush{err: errors.New("provider 500")}
	d := NewDeliverer(push, &fakeEmail{}, &fakeRecipientDirectory{users: []domain.User{user}}, newFakeRecordStore(), zerolog.Nop())

	err := d.Deliver(context.Background(), makeTask(rec))
	require.Error(t, err)
	assert.False(t, IsTransient(err))
}

func TestDeliver_AllEmailFailuresAreTransient(t *testing.T) {
	user := domain.User{ID: primitive.NewObjectID(), Email: "pat@example.com"}
	rec := Recipient{UserID: user.ID.Hex(), RecordID: primitive.NewObjectID()}

	push := &fakePush{err: errors.New("provider 500")}
	email := &fakeEmail{err: errors.New("smtp timeout")}
	records := newFakeRecordStore()
	dir := &fakeRecipientDirectory{users: []domain.User{user}}

	d := NewDeliverer(push, email, dir, records, zerolog.Nop())
	err := d.Deliver(context.Background(), makeTask(rec))

	require.Error(t, err)
	assert.True(t, IsTransient(err))
	out, attempted := records.email[rec.RecordID.Hex()]
	assert.True(t, attempted)
	assert.False(t, out.succeeded)
}

func TestDeliver_DirectoryFailureDuringFallbackIsTransient(t *testing.T) {
	rec := Recipient{UserID: primitive.NewObjectID().Hex(), RecordID: primitive.NewObjectID()}

	push := &fakePush{err: errors.New("provider 500")}
	dir := &fakeRecipientDirectory{err: errors.New("directory down")}

	d := NewDeliverer(push, &fakeEmail{}, dir, newFakeRecordStore(), zerolog.Nop())
	err := d.Deliver(context.Background(), makeTask(rec))

	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestDeliver_PushAcceptedWithZeroEndpointsDoesNotFallBack(t *testing.T) {
	rec := Recipient{UserID: primitive.NewObjectID().Hex(), RecordID: primitive.NewObjectID()}
	push := &fakePush{result: &channel.PushResult{Success: true, DeliveredCount: 0}}
	email := &fakeEmail{}

	d := NewDeliverer(push, email, &fakeRecipientDirectory{}, newFakeRecordStore(), zerolog.Nop())
	err := d.Deliver(context.Background(), makeTask(rec))

	require.NoError(t, err)
	assert.Empty(t, email.sends)
}

func TestDeliver_EmptyTaskIsTerminal(t *testing.T) {
	d := NewDeliverer(&fakePush{}, &fakeEmail{}, &fakeRecipientDirectory{}, newFakeRecordStore(), zerolog.Nop())
	err := d.Deliver(context.Background(), makeTask())
	require.Error(t, err)
	assert.False(t, IsTransient(err))
}
