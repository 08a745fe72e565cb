package tracking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"campus_bus/internal/models"
	"campus_bus/internal/testutil"
)

func setupDriver(t *testing.T, db *gorm.DB, routeName string) (models.Route, *models.Driver) {
	t.Helper()
	route := testutil.CreateRoute(t, db, routeName)
	_, driver := testutil.CreateDriver(t, db, "driver-"+routeName, "pass", &route.ID, true)
	return route, &driver
}

func TestPushThenPull(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()
	route, driver := setupDriver(t, db, "R7")

	_, err := svc.Push(ctx, driver, PushInput{Latitude: 17.40, Longitude: 78.47})
	require.NoError(t, err)

	snap, err := svc.Pull(ctx, route.ID)
	require.NoError(t, err)
	assert.Equal(t, 17.40, snap.Latitude)
	assert.Equal(t, 78.47, snap.Longitude)
	assert.False(t, snap.UpdatedAt.IsZero())
}

func TestPullBeforeAnyPush(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewService(db)
	route := testutil.CreateRoute(t, db, "R1")

	_, err := svc.Pull(context.Background(), route.ID)
	assert.ErrorIs(t, err, ErrNotStarted)

	_, err = svc.Pull(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestSuccessivePushesOverwrite(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()
	route, driver := setupDriver(t, db, "R2")

	first, err := svc.Push(ctx, driver, PushInput{Latitude: 17.1, Longitude: 78.1})
	require.NoError(t, err)
	second, err := svc.Push(ctx, driver, PushInput{Latitude: 17.2, Longitude: 78.2, Speed: testutil.Float64Ptr(32.5)})
	require.NoError(t, err)

	var rows []models.BusLocation
	require.NoError(t, db.Where("route_id = ?", route.ID).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, 17.2, rows[0].Latitude)
	assert.Equal(t, 78.2, rows[0].Longitude)
	require.NotNil(t, rows[0].Speed)
	assert.Equal(t, 32.5, *rows[0].Speed)
	assert.False(t, second.UpdatedAt.Before(first.UpdatedAt))

	var logs int64
	require.NoError(t, db.Model(&models.GPSLog{}).Where("route_id = ?", route.ID).Count(&logs).Error)
	assert.Equal(t, int64(2), logs)
}

func TestConcurrentPushesLeaveOneRow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()
	route, driver := setupDriver(t, db, "R3")

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Push(ctx, driver, PushInput{Latitude: 17 + float64(i)/100, Longitude: 78})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	var count int64
	require.NoError(t, db.Model(&models.BusLocation{}).Where("route_id = ?", route.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestPushRejections(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()
	route := testutil.CreateRoute(t, db, "R4")

	_, unverified := testutil.CreateDriver(t, db, "unverified", "pass", &route.ID, false)
	_, unassigned := testutil.CreateDriver(t, db, "unassigned", "pass", nil, true)
	_, verified := testutil.CreateDriver(t, db, "verified", "pass", &route.ID, true)
	inactive := verified
	inactive.IsActive = false

	tests := []struct {
		name   string
		driver models.Driver
		in     PushInput
		want   error
	}{
		{"latitude too big", verified, PushInput{Latitude: 91, Longitude: 78}, ErrInvalidInput},
		{"longitude too small", verified, PushInput{Latitude: 17, Longitude: -181}, ErrInvalidInput},
		{"negative speed", verified, PushInput{Latitude: 17, Longitude: 78, Speed: testutil.Float64Ptr(-1)}, ErrInvalidInput},
		{"heading past 360", verified, PushInput{Latitude: 17, Longitude: 78, Heading: testutil.Float64Ptr(361)}, ErrInvalidInput},
		{"unverified", unverified, PushInput{Latitude: 17, Longitude: 78}, ErrDriverInactive},
		{"inactive", inactive, PushInput{Latitude: 17, Longitude: 78}, ErrDriverInactive},
		{"no route", unassigned, PushInput{Latitude: 17, Longitude: 78}, ErrNoRoute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := tt.driver
			_, err := svc.Push(ctx, &d, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	var count int64
	require.NoError(t, db.Model(&models.BusLocation{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestPushBoundaryValues(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewService(db)
	_, driver := setupDriver(t, db, "R5")

	_, err := svc.Push(context.Background(), driver, PushInput{
		Latitude:  -90,
		Longitude: 180,
		Heading:   testutil.Float64Ptr(360),
		Speed:     testutil.Float64Ptr(0),
	})
	assert.NoError(t, err)
}

func TestDriverFor(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewService(db)
	student := testutil.CreateUser(t, db, "student", "pass", models.RoleStudent)
	user, driver := testutil.CreateDriver(t, db, "driver", "pass", nil, true)

	_, err := svc.DriverFor(context.Background(), student.ID)
	assert.ErrorIs(t, err, ErrNotDriver)

	got, err := svc.DriverFor(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, driver.ID, got.ID)
}

func TestPushSetsCurrentStopWithinRadius(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewService(db, WithStopRadius(150))
	ctx := context.Background()
	route, driver := setupDriver(t, db, "R6")
	gate := testutil.CreateStop(t, db, route.ID, 1, "Main Gate", 17.4000, 78.4700)
	testutil.CreateStop(t, db, route.ID, 2, "Library", 17.4100, 78.4800)

	snap, err := svc.Push(ctx, driver, PushInput{Latitude: 17.4005, Longitude: 78.4701})
	require.NoError(t, err)
	require.NotNil(t, snap.CurrentStopID)
	assert.Equal(t, gate.ID, *snap.CurrentStopID)

	snap, err = svc.Push(ctx, driver, PushInput{Latitude: 17.4050, Longitude: 78.4750})
	require.NoError(t, err)
	assert.Nil(t, snap.CurrentStopID)
}

type memMirror struct {
	mu    sync.Mutex
	snaps map[uint]Snapshot
	fail  bool
	// beforeFill runs ahead of every Fill, outside the lock.
	beforeFill func()
}

func newMemMirror() *memMirror { return &memMirror{snaps: map[uint]Snapshot{}} }

func (m *memMirror) Store(_ context.Context, snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("mirror down")
	}
	if cur, ok := m.snaps[snap.RouteID]; ok && cur.UpdatedAt.After(snap.UpdatedAt) {
		return nil
	}
	m.snaps[snap.RouteID] = snap
	return nil
}

func (m *memMirror) Fill(_ context.Context, snap Snapshot) error {
	if m.beforeFill != nil {
		m.beforeFill()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("mirror down")
	}
	if _, ok := m.snaps[snap.RouteID]; !ok {
		m.snaps[snap.RouteID] = snap
	}
	return nil
}

func (m *memMirror) Load(_ context.Context, routeID uint) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, errors.New("mirror down")
	}
	snap, ok := m.snaps[routeID]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

func (m *memMirror) Delete(_ context.Context, routeID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snaps, routeID)
	return nil
}

func TestMirrorIsReadFirst(t *testing.T) {
	db := testutil.SetupTestDB(t)
	mirror := newMemMirror()
	svc := NewService(db, WithMirror(mirror))
	ctx := context.Background()
	route, driver := setupDriver(t, db, "R8")

	_, err := svc.Push(ctx, driver, PushInput{Latitude: 17.3, Longitude: 78.3})
	require.NoError(t, err)
	require.Contains(t, mirror.snaps, route.ID)

	// a value only the mirror knows proves the read did not hit the database
	mirror.snaps[route.ID] = Snapshot{RouteID: route.ID, Latitude: 1, Longitude: 2}
	snap, err := svc.Pull(ctx, route.ID)
	require.NoError(t, err)
	assert.Equal(t, 1.0, snap.Latitude)

	svc.Forget(ctx, route.ID)
	snap, err = svc.Pull(ctx, route.ID)
	require.NoError(t, err)
	assert.Equal(t, 17.3, snap.Latitude)
}

func TestMirrorFailureFallsBackToDatabase(t *testing.T) {
	db := testutil.SetupTestDB(t)
	mirror := newMemMirror()
	mirror.fail = true
	svc := NewService(db, WithMirror(mirror))
	ctx := context.Background()
	route, driver := setupDriver(t, db, "R9")

	_, err := svc.Push(ctx, driver, PushInput{Latitude: 17.5, Longitude: 78.5})
	require.NoError(t, err, "mirror errors must not fail a push")

	snap, err := svc.Pull(ctx, route.ID)
	require.NoError(t, err)
	assert.Equal(t, 17.5, snap.Latitude)
}

func TestBackfillDoesNotOverwriteConcurrentPush(t *testing.T) {
	db := testutil.SetupTestDB(t)
	mirror := newMemMirror()
	svc := NewService(db, WithMirror(mirror))
	ctx := context.Background()
	route, driver := setupDriver(t, db, "R10")

	_, err := svc.Push(ctx, driver, PushInput{Latitude: 10, Longitude: 10})
	require.NoError(t, err)
	svc.Forget(ctx, route.ID)

	// a push lands between the database read and the backfill
	var once sync.Once
	mirror.beforeFill = func() {
		once.Do(func() {
			_, err := svc.Push(ctx, driver, PushInput{Latitude: 20, Longitude: 20})
			require.NoError(t, err)
		})
	}
	snap, err := svc.Pull(ctx, route.ID)
	require.NoError(t, err)
	assert.Equal(t, 10.0, snap.Latitude)

	snap, err = svc.Pull(ctx, route.ID)
	require.NoError(t, err)
	assert.Equal(t, 20.0, snap.Latitude)
	assert.Equal(t, 20.0, snap.Longitude)
}

func TestMirrorStoreKeepsNewest(t *testing.T) {
	mirror := newMemMirror()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, mirror.Store(ctx, Snapshot{RouteID: 1, Latitude: 20, UpdatedAt: now}))
	require.NoError(t, mirror.Store(ctx, Snapshot{RouteID: 1, Latitude: 10, UpdatedAt: now.Add(-time.Second)}))

	snap, err := mirror.Load(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 20.0, snap.Latitude)
}

func TestNearby(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	near, nearDriver := setupDriver(t, db, "Near")
	far, farDriver := setupDriver(t, db, "Far")
	closer, closerDriver := setupDriver(t, db, "Closer")

	_, err := svc.Push(ctx, nearDriver, PushInput{Latitude: 17.4100, Longitude: 78.4800})
	require.NoError(t, err)
	_, err = svc.Push(ctx, farDriver, PushInput{Latitude: 28.6139, Longitude: 77.2090})
	require.NoError(t, err)
	_, err = svc.Push(ctx, closerDriver, PushInput{Latitude: 17.4001, Longitude: 78.4701})
	require.NoError(t, err)

	buses, err := svc.Nearby(ctx, 17.4000, 78.4700, 10)
	require.NoError(t, err)
	require.Len(t, buses, 2)
	assert.Equal(t, closer.ID, buses[0].RouteID)
	assert.Equal(t, near.ID, buses[1].RouteID)
	assert.Less(t, buses[0].DistanceMeters, buses[1].DistanceMeters)
	for _, b := range buses {
		assert.NotEqual(t, far.ID, b.RouteID)
	}

	var loc models.BusLocation
	require.NoError(t, db.Where("route_id = ?", closer.ID).First(&loc).Error)
	_, err = svc.SetTrackersActive(ctx, []uint{loc.ID}, false)
	require.NoError(t, err)

	buses, err = svc.Nearby(ctx, 17.4000, 78.4700, 10)
	require.NoError(t, err)
	require.Len(t, buses, 1)
	assert.Equal(t, near.ID, buses[0].RouteID)

	_, err = svc.Nearby(ctx, 95, 78, 10)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestReportAndResolveErrors(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()
	route, driver := setupDriver(t, db, "R10")

	rec, err := svc.ReportError(ctx, driver, ErrorReport{Type: "signal_lost", Message: "tunnel", IsCritical: true})
	require.NoError(t, err)
	assert.Equal(t, route.ID, rec.RouteID)

	_, err = svc.ReportError(ctx, driver, ErrorReport{Type: "solar_flare"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	open, err := svc.LocationErrors(ctx, ErrorFilter{Unresolved: true})
	require.NoError(t, err)
	require.Len(t, open, 1)

	n, err := svc.ApplyErrorAction(ctx, ErrorActionResolved, []uint{rec.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	open, err = svc.LocationErrors(ctx, ErrorFilter{Unresolved: true})
	require.NoError(t, err)
	assert.Empty(t, open)

	_, err = svc.ApplyErrorAction(ctx, "explode", []uint{rec.ID})
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestShape(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewService(db)
	route := testutil.CreateRoute(t, db, "Shape")
	testutil.CreateStop(t, db, route.ID, 2, "B", 17.41, 78.48)
	testutil.CreateStop(t, db, route.ID, 1, "A", 17.40, 78.47)

	feature, err := svc.Shape(context.Background(), route.ID)
	require.NoError(t, err)
	coords := feature.Geometry.FlatCoords()
	assert.Equal(t, []float64{78.47, 17.40, 78.48, 17.41}, coords)
	assert.Equal(t, "Shape", feature.Properties["name"])

	_, err = svc.Shape(context.Background(), 404)
	assert.ErrorIs(t, err, ErrRouteNotFound)
}
