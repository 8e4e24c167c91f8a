package service

import (
	"errors"
	"testing"

	"go-relief-hub/internal/model"
	"go-relief-hub/internal/notify"
	"go-relief-hub/internal/render"
	"go-relief-hub/internal/repository"
	"go-relief-hub/internal/storage"
	"go-relief-hub/internal/testsupport"
	"go-relief-hub/internal/worker"
	"go-relief-hub/pkg/db"

	"gorm.io/gorm"
)

// testEnv wires every service against a fresh sqlite database.
type testEnv struct {
	db       *gorm.DB
	pool     *worker.Pool
	notifier *notify.MemoryNotifier
	gate     chan struct{}

	export *ExportService
	share  *ShareService
	flash  *FlashUpdateService
	subs   *SubscriptionService
	groups *GroupService
	auth   *AuthService

	geo    *testsupport.Geo
	author *model.User
}

func newTestEnv(t *testing.T, overrides render.Registry) *testEnv {
	t.Helper()
	conn := testsupport.NewDB(t)
	pool := testsupport.NewPool(t)
	uow := db.NewUnitOfWork(conn, pool)

	store, err := storage.NewLocalStore(t.TempDir(), "http://test/media")
	if err != nil {
		t.Fatalf("local store: %v", err)
	}

	env := &testEnv{
		db:       conn,
		pool:     pool,
		notifier: notify.NewMemoryNotifier(),
		gate:     make(chan struct{}),
	}

	renderers := render.DefaultRegistry()
	// gated blocks until the test closes env.gate so pending can be observed
	renderers["gated"] = render.RenderFunc(func(doc *render.FlashUpdateDocument) (*render.Artifact, error) {
		<-env.gate
		return render.JSONRenderer{}.Render(doc)
	})
	renderers["broken"] = render.RenderFunc(func(*render.FlashUpdateDocument) (*render.Artifact, error) {
		return nil, errors.New("template exploded")
	})
	for k, r := range overrides {
		renderers[k] = r
	}

	users := repository.NewUserRepository(conn)
	groups := repository.NewGroupRepository(conn)
	members := repository.NewGroupMemberRepository(conn)
	flashUpdates := repository.NewFlashUpdateRepository(conn)
	subscriptions := repository.NewShareSubscriptionRepository(conn)

	env.export = NewExportService(uow, repository.NewExportJobRepository(conn), flashUpdates, renderers, store)
	env.share = NewShareService(uow, repository.NewShareEventRepository(conn), subscriptions, flashUpdates,
		users, groups, env.notifier, renderers, store)
	env.flash = NewFlashUpdateService(uow, flashUpdates, repository.NewGeoRepository(conn), env.share)
	env.subs = NewSubscriptionService(subscriptions, groups)
	env.groups = NewGroupService(groups, members, users)
	env.auth = NewAuthService(users)

	env.geo = testsupport.SeedGeo(t, conn)
	env.author = testsupport.CreateUser(t, conn, "author", false)
	t.Cleanup(env.release)
	return env
}

// release unblocks gated renders and waits for every post-commit task.
func (e *testEnv) release() {
	select {
	case <-e.gate:
	default:
		close(e.gate)
	}
	e.pool.Wait()
}

func (e *testEnv) validInput() FlashUpdateInput {
	g := e.geo
	return FlashUpdateInput{
		Title:               "Earthquake in Gorkha",
		SituationalOverview: "A 7.8 magnitude earthquake struck.",
		ShareWith:           model.ShareWithIFRCSecretariat,
		HazardTypeID:        &g.Earthquake.ID,
		CountryDistricts: []CountryDistrictInput{
			{CountryID: g.CountryA.ID, DistrictIDs: []uint{g.DistrictA1.ID, g.DistrictA2.ID}},
			{CountryID: g.CountryB.ID, DistrictIDs: []uint{g.DistrictB1.ID}},
		},
		References: []ReferenceInput{
			{Date: "2021-02-02", SourceDescription: "A source", URL: "https://example.org/report"},
		},
		ActionsTaken: []ActionTakenInput{
			{Organization: "NTLS", Summary: "Search teams deployed", ActionIDs: []uint{g.ActionA.ID, g.ActionB.ID}},
		},
		OriginatorName:  "Jo",
		OriginatorEmail: " jo@example.org",
		IFRCName:        "Sam",
		IFRCEmail:       "sam@ifrc.org",
	}
}
