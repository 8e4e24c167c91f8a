package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go-relief-hub/internal/model"
	"go-relief-hub/internal/notify"
	"go-relief-hub/internal/render"
	"go-relief-hub/internal/repository"
	"go-relief-hub/internal/service"
	"go-relief-hub/internal/storage"
	"go-relief-hub/internal/testsupport"
	internalws "go-relief-hub/internal/websocket"
	"go-relief-hub/internal/worker"
	"go-relief-hub/pkg/db"
	"go-relief-hub/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testServer struct {
	router   *gin.Engine
	db       *gorm.DB
	pool     *worker.Pool
	hub      *internalws.Hub
	notifier *notify.MemoryNotifier
	geo      *testsupport.Geo

	user, staff           *model.User
	userToken, staffToken string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	testsupport.InitJWT(t)

	conn := testsupport.NewDB(t)
	pool := testsupport.NewPool(t)
	uow := db.NewUnitOfWork(conn, pool)
	mediaDir := t.TempDir()
	store, err := storage.NewLocalStore(mediaDir, "http://test/media")
	require.NoError(t, err)

	hub := internalws.NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	users := repository.NewUserRepository(conn)
	groups := repository.NewGroupRepository(conn)
	members := repository.NewGroupMemberRepository(conn)
	flashUpdates := repository.NewFlashUpdateRepository(conn)
	subscriptions := repository.NewShareSubscriptionRepository(conn)
	memory := notify.NewMemoryNotifier()
	notifier := notify.Multi{memory, notify.NewHubNotifier(hub, notify.NewDirectory(users, members))}
	renderers := render.DefaultRegistry()

	share := service.NewShareService(uow, repository.NewShareEventRepository(conn), subscriptions, flashUpdates,
		users, groups, notifier, renderers, store)
	router := NewRouter(Deps{
		Users:         users,
		Auth:          service.NewAuthService(users),
		Groups:        service.NewGroupService(groups, members, users),
		FlashUpdates:  service.NewFlashUpdateService(uow, flashUpdates, repository.NewGeoRepository(conn), share),
		Export:        service.NewExportService(uow, repository.NewExportJobRepository(conn), flashUpdates, renderers, store),
		Share:         share,
		Subscriptions: service.NewSubscriptionService(subscriptions, groups),
		Hub:           hub,
		MediaDir:      mediaDir,
	})

	s := &testServer{
		router:   router,
		db:       conn,
		pool:     pool,
		hub:      hub,
		notifier: memory,
		geo:      testsupport.SeedGeo(t, conn),
		user:     testsupport.CreateUser(t, conn, "author", false),
		staff:    testsupport.CreateUser(t, conn, "admin", true),
	}
	s.userToken = mustToken(t, s.user.ID)
	s.staffToken = mustToken(t, s.staff.ID)
	t.Cleanup(pool.Wait)
	return s
}

func mustToken(t *testing.T, userID uint) string {
	token, err := utils.GenerateToken(userID)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (s *testServer) flashUpdateBody() gin.H {
	g := s.geo
	return gin.H{
		"title":                "Earthquake in Gorkha",
		"situational_overview": "A 7.8 magnitude earthquake struck.",
		"share_with":           model.ShareWithRCRCNetwork,
		"hazard_type":          g.Earthquake.ID,
		"country_district": []gin.H{
			{"country": g.CountryA.ID, "district": []uint{g.DistrictA1.ID, g.DistrictA2.ID}},
		},
		"references": []gin.H{
			{"date": "2021-02-02", "source_description": "Report", "url": "https://example.org"},
		},
		"actions_taken": []gin.H{
			{"organization": "PNS", "summary": "Relief items", "actions": []uint{g.ActionB.ID}},
		},
	}
}

func TestAuthEndpoints(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"username": "newuser", "password": "password123", "email": "new@example.com"})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"username": "newuser", "password": "password123", "email": "x@example.com"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"username": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"username": "newuser", "password": "password123"})
	require.Equal(t, http.StatusOK, w.Code)
	token := decode(t, w)["token"].(string)

	w = s.do(t, http.MethodGet, "/api/user/profile", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"username": "newuser", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/api/flash-updates", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestExportEndpoints(t *testing.T) {
	s := newTestServer(t)
	fu := testsupport.CreateFlashUpdate(t, s.db, "Floods", model.ShareWithRCRCNetwork, s.user.ID)
	path := fmt.Sprintf("/api/export/pdf/%d", fu.ID)

	w := s.do(t, http.MethodPost, path, s.userToken, nil)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	first := decode(t, w)
	jobID := first["id"].(string)
	assert.Contains(t, []interface{}{"pending", "ready"}, first["status"])

	s.pool.Wait()

	w = s.do(t, http.MethodGet, "/api/export/"+jobID, s.userToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	polled := decode(t, w)
	assert.Equal(t, "ready", polled["status"])
	assert.NotNil(t, polled["url"])
	assert.Nil(t, polled["error"])

	w = s.do(t, http.MethodPost, path, s.userToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, jobID, decode(t, w)["id"])

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/flash-updates/%d/exports", fu.ID), s.userToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["exports"], 1)

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{name: "unknown kind", method: http.MethodPost, path: fmt.Sprintf("/api/export/docx/%d", fu.ID), want: http.StatusBadRequest},
		{name: "unknown subject", method: http.MethodPost, path: "/api/export/pdf/4040", want: http.StatusNotFound},
		{name: "bad subject id", method: http.MethodPost, path: "/api/export/pdf/abc", want: http.StatusBadRequest},
		{name: "unknown job", method: http.MethodGet, path: "/api/export/nope", want: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, tt.method, tt.path, s.userToken, nil)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestShareEndpoints(t *testing.T) {
	s := newTestServer(t)
	fu := testsupport.CreateFlashUpdate(t, s.db, "Floods", model.ShareWithRCRCNetwork, s.user.ID)
	g := testsupport.CreateGroup(t, s.db, "network", s.staff.ID, s.user.ID)
	path := fmt.Sprintf("/api/share/%d", fu.ID)

	w := s.do(t, http.MethodPost, path, s.userToken, gin.H{"recipients": []uint{}, "groups": []uint{}})
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Contains(t, decode(t, w)["fields"], "groups")

	subPath := "/api/admin/share-subscriptions/" + string(model.ShareWithRCRCNetwork)
	w = s.do(t, http.MethodPut, subPath, s.userToken, gin.H{"group_id": g.ID})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = s.do(t, http.MethodPut, subPath, s.staffToken, gin.H{"group_id": g.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = s.do(t, http.MethodPut, "/api/admin/share-subscriptions/EVERYONE", s.staffToken, gin.H{"group_id": g.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, path, s.userToken, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	event := decode(t, w)
	assert.Equal(t, float64(fu.ID), event["subject_id"])
	assert.Equal(t, []interface{}{float64(g.ID)}, event["groups"])
	assert.Empty(t, event["recipients"])

	s.pool.Wait()
	assert.Len(t, s.notifier.To(notify.GroupRecipient(g.ID)), 1)

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/flash-updates/%d/shares", fu.ID), s.userToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	shares := decode(t, w)["shares"].([]interface{})
	require.Len(t, shares, 1)
	assert.NotNil(t, shares[0].(map[string]interface{})["artifact_url"])

	w = s.do(t, http.MethodGet, "/api/admin/share-subscriptions", s.staffToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["subscriptions"], 1)
}

func TestFlashUpdateEndpoints(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/flash-updates", s.userToken, s.flashUpdateBody())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	id := uint(created["id"].(float64))
	assert.Equal(t, "Earthquake in Gorkha", created["title"])

	bad := s.flashUpdateBody()
	bad["country_district"] = []gin.H{{"country": s.geo.CountryA.ID, "district": []uint{s.geo.DistrictB1.ID}}}
	w = s.do(t, http.MethodPost, "/api/flash-updates", s.userToken, bad)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["fields"], "country_district[0].district")

	bad = s.flashUpdateBody()
	bad["title"] = "Floods\r\nBcc: attacker@evil.example"
	bad["references"] = []gin.H{{"date": "02/02/2021"}}
	bad["actions_taken"] = []gin.H{{"organization": "UN"}}
	w = s.do(t, http.MethodPost, "/api/flash-updates", s.userToken, bad)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	fields := decode(t, w)["fields"]
	assert.Contains(t, fields, "title")
	assert.Contains(t, fields, "references[0].date")
	assert.Contains(t, fields, "actions_taken[0].organization")

	w = s.do(t, http.MethodPatch, fmt.Sprintf("/api/flash-updates/%d", id), s.userToken, gin.H{"title": "Floods\nBcc: x@evil.example"})
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Contains(t, decode(t, w)["fields"], "title")

	w = s.do(t, http.MethodPatch, fmt.Sprintf("/api/flash-updates/%d", id), s.userToken, gin.H{"title": "Renamed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	patched := decode(t, w)
	assert.Equal(t, "Renamed", patched["title"])
	assert.Len(t, patched["country_district"], 1)

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/flash-updates?hazard_type=%d", s.geo.Flood.ID), s.userToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decode(t, w)["count"])

	w = s.do(t, http.MethodGet, "/api/flash-updates", s.userToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["count"])

	w = s.do(t, http.MethodDelete, fmt.Sprintf("/api/flash-updates/%d", id), s.userToken, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/flash-updates/%d", id), s.userToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGroupEndpoints(t *testing.T) {
	s := newTestServer(t)
	other := testsupport.CreateUser(t, s.db, "other", false)

	w := s.do(t, http.MethodPost, "/api/groups", s.userToken, gin.H{"name": "responders"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	gid := uint(decode(t, w)["group"].(map[string]interface{})["id"].(float64))

	w = s.do(t, http.MethodPost, "/api/groups", s.userToken, gin.H{"name": "responders"})
	assert.Equal(t, http.StatusConflict, w.Code)

	membersPath := fmt.Sprintf("/api/groups/%d/members", gid)
	w = s.do(t, http.MethodPost, membersPath, s.userToken, gin.H{"user_id": other.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = s.do(t, http.MethodPost, membersPath, s.userToken, gin.H{"user_id": other.ID})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/groups/%d", gid), s.userToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["members"], 2)

	w = s.do(t, http.MethodGet, "/api/groups", s.staffToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["groups"], 1)

	w = s.do(t, http.MethodDelete, fmt.Sprintf("/api/groups/%d/members/%d", gid, other.ID), mustToken(t, other.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNotificationFeed(t *testing.T) {
	s := newTestServer(t)
	fu := testsupport.CreateFlashUpdate(t, s.db, "Floods", model.ShareWithRCRCNetwork, s.staff.ID)

	server := httptest.NewServer(s.router)
	t.Cleanup(server.Close)
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/ws/notifications?token=" + s.userToken

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.Eventually(t, func() bool { return s.hub.IsClientConnected(s.user.ID) }, 2*time.Second, 10*time.Millisecond)

	w := s.do(t, http.MethodPost, fmt.Sprintf("/api/share/%d", fu.ID), s.staffToken, gin.H{"recipients": []uint{s.user.ID}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, string(notify.KindShared), msg["kind"])
	assert.Equal(t, float64(s.user.ID), msg["user_id"])
	assert.Equal(t, float64(fu.ID), msg["flash_update_id"])
}
