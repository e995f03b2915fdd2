package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/cliquepay/cliqued/internal/clique"
	"github.com/cliquepay/cliqued/internal/config"
	"github.com/cliquepay/cliqued/internal/ident"
	"github.com/cliquepay/cliqued/internal/media"
	"github.com/cliquepay/cliqued/internal/models"
	"github.com/cliquepay/cliqued/internal/notify"
)

var testDBSeq atomic.Int64

type testEnv struct {
	router *gin.Engine
	db     *gorm.DB
	broker *notify.MemoryBroker
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:api_%d_%d?mode=memory&cache=shared", time.Now().UnixNano(), testDBSeq.Add(1))
	conn, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := conn.AutoMigrate(
		&models.User{},
		&models.Clique{},
		&models.Member{},
		&models.LedgerEntry{},
		&models.Transaction{},
		&models.Media{},
	); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}

	ids := ident.UUID{}
	broker := notify.NewMemoryBroker()
	uploads, errStore := media.NewDiskStore(t.TempDir(), ids)
	if errStore != nil {
		t.Fatalf("disk store: %v", errStore)
	}

	router := gin.New()
	RegisterRoutes(router, Deps{
		DB:        conn,
		JWT:       config.JWTConfig{Secret: "test-secret", Expiry: time.Hour},
		IDs:       ids,
		Broker:    broker,
		Uploads:   uploads,
		Directory: clique.NewDirectory(conn, ids),
		Members:   clique.NewMembership(conn, ids),
		Evaluator: clique.NewEvaluator(conn),
	})
	return &testEnv{router: router, db: conn, broker: broker}
}

func (env *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, errMarshal := json.Marshal(body)
		if errMarshal != nil {
			t.Fatalf("marshal body: %v", errMarshal)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func (env *testEnv) registerAndLogin(t *testing.T, username string) (string, string) {
	t.Helper()
	w := env.do(t, http.MethodPost, "/api/register", "", gin.H{"username": username, "password": "pw123456"})
	if w.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d body %s", username, w.Code, w.Body.String())
	}
	var registered struct {
		ID string `json:"id"`
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &registered); errDecode != nil {
		t.Fatalf("decode register: %v", errDecode)
	}

	w = env.do(t, http.MethodPost, "/api/login", "", gin.H{"username": username, "password": "pw123456"})
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: status %d body %s", username, w.Code, w.Body.String())
	}
	var logged struct {
		Token string `json:"token"`
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &logged); errDecode != nil {
		t.Fatalf("decode login: %v", errDecode)
	}
	return registered.ID, logged.Token
}

func (env *testEnv) createClique(t *testing.T, token, name string) string {
	t.Helper()
	w := env.do(t, http.MethodPost, "/api/cliques", token, gin.H{"name": name, "fund": 0})
	if w.Code != http.StatusCreated {
		t.Fatalf("create clique: status %d body %s", w.Code, w.Body.String())
	}
	var resp struct {
		Clique struct {
			ID string `json:"id"`
		} `json:"clique"`
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &resp); errDecode != nil {
		t.Fatalf("decode create clique: %v", errDecode)
	}
	return resp.Clique.ID
}

func TestAuthRequiredOnProtectedRoutes(t *testing.T) {
	env := setupEnv(t)

	if w := env.do(t, http.MethodGet, "/api/cliques", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/api/cliques", "not-a-token", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad token, got %d", w.Code)
	}
}

func TestCreateAndGetClique(t *testing.T) {
	env := setupEnv(t)
	userID, token := env.registerAndLogin(t, "alice")

	w := env.do(t, http.MethodPost, "/api/cliques", token, gin.H{"name": "Trip", "fund": 0})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status %d body %s", w.Code, w.Body.String())
	}
	var created struct {
		Clique struct {
			ID      string `json:"id"`
			Name    string `json:"name"`
			IsFund  bool   `json:"is_fund"`
			Members []struct {
				UserID  string `json:"user_id"`
				IsAdmin bool   `json:"is_admin"`
			} `json:"members"`
		} `json:"clique"`
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &created); errDecode != nil {
		t.Fatalf("decode: %v", errDecode)
	}
	if created.Clique.IsFund {
		t.Fatalf("expected is_fund=false for zero fund")
	}
	if len(created.Clique.Members) != 1 || !created.Clique.Members[0].IsAdmin || created.Clique.Members[0].UserID != userID {
		t.Fatalf("expected founder admin member, got %+v", created.Clique.Members)
	}

	// Single-clique fetch needs no token.
	if w := env.do(t, http.MethodGet, "/api/cliques/"+created.Clique.ID, "", nil); w.Code != http.StatusOK {
		t.Fatalf("get: status %d", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/api/cliques/ghost", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown clique, got %d", w.Code)
	}
}

func TestMemberManagementStatusCodes(t *testing.T) {
	env := setupEnv(t)
	_, adminToken := env.registerAndLogin(t, "alice")
	bobID, bobToken := env.registerAndLogin(t, "bob")
	cliqueID := env.createClique(t, adminToken, "Trip")

	// Bad shape.
	if w := env.do(t, http.MethodPost, "/api/cliques/"+cliqueID+"/members", adminToken, gin.H{"user_ids": []string{}}); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty list, got %d", w.Code)
	}
	// Unknown user.
	if w := env.do(t, http.MethodPost, "/api/cliques/"+cliqueID+"/members", adminToken, gin.H{"user_ids": []string{"ghost"}}); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown user, got %d", w.Code)
	}

	w := env.do(t, http.MethodPost, "/api/cliques/"+cliqueID+"/members", adminToken, gin.H{"user_ids": []string{bobID}})
	if w.Code != http.StatusCreated {
		t.Fatalf("add member: status %d body %s", w.Code, w.Body.String())
	}
	var added struct {
		Members []models.Member `json:"members"`
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &added); errDecode != nil {
		t.Fatalf("decode add: %v", errDecode)
	}
	if len(added.Members) != 1 {
		t.Fatalf("expected 1 added member, got %d", len(added.Members))
	}

	// Duplicate active membership.
	if w := env.do(t, http.MethodPost, "/api/cliques/"+cliqueID+"/members", adminToken, gin.H{"user_ids": []string{bobID}}); w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate add, got %d", w.Code)
	}

	// Plain member hitting an admin gate on an existing group: 403, not 404.
	if w := env.do(t, http.MethodPost, "/api/cliques/"+cliqueID+"/members", bobToken, gin.H{"user_ids": []string{bobID}}); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for member on admin route, got %d", w.Code)
	}

	// Remove is admin-gated and idempotent.
	if w := env.do(t, http.MethodDelete, "/api/cliques/"+cliqueID+"/members", bobToken, gin.H{"member_ids": []string{added.Members[0].ID}}); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for member removing members, got %d", w.Code)
	}
	for i := 0; i < 2; i++ {
		if w := env.do(t, http.MethodDelete, "/api/cliques/"+cliqueID+"/members", adminToken, gin.H{"member_ids": []string{added.Members[0].ID}}); w.Code != http.StatusNoContent {
			t.Fatalf("expected 204 for remove, got %d", w.Code)
		}
	}

	// The removed member no longer passes the member gate.
	if w := env.do(t, http.MethodGet, "/api/cliques/"+cliqueID+"/media", bobToken, nil); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for removed member, got %d", w.Code)
	}
}

func TestRenameAndDeleteGates(t *testing.T) {
	env := setupEnv(t)
	_, adminToken := env.registerAndLogin(t, "alice")
	bobID, bobToken := env.registerAndLogin(t, "bob")
	_, carolToken := env.registerAndLogin(t, "carol")
	cliqueID := env.createClique(t, adminToken, "Trip")

	if w := env.do(t, http.MethodPost, "/api/cliques/"+cliqueID+"/members", adminToken, gin.H{"user_ids": []string{bobID}}); w.Code != http.StatusCreated {
		t.Fatalf("add bob: status %d", w.Code)
	}

	// Rename requires membership.
	if w := env.do(t, http.MethodPatch, "/api/cliques/"+cliqueID, carolToken, gin.H{"name": "X"}); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-member rename, got %d", w.Code)
	}
	if w := env.do(t, http.MethodPatch, "/api/cliques/"+cliqueID, bobToken, gin.H{"name": "Road Trip"}); w.Code != http.StatusOK {
		t.Fatalf("member rename: status %d body %s", w.Code, w.Body.String())
	}

	// Delete requires admin.
	if w := env.do(t, http.MethodDelete, "/api/cliques/"+cliqueID, bobToken, nil); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for member delete, got %d", w.Code)
	}
	if w := env.do(t, http.MethodDelete, "/api/cliques/"+cliqueID, adminToken, nil); w.Code != http.StatusNoContent {
		t.Fatalf("admin delete: status %d", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/api/cliques/"+cliqueID, "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", w.Code)
	}
}

func TestListCliquesForCaller(t *testing.T) {
	env := setupEnv(t)
	_, aliceToken := env.registerAndLogin(t, "alice")
	_, bobToken := env.registerAndLogin(t, "bob")
	env.createClique(t, aliceToken, "Trip")

	w := env.do(t, http.MethodGet, "/api/cliques", aliceToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: status %d", w.Code)
	}
	var listed struct {
		Cliques []clique.Summary `json:"cliques"`
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &listed); errDecode != nil {
		t.Fatalf("decode list: %v", errDecode)
	}
	if len(listed.Cliques) != 1 || listed.Cliques[0].Name != "Trip" {
		t.Fatalf("expected Trip for alice, got %+v", listed.Cliques)
	}

	w = env.do(t, http.MethodGet, "/api/cliques", bobToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("empty list: status %d", w.Code)
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &listed); errDecode != nil {
		t.Fatalf("decode empty list: %v", errDecode)
	}
	if len(listed.Cliques) != 0 {
		t.Fatalf("expected no cliques for bob, got %+v", listed.Cliques)
	}
}

func TestMediaUploadAndBroadcast(t *testing.T) {
	env := setupEnv(t)
	_, token := env.registerAndLogin(t, "alice")
	cliqueID := env.createClique(t, token, "Trip")

	events, cancel, errSubscribe := env.broker.Subscribe(context.Background(), cliqueID)
	if errSubscribe != nil {
		t.Fatalf("subscribe: %v", errSubscribe)
	}
	defer cancel()

	// Missing file part.
	req := httptest.NewRequest(http.MethodPost, "/api/cliques/"+cliqueID+"/media", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing file, got %d", w.Code)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, errPart := writer.CreateFormFile("file", "pic.png")
	if errPart != nil {
		t.Fatalf("create form file: %v", errPart)
	}
	if _, errWrite := part.Write([]byte("png-bytes")); errWrite != nil {
		t.Fatalf("write form file: %v", errWrite)
	}
	if errClose := writer.Close(); errClose != nil {
		t.Fatalf("close writer: %v", errClose)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/cliques/"+cliqueID+"/media", &buf)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("upload: status %d body %s", w.Code, w.Body.String())
	}
	var uploaded struct {
		Media models.Media `json:"media"`
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &uploaded); errDecode != nil {
		t.Fatalf("decode upload: %v", errDecode)
	}
	if uploaded.Media.Location == "" || uploaded.Media.CliqueID != cliqueID {
		t.Fatalf("unexpected media record: %+v", uploaded.Media)
	}

	select {
	case event := <-events:
		if event.Type != notify.EventMediaCreated {
			t.Fatalf("expected media-created, got %s", event.Type)
		}
	case <-time.After(time.Second):
		t.Fatalf("no broadcast received")
	}

	// Listing is member-gated.
	if w := env.do(t, http.MethodGet, "/api/cliques/"+cliqueID+"/media", token, nil); w.Code != http.StatusOK {
		t.Fatalf("list media: status %d", w.Code)
	}
	_, strangerToken := env.registerAndLogin(t, "mallory")
	if w := env.do(t, http.MethodGet, "/api/cliques/"+cliqueID+"/media", strangerToken, nil); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for stranger, got %d", w.Code)
	}
}

func TestTransactionsListIsMemberGated(t *testing.T) {
	env := setupEnv(t)
	_, token := env.registerAndLogin(t, "alice")
	cliqueID := env.createClique(t, token, "Trip")

	var member models.Member
	if errFind := env.db.First(&member, "clique_id = ?", cliqueID).Error; errFind != nil {
		t.Fatalf("load founder member: %v", errFind)
	}
	seed := models.Transaction{ID: "t1", CliqueID: cliqueID, MemberID: member.ID, Type: "deposit"}
	if errSeed := env.db.Create(&seed).Error; errSeed != nil {
		t.Fatalf("seed transaction: %v", errSeed)
	}

	w := env.do(t, http.MethodGet, "/api/cliques/"+cliqueID+"/transactions", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list transactions: status %d", w.Code)
	}
	var listed struct {
		Transactions []models.Transaction `json:"transactions"`
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &listed); errDecode != nil {
		t.Fatalf("decode transactions: %v", errDecode)
	}
	if len(listed.Transactions) != 1 || listed.Transactions[0].ID != "t1" {
		t.Fatalf("expected seeded transaction, got %+v", listed.Transactions)
	}

	_, strangerToken := env.registerAndLogin(t, "mallory")
	if w := env.do(t, http.MethodGet, "/api/cliques/"+cliqueID+"/transactions", strangerToken, nil); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for stranger, got %d", w.Code)
	}
}
