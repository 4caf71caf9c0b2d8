package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"digilocker/internal/config"
	"digilocker/internal/model"
	repoMocks "digilocker/internal/repository/mocks"
	"digilocker/internal/service"
	"digilocker/internal/storage"
	storeMocks "digilocker/internal/storage/mocks"
	"digilocker/internal/vault"
)

const testJWTSecret = "test-secret"

type fixture struct {
	app     *fiber.App
	docs    *repoMocks.MockDocumentRepository
	users   *repoMocks.MockUserRepository
	storage *storeMocks.MockStorage
	dbMock  sqlmock.Sqlmock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	docs := new(repoMocks.MockDocumentRepository)
	users := new(repoMocks.MockUserRepository)
	st := new(storeMocks.MockStorage)
	log := zap.NewNop()

	authCfg := config.AuthConfig{
		JWTSecret:     testJWTSecret,
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		LoginAttempts: 5,
		LoginWindow:   time.Minute,
	}
	auth := service.NewAuthService(users, authCfg, log)
	oauth := service.NewOAuthService(nil, users, auth, log)

	share := config.ShareConfig{
		PublicBaseURL: "https://locker.test",
		QREndpoint:    "https://qr.test/render",
		PresignExpiry: time.Hour,
	}
	vaults := vault.NewManager(st, docs, vault.NewLogNotifier(log), share, log)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
	RegisterRoutes(app, Deps{
		DB:        db,
		Auth:      auth,
		OAuth:     oauth,
		Vaults:    vaults,
		JWTSecret: testJWTSecret,
	})

	return &fixture{app: app, docs: docs, users: users, storage: st, dbMock: dbMock}
}

func accessToken(t *testing.T, userID string) string {
	t.Helper()
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":    userID,
		"token_type": "access",
		"exp":        now.Add(time.Minute).Unix(),
		"iat":        now.Unix(),
	})
	signed, err := tok.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return signed
}

func authed(t *testing.T, req *http.Request, userID string) *http.Request {
	t.Helper()
	req.Header.Set("Authorization", "Bearer "+accessToken(t, userID))
	return req
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestDocuments_RequireAuthentication(t *testing.T) {
	f := newFixture(t)

	endpoints := []struct{ method, path string }{
		{"GET", "/documents/"},
		{"GET", "/documents/stats"},
		{"POST", "/documents/"},
		{"DELETE", "/documents/" + uuid.NewString()},
		{"POST", "/documents/" + uuid.NewString() + "/share"},
		{"POST", "/documents/" + uuid.NewString() + "/verify"},
	}

	for _, e := range endpoints {
		resp, err := f.app.Test(httptest.NewRequest(e.method, e.path, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, "%s %s", e.method, e.path)

		var body struct {
			Error struct{ Code string } `json:"error"`
		}
		decodeBody(t, resp, &body)
		assert.Equal(t, "UNAUTHORIZED", body.Error.Code)
	}

	// An anonymous request never reaches storage or the repository.
	f.docs.AssertNotCalled(t, "ListByOwner", mock.Anything, mock.Anything)
	f.storage.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDocuments_List(t *testing.T) {
	f := newFixture(t)
	now := time.Now().UTC()

	f.docs.On("ListByOwner", mock.Anything, "u1").Return([]model.Document{
		{ID: "d2", OwnerID: "u1", StoragePath: "u1/b.png", ContentType: "image/png", CreatedAt: now},
		{ID: "d1", OwnerID: "u1", StoragePath: "u1/a.pdf", ContentType: "application/pdf", CreatedAt: now.Add(-time.Hour)},
	}, nil)
	f.storage.On("PresignGet", mock.Anything, mock.Anything, time.Hour).Return("https://signed", nil)

	resp, err := f.app.Test(authed(t, httptest.NewRequest("GET", "/documents/", nil), "u1"))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Data  []model.Document `json:"data"`
		Total int              `json:"total"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, 2, body.Total)
	require.Len(t, body.Data, 2)
	assert.Equal(t, "d2", body.Data[0].ID, "newest document comes first")
}

func multipartFile(t *testing.T, field, name, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+name+`"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestDocuments_Upload(t *testing.T) {
	t.Run("happy path", func(t *testing.T) {
		f := newFixture(t)

		f.storage.On("Put", mock.Anything, mock.MatchedBy(func(key string) bool {
			return strings.HasPrefix(key, "u1/") && strings.HasSuffix(key, ".pdf")
		}), mock.Anything, mock.Anything).
			Return(func(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
				return storage.ObjectInfo{Key: key, Size: opt.Size, ContentType: opt.ContentType}
			}, nil)
		f.docs.On("Create", mock.Anything, mock.MatchedBy(func(doc *model.Document) bool {
			return doc.OwnerID == "u1" && !doc.Shared && !doc.Verified
		})).Return(func(ctx context.Context, doc *model.Document) *model.Document { return doc }, nil)
		f.storage.On("PresignGet", mock.Anything, mock.Anything, time.Hour).Return("https://signed", nil)

		body, ct := multipartFile(t, "file", "passport.pdf", "application/pdf", []byte("pdf bytes"))
		req := authed(t, httptest.NewRequest("POST", "/documents/", body), "u1")
		req.Header.Set("Content-Type", ct)

		resp, err := f.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

		var doc model.Document
		decodeBody(t, resp, &doc)
		assert.Equal(t, "passport.pdf", doc.Name)
		assert.False(t, doc.Shared)
		f.storage.AssertExpectations(t)
		f.docs.AssertExpectations(t)
	})

	t.Run("unsupported type", func(t *testing.T) {
		f := newFixture(t)

		body, ct := multipartFile(t, "file", "tool.exe", "application/x-msdownload", []byte("MZ"))
		req := authed(t, httptest.NewRequest("POST", "/documents/", body), "u1")
		req.Header.Set("Content-Type", ct)

		resp, err := f.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnsupportedMediaType, resp.StatusCode)

		var payload struct {
			Error struct{ Code string } `json:"error"`
		}
		decodeBody(t, resp, &payload)
		assert.Equal(t, "UNSUPPORTED_TYPE", payload.Error.Code)
		f.storage.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing file field", func(t *testing.T) {
		f := newFixture(t)

		req := authed(t, httptest.NewRequest("POST", "/documents/", strings.NewReader("")), "u1")
		resp, err := f.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}

func TestDocuments_Delete(t *testing.T) {
	t.Run("malformed id", func(t *testing.T) {
		f := newFixture(t)
		resp, err := f.app.Test(authed(t, httptest.NewRequest("DELETE", "/documents/not-a-uuid", nil), "u1"))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

		var payload struct {
			Error struct{ Code string } `json:"error"`
		}
		decodeBody(t, resp, &payload)
		assert.Equal(t, "INVALID_ID", payload.Error.Code)
	})

	t.Run("unknown id is a no-op", func(t *testing.T) {
		f := newFixture(t)
		id := uuid.NewString()
		f.docs.On("FindByID", mock.Anything, id).Return(nil, sql.ErrNoRows)

		resp, err := f.app.Test(authed(t, httptest.NewRequest("DELETE", "/documents/"+id, nil), "u1"))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	})

	t.Run("removes metadata and bytes", func(t *testing.T) {
		f := newFixture(t)
		id := uuid.NewString()
		f.docs.On("FindByID", mock.Anything, id).
			Return(&model.Document{ID: id, OwnerID: "u1", StoragePath: "u1/k.pdf"}, nil)
		f.storage.On("Delete", mock.Anything, "u1/k.pdf").Return(nil)
		f.docs.On("Delete", mock.Anything, id).Return(nil)

		resp, err := f.app.Test(authed(t, httptest.NewRequest("DELETE", "/documents/"+id, nil), "u1"))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
		f.storage.AssertExpectations(t)
		f.docs.AssertExpectations(t)
	})
}

func TestDocuments_Share(t *testing.T) {
	f := newFixture(t)
	id := uuid.NewString()
	now := time.Now().UTC()

	f.docs.On("FindByID", mock.Anything, id).
		Return(&model.Document{ID: id, OwnerID: "u1", StoragePath: "u1/k.pdf", UpdatedAt: now}, nil)
	f.docs.On("SetShared", mock.Anything, id, true, now).Return(now.Add(time.Second), nil)

	resp, err := f.app.Test(authed(t, httptest.NewRequest("POST", "/documents/"+id+"/share", nil), "u1"))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var link model.ShareLink
	decodeBody(t, resp, &link)
	assert.Equal(t, id, link.DocumentID)
	assert.Contains(t, link.URL, id)
	assert.NotEmpty(t, link.QRCodeURL)
}

func TestDocuments_Verify(t *testing.T) {
	f := newFixture(t)
	id := uuid.NewString()
	now := time.Now().UTC()

	f.docs.On("FindByID", mock.Anything, id).
		Return(&model.Document{ID: id, OwnerID: "u1", StoragePath: "u1/k.pdf", UpdatedAt: now}, nil)
	f.docs.On("SetVerified", mock.Anything, id, true, now).Return(now.Add(time.Second), nil)

	resp, err := f.app.Test(authed(t, httptest.NewRequest("POST", "/documents/"+id+"/verify", nil), "u1"))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		ID       string `json:"id"`
		Verified bool   `json:"verified"`
	}
	decodeBody(t, resp, &body)
	assert.True(t, body.Verified)
}

func TestDocuments_Stats(t *testing.T) {
	f := newFixture(t)
	now := time.Now().UTC()

	f.docs.On("ListByOwner", mock.Anything, "u1").Return([]model.Document{
		{ID: "d1", OwnerID: "u1", StoragePath: "a", ContentType: "application/pdf", Size: 100, Shared: true, CreatedAt: now},
		{ID: "d2", OwnerID: "u1", StoragePath: "b", ContentType: "image/png", Size: 50, Verified: true, CreatedAt: now},
	}, nil)
	f.storage.On("PresignGet", mock.Anything, mock.Anything, time.Hour).Return("https://signed", nil)

	resp, err := f.app.Test(authed(t, httptest.NewRequest("GET", "/documents/stats", nil), "u1"))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var stats model.VaultStats
	decodeBody(t, resp, &stats)
	assert.Equal(t, 2, stats.TotalDocuments)
	assert.Equal(t, int64(150), stats.TotalBytes)
	assert.Equal(t, 1, stats.SharedCount)
	assert.Equal(t, 1, stats.VerifiedCount)
}

func TestAuth_RegisterAndLogin(t *testing.T) {
	f := newFixture(t)

	f.users.On("IsEmailTaken", mock.Anything, "asha@example.com").Return(false, nil)
	f.users.On("Create", mock.Anything, mock.Anything).
		Return(func(ctx context.Context, u *model.User) *model.User { return u }, nil)
	f.users.On("SaveRefreshToken", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	body := `{"name":"Asha","email":"asha@example.com","password":"s3cret"}`
	req := httptest.NewRequest("POST", "/auth/register", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var res struct {
		User   model.User `json:"user"`
		Tokens *struct {
			AccessToken  string `json:"access_token"`
			RefreshToken string `json:"refresh_token"`
		} `json:"tokens"`
	}
	decodeBody(t, resp, &res)
	require.NotNil(t, res.Tokens)
	assert.NotEmpty(t, res.Tokens.AccessToken)

	userID, err := service.ParseToken(testJWTSecret, res.Tokens.AccessToken, "access")
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, userID)
}

func TestAuth_LoginFailure(t *testing.T) {
	f := newFixture(t)
	f.users.On("FindByEmail", mock.Anything, "ghost@example.com").Return(nil, sql.ErrNoRows)

	body := `{"email":"ghost@example.com","password":"nope"}`
	req := httptest.NewRequest("POST", "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	var payload struct {
		RequestID string `json:"request_id"`
		Error     struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	decodeBody(t, resp, &payload)
	assert.Equal(t, "INVALID_CREDENTIALS", payload.Error.Code)
}

func TestAuth_LogoutDropsVault(t *testing.T) {
	f := newFixture(t)
	f.users.On("DeleteRefreshToken", mock.Anything, "u1", "tok").Return(nil)

	body := `{"refresh_token":"tok"}`
	req := authed(t, httptest.NewRequest("POST", "/auth/logout", strings.NewReader(body)), "u1")
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	f.users.AssertExpectations(t)
}

func TestAuth_OAuthUnknownProvider(t *testing.T) {
	f := newFixture(t)

	resp, err := f.app.Test(httptest.NewRequest("GET", "/auth/oauth/nope", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	var payload struct {
		Error struct{ Code string } `json:"error"`
	}
	decodeBody(t, resp, &payload)
	assert.Equal(t, "UNKNOWN_PROVIDER", payload.Error.Code)
}

func TestHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		f := newFixture(t)
		f.dbMock.ExpectPing()

		resp, err := f.app.Test(httptest.NewRequest("GET", "/health", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("db unavailable", func(t *testing.T) {
		f := newFixture(t)
		f.dbMock.ExpectPing().WillReturnError(sql.ErrConnDone)

		resp, err := f.app.Test(httptest.NewRequest("GET", "/health", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	})
}
