package users

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"tribuna/common"
	"tribuna/models"
)

func setupTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		panic("failed to connect database")
	}

	db.AutoMigrate(&models.User{})
	return db
}

func setupTestRouter(userModule *UserModule) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	userModule.RegisterRoutes(router)
	return router
}

func TestCreateUser_Success(t *testing.T) {
	db := setupTestDB()
	m := NewUserModule(db)

	user, err := m.CreateUser("alice", "alice@example.com", "secret123", "pic.png")

	assert.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.NotEqual(t, "secret123", user.PasswordHash)
}

func TestCreateUser_DuplicateUsername(t *testing.T) {
	db := setupTestDB()
	m := NewUserModule(db)

	_, err := m.CreateUser("alice", "alice@example.com", "secret123", "")
	assert.NoError(t, err)

	_, err = m.CreateUser("alice", "other@example.com", "secret123", "")
	assert.True(t, common.IsBadRequest(err))
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	db := setupTestDB()
	m := NewUserModule(db)

	_, err := m.CreateUser("alice", "alice@example.com", "secret123", "")
	assert.NoError(t, err)

	_, err = m.CreateUser("bob", "alice@example.com", "secret123", "")
	assert.True(t, common.IsBadRequest(err))
}

func TestGetByUsername_NotFound(t *testing.T) {
	db := setupTestDB()
	m := NewUserModule(db)

	_, err := m.GetByUsername("ghost")

	assert.True(t, common.IsNotFound(err))
}

func TestReplaceUser(t *testing.T) {
	db := setupTestDB()
	m := NewUserModule(db)

	_, err := m.CreateUser("alice", "alice@example.com", "secret123", "old.png")
	assert.NoError(t, err)

	updated, err := m.ReplaceUser("alice", "new@example.com", "newpass456", "new.png")

	assert.NoError(t, err)
	assert.Equal(t, "new@example.com", updated.Email)
	assert.Equal(t, "new.png", updated.ProfilePic)

	valid, err := m.ValidateCredentials("alice", "", "newpass456")
	assert.NoError(t, err)
	assert.True(t, valid)
}

func TestPatchUser_PartialUpdate(t *testing.T) {
	db := setupTestDB()
	m := NewUserModule(db)

	_, err := m.CreateUser("alice", "alice@example.com", "secret123", "old.png")
	assert.NoError(t, err)

	pic := "fresh.png"
	updated, err := m.PatchUser("alice", nil, nil, &pic)

	assert.NoError(t, err)
	assert.Equal(t, "fresh.png", updated.ProfilePic)
	assert.Equal(t, "alice@example.com", updated.Email)

	// untouched password still validates
	valid, _ := m.ValidateCredentials("alice", "", "secret123")
	assert.True(t, valid)
}

func TestValidateCredentials(t *testing.T) {
	db := setupTestDB()
	m := NewUserModule(db)

	_, err := m.CreateUser("alice", "alice@example.com", "secret123", "")
	assert.NoError(t, err)

	valid, err := m.ValidateCredentials("alice", "", "secret123")
	assert.NoError(t, err)
	assert.True(t, valid)

	valid, err = m.ValidateCredentials("", "alice@example.com", "secret123")
	assert.NoError(t, err)
	assert.True(t, valid)

	valid, err = m.ValidateCredentials("alice", "", "wrongpassword")
	assert.NoError(t, err)
	assert.False(t, valid)

	_, err = m.ValidateCredentials("ghost", "", "secret123")
	assert.True(t, common.IsNotFound(err))

	_, err = m.ValidateCredentials("", "", "secret123")
	assert.Error(t, err)
}

func TestDeleteUser_WrongPassword(t *testing.T) {
	db := setupTestDB()
	m := NewUserModule(db)

	_, err := m.CreateUser("alice", "alice@example.com", "secret123", "")
	assert.NoError(t, err)

	err = m.DeleteUser("alice", "", "wrongpassword")
	assert.True(t, common.IsBadRequest(err))

	var count int64
	db.Model(&models.User{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestDeleteUser_Success(t *testing.T) {
	db := setupTestDB()
	m := NewUserModule(db)

	_, err := m.CreateUser("alice", "alice@example.com", "secret123", "")
	assert.NoError(t, err)

	err = m.DeleteUser("", "alice@example.com", "secret123")
	assert.NoError(t, err)

	var count int64
	db.Model(&models.User{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestPasswordHashing(t *testing.T) {
	password := "testpassword"

	hash, err := hashPassword(password)
	assert.NoError(t, err)

	valid := checkPasswordHash(password, hash)
	assert.True(t, valid)

	invalid := checkPasswordHash("wrongpassword", hash)
	assert.False(t, invalid)
}

func TestCreateUserRoute(t *testing.T) {
	db := setupTestDB()
	m := NewUserModule(db)
	router := setupTestRouter(m)

	body := []byte(`{"username":"alice","email":"alice@example.com","password":"secret123"}`)
	req, _ := http.NewRequest("POST", "/api/users", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.NotContains(t, w.Body.String(), "secret123")
	assert.NotContains(t, w.Body.String(), "password_hash")
}

func TestCreateUserRoute_MissingFields(t *testing.T) {
	db := setupTestDB()
	m := NewUserModule(db)
	router := setupTestRouter(m)

	body := []byte(`{"username":"alice"}`)
	req, _ := http.NewRequest("POST", "/api/users", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetUserRoute_NotFound(t *testing.T) {
	db := setupTestDB()
	m := NewUserModule(db)
	router := setupTestRouter(m)

	req, _ := http.NewRequest("GET", "/api/users/username/ghost", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
