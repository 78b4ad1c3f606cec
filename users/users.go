package users

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"tribuna/common"
	"tribuna/models"
)

type UserModule struct {
	db *gorm.DB
}

func NewUserModule(db *gorm.DB) *UserModule {
	return &UserModule{db: db}
}

func (u *UserModule) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	{
		api.POST("/users", u.createUser)
		api.GET("/users/id/:id", u.getUserByID)
		api.GET("/users/username/:username", u.getUserByUsername)
		api.PUT("/users/:username", u.replaceUser)
		api.PATCH("/users/:username", u.patchUser)
		api.DELETE("/users", u.deleteUser)
		api.POST("/users/validate", u.validateUser)
	}
}

type createUserRequest struct {
	Username   string `json:"username" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required"`
	ProfilePic string `json:"profile_pic"`
}

type updateUserRequest struct {
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required"`
	ProfilePic string `json:"profile_pic"`
}

type patchUserRequest struct {
	Email      *string `json:"email"`
	Password   *string `json:"password"`
	ProfilePic *string `json:"profile_pic"`
}

type credentialsRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password" binding:"required"`
}

func (u *UserModule) createUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := u.CreateUser(req.Username, req.Email, req.Password, req.ProfilePic)
	if err != nil {
		common.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

func (u *UserModule) getUserByID(c *gin.Context) {
	var user models.User
	if err := u.db.First(&user, "id = ?", c.Param("id")).Error; err != nil {
		common.AbortWithError(c, common.NotFound("user not found"))
		return
	}

	c.JSON(http.StatusOK, user)
}

func (u *UserModule) getUserByUsername(c *gin.Context) {
	user, err := u.GetByUsername(c.Param("username"))
	if err != nil {
		common.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (u *UserModule) replaceUser(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := u.ReplaceUser(c.Param("username"), req.Email, req.Password, req.ProfilePic)
	if err != nil {
		common.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (u *UserModule) patchUser(c *gin.Context) {
	var req patchUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := u.PatchUser(c.Param("username"), req.Email, req.Password, req.ProfilePic)
	if err != nil {
		common.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (u *UserModule) deleteUser(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := u.DeleteUser(req.Username, req.Email, req.Password); err != nil {
		common.AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (u *UserModule) validateUser(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	valid, err := u.ValidateCredentials(req.Username, req.Email, req.Password)
	if err != nil {
		common.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"valid": valid})
}

func (u *UserModule) CreateUser(username, email, password, profilePic string) (*models.User, error) {
	var existing models.User
	if err := u.db.Where("username = ?", username).First(&existing).Error; err == nil {
		return nil, common.BadRequest("username already taken")
	}
	if err := u.db.Where("email = ?", email).First(&existing).Error; err == nil {
		return nil, common.BadRequest("email already registered")
	}

	passwordHash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		ProfilePic:   profilePic,
	}

	if err := u.db.Create(&user).Error; err != nil {
		return nil, common.BadRequest("could not create user")
	}

	return &user, nil
}

func (u *UserModule) GetByUsername(username string) (*models.User, error) {
	var user models.User
	if err := u.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, common.NotFound("user not found")
	}
	return &user, nil
}

func (u *UserModule) GetByID(id int) (*models.User, error) {
	var user models.User
	if err := u.db.First(&user, id).Error; err != nil {
		return nil, common.NotFound("user not found")
	}
	return &user, nil
}

// ReplaceUser applies a full update: every replaceable field is overwritten.
func (u *UserModule) ReplaceUser(username, email, password, profilePic string) (*models.User, error) {
	user, err := u.GetByUsername(username)
	if err != nil {
		return nil, err
	}

	if email != user.Email {
		var existing models.User
		if err := u.db.Where("email = ?", email).First(&existing).Error; err == nil {
			return nil, common.BadRequest("email already registered")
		}
	}

	passwordHash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	user.Email = email
	user.PasswordHash = passwordHash
	user.ProfilePic = profilePic

	if err := u.db.Save(user).Error; err != nil {
		return nil, common.BadRequest("could not update user")
	}

	return user, nil
}

// PatchUser updates only the fields present in the request.
func (u *UserModule) PatchUser(username string, email, password, profilePic *string) (*models.User, error) {
	user, err := u.GetByUsername(username)
	if err != nil {
		return nil, err
	}

	if email != nil && *email != user.Email {
		var existing models.User
		if err := u.db.Where("email = ?", *email).First(&existing).Error; err == nil {
			return nil, common.BadRequest("email already registered")
		}
		user.Email = *email
	}

	if password != nil {
		passwordHash, err := hashPassword(*password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = passwordHash
	}

	if profilePic != nil {
		user.ProfilePic = *profilePic
	}

	if err := u.db.Save(user).Error; err != nil {
		return nil, common.BadRequest("could not update user")
	}

	return user, nil
}

// DeleteUser removes the account after the caller proves ownership with
// username+password or email+password.
func (u *UserModule) DeleteUser(username, email, password string) error {
	user, err := u.findByCredentialKey(username, email)
	if err != nil {
		return err
	}

	if !checkPasswordHash(password, user.PasswordHash) {
		return common.BadRequest("invalid credentials")
	}

	return u.db.Delete(user).Error
}

// ValidateCredentials reports whether the given password matches the user
// identified by username or email. An unknown user is NotFound, not false.
func (u *UserModule) ValidateCredentials(username, email, password string) (bool, error) {
	user, err := u.findByCredentialKey(username, email)
	if err != nil {
		return false, err
	}

	return checkPasswordHash(password, user.PasswordHash), nil
}

func (u *UserModule) findByCredentialKey(username, email string) (*models.User, error) {
	if username == "" && email == "" {
		return nil, common.Validation("username or email is required")
	}

	var user models.User
	var err error
	if username != "" {
		err = u.db.Where("username = ?", username).First(&user).Error
	} else {
		err = u.db.Where("email = ?", email).First(&user).Error
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.NotFound("user not found")
	}
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 14)
	return string(bytes), err
}

func checkPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
