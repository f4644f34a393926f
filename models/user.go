package models

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/travelshield/portal_backend/config"
	"bitbucket.org/travelshield/portal_backend/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type User struct {
	ID           int             `gorm:"primary_key" json:"id"`
	Username     string          `gorm:"size:100;not null;unique" json:"username" binding:"required"`
	Name         string          `gorm:"size:100;not null" json:"name" binding:"required"`
	Email        *string         `gorm:"size:100;unique" json:"email"`
	Mobile       string          `gorm:"size:20" json:"mobile"`
	Password     string          `gorm:"size:255;not null" json:"password"`
	IsActive     *bool           `gorm:"not null" json:"is_active"`
	EmployeeType EmployeeType    `gorm:"type:enum('Admin','Emp','Agent');default:Agent" json:"employee_type"`
	AgentCode    string          `gorm:"size:50;index" json:"agent_code"`
	WalletAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"wallet_amount"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	Username     string       `json:"username" binding:"required"`
	Name         string       `json:"name" binding:"required"`
	Email        string       `json:"email" binding:"required"`
	Mobile       string       `json:"mobile"`
	Password     string       `json:"password" binding:"required"`
	EmployeeType EmployeeType `json:"employee_type"`
}

/*
caches:
	User:$username
	Token:$token -> username
	Tokens:$username -> set of live tokens
*/

func (user User) RemoveInstanceRedis() error {
	if err := config.RemoveRedisKey("User:" + user.Username); err != nil {
		return err
	}
	return nil
}

// LoginInfo mirrors the session payload the portal keeps for the logged-in user.
type LoginInfo struct {
	Token         string          `json:"token"`
	RememberToken string          `json:"remember_token,omitempty"`
	UserId        int             `json:"user_id"`
	FullName      string          `json:"full_name"`
	Email         string          `json:"email"`
	EmployeeType  EmployeeType    `json:"employee_type"`
	WalletAmount  decimal.Decimal `json:"wallet_amount"`
	AgentCode     string          `json:"agent_code,omitempty"`
}

func (result *User) PrepareGive() {
	result.Password = ""
}

func Login(ctx context.Context, username string, password string, rememberMe bool) (*LoginInfo, error) {

	db := config.GetDB()
	var err error
	var result LoginInfo

	user := User{}

	// get User info
	exists, err := config.GetRedisObject("User:"+username, &user)
	if err != nil {
		return &result, err
	}
	if !exists {
		err = db.WithContext(ctx).Model(&User{}).Where("username = ?", username).Take(&user).Error

		if err != nil {
			return &result, errors.New("invalid username or password")
		}
	}

	// check login credentials; any compare failure denies, a hash that
	// cannot be decoded must not read as a match
	if !passwordMatches(user.Password, password) {
		return &result, errors.New("invalid username or password")
	}

	isActive := *user.IsActive
	if !isActive {
		return &result, errors.New("user is disabled")
	}

	// generate token & response
	token := uuid.New()
	result.Token = token.String()
	result.UserId = user.ID
	result.FullName = user.Name
	if user.Email != nil {
		result.Email = *user.Email
	}
	result.EmployeeType = user.EmployeeType
	if user.EmployeeType != EmployeeTypeAdmin && user.EmployeeType != EmployeeTypeEmp {
		result.WalletAmount = user.WalletAmount
		result.AgentCode = user.AgentCode
	}

	// "remember me" issues an additional long-lived jwt.
	if rememberMe {
		remember, err := utils.JwtGenerate(user.ID, user.Username, string(user.EmployeeType))
		if err != nil {
			return &result, err
		}
		result.RememberToken = remember
	}

	// store token in redis
	tokenLifespan, err := strconv.Atoi(os.Getenv("TOKEN_HOUR_LIFESPAN"))
	if err != nil {
		tokenLifespan = 12
	}

	// add new token to the user's tokens set
	if err := config.AddRedisSet("Tokens:"+user.Username, token.String()); err != nil {
		return nil, err
	}
	if err := config.SetRedisValue("Token:"+token.String(), user.Username, time.Duration(tokenLifespan)*time.Hour); err != nil {
		return &result, err
	}

	return &result, nil
}

func passwordMatches(hashed, password string) bool {
	return utils.ComparePassword(hashed, password) == nil
}

// ResumeSession mints a fresh redis session for a user whose long-lived
// "remember me" jwt already checked out. No password round-trip.
func ResumeSession(ctx context.Context, username string) (*LoginInfo, error) {

	user, err := GetUserByUsername(ctx, username)
	if err != nil {
		return nil, errors.New("user not found")
	}
	if user.IsActive == nil || !*user.IsActive {
		return nil, errors.New("user is disabled")
	}

	var result LoginInfo
	token := uuid.New()
	result.Token = token.String()
	result.UserId = user.ID
	result.FullName = user.Name
	if user.Email != nil {
		result.Email = *user.Email
	}
	result.EmployeeType = user.EmployeeType
	if user.EmployeeType != EmployeeTypeAdmin && user.EmployeeType != EmployeeTypeEmp {
		result.WalletAmount = user.WalletAmount
		result.AgentCode = user.AgentCode
	}

	tokenLifespan, err := strconv.Atoi(os.Getenv("TOKEN_HOUR_LIFESPAN"))
	if err != nil {
		tokenLifespan = 12
	}
	if err := config.AddRedisSet("Tokens:"+user.Username, token.String()); err != nil {
		return nil, err
	}
	if err := config.SetRedisValue("Token:"+token.String(), user.Username, time.Duration(tokenLifespan)*time.Hour); err != nil {
		return &result, err
	}
	return &result, nil
}

// destroy current session and drop every staged flow blob it owns
func Logout(ctx context.Context) (bool, error) {
	token, ok := utils.GetTokenFromContext(ctx)
	if !ok || token == "" {
		return false, errors.New("token is required")
	}
	err := config.RemoveRedisKey("Token:" + fmt.Sprint(token))
	if err != nil {
		return false, nil
	}
	username, ok := utils.GetUsernameFromContext(ctx)
	if !ok || username == "" {
		return false, errors.New("user not found")
	}
	if err := config.RemoveRedisSetMember("Tokens:"+username, token); err != nil {
		return false, err
	}
	// the SPA cleared both localStorage and sessionStorage here
	if err := config.RemoveRedisKeysByPattern(ctx, "Handoff:"+token+":*"); err != nil {
		return false, err
	}
	return true, nil
}

// LogoutAllSessions destroys every live session of the user, not just the
// current one, and drops the cached user row.
func LogoutAllSessions(ctx context.Context) (bool, error) {
	username, ok := utils.GetUsernameFromContext(ctx)
	if !ok || username == "" {
		return false, errors.New("user not found")
	}
	tokens, err := config.GetRedisSetMembers("Tokens:" + username)
	if err != nil {
		return false, err
	}
	for _, t := range tokens {
		if err := config.RemoveRedisKey("Token:" + t); err != nil {
			return false, err
		}
		if err := config.RemoveRedisKeysByPattern(ctx, "Handoff:"+t+":*"); err != nil {
			return false, err
		}
	}
	if err := config.RemoveRedisKey("Tokens:" + username); err != nil {
		return false, err
	}
	if err := (User{Username: username}).RemoveInstanceRedis(); err != nil {
		return false, err
	}
	return true, nil
}

func CreateUser(ctx context.Context, input *NewUser) (*User, error) {

	db := config.GetDB()

	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return &User{}, errors.New("invalid email address")
	}
	if input.Mobile != "" {
		if !utils.IsValidMobile(input.Mobile) {
			return &User{}, errors.New("invalid mobile number")
		}
		if err := utils.ValidatePhoneNumber(input.Mobile, utils.CountryCode); err != nil {
			return &User{}, errors.New("invalid mobile number")
		}
	}

	if err := utils.ValidateUnique[User](ctx, "username", input.Username, 0); err != nil {
		return &User{}, err
	}
	if input.Email != "" {
		if err := utils.ValidateUnique[User](ctx, "email", input.Email, 0); err != nil {
			return &User{}, err
		}
	}

	hashedPassword, err := utils.HashPassword(input.Password)
	if err != nil {
		return &User{}, err
	}
	input.Email = strings.ToLower(input.Email)

	employeeType := input.EmployeeType
	if employeeType == "" {
		employeeType = EmployeeTypeAgent
	}

	user := User{
		Username:     input.Username,
		Name:         input.Name,
		Email:        &input.Email,
		Mobile:       input.Mobile,
		Password:     string(hashedPassword),
		IsActive:     utils.NewTrue(),
		EmployeeType: employeeType,
	}
	if employeeType == EmployeeTypeAgent {
		user.AgentCode = nextAgentCode()
	}

	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return &User{}, err
	}

	user.PrepareGive()
	return &user, nil
}

// EnsureBootstrapAdmin seeds the first admin from BOOTSTRAP_ADMIN_USERNAME /
// BOOTSTRAP_ADMIN_PASSWORD when the users table is empty. Without it a fresh
// deployment has no account that can reach the admin-gated endpoints.
func EnsureBootstrapAdmin(ctx context.Context) error {
	db := config.GetDB()
	var count int64
	if err := db.WithContext(ctx).Model(&User{}).Count(&count).Error; err != nil {
		return err
	}
	username := strings.TrimSpace(os.Getenv("BOOTSTRAP_ADMIN_USERNAME"))
	password := os.Getenv("BOOTSTRAP_ADMIN_PASSWORD")
	if !shouldSeedBootstrapAdmin(count, username, password) {
		return nil
	}
	_, err := CreateUser(ctx, &NewUser{
		Username:     username,
		Password:     password,
		Name:         "Administrator",
		EmployeeType: EmployeeTypeAdmin,
	})
	return err
}

func shouldSeedBootstrapAdmin(userCount int64, username, password string) bool {
	return userCount == 0 && username != "" && password != ""
}

func nextAgentCode() string {
	return "AG" + strings.ToUpper(uuid.NewString()[:8])
}

func GetUserByUsername(ctx context.Context, username string) (*User, error) {
	db := config.GetDB()
	var user User

	exists, err := config.GetRedisObject("User:"+username, &user)
	if err != nil {
		return nil, err
	}
	if exists {
		return &user, nil
	}
	if err := db.WithContext(ctx).Model(&User{}).Where("username = ?", username).Take(&user).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	_ = config.SetRedisObject("User:"+username, user, time.Hour)
	return &user, nil
}

func GetAllUsers(ctx context.Context) ([]*User, error) {

	db := config.GetDB()
	var results []*User

	if err := db.WithContext(ctx).Find(&results).Error; err != nil {
		return results, errors.New("no user")
	}

	for i, u := range results {
		u.Password = ""
		results[i] = u
	}

	return results, nil
}
