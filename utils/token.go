package utils

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dgrijalva/jwt-go"
)

// JwtCustomClaim backs the long-lived "remember me" token.
// Regular sessions are redis-backed uuid tokens; the jwt is only issued when
// the user asks to stay signed in across browser sessions.
type JwtCustomClaim struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	EmployeeType string `json:"employee_type"`
	jwt.StandardClaims
}

var jwtSecret = []byte(getJwtSecret())

func getJwtSecret() string {
	secret := os.Getenv("API_SECRET")
	if secret == "" {
		return "TravelShield-Secret"
	}
	return secret
}

func JwtGenerate(userID int, username string, employeeType string) (string, error) {
	lifespanDays, err := strconv.Atoi(os.Getenv("REMEMBER_ME_DAY_LIFESPAN"))
	if err != nil {
		lifespanDays = 30
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, &JwtCustomClaim{
		ID:           userID,
		Username:     username,
		EmployeeType: employeeType,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: time.Now().Add(time.Hour * 24 * time.Duration(lifespanDays)).Unix(),
			IssuedAt:  time.Now().Unix(),
		},
	})

	token, err := t.SignedString(jwtSecret)
	if err != nil {
		return "", err
	}

	return token, nil
}

func JwtValidate(token string) (*jwt.Token, error) {
	return jwt.ParseWithClaims(token, &JwtCustomClaim{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("there's a problem with the signing method")
		}
		return jwtSecret, nil
	})
}
