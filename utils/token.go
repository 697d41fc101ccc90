package utils

import (
	"errors"
	"strconv"
	"time"

	"dm-service/config"
	"dm-service/model"

	"github.com/golang-jwt/jwt/v5"
)

// Tokens struct to describe tokens object.
type Tokens struct {
	Access  string
	Refresh string
}

// TokenMetadata struct to describe identity claims carried in a JWT.
type TokenMetadata struct {
	Id       string
	Email    string
	Verified bool
	Otp      bool
	Exp      int64
}

// UserID parses the id claim. Claims keep the id as a string as issued.
func (m *TokenMetadata) UserID() (uint, error) {
	id, err := strconv.ParseUint(m.Id, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

// GenerateTokens func for generate a new Access & Refresh tokens.
func GenerateTokens(user *model.User, otp bool) (*Tokens, error) {
	id := strconv.FormatUint(uint64(user.ID), 10)

	// Generate JWT Access token.
	accessToken, err := generateToken(
		id,
		user,
		otp,
		"JWT_ACCESS_EXPIRE",
		"JWT_ACCESS_KEY",
	)
	if err != nil {
		return nil, err
	}

	// Generate JWT Refresh token.
	refreshToken, err := generateToken(
		id,
		user,
		otp,
		"JWT_REFRESH_EXPIRE",
		"JWT_REFRESH_KEY",
	)
	if err != nil {
		return nil, err
	}

	return &Tokens{
		Access:  accessToken,
		Refresh: refreshToken,
	}, nil
}

func generateToken(id string, user *model.User, otp bool, expire string, key string) (string, error) {
	minutesCount, _ := strconv.Atoi(config.Config(expire))

	claims := jwt.MapClaims{}

	claims["id"] = id
	claims["email"] = user.Email
	claims["verified"] = user.IsVerified
	claims["otp"] = otp
	claims["exp"] = time.Now().Add(time.Minute * time.Duration(minutesCount)).Unix()

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	t, err := token.SignedString([]byte(config.Config(key)))
	if err != nil {
		// Return error, it JWT token generation failed.
		return "", err
	}

	return t, nil
}

func CheckAndExtractTokenMetadata(token string, key string) (*TokenMetadata, error) {
	t, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		return []byte(config.Config(key)), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := t.Claims.(jwt.MapClaims); ok && t.Valid {
		id, ok := claims["id"].(string)
		if !ok {
			return nil, errors.New("malformed id claim")
		}
		email, _ := claims["email"].(string)
		verified, _ := claims["verified"].(bool)
		otp, _ := claims["otp"].(bool)
		exp, _ := claims["exp"].(float64)

		return &TokenMetadata{
			Id:       id,
			Email:    email,
			Verified: verified,
			Otp:      otp,
			Exp:      int64(exp),
		}, nil
	}

	return nil, errors.New("invalid token")
}
